package render

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/twojabajka/server/internal/infra"
	"github.com/twojabajka/server/internal/providers/openai"
)

// Completer is the text-generation contract the renderer needs for title
// formatting and name inflection.
type Completer interface {
	Complete(ctx context.Context, req openai.ChatRequest) (string, error)
}

// NameCase selects the Polish grammatical form of the child's name used on a
// given page.
type NameCase string

const (
	// CaseFor follows "dla" on the cover ("Specjalnie dla Anny").
	CaseFor NameCase = "dla_kogo"
	// CaseAdventures fits "opowieść o przygodach ..." on the title page.
	CaseAdventures NameCase = "o_przygodach_kogo"
	// CaseGenitive is the plain genitive used on the ownership page.
	CaseGenitive NameCase = "kogo_czego_dopełniacz"
)

var caseDescriptions = map[NameCase]string{
	CaseFor:        "dative/genitive case used after 'dla' (for)",
	CaseAdventures: "genitive case for 'opowieść o przygodach KOGO' (story of X's adventures)",
	CaseGenitive:   "genitive case (kogo? czego?)",
}

// Inflector declines Polish first names through the text model. Results are
// cached per name and case so repeated books for the same child skip the
// calls. Any failure falls back to the uninflected name.
type Inflector struct {
	llm    Completer
	cache  *cache.Cache
	logger *infra.Logger
}

func NewInflector(llm Completer, logger *infra.Logger) *Inflector {
	if logger == nil {
		nop := infra.Logger(zerolog.Nop())
		logger = &nop
	}
	return &Inflector{
		llm:    llm,
		cache:  cache.New(24*time.Hour, 48*time.Hour),
		logger: logger,
	}
}

// Decline returns the requested case form of name.
func (i *Inflector) Decline(ctx context.Context, name string, nameCase NameCase) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	description, ok := caseDescriptions[nameCase]
	if !ok {
		return name
	}
	key := name + "|" + string(nameCase)
	if cached, found := i.cache.Get(key); found {
		return cached.(string)
	}

	prompt := fmt.Sprintf(`You are a Polish grammar expert. Given the Polish first name "%s", return ONLY the correctly declined form: %s. Example: "Anna" for "dla" -> "Anny". Declined form for "%s":`,
		name, description, name)
	raw, err := i.llm.Complete(ctx, openai.ChatRequest{
		Prompt:      prompt,
		Temperature: 0,
		MaxTokens:   20,
	})
	if err != nil {
		i.logger.Warn().Err(err).Str("name", name).Str("case", string(nameCase)).Msg("render: name inflection failed, using nominative")
		return name
	}
	declined := strings.Trim(strings.TrimSpace(raw), `."`)
	if declined == "" {
		return name
	}
	i.cache.Set(key, declined, cache.DefaultExpiration)
	return declined
}
