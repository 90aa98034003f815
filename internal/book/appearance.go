package book

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/twojabajka/server/internal/infra"
	"github.com/twojabajka/server/internal/providers/openai"
)

const (
	describeTimeout      = 20 * time.Second
	describeTemperature  = 0.05
	describeMaxTokens    = 150
	maxAppearanceLength  = 250
	appearanceEllipsisAt = 247
)

// VisionClient is the slice of the text provider the describer needs.
type VisionClient interface {
	Complete(ctx context.Context, req openai.ChatRequest) (string, error)
	RepairParse(ctx context.Context, raw string, dst any) bool
}

// Describer extracts a compact appearance description of the child from the
// uploaded photo via a vision model.
type Describer struct {
	llm    VisionClient
	model  string
	logger *infra.Logger
}

// NewDescriber builds a describer. model selects the vision-capable model.
func NewDescriber(llm VisionClient, model string, logger *infra.Logger) *Describer {
	if logger == nil {
		nop := infra.Logger(zerolog.Nop())
		logger = &nop
	}
	return &Describer{llm: llm, model: model, logger: logger}
}

type appearanceFields struct {
	Age                 int    `json:"age"`
	Gender              string `json:"gender"`
	HairColor           string `json:"hairColor"`
	HairStyle           string `json:"hairStyle"`
	EyeColor            string `json:"eyeColor"`
	ClothingDescription string `json:"clothingDescription"`
	DistinctiveFeatures string `json:"distinctiveFeatures"`
}

// Describe analyzes the photo at publicImageURL. It degrades to a minimal
// age-only descriptor whenever the call or the parse fails, it never errors.
func (d *Describer) Describe(ctx context.Context, publicImageURL string, statedAge int) Appearance {
	fallback := Appearance{FullDescription: fmt.Sprintf("a %d-year-old child", statedAge)}

	raw, err := d.llm.Complete(ctx, openai.ChatRequest{
		Model:       d.model,
		Prompt:      describePrompt(statedAge),
		ImageURL:    publicImageURL,
		Temperature: describeTemperature,
		MaxTokens:   describeMaxTokens,
		Timeout:     describeTimeout,
	})
	if err != nil {
		d.logger.Warn().Err(err).Msg("book: appearance description call failed")
		return fallback
	}

	var fields appearanceFields
	if !d.llm.RepairParse(ctx, raw, &fields) {
		d.logger.Warn().Str("raw", raw).Msg("book: appearance description unparseable")
		return fallback
	}
	return composeAppearance(fields, statedAge)
}

func describePrompt(statedAge int) string {
	return fmt.Sprintf(`You are a vision AI. Analyze the face in the image. The child is stated to be %d years old. Confirm this age. Return strictly and only a valid JSON object without any text before or after. JSON keys and string values should be in English.
Include 'age: %d' (number).
For other features, provide specific and clear descriptors. Prioritize accurate hair color.
Output fields: {
  "age": %d,
  "gender": "boy" | "girl" | null,
  "hairColor": "e.g., golden blonde, dark brown, ginger red, black",
  "hairStyle": "e.g., long wavy, short curly, straight with bangs, pigtails",
  "eyeColor": "e.g., bright blue, deep brown, green",
  "clothingDescription": "e.g., wearing a blue t-shirt with a star and red shorts",
  "distinctiveFeatures": "e.g., light freckles, a cheerful smile"
}`, statedAge, statedAge, statedAge)
}

var spaceRun = regexp.MustCompile(`\s+`)

func composeAppearance(fields appearanceFields, statedAge int) Appearance {
	age := fields.Age
	if age <= 0 {
		age = statedAge
	}
	parts := []string{fmt.Sprintf("%d-year-old", age)}
	if fields.Gender != "" {
		parts = append(parts, fields.Gender)
	}

	var hair string
	if fields.HairColor != "" {
		switch {
		case fields.HairStyle != "" && !strings.Contains(strings.ToLower(fields.HairStyle), strings.ToLower(fields.HairColor)):
			hair = fields.HairStyle + " " + fields.HairColor + " hair"
		case fields.HairStyle != "":
			hair = fields.HairStyle
		default:
			hair = fields.HairColor + " hair"
		}
		hair = spaceRun.ReplaceAllString(strings.TrimSpace(hair), " ")
		parts = append(parts, hair)
	}

	var eyes string
	if fields.EyeColor != "" {
		eyes = fields.EyeColor + " eyes"
		parts = append(parts, eyes)
	}
	if fields.ClothingDescription != "" {
		parts = append(parts, fields.ClothingDescription)
	}
	if fields.DistinctiveFeatures != "" {
		parts = append(parts, fields.DistinctiveFeatures)
	}

	full := strings.TrimSpace(strings.Join(parts, ", "))
	if len(full) > maxAppearanceLength {
		full = full[:appearanceEllipsisAt] + "..."
	}
	if full == "" {
		full = fmt.Sprintf("a %d-year-old child", statedAge)
	}
	return Appearance{
		FullDescription: full,
		Hair:            hair,
		Eyes:            eyes,
		Gender:          fields.Gender,
	}
}
