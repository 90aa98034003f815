package book

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/twojabajka/server/internal/infra"
	"github.com/twojabajka/server/internal/providers/openai"
)

const (
	storyTimeout     = 45 * time.Second
	storyTemperature = 0.85
	maxFragments     = 5
)

// ErrNoFragments means the model output contained no usable story fragments
// after both parsing strategies. The submission cannot proceed without text.
var ErrNoFragments = errors.New("book: no story fragments could be parsed")

// Completer is the minimal text-generation contract the book builders need.
type Completer interface {
	Complete(ctx context.Context, req openai.ChatRequest) (string, error)
}

// StoryWriter produces the Polish story and parses it into titled fragments.
type StoryWriter struct {
	llm    Completer
	logger *infra.Logger
}

func NewStoryWriter(llm Completer, logger *infra.Logger) *StoryWriter {
	if logger == nil {
		nop := infra.Logger(zerolog.Nop())
		logger = &nop
	}
	return &StoryWriter{llm: llm, logger: logger}
}

var (
	titleLine      = regexp.MustCompile(`(?im)Tytuł bajki:\s*["“]([^"”]+)["”]`)
	fragmentMarker = regexp.MustCompile(`\*\*(Fragment \d+: [^*]+)\*\*`)
	// coarseMarker also matches markers without a fragment title, used by the
	// fallback split.
	coarseMarker   = regexp.MustCompile(`\*\*Fragment \d+:[^*]*\*\*`)
	titleRemainder = regexp.MustCompile(`(?i)Tytuł bajki:.*`)
)

// Write generates the story and returns its title and up to five fragments.
func (w *StoryWriter) Write(ctx context.Context, childName string, age int, theme string) (StoryDocument, error) {
	raw, err := w.llm.Complete(ctx, openai.ChatRequest{
		Prompt:      storyPrompt(childName, age, theme),
		Temperature: storyTemperature,
		Timeout:     storyTimeout,
	})
	if err != nil {
		return StoryDocument{}, fmt.Errorf("book: story generation: %w", err)
	}
	return w.parse(raw, childName)
}

func (w *StoryWriter) parse(raw, childName string) (StoryDocument, error) {
	doc := StoryDocument{Title: "Przygody " + childName}
	if m := titleLine.FindStringSubmatch(raw); m != nil {
		doc.Title = strings.TrimSpace(m[1])
	}

	doc.Fragments = parseFragmentsStrict(raw)
	if len(doc.Fragments) == 0 && strings.TrimSpace(raw) != "" {
		w.logger.Warn().Msg("book: strict fragment parsing found nothing, trying coarse split")
		doc.Fragments = parseFragmentsCoarse(raw)
	}
	if len(doc.Fragments) == 0 {
		return StoryDocument{}, ErrNoFragments
	}
	if len(doc.Fragments) < maxFragments {
		w.logger.Warn().
			Int("fragments", len(doc.Fragments)).
			Str("head", headOf(raw, 100)).
			Msg("book: story yielded fewer fragments than expected")
	}
	return doc, nil
}

// parseFragmentsStrict cuts the text between consecutive fragment markers,
// stopping at the title line or end of text for the last one.
func parseFragmentsStrict(raw string) []string {
	markers := fragmentMarker.FindAllStringIndex(raw, -1)
	var fragments []string
	for i, marker := range markers {
		start := marker[1]
		end := len(raw)
		if i+1 < len(markers) {
			end = markers[i+1][0]
		} else if loc := titleRemainder.FindStringIndex(raw[start:]); loc != nil {
			end = start + loc[0]
		}
		if body := strings.TrimSpace(raw[start:end]); body != "" {
			fragments = append(fragments, body)
		}
		if len(fragments) == maxFragments {
			break
		}
	}
	return fragments
}

// parseFragmentsCoarse splits on the marker pattern without pairing markers
// to bodies, used only when the strict pass yields nothing.
func parseFragmentsCoarse(raw string) []string {
	var fragments []string
	for _, part := range coarseMarker.Split(raw, -1) {
		part = titleRemainder.ReplaceAllString(part, "")
		if part = strings.TrimSpace(part); part != "" {
			fragments = append(fragments, part)
		}
		if len(fragments) == maxFragments {
			break
		}
	}
	return fragments
}

func storyPrompt(childName string, age int, theme string) string {
	return fmt.Sprintf(`You are a children's story writer. Write a captivating children's story in POLISH for a %d-year-old child named %s. The theme of the story is: "%s". The story must be divided into exactly 5 parts (fragments). Each part must start with the exact format: "**Fragment X: [A catchy Polish title for the fragment]**" (where X is the fragment number from 1 to 5). The entire story should be engaging and around 400-600 words long. At the very end of the entire story, after all fragments, add a line in the exact format: Tytuł bajki: "[The Polish title for the whole story]" Example of a fragment start: **Fragment 1: Tajemnicza Ścieżka** %s, który/która miał/a %d lat, pewnego dnia bawił/a się w ogrodzie... Ensure the story is age-appropriate, imaginative, and written entirely in POLISH.`,
		age, childName, theme, childName, age)
}

func headOf(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
