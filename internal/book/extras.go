package book

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/twojabajka/server/internal/providers/openai"
)

// ThemeSuggester proposes a short Polish story theme for the submission form.
type ThemeSuggester struct {
	llm Completer
}

func NewThemeSuggester(llm Completer) *ThemeSuggester {
	return &ThemeSuggester{llm: llm}
}

const themePrompt = `You are a creative assistant. Generate a short, catchy, and imaginative children's story theme or title in POLISH.
The theme should be suitable for a personalized children's book.
Return ONLY the theme/title text itself, without any prefixes, labels, or quotation marks.
The theme should be a maximum of 10-15 words.
Examples: "Przygoda zaginionej skarpetki", "Mały robot, który chciał zobaczyć gwiazdy", "Tajemnica Leśnej Polany".

Generated POLISH theme/title:`

// Suggest returns one random theme with any quotation marks stripped.
func (s *ThemeSuggester) Suggest(ctx context.Context) (string, error) {
	raw, err := s.llm.Complete(ctx, openai.ChatRequest{
		Prompt:      themePrompt,
		Temperature: 0.8,
		MaxTokens:   50,
	})
	if err != nil {
		return "", fmt.Errorf("book: theme suggestion: %w", err)
	}
	theme := strings.TrimSpace(strings.NewReplacer(`"`, "", "“", "", "„", "", "”", "").Replace(raw))
	if theme == "" {
		return "", errors.New("book: model returned no theme")
	}
	return theme, nil
}

// DedicationWriter drafts a warm Polish dedication the user can finish with
// their own signature.
type DedicationWriter struct {
	llm Completer
}

func NewDedicationWriter(llm Completer) *DedicationWriter {
	return &DedicationWriter{llm: llm}
}

// Write generates a 3-5 sentence dedication for the named child.
func (w *DedicationWriter) Write(ctx context.Context, childName string, age int, theme string) (string, error) {
	if strings.TrimSpace(childName) == "" {
		return "", &ValidationError{Field: "childName", Reason: "is required"}
	}
	if age <= 0 {
		return "", &ValidationError{Field: "age", Reason: "is required"}
	}
	if strings.TrimSpace(theme) == "" {
		theme = "an amazing adventure"
	}

	raw, err := w.llm.Complete(ctx, openai.ChatRequest{
		Prompt:      dedicationPrompt(childName, age, theme),
		Temperature: 0.7,
		MaxTokens:   150,
	})
	if err != nil {
		return "", fmt.Errorf("book: dedication generation: %w", err)
	}
	dedication := strings.TrimSpace(raw)
	if strings.HasPrefix(dedication, `"`) && strings.HasSuffix(dedication, `"`) && len(dedication) >= 2 {
		dedication = dedication[1 : len(dedication)-1]
	}
	if dedication == "" {
		return "", errors.New("book: model returned no dedication")
	}
	return dedication, nil
}

func dedicationPrompt(childName string, age int, theme string) string {
	return fmt.Sprintf(`You are a heartfelt writer. Generate a short, warm, and age-appropriate book dedication in POLISH for a child named %s (%d years old).
The book's theme is "%s".
The dedication should be touching and personal.
End the dedication with a placeholder like "[Miejsce na Twój Podpis/Relację]" or "[Z miłością, Twoja/Twój ...]", so the user can complete it.
The dedication should be around 3-5 sentences long.
Return ONLY the dedication text itself, without any prefixes or labels.

Example structure:
"Dla kochanego/kochanej [Imię Dziecka],
Niech ta bajeczka otworzy przed Tobą drzwi do świata pełnego magii i przygód. Pamiętaj, że jesteś wyjątkowy/a i możesz osiągnąć wszystko, o czym marzysz! Zawsze będziemy Cię wspierać na każdej drodze, którą wybierzesz.
[Miejsce na Twój Podpis/Relację]"

Generated POLISH dedication:`, childName, age, theme)
}
