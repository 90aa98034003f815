package render

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"
	"unicode"

	"github.com/twojabajka/server/internal/providers/openai"
)

// Book is everything the renderer needs to lay out the printed book. Image
// URLs come cover-first, one per fragment after that; placeholder URLs from
// failed generations are detected and replaced with a fallback block.
type Book struct {
	Title      string
	ChildName  string
	Fragments  []string
	ImageURLs  []string
	Dedication string
	StyleID    string
	Proportion string
}

// Validate rejects books missing the fields the layout cannot do without.
func (b Book) Validate() error {
	switch {
	case strings.TrimSpace(b.Title) == "":
		return fmt.Errorf("render: book title is required")
	case strings.TrimSpace(b.ChildName) == "":
		return fmt.Errorf("render: child name is required")
	case len(b.Fragments) == 0:
		return fmt.Errorf("render: at least one story fragment is required")
	case len(b.ImageURLs) == 0:
		return fmt.Errorf("render: generated images are required")
	case strings.TrimSpace(b.StyleID) == "":
		return fmt.Errorf("render: style is required")
	case strings.TrimSpace(b.Proportion) == "":
		return fmt.Errorf("render: proportion is required")
	}
	return nil
}

const (
	titleBreakMinLength = 25
	titleBreakTimeout   = 15 * time.Second
)

// formatTitle asks the model for a single aesthetic <br> break point in long
// cover titles. Short titles, titles that already break, and any model
// failure leave the title untouched.
func (r *Renderer) formatTitle(ctx context.Context, title string) string {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" || strings.Contains(title, "<br>") || len(title) < titleBreakMinLength {
		return title
	}
	if cached, found := r.titleCache.Get(title); found {
		return cached.(string)
	}

	prompt := fmt.Sprintf(`You are an expert book cover designer and typographer. Your task is to take a book title and format it for a cover by inserting a single <br> tag for the most aesthetically pleasing and logical line break. Return ONLY the formatted title with the <br> tag. Example: 'Podróż do Krainy Zaczarowanych Instrumentów' -> 'Podróż do Krainy<br>Zaczarowanych Instrumentów'. Now, format this title: "%s"`, title)
	raw, err := r.llm.Complete(ctx, openai.ChatRequest{
		Prompt:      prompt,
		Temperature: 0.1,
		MaxTokens:   50,
		Timeout:     titleBreakTimeout,
	})
	if err != nil {
		r.logger.Warn().Err(err).Msg("render: title formatting failed, keeping original")
		return title
	}
	formatted := strings.TrimSpace(raw)
	if !strings.Contains(formatted, "<br>") {
		return title
	}
	r.titleCache.Set(title, formatted, cacheDefaultTTL)
	return formatted
}

// isPlaceholder reports whether an image URL is the failed-generation
// stand-in rather than a real illustration.
func isPlaceholder(url string) bool {
	return url == "" || strings.Contains(url, "placehold.co")
}

const missingCoverURL = "https://placehold.co/1024x1024/a9a9a9/ffffff?text=Brak%20okładki"

// buildHTML assembles the complete printable document.
func (r *Renderer) buildHTML(ctx context.Context, book Book) string {
	formattedTitle := r.formatTitle(ctx, book.Title)
	nameForCover := r.inflector.Decline(ctx, book.ChildName, CaseFor)
	nameForSubtitle := r.inflector.Decline(ctx, book.ChildName, CaseAdventures)
	nameGenitive := r.inflector.Decline(ctx, book.ChildName, CaseGenitive)

	coverURL := missingCoverURL
	if len(book.ImageURLs) > 0 && !isPlaceholder(book.ImageURLs[0]) {
		coverURL = book.ImageURLs[0]
	}

	var b strings.Builder
	plainTitle := strings.ReplaceAll(book.Title, "<br>", " ")
	fmt.Fprintf(&b, `<!DOCTYPE html><html lang="pl"><head><meta charset="UTF-8"><title>%s</title>%s</head><body>`,
		html.EscapeString(plainTitle), r.stylesheet(book.StyleID))
	b.WriteString(coverPage(formattedTitle, coverURL, nameForCover))
	b.WriteString(titlePage(plainTitle, nameForSubtitle))
	b.WriteString(ownershipPage(nameGenitive))
	if strings.TrimSpace(book.Dedication) != "" {
		b.WriteString(dedicationPage(book.Dedication))
	}
	for i, fragment := range book.Fragments {
		var imageURL string
		if i+1 < len(book.ImageURLs) && !isPlaceholder(book.ImageURLs[i+1]) {
			imageURL = book.ImageURLs[i+1]
		}
		b.WriteString(storyPage(fragment, imageURL))
	}
	b.WriteString(endingPage())
	b.WriteString(`</body></html>`)
	return b.String()
}

func coverPage(title, coverImageURL, nameForCover string) string {
	dedicationLine := ""
	if nameForCover != "" {
		dedicationLine = fmt.Sprintf(`<div class="cover-child-dedication">Specjalnie dla %s</div>`, html.EscapeString(nameForCover))
	}
	return fmt.Sprintf(`<div class="page cover" style="background-image: url('%s');"><div class="cover-text-wrapper"><div class="cover-title">%s</div>%s</div></div>`,
		html.EscapeString(coverImageURL), title, dedicationLine)
}

func titlePage(plainTitle, nameForSubtitle string) string {
	subtitle := "Niezwykła, personalizowana opowieść o przygodach " + html.EscapeString(nameForSubtitle)
	return fmt.Sprintf(`<div class="page content-page title-page"><h1>%s</h1><p class="subtitle">%s</p><div class="logo-placeholder">%s</div></div>`,
		html.EscapeString(plainTitle), subtitle, html.EscapeString("Stworzone przez Twoja Personalizowana Bajka"))
}

func ownershipPage(nameGenitive string) string {
	return fmt.Sprintf(`<div class="page content-page ownership-page"><p class="belongs-to">Ta magiczna książeczka jest pełna przygód i należy do</p><div class="child-name-line">%s</div><p class="adventure-seeker">wielkiego odkrywcy i marzyciela!</p></div>`,
		html.EscapeString(nameGenitive))
}

func dedicationPage(dedication string) string {
	cleaned := strings.Trim(strings.TrimSpace(dedication), "$")
	var paragraphs strings.Builder
	for _, line := range strings.Split(cleaned, "\n") {
		paragraphs.WriteString("<p>" + html.EscapeString(strings.TrimSpace(line)) + "</p>")
	}
	return fmt.Sprintf(`<div class="page content-page dedication-page"><div>%s</div></div>`, paragraphs.String())
}

func storyPage(fragment, imageURL string) string {
	var text strings.Builder
	for _, paragraph := range splitParagraphs(fragment) {
		text.WriteString("<p>" + html.EscapeString(paragraph) + "</p>")
	}
	if imageURL == "" {
		return fmt.Sprintf(`<div class="page content-page" style="display:flex; flex-direction:column; justify-content:center; align-items:center; text-align:center; background:#fafafa;">( Ilustracja dla tej strony nie została wygenerowana )<div class="text-content" style="margin-top:20px; width:100%%;">%s</div></div>`,
			text.String())
	}
	return fmt.Sprintf(`<div class="page story-page" style="background-image: url('%s');"><div class="text-content">%s</div></div>`,
		html.EscapeString(imageURL), text.String())
}

func endingPage() string {
	return `<div class="page content-page ending-page"><div class="the-end-text">Koniec</div><div class="thank-you-text">Dziękujemy za wspólną przygodę!</div><div class="logo-placeholder-ending">Twoja Personalizowana Bajka</div></div>`
}

// splitParagraphs breaks fragment text on blank lines and on single newlines
// that begin a new sentence (uppercase letter) or a bullet.
func splitParagraphs(text string) []string {
	lines := strings.Split(text, "\n")
	var paragraphs []string
	var current strings.Builder

	flush := func() {
		if p := strings.TrimSpace(current.String()); p != "" {
			paragraphs = append(paragraphs, p)
		}
		current.Reset()
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			flush()
			continue
		}
		if current.Len() > 0 && startsNewParagraph(trimmed) {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	flush()
	return paragraphs
}

func startsNewParagraph(line string) bool {
	runes := []rune(line)
	if len(runes) == 0 {
		return false
	}
	first := runes[0]
	return first == '•' || unicode.IsUpper(first)
}
