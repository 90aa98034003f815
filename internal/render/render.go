// Package render lays out the generated book as printable HTML and turns it
// into the final PDF.
package render

import (
	"context"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/twojabajka/server/internal/infra"
)

const cacheDefaultTTL = 24 * time.Hour

// PDFBackend produces PDF bytes from an HTML document.
type PDFBackend interface {
	Print(ctx context.Context, htmlContent, proportion string) ([]byte, error)
}

// Renderer assembles book HTML and prints it.
type Renderer struct {
	llm        Completer
	inflector  *Inflector
	printer    PDFBackend
	fontsDir   string
	cssCache   *cache.Cache
	titleCache *cache.Cache
	logger     *infra.Logger
}

// RendererOptions configures a Renderer. Printer defaults to the chromedp
// backend; FontsDir defaults to ./assets/fonts.
type RendererOptions struct {
	LLM      Completer
	Printer  PDFBackend
	FontsDir string
	Logger   *infra.Logger
}

func NewRenderer(opts RendererOptions) *Renderer {
	logger := opts.Logger
	if logger == nil {
		nop := infra.Logger(zerolog.Nop())
		logger = &nop
	}
	printer := opts.Printer
	if printer == nil {
		printer = NewPDFPrinter(logger)
	}
	fontsDir := opts.FontsDir
	if fontsDir == "" {
		fontsDir = "./assets/fonts"
	}
	return &Renderer{
		llm:        opts.LLM,
		inflector:  NewInflector(opts.LLM, logger),
		printer:    printer,
		fontsDir:   fontsDir,
		cssCache:   cache.New(cacheDefaultTTL, 2*cacheDefaultTTL),
		titleCache: cache.New(cacheDefaultTTL, 2*cacheDefaultTTL),
		logger:     logger,
	}
}

// RenderHTML produces the printable HTML document for the book.
func (r *Renderer) RenderHTML(ctx context.Context, book Book) (string, error) {
	if err := book.Validate(); err != nil {
		return "", err
	}
	return r.buildHTML(ctx, book), nil
}

// RenderPDF produces the final PDF and its download filename.
func (r *Renderer) RenderPDF(ctx context.Context, book Book) ([]byte, string, error) {
	htmlContent, err := r.RenderHTML(ctx, book)
	if err != nil {
		return nil, "", err
	}
	pdf, err := r.printer.Print(ctx, htmlContent, book.Proportion)
	if err != nil {
		return nil, "", err
	}
	return pdf, Filename(book.Title), nil
}

var nonWordChars = regexp.MustCompile(`[^\w\s-]`)
var whitespaceRun = regexp.MustCompile(`\s+`)

// Filename slugifies the book title into a safe download name: diacritics
// stripped, punctuation removed, spaces to underscores, lowercased.
func Filename(title string) string {
	if strings.TrimSpace(title) == "" {
		title = "moja-ksiazeczka"
	}
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	ascii, _, err := transform.String(stripMarks, title)
	if err != nil {
		ascii = title
	}
	slug := nonWordChars.ReplaceAllString(ascii, "")
	slug = whitespaceRun.ReplaceAllString(slug, "_")
	return strings.ToLower(slug) + ".pdf"
}
