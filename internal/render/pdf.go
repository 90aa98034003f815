package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"

	"github.com/twojabajka/server/internal/infra"
)

const mmPerInch = 25.4

// pageSize is the physical paper size in millimeters.
type pageSize struct {
	widthMM  float64
	heightMM float64
}

var proportionPageSizes = map[string]pageSize{
	"square":    {widthMM: 210, heightMM: 210},
	"portrait":  {widthMM: 148, heightMM: 210},
	"landscape": {widthMM: 210, heightMM: 148},
}

// pageSizeFor maps a book proportion to paper size, defaulting to A5.
func pageSizeFor(proportion string) pageSize {
	if size, ok := proportionPageSizes[proportion]; ok {
		return size
	}
	return pageSize{widthMM: 148, heightMM: 210}
}

// PDFPrinter renders HTML to PDF in a headless browser.
type PDFPrinter struct {
	logger *infra.Logger
	// imageSettle is how long the printer waits after page load for remote
	// background images to arrive before printing.
	imageSettle time.Duration
}

func NewPDFPrinter(logger *infra.Logger) *PDFPrinter {
	if logger == nil {
		nop := infra.Logger(zerolog.Nop())
		logger = &nop
	}
	return &PDFPrinter{logger: logger, imageSettle: 3 * time.Second}
}

// Print renders the document to PDF bytes with zero margins and printed
// backgrounds at the paper size for the given proportion.
func (p *PDFPrinter) Print(ctx context.Context, htmlContent, proportion string) ([]byte, error) {
	tempFile, err := os.CreateTemp("", "book-*.html")
	if err != nil {
		return nil, fmt.Errorf("render: create temp html: %w", err)
	}
	tempPath := tempFile.Name()
	defer os.Remove(tempPath)
	if _, err := tempFile.WriteString(htmlContent); err != nil {
		tempFile.Close()
		return nil, fmt.Errorf("render: write temp html: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return nil, fmt.Errorf("render: close temp html: %w", err)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-backgrounding-occluded-windows", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	size := pageSizeFor(proportion)
	var pdf []byte
	err = chromedp.Run(browserCtx,
		chromedp.Navigate("file://"+filepath.ToSlash(tempPath)),
		chromedp.WaitReady("body", chromedp.ByQuery),
		// Background images load from remote hosts, give them time to land.
		chromedp.Sleep(p.imageSettle),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var printErr error
			pdf, _, printErr = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(size.widthMM/mmPerInch).
				WithPaperHeight(size.heightMM/mmPerInch).
				WithMarginTop(0).
				WithMarginBottom(0).
				WithMarginLeft(0).
				WithMarginRight(0).
				Do(ctx)
			return printErr
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("render: print to pdf: %w", err)
	}
	p.logger.Debug().
		Str("proportion", proportion).
		Int("bytes", len(pdf)).
		Msg("render: pdf printed")
	return pdf, nil
}
