package proposal

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/joseph-ayodele/proposal-builder/internal/common"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var proposalTemplate = template.Must(template.ParseFS(templateFS, "templates/proposal.html.tmpl"))

// RenderHTML executes the proposal template.
func RenderHTML(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	if err := proposalTemplate.Execute(&buf, doc); err != nil {
		return nil, fmt.Errorf("render proposal: %w", err)
	}
	return buf.Bytes(), nil
}

// Renderer converts a rendered HTML file to PDF.
type Renderer interface {
	Name() string
	RenderPDF(ctx context.Context, htmlPath, pdfPath string) error
}

// ChromeRenderer prints through a headless Chrome driven by chromedp.
type ChromeRenderer struct {
	Timeout time.Duration
}

func (ChromeRenderer) Name() string { return "chromedp" }

func (r ChromeRenderer) RenderPDF(ctx context.Context, htmlPath, pdfPath string) error {
	abs, err := filepath.Abs(htmlPath)
	if err != nil {
		return err
	}
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	var pdf []byte
	fileURL := (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
	err = chromedp.Run(browserCtx,
		chromedp.Navigate(fileURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPreferCSSPageSize(true).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return fmt.Errorf("chromedp print: %w", err)
	}
	return os.WriteFile(pdfPath, pdf, 0o644)
}

// WkhtmltopdfRenderer shells out to wkhtmltopdf.
type WkhtmltopdfRenderer struct {
	Bin    string
	Runner common.Runner
}

func (WkhtmltopdfRenderer) Name() string { return "wkhtmltopdf" }

func (r WkhtmltopdfRenderer) RenderPDF(ctx context.Context, htmlPath, pdfPath string) error {
	bin := r.Bin
	if bin == "" {
		bin = "wkhtmltopdf"
	}
	runner := r.Runner
	if runner == nil {
		runner = common.ExecRunner{}
	}
	_, stderr, err := runner.Run(ctx, bin, "--quiet", "--enable-local-file-access", "--print-media-type", htmlPath, pdfPath)
	if err != nil {
		return fmt.Errorf("wkhtmltopdf: %w: %s", err, common.Truncate(string(stderr), 300))
	}
	if fi, err := os.Stat(pdfPath); err != nil || fi.Size() == 0 {
		return errors.New("wkhtmltopdf produced no output")
	}
	return nil
}
