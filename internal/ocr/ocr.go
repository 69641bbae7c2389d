package ocr

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/proposal-builder/constants"
	"github.com/joseph-ayodele/proposal-builder/internal/common"
)

// ErrNoText is returned when a document produced no usable text.
var ErrNoText = errors.New("no usable text extracted")

type Config struct {
	Pdftoppm string // binary name or absolute path; if empty -> "pdftoppm"
	DPI      int    // rasterization DPI for image-only PDFs, default 150
	MaxPages int    // 0 = no limit
	TempDir  string // parent dir for rendered pages; empty -> os.TempDir()
}

// Document is an ingested file on disk.
type Document struct {
	Path    string
	Name    string
	Ext     string
	Size    int64
	SHA256  string
	ModTime time.Time
	Kind    constants.DocumentKind
}

type ExtractionResult struct {
	Text      string
	Pages     int
	Kind      constants.DocumentKind
	Method    string // "pdf-text" | "pdf-caption" | "image-caption" | "docx" | "plain-text"
	Duration  time.Duration
	Warnings  []string
	Captioned int // pages or images successfully captioned
}

// Captioner describes an image in text. The LLM vision client implements it.
type Captioner interface {
	Caption(ctx context.Context, imagePath string) (string, error)
}

type Option func(*Extractor)

// WithRunner replaces the command runner used for pdftoppm.
func WithRunner(r common.Runner) Option {
	return func(e *Extractor) { e.runner = r }
}

// WithCaptioner sets the captioner for images and image-only PDFs.
func WithCaptioner(c Captioner) Option {
	return func(e *Extractor) { e.captioner = c }
}

type Extractor struct {
	cfg       Config
	runner    common.Runner
	captioner Captioner
	logger    *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 150
	}
	e := &Extractor{cfg: cfg, runner: common.ExecRunner{Logger: logger}, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract classifies the document at path and converts it to text. A
// document that yields no text returns the partial result and ErrNoText.
func (e *Extractor) Extract(ctx context.Context, company, path string) (ExtractionResult, error) {
	start := time.Now()
	kind := Classify(ctx, path)
	e.logger.Info("ocr.extract.start", "company", company, "file", filepath.Base(path), "kind", kind)

	var (
		res ExtractionResult
		err error
	)
	switch kind {
	case constants.KindPDFWithText:
		res, err = e.extractPDFText(ctx, path)
	case constants.KindPDFWithImages:
		res, err = e.extractPDFImages(ctx, path)
	case constants.KindSingleImage:
		res, err = e.extractImage(ctx, path)
	case constants.KindWordDocument:
		res, err = extractDocx(path)
	case constants.KindPlainText:
		res, err = extractPlainText(path)
	default:
		err = fmt.Errorf("%w: document kind %q", common.ErrUnsupported, kind)
	}
	res.Kind = kind
	res.Text = Normalize(res.Text)
	res.Duration = time.Since(start)
	if err == nil && strings.TrimSpace(res.Text) == "" {
		err = ErrNoText
	}

	if err != nil {
		e.logger.Warn("ocr.extract.error",
			"company", company,
			"file", filepath.Base(path),
			"kind", kind,
			"warnings", len(res.Warnings),
			"error", err,
			"elapsed_ms", res.Duration.Milliseconds(),
		)
		return res, err
	}
	e.logger.Info("ocr.extract.ok",
		"company", company,
		"file", filepath.Base(path),
		"method", res.Method,
		"pages", res.Pages,
		"chars", len(res.Text),
		"warnings", len(res.Warnings),
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// PageHeader separates pages in extracted and captioned text.
func PageHeader(page int) string {
	return fmt.Sprintf("--- PAGE %d ---", page)
}
