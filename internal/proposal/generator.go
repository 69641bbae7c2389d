package proposal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/proposal-builder/internal/common"
	"github.com/joseph-ayodele/proposal-builder/internal/formstate"
)

type Config struct {
	OutputDir string
	Theme     string // used when the project tab names no theme
}

// Artifact is where a generated proposal was written. PDFPath is empty when
// no PDF was produced.
type Artifact struct {
	HTMLPath string `json:"html_path"`
	PDFPath  string `json:"pdf_path,omitempty"`
	Renderer string `json:"renderer,omitempty"`
}

type Option func(*Generator)

// WithRenderers sets the PDF renderers, tried in order.
func WithRenderers(r ...Renderer) Option {
	return func(g *Generator) { g.renderers = r }
}

func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

type Generator struct {
	cfg       Config
	renderers []Renderer
	logger    *slog.Logger
	now       func() time.Time
}

func NewGenerator(cfg Config, logger *slog.Logger, opts ...Option) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "./output"
	}
	g := &Generator{cfg: cfg, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Paths returns the HTML and PDF paths for enterprise.
func (g *Generator) Paths(enterprise string) (htmlPath, pdfPath string) {
	base := filepath.Join(g.cfg.OutputDir, common.FileSafeName(enterprise)+"_proposal")
	return base + ".html", base + ".pdf"
}

// Generate writes {enterprise}_proposal.html and, when wantPDF is set, a PDF
// from the first renderer that succeeds. If every renderer fails the HTML
// file is the result and the outcome is degraded.
func (g *Generator) Generate(ctx context.Context, snap formstate.Snapshot, wantPDF bool) common.Result[Artifact] {
	rid := uuid.New().String()
	start := time.Now()

	enterprise := strings.TrimSpace(snap.Client.EnterpriseName)
	if enterprise == "" {
		return common.Failed[Artifact](common.InvalidInputErrorf("client enterprise_name is required to generate a proposal"))
	}
	log := g.logger.With("req_id", rid, "enterprise", enterprise)
	if strings.TrimSpace(snap.Project.Theme) == "" {
		snap.Project.Theme = g.cfg.Theme
	}

	html, err := RenderHTML(Build(snap, g.now()))
	if err != nil {
		return common.Failed[Artifact](common.WrapError(err, "generate proposal"))
	}
	if err := os.MkdirAll(g.cfg.OutputDir, 0o755); err != nil {
		return common.Failed[Artifact](common.StorageError("create output dir", err))
	}
	htmlPath, pdfPath := g.Paths(enterprise)
	if err := os.WriteFile(htmlPath, html, 0o644); err != nil {
		return common.Failed[Artifact](common.StorageError("write proposal html", err))
	}
	art := Artifact{HTMLPath: htmlPath}
	log.Info("proposal.html.ok", "path", htmlPath, "bytes", len(html))

	if !wantPDF {
		return common.OK(art)
	}

	var errs []error
	for _, r := range g.renderers {
		if err := r.RenderPDF(ctx, htmlPath, pdfPath); err != nil {
			log.Warn("proposal.pdf.renderer_failed", "renderer", r.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", r.Name(), err))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		art.PDFPath, art.Renderer = pdfPath, r.Name()
		log.Info("proposal.pdf.ok", "renderer", r.Name(), "path", pdfPath, "elapsed_ms", time.Since(start).Milliseconds())
		return common.OK(art)
	}
	if len(errs) == 0 {
		errs = append(errs, errors.New("no pdf renderer configured"))
	}
	_ = os.Remove(pdfPath)
	log.Warn("proposal.pdf.fallback_html", "elapsed_ms", time.Since(start).Milliseconds())
	return common.Degraded(art, errors.Join(errs...))
}
