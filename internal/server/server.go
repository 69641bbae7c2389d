// Package server exposes the proposal session over HTTP with gin.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/proposal-builder/internal/common"
	"github.com/joseph-ayodele/proposal-builder/internal/extract"
	"github.com/joseph-ayodele/proposal-builder/internal/formstate"
	"github.com/joseph-ayodele/proposal-builder/internal/ingest"
	"github.com/joseph-ayodele/proposal-builder/internal/pipeline"
	"github.com/joseph-ayodele/proposal-builder/internal/proposal"
	"github.com/joseph-ayodele/proposal-builder/internal/recommend"
	"github.com/joseph-ayodele/proposal-builder/internal/scrape"
)

// Analyzer runs the document pipeline for one file.
type Analyzer interface {
	Analyze(ctx context.Context, company, path string, kind extract.Kind) common.Result[pipeline.Report]
}

// Researcher does web lookups for a company.
type Researcher interface {
	DiscoverURLs(ctx context.Context, company string, max int) []string
	LinkedInLookup(ctx context.Context, company string) string
	ScrapeWebsite(ctx context.Context, rawURL string) scrape.Site
}

type Recommender interface {
	RecommendAll(ctx context.Context, in recommend.Input) ([]recommend.Recommendation, error)
}

type ProposalWriter interface {
	Generate(ctx context.Context, snap formstate.Snapshot, wantPDF bool) common.Result[proposal.Artifact]
}

type Exporter interface {
	WriteSession(ctx context.Context, snap formstate.Snapshot) (string, error)
}

// HealthCheck reports whether one dependency is usable.
type HealthCheck func(ctx context.Context) error

// Deps are the services the handlers call. Sessions is required; a nil
// service makes its routes answer 503.
type Deps struct {
	Sessions    formstate.Backend
	Ingestor    ingest.Ingestor
	Analyzer    Analyzer
	Researcher  Researcher
	Recommender Recommender
	Proposals   ProposalWriter
	Exporter    Exporter
	Health      map[string]HealthCheck

	// WantPDF is the default for POST /proposal when the body does not say.
	WantPDF bool
	// MaxUploadBytes caps multipart uploads.
	MaxUploadBytes int64
	// UploadRoot is FILE_SAVE_PATH; analyze only reads files below
	// {UploadRoot}/{enterprise}. Empty disables the check.
	UploadRoot     string
	MaxDiscovered  int
}

type Server struct {
	deps   Deps
	locks  *sessionLocks
	logger *slog.Logger
}

func New(deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.MaxDiscovered <= 0 {
		deps.MaxDiscovered = scrape.DefaultMaxURLs
	}
	return &Server{deps: deps, locks: newSessionLocks(), logger: logger}
}

// Handler builds the gin engine with every route registered.
func (s *Server) Handler() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), AccessLog(s.logger))

	r.GET("/health", s.health)

	api := r.Group("/api/v1/sessions/:session", s.session())
	api.GET("/tabs/:tab", s.getTab)
	api.PATCH("/tabs/:tab", s.patchTab)
	api.GET("/states", s.getStates)
	api.POST("/uploads", s.upload)
	api.POST("/analyze/pain-points", s.analyze(extract.KindPainPoints))
	api.POST("/analyze/services", s.analyze(extract.KindServices))
	api.POST("/discover", s.discover)
	api.POST("/scrape", s.scrape)
	api.POST("/recommendations", s.recommendations)
	api.POST("/proposal", s.proposal)
	api.GET("/export", s.export)
	return r
}

func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	checks := gin.H{}
	code := http.StatusOK
	for name, check := range s.deps.Health {
		if err := check(ctx); err != nil {
			s.logger.Warn("health.check.failed", "dependency", name, "error", err)
			checks[name] = err.Error()
			code = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	status := "ok"
	if code != http.StatusOK {
		status = "unavailable"
	}
	c.JSON(code, gin.H{"status": status, "checks": checks})
}
