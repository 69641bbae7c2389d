// Package app wires the services both binaries share from a loaded Config.
package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/joseph-ayodele/proposal-builder/internal/chunk"
	"github.com/joseph-ayodele/proposal-builder/internal/common"
	"github.com/joseph-ayodele/proposal-builder/internal/export"
	"github.com/joseph-ayodele/proposal-builder/internal/extract"
	"github.com/joseph-ayodele/proposal-builder/internal/formstate"
	"github.com/joseph-ayodele/proposal-builder/internal/ingest"
	"github.com/joseph-ayodele/proposal-builder/internal/llm/openai"
	"github.com/joseph-ayodele/proposal-builder/internal/ocr"
	"github.com/joseph-ayodele/proposal-builder/internal/pipeline"
	"github.com/joseph-ayodele/proposal-builder/internal/proposal"
	"github.com/joseph-ayodele/proposal-builder/internal/recommend"
	"github.com/joseph-ayodele/proposal-builder/internal/repository"
	"github.com/joseph-ayodele/proposal-builder/internal/scrape"
	"github.com/joseph-ayodele/proposal-builder/internal/server"
	"github.com/joseph-ayodele/proposal-builder/internal/vectorstore"
)

type App struct {
	Config *common.Config
	Logger *slog.Logger

	LLM         *openai.Client
	Ingestor    *ingest.FSIngestor
	OCR         *ocr.Extractor
	Chunker     *chunk.Chunker
	Vectorizer  *vectorstore.Vectorizer
	Retriever   *vectorstore.Retriever
	Extractor   *extract.Extractor
	Processor   *pipeline.Processor
	Recommender *recommend.Service
	Scraper     *scrape.Scraper
	Proposals   *proposal.Generator
	Exporter    *export.Service
	Sessions    formstate.Backend

	pool  *pgxpool.Pool
	redis *formstate.RedisBackend
}

// New builds every service. Optional backends that cannot be reached
// (Redis, Postgres, the tokenizer) are logged and replaced by their local
// fallbacks; only invalid configuration is an error.
func New(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Logger: logger}

	a.LLM = openai.NewClient(openai.Config{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		Model:          cfg.LLM.Model,
		VisionModel:    cfg.LLM.VisionModel,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
		Temperature:    cfg.LLM.Temperature,
		Timeout:        cfg.LLM.Timeout,
		RPM:            cfg.LLM.RPM,
	}, logger)

	a.Ingestor = ingest.NewFSIngestor(cfg.Storage.FileSavePath, logger)
	a.OCR = ocr.NewExtractor(ocr.Config{
		Pdftoppm: cfg.OCR.Pdftoppm,
		DPI:      cfg.OCR.DPI,
		MaxPages: cfg.OCR.MaxPages,
	}, logger, ocr.WithCaptioner(a.LLM))

	var chunkOpts []chunk.Option
	if tc, err := chunk.NewTiktokenCounter(); err != nil {
		logger.Warn("app.tokenizer.unavailable", "error", err)
	} else {
		chunkOpts = append(chunkOpts, chunk.WithTokenCounter(tc))
	}
	chunker, err := chunk.NewChunker(chunk.Config{}, logger, chunkOpts...)
	if err != nil {
		return nil, err
	}
	a.Chunker = chunker

	var vecOpts []vectorstore.Option
	if cfg.Vector.Backend == vectorstore.BackendPGVector {
		if store := a.openPGVector(ctx); store != nil {
			vecOpts = append(vecOpts, vectorstore.WithPGVector(store))
		}
	}
	a.Vectorizer = vectorstore.NewVectorizer(vectorstore.Config{Backend: cfg.Vector.Backend, Dir: cfg.Vector.Dir}, a.LLM, logger, vecOpts...)
	a.Retriever = vectorstore.NewRetriever(a.LLM, cfg.Vector.TopK, logger)
	a.Extractor = extract.NewExtractor(a.LLM, logger)
	a.Processor = pipeline.NewProcessor(logger, a.Ingestor, a.OCR, a.Chunker, a.Vectorizer, a.Retriever, a.Extractor)

	a.Recommender = recommend.NewService(a.LLM, logger,
		recommend.WithTaskTimeout(cfg.Recommend.TaskTimeout),
		recommend.WithConcurrency(cfg.Recommend.Concurrency),
	)
	a.Scraper = scrape.NewScraper(scrape.Config{
		Timeout:   cfg.Scrape.Timeout,
		SearchURL: cfg.Scrape.SearchURL,
		MaxPages:  cfg.Scrape.MaxPages,
	}, logger)

	var renderers []proposal.Renderer
	if cfg.Proposal.ChromePDF {
		renderers = append(renderers, proposal.ChromeRenderer{Timeout: time.Minute})
	}
	if cfg.Proposal.Wkhtmltopdf != "" {
		renderers = append(renderers, proposal.WkhtmltopdfRenderer{Bin: cfg.Proposal.Wkhtmltopdf, Runner: common.ExecRunner{Logger: logger}})
	}
	a.Proposals = proposal.NewGenerator(proposal.Config{OutputDir: cfg.Storage.OutputPath, Theme: cfg.Proposal.Theme}, logger,
		proposal.WithRenderers(renderers...))
	a.Exporter = export.NewService(cfg.Storage.OutputPath, logger)

	a.Sessions = a.openSessions(ctx)
	logger.Info("app.ready",
		"model", a.LLM.Model(),
		"embedding_model", a.LLM.EmbeddingModel(),
		"vector_backend", cfg.Vector.Backend,
		"pdf_renderers", len(renderers),
	)
	return a, nil
}

func (a *App) openPGVector(ctx context.Context) *vectorstore.PGVectorStore {
	pool, err := repository.Open(ctx, repository.ConfigFrom(a.Config.Vector), a.Logger)
	if err != nil {
		a.Logger.Warn("app.pgvector.unavailable", "error", err)
		return nil
	}
	store, err := vectorstore.NewPGVectorStore(ctx, pool)
	if err != nil {
		a.Logger.Warn("app.pgvector.schema_failed", "error", err)
		repository.Close(pool, a.Logger)
		return nil
	}
	a.pool = pool
	return store
}

func (a *App) openSessions(ctx context.Context) formstate.Backend {
	if a.Config.Session.RedisURL == "" {
		return formstate.NewMemoryBackend()
	}
	rdb, err := formstate.NewRedisClient(ctx, a.Config.Session.RedisURL)
	if err != nil {
		a.Logger.Warn("app.sessions.memory_fallback", "error", err)
		return formstate.NewMemoryBackend()
	}
	a.redis = formstate.NewRedisBackend(rdb, a.Config.Session.TTL)
	return a.redis
}

// Health lists the checks GET /health runs.
func (a *App) Health() map[string]server.HealthCheck {
	checks := map[string]server.HealthCheck{}
	if a.redis != nil {
		checks["sessions"] = a.redis.Ping
	}
	if a.pool != nil {
		checks["vector_db"] = func(ctx context.Context) error {
			return repository.HealthCheck(ctx, a.pool, 2*time.Second, a.Logger)
		}
	}
	return checks
}

// ServerDeps are the HTTP handler dependencies.
func (a *App) ServerDeps() server.Deps {
	return server.Deps{
		Sessions:      a.Sessions,
		Ingestor:      a.Ingestor,
		Analyzer:      a.Processor,
		Researcher:    a.Scraper,
		Recommender:   a.Recommender,
		Proposals:     a.Proposals,
		Exporter:      a.Exporter,
		Health:        a.Health(),
		WantPDF:       a.Config.Proposal.ChromePDF || a.Config.Proposal.Wkhtmltopdf != "",
		MaxDiscovered: scrape.DefaultMaxURLs,
		UploadRoot:    a.Config.Storage.FileSavePath,
	}
}

func (a *App) Close() error {
	var errs []error
	if a.Vectorizer != nil {
		errs = append(errs, a.Vectorizer.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.pool != nil {
		repository.Close(a.pool, a.Logger)
	}
	return errors.Join(errs...)
}
