// Package pipeline turns one client or seller document into extracted
// insights: ingest, text, chunks, collection, retrieved context, extraction.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/proposal-builder/internal/chunk"
	"github.com/joseph-ayodele/proposal-builder/internal/common"
	"github.com/joseph-ayodele/proposal-builder/internal/extract"
	"github.com/joseph-ayodele/proposal-builder/internal/ingest"
	"github.com/joseph-ayodele/proposal-builder/internal/llm"
	"github.com/joseph-ayodele/proposal-builder/internal/ocr"
	"github.com/joseph-ayodele/proposal-builder/internal/vectorstore"
)

// TextExtractor converts a document on disk to text.
type TextExtractor interface {
	Extract(ctx context.Context, company, path string) (ocr.ExtractionResult, error)
}

// Report is what one Analyze run produced.
type Report struct {
	Document   ocr.Document
	Kind       extract.Kind
	Method     string
	Pages      int
	Chunks     []chunk.Chunk
	Collection vectorstore.Collection
	Context    string
	Extraction llm.Extraction
	Warnings   []string
}

// Processor coordinates the stages for a single document.
type Processor struct {
	Logger     *slog.Logger
	Ingestor   ingest.Ingestor
	Text       TextExtractor
	Chunker    *chunk.Chunker
	Vectorizer *vectorstore.Vectorizer
	Retriever  *vectorstore.Retriever
	Extractor  *extract.Extractor
}

func NewProcessor(
	logger *slog.Logger,
	ingestor ingest.Ingestor,
	text TextExtractor,
	chunker *chunk.Chunker,
	vectorizer *vectorstore.Vectorizer,
	retriever *vectorstore.Retriever,
	extractor *extract.Extractor,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		Logger:     logger,
		Ingestor:   ingestor,
		Text:       text,
		Chunker:    chunker,
		Vectorizer: vectorizer,
		Retriever:  retriever,
		Extractor:  extractor,
	}
}

// Analyze runs every stage for the document at path on behalf of company.
// A stage that falls back marks the whole result degraded and the run
// continues; invalid input and cancellation fail.
func (p *Processor) Analyze(ctx context.Context, company, path string, kind extract.Kind) common.Result[Report] {
	rid := common.RequestIDFromContext(ctx)
	if rid == "" {
		rid = uuid.New().String()
	}
	start := time.Now()
	log := p.Logger.With("req_id", rid, "session", common.SessionIDFromContext(ctx), "company", company, "kind", string(kind))

	doc, err := p.Ingestor.IngestPath(ctx, path)
	if err != nil {
		log.Error("processor.ingest.failed", "path", path, "error", err)
		return common.Failed[Report](err)
	}
	rep := Report{Document: doc, Kind: kind}
	var causes []error

	// text
	text, err := p.Text.Extract(ctx, company, doc.Path)
	rep.Method, rep.Pages, rep.Warnings = text.Method, text.Pages, text.Warnings
	if err != nil {
		if ctx.Err() != nil {
			return common.Failed[Report](ctx.Err())
		}
		log.Warn("processor.text.placeholder", "file", doc.Name, "error", err)
		causes = append(causes, fmt.Errorf("extract text: %w", err))
		text.Text = vectorstore.PlaceholderText
	}

	// chunks
	rep.Chunks = p.Chunker.Split(text.Text, chunk.Source{
		Name:         doc.Name,
		Company:      company,
		Kind:         doc.Kind,
		FileHash:     doc.SHA256,
		FileSize:     doc.Size,
		Extension:    doc.Ext,
		FileModified: doc.ModTime,
	})

	// collection
	vr := p.Vectorizer.Vectorize(ctx, company, doc.Name, rep.Chunks)
	if vr.IsFailed() {
		return common.Failed[Report](vr.Err)
	}
	rep.Collection = vr.Value
	if vr.IsDegraded() {
		causes = append(causes, fmt.Errorf("vectorize: %w", vr.Cause))
	}

	// context
	rr := p.Retriever.Retrieve(ctx, rep.Collection, kind.Query(), 0)
	if err := rep.Collection.Close(); err != nil {
		log.Warn("processor.collection.close_failed", "collection", rep.Collection.Name, "error", err)
	}
	rep.Context = rr.Value
	if rr.IsDegraded() {
		causes = append(causes, fmt.Errorf("retrieve: %w", rr.Cause))
	}

	// extraction
	er := p.Extractor.Extract(ctx, kind, company, rep.Context)
	if er.IsFailed() {
		return common.Failed[Report](er.Err)
	}
	rep.Extraction = er.Value
	if er.IsDegraded() {
		causes = append(causes, fmt.Errorf("extract: %w", er.Cause))
	}

	log.Info("processor.analyze.done",
		"file", doc.Name,
		"method", rep.Method,
		"chunks", len(rep.Chunks),
		"collection", rep.Collection.Name,
		"backend", rep.Collection.Backend,
		"keys", len(rep.Extraction),
		"degraded", len(causes) > 0,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	if len(causes) > 0 {
		return common.Degraded(rep, errors.Join(causes...))
	}
	return common.OK(rep)
}
