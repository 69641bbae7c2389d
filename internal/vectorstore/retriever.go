package vectorstore

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/proposal-builder/internal/common"
)

// DefaultTopK is the number of chunks joined into a context.
const DefaultTopK = 4

// ContextSeparator joins retrieved chunks.
const ContextSeparator = "\n\n"

// Retriever runs similarity search over a collection. It never fails: any
// error degrades to an empty context.
type Retriever struct {
	embedder Embedder
	topK     int
	logger   *slog.Logger
}

func NewRetriever(embedder Embedder, topK int, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.Default()
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{embedder: embedder, topK: topK, logger: logger}
}

// Retrieve returns the k most similar chunks joined by ContextSeparator. k
// <= 0 uses the retriever's default.
func (r *Retriever) Retrieve(ctx context.Context, col Collection, query string, k int) common.Result[string] {
	start := time.Now()
	if k <= 0 {
		k = r.topK
	}
	if col.store == nil {
		return common.Degraded("", errors.New("collection is not open"))
	}

	var qvec []float32
	if !col.IsPlaceholder() {
		if r.embedder == nil {
			return common.Degraded("", errors.New("no embedder configured"))
		}
		vecs, err := r.embedder.Embed(ctx, []string{query})
		if err != nil || len(vecs) != 1 {
			if err == nil {
				err = errors.New("embedder returned no vector")
			}
			r.logger.Warn("retrieve.embed_failed", "collection", col.Name, "error", err)
			return common.Degraded("", err)
		}
		qvec = vecs[0]
	}

	matches, err := col.store.Search(ctx, col.Name, qvec, k)
	if err != nil {
		r.logger.Warn("retrieve.search_failed", "collection", col.Name, "backend", col.Backend, "error", err)
		return common.Degraded("", err)
	}

	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		parts = append(parts, m.Content)
	}
	text := strings.Join(parts, ContextSeparator)

	r.logger.Info("retrieve.ok",
		"collection", col.Name,
		"backend", col.Backend,
		"k", k,
		"hits", len(matches),
		"chars", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	if col.IsPlaceholder() {
		return common.Degraded(text, errors.New("placeholder collection"))
	}
	return common.OK(text)
}
