package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/proposal-builder/internal/chunk"
	"github.com/joseph-ayodele/proposal-builder/internal/common"
)

// Collection is a handle to one document's embedded chunks.
type Collection struct {
	Name     string
	Company  string
	Document string
	Backend  string
	Count    int
	Reused   bool // rows already existed; nothing was embedded

	store Store
	owned bool // in-memory fallback, released by Close
}

// IsPlaceholder reports whether the collection is the last-resort stand-in.
func (c Collection) IsPlaceholder() bool { return c.Backend == BackendPlaceholder }

// Close releases an in-memory fallback collection. Persistent collections
// belong to the Vectorizer and are left open.
func (c Collection) Close() error {
	if !c.owned || c.store == nil {
		return nil
	}
	return c.store.Close()
}

type Config struct {
	Backend string // BackendSQLite (default) or BackendPGVector
	Dir     string // root for SQLite collections, default "chroma_store"
}

type Option func(*Vectorizer)

// WithPGVector routes the persistent tier to Postgres.
func WithPGVector(s *PGVectorStore) Option {
	return func(v *Vectorizer) { v.pg = s }
}

// Vectorizer embeds chunks into a collection, falling back from the
// persistent store to an in-memory store to a placeholder.
type Vectorizer struct {
	cfg      Config
	embedder Embedder
	pg       *PGVectorStore
	logger   *slog.Logger

	mu     sync.Mutex
	stores map[string]Store // open SQLite files by path
}

func NewVectorizer(cfg Config, embedder Embedder, logger *slog.Logger, opts ...Option) *Vectorizer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Backend == "" {
		cfg.Backend = BackendSQLite
	}
	if cfg.Dir == "" {
		cfg.Dir = "chroma_store"
	}
	v := &Vectorizer{cfg: cfg, embedder: embedder, logger: logger, stores: map[string]Store{}}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Vectorize stores chunks in the collection for company and document. An
// existing non-empty collection is reused without re-embedding. Failures on
// the persistent tier degrade to memory, then to a placeholder; only invalid
// input and cancellation fail outright.
func (v *Vectorizer) Vectorize(ctx context.Context, company, document string, chunks []chunk.Chunk) common.Result[Collection] {
	rid := uuid.New().String()
	start := time.Now()

	if strings.TrimSpace(company) == "" || strings.TrimSpace(DocumentBasename(document)) == "" {
		return common.Failed[Collection](common.InvalidInputErrorf("company and document are required"))
	}
	col := Collection{Name: CollectionName(company, document), Company: company, Document: document}
	log := v.logger.With("req_id", rid, "collection", col.Name)

	var vecs [][]float32
	cause := func() error {
		store, err := v.persistentStore(ctx, company, document)
		if err != nil {
			return fmt.Errorf("open %s store: %w", v.cfg.Backend, err)
		}
		n, err := store.Count(ctx, col.Name)
		if err != nil {
			return fmt.Errorf("count: %w", err)
		}
		col.Backend, col.store = store.Backend(), store
		if n > 0 {
			col.Count, col.Reused = n, true
			return nil
		}
		if vecs, err = v.embed(ctx, chunks); err != nil {
			return err
		}
		if err := store.Add(ctx, col.Name, records(col.Name, chunks, vecs)); err != nil {
			return fmt.Errorf("add: %w", err)
		}
		col.Count = len(chunks)
		return nil
	}()
	if cause == nil {
		log.Info("vectorize.ok",
			"backend", col.Backend,
			"chunks", col.Count,
			"reused", col.Reused,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return common.OK(col)
	}
	if ctx.Err() != nil {
		return common.Failed[Collection](ctx.Err())
	}
	log.Warn("vectorize.fallback.memory", "error", cause)

	memErr := func() error {
		var err error
		if vecs == nil {
			if vecs, err = v.embed(ctx, chunks); err != nil {
				return err
			}
		}
		store, err := OpenSQLite(ctx, MemoryPath)
		if err != nil {
			return fmt.Errorf("open memory store: %w", err)
		}
		if err := store.Add(ctx, col.Name, records(col.Name, chunks, vecs)); err != nil {
			_ = store.Close()
			return fmt.Errorf("add: %w", err)
		}
		col.Backend, col.store, col.Count, col.Reused = store.Backend(), store, len(chunks), false
		col.owned = true
		return nil
	}()
	if memErr == nil {
		log.Info("vectorize.degraded", "backend", col.Backend, "chunks", col.Count, "elapsed_ms", time.Since(start).Milliseconds())
		return common.Degraded(col, cause)
	}
	if ctx.Err() != nil {
		return common.Failed[Collection](ctx.Err())
	}
	log.Warn("vectorize.fallback.placeholder", "error", memErr)

	col.Backend = BackendPlaceholder
	col.store = placeholderStore{md: chunk.Metadata{Source: filepath.Base(document), Company: company, TotalChunks: 1, ContentType: chunk.ContentTypeText}}
	col.Count, col.Reused = 1, false
	return common.Degraded(col, errors.Join(cause, memErr))
}

// Open returns the persisted collection for company and document without
// embedding anything. It fails with ErrNotFound when the collection is empty.
func (v *Vectorizer) Open(ctx context.Context, company, document string) (Collection, error) {
	col := Collection{Name: CollectionName(company, document), Company: company, Document: document}
	store, err := v.persistentStore(ctx, company, document)
	if err != nil {
		return col, common.StorageError("open collection", err)
	}
	n, err := store.Count(ctx, col.Name)
	if err != nil {
		return col, common.StorageError("count collection", err)
	}
	if n == 0 {
		return col, common.NotFoundErrorf("collection %s is empty", col.Name)
	}
	col.Backend, col.store, col.Count, col.Reused = store.Backend(), store, n, true
	return col, nil
}

// Close releases every SQLite store (file or memory) opened by this
// vectorizer.
func (v *Vectorizer) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	var errs []error
	for path, s := range v.stores {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
		}
		delete(v.stores, path)
	}
	return errors.Join(errs...)
}

func (v *Vectorizer) persistentStore(ctx context.Context, company, document string) (Store, error) {
	if v.cfg.Backend == BackendPGVector {
		if v.pg == nil {
			return nil, errors.New("pgvector backend selected but not configured")
		}
		return v.pg, nil
	}

	path := filepath.Join(PersistDir(v.cfg.Dir, company, document), DBFile)
	v.mu.Lock()
	defer v.mu.Unlock()
	if s, ok := v.stores[path]; ok {
		return s, nil
	}
	s, err := OpenSQLite(ctx, path)
	if err != nil {
		return nil, err
	}
	v.stores[path] = s
	return s, nil
}

func (v *Vectorizer) embed(ctx context.Context, chunks []chunk.Chunk) ([][]float32, error) {
	if len(chunks) == 0 {
		return nil, errors.New("no chunks to embed")
	}
	if v.embedder == nil {
		return nil, errors.New("no embedder configured")
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vecs, err := v.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if len(vecs) != len(chunks) {
		return nil, fmt.Errorf("embed: want %d vectors, got %d", len(chunks), len(vecs))
	}
	return vecs, nil
}

func records(collection string, chunks []chunk.Chunk, vecs [][]float32) []Record {
	out := make([]Record, len(chunks))
	for i, c := range chunks {
		out[i] = Record{
			ID:        recordID(collection, c.Metadata.ChunkIndex),
			Content:   c.Content,
			Metadata:  c.Metadata,
			Embedding: vecs[i],
		}
	}
	return out
}
