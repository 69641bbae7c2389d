package vectorstore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"unicode"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/proposal-builder/internal/chunk"
	"github.com/joseph-ayodele/proposal-builder/internal/common"
)

// letterEmbedder embeds text as its a-z letter histogram, so texts sharing
// words rank close together.
type letterEmbedder struct {
	calls atomic.Int32
	err   error
}

func (e *letterEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	e.calls.Add(1)
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v := make([]float32, 27)
		v[26] = 0.01
		for _, r := range strings.ToLower(t) {
			if r < unicode.MaxASCII && r >= 'a' && r <= 'z' {
				v[r-'a']++
			}
		}
		out[i] = v
	}
	return out, nil
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func testChunks(contents ...string) []chunk.Chunk {
	out := make([]chunk.Chunk, len(contents))
	for i, c := range contents {
		out[i] = chunk.Chunk{Content: c, Metadata: chunk.Metadata{Source: "rfi.pdf", Company: "Acme Corp", ChunkIndex: i, TotalChunks: len(contents)}}
	}
	return out
}

var corpus = []string{
	"zzzz zzz zz",
	"billing system replacement",
	"yyyy yyy",
	"xxxx xx x",
	"qqq qq",
	"billing invoices billing",
}

func TestCollectionName(t *testing.T) {
	tests := []struct {
		company, document, want string
	}{
		{"Acme Corp", "rfi.pdf", "acme_corp_rfi"},
		{"ACME-Corp", "/uploads/Acme Corp/RFI.PDF", "acme_corp_rfi"},
		{"acme_corp", "rfi", "acme_corp_rfi"},
		{"Beta Ltd", "Q3 Capabilities-Deck.docx", "beta_ltd_q3_capabilities_deck"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := CollectionName(tt.company, tt.document)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, CollectionName(tt.company, tt.document))
		})
	}
	assert.Equal(t, normalize("Acme Corp"), normalize(normalize("Acme Corp")))
}

func TestPersistDir(t *testing.T) {
	assert.Equal(t, filepath.Join("chroma_store", "acme_corp", "rfi"), PersistDir("chroma_store", "Acme Corp", "rfi.pdf"))
	assert.Equal(t, filepath.Join("root", "_", "rfi"), PersistDir("root", "..", "rfi.pdf"))
	assert.Equal(t, filepath.Join("root", "a_b", "rfi"), PersistDir("root", "a/b", "../rfi.pdf"))
}

func TestCosine(t *testing.T) {
	s, ok := Cosine([]float32{1, 0}, []float32{1, 0})
	assert.True(t, ok)
	assert.InDelta(t, 1.0, s, 1e-9)
	_, ok = Cosine([]float32{1}, []float32{1, 2})
	assert.False(t, ok)
	_, ok = Cosine([]float32{0, 0}, []float32{1, 2})
	assert.False(t, ok)
}

func TestVectorizeAndRetrieveSQLite(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	emb := &letterEmbedder{}
	v := NewVectorizer(Config{Dir: dir}, emb, quiet())
	t.Cleanup(func() { _ = v.Close() })

	res := v.Vectorize(ctx, "Acme Corp", "rfi.pdf", testChunks(corpus...))
	require.True(t, res.IsOK(), res.Message("vectorize"))
	col := res.Value
	assert.Equal(t, "acme_corp_rfi", col.Name)
	assert.Equal(t, BackendSQLite, col.Backend)
	assert.Equal(t, len(corpus), col.Count)
	assert.FileExists(t, filepath.Join(dir, "acme_corp", "rfi", DBFile))

	r := NewRetriever(emb, 0, quiet())
	got := r.Retrieve(ctx, col, "billing", 2)
	require.True(t, got.IsOK())
	parts := strings.Split(got.Value, ContextSeparator)
	require.Len(t, parts, 2)
	for _, p := range parts {
		assert.Contains(t, p, "billing")
	}

	def := r.Retrieve(ctx, col, "billing", 0)
	assert.Len(t, strings.Split(def.Value, ContextSeparator), DefaultTopK)

	// second run reuses the stored rows without embedding again
	before := emb.calls.Load()
	again := v.Vectorize(ctx, "acme corp", "RFI.pdf", testChunks(corpus...))
	require.True(t, again.IsOK())
	assert.True(t, again.Value.Reused)
	assert.Equal(t, before, emb.calls.Load())

	opened, err := v.Open(ctx, "Acme Corp", "rfi.pdf")
	require.NoError(t, err)
	assert.Equal(t, len(corpus), opened.Count)
}

func TestVectorizeFallsBackToMemory(t *testing.T) {
	ctx := context.Background()
	notADir := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(notADir, []byte("x"), 0o644))

	emb := &letterEmbedder{}
	v := NewVectorizer(Config{Dir: notADir}, emb, quiet())
	t.Cleanup(func() { _ = v.Close() })

	res := v.Vectorize(ctx, "Acme Corp", "rfi.pdf", testChunks(corpus...))
	require.True(t, res.IsDegraded())
	assert.Error(t, res.Cause)
	assert.Equal(t, BackendMemory, res.Value.Backend)

	got := NewRetriever(emb, 1, quiet()).Retrieve(ctx, res.Value, "billing invoices", 0)
	require.True(t, got.IsOK())
	assert.Equal(t, "billing invoices billing", got.Value)

	// the memory store lives with the collection, not the vectorizer
	v.mu.Lock()
	held := len(v.stores)
	v.mu.Unlock()
	assert.Zero(t, held)
	require.NoError(t, res.Value.Close())
	closed := NewRetriever(emb, 1, quiet()).Retrieve(ctx, res.Value, "billing invoices", 0)
	assert.False(t, closed.IsOK())
}

func TestVectorizeFallsBackToPlaceholder(t *testing.T) {
	ctx := context.Background()
	emb := &letterEmbedder{err: errors.New("embedding service down")}
	v := NewVectorizer(Config{Dir: t.TempDir()}, emb, quiet())
	t.Cleanup(func() { _ = v.Close() })

	res := v.Vectorize(ctx, "Acme Corp", "rfi.pdf", testChunks(corpus...))
	require.True(t, res.IsDegraded())
	assert.True(t, res.Value.IsPlaceholder())
	assert.Equal(t, 1, res.Value.Count)

	got := NewRetriever(emb, 4, quiet()).Retrieve(ctx, res.Value, "anything", 4)
	assert.True(t, got.IsDegraded())
	assert.Equal(t, PlaceholderText, got.Value)
}

func TestVectorizeNoChunksDegrades(t *testing.T) {
	v := NewVectorizer(Config{Dir: t.TempDir()}, &letterEmbedder{}, quiet())
	t.Cleanup(func() { _ = v.Close() })
	res := v.Vectorize(context.Background(), "Acme", "empty.txt", nil)
	require.True(t, res.IsDegraded())
	assert.True(t, res.Value.IsPlaceholder())
}

func TestVectorizeFails(t *testing.T) {
	v := NewVectorizer(Config{Dir: t.TempDir()}, &letterEmbedder{}, quiet())
	t.Cleanup(func() { _ = v.Close() })

	res := v.Vectorize(context.Background(), " ", "rfi.pdf", testChunks("a"))
	require.True(t, res.IsFailed())
	assert.ErrorIs(t, res.Err, common.ErrInvalidInput)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res = v.Vectorize(ctx, "Acme", "rfi.pdf", testChunks("a"))
	require.True(t, res.IsFailed())
	assert.ErrorIs(t, res.Err, context.Canceled)
}

func TestRetrieveDegradesOnEmbedError(t *testing.T) {
	ctx := context.Background()
	good := &letterEmbedder{}
	v := NewVectorizer(Config{Dir: t.TempDir()}, good, quiet())
	t.Cleanup(func() { _ = v.Close() })
	res := v.Vectorize(ctx, "Acme", "rfi.pdf", testChunks(corpus...))
	require.True(t, res.IsOK())

	bad := NewRetriever(&letterEmbedder{err: errors.New("down")}, 4, quiet())
	got := bad.Retrieve(ctx, res.Value, "billing", 4)
	assert.True(t, got.IsDegraded())
	assert.Empty(t, got.Value)

	unopened := NewRetriever(good, 4, quiet()).Retrieve(ctx, Collection{Name: "x"}, "billing", 4)
	assert.True(t, unopened.IsDegraded())
}

func TestOpenMissingCollection(t *testing.T) {
	v := NewVectorizer(Config{Dir: t.TempDir()}, &letterEmbedder{}, quiet())
	t.Cleanup(func() { _ = v.Close() })
	_, err := v.Open(context.Background(), "Nobody", "none.pdf")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestPGVectorSelectedWithoutPool(t *testing.T) {
	v := NewVectorizer(Config{Backend: BackendPGVector}, &letterEmbedder{}, quiet())
	t.Cleanup(func() { _ = v.Close() })
	res := v.Vectorize(context.Background(), "Acme", "rfi.pdf", testChunks(corpus...))
	require.True(t, res.IsDegraded())
	assert.Equal(t, BackendMemory, res.Value.Backend)
}

// Needs a Postgres with the vector extension; skipped without VECTOR_DB_URL.
func TestPGVectorAddIsAtomic(t *testing.T) {
	dsn := os.Getenv("VECTOR_DB_URL")
	if dsn == "" {
		t.Skip("VECTOR_DB_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	store, err := NewPGVectorStore(ctx, pool)
	require.NoError(t, err)
	collection := "test_atomic_" + uuid.NewString()[:8]
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM proposal_chunks WHERE collection = $1`, collection)
	})

	err = store.Add(ctx, collection, []Record{
		{ID: collection + "-0", Content: "ok", Embedding: []float32{1, 0}},
		{ID: collection + "-1", Content: "bad", Embedding: []float32{float32(math.NaN()), 0}},
	})
	require.Error(t, err)
	n, err := store.Count(ctx, collection)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, store.Add(ctx, collection, []Record{
		{ID: collection + "-0", Content: "ok", Embedding: []float32{1, 0}},
	}))
	n, err = store.Count(ctx, collection)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
