package vectorstore

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/joseph-ayodele/proposal-builder/internal/chunk"
)

// Backend names.
const (
	BackendSQLite      = "sqlite"
	BackendPGVector    = "pgvector"
	BackendMemory      = "memory"
	BackendPlaceholder = "placeholder"
)

// PlaceholderText is the single chunk stored when no real collection could
// be built.
const PlaceholderText = "error"

// Embedder turns texts into vectors. The OpenAI client implements it.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Record is one embedded chunk.
type Record struct {
	ID        string
	Content   string
	Metadata  chunk.Metadata
	Embedding []float32
}

// Match is a search hit; higher Score is more similar.
type Match struct {
	Content  string
	Metadata chunk.Metadata
	Score    float64
}

// Store persists records per collection and ranks them by cosine
// similarity.
type Store interface {
	Backend() string
	Count(ctx context.Context, collection string) (int, error)
	Add(ctx context.Context, collection string, records []Record) error
	Search(ctx context.Context, collection string, query []float32, k int) ([]Match, error)
	Close() error
}

// EncodeEmbedding encodes a vector as little-endian float32s without a
// length prefix.
func EncodeEmbedding(vec []float32) []byte {
	b := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}

// DecodeEmbedding reverses EncodeEmbedding.
func DecodeEmbedding(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("vectorstore: invalid embedding blob length %d", len(b))
	}
	vec := make([]float32, len(b)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return vec, nil
}

// Cosine returns the cosine similarity of a and b and false when it is
// undefined (length mismatch, empty or zero-magnitude vectors).
func Cosine(a, b []float32) (float64, bool) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, false
	}
	var dot, na2, nb2 float64
	for i := range a {
		va, vb := float64(a[i]), float64(b[i])
		dot += va * vb
		na2 += va * va
		nb2 += vb * vb
	}
	if na2 == 0 || nb2 == 0 {
		return 0, false
	}
	return dot / (math.Sqrt(na2) * math.Sqrt(nb2)), true
}

func recordID(collection string, index int) string {
	return fmt.Sprintf("%s-%05d", collection, index)
}
