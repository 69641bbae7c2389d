package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PGTable holds every collection's chunks when the pgvector backend is used.
const PGTable = "proposal_chunks"

const pgSchema = `
CREATE EXTENSION IF NOT EXISTS vector;
CREATE TABLE IF NOT EXISTS proposal_chunks (
	id         TEXT PRIMARY KEY,
	collection TEXT NOT NULL,
	content    TEXT NOT NULL,
	metadata   JSONB NOT NULL,
	embedding  VECTOR NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS proposal_chunks_collection ON proposal_chunks(collection);
`

// PGVectorStore keeps collections in Postgres and ranks with the pgvector
// cosine distance operator.
type PGVectorStore struct {
	pool *pgxpool.Pool
}

// NewPGVectorStore ensures the schema exists. The pool stays owned by the
// caller; Close is a no-op.
func NewPGVectorStore(ctx context.Context, pool *pgxpool.Pool) (*PGVectorStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("vectorstore: pool is nil")
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		return nil, fmt.Errorf("create pgvector schema: %w", err)
	}
	return &PGVectorStore{pool: pool}, nil
}

func (s *PGVectorStore) Backend() string { return BackendPGVector }

func (s *PGVectorStore) Count(ctx context.Context, collection string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM proposal_chunks WHERE collection = $1`, collection).Scan(&n)
	return n, err
}

func (s *PGVectorStore) Add(ctx context.Context, collection string, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, r := range records {
		md, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		batch.Queue(`
			INSERT INTO proposal_chunks (id, collection, content, metadata, embedding)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO NOTHING`,
			r.ID, collection, r.Content, md, pgvector.NewVector(r.Embedding))
	}
	// all or nothing: Vectorize reuses any collection with rows
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert chunks: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *PGVectorStore) Search(ctx context.Context, collection string, query []float32, k int) ([]Match, error) {
	if k <= 0 {
		return nil, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT content, metadata, 1 - (embedding <=> $2) AS score
		FROM proposal_chunks
		WHERE collection = $1
		ORDER BY embedding <=> $2, id
		LIMIT $3`, collection, pgvector.NewVector(query), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Match
	for rows.Next() {
		var (
			m  Match
			md []byte
		)
		if err := rows.Scan(&m.Content, &md, &m.Score); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(md, &m.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *PGVectorStore) Close() error { return nil }
