package vectorstore

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

var (
	registerOnce sync.Once
	registerErr  error
)

// registerFunctions makes vec_cosine available on connections opened after
// the first call.
func registerFunctions() error {
	registerOnce.Do(func() {
		registerErr = sqlite.RegisterDeterministicScalarFunction("vec_cosine", 2, vecCosine)
	})
	return registerErr
}

// vecCosine is vec_cosine(a BLOB, b BLOB) -> REAL, NULL when undefined.
func vecCosine(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("vec_cosine: expected 2 arguments, got %d", len(args))
	}
	var vecs [2][]float32
	for i, arg := range args {
		switch v := arg.(type) {
		case nil:
			return nil, nil
		case []byte:
			dec, err := DecodeEmbedding(v)
			if err != nil {
				return nil, err
			}
			vecs[i] = dec
		default:
			return nil, fmt.Errorf("vec_cosine: unsupported argument type %T; want BLOB", arg)
		}
	}
	sim, ok := Cosine(vecs[0], vecs[1])
	if !ok {
		return nil, nil
	}
	return sim, nil
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS chunks (
	id         TEXT PRIMARY KEY,
	collection TEXT NOT NULL,
	content    TEXT NOT NULL,
	metadata   TEXT NOT NULL,
	embedding  BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS chunks_collection ON chunks(collection);
`

// SQLiteStore keeps a collection in a SQLite database and ranks with the
// vec_cosine scalar function.
type SQLiteStore struct {
	db      *sql.DB
	path    string
	backend string
}

// OpenSQLite opens (creating if needed) the database at path. MemoryPath
// yields an in-memory store.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if err := registerFunctions(); err != nil {
		return nil, fmt.Errorf("register vec functions: %w", err)
	}
	backend := BackendSQLite
	if path == MemoryPath {
		backend = BackendMemory
	} else if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// one connection: an in-memory database is per connection, and a single
	// writer avoids SQLITE_BUSY on the file
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db, path: path, backend: backend}, nil
}

func (s *SQLiteStore) Backend() string { return s.backend }

func (s *SQLiteStore) Path() string { return s.path }

func (s *SQLiteStore) Count(ctx context.Context, collection string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE collection = ?`, collection).Scan(&n)
	return n, err
}

func (s *SQLiteStore) Add(ctx context.Context, collection string, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO chunks(id, collection, content, metadata, embedding) VALUES(?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		md, err := json.Marshal(r.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, r.ID, collection, r.Content, string(md), EncodeEmbedding(r.Embedding)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Search(ctx context.Context, collection string, query []float32, k int) ([]Match, error) {
	if k <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT content, metadata, vec_cosine(embedding, ?) AS score
		FROM chunks
		WHERE collection = ?
		ORDER BY score DESC, id ASC
		LIMIT ?`, EncodeEmbedding(query), collection, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Match
	for rows.Next() {
		var (
			m     Match
			md    string
			score sql.NullFloat64
		)
		if err := rows.Scan(&m.Content, &md, &score); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(md), &m.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
		m.Score = score.Float64
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
