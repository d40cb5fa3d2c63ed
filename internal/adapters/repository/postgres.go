package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/weaklink/internal/domain/store"
)

const backendPostgres = "postgres"

// SQLSTATE codes.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"
)

const documentsSchema = `
CREATE TABLE IF NOT EXISTS documents (
	path       TEXT PRIMARY KEY,
	parent     TEXT NOT NULL DEFAULT '',
	data       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS documents_parent_idx ON documents (parent);`

// PostgresStore keeps documents as JSONB rows and runs every transaction at
// SERIALIZABLE isolation. Serialization failures are retried.
type PostgresStore struct {
	pool *pgxpool.Pool
	opts options
}

// NewPostgresStore connects to url and ensures the documents table exists.
func NewPostgresStore(ctx context.Context, url string, opts ...Option) (*PostgresStore, error) {
	if url == "" {
		return nil, fmt.Errorf("postgres: %w", ErrMissingURL)
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	s := NewPostgresStoreFromPool(pool, opts...)
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStoreFromPool wraps an existing pool.
func NewPostgresStoreFromPool(pool *pgxpool.Pool, opts ...Option) *PostgresStore {
	return &PostgresStore{pool: pool, opts: newOptions(backendPostgres, opts)}
}

// Migrate creates the documents table.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, documentsSchema); err != nil {
		return fmt.Errorf("postgres: migrate: %w", err)
	}
	return nil
}

// RunTransaction runs fn inside a serializable transaction.
func (s *PostgresStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	return runAttempts(ctx, backendPostgres, s.opts, func(ctx context.Context, _ int) error {
		pgtx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
		if err != nil {
			return classifyPgError(fmt.Errorf("postgres: begin: %w", err))
		}
		defer func() { _ = pgtx.Rollback(ctx) }()

		tx := &pgTx{tx: pgtx, read: make(map[string]store.Document)}
		if err := fn(ctx, tx); err != nil {
			return classifyPgError(err)
		}
		if err := tx.flush(ctx); err != nil {
			return classifyPgError(err)
		}
		if err := pgtx.Commit(ctx); err != nil {
			return classifyPgError(fmt.Errorf("postgres: commit: %w", err))
		}
		return nil
	})
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func classifyPgError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgSerializationFailure, pgDeadlockDetected:
		return fmt.Errorf("%w: %w", store.ErrConflict, err)
	case pgUniqueViolation:
		return fmt.Errorf("%w: %w", store.ErrAlreadyExists, err)
	}
	return err
}

type pgTx struct {
	tx     pgx.Tx
	read   map[string]store.Document
	writes []staged
}

func (t *pgTx) Get(ctx context.Context, path string) (store.Document, bool, error) {
	if len(t.writes) > 0 {
		return nil, false, store.ErrReadAfterWrite
	}
	if err := store.ValidatePath(path); err != nil {
		return nil, false, err
	}
	doc, ok, err := t.load(ctx, path)
	if err != nil {
		return nil, false, err
	}
	t.read[path] = doc
	return store.Clone(doc), ok, nil
}

func (t *pgTx) load(ctx context.Context, path string) (store.Document, bool, error) {
	var raw []byte
	err := t.tx.QueryRow(ctx, `SELECT data FROM documents WHERE path = $1`, path).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("postgres: get %s: %w", path, err)
	}
	doc, err := decodeDocument(raw)
	if err != nil {
		return nil, false, fmt.Errorf("postgres: %s: %w", path, err)
	}
	return doc, true, nil
}

func (t *pgTx) Merge(path string, fields store.Document) error {
	var err error
	t.writes, err = stage(t.writes, path, false, fields)
	return err
}

func (t *pgTx) Create(path string, fields store.Document) error {
	var err error
	t.writes, err = stage(t.writes, path, true, fields)
	return err
}

// flush applies staged writes in order. Merges onto documents the callback
// did not read are resolved against the row as of this transaction.
func (t *pgTx) flush(ctx context.Context) error {
	for _, w := range t.writes {
		if w.create {
			data, err := encodeDocument(store.Resolve(w.fields))
			if err != nil {
				return err
			}
			if _, err := t.tx.Exec(ctx,
				`INSERT INTO documents (path, parent, data) VALUES ($1, $2, $3)`,
				w.path, store.Parent(w.path), data); err != nil {
				return fmt.Errorf("postgres: create %s: %w", w.path, err)
			}
			t.read[w.path] = store.Resolve(w.fields)
			continue
		}

		existing, ok := t.read[w.path]
		if !ok {
			var err error
			if existing, _, err = t.load(ctx, w.path); err != nil {
				return err
			}
		}
		merged := store.ApplyMerge(existing, w.fields)
		data, err := encodeDocument(merged)
		if err != nil {
			return err
		}
		if _, err := t.tx.Exec(ctx,
			`INSERT INTO documents (path, parent, data) VALUES ($1, $2, $3)
			 ON CONFLICT (path) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
			w.path, store.Parent(w.path), data); err != nil {
			return fmt.Errorf("postgres: merge %s: %w", w.path, err)
		}
		t.read[w.path] = merged
	}
	return nil
}
