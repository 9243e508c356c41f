package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Open connects to PostgreSQL for the documents backend.
func Open(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetMaxIdleConns(10)
	db.SetMaxOpenConns(20)

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return db, nil
}

// PostgresBackend stores each collection document as one jsonb row, keyed by
// the document name. Every overwrite bumps the revision counter.
type PostgresBackend struct {
	db *sql.DB
}

func NewPostgresBackend(db *sql.DB) *PostgresBackend {
	return &PostgresBackend{db: db}
}

// EnsureSchema creates the documents table when it is missing. A single
// table does not warrant a migrations directory.
func (b *PostgresBackend) EnsureSchema(ctx context.Context) error {
	_, err := b.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			name       text PRIMARY KEY,
			content    jsonb NOT NULL,
			revision   bigint NOT NULL DEFAULT 1,
			updated_at timestamptz NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("ensure documents table: %w", err)
	}
	return nil
}

func (b *PostgresBackend) Fetch(ctx context.Context, id string) ([]byte, error) {
	var content []byte
	err := b.db.QueryRowContext(ctx, `SELECT content FROM documents WHERE name = $1`, id).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return content, nil
}

func (b *PostgresBackend) Store(ctx context.Context, id string, data []byte) error {
	result, err := b.db.ExecContext(ctx, `
		UPDATE documents
		SET content = $2, revision = revision + 1, updated_at = now()
		WHERE name = $1`, id, data)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (b *PostgresBackend) Create(ctx context.Context, id string, data []byte) error {
	_, err := b.db.ExecContext(ctx, `
		INSERT INTO documents (name, content)
		VALUES ($1, $2)
		ON CONFLICT (name) DO NOTHING`, id, data)
	return err
}

func (b *PostgresBackend) Ping(ctx context.Context) error {
	return b.db.PingContext(ctx)
}
