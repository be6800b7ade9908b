package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/medtracker/internal/repository"
	"github.com/jwalitptl/medtracker/pkg/metrics"
)

const backend = "postgres"

const schema = `
	CREATE TABLE IF NOT EXISTS user_documents (
		user_id    TEXT PRIMARY KEY,
		data       TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
`

type documentRepository struct {
	db      *sqlx.DB
	metrics *metrics.Metrics
}

func NewDocumentRepository(db *sqlx.DB, m *metrics.Metrics) repository.DocumentRepository {
	return &documentRepository{db: db, metrics: m}
}

// EnsureSchema creates the user_documents table if it does not exist.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create user_documents: %w", err)
	}
	return nil
}

func (r *documentRepository) Load(ctx context.Context, userID string) (data string, found bool, err error) {
	defer func(start time.Time) { r.metrics.ObserveStore(backend, "load", start, err) }(time.Now())

	query := `SELECT data FROM user_documents WHERE user_id = $1`
	err = r.db.GetContext(ctx, &data, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get document: %w", err)
	}
	return data, true, nil
}

func (r *documentRepository) Save(ctx context.Context, userID, data string) (err error) {
	defer func(start time.Time) { r.metrics.ObserveStore(backend, "save", start, err) }(time.Now())

	query := `
		INSERT INTO user_documents (user_id, data, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at
	`
	if _, err = r.db.ExecContext(ctx, query, userID, data); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

func (r *documentRepository) ListUsers(ctx context.Context) (users []string, err error) {
	defer func(start time.Time) { r.metrics.ObserveStore(backend, "list", start, err) }(time.Now())

	query := `SELECT user_id FROM user_documents ORDER BY user_id`
	if err = r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (r *documentRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
