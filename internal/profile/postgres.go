package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"signup/internal/registration/models"
	"signup/pkg/platform/sentinel"
	"signup/pkg/platform/tx"
)

// uniqueViolation is the SQLSTATE for a duplicate key.
const uniqueViolation = "23505"

// PostgresStore inserts profile rows directly into PostgreSQL. A transaction
// placed in the context with tx.WithTx is used instead of the pool.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Insert(ctx context.Context, table string, record models.ProfileRecord) error {
	query := fmt.Sprintf(
		`INSERT INTO %s (id, full_name, email, created_at) VALUES ($1, $2, $3, $4)`,
		pq.QuoteIdentifier(table),
	)
	_, err := tx.ExecerFrom(ctx, s.db).ExecContext(ctx, query,
		record.ID.String(),
		record.FullName,
		record.Email,
		record.CreatedAt.UTC(),
	)
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		cause := fmt.Errorf("insert profile: %w", err)
		if pqErr.Code == uniqueViolation {
			cause = errors.Join(sentinel.ErrConflict, cause)
		}
		return models.NewProfileWriteError(record.ID, pqErr.Message, cause)
	}
	return models.NewProfileWriteError(record.ID, "", fmt.Errorf("insert profile: %w", err))
}

// Find loads a profile row by id.
func (s *PostgresStore) Find(ctx context.Context, table, userID string) (models.ProfileRecord, error) {
	query := fmt.Sprintf(
		`SELECT id, full_name, email, created_at FROM %s WHERE id = $1`,
		pq.QuoteIdentifier(table),
	)
	var (
		rawID  string
		record models.ProfileRecord
	)
	err := tx.ExecerFrom(ctx, s.db).QueryRowContext(ctx, query, userID).Scan(&rawID, &record.FullName, &record.Email, &record.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ProfileRecord{}, sentinel.ErrNotFound
	}
	if err != nil {
		return models.ProfileRecord{}, fmt.Errorf("find profile: %w", err)
	}
	if err := record.ID.UnmarshalText([]byte(rawID)); err != nil {
		return models.ProfileRecord{}, fmt.Errorf("find profile: %w", err)
	}
	return record, nil
}
