package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	apperrors "github.com/clinicops/schedule-api/pkg/errors"
)

var errNoRowsUpdated = errors.New("no rows updated")

// BaseRepository provides common functionality for all repositories
type BaseRepository struct {
	db *sqlx.DB
}

// NewBaseRepository creates a new base repository
func NewBaseRepository(db *sqlx.DB) BaseRepository {
	return BaseRepository{db: db}
}

// GetDB returns the database instance
func (r *BaseRepository) GetDB() *sqlx.DB {
	return r.db
}

// WithTx executes a function within a transaction
func (r *BaseRepository) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// notFoundOr converts sql.ErrNoRows into the application not-found kind so
// callers can treat a missing row as a valid empty result. Other errors
// pass through untouched.
func notFoundOr(err error, resource string) error {
	if errors.Is(err, sql.ErrNoRows) || errors.Is(err, errNoRowsUpdated) {
		return apperrors.NotFound(resource, err)
	}
	return err
}
