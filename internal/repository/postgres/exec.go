package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Kerhoff/rollcall/internal/repository"
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// execOne runs a statement that must touch at least one row
func execOne(ctx context.Context, db execer, op, query string, args ...any) error {
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, translate(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("failed to %s: %w", op, repository.ErrNotFound)
	}

	return nil
}
