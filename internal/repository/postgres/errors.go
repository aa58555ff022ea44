// internal/repository/postgres/errors.go
package postgres

import (
	"errors"
	"fmt"

	xerrors "salescoach-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	sqlStateUndefinedColumn = "42703"
	sqlStateUndefinedTable  = "42P01"
)

// wrapErr maps a driver error into the service taxonomy. A missing row
// becomes ErrNotFound and a missing column or table becomes ErrSchemaDrift.
func wrapErr(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return xerrors.ErrNotFound
	}
	if isSchemaDrift(err) {
		return fmt.Errorf("%s: %w: %v", op, xerrors.ErrSchemaDrift, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func isSchemaDrift(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == sqlStateUndefinedColumn || pgErr.Code == sqlStateUndefinedTable
}
