// internal/repository/postgres/usage_repo.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	"salescoach-service/internal/domain/billing"
	xerrors "salescoach-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
)

type UsageRepository struct {
	db Conn
}

func NewUsageRepository(db Conn) *UsageRepository {
	return &UsageRepository{db: db}
}

// FindByMonth returns nil without error when the organization has no row for the month.
func (r *UsageRepository) FindByMonth(ctx context.Context, organizationID, month string) (*billing.UsageRecord, error) {
	query := `
		SELECT id, organization_id, month, calls_used, roleplay_sessions_used, created_at, updated_at
		FROM usage_records
		WHERE organization_id = $1 AND month = $2
	`

	var u billing.UsageRecord
	err := r.db.QueryRow(ctx, query, organizationID, month).Scan(
		&u.ID, &u.OrganizationID, &u.Month, &u.CallsUsed, &u.RoleplaySessionsUsed, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		err = wrapErr(err, "find usage record")
		if errors.Is(err, xerrors.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &u, nil
}

var usageColumns = map[billing.UsageType]string{
	billing.UsageCalls:    "calls_used",
	billing.UsageRoleplay: "roleplay_sessions_used",
}

// Increment adds one to the counter of usageType in a single upsert so
// concurrent increments never lose updates. The row is created on first use.
// With a limit the update only applies while the counter is below it; a
// suppressed update returns no row, reported as ErrQuotaExceeded.
func (r *UsageRepository) Increment(ctx context.Context, organizationID, month string, usageType billing.UsageType, limit int) (*billing.UsageRecord, error) {
	column, ok := usageColumns[usageType]
	if !ok {
		return nil, fmt.Errorf("%w: unknown usage type %q", xerrors.ErrInvalidInput, usageType)
	}

	query := fmt.Sprintf(`
		INSERT INTO usage_records (id, organization_id, month, %[1]s)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (organization_id, month) DO UPDATE SET
			%[1]s = usage_records.%[1]s + 1,
			updated_at = NOW()
		WHERE $4::int < 0 OR usage_records.%[1]s < $4::int
		RETURNING id, organization_id, month, calls_used, roleplay_sessions_used, created_at, updated_at
	`, column)

	var u billing.UsageRecord
	err := r.db.QueryRow(ctx, query, ulid.Make().String(), organizationID, month, limit).Scan(
		&u.ID, &u.OrganizationID, &u.Month, &u.CallsUsed, &u.RoleplaySessionsUsed, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, xerrors.ErrQuotaExceeded
	}
	if err != nil {
		return nil, wrapErr(err, "increment usage")
	}

	return &u, nil
}
