// internal/repository/postgres/organization_repo.go
package postgres

import (
	"context"

	"salescoach-service/internal/domain/billing"
)

type OrganizationRepository struct {
	db Conn
}

func NewOrganizationRepository(db Conn) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// FindOrganizationByID retrieves an organization by ID
func (r *OrganizationRepository) FindOrganizationByID(ctx context.Context, id string) (*billing.Organization, error) {
	query := `
		SELECT id, name, plan_tier, max_seats, created_at
		FROM organizations
		WHERE id = $1
	`

	var org billing.Organization
	err := r.db.QueryRow(ctx, query, id).Scan(
		&org.ID, &org.Name, &org.PlanTier, &org.MaxSeats, &org.CreatedAt,
	)
	if err != nil {
		return nil, wrapErr(err, "find organization")
	}

	return &org, nil
}

// CountMembers returns the number of users holding a seat in the organization
func (r *OrganizationRepository) CountMembers(ctx context.Context, organizationID string) (int, error) {
	query := `SELECT COUNT(*) FROM organization_members WHERE organization_id = $1`

	var count int
	if err := r.db.QueryRow(ctx, query, organizationID).Scan(&count); err != nil {
		return 0, wrapErr(err, "count organization members")
	}
	return count, nil
}
