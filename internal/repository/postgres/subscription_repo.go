// internal/repository/postgres/subscription_repo.go
package postgres

import (
	"context"

	"salescoach-service/internal/domain/billing"
)

type SubscriptionRepository struct {
	db Conn
}

func NewSubscriptionRepository(db Conn) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// ListByOrganization returns every subscription of an organization, newest first.
// Status and expiry filtering is left to the resolver.
func (r *SubscriptionRepository) ListByOrganization(ctx context.Context, organizationID string) ([]billing.Subscription, error) {
	query := `
		SELECT id, organization_id, plan_tier, status,
		       seats, calls_per_month, roleplay_sessions_per_month,
		       current_period_end, cancel_at_period_end,
		       created_at, updated_at
		FROM subscriptions
		WHERE organization_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.Query(ctx, query, organizationID)
	if err != nil {
		return nil, wrapErr(err, "list subscriptions")
	}
	defer rows.Close()

	var subs []billing.Subscription
	for rows.Next() {
		var s billing.Subscription
		if err := rows.Scan(
			&s.ID, &s.OrganizationID, &s.PlanTier, &s.Status,
			&s.Seats, &s.CallsPerMonth, &s.RoleplaySessionsPerMonth,
			&s.CurrentPeriodEnd, &s.CancelAtPeriodEnd,
			&s.CreatedAt, &s.UpdatedAt,
		); err != nil {
			return nil, wrapErr(err, "scan subscription")
		}
		subs = append(subs, s)
	}

	if err := rows.Err(); err != nil {
		return nil, wrapErr(err, "list subscriptions")
	}
	return subs, nil
}
