// internal/service/subscription/resolver.go
package subscription

import (
	"context"
	"fmt"
	"time"

	"salescoach-service/internal/domain/billing"

	"go.uber.org/zap"
)

// Store reads subscription rows for an organization.
type Store interface {
	ListByOrganization(ctx context.Context, organizationID string) ([]billing.Subscription, error)
}

type Resolver struct {
	store  Store
	now    func() time.Time
	logger *zap.Logger
}

func NewResolver(store Store, logger *zap.Logger) *Resolver {
	return &Resolver{
		store:  store,
		now:    time.Now,
		logger: logger,
	}
}

// WithClock replaces the time source used for period expiry.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	r.now = now
	return r
}

// GetActiveSubscription returns the entitling subscription of an organization,
// or nil when there is none. Store errors are returned as-is so callers fail closed.
func (r *Resolver) GetActiveSubscription(ctx context.Context, organizationID string) (*billing.Subscription, error) {
	subs, err := r.store.ListByOrganization(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load subscriptions: %w", err)
	}

	now := r.now()
	var active *billing.Subscription
	qualifying := 0
	for i := range subs {
		sub := &subs[i]
		if !sub.IsCurrent(now) {
			continue
		}
		qualifying++
		if active == nil || sub.CreatedAt.After(active.CreatedAt) {
			active = sub
		}
	}

	if qualifying > 1 {
		r.logger.Warn("multiple active subscriptions for organization",
			zap.String("organization_id", organizationID),
			zap.Int("count", qualifying),
			zap.String("chosen_subscription_id", active.ID),
		)
	}

	return active, nil
}
