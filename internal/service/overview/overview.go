// internal/service/overview/overview.go
package overview

import (
	"context"

	"salescoach-service/internal/domain/billing"

	"go.uber.org/zap"
)

type OrganizationStore interface {
	FindOrganizationByID(ctx context.Context, id string) (*billing.Organization, error)
	CountMembers(ctx context.Context, organizationID string) (int, error)
}

type SubscriptionResolver interface {
	GetActiveSubscription(ctx context.Context, organizationID string) (*billing.Subscription, error)
}

type UsageReader interface {
	GetCurrentUsage(ctx context.Context, organizationID string) (*billing.Usage, error)
}

type PlanCatalog interface {
	Resolve(tier billing.PlanTier) billing.PlanLimits
}

// Service assembles the billing page: organization, subscription, usage and
// the effective limits.
type Service struct {
	orgs     OrganizationStore
	resolver SubscriptionResolver
	usage    UsageReader
	catalog  PlanCatalog
	logger   *zap.Logger
}

func NewService(orgs OrganizationStore, resolver SubscriptionResolver, usage UsageReader, catalog PlanCatalog, logger *zap.Logger) *Service {
	return &Service{
		orgs:     orgs,
		resolver: resolver,
		usage:    usage,
		catalog:  catalog,
		logger:   logger,
	}
}

func (s *Service) GetOverview(ctx context.Context, organizationID string) (*billing.Overview, error) {
	org, err := s.orgs.FindOrganizationByID(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	sub, err := s.resolver.GetActiveSubscription(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	usage, err := s.usage.GetCurrentUsage(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	members, err := s.orgs.CountMembers(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	limits := EffectiveLimits(s.catalog, sub)
	return &billing.Overview{
		Organization: org,
		Subscription: subscriptionView(sub, limits),
		Usage:        usage,
		Limits:       limits,
		Seats:        billing.SeatUsage{Used: members, Limit: limits.MaxSeats},
	}, nil
}

// EffectiveLimits overlays subscription overrides on the catalog row. Without
// a subscription the free tier applies.
func EffectiveLimits(catalog PlanCatalog, sub *billing.Subscription) billing.PlanLimits {
	if sub == nil {
		return catalog.Resolve(billing.PlanFree)
	}

	limits := catalog.Resolve(sub.PlanTier)
	if v, ok := sub.QuotaOverride(billing.UsageCalls); ok {
		limits.CallsPerMonth = v
	}
	if v, ok := sub.QuotaOverride(billing.UsageRoleplay); ok {
		limits.RoleplaySessionsPerMonth = v
	}
	if sub.Seats.Valid {
		limits.MaxSeats = int(sub.Seats.Int32)
	}
	return limits
}

func subscriptionView(sub *billing.Subscription, limits billing.PlanLimits) *billing.SubscriptionView {
	if sub == nil {
		return nil
	}
	view := &billing.SubscriptionView{
		ID:                       sub.ID,
		PlanTier:                 sub.PlanTier,
		Status:                   sub.Status,
		Seats:                    limits.MaxSeats,
		CallsPerMonth:            limits.CallsPerMonth,
		RoleplaySessionsPerMonth: limits.RoleplaySessionsPerMonth,
		CancelAtPeriodEnd:        sub.CancelAtPeriodEnd,
	}
	if sub.CurrentPeriodEnd.Valid {
		end := sub.CurrentPeriodEnd.Time
		view.CurrentPeriodEnd = &end
	}
	return view
}
