// internal/service/entitlement/gate.go
package entitlement

import (
	"context"
	"fmt"

	"salescoach-service/internal/domain/billing"
	xerrors "salescoach-service/internal/pkg/errors"

	"go.uber.org/zap"
)

const (
	ReasonNoSubscription = "no active subscription"

	CodeBypass         = "bypass"
	CodeNoSubscription = "no_subscription"
	CodeNotIncluded    = "not_included"
	CodeLimitReached   = "limit_reached"
	CodeUnlimited      = "unlimited"
	CodeWithinLimit    = "within_limit"
)

type SubscriptionResolver interface {
	GetActiveSubscription(ctx context.Context, organizationID string) (*billing.Subscription, error)
}

type UsageReader interface {
	GetCurrentUsage(ctx context.Context, organizationID string) (*billing.Usage, error)
}

type PlanCatalog interface {
	Resolve(tier billing.PlanTier) billing.PlanLimits
}

// Gate decides whether an organization may perform a metered action.
// It never writes; callers increment usage only after the action succeeds.
type Gate struct {
	resolver SubscriptionResolver
	usage    UsageReader
	catalog  PlanCatalog
	bypass   bool
	logger   *zap.Logger
}

func NewGate(resolver SubscriptionResolver, usage UsageReader, catalog PlanCatalog, bypass bool, logger *zap.Logger) *Gate {
	if bypass {
		logger.Warn("billing bypass enabled, every metered action is allowed")
	}
	return &Gate{
		resolver: resolver,
		usage:    usage,
		catalog:  catalog,
		bypass:   bypass,
		logger:   logger,
	}
}

// CanPerformAction evaluates the entitlement for an action. Any store error
// is returned and the action must be treated as denied.
func (g *Gate) CanPerformAction(ctx context.Context, organizationID string, action billing.Action) (*billing.Decision, error) {
	if !action.IsValid() {
		return nil, fmt.Errorf("%w: unknown action %q", xerrors.ErrInvalidInput, action)
	}

	if g.bypass {
		return &billing.Decision{Allowed: true, Code: CodeBypass, Limit: billing.Unlimited}, nil
	}

	sub, err := g.resolver.GetActiveSubscription(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve subscription: %w", err)
	}
	if sub == nil {
		return &billing.Decision{Allowed: false, Reason: ReasonNoSubscription, Code: CodeNoSubscription}, nil
	}

	usage, err := g.usage.GetCurrentUsage(ctx, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to read usage: %w", err)
	}

	usageType := action.UsageType()
	limit := g.LimitFor(sub, usageType)
	used := usage.Used(usageType)

	decision := &billing.Decision{Used: used, Limit: limit}
	switch {
	case limit == billing.Unlimited:
		decision.Allowed = true
		decision.Code = CodeUnlimited
	case limit <= 0:
		decision.Reason = fmt.Sprintf("%s plan does not include %ss", sub.PlanTier, actionLabel(action))
		decision.Code = CodeNotIncluded
	case used < limit:
		decision.Allowed = true
		decision.Code = CodeWithinLimit
	default:
		decision.Reason = limitReachedReason(action, used, limit)
		decision.Code = CodeLimitReached
	}

	if !decision.Allowed {
		g.logger.Info("metered action denied",
			zap.String("organization_id", organizationID),
			zap.String("action", string(action)),
			zap.String("code", decision.Code),
			zap.Int("used", used),
			zap.Int("limit", limit),
		)
	}

	return decision, nil
}

// LimitFor returns the effective quota: the subscription override when set,
// otherwise the catalog default for the subscription's tier.
func (g *Gate) LimitFor(sub *billing.Subscription, usageType billing.UsageType) int {
	if v, ok := sub.QuotaOverride(usageType); ok {
		return v
	}
	return g.catalog.Resolve(sub.PlanTier).Quota(usageType)
}

func limitReachedReason(action billing.Action, used, limit int) string {
	return fmt.Sprintf("monthly %s limit reached (%d of %d)", actionLabel(action), used, limit)
}

func actionLabel(action billing.Action) string {
	if action == billing.ActionStartRoleplay {
		return "roleplay session"
	}
	return "call upload"
}
