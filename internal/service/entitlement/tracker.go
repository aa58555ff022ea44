// internal/service/entitlement/tracker.go
package entitlement

import (
	"context"
	"errors"
	"fmt"

	"salescoach-service/internal/domain/billing"
	xerrors "salescoach-service/internal/pkg/errors"

	"go.uber.org/zap"
)

type UsageIncrementer interface {
	IncrementWithinLimit(ctx context.Context, organizationID string, usageType billing.UsageType, limit int) (*billing.Usage, error)
}

// Publisher receives usage snapshots after a successful increment.
type Publisher interface {
	PublishUsage(organizationID string, usage *billing.Usage)
}

// Tracker records a metered action that has already succeeded, re-checking
// the gate first. The increment repeats the limit check in the store so
// concurrent tracks cannot overshoot a quota the gate saw as open.
type Tracker struct {
	gate      *Gate
	counter   UsageIncrementer
	publisher Publisher
	logger    *zap.Logger
}

func NewTracker(gate *Gate, counter UsageIncrementer, publisher Publisher, logger *zap.Logger) *Tracker {
	return &Tracker{
		gate:      gate,
		counter:   counter,
		publisher: publisher,
		logger:    logger,
	}
}

func (t *Tracker) Track(ctx context.Context, organizationID string, usageType billing.UsageType) (*billing.Usage, error) {
	if !usageType.IsValid() {
		return nil, fmt.Errorf("%w: unknown usage type %q", xerrors.ErrInvalidInput, usageType)
	}

	action := billing.ActionFor(usageType)
	decision, err := t.gate.CanPerformAction(ctx, organizationID, action)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, &xerrors.QuotaExceededError{
			Action: string(action),
			Reason: decision.Reason,
			Code:   decision.Code,
			Used:   decision.Used,
			Limit:  decision.Limit,
		}
	}

	usage, err := t.counter.IncrementWithinLimit(ctx, organizationID, usageType, decision.Limit)
	if errors.Is(err, xerrors.ErrQuotaExceeded) {
		t.logger.Info("metered action denied at increment",
			zap.String("organization_id", organizationID),
			zap.String("action", string(action)),
			zap.Int("limit", decision.Limit),
		)
		return nil, &xerrors.QuotaExceededError{
			Action: string(action),
			Reason: limitReachedReason(action, decision.Limit, decision.Limit),
			Code:   CodeLimitReached,
			Used:   decision.Limit,
			Limit:  decision.Limit,
		}
	}
	if err != nil {
		return nil, err
	}

	if t.publisher != nil {
		t.publisher.PublishUsage(organizationID, usage)
	}

	return usage, nil
}
