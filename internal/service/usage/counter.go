// internal/service/usage/counter.go
package usage

import (
	"context"
	"fmt"
	"time"

	"salescoach-service/internal/domain/billing"
	xerrors "salescoach-service/internal/pkg/errors"

	"go.uber.org/zap"
)

const monthLayout = "2006-01"

// Store persists monthly usage counters.
type Store interface {
	// FindByMonth returns nil, nil when no row exists for the month.
	FindByMonth(ctx context.Context, organizationID, month string) (*billing.UsageRecord, error)
	// Increment atomically adds one to the counter of usageType, creating the
	// row if absent, and returns the counters after the increment. Unless
	// limit is billing.Unlimited the increment only applies while the counter
	// is below limit; otherwise ErrQuotaExceeded is returned and nothing changes.
	Increment(ctx context.Context, organizationID, month string, usageType billing.UsageType, limit int) (*billing.UsageRecord, error)
}

type Counter struct {
	store  Store
	now    func() time.Time
	logger *zap.Logger
}

func NewCounter(store Store, logger *zap.Logger) *Counter {
	return &Counter{
		store:  store,
		now:    time.Now,
		logger: logger,
	}
}

// WithClock replaces the time source used for the month key.
func (c *Counter) WithClock(now func() time.Time) *Counter {
	c.now = now
	return c
}

// MonthKey returns the usage period bucket for an instant. Months are UTC.
func MonthKey(t time.Time) string {
	return t.UTC().Format(monthLayout)
}

// CurrentMonth returns the month key for the counter's clock.
func (c *Counter) CurrentMonth() string {
	return MonthKey(c.now())
}

// GetCurrentUsage reads the counters for the current month. It never writes;
// a month without a row reads as zero.
func (c *Counter) GetCurrentUsage(ctx context.Context, organizationID string) (*billing.Usage, error) {
	month := c.CurrentMonth()

	record, err := c.store.FindByMonth(ctx, organizationID, month)
	if err != nil {
		return nil, fmt.Errorf("failed to read usage: %w", err)
	}

	usage := &billing.Usage{OrganizationID: organizationID, Month: month}
	if record != nil {
		usage.CallsUsed = record.CallsUsed
		usage.RoleplaySessionsUsed = record.RoleplaySessionsUsed
	}
	return usage, nil
}

// IncrementUsage adds one to the counter for the given type in the current month.
func (c *Counter) IncrementUsage(ctx context.Context, organizationID string, usageType billing.UsageType) (*billing.Usage, error) {
	return c.IncrementWithinLimit(ctx, organizationID, usageType, billing.Unlimited)
}

// IncrementWithinLimit is IncrementUsage guarded by limit in the same
// statement, so concurrent callers can never push the counter past it.
func (c *Counter) IncrementWithinLimit(ctx context.Context, organizationID string, usageType billing.UsageType, limit int) (*billing.Usage, error) {
	if !usageType.IsValid() {
		return nil, fmt.Errorf("%w: unknown usage type %q", xerrors.ErrInvalidInput, usageType)
	}
	if limit != billing.Unlimited && limit <= 0 {
		return nil, xerrors.ErrQuotaExceeded
	}

	month := c.CurrentMonth()
	record, err := c.store.Increment(ctx, organizationID, month, usageType, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to increment usage: %w", err)
	}

	c.logger.Info("usage incremented",
		zap.String("organization_id", organizationID),
		zap.String("month", month),
		zap.String("type", string(usageType)),
		zap.Int("calls_used", record.CallsUsed),
		zap.Int("roleplay_sessions_used", record.RoleplaySessionsUsed),
	)

	return &billing.Usage{
		OrganizationID:       organizationID,
		Month:                month,
		CallsUsed:            record.CallsUsed,
		RoleplaySessionsUsed: record.RoleplaySessionsUsed,
	}, nil
}
