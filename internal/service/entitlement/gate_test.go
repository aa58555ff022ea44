package entitlement

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"salescoach-service/internal/domain/billing"
	xerrors "salescoach-service/internal/pkg/errors"
	"salescoach-service/internal/repository/memory"
	"salescoach-service/internal/service/catalog"
	"salescoach-service/internal/service/subscription"
	"salescoach-service/internal/service/usage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fixture struct {
	store   *memory.Store
	counter *usage.Counter
	gate    *Gate
	now     time.Time
}

func newFixture(t *testing.T, bypass bool) *fixture {
	t.Helper()

	f := &fixture{
		store: memory.NewStore(),
		now:   time.Date(2026, 1, 31, 22, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }
	resolver := subscription.NewResolver(f.store, zap.NewNop()).WithClock(clock)
	f.counter = usage.NewCounter(f.store, zap.NewNop()).WithClock(clock)
	f.gate = NewGate(resolver, f.counter, catalog.New(), bypass, zap.NewNop())
	return f
}

func (f *fixture) subscribe(tier billing.PlanTier, calls, roleplay *int32) {
	sub := billing.Subscription{
		OrganizationID:   "org_1",
		PlanTier:         tier,
		Status:           billing.StatusActive,
		CurrentPeriodEnd: sql.NullTime{Time: f.now.Add(365 * 24 * time.Hour), Valid: true},
		CreatedAt:        f.now.Add(-time.Hour),
	}
	if calls != nil {
		sub.CallsPerMonth = sql.NullInt32{Int32: *calls, Valid: true}
	}
	if roleplay != nil {
		sub.RoleplaySessionsPerMonth = sql.NullInt32{Int32: *roleplay, Valid: true}
	}
	f.store.PutSubscription(sub)
}

func i32(v int32) *int32 { return &v }

type erroringResolver struct{ err error }

func (e erroringResolver) GetActiveSubscription(ctx context.Context, organizationID string) (*billing.Subscription, error) {
	return nil, e.err
}

type erroringUsage struct{ err error }

func (e erroringUsage) GetCurrentUsage(ctx context.Context, organizationID string) (*billing.Usage, error) {
	return nil, e.err
}

type activeResolver struct{ sub *billing.Subscription }

func (a activeResolver) GetActiveSubscription(ctx context.Context, organizationID string) (*billing.Subscription, error) {
	return a.sub, nil
}

func TestCanPerformAction(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("Should deny organizations without a subscription", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, false)

		for _, action := range []billing.Action{billing.ActionUploadCall, billing.ActionStartRoleplay} {
			d, err := f.gate.CanPerformAction(ctx, "org_1", action)
			require.NoError(t, err)
			assert.False(t, d.Allowed)
			assert.Equal(t, ReasonNoSubscription, d.Reason)
			assert.Equal(t, CodeNoSubscription, d.Code)
		}
	})

	t.Run("Should allow everything when bypass is enabled", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, true)

		d, err := f.gate.CanPerformAction(ctx, "org_1", billing.ActionUploadCall)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, CodeBypass, d.Code)
	})

	t.Run("Should allow below the limit and deny at the limit", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, false)
		f.subscribe(billing.PlanStarter, i32(10), nil)
		f.store.PutUsage(billing.UsageRecord{OrganizationID: "org_1", Month: "2026-01", CallsUsed: 9})

		d, err := f.gate.CanPerformAction(ctx, "org_1", billing.ActionUploadCall)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, 9, d.Used)
		assert.Equal(t, 10, d.Limit)

		_, err = f.counter.IncrementUsage(ctx, "org_1", billing.UsageCalls)
		require.NoError(t, err)

		d, err = f.gate.CanPerformAction(ctx, "org_1", billing.ActionUploadCall)
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Equal(t, CodeLimitReached, d.Code)
		assert.Contains(t, d.Reason, "limit reached")
	})

	t.Run("Should allow again after month rollover", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, false)
		f.subscribe(billing.PlanStarter, i32(10), nil)
		f.store.PutUsage(billing.UsageRecord{OrganizationID: "org_1", Month: "2026-01", CallsUsed: 10})

		d, err := f.gate.CanPerformAction(ctx, "org_1", billing.ActionUploadCall)
		require.NoError(t, err)
		assert.False(t, d.Allowed)

		f.now = f.now.Add(3 * time.Hour)

		u, err := f.counter.GetCurrentUsage(ctx, "org_1")
		require.NoError(t, err)
		assert.Equal(t, "2026-02", u.Month)
		assert.Equal(t, 0, u.CallsUsed)

		d, err = f.gate.CanPerformAction(ctx, "org_1", billing.ActionUploadCall)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	})

	t.Run("Should fall back to catalog defaults when no override is set", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, false)
		f.subscribe(billing.PlanPro, nil, nil)
		f.store.PutUsage(billing.UsageRecord{OrganizationID: "org_1", Month: "2026-01", CallsUsed: 99, RoleplaySessionsUsed: 50})

		d, err := f.gate.CanPerformAction(ctx, "org_1", billing.ActionUploadCall)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, 100, d.Limit)

		d, err = f.gate.CanPerformAction(ctx, "org_1", billing.ActionStartRoleplay)
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Equal(t, 50, d.Limit)
	})

	t.Run("Should let the subscription override take precedence", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, false)
		f.subscribe(billing.PlanPro, nil, i32(2))
		f.store.PutUsage(billing.UsageRecord{OrganizationID: "org_1", Month: "2026-01", RoleplaySessionsUsed: 2})

		d, err := f.gate.CanPerformAction(ctx, "org_1", billing.ActionStartRoleplay)
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Equal(t, 2, d.Limit)
	})

	t.Run("Should treat the unlimited sentinel as always allowed", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, false)
		f.subscribe(billing.PlanStarter, i32(billing.Unlimited), nil)
		f.store.PutUsage(billing.UsageRecord{OrganizationID: "org_1", Month: "2026-01", CallsUsed: 1_000_000})

		d, err := f.gate.CanPerformAction(ctx, "org_1", billing.ActionUploadCall)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, CodeUnlimited, d.Code)

		f2 := newFixture(t, false)
		f2.subscribe(billing.PlanEnterprise, nil, nil)
		d, err = f2.gate.CanPerformAction(ctx, "org_1", billing.ActionStartRoleplay)
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	})

	t.Run("Should deny zero and negative limits", func(t *testing.T) {
		t.Parallel()
		for _, limit := range []int32{0, -5} {
			f := newFixture(t, false)
			f.subscribe(billing.PlanStarter, i32(limit), nil)

			d, err := f.gate.CanPerformAction(ctx, "org_1", billing.ActionUploadCall)
			require.NoError(t, err)
			assert.False(t, d.Allowed, "limit %d", limit)
			assert.Equal(t, CodeNotIncluded, d.Code)
		}
	})

	t.Run("Should deny unknown tiers through the free fallback", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, false)
		f.subscribe("legacy_gold", nil, nil)

		d, err := f.gate.CanPerformAction(ctx, "org_1", billing.ActionUploadCall)
		require.NoError(t, err)
		assert.False(t, d.Allowed)
	})

	t.Run("Should reject unknown actions", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, false)
		_, err := f.gate.CanPerformAction(ctx, "org_1", "export_data")
		assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
	})

	t.Run("Should fail closed on resolver errors", func(t *testing.T) {
		t.Parallel()
		dbErr := errors.New("connection reset")
		gate := NewGate(erroringResolver{err: dbErr}, erroringUsage{}, catalog.New(), false, zap.NewNop())

		d, err := gate.CanPerformAction(ctx, "org_1", billing.ActionUploadCall)
		assert.Nil(t, d)
		assert.ErrorIs(t, err, dbErr)
	})

	t.Run("Should fail closed on usage errors", func(t *testing.T) {
		t.Parallel()
		dbErr := errors.New("statement timeout")
		sub := &billing.Subscription{PlanTier: billing.PlanPro, Status: billing.StatusActive}
		gate := NewGate(activeResolver{sub: sub}, erroringUsage{err: dbErr}, catalog.New(), false, zap.NewNop())

		d, err := gate.CanPerformAction(ctx, "org_1", billing.ActionStartRoleplay)
		assert.Nil(t, d)
		assert.ErrorIs(t, err, dbErr)
	})

	t.Run("Should not write usage while deciding", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, false)
		f.subscribe(billing.PlanPro, nil, nil)

		_, err := f.gate.CanPerformAction(ctx, "org_1", billing.ActionUploadCall)
		require.NoError(t, err)
		assert.Equal(t, 0, f.store.UsageWrites())
		assert.Equal(t, 0, f.store.UsageRowCount())
	})
}

func TestNewGate(t *testing.T) {
	t.Parallel()

	t.Run("Should warn once when bypass is enabled", func(t *testing.T) {
		t.Parallel()
		core, logs := observer.New(zap.WarnLevel)

		NewGate(erroringResolver{}, erroringUsage{}, catalog.New(), true, zap.New(core))
		assert.Equal(t, 1, logs.FilterMessage("billing bypass enabled, every metered action is allowed").Len())
	})

	t.Run("Should stay quiet without bypass", func(t *testing.T) {
		t.Parallel()
		core, logs := observer.New(zap.WarnLevel)

		NewGate(erroringResolver{}, erroringUsage{}, catalog.New(), false, zap.New(core))
		assert.Zero(t, logs.Len())
	})
}
