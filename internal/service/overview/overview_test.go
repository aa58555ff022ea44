package overview

import (
	"context"
	"database/sql"
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
)

func TestGetOverview(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	build := func(store *memory.Store) *Service {
		return NewService(
			store,
			subscription.NewResolver(store, zap.NewNop()).WithClock(clock),
			usage.NewCounter(store, zap.NewNop()).WithClock(clock),
			catalog.New(),
			zap.NewNop(),
		)
	}

	t.Run("Should combine organization, subscription, usage and seats", func(t *testing.T) {
		t.Parallel()
		store := memory.NewStore()
		store.PutOrganization(billing.Organization{ID: "org_1", Name: "Acme", PlanTier: billing.PlanPro, MaxSeats: 5})
		store.AddMember("org_1", "u1")
		store.AddMember("org_1", "u2")
		store.PutSubscription(billing.Subscription{
			ID:             "sub_1",
			OrganizationID: "org_1",
			PlanTier:       billing.PlanPro,
			Status:         billing.StatusActive,
			Seats:          sql.NullInt32{Int32: 8, Valid: true},
			CallsPerMonth:  sql.NullInt32{Int32: 150, Valid: true},
			CreatedAt:      now.Add(-24 * time.Hour),
		})
		store.PutUsage(billing.UsageRecord{OrganizationID: "org_1", Month: "2026-03", CallsUsed: 12})

		ov, err := build(store).GetOverview(ctx, "org_1")
		require.NoError(t, err)

		assert.Equal(t, "Acme", ov.Organization.Name)
		require.NotNil(t, ov.Subscription)
		assert.Equal(t, "sub_1", ov.Subscription.ID)
		assert.Equal(t, 150, ov.Subscription.CallsPerMonth)
		assert.Equal(t, 50, ov.Subscription.RoleplaySessionsPerMonth)
		assert.Nil(t, ov.Subscription.CurrentPeriodEnd)
		assert.Equal(t, 12, ov.Usage.CallsUsed)
		assert.Equal(t, billing.SeatUsage{Used: 2, Limit: 8}, ov.Seats)
	})

	t.Run("Should show free limits without a subscription", func(t *testing.T) {
		t.Parallel()
		store := memory.NewStore()
		store.PutOrganization(billing.Organization{ID: "org_1", Name: "Acme", PlanTier: billing.PlanStarter})

		ov, err := build(store).GetOverview(ctx, "org_1")
		require.NoError(t, err)
		assert.Nil(t, ov.Subscription)
		assert.Equal(t, billing.PlanFree, ov.Limits.Tier)
		assert.Equal(t, 0, ov.Limits.CallsPerMonth)
	})

	t.Run("Should report missing organizations as not found", func(t *testing.T) {
		t.Parallel()
		_, err := build(memory.NewStore()).GetOverview(ctx, "org_missing")
		assert.ErrorIs(t, err, xerrors.ErrNotFound)
	})
}
