package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"salescoach-service/internal/domain/billing"
	"salescoach-service/internal/domain/call"
	xerrors "salescoach-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var usageRecordColumns = []string{"id", "organization_id", "month", "calls_used", "roleplay_sessions_used", "created_at", "updated_at"}

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

func sqlFragment(s string) string {
	return regexp.QuoteMeta(s)
}

func TestUsageRepository_FindByMonth(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	query := sqlFragment("FROM usage_records") + `\s+` + sqlFragment("WHERE organization_id = $1 AND month = $2")

	t.Run("Should read the month's counters", func(t *testing.T) {
		t.Parallel()
		mock := newMock(t)
		now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
		mock.ExpectQuery(query).
			WithArgs("org_1", "2026-05").
			WillReturnRows(pgxmock.NewRows(usageRecordColumns).AddRow("u_1", "org_1", "2026-05", 4, 2, now, now))

		record, err := NewUsageRepository(mock).FindByMonth(ctx, "org_1", "2026-05")
		require.NoError(t, err)
		require.NotNil(t, record)
		assert.Equal(t, 4, record.CallsUsed)
		assert.Equal(t, 2, record.RoleplaySessionsUsed)
	})

	t.Run("Should return nil without error when the row is missing", func(t *testing.T) {
		t.Parallel()
		mock := newMock(t)
		mock.ExpectQuery(query).
			WithArgs("org_1", "2026-05").
			WillReturnError(pgx.ErrNoRows)

		record, err := NewUsageRepository(mock).FindByMonth(ctx, "org_1", "2026-05")
		assert.NoError(t, err)
		assert.Nil(t, record)
	})

	t.Run("Should surface other errors", func(t *testing.T) {
		t.Parallel()
		mock := newMock(t)
		mock.ExpectQuery(query).
			WithArgs("org_1", "2026-05").
			WillReturnError(&pgconn.PgError{Code: "42P01"})

		_, err := NewUsageRepository(mock).FindByMonth(ctx, "org_1", "2026-05")
		assert.ErrorIs(t, err, xerrors.ErrSchemaDrift)
	})
}

func TestUsageRepository_Increment(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	upsert := func(column string) string {
		return sqlFragment("INSERT INTO usage_records (id, organization_id, month, "+column+")") +
			`[\s\S]*` + sqlFragment("ON CONFLICT (organization_id, month) DO UPDATE SET") +
			`[\s\S]*` + sqlFragment(column+" = usage_records."+column+" + 1") +
			`[\s\S]*` + sqlFragment("WHERE $4::int < 0 OR usage_records."+column+" < $4::int") +
			`[\s\S]*` + sqlFragment("RETURNING id, organization_id, month, calls_used, roleplay_sessions_used")
	}

	t.Run("Should upsert the calls counter with the limit guard", func(t *testing.T) {
		t.Parallel()
		mock := newMock(t)
		mock.ExpectQuery(upsert("calls_used")).
			WithArgs(pgxmock.AnyArg(), "org_1", "2026-05", 25).
			WillReturnRows(pgxmock.NewRows(usageRecordColumns).AddRow("u_1", "org_1", "2026-05", 3, 0, now, now))

		record, err := NewUsageRepository(mock).Increment(ctx, "org_1", "2026-05", billing.UsageCalls, 25)
		require.NoError(t, err)
		assert.Equal(t, 3, record.CallsUsed)
	})

	t.Run("Should upsert the roleplay counter unguarded when unlimited", func(t *testing.T) {
		t.Parallel()
		mock := newMock(t)
		mock.ExpectQuery(upsert("roleplay_sessions_used")).
			WithArgs(pgxmock.AnyArg(), "org_1", "2026-05", billing.Unlimited).
			WillReturnRows(pgxmock.NewRows(usageRecordColumns).AddRow("u_1", "org_1", "2026-05", 0, 1, now, now))

		record, err := NewUsageRepository(mock).Increment(ctx, "org_1", "2026-05", billing.UsageRoleplay, billing.Unlimited)
		require.NoError(t, err)
		assert.Equal(t, 1, record.RoleplaySessionsUsed)
	})

	t.Run("Should report a suppressed update as quota exceeded", func(t *testing.T) {
		t.Parallel()
		mock := newMock(t)
		mock.ExpectQuery(upsert("calls_used")).
			WithArgs(pgxmock.AnyArg(), "org_1", "2026-05", 25).
			WillReturnRows(pgxmock.NewRows(usageRecordColumns))

		_, err := NewUsageRepository(mock).Increment(ctx, "org_1", "2026-05", billing.UsageCalls, 25)
		assert.ErrorIs(t, err, xerrors.ErrQuotaExceeded)
		assert.False(t, errors.Is(err, xerrors.ErrNotFound))
	})

	t.Run("Should reject unknown usage types without a statement", func(t *testing.T) {
		t.Parallel()
		mock := newMock(t)

		_, err := NewUsageRepository(mock).Increment(ctx, "org_1", "2026-05", "minutes", 25)
		assert.ErrorIs(t, err, xerrors.ErrInvalidInput)
	})
}

func TestSubscriptionRepository_ListByOrganization(t *testing.T) {
	t.Parallel()
	mock := newMock(t)
	created := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	cols := []string{"id", "organization_id", "plan_tier", "status", "seats", "calls_per_month",
		"roleplay_sessions_per_month", "current_period_end", "cancel_at_period_end", "created_at", "updated_at"}
	mock.ExpectQuery(sqlFragment("FROM subscriptions") + `[\s\S]*` + sqlFragment("ORDER BY created_at DESC")).
		WithArgs("org_1").
		WillReturnRows(pgxmock.NewRows(cols).
			AddRow("sub_2", "org_1", billing.PlanPro, billing.StatusActive,
				sql.NullInt32{}, sql.NullInt32{Int32: 150, Valid: true}, sql.NullInt32{},
				sql.NullTime{}, false, created.Add(time.Hour), created.Add(time.Hour)).
			AddRow("sub_1", "org_1", billing.PlanStarter, billing.StatusCanceled,
				sql.NullInt32{}, sql.NullInt32{}, sql.NullInt32{},
				sql.NullTime{Time: created, Valid: true}, true, created, created))

	subs, err := NewSubscriptionRepository(mock).ListByOrganization(context.Background(), "org_1")
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "sub_2", subs[0].ID)
	assert.Equal(t, sql.NullInt32{Int32: 150, Valid: true}, subs[0].CallsPerMonth)
	assert.False(t, subs[0].RoleplaySessionsPerMonth.Valid)
	assert.True(t, subs[1].CancelAtPeriodEnd)
}

func TestOrganizationRepository(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("Should map a missing organization to not found", func(t *testing.T) {
		t.Parallel()
		mock := newMock(t)
		mock.ExpectQuery(sqlFragment("FROM organizations")).
			WithArgs("org_missing").
			WillReturnError(pgx.ErrNoRows)

		_, err := NewOrganizationRepository(mock).FindOrganizationByID(ctx, "org_missing")
		assert.ErrorIs(t, err, xerrors.ErrNotFound)
	})

	t.Run("Should count members", func(t *testing.T) {
		t.Parallel()
		mock := newMock(t)
		mock.ExpectQuery(sqlFragment("SELECT COUNT(*) FROM organization_members WHERE organization_id = $1")).
			WithArgs("org_1").
			WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))

		n, err := NewOrganizationRepository(mock).CountMembers(ctx, "org_1")
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})
}

func callRow(c call.Call) []any {
	return []any{
		c.ID, c.UserID, c.OrganizationID, c.Status, c.Transcript,
		c.Result, c.Qualified, c.CashCollected, c.RevenueGenerated, c.ReasonForOutcome,
		c.CreatedAt, c.UpdatedAt,
	}
}

var callRowColumns = []string{"id", "user_id", "organization_id", "status", "transcript",
	"result", "qualified", "cash_collected", "revenue_generated", "reason_for_outcome",
	"created_at", "updated_at"}

func TestCallRepository_UpdateOutcome(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("Should set only the patched columns in order", func(t *testing.T) {
		t.Parallel()
		mock := newMock(t)

		closed := call.ResultClosed
		cash := int64(125000)
		reason := sql.NullString{String: "signed", Valid: true}
		updated := call.Call{
			ID:               "call_1",
			UserID:           "user_1",
			Status:           call.StatusCompleted,
			Result:           sql.NullString{String: "closed", Valid: true},
			CashCollected:    sql.NullInt64{Int64: cash, Valid: true},
			ReasonForOutcome: reason,
		}

		mock.ExpectQuery(sqlFragment("UPDATE calls SET result = $2, cash_collected = $3, reason_for_outcome = $4, updated_at = NOW() WHERE id = $1 RETURNING")).
			WithArgs("call_1", "closed", cash, reason).
			WillReturnRows(pgxmock.NewRows(callRowColumns).AddRow(callRow(updated)...))

		c, err := NewCallRepository(mock).UpdateOutcome(ctx, "call_1", &call.OutcomePatch{
			Result:           &closed,
			CashCollected:    &cash,
			ReasonForOutcome: &reason,
		})
		require.NoError(t, err)
		assert.Equal(t, "closed", c.Result.String)
		assert.Equal(t, cash, c.CashCollected.Int64)
	})

	t.Run("Should issue no statement for an empty patch", func(t *testing.T) {
		t.Parallel()
		mock := newMock(t)

		_, err := NewCallRepository(mock).UpdateOutcome(ctx, "call_1", &call.OutcomePatch{})
		assert.ErrorIs(t, err, xerrors.ErrNothingToUpdate)
	})

	t.Run("Should map a missing call to not found", func(t *testing.T) {
		t.Parallel()
		mock := newMock(t)
		qualified := true

		mock.ExpectQuery(sqlFragment("UPDATE calls SET qualified = $2, updated_at = NOW() WHERE id = $1")).
			WithArgs("missing", true).
			WillReturnError(pgx.ErrNoRows)

		_, err := NewCallRepository(mock).UpdateOutcome(ctx, "missing", &call.OutcomePatch{Qualified: &qualified})
		assert.ErrorIs(t, err, xerrors.ErrNotFound)
	})
}

func TestCallRepository_ResetForAnalysis(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	deleteAnalysis := sqlFragment("DELETE FROM call_analyses WHERE call_id = $1")
	resetStatus := sqlFragment("UPDATE calls SET status = $2, updated_at = NOW() WHERE id = $1")

	t.Run("Should delete the analysis and reset the status in one transaction", func(t *testing.T) {
		t.Parallel()
		mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(deleteAnalysis).WithArgs("call_1").WillReturnResult(pgxmock.NewResult("DELETE", 1))
		mock.ExpectExec(resetStatus).WithArgs("call_1", "pending").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectCommit()

		assert.NoError(t, NewCallRepository(mock).ResetForAnalysis(ctx, "call_1"))
	})

	t.Run("Should roll back when the call does not exist", func(t *testing.T) {
		t.Parallel()
		mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(deleteAnalysis).WithArgs("missing").WillReturnResult(pgxmock.NewResult("DELETE", 0))
		mock.ExpectExec(resetStatus).WithArgs("missing", "pending").WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mock.ExpectRollback()

		err := NewCallRepository(mock).ResetForAnalysis(ctx, "missing")
		assert.ErrorIs(t, err, xerrors.ErrNotFound)
	})

	t.Run("Should roll back when a statement fails", func(t *testing.T) {
		t.Parallel()
		mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(deleteAnalysis).WithArgs("call_1").WillReturnError(&pgconn.PgError{Code: "42P01"})
		mock.ExpectRollback()

		err := NewCallRepository(mock).ResetForAnalysis(ctx, "call_1")
		assert.ErrorIs(t, err, xerrors.ErrSchemaDrift)
	})
}
