package outcome

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"testing"

	"salescoach-service/internal/domain/call"
	xerrors "salescoach-service/internal/pkg/errors"
	"salescoach-service/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func request(t *testing.T, body string) *call.UpdateOutcomeRequest {
	t.Helper()
	var req call.UpdateOutcomeRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	return &req
}

func seeded() *memory.Store {
	store := memory.NewStore()
	store.PutCall(call.Call{
		ID:             "call_1",
		UserID:         "user_owner",
		OrganizationID: "org_1",
		Status:         call.StatusCompleted,
		Result:         sql.NullString{String: "lost", Valid: true},
	})
	return store
}

func TestParsePatch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		body   string
		assert func(t *testing.T, p *call.OutcomePatch)
	}{
		{
			name: "Should accept every valid field",
			body: `{"result":"closed","qualified":true,"cashCollected":1500,"revenueGenerated":4999.6,"reasonForOutcome":"  signed on the call  "}`,
			assert: func(t *testing.T, p *call.OutcomePatch) {
				require.Equal(t, 5, p.FieldCount())
				assert.Equal(t, call.ResultClosed, *p.Result)
				assert.True(t, *p.Qualified)
				assert.Equal(t, int64(1500), *p.CashCollected)
				assert.Equal(t, int64(5000), *p.RevenueGenerated)
				assert.Equal(t, "signed on the call", p.ReasonForOutcome.String)
			},
		},
		{
			name: "Should drop an unknown result",
			body: `{"result":"won"}`,
			assert: func(t *testing.T, p *call.OutcomePatch) {
				assert.Nil(t, p.Result)
				assert.Equal(t, 0, p.FieldCount())
			},
		},
		{
			name: "Should drop a non-boolean qualified",
			body: `{"qualified":"yes"}`,
			assert: func(t *testing.T, p *call.OutcomePatch) {
				assert.Nil(t, p.Qualified)
			},
		},
		{
			name: "Should keep qualified false",
			body: `{"qualified":false}`,
			assert: func(t *testing.T, p *call.OutcomePatch) {
				require.NotNil(t, p.Qualified)
				assert.False(t, *p.Qualified)
			},
		},
		{
			name: "Should drop negative and non-numeric money",
			body: `{"cashCollected":-5,"revenueGenerated":"100"}`,
			assert: func(t *testing.T, p *call.OutcomePatch) {
				assert.Nil(t, p.CashCollected)
				assert.Nil(t, p.RevenueGenerated)
			},
		},
		{
			name: "Should accept zero money",
			body: `{"cashCollected":0}`,
			assert: func(t *testing.T, p *call.OutcomePatch) {
				require.NotNil(t, p.CashCollected)
				assert.Equal(t, int64(0), *p.CashCollected)
			},
		},
		{
			name: "Should normalize a blank reason to null",
			body: `{"reasonForOutcome":"   "}`,
			assert: func(t *testing.T, p *call.OutcomePatch) {
				require.NotNil(t, p.ReasonForOutcome)
				assert.False(t, p.ReasonForOutcome.Valid)
			},
		},
		{
			name: "Should ignore explicit nulls",
			body: `{"result":null,"cashCollected":null}`,
			assert: func(t *testing.T, p *call.OutcomePatch) {
				assert.Equal(t, 0, p.FieldCount())
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tt.assert(t, ParsePatch(request(t, tt.body)))
		})
	}

	t.Run("Should cap the reason length", func(t *testing.T) {
		t.Parallel()
		long := strings.Repeat("é", MaxReasonLength+50)
		body, err := json.Marshal(map[string]string{"reasonForOutcome": long})
		require.NoError(t, err)

		p := ParsePatch(request(t, string(body)))
		require.NotNil(t, p.ReasonForOutcome)
		assert.Equal(t, MaxReasonLength, len([]rune(p.ReasonForOutcome.String)))
	})
}

func TestUpdateOutcome(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("Should return nothing to update without writing", func(t *testing.T) {
		t.Parallel()
		store := seeded()
		rec := NewRecorder(store, zap.NewNop())

		_, err := rec.UpdateOutcome(ctx, "call_1", "user_owner", request(t, `{"cashCollected":-5}`))
		assert.ErrorIs(t, err, xerrors.ErrNothingToUpdate)
		assert.Equal(t, 0, store.OutcomeWrites())
	})

	t.Run("Should apply only the valid fields", func(t *testing.T) {
		t.Parallel()
		store := seeded()
		rec := NewRecorder(store, zap.NewNop())

		c, err := rec.UpdateOutcome(ctx, "call_1", "user_owner", request(t, `{"result":"bogus","cashCollected":2500}`))
		require.NoError(t, err)
		assert.Equal(t, "lost", c.Result.String)
		assert.Equal(t, int64(2500), c.CashCollected.Int64)
		assert.Equal(t, 1, store.OutcomeWrites())
	})

	t.Run("Should deny non-owners without mutating", func(t *testing.T) {
		t.Parallel()
		store := seeded()
		rec := NewRecorder(store, zap.NewNop())

		_, err := rec.UpdateOutcome(ctx, "call_1", "user_other", request(t, `{"result":"closed"}`))
		assert.ErrorIs(t, err, xerrors.ErrForbidden)
		assert.Equal(t, 0, store.OutcomeWrites())

		c, err := store.FindCallByID(ctx, "call_1")
		require.NoError(t, err)
		assert.Equal(t, "lost", c.Result.String)
	})

	t.Run("Should report missing calls as not found", func(t *testing.T) {
		t.Parallel()
		rec := NewRecorder(seeded(), zap.NewNop())

		_, err := rec.UpdateOutcome(ctx, "call_missing", "user_owner", request(t, `{"qualified":true}`))
		assert.ErrorIs(t, err, xerrors.ErrNotFound)
	})

	t.Run("Should clear the reason when given an empty string", func(t *testing.T) {
		t.Parallel()
		store := seeded()
		store.PutCall(call.Call{
			ID:               "call_2",
			UserID:           "user_owner",
			ReasonForOutcome: sql.NullString{String: "old", Valid: true},
		})

		c, err := NewRecorder(store, zap.NewNop()).UpdateOutcome(ctx, "call_2", "user_owner", request(t, `{"reasonForOutcome":""}`))
		require.NoError(t, err)
		assert.False(t, c.ReasonForOutcome.Valid)
	})
}
