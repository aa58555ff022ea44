// internal/service/outcome/recorder.go
package outcome

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"salescoach-service/internal/domain/call"
	xerrors "salescoach-service/internal/pkg/errors"

	"go.uber.org/zap"
)

const (
	MaxReasonLength = 2000

	// largest cent amount that survives a float64 round trip exactly
	maxCents = 1 << 53
)

type Store interface {
	FindCallByID(ctx context.Context, id string) (*call.Call, error)
	UpdateOutcome(ctx context.Context, id string, patch *call.OutcomePatch) (*call.Call, error)
}

type Recorder struct {
	store  Store
	logger *zap.Logger
}

func NewRecorder(store Store, logger *zap.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

// UpdateOutcome applies the valid subset of req to the call owned by
// requesterID. Unrecognised or malformed fields are dropped; if nothing
// remains ErrNothingToUpdate is returned and no write is issued.
func (r *Recorder) UpdateOutcome(ctx context.Context, callID, requesterID string, req *call.UpdateOutcomeRequest) (*call.Call, error) {
	patch := ParsePatch(req)
	if patch.FieldCount() == 0 {
		return nil, xerrors.ErrNothingToUpdate
	}

	existing, err := r.store.FindCallByID(ctx, callID)
	if err != nil {
		return nil, err
	}
	if existing.UserID != requesterID {
		r.logger.Warn("outcome update rejected: not the call owner",
			zap.String("call_id", callID),
			zap.String("requester_id", requesterID),
		)
		return nil, xerrors.ErrForbidden
	}

	updated, err := r.store.UpdateOutcome(ctx, callID, patch)
	if err != nil {
		return nil, fmt.Errorf("failed to update call outcome: %w", err)
	}

	r.logger.Info("call outcome updated",
		zap.String("call_id", callID),
		zap.Int("fields", patch.FieldCount()),
	)
	return updated, nil
}

// ParsePatch validates each raw field independently.
func ParsePatch(req *call.UpdateOutcomeRequest) *call.OutcomePatch {
	patch := &call.OutcomePatch{}
	if req == nil {
		return patch
	}

	var s string
	if present(req.Result) && json.Unmarshal(req.Result, &s) == nil {
		if res := call.Result(s); res.IsValid() {
			patch.Result = &res
		}
	}

	var b bool
	if present(req.Qualified) && json.Unmarshal(req.Qualified, &b) == nil {
		patch.Qualified = &b
	}

	patch.CashCollected = parseCents(req.CashCollected)
	patch.RevenueGenerated = parseCents(req.RevenueGenerated)

	var reason string
	if present(req.ReasonForOutcome) && json.Unmarshal(req.ReasonForOutcome, &reason) == nil {
		n := normalizeReason(reason)
		patch.ReasonForOutcome = &n
	}

	return patch
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && !bytes.Equal(raw, []byte("null"))
}

func parseCents(raw json.RawMessage) *int64 {
	if !present(raw) {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil
	}
	if math.IsNaN(f) || f < 0 || f > maxCents {
		return nil
	}
	v := int64(math.Round(f))
	return &v
}

func normalizeReason(reason string) sql.NullString {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return sql.NullString{}
	}
	if r := []rune(reason); len(r) > MaxReasonLength {
		reason = strings.TrimSpace(string(r[:MaxReasonLength]))
	}
	return sql.NullString{String: reason, Valid: true}
}
