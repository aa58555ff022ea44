// internal/repository/postgres/call_repo.go
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"salescoach-service/internal/domain/call"
	xerrors "salescoach-service/internal/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
)

const callColumns = `
	id, user_id, organization_id, status, transcript,
	result, qualified, cash_collected, revenue_generated, reason_for_outcome,
	created_at, updated_at`

type CallRepository struct {
	db *DB
}

func NewCallRepository(conn Conn) *CallRepository {
	return &CallRepository{db: NewDB(conn)}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCall(row rowScanner) (*call.Call, error) {
	var c call.Call
	err := row.Scan(
		&c.ID, &c.UserID, &c.OrganizationID, &c.Status, &c.Transcript,
		&c.Result, &c.Qualified, &c.CashCollected, &c.RevenueGenerated, &c.ReasonForOutcome,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// FindCallByID retrieves a call by ID
func (r *CallRepository) FindCallByID(ctx context.Context, id string) (*call.Call, error) {
	query := `SELECT ` + callColumns + ` FROM calls WHERE id = $1`

	c, err := scanCall(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, wrapErr(err, "find call")
	}
	return c, nil
}

// UpdateOutcome writes only the fields present in the patch
func (r *CallRepository) UpdateOutcome(ctx context.Context, id string, patch *call.OutcomePatch) (*call.Call, error) {
	setClauses := []string{}
	args := []interface{}{id}
	argPos := 2

	if patch.Result != nil {
		setClauses = append(setClauses, fmt.Sprintf("result = $%d", argPos))
		args = append(args, string(*patch.Result))
		argPos++
	}
	if patch.Qualified != nil {
		setClauses = append(setClauses, fmt.Sprintf("qualified = $%d", argPos))
		args = append(args, *patch.Qualified)
		argPos++
	}
	if patch.CashCollected != nil {
		setClauses = append(setClauses, fmt.Sprintf("cash_collected = $%d", argPos))
		args = append(args, *patch.CashCollected)
		argPos++
	}
	if patch.RevenueGenerated != nil {
		setClauses = append(setClauses, fmt.Sprintf("revenue_generated = $%d", argPos))
		args = append(args, *patch.RevenueGenerated)
		argPos++
	}
	if patch.ReasonForOutcome != nil {
		setClauses = append(setClauses, fmt.Sprintf("reason_for_outcome = $%d", argPos))
		args = append(args, *patch.ReasonForOutcome)
		argPos++
	}

	if len(setClauses) == 0 {
		return nil, xerrors.ErrNothingToUpdate
	}

	setClauses = append(setClauses, "updated_at = NOW()")
	query := fmt.Sprintf(`UPDATE calls SET %s WHERE id = $1 RETURNING %s`,
		strings.Join(setClauses, ", "), callColumns)

	c, err := scanCall(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, wrapErr(err, "update call outcome")
	}
	return c, nil
}

// FindAnalysisByCallID retrieves the analysis row for a call
func (r *CallRepository) FindAnalysisByCallID(ctx context.Context, callID string) (*call.Analysis, error) {
	query := `
		SELECT id, call_id, overall_score, category_scores, strengths, improvements, summary, created_at
		FROM call_analyses
		WHERE call_id = $1
	`

	var a call.Analysis
	var scoresJSON []byte
	var strengths, improvements []string

	err := r.db.QueryRow(ctx, query, callID).Scan(
		&a.ID, &a.CallID, &a.OverallScore, &scoresJSON,
		pq.Array(&strengths), pq.Array(&improvements), &a.Summary, &a.CreatedAt,
	)
	if err != nil {
		return nil, wrapErr(err, "find call analysis")
	}

	if len(scoresJSON) > 0 {
		if err := json.Unmarshal(scoresJSON, &a.CategoryScores); err != nil {
			return nil, fmt.Errorf("failed to decode category scores: %w", err)
		}
	}
	a.Strengths = strengths
	a.Improvements = improvements

	return &a, nil
}

// ResetForAnalysis removes the current analysis and marks the call pending,
// in one transaction so a reader never sees a completed call without analysis.
func (r *CallRepository) ResetForAnalysis(ctx context.Context, callID string) error {
	return r.db.WithTx(ctx, "reset call for analysis", func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM call_analyses WHERE call_id = $1`, callID); err != nil {
			return wrapErr(err, "delete call analysis")
		}

		tag, err := tx.Exec(ctx, `UPDATE calls SET status = $2, updated_at = NOW() WHERE id = $1`, callID, string(call.StatusPending))
		if err != nil {
			return wrapErr(err, "reset call status")
		}
		if tag.RowsAffected() == 0 {
			return xerrors.ErrNotFound
		}
		return nil
	})
}
