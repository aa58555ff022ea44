// internal/domain/call/entity.go
package call

import (
	"database/sql"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Result is the closed set of business outcomes for a call.
type Result string

const (
	ResultNoShow      Result = "no_show"
	ResultClosed      Result = "closed"
	ResultLost        Result = "lost"
	ResultUnqualified Result = "unqualified"
	ResultDeposit     Result = "deposit"
	ResultFollowUp    Result = "follow_up"
)

var validResults = map[Result]bool{
	ResultNoShow:      true,
	ResultClosed:      true,
	ResultLost:        true,
	ResultUnqualified: true,
	ResultDeposit:     true,
	ResultFollowUp:    true,
}

func (r Result) IsValid() bool {
	return validResults[r]
}

type Call struct {
	ID             string         `json:"id" db:"id"`
	UserID         string         `json:"user_id" db:"user_id"`
	OrganizationID string         `json:"organization_id" db:"organization_id"`
	Status         Status         `json:"status" db:"status"`
	Transcript     sql.NullString `json:"-" db:"transcript"`

	// Outcome, money in integer cents
	Result           sql.NullString `json:"result" db:"result"`
	Qualified        sql.NullBool   `json:"qualified" db:"qualified"`
	CashCollected    sql.NullInt64  `json:"cash_collected" db:"cash_collected"`
	RevenueGenerated sql.NullInt64  `json:"revenue_generated" db:"revenue_generated"`
	ReasonForOutcome sql.NullString `json:"reason_for_outcome" db:"reason_for_outcome"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// HasTranscript reports whether analysis can be requested for the call.
func (c *Call) HasTranscript() bool {
	return c.Transcript.Valid && c.Transcript.String != ""
}

// Analysis is the AI-produced scoring of a completed call.
type Analysis struct {
	ID             string         `json:"id" db:"id"`
	CallID         string         `json:"call_id" db:"call_id"`
	OverallScore   int            `json:"overall_score" db:"overall_score"`
	CategoryScores map[string]int `json:"category_scores,omitempty" db:"category_scores"`
	Strengths      []string       `json:"strengths" db:"strengths"`
	Improvements   []string       `json:"improvements" db:"improvements"`
	Summary        string         `json:"summary" db:"summary"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
}
