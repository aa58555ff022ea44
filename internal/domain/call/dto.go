// internal/domain/call/dto.go
package call

import (
	"database/sql"
	"encoding/json"
	"time"
)

// UpdateOutcomeRequest keeps every field raw so that values of the wrong
// type can be dropped individually instead of failing the whole request.
type UpdateOutcomeRequest struct {
	Result           json.RawMessage `json:"result"`
	Qualified        json.RawMessage `json:"qualified"`
	CashCollected    json.RawMessage `json:"cashCollected"`
	RevenueGenerated json.RawMessage `json:"revenueGenerated"`
	ReasonForOutcome json.RawMessage `json:"reasonForOutcome"`
}

// OutcomePatch is the validated set of fields to write. Nil means untouched.
type OutcomePatch struct {
	Result           *Result
	Qualified        *bool
	CashCollected    *int64
	RevenueGenerated *int64
	ReasonForOutcome *sql.NullString
}

// FieldCount returns the number of effective fields in the patch.
func (p *OutcomePatch) FieldCount() int {
	n := 0
	if p.Result != nil {
		n++
	}
	if p.Qualified != nil {
		n++
	}
	if p.CashCollected != nil {
		n++
	}
	if p.RevenueGenerated != nil {
		n++
	}
	if p.ReasonForOutcome != nil {
		n++
	}
	return n
}

type CallResponse struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	OrganizationID   string    `json:"organization_id"`
	Status           Status    `json:"status"`
	HasTranscript    bool      `json:"has_transcript"`
	Result           *string   `json:"result"`
	Qualified        *bool     `json:"qualified"`
	CashCollected    *int64    `json:"cash_collected"`
	RevenueGenerated *int64    `json:"revenue_generated"`
	ReasonForOutcome *string   `json:"reason_for_outcome"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func NewCallResponse(c *Call) *CallResponse {
	resp := &CallResponse{
		ID:             c.ID,
		UserID:         c.UserID,
		OrganizationID: c.OrganizationID,
		Status:         c.Status,
		HasTranscript:  c.HasTranscript(),
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
	if c.Result.Valid {
		resp.Result = &c.Result.String
	}
	if c.Qualified.Valid {
		resp.Qualified = &c.Qualified.Bool
	}
	if c.CashCollected.Valid {
		resp.CashCollected = &c.CashCollected.Int64
	}
	if c.RevenueGenerated.Valid {
		resp.RevenueGenerated = &c.RevenueGenerated.Int64
	}
	if c.ReasonForOutcome.Valid {
		resp.ReasonForOutcome = &c.ReasonForOutcome.String
	}
	return resp
}

type UpdateOutcomeResponse struct {
	OK   bool          `json:"ok"`
	Call *CallResponse `json:"call"`
}
