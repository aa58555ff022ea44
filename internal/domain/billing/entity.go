// internal/domain/billing/entity.go
package billing

import (
	"database/sql"
	"time"
)

type PlanTier string

const (
	PlanFree       PlanTier = "free"
	PlanStarter    PlanTier = "starter"
	PlanPro        PlanTier = "pro"
	PlanTeam       PlanTier = "team"
	PlanEnterprise PlanTier = "enterprise"
)

type SubscriptionStatus string

const (
	StatusActive     SubscriptionStatus = "active"
	StatusTrialing   SubscriptionStatus = "trialing"
	StatusPastDue    SubscriptionStatus = "past_due"
	StatusCanceled   SubscriptionStatus = "canceled"
	StatusIncomplete SubscriptionStatus = "incomplete"
	StatusExpired    SubscriptionStatus = "expired"
)

// Entitles reports whether a subscription in this status grants paid access.
func (s SubscriptionStatus) Entitles() bool {
	return s == StatusActive || s == StatusTrialing
}

// Unlimited is the quota sentinel that always allows.
const Unlimited = -1

// UsageType is a metered counter.
type UsageType string

const (
	UsageCalls    UsageType = "calls"
	UsageRoleplay UsageType = "roleplay"
)

func (t UsageType) IsValid() bool {
	return t == UsageCalls || t == UsageRoleplay
}

// Action is a gated, metered operation.
type Action string

const (
	ActionUploadCall    Action = "upload_call"
	ActionStartRoleplay Action = "start_roleplay"
)

func (a Action) IsValid() bool {
	return a == ActionUploadCall || a == ActionStartRoleplay
}

// UsageType returns the counter an action consumes.
func (a Action) UsageType() UsageType {
	if a == ActionStartRoleplay {
		return UsageRoleplay
	}
	return UsageCalls
}

// ActionFor maps a tracked usage type back to the gated action.
func ActionFor(t UsageType) Action {
	if t == UsageRoleplay {
		return ActionStartRoleplay
	}
	return ActionUploadCall
}

// PlanLimits is one row of the static plan catalog.
type PlanLimits struct {
	Tier                     PlanTier `json:"tier"`
	Name                     string   `json:"name"`
	MaxSeats                 int      `json:"max_seats"`
	CallsPerMonth            int      `json:"calls_per_month"`
	RoleplaySessionsPerMonth int      `json:"roleplay_sessions_per_month"`
	MonthlyPriceCents        int64    `json:"monthly_price_cents"`
	PriceReference           string   `json:"price_reference"`
}

// Quota returns the catalog limit for a usage counter.
func (p PlanLimits) Quota(t UsageType) int {
	if t == UsageRoleplay {
		return p.RoleplaySessionsPerMonth
	}
	return p.CallsPerMonth
}

type Organization struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	PlanTier  PlanTier  `json:"plan_tier" db:"plan_tier"`
	MaxSeats  int       `json:"max_seats" db:"max_seats"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type Subscription struct {
	ID             string             `json:"id" db:"id"`
	OrganizationID string             `json:"organization_id" db:"organization_id"`
	PlanTier       PlanTier           `json:"plan_tier" db:"plan_tier"`
	Status         SubscriptionStatus `json:"status" db:"status"`

	// Explicit overrides; NULL falls back to the catalog defaults for PlanTier
	Seats                    sql.NullInt32 `json:"seats,omitempty" db:"seats"`
	CallsPerMonth            sql.NullInt32 `json:"calls_per_month,omitempty" db:"calls_per_month"`
	RoleplaySessionsPerMonth sql.NullInt32 `json:"roleplay_sessions_per_month,omitempty" db:"roleplay_sessions_per_month"`

	CurrentPeriodEnd  sql.NullTime `json:"current_period_end,omitempty" db:"current_period_end"`
	CancelAtPeriodEnd bool         `json:"cancel_at_period_end" db:"cancel_at_period_end"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// QuotaOverride returns the subscription-level quota for a counter, if any.
func (s *Subscription) QuotaOverride(t UsageType) (int, bool) {
	v := s.CallsPerMonth
	if t == UsageRoleplay {
		v = s.RoleplaySessionsPerMonth
	}
	if !v.Valid {
		return 0, false
	}
	return int(v.Int32), true
}

// IsCurrent reports whether the subscription entitles at the given instant.
// A NULL period end is open-ended.
func (s *Subscription) IsCurrent(now time.Time) bool {
	if !s.Status.Entitles() {
		return false
	}
	if s.CurrentPeriodEnd.Valid && !s.CurrentPeriodEnd.Time.After(now) {
		return false
	}
	return true
}

// UsageRecord is the persisted per-organization, per-month counter row.
type UsageRecord struct {
	ID                   string    `json:"id" db:"id"`
	OrganizationID       string    `json:"organization_id" db:"organization_id"`
	Month                string    `json:"month" db:"month"`
	CallsUsed            int       `json:"calls_used" db:"calls_used"`
	RoleplaySessionsUsed int       `json:"roleplay_sessions_used" db:"roleplay_sessions_used"`
	CreatedAt            time.Time `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time `json:"updated_at" db:"updated_at"`
}

// Usage is the consumption snapshot for one month.
type Usage struct {
	OrganizationID       string `json:"organization_id"`
	Month                string `json:"month"`
	CallsUsed            int    `json:"calls_used"`
	RoleplaySessionsUsed int    `json:"roleplay_sessions_used"`
}

// Used returns the counter value for a usage type.
func (u *Usage) Used(t UsageType) int {
	if t == UsageRoleplay {
		return u.RoleplaySessionsUsed
	}
	return u.CallsUsed
}

// Decision is the entitlement gate's verdict.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	Code    string `json:"code,omitempty"`
	Used    int    `json:"used"`
	Limit   int    `json:"limit"`
}
