// internal/domain/billing/dto.go
package billing

import "time"

type CheckUsageRequest struct {
	Action Action `json:"action" binding:"required"`
}

type TrackUsageRequest struct {
	Type UsageType `json:"type" binding:"required"`
}

type TrackUsageResponse struct {
	Success bool   `json:"success"`
	Usage   *Usage `json:"usage,omitempty"`
}

type SubscriptionView struct {
	ID                       string             `json:"id"`
	PlanTier                 PlanTier           `json:"plan_tier"`
	Status                   SubscriptionStatus `json:"status"`
	Seats                    int                `json:"seats"`
	CallsPerMonth            int                `json:"calls_per_month"`
	RoleplaySessionsPerMonth int                `json:"roleplay_sessions_per_month"`
	CurrentPeriodEnd         *time.Time         `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd        bool               `json:"cancel_at_period_end"`
}

type SeatUsage struct {
	Used  int `json:"used"`
	Limit int `json:"limit"`
}

// Overview is the payload of GET /billing.
type Overview struct {
	Organization *Organization     `json:"organization"`
	Subscription *SubscriptionView `json:"subscription"`
	Usage        *Usage            `json:"usage"`
	Limits       PlanLimits        `json:"limits"`
	Seats        SeatUsage         `json:"seats"`
}
