// internal/handlers/usage/usage_handler.go
package usage

import (
	"context"
	"errors"
	"net/http"

	"salescoach-service/internal/domain/billing"
	"salescoach-service/internal/middleware"
	xerrors "salescoach-service/internal/pkg/errors"
	"salescoach-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type Gate interface {
	CanPerformAction(ctx context.Context, organizationID string, action billing.Action) (*billing.Decision, error)
}

type Tracker interface {
	Track(ctx context.Context, organizationID string, usageType billing.UsageType) (*billing.Usage, error)
}

type UsageReader interface {
	GetCurrentUsage(ctx context.Context, organizationID string) (*billing.Usage, error)
}

type UsageHandler struct {
	gate    Gate
	tracker Tracker
	usage   UsageReader
}

func NewUsageHandler(gate Gate, tracker Tracker, usage UsageReader) *UsageHandler {
	return &UsageHandler{
		gate:    gate,
		tracker: tracker,
		usage:   usage,
	}
}

// CheckUsage reports whether the caller's organization may perform an action
func (h *UsageHandler) CheckUsage(c *gin.Context) {
	var req billing.CheckUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request body", err)
		return
	}
	if !req.Action.IsValid() {
		response.ValidationError(c, "action must be upload_call or start_roleplay", nil)
		return
	}

	decision, err := h.gate.CanPerformAction(c.Request.Context(), middleware.MustGetOrganizationID(c), req.Action)
	if err != nil {
		response.FromError(c, "failed to check usage", err)
		return
	}

	response.Success(c, http.StatusOK, "usage checked", decision)
}

// TrackUsage records a completed metered action after re-checking the gate
func (h *UsageHandler) TrackUsage(c *gin.Context) {
	var req billing.TrackUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request body", err)
		return
	}
	if !req.Type.IsValid() {
		response.ValidationError(c, "type must be calls or roleplay", nil)
		return
	}

	usage, err := h.tracker.Track(c.Request.Context(), middleware.MustGetOrganizationID(c), req.Type)
	if err != nil {
		var quotaErr *xerrors.QuotaExceededError
		if errors.As(err, &quotaErr) {
			response.FromError(c, quotaErr.Reason, err, &billing.Decision{
				Allowed: false,
				Reason:  quotaErr.Reason,
				Code:    quotaErr.Code,
				Used:    quotaErr.Used,
				Limit:   quotaErr.Limit,
			})
			return
		}
		response.FromError(c, "failed to track usage", err)
		return
	}

	response.Success(c, http.StatusOK, "usage tracked", &billing.TrackUsageResponse{
		Success: true,
		Usage:   usage,
	})
}

// GetUsage returns the current month's counters
func (h *UsageHandler) GetUsage(c *gin.Context) {
	usage, err := h.usage.GetCurrentUsage(c.Request.Context(), middleware.MustGetOrganizationID(c))
	if err != nil {
		response.FromError(c, "failed to get usage", err)
		return
	}

	response.Success(c, http.StatusOK, "usage retrieved", usage)
}
