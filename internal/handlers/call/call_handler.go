// internal/handlers/call/call_handler.go
package call

import (
	"context"
	"net/http"

	"salescoach-service/internal/domain/call"
	"salescoach-service/internal/middleware"
	"salescoach-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type OutcomeRecorder interface {
	UpdateOutcome(ctx context.Context, callID, requesterID string, req *call.UpdateOutcomeRequest) (*call.Call, error)
}

type CallService interface {
	GetCall(ctx context.Context, callID, requesterID string) (*call.Call, error)
	GetAnalysis(ctx context.Context, callID, requesterID string) (*call.Analysis, error)
	RequestAnalysis(ctx context.Context, callID, requesterID string) (*call.Call, error)
}

type CallHandler struct {
	recorder OutcomeRecorder
	calls    CallService
}

func NewCallHandler(recorder OutcomeRecorder, calls CallService) *CallHandler {
	return &CallHandler{
		recorder: recorder,
		calls:    calls,
	}
}

// UpdateOutcome applies an outcome patch to the caller's call
func (h *CallHandler) UpdateOutcome(c *gin.Context) {
	var req call.UpdateOutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, "invalid request body", err)
		return
	}

	updated, err := h.recorder.UpdateOutcome(c.Request.Context(), c.Param("id"), middleware.MustGetUserID(c), &req)
	if err != nil {
		response.FromError(c, "failed to update call outcome", err)
		return
	}

	response.Success(c, http.StatusOK, "call outcome updated", &call.UpdateOutcomeResponse{
		OK:   true,
		Call: call.NewCallResponse(updated),
	})
}

// GetCall retrieves a call owned by the caller
func (h *CallHandler) GetCall(c *gin.Context) {
	found, err := h.calls.GetCall(c.Request.Context(), c.Param("id"), middleware.MustGetUserID(c))
	if err != nil {
		response.FromError(c, "failed to get call", err)
		return
	}

	response.Success(c, http.StatusOK, "call retrieved", call.NewCallResponse(found))
}

// GetAnalysis retrieves the analysis of a call owned by the caller
func (h *CallHandler) GetAnalysis(c *gin.Context) {
	analysis, err := h.calls.GetAnalysis(c.Request.Context(), c.Param("id"), middleware.MustGetUserID(c))
	if err != nil {
		response.FromError(c, "failed to get call analysis", err)
		return
	}

	response.Success(c, http.StatusOK, "call analysis retrieved", analysis)
}

// RequestAnalysis queues the call for (re-)analysis
func (h *CallHandler) RequestAnalysis(c *gin.Context) {
	updated, err := h.calls.RequestAnalysis(c.Request.Context(), c.Param("id"), middleware.MustGetUserID(c))
	if err != nil {
		response.FromError(c, "failed to request call analysis", err)
		return
	}

	response.Success(c, http.StatusAccepted, "call analysis requested", call.NewCallResponse(updated))
}
