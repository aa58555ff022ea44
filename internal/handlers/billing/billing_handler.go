// internal/handlers/billing/billing_handler.go
package billing

import (
	"context"
	"net/http"

	"salescoach-service/internal/domain/billing"
	"salescoach-service/internal/middleware"
	"salescoach-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
)

type OverviewService interface {
	GetOverview(ctx context.Context, organizationID string) (*billing.Overview, error)
}

type PlanLister interface {
	All() []billing.PlanLimits
}

type BillingHandler struct {
	overview OverviewService
	plans    PlanLister
}

func NewBillingHandler(overview OverviewService, plans PlanLister) *BillingHandler {
	return &BillingHandler{
		overview: overview,
		plans:    plans,
	}
}

// GetBilling returns organization, subscription, usage and limits
func (h *BillingHandler) GetBilling(c *gin.Context) {
	ov, err := h.overview.GetOverview(c.Request.Context(), middleware.MustGetOrganizationID(c))
	if err != nil {
		response.FromError(c, "failed to load billing", err)
		return
	}

	response.Success(c, http.StatusOK, "billing retrieved", ov)
}

// ListPlans returns the static plan catalog
func (h *BillingHandler) ListPlans(c *gin.Context) {
	response.Success(c, http.StatusOK, "plans retrieved", h.plans.All())
}
