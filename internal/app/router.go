// internal/app/router.go
package app

import (
	"net/http"
	"time"

	billingHandler "salescoach-service/internal/handlers/billing"
	callHandler "salescoach-service/internal/handlers/call"
	usageHandler "salescoach-service/internal/handlers/usage"
	wsHandler "salescoach-service/internal/handlers/websocket"
	"salescoach-service/internal/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handlers struct {
	UsageHandler   *usageHandler.UsageHandler
	BillingHandler *billingHandler.BillingHandler
	CallHandler    *callHandler.CallHandler
	WSHandler      *wsHandler.WebSocketHandler
	AuthMiddleware *middleware.AuthMiddleware
	RateLimiter    middleware.RateLimiter
	RatePerMinute  int64
}

func SetupRouter(r *gin.Engine, logger *zap.Logger, h *Handlers) {
	api := r.Group("/api/v1")

	limit := func(endpoint string) gin.HandlerFunc {
		return middleware.RateLimit(h.RateLimiter, endpoint, h.RatePerMinute, time.Minute, logger)
	}

	// ==================== Health Check ====================
	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": "1.0.0"})
	})

	// ==================== WebSocket ====================
	r.GET("/ws", h.WSHandler.HandleConnection)

	// ==================== Plan Catalog ====================
	api.GET("/plans", h.AuthMiddleware.Auth(), h.BillingHandler.ListPlans)

	// ==================== Usage ====================
	usage := api.Group("/usage")
	usage.Use(h.AuthMiddleware.Auth(), h.AuthMiddleware.RequireOrganization())
	{
		usage.GET("", h.UsageHandler.GetUsage)
		usage.POST("/check", h.UsageHandler.CheckUsage)
		usage.POST("/track", limit("usage.track"), h.UsageHandler.TrackUsage)
	}

	// ==================== Billing ====================
	billing := api.Group("/billing")
	billing.Use(h.AuthMiddleware.Auth(), h.AuthMiddleware.RequireOrganization())
	{
		billing.GET("", h.BillingHandler.GetBilling)
	}

	// ==================== Calls ====================
	calls := api.Group("/calls")
	calls.Use(h.AuthMiddleware.Auth())
	{
		calls.GET("/:id", h.CallHandler.GetCall)
		calls.PATCH("/:id/outcome", limit("calls.outcome"), h.CallHandler.UpdateOutcome)
		calls.GET("/:id/analysis", h.CallHandler.GetAnalysis)
		calls.POST("/:id/analysis", h.CallHandler.RequestAnalysis)
	}

	// ==================== ADMIN ROUTES ====================
	admin := api.Group("/admin")
	admin.Use(h.AuthMiddleware.Auth(), h.AuthMiddleware.RequireRole("org_admin", "owner"))
	{
		admin.GET("/ws/stats", h.WSHandler.GetStats)
	}
}
