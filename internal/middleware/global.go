// internal/middleware/global.go
package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Global returns the engine-wide chain in order. Logging wraps recovery so a
// recovered panic is still logged with its 500 status.
func Global(logger *zap.Logger, allowedOrigins []string) []gin.HandlerFunc {
	return []gin.HandlerFunc{
		LoggingMiddleware(logger),
		RecoveryMiddleware(logger),
		CORSMiddleware(allowedOrigins),
	}
}
