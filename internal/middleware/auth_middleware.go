// internal/middleware/auth_middleware.go
package middleware

import (
	"context"
	"net/http"
	"strings"

	"salescoach-service/internal/pkg/jwt"
	"salescoach-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	ctxUserID         = "user_id"
	ctxOrganizationID = "organization_id"
	ctxJTI            = "jti"
	ctxRoles          = "roles"
)

type TokenVerifier interface {
	VerifyAccessToken(token string) (*jwt.Claims, error)
}

type TokenBlacklist interface {
	IsTokenBlacklisted(ctx context.Context, jti string) (bool, error)
}

type AuthMiddleware struct {
	verifier  TokenVerifier
	blacklist TokenBlacklist
	logger    *zap.Logger
}

// NewAuthMiddleware builds the middleware. blacklist may be nil.
func NewAuthMiddleware(verifier TokenVerifier, blacklist TokenBlacklist, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		verifier:  verifier,
		blacklist: blacklist,
		logger:    logger,
	}
}

// Auth validates the bearer token and stores the identity in the context
func (m *AuthMiddleware) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			response.Unauthorized(c, "missing authorization token")
			return
		}

		claims, err := m.verifier.VerifyAccessToken(token)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			return
		}

		if m.blacklist != nil {
			revoked, err := m.blacklist.IsTokenBlacklisted(c.Request.Context(), claims.ID)
			if err != nil {
				m.logger.Error("token blacklist lookup failed", zap.Error(err))
				response.Error(c, http.StatusServiceUnavailable, "unable to validate session", err)
				return
			}
			if revoked {
				response.Unauthorized(c, "token has been revoked")
				return
			}
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxOrganizationID, claims.OrganizationID)
		c.Set(ctxJTI, claims.ID)
		c.Set(ctxRoles, claims.Roles)

		c.Next()
	}
}

// RequireOrganization rejects identities that are not members of an organization.
// MUST be used after Auth() middleware
func (m *AuthMiddleware) RequireOrganization() gin.HandlerFunc {
	return func(c *gin.Context) {
		if orgID, ok := GetOrganizationID(c); !ok || orgID == "" {
			response.Forbidden(c, "user does not belong to an organization")
			return
		}
		c.Next()
	}
}

// RequireRole allows the request if the identity holds any of roles.
// MUST be used after Auth() middleware
func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, have := range GetRoles(c) {
			for _, want := range roles {
				if have == want {
					c.Next()
					return
				}
			}
		}
		response.Forbidden(c, "insufficient permissions")
	}
}

// extractToken extracts Bearer token from Authorization header
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
	}

	// Browsers cannot set headers on websocket upgrades
	return c.Query("token")
}
