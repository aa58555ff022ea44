// internal/pkg/jwt/claims.go
package jwt

import (
	"github.com/golang-jwt/jwt/v5"
)

const PurposeAccess = "access"

// Claims represents the JWT claims issued by the identity provider
type Claims struct {
	UserID         string   `json:"user_id"`
	OrganizationID string   `json:"organization_id,omitempty"`
	Roles          []string `json:"roles,omitempty"`
	SessionPurpose string   `json:"session_purpose"`
	jwt.RegisteredClaims
}

// HasRole checks if the claims contain a specific role
func (c *Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsOrgAdmin reports whether the user administers its organization.
func (c *Claims) IsOrgAdmin() bool {
	return c.HasRole("org_admin") || c.HasRole("owner")
}
