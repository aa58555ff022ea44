// internal/middleware/helpers.go
package middleware

import "github.com/gin-gonic/gin"

// GetUserID returns the authenticated user ID from context
func GetUserID(c *gin.Context) (string, bool) {
	return getString(c, ctxUserID)
}

// MustGetUserID gets user ID from context or panics
func MustGetUserID(c *gin.Context) string {
	userID, ok := GetUserID(c)
	if !ok || userID == "" {
		panic("user_id not found in context")
	}
	return userID
}

// GetOrganizationID returns the caller's organization from context
func GetOrganizationID(c *gin.Context) (string, bool) {
	return getString(c, ctxOrganizationID)
}

// MustGetOrganizationID gets organization ID from context or panics
func MustGetOrganizationID(c *gin.Context) string {
	orgID, ok := GetOrganizationID(c)
	if !ok || orgID == "" {
		panic("organization_id not found in context")
	}
	return orgID
}

func GetJTI(c *gin.Context) (string, bool) {
	return getString(c, ctxJTI)
}

// GetRoles gets user roles from context
func GetRoles(c *gin.Context) []string {
	roles, exists := c.Get(ctxRoles)
	if !exists {
		return []string{}
	}

	rolesList, ok := roles.([]string)
	if !ok {
		return []string{}
	}

	return rolesList
}

// IsAuthenticated checks if request is authenticated
func IsAuthenticated(c *gin.Context) bool {
	_, exists := c.Get(ctxUserID)
	return exists
}

func getString(c *gin.Context, key string) (string, bool) {
	v, exists := c.Get(key)
	if !exists {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
