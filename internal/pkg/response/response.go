// internal/pkg/response/response.go
package response

import (
	"fmt"
	"net/http"

	xerrors "salescoach-service/internal/pkg/errors"

	"github.com/gin-gonic/gin"
)

// Response defines the standard API response format.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Reason  string      `json:"reason,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Success sends a successful response with a message and optional data.
func Success(c *gin.Context, status int, message string, data interface{}) {
	if status == 0 {
		status = http.StatusOK
	}

	c.JSON(status, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// Error sends a standardized error response.
func Error(c *gin.Context, code int, message string, err error, data ...interface{}) {
	// Abort before writing so later handlers in the chain never run
	c.Abort()

	response := Response{
		Success: false,
		Message: message,
	}

	if err != nil {
		response.Error = err.Error()
		_, response.Reason = xerrors.Classify(err)
	}

	if len(data) > 0 {
		response.Data = data[0]
	}

	c.JSON(code, response)
}

// FromError derives the status and reason from the error taxonomy.
// Internal errors never leak their text to the caller.
func FromError(c *gin.Context, message string, err error, data ...interface{}) {
	status, reason := xerrors.Classify(err)
	c.Abort()

	response := Response{
		Success: false,
		Message: message,
		Reason:  reason,
	}
	switch reason {
	case xerrors.ReasonInternal:
		response.Error = xerrors.ErrInternal.Error()
	case xerrors.ReasonSchemaDrift:
		response.Error = xerrors.ErrSchemaDrift.Error()
	default:
		response.Error = err.Error()
	}

	if len(data) > 0 {
		response.Data = data[0]
	}

	c.JSON(status, response)
}

// ValidationError sends a 400 Bad Request response for invalid input.
func ValidationError(c *gin.Context, message string, err error) {
	if err == nil {
		err = xerrors.ErrInvalidInput
	} else {
		err = fmt.Errorf("%w: %v", xerrors.ErrInvalidInput, err)
	}
	Error(c, http.StatusBadRequest, message, err)
}

// Unauthorized sends a 401 Unauthorized response.
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, message, xerrors.ErrUnauthorized)
}

// Forbidden sends a 403 Forbidden response.
func Forbidden(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, message, xerrors.ErrForbidden)
}

// NotFound sends a 404 Not Found response.
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message, xerrors.ErrNotFound)
}
