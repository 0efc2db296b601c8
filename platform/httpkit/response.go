// Package httpkit holds gin helpers shared by every HTTP module.
package httpkit

import (
	"errors"
	"net/http"

	"ipkwealth_backend/platform/apperr"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Retryable bool   `json:"retryable,omitempty"`
	Details   any    `json:"details,omitempty"`
}

func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

func OK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func Created(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

func Error(c *gin.Context, status int, message string, details any) {
	c.JSON(status, ErrorResponse{Error: message, Code: apperr.KindBadRequest.String(), Details: details})
}

// HandleError writes err as a response and reports whether it did.
// Typed errors keep their kind; anything else is a 500 with a generic message.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	var domainErr *apperr.Error
	if errors.As(err, &domainErr) {
		if domainErr.Kind == apperr.KindInternal || domainErr.Kind == apperr.KindUnknown {
			_ = c.Error(err)
		}
		c.JSON(domainErr.HTTPStatus(), ErrorResponse{
			Error:     domainErr.Message,
			Code:      domainErr.Kind.String(),
			Retryable: domainErr.Retryable(),
			Details:   domainErr.Details,
		})
		return true
	}

	_ = c.Error(err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error: "internal error",
		Code:  apperr.KindInternal.String(),
	})
	return true
}
