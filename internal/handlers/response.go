package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kestrel-retail/discovery-engine/internal/apperr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondErr maps a typed apperr.Kind to the appropriate HTTP status,
// keeping the kind tag for client-side discrimination.
func RespondErr(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := statusFor(kind)
	c.AbortWithStatusJSON(status, ErrorEnvelope{Error: APIError{Message: err.Error(), Code: string(kind)}})
}

func invalidInput(err error) error {
	return apperr.InvalidInput("malformed request body", err)
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindInvalidInput:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindUnavailable:
		return http.StatusServiceUnavailable
	case apperr.KindCancelled:
		return 499
	case apperr.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
