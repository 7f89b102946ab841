package http

import (
	"net/http"

	"github.com/Miraines/gadgets-store/auth-service/internal/adapters/transport/http/dto"
	customErrors "github.com/Miraines/gadgets-store/auth-service/internal/domain/auth/errors"
	"github.com/gin-gonic/gin"
)

// statusOverride lets a route answer a given error kind with another status.
type statusOverride func(err error, status int) int

var defaultMessages = map[int]string{
	http.StatusBadRequest:          "Bad request",
	http.StatusUnauthorized:        "User is not authorized",
	http.StatusForbidden:           "Access denied",
	http.StatusNotFound:            "Not found",
	http.StatusConflict:            "Already exists",
	http.StatusInternalServerError: "Internal server error",
}

func statusOf(err error) int {
	switch {
	case customErrors.IsInvalidArgument(err):
		return http.StatusBadRequest
	case customErrors.IsAlreadyExists(err):
		return http.StatusConflict
	case customErrors.IsNotFound(err):
		return http.StatusNotFound
	case customErrors.IsUnauthorized(err):
		return http.StatusUnauthorized
	case customErrors.IsForbidden(err):
		return http.StatusForbidden
	case customErrors.IsInvalidCredentials(err),
		customErrors.IsUnverified(err),
		customErrors.IsExpired(err),
		customErrors.IsInvalidToken(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// badRequest turns every client-side failure into 400.
func badRequest(_ error, status int) int {
	if status == http.StatusInternalServerError || status == http.StatusForbidden {
		return status
	}
	return http.StatusBadRequest
}

// notFoundAsBadRequest hides account existence on login.
func notFoundAsBadRequest(err error, status int) int {
	if customErrors.IsNotFound(err) {
		return http.StatusBadRequest
	}
	return status
}

func (h *Handler) fail(c *gin.Context, err error, overrides ...statusOverride) {
	status := statusOf(err)
	for _, o := range overrides {
		status = o(err, status)
	}

	body := dto.ErrorResponse{Message: defaultMessages[status]}
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		c.AbortWithStatusJSON(status, body)
		return
	}

	if fields := customErrors.Fields(err); fields != nil {
		body.Message = "Validation error"
		body.Errors = fields
	} else if msg, ok := customErrors.Detail(err); ok {
		body.Message = msg
	}
	c.AbortWithStatusJSON(status, body)
}
