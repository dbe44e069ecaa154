package api

import (
	"log/slog"
	"net/http"

	"github.com/flaboy/aira-donate/pkg/errors"
	"github.com/gin-gonic/gin"
)

const internalError = "Internal server error"

func statusFor(kind errors.Kind) int {
	switch kind {
	case errors.KindValidation, errors.KindInvalidAmount, errors.KindBelowMinimum,
		errors.KindMissingField, errors.KindSignatureMismatch, errors.KindSubscriptionNotActive:
		return http.StatusBadRequest
	case errors.KindNotFound:
		return http.StatusNotFound
	case errors.KindInvalidTransition:
		return http.StatusConflict
	case errors.KindGateway:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeError renders {success:false, error}. Errors outside the domain kinds
// are logged and replaced with a generic message.
func writeError(c *gin.Context, err error) {
	msg, ok := errors.MessageOf(err)
	if !ok {
		slog.Error("[Server] Request failed", "path", c.Request.URL.Path, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": internalError})
		return
	}
	status := statusFor(errors.KindOf(err))
	if status >= http.StatusInternalServerError {
		slog.Error("[Server] Request failed", "path", c.Request.URL.Path, "error", err)
	}
	c.JSON(status, gin.H{"success": false, "error": msg})
}
