// Package respond writes JSON error bodies for the gin handlers and middleware.
package respond

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"authgate/backend/internal/autherr"
)

// Status maps the kind of err to an HTTP status code. Unclassified errors are 500.
func Status(err error) int {
	switch autherr.KindOf(err) {
	case autherr.KindValidation:
		return http.StatusBadRequest
	case autherr.KindInvalidCredentials, autherr.KindAccountLocked, autherr.KindUnauthorized:
		return http.StatusUnauthorized
	case autherr.KindForbidden:
		return http.StatusForbidden
	case autherr.KindNotFound:
		return http.StatusNotFound
	case autherr.KindConflict:
		return http.StatusConflict
	case autherr.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error aborts the request with Status(err) and {"error": message}. In debug mode the
// underlying cause is added as "detail".
func Error(c *gin.Context, err error, debug bool) {
	ErrorWithStatus(c, Status(err), err, debug)
}

// ErrorWithStatus is Error with an explicit status code.
func ErrorWithStatus(c *gin.Context, status int, err error, debug bool) {
	body := gin.H{"error": autherr.PublicMessage(err)}
	var detailed interface{ Details() []string }
	if errors.As(err, &detailed) {
		body["details"] = detailed.Details()
	}
	if debug {
		body["detail"] = err.Error()
	}
	if status >= http.StatusInternalServerError {
		zap.L().Error("request failed", zap.String("path", c.Request.URL.Path), zap.Int("status", status), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, body)
}
