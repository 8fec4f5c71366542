package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"authgate/backend/internal/health"
)

// ReadinessChecker is implemented by *health.Checker.
type ReadinessChecker interface {
	Check(ctx context.Context) health.Report
}

// StatusHandler serves the API status, liveness and readiness endpoints.
type StatusHandler struct {
	Version          string
	Debug            bool
	AccessTTL        time.Duration
	RevocationChecks bool
	Ready            ReadinessChecker
	Now              func() time.Time
}

// Status handles GET /api/status.
func (h *StatusHandler) Status(c *gin.Context) {
	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"message":           "authgate API is working",
		"version":           h.Version,
		"timestamp":         now().UTC().Format(time.RFC3339),
		"debug_mode":        h.Debug,
		"jwt_expiration":    int64(h.AccessTTL / time.Second),
		"revocation_checks": h.RevocationChecks,
	})
}

// Healthz handles GET /healthz. It does not touch any store.
func (h *StatusHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz handles GET /readyz: 200 when every dependency answers, else 503.
func (h *StatusHandler) Readyz(c *gin.Context) {
	if h.Ready == nil {
		c.JSON(http.StatusOK, health.Report{Ready: true, Checks: map[string]string{}})
		return
	}
	report := h.Ready.Check(c.Request.Context())
	status := http.StatusOK
	if !report.Ready {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}
