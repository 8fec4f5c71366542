package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"authgate/backend/internal/autherr"
	"authgate/backend/internal/http/middleware"
	"authgate/backend/internal/http/respond"
	"authgate/backend/internal/identity/service"
	"authgate/backend/internal/policy/engine"
	"authgate/backend/internal/security"
)

// AdminHandler serves the operator actions. Every route requires middleware.Auth and a
// policy decision for the caller.
type AdminHandler struct {
	Admin  *service.AdminService
	Policy engine.Evaluator
	Debug  bool
}

// NewAdminHandler returns an AdminHandler.
func NewAdminHandler(admin *service.AdminService, policy engine.Evaluator, debug bool) *AdminHandler {
	return &AdminHandler{Admin: admin, Policy: policy, Debug: debug}
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

// Lockout handles POST /api/admin/users/:id/lockout.
func (h *AdminHandler) Lockout(c *gin.Context) {
	claims, ok := h.authorize(c, engine.ActionLockout, c.Param("id"), "")
	if !ok {
		return
	}
	var req reasonRequest
	_ = c.ShouldBindJSON(&req)
	if err := h.Admin.EmergencyLockout(c.Request.Context(), claims.UserID, c.Param("id"), req.Reason); err != nil {
		respond.Error(c, err, h.Debug)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "User has been locked out"})
}

// Unlock handles POST /api/admin/users/:id/unlock.
func (h *AdminHandler) Unlock(c *gin.Context) {
	claims, ok := h.authorize(c, engine.ActionUnlock, c.Param("id"), "")
	if !ok {
		return
	}
	var req reasonRequest
	_ = c.ShouldBindJSON(&req)
	if err := h.Admin.Unlock(c.Request.Context(), claims.UserID, c.Param("id"), req.Reason); err != nil {
		respond.Error(c, err, h.Debug)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "User has been unlocked"})
}

// TerminateSessions handles POST /api/admin/users/:id/terminate-sessions.
func (h *AdminHandler) TerminateSessions(c *gin.Context) {
	claims, ok := h.authorize(c, engine.ActionTerminateSessions, c.Param("id"), "")
	if !ok {
		return
	}
	var req reasonRequest
	_ = c.ShouldBindJSON(&req)
	res, err := h.Admin.TerminateAllSessions(c.Request.Context(), claims.UserID, c.Param("id"), req.Reason)
	if err != nil {
		respond.Error(c, err, h.Debug)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":                true,
		"message":                "All sessions terminated",
		"device_sessions_closed": res.DeviceSessionsClosed,
		"refresh_tokens_revoked": res.RefreshTokensRevoked,
	})
}

// RevokeToken handles POST /api/admin/tokens/revoke. user_id defaults to the caller.
func (h *AdminHandler) RevokeToken(c *gin.Context) {
	var req struct {
		JTI    string `json:"jti"`
		UserID string `json:"user_id"`
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, autherr.Validation("Invalid JSON input"), h.Debug)
		return
	}
	req.JTI = strings.TrimSpace(req.JTI)
	if req.JTI == "" {
		respond.Error(c, autherr.Validation("jti is required"), h.Debug)
		return
	}
	if req.UserID == "" {
		if claims, ok := middleware.GetAccessClaims(c); ok {
			req.UserID = claims.UserID
		}
	}
	claims, ok := h.authorize(c, engine.ActionRevokeToken, req.UserID, req.JTI)
	if !ok {
		return
	}
	if err := h.Admin.RevokeAccessToken(c.Request.Context(), claims.UserID, req.UserID, req.JTI, req.Reason); err != nil {
		respond.Error(c, err, h.Debug)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Token has been revoked"})
}

func (h *AdminHandler) authorize(c *gin.Context, action, targetUserID, jti string) (*security.AccessClaims, bool) {
	claims, ok := middleware.GetAccessClaims(c)
	if !ok {
		respond.Error(c, autherr.ErrUnauthorized, h.Debug)
		return nil, false
	}
	allowed, err := h.Policy.AllowOperator(c.Request.Context(), engine.OperatorRequest{
		SubjectID:    claims.UserID,
		SubjectEmail: claims.Email,
		Action:       action,
		TargetUserID: targetUserID,
		TargetJTI:    jti,
	})
	if err != nil || !allowed {
		zap.L().Warn("operator action denied",
			zap.String("action", action),
			zap.String("user_id", claims.UserID),
			zap.String("target_user_id", targetUserID),
			zap.Error(err),
		)
		respond.Error(c, autherr.ErrForbidden, h.Debug)
		return nil, false
	}
	return claims, true
}
