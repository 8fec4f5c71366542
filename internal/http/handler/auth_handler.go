package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"authgate/backend/internal/autherr"
	"authgate/backend/internal/authz"
	devicedomain "authgate/backend/internal/device/domain"
	"authgate/backend/internal/http/middleware"
	"authgate/backend/internal/http/respond"
	"authgate/backend/internal/identity/service"
	userdomain "authgate/backend/internal/user/domain"
)

const tokenTypeBearer = "Bearer"

// AuthHandler serves register, login, refresh, logout, profile and sessions.
type AuthHandler struct {
	Auth  *service.AuthService
	Debug bool
}

// NewAuthHandler returns an AuthHandler. debug adds error detail to responses.
func NewAuthHandler(auth *service.AuthService, debug bool) *AuthHandler {
	return &AuthHandler{Auth: auth, Debug: debug}
}

type userResponse struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	LastLogin *time.Time `json:"last_login"`
}

func toUserResponse(u *userdomain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		LastLogin: u.LastLogin,
	}
}

// Register handles POST /api/register.
func (h *AuthHandler) Register(c *gin.Context) {
	var req struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, autherr.Validation("Invalid JSON input"), h.Debug)
		return
	}
	u, err := h.Auth.Register(c.Request.Context(), service.RegisterInput{
		Email: req.Email, Password: req.Password, FirstName: req.FirstName, LastName: req.LastName,
	})
	if err != nil {
		respond.Error(c, err, h.Debug)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "User registered successfully",
		"user":    toUserResponse(u),
	})
}

// Login handles POST /api/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, autherr.Validation("Invalid JSON input"), h.Debug)
		return
	}
	res, err := h.Auth.Login(c.Request.Context(), service.LoginInput{
		Email:      req.Email,
		Password:   req.Password,
		DeviceInfo: c.Request.UserAgent(),
		IPAddress:  c.ClientIP(),
	})
	if err != nil {
		respond.Error(c, err, h.Debug)
		return
	}
	body := gin.H{
		"success":      true,
		"message":      "Login successful",
		"user":         toUserResponse(res.User),
		"access_token": res.AccessToken,
		"token":        res.AccessToken,
		"expires_in":   res.ExpiresIn,
		"token_type":   tokenTypeBearer,
	}
	if res.SessionID != "" {
		body["session_id"] = res.SessionID
	}
	if res.RefreshToken != "" {
		body["refresh_token"] = res.RefreshToken
		body["refresh_expires_in"] = res.RefreshExpiresIn
	}
	c.JSON(http.StatusOK, body)
}

// Refresh handles POST /api/refresh.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	_ = c.ShouldBindJSON(&req)
	res, err := h.Auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		// A refresh for a vanished user is an auth failure, not a lookup miss.
		if errors.Is(err, autherr.ErrUserNotFound) {
			respond.ErrorWithStatus(c, http.StatusUnauthorized, err, h.Debug)
			return
		}
		respond.Error(c, err, h.Debug)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"access_token": res.AccessToken,
		"expires_in":   res.ExpiresIn,
		"token_type":   tokenTypeBearer,
	})
}

// Logout handles POST /api/logout. A bearer token sent along is revoked too.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
		LogoutAll    bool   `json:"logout_all"`
	}
	_ = c.ShouldBindJSON(&req)
	access, _ := authz.ParseBearer(c.GetHeader(authz.AuthorizationHeader))
	res, err := h.Auth.Logout(c.Request.Context(), service.LogoutInput{
		RefreshToken: req.RefreshToken,
		LogoutAll:    req.LogoutAll,
		AccessToken:  access,
	})
	if err != nil {
		respond.Error(c, err, h.Debug)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": res.Message})
}

// Profile handles GET /api/profile. Requires middleware.Auth.
func (h *AuthHandler) Profile(c *gin.Context) {
	claims, ok := middleware.GetAccessClaims(c)
	if !ok {
		respond.Error(c, autherr.ErrUnauthorized, h.Debug)
		return
	}
	u, err := h.Auth.Profile(c.Request.Context(), claims.UserID)
	if err != nil {
		respond.Error(c, err, h.Debug)
		return
	}
	tokenInfo := gin.H{
		"user_id":    claims.UserID,
		"email":      claims.Email,
		"issued_at":  claims.IssuedAt.UTC().Format(time.RFC3339),
		"expires_at": claims.ExpiresAt.UTC().Format(time.RFC3339),
	}
	if claims.JTI != "" {
		tokenInfo["jti"] = claims.JTI
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Profile retrieved successfully",
		"user":       toUserResponse(u),
		"token_info": tokenInfo,
	})
}

type sessionResponse struct {
	SessionID  string    `json:"session_id"`
	DeviceInfo string    `json:"device_info"`
	IPAddress  string    `json:"ip_address"`
	CreatedAt  time.Time `json:"created_at"`
}

// Sessions handles GET /api/sessions: the caller's active device sessions.
func (h *AuthHandler) Sessions(c *gin.Context) {
	claims, ok := middleware.GetAccessClaims(c)
	if !ok {
		respond.Error(c, autherr.ErrUnauthorized, h.Debug)
		return
	}
	list, err := h.Auth.Sessions(c.Request.Context(), claims.UserID)
	if err != nil {
		respond.Error(c, err, h.Debug)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "sessions": toSessionResponses(list)})
}

func toSessionResponses(list []*devicedomain.DeviceSession) []sessionResponse {
	out := make([]sessionResponse, 0, len(list))
	for _, d := range list {
		out = append(out, sessionResponse{
			SessionID:  d.SessionID,
			DeviceInfo: d.DeviceInfo,
			IPAddress:  d.IPAddress,
			CreatedAt:  d.CreatedAt,
		})
	}
	return out
}
