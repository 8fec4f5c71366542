// Package http wires the gin routes of the JSON API.
package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"authgate/backend/internal/http/handler"
	"authgate/backend/internal/http/middleware"
)

// RouterDeps are the handlers and middleware mounted by NewRouter. RateLimiter, Admin and
// Logger may be nil.
type RouterDeps struct {
	ServiceName    string
	Auth           *handler.AuthHandler
	Admin          *handler.AdminHandler
	Status         *handler.StatusHandler
	AuthMiddleware *middleware.Auth
	RateLimiter    *middleware.RateLimiter
	Logger         *zap.Logger
}

// NewRouter wires Gin routes and middleware.
func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(d.Logger))
	r.Use(middleware.ClientIP())
	if d.ServiceName != "" {
		r.Use(otelgin.Middleware(d.ServiceName))
	}

	r.GET("/healthz", d.Status.Healthz)
	r.GET("/readyz", d.Status.Readyz)

	api := r.Group("/api")
	{
		api.GET("/status", d.Status.Status)

		credentials := api.Group("")
		credentials.Use(d.RateLimiter.Handler())
		{
			credentials.POST("/register", d.Auth.Register)
			credentials.POST("/login", d.Auth.Login)
			credentials.POST("/refresh", d.Auth.Refresh)
		}
		api.POST("/logout", d.Auth.Logout)

		guarded := api.Group("")
		guarded.Use(d.AuthMiddleware.RequireAuth)
		{
			guarded.GET("/profile", d.Auth.Profile)
			guarded.GET("/sessions", d.Auth.Sessions)
		}

		if d.Admin != nil {
			admin := api.Group("/admin")
			admin.Use(d.AuthMiddleware.RequireAuth)
			{
				admin.POST("/users/:id/lockout", d.Admin.Lockout)
				admin.POST("/users/:id/unlock", d.Admin.Unlock)
				admin.POST("/users/:id/terminate-sessions", d.Admin.TerminateSessions)
				admin.POST("/tokens/revoke", d.Admin.RevokeToken)
			}
		}
	}
	return r
}
