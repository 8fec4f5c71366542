package middleware

import (
	"github.com/gin-gonic/gin"

	"authgate/backend/internal/audit"
	"authgate/backend/internal/authz"
	"authgate/backend/internal/http/respond"
	"authgate/backend/internal/security"
)

const accessClaimsKey = "accessClaims"

// Auth runs the authorization guard on the Authorization header and attaches the claims.
type Auth struct {
	Guard *authz.Guard
	Debug bool
}

// RequireAuth rejects the request unless the guard accepts its bearer token.
func (m *Auth) RequireAuth(c *gin.Context) {
	claims, err := m.Guard.AuthorizeRequest(c.Request.Context(), c.Request.Header)
	if err != nil {
		respond.Error(c, err, m.Debug)
		return
	}
	c.Set(accessClaimsKey, claims)
	c.Request = c.Request.WithContext(authz.WithClaims(c.Request.Context(), claims))
	c.Next()
}

// GetAccessClaims exposes the authorized token's claims to handlers.
func GetAccessClaims(c *gin.Context) (*security.AccessClaims, bool) {
	value, ok := c.Get(accessClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := value.(*security.AccessClaims)
	return claims, ok && claims != nil
}

// ClientIP stores the client address on the request context so security events record it.
func ClientIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(audit.WithClientIP(c.Request.Context(), c.ClientIP()))
		c.Next()
	}
}
