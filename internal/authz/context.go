package authz

import (
	"context"

	"authgate/backend/internal/security"
)

type claimsKey struct{}

// WithClaims returns a context carrying the authorized token's claims.
func WithClaims(ctx context.Context, claims *security.AccessClaims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFrom returns the claims stored by WithClaims.
func ClaimsFrom(ctx context.Context) (*security.AccessClaims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*security.AccessClaims)
	return c, ok && c != nil
}

// UserID returns the authorized user id, or "".
func UserID(ctx context.Context) string {
	if c, ok := ClaimsFrom(ctx); ok {
		return c.UserID
	}
	return ""
}
