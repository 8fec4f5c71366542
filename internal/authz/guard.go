// Package authz authorizes requests that present a bearer access token.
package authz

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"authgate/backend/internal/autherr"
	"authgate/backend/internal/security"
	userdomain "authgate/backend/internal/user/domain"
)

// AuthorizationHeader is the header (or gRPC metadata key, lower-cased) carrying the bearer token.
const AuthorizationHeader = "Authorization"

// HeaderSource is anything a request header can be read from. http.Header satisfies it;
// gin and gRPC callers wrap their request types.
type HeaderSource interface {
	Get(key string) string
}

// UserLookup loads the user behind a token.
type UserLookup interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
}

// RevocationChecker reports whether the owner of an access token revoked its jti.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, userID, jti string) (bool, error)
}

// SessionChecker reports whether a user still has an active device session.
type SessionChecker interface {
	HasActive(ctx context.Context, userID string) (bool, error)
}

// Config selects the guard's checks.
type Config struct {
	// EnableRevocationChecks turns on the lockout, jti and device session checks. When false
	// only the token itself is validated.
	EnableRevocationChecks bool
	StoreTimeout           time.Duration
}

// Guard validates bearer tokens and, with revocation checks on, the state behind them.
// It never caches: every call consults the stores, and any store failure denies the request.
type Guard struct {
	tokens      *security.TokenProvider
	users       UserLookup
	revocations RevocationChecker
	sessions    SessionChecker
	cfg         Config
	log         *zap.Logger
}

// NewGuard returns a Guard. users, revocations and sessions may be nil only when
// cfg.EnableRevocationChecks is false. log may be nil.
func NewGuard(tokens *security.TokenProvider, users UserLookup, revocations RevocationChecker, sessions SessionChecker, cfg Config, log *zap.Logger) *Guard {
	if log == nil {
		log = zap.NewNop()
	}
	return &Guard{tokens: tokens, users: users, revocations: revocations, sessions: sessions, cfg: cfg, log: log.Named("guard")}
}

// RevocationChecksEnabled reports whether the guard consults the stores.
func (g *Guard) RevocationChecksEnabled() bool {
	return g.cfg.EnableRevocationChecks
}

// AuthorizeRequest reads the Authorization header from src and authorizes it.
func (g *Guard) AuthorizeRequest(ctx context.Context, src HeaderSource) (*security.AccessClaims, error) {
	return g.Authorize(ctx, src.Get(AuthorizationHeader))
}

// Authorize validates the raw Authorization header value and returns the token's claims.
// Checks run in order: header present, header shape, token decode, then with revocation
// checks on: account lockout, jti revocation, at least one active device session.
func (g *Guard) Authorize(ctx context.Context, header string) (*security.AccessClaims, error) {
	token, err := ParseBearer(header)
	if err != nil {
		return nil, g.reject(err, "", nil)
	}
	claims, err := g.tokens.ParseAccess(token)
	if err != nil {
		return nil, g.reject(autherr.Wrap(autherr.ErrUnauthorized, err), "", err)
	}
	if !g.cfg.EnableRevocationChecks {
		return claims, nil
	}
	if err := g.checkUser(ctx, claims.UserID); err != nil {
		return nil, g.reject(err, claims.UserID, nil)
	}
	if err := g.checkRevoked(ctx, claims.UserID, claims.JTI); err != nil {
		return nil, g.reject(err, claims.UserID, nil)
	}
	if err := g.checkSessions(ctx, claims.UserID); err != nil {
		return nil, g.reject(err, claims.UserID, nil)
	}
	return claims, nil
}

// reject logs why a request was denied and returns err. cause, when set, names the reason
// more precisely than err (the codec failure behind a generic Unauthorized).
// Store outages are already logged at error level by unavailable.
func (g *Guard) reject(err error, userID string, cause error) error {
	if autherr.KindOf(err) == autherr.KindUnavailable {
		return err
	}
	reason := cause
	if reason == nil {
		reason = err
	}
	fields := []zap.Field{zap.String("reason", reasonCode(reason))}
	if userID != "" {
		fields = append(fields, zap.String("user_id", userID))
	}
	if cause != nil {
		fields = append(fields, zap.Error(cause))
	}
	g.log.Info("request rejected", fields...)
	return err
}

func reasonCode(err error) string {
	if e, ok := autherr.As(err); ok {
		return e.Code
	}
	return "unknown"
}

func (g *Guard) checkUser(ctx context.Context, userID string) error {
	ctx, cancel := g.bound(ctx)
	defer cancel()
	u, err := g.users.GetByID(ctx, userID)
	if err != nil {
		return g.unavailable("user lookup", err)
	}
	if u == nil || !u.IsActive {
		return autherr.Wrap(autherr.ErrUnauthorized, autherr.ErrUserNotFound)
	}
	if u.IsLockedOut {
		return autherr.ErrAccountLocked
	}
	return nil
}

func (g *Guard) checkRevoked(ctx context.Context, userID, jti string) error {
	if jti == "" {
		return nil
	}
	ctx, cancel := g.bound(ctx)
	defer cancel()
	revoked, err := g.revocations.IsRevoked(ctx, userID, jti)
	if err != nil {
		return g.unavailable("revocation lookup", err)
	}
	if revoked {
		return autherr.ErrTokenRevoked
	}
	return nil
}

func (g *Guard) checkSessions(ctx context.Context, userID string) error {
	ctx, cancel := g.bound(ctx)
	defer cancel()
	active, err := g.sessions.HasActive(ctx, userID)
	if err != nil {
		return g.unavailable("device session lookup", err)
	}
	if !active {
		return autherr.ErrAllSessionsTerminated
	}
	return nil
}

func (g *Guard) unavailable(what string, err error) error {
	g.log.Error(what+" failed; denying request", zap.Error(err))
	return autherr.Unavailable(err)
}

func (g *Guard) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.cfg.StoreTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, g.cfg.StoreTimeout)
}

// ParseBearer extracts the token from "Bearer <token>". The scheme is case-insensitive and
// exactly one non-empty token must follow.
func ParseBearer(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", autherr.ErrMissingAuthHeader
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", autherr.ErrMalformedAuthHeader
	}
	return parts[1], nil
}
