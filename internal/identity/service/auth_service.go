// Package service implements the credential, token and session flows behind the auth endpoints.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"authgate/backend/internal/audit"
	"authgate/backend/internal/autherr"
	devicedomain "authgate/backend/internal/device/domain"
	"authgate/backend/internal/security"
	sessiondomain "authgate/backend/internal/session/domain"
	userdomain "authgate/backend/internal/user/domain"
	userrepo "authgate/backend/internal/user/repository"
)

// DefaultPasswordMinLength applies when Options.PasswordMinLength is unset.
const DefaultPasswordMinLength = 8

// passwordSpecials are the characters that satisfy the special-character rule.
const passwordSpecials = `!@#$%^&*(),.?":{}|<>`

// SessionLedger records refresh tokens.
type SessionLedger interface {
	CreateSession(ctx context.Context, userID, refreshToken string, ttl time.Duration, deviceSessionID string) (*sessiondomain.Session, error)
	Check(ctx context.Context, refreshToken, userID string) error
	Find(ctx context.Context, refreshToken string) (*sessiondomain.Session, error)
	Revoke(ctx context.Context, refreshToken, userID string) (int64, error)
	RevokeAll(ctx context.Context, userID string) (int64, error)
}

// DeviceTracker opens and closes device sessions.
type DeviceTracker interface {
	Open(ctx context.Context, userID, deviceInfo, ipAddress string) (*devicedomain.DeviceSession, error)
	List(ctx context.Context, userID string) ([]*devicedomain.DeviceSession, error)
	Close(ctx context.Context, id, userID string) (bool, error)
	CloseAll(ctx context.Context, userID string) (int64, error)
}

// RevocationIndex records revoked access token jtis.
type RevocationIndex interface {
	Revoke(ctx context.Context, jti, userID, reason string) error
}

// Options tunes the auth flows.
type Options struct {
	// EnableRevocationChecks makes device sessions mandatory at login, matching the guard's
	// all-sessions-terminated check.
	EnableRevocationChecks bool
	PasswordMinLength      int
	StoreTimeout           time.Duration
}

// Deps are the collaborators of AuthService and AdminService. Audit and Log may be nil.
type Deps struct {
	Users       UserStore
	Verifier    *CredentialVerifier
	Hasher      PasswordHasher
	Tokens      *security.TokenProvider
	Ledger      SessionLedger
	Devices     DeviceTracker
	Revocations RevocationIndex
	Audit       audit.SecurityLogger
	Log         *zap.Logger
}

// AuthService implements register, login, refresh, logout and profile.
type AuthService struct {
	Deps
	opts Options
}

// NewAuthService returns an AuthService with the given dependencies.
func NewAuthService(deps Deps, opts Options) *AuthService {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.Audit == nil {
		deps.Audit = audit.NewLogger(nil, nil, nil, deps.Log)
	}
	if opts.PasswordMinLength <= 0 {
		opts.PasswordMinLength = DefaultPasswordMinLength
	}
	return &AuthService{Deps: deps, opts: opts}
}

// RegisterInput is the registration request.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// PasswordPolicyError lists every rule a password failed. It matches autherr.ErrValidation.
type PasswordPolicyError struct {
	Problems []string
}

func (e *PasswordPolicyError) Error() string {
	return "password validation failed: " + strings.Join(e.Problems, "; ")
}

// Details lists the failed rules for the client.
func (e *PasswordPolicyError) Details() []string { return e.Problems }

func (e *PasswordPolicyError) Unwrap() error {
	return autherr.Validation("Password validation failed")
}

// Register creates an active user with a hashed password.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*userdomain.User, error) {
	for _, f := range []struct{ name, value string }{
		{"Email", in.Email}, {"Password", in.Password}, {"First name", in.FirstName}, {"Last name", in.LastName},
	} {
		if strings.TrimSpace(f.value) == "" {
			return nil, autherr.Validation(f.name + " is required")
		}
	}
	email, err := NormalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if err := ValidatePassword(in.Password, s.opts.PasswordMinLength); err != nil {
		return nil, err
	}

	lookupCtx, cancel := bound(ctx, s.opts.StoreTimeout)
	existing, err := s.Users.GetByEmail(lookupCtx, email)
	cancel()
	if err != nil {
		return nil, autherr.Unavailable(err)
	}
	if existing != nil {
		return nil, autherr.ErrEmailAlreadyRegistered
	}

	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	u := &userdomain.User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	createCtx, cancel := bound(ctx, s.opts.StoreTimeout)
	defer cancel()
	if err := s.Users.Create(createCtx, u); err != nil {
		if errors.Is(err, userrepo.ErrEmailTaken) {
			return nil, autherr.ErrEmailAlreadyRegistered
		}
		return nil, autherr.Unavailable(err)
	}
	s.Audit.Record(ctx, u.ID, audit.ActionRegistered, "", nil)
	return u.Public(), nil
}

// ValidatePassword checks minimum length, an upper-case letter, a lower-case letter and a special character.
func ValidatePassword(password string, minLength int) error {
	var problems []string
	if len(password) < minLength {
		problems = append(problems, fmt.Sprintf("Password must be at least %d characters long", minLength))
	}
	if !strings.ContainsFunc(password, func(r rune) bool { return r >= 'A' && r <= 'Z' }) {
		problems = append(problems, "Password must contain at least one uppercase letter")
	}
	if !strings.ContainsFunc(password, func(r rune) bool { return r >= 'a' && r <= 'z' }) {
		problems = append(problems, "Password must contain at least one lowercase letter")
	}
	if !strings.ContainsAny(password, passwordSpecials) {
		problems = append(problems, "Password must contain at least one special character")
	}
	if len(problems) > 0 {
		return &PasswordPolicyError{Problems: problems}
	}
	return nil
}

// LoginInput is the login request plus the client details recorded on the device session.
type LoginInput struct {
	Email      string
	Password   string
	DeviceInfo string
	IPAddress  string
}

// LoginResult holds the tokens issued at login. RefreshToken is empty when it could not be
// recorded in the ledger; SessionID is empty when no device session was opened.
type LoginResult struct {
	User             *userdomain.User
	AccessToken      string
	AccessExpiresAt  time.Time
	ExpiresIn        int64
	SessionID        string
	RefreshToken     string
	RefreshExpiresIn int64
}

// Login verifies credentials, opens a device session and issues an access and refresh token.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	u, err := s.Verifier.Verify(ctx, in.Email, in.Password)
	if err != nil {
		if k := autherr.KindOf(err); k == autherr.KindInvalidCredentials || k == autherr.KindAccountLocked {
			s.Audit.Record(ctx, "", audit.ActionLoginFailure, codeOf(err), map[string]any{"email": strings.ToLower(strings.TrimSpace(in.Email))})
		}
		return nil, err
	}

	res := &LoginResult{User: u, ExpiresIn: seconds(s.Tokens.AccessTTL())}
	var deviceID string
	device, err := s.Devices.Open(ctx, u.ID, in.DeviceInfo, in.IPAddress)
	switch {
	case err == nil:
		deviceID = device.ID
		res.SessionID = device.SessionID
	case s.opts.EnableRevocationChecks:
		// Without a device session every guarded request would fail as terminated.
		return nil, err
	default:
		s.Log.Warn("device session not opened", zap.String("user_id", u.ID), zap.Error(err))
	}

	access, _, accessExp, err := s.Tokens.IssueAccess(subjectOf(u))
	if err != nil {
		return nil, err
	}
	res.AccessToken = access
	res.AccessExpiresAt = accessExp

	refresh, _, err := s.Tokens.IssueRefresh(u.ID)
	if err != nil {
		return nil, err
	}
	if _, err := s.Ledger.CreateSession(ctx, u.ID, refresh, s.Tokens.RefreshTTL(), deviceID); err != nil {
		s.Log.Warn("refresh session not stored; issuing access token only", zap.String("user_id", u.ID), zap.Error(err))
	} else {
		res.RefreshToken = refresh
		res.RefreshExpiresIn = seconds(s.Tokens.RefreshTTL())
	}

	s.Audit.Record(ctx, u.ID, audit.ActionLoginSuccess, "", map[string]any{"session_id": res.SessionID})
	return res, nil
}

// RefreshResult is a newly minted access token.
type RefreshResult struct {
	AccessToken string
	ExpiresAt   time.Time
	ExpiresIn   int64
}

// Refresh mints a new access token for a usable refresh token. The refresh token is not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, autherr.Validation("Refresh token is required")
	}
	claims, err := s.Tokens.ParseRefresh(refreshToken)
	if err != nil {
		if errors.Is(err, autherr.ErrWrongTokenType) {
			return nil, err
		}
		return nil, autherr.Wrap(autherr.ErrInvalidRefreshToken, err)
	}
	if err := s.Ledger.Check(ctx, refreshToken, claims.UserID); err != nil {
		if autherr.KindOf(err) != autherr.KindUnavailable {
			s.Log.Info("refresh rejected", zap.String("user_id", claims.UserID), zap.String("reason", codeOf(err)))
		}
		return nil, err
	}

	lookupCtx, cancel := bound(ctx, s.opts.StoreTimeout)
	u, err := s.Users.GetByID(lookupCtx, claims.UserID)
	cancel()
	if err != nil {
		return nil, autherr.Unavailable(err)
	}
	if u == nil || !u.IsActive {
		return nil, autherr.ErrUserNotFound
	}
	if u.IsLockedOut {
		return nil, autherr.ErrAccountLocked
	}

	access, _, exp, err := s.Tokens.IssueAccess(subjectOf(u))
	if err != nil {
		return nil, err
	}
	s.Audit.Record(ctx, u.ID, audit.ActionTokenRefreshed, "", nil)
	return &RefreshResult{AccessToken: access, ExpiresAt: exp, ExpiresIn: seconds(s.Tokens.AccessTTL())}, nil
}

// LogoutInput is the logout request. AccessToken is the bearer token sent with the request, if any;
// its jti is revoked so the token stops working before it expires.
type LogoutInput struct {
	RefreshToken string
	LogoutAll    bool
	AccessToken  string
}

// LogoutResult reports what logout did. Logout succeeds even when nothing matched.
type LogoutResult struct {
	Message string
	Revoked int64
}

// Logout revokes the refresh session (or all sessions of the user) and closes the linked
// device sessions. It never fails for token problems: a token that cannot be decoded is
// still looked up by its hash, and a token that matches nothing is already logged out.
func (s *AuthService) Logout(ctx context.Context, in LogoutInput) (*LogoutResult, error) {
	if strings.TrimSpace(in.RefreshToken) == "" {
		return nil, autherr.Validation("Refresh token is required")
	}
	s.revokePresentedAccess(ctx, in.AccessToken)

	done := &LogoutResult{Message: "Logged out successfully"}
	userID, sess := s.resolveRefreshOwner(ctx, in.RefreshToken)
	if userID == "" {
		return done, nil
	}

	if in.LogoutAll {
		n, err := s.Ledger.RevokeAll(ctx, userID)
		if err != nil {
			s.Log.Warn("logout: revoke all sessions", zap.String("user_id", userID), zap.Error(err))
		}
		if _, err := s.Devices.CloseAll(ctx, userID); err != nil {
			s.Log.Warn("logout: close device sessions", zap.String("user_id", userID), zap.Error(err))
		}
		s.Audit.Record(ctx, userID, audit.ActionLogoutAll, "", map[string]any{"revoked": n})
		return &LogoutResult{Message: fmt.Sprintf("Logged out from all devices (%d tokens revoked)", n), Revoked: n}, nil
	}

	n, err := s.Ledger.Revoke(ctx, in.RefreshToken, userID)
	if err != nil {
		s.Log.Warn("logout: revoke session", zap.String("user_id", userID), zap.Error(err))
	}
	if sess != nil && sess.DeviceSessionID != "" {
		if _, err := s.Devices.Close(ctx, sess.DeviceSessionID, userID); err != nil {
			s.Log.Warn("logout: close device session", zap.String("user_id", userID), zap.Error(err))
		}
	}
	s.Audit.Record(ctx, userID, audit.ActionLogout, "", map[string]any{"revoked": n})
	done.Revoked = n
	return done, nil
}

// resolveRefreshOwner finds the user a refresh token belongs to: from its claims when it
// decodes, else from the ledger row stored for the raw string.
func (s *AuthService) resolveRefreshOwner(ctx context.Context, refreshToken string) (string, *sessiondomain.Session) {
	sess, err := s.Ledger.Find(ctx, refreshToken)
	if err != nil {
		s.Log.Warn("logout: session lookup", zap.Error(err))
	}
	if claims, err := s.Tokens.ParseRefresh(refreshToken); err == nil {
		if sess != nil && sess.UserID != claims.UserID {
			sess = nil
		}
		return claims.UserID, sess
	}
	if sess != nil {
		return sess.UserID, sess
	}
	return "", nil
}

func (s *AuthService) revokePresentedAccess(ctx context.Context, accessToken string) {
	if accessToken == "" || s.Revocations == nil {
		return
	}
	claims, err := s.Tokens.ParseAccess(accessToken)
	if err != nil || claims.JTI == "" {
		return
	}
	if err := s.Revocations.Revoke(ctx, claims.JTI, claims.UserID, "logout"); err != nil {
		s.Log.Warn("logout: revoke access token", zap.String("user_id", claims.UserID), zap.Error(err))
	}
}

// Profile returns the user without the password hash. Deactivated users are not found.
func (s *AuthService) Profile(ctx context.Context, userID string) (*userdomain.User, error) {
	lookupCtx, cancel := bound(ctx, s.opts.StoreTimeout)
	defer cancel()
	u, err := s.Users.GetByID(lookupCtx, userID)
	if err != nil {
		return nil, autherr.Unavailable(err)
	}
	if u == nil || !u.IsActive {
		return nil, autherr.ErrUserNotFound
	}
	return u.Public(), nil
}

// Sessions returns the active device sessions of the user.
func (s *AuthService) Sessions(ctx context.Context, userID string) ([]*devicedomain.DeviceSession, error) {
	return s.Devices.List(ctx, userID)
}

func subjectOf(u *userdomain.User) security.AccessSubject {
	return security.AccessSubject{UserID: u.ID, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName}
}

func seconds(d time.Duration) int64 {
	return int64(d / time.Second)
}

func codeOf(err error) string {
	if e, ok := autherr.As(err); ok {
		return e.Code
	}
	return "unknown"
}
