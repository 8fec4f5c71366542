package service

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"authgate/backend/internal/autherr"
	userdomain "authgate/backend/internal/user/domain"
)

// emailPattern is the local@domain.tld shape accepted for login and registration.
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// PasswordHasher is the hashing contract the verifier and registration rely on.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// UserStore is the user persistence the auth code needs.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*userdomain.User, error)
	GetByEmail(ctx context.Context, email string) (*userdomain.User, error)
	GetActiveByEmail(ctx context.Context, email string) (*userdomain.User, error)
	Create(ctx context.Context, u *userdomain.User) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
	SetLockedOut(ctx context.Context, id string, locked bool, at time.Time) (bool, error)
}

// CredentialVerifier checks an email and password against the user store.
type CredentialVerifier struct {
	users   UserStore
	hasher  PasswordHasher
	timeout time.Duration
	now     func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// dummyPassword is hashed once at the configured cost; unknown emails are compared
// against it so they take as long as a wrong password.
const dummyPassword = "authgate-unknown-account"

// NewCredentialVerifier returns a verifier. now may be nil, in which case time.Now is used.
func NewCredentialVerifier(users UserStore, hasher PasswordHasher, timeout time.Duration, now func() time.Time) *CredentialVerifier {
	if now == nil {
		now = time.Now
	}
	return &CredentialVerifier{users: users, hasher: hasher, timeout: timeout, now: now}
}

// Verify returns the active user for email when password matches, with the hash scrubbed.
// Unknown emails and wrong passwords both fail with autherr.ErrInvalidCredentials; a locked
// account fails with autherr.ErrAccountLocked before the password is compared.
// On success last_login is set to now.
func (v *CredentialVerifier) Verify(ctx context.Context, email, password string) (*userdomain.User, error) {
	email, err := NormalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if password == "" {
		return nil, autherr.ErrInvalidCredentials
	}
	lookupCtx, cancel := bound(ctx, v.timeout)
	u, err := v.users.GetActiveByEmail(lookupCtx, email)
	cancel()
	if err != nil {
		return nil, autherr.Unavailable(err)
	}
	if u == nil {
		v.hasher.Verify(password, v.dummy())
		return nil, autherr.ErrInvalidCredentials
	}
	if u.IsLockedOut {
		return nil, autherr.ErrAccountLocked
	}
	if !v.hasher.Verify(password, u.PasswordHash) {
		return nil, autherr.ErrInvalidCredentials
	}
	now := v.now().UTC()
	updateCtx, cancel := bound(ctx, v.timeout)
	defer cancel()
	if err := v.users.UpdateLastLogin(updateCtx, u.ID, now); err != nil {
		return nil, autherr.Unavailable(err)
	}
	u.LastLogin = &now
	return u.Public(), nil
}

func (v *CredentialVerifier) dummy() string {
	v.dummyOnce.Do(func() {
		if h, err := v.hasher.Hash(dummyPassword); err == nil {
			v.dummyHash = h
		}
	})
	return v.dummyHash
}

// NormalizeEmail trims and lower-cases email and checks its shape.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", autherr.Validation("Email and password are required")
	}
	if !emailPattern.MatchString(email) {
		return "", autherr.ErrInvalidEmailFormat
	}
	return email, nil
}

func bound(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
