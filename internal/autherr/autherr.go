// Package autherr defines the failure taxonomy shared by the token, session and guard code.
// Transports map an error's Kind to a status code and show Message to the client.
package autherr

import (
	"errors"
	"fmt"
)

// Kind groups errors by how a transport reports them.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindInvalidCredentials
	KindAccountLocked
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindAccountLocked:
		return "account_locked"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Error is a classified failure. Code is stable and goes to logs and audit records;
// Message is safe to return to clients.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Code }

// Is matches any *Error with the same Code, so errors built by Validation match ErrValidation.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Request shape.
var (
	ErrMissingAuthHeader   = newError(KindUnauthorized, "missing_auth_header", "Authorization header missing")
	ErrMalformedAuthHeader = newError(KindUnauthorized, "malformed_auth_header", "Invalid authorization header format")
	ErrInvalidEmailFormat  = newError(KindValidation, "invalid_email_format", "Invalid email format")
	ErrValidation          = newError(KindValidation, "validation_failed", "Validation failed")
)

// Token codec and claims. Clients only ever see "Unauthorized" for these.
var (
	ErrMalformedToken   = newError(KindUnauthorized, "malformed_token", "Unauthorized")
	ErrInvalidSignature = newError(KindUnauthorized, "invalid_signature", "Unauthorized")
	ErrTokenExpired     = newError(KindUnauthorized, "token_expired", "Unauthorized")
	ErrInvalidClaims    = newError(KindUnauthorized, "invalid_claims", "Unauthorized")
	ErrUnauthorized     = newError(KindUnauthorized, "unauthorized", "Unauthorized")
)

// Credentials and account state.
var (
	ErrInvalidCredentials     = newError(KindInvalidCredentials, "invalid_credentials", "Invalid credentials")
	ErrAccountLocked          = newError(KindAccountLocked, "account_locked", "Account has been locked for security reasons")
	ErrEmailAlreadyRegistered = newError(KindConflict, "email_already_registered", "Email already registered")
	ErrUserNotFound           = newError(KindNotFound, "user_not_found", "User not found")
)

// Revocation and refresh.
var (
	ErrTokenRevoked          = newError(KindUnauthorized, "token_revoked", "Token has been revoked")
	ErrAllSessionsTerminated = newError(KindUnauthorized, "all_sessions_terminated", "All sessions have been terminated")
	ErrInvalidRefreshToken   = newError(KindUnauthorized, "invalid_refresh_token", "Invalid or expired refresh token")
	ErrWrongTokenType        = newError(KindUnauthorized, "wrong_token_type", "Invalid token type")
	ErrRefreshTokenNotFound  = newError(KindUnauthorized, "refresh_token_not_found", "Invalid refresh token")
	ErrRefreshTokenExpired   = newError(KindUnauthorized, "refresh_token_expired", "Refresh token has expired")
	ErrNotRevocable          = newError(KindValidation, "not_revocable", "Token has no jti and cannot be revoked individually")
)

// Authorization and infrastructure.
var (
	ErrForbidden          = newError(KindForbidden, "forbidden", "Forbidden")
	ErrServiceUnavailable = newError(KindUnavailable, "service_unavailable", "Service temporarily unavailable")
)

// Wrap attaches cause to base so that errors.Is matches both and KindOf reports base's kind.
func Wrap(base *Error, cause error) error {
	if cause == nil {
		return base
	}
	return fmt.Errorf("%w: %w", base, cause)
}

// Unavailable classifies a store or infrastructure failure. Nil stays nil.
func Unavailable(cause error) error {
	if cause == nil {
		return nil
	}
	if errors.Is(cause, ErrServiceUnavailable) {
		return cause
	}
	return Wrap(ErrServiceUnavailable, cause)
}

// Validation returns a validation error carrying a client-facing message.
func Validation(message string) error {
	return &Error{Kind: KindValidation, Code: ErrValidation.Code, Message: message}
}

// As returns the outermost classified error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf reports the kind of err, or KindUnknown for unclassified errors.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindUnknown
}

// PublicMessage returns the client-facing message for err.
func PublicMessage(err error) string {
	if e, ok := As(err); ok {
		return e.Message
	}
	return "Internal server error"
}
