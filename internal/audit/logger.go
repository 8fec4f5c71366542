// Package audit writes the security log: logins, logouts, lockouts and revocations.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"authgate/backend/internal/audit/domain"
	auditrepo "authgate/backend/internal/audit/repository"
	"authgate/backend/internal/telemetry"
)

// Security log actions.
const (
	ActionRegistered         = "user_registered"
	ActionLoginSuccess       = "login_success"
	ActionLoginFailure       = "login_failure"
	ActionTokenRefreshed     = "token_refreshed"
	ActionLogout             = "logout"
	ActionLogoutAll          = "logout_all"
	ActionEmergencyLockout   = "emergency_lockout"
	ActionAccountUnlocked    = "account_unlocked"
	ActionSessionsTerminated = "sessions_terminated"
	ActionTokenRevoked       = "token_revoked"
)

// IPExtractor returns the client IP from the request context.
type IPExtractor func(context.Context) string

// SecurityLogger records one security event. Record is best-effort: failures are logged
// and never affect the caller.
type SecurityLogger interface {
	Record(ctx context.Context, userID, action, reason string, metadata map[string]any)
}

// Logger implements SecurityLogger: it persists to the repository, mirrors to zap and
// forwards to the emitter (Kafka, OTel logs) asynchronously.
type Logger struct {
	repo        auditrepo.Repository
	ipExtractor IPExtractor
	emitter     telemetry.EventEmitter
	log         *zap.Logger
	now         func() time.Time
}

// NewLogger returns a Logger. repo, emitter and log may be nil. ipExtractor may be nil;
// then ClientIP is used.
func NewLogger(repo auditrepo.Repository, ipExtractor IPExtractor, emitter telemetry.EventEmitter, log *zap.Logger) *Logger {
	if ipExtractor == nil {
		ipExtractor = ClientIP
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Logger{repo: repo, ipExtractor: ipExtractor, emitter: emitter, log: log.Named("security"), now: time.Now}
}

// Record writes one security event.
func (l *Logger) Record(ctx context.Context, userID, action, reason string, metadata map[string]any) {
	ip := l.ipExtractor(ctx)
	if ip == "" {
		ip = "unknown"
	}
	event := &domain.SecurityEvent{
		ID:        uuid.New().String(),
		UserID:    userID,
		Action:    action,
		Reason:    reason,
		IP:        ip,
		Metadata:  metadata,
		CreatedAt: l.now().UTC(),
	}
	l.log.Info("security event",
		zap.String("action", action),
		zap.String("user_id", userID),
		zap.String("reason", reason),
		zap.String("ip", ip),
	)
	if l.repo != nil {
		if err := l.repo.Create(ctx, event); err != nil {
			l.log.Warn("failed to persist security event", zap.String("action", action), zap.Error(err))
		}
	}
	telemetry.EmitAsync(l.emitter, ctx, event)
}

type clientIPKey struct{}

// WithClientIP returns a context carrying the caller's IP for Record.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

// ClientIP returns the IP stored by WithClientIP, or "".
func ClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}
