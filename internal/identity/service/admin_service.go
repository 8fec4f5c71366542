package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"authgate/backend/internal/audit"
	"authgate/backend/internal/autherr"
)

// AdminService implements the operator interventions: emergency lockout, unlock, terminating
// every session of a user, and revoking a single access token.
type AdminService struct {
	Deps
	timeout time.Duration
}

// NewAdminService returns an AdminService. Only Users, Ledger, Devices, Revocations, Audit and Log are used.
func NewAdminService(deps Deps, storeTimeout time.Duration) *AdminService {
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}
	if deps.Audit == nil {
		deps.Audit = audit.NewLogger(nil, nil, nil, deps.Log)
	}
	return &AdminService{Deps: deps, timeout: storeTimeout}
}

// TerminationResult counts what TerminateAllSessions changed.
type TerminationResult struct {
	DeviceSessionsClosed int64
	RefreshTokensRevoked int64
}

// EmergencyLockout sets is_locked_out on the user. Every guarded request and every refresh
// of that user fails from the next call on; existing sessions are left in place so unlocking
// restores them.
func (s *AdminService) EmergencyLockout(ctx context.Context, operatorID, userID, reason string) error {
	if err := s.setLocked(ctx, userID, true); err != nil {
		return err
	}
	s.Log.Warn("emergency lockout", zap.String("user_id", userID), zap.String("operator_id", operatorID), zap.String("reason", reason))
	s.Audit.Record(ctx, userID, audit.ActionEmergencyLockout, reason, map[string]any{"operator_id": operatorID})
	return nil
}

// Unlock clears is_locked_out.
func (s *AdminService) Unlock(ctx context.Context, operatorID, userID, reason string) error {
	if err := s.setLocked(ctx, userID, false); err != nil {
		return err
	}
	s.Audit.Record(ctx, userID, audit.ActionAccountUnlocked, reason, map[string]any{"operator_id": operatorID})
	return nil
}

func (s *AdminService) setLocked(ctx context.Context, userID string, locked bool) error {
	if userID == "" {
		return autherr.Validation("User id is required")
	}
	callCtx, cancel := bound(ctx, s.timeout)
	defer cancel()
	found, err := s.Users.SetLockedOut(callCtx, userID, locked, time.Now().UTC())
	if err != nil {
		return autherr.Unavailable(err)
	}
	if !found {
		return autherr.ErrUserNotFound
	}
	return nil
}

// TerminateAllSessions closes every device session of the user and revokes all their refresh
// tokens. Access tokens already issued fail the guard's active-session check afterwards.
func (s *AdminService) TerminateAllSessions(ctx context.Context, operatorID, userID, reason string) (*TerminationResult, error) {
	if userID == "" {
		return nil, autherr.Validation("User id is required")
	}
	closed, err := s.Devices.CloseAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	revoked, err := s.Ledger.RevokeAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	res := &TerminationResult{DeviceSessionsClosed: closed, RefreshTokensRevoked: revoked}
	s.Audit.Record(ctx, userID, audit.ActionSessionsTerminated, reason, map[string]any{
		"operator_id":     operatorID,
		"devices_closed":  closed,
		"refresh_revoked": revoked,
	})
	return res, nil
}

// RevokeAccessToken adds jti of userID to the revocation index.
func (s *AdminService) RevokeAccessToken(ctx context.Context, operatorID, userID, jti, reason string) error {
	if err := s.Revocations.Revoke(ctx, jti, userID, reason); err != nil {
		return err
	}
	s.Audit.Record(ctx, userID, audit.ActionTokenRevoked, reason, map[string]any{"operator_id": operatorID, "jti": jti})
	return nil
}
