package service

import (
	"context"
	"errors"
	"testing"

	"authgate/backend/internal/audit"
	"authgate/backend/internal/autherr"
)

func TestAdminService_EmergencyLockout(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	id := f.register(t, "a@x.com")
	res := f.login(t, "a@x.com")

	if err := f.admin.EmergencyLockout(ctx, "op-1", id, "suspicious activity"); err != nil {
		t.Fatalf("EmergencyLockout: %v", err)
	}
	if _, err := f.guard.Authorize(ctx, bearer(res.AccessToken)); !errors.Is(err, autherr.ErrAccountLocked) {
		t.Errorf("Authorize err = %v, want ErrAccountLocked", err)
	}
	if _, err := f.auth.Refresh(ctx, res.RefreshToken); !errors.Is(err, autherr.ErrAccountLocked) {
		t.Errorf("Refresh err = %v, want ErrAccountLocked", err)
	}
	if _, err := f.auth.Login(ctx, LoginInput{Email: "a@x.com", Password: testPassword}); !errors.Is(err, autherr.ErrAccountLocked) {
		t.Errorf("Login err = %v, want ErrAccountLocked", err)
	}

	if err := f.admin.Unlock(ctx, "op-1", id, "cleared"); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if _, err := f.guard.Authorize(ctx, bearer(res.AccessToken)); err != nil {
		t.Errorf("Authorize after unlock: %v", err)
	}

	actions := f.store.SecurityLog.Actions()
	if actions[len(actions)-1] != audit.ActionAccountUnlocked {
		t.Errorf("last action = %q, want %q", actions[len(actions)-1], audit.ActionAccountUnlocked)
	}
}

func TestAdminService_LockoutPrecedesRevocation(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	id := f.register(t, "a@x.com")
	res := f.login(t, "a@x.com")
	claims, _ := f.tokens.ParseAccess(res.AccessToken)

	if err := f.admin.RevokeAccessToken(ctx, "op-1", id, claims.JTI, "leaked"); err != nil {
		t.Fatalf("RevokeAccessToken: %v", err)
	}
	if err := f.admin.EmergencyLockout(ctx, "op-1", id, ""); err != nil {
		t.Fatalf("EmergencyLockout: %v", err)
	}
	if _, err := f.guard.Authorize(ctx, bearer(res.AccessToken)); !errors.Is(err, autherr.ErrAccountLocked) {
		t.Errorf("err = %v, want ErrAccountLocked before ErrTokenRevoked", err)
	}
}

func TestAdminService_LockoutUnknownUser(t *testing.T) {
	f := newFixture(t, true)
	if err := f.admin.EmergencyLockout(context.Background(), "op-1", "missing", ""); !errors.Is(err, autherr.ErrUserNotFound) {
		t.Errorf("err = %v, want ErrUserNotFound", err)
	}
	if err := f.admin.EmergencyLockout(context.Background(), "op-1", "", ""); autherr.KindOf(err) != autherr.KindValidation {
		t.Errorf("empty id err = %v, want validation", err)
	}
}

func TestAdminService_TerminateAllSessions(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	id := f.register(t, "a@x.com")
	first := f.login(t, "a@x.com")
	f.login(t, "a@x.com")

	res, err := f.admin.TerminateAllSessions(ctx, "op-1", id, "compromised")
	if err != nil {
		t.Fatalf("TerminateAllSessions: %v", err)
	}
	if res.DeviceSessionsClosed != 2 || res.RefreshTokensRevoked != 2 {
		t.Errorf("result = %+v, want 2 and 2", res)
	}
	if _, err := f.guard.Authorize(ctx, bearer(first.AccessToken)); !errors.Is(err, autherr.ErrAllSessionsTerminated) {
		t.Errorf("Authorize err = %v, want ErrAllSessionsTerminated", err)
	}
	if _, err := f.auth.Refresh(ctx, first.RefreshToken); !errors.Is(err, autherr.ErrTokenRevoked) {
		t.Errorf("Refresh err = %v, want ErrTokenRevoked", err)
	}

	// A fresh login works again.
	again := f.login(t, "a@x.com")
	if _, err := f.guard.Authorize(ctx, bearer(again.AccessToken)); err != nil {
		t.Errorf("Authorize after new login: %v", err)
	}
}

func TestAdminService_TerminateAllSessions_StoreFailure(t *testing.T) {
	f := newFixture(t, true)
	id := f.register(t, "a@x.com")
	f.store.Devices.FailWith(errors.New("down"))
	if _, err := f.admin.TerminateAllSessions(context.Background(), "op-1", id, ""); !errors.Is(err, autherr.ErrServiceUnavailable) {
		t.Errorf("err = %v, want ErrServiceUnavailable", err)
	}
}

func TestAdminService_RevokeAccessToken(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	id := f.register(t, "a@x.com")
	res := f.login(t, "a@x.com")
	claims, _ := f.tokens.ParseAccess(res.AccessToken)

	if err := f.admin.RevokeAccessToken(ctx, "op-1", id, claims.JTI, "leaked"); err != nil {
		t.Fatalf("RevokeAccessToken: %v", err)
	}
	if _, err := f.guard.Authorize(ctx, bearer(res.AccessToken)); !errors.Is(err, autherr.ErrTokenRevoked) {
		t.Errorf("Authorize err = %v, want ErrTokenRevoked", err)
	}
	rev, ok := f.store.Revocations.Get(id, claims.JTI)
	if !ok || rev.Reason != "leaked" {
		t.Errorf("stored revocation = %+v, %v", rev, ok)
	}
	// Refresh is unaffected by access token revocation.
	if _, err := f.auth.Refresh(ctx, res.RefreshToken); err != nil {
		t.Errorf("Refresh: %v", err)
	}

	if err := f.admin.RevokeAccessToken(ctx, "op-1", id, "", ""); !errors.Is(err, autherr.ErrNotRevocable) {
		t.Errorf("empty jti err = %v, want ErrNotRevocable", err)
	}
}

func TestAdminService_RevocationChecksDisabled(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	id := f.register(t, "a@x.com")
	res := f.login(t, "a@x.com")
	claims, _ := f.tokens.ParseAccess(res.AccessToken)

	_ = f.admin.RevokeAccessToken(ctx, "op-1", id, claims.JTI, "")
	_ = f.admin.EmergencyLockout(ctx, "op-1", id, "")
	if _, err := f.guard.Authorize(ctx, bearer(res.AccessToken)); err != nil {
		t.Errorf("basic mode Authorize: %v", err)
	}
}
