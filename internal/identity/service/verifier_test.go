package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"authgate/backend/internal/autherr"
	"authgate/backend/internal/security"
	"authgate/backend/internal/store/memory"
)

type countingHasher struct {
	*security.Hasher
	verifies int
}

func (h *countingHasher) Verify(password, hash string) bool {
	h.verifies++
	return h.Hasher.Verify(password, hash)
}

func TestCredentialVerifier_Success(t *testing.T) {
	f := newFixture(t, true)
	f.register(t, "a@x.com")

	u, err := f.auth.Verifier.Verify(context.Background(), "  A@X.com ", testPassword)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if u.Email != "a@x.com" {
		t.Errorf("email = %q", u.Email)
	}
	if u.PasswordHash != "" {
		t.Error("password hash must be scrubbed")
	}
	if u.LastLogin == nil || !u.LastLogin.Equal(f.clock.Now().UTC()) {
		t.Errorf("LastLogin = %v, want now", u.LastLogin)
	}
	stored, _ := f.store.Users.GetByID(context.Background(), u.ID)
	if stored.LastLogin == nil {
		t.Error("last_login should be persisted")
	}
}

func TestCredentialVerifier_SameErrorForUnknownAndWrongPassword(t *testing.T) {
	f := newFixture(t, true)
	f.register(t, "a@x.com")
	ctx := context.Background()

	_, wrongPw := f.auth.Verifier.Verify(ctx, "a@x.com", "Wrong1!xx")
	_, unknown := f.auth.Verifier.Verify(ctx, "nobody@x.com", testPassword)
	for name, err := range map[string]error{"wrong password": wrongPw, "unknown email": unknown} {
		if !errors.Is(err, autherr.ErrInvalidCredentials) {
			t.Errorf("%s: err = %v, want ErrInvalidCredentials", name, err)
		}
	}
	if autherr.PublicMessage(wrongPw) != autherr.PublicMessage(unknown) {
		t.Errorf("messages differ: %q vs %q", autherr.PublicMessage(wrongPw), autherr.PublicMessage(unknown))
	}
}

func TestCredentialVerifier_UnknownEmailStillComparesHash(t *testing.T) {
	hasher := &countingHasher{Hasher: security.NewHasher(4)}
	v := NewCredentialVerifier(memory.New().Users, hasher, time.Second, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := v.Verify(ctx, "nobody@x.com", testPassword); !errors.Is(err, autherr.ErrInvalidCredentials) {
			t.Fatalf("err = %v, want ErrInvalidCredentials", err)
		}
	}
	if hasher.verifies != 2 {
		t.Errorf("hash comparisons = %d, want one per unknown-email attempt", hasher.verifies)
	}
	if v.dummyHash == "" {
		t.Error("dummy hash should be a real bcrypt hash")
	}
}

func TestCredentialVerifier_Locked(t *testing.T) {
	f := newFixture(t, true)
	id := f.register(t, "a@x.com")
	_, _ = f.store.Users.SetLockedOut(context.Background(), id, true, time.Now())

	if _, err := f.auth.Verifier.Verify(context.Background(), "a@x.com", testPassword); !errors.Is(err, autherr.ErrAccountLocked) {
		t.Errorf("err = %v, want ErrAccountLocked", err)
	}
}

func TestCredentialVerifier_InactiveUserIsUnknown(t *testing.T) {
	f := newFixture(t, true)
	id := f.register(t, "a@x.com")
	f.store.Users.Deactivate(id)

	if _, err := f.auth.Verifier.Verify(context.Background(), "a@x.com", testPassword); !errors.Is(err, autherr.ErrInvalidCredentials) {
		t.Errorf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestCredentialVerifier_EmailShape(t *testing.T) {
	f := newFixture(t, true)
	for _, email := range []string{"plain", "a@b", "@x.com", "a@x.c"} {
		if _, err := f.auth.Verifier.Verify(context.Background(), email, testPassword); !errors.Is(err, autherr.ErrInvalidEmailFormat) {
			t.Errorf("Verify(%q) err = %v, want ErrInvalidEmailFormat", email, err)
		}
	}
	if _, err := f.auth.Verifier.Verify(context.Background(), "", testPassword); autherr.KindOf(err) != autherr.KindValidation {
		t.Errorf("empty email err = %v, want validation", err)
	}
}

func TestCredentialVerifier_StoreFailure(t *testing.T) {
	f := newFixture(t, true)
	f.register(t, "a@x.com")
	f.store.Users.FailWith(errors.New("db down"))

	if _, err := f.auth.Verifier.Verify(context.Background(), "a@x.com", testPassword); !errors.Is(err, autherr.ErrServiceUnavailable) {
		t.Errorf("err = %v, want ErrServiceUnavailable", err)
	}
}
