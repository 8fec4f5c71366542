package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"authgate/backend/internal/audit"
	"authgate/backend/internal/authz"
	"authgate/backend/internal/device"
	"authgate/backend/internal/revocation"
	"authgate/backend/internal/security"
	"authgate/backend/internal/session"
	"authgate/backend/internal/store/memory"
)

const testPassword = "Abcdef1!"

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	auth   *AuthService
	admin  *AdminService
	guard  *authz.Guard
	store  *memory.Store
	tokens *security.TokenProvider
	clock  *testClock
}

func newFixture(t *testing.T, checks bool) *fixture {
	t.Helper()
	clock := &testClock{t: time.Now().Truncate(time.Second)}
	tokens, err := security.NewTestTokenProviderAt(clock.Now)
	if err != nil {
		t.Fatalf("NewTestTokenProviderAt: %v", err)
	}
	store := memory.New()
	hasher := security.NewHasher(4)
	devices := device.NewTracker(store.Devices, time.Second, clock.Now)
	index := revocation.NewIndex(store.Revocations, time.Second, clock.Now)
	deps := Deps{
		Users:       store.Users,
		Verifier:    NewCredentialVerifier(store.Users, hasher, time.Second, clock.Now),
		Hasher:      hasher,
		Tokens:      tokens,
		Ledger:      session.NewLedger(store.Sessions, time.Second, clock.Now),
		Devices:     devices,
		Revocations: index,
		Audit:       audit.NewLogger(store.SecurityLog, nil, nil, nil),
	}
	guard := authz.NewGuard(tokens, store.Users, index, devices,
		authz.Config{EnableRevocationChecks: checks, StoreTimeout: time.Second}, nil)
	return &fixture{
		auth:   NewAuthService(deps, Options{EnableRevocationChecks: checks, StoreTimeout: time.Second}),
		admin:  NewAdminService(deps, time.Second),
		guard:  guard,
		store:  store,
		tokens: tokens,
		clock:  clock,
	}
}

func (f *fixture) register(t *testing.T, email string) string {
	t.Helper()
	u, err := f.auth.Register(context.Background(), RegisterInput{
		Email: email, Password: testPassword, FirstName: "Ada", LastName: "Lovelace",
	})
	if err != nil {
		t.Fatalf("Register(%s): %v", email, err)
	}
	return u.ID
}

func (f *fixture) login(t *testing.T, email string) *LoginResult {
	t.Helper()
	res, err := f.auth.Login(context.Background(), LoginInput{Email: email, Password: testPassword, DeviceInfo: "test-agent", IPAddress: "127.0.0.1"})
	if err != nil {
		t.Fatalf("Login(%s): %v", email, err)
	}
	return res
}

func bearer(token string) string { return "Bearer " + token }
