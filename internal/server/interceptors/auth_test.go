package interceptors

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"authgate/backend/internal/autherr"
	"authgate/backend/internal/authz"
	"authgate/backend/internal/device"
	"authgate/backend/internal/revocation"
	"authgate/backend/internal/security"
	"authgate/backend/internal/store/memory"
	userdomain "authgate/backend/internal/user/domain"
)

type guardFixture struct {
	guard  *authz.Guard
	tokens *security.TokenProvider
	index  *revocation.Index
	store  *memory.Store
}

func newGuardFixture(t *testing.T) *guardFixture {
	t.Helper()
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("NewTestTokenProvider: %v", err)
	}
	store := memory.New()
	ctx := context.Background()
	if err := store.Users.Create(ctx, &userdomain.User{ID: "user-1", Email: "a@x.com", PasswordHash: "h", IsActive: true}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	devices := device.NewTracker(store.Devices, time.Second, nil)
	if _, err := devices.Open(ctx, "user-1", "test", "127.0.0.1"); err != nil {
		t.Fatalf("open device session: %v", err)
	}
	index := revocation.NewIndex(store.Revocations, time.Second, nil)
	guard := authz.NewGuard(tokens, store.Users, index, devices, authz.Config{EnableRevocationChecks: true, StoreTimeout: time.Second}, nil)
	return &guardFixture{guard: guard, tokens: tokens, index: index, store: store}
}

func (f *guardFixture) token(t *testing.T) (string, string) {
	t.Helper()
	token, jti, _, err := f.tokens.IssueAccess(security.AccessSubject{UserID: "user-1", Email: "a@x.com"})
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	return token, jti
}

func withAuth(value string) context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", value))
}

var okHandler = func(ctx context.Context, req interface{}) (interface{}, error) {
	return authz.UserID(ctx), nil
}

func TestAuthUnary_PublicMethod(t *testing.T) {
	f := newGuardFixture(t)
	interceptor := AuthUnary(f.guard, map[string]bool{"/test.Service/PublicMethod": true})

	resp, err := interceptor(context.Background(), "request", &grpc.UnaryServerInfo{FullMethod: "/test.Service/PublicMethod"}, okHandler)
	if err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	if resp != "" {
		t.Errorf("public call should carry no identity, got %v", resp)
	}
}

func TestAuthUnary_ProtectedMethod_NoToken(t *testing.T) {
	f := newGuardFixture(t)
	interceptor := AuthUnary(f.guard, nil)

	_, err := interceptor(context.Background(), "request", &grpc.UnaryServerInfo{FullMethod: "/test.Service/Protected"}, okHandler)
	st, ok := status.FromError(err)
	if !ok || st.Code() != codes.Unauthenticated {
		t.Fatalf("err = %v, want Unauthenticated", err)
	}
	if st.Message() != "Authorization header missing" {
		t.Errorf("message = %q", st.Message())
	}
}

func TestAuthUnary_ProtectedMethod_ValidToken(t *testing.T) {
	f := newGuardFixture(t)
	token, _ := f.token(t)
	interceptor := AuthUnary(f.guard, nil)

	resp, err := interceptor(withAuth("bearer "+token), "request", &grpc.UnaryServerInfo{FullMethod: "/test.Service/Protected"}, okHandler)
	if err != nil {
		t.Fatalf("interceptor: %v", err)
	}
	if resp != "user-1" {
		t.Errorf("user id in handler = %v, want user-1", resp)
	}
}

func TestAuthUnary_ProtectedMethod_InvalidToken(t *testing.T) {
	f := newGuardFixture(t)
	interceptor := AuthUnary(f.guard, nil)

	_, err := interceptor(withAuth("Bearer nope"), "request", &grpc.UnaryServerInfo{FullMethod: "/test.Service/Protected"}, okHandler)
	if status.Code(err) != codes.Unauthenticated {
		t.Errorf("code = %v, want Unauthenticated", status.Code(err))
	}
}

func TestAuthUnary_RevokedToken(t *testing.T) {
	f := newGuardFixture(t)
	token, jti := f.token(t)
	if err := f.index.Revoke(context.Background(), jti, "user-1", "test"); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	interceptor := AuthUnary(f.guard, nil)

	_, err := interceptor(withAuth("Bearer "+token), "request", &grpc.UnaryServerInfo{FullMethod: "/test.Service/Protected"}, okHandler)
	st, _ := status.FromError(err)
	if st.Code() != codes.Unauthenticated || st.Message() != "Token has been revoked" {
		t.Errorf("status = %v %q, want Unauthenticated revoked", st.Code(), st.Message())
	}
}

func TestAuthUnary_StoreFailure(t *testing.T) {
	f := newGuardFixture(t)
	token, _ := f.token(t)
	f.store.Revocations.FailWith(errors.New("down"))
	interceptor := AuthUnary(f.guard, nil)

	_, err := interceptor(withAuth("Bearer "+token), "request", &grpc.UnaryServerInfo{FullMethod: "/test.Service/Protected"}, okHandler)
	if status.Code(err) != codes.Unavailable {
		t.Errorf("code = %v, want Unavailable", status.Code(err))
	}
}

func TestStatusError(t *testing.T) {
	cases := []struct {
		err  error
		want codes.Code
	}{
		{autherr.Validation("x"), codes.InvalidArgument},
		{autherr.ErrAccountLocked, codes.Unauthenticated},
		{autherr.ErrForbidden, codes.PermissionDenied},
		{autherr.ErrUserNotFound, codes.NotFound},
		{autherr.ErrEmailAlreadyRegistered, codes.AlreadyExists},
		{autherr.Unavailable(errors.New("x")), codes.Unavailable},
		{errors.New("x"), codes.Internal},
	}
	for _, c := range cases {
		if got := status.Code(StatusError(c.err)); got != c.want {
			t.Errorf("StatusError(%v) = %v, want %v", c.err, got, c.want)
		}
	}
	if StatusError(nil) != nil {
		t.Error("StatusError(nil) should be nil")
	}
}
