package health

import (
	"context"
	"errors"
	"testing"
)

// mockPinger implements Pinger for tests.
type mockPinger struct {
	pingErr error
}

func (m *mockPinger) PingContext(context.Context) error {
	return m.pingErr
}

// mockPolicyChecker implements PolicyChecker for tests.
type mockPolicyChecker struct {
	healthErr error
}

func (m *mockPolicyChecker) HealthCheck(context.Context) error {
	return m.healthErr
}

func TestCheck_NoDependencies(t *testing.T) {
	r := NewChecker(nil, nil, 0).Check(context.Background())
	if !r.Ready || len(r.Checks) != 0 {
		t.Errorf("report = %+v, want ready with no checks", r)
	}
}

func TestCheck_NilPingerSkipped(t *testing.T) {
	r := NewChecker(map[string]Pinger{"postgres": nil}, nil, 0).Check(context.Background())
	if !r.Ready {
		t.Errorf("report = %+v, want ready", r)
	}
	if _, ok := r.Checks["postgres"]; ok {
		t.Error("nil pinger should be skipped")
	}
}

func TestCheck_PingerSuccess(t *testing.T) {
	r := NewChecker(map[string]Pinger{"postgres": &mockPinger{}}, &mockPolicyChecker{}, 0).Check(context.Background())
	if !r.Ready || r.Checks["postgres"] != "ok" || r.Checks["policy"] != "ok" {
		t.Errorf("report = %+v", r)
	}
}

func TestCheck_PingerFailure(t *testing.T) {
	c := NewChecker(map[string]Pinger{
		"postgres": &mockPinger{},
		"redis":    PingFunc(func(context.Context) error { return errors.New("connection refused") }),
	}, nil, 0)
	r := c.Check(context.Background())
	if r.Ready {
		t.Error("report should not be ready")
	}
	if r.Checks["redis"] != "connection refused" || r.Checks["postgres"] != "ok" {
		t.Errorf("checks = %v", r.Checks)
	}
}

func TestCheck_PolicyCheckerFailure(t *testing.T) {
	r := NewChecker(nil, &mockPolicyChecker{healthErr: errors.New("rego compile failed")}, 0).Check(context.Background())
	if r.Ready || r.Checks["policy"] != "rego compile failed" {
		t.Errorf("report = %+v, want policy failure", r)
	}
}
