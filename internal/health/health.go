// Package health reports liveness and readiness of the service and its stores.
package health

import (
	"context"
	"sync"
	"time"
)

// Pinger is implemented by *sql.DB and by the Redis ping adapter.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker verifies the operator policy engine (e.g. OPA) is healthy.
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// Report is the readiness result. Checks maps each dependency to "ok" or its error text.
type Report struct {
	Ready  bool              `json:"ready"`
	Checks map[string]string `json:"checks"`
}

// Checker runs the readiness checks. A nil dependency is skipped.
type Checker struct {
	pingers map[string]Pinger
	policy  PolicyChecker
	timeout time.Duration
}

// NewChecker returns a Checker. pingers maps a dependency name ("postgres", "redis") to its pinger.
func NewChecker(pingers map[string]Pinger, policy PolicyChecker, timeout time.Duration) *Checker {
	clean := make(map[string]Pinger, len(pingers))
	for name, p := range pingers {
		if p != nil {
			clean[name] = p
		}
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Checker{pingers: clean, policy: policy, timeout: timeout}
}

// Check runs every check concurrently. Ready is false if any check failed.
func (c *Checker) Check(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		out = Report{Ready: true, Checks: map[string]string{}}
	)
	record := func(name string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			out.Ready = false
			out.Checks[name] = err.Error()
			return
		}
		out.Checks[name] = "ok"
	}
	for name, p := range c.pingers {
		wg.Add(1)
		go func(name string, p Pinger) {
			defer wg.Done()
			record(name, p.PingContext(ctx))
		}(name, p)
	}
	if c.policy != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			record("policy", c.policy.HealthCheck(ctx))
		}()
	}
	wg.Wait()
	return out
}
