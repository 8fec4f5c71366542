package security

import "time"

// TestSecret is the HS256 secret used by unit tests. Do not use in production.
const TestSecret = "test-secret-do-not-use-in-production-0123456789"

const (
	TestIssuer   = "test-issuer"
	TestAudience = "test-audience"
)

// NewTestTokenProvider returns a TokenProvider using TestSecret, a 15m access TTL,
// a 24h refresh TTL and jti minting on. For unit tests only.
func NewTestTokenProvider() (*TokenProvider, error) {
	return NewTestTokenProviderAt(nil)
}

// NewTestTokenProviderAt is NewTestTokenProvider with an injected clock. nil means time.Now.
func NewTestTokenProviderAt(now func() time.Time) (*TokenProvider, error) {
	codec, err := NewCodec([]byte(TestSecret), WithClock(now))
	if err != nil {
		return nil, err
	}
	return NewTokenProvider(codec, TestIssuer, TestAudience, 15*time.Minute, 24*time.Hour, true), nil
}
