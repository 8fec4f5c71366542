// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the JSON API listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// GRPCAddr is the address the gRPC introspection server listens on (e.g. :9090). Empty disables it.
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// DatabaseURL is the Postgres DSN. When empty the in-memory store is used (refused in production).
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// JWTSecret is the HS256 signing secret, inline or "file:<path>".
	JWTSecret string `mapstructure:"JWT_SECRET"`
	// JWTIssuer is the iss claim written to and required on every token.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim written to and required on every token.
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime (e.g. "1h").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// JWTRefreshTTL is the refresh token lifetime (e.g. "168h").
	JWTRefreshTTL string `mapstructure:"JWT_REFRESH_TTL"`
	// TokenClockSkew is the leeway applied to exp checks (e.g. "30s"). Default 0s.
	TokenClockSkew string `mapstructure:"TOKEN_CLOCK_SKEW"`
	// AccessTokenJTI mints a jti on access tokens so they can be revoked one by one.
	AccessTokenJTI bool `mapstructure:"ACCESS_TOKEN_JTI"`
	// EnableRevocationChecks turns on lockout, jti and device-session checks in the guard.
	EnableRevocationChecks bool `mapstructure:"ENABLE_REVOCATION_CHECKS"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// PasswordMinLength is the minimum password length accepted at registration.
	PasswordMinLength int `mapstructure:"PASSWORD_MIN_LENGTH"`
	// StoreTimeout bounds every session, revocation and user store call (e.g. "3s").
	StoreTimeout string `mapstructure:"STORE_TIMEOUT"`
	// LoginRateLimitRPM is the per-IP budget for login, register and refresh. 0 disables throttling.
	LoginRateLimitRPM int `mapstructure:"LOGIN_RATE_LIMIT_RPM"`

	// RevocationBackend selects the revocation index store: "postgres" or "redis".
	RevocationBackend string `mapstructure:"REVOCATION_BACKEND"`
	// RedisAddr is the Redis address used when RevocationBackend is "redis".
	RedisAddr string `mapstructure:"REDIS_ADDR"`
	// RedisPassword is the optional Redis password.
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	// RedisDB is the Redis logical database.
	RedisDB int `mapstructure:"REDIS_DB"`

	// OperatorEmails is a comma-separated list of users allowed to run operator actions.
	OperatorEmails string `mapstructure:"OPERATOR_EMAILS"`

	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
	// Debug exposes error detail in responses. Must not be true when Env is production.
	Debug bool `mapstructure:"API_DEBUG"`
	// APIVersion is reported by the status endpoint.
	APIVersion string `mapstructure:"API_VERSION"`
	// ServiceName is the OTel service.name and otelgin/otelgrpc server name.
	ServiceName string `mapstructure:"SERVICE_NAME"`
	// OTLPEndpoint is the OTLP gRPC collector endpoint; empty uses no-op providers.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces a plaintext OTLP connection.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`

	// SecurityKafkaBrokers is a comma-separated list of Kafka brokers for security events.
	SecurityKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// SecurityKafkaTopic is the topic security events are written to.
	SecurityKafkaTopic string `mapstructure:"SECURITY_EVENTS_TOPIC"`

	// Worker-only: Loki URL the security event worker pushes to (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
	// KafkaGroupID is the consumer group ID for the security event worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	return load(true)
}

// LoadTool is Load for the migrate, seed, worker and maintenance commands: the token
// settings are not validated since those commands never issue or check tokens.
func LoadTool() (*Config, error) {
	return load(false)
}

func load(server bool) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("GRPC_ADDR", ":9090")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ISSUER", "authgate")
	v.SetDefault("JWT_AUDIENCE", "authgate-api")
	v.SetDefault("JWT_ACCESS_TTL", "1h")
	v.SetDefault("JWT_REFRESH_TTL", "168h") // 7d
	v.SetDefault("TOKEN_CLOCK_SKEW", "0s")
	v.SetDefault("ACCESS_TOKEN_JTI", true)
	v.SetDefault("ENABLE_REVOCATION_CHECKS", true)
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("PASSWORD_MIN_LENGTH", 8)
	v.SetDefault("STORE_TIMEOUT", "3s")
	v.SetDefault("LOGIN_RATE_LIMIT_RPM", 60)
	v.SetDefault("REVOCATION_BACKEND", "postgres")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("OPERATOR_EMAILS", "")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("API_DEBUG", false)
	v.SetDefault("API_VERSION", "1.0.0")
	v.SetDefault("SERVICE_NAME", "authgate")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("SECURITY_EVENTS_TOPIC", "authgate-security-events")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("KAFKA_GROUP_ID", "authgate-security-worker")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if server {
		if cfg.HTTPAddr == "" {
			return nil, errors.New("config: HTTP_ADDR must be set")
		}
		if strings.TrimSpace(cfg.JWTSecret) == "" {
			return nil, errors.New("config: JWT_SECRET must be set")
		}
		if cfg.JWTIssuer == "" || cfg.JWTAudience == "" {
			return nil, errors.New("config: JWT_ISSUER and JWT_AUDIENCE must be set")
		}
	}

	if cfg.IsProduction() {
		if cfg.Debug {
			return nil, errors.New("config: API_DEBUG must not be true when APP_ENV=production")
		}
		if server && cfg.DatabaseURL == "" {
			return nil, errors.New("config: DATABASE_URL must be set when APP_ENV=production")
		}
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if cfg.PasswordMinLength <= 0 {
		cfg.PasswordMinLength = 8
	}

	switch cfg.RevocationBackend {
	case "", "postgres":
		cfg.RevocationBackend = "postgres"
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, errors.New("config: REDIS_ADDR must be set when REVOCATION_BACKEND=redis")
		}
	default:
		return nil, errors.New("config: REVOCATION_BACKEND must be postgres or redis")
	}

	return &cfg, nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), "production")
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 1h if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	return parseDuration(c.JWTAccessTTL, time.Hour)
}

// RefreshTTL parses JWTRefreshTTL as a time.Duration. Returns 168h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	return parseDuration(c.JWTRefreshTTL, 168*time.Hour)
}

// ClockSkew parses TokenClockSkew. Returns 0 if unset or invalid.
func (c *Config) ClockSkew() time.Duration {
	d, err := time.ParseDuration(c.TokenClockSkew)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// StoreCallTimeout parses StoreTimeout. Returns 3s if unset or invalid.
func (c *Config) StoreCallTimeout() time.Duration {
	return parseDuration(c.StoreTimeout, 3*time.Second)
}

// SecurityKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// An empty list disables the Kafka security event sink.
func (c *Config) SecurityKafkaBrokersList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.SecurityKafkaBrokers)
}

// OperatorEmailList returns the lower-cased operator emails.
func (c *Config) OperatorEmailList() []string {
	if c == nil {
		return nil
	}
	out := splitList(c.OperatorEmails)
	for i := range out {
		out[i] = strings.ToLower(out[i])
	}
	return out
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}
