package config

import (
	"os"
	"reflect"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	os.Setenv("JWT_SECRET", testSecret)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.GRPCAddr != ":9090" {
		t.Errorf("GRPCAddr = %q, want %q", cfg.GRPCAddr, ":9090")
	}
	if cfg.JWTIssuer != "authgate" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "authgate")
	}
	if cfg.JWTAudience != "authgate-api" {
		t.Errorf("JWTAudience = %q, want %q", cfg.JWTAudience, "authgate-api")
	}
	if cfg.AccessTTL() != time.Hour {
		t.Errorf("AccessTTL = %v, want 1h", cfg.AccessTTL())
	}
	if cfg.RefreshTTL() != 168*time.Hour {
		t.Errorf("RefreshTTL = %v, want 168h", cfg.RefreshTTL())
	}
	if cfg.ClockSkew() != 0 {
		t.Errorf("ClockSkew = %v, want 0", cfg.ClockSkew())
	}
	if !cfg.AccessTokenJTI {
		t.Error("AccessTokenJTI should default to true")
	}
	if !cfg.EnableRevocationChecks {
		t.Error("EnableRevocationChecks should default to true")
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
	if cfg.PasswordMinLength != 8 {
		t.Errorf("PasswordMinLength = %d, want 8", cfg.PasswordMinLength)
	}
	if cfg.StoreCallTimeout() != 3*time.Second {
		t.Errorf("StoreCallTimeout = %v, want 3s", cfg.StoreCallTimeout())
	}
	if cfg.RevocationBackend != "postgres" {
		t.Errorf("RevocationBackend = %q, want postgres", cfg.RevocationBackend)
	}
	if cfg.Debug {
		t.Error("Debug should default to false")
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("JWT_SECRET", testSecret)
	os.Setenv("HTTP_ADDR", ":9999")
	os.Setenv("JWT_ISSUER", "custom-issuer")
	os.Setenv("BCRYPT_COST", "10")
	os.Setenv("TOKEN_CLOCK_SKEW", "30s")
	os.Setenv("ENABLE_REVOCATION_CHECKS", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9999" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9999")
	}
	if cfg.JWTIssuer != "custom-issuer" {
		t.Errorf("JWTIssuer = %q, want %q", cfg.JWTIssuer, "custom-issuer")
	}
	if cfg.BcryptCost != 10 {
		t.Errorf("BcryptCost = %d, want 10", cfg.BcryptCost)
	}
	if cfg.ClockSkew() != 30*time.Second {
		t.Errorf("ClockSkew = %v, want 30s", cfg.ClockSkew())
	}
	if cfg.EnableRevocationChecks {
		t.Error("EnableRevocationChecks should be false")
	}
}

func TestLoad_SecretRequired(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err == nil {
		t.Fatal("Load without JWT_SECRET should fail")
	}
	if cfg != nil {
		t.Error("config should be nil on error")
	}
}

func TestLoad_BCRYPT_COSTRange(t *testing.T) {
	testCases := []struct {
		cost    string
		wantErr bool
	}{
		{"3", true},
		{"4", false},
		{"31", false},
		{"32", true},
	}
	for _, tc := range testCases {
		t.Run(tc.cost, func(t *testing.T) {
			os.Clearenv()
			os.Setenv("JWT_SECRET", testSecret)
			os.Setenv("BCRYPT_COST", tc.cost)
			_, err := Load()
			if (err != nil) != tc.wantErr {
				t.Errorf("Load with BCRYPT_COST=%s: err = %v, wantErr %v", tc.cost, err, tc.wantErr)
			}
		})
	}
}

func TestLoad_DebugRefusedInProduction(t *testing.T) {
	os.Clearenv()
	os.Setenv("JWT_SECRET", testSecret)
	os.Setenv("APP_ENV", "production")
	os.Setenv("DATABASE_URL", "postgres://localhost/authgate")
	os.Setenv("API_DEBUG", "true")

	if _, err := Load(); err == nil {
		t.Fatal("API_DEBUG=true with APP_ENV=production should fail")
	}
}

func TestLoad_ProductionRequiresDatabase(t *testing.T) {
	os.Clearenv()
	os.Setenv("JWT_SECRET", testSecret)
	os.Setenv("APP_ENV", "production")

	if _, err := Load(); err == nil {
		t.Fatal("production without DATABASE_URL should fail")
	}
}

func TestLoad_RedisBackend(t *testing.T) {
	os.Clearenv()
	os.Setenv("JWT_SECRET", testSecret)
	os.Setenv("REVOCATION_BACKEND", "redis")

	if _, err := Load(); err == nil {
		t.Fatal("redis backend without REDIS_ADDR should fail")
	}

	os.Setenv("REDIS_ADDR", "localhost:6379")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RevocationBackend != "redis" {
		t.Errorf("RevocationBackend = %q, want redis", cfg.RevocationBackend)
	}

	os.Setenv("REVOCATION_BACKEND", "memcached")
	if _, err := Load(); err == nil {
		t.Fatal("unknown backend should fail")
	}
}

func TestAccessTTL_InvalidDuration(t *testing.T) {
	cfg := &Config{JWTAccessTTL: "invalid"}
	if got := cfg.AccessTTL(); got != time.Hour {
		t.Errorf("AccessTTL = %v, want 1h", got)
	}
	cfg.JWTAccessTTL = "-5m"
	if got := cfg.AccessTTL(); got != time.Hour {
		t.Errorf("AccessTTL = %v, want 1h for negative", got)
	}
	cfg.JWTAccessTTL = "30m"
	if got := cfg.AccessTTL(); got != 30*time.Minute {
		t.Errorf("AccessTTL = %v, want 30m", got)
	}
}

func TestRefreshTTL_InvalidDuration(t *testing.T) {
	cfg := &Config{JWTRefreshTTL: "0s"}
	if got := cfg.RefreshTTL(); got != 168*time.Hour {
		t.Errorf("RefreshTTL = %v, want 168h", got)
	}
}

func TestClockSkew_Negative(t *testing.T) {
	cfg := &Config{TokenClockSkew: "-10s"}
	if got := cfg.ClockSkew(); got != 0 {
		t.Errorf("ClockSkew = %v, want 0", got)
	}
}

func TestSecurityKafkaBrokersList(t *testing.T) {
	cfg := &Config{SecurityKafkaBrokers: " a:9092, ,b:9092 "}
	want := []string{"a:9092", "b:9092"}
	if got := cfg.SecurityKafkaBrokersList(); !reflect.DeepEqual(got, want) {
		t.Errorf("SecurityKafkaBrokersList = %v, want %v", got, want)
	}
	var nilCfg *Config
	if got := nilCfg.SecurityKafkaBrokersList(); got != nil {
		t.Errorf("nil config should return nil, got %v", got)
	}
}

func TestOperatorEmailList(t *testing.T) {
	cfg := &Config{OperatorEmails: "Ops@Example.com,root@example.com"}
	want := []string{"ops@example.com", "root@example.com"}
	if got := cfg.OperatorEmailList(); !reflect.DeepEqual(got, want) {
		t.Errorf("OperatorEmailList = %v, want %v", got, want)
	}
}

func TestLoadTool_SkipsTokenSettings(t *testing.T) {
	os.Clearenv()
	os.Setenv("DATABASE_URL", "postgres://localhost/authgate")
	os.Setenv("APP_ENV", "production")

	cfg, err := LoadTool()
	if err != nil {
		t.Fatalf("LoadTool: %v", err)
	}
	if cfg.DatabaseURL != "postgres://localhost/authgate" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}

	os.Unsetenv("DATABASE_URL")
	if _, err := LoadTool(); err != nil {
		t.Errorf("LoadTool without DATABASE_URL: %v", err)
	}
	if _, err := Load(); err == nil {
		t.Error("Load without JWT_SECRET should fail")
	}
}
