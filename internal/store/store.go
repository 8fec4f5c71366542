// Package store opens the repositories selected by the configuration: Postgres when a
// DATABASE_URL is set, the in-memory store otherwise, and Redis for revocations on request.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	auditrepo "authgate/backend/internal/audit/repository"
	"authgate/backend/internal/config"
	"authgate/backend/internal/db"
	devicerepo "authgate/backend/internal/device/repository"
	"authgate/backend/internal/health"
	policyrepo "authgate/backend/internal/policy/repository"
	revocationrepo "authgate/backend/internal/revocation/repository"
	sessionrepo "authgate/backend/internal/session/repository"
	"authgate/backend/internal/store/memory"
	userrepo "authgate/backend/internal/user/repository"
)

// Set is one of each repository plus the pingers readiness checks use.
type Set struct {
	Users       userrepo.Repository
	Sessions    sessionrepo.Repository
	Devices     devicerepo.Repository
	Revocations revocationrepo.Repository
	SecurityLog auditrepo.Repository
	// Policies is nil for the in-memory store; the policy engine then uses its built-in policy.
	Policies policyrepo.Repository
	// DB is the Postgres handle, nil for the in-memory store.
	DB *sql.DB
	// Pingers maps "postgres" and "redis" to their pingers when those backends are in use.
	Pingers map[string]health.Pinger

	closers []func() error
}

// Open builds the Set for cfg. The caller must Close it.
func Open(cfg *config.Config, log *zap.Logger) (*Set, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Set{Pingers: map[string]health.Pinger{}}

	if cfg.DatabaseURL != "" {
		conn, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}
		s.DB = conn
		s.closers = append(s.closers, conn.Close)
		s.Pingers["postgres"] = conn
		s.Users = userrepo.NewPostgresRepository(conn)
		s.Sessions = sessionrepo.NewPostgresRepository(conn)
		s.Devices = devicerepo.NewPostgresRepository(conn)
		s.Revocations = revocationrepo.NewPostgresRepository(conn)
		s.SecurityLog = auditrepo.NewPostgresRepository(conn)
		s.Policies = policyrepo.NewPostgresRepository(conn)
	} else {
		if cfg.IsProduction() {
			return nil, errors.New("store: DATABASE_URL must be set in production")
		}
		log.Warn("DATABASE_URL not set; using the in-memory store, all state is lost on restart")
		m := memory.New()
		s.Users = m.Users
		s.Sessions = m.Sessions
		s.Devices = m.Devices
		s.Revocations = m.Revocations
		s.SecurityLog = m.SecurityLog
	}

	if cfg.RevocationBackend == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		s.closers = append(s.closers, client.Close)
		s.Pingers["redis"] = health.PingFunc(func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		})
		s.Revocations = revocationrepo.NewRedisRepository(client, RevocationRetention(cfg))
	}
	return s, nil
}

// RevocationRetention is how long a revocation must be kept: once every access token it can
// match has expired on its own it is safe to drop.
func RevocationRetention(cfg *config.Config) time.Duration {
	return cfg.AccessTTL() + cfg.ClockSkew()
}

// Close releases every connection the Set opened, in reverse order.
func (s *Set) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
