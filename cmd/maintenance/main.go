// maintenance deletes refresh sessions and revoked-token entries that can no longer match
// any token. Run it periodically (e.g. from cron) against the Postgres store.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"authgate/backend/internal/config"
	"authgate/backend/internal/logging"
	"authgate/backend/internal/revocation"
	"authgate/backend/internal/session"
	"authgate/backend/internal/store"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "Print the cutoffs without deleting anything")
	flag.Parse()

	cfg, err := config.LoadTool()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env or set DATABASE_URL")
	}
	logger, err := logging.New(cfg.Env, cfg.ServiceName+"-maintenance", cfg.Debug)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	stores, err := store.Open(cfg, logger)
	if err != nil {
		logger.Fatal("open store", zap.Error(err))
	}
	defer stores.Close()

	now := time.Now().UTC()
	// Sessions are useless once expired; revocations once every token they could match has expired.
	sessionCutoff := now
	revocationCutoff := now.Add(-store.RevocationRetention(cfg))
	if *dryRun {
		logger.Info("dry run", zap.Time("sessions_before", sessionCutoff), zap.Time("revocations_before", revocationCutoff))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	sessions, err := session.NewLedger(stores.Sessions, 0, nil).PurgeExpired(ctx, sessionCutoff)
	if err != nil {
		logger.Fatal("purge sessions", zap.Error(err))
	}
	revocations, err := revocation.NewIndex(stores.Revocations, 0, nil).Purge(ctx, revocationCutoff)
	if err != nil {
		logger.Fatal("purge revocations", zap.Error(err))
	}
	logger.Info("purge complete", zap.Int64("sessions", sessions), zap.Int64("revocations", revocations))
}
