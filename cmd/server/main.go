package main

import (
	"context"
	"errors"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"authgate/backend/internal/audit"
	"authgate/backend/internal/authz"
	"authgate/backend/internal/config"
	"authgate/backend/internal/device"
	"authgate/backend/internal/health"
	apihttp "authgate/backend/internal/http"
	"authgate/backend/internal/http/handler"
	"authgate/backend/internal/http/middleware"
	"authgate/backend/internal/identity/service"
	"authgate/backend/internal/logging"
	"authgate/backend/internal/policy/engine"
	"authgate/backend/internal/revocation"
	"authgate/backend/internal/security"
	"authgate/backend/internal/server"
	"authgate/backend/internal/session"
	"authgate/backend/internal/store"
	"authgate/backend/internal/telemetry"
	telemetryotel "authgate/backend/internal/telemetry/otel"
	"authgate/backend/internal/telemetry/producer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := logging.New(cfg.Env, cfg.ServiceName, cfg.Debug)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
	logger.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	providers, err := telemetryotel.NewProviders(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.APIVersion, cfg.OTLPInsecure)
	if err != nil {
		return err
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn("otel shutdown", zap.Error(err))
		}
	}()

	stores, err := store.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := stores.Close(); err != nil {
			logger.Warn("store close", zap.Error(err))
		}
	}()

	emitters := telemetry.Emitters{telemetryotel.NewEventEmitter(providers.LoggerProvider)}
	kafkaProducer, err := producer.NewKafkaProducer(cfg.SecurityKafkaBrokersList(), cfg.SecurityKafkaTopic)
	if err != nil {
		return err
	}
	if kafkaProducer != nil {
		emitters = append(emitters, kafkaProducer)
		defer func() { _ = kafkaProducer.Close() }()
		logger.Info("security events mirrored to kafka", zap.String("topic", kafkaProducer.Topic()))
	}
	securityLog := audit.NewLogger(stores.SecurityLog, nil, emitters, logger)

	secret, err := security.LoadSecret(cfg.JWTSecret)
	if err != nil {
		return err
	}
	codec, err := security.NewCodec(secret, security.WithLeeway(cfg.ClockSkew()))
	if err != nil {
		return err
	}
	tokens := security.NewTokenProvider(codec, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL(), cfg.RefreshTTL(), cfg.AccessTokenJTI)

	timeout := cfg.StoreCallTimeout()
	hasher := security.NewHasher(cfg.BcryptCost)
	ledger := session.NewLedger(stores.Sessions, timeout, nil)
	devices := device.NewTracker(stores.Devices, timeout, nil)
	index := revocation.NewIndex(stores.Revocations, timeout, nil)

	deps := service.Deps{
		Users:       stores.Users,
		Verifier:    service.NewCredentialVerifier(stores.Users, hasher, timeout, nil),
		Hasher:      hasher,
		Tokens:      tokens,
		Ledger:      ledger,
		Devices:     devices,
		Revocations: index,
		Audit:       securityLog,
		Log:         logger,
	}
	authSvc := service.NewAuthService(deps, service.Options{
		EnableRevocationChecks: cfg.EnableRevocationChecks,
		PasswordMinLength:      cfg.PasswordMinLength,
		StoreTimeout:           timeout,
	})
	adminSvc := service.NewAdminService(deps, timeout)

	guard := authz.NewGuard(tokens, stores.Users, index, devices, authz.Config{
		EnableRevocationChecks: cfg.EnableRevocationChecks,
		StoreTimeout:           timeout,
	}, logger)

	policy := engine.NewOPAEvaluator(stores.Policies, cfg.OperatorEmailList(), logger)
	checker := health.NewChecker(stores.Pingers, policy, 2*time.Second)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := apihttp.NewRouter(apihttp.RouterDeps{
		ServiceName: cfg.ServiceName,
		Auth:        handler.NewAuthHandler(authSvc, cfg.Debug),
		Admin:       handler.NewAdminHandler(adminSvc, policy, cfg.Debug),
		Status: &handler.StatusHandler{
			Version:          cfg.APIVersion,
			Debug:            cfg.Debug,
			AccessTTL:        cfg.AccessTTL(),
			RevocationChecks: cfg.EnableRevocationChecks,
			Ready:            checker,
		},
		AuthMiddleware: &middleware.Auth{Guard: guard, Debug: cfg.Debug},
		RateLimiter:    middleware.NewRateLimiter(cfg.LoginRateLimitRPM),
		Logger:         logger,
	})

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		return apihttp.NewServer(router).Run(ctx, cfg.HTTPAddr)
	})

	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			return err
		}
		grpcServer, healthServer := server.NewGRPCServer(server.Deps{Guard: guard, Logger: logger})
		g.Go(func() error {
			logger.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
			if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, net.ErrClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			server.WatchReadiness(ctx, healthServer, checker, 10*time.Second)
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			logger.Info("shutting down gRPC server...")
			grpcServer.GracefulStop()
			return nil
		})
	}

	return g.Wait()
}
