// Package server wires the gRPC introspection surface: the token service, the standard
// gRPC health service and the interceptor chain in front of them.
package server

import (
	"context"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"authgate/backend/internal/authz"
	"authgate/backend/internal/health"
	"authgate/backend/internal/server/interceptors"
)

// Health method names; both are public and never logged.
const (
	healthCheckMethod = "/grpc.health.v1.Health/Check"
	healthWatchMethod = "/grpc.health.v1.Health/Watch"
	healthListMethod  = "/grpc.health.v1.Health/List"
)

// Deps holds the dependencies of the gRPC services.
type Deps struct {
	// Guard authorizes every non-public RPC. Required.
	Guard *authz.Guard
	// Logger is used by the logging interceptor. If nil zap.L() is used.
	Logger *zap.Logger
}

// RegisterServices registers the token service and the gRPC health service on s and returns
// the health server so callers can flip its status.
//
// Service → implementation mapping:
//   - authgate.v1.TokenService → tokenServer (this package)
//   - grpc.health.v1.Health    → google.golang.org/grpc/health
func RegisterServices(s grpc.ServiceRegistrar, deps Deps) *grpchealth.Server {
	RegisterTokenServiceServer(s, &tokenServer{})
	hs := grpchealth.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	return hs
}

// PublicMethods is the set of RPCs callable without a bearer token.
func PublicMethods() map[string]bool {
	return map[string]bool{
		healthCheckMethod: true,
		healthWatchMethod: true,
		healthListMethod:  true,
	}
}

// NewGRPCServer builds a server with OTel stats and the interceptor chain
// client IP → logging → auth, registers the services on it and returns the health server
// alongside.
func NewGRPCServer(deps Deps) (*grpc.Server, *grpchealth.Server) {
	public := PublicMethods()
	s := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			interceptors.ClientIPUnary(),
			interceptors.LoggingUnary(deps.Logger, public),
			interceptors.AuthUnary(deps.Guard, public),
		),
	)
	return s, RegisterServices(s, deps)
}

// WatchReadiness polls checker every interval and mirrors the result onto hs for the overall
// service ("") and the token service. It returns when ctx is done, after marking both NOT_SERVING.
func WatchReadiness(ctx context.Context, hs *grpchealth.Server, checker *health.Checker, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	set := func(st healthpb.HealthCheckResponse_ServingStatus) {
		hs.SetServingStatus("", st)
		hs.SetServingStatus(TokenServiceName, st)
	}
	update := func() {
		if checker == nil {
			set(healthpb.HealthCheckResponse_SERVING)
			return
		}
		if checker.Check(ctx).Ready {
			set(healthpb.HealthCheckResponse_SERVING)
		} else {
			set(healthpb.HealthCheckResponse_NOT_SERVING)
		}
	}

	update()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			set(healthpb.HealthCheckResponse_NOT_SERVING)
			return
		case <-ticker.C:
			update()
		}
	}
}
