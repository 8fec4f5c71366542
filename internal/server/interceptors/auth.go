package interceptors

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"authgate/backend/internal/autherr"
	"authgate/backend/internal/authz"
)

// metadataHeaders exposes incoming gRPC metadata as an authz.HeaderSource.
type metadataHeaders metadata.MD

func (m metadataHeaders) Get(key string) string {
	vals := metadata.MD(m).Get(strings.ToLower(key))
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

// AuthUnary returns a unary server interceptor that runs the guard over the "authorization"
// metadata and stores the claims in the context for protected RPCs.
// publicMethods is the set of full method names that do not require a Bearer token
// (e.g. the gRPC health Check).
func AuthUnary(guard *authz.Guard, publicMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		if publicMethods[info.FullMethod] {
			return handler(ctx, req)
		}
		md, _ := metadata.FromIncomingContext(ctx)
		claims, err := guard.AuthorizeRequest(ctx, metadataHeaders(md))
		if err != nil {
			return nil, StatusError(err)
		}
		return handler(authz.WithClaims(ctx, claims), req)
	}
}

// StatusError converts a classified error to a gRPC status with the client-facing message.
func StatusError(err error) error {
	if err == nil {
		return nil
	}
	var code codes.Code
	switch autherr.KindOf(err) {
	case autherr.KindValidation:
		code = codes.InvalidArgument
	case autherr.KindInvalidCredentials, autherr.KindAccountLocked, autherr.KindUnauthorized:
		code = codes.Unauthenticated
	case autherr.KindForbidden:
		code = codes.PermissionDenied
	case autherr.KindNotFound:
		code = codes.NotFound
	case autherr.KindConflict:
		code = codes.AlreadyExists
	case autherr.KindUnavailable:
		code = codes.Unavailable
	default:
		code = codes.Internal
	}
	return status.Error(code, autherr.PublicMessage(err))
}
