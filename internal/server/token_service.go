package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"authgate/backend/internal/authz"
)

// TokenServiceName is the fully qualified gRPC service name.
const TokenServiceName = "authgate.v1.TokenService"

// IntrospectMethod is the full method name of Introspect.
const IntrospectMethod = "/" + TokenServiceName + "/Introspect"

// TokenServiceServer is implemented by the token service. Messages are structpb.Struct so the
// service needs no generated code.
type TokenServiceServer interface {
	Introspect(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// RegisterTokenServiceServer registers srv on s.
func RegisterTokenServiceServer(s grpc.ServiceRegistrar, srv TokenServiceServer) {
	s.RegisterService(&tokenServiceDesc, srv)
}

func introspectHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TokenServiceServer).Introspect(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: IntrospectMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TokenServiceServer).Introspect(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

var tokenServiceDesc = grpc.ServiceDesc{
	ServiceName: TokenServiceName,
	HandlerType: (*TokenServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Introspect", Handler: introspectHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "authgate/v1/token.proto",
}

// tokenServer answers Introspect with the claims the auth interceptor already validated.
type tokenServer struct{}

func (tokenServer) Introspect(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	claims, ok := authz.ClaimsFrom(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "Unauthorized")
	}
	return structpb.NewStruct(map[string]interface{}{
		"active":     true,
		"user_id":    claims.UserID,
		"email":      claims.Email,
		"first_name": claims.FirstName,
		"last_name":  claims.LastName,
		"jti":        claims.JTI,
		"iat":        float64(claims.IssuedAt.Unix()),
		"exp":        float64(claims.ExpiresAt.Unix()),
	})
}

// IntrospectClient calls Introspect on conn.
func IntrospectClient(ctx context.Context, conn grpc.ClientConnInterface, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := conn.Invoke(ctx, IntrospectMethod, &structpb.Struct{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
