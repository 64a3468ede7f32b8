package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	aa "github.com/workpail/anyauth"
)

// SessionResolver resolves a session ID to a live session. *anyauth.Auth
// satisfies it.
type SessionResolver interface {
	GetSession(ctx context.Context, sessionID string) (*aa.Session, error)
}

// InterceptorConfig configures the session interceptor behavior.
type InterceptorConfig struct {
	// Config holds the metadata key configuration.
	*Config

	// Resolver turns session IDs into sessions. Required.
	Resolver SessionResolver

	// RequireAuth when true rejects requests without a resolvable session.
	// When false, requests proceed and SessionFromContext returns nil.
	RequireAuth bool

	// PublicMethods is a set of method names that don't require auth.
	// Only used when RequireAuth is true.
	// Keys should be full method names like "/package.Service/Method".
	PublicMethods map[string]bool
}

// DefaultInterceptorConfig returns a config that requires auth for all methods.
func DefaultInterceptorConfig(resolver SessionResolver) *InterceptorConfig {
	return &InterceptorConfig{
		Config:        DefaultConfig(),
		Resolver:      resolver,
		RequireAuth:   true,
		PublicMethods: make(map[string]bool),
	}
}

// NewPublicMethodsConfig creates a config with the specified public methods.
func NewPublicMethodsConfig(resolver SessionResolver, publicMethods ...string) *InterceptorConfig {
	config := DefaultInterceptorConfig(resolver)
	for _, method := range publicMethods {
		config.PublicMethods[method] = true
	}
	return config
}

// OptionalAuthConfig returns a config that allows unauthenticated requests.
func OptionalAuthConfig(resolver SessionResolver) *InterceptorConfig {
	return &InterceptorConfig{
		Config:        DefaultConfig(),
		Resolver:      resolver,
		RequireAuth:   false,
		PublicMethods: make(map[string]bool),
	}
}

// UnaryAuthInterceptor returns a gRPC unary interceptor that resolves the
// session metadata and injects the session into the handler context.
func UnaryAuthInterceptor(config *InterceptorConfig) grpc.UnaryServerInterceptor {
	config = normalizeConfig(config)

	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		ctx, err := resolveSession(ctx, config, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// StreamAuthInterceptor returns a gRPC stream interceptor that resolves
// the session metadata and injects the session into the stream context.
func StreamAuthInterceptor(config *InterceptorConfig) grpc.StreamServerInterceptor {
	config = normalizeConfig(config)

	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx, err := resolveSession(ss.Context(), config, info.FullMethod)
		if err != nil {
			return err
		}
		return handler(srv, &wrappedStream{ServerStream: ss, ctx: ctx})
	}
}

func normalizeConfig(config *InterceptorConfig) *InterceptorConfig {
	if config == nil {
		config = &InterceptorConfig{}
	}
	if config.Config == nil {
		config.Config = DefaultConfig()
	}
	config.Config.EnsureDefaults()
	return config
}

// resolveSession looks up the request's session. A missing or dead session
// is only an error when the method requires auth; storage failures always
// surface as Internal.
func resolveSession(ctx context.Context, config *InterceptorConfig, fullMethod string) (context.Context, error) {
	authRequired := config.RequireAuth && !config.PublicMethods[fullMethod]

	sessionID := SessionIDFromContextWithConfig(ctx, config.Config)
	if sessionID == "" || config.Resolver == nil {
		if authRequired {
			return nil, status.Error(codes.Unauthenticated, "authentication required")
		}
		return ctx, nil
	}

	session, err := config.Resolver.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, aa.ErrSessionNotFound) {
			if authRequired {
				return nil, status.Error(codes.Unauthenticated, "session expired or invalid")
			}
			return ctx, nil
		}
		return nil, status.Error(codes.Internal, "session lookup failed")
	}

	return NewContextWithSession(ctx, session), nil
}

// wrappedStream overrides the stream's context with the session-carrying one.
type wrappedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedStream) Context() context.Context {
	return w.ctx
}
