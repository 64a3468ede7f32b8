// Package grpc provides session-resolution utilities for gRPC services
// sharing authentication with the broker: clients pass a session ID via
// metadata and interceptors resolve it to a user through the broker's
// session storage.
package grpc

import (
	"context"

	"google.golang.org/grpc/metadata"

	aa "github.com/workpail/anyauth"
)

// DefaultMetadataKeySessionID is the default gRPC metadata key carrying
// the session identifier.
const DefaultMetadataKeySessionID = "x-session-id"

// Config holds the metadata key configuration for session resolution.
type Config struct {
	// MetadataKeySessionID is the gRPC metadata key for the session ID.
	// Defaults to "x-session-id".
	MetadataKeySessionID string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{MetadataKeySessionID: DefaultMetadataKeySessionID}
}

// EnsureDefaults fills in default values for any unset fields.
func (c *Config) EnsureDefaults() {
	if c.MetadataKeySessionID == "" {
		c.MetadataKeySessionID = DefaultMetadataKeySessionID
	}
}

// SessionIDFromContext extracts the session ID from incoming gRPC
// metadata. Returns empty string if none is present.
func SessionIDFromContext(ctx context.Context) string {
	return SessionIDFromContextWithConfig(ctx, nil)
}

// SessionIDFromContextWithConfig extracts the session ID using the
// specified config.
func SessionIDFromContextWithConfig(ctx context.Context, config *Config) string {
	if config == nil {
		config = DefaultConfig()
	}
	config.EnsureDefaults()

	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(config.MetadataKeySessionID); len(values) > 0 {
		return values[0]
	}
	return ""
}

// SessionIDToOutgoingContext adds the session ID to outgoing gRPC
// metadata for calls into services using these interceptors.
func SessionIDToOutgoingContext(ctx context.Context, sessionID string) context.Context {
	return SessionIDToOutgoingContextWithKey(ctx, sessionID, DefaultMetadataKeySessionID)
}

// SessionIDToOutgoingContextWithKey adds the session ID with a custom key.
func SessionIDToOutgoingContextWithKey(ctx context.Context, sessionID string, key string) context.Context {
	return metadata.AppendToOutgoingContext(ctx, key, sessionID)
}

type sessionContextKey struct{}

// NewContextWithSession returns a context carrying the resolved session.
// The interceptors call this; handlers read it back with
// SessionFromContext.
func NewContextWithSession(ctx context.Context, session *aa.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, session)
}

// SessionFromContext returns the resolved session placed on the context
// by the interceptors, or nil.
func SessionFromContext(ctx context.Context) *aa.Session {
	session, _ := ctx.Value(sessionContextKey{}).(*aa.Session)
	return session
}

// UserIDFromContext returns the user ID of the resolved session, or
// empty string when the request is unauthenticated.
func UserIDFromContext(ctx context.Context) string {
	if session := SessionFromContext(ctx); session != nil {
		return session.UserID
	}
	return ""
}

// IsAuthenticated returns true if a session was resolved for the request.
func IsAuthenticated(ctx context.Context) bool {
	return SessionFromContext(ctx) != nil
}
