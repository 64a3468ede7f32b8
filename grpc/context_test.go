package grpc

import (
	"context"
	"testing"

	"google.golang.org/grpc/metadata"

	aa "github.com/workpail/anyauth"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	if config.MetadataKeySessionID != DefaultMetadataKeySessionID {
		t.Errorf("expected MetadataKeySessionID %q, got %q", DefaultMetadataKeySessionID, config.MetadataKeySessionID)
	}
}

func TestEnsureDefaults(t *testing.T) {
	config := &Config{}
	config.EnsureDefaults()
	if config.MetadataKeySessionID != DefaultMetadataKeySessionID {
		t.Errorf("expected MetadataKeySessionID %q, got %q", DefaultMetadataKeySessionID, config.MetadataKeySessionID)
	}
}

func TestSessionIDFromContext_NoMetadata(t *testing.T) {
	if got := SessionIDFromContext(context.Background()); got != "" {
		t.Errorf("expected empty session ID, got %q", got)
	}
}

func TestSessionIDFromContext_WithSessionID(t *testing.T) {
	md := metadata.Pairs(DefaultMetadataKeySessionID, "sess123")
	ctx := metadata.NewIncomingContext(context.Background(), md)

	if got := SessionIDFromContext(ctx); got != "sess123" {
		t.Errorf("expected session ID %q, got %q", "sess123", got)
	}
}

func TestSessionIDFromContext_CustomKey(t *testing.T) {
	md := metadata.Pairs("x-custom-session", "sess456")
	ctx := metadata.NewIncomingContext(context.Background(), md)

	config := &Config{MetadataKeySessionID: "x-custom-session"}
	if got := SessionIDFromContextWithConfig(ctx, config); got != "sess456" {
		t.Errorf("expected session ID %q, got %q", "sess456", got)
	}
}

func TestSessionIDToOutgoingContext(t *testing.T) {
	ctx := SessionIDToOutgoingContext(context.Background(), "sess789")

	md, ok := metadata.FromOutgoingContext(ctx)
	if !ok {
		t.Fatal("expected outgoing metadata")
	}
	values := md.Get(DefaultMetadataKeySessionID)
	if len(values) != 1 || values[0] != "sess789" {
		t.Errorf("expected session ID %q in outgoing context, got %v", "sess789", values)
	}
}

func TestSessionFromContext(t *testing.T) {
	if got := SessionFromContext(context.Background()); got != nil {
		t.Errorf("expected nil session on empty context, got %+v", got)
	}

	session := &aa.Session{ID: "s1", UserID: "u1"}
	ctx := NewContextWithSession(context.Background(), session)

	if got := SessionFromContext(ctx); got != session {
		t.Errorf("expected session back, got %+v", got)
	}
	if got := UserIDFromContext(ctx); got != "u1" {
		t.Errorf("expected user ID u1, got %q", got)
	}
	if !IsAuthenticated(ctx) {
		t.Error("expected IsAuthenticated true")
	}
	if IsAuthenticated(context.Background()) {
		t.Error("expected IsAuthenticated false on empty context")
	}
}
