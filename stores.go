package anyauth

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors shared by every store implementation. Callers match with
// errors.Is; stores wrap backend-specific failures around anything else.
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrLinkNotFound    = errors.New("strategy link not found")
	ErrSessionNotFound = errors.New("session not found")

	// ErrDuplicateLink is returned by LinkStore.CreateLink when the
	// (strategy name, strategy id) pair is already claimed. The linker
	// treats it as "someone else just created it" and re-resolves.
	ErrDuplicateLink = errors.New("strategy link already exists")

	// ErrDatabaseRequired is returned by linker operations when no link
	// store was configured.
	ErrDatabaseRequired = errors.New("database required")

	// ErrLastStrategy is returned by Unlink when removing the link would
	// leave the user with zero authentication methods.
	ErrLastStrategy = errors.New("cannot remove last strategy")
)

// UserStore manages canonical user accounts.
type UserStore interface {
	// CreateUser persists a new user record.
	CreateUser(ctx context.Context, user *User) error

	// GetUser retrieves a user by ID. Returns ErrUserNotFound if absent.
	GetUser(ctx context.Context, userID string) (*User, error)

	// UpdateUser replaces an existing user record.
	UpdateUser(ctx context.Context, user *User) error
}

// LinkStore manages strategy links. Implementations must enforce the
// uniqueness of (StrategyName, StrategyID); the linker's create-or-resolve
// path is read-then-write and relies on it.
type LinkStore interface {
	// CreateLink persists a new link. Returns ErrDuplicateLink when the
	// (strategy name, strategy id) pair is already taken.
	CreateLink(ctx context.Context, link *StrategyLink) error

	// GetLink looks up a link by its global join key.
	// Returns ErrLinkNotFound if absent.
	GetLink(ctx context.Context, strategyName, strategyID string) (*StrategyLink, error)

	// ListUserLinks returns all links owned by a user.
	ListUserLinks(ctx context.Context, userID string) ([]*StrategyLink, error)

	// DeleteLink removes the user's link for the named strategy.
	// Returns ErrLinkNotFound if the user has no such link.
	DeleteLink(ctx context.Context, userID, strategyName string) error
}

// SessionStore manages session records.
type SessionStore interface {
	// SaveSession creates or replaces a session record (upsert).
	SaveSession(ctx context.Context, session *Session) error

	// GetSession retrieves a session by ID regardless of expiry.
	// Returns ErrSessionNotFound if absent. Lazy-expiry filtering is the
	// SessionManager's job, not the store's.
	GetSession(ctx context.Context, sessionID string) (*Session, error)

	// DeleteSession removes a session. Deleting an absent session is not
	// an error.
	DeleteSession(ctx context.Context, sessionID string) error

	// DeleteExpiredSessions removes all sessions with ExpiresAt <= now.
	DeleteExpiredSessions(ctx context.Context, now time.Time) error
}
