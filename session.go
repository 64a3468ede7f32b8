package anyauth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

// DefaultSessionDuration is used when no session duration is configured.
const DefaultSessionDuration = 24 * time.Hour

// SessionManager owns the session lifecycle against the session store.
// Expiry is lazy: an expired record is invisible to Get even before
// ReapExpired deletes it.
type SessionManager struct {
	store    SessionStore
	duration time.Duration
}

func NewSessionManager(store SessionStore, duration time.Duration) *SessionManager {
	if duration <= 0 {
		duration = DefaultSessionDuration
	}
	return &SessionManager{store: store, duration: duration}
}

// Create persists a new session for the user with a fresh unguessable ID.
func (m *SessionManager) Create(ctx context.Context, user *User, data map[string]any) (*Session, error) {
	id, err := GenerateSessionID()
	if err != nil {
		return nil, err
	}
	if data == nil {
		data = map[string]any{}
	}
	now := time.Now()
	session := &Session{
		ID:        id,
		UserID:    user.ID,
		Data:      data,
		ExpiresAt: now.Add(m.duration),
		CreatedAt: now,
	}
	if err := m.store.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	return session, nil
}

// Get loads a session by ID. Expired sessions are reported as absent.
func (m *SessionManager) Get(ctx context.Context, sessionID string) (*Session, error) {
	session, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.IsExpired() {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Update replaces the session's data mapping. Expiry is not extended and
// the replacement is last-writer-wins, no merge.
func (m *SessionManager) Update(ctx context.Context, sessionID string, data map[string]any) (*Session, error) {
	session, err := m.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	session.Data = data
	if err := m.store.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	return session, nil
}

// Destroy deletes a session. Destroying an absent session is not an error.
func (m *SessionManager) Destroy(ctx context.Context, sessionID string) error {
	if err := m.store.DeleteSession(ctx, sessionID); err != nil && !errors.Is(err, ErrSessionNotFound) {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// ReapExpired bulk-deletes sessions whose expiry has passed. Safe to run
// concurrently with normal traffic: it only removes records that Get
// already treats as absent.
func (m *SessionManager) ReapExpired(ctx context.Context) error {
	return m.store.DeleteExpiredSessions(ctx, time.Now())
}

// GenerateSessionID returns a cryptographically secure random session
// identifier (32 bytes, hex encoded).
func GenerateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return hex.EncodeToString(b), nil
}
