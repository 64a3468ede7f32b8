// Package scsbridge adapts an anyauth.SessionStore to the
// alexedwards/scs session manager's Store interface, so applications
// already built on scs can keep their middleware while sharing session
// storage with the broker.
package scsbridge

import (
	"context"
	"encoding/base64"
	"errors"
	"time"

	"github.com/alexedwards/scs/v2"

	aa "github.com/workpail/anyauth"
)

var _ scs.Store = (*Store)(nil)

// blobKey is where the scs-encoded session blob lives inside the
// session's data mapping.
const blobKey = "b"

// Store implements scs.Store backed by an anyauth.SessionStore.
type Store struct {
	sessions aa.SessionStore
}

func New(sessions aa.SessionStore) *Store {
	return &Store{sessions: sessions}
}

// Find returns the session blob for the token. Absent and expired
// sessions both report found=false, matching scs expectations.
func (s *Store) Find(token string) ([]byte, bool, error) {
	session, err := s.sessions.GetSession(context.Background(), token)
	if err != nil {
		if errors.Is(err, aa.ErrSessionNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if session.IsExpired() {
		return nil, false, nil
	}

	encoded, _ := session.Data[blobKey].(string)
	if encoded == "" {
		return nil, false, nil
	}
	blob, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, false, err
	}
	return blob, true, nil
}

// Commit upserts the session blob under the token with the given expiry.
func (s *Store) Commit(token string, b []byte, expiry time.Time) error {
	ctx := context.Background()

	session, err := s.sessions.GetSession(ctx, token)
	if err != nil {
		if !errors.Is(err, aa.ErrSessionNotFound) {
			return err
		}
		session = &aa.Session{
			ID:        token,
			Data:      map[string]any{},
			CreatedAt: time.Now(),
		}
	}
	if session.Data == nil {
		session.Data = map[string]any{}
	}
	session.Data[blobKey] = base64.StdEncoding.EncodeToString(b)
	session.ExpiresAt = expiry

	return s.sessions.SaveSession(ctx, session)
}

// Delete removes the session for the token. Deleting an absent token is
// not an error.
func (s *Store) Delete(token string) error {
	err := s.sessions.DeleteSession(context.Background(), token)
	if errors.Is(err, aa.ErrSessionNotFound) {
		return nil
	}
	return err
}
