package stores

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	aa "github.com/workpail/anyauth"
)

// FSSessionStore stores sessions as JSON files under
// <StoragePath>/sessions/.
type FSSessionStore struct {
	StoragePath string
}

func NewFSSessionStore(storagePath string) *FSSessionStore {
	return &FSSessionStore{StoragePath: storagePath}
}

func (s *FSSessionStore) sessionsDir() string {
	return filepath.Join(s.StoragePath, "sessions")
}

func (s *FSSessionStore) getSessionPath(sessionID string) string {
	return filepath.Join(s.sessionsDir(), sessionID+".json")
}

func (s *FSSessionStore) SaveSession(ctx context.Context, session *aa.Session) error {
	path := s.getSessionPath(session.ID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomicFile(path, data)
}

func (s *FSSessionStore) GetSession(ctx context.Context, sessionID string) (*aa.Session, error) {
	data, err := os.ReadFile(s.getSessionPath(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, aa.ErrSessionNotFound
		}
		return nil, err
	}

	var session aa.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *FSSessionStore) DeleteSession(ctx context.Context, sessionID string) error {
	if err := os.Remove(s.getSessionPath(sessionID)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *FSSessionStore) DeleteExpiredSessions(ctx context.Context, now time.Time) error {
	entries, err := os.ReadDir(s.sessionsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(s.sessionsDir(), entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var session aa.Session
		if err := json.Unmarshal(data, &session); err != nil {
			continue
		}
		if !session.ExpiresAt.After(now) {
			os.Remove(path)
		}
	}
	return nil
}
