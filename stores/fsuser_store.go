package stores

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	aa "github.com/workpail/anyauth"
)

// FSUserStore stores users as JSON files under <StoragePath>/users/.
type FSUserStore struct {
	StoragePath string
}

func NewFSUserStore(storagePath string) *FSUserStore {
	return &FSUserStore{StoragePath: storagePath}
}

func (s *FSUserStore) getUserPath(userID string) string {
	return filepath.Join(s.StoragePath, "users", userID+".json")
}

func (s *FSUserStore) CreateUser(ctx context.Context, user *aa.User) error {
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	return s.writeUser(user)
}

func (s *FSUserStore) GetUser(ctx context.Context, userID string) (*aa.User, error) {
	data, err := os.ReadFile(s.getUserPath(userID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, aa.ErrUserNotFound
		}
		return nil, err
	}

	var user aa.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *FSUserStore) UpdateUser(ctx context.Context, user *aa.User) error {
	if _, err := os.Stat(s.getUserPath(user.ID)); err != nil {
		if os.IsNotExist(err) {
			return aa.ErrUserNotFound
		}
		return err
	}
	user.UpdatedAt = time.Now()
	return s.writeUser(user)
}

func (s *FSUserStore) writeUser(user *aa.User) error {
	path := s.getUserPath(user.ID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(user, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomicFile(path, data)
}
