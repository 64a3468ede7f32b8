package stores

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	aa "github.com/workpail/anyauth"
)

// FSLinkStore stores strategy links as JSON files under
// <StoragePath>/links/. Each link lives at a path derived from its
// (strategy name, strategy id) key, so the filesystem's exclusive-create
// semantics double as the uniqueness constraint.
type FSLinkStore struct {
	StoragePath string
}

func NewFSLinkStore(storagePath string) *FSLinkStore {
	return &FSLinkStore{StoragePath: storagePath}
}

func (s *FSLinkStore) linksDir() string {
	return filepath.Join(s.StoragePath, "links")
}

func (s *FSLinkStore) getLinkPath(strategyName, strategyID string) string {
	// Strategy ids come from external providers and can contain anything,
	// so hex-encode them for the filename.
	filename := fmt.Sprintf("%s_%s.json", strategyName, hex.EncodeToString([]byte(strategyID)))
	return filepath.Join(s.linksDir(), filename)
}

// CreateLink persists a new link. The file is created with O_EXCL so two
// concurrent inserts for the same identity cannot both succeed; the loser
// gets ErrDuplicateLink.
func (s *FSLinkStore) CreateLink(ctx context.Context, link *aa.StrategyLink) error {
	path := s.getLinkPath(link.StrategyName, link.StrategyID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	now := time.Now()
	if link.CreatedAt.IsZero() {
		link.CreatedAt = now
	}
	link.UpdatedAt = now

	data, err := json.MarshalIndent(link, "", "  ")
	if err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			return aa.ErrDuplicateLink
		}
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

func (s *FSLinkStore) GetLink(ctx context.Context, strategyName, strategyID string) (*aa.StrategyLink, error) {
	data, err := os.ReadFile(s.getLinkPath(strategyName, strategyID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, aa.ErrLinkNotFound
		}
		return nil, err
	}

	var link aa.StrategyLink
	if err := json.Unmarshal(data, &link); err != nil {
		return nil, err
	}
	return &link, nil
}

func (s *FSLinkStore) ListUserLinks(ctx context.Context, userID string) ([]*aa.StrategyLink, error) {
	entries, err := os.ReadDir(s.linksDir())
	if err != nil {
		if os.IsNotExist(err) {
			return []*aa.StrategyLink{}, nil
		}
		return nil, err
	}

	var links []*aa.StrategyLink
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.linksDir(), entry.Name()))
		if err != nil {
			continue
		}
		var link aa.StrategyLink
		if err := json.Unmarshal(data, &link); err != nil {
			continue
		}
		if link.UserID == userID {
			links = append(links, &link)
		}
	}
	return links, nil
}

func (s *FSLinkStore) DeleteLink(ctx context.Context, userID, strategyName string) error {
	links, err := s.ListUserLinks(ctx, userID)
	if err != nil {
		return err
	}
	for _, link := range links {
		if link.StrategyName == strategyName {
			return os.Remove(s.getLinkPath(link.StrategyName, link.StrategyID))
		}
	}
	return aa.ErrLinkNotFound
}
