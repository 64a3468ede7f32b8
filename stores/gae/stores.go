//go:build !wasm
// +build !wasm

package gae

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/datastore"
	"google.golang.org/api/iterator"

	aa "github.com/workpail/anyauth"
)

// Kind constants for Datastore entities
const (
	KindUser    = "User"
	KindLink    = "StrategyLink"
	KindSession = "Session"
)

// ============================================================================
// UserStore
// ============================================================================

// UserStore implements anyauth.UserStore using Google Cloud Datastore
type UserStore struct {
	client    *datastore.Client
	namespace string
}

// NewUserStore creates a new Datastore-backed UserStore
func NewUserStore(client *datastore.Client, namespace string) *UserStore {
	return &UserStore{client: client, namespace: namespace}
}

func namespacedKey(namespace, kind, name string) *datastore.Key {
	key := datastore.NameKey(kind, name, nil)
	key.Namespace = namespace
	return key
}

func (s *UserStore) CreateUser(ctx context.Context, user *aa.User) error {
	key := namespacedKey(s.namespace, KindUser, user.ID)
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	_, err := s.client.Put(ctx, key, UserToEntity(user, key))
	return err
}

func (s *UserStore) GetUser(ctx context.Context, userID string) (*aa.User, error) {
	key := namespacedKey(s.namespace, KindUser, userID)
	var entity UserEntity
	if err := s.client.Get(ctx, key, &entity); err != nil {
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return nil, aa.ErrUserNotFound
		}
		return nil, err
	}
	return entity.ToUser(), nil
}

func (s *UserStore) UpdateUser(ctx context.Context, user *aa.User) error {
	key := namespacedKey(s.namespace, KindUser, user.ID)
	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var existing UserEntity
		if err := tx.Get(key, &existing); err != nil {
			if errors.Is(err, datastore.ErrNoSuchEntity) {
				return aa.ErrUserNotFound
			}
			return err
		}
		user.CreatedAt = existing.CreatedAt
		user.UpdatedAt = time.Now()
		_, err := tx.Put(key, UserToEntity(user, key))
		return err
	})
	return err
}

// ============================================================================
// LinkStore
// ============================================================================

// LinkStore implements anyauth.LinkStore using Google Cloud Datastore. The
// link's key name is derived from (strategy name, strategy id), and the
// insert runs in a transaction so key uniqueness gives the ownership
// guarantee without a separate index.
type LinkStore struct {
	client    *datastore.Client
	namespace string
}

// NewLinkStore creates a new Datastore-backed LinkStore
func NewLinkStore(client *datastore.Client, namespace string) *LinkStore {
	return &LinkStore{client: client, namespace: namespace}
}

func (s *LinkStore) linkKey(strategyName, strategyID string) *datastore.Key {
	return namespacedKey(s.namespace, KindLink, strategyName+"|"+strategyID)
}

func (s *LinkStore) CreateLink(ctx context.Context, link *aa.StrategyLink) error {
	key := s.linkKey(link.StrategyName, link.StrategyID)
	now := time.Now()
	if link.CreatedAt.IsZero() {
		link.CreatedAt = now
	}
	link.UpdatedAt = now

	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		var existing LinkEntity
		err := tx.Get(key, &existing)
		if err == nil {
			return aa.ErrDuplicateLink
		}
		if !errors.Is(err, datastore.ErrNoSuchEntity) {
			return err
		}
		_, err = tx.Put(key, LinkToEntity(link, key))
		return err
	})
	return err
}

func (s *LinkStore) GetLink(ctx context.Context, strategyName, strategyID string) (*aa.StrategyLink, error) {
	var entity LinkEntity
	if err := s.client.Get(ctx, s.linkKey(strategyName, strategyID), &entity); err != nil {
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return nil, aa.ErrLinkNotFound
		}
		return nil, err
	}
	return entity.ToLink(), nil
}

func (s *LinkStore) ListUserLinks(ctx context.Context, userID string) ([]*aa.StrategyLink, error) {
	query := datastore.NewQuery(KindLink).
		Namespace(s.namespace).
		FilterField("user_id", "=", userID)

	var links []*aa.StrategyLink
	it := s.client.Run(ctx, query)
	for {
		var entity LinkEntity
		_, err := it.Next(&entity)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		links = append(links, entity.ToLink())
	}
	return links, nil
}

func (s *LinkStore) DeleteLink(ctx context.Context, userID, strategyName string) error {
	links, err := s.ListUserLinks(ctx, userID)
	if err != nil {
		return err
	}
	for _, link := range links {
		if link.StrategyName == strategyName {
			return s.client.Delete(ctx, s.linkKey(link.StrategyName, link.StrategyID))
		}
	}
	return aa.ErrLinkNotFound
}

// ============================================================================
// SessionStore
// ============================================================================

// SessionStore implements anyauth.SessionStore using Google Cloud Datastore
type SessionStore struct {
	client    *datastore.Client
	namespace string
}

// NewSessionStore creates a new Datastore-backed SessionStore
func NewSessionStore(client *datastore.Client, namespace string) *SessionStore {
	return &SessionStore{client: client, namespace: namespace}
}

func (s *SessionStore) sessionKey(sessionID string) *datastore.Key {
	return namespacedKey(s.namespace, KindSession, sessionID)
}

func (s *SessionStore) SaveSession(ctx context.Context, session *aa.Session) error {
	key := s.sessionKey(session.ID)
	_, err := s.client.Put(ctx, key, SessionToEntity(session, key))
	return err
}

func (s *SessionStore) GetSession(ctx context.Context, sessionID string) (*aa.Session, error) {
	var entity SessionEntity
	if err := s.client.Get(ctx, s.sessionKey(sessionID), &entity); err != nil {
		if errors.Is(err, datastore.ErrNoSuchEntity) {
			return nil, aa.ErrSessionNotFound
		}
		return nil, err
	}
	return entity.ToSession(), nil
}

func (s *SessionStore) DeleteSession(ctx context.Context, sessionID string) error {
	err := s.client.Delete(ctx, s.sessionKey(sessionID))
	if errors.Is(err, datastore.ErrNoSuchEntity) {
		return nil
	}
	return err
}

func (s *SessionStore) DeleteExpiredSessions(ctx context.Context, now time.Time) error {
	query := datastore.NewQuery(KindSession).
		Namespace(s.namespace).
		FilterField("expires_at", "<=", now).
		KeysOnly()

	keys, err := s.client.GetAll(ctx, query, nil)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.client.DeleteMulti(ctx, keys)
}
