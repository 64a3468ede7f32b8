//go:build !wasm
// +build !wasm

package gae

import (
	"encoding/json"
	"time"

	"cloud.google.com/go/datastore"

	aa "github.com/workpail/anyauth"
)

// UserEntity is the Datastore entity for users
type UserEntity struct {
	Key       *datastore.Key `datastore:"__key__"`
	Username  string         `datastore:"username"`
	Email     string         `datastore:"email"`
	Profile   []byte         `datastore:"profile,noindex"` // JSON encoded
	CreatedAt time.Time      `datastore:"created_at"`
	UpdatedAt time.Time      `datastore:"updated_at"`
}

func (e *UserEntity) ToUser() *aa.User {
	var profile map[string]any
	if e.Profile != nil {
		json.Unmarshal(e.Profile, &profile)
	}
	return &aa.User{
		ID:        e.Key.Name,
		Username:  e.Username,
		Email:     e.Email,
		Profile:   profile,
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

func UserToEntity(u *aa.User, key *datastore.Key) *UserEntity {
	var profileBytes []byte
	if u.Profile != nil {
		profileBytes, _ = json.Marshal(u.Profile)
	}
	return &UserEntity{
		Key:       key,
		Username:  u.Username,
		Email:     u.Email,
		Profile:   profileBytes,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// LinkEntity is the Datastore entity for strategy links.
// Key format: StrategyName + "|" + StrategyID, so key uniqueness is the
// identity-ownership constraint.
type LinkEntity struct {
	Key          *datastore.Key `datastore:"__key__"`
	LinkID       string         `datastore:"link_id"`
	UserID       string         `datastore:"user_id"`
	StrategyName string         `datastore:"strategy_name"`
	StrategyID   string         `datastore:"strategy_id"`
	Profile      []byte         `datastore:"profile,noindex"` // JSON encoded
	Tokens       []byte         `datastore:"tokens,noindex"`  // JSON encoded
	CreatedAt    time.Time      `datastore:"created_at"`
	UpdatedAt    time.Time      `datastore:"updated_at"`
}

func (e *LinkEntity) ToLink() *aa.StrategyLink {
	var profile map[string]any
	if e.Profile != nil {
		json.Unmarshal(e.Profile, &profile)
	}
	var tokens *aa.TokenBundle
	if e.Tokens != nil {
		json.Unmarshal(e.Tokens, &tokens)
	}
	return &aa.StrategyLink{
		ID:           e.LinkID,
		UserID:       e.UserID,
		StrategyName: e.StrategyName,
		StrategyID:   e.StrategyID,
		Profile:      profile,
		Tokens:       tokens,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

func LinkToEntity(l *aa.StrategyLink, key *datastore.Key) *LinkEntity {
	var profileBytes []byte
	if l.Profile != nil {
		profileBytes, _ = json.Marshal(l.Profile)
	}
	var tokenBytes []byte
	if l.Tokens != nil {
		tokenBytes, _ = json.Marshal(l.Tokens)
	}
	return &LinkEntity{
		Key:          key,
		LinkID:       l.ID,
		UserID:       l.UserID,
		StrategyName: l.StrategyName,
		StrategyID:   l.StrategyID,
		Profile:      profileBytes,
		Tokens:       tokenBytes,
		CreatedAt:    l.CreatedAt,
		UpdatedAt:    l.UpdatedAt,
	}
}

// SessionEntity is the Datastore entity for sessions
type SessionEntity struct {
	Key       *datastore.Key `datastore:"__key__"`
	UserID    string         `datastore:"user_id"`
	Data      []byte         `datastore:"data,noindex"` // JSON encoded
	ExpiresAt time.Time      `datastore:"expires_at"`
	CreatedAt time.Time      `datastore:"created_at"`
}

func (e *SessionEntity) ToSession() *aa.Session {
	var data map[string]any
	if e.Data != nil {
		json.Unmarshal(e.Data, &data)
	}
	return &aa.Session{
		ID:        e.Key.Name,
		UserID:    e.UserID,
		Data:      data,
		ExpiresAt: e.ExpiresAt,
		CreatedAt: e.CreatedAt,
	}
}

func SessionToEntity(s *aa.Session, key *datastore.Key) *SessionEntity {
	var dataBytes []byte
	if s.Data != nil {
		dataBytes, _ = json.Marshal(s.Data)
	}
	return &SessionEntity{
		Key:       key,
		UserID:    s.UserID,
		Data:      dataBytes,
		ExpiresAt: s.ExpiresAt,
		CreatedAt: s.CreatedAt,
	}
}
