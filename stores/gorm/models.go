//go:build !wasm
// +build !wasm

package gorm

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	aa "github.com/workpail/anyauth"
)

// JSONMap is a helper type for storing JSON maps in GORM
type JSONMap map[string]any

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			bytes = []byte(s)
		} else {
			return nil
		}
	}
	return json.Unmarshal(bytes, m)
}

// TokenColumn stores a token bundle as a JSON column.
type TokenColumn struct {
	Tokens *aa.TokenBundle
}

func (t TokenColumn) Value() (driver.Value, error) {
	if t.Tokens == nil {
		return nil, nil
	}
	return json.Marshal(t.Tokens)
}

func (t *TokenColumn) Scan(value any) error {
	if value == nil {
		t.Tokens = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			bytes = []byte(s)
		} else {
			return nil
		}
	}
	return json.Unmarshal(bytes, &t.Tokens)
}

// UserModel is the GORM model for users
type UserModel struct {
	ID        string    `gorm:"primaryKey;size:64"`
	Username  string    `gorm:"size:255"`
	Email     string    `gorm:"size:320;index"`
	Profile   JSONMap   `gorm:"type:jsonb"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (UserModel) TableName() string {
	return "users"
}

func (m *UserModel) ToUser() *aa.User {
	return &aa.User{
		ID:        m.ID,
		Username:  m.Username,
		Email:     m.Email,
		Profile:   m.Profile,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func UserToModel(u *aa.User) *UserModel {
	return &UserModel{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Profile:   JSONMap(u.Profile),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// StrategyLinkModel is the GORM model for strategy links. The composite
// unique index on (strategy_name, strategy_id) is the ownership constraint
// the linker's race handling depends on.
type StrategyLinkModel struct {
	ID           string      `gorm:"primaryKey;size:64"`
	UserID       string      `gorm:"size:64;index"`
	StrategyName string      `gorm:"size:32;uniqueIndex:idx_link_strategy_identity"`
	StrategyID   string      `gorm:"size:255;uniqueIndex:idx_link_strategy_identity"`
	Profile      JSONMap     `gorm:"type:jsonb"`
	Tokens       TokenColumn `gorm:"type:jsonb"`
	CreatedAt    time.Time   `gorm:"autoCreateTime"`
	UpdatedAt    time.Time   `gorm:"autoUpdateTime"`
}

func (StrategyLinkModel) TableName() string {
	return "strategy_links"
}

func (m *StrategyLinkModel) ToLink() *aa.StrategyLink {
	return &aa.StrategyLink{
		ID:           m.ID,
		UserID:       m.UserID,
		StrategyName: m.StrategyName,
		StrategyID:   m.StrategyID,
		Profile:      m.Profile,
		Tokens:       m.Tokens.Tokens,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func LinkToModel(l *aa.StrategyLink) *StrategyLinkModel {
	return &StrategyLinkModel{
		ID:           l.ID,
		UserID:       l.UserID,
		StrategyName: l.StrategyName,
		StrategyID:   l.StrategyID,
		Profile:      JSONMap(l.Profile),
		Tokens:       TokenColumn{Tokens: l.Tokens},
		CreatedAt:    l.CreatedAt,
		UpdatedAt:    l.UpdatedAt,
	}
}

// SessionModel is the GORM model for sessions
type SessionModel struct {
	ID        string    `gorm:"primaryKey;size:64"`
	UserID    string    `gorm:"size:64;index"`
	Data      JSONMap   `gorm:"type:jsonb"`
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (SessionModel) TableName() string {
	return "sessions"
}

func (m *SessionModel) ToSession() *aa.Session {
	return &aa.Session{
		ID:        m.ID,
		UserID:    m.UserID,
		Data:      m.Data,
		ExpiresAt: m.ExpiresAt,
		CreatedAt: m.CreatedAt,
	}
}

func SessionToModel(s *aa.Session) *SessionModel {
	return &SessionModel{
		ID:        s.ID,
		UserID:    s.UserID,
		Data:      JSONMap(s.Data),
		ExpiresAt: s.ExpiresAt,
		CreatedAt: s.CreatedAt,
	}
}
