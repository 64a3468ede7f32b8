//go:build !wasm
// +build !wasm

package gorm

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	aa "github.com/workpail/anyauth"
)

// AutoMigrate runs database migrations for all anyauth tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&UserModel{},
		&StrategyLinkModel{},
		&SessionModel{},
	)
}

// =============================================================================
// UserStore
// =============================================================================

// UserStore implements anyauth.UserStore using GORM
type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) CreateUser(ctx context.Context, user *aa.User) error {
	return s.db.WithContext(ctx).Create(UserToModel(user)).Error
}

func (s *UserStore) GetUser(ctx context.Context, userID string) (*aa.User, error) {
	var model UserModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, aa.ErrUserNotFound
		}
		return nil, err
	}
	return model.ToUser(), nil
}

func (s *UserStore) UpdateUser(ctx context.Context, user *aa.User) error {
	user.UpdatedAt = time.Now()
	result := s.db.WithContext(ctx).Model(&UserModel{}).Where("id = ?", user.ID).Updates(UserToModel(user))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return aa.ErrUserNotFound
	}
	return nil
}

// =============================================================================
// LinkStore
// =============================================================================

// LinkStore implements anyauth.LinkStore using GORM. The composite unique
// index on strategy_links provides the identity-ownership guarantee.
type LinkStore struct {
	db *gorm.DB
}

func NewLinkStore(db *gorm.DB) *LinkStore {
	return &LinkStore{db: db}
}

func (s *LinkStore) CreateLink(ctx context.Context, link *aa.StrategyLink) error {
	if err := s.db.WithContext(ctx).Create(LinkToModel(link)).Error; err != nil {
		if isDuplicateKeyError(err) {
			return aa.ErrDuplicateLink
		}
		return err
	}
	return nil
}

func (s *LinkStore) GetLink(ctx context.Context, strategyName, strategyID string) (*aa.StrategyLink, error) {
	var model StrategyLinkModel
	err := s.db.WithContext(ctx).
		First(&model, "strategy_name = ? AND strategy_id = ?", strategyName, strategyID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, aa.ErrLinkNotFound
		}
		return nil, err
	}
	return model.ToLink(), nil
}

func (s *LinkStore) ListUserLinks(ctx context.Context, userID string) ([]*aa.StrategyLink, error) {
	var models []StrategyLinkModel
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&models).Error; err != nil {
		return nil, err
	}
	links := make([]*aa.StrategyLink, 0, len(models))
	for i := range models {
		links = append(links, models[i].ToLink())
	}
	return links, nil
}

func (s *LinkStore) DeleteLink(ctx context.Context, userID, strategyName string) error {
	result := s.db.WithContext(ctx).
		Where("user_id = ? AND strategy_name = ?", userID, strategyName).
		Delete(&StrategyLinkModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return aa.ErrLinkNotFound
	}
	return nil
}

// isDuplicateKeyError recognizes unique-constraint violations across the
// dialects GORM supports. Not every driver maps to gorm.ErrDuplicatedKey,
// so fall back to message sniffing.
func isDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}

// =============================================================================
// SessionStore
// =============================================================================

// SessionStore implements anyauth.SessionStore using GORM
type SessionStore struct {
	db *gorm.DB
}

func NewSessionStore(db *gorm.DB) *SessionStore {
	return &SessionStore{db: db}
}

func (s *SessionStore) SaveSession(ctx context.Context, session *aa.Session) error {
	return s.db.WithContext(ctx).Save(SessionToModel(session)).Error
}

func (s *SessionStore) GetSession(ctx context.Context, sessionID string) (*aa.Session, error) {
	var model SessionModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", sessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, aa.ErrSessionNotFound
		}
		return nil, err
	}
	return model.ToSession(), nil
}

func (s *SessionStore) DeleteSession(ctx context.Context, sessionID string) error {
	return s.db.WithContext(ctx).Delete(&SessionModel{}, "id = ?", sessionID).Error
}

func (s *SessionStore) DeleteExpiredSessions(ctx context.Context, now time.Time) error {
	return s.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&SessionModel{}).Error
}
