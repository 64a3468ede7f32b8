package anyauth

import "time"

// User is a canonical account. One user accumulates any number of strategy
// links over time; it is created through a strategy flow and never deleted
// by this package.
type User struct {
	ID        string         `json:"id"`
	Username  string         `json:"username,omitempty"`
	Email     string         `json:"email,omitempty"`
	Profile   map[string]any `json:"profile,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// StrategyLink binds one external identity to one canonical user. The pair
// (StrategyName, StrategyID) is globally unique; it is the join key used to
// answer "have we seen this external identity before".
type StrategyLink struct {
	ID           string         `json:"id"`
	UserID       string         `json:"user_id"`
	StrategyName string         `json:"strategy_name"` // "github", "local", ...
	StrategyID   string         `json:"strategy_id"`   // provider-side identity
	Profile      map[string]any `json:"profile,omitempty"`
	Tokens       *TokenBundle   `json:"tokens,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// TokenBundle holds provider tokens captured during an OAuth exchange.
type TokenBundle struct {
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// Session is a short-lived server-side record proving a prior successful
// authentication. A session whose expiry is at or before "now" is treated
// as absent at read time regardless of whether the reaper deleted it yet.
type Session struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Data      map[string]any `json:"data,omitempty"`
	ExpiresAt time.Time      `json:"expires_at"`
	CreatedAt time.Time      `json:"created_at"`
}

// IsExpired reports whether the session's expiry instant has been reached.
func (s *Session) IsExpired() bool {
	return !time.Now().Before(s.ExpiresAt)
}

// Identity is the candidate identity a successful strategy run produces:
// the not-yet-linked (provider id, profile) tuple prior to resolution
// against the user store.
type Identity struct {
	ProviderID string         `json:"provider_id"`
	Username   string         `json:"username,omitempty"`
	Email      string         `json:"email,omitempty"`
	Profile    map[string]any `json:"profile,omitempty"`
}
