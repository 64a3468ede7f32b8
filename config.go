package anyauth

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the construction-time surface of the orchestrator: a signing
// secret, the session duration, cookie/header names for session transport,
// and the ordered strategy list.
type Config struct {
	// Secret is used by strategies that need symmetric verification
	// (bearer tokens with VerifySignature set).
	Secret string

	// SessionDuration controls session expiry. Default 24h.
	SessionDuration time.Duration

	// SessionCookieName / SessionHeaderName are where CurrentUser looks
	// for the session identifier.
	SessionCookieName string
	SessionHeaderName string

	// Strategies is the registry source. Disabled entries are excluded.
	Strategies []StrategyConfig

	// RateLimiter, when set, throttles login attempts per client/strategy.
	RateLimiter RateLimiter
}

// EnsureDefaults fills in reasonable defaults for unset fields.
func (c *Config) EnsureDefaults() *Config {
	if c.SessionDuration <= 0 {
		c.SessionDuration = DefaultSessionDuration
	}
	if c.SessionCookieName == "" {
		c.SessionCookieName = "anyauth_session"
	}
	if c.SessionHeaderName == "" {
		c.SessionHeaderName = "X-Session-Id"
	}
	return c
}

// configEnv holds raw env values for the broker configuration.
type configEnv struct {
	Secret            string        `env:"ANYAUTH_SECRET"`
	SessionDuration   time.Duration `env:"ANYAUTH_SESSION_DURATION" envDefault:"24h"`
	SessionCookieName string        `env:"ANYAUTH_SESSION_COOKIE"   envDefault:"anyauth_session"`

	LocalEnabled  bool `env:"ANYAUTH_LOCAL_ENABLED"  envDefault:"true"`
	BearerEnabled bool `env:"ANYAUTH_BEARER_ENABLED" envDefault:"false"`

	GithubClientID     string   `env:"ANYAUTH_GITHUB_CLIENT_ID"`
	GithubClientSecret string   `env:"ANYAUTH_GITHUB_CLIENT_SECRET"`
	GithubCallbackURL  string   `env:"ANYAUTH_GITHUB_CALLBACK_URL"`
	GithubScopes       []string `env:"ANYAUTH_GITHUB_SCOPES" envSeparator:","`

	GoogleClientID     string   `env:"ANYAUTH_GOOGLE_CLIENT_ID"`
	GoogleClientSecret string   `env:"ANYAUTH_GOOGLE_CLIENT_SECRET"`
	GoogleCallbackURL  string   `env:"ANYAUTH_GOOGLE_CALLBACK_URL"`
	GoogleScopes       []string `env:"ANYAUTH_GOOGLE_SCOPES" envSeparator:","`

	DiscordClientID     string   `env:"ANYAUTH_DISCORD_CLIENT_ID"`
	DiscordClientSecret string   `env:"ANYAUTH_DISCORD_CLIENT_SECRET"`
	DiscordCallbackURL  string   `env:"ANYAUTH_DISCORD_CALLBACK_URL"`
	DiscordScopes       []string `env:"ANYAUTH_DISCORD_SCOPES" envSeparator:","`
}

// LoadConfigFromEnv loads broker configuration from ANYAUTH_* environment
// variables. OAuth strategies are added for every provider with a complete
// client-id/secret/callback block. The local strategy still needs a
// Verifier wired in by the host before construction.
func LoadConfigFromEnv() (Config, error) {
	var raw configEnv
	if err := env.Parse(&raw); err != nil {
		return Config{}, err
	}

	cfg := Config{
		Secret:            raw.Secret,
		SessionDuration:   raw.SessionDuration,
		SessionCookieName: raw.SessionCookieName,
	}

	if raw.LocalEnabled {
		cfg.Strategies = append(cfg.Strategies, StrategyConfig{
			Name:  "local",
			Kind:  KindLocal,
			Local: &LocalConfig{},
		})
	}
	if raw.BearerEnabled {
		cfg.Strategies = append(cfg.Strategies, StrategyConfig{
			Name:   "bearer",
			Kind:   KindBearer,
			Bearer: &BearerConfig{VerifySignature: raw.Secret != ""},
		})
	}

	type providerEnv struct {
		name         string
		clientID     string
		clientSecret string
		callback     string
		scopes       []string
	}
	providers := []providerEnv{
		{"github", raw.GithubClientID, raw.GithubClientSecret, raw.GithubCallbackURL, raw.GithubScopes},
		{"google", raw.GoogleClientID, raw.GoogleClientSecret, raw.GoogleCallbackURL, raw.GoogleScopes},
		{"discord", raw.DiscordClientID, raw.DiscordClientSecret, raw.DiscordCallbackURL, raw.DiscordScopes},
	}
	for _, p := range providers {
		if p.clientID == "" || p.clientSecret == "" || p.callback == "" {
			continue
		}
		cfg.Strategies = append(cfg.Strategies, StrategyConfig{
			Name: p.name,
			Kind: KindOAuth,
			OAuth: &OAuthConfig{
				Provider:     p.name,
				ClientID:     p.clientID,
				ClientSecret: p.clientSecret,
				CallbackURL:  p.callback,
				Scopes:       trimCSV(p.scopes),
			},
		})
	}

	return cfg, nil
}

// trimCSV removes empty entries from a comma-split slice.
func trimCSV(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	result := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			result = append(result, v)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
