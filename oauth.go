package anyauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// DefaultOAuthTimeout bounds the token exchange and profile fetch.
const DefaultOAuthTimeout = 10 * time.Second

// OAuthConfig configures an authorization-code strategy. Either Provider
// names a preset (see providers.go) or the three endpoint URLs are given
// explicitly.
type OAuthConfig struct {
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"-"`
	CallbackURL  string   `json:"callback_url"`
	Scopes       []string `json:"scopes,omitempty"`

	// Provider selects a preset endpoint configuration ("github",
	// "google", ...). Explicit URLs below override preset values.
	Provider string `json:"provider,omitempty"`

	AuthURL     string `json:"auth_url,omitempty"`
	TokenURL    string `json:"token_url,omitempty"`
	UserInfoURL string `json:"user_info_url,omitempty"`

	// HTTPClient overrides the client used for the exchange and profile
	// fetch. Tests point it at an httptest server.
	HTTPClient *http.Client `json:"-"`

	// Timeout bounds each outbound provider call. Default 10s.
	Timeout time.Duration `json:"timeout,omitempty"`
}

// OAuthStrategy drives the two-phase authorization-code handshake: a
// redirect built by Authenticate and a code exchange plus profile fetch in
// Callback. No intermediate state is persisted server-side; the state token
// returned from Authenticate is the only correlation value and the HTTP
// layer is responsible for binding it to the pending request.
type OAuthStrategy struct {
	name        string
	conf        *oauth2.Config
	userInfoURL string
	client      *http.Client
	timeout     time.Duration
}

func NewOAuthStrategy(name string, cfg OAuthConfig) (*OAuthStrategy, error) {
	if preset, ok := providerPresets[cfg.Provider]; ok {
		if cfg.AuthURL == "" {
			cfg.AuthURL = preset.Endpoint.AuthURL
		}
		if cfg.TokenURL == "" {
			cfg.TokenURL = preset.Endpoint.TokenURL
		}
		if cfg.UserInfoURL == "" {
			cfg.UserInfoURL = preset.UserInfoURL
		}
		if len(cfg.Scopes) == 0 {
			cfg.Scopes = preset.Scopes
		}
	}
	if cfg.AuthURL == "" || cfg.TokenURL == "" || cfg.UserInfoURL == "" {
		return nil, fmt.Errorf("oauth strategy %q: endpoint URLs required (or a known provider preset)", name)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultOAuthTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &OAuthStrategy{
		name: name,
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		userInfoURL: cfg.UserInfoURL,
		client:      client,
		timeout:     cfg.Timeout,
	}, nil
}

func (s *OAuthStrategy) Name() string { return s.name }

// Authenticate builds the authorize redirect. No network call happens here.
func (s *OAuthStrategy) Authenticate(r *http.Request) AuthResult {
	state := generateState()
	return AuthResult{
		Success:     true,
		RedirectURL: s.conf.AuthCodeURL(state),
		State:       state,
	}
}

// Callback exchanges the authorization code and fetches the provider
// profile. Every failure folds into the result taxonomy; nothing escapes as
// an error.
func (s *OAuthStrategy) Callback(r *http.Request) AuthResult {
	query := r.URL.Query()
	code := query.Get("code")
	if code == "" {
		msg := "authorization code missing from callback"
		if provErr := query.Get("error"); provErr != "" {
			msg = fmt.Sprintf("provider returned error: %s", provErr)
		}
		return Failure(CodeMissingAuthorizationCode, msg)
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.client)

	token, err := s.conf.Exchange(ctx, code)
	if err != nil {
		return Failure(CodeTokenExchangeFailed, "token exchange failed")
	}
	if token.AccessToken == "" {
		return Failure(CodeTokenExchangeFailed, "token response missing access token")
	}

	profile, res := s.fetchProfile(ctx, token.AccessToken)
	if !res.Success {
		return res
	}

	bundle := &TokenBundle{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry
		bundle.ExpiresAt = &expiry
	}

	return AuthResult{
		Success:  true,
		Identity: normalizeProfile(profile),
		Tokens:   bundle,
	}
}

// fetchProfile GETs the provider's user-info endpoint with the access token.
func (s *OAuthStrategy) fetchProfile(ctx context.Context, accessToken string) (map[string]any, AuthResult) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userInfoURL, nil)
	if err != nil {
		return nil, Failure(CodeOAuthCallbackFailed, "oauth callback failed")
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, Failure(CodeProfileFetchFailed, "profile fetch failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, Failure(CodeProfileFetchFailed, fmt.Sprintf("profile fetch returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Failure(CodeOAuthCallbackFailed, "oauth callback failed")
	}
	var profile map[string]any
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, Failure(CodeOAuthCallbackFailed, "oauth callback failed")
	}
	return profile, AuthResult{Success: true}
}

// normalizeProfile maps a raw provider profile to a candidate identity:
// "id" or "sub" as the provider identity, the usual display-name keys, and
// the full raw profile as the snapshot.
func normalizeProfile(profile map[string]any) *Identity {
	ident := &Identity{Profile: profile}

	if id := stringifyID(profile["id"]); id != "" {
		ident.ProviderID = id
	} else if sub := stringifyID(profile["sub"]); sub != "" {
		ident.ProviderID = sub
	}

	for _, key := range []string{"username", "login", "preferred_username"} {
		if v, _ := profile[key].(string); v != "" {
			ident.Username = v
			break
		}
	}
	ident.Email, _ = profile["email"].(string)

	return ident
}

// stringifyID renders provider ids that arrive as strings or JSON numbers
// (GitHub sends numeric ids).
func stringifyID(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return fmt.Sprintf("%.0f", id)
	case json.Number:
		return id.String()
	default:
		return ""
	}
}

// generateState returns a fresh unguessable correlation token for the
// authorize redirect.
func generateState() string {
	b := make([]byte, 16)
	rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
