package anyauth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Verifier checks a username/password pair against however the host
// application stores credentials. Returning (nil, nil) means "no match";
// a non-nil error means the verifier itself failed and the failure must
// not leak to the client.
type Verifier func(ctx context.Context, username, password string) (*User, error)

// LocalConfig configures the password strategy.
type LocalConfig struct {
	// Form/body field names. Default "username" / "password".
	UsernameField string `json:"username_field,omitempty"`
	PasswordField string `json:"password_field,omitempty"`

	// Verifier is supplied by the host application; this package does not
	// know how passwords are stored. See NewStoreVerifier for a
	// store-backed default.
	Verifier Verifier `json:"-"`
}

// LocalStrategy authenticates with a username and password submitted in a
// form or JSON body.
type LocalStrategy struct {
	name string
	cfg  LocalConfig
}

func NewLocalStrategy(name string, cfg LocalConfig) *LocalStrategy {
	if cfg.UsernameField == "" {
		cfg.UsernameField = "username"
	}
	if cfg.PasswordField == "" {
		cfg.PasswordField = "password"
	}
	return &LocalStrategy{name: name, cfg: cfg}
}

func (s *LocalStrategy) Name() string { return s.name }

func (s *LocalStrategy) Authenticate(r *http.Request) AuthResult {
	username, password := s.readCredentials(r)
	if username == "" || password == "" {
		return Failure(CodeMissingCredentials, "username and password required")
	}

	if s.cfg.Verifier == nil {
		return Failure(CodeVerifierNotConfigured, "no credential verifier configured")
	}

	user, err := s.cfg.Verifier(r.Context(), username, password)
	if err != nil {
		// Verifier internals (storage details, hash errors) stay server-side.
		slog.Warn("credential verifier failed", "strategy", s.name, "err", err)
		return Failure(CodeAuthenticationFailed, "authentication failed")
	}
	if user == nil {
		return Failure(CodeInvalidCredentials, "invalid credentials")
	}

	return Succeeded(user)
}

// readCredentials pulls the configured fields from a urlencoded form or a
// JSON body.
func (s *LocalStrategy) readCredentials(r *http.Request) (username, password string) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/json") {
		var data map[string]any
		if err := json.NewDecoder(r.Body).Decode(&data); err != nil || data == nil {
			return "", ""
		}
		if u, ok := data[s.cfg.UsernameField].(string); ok {
			username = u
		}
		if p, ok := data[s.cfg.PasswordField].(string); ok {
			password = p
		}
		return username, password
	}

	if err := r.ParseForm(); err != nil {
		return "", ""
	}
	return r.FormValue(s.cfg.UsernameField), r.FormValue(s.cfg.PasswordField)
}

// HashPassword hashes a password for storage in a local strategy link.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// NewStoreVerifier builds a Verifier over the package's own stores: the
// username is the provider-side identity of a link under strategyName, and
// the bcrypt password hash lives in that link's profile under
// "password_hash". Hosts with their own credential storage supply their own
// Verifier instead.
func NewStoreVerifier(users UserStore, links LinkStore, strategyName string) Verifier {
	return func(ctx context.Context, username, password string) (*User, error) {
		link, err := links.GetLink(ctx, strategyName, username)
		if err != nil {
			if errors.Is(err, ErrLinkNotFound) {
				return nil, nil
			}
			return nil, err
		}

		hash, _ := link.Profile["password_hash"].(string)
		if hash == "" {
			return nil, nil
		}
		if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
			return nil, nil
		}

		return users.GetUser(ctx, link.UserID)
	}
}
