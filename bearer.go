package anyauth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// BearerConfig configures the stateless token strategy.
type BearerConfig struct {
	// TokenParam is the query/body field checked when no Authorization
	// header is present. Default "access_token".
	TokenParam string `json:"token_param,omitempty"`

	// Secret enables HMAC signature verification. When empty the strategy
	// only decodes the token's structure and checks the exp claim. That
	// mode is insecure on its own; use it only in development or behind
	// upstream verification.
	Secret string `json:"-"`

	// VerifySignature makes the factory fall back to the orchestrator-wide
	// secret when Secret is empty.
	VerifySignature bool `json:"verify_signature,omitempty"`
}

// BearerStrategy authenticates with a JWT-shaped bearer token carried in
// the Authorization header, a query parameter, or a body field.
type BearerStrategy struct {
	name string
	cfg  BearerConfig
}

func NewBearerStrategy(name string, cfg BearerConfig) *BearerStrategy {
	if cfg.TokenParam == "" {
		cfg.TokenParam = "access_token"
	}
	return &BearerStrategy{name: name, cfg: cfg}
}

func (s *BearerStrategy) Name() string { return s.name }

func (s *BearerStrategy) Authenticate(r *http.Request) AuthResult {
	tokenString := s.extractToken(r)
	if tokenString == "" {
		return Failure(CodeNoTokenProvided, "no bearer token provided")
	}

	claims := jwt.MapClaims{}
	if s.cfg.Secret != "" {
		token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return []byte(s.cfg.Secret), nil
		})
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				return Failure(CodeTokenExpired, "token expired")
			}
			return Failure(CodeInvalidToken, "invalid token")
		}
		if !token.Valid {
			return Failure(CodeInvalidToken, "invalid token")
		}
	} else {
		// Structural decode only: three base64url segments, no signature
		// check. Expiry is still enforced below.
		if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
			return Failure(CodeInvalidToken, "invalid token")
		}
		exp, err := claims.GetExpirationTime()
		if err != nil {
			return Failure(CodeInvalidToken, "invalid token")
		}
		if exp != nil && !exp.After(time.Now()) {
			return Failure(CodeTokenExpired, "token expired")
		}
	}

	ident := identityFromClaims(claims)
	if ident.ProviderID == "" {
		return Failure(CodeInvalidToken, "token has no subject")
	}

	return AuthResult{Success: true, Identity: ident}
}

// extractToken reads the token from "Authorization: Bearer", then the named
// query parameter, then the named body field.
func (s *BearerStrategy) extractToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		if token := strings.TrimSpace(auth[len("Bearer "):]); token != "" {
			return token
		}
	}
	if token := r.URL.Query().Get(s.cfg.TokenParam); token != "" {
		return token
	}
	if err := r.ParseForm(); err == nil {
		return r.PostFormValue(s.cfg.TokenParam)
	}
	return ""
}

// identityFromClaims maps token claims to a candidate identity: subject id,
// optional display name and email, full claim set as the profile snapshot.
func identityFromClaims(claims jwt.MapClaims) *Identity {
	ident := &Identity{Profile: map[string]any(claims)}

	if sub, _ := claims["sub"].(string); sub != "" {
		ident.ProviderID = sub
	} else if id, _ := claims["id"].(string); id != "" {
		ident.ProviderID = id
	}

	for _, key := range []string{"username", "preferred_username", "login"} {
		if v, _ := claims[key].(string); v != "" {
			ident.Username = v
			break
		}
	}
	ident.Email, _ = claims["email"].(string)

	return ident
}
