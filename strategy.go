package anyauth

import (
	"fmt"
	"net/http"
)

// Strategy is a named unit of credential verification. Authenticate never
// returns an error; every failure mode is folded into the AuthResult.
type Strategy interface {
	Name() string
	Authenticate(r *http.Request) AuthResult
}

// CallbackStrategy is implemented by strategies that use a redirect-based
// handshake (OAuth). Local and bearer strategies do not implement it.
type CallbackStrategy interface {
	Strategy
	Callback(r *http.Request) AuthResult
}

// StrategyKind is the closed set of strategy variants the factory knows.
type StrategyKind string

const (
	KindLocal  StrategyKind = "local"
	KindOAuth  StrategyKind = "oauth"
	KindBearer StrategyKind = "bearer"

	// KindSAML is recognized by the factory but not implemented.
	KindSAML StrategyKind = "saml"
)

// StrategyConfig describes one strategy in the orchestrator's registry.
// Exactly one of the per-kind config fields should be set, matching Kind.
type StrategyConfig struct {
	// Name is the registry key and the StrategyName recorded on links,
	// e.g. "github", "local".
	Name string `json:"name"`

	Kind StrategyKind `json:"kind"`

	// Disabled strategies are skipped when building the registry.
	Disabled bool `json:"disabled,omitempty"`

	Local  *LocalConfig  `json:"local,omitempty"`
	OAuth  *OAuthConfig  `json:"oauth,omitempty"`
	Bearer *BearerConfig `json:"bearer,omitempty"`
}

// newStrategy constructs a strategy from its config. secret is the
// orchestrator-wide signing secret, passed by reference to kinds that can
// use it (bearer verification).
func newStrategy(cfg StrategyConfig, secret string) (Strategy, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("strategy config missing name")
	}
	switch cfg.Kind {
	case KindLocal:
		lc := cfg.Local
		if lc == nil {
			lc = &LocalConfig{}
		}
		return NewLocalStrategy(cfg.Name, *lc), nil
	case KindOAuth:
		if cfg.OAuth == nil {
			return nil, fmt.Errorf("strategy %q: oauth config required", cfg.Name)
		}
		return NewOAuthStrategy(cfg.Name, *cfg.OAuth)
	case KindBearer:
		bc := cfg.Bearer
		if bc == nil {
			bc = &BearerConfig{}
		}
		if bc.VerifySignature && bc.Secret == "" {
			bc.Secret = secret
		}
		return NewBearerStrategy(cfg.Name, *bc), nil
	case KindSAML:
		return nil, fmt.Errorf("strategy %q: saml is not implemented", cfg.Name)
	default:
		return nil, fmt.Errorf("strategy %q: unknown kind %q", cfg.Name, cfg.Kind)
	}
}
