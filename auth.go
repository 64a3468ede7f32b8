package anyauth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Auth is the broker facade: a strategy registry plus the session manager
// and identity linker, bound to host-owned stores. Hosts construct one Auth
// per process and own the lifecycle of the underlying storage handles.
type Auth struct {
	config     Config
	users      UserStore
	links      LinkStore
	strategies map[string]Strategy
	sessions   *SessionManager
	linker     *Linker
}

// New builds the broker. The strategy registry is assembled once here;
// disabled entries are skipped and duplicate names rejected. Stores may be
// nil for flows that do not need them, in which case the dependent
// operations fail with ErrDatabaseRequired.
func New(config Config, users UserStore, links LinkStore, sessions SessionStore) (*Auth, error) {
	config.EnsureDefaults()

	a := &Auth{
		config:     config,
		users:      users,
		links:      links,
		strategies: map[string]Strategy{},
		linker:     NewLinker(users, links),
	}
	if sessions != nil {
		a.sessions = NewSessionManager(sessions, config.SessionDuration)
	}

	for _, sc := range config.Strategies {
		if sc.Disabled {
			continue
		}
		strategy, err := newStrategy(sc, config.Secret)
		if err != nil {
			return nil, fmt.Errorf("strategy %q: %w", sc.Name, err)
		}
		if _, exists := a.strategies[strategy.Name()]; exists {
			return nil, fmt.Errorf("strategy %q registered twice", strategy.Name())
		}
		a.strategies[strategy.Name()] = strategy
	}

	return a, nil
}

// Strategy returns the registered strategy by name, or nil.
func (a *Auth) Strategy(name string) Strategy {
	return a.strategies[name]
}

// StrategyNames lists the registered strategy names.
func (a *Auth) StrategyNames() []string {
	names := make([]string, 0, len(a.strategies))
	for name := range a.strategies {
		names = append(names, name)
	}
	return names
}

// Authenticate dispatches the request to the named strategy. An unknown
// name is a failed result, not an error; callers handle both uniformly.
func (a *Auth) Authenticate(name string, r *http.Request) AuthResult {
	strategy := a.strategies[name]
	if strategy == nil {
		return Failure(CodeStrategyNotFound, fmt.Sprintf("unknown strategy %q", name))
	}
	return strategy.Authenticate(r)
}

// HandleCallback dispatches a provider callback to the named strategy. Only
// strategies with a callback phase accept one.
func (a *Auth) HandleCallback(name string, r *http.Request) AuthResult {
	strategy := a.strategies[name]
	if strategy == nil {
		return Failure(CodeStrategyNotFound, fmt.Sprintf("unknown strategy %q", name))
	}
	cb, ok := strategy.(CallbackStrategy)
	if !ok {
		return Failure(CodeCallbackUnsupported, fmt.Sprintf("strategy %q does not accept callbacks", name))
	}
	return cb.Callback(r)
}

// ResolveIdentity turns a successful result into a canonical user. Results
// that already carry a user (local) pass through; results carrying a
// candidate identity (oauth, bearer) go through the linker.
func (a *Auth) ResolveIdentity(ctx context.Context, strategyName string, res AuthResult) (*User, error) {
	if !res.Success {
		return nil, fmt.Errorf("cannot resolve a failed result (%s)", res.Code)
	}
	if res.User != nil {
		return res.User, nil
	}
	if res.Identity == nil {
		return nil, fmt.Errorf("result from %q carries neither user nor identity", strategyName)
	}
	return a.linker.ResolveOrCreate(ctx, strategyName, res.Identity, res.Tokens)
}

// CreateSession starts a session for the user.
func (a *Auth) CreateSession(ctx context.Context, user *User, data map[string]any) (*Session, error) {
	if a.sessions == nil {
		return nil, ErrDatabaseRequired
	}
	return a.sessions.Create(ctx, user, data)
}

// GetSession loads a live session by ID.
func (a *Auth) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	if a.sessions == nil {
		return nil, ErrDatabaseRequired
	}
	return a.sessions.Get(ctx, sessionID)
}

// UpdateSession replaces the session's data mapping.
func (a *Auth) UpdateSession(ctx context.Context, sessionID string, data map[string]any) (*Session, error) {
	if a.sessions == nil {
		return nil, ErrDatabaseRequired
	}
	return a.sessions.Update(ctx, sessionID, data)
}

// DestroySession removes a session. Absent sessions are not an error.
func (a *Auth) DestroySession(ctx context.Context, sessionID string) error {
	if a.sessions == nil {
		return ErrDatabaseRequired
	}
	return a.sessions.Destroy(ctx, sessionID)
}

// ReapSessions bulk-deletes expired sessions. Hosts call this on a timer.
func (a *Auth) ReapSessions(ctx context.Context) error {
	if a.sessions == nil {
		return ErrDatabaseRequired
	}
	return a.sessions.ReapExpired(ctx)
}

// Link attaches an additional strategy identity to an existing user.
func (a *Auth) Link(ctx context.Context, userID, strategyName, providerID string, profile map[string]any, tokens *TokenBundle) (*StrategyLink, error) {
	return a.linker.Link(ctx, userID, strategyName, providerID, profile, tokens)
}

// Unlink removes a strategy link, refusing to remove the last one.
func (a *Auth) Unlink(ctx context.Context, userID, strategyName string) error {
	return a.linker.Unlink(ctx, userID, strategyName)
}

// ListLinks returns the user's linked strategies.
func (a *Auth) ListLinks(ctx context.Context, userID string) ([]*StrategyLink, error) {
	return a.linker.ListLinks(ctx, userID)
}

// CurrentUser resolves the request's session to its user. The session ID is
// read from the configured cookie, falling back to the session header. Any
// miss along the chain (no ID, absent or expired session, vanished user)
// comes back as a nil user with no error; only real storage failures
// propagate.
func (a *Auth) CurrentUser(r *http.Request) (*User, *Session, error) {
	sessionID := a.requestSessionID(r)
	if sessionID == "" || a.sessions == nil || a.users == nil {
		return nil, nil, nil
	}

	session, err := a.sessions.Get(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	user, err := a.users.GetUser(r.Context(), session.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	return user, session, nil
}

func (a *Auth) requestSessionID(r *http.Request) string {
	if cookie, err := r.Cookie(a.config.SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return r.Header.Get(a.config.SessionHeaderName)
}
