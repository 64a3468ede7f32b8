package anyauth

import (
	"context"
	"net/http"
)

type contextKey string

const (
	userContextKey    = contextKey("anyauth.user")
	sessionContextKey = contextKey("anyauth.session")
)

// UserFromContext returns the authenticated user placed on the request
// context by the middleware, or nil.
func UserFromContext(ctx context.Context) *User {
	user, _ := ctx.Value(userContextKey).(*User)
	return user
}

// SessionFromContext returns the session placed on the request context by
// the middleware, or nil.
func SessionFromContext(ctx context.Context) *Session {
	session, _ := ctx.Value(sessionContextKey).(*Session)
	return session
}

// Middleware wraps handlers with session-based authentication checks.
type Middleware struct {
	Auth *Auth
}

func NewMiddleware(auth *Auth) *Middleware {
	return &Middleware{Auth: auth}
}

// RequireAuth rejects unauthenticated requests with a 401 and otherwise
// injects the user and session into the request context.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, session, err := m.Auth.CurrentUser(r)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, "internal_error", "Authentication check failed")
			return
		}
		if user == nil {
			writeJSONError(w, http.StatusUnauthorized, CodeNotAuthenticated, "Not authenticated")
			return
		}
		next.ServeHTTP(w, r.WithContext(withAuthContext(r.Context(), user, session)))
	})
}

// OptionalAuth injects the user and session when a valid session is
// present and passes the request through unchanged otherwise.
func (m *Middleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, session, err := m.Auth.CurrentUser(r)
		if err == nil && user != nil {
			r = r.WithContext(withAuthContext(r.Context(), user, session))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole layers a role check over RequireAuth. Roles come from the
// user profile's "roles" entry. Authenticated users without the role get
// a 403, unauthenticated requests a 401.
func (m *Middleware) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFromContext(r.Context())
			if !userHasRole(user, role) {
				writeJSONError(w, http.StatusForbidden, CodeInsufficientRole, "Insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

func withAuthContext(ctx context.Context, user *User, session *Session) context.Context {
	ctx = context.WithValue(ctx, userContextKey, user)
	return context.WithValue(ctx, sessionContextKey, session)
}

// userHasRole checks the profile's roles list, tolerating both []string
// and the []any shape JSON decoding produces.
func userHasRole(user *User, role string) bool {
	if user == nil || user.Profile == nil {
		return false
	}
	switch roles := user.Profile["roles"].(type) {
	case []string:
		for _, r := range roles {
			if r == role {
				return true
			}
		}
	case []any:
		for _, r := range roles {
			if s, ok := r.(string); ok && s == role {
				return true
			}
		}
	}
	return false
}
