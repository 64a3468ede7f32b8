package anyauth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

// stateCookieName carries the OAuth correlation token between the authorize
// redirect and the provider callback.
const stateCookieName = "oauthstate"

// stateCookieMaxAge bounds how long a pending OAuth handshake stays valid.
const stateCookieMaxAge = 300

// redirectCookieName remembers where to send the browser after a completed
// OAuth login, captured from the login request's callbackURL parameter.
const redirectCookieName = "anyauth_redirect"

// MountRoutes registers the broker's HTTP surface on a mux router:
//
//	POST/GET  /login/{strategy}
//	GET       /callback/{strategy}
//	POST/GET  /logout
//	GET       /profile
//	POST      /link/{strategy}
//	POST      /unlink/{strategy}
func (a *Auth) MountRoutes(r *mux.Router) {
	r.HandleFunc("/login/{strategy}", a.handleLogin)
	r.HandleFunc("/callback/{strategy}", a.handleCallback)
	r.HandleFunc("/logout", a.handleLogout)
	r.HandleFunc("/profile", a.handleProfile).Methods(http.MethodGet)
	r.HandleFunc("/link/{strategy}", a.handleLink).Methods(http.MethodPost)
	r.HandleFunc("/unlink/{strategy}", a.handleUnlink).Methods(http.MethodPost)
}

// LoginHandler returns a standalone handler for the named strategy, for
// hosts wiring routes themselves instead of using MountRoutes.
func (a *Auth) LoginHandler(strategyName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.login(w, r, strategyName)
	}
}

// CallbackHandler returns a standalone callback handler for the named
// strategy.
func (a *Auth) CallbackHandler(strategyName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.callback(w, r, strategyName)
	}
}

// LogoutHandler destroys the request's session and clears the cookie.
func (a *Auth) LogoutHandler() http.HandlerFunc { return a.handleLogout }

// ProfileHandler serves the authenticated user and their linked strategies.
func (a *Auth) ProfileHandler() http.HandlerFunc { return a.handleProfile }

// LinkHandler returns a handler that links the named strategy to the
// authenticated user from a JSON body.
func (a *Auth) LinkHandler(strategyName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.link(w, r, strategyName)
	}
}

// UnlinkHandler returns a handler that removes the named strategy link
// from the authenticated user.
func (a *Auth) UnlinkHandler(strategyName string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.unlink(w, r, strategyName)
	}
}

func (a *Auth) handleLogin(w http.ResponseWriter, r *http.Request) {
	a.login(w, r, mux.Vars(r)["strategy"])
}

func (a *Auth) login(w http.ResponseWriter, r *http.Request, strategyName string) {
	if limiter := a.config.RateLimiter; limiter != nil {
		if !limiter.Allow(clientIP(r) + ":" + strategyName) {
			writeJSONError(w, http.StatusTooManyRequests, "rate_limited", "Too many login attempts")
			return
		}
	}

	res := a.Authenticate(strategyName, r)
	if !res.Success {
		writeResultError(w, res)
		return
	}

	// Redirect-phase result: bind the state to the browser and send it to
	// the provider. The actual login completes in the callback.
	if res.RedirectURL != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     stateCookieName,
			Value:    res.State,
			Path:     "/",
			MaxAge:   stateCookieMaxAge,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		if to := r.FormValue("callbackURL"); to != "" && isLocalRedirect(to) {
			http.SetCookie(w, &http.Cookie{
				Name:     redirectCookieName,
				Value:    to,
				Path:     "/",
				MaxAge:   stateCookieMaxAge,
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		http.Redirect(w, r, res.RedirectURL, http.StatusFound)
		return
	}

	user, err := a.ResolveIdentity(r.Context(), strategyName, res)
	if err != nil {
		writeResolveError(w, err)
		return
	}
	a.finishLogin(w, r, user)
}

func (a *Auth) handleCallback(w http.ResponseWriter, r *http.Request) {
	a.callback(w, r, mux.Vars(r)["strategy"])
}

func (a *Auth) callback(w http.ResponseWriter, r *http.Request, strategyName string) {
	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		writeJSONError(w, http.StatusBadRequest, CodeOAuthCallbackFailed, "Invalid oauth state")
		return
	}
	clearCookie(w, stateCookieName)

	res := a.HandleCallback(strategyName, r)
	if !res.Success {
		writeResultError(w, res)
		return
	}

	// A logged-in user completing an OAuth handshake is linking a new
	// strategy, not logging in again.
	current, _, err := a.CurrentUser(r)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "Session lookup failed")
		return
	}
	if current != nil && res.Identity != nil {
		a.linkIdentity(w, r, current, strategyName, res)
		return
	}

	user, err := a.ResolveIdentity(r.Context(), strategyName, res)
	if err != nil {
		writeResolveError(w, err)
		return
	}
	a.finishLogin(w, r, user)
}

// linkIdentity attaches the callback's identity to the already-logged-in
// user. Re-linking an identity the user already owns is a no-op success.
func (a *Auth) linkIdentity(w http.ResponseWriter, r *http.Request, user *User, strategyName string, res AuthResult) {
	_, err := a.Link(r.Context(), user.ID, strategyName, res.Identity.ProviderID, res.Identity.Profile, res.Tokens)
	if errors.Is(err, ErrDuplicateLink) {
		existing, lookupErr := a.links.GetLink(r.Context(), strategyName, res.Identity.ProviderID)
		if lookupErr != nil || existing.UserID != user.ID {
			writeJSONError(w, http.StatusBadRequest, CodeLinkAlreadyClaimed, "This identity is already linked to another account")
			return
		}
	} else if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "Linking failed")
		return
	}
	a.finishNavigation(w, r, map[string]any{"success": true, "linked": strategyName})
}

// finishLogin creates the session, sets the cookie and completes the
// response, honoring a pending post-login redirect if one was captured.
func (a *Auth) finishLogin(w http.ResponseWriter, r *http.Request, user *User) {
	session, err := a.CreateSession(r.Context(), user, nil)
	if err != nil {
		if errors.Is(err, ErrDatabaseRequired) {
			writeJSONError(w, http.StatusInternalServerError, CodeDatabaseRequired, "Session storage not configured")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "Could not create session")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     a.config.SessionCookieName,
		Value:    session.ID,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	a.finishNavigation(w, r, map[string]any{"success": true, "user": user})
}

// finishNavigation redirects to a captured post-login destination when one
// exists, otherwise writes the JSON payload.
func (a *Auth) finishNavigation(w http.ResponseWriter, r *http.Request, payload map[string]any) {
	if cookie, err := r.Cookie(redirectCookieName); err == nil && isLocalRedirect(cookie.Value) {
		clearCookie(w, redirectCookieName)
		http.Redirect(w, r, cookie.Value, http.StatusFound)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (a *Auth) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sessionID := a.requestSessionID(r); sessionID != "" && a.sessions != nil {
		if err := a.DestroySession(r.Context(), sessionID); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "internal_error", "Logout failed")
			return
		}
	}
	clearCookie(w, a.config.SessionCookieName)

	if to := r.FormValue("to"); to != "" && isLocalRedirect(to) {
		http.Redirect(w, r, to, http.StatusFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (a *Auth) handleProfile(w http.ResponseWriter, r *http.Request) {
	user, _, err := a.CurrentUser(r)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "Session lookup failed")
		return
	}
	if user == nil {
		writeJSONError(w, http.StatusUnauthorized, CodeNotAuthenticated, "Not authenticated")
		return
	}

	links, err := a.ListLinks(r.Context(), user.ID)
	if err != nil && !errors.Is(err, ErrDatabaseRequired) {
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "Could not list links")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user, "links": links})
}

func (a *Auth) handleLink(w http.ResponseWriter, r *http.Request) {
	a.link(w, r, mux.Vars(r)["strategy"])
}

func (a *Auth) link(w http.ResponseWriter, r *http.Request, strategyName string) {
	user, _, err := a.CurrentUser(r)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "Session lookup failed")
		return
	}
	if user == nil {
		writeJSONError(w, http.StatusUnauthorized, CodeNotAuthenticated, "Not authenticated")
		return
	}

	var body struct {
		ProviderID string         `json:"provider_id"`
		Profile    map[string]any `json:"profile"`
		Tokens     *TokenBundle   `json:"tokens"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ProviderID == "" {
		writeJSONError(w, http.StatusBadRequest, "invalid_request", "provider_id is required")
		return
	}

	link, err := a.Link(r.Context(), user.ID, strategyName, body.ProviderID, body.Profile, body.Tokens)
	switch {
	case errors.Is(err, ErrDuplicateLink):
		writeJSONError(w, http.StatusBadRequest, CodeLinkAlreadyClaimed, "This identity is already linked to an account")
	case errors.Is(err, ErrDatabaseRequired):
		writeJSONError(w, http.StatusInternalServerError, CodeDatabaseRequired, "Link storage not configured")
	case err != nil:
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "Linking failed")
	default:
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "link": link})
	}
}

func (a *Auth) handleUnlink(w http.ResponseWriter, r *http.Request) {
	a.unlink(w, r, mux.Vars(r)["strategy"])
}

func (a *Auth) unlink(w http.ResponseWriter, r *http.Request, strategyName string) {
	user, _, err := a.CurrentUser(r)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "Session lookup failed")
		return
	}
	if user == nil {
		writeJSONError(w, http.StatusUnauthorized, CodeNotAuthenticated, "Not authenticated")
		return
	}

	err = a.Unlink(r.Context(), user.ID, strategyName)
	switch {
	case errors.Is(err, ErrLastStrategy):
		writeJSONError(w, http.StatusBadRequest, CodeCannotRemoveLastStrategy, "Cannot unlink last authentication method")
	case errors.Is(err, ErrLinkNotFound):
		writeJSONError(w, http.StatusBadRequest, "not_linked", fmt.Sprintf("Strategy %q is not linked", strategyName))
	case errors.Is(err, ErrDatabaseRequired):
		writeJSONError(w, http.StatusInternalServerError, CodeDatabaseRequired, "Link storage not configured")
	case err != nil:
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "Unlinking failed")
	default:
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}

// writeResultError maps a failed AuthResult to a 400-class JSON response.
func writeResultError(w http.ResponseWriter, res AuthResult) {
	status := http.StatusBadRequest
	switch res.Code {
	case CodeStrategyNotFound:
		status = http.StatusNotFound
	case CodeInvalidCredentials, CodeInvalidToken, CodeTokenExpired:
		status = http.StatusUnauthorized
	case CodeVerifierNotConfigured:
		status = http.StatusInternalServerError
	}
	writeJSONError(w, status, res.Code, res.Message)
}

func writeResolveError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrDatabaseRequired) {
		writeJSONError(w, http.StatusInternalServerError, CodeDatabaseRequired, "User storage not configured")
		return
	}
	writeJSONError(w, http.StatusInternalServerError, "internal_error", "Could not resolve user")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"error": message, "code": code})
}

// clearCookie expires the named cookie.
func clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// isLocalRedirect accepts only same-site relative destinations so the
// redirect cookies cannot be used to bounce the browser off-site.
func isLocalRedirect(to string) bool {
	return strings.HasPrefix(to, "/") && !strings.HasPrefix(to, "//")
}

// clientIP extracts the caller's address for rate-limit keying, preferring
// the first X-Forwarded-For hop.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
