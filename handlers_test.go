package anyauth_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"

	aa "github.com/workpail/anyauth"
)

func newTestServer(t *testing.T, broker *testBroker) *httptest.Server {
	t.Helper()
	r := mux.NewRouter()
	broker.Auth.MountRoutes(r.PathPrefix("/auth").Subrouter())
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server
}

func sessionCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == "anyauth_session" {
			return c
		}
	}
	return nil
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response body: %v", err)
	}
	return body
}

func TestLoginHandler_LocalSuccess(t *testing.T) {
	broker := newTestBroker(t)
	broker.registerLocalUser(t, "u1", "alice", "pw1234")
	server := newTestServer(t, broker)

	resp, err := http.Post(server.URL+"/auth/login/local", "application/json",
		strings.NewReader(`{"username": "alice", "password": "pw1234"}`))
	if err != nil {
		t.Fatalf("POST login: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	cookie := sessionCookie(resp)
	if cookie == nil || cookie.Value == "" {
		t.Fatal("expected session cookie on successful login")
	}
	if !cookie.HttpOnly {
		t.Error("expected HttpOnly session cookie")
	}

	body := decodeBody(t, resp)
	if body["success"] != true {
		t.Errorf("expected success body, got %+v", body)
	}
}

func TestLoginHandler_LocalFailure(t *testing.T) {
	broker := newTestBroker(t)
	broker.registerLocalUser(t, "u1", "alice", "pw1234")
	server := newTestServer(t, broker)

	resp, err := http.Post(server.URL+"/auth/login/local", "application/json",
		strings.NewReader(`{"username": "alice", "password": "wrong"}`))
	if err != nil {
		t.Fatalf("POST login: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["code"] != aa.CodeInvalidCredentials {
		t.Errorf("expected invalid_credentials, got %+v", body)
	}
	if sessionCookie(resp) != nil {
		t.Error("failed login must not set a session cookie")
	}
}

func TestLoginHandler_UnknownStrategy(t *testing.T) {
	broker := newTestBroker(t)
	server := newTestServer(t, broker)

	resp, err := http.Post(server.URL+"/auth/login/mystery", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("POST login: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for unknown strategy, got %d", resp.StatusCode)
	}
}

func TestLoginHandler_OAuthRedirect(t *testing.T) {
	provider := newFakeProvider(t)
	broker := newTestBroker(t, aa.StrategyConfig{
		Name: "fake",
		Kind: aa.KindOAuth,
		OAuth: &aa.OAuthConfig{
			ClientID:     "cid",
			ClientSecret: "cs",
			CallbackURL:  "http://h/auth/callback/fake",
			AuthURL:      provider.server.URL + "/authorize",
			TokenURL:     provider.server.URL + "/token",
			UserInfoURL:  provider.server.URL + "/user",
			HTTPClient:   provider.server.Client(),
		},
	})
	server := newTestServer(t, broker)

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Get(server.URL + "/auth/login/fake")
	if err != nil {
		t.Fatalf("GET login: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		t.Fatalf("expected 302, got %d", resp.StatusCode)
	}
	location := resp.Header.Get("Location")
	if !strings.Contains(location, "client_id=cid") {
		t.Errorf("redirect location missing client_id: %s", location)
	}

	var state string
	for _, c := range resp.Cookies() {
		if c.Name == "oauthstate" {
			state = c.Value
		}
	}
	if state == "" {
		t.Fatal("expected oauthstate cookie")
	}
	if !strings.Contains(location, "state="+state) {
		t.Errorf("state cookie %q not bound into redirect %s", state, location)
	}
}

func TestCallbackHandler_FullOAuthLogin(t *testing.T) {
	provider := newFakeProvider(t)
	broker := newTestBroker(t, aa.StrategyConfig{
		Name: "fake",
		Kind: aa.KindOAuth,
		OAuth: &aa.OAuthConfig{
			ClientID:     "cid",
			ClientSecret: "cs",
			CallbackURL:  "http://h/auth/callback/fake",
			AuthURL:      provider.server.URL + "/authorize",
			TokenURL:     provider.server.URL + "/token",
			UserInfoURL:  provider.server.URL + "/user",
			HTTPClient:   provider.server.Client(),
		},
	})
	server := newTestServer(t, broker)

	req, _ := http.NewRequest("GET", server.URL+"/auth/callback/fake?code=abc&state=st1", nil)
	req.AddCookie(&http.Cookie{Name: "oauthstate", Value: "st1"})

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET callback: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if sessionCookie(resp) == nil {
		t.Error("expected session cookie after OAuth login")
	}
	body := decodeBody(t, resp)
	if body["success"] != true {
		t.Errorf("expected success, got %+v", body)
	}
}

func TestCallbackHandler_StateMismatch(t *testing.T) {
	broker := newTestBroker(t)
	server := newTestServer(t, broker)

	tests := []struct {
		name   string
		cookie string
		query  string
	}{
		{"no cookie", "", "state=st1"},
		{"mismatched state", "other", "state=st1"},
		{"missing query state", "st1", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest("GET", server.URL+"/auth/callback/local?code=x&"+tt.query, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "oauthstate", Value: tt.cookie})
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("GET callback: %v", err)
			}
			resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("expected 400 for state mismatch, got %d", resp.StatusCode)
			}
		})
	}
}

func TestLogoutHandler(t *testing.T) {
	broker := newTestBroker(t)
	broker.registerLocalUser(t, "u1", "alice", "pw1234")
	server := newTestServer(t, broker)

	resp, err := http.Post(server.URL+"/auth/login/local", "application/json",
		strings.NewReader(`{"username": "alice", "password": "pw1234"}`))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	resp.Body.Close()
	cookie := sessionCookie(resp)
	if cookie == nil {
		t.Fatal("expected session cookie")
	}

	req, _ := http.NewRequest("POST", server.URL+"/auth/logout", nil)
	req.AddCookie(cookie)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("logout: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	// The session is gone: profile now reads anonymous.
	req, _ = http.NewRequest("GET", server.URL+"/auth/profile", nil)
	req.AddCookie(cookie)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("profile after logout: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", resp.StatusCode)
	}
}

func TestProfileHandler(t *testing.T) {
	broker := newTestBroker(t)
	broker.registerLocalUser(t, "u1", "alice", "pw1234")
	server := newTestServer(t, broker)

	// Anonymous: 401.
	resp, err := http.Get(server.URL + "/auth/profile")
	if err != nil {
		t.Fatalf("GET profile: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for anonymous profile, got %d", resp.StatusCode)
	}

	// Authenticated: user plus links.
	resp, err = http.Post(server.URL+"/auth/login/local", "application/json",
		strings.NewReader(`{"username": "alice", "password": "pw1234"}`))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	resp.Body.Close()
	cookie := sessionCookie(resp)

	req, _ := http.NewRequest("GET", server.URL+"/auth/profile", nil)
	req.AddCookie(cookie)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET profile: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	user, _ := body["user"].(map[string]any)
	if user == nil || user["username"] != "alice" {
		t.Errorf("expected user alice in profile, got %+v", body)
	}
	links, _ := body["links"].([]any)
	if len(links) != 1 {
		t.Errorf("expected one link in profile, got %+v", body["links"])
	}
}

func TestLinkAndUnlinkHandlers(t *testing.T) {
	broker := newTestBroker(t)
	broker.registerLocalUser(t, "u1", "alice", "pw1234")
	server := newTestServer(t, broker)

	resp, err := http.Post(server.URL+"/auth/login/local", "application/json",
		strings.NewReader(`{"username": "alice", "password": "pw1234"}`))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	resp.Body.Close()
	cookie := sessionCookie(resp)

	do := func(method, path, body string) *http.Response {
		t.Helper()
		req, _ := http.NewRequest(method, server.URL+path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.AddCookie(cookie)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("%s %s: %v", method, path, err)
		}
		return resp
	}

	// Unauthenticated link attempt.
	resp, err = http.Post(server.URL+"/auth/link/bearer", "application/json",
		strings.NewReader(`{"provider_id": "b-1"}`))
	if err != nil {
		t.Fatalf("anonymous link: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for anonymous link, got %d", resp.StatusCode)
	}

	// Link bearer identity.
	resp = do("POST", "/auth/link/bearer", `{"provider_id": "b-1", "profile": {"k": "v"}}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 linking bearer, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Missing provider_id.
	resp = do("POST", "/auth/link/bearer", `{}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for missing provider_id, got %d", resp.StatusCode)
	}

	// Unlink local: fine, bearer remains.
	resp = do("POST", "/auth/unlink/local", "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 unlinking local, got %d", resp.StatusCode)
	}

	// Unlink bearer: last link, guard fires.
	resp = do("POST", "/auth/unlink/bearer", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 unlinking last strategy, got %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["code"] != aa.CodeCannotRemoveLastStrategy {
		t.Errorf("expected cannot_remove_last_strategy, got %+v", body)
	}

	// Unlink something not linked.
	resp = do("POST", "/auth/unlink/github", "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 unlinking unknown strategy, got %d", resp.StatusCode)
	}
}

func TestLinkHandler_ClaimedIdentity(t *testing.T) {
	broker := newTestBroker(t)
	broker.registerLocalUser(t, "u1", "alice", "pw1234")
	broker.registerLocalUser(t, "u2", "bob", "pw5678")
	server := newTestServer(t, broker)

	login := func(body string) *http.Cookie {
		t.Helper()
		resp, err := http.Post(server.URL+"/auth/login/local", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("login: %v", err)
		}
		resp.Body.Close()
		c := sessionCookie(resp)
		if c == nil {
			t.Fatal("expected session cookie")
		}
		return c
	}
	link := func(cookie *http.Cookie) *http.Response {
		t.Helper()
		req, _ := http.NewRequest("POST", server.URL+"/auth/link/bearer", strings.NewReader(`{"provider_id": "shared"}`))
		req.Header.Set("Content-Type", "application/json")
		req.AddCookie(cookie)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("link: %v", err)
		}
		return resp
	}

	resp := link(login(`{"username": "alice", "password": "pw1234"}`))
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first link should succeed, got %d", resp.StatusCode)
	}

	resp = link(login(`{"username": "bob", "password": "pw5678"}`))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for claimed identity, got %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["code"] != aa.CodeLinkAlreadyClaimed {
		t.Errorf("expected link_already_claimed, got %+v", body)
	}
}
