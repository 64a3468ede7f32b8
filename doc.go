// Package anyauth is a pluggable identity broker for Go applications.
//
// AnyAuth separates authentication into three layers: strategies, the
// orchestrator, and storage.
//
// # Architecture
//
// Strategy: A named unit of credential verification (local password, OAuth
// provider, bearer token). Strategies produce an AuthResult and never
// return errors; every failure mode is folded into the result with a
// machine-stable code.
//
// User: A canonical account. One user can be reached through any number of
// strategies.
//
// StrategyLink: The binding between a user and an external identity,
// keyed uniquely by (strategy name, provider id). The link table's unique
// constraint is the single source of truth for identity ownership.
//
// Session: A server-side login record with lazy expiry, transported via
// cookie or header.
//
// # Basic Usage
//
// Set up stores for users, links and sessions:
//
//	import (
//	    "github.com/workpail/anyauth"
//	    "github.com/workpail/anyauth/stores"
//	)
//
//	storagePath := "/path/to/storage"
//	userStore := stores.NewFSUserStore(storagePath)
//	linkStore := stores.NewFSLinkStore(storagePath)
//	sessionStore := stores.NewFSSessionStore(storagePath)
//
// Configure strategies and build the broker:
//
//	cfg := anyauth.Config{
//	    Secret: os.Getenv("ANYAUTH_SECRET"),
//	    Strategies: []anyauth.StrategyConfig{
//	        {
//	            Name: "local",
//	            Kind: anyauth.KindLocal,
//	            Local: &anyauth.LocalConfig{
//	                Verifier: anyauth.NewStoreVerifier(userStore, linkStore, "local"),
//	            },
//	        },
//	        {
//	            Name: "github",
//	            Kind: anyauth.KindOAuth,
//	            OAuth: &anyauth.OAuthConfig{
//	                Provider:     "github",
//	                ClientID:     os.Getenv("GITHUB_CLIENT_ID"),
//	                ClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
//	                CallbackURL:  "https://example.com/auth/callback/github",
//	            },
//	        },
//	    },
//	}
//
//	auth, err := anyauth.New(cfg, userStore, linkStore, sessionStore)
//
// Mount the HTTP surface and protect routes:
//
//	r := mux.NewRouter()
//	auth.MountRoutes(r.PathPrefix("/auth").Subrouter())
//
//	mw := anyauth.NewMiddleware(auth)
//	r.Handle("/dashboard", mw.RequireAuth(dashboardHandler))
//	r.Handle("/admin", mw.RequireRole("admin")(adminHandler))
//
// Inside a protected handler the user is on the context:
//
//	user := anyauth.UserFromContext(r.Context())
//
// # Storage Backends
//
// Three store implementations ship with the module: filesystem
// (stores), GORM for SQL databases (stores/gorm), and Google Cloud
// Datastore (stores/gae). All three enforce the link uniqueness
// constraint the linker depends on.
package anyauth
