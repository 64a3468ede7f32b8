package anyauth

// Machine-stable failure codes returned in AuthResult.Code. These are the
// only codes strategies and the orchestrator produce; handlers map them to
// HTTP responses without parsing messages.
const (
	CodeMissingCredentials       = "missing_credentials"
	CodeVerifierNotConfigured    = "verifier_not_configured"
	CodeInvalidCredentials       = "invalid_credentials"
	CodeAuthenticationFailed     = "authentication_failed"
	CodeNoTokenProvided          = "no_token_provided"
	CodeInvalidToken             = "invalid_token"
	CodeTokenExpired             = "token_expired"
	CodeMissingAuthorizationCode = "missing_authorization_code"
	CodeTokenExchangeFailed      = "token_exchange_failed"
	CodeProfileFetchFailed       = "profile_fetch_failed"
	CodeOAuthCallbackFailed      = "oauth_callback_failed"
	CodeStrategyNotFound         = "strategy_not_found"
	CodeCallbackUnsupported      = "callback_unsupported"
	CodeDatabaseRequired         = "database_required"
	CodeLinkAlreadyClaimed       = "link_already_claimed"
	CodeCannotRemoveLastStrategy = "cannot_remove_last_strategy"

	// HTTP-layer codes produced by the middleware rather than strategies.
	CodeNotAuthenticated = "not_authenticated"
	CodeInsufficientRole = "insufficient_role"
)

// AuthResult is the single outcome type crossing the strategy boundary.
// Strategies never return errors; every internal failure is folded into a
// failed result so the orchestrator can branch on outcome.
type AuthResult struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`

	// User is set when the strategy itself resolved a durable user
	// (local login via a store-backed verifier).
	User *User `json:"user,omitempty"`

	// Identity is the candidate identity produced by token/OAuth strategies,
	// prior to resolution against the user store.
	Identity *Identity `json:"identity,omitempty"`

	// Tokens carries provider tokens from an OAuth exchange.
	Tokens *TokenBundle `json:"tokens,omitempty"`

	// RedirectURL is set when the caller must round-trip the browser
	// (OAuth authorize redirect). State is the correlation token embedded
	// in that URL so the HTTP layer can bind it to the pending request.
	RedirectURL string `json:"redirect_url,omitempty"`
	State       string `json:"-"`
}

// Failure builds a failed AuthResult with a machine-stable code.
func Failure(code, message string) AuthResult {
	return AuthResult{Code: code, Message: message}
}

// Succeeded builds a successful AuthResult carrying a resolved user.
func Succeeded(user *User) AuthResult {
	return AuthResult{Success: true, User: user}
}
