package oauth2

// GrantType represents the OAuth 2.0 grant type sent to the backend's
// token endpoint. Determines what credentials are required to obtain tokens.
type GrantType string

const (
	// PasswordGrant exchanges a username/password pair for tokens.
	// Used in: direct logins and the federation fallback, where the gateway
	// registers a user with a freshly generated opaque password and logs in
	// with it immediately.
	PasswordGrant GrantType = "password"

	// GoogleGrant is the backend's federated grant type. It accepts proof
	// of a Google identity (email, subject id, Google access token) instead
	// of a local password, letting the backend verify the trust chain.
	// Not every backend deployment supports it; callers fall back to
	// PasswordGrant when it is rejected.
	GoogleGrant GrantType = "google"

	// RefreshTokenGrant exchanges a refresh token for new tokens.
	// Forwarded verbatim through the proxy; the gateway performs no refresh
	// of its own.
	RefreshTokenGrant GrantType = "refresh_token"
)
