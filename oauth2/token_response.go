package oauth2

// TokenResponse represents the response from the backend's OAuth2 token
// endpoint. This is the standard token endpoint response format as defined
// in RFC 6749, for any grant type the backend supports.
type TokenResponse struct {
	// AccessToken is the bearer token used to access protected resources.
	// Usage: Include in Authorization header: "Bearer <access_token>"
	// Custody: the gateway moves this into an HttpOnly cookie; it is never
	// handed to browser script except in the legacy handoff mode.
	AccessToken string `json:"access_token,omitempty"`

	// TokenType indicates how to use the access token (normally "bearer").
	TokenType string `json:"token_type,omitempty"`

	// ExpiresIn is the lifetime in seconds of the access token.
	// Note: This is a hint - when absent the gateway falls back to the
	// JWT's "exp" claim, then to a fixed default.
	ExpiresIn int `json:"expires_in,omitempty"`

	// RefreshToken is an opaque token used to obtain new access tokens.
	// Custody: stored in an HttpOnly cookie with a fixed 7 day lifetime
	// regardless of any backend hint.
	RefreshToken string `json:"refresh_token,omitempty"`

	// Scope indicates the access token's granted permissions.
	Scope string `json:"scope,omitempty"`
}
