package federation

import (
	"encoding/base64"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/jrsteele09/go-auth-gateway/internal/errors"
)

const (
	// StateCookieName is the short-lived cookie correlating an
	// authorization request with its callback
	StateCookieName = "googleAuthState"
	// StateCookieMaxAge bounds how long a pending flow stays valid
	StateCookieMaxAge = 600 // 10 minutes
)

// State is the single-use CSRF token minted at federation initiation. It is
// carried both in the state cookie and in the provider's state query
// parameter; the callback requires the two to agree. RedirectURI optionally
// carries a client application's post-login target.
type State struct {
	CSRFToken   string `json:"csrfToken"`
	RedirectURI string `json:"redirectUri,omitempty"`
}

// NewState mints a fresh state with a random CSRF token.
func NewState(redirectURI string) State {
	return State{
		CSRFToken:   uuid.NewString(),
		RedirectURI: redirectURI,
	}
}

// Encode serialises the state for transport. The value rides in both a
// cookie and a URL query parameter, so the JSON is base64url wrapped to
// stay legal in both.
func (s State) Encode() string {
	raw, _ := json.Marshal(s)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeState is the inverse of Encode.
func DecodeState(encoded string) (State, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return State{}, errors.Wrapf(errors.ErrStateValidation, "undecodable state: %v", err)
	}
	var s State
	if err := json.Unmarshal(raw, &s); err != nil {
		return State{}, errors.Wrapf(errors.ErrStateValidation, "malformed state: %v", err)
	}
	return s, nil
}

// ValidateState checks the cookie-stored state against the state echoed
// back in the callback query. Both must be present, decodable and carry the
// same CSRF token. The caller must delete the state cookie whether or not
// validation succeeds: state is single-use.
func ValidateState(stored, received string) (State, error) {
	if stored == "" || received == "" {
		return State{}, &FlowError{Code: CodeInvalidState, cause: errors.ErrStateValidation}
	}

	storedState, err := DecodeState(stored)
	if err != nil {
		return State{}, &FlowError{Code: CodeInvalidStateFormat, cause: err}
	}
	receivedState, err := DecodeState(received)
	if err != nil {
		return State{}, &FlowError{Code: CodeInvalidStateFormat, cause: err}
	}

	if storedState.CSRFToken == "" || storedState.CSRFToken != receivedState.CSRFToken {
		return State{}, &FlowError{Code: CodeInvalidState, cause: errors.ErrStateValidation}
	}
	return storedState, nil
}
