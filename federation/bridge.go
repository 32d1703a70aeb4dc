// Package federation bridges Google identities onto the first-party auth
// backend: it runs the external authorization-code flow, reconciles the
// returned identity against the backend's user store and obtains a
// backend-issued token for cookie custody.
package federation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-auth-gateway/backend"
	"github.com/jrsteele09/go-auth-gateway/internal/utils"
	"github.com/jrsteele09/go-auth-gateway/oauth2"
)

const generatedPasswordLength = 64

// Bridge drives the federation flow from a validated callback through to a
// backend-issued token. It holds no per-flow state: everything a flow needs
// travels in the state cookie and the callback parameters.
type Bridge struct {
	google  *GoogleProvider
	backend *backend.Client
}

func NewBridge(google *GoogleProvider, backendClient *backend.Client) *Bridge {
	return &Bridge{google: google, backend: backendClient}
}

// Result is a completed flow: the backend tokens to commit to custody, the
// external identity that produced them and the optional client handoff
// target embedded in the state at initiation.
type Result struct {
	Tokens      oauth2.TokenResponse
	Identity    Identity
	RedirectURI string
}

// Callback runs the post-validation stages of the flow: code exchange,
// profile fetch, user reconciliation and backend token issuance. Every
// failure returns a *FlowError carrying an opaque code; no stage is retried.
func (b *Bridge) Callback(ctx context.Context, code string, state State) (*Result, error) {
	if code == "" {
		return nil, flowErr(CodeNoCode, nil)
	}

	googleToken, err := b.google.Exchange(ctx, code)
	if err != nil {
		log.Err(err).Msg("google code exchange failed")
		return nil, flowErr(CodeTokenExchangeFailed, err)
	}

	identity, err := b.google.Profile(ctx, googleToken)
	if err != nil {
		log.Err(err).Msg("google profile fetch failed")
		return nil, flowErr(CodeUserInfoFailed, err)
	}

	password, err := b.resolveUser(ctx, identity)
	if err != nil {
		return nil, err
	}

	tokens, err := b.issueToken(ctx, identity, password)
	if err != nil {
		return nil, err
	}

	log.Info().Str("email", identity.Email).Msg("federation flow complete")
	return &Result{
		Tokens:      *tokens,
		Identity:    identity,
		RedirectURI: state.RedirectURI,
	}, nil
}

// resolveUser checks the backend's user store for the federated email and
// registers the user when absent. Registration happens at most once per
// flow and only when the backend confirms the email is absent. The returned
// password is non-empty only for a user registered in this flow.
func (b *Bridge) resolveUser(ctx context.Context, identity Identity) (string, error) {
	exists, err := b.backend.CheckUser(ctx, identity.Email)
	if err != nil {
		// Treat an unanswerable check as absent, as registration for an
		// existing email fails cleanly on the backend.
		log.Warn().Err(err).Str("email", identity.Email).Msg("user existence check failed")
		exists = false
	}

	if exists {
		log.Info().Str("email", identity.Email).Msg("user already exists")
		return "", nil
	}

	password := utils.GeneratePassword(generatedPasswordLength)
	registration := backend.Registration{
		Email:    identity.Email,
		Password: password,
		Username: usernameFromEmail(identity.Email),
		FullName: identity.Name,
		GoogleID: identity.Subject,
		Picture:  identity.Picture,
	}

	log.Info().Str("email", identity.Email).Msg("registering new federated user")
	if err := b.backend.Register(ctx, registration); err != nil {
		log.Err(err).Str("email", identity.Email).Msg("registration failed")
		return "", flowErr(CodeRegistrationFailed, err)
	}
	return password, nil
}

// issueToken obtains backend tokens for the federated identity, preferring
// the google grant and falling back to a password grant with the password
// generated at registration. The fallback only exists for users registered
// in this flow: an existing user with a rejected google grant fails the
// flow outright.
func (b *Bridge) issueToken(ctx context.Context, identity Identity, password string) (*oauth2.TokenResponse, error) {
	tokens, err := b.backend.TokenGoogleGrant(ctx, identity.Email, identity.Subject, identity.AccessToken)
	if err == nil {
		return tokens, nil
	}
	log.Warn().Err(err).Msg("google grant not supported, falling back to password grant")

	if password == "" {
		return nil, flowErr(CodeLoginFailed, err)
	}

	tokens, err = b.backend.TokenPasswordGrant(ctx, identity.Email, password)
	if err != nil {
		log.Err(err).Str("email", identity.Email).Msg("password grant fallback failed")
		return nil, flowErr(CodeTokenAcquisitionFailed, err)
	}
	return tokens, nil
}

// CompleteLogin is the legacy client-assisted completion path: the browser
// supplies the federated identity it already holds and the gateway performs
// a password-grant login, registering the account first when the login is
// rejected. Retry happens exactly once.
func (b *Bridge) CompleteLogin(ctx context.Context, email, googleID string) (*oauth2.TokenResponse, error) {
	password := utils.GeneratePassword(generatedPasswordLength)

	tokens, err := b.backend.TokenPasswordGrant(ctx, email, password)
	if err == nil {
		return tokens, nil
	}

	registration := backend.Registration{
		Email:    email,
		Password: password,
		Username: legacyUsername(email),
		Metadata: map[string]string{
			"google_id":     googleID,
			"auth_provider": "google",
		},
	}
	if err := b.backend.Register(ctx, registration); err != nil {
		return nil, err
	}

	return b.backend.TokenPasswordGrant(ctx, email, password)
}

func usernameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}

// legacyUsername builds a collision-resistant username for accounts created
// through the complete-login path.
func legacyUsername(email string) string {
	local, _, _ := strings.Cut(email, "@")
	sanitised := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, local)

	millis := time.Now().UnixMilli() % 1000000
	return fmt.Sprintf("google_%s_%06d", sanitised, millis)
}
