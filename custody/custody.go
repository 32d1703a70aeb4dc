// Package custody owns the policy for where backend-issued credentials are
// allowed to live on the browser side. Tokens travel into HttpOnly cookies
// and back out; browser script never reads them directly.
package custody

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-auth-gateway/oauth2"
)

const (
	// AccessTokenCookie holds the backend-issued bearer access token
	AccessTokenCookie = "accessToken"
	// RefreshTokenCookie holds the backend-issued refresh token
	RefreshTokenCookie = "refreshToken"
	// GoogleTokenCookie holds the Google-issued access token in the legacy
	// cross-app handoff mode
	GoogleTokenCookie = "googleAccessToken"

	defaultAccessTokenMaxAge = 3600
	refreshTokenMaxAge       = 7 * 24 * 60 * 60 // refresh tokens are long-lived by policy, not by backend hint
)

// Manager issues and revokes the token cookies. Commit and Clear are
// idempotent: repeated calls converge on the same cookie jar state.
type Manager struct {
	secure bool
}

func New(secure bool) *Manager {
	return &Manager{secure: secure}
}

// Commit translates a token response into cookie directives on w.
func (m *Manager) Commit(w http.ResponseWriter, tokens oauth2.TokenResponse) {
	if tokens.AccessToken != "" {
		m.setCookie(w, AccessTokenCookie, tokens.AccessToken, m.accessTokenMaxAge(tokens))
	}
	if tokens.RefreshToken != "" {
		m.setCookie(w, RefreshTokenCookie, tokens.RefreshToken, refreshTokenMaxAge)
	}
}

// CommitGoogleToken stores the Google-issued access token for the legacy
// cross-app handoff mode, where a companion app later collects it via the
// get-token endpoint. Short-lived by design.
func (m *Manager) CommitGoogleToken(w http.ResponseWriter, token string) {
	if token == "" {
		return
	}
	m.setCookie(w, GoogleTokenCookie, token, defaultAccessTokenMaxAge)
}

// Clear attaches deletion directives for both token cookies. Used on
// explicit logout and on successful revocation.
func (m *Manager) Clear(w http.ResponseWriter) {
	m.deleteCookie(w, AccessTokenCookie)
	m.deleteCookie(w, RefreshTokenCookie)
}

// AccessToken returns the access token from the request cookie jar, or ""
func (m *Manager) AccessToken(r *http.Request) string {
	return cookieValue(r, AccessTokenCookie)
}

// GoogleToken returns the stored Google access token, or ""
func (m *Manager) GoogleToken(r *http.Request) string {
	return cookieValue(r, GoogleTokenCookie)
}

// BearerFromRequest reconstructs the bearer credential for an outbound call.
// A caller-supplied Authorization header wins over the cookie-backed token.
func (m *Manager) BearerFromRequest(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		return auth
	}
	if token := m.AccessToken(r); token != "" {
		return "Bearer " + token
	}
	return ""
}

func (m *Manager) accessTokenMaxAge(tokens oauth2.TokenResponse) int {
	if tokens.ExpiresIn > 0 {
		return tokens.ExpiresIn
	}
	if remaining := jwtExpiry(tokens.AccessToken); remaining > 0 {
		return remaining
	}
	return defaultAccessTokenMaxAge
}

func (m *Manager) setCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

func (m *Manager) deleteCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

func cookieValue(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// jwtExpiry peeks at the access token's exp claim without verifying the
// signature. Verification is the backend's job; the claim only sizes the
// cookie lifetime when the token response omits expires_in.
func jwtExpiry(token string) int {
	if strings.Count(token, ".") != 2 {
		return 0 // opaque token, not a JWT
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return 0
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return 0
	}
	return int(time.Until(exp.Time).Seconds())
}
