package server_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-auth-gateway/custody"
	"github.com/jrsteele09/go-auth-gateway/federation"
	"github.com/jrsteele09/go-auth-gateway/server"
)

// beginLogin runs the login redirect and hands back the minted state cookie
// and the state parameter Google would echo on the callback.
func beginLogin(t *testing.T, fixture *gatewayFixture, loginURL string) (*http.Cookie, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	fixture.gateway.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, loginURL, nil))
	require.Equal(t, http.StatusFound, rec.Code)

	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	stateParam := location.Query().Get("state")
	require.NotEmpty(t, stateParam)

	var stateCookie *http.Cookie
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == federation.StateCookieName {
			stateCookie = cookie
		}
	}
	require.NotNil(t, stateCookie)
	return stateCookie, stateParam
}

func TestGoogleLogin_MintsStateAndRedirects(t *testing.T) {
	fixture := setupGateway(t, nil)

	rec := httptest.NewRecorder()
	fixture.gateway.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, server.RouteGoogleLogin, nil))

	require.Equal(t, http.StatusFound, rec.Code)

	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "/auth", location.Path)
	require.Equal(t, "google-client-id", location.Query().Get("client_id"))
	require.Equal(t, "code", location.Query().Get("response_type"))
	require.Contains(t, location.Query().Get("scope"), "openid")

	var stateCookie *http.Cookie
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == federation.StateCookieName {
			stateCookie = cookie
		}
	}
	require.NotNil(t, stateCookie)
	require.True(t, stateCookie.HttpOnly)
	require.Equal(t, federation.StateCookieMaxAge, stateCookie.MaxAge)
	require.Equal(t, location.Query().Get("state"), stateCookie.Value,
		"the cookie and the state parameter carry the same minted state")

	state, err := federation.DecodeState(stateCookie.Value)
	require.NoError(t, err)
	require.NotEmpty(t, state.CSRFToken)
	require.Empty(t, state.RedirectURI)
}

func TestGoogleLogin_RedirectTargetAllowlist(t *testing.T) {
	fixture := setupGateway(t, map[string]string{
		"ALLOWED_REDIRECT_ORIGINS": "https://app.example.com",
	})

	t.Run("allowed origin is embedded in state", func(t *testing.T) {
		stateCookie, _ := beginLogin(t, fixture,
			server.RouteGoogleLogin+"?redirect_uri="+url.QueryEscape("https://app.example.com/landing"))
		state, err := federation.DecodeState(stateCookie.Value)
		require.NoError(t, err)
		require.Equal(t, "https://app.example.com/landing", state.RedirectURI)
	})

	t.Run("unlisted origin is dropped", func(t *testing.T) {
		stateCookie, _ := beginLogin(t, fixture,
			server.RouteGoogleLogin+"?redirect_uri="+url.QueryEscape("https://evil.example.com/landing"))
		state, err := federation.DecodeState(stateCookie.Value)
		require.NoError(t, err)
		require.Empty(t, state.RedirectURI)
	})

	t.Run("relative target is dropped", func(t *testing.T) {
		stateCookie, _ := beginLogin(t, fixture,
			server.RouteGoogleLogin+"?redirect_uri="+url.QueryEscape("/landing"))
		state, err := federation.DecodeState(stateCookie.Value)
		require.NoError(t, err)
		require.Empty(t, state.RedirectURI)
	})
}

func TestGoogleCallback_MissingStateCookie(t *testing.T) {
	fixture := setupGateway(t, nil)
	_, stateParam := beginLogin(t, fixture, server.RouteGoogleLogin)

	// Callback arrives without the browser's state cookie
	rec := httptest.NewRecorder()
	fixture.gateway.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		server.RouteGoogleCallback+"?code=auth-code&state="+url.QueryEscape(stateParam), nil))

	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, server.RouteLoginPage+"?error=invalid_state", rec.Header().Get("Location"))
}

func TestGoogleCallback_MismatchedState(t *testing.T) {
	fixture := setupGateway(t, nil)
	stateCookie, _ := beginLogin(t, fixture, server.RouteGoogleLogin)

	// A state minted by a different flow does not match the cookie
	foreign := federation.NewState("").Encode()
	req := httptest.NewRequest(http.MethodGet,
		server.RouteGoogleCallback+"?code=auth-code&state="+url.QueryEscape(foreign), nil)
	req.AddCookie(&http.Cookie{Name: stateCookie.Name, Value: stateCookie.Value})
	rec := httptest.NewRecorder()
	fixture.gateway.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, server.RouteLoginPage+"?error=invalid_state", rec.Header().Get("Location"))
}

func TestGoogleCallback_Success(t *testing.T) {
	fixture := setupGateway(t, nil)
	stateCookie, stateParam := beginLogin(t, fixture, server.RouteGoogleLogin)

	req := httptest.NewRequest(http.MethodGet,
		server.RouteGoogleCallback+"?code=auth-code&state="+url.QueryEscape(stateParam), nil)
	req.AddCookie(&http.Cookie{Name: stateCookie.Name, Value: stateCookie.Value})
	rec := httptest.NewRecorder()
	fixture.gateway.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, server.RouteHome, rec.Header().Get("Location"))

	byName := map[string]*http.Cookie{}
	for _, cookie := range rec.Result().Cookies() {
		byName[cookie.Name] = cookie
	}
	require.Equal(t, "backend-access", byName[custody.AccessTokenCookie].Value)
	require.Equal(t, "backend-refresh", byName[custody.RefreshTokenCookie].Value)
	require.Negative(t, byName[federation.StateCookieName].MaxAge, "state cookie is consumed")
	require.NotContains(t, rec.Header().Get("Location"), "token=",
		"tokens never travel in the redirect by default")
}

func TestGoogleCallback_StateIsSingleUse(t *testing.T) {
	fixture := setupGateway(t, nil)
	stateCookie, stateParam := beginLogin(t, fixture, server.RouteGoogleLogin)

	callbackURL := server.RouteGoogleCallback + "?code=auth-code&state=" + url.QueryEscape(stateParam)

	first := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, callbackURL, nil)
	req.AddCookie(&http.Cookie{Name: stateCookie.Name, Value: stateCookie.Value})
	fixture.gateway.ServeHTTP(first, req)
	require.Equal(t, server.RouteHome, first.Header().Get("Location"))

	// The first callback deleted the cookie, so a replay of the same URL
	// arrives without it and fails validation.
	second := httptest.NewRecorder()
	fixture.gateway.ServeHTTP(second, httptest.NewRequest(http.MethodGet, callbackURL, nil))
	require.Equal(t, server.RouteLoginPage+"?error=invalid_state", second.Header().Get("Location"))
}

func TestGoogleCallback_ErrorCodesAreOpaque(t *testing.T) {
	fixture := setupGateway(t, nil)

	rec := httptest.NewRecorder()
	fixture.gateway.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		server.RouteGoogleCallback+"?state=%5Bnot-base64%5D", nil))

	require.Equal(t, http.StatusFound, rec.Code)
	location := rec.Header().Get("Location")
	require.True(t, strings.HasPrefix(location, server.RouteLoginPage+"?error="))
	require.NotContains(t, location, "base64", "internal detail must not leak into the error code")
}

func TestGoogleCallback_TokenHandoff(t *testing.T) {
	fixture := setupGateway(t, map[string]string{
		"ALLOWED_REDIRECT_ORIGINS":     "https://app.example.com",
		"ALLOW_REDIRECT_TOKEN_HANDOFF": "true",
	})
	stateCookie, stateParam := beginLogin(t, fixture,
		server.RouteGoogleLogin+"?redirect_uri="+url.QueryEscape("https://app.example.com/landing"))

	req := httptest.NewRequest(http.MethodGet,
		server.RouteGoogleCallback+"?code=auth-code&state="+url.QueryEscape(stateParam), nil)
	req.AddCookie(&http.Cookie{Name: stateCookie.Name, Value: stateCookie.Value})
	rec := httptest.NewRecorder()
	fixture.gateway.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)

	location, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "https://app.example.com", location.Scheme+"://"+location.Host)
	require.Equal(t, "/landing", location.Path)
	require.Equal(t, "backend-access", location.Query().Get("token"))

	byName := map[string]*http.Cookie{}
	for _, cookie := range rec.Result().Cookies() {
		byName[cookie.Name] = cookie
	}
	require.Equal(t, "google-access-token", byName[custody.GoogleTokenCookie].Value)
	require.NotContains(t, byName, custody.AccessTokenCookie,
		"handoff mode leaves backend token custody to the receiving app")
}

func TestGoogleCompleteLogin(t *testing.T) {
	fixture := setupGateway(t, nil)

	t.Run("missing parameters", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, server.RouteGoogleCompleteLogin,
			strings.NewReader(`{"email":"jane@example.com"}`))
		fixture.gateway.ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.JSONEq(t, `{"error":"Missing required parameters"}`, rec.Body.String())
	})

	t.Run("success commits cookies", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, server.RouteGoogleCompleteLogin,
			strings.NewReader(`{"email":"jane@example.com","googleId":"google-sub-1"}`))
		fixture.gateway.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t, `{"success":true}`, rec.Body.String())

		byName := map[string]*http.Cookie{}
		for _, cookie := range rec.Result().Cookies() {
			byName[cookie.Name] = cookie
		}
		require.Equal(t, "backend-access", byName[custody.AccessTokenCookie].Value)
	})
}

func TestGoogleGetToken(t *testing.T) {
	fixture := setupGateway(t, nil)

	t.Run("no cookie", func(t *testing.T) {
		rec := httptest.NewRecorder()
		fixture.gateway.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, server.RouteGoogleGetToken, nil))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("with cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, server.RouteGoogleGetToken, nil)
		req.AddCookie(&http.Cookie{Name: custody.GoogleTokenCookie, Value: "google-access-token"})
		rec := httptest.NewRecorder()
		fixture.gateway.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t, `{"googleToken":"google-access-token"}`, rec.Body.String())
	})
}
