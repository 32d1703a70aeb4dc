package federation_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-auth-gateway/backend"
	"github.com/jrsteele09/go-auth-gateway/federation"
)

const (
	testEmail     = "jane.doe@example.com"
	testSubject   = "google-sub-1"
	testGoogleTok = "google-access-token"
)

type federationConfig struct {
	redirectURL string
}

func (c federationConfig) GetGoogleClientID() string     { return "google-client-id" }
func (c federationConfig) GetGoogleClientSecret() string { return "google-client-secret" }
func (c federationConfig) GetGoogleRedirectURL() string  { return c.redirectURL }

type backendConfig struct {
	apiURL string
}

func (c backendConfig) GetAuthAPIURL() string          { return c.apiURL }
func (c backendConfig) GetLoginServiceURL() string     { return c.apiURL }
func (c backendConfig) GetBackendClientID() string     { return "backend-client-id" }
func (c backendConfig) GetBackendClientSecret() string { return "backend-client-secret" }

// bridgeFixture wires a bridge against stub Google and backend servers and
// records what they were asked to do.
type bridgeFixture struct {
	bridge *federation.Bridge

	// knobs
	userExists     bool
	googleGrantOK  bool
	registerFails  bool
	googleTokenErr bool
	userinfoErr    bool

	// observations
	checkCalls         int
	registerCalls      int
	grantTypes         []string
	registeredPassword string
	grantedPassword    string
}

func setupBridgeFixture(t *testing.T) *bridgeFixture {
	t.Helper()
	fixture := &bridgeFixture{googleGrantOK: true}

	google := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			if fixture.googleTokenErr {
				http.Error(w, "bad code", http.StatusBadRequest)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token": testGoogleTok,
				"token_type":   "bearer",
				"expires_in":   3600,
			})
		case "/userinfo":
			if fixture.userinfoErr {
				http.Error(w, "no", http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"sub":     testSubject,
				"email":   testEmail,
				"name":    "Jane Doe",
				"picture": "https://example.com/jane.png",
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(google.Close)

	authAPI := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/users/check":
			fixture.checkCalls++
			require.Equal(t, testEmail, r.URL.Query().Get("email"))
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]bool{"exists": fixture.userExists})
		case "/v1/users/register":
			fixture.registerCalls++
			var reg backend.Registration
			require.NoError(t, json.NewDecoder(r.Body).Decode(&reg))
			fixture.registeredPassword = reg.Password
			if fixture.registerFails {
				http.Error(w, "duplicate", http.StatusConflict)
				return
			}
			w.WriteHeader(http.StatusCreated)
		case "/oauth2/token":
			require.NoError(t, r.ParseForm())
			grantType := r.PostForm.Get("grant_type")
			fixture.grantTypes = append(fixture.grantTypes, grantType)
			if grantType == "google" && !fixture.googleGrantOK {
				writeTokenError(w, "unsupported_grant_type")
				return
			}
			if grantType == "password" {
				fixture.grantedPassword = r.PostForm.Get("password")
				if fixture.grantedPassword != fixture.registeredPassword {
					writeTokenError(w, "invalid_grant")
					return
				}
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token":  "backend-access",
				"refresh_token": "backend-refresh",
				"expires_in":    900,
			})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(authAPI.Close)

	providerConfig := &oidc.ProviderConfig{
		IssuerURL:   google.URL,
		AuthURL:     google.URL + "/auth",
		TokenURL:    google.URL + "/token",
		UserInfoURL: google.URL + "/userinfo",
	}
	googleProvider := federation.NewGoogleProviderWithEndpoints(
		context.Background(),
		providerConfig,
		federationConfig{redirectURL: "http://localhost:3000/api/auth/google/callback"},
	)

	fixture.bridge = federation.NewBridge(googleProvider, backend.New(backendConfig{apiURL: authAPI.URL}))
	return fixture
}

func writeTokenError(w http.ResponseWriter, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code})
}

func TestBridge_NewUserIsRegisteredExactlyOnce(t *testing.T) {
	fixture := setupBridgeFixture(t)
	fixture.userExists = false

	result, err := fixture.bridge.Callback(context.Background(), "auth-code", federation.NewState(""))
	require.NoError(t, err)

	require.Equal(t, 1, fixture.checkCalls)
	require.Equal(t, 1, fixture.registerCalls)
	require.Equal(t, "backend-access", result.Tokens.AccessToken)
	require.Equal(t, testEmail, result.Identity.Email)
	require.Equal(t, testSubject, result.Identity.Subject)
}

func TestBridge_ExistingUserIsNotRegistered(t *testing.T) {
	fixture := setupBridgeFixture(t)
	fixture.userExists = true

	result, err := fixture.bridge.Callback(context.Background(), "auth-code", federation.NewState(""))
	require.NoError(t, err)

	require.Equal(t, 1, fixture.checkCalls)
	require.Zero(t, fixture.registerCalls)
	require.Equal(t, "backend-access", result.Tokens.AccessToken)
	require.Equal(t, []string{"google"}, fixture.grantTypes)
}

func TestBridge_PasswordGrantFallbackUsesRegistrationPassword(t *testing.T) {
	fixture := setupBridgeFixture(t)
	fixture.userExists = false
	fixture.googleGrantOK = false

	result, err := fixture.bridge.Callback(context.Background(), "auth-code", federation.NewState(""))
	require.NoError(t, err)

	require.Equal(t, 1, fixture.registerCalls)
	require.Equal(t, []string{"google", "password"}, fixture.grantTypes)
	require.NotEmpty(t, fixture.registeredPassword)
	require.Equal(t, fixture.registeredPassword, fixture.grantedPassword,
		"fallback must log in with the password set at registration")
	require.Equal(t, "backend-access", result.Tokens.AccessToken)
}

func TestBridge_ExistingUserWithRejectedGoogleGrantFailsFlow(t *testing.T) {
	fixture := setupBridgeFixture(t)
	fixture.userExists = true
	fixture.googleGrantOK = false

	_, err := fixture.bridge.Callback(context.Background(), "auth-code", federation.NewState(""))
	require.Error(t, err)
	require.Equal(t, federation.CodeLoginFailed, federation.FlowCode(err))
	require.Zero(t, fixture.registerCalls, "no password is known for an existing user")
}

func TestBridge_MissingCode(t *testing.T) {
	fixture := setupBridgeFixture(t)

	_, err := fixture.bridge.Callback(context.Background(), "", federation.NewState(""))
	require.Error(t, err)
	require.Equal(t, federation.CodeNoCode, federation.FlowCode(err))
	require.Zero(t, fixture.checkCalls)
}

func TestBridge_GoogleTokenEndpointFailure(t *testing.T) {
	fixture := setupBridgeFixture(t)
	fixture.googleTokenErr = true

	_, err := fixture.bridge.Callback(context.Background(), "auth-code", federation.NewState(""))
	require.Error(t, err)
	require.Equal(t, federation.CodeTokenExchangeFailed, federation.FlowCode(err))
}

func TestBridge_UserInfoFailure(t *testing.T) {
	fixture := setupBridgeFixture(t)
	fixture.userinfoErr = true

	_, err := fixture.bridge.Callback(context.Background(), "auth-code", federation.NewState(""))
	require.Error(t, err)
	require.Equal(t, federation.CodeUserInfoFailed, federation.FlowCode(err))
}

func TestBridge_RegistrationFailure(t *testing.T) {
	fixture := setupBridgeFixture(t)
	fixture.userExists = false
	fixture.registerFails = true

	_, err := fixture.bridge.Callback(context.Background(), "auth-code", federation.NewState(""))
	require.Error(t, err)
	require.Equal(t, federation.CodeRegistrationFailed, federation.FlowCode(err))
	require.Empty(t, fixture.grantTypes, "no token issuance after a failed registration")
}

func TestBridge_ResultCarriesStateRedirect(t *testing.T) {
	fixture := setupBridgeFixture(t)
	fixture.userExists = true

	state := federation.NewState("https://app.example.com/landing")
	result, err := fixture.bridge.Callback(context.Background(), "auth-code", state)
	require.NoError(t, err)
	require.Equal(t, "https://app.example.com/landing", result.RedirectURI)
}

func TestBridge_CompleteLogin(t *testing.T) {
	t.Run("registers and retries when the login is rejected", func(t *testing.T) {
		fixture := setupBridgeFixture(t)
		// The generated password matches nothing until registration stores it,
		// so the first password grant is rejected.
		tokens, err := fixture.bridge.CompleteLogin(context.Background(), testEmail, testSubject)
		require.NoError(t, err)
		require.Equal(t, 1, fixture.registerCalls)
		require.Equal(t, []string{"password", "password"}, fixture.grantTypes)
		require.Equal(t, "backend-access", tokens.AccessToken)
	})

	t.Run("registration failure surfaces", func(t *testing.T) {
		fixture := setupBridgeFixture(t)
		fixture.registerFails = true

		_, err := fixture.bridge.CompleteLogin(context.Background(), testEmail, testSubject)
		require.Error(t, err)
		require.Equal(t, 1, fixture.registerCalls)
	})
}

// The legacy handoff target embedded in state survives URL transport intact.
func TestState_TransportThroughQueryParameter(t *testing.T) {
	state := federation.NewState("https://app.example.com/landing?tab=1")
	encoded := state.Encode()

	values := url.Values{"state": {encoded}}
	roundTripped := values.Get("state")

	decoded, err := federation.DecodeState(roundTripped)
	require.NoError(t, err)
	require.Equal(t, state, decoded)
}
