package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// EnvVars is the raw environment-derived configuration. It is parsed once
// at startup; the redirect URL for the Google callback is derived from the
// public URL at parse time rather than per request.
type EnvVars struct {
	Port      string `env:"PORT" envDefault:"3000"`
	AppName   string `env:"APP_NAME" envDefault:"Go Auth Gateway"`
	Env       string `env:"ENV" envDefault:"DEV"`
	PublicURL string `env:"PUBLIC_URL" envDefault:"http://localhost:3000"`

	AuthAPIURL      string `env:"AUTH_API_URL" envDefault:"http://localhost:8000"`
	LoginServiceURL string `env:"LOGIN_SERVICE_URL" envDefault:"http://localhost:3000"`

	BackendClientID     string `env:"BACKEND_CLIENT_ID"`
	BackendClientSecret string `env:"BACKEND_CLIENT_SECRET"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`

	AllowedOriginList         []string `env:"ALLOWED_ORIGINS" envSeparator:","`
	AllowedRedirectOriginList []string `env:"ALLOWED_REDIRECT_ORIGINS" envSeparator:","`

	// RedirectTokenHandoff enables the legacy cross-app handoff where the
	// issued access token is appended to the client redirect URL as a query
	// parameter. Materially weaker than cookie custody; off unless opted in.
	RedirectTokenHandoff bool `env:"ALLOW_REDIRECT_TOKEN_HANDOFF" envDefault:"false"`

	googleRedirectURL      string
	allowedOrigins         AllowedOrigins
	allowedRedirectOrigins AllowedOrigins
}

var _ Config = mainConfig{}

func parseEnv() (*EnvVars, error) {
	vars := &EnvVars{}
	if err := env.Parse(vars); err != nil {
		return nil, fmt.Errorf("[config parseEnv] %w", err)
	}
	vars.PublicURL = strings.TrimSuffix(vars.PublicURL, "/")
	vars.AuthAPIURL = strings.TrimSuffix(vars.AuthAPIURL, "/")
	vars.LoginServiceURL = strings.TrimSuffix(vars.LoginServiceURL, "/")
	vars.googleRedirectURL = vars.PublicURL + "/api/auth/google/callback"
	vars.allowedOrigins = newAllowedOrigins(vars.AllowedOriginList)
	vars.allowedRedirectOrigins = newAllowedOrigins(vars.AllowedRedirectOriginList)
	return vars, nil
}

func (e *EnvVars) GetPort() string {
	port := e.Port
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (e *EnvVars) GetAppName() string {
	return e.AppName
}

func (e *EnvVars) GetEnv() string {
	return e.Env
}

func (e *EnvVars) GetPublicURL() string {
	return e.PublicURL
}

func (e *EnvVars) GetAuthAPIURL() string {
	return e.AuthAPIURL
}

func (e *EnvVars) GetLoginServiceURL() string {
	return e.LoginServiceURL
}

func (e *EnvVars) GetBackendClientID() string {
	return e.BackendClientID
}

func (e *EnvVars) GetBackendClientSecret() string {
	return e.BackendClientSecret
}

func (e *EnvVars) GetGoogleClientID() string {
	return e.GoogleClientID
}

func (e *EnvVars) GetGoogleClientSecret() string {
	return e.GoogleClientSecret
}

// GetGoogleRedirectURL returns the callback URL registered with Google.
// Google compares this byte-for-byte at code exchange, so it is computed
// exactly once from the public URL.
func (e *EnvVars) GetGoogleRedirectURL() string {
	return e.googleRedirectURL
}

func (e *EnvVars) GetAllowedRedirectOrigins() AllowedOrigins {
	return e.allowedRedirectOrigins
}

func (e *EnvVars) GetRedirectTokenHandoff() bool {
	return e.RedirectTokenHandoff
}

func (e *EnvVars) IsProduction() bool {
	return strings.EqualFold(e.Env, "production") || strings.EqualFold(e.Env, "prod")
}
