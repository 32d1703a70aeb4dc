package config

type Config interface {
	EnvConfig
	CorsConfig
	BackendConfig
	FederationConfig
	SecurityConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetPublicURL() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type BackendConfig interface {
	GetAuthAPIURL() string
	GetLoginServiceURL() string
	GetBackendClientID() string
	GetBackendClientSecret() string
}

type FederationConfig interface {
	GetGoogleClientID() string
	GetGoogleClientSecret() string
	GetGoogleRedirectURL() string
}

type SecurityConfig interface {
	GetAllowedRedirectOrigins() AllowedOrigins
	GetRedirectTokenHandoff() bool
	IsProduction() bool
}

type mainConfig struct {
	*EnvVars
}

// New parses the environment once and returns an immutable configuration.
// All derived values (such as the Google redirect URL) are computed here so
// that business logic never reads ambient process state.
func New() (Config, error) {
	vars, err := parseEnv()
	if err != nil {
		return nil, err
	}
	return mainConfig{vars}, nil
}
