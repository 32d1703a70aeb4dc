package config

import "strings"

type AllowedOrigins map[string]struct{}
type nullValue = struct{}

func newAllowedOrigins(origins []string) AllowedOrigins {
	allowed := make(AllowedOrigins, len(origins))
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		allowed[origin] = nullValue{}
	}
	return allowed
}

func (a AllowedOrigins) IsAllowedOrigin(origin string) bool {
	_, ok := a[origin]
	return ok
}

func (a AllowedOrigins) String() string {
	var origins []string
	for k := range a {
		origins = append(origins, k)
	}
	return strings.Join(origins, ", ")
}

func (e *EnvVars) GetAllowedOrigins() AllowedOrigins {
	return e.allowedOrigins
}

func (e *EnvVars) GetAllowedMethods() string {
	return "GET, POST, PUT, PATCH, DELETE"
}

func (e *EnvVars) GetAllowedHeaders() string {
	return "Content-Type, Authorization"
}
