package server

// Route path constants
// All gateway routes are defined here to ensure consistency and prevent typos
const (
	// Proxy surface - everything under /api/auth/ not matched by a more
	// specific route is forwarded to the backend auth API
	RouteProxy = "/api/auth/{slug...}"

	// Token custody routes
	RouteGetToken = "/api/auth/getToken"
	RouteLogout   = "/api/auth/logout"

	// Google federation routes
	RouteGoogleLogin         = "/api/auth/google/login"
	RouteGoogleCallback      = "/api/auth/google/callback"
	RouteGoogleCompleteLogin = "/api/auth/google/complete-login"
	RouteGoogleGetToken      = "/api/auth/google/get-token"

	// Session controller routes (read-through front for companion apps)
	RouteMe          = "/api/me"
	RouteFrontLogout = "/api/logout"

	// Browser destinations
	RouteHome      = "/"
	RouteLoginPage = "/login"
)
