package server

func (s *Server) initRoutes() {
	// Token custody
	s.RegisterRouteHandler("GET "+RouteGetToken, ChainMiddleware(s.GetTokenHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))

	// Google federation (omitted when not configured)
	if s.google != nil && s.bridge != nil {
		s.RegisterRouteFunc("GET "+RouteGoogleLogin, s.GoogleLoginHandler())
		s.RegisterRouteFunc("GET "+RouteGoogleCallback, s.GoogleCallbackHandler())
		s.RegisterRouteHandler("POST "+RouteGoogleCompleteLogin, ChainMiddleware(s.GoogleCompleteLoginHandler(), s.APIMiddleware()...))
		s.RegisterRouteHandler("GET "+RouteGoogleGetToken, ChainMiddleware(s.GoogleGetTokenHandler(), s.APIMiddleware()...))
	}

	// Session controller front
	s.RegisterRouteHandler("GET "+RouteMe, ChainMiddleware(s.MeHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteFrontLogout, ChainMiddleware(s.FrontLogoutHandler(), s.APIMiddleware()...))

	// Catch-all proxy surface; the explicit routes above take precedence
	for _, method := range []string{"GET", "POST", "PUT", "DELETE", "PATCH"} {
		s.RegisterRouteHandler(method+" "+RouteProxy, ChainMiddleware(s.ProxyHandler(), s.APIMiddleware()...))
	}
}
