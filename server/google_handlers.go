package server

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-auth-gateway/federation"
	"github.com/jrsteele09/go-auth-gateway/internal/errors"
)

// GoogleLoginHandler begins the federation flow: mint the CSRF state, park
// it in a short-lived cookie and send the browser to Google. An optional
// redirect_uri query parameter is embedded in the state for the cross-app
// handoff, but only when its origin is on the configured allowlist.
func (s *Server) GoogleLoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		redirectURI := r.URL.Query().Get("redirect_uri")
		if redirectURI != "" && !s.allowedRedirectTarget(redirectURI) {
			log.Warn().Str("redirect_uri", redirectURI).Msg("rejected redirect target not on allowlist")
			redirectURI = ""
		}

		state := federation.NewState(redirectURI)
		s.setStateCookie(w, state)

		http.Redirect(w, r, s.google.AuthCodeURL(state), http.StatusFound)
	}
}

// GoogleCallbackHandler terminates the federation flow. The state cookie is
// deleted before anything else: state is single-use whether or not the
// callback validates.
func (s *Server) GoogleCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storedState := ""
		if cookie, err := r.Cookie(federation.StateCookieName); err == nil {
			storedState = cookie.Value
		}
		s.clearStateCookie(w)

		state, err := federation.ValidateState(storedState, r.URL.Query().Get("state"))
		if err != nil {
			log.Warn().Err(err).Msg("callback state validation failed")
			s.redirectLoginError(w, r, federation.FlowCode(err))
			return
		}

		result, err := s.bridge.Callback(r.Context(), r.URL.Query().Get("code"), state)
		if err != nil {
			s.redirectLoginError(w, r, federation.FlowCode(err))
			return
		}

		// Legacy cross-app handoff: the token transiently appears in the
		// redirect URL. Only taken when explicitly enabled.
		if result.RedirectURI != "" && s.config.GetRedirectTokenHandoff() {
			target, err := url.Parse(result.RedirectURI)
			if err != nil {
				s.redirectLoginError(w, r, federation.CodeOAuthFailed)
				return
			}
			query := target.Query()
			query.Set("token", result.Tokens.AccessToken)
			target.RawQuery = query.Encode()

			s.custody.CommitGoogleToken(w, result.Identity.AccessToken)
			http.Redirect(w, r, target.String(), http.StatusFound)
			return
		}

		s.custody.Commit(w, result.Tokens)
		http.Redirect(w, r, RouteHome, http.StatusFound)
	}
}

// GoogleCompleteLoginHandler is the legacy client-assisted completion path.
func (s *Server) GoogleCompleteLoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var params struct {
			Email    string `json:"email"`
			GoogleID string `json:"googleId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil || params.Email == "" || params.GoogleID == "" {
			writeJSONError(w, "Missing required parameters", http.StatusBadRequest)
			return
		}

		tokens, err := s.bridge.CompleteLogin(r.Context(), params.Email, params.GoogleID)
		if err != nil {
			log.Err(err).Str("email", params.Email).Msg("complete-login failed")
			if errors.Is(err, errors.ErrRegistration) {
				writeJSONError(w, "Failed to register user", http.StatusInternalServerError)
				return
			}
			writeJSONError(w, "Failed to complete login", http.StatusInternalServerError)
			return
		}

		s.custody.Commit(w, *tokens)
		writeJSON(w, map[string]bool{"success": true}, http.StatusOK)
	}
}

// GoogleGetTokenHandler returns the stored Google access token in the
// legacy handoff mode.
func (s *Server) GoogleGetTokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := s.custody.GoogleToken(r)
		if token == "" {
			writeJSONError(w, "Google access token not found", http.StatusUnauthorized)
			return
		}
		writeJSON(w, map[string]string{"googleToken": token}, http.StatusOK)
	}
}

func (s *Server) setStateCookie(w http.ResponseWriter, state federation.State) {
	http.SetCookie(w, &http.Cookie{
		Name:     federation.StateCookieName,
		Value:    state.Encode(),
		Path:     "/", // cookie must be visible on the callback path
		HttpOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   federation.StateCookieMaxAge,
	})
}

func (s *Server) clearStateCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     federation.StateCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// allowedRedirectTarget accepts a redirect target only when its origin is on
// the configured allowlist. An empty allowlist rejects everything: the
// handoff is an opt-in legacy mode, not a default.
func (s *Server) allowedRedirectTarget(target string) bool {
	u, err := url.Parse(target)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return false
	}
	return s.config.GetAllowedRedirectOrigins().IsAllowedOrigin(u.Scheme + "://" + u.Host)
}

func (s *Server) redirectLoginError(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, RouteLoginPage+"?error="+url.QueryEscape(code), http.StatusFound)
}
