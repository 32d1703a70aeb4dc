package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
)

const contentTypeJSON = "application/json; charset=utf-8"

// GetTokenHandler returns the cookie-backed access token to the first-party
// client. The cookie itself is HttpOnly, so this endpoint is the only way
// browser script obtains the credential.
func (s *Server) GetTokenHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := s.custody.AccessToken(r)
		if token == "" {
			writeJSONError(w, "No access token found", http.StatusUnauthorized)
			return
		}
		writeJSON(w, map[string]string{"token": token}, http.StatusOK)
	}
}

// LogoutHandler clears the token cookies. Revocation against the backend is
// the caller's responsibility (via the proxied oauth2/revoke endpoint);
// this endpoint only ends cookie custody.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.custody.Clear(w)
		writeJSON(w, map[string]string{"message": "Logged out successfully"}, http.StatusOK)
	}
}

// ProxyHandler forwards everything under /api/auth/ that no explicit route
// claimed to the backend auth API.
func (s *Server) ProxyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slug := r.PathValue("slug")
		if slug == "" {
			http.NotFound(w, r)
			return
		}
		s.forwarder.Forward(w, r, slug)
	}
}

// MeHandler is the read-through userinfo endpoint: it forwards the caller's
// cookies to the login service and relays the profile JSON or the error
// status. A 401 tells the client its session has expired.
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		endpoint := s.config.GetLoginServiceURL() + "/api/auth/oauth2/userinfo"
		req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, endpoint, nil)
		if err != nil {
			writeJSONError(w, "Failed to fetch user info", http.StatusInternalServerError)
			return
		}
		if cookie := r.Header.Get("Cookie"); cookie != "" {
			req.Header.Set("Cookie", cookie)
		}

		resp, err := s.httpClient.Do(req)
		if err != nil {
			log.Err(err).Msg("userinfo read-through failed")
			writeJSONError(w, "Failed to fetch user info", http.StatusInternalServerError)
			return
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			writeJSONError(w, "Failed to fetch user info", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", contentTypeJSON)
		w.WriteHeader(resp.StatusCode)
		_, _ = w.Write(body)
	}
}

// FrontLogoutHandler notifies the login service best-effort, then always
// clears the local cookies regardless of the notification outcome.
func (s *Server) FrontLogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		endpoint := s.config.GetLoginServiceURL() + "/api/auth/logout"
		req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, endpoint, nil)
		if err == nil {
			if cookie := r.Header.Get("Cookie"); cookie != "" {
				req.Header.Set("Cookie", cookie)
			}
			resp, err := s.httpClient.Do(req)
			if err != nil {
				log.Warn().Err(err).Msg("logout notification failed")
			} else {
				resp.Body.Close()
				if resp.StatusCode != http.StatusOK {
					log.Warn().Int("status", resp.StatusCode).Msg("login service rejected logout")
				}
			}
		}

		s.custody.Clear(w)
		writeJSON(w, map[string]bool{"success": true}, http.StatusOK)
	}
}

func writeJSON(w http.ResponseWriter, payload any, statusCode int) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, map[string]string{"error": message}, statusCode)
}
