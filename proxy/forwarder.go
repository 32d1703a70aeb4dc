// Package proxy forwards browser requests to the backend token API,
// injecting credentials per the route policy table and handing token
// responses to the custody manager.
package proxy

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-auth-gateway/custody"
	"github.com/jrsteele09/go-auth-gateway/internal/config"
	"github.com/jrsteele09/go-auth-gateway/oauth2"
)

const (
	slugToken  = "oauth2/token"
	slugRevoke = "oauth2/revoke"

	contentTypeForm = "application/x-www-form-urlencoded"
	contentTypeJSON = "application/json; charset=utf-8"
)

// hopHeaders are never copied from the inbound request. Cookie is excluded
// because cookie-derived credentials are re-injected explicitly by the
// route policy, never blanket-forwarded.
var hopHeaders = map[string]struct{}{
	"Host":           {},
	"Connection":     {},
	"Cookie":         {},
	"Content-Length": {},
}

// Forwarder relays a request under /api/auth/{slug...} to the backend.
type Forwarder struct {
	config  config.BackendConfig
	custody *custody.Manager
	client  *http.Client
}

func NewForwarder(cfg config.BackendConfig, custodyMgr *custody.Manager) *Forwarder {
	return &Forwarder{
		config:  cfg,
		custody: custodyMgr,
		client: &http.Client{
			Timeout: 15 * time.Second,
			// The backend's redirects belong to the browser's OAuth flow;
			// relay them, never follow them.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Forward relays r to the backend under the given slug and writes the
// relayed response to w. Transport failures yield a 502 proxy_error body,
// never a panic.
func (f *Forwarder) Forward(w http.ResponseWriter, r *http.Request, slug string) {
	targetURL := f.config.GetAuthAPIURL() + "/" + slug
	if r.URL.RawQuery != "" {
		targetURL += "?" + r.URL.RawQuery
	}

	headers := copyHeaders(r.Header)

	basicAuth := BasicAuthHeader(f.config.GetBackendClientID(), f.config.GetBackendClientSecret())
	if err := ApplyPolicy(Classify(slug), headers, f.custody.BearerFromRequest(r), basicAuth); err != nil {
		log.Warn().Str("slug", slug).Msg("client credentials not configured, forwarding without Authorization")
	}

	body, err := f.outboundBody(r, slug, headers)
	if err != nil {
		log.Err(err).Str("slug", slug).Msg("failed to read request body")
		writeProxyError(w)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), r.Method, targetURL, body)
	if err != nil {
		log.Err(err).Str("target", targetURL).Msg("failed to build outbound request")
		writeProxyError(w)
		return
	}
	req.Header = headers

	resp, err := f.client.Do(req)
	if err != nil {
		log.Err(err).Str("target", targetURL).Msg("backend unreachable")
		writeProxyError(w)
		return
	}
	defer resp.Body.Close()

	switch {
	case slug == slugToken && isSuccess(resp.StatusCode):
		f.relayTokenResponse(w, resp)
	case slug == slugRevoke && isSuccess(resp.StatusCode):
		// Successful revocation clears custody; the body is dropped.
		f.custody.Clear(w)
		w.WriteHeader(resp.StatusCode)
	default:
		relayResponse(w, resp)
	}
}

// outboundBody prepares the body for the forwarded request. Form bodies
// bound for the token and revoke endpoints are parsed and re-encoded to
// normalise the wire format; everything else passes through as raw bytes.
func (f *Forwarder) outboundBody(r *http.Request, slug string, headers http.Header) (io.Reader, error) {
	if (slug == slugToken || slug == slugRevoke) &&
		strings.Contains(r.Header.Get("Content-Type"), contentTypeForm) {
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		headers.Set("Content-Type", contentTypeForm)
		return strings.NewReader(r.PostForm.Encode()), nil
	}

	if r.Body == nil || r.ContentLength == 0 {
		return nil, nil
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return bytes.NewReader(raw), nil
}

// relayTokenResponse intercepts a successful token response, commits the
// tokens to cookie custody and relays the JSON body. The backend's own
// Set-Cookie headers are dropped: cookie policy belongs to the gateway.
func (f *Forwarder) relayTokenResponse(w http.ResponseWriter, resp *http.Response) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Err(err).Msg("failed to read token response body")
		writeProxyError(w)
		return
	}

	var tokens oauth2.TokenResponse
	if err := json.Unmarshal(raw, &tokens); err != nil {
		log.Err(err).Msg("token response was not valid JSON")
		writeProxyError(w)
		return
	}

	copyResponseHeaders(w, resp)
	f.custody.Commit(w, tokens)
	w.Header().Set("Content-Length", strconv.Itoa(len(raw)))
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(raw)
}

// relayResponse proxies the response body and status directly.
func relayResponse(w http.ResponseWriter, resp *http.Response) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Err(err).Msg("failed to read backend response body")
		writeProxyError(w)
		return
	}

	copyResponseHeaders(w, resp)
	if len(raw) > 0 {
		w.Header().Set("Content-Length", strconv.Itoa(len(raw)))
	} else {
		w.Header().Del("Content-Length")
	}
	w.WriteHeader(resp.StatusCode)
	if len(raw) > 0 {
		_, _ = w.Write(raw)
	}
}

// copyResponseHeaders relays upstream headers minus Set-Cookie (the backend
// must never drive this gateway's cookie jar), Transfer-Encoding and
// Connection. Content-Length is recomputed by the callers.
func copyResponseHeaders(w http.ResponseWriter, resp *http.Response) {
	for key, values := range resp.Header {
		switch http.CanonicalHeaderKey(key) {
		case "Set-Cookie", "Transfer-Encoding", "Connection", "Content-Length":
			continue
		}
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}
}

func copyHeaders(in http.Header) http.Header {
	out := make(http.Header, len(in))
	for key, values := range in {
		if _, hop := hopHeaders[http.CanonicalHeaderKey(key)]; hop {
			continue
		}
		for _, value := range values {
			out.Add(key, value)
		}
	}
	return out
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func writeProxyError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(http.StatusBadGateway)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": "proxy_error",
	})
}
