package proxy

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-auth-gateway/internal/errors"
)

// RoutePolicy decides which Authorization header an outbound backend
// request carries. The default is to strip credentials: an end user's
// personal bearer token must never reach an unclassified backend path.
type RoutePolicy int

const (
	// PolicyNone strips any caller-supplied Authorization header
	PolicyNone RoutePolicy = iota

	// PolicyClientBasic replaces the Authorization header with the
	// configured client credentials. These endpoints authenticate the
	// application, not the end user.
	PolicyClientBasic

	// PolicyBearerPreferHeader forwards a caller-supplied Authorization
	// header verbatim, falls back to the cookie-backed access token, and
	// otherwise sends no credential at all.
	PolicyBearerPreferHeader
)

// Classify maps a proxied path tail to its injection policy. Pure and total:
// every slug resolves to exactly one policy on every call.
func Classify(slug string) RoutePolicy {
	switch {
	case slug == "oauth2/userinfo":
		return PolicyBearerPreferHeader
	case slug == "oauth2/token", slug == "oauth2/revoke", strings.HasPrefix(slug, "v1/users/register"):
		return PolicyClientBasic
	default:
		return PolicyNone
	}
}

// BasicAuthHeader builds the client application's Basic credential, or ""
// when the client id/secret pair is not configured.
func BasicAuthHeader(clientID, clientSecret string) string {
	if clientID == "" || clientSecret == "" {
		return ""
	}
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(clientID+":"+clientSecret))
}

// ApplyPolicy rewrites the Authorization header on the outbound header set.
// It only ever mutates headers, which must already be a copy of the inbound
// request's headers. bearer is the credential reconstructed from the inbound
// request (header preferred, cookie fallback); basicAuth is the configured
// client credential.
//
// A PolicyClientBasic route without configured client credentials returns
// ErrAuthConfig with the header stripped: the request still goes out, but
// never with the end user's token.
func ApplyPolicy(policy RoutePolicy, headers http.Header, bearer, basicAuth string) error {
	switch policy {
	case PolicyBearerPreferHeader:
		if bearer != "" {
			headers.Set("Authorization", bearer)
		} else {
			headers.Del("Authorization")
		}
	case PolicyClientBasic:
		if basicAuth == "" {
			headers.Del("Authorization")
			return errors.ErrAuthConfig
		}
		headers.Set("Authorization", basicAuth)
	default:
		headers.Del("Authorization")
	}
	return nil
}
