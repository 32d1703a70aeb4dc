// Package backend is the typed client for the first-party auth API. The
// gateway talks to it with the configured client application credentials;
// user bearer tokens never travel through this client.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-auth-gateway/internal/config"
	"github.com/jrsteele09/go-auth-gateway/internal/errors"
	"github.com/jrsteele09/go-auth-gateway/oauth2"
)

const federationScope = "openid profile email"

type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
}

func New(cfg config.BackendConfig) *Client {
	return &Client{
		baseURL:      cfg.GetAuthAPIURL(),
		clientID:     cfg.GetBackendClientID(),
		clientSecret: cfg.GetBackendClientSecret(),
		httpClient:   &http.Client{Timeout: 15 * time.Second},
	}
}

// Registration is the payload for provisioning a user on behalf of a
// federated identity. The password is generated for the flow and discarded
// once the registration+login pair completes.
type Registration struct {
	Email    string            `json:"email"`
	Password string            `json:"password"`
	Username string            `json:"username"`
	FullName string            `json:"full_name,omitempty"`
	GoogleID string            `json:"google_id,omitempty"`
	Picture  string            `json:"picture,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// CheckUser reports whether a user with the given email already exists.
func (c *Client) CheckUser(ctx context.Context, email string) (bool, error) {
	endpoint := fmt.Sprintf("%s/v1/users/check?email=%s", c.baseURL, url.QueryEscape(email))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, errors.Wrapf(err, "[backend CheckUser] build request")
	}
	c.setBasicAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, errors.Wrapf(errors.ErrUserCheck, "request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, errors.Wrapf(errors.ErrUserCheck, "status %d", resp.StatusCode)
	}

	var result struct {
		Exists bool `json:"exists"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, errors.Wrapf(errors.ErrUserCheck, "decode response: %v", err)
	}
	return result.Exists, nil
}

// Register provisions a new user. Backend error bodies are logged, never
// returned, so federation callers cannot leak them to the browser.
func (c *Client) Register(ctx context.Context, reg Registration) error {
	payload, err := json.Marshal(reg)
	if err != nil {
		return errors.Wrapf(err, "[backend Register] marshal payload")
	}

	endpoint := c.baseURL + "/v1/users/register"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(payload)))
	if err != nil {
		return errors.Wrapf(err, "[backend Register] build request")
	}
	req.Header.Set("Content-Type", "application/json")
	c.setBasicAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(errors.ErrRegistration, "request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logBackendError("register", resp)
		return errors.Wrapf(errors.ErrRegistration, "status %d", resp.StatusCode)
	}
	return nil
}

// TokenGoogleGrant requests tokens via the backend's federated google grant,
// passing the external identity proof for the backend to verify.
func (c *Client) TokenGoogleGrant(ctx context.Context, email, googleID, googleToken string) (*oauth2.TokenResponse, error) {
	form := url.Values{
		"grant_type":   {string(oauth2.GoogleGrant)},
		"email":        {email},
		"google_id":    {googleID},
		"google_token": {googleToken},
		"scope":        {federationScope},
	}
	return c.token(ctx, form)
}

// TokenPasswordGrant requests tokens via the password grant.
func (c *Client) TokenPasswordGrant(ctx context.Context, username, password string) (*oauth2.TokenResponse, error) {
	form := url.Values{
		"grant_type": {string(oauth2.PasswordGrant)},
		"username":   {username},
		"password":   {password},
		"scope":      {federationScope},
	}
	return c.token(ctx, form)
}

func (c *Client) token(ctx context.Context, form url.Values) (*oauth2.TokenResponse, error) {
	endpoint := c.baseURL + "/oauth2/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrapf(err, "[backend token] build request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.setBasicAuth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrTokenIssuance, "request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logBackendError("token", resp)
		return nil, errors.Wrapf(errors.ErrTokenIssuance, "status %d", resp.StatusCode)
	}

	tokens := &oauth2.TokenResponse{}
	if err := json.NewDecoder(resp.Body).Decode(tokens); err != nil {
		return nil, errors.Wrapf(errors.ErrTokenIssuance, "decode response: %v", err)
	}
	return tokens, nil
}

func (c *Client) setBasicAuth(req *http.Request) {
	if c.clientID != "" && c.clientSecret != "" {
		req.SetBasicAuth(c.clientID, c.clientSecret)
	}
}

func logBackendError(operation string, resp *http.Response) {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	log.Warn().
		Str("operation", operation).
		Int("status", resp.StatusCode).
		Str("body", string(body)).
		Msg("backend rejected request")
}
