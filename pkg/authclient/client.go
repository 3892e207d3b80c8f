package authclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// CookieName is the cookie the gatekeeper issues
const CookieName = "auth_token"

const validatePath = "/api/auth/validate"

// Client validates tokens against a gatekeeper instance
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// New creates a client for the gatekeeper at baseURL (e.g. "http://localhost:3002")
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type validateResponse struct {
	Valid bool `json:"valid"`
}

// Validate reports whether token was issued by the gatekeeper. A 200 or 401
// reply is a decision; any other status or a transport failure is an error.
func (c *Client) Validate(ctx context.Context, token string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+validatePath, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create validate request: %w", err)
	}
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to call gatekeeper: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusUnauthorized {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return false, fmt.Errorf("gatekeeper returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out validateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("failed to decode validate response: %w", err)
	}
	return out.Valid, nil
}
