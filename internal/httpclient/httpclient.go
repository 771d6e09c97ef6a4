// Package httpclient is the backend transport shared by the SDK subsystems:
// JSON requests against the Piazza backend, signed with the organization API
// key and the caller's bearer token.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

const (
	prodBackendURL = "https://api.piazza.xyz/v1"
	devBackendURL  = "https://api-dev.piazza.xyz/v1"
)

// BackendURLFor resolves the default backend base URL for the environment.
func BackendURLFor(devMode bool) string {
	if devMode {
		return devBackendURL
	}
	return prodBackendURL
}

// Client posts JSON payloads to the backend. Requests deliberately carry no
// client-side timeout: a flow settles when the backend answers or the
// caller's context expires.
type Client struct {
	httpClient *http.Client
	backendURL string
	apiKey     string
}

// Option modifies a Client at construction.
type Option func(*Client)

// WithHTTPClient overrides the underlying http.Client (primarily for
// testing).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New initializes a backend client.
func New(backendURL, apiKey string, options ...Option) (*Client, error) {
	if strings.TrimSpace(backendURL) == "" {
		return nil, errors.New("[httpclient.New] backendURL is required")
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("[httpclient.New] apiKey is required")
	}

	c := &Client{
		httpClient: &http.Client{},
		backendURL: strings.TrimRight(backendURL, "/"),
		apiKey:     apiKey,
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// APIKey returns the organization API key the client signs requests with.
func (c *Client) APIKey() string {
	return c.apiKey
}

// BackendURL returns the base URL requests are issued against.
func (c *Client) BackendURL() string {
	return c.backendURL
}

// Post issues a JSON POST against path with the x-api-key header and, when
// bearer is non-empty, a bearer Authorization header. The response body is
// decoded into out when out is non-nil.
func (c *Client) Post(ctx context.Context, path, bearer string, body, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "encode request body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.backendURL+path, bytes.NewReader(encoded))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "POST %s", path)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Errorf("POST %s: backend returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decode %s response", path)
	}
	return nil
}
