// Package api provides the low-level JSON client for the Taskboard REST
// backend. Domain services wrap it with typed methods; the client itself
// only knows about paths, bodies, and the {success, message} envelope.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/taskboard/taskboard-cli/internal/ctxkey"
	"github.com/taskboard/taskboard-cli/internal/domain/identity"
	"github.com/taskboard/taskboard-cli/internal/transport"
)

// DefaultBaseURL is used when neither the option nor the environment
// variable supplies a base URL.
const DefaultBaseURL = "http://localhost:8080/api"

// Envelope is the common part of every backend response body.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Client issues JSON requests against the backend. Whether its calls are
// authorized depends on the http.Client it is built with: the main client
// carries the request pipeline, the bare client used for token refresh
// does not.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithBaseURL sets the API base URL.
// If not set, defaults to the TASKBOARD_API_URL environment variable.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient sets a custom http.Client, typically one whose transport
// is the request pipeline.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the HTTP timeout on the client's default http.Client.
// Ignored when WithHTTPClient supplies a client of its own.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if c.httpClient != nil {
			c.httpClient.Timeout = d
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient creates a Client. It reads TASKBOARD_API_URL by default;
// options override the defaults.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    os.Getenv("TASKBOARD_API_URL"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		userAgent:  "taskboard-cli",
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	return c
}

// BaseURL returns the resolved API base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Get issues a GET request and decodes the response into result.
func (c *Client) Get(ctx context.Context, path string, result any) error {
	return c.do(ctx, http.MethodGet, path, nil, result)
}

// Post issues a POST request with a JSON body and decodes into result.
func (c *Client) Post(ctx context.Context, path string, body, result any) error {
	return c.do(ctx, http.MethodPost, path, body, result)
}

// Put issues a PUT request with a JSON body and decodes into result.
func (c *Client) Put(ctx context.Context, path string, body, result any) error {
	return c.do(ctx, http.MethodPut, path, body, result)
}

// Delete issues a DELETE request and decodes the response into result.
func (c *Client) Delete(ctx context.Context, path string, result any) error {
	return c.do(ctx, http.MethodDelete, path, nil, result)
}

// do performs an HTTP request against the backend. Non-2xx responses become
// *APIError with the envelope message when the body carried one.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	url := strings.TrimRight(c.baseURL, "/") + path

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	log := ctxkey.Logger(ctx)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug("request failed", "method", method, "path", path, "error", err)
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{
			Status:    resp.StatusCode,
			RequestID: resp.Header.Get("X-Request-ID"),
		}
		var env Envelope
		if json.Unmarshal(respBody, &env) == nil && env.Message != "" {
			apiErr.Message = env.Message
		} else {
			apiErr.Message = strings.TrimSpace(string(respBody))
		}
		log.Debug("request rejected",
			"method", method, "path", path,
			"status", resp.StatusCode, "request_id", apiErr.RequestID)
		return apiErr
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// refreshRequest is the body of the POST /auth/refresh exchange.
type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// refreshResponse is the refresh exchange response.
type refreshResponse struct {
	Envelope
	identity.TokenPair
}

// NewRefresher adapts a bare client (no pipeline in its transport) into the
// pipeline's Refresher. Routing the exchange through the pipeline itself
// would recurse on the very failure it is recovering from.
func NewRefresher(bare *Client) transport.RefresherFunc {
	return func(ctx context.Context, refreshToken string) (identity.TokenPair, error) {
		var resp refreshResponse
		if err := bare.Post(ctx, "/auth/refresh", refreshRequest{RefreshToken: refreshToken}, &resp); err != nil {
			return identity.TokenPair{}, fmt.Errorf("refresh exchange: %w", err)
		}
		if resp.AccessToken == "" || resp.RefreshToken == "" {
			return identity.TokenPair{}, fmt.Errorf("refresh exchange: incomplete token pair in response")
		}
		return resp.TokenPair, nil
	}
}
