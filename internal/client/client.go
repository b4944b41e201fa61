// Package client talks to a compose-edit server over HTTP/JSON.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stackgen-cli/compose-edit/internal/models"
)

// DefaultTimeout bounds a single request
const DefaultTimeout = 30 * time.Second

// RequestIDHeader carries the per-request uuid
const RequestIDHeader = "X-Request-ID"

// StatusError is returned for non-2xx responses
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying http client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = timeout }
}

// WithLogger sets the client logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// Client fetches and updates stacks on a remote server.
// It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a client for baseURL, e.g. "http://localhost:8780"
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Stacks lists the stacks of a server
func (c *Client) Stacks(ctx context.Context, server string) ([]string, error) {
	var stacks []string
	path := "/v1/servers/" + url.PathEscape(server) + "/stacks"
	if err := c.do(ctx, http.MethodGet, path, nil, &stacks); err != nil {
		return nil, err
	}
	return stacks, nil
}

// Fetch returns the raw compose document of a stack
func (c *Client) Fetch(ctx context.Context, ref models.StackRef) (*models.RawCompose, error) {
	var raw models.RawCompose
	if err := c.do(ctx, http.MethodGet, composePath(ref), nil, &raw); err != nil {
		return nil, err
	}
	return &raw, nil
}

// Update submits a change-set
func (c *Client) Update(ctx context.Context, ref models.StackRef, req models.UpdateRequest) (*models.UpdateResponse, error) {
	var resp models.UpdateResponse
	if err := c.do(ctx, http.MethodPatch, composePath(ref), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func composePath(ref models.StackRef) string {
	return "/v1/servers/" + url.PathEscape(ref.Server) + "/stacks/" + url.PathEscape(ref.Stack) + "/compose"
}

// do sends one request and decodes the envelope data into out
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	reqID := uuid.NewString()
	req.Header.Set(RequestIDHeader, reqID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("request completed",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"request_id", reqID,
		"duration", time.Since(start),
	)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope
	decodeErr := json.Unmarshal(data, &env)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := env.Message
		if decodeErr != nil {
			msg = strings.TrimSpace(string(data))
		}
		return &StatusError{Code: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return fmt.Errorf("failed to decode response: %w", decodeErr)
	}
	if env.Status != "success" {
		return &StatusError{Code: resp.StatusCode, Message: env.Message}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return nil
}
