// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend implements the JSON client for the retrieval-augmented
// chat backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Per-call timeouts. Each endpoint carries its own bound so a slow chat
// completion never stretches the budget of a status probe.
const (
	// DefaultStatusTimeout bounds the status query.
	DefaultStatusTimeout = 8 * time.Second

	// DefaultRebuildTimeout bounds the rebuild trigger.
	DefaultRebuildTimeout = 8 * time.Second

	// DefaultPollTimeout bounds a single rebuild-progress poll.
	DefaultPollTimeout = 5 * time.Second

	// DefaultRefreshTimeout bounds the final post-rebuild status refresh,
	// which may block briefly while the backend counts documents.
	DefaultRefreshTimeout = 12 * time.Second

	// DefaultChatTimeout bounds a chat completion end to end.
	DefaultChatTimeout = 120 * time.Second

	// MaxResponseSize caps response bodies to protect against a
	// misbehaving backend.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB
)

// pollRate paces rebuild-status polls on the wire regardless of how
// aggressively a caller ticks. Burst 1 keeps the immediate first poll.
var pollRate = rate.Every(time.Second)

// PERFORMANCE: one pooled transport for every request; per-call deadlines
// come from the request context, not the client.
var sharedHTTPClient = &http.Client{
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	},
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrTimeout marks a bounded wait that was exceeded. It is distinct
	// from transport errors so callers can word the failure differently.
	ErrTimeout = errors.New("request timed out")
)

// APIError is a backend-reported failure: any non-success response carrying
// an {error} payload. Its message is surfaced to the user verbatim.
type APIError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the RAG backend over JSON request/response.
type Client struct {
	baseURL    string
	httpClient *http.Client
	pollLimit  *rate.Limiter

	statusTimeout  time.Duration
	rebuildTimeout time.Duration
	pollTimeout    time.Duration
	refreshTimeout time.Duration
	chatTimeout    time.Duration
}

// NewClient creates a backend client for the given base URL
// (e.g. "http://127.0.0.1:8080").
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:        strings.TrimSuffix(baseURL, "/"),
		httpClient:     sharedHTTPClient,
		pollLimit:      rate.NewLimiter(pollRate, 1),
		statusTimeout:  DefaultStatusTimeout,
		rebuildTimeout: DefaultRebuildTimeout,
		pollTimeout:    DefaultPollTimeout,
		refreshTimeout: DefaultRefreshTimeout,
		chatTimeout:    DefaultChatTimeout,
	}
}

// WithHTTPClient sets a custom HTTP client (tests).
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// WithChatTimeout sets the chat completion timeout.
func (c *Client) WithChatTimeout(d time.Duration) *Client {
	if d > 0 {
		c.chatTimeout = d
	}
	return c
}

// WithPollTimeout sets the rebuild-poll timeout.
func (c *Client) WithPollTimeout(d time.Duration) *Client {
	if d > 0 {
		c.pollTimeout = d
	}
	return c
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// =============================================================================
// ENDPOINTS
// =============================================================================

// Status queries the backend status snapshot.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var out Status
	if err := c.doJSON(ctx, http.MethodGet, "/api/status", nil, &out, c.statusTimeout); err != nil {
		return nil, err
	}
	return &out, nil
}

// StatusRefresh is the post-rebuild status query with its longer bound.
func (c *Client) StatusRefresh(ctx context.Context) (*Status, error) {
	var out Status
	if err := c.doJSON(ctx, http.MethodGet, "/api/status", nil, &out, c.refreshTimeout); err != nil {
		return nil, err
	}
	return &out, nil
}

// Rebuild triggers the asynchronous knowledge-base rebuild job.
func (c *Client) Rebuild(ctx context.Context, params map[string]any) (*RebuildAck, error) {
	if params == nil {
		params = map[string]any{}
	}
	var out RebuildAck
	if err := c.doJSON(ctx, http.MethodPost, "/api/rebuild", params, &out, c.rebuildTimeout); err != nil {
		return nil, err
	}
	return &out, nil
}

// RebuildStatus polls the rebuild job snapshot. Calls are paced by the
// client-side limiter so a misconfigured caller cannot hammer the backend.
func (c *Client) RebuildStatus(ctx context.Context) (*RebuildJob, error) {
	if err := c.pollLimit.Wait(ctx); err != nil {
		return nil, err
	}
	var out RebuildJob
	if err := c.doJSON(ctx, http.MethodGet, "/api/rebuild/status", nil, &out, c.pollTimeout); err != nil {
		return nil, err
	}
	return &out, nil
}

// Chat issues a chat completion. The bounded timeout is independent of
// user-initiated cancellation, which arrives through ctx.
func (c *Client) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	var out ChatResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/chat", req, &out, c.chatTimeout); err != nil {
		return nil, err
	}
	return &out, nil
}

// =============================================================================
// TRANSPORT
// =============================================================================

// doJSON performs one JSON round-trip with a per-call deadline layered on
// top of the caller's context. Error mapping:
//   - deadline exceeded        -> ErrTimeout (distinct wording)
//   - caller cancellation      -> context.Canceled, unwrapped
//   - non-2xx with {error}     -> *APIError carrying the verbatim message
//   - non-2xx without payload  -> *APIError with "HTTP <code>"
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any, timeout time.Duration) error {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(callCtx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// The caller's own cancellation must stay recognizable; only
		// the per-call deadline becomes ErrTimeout.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) || callCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("%w after %s: %s %s", ErrTimeout, timeout, method, path)
		}
		return fmt.Errorf("backend unreachable: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) || callCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("%w after %s: %s %s", ErrTimeout, timeout, method, path)
		}
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp.StatusCode, data)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// decodeAPIError extracts the backend's {error} payload, falling back to the
// bare status code.
func decodeAPIError(status int, data []byte) error {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error != "" {
		return &APIError{Status: status, Message: payload.Error}
	}
	return &APIError{Status: status, Message: fmt.Sprintf("HTTP %d", status)}
}
