// Package httpclient implements remote.Store against the task API served by
// internal/server.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhle/advisor-tasks/internal/remote"
)

// Client is a thin HTTP client for the task API. It handles Bearer token
// authentication, JSON marshaling, and retry with exponential backoff when
// a read is rate limited (HTTP 429). Mutations are never retried.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	maxRetries int
	maxBackoff time.Duration
	log        zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMaxRetries sets how often a rate-limited read is retried.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithMaxBackoff caps the wait between retries.
func WithMaxBackoff(d time.Duration) Option {
	return func(c *Client) { c.maxBackoff = d }
}

// WithLogger sets the client logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New creates a client for the API rooted at baseURL
// (e.g. http://localhost:8080). The token is sent as a Bearer token when
// not empty.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxRetries: 3,
		maxBackoff: 30 * time.Second,
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (c *Client) get(ctx context.Context, op, path string, query url.Values, result any) error {
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return c.do(ctx, op, http.MethodGet, path, nil, result)
}

func (c *Client) send(ctx context.Context, op, method, path string, body, result any) error {
	return c.do(ctx, op, method, path, body, result)
}

// do builds the request, handles auth and rate limiting, and decodes the
// response envelope into result.
func (c *Client) do(
	ctx context.Context,
	op string,
	method string,
	path string,
	body any,
	result any,
) error {
	target := c.baseURL + path

	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		payload = data
	}

	retries := 0
	if method == http.MethodGet {
		retries = c.maxRetries
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}

		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return &remote.Error{Op: op, Err: fmt.Errorf("executing request %s %s: %w", method, path, err)}
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return &remote.Error{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("reading response body: %w", readErr)}
		}

		if resp.StatusCode == http.StatusTooManyRequests && attempt < retries {
			wait := c.retryAfterDuration(resp, attempt)
			lastErr = fmt.Errorf("rate limited (429) on %s %s", method, path)
			c.log.Debug().Str("op", op).Dur("wait", wait).Int("attempt", attempt+1).Msg("rate limited, retrying")

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
				continue
			}
		}

		var env envelope
		decodeErr := json.Unmarshal(respBody, &env)

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			msg := env.Error
			if decodeErr != nil || msg == "" {
				msg = strings.TrimSpace(string(respBody))
			}
			return statusError(op, resp.StatusCode, msg)
		}

		if decodeErr != nil {
			return &remote.Error{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decoding response from %s %s: %w", method, path, decodeErr)}
		}
		if result == nil || len(env.Data) == 0 {
			return nil
		}
		if err := json.Unmarshal(env.Data, result); err != nil {
			return &remote.Error{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("unmarshaling response from %s %s: %w", method, path, err)}
		}
		return nil
	}

	return &remote.Error{
		Op:     op,
		Status: http.StatusTooManyRequests,
		Err:    fmt.Errorf("max retries (%d) exceeded: %w", retries, lastErr),
	}
}

// statusError maps an API failure back onto the store error contract.
func statusError(op string, status int, msg string) error {
	switch status {
	case http.StatusNotFound:
		return fmt.Errorf("%s: %s: %w", op, msg, remote.ErrNotFound)
	case http.StatusBadRequest:
		return fmt.Errorf("%s: %s: %w", op, msg, remote.ErrInvalidInput)
	case http.StatusUnauthorized:
		return &remote.Error{Op: op, Status: status, Err: errors.New("authentication failed: check the api token")}
	default:
		return &remote.Error{Op: op, Status: status, Err: errors.New(msg)}
	}
}

// retryAfterDuration reads the Retry-After header and computes a wait
// duration. Falls back to exponential backoff if the header is missing.
func (c *Client) retryAfterDuration(resp *http.Response, attempt int) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil {
			return min(time.Duration(seconds)*time.Second, c.maxBackoff)
		}
	}

	// Exponential backoff: 1s, 2s, 4s, ...
	backoff := time.Duration(1<<uint(attempt)) * time.Second
	return min(backoff, c.maxBackoff)
}
