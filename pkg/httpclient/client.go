package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/richxcame/lead-intake/pkg/resilience"
)

const defaultTimeout = 30 * time.Second

// HTTPError represents a non-2xx response from the remote service.
type HTTPError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Client is a JSON HTTP client with optional retry support.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	retryConfig *resilience.RetryConfig
}

// Option configures a Client.
type Option func(*Client)

// NewClient creates a client for the given base URL. An optional timeout
// overrides the 30s default.
func NewClient(baseURL string, timeout ...time.Duration) *Client {
	t := defaultTimeout
	if len(timeout) > 0 && timeout[0] > 0 {
		t = timeout[0]
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: t},
	}
}

// WithRetry enables retries with the given configuration.
func WithRetry(config resilience.RetryConfig) Option {
	return func(c *Client) {
		c.retryConfig = &config
	}
}

// WithDefaultRetry enables retries with defaults tuned for HTTP calls:
// only timeouts, 429s and 5xx responses are retried.
func WithDefaultRetry() Option {
	return func(c *Client) {
		cfg := resilience.DefaultRetryConfig()
		cfg.RetryableChecker = isHTTPRetryable
		c.retryConfig = &cfg
	}
}

// Get performs a GET request and returns the response body.
func (c *Client) Get(ctx context.Context, path string, headers map[string]string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, nil, headers)
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body interface{}, headers map[string]string) ([]byte, error) {
	return c.do(ctx, http.MethodPost, path, body, headers)
}

// PostWithIdempotency performs a POST with an Idempotency-Key header.
// An empty key is replaced with a fresh UUID.
func (c *Client) PostWithIdempotency(ctx context.Context, path string, body interface{}, headers map[string]string, idempotencyKey string) ([]byte, error) {
	if idempotencyKey == "" {
		idempotencyKey = uuid.New().String()
	}

	merged := make(map[string]string, len(headers)+1)
	for k, v := range headers {
		merged[k] = v
	}
	merged["Idempotency-Key"] = idempotencyKey

	return c.do(ctx, http.MethodPost, path, body, merged)
}

// Put performs a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body interface{}, headers map[string]string) ([]byte, error) {
	return c.do(ctx, http.MethodPut, path, body, headers)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, headers map[string]string) ([]byte, error) {
	return c.do(ctx, http.MethodDelete, path, nil, headers)
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, headers map[string]string) ([]byte, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	operation := func(ctx context.Context) (interface{}, error) {
		return c.doOnce(ctx, method, path, payload, headers)
	}

	var result interface{}
	var err error
	if c.retryConfig != nil {
		result, err = resilience.Retry(ctx, *c.retryConfig, operation)
	} else {
		result, err = operation(ctx)
	}
	if err != nil {
		return nil, err
	}

	respBody, _ := result.([]byte)
	return respBody, nil
}

func (c *Client) doOnce(ctx context.Context, method, path string, payload []byte, headers map[string]string) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	return respBody, nil
}

// isHTTPRetryable treats transport errors and retryable HTTP statuses as
// transient; 4xx responses (other than 408/429) are permanent failures.
func isHTTPRetryable(err error) bool {
	if err == nil {
		return false
	}
	if httpErr, ok := err.(*HTTPError); ok {
		return resilience.IsRetryableHTTPStatus(httpErr.StatusCode)
	}
	return true
}
