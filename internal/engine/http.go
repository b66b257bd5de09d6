package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	defaultTimeout      = 60 * time.Second
	defaultRetryWaitMin = 2 * time.Second
	defaultRetryWaitMax = 4 * time.Second
	defaultMaxTokens    = 512
)

// clientOptions holds the settings shared by every HTTP model client.
type clientOptions struct {
	model        string
	baseURL      string
	timeout      time.Duration
	retryWaitMin time.Duration
	retryWaitMax time.Duration
}

// Option configures a model client.
type Option func(*clientOptions)

// WithModel sets the model name.
func WithModel(model string) Option {
	return func(o *clientOptions) {
		if model != "" {
			o.model = model
		}
	}
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(url string) Option {
	return func(o *clientOptions) {
		if url != "" {
			o.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithTimeout sets the per-attempt HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithRetryWait bounds the backoff between the two attempts.
func WithRetryWait(min, max time.Duration) Option {
	return func(o *clientOptions) {
		o.retryWaitMin = min
		o.retryWaitMax = max
	}
}

func buildOptions(model, baseURL string, opts []Option) clientOptions {
	o := clientOptions{
		model:        model,
		baseURL:      baseURL,
		timeout:      defaultTimeout,
		retryWaitMin: defaultRetryWaitMin,
		retryWaitMax: defaultRetryWaitMax,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// newHTTPClient returns a client that retries once with backoff on
// transient failures (connection errors, 429 and 5xx). The final response is
// passed through so callers can inspect the status code.
func newHTTPClient(o clientOptions) *retryablehttp.Client {
	c := retryablehttp.NewClient()
	c.HTTPClient.Timeout = o.timeout
	c.RetryMax = 1
	c.RetryWaitMin = o.retryWaitMin
	c.RetryWaitMax = o.retryWaitMax
	c.ErrorHandler = retryablehttp.PassthroughErrorHandler
	c.Logger = debugLogger{slog.Default().With("system", "model-http")}
	return c
}

// debugLogger hands retryablehttp's per-attempt messages to Debug. The
// final outcome of a request is logged by its caller.
type debugLogger struct {
	l *slog.Logger
}

func (d debugLogger) Error(msg string, kv ...any) { d.l.Debug(msg, kv...) }
func (d debugLogger) Warn(msg string, kv ...any)  { d.l.Debug(msg, kv...) }
func (d debugLogger) Info(msg string, kv ...any)  { d.l.Debug(msg, kv...) }
func (d debugLogger) Debug(msg string, kv ...any) { d.l.Debug(msg, kv...) }

// apiError represents a non-200 response from a model API.
type apiError struct {
	StatusCode int
	Body       string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// postJSON sends body to url and returns the raw response body of a 200 reply.
func postJSON(ctx context.Context, c *retryablehttp.Client, url string, body []byte, headers map[string]string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &apiError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return respBody, nil
}

func maxTokens(req Request) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	return defaultMaxTokens
}
