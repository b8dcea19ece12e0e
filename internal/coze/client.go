package coze

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Static errors for Coze client operations.
var (
	// ErrURLRequired is returned when the workflow URL is not provided.
	ErrURLRequired = errors.New("coze: workflow URL is required")
	// ErrTokenNotSet is returned when no token is given and COZE_TOKEN is not set.
	ErrTokenNotSet = errors.New("coze: token is required")
	// ErrInvalidMaxLength is returned for a non-positive max length.
	ErrInvalidMaxLength = errors.New("coze: max length must be positive")
	// ErrRunFailed is returned when the workflow reports an error.
	ErrRunFailed = errors.New("coze: workflow run failed")
	// ErrServerError is returned when the server returns a 5xx status code.
	ErrServerError = errors.New("coze: server error")
	// ErrRateLimited is returned when the server returns a 429 status code.
	ErrRateLimited = errors.New("coze: rate limited")
	// ErrRequestFailed is returned when the request fails with a non-2xx status code.
	ErrRequestFailed = errors.New("coze: request failed")
)

// Client defines the interface for the Coze translate-and-split workflow.
type Client interface {
	// Run sends texts to the workflow and returns one Result per input, in
	// order. maxLength is the longest fragment the caller can display.
	Run(ctx context.Context, texts []string, maxLength int) ([]Result, error)
}

// HTTPClient is the HTTP implementation of the Coze Client interface.
type HTTPClient struct {
	token       string
	url         string
	httpClient  *http.Client
	maxRetries  int
	baseBackoff time.Duration
}

// ClientOption is a function that configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithToken sets the API token for authentication.
func WithToken(token string) ClientOption {
	return func(hc *HTTPClient) {
		hc.token = token
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(hc *HTTPClient) {
		hc.httpClient = c
	}
}

// WithMaxRetries sets the maximum number of retries for transient failures.
func WithMaxRetries(n int) ClientOption {
	return func(hc *HTTPClient) {
		hc.maxRetries = n
	}
}

// WithBaseBackoff sets the initial backoff duration for retries.
func WithBaseBackoff(d time.Duration) ClientOption {
	return func(hc *HTTPClient) {
		hc.baseBackoff = d
	}
}

// NewClient creates a new Coze HTTP client.
// The token can be set via the WithToken option. If not provided,
// it is read from the environment variable COZE_TOKEN.
// The workflow URL must be provided.
func NewClient(url string, opts ...ClientOption) (*HTTPClient, error) {
	if url == "" {
		return nil, ErrURLRequired
	}

	c := &HTTPClient{
		url:         url,
		httpClient:  &http.Client{Timeout: 5 * time.Minute},
		maxRetries:  3,
		baseBackoff: 1 * time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.token == "" {
		c.token = os.Getenv("COZE_TOKEN")
	}
	if c.token == "" {
		return nil, ErrTokenNotSet
	}

	return c, nil
}

// Run calls the workflow for texts.
func (c *HTTPClient) Run(ctx context.Context, texts []string, maxLength int) ([]Result, error) {
	if maxLength < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidMaxLength, maxLength)
	}
	if len(texts) == 0 {
		return nil, nil
	}

	items := make([]TextItem, len(texts))
	for i, t := range texts {
		items[i] = TextItem{Text: t}
	}

	body, err := json.Marshal(runRequest{MaxLength: maxLength, Texts: items})
	if err != nil {
		return nil, fmt.Errorf("coze: marshal request: %w", err)
	}

	var resp runResponse
	if err := c.doRequestWithRetry(ctx, http.MethodPost, c.url, body, &resp); err != nil {
		return nil, err
	}

	if resp.Results == nil {
		msg := resp.Error
		if msg == "" {
			msg = resp.Msg
		}
		if msg != "" {
			return nil, fmt.Errorf("%w: %s", ErrRunFailed, msg)
		}
	}

	return resp.Results, nil
}

// doRequestWithRetry performs an HTTP request with exponential backoff retry.
func (c *HTTPClient) doRequestWithRetry(ctx context.Context, method, url string, body []byte, result any) error {
	var lastErr error
	backoff := c.baseBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("coze: context cancelled: %w", ctx.Err())
			case <-time.After(backoff):
				backoff *= 2 // Exponential backoff
			}
		}

		err := c.doRequest(ctx, method, url, body, result)
		if err == nil {
			return nil
		}

		if !isRetryable(err) {
			return err
		}

		lastErr = err
	}

	return fmt.Errorf("coze: max retries exceeded: %w", lastErr)
}

// doRequest performs a single HTTP request.
func (c *HTTPClient) doRequest(ctx context.Context, method, url string, body []byte, result any) error {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("coze: create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("coze: context cancelled: %w", ctx.Err())
		}
		return &retryableError{err: fmt.Errorf("coze: request failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &retryableError{err: fmt.Errorf("coze: read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode >= 500 {
			return &retryableError{err: fmt.Errorf("%w %d: %s", ErrServerError, resp.StatusCode, string(respBody))}
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return &retryableError{err: fmt.Errorf("%w: %s", ErrRateLimited, string(respBody))}
		}
		return fmt.Errorf("%w with status %d: %s", ErrRequestFailed, resp.StatusCode, string(respBody))
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("coze: unmarshal response: %w", err)
		}
	}

	return nil
}

// retryableError wraps errors that should be retried.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

// isRetryable returns true if the error should be retried.
func isRetryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}
