package assemblyai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Static errors for AssemblyAI client operations.
var (
	// ErrAPIKeyNotSet is returned when no API key is given and ASSEMBLYAI_KEY is not set.
	ErrAPIKeyNotSet = errors.New("assemblyai: ASSEMBLYAI_KEY environment variable is not set")
	// ErrTranscriptIDRequired is returned when the transcript ID is not provided.
	ErrTranscriptIDRequired = errors.New("assemblyai: transcript ID is required")
	// ErrNoUploadURL is returned when the upload response contains no URL.
	ErrNoUploadURL = errors.New("assemblyai: upload failed: no upload URL returned")
	// ErrNoTranscriptID is returned when the submit response contains no ID.
	ErrNoTranscriptID = errors.New("assemblyai: submit failed: no transcript ID returned")
	// ErrTranscriptionFailed is returned when a transcript ends in the error state.
	ErrTranscriptionFailed = errors.New("assemblyai: transcription failed")
	// ErrServerError is returned when the server returns a 5xx status code.
	ErrServerError = errors.New("assemblyai: server error")
	// ErrRateLimited is returned when the server returns a 429 status code.
	ErrRateLimited = errors.New("assemblyai: rate limited")
	// ErrRequestFailed is returned when the request fails with a non-2xx status code.
	ErrRequestFailed = errors.New("assemblyai: request failed")
)

// DefaultSpeechModel is requested for every transcript.
const DefaultSpeechModel = "universal"

// Client defines the interface for interacting with the AssemblyAI API.
type Client interface {
	// Transcribe uploads a local media file, submits it with speaker labels
	// and waits for the transcript to finish.
	Transcribe(ctx context.Context, path string) (Transcript, error)

	// Get fetches a transcript by ID. It does not wait for completion.
	Get(ctx context.Context, id string) (Transcript, error)

	// Wait polls a transcript until it reaches a terminal status.
	Wait(ctx context.Context, id string) (Transcript, error)

	// List returns previously created transcripts, newest first.
	List(ctx context.Context, params ListParams) ([]TranscriptSummary, error)
}

// HTTPClient is the HTTP implementation of the AssemblyAI Client interface.
type HTTPClient struct {
	apiKey       string
	baseURL      string
	httpClient   *http.Client
	maxRetries   int
	baseBackoff  time.Duration
	pollInterval time.Duration
	languageCode string
	logger       *slog.Logger
}

// ClientOption is a function that configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithAPIKey sets the API key for authentication.
func WithAPIKey(key string) ClientOption {
	return func(hc *HTTPClient) {
		hc.apiKey = key
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(hc *HTTPClient) {
		hc.httpClient = c
	}
}

// WithBaseURL sets a custom base URL for the AssemblyAI API.
func WithBaseURL(url string) ClientOption {
	return func(hc *HTTPClient) {
		hc.baseURL = url
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

// WithPollInterval sets how often Wait checks the transcript status.
func WithPollInterval(d time.Duration) ClientOption {
	return func(hc *HTTPClient) {
		if d > 0 {
			hc.pollInterval = d
		}
	}
}

// WithLanguageCode pins the spoken language instead of auto detection.
func WithLanguageCode(code string) ClientOption {
	return func(hc *HTTPClient) {
		hc.languageCode = code
	}
}

// WithLogger sets the logger used for progress messages.
func WithLogger(l *slog.Logger) ClientOption {
	return func(hc *HTTPClient) {
		hc.logger = l
	}
}

// NewClient creates a new AssemblyAI HTTP client.
// The API key can be set via the WithAPIKey option. If not provided,
// it is read from the environment variable ASSEMBLYAI_KEY.
func NewClient(opts ...ClientOption) (*HTTPClient, error) {
	c := &HTTPClient{
		baseURL:      "https://api.assemblyai.com",
		httpClient:   &http.Client{Timeout: 5 * time.Minute},
		maxRetries:   3,
		baseBackoff:  1 * time.Second,
		pollInterval: 3 * time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.apiKey == "" {
		c.apiKey = os.Getenv("ASSEMBLYAI_KEY")
	}
	if c.apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}

	return c, nil
}

// Transcribe uploads the file at path, submits it and waits for the result.
// A transcript that ends in the error state is returned with
// ErrTranscriptionFailed.
func (c *HTTPClient) Transcribe(ctx context.Context, path string) (Transcript, error) {
	uploadURL, err := c.Upload(ctx, path)
	if err != nil {
		return Transcript{}, err
	}

	id, err := c.Submit(ctx, uploadURL)
	if err != nil {
		return Transcript{}, err
	}
	c.logger.Info("transcript submitted", slog.String("transcript_id", id))

	return c.Wait(ctx, id)
}

// Upload streams a local media file to AssemblyAI and returns the private
// URL to submit. Uploads are not retried because the body is streamed.
func (c *HTTPClient) Upload(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path) // #nosec G304 - path is a job work file
	if err != nil {
		return "", fmt.Errorf("assemblyai: open upload file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var resp uploadResponse
	if err := c.doRequest(ctx, http.MethodPost, c.baseURL+"/v2/upload", f, "application/octet-stream", &resp); err != nil {
		return "", err
	}
	if resp.UploadURL == "" {
		return "", ErrNoUploadURL
	}
	return resp.UploadURL, nil
}

// Submit creates a transcript for audioURL with speaker labels enabled and
// returns its ID.
func (c *HTTPClient) Submit(ctx context.Context, audioURL string) (string, error) {
	body, err := json.Marshal(submitRequest{
		AudioURL:      audioURL,
		SpeakerLabels: true,
		SpeechModels:  []string{DefaultSpeechModel},
		LanguageCode:  c.languageCode,
	})
	if err != nil {
		return "", fmt.Errorf("assemblyai: marshal request: %w", err)
	}

	var resp Transcript
	if err := c.doRequestWithRetry(ctx, http.MethodPost, c.baseURL+"/v2/transcript", body, &resp); err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", ErrNoTranscriptID
	}
	return resp.ID, nil
}

// Get fetches a transcript by ID.
func (c *HTTPClient) Get(ctx context.Context, id string) (Transcript, error) {
	if id == "" {
		return Transcript{}, ErrTranscriptIDRequired
	}

	var t Transcript
	if err := c.doRequestWithRetry(ctx, http.MethodGet, c.baseURL+"/v2/transcript/"+url.PathEscape(id), nil, &t); err != nil {
		return Transcript{}, err
	}
	return t, nil
}

// Wait polls until the transcript is completed or failed.
func (c *HTTPClient) Wait(ctx context.Context, id string) (Transcript, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		t, err := c.Get(ctx, id)
		if err != nil {
			return Transcript{}, err
		}

		switch t.Status {
		case StatusCompleted:
			return t, nil
		case StatusError:
			return t, fmt.Errorf("%w: %s", ErrTranscriptionFailed, t.Error)
		}

		c.logger.Debug("transcript pending",
			slog.String("transcript_id", id),
			slog.String("status", string(t.Status)),
		)

		select {
		case <-ctx.Done():
			return Transcript{}, fmt.Errorf("assemblyai: context cancelled: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// List returns transcripts matching params.
func (c *HTTPClient) List(ctx context.Context, params ListParams) ([]TranscriptSummary, error) {
	q := url.Values{}
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.Status != "" {
		q.Set("status", string(params.Status))
	}
	if params.CreatedOn != "" {
		q.Set("created_on", params.CreatedOn)
	}
	if params.BeforeID != "" {
		q.Set("before_id", params.BeforeID)
	}
	if params.AfterID != "" {
		q.Set("after_id", params.AfterID)
	}

	u := c.baseURL + "/v2/transcript"
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var resp listResponse
	if err := c.doRequestWithRetry(ctx, http.MethodGet, u, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Transcripts, nil
}

// doRequestWithRetry performs an HTTP request with exponential backoff retry.
func (c *HTTPClient) doRequestWithRetry(ctx context.Context, method, url string, body []byte, result any) error {
	var lastErr error
	backoff := c.baseBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("assemblyai: context cancelled: %w", ctx.Err())
			case <-time.After(backoff):
				backoff *= 2 // Exponential backoff
			}
		}

		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}

		err := c.doRequest(ctx, method, url, bodyReader, "application/json", result)
		if err == nil {
			return nil
		}

		// Check if error is retryable
		if !isRetryable(err) {
			return err
		}

		lastErr = err
	}

	return fmt.Errorf("assemblyai: max retries exceeded: %w", lastErr)
}

// doRequest performs a single HTTP request.
func (c *HTTPClient) doRequest(ctx context.Context, method, url string, body io.Reader, contentType string, result any) error {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("assemblyai: create request: %w", err)
	}

	// AssemblyAI takes the raw key, without a Bearer prefix.
	req.Header.Set("Authorization", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("assemblyai: context cancelled: %w", ctx.Err())
		}
		return &retryableError{err: fmt.Errorf("assemblyai: request failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &retryableError{err: fmt.Errorf("assemblyai: read response: %w", err)}
	}

	// Handle non-2xx status codes
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := string(respBody)
		var apiErr errorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			msg = apiErr.Error
		}
		// 5xx errors are retryable
		if resp.StatusCode >= 500 {
			return &retryableError{err: fmt.Errorf("%w %d: %s", ErrServerError, resp.StatusCode, msg)}
		}
		// 429 (rate limit) is retryable
		if resp.StatusCode == http.StatusTooManyRequests {
			return &retryableError{err: fmt.Errorf("%w: %s", ErrRateLimited, msg)}
		}
		// Other errors are not retryable
		return fmt.Errorf("%w with status %d: %s", ErrRequestFailed, resp.StatusCode, msg)
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("assemblyai: unmarshal response: %w", err)
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
