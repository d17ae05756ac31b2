package httputil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wonny/momentumchaser/pkg/config"
	"github.com/wonny/momentumchaser/pkg/logger"
	"github.com/wonny/momentumchaser/pkg/ratelimit"
)

// Client is an HTTP client wrapper with retry logic and logging
// ⭐ SSOT: 모든 HTTP 요청은 이 클라이언트를 통해서만 수행
type Client struct {
	httpClient  *http.Client
	logger      *logger.Logger
	retryConfig RetryConfig
	gate        ratelimit.Gate
}

// RetryConfig holds retry configuration
type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Enabled      bool
}

// RetryError is returned when every attempt failed with a retryable outcome
type RetryError struct {
	Attempts   int
	StatusCode int // last HTTP status, 0 for transport errors
	Err        error
}

func (e *RetryError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("giving up after %d attempts: status %d", e.Attempts, e.StatusCode)
	}
	return fmt.Sprintf("giving up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RetryError) Unwrap() error {
	return e.Err
}

// New creates a new HTTP client from config
// ⭐ SSOT: http.Client 인스턴스는 여기서만 생성
func New(cfg *config.Config, log *logger.Logger) *Client {
	timeout := cfg.Fetch.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: log,
		retryConfig: RetryConfig{
			MaxRetries:   cfg.Fetch.MaxRetries,
			InitialDelay: cfg.Fetch.InitialBackoff,
			MaxDelay:     cfg.Fetch.MaxBackoff,
			Enabled:      cfg.Fetch.MaxRetries > 0,
		},
	}
}

// NewWithTimeout creates a client with custom timeout
func NewWithTimeout(cfg *config.Config, log *logger.Logger, timeout time.Duration) *Client {
	client := New(cfg, log)
	client.httpClient.Timeout = timeout
	return client
}

// WithRetry configures retry behavior
func (c *Client) WithRetry(maxRetries int, initialDelay, maxDelay time.Duration) *Client {
	c.retryConfig.MaxRetries = maxRetries
	c.retryConfig.InitialDelay = initialDelay
	c.retryConfig.MaxDelay = maxDelay
	c.retryConfig.Enabled = maxRetries > 0
	return c
}

// DisableRetry disables automatic retry
func (c *Client) DisableRetry() *Client {
	c.retryConfig.Enabled = false
	return c
}

// WithGate makes every attempt, including retries, acquire gate first.
// The returned client shares the transport but not the gate.
func (c *Client) WithGate(gate ratelimit.Gate) *Client {
	clone := *c
	clone.gate = gate
	return &clone
}

// Get performs a GET request
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create GET request: %w", err)
	}

	return c.Do(req)
}

// Do executes a bodyless request with gating, retry and logging.
//
// Non-retryable responses (2xx, 3xx, 4xx other than 429) are returned as is and
// the caller owns the body. Exhausted retries return *RetryError.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if req.Body != nil && req.GetBody == nil {
		return nil, fmt.Errorf("httputil: request body is not replayable")
	}

	startTime := time.Now()
	resp, attempts, err := c.doWithRetry(req)
	duration := time.Since(startTime)

	fields := map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.Redacted(),
		"attempts": attempts,
		"duration": duration,
	}

	if err != nil {
		c.logger.WithFields(fields).WithError(err).Warn("HTTP request failed")
		return nil, err
	}

	fields["status_code"] = resp.StatusCode
	c.logger.WithFields(fields).Debug("HTTP request completed")
	return resp, nil
}

// doWithRetry executes the request with exponential backoff retry
func (c *Client) doWithRetry(req *http.Request) (*http.Response, int, error) {
	ctx := req.Context()
	delay := c.retryConfig.InitialDelay
	maxAttempts := 1
	if c.retryConfig.Enabled {
		maxAttempts += c.retryConfig.MaxRetries
	}

	var lastErr error
	lastStatus := 0

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if c.gate != nil {
			if err := c.gate.Wait(ctx); err != nil {
				return nil, attempt - 1, err
			}
		}

		attemptReq := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, attempt - 1, fmt.Errorf("httputil: replay body: %w", err)
			}
			attemptReq.Body = body
		}

		resp, err := c.httpClient.Do(attemptReq)
		switch {
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, attempt, ctxErr
			}
			lastErr, lastStatus = err, 0
		case IsRetryableError(resp.StatusCode):
			drain(resp)
			lastErr, lastStatus = fmt.Errorf("status %d", resp.StatusCode), resp.StatusCode
		default:
			return resp, attempt, nil
		}

		if attempt == maxAttempts {
			break
		}

		c.logger.WithFields(map[string]interface{}{
			"attempt": attempt,
			"delay":   delay,
			"status":  lastStatus,
			"url":     req.URL.Redacted(),
		}).WithError(lastErr).Warn("Retrying HTTP request")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, attempt, ctx.Err()
		case <-timer.C:
		}

		// Exponential backoff
		delay *= 2
		if c.retryConfig.MaxDelay > 0 && delay > c.retryConfig.MaxDelay {
			delay = c.retryConfig.MaxDelay
		}
	}

	return nil, maxAttempts, &RetryError{Attempts: maxAttempts, StatusCode: lastStatus, Err: lastErr}
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}

// IsRetryableError checks if a status code should be retried
func IsRetryableError(statusCode int) bool {
	// Retry on 5xx server errors and 429 Too Many Requests
	return statusCode >= 500 || statusCode == http.StatusTooManyRequests
}

// IsRetryError reports whether err came from exhausted retries
func IsRetryError(err error) (*RetryError, bool) {
	var re *RetryError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}
