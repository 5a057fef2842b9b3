// Package nbp is a client for the Narodowy Bank Polski public rates API.
package nbp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/SscSPs/rates_tracker_app/internal/core/ports/gateways"
	"github.com/SscSPs/rates_tracker_app/internal/platform/metrics"
	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL      = "https://api.nbp.pl/api"
	DefaultTimeout      = 10 * time.Second
	DefaultRetries      = 2
	DefaultRetryBackoff = 200 * time.Millisecond
	DefaultRateLimit    = 5 // requests per second

	// MaxRecent is the largest n the upstream accepts for /last/{n}.
	MaxRecent = 255

	maxBodyBytes = 4 << 20
)

// Client implements gateways.MarketDataGateway against the NBP API.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	logger       *slog.Logger
	limiter      *rate.Limiter
	retries      int
	retryBackoff time.Duration
}

var _ gateways.MarketDataGateway = (*Client)(nil)

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRateLimit sets the outbound rate limit; zero or less disables it.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		if requestsPerSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the per-attempt HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithRetries sets how many times a transient failure is retried.
func WithRetries(retries int) ClientOption {
	return func(c *Client) {
		if retries >= 0 {
			c.retries = retries
		}
	}
}

// WithRetryBackoff sets the fixed pause between retries.
func WithRetryBackoff(d time.Duration) ClientOption {
	return func(c *Client) {
		if d >= 0 {
			c.retryBackoff = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a new NBP client
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter:      rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		retries:      DefaultRetries,
		retryBackoff: DefaultRetryBackoff,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents a non-2xx upstream answer
type APIError struct {
	StatusCode int
	Endpoint   string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("NBP API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

func statusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// get performs a rate-limited GET with fixed-backoff retries on network
// errors and 5xx answers. endpoint labels metrics and logs.
func (c *Client) get(ctx context.Context, endpoint, path string) ([]byte, error) {
	reqURL := c.baseURL + path + "?format=json"
	start := time.Now()

	var body []byte
	op := func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(fmt.Errorf("rate limit wait: %w", err))
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return fmt.Errorf("failed to execute request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			apiErr := &APIError{StatusCode: resp.StatusCode, Endpoint: endpoint, Message: string(msg)}
			if resp.StatusCode >= 500 {
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}

		b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}
		body = b
		return nil
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryBackoff), uint64(c.retries)),
		ctx,
	)
	notify := func(err error, wait time.Duration) {
		c.logger.Debug("NBP API request failed, retrying", "endpoint", endpoint, "path", path, "wait", wait, "error", err)
	}

	err := backoff.RetryNotify(op, bo, notify)
	metrics.ObserveUpstream(endpoint, outcomeOf(err), time.Since(start))
	if err != nil {
		return nil, err
	}
	return body, nil
}

func outcomeOf(err error) string {
	switch status := statusOf(err); {
	case err == nil:
		return "ok"
	case status == http.StatusNotFound:
		return "not_found"
	case status >= 500:
		return "server_error"
	case status > 0:
		return "client_error"
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "network_error"
	}
}

// logFailure logs an upstream failure. 404 means "nothing published" and is
// expected for weekends and holidays, so it is logged at warn.
func (c *Client) logFailure(ctx context.Context, msg string, err error, attrs ...any) {
	attrs = append(attrs, "status", statusOf(err), "error", err)
	if statusOf(err) == http.StatusNotFound {
		c.logger.WarnContext(ctx, msg, attrs...)
		return
	}
	c.logger.ErrorContext(ctx, msg, attrs...)
}
