package papersources

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/helixir/book-search-service/internal/domain"
)

// Defaults for HTTPClientConfig.
const (
	DefaultTimeout     = 60 * time.Second
	DefaultMaxAttempts = 5
	DefaultBackoffBase = time.Second
	DefaultMaxBackoff  = 30 * time.Second
	DefaultMaxJitter   = time.Second
	DefaultUserAgent   = "Helixir-BookSearchService/1.0"

	// maxErrorBody bounds how much of a failed response body is kept in errors.
	maxErrorBody = 1 << 10
)

// HTTPClientConfig configures the HTTP client.
type HTTPClientConfig struct {
	// Source names the upstream in errors, e.g. "OpenAlex".
	Source string

	// Timeout bounds each individual attempt.
	Timeout time.Duration

	// MaxAttempts is the total number of attempts made for a request that keeps
	// answering 429 Too Many Requests.
	MaxAttempts int

	// BackoffBase is multiplied by 2^attempt to get the delay after a 429.
	BackoffBase time.Duration

	// MaxBackoff caps the exponential part of a single delay.
	MaxBackoff time.Duration

	// MaxJitter bounds the uniform random delay added to every backoff.
	// A negative value disables jitter.
	MaxJitter time.Duration

	// RateLimit is the maximum requests per second; zero disables pacing.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// UserAgent is the User-Agent header sent with requests.
	UserAgent string

	// OnRetry, when set, is called before sleeping after a 429.
	// attempt is zero-based.
	OnRetry func(attempt int, delay time.Duration)
}

// HTTPClient issues GET requests with pacing and exponential backoff on 429.
// Non-429 failures are never retried. It is safe for concurrent use.
type HTTPClient struct {
	client      *http.Client
	rateLimiter *RateLimiter
	config      HTTPClientConfig

	// sleep and jitter are swapped out in tests.
	sleep  func(ctx context.Context, d time.Duration) error
	jitter func(limit time.Duration) time.Duration
}

// NewHTTPClient creates a new HTTP client.
func NewHTTPClient(cfg HTTPClientConfig) *HTTPClient {
	if cfg.Source == "" {
		cfg.Source = "upstream"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.BackoffBase == 0 {
		cfg.BackoffBase = DefaultBackoffBase
	}
	if cfg.MaxBackoff == 0 {
		cfg.MaxBackoff = DefaultMaxBackoff
	}
	if cfg.MaxJitter == 0 {
		cfg.MaxJitter = DefaultMaxJitter
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	return &HTTPClient{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: NewRateLimiter(cfg.RateLimit, cfg.BurstSize),
		config:      cfg,
		sleep:       waitForRetry,
		jitter:      randomJitter,
	}
}

// Get issues a GET to rawURL with params merged into its query string.
func (c *HTTPClient) Get(ctx context.Context, rawURL string, params url.Values) (*http.Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing URL: %w", err)
	}
	if len(params) > 0 {
		query := u.Query()
		for key, values := range params {
			for _, v := range values {
				query.Add(key, v)
			}
		}
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	return c.Do(req)
}

// Do executes a bodiless request. On 429 it sleeps BackoffBase*2^attempt plus
// jitter and tries again, up to MaxAttempts in total. Any other non-2xx status
// or transport failure returns a *domain.UpstreamError immediately; running out
// of attempts returns a *domain.RateLimitError. The caller owns the body of a
// successful response.
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	ctx := req.Context()

	for attempt := 0; attempt < c.config.MaxAttempts; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, domain.NewUpstreamError(c.config.Source, 0, "request failed", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			drainAndClose(resp)
			if attempt == c.config.MaxAttempts-1 {
				break
			}
			delay := c.BackoffDelay(attempt)
			if c.config.OnRetry != nil {
				c.config.OnRetry(attempt, delay)
			}
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			drainAndClose(resp)
			return nil, domain.NewUpstreamError(
				c.config.Source,
				resp.StatusCode,
				errorMessage(resp.StatusCode, body),
				nil,
			)
		}

		return resp, nil
	}

	return nil, domain.NewRateLimitError(c.config.Source, c.config.MaxAttempts)
}

// BackoffDelay returns the delay applied after the given zero-based attempt
// was answered with 429.
func (c *HTTPClient) BackoffDelay(attempt int) time.Duration {
	backoff := c.exponential(attempt)
	if c.config.MaxJitter > 0 {
		backoff += c.jitter(c.config.MaxJitter)
	}
	return backoff
}

// MaxWait is the upper bound of time a single request can spend sleeping.
func (c *HTTPClient) MaxWait() time.Duration {
	var total time.Duration
	jitter := max(c.config.MaxJitter, 0)
	for attempt := 0; attempt < c.config.MaxAttempts-1; attempt++ {
		total += c.exponential(attempt) + jitter
	}
	return total
}

// exponential returns BackoffBase*2^attempt capped at MaxBackoff.
func (c *HTTPClient) exponential(attempt int) time.Duration {
	if attempt >= 32 {
		return c.config.MaxBackoff
	}
	if d := c.config.BackoffBase << attempt; d > 0 && d < c.config.MaxBackoff {
		return d
	}
	return c.config.MaxBackoff
}

// waitForRetry waits for the specified duration, respecting context cancellation.
func waitForRetry(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// randomJitter returns a uniformly distributed duration in [0, limit).
func randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(limit)))
}

func drainAndClose(resp *http.Response) {
	if resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	resp.Body.Close()
}

func errorMessage(status int, body []byte) string {
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return http.StatusText(status)
	}
	return msg
}
