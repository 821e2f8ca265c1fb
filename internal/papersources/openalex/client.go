package openalex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/book-search-service/internal/domain"
	"github.com/helixir/book-search-service/internal/observability"
	"github.com/helixir/book-search-service/internal/papersources"
)

const (
	// SourceName identifies OpenAlex in errors, logs and metrics.
	SourceName = "OpenAlex"

	// DefaultBaseURL is the default OpenAlex API base URL.
	DefaultBaseURL = "https://api.openalex.org"

	// DefaultRateLimit is the default rate limit for requests per second.
	// OpenAlex polite pool (with email) allows this rate.
	DefaultRateLimit = 10.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 10

	// DefaultPerPage is the works page size. OpenAlex allows up to 200.
	DefaultPerPage = 50

	// maxResponseBody bounds decoded response bodies.
	maxResponseBody = 10 << 20

	// openAlexIDPrefix is the URL prefix for OpenAlex IDs.
	openAlexIDPrefix = "https://openalex.org/"
)

// Config holds configuration for the OpenAlex client.
type Config struct {
	// BaseURL is the OpenAlex API base URL.
	// Defaults to https://api.openalex.org
	BaseURL string

	// Email is the contact email for the polite pool, used when a request
	// does not carry its own mailto.
	// See: https://docs.openalex.org/how-to-use-the-api/rate-limits-and-authentication
	Email string

	// Timeout bounds each HTTP attempt.
	Timeout time.Duration

	// MaxAttempts is the number of tries for a request answered with 429.
	MaxAttempts int

	// BackoffBase is the first backoff delay; each retry doubles it.
	BackoffBase time.Duration

	// MaxBackoff caps a single backoff delay before jitter.
	MaxBackoff time.Duration

	// MaxJitter bounds the random delay added to each backoff.
	MaxJitter time.Duration

	// RateLimit is the maximum requests per second. Zero disables pacing.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.BurstSize == 0 {
		c.BurstSize = DefaultBurstSize
	}
}

// Client queries the OpenAlex topic, concept and works endpoints.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
	metrics    *observability.Metrics
}

// New creates a new OpenAlex client with the given configuration.
// Backoffs are logged at warn level and counted in metrics.
func New(cfg Config, logger zerolog.Logger, metrics *observability.Metrics) *Client {
	cfg.applyDefaults()
	log := logger.With().Str("source", SourceName).Logger()

	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Source:      SourceName,
		Timeout:     cfg.Timeout,
		MaxAttempts: cfg.MaxAttempts,
		BackoffBase: cfg.BackoffBase,
		MaxBackoff:  cfg.MaxBackoff,
		MaxJitter:   cfg.MaxJitter,
		RateLimit:   cfg.RateLimit,
		BurstSize:   cfg.BurstSize,
		OnRetry: func(attempt int, delay time.Duration) {
			metrics.RecordUpstreamRateLimited()
			log.Warn().
				Int("attempt", attempt+1).
				Dur("delay", delay).
				Msg("rate limited, backing off")
		},
	})

	return NewWithHTTPClient(cfg, httpClient, metrics)
}

// NewWithHTTPClient creates a new OpenAlex client with a custom HTTP client.
// This is useful for testing with mock servers.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient, metrics *observability.Metrics) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
		metrics:    metrics,
	}
}

// SearchCategories runs a free-text search of the namespace's taxonomy and
// returns at most one match, the upstream's best.
func (c *Client) SearchCategories(ctx context.Context, ns domain.Namespace, text, mailto string) ([]Category, error) {
	if !ns.IsValid() {
		return nil, domain.NewValidationError("namespace", fmt.Sprintf("unknown namespace %q", ns))
	}

	params := url.Values{}
	params.Set("search", text)
	params.Set("per-page", "1")
	c.setMailto(params, mailto)

	var resp CategoryResponse
	if err := c.getJSON(ctx, ns.Endpoint(), params, &resp); err != nil {
		return nil, err
	}
	return resp.Results, nil
}

// ListWorks retrieves one page of works matching the query's filter.
func (c *Client) ListWorks(ctx context.Context, q WorksQuery) (*WorksResponse, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	perPage := q.PerPage
	if perPage < 1 {
		perPage = DefaultPerPage
	}

	params := url.Values{}
	params.Set("filter", q.Filter.String())
	params.Set("per-page", strconv.Itoa(perPage))
	params.Set("page", strconv.Itoa(page))
	c.setMailto(params, q.Mailto)

	var resp WorksResponse
	if err := c.getJSON(ctx, "/works", params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// setMailto adds the polite-pool contact, preferring the per-request value.
func (c *Client) setMailto(params url.Values, mailto string) {
	if mailto = strings.TrimSpace(mailto); mailto == "" {
		mailto = c.config.Email
	}
	if mailto != "" {
		params.Set("mailto", mailto)
	}
}

// getJSON issues a GET to path and decodes the JSON body into out.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	endpoint := strings.TrimPrefix(path, "/")
	start := time.Now()

	resp, err := c.httpClient.Get(ctx, c.config.BaseURL+path, params)
	c.metrics.RecordUpstreamRequest(endpoint, time.Since(start).Seconds())
	if err != nil {
		c.metrics.RecordUpstreamRequestFailed(endpoint, classifyError(err))
		return fmt.Errorf("querying %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	// Limit body to prevent resource exhaustion.
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBody)).Decode(out); err != nil {
		c.metrics.RecordUpstreamRequestFailed(endpoint, "decode")
		return domain.NewUpstreamError(SourceName, resp.StatusCode, "malformed response body", err)
	}
	return nil
}

// classifyError maps an error to a metrics label.
func classifyError(err error) string {
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, domain.ErrUpstream):
		return "upstream"
	default:
		return "other"
	}
}

// normalizeOpenAlexID extracts the short ID from full OpenAlex URLs.
func normalizeOpenAlexID(id string) string {
	if id == "" {
		return ""
	}
	// Strip the URL prefix if present
	id = strings.TrimPrefix(id, openAlexIDPrefix)
	return strings.TrimSpace(id)
}
