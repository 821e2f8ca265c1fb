package books

import (
	"github.com/rs/zerolog"

	"github.com/helixir/book-search-service/internal/config"
	"github.com/helixir/book-search-service/internal/observability"
	"github.com/helixir/book-search-service/internal/papersources/openalex"
)

// NewFromConfig wires a Resolver, Fetcher and Service using the named
// policies of the search configuration.
func NewFromConfig(cfg config.SearchConfig, client CatalogClient, logger zerolog.Logger, metrics *observability.Metrics) (*Service, error) {
	order, err := ParseNamespaceOrder(cfg.NamespaceOrder)
	if err != nil {
		return nil, err
	}
	policy, err := ParseURLPolicy(cfg.URLPolicy)
	if err != nil {
		return nil, err
	}

	resolver := NewResolver(client, order, logger, metrics)
	fetcher := NewFetcher(client, resolver, FetcherConfig{Policy: policy}, logger, metrics)

	return NewService(fetcher, Options{
		SortByYear:           cfg.SortByYear,
		IsolateSubjectErrors: cfg.IsolateSubjectErrors,
		OAFallback:           cfg.OAFallback.Enabled,
		OAFallbackDivisor:    cfg.OAFallback.Divisor,
	}, logger, metrics), nil
}

// NewOpenAlexClient builds the upstream client from configuration.
func NewOpenAlexClient(cfg config.OpenAlexConfig, logger zerolog.Logger, metrics *observability.Metrics) *openalex.Client {
	return openalex.New(openalex.Config{
		BaseURL:     cfg.BaseURL,
		Email:       cfg.Email,
		Timeout:     cfg.Timeout,
		MaxAttempts: cfg.MaxAttempts,
		BackoffBase: cfg.BackoffBase,
		MaxBackoff:  cfg.MaxBackoff,
		MaxJitter:   cfg.MaxJitter,
		RateLimit:   cfg.RateLimit,
		BurstSize:   cfg.BurstSize,
	}, logger, metrics)
}

// NewServiceFromConfig wires the OpenAlex client and the search service.
func NewServiceFromConfig(cfg *config.Config, logger zerolog.Logger, metrics *observability.Metrics) (*Service, error) {
	client := NewOpenAlexClient(cfg.OpenAlex, logger, metrics)
	return NewFromConfig(cfg.Search, client, logger, metrics)
}
