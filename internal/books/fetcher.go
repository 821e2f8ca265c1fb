package books

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/helixir/book-search-service/internal/domain"
	"github.com/helixir/book-search-service/internal/observability"
	"github.com/helixir/book-search-service/internal/papersources/openalex"
)

// FetchParams selects the books of one subject.
type FetchParams struct {
	Subject        string
	Years          domain.YearRange
	MaxResults     int
	Mailto         string
	OpenAccessOnly bool
}

// Fetcher pages through the works of a resolved subject and maps them to rows.
type Fetcher struct {
	client   CatalogClient
	resolver SubjectResolver
	policy   URLPolicy
	perPage  int
	logger   zerolog.Logger
	metrics  *observability.Metrics
}

// FetcherConfig configures a Fetcher.
type FetcherConfig struct {
	// Policy maps works to rows. Zero value means landing-first.
	Policy URLPolicy
	// PerPage is the works page size. Defaults to openalex.DefaultPerPage.
	PerPage int
}

// NewFetcher creates a fetcher that resolves subjects with resolver.
func NewFetcher(client CatalogClient, resolver SubjectResolver, cfg FetcherConfig, logger zerolog.Logger, metrics *observability.Metrics) *Fetcher {
	if len(cfg.Policy.Order) == 0 {
		cfg.Policy = LandingFirstPolicy()
	}
	if cfg.PerPage <= 0 {
		cfg.PerPage = openalex.DefaultPerPage
	}
	return &Fetcher{
		client:   client,
		resolver: resolver,
		policy:   cfg.Policy,
		perPage:  cfg.PerPage,
		logger:   logger.With().Str("component", "fetcher").Logger(),
		metrics:  metrics,
	}
}

// withResolver returns a copy of f that resolves subjects with r.
func (f *Fetcher) withResolver(r SubjectResolver) *Fetcher {
	c := *f
	c.resolver = r
	return &c
}

// Policy returns the mapping policy in use.
func (f *Fetcher) Policy() URLPolicy {
	return f.policy
}

// FetchBooks resolves the subject and returns up to MaxResults rows.
// An unresolved subject yields no rows and no error.
func (f *Fetcher) FetchBooks(ctx context.Context, p FetchParams) ([]domain.BookRow, error) {
	if p.MaxResults <= 0 {
		return []domain.BookRow{}, nil
	}

	category, err := f.resolver.Resolve(ctx, p.Subject, p.Mailto)
	if errors.Is(err, domain.ErrSubjectUnresolved) {
		log := observability.WithSearchContext(observability.FromContext(ctx, f.logger), p.Subject, openalex.SourceName)
		log.Info().Msg("no topic or concept matches subject")
		return []domain.BookRow{}, nil
	}
	if err != nil {
		return nil, err
	}

	return f.FetchCategory(ctx, category, p)
}

// FetchCategory pages through the works of an already resolved category,
// stopping at exactly MaxResults rows, an empty page or the last page.
func (f *Fetcher) FetchCategory(ctx context.Context, category domain.CategoryID, p FetchParams) ([]domain.BookRow, error) {
	rows := make([]domain.BookRow, 0)
	if p.MaxResults <= 0 {
		return rows, nil
	}

	filter := openalex.Filter{
		Category:       category,
		Years:          p.Years,
		OpenAccessOnly: p.OpenAccessOnly,
	}

	pages := 0
	for page := 1; len(rows) < p.MaxResults; page++ {
		resp, err := f.client.ListWorks(ctx, openalex.WorksQuery{
			Filter:  filter,
			Page:    page,
			PerPage: f.perPage,
			Mailto:  p.Mailto,
		})
		if err != nil {
			return nil, fmt.Errorf("fetching page %d of %s: %w", page, category, err)
		}
		f.metrics.RecordPageFetched()
		pages++

		if len(resp.Results) == 0 {
			break
		}

		for _, work := range resp.Results {
			row, ok := f.policy.MapWork(work, p.Subject)
			if !ok {
				continue
			}
			rows = append(rows, row)
			if len(rows) == p.MaxResults {
				break
			}
		}

		if resp.Meta.Count > 0 && page*f.perPage >= resp.Meta.Count {
			break
		}
	}

	log := observability.WithSearchContext(observability.FromContext(ctx, f.logger), p.Subject, openalex.SourceName)
	log = observability.WithCategoryContext(log, string(category.Namespace), category.ID)
	log.Debug().
		Int("pages", pages).
		Bool("open_access_only", p.OpenAccessOnly).
		Int("rows", len(rows)).
		Msg("fetched works")

	return rows, nil
}
