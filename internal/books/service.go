package books

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/book-search-service/internal/domain"
	"github.com/helixir/book-search-service/internal/observability"
	"github.com/helixir/book-search-service/internal/papersources/openalex"
)

// Options holds the search policies of a Service.
type Options struct {
	// SortByYear orders rows by year descending, nulls last, unless a
	// request overrides it.
	SortByYear bool

	// IsolateSubjectErrors logs and skips failed subjects instead of failing
	// the whole search. The search still fails when every subject fails.
	IsolateSubjectErrors bool

	// OAFallback re-fetches a subject without the open access filter when the
	// open access pass returned fewer than MaxResults/OAFallbackDivisor rows.
	OAFallback        bool
	OAFallbackDivisor int
}

// Service runs multi-subject searches.
type Service struct {
	fetcher *Fetcher
	opts    Options
	logger  zerolog.Logger
	metrics *observability.Metrics
}

// NewService creates a search service. Subjects are resolved with the
// fetcher's resolver, once per search.
func NewService(fetcher *Fetcher, opts Options, logger zerolog.Logger, metrics *observability.Metrics) *Service {
	if opts.OAFallbackDivisor <= 0 {
		opts.OAFallbackDivisor = 5
	}
	return &Service{
		fetcher: fetcher,
		opts:    opts,
		logger:  logger.With().Str("component", "search").Logger(),
		metrics: metrics,
	}
}

// Search fetches the books of every subject in order and concatenates them.
// Subjects are processed one after another; each contributes at most
// MaxResults rows.
func (s *Service) Search(ctx context.Context, req domain.SearchRequest) ([]domain.BookRow, error) {
	if err := req.Years.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	s.metrics.RecordSearchStarted()
	log := observability.FromContext(ctx, s.logger)

	rows := make([]domain.BookRow, 0)
	if req.MaxResults <= 0 || len(req.Subjects) == 0 {
		s.metrics.RecordSearchCompleted(0, time.Since(start).Seconds())
		return rows, nil
	}

	resolver := newMemoResolver(s.fetcher.resolver)
	fetcher := s.fetcher.withResolver(resolver)
	var firstErr error
	failed := 0

	for _, subject := range req.Subjects {
		subjectRows, err := s.searchSubject(ctx, fetcher, resolver, subject, req)
		if err != nil {
			if !s.opts.IsolateSubjectErrors || ctx.Err() != nil {
				s.metrics.RecordSearchFailed(time.Since(start).Seconds())
				return nil, fmt.Errorf("searching subject %q: %w", subject, err)
			}
			log.Warn().Err(err).Str("subject", subject).Msg("skipping failed subject")
			if firstErr == nil {
				firstErr = fmt.Errorf("searching subject %q: %w", subject, err)
			}
			failed++
			continue
		}
		rows = append(rows, subjectRows...)
	}

	if failed == len(req.Subjects) {
		s.metrics.RecordSearchFailed(time.Since(start).Seconds())
		return nil, firstErr
	}

	if s.sortByYear(req) {
		SortByYearDesc(rows)
	}

	s.metrics.RecordSearchCompleted(len(rows), time.Since(start).Seconds())
	log.Info().
		Int("subjects", len(req.Subjects)).
		Int("failed_subjects", failed).
		Int("rows", len(rows)).
		Dur("duration", time.Since(start)).
		Msg("search completed")

	return rows, nil
}

// searchSubject returns the rows of one subject, topped up without the open
// access filter when the fallback applies. The second pass reuses the
// resolution cached by resolver.
func (s *Service) searchSubject(ctx context.Context, fetcher *Fetcher, resolver *memoResolver, subject string, req domain.SearchRequest) ([]domain.BookRow, error) {
	params := FetchParams{
		Subject:        subject,
		Years:          req.Years,
		MaxResults:     req.MaxResults,
		Mailto:         req.Mailto,
		OpenAccessOnly: req.OpenAccessOnly,
	}
	rows, err := fetcher.FetchBooks(ctx, params)
	if err != nil {
		return nil, err
	}

	if !s.needsFallback(req, len(rows)) || resolver.unresolved(subject) {
		return rows, nil
	}

	s.metrics.RecordOpenAccessFallback()
	log := observability.WithSearchContext(observability.FromContext(ctx, s.logger), subject, openalex.SourceName)
	log.Info().
		Int("open_access_rows", len(rows)).
		Msg("few open access books, topping up without open access filter")

	params.OpenAccessOnly = false
	params.MaxResults = req.MaxResults - len(rows)
	extra, err := fetcher.FetchBooks(ctx, params)
	if err != nil {
		return nil, err
	}
	return append(rows, extra...), nil
}

func (s *Service) needsFallback(req domain.SearchRequest, got int) bool {
	return s.opts.OAFallback &&
		req.OpenAccessOnly &&
		got < req.MaxResults/s.opts.OAFallbackDivisor
}

func (s *Service) sortByYear(req domain.SearchRequest) bool {
	if req.SortByYear != nil {
		return *req.SortByYear
	}
	return s.opts.SortByYear
}

// SortByYearDesc orders rows by year, newest first, with unknown years last.
// Rows with equal years keep their relative order.
func SortByYearDesc(rows []domain.BookRow) {
	slices.SortStableFunc(rows, func(a, b domain.BookRow) int {
		switch {
		case a.Year == nil && b.Year == nil:
			return 0
		case a.Year == nil:
			return 1
		case b.Year == nil:
			return -1
		default:
			return cmp.Compare(*b.Year, *a.Year)
		}
	})
}
