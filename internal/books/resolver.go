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

// CatalogClient is the subset of the OpenAlex client the pipeline uses.
type CatalogClient interface {
	SearchCategories(ctx context.Context, ns domain.Namespace, text, mailto string) ([]openalex.Category, error)
	ListWorks(ctx context.Context, q openalex.WorksQuery) (*openalex.WorksResponse, error)
}

// SubjectResolver maps a free-text subject to a category.
type SubjectResolver interface {
	Resolve(ctx context.Context, subject, mailto string) (domain.CategoryID, error)
}

// Resolver looks a subject up in each namespace in turn and returns the first
// hit. It keeps no state between calls.
type Resolver struct {
	client  CatalogClient
	order   []domain.Namespace
	logger  zerolog.Logger
	metrics *observability.Metrics
}

// NewResolver creates a resolver trying namespaces in the given order.
// An empty order means topics, then concepts.
func NewResolver(client CatalogClient, order []domain.Namespace, logger zerolog.Logger, metrics *observability.Metrics) *Resolver {
	if len(order) == 0 {
		order = []domain.Namespace{domain.NamespaceTopic, domain.NamespaceConcept}
	}
	return &Resolver{
		client:  client,
		order:   order,
		logger:  logger.With().Str("component", "resolver").Logger(),
		metrics: metrics,
	}
}

// Resolve returns the best match for subject. It returns an error wrapping
// domain.ErrSubjectUnresolved when no namespace has a match; upstream failures
// are returned as is and stop the lookup.
func (r *Resolver) Resolve(ctx context.Context, subject, mailto string) (domain.CategoryID, error) {
	for _, ns := range r.order {
		results, err := r.client.SearchCategories(ctx, ns, subject, mailto)
		if err != nil {
			return domain.CategoryID{}, fmt.Errorf("resolving %q in %s namespace: %w", subject, ns, err)
		}
		if len(results) == 0 {
			continue
		}
		id := results[0].ShortID()
		if id == "" {
			continue
		}

		r.metrics.RecordSubjectResolution(string(ns))
		log := observability.FromContext(ctx, r.logger)
		log = observability.WithCategoryContext(log, string(ns), id)
		log.Debug().
			Str("subject", subject).
			Str("display_name", results[0].DisplayName).
			Msg("subject resolved")
		return domain.CategoryID{Namespace: ns, ID: id}, nil
	}

	r.metrics.RecordSubjectResolution("")
	return domain.CategoryID{}, fmt.Errorf("%w: %q", domain.ErrSubjectUnresolved, subject)
}

// memoResolver caches resolutions for the lifetime of one search. Only hits
// and definite misses are cached; upstream errors are not.
type memoResolver struct {
	inner SubjectResolver
	seen  map[string]memoEntry
}

type memoEntry struct {
	id  domain.CategoryID
	err error
}

func newMemoResolver(inner SubjectResolver) *memoResolver {
	return &memoResolver{inner: inner, seen: make(map[string]memoEntry)}
}

func (m *memoResolver) Resolve(ctx context.Context, subject, mailto string) (domain.CategoryID, error) {
	if e, ok := m.seen[subject]; ok {
		return e.id, e.err
	}
	id, err := m.inner.Resolve(ctx, subject, mailto)
	if err == nil || errors.Is(err, domain.ErrSubjectUnresolved) {
		m.seen[subject] = memoEntry{id: id, err: err}
	}
	return id, err
}

// unresolved reports whether subject is cached as a definite miss.
func (m *memoResolver) unresolved(subject string) bool {
	e, ok := m.seen[subject]
	return ok && errors.Is(e.err, domain.ErrSubjectUnresolved)
}
