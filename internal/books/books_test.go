package books

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/helixir/book-search-service/internal/domain"
	"github.com/helixir/book-search-service/internal/papersources/openalex"
)

// mockCatalog implements CatalogClient for testing.
type mockCatalog struct {
	mu sync.Mutex

	searchCategoriesFn func(ctx context.Context, ns domain.Namespace, text, mailto string) ([]openalex.Category, error)
	listWorksFn        func(ctx context.Context, q openalex.WorksQuery) (*openalex.WorksResponse, error)

	categoryCalls []categoryCall
	worksCalls    []openalex.WorksQuery
}

type categoryCall struct {
	ns     domain.Namespace
	text   string
	mailto string
}

func (m *mockCatalog) SearchCategories(ctx context.Context, ns domain.Namespace, text, mailto string) ([]openalex.Category, error) {
	m.mu.Lock()
	m.categoryCalls = append(m.categoryCalls, categoryCall{ns: ns, text: text, mailto: mailto})
	m.mu.Unlock()
	if m.searchCategoriesFn != nil {
		return m.searchCategoriesFn(ctx, ns, text, mailto)
	}
	return nil, nil
}

func (m *mockCatalog) ListWorks(ctx context.Context, q openalex.WorksQuery) (*openalex.WorksResponse, error) {
	m.mu.Lock()
	m.worksCalls = append(m.worksCalls, q)
	m.mu.Unlock()
	if m.listWorksFn != nil {
		return m.listWorksFn(ctx, q)
	}
	return &openalex.WorksResponse{}, nil
}

// topicsFor resolves the given subjects in the topic namespace only.
func topicsFor(ids map[string]string) func(context.Context, domain.Namespace, string, string) ([]openalex.Category, error) {
	return func(_ context.Context, ns domain.Namespace, text, _ string) ([]openalex.Category, error) {
		if ns != domain.NamespaceTopic {
			return nil, nil
		}
		id, ok := ids[text]
		if !ok {
			return nil, nil
		}
		return []openalex.Category{{ID: "https://openalex.org/" + id, DisplayName: text}}, nil
	}
}

// pagedWorks serves n works per category id in pages, titled "<id> #<i>".
// Works with an odd index are not open access; OA-only queries skip them.
func pagedWorks(n map[string]int) func(context.Context, openalex.WorksQuery) (*openalex.WorksResponse, error) {
	return func(_ context.Context, q openalex.WorksQuery) (*openalex.WorksResponse, error) {
		id := q.Filter.Category.ID
		var all []openalex.Work
		for i := 0; i < n[id]; i++ {
			if q.Filter.OpenAccessOnly && i%2 == 1 {
				continue
			}
			all = append(all, testWork(fmt.Sprintf("%s #%d", id, i), 2021+i%5))
		}

		from := (q.Page - 1) * q.PerPage
		if from >= len(all) {
			return &openalex.WorksResponse{Meta: openalex.Meta{Count: len(all)}}, nil
		}
		to := min(from+q.PerPage, len(all))
		return &openalex.WorksResponse{
			Meta:    openalex.Meta{Count: len(all), Page: q.Page, PerPage: q.PerPage},
			Results: all[from:to],
		}, nil
	}
}

func testWork(title string, year int) openalex.Work {
	return openalex.Work{
		ID:              "https://openalex.org/W" + title,
		Title:           title,
		PublicationYear: json.RawMessage(fmt.Sprintf("%d", year)),
		Language:        "en",
		Authorships: []openalex.Authorship{
			{Author: &openalex.AuthorInfo{DisplayName: "Author One"}},
		},
		PrimaryLocation: &openalex.Location{LandingPageURL: "https://example.org/" + title},
	}
}

func intPtr(v int) *int { return &v }
