package openalex

import (
	"fmt"
	"strings"

	"github.com/helixir/book-search-service/internal/domain"
)

// Filter is the conjunction of clauses sent as the works "filter" parameter.
type Filter struct {
	// Category restricts works to a resolved topic or concept.
	Category domain.CategoryID

	// Years restricts works to an inclusive publication year range.
	Years domain.YearRange

	// OpenAccessOnly adds the is_oa:true clause.
	OpenAccessOnly bool
}

// Clauses returns the individual filter clauses in wire order.
func (f Filter) Clauses() []string {
	clauses := []string{
		"type:book",
		f.Category.String(),
		fmt.Sprintf("publication_year:%d-%d", f.Years.Start, f.Years.End),
	}
	if f.OpenAccessOnly {
		clauses = append(clauses, "is_oa:true")
	}
	return clauses
}

// String serializes the filter using the upstream comma-joined grammar,
// e.g. "type:book,topics.id:T10555,publication_year:2021-2025,is_oa:true".
func (f Filter) String() string {
	return strings.Join(f.Clauses(), ",")
}

// WorksQuery selects one page of works.
type WorksQuery struct {
	Filter  Filter
	Page    int
	PerPage int
	Mailto  string
}
