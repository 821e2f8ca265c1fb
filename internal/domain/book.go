// Package domain contains the core types shared by the book search pipeline.
package domain

import (
	"fmt"
	"strings"
)

// Namespace identifies one of the upstream subject taxonomies.
type Namespace string

const (
	// NamespaceTopic is the OpenAlex topic taxonomy.
	NamespaceTopic Namespace = "topic"
	// NamespaceConcept is the legacy OpenAlex concept taxonomy.
	NamespaceConcept Namespace = "concept"
)

// Endpoint returns the API path that searches this namespace.
func (n Namespace) Endpoint() string {
	return "/" + string(n) + "s"
}

// FilterKey returns the works filter attribute matching this namespace.
func (n Namespace) FilterKey() string {
	return string(n) + "s.id"
}

// IsValid reports whether n is a known namespace.
func (n Namespace) IsValid() bool {
	return n == NamespaceTopic || n == NamespaceConcept
}

// CategoryID is a resolved subject: a namespace and a short upstream id.
type CategoryID struct {
	Namespace Namespace
	ID        string
}

// String returns the filter clause form, e.g. "topics.id:T10555".
func (c CategoryID) String() string {
	return c.Namespace.FilterKey() + ":" + c.ID
}

// YearRange is an inclusive publication year range.
type YearRange struct {
	Start int
	End   int
}

// Validate checks that the range is not inverted.
func (r YearRange) Validate() error {
	if r.Start > r.End {
		return NewValidationError("end_year", fmt.Sprintf("must be >= start_year (%d)", r.Start))
	}
	return nil
}

// Contains reports whether year lies within the range.
func (r YearRange) Contains(year int) bool {
	return year >= r.Start && year <= r.End
}

// BookRow is one row of the search result.
// Year is nil when the upstream record carried no integer publication year.
type BookRow struct {
	Title   string `json:"Title"`
	Authors string `json:"Authors"`
	Year    *int   `json:"Year"`
	URL     string `json:"URL"`
	Subject string `json:"Subject"`
}

// SearchRequest describes a multi-subject book search.
type SearchRequest struct {
	// Subjects are searched in order; duplicates are searched again.
	Subjects []string

	// Years bounds the publication year of every row.
	Years YearRange

	// MaxResults caps the rows returned per subject.
	MaxResults int

	// Mailto is the contact email passed to the upstream polite pool.
	Mailto string

	// OpenAccessOnly restricts the primary pass to open access works.
	OpenAccessOnly bool

	// SortByYear overrides the service default ordering when non-nil.
	SortByYear *bool
}

// SplitSubjects splits a comma-delimited subject list, trimming whitespace and
// dropping empty entries. Order is preserved and duplicates are kept.
func SplitSubjects(raw string) []string {
	parts := strings.Split(raw, ",")
	subjects := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			subjects = append(subjects, s)
		}
	}
	return subjects
}
