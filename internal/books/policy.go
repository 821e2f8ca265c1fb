// Package books implements the book search pipeline: resolving free-text
// subjects to OpenAlex categories, paging through the matching works and
// reshaping them into rows.
package books

import (
	"fmt"

	"github.com/helixir/book-search-service/internal/config"
	"github.com/helixir/book-search-service/internal/domain"
)

// URLSource is one candidate location for a row's link.
type URLSource int

const (
	// URLSourceLanding is primary_location.landing_page_url.
	URLSourceLanding URLSource = iota
	// URLSourcePDF is primary_location.pdf_url.
	URLSourcePDF
	// URLSourceDOI is ids.doi, falling back to the top-level doi.
	URLSourceDOI
	// URLSourceID is the OpenAlex work id, which is itself a URL.
	URLSourceID
)

// URLPolicy decides how a work is turned into a row: which link wins and
// which records are kept at all.
type URLPolicy struct {
	// Name is the configuration name of the policy.
	Name string
	// Order lists link candidates by priority.
	Order []URLSource
	// EnglishOnly drops works whose language is not "en".
	EnglishOnly bool
	// RequireURL drops works without any link.
	RequireURL bool
}

// LandingFirstPolicy keeps every record and prefers the landing page.
func LandingFirstPolicy() URLPolicy {
	return URLPolicy{
		Name:  config.URLPolicyLandingFirst,
		Order: []URLSource{URLSourceLanding, URLSourcePDF, URLSourceDOI, URLSourceID},
	}
}

// PDFFirstPolicy prefers the PDF link and keeps English records with a link.
func PDFFirstPolicy() URLPolicy {
	return URLPolicy{
		Name:        config.URLPolicyPDFFirst,
		Order:       []URLSource{URLSourcePDF, URLSourceLanding, URLSourceDOI, URLSourceID},
		EnglishOnly: true,
		RequireURL:  true,
	}
}

// ParseURLPolicy returns the policy registered under name. An empty name
// selects the landing-first policy.
func ParseURLPolicy(name string) (URLPolicy, error) {
	switch name {
	case "", config.URLPolicyLandingFirst:
		return LandingFirstPolicy(), nil
	case config.URLPolicyPDFFirst:
		return PDFFirstPolicy(), nil
	default:
		return URLPolicy{}, domain.NewValidationError("url_policy", fmt.Sprintf("unknown policy %q", name))
	}
}

// ParseNamespaceOrder returns the namespaces to try, in order. An empty name
// selects topic-first.
func ParseNamespaceOrder(name string) ([]domain.Namespace, error) {
	switch name {
	case "", config.NamespaceOrderTopicFirst:
		return []domain.Namespace{domain.NamespaceTopic, domain.NamespaceConcept}, nil
	case config.NamespaceOrderConceptFirst:
		return []domain.Namespace{domain.NamespaceConcept, domain.NamespaceTopic}, nil
	default:
		return nil, domain.NewValidationError("namespace_order", fmt.Sprintf("unknown order %q", name))
	}
}
