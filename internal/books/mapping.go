package books

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/helixir/book-search-service/internal/domain"
	"github.com/helixir/book-search-service/internal/papersources/openalex"
)

// MissingTitle replaces an empty title.
const MissingTitle = "N/A"

// titlePolicy strips every tag. Policies are safe for concurrent use.
var titlePolicy = bluemonday.StrictPolicy()

// inlineTag matches the formatting markup found in upstream titles. Angle
// brackets outside these tags are title text.
var inlineTag = regexp.MustCompile(`(?i)</?(?:i|b|u|em|strong|sub|sup|scp|sc|span|font|br|mml:[a-z]+)(?:\s[^<>]*)?/?>`)

// MapWork converts a work into a row for subject. The second result is false
// when the policy excludes the work.
func (p URLPolicy) MapWork(w openalex.Work, subject string) (domain.BookRow, bool) {
	if p.EnglishOnly && w.Language != "en" {
		return domain.BookRow{}, false
	}

	link := p.BestURL(w)
	if p.RequireURL && link == "" {
		return domain.BookRow{}, false
	}

	row := domain.BookRow{
		Title:   cleanTitle(workTitle(w)),
		Authors: authorNames(w.Authorships),
		URL:     link,
		Subject: subject,
	}
	if year, ok := w.Year(); ok {
		row.Year = &year
	}
	return row, true
}

// BestURL returns the first non-empty link in policy order.
func (p URLPolicy) BestURL(w openalex.Work) string {
	for _, src := range p.Order {
		if link := urlFrom(w, src); link != "" {
			return link
		}
	}
	return ""
}

func urlFrom(w openalex.Work, src URLSource) string {
	switch src {
	case URLSourceLanding:
		if w.PrimaryLocation != nil {
			return strings.TrimSpace(w.PrimaryLocation.LandingPageURL)
		}
	case URLSourcePDF:
		if w.PrimaryLocation != nil {
			return strings.TrimSpace(w.PrimaryLocation.PDFURL)
		}
	case URLSourceDOI:
		return w.DOIURL()
	case URLSourceID:
		return strings.TrimSpace(w.ID)
	}
	return ""
}

// authorNames joins author display names in authorship order, skipping
// authorships without a name.
func authorNames(authorships []openalex.Authorship) string {
	names := make([]string, 0, len(authorships))
	for _, a := range authorships {
		if a.Author == nil {
			continue
		}
		if name := strings.TrimSpace(a.Author.DisplayName); name != "" {
			names = append(names, name)
		}
	}
	return strings.Join(names, ", ")
}

// workTitle prefers the display name and falls back to the raw title.
func workTitle(w openalex.Work) string {
	if strings.TrimSpace(w.DisplayName) != "" {
		return w.DisplayName
	}
	return w.Title
}

// cleanTitle strips inline markup such as <i> or <sub> that upstream titles
// carry. Other angle-bracket text is kept.
func cleanTitle(title string) string {
	cleaned := strings.TrimSpace(html.UnescapeString(titlePolicy.Sanitize(escapeLiteralBrackets(title))))
	if cleaned == "" {
		return MissingTitle
	}
	return cleaned
}

// escapeLiteralBrackets entity-encodes angle brackets that are not part of
// an inline tag so the sanitizer keeps them as text.
func escapeLiteralBrackets(title string) string {
	var b strings.Builder
	last := 0
	for _, loc := range inlineTag.FindAllStringIndex(title, -1) {
		b.WriteString(bracketEscaper.Replace(title[last:loc[0]]))
		b.WriteString(title[loc[0]:loc[1]])
		last = loc[1]
	}
	b.WriteString(bracketEscaper.Replace(title[last:]))
	return b.String()
}

var bracketEscaper = strings.NewReplacer("<", "&lt;", ">", "&gt;")
