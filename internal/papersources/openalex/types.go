// Package openalex provides a client for the OpenAlex API.
//
// OpenAlex is a free, open catalog of scholarly works, authors, venues,
// institutions, topics and concepts. This package covers the three calls the
// book search needs: free-text search of the topic and concept taxonomies,
// and filtered, paged listing of works.
//
// API Documentation: https://docs.openalex.org/
package openalex

import (
	"encoding/json"
	"strings"
)

// Meta contains metadata about a list response including pagination info.
type Meta struct {
	Count   int `json:"count"`
	DBTime  int `json:"db_response_time_ms"`
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// CategoryResponse is the response of the /topics and /concepts search endpoints.
type CategoryResponse struct {
	Meta    Meta       `json:"meta"`
	Results []Category `json:"results"`
}

// Category is a topic or concept entity.
type Category struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// ShortID returns the id without the https://openalex.org/ prefix.
func (c Category) ShortID() string {
	return normalizeOpenAlexID(c.ID)
}

// WorksResponse is the response of the /works list endpoint.
type WorksResponse struct {
	Meta    Meta   `json:"meta"`
	Results []Work `json:"results"`
}

// Work represents a bibliographic record in OpenAlex.
// PublicationYear is kept raw because records occasionally carry a
// non-integer value there.
type Work struct {
	ID              string          `json:"id"`
	DOI             string          `json:"doi"`
	Title           string          `json:"title"`
	DisplayName     string          `json:"display_name"`
	PublicationYear json.RawMessage `json:"publication_year"`
	Type            string          `json:"type"`
	Language        string          `json:"language"`
	OpenAccess      *OpenAccess     `json:"open_access"`
	Authorships     []Authorship    `json:"authorships"`
	PrimaryLocation *Location       `json:"primary_location"`
	IDs             IDs             `json:"ids"`
}

// Year returns the publication year when it is an integer.
// Numeric strings are coerced; anything else reports false.
func (w Work) Year() (int, bool) {
	if len(w.PublicationYear) == 0 {
		return 0, false
	}
	var n json.Number
	if err := json.Unmarshal(w.PublicationYear, &n); err != nil {
		return 0, false
	}
	year, err := n.Int64()
	if err != nil {
		return 0, false
	}
	return int(year), true
}

// DOIURL returns the DOI link, preferring ids.doi over the top-level field.
func (w Work) DOIURL() string {
	if doi := strings.TrimSpace(w.IDs.DOI); doi != "" {
		return doi
	}
	return strings.TrimSpace(w.DOI)
}

// OpenAccess contains open access information for a work.
type OpenAccess struct {
	IsOA     bool   `json:"is_oa"`
	OAURL    string `json:"oa_url"`
	OAStatus string `json:"oa_status"`
}

// Authorship represents an author's contribution to a work.
type Authorship struct {
	AuthorPosition string      `json:"author_position"`
	Author         *AuthorInfo `json:"author"`
}

// AuthorInfo contains basic author information.
type AuthorInfo struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// Location represents where a work is available.
type Location struct {
	LandingPageURL string  `json:"landing_page_url"`
	PDFURL         string  `json:"pdf_url"`
	IsOA           bool    `json:"is_oa"`
	Source         *Source `json:"source"`
}

// Source represents a publication venue or repository.
type Source struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Type        string `json:"type"`
}

// IDs contains the external identifiers of a work.
type IDs struct {
	OpenAlex string `json:"openalex"`
	DOI      string `json:"doi"`
}
