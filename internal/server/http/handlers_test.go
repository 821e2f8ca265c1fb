package httpserver

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/helixir/book-search-service/internal/domain"
)

// ---------------------------------------------------------------------------
// Mock implementations
// ---------------------------------------------------------------------------

// mockSearcher implements Searcher for HTTP handler tests.
type mockSearcher struct {
	searchFn func(ctx context.Context, req domain.SearchRequest) ([]domain.BookRow, error)
	calls    []domain.SearchRequest
}

func (m *mockSearcher) Search(ctx context.Context, req domain.SearchRequest) ([]domain.BookRow, error) {
	m.calls = append(m.calls, req)
	if m.searchFn != nil {
		return m.searchFn(ctx, req)
	}
	return nil, nil
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func testQueryDefaults() QueryDefaults {
	return QueryDefaults{
		StartYear:       2021,
		EndYear:         2025,
		MaxResults:      50,
		MaxResultsLimit: 1000,
	}
}

// newTestHTTPServer creates a Server configured for testing with a mocked searcher.
func newTestHTTPServer(searcher Searcher) *Server {
	return NewServer(Config{Query: testQueryDefaults()}, searcher, zerolog.Nop(), nil)
}

// serveHTTP dispatches a request through the test server's router and returns the recorder.
func serveHTTP(s *Server, r *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, r)
	return rr
}

// decodeJSON decodes a JSON response body into the given target.
func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(target); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
}

func yearPtr(y int) *int { return &y }

func sampleRows() []domain.BookRow {
	return []domain.BookRow{
		{Title: "Digital Marketing", Authors: "A. Smith, B. Jones", Year: yearPtr(2023), URL: "https://example.org/dm", Subject: "Marketing"},
		{Title: "Organic Chemistry", Authors: "C. Lee", Year: nil, URL: "https://doi.org/10.1/oc", Subject: "Chemistry"},
	}
}

// ---------------------------------------------------------------------------
// Tests: getBooks
// ---------------------------------------------------------------------------

func TestGetBooks_JSONSuccess(t *testing.T) {
	searcher := &mockSearcher{
		searchFn: func(_ context.Context, _ domain.SearchRequest) ([]domain.BookRow, error) {
			return sampleRows(), nil
		},
	}
	srv := newTestHTTPServer(searcher)

	req := httptest.NewRequest(http.MethodGet, "/books?subjects=Marketing,%20Chemistry", nil)
	rr := serveHTTP(srv, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %q", ct)
	}

	var rows []map[string]any
	decodeJSON(t, rr, &rows)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0]["Title"] != "Digital Marketing" {
		t.Errorf("unexpected first title %v", rows[0]["Title"])
	}
	if rows[1]["Year"] != nil {
		t.Errorf("expected null year, got %v", rows[1]["Year"])
	}

	if len(searcher.calls) != 1 {
		t.Fatalf("expected 1 search call, got %d", len(searcher.calls))
	}
	got := searcher.calls[0]
	if strings.Join(got.Subjects, "|") != "Marketing|Chemistry" {
		t.Errorf("unexpected subjects %v", got.Subjects)
	}
	if got.Years != (domain.YearRange{Start: 2021, End: 2025}) {
		t.Errorf("expected default years, got %+v", got.Years)
	}
	if got.MaxResults != 50 {
		t.Errorf("expected default max_results 50, got %d", got.MaxResults)
	}
	if got.OpenAccessOnly {
		t.Error("expected oa_only false by default")
	}
	if got.SortByYear != nil {
		t.Error("expected no sort override by default")
	}
}

func TestGetBooks_PassesQueryParameters(t *testing.T) {
	searcher := &mockSearcher{
		searchFn: func(_ context.Context, _ domain.SearchRequest) ([]domain.BookRow, error) {
			return sampleRows()[:1], nil
		},
	}
	srv := newTestHTTPServer(searcher)

	req := httptest.NewRequest(http.MethodGet,
		"/books?subjects=Physics&start_year=1999&end_year=2001&max_results=7&mailto=me@example.com&oa_only=true&sort=year_desc", nil)
	rr := serveHTTP(srv, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	got := searcher.calls[0]
	if got.Years.Start != 1999 || got.Years.End != 2001 {
		t.Errorf("unexpected years %+v", got.Years)
	}
	if got.MaxResults != 7 {
		t.Errorf("expected max_results 7, got %d", got.MaxResults)
	}
	if got.Mailto != "me@example.com" {
		t.Errorf("expected mailto to pass through, got %q", got.Mailto)
	}
	if !got.OpenAccessOnly {
		t.Error("expected oa_only true")
	}
	if got.SortByYear == nil || !*got.SortByYear {
		t.Error("expected sort override true")
	}
}

func TestGetBooks_CSVSuccess(t *testing.T) {
	searcher := &mockSearcher{
		searchFn: func(_ context.Context, _ domain.SearchRequest) ([]domain.BookRow, error) {
			return sampleRows(), nil
		},
	}
	srv := newTestHTTPServer(searcher)

	req := httptest.NewRequest(http.MethodGet, "/books?subjects=Marketing,Chemistry&format=csv", nil)
	rr := serveHTTP(srv, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "text/csv; charset=utf-8" {
		t.Errorf("unexpected content type %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); cd != "attachment; filename=books_Marketing_Chemistry.csv" {
		t.Errorf("unexpected content disposition %q", cd)
	}

	records, err := csv.NewReader(rr.Body).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d records", len(records))
	}
	if strings.Join(records[0], ",") != "Title,Authors,Year,URL,Subject" {
		t.Errorf("unexpected header %v", records[0])
	}
	if records[1][1] != "A. Smith, B. Jones" || records[1][2] != "2023" {
		t.Errorf("unexpected first row %v", records[1])
	}
	if records[2][2] != "" {
		t.Errorf("expected empty year cell, got %q", records[2][2])
	}
}

func TestGetBooks_NoResults(t *testing.T) {
	for _, format := range []string{"json", "csv"} {
		t.Run(format, func(t *testing.T) {
			srv := newTestHTTPServer(&mockSearcher{})

			req := httptest.NewRequest(http.MethodGet, "/books?subjects=Nothing&format="+format, nil)
			rr := serveHTTP(srv, req)

			if rr.Code != http.StatusNotFound {
				t.Fatalf("expected status 404, got %d", rr.Code)
			}
			var resp map[string]string
			decodeJSON(t, rr, &resp)
			if resp["message"] != "No results found for given subjects." {
				t.Errorf("unexpected message %q", resp["message"])
			}
		})
	}
}

func TestGetBooks_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		query string
		field string
	}{
		{"missing subjects", "", "subjects"},
		{"only separators", "subjects=,%20,", "subjects"},
		{"non-integer year", "subjects=A&start_year=abc", "start_year"},
		{"year too small", "subjects=A&start_year=999", "start_year"},
		{"year too large", "subjects=A&end_year=2101", "end_year"},
		{"inverted range", "subjects=A&start_year=2025&end_year=2021", "end_year"},
		{"zero max results", "subjects=A&max_results=0", "max_results"},
		{"max results above limit", "subjects=A&max_results=1001", "max_results"},
		{"bad mailto", "subjects=A&mailto=not-an-email", "mailto"},
		{"bad format", "subjects=A&format=xml", "format"},
		{"bad sort", "subjects=A&sort=title", "sort"},
		{"bad oa flag", "subjects=A&oa_only=maybe", "oa_only"},
		{"subject too long", "subjects=" + strings.Repeat("x", 201), "subjects[0]"},
		{"too many subjects", "subjects=" + strings.Repeat("a,", 21), "subjects"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			searcher := &mockSearcher{}
			srv := newTestHTTPServer(searcher)

			req := httptest.NewRequest(http.MethodGet, "/books?"+tc.query, nil)
			rr := serveHTTP(srv, req)

			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected status 400, got %d: %s", rr.Code, rr.Body.String())
			}
			var resp map[string]string
			decodeJSON(t, rr, &resp)
			if !strings.HasPrefix(resp["error"], tc.field+": ") {
				t.Errorf("expected error for field %q, got %q", tc.field, resp["error"])
			}
			if len(searcher.calls) != 0 {
				t.Error("searcher must not be called on invalid input")
			}
		})
	}
}

func TestGetBooks_SearchErrors(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{"upstream", domain.NewUpstreamError("OpenAlex", 503, "unexpected status", nil), http.StatusBadGateway},
		{"rate limited", domain.NewRateLimitError("OpenAlex", 5), http.StatusBadGateway},
		{"wrapped upstream", fmt.Errorf("searching subject %q: %w", "A", domain.NewUpstreamError("OpenAlex", 0, "request failed", errors.New("dial tcp"))), http.StatusBadGateway},
		{"invalid input", domain.NewValidationError("years", "start after end"), http.StatusBadRequest},
		{"internal", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestHTTPServer(&mockSearcher{
				searchFn: func(_ context.Context, _ domain.SearchRequest) ([]domain.BookRow, error) {
					return nil, tc.err
				},
			})

			req := httptest.NewRequest(http.MethodGet, "/books?subjects=A", nil)
			rr := serveHTTP(srv, req)

			if rr.Code != tc.expectedStatus {
				t.Fatalf("expected status %d, got %d", tc.expectedStatus, rr.Code)
			}
			var resp map[string]string
			decodeJSON(t, rr, &resp)
			if resp["error"] == "" {
				t.Error("expected error message")
			}
		})
	}
}

func TestGetBooks_UpstreamMessageHidesCause(t *testing.T) {
	srv := newTestHTTPServer(&mockSearcher{
		searchFn: func(_ context.Context, _ domain.SearchRequest) ([]domain.BookRow, error) {
			return nil, domain.NewUpstreamError("OpenAlex", 0, "request failed", errors.New("dial tcp 10.0.0.1:443"))
		},
	})

	rr := serveHTTP(srv, httptest.NewRequest(http.MethodGet, "/books?subjects=A", nil))

	var resp map[string]string
	decodeJSON(t, rr, &resp)
	if resp["error"] != "OpenAlex API error: request failed" {
		t.Errorf("unexpected error message %q", resp["error"])
	}
}

func TestGetBooks_NilSearcher(t *testing.T) {
	srv := newTestHTTPServer(nil)

	rr := serveHTTP(srv, httptest.NewRequest(http.MethodGet, "/books?subjects=A", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}
}

// ---------------------------------------------------------------------------
// Tests: informational endpoints
// ---------------------------------------------------------------------------

func TestRootHandler(t *testing.T) {
	srv := newTestHTTPServer(&mockSearcher{})

	rr := serveHTTP(srv, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var resp rootResponse
	decodeJSON(t, rr, &resp)
	if resp.Message == "" {
		t.Error("expected welcome message")
	}
	if !strings.HasPrefix(resp.Endpoints["books"], "/books?subjects=") {
		t.Errorf("unexpected books endpoint %q", resp.Endpoints["books"])
	}
}

func TestHealthAndReadiness(t *testing.T) {
	ready := newTestHTTPServer(&mockSearcher{})
	if rr := serveHTTP(ready, httptest.NewRequest(http.MethodGet, "/healthz", nil)); rr.Code != http.StatusOK {
		t.Errorf("expected healthz 200, got %d", rr.Code)
	}
	if rr := serveHTTP(ready, httptest.NewRequest(http.MethodGet, "/readyz", nil)); rr.Code != http.StatusOK {
		t.Errorf("expected readyz 200, got %d", rr.Code)
	}

	notReady := newTestHTTPServer(nil)
	if rr := serveHTTP(notReady, httptest.NewRequest(http.MethodGet, "/readyz", nil)); rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected readyz 503, got %d", rr.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	srv := newTestHTTPServer(&mockSearcher{})
	rr := serveHTTP(srv, httptest.NewRequest(http.MethodGet, "/papers", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
}

// ---------------------------------------------------------------------------
// Tests: helper functions
// ---------------------------------------------------------------------------

func TestWriteDomainError_Mappings(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{"invalid input", domain.ErrInvalidInput, http.StatusBadRequest},
		{"validation error", domain.NewValidationError("subjects", "is required"), http.StatusBadRequest},
		{"upstream", domain.ErrUpstream, http.StatusBadGateway},
		{"rate limited", domain.NewRateLimitError("OpenAlex", 3), http.StatusBadGateway},
		{"canceled", context.Canceled, http.StatusInternalServerError},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeDomainError(rr, tc.err)
			if rr.Code != tc.expectedStatus {
				t.Errorf("expected status %d, got %d", tc.expectedStatus, rr.Code)
			}
		})
	}
}

func TestWriteJSON_EncodeFailure(t *testing.T) {
	rr := httptest.NewRecorder()
	writeJSON(rr, http.StatusOK, map[string]any{"rows": make(chan int)})

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected application/json, got %q", ct)
	}
	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if resp["error"] != "internal server error" {
		t.Errorf("unexpected error message %q", resp["error"])
	}
}
