package httpserver

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/helixir/book-search-service/internal/domain"
	"github.com/helixir/book-search-service/internal/export"
	"github.com/helixir/book-search-service/internal/observability"
)

// getBooks handles GET /books.
// It runs a multi-subject search and renders the rows as JSON or CSV.
func (s *Server) getBooks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.FromContext(ctx, s.logger)

	q, err := parseBooksQuery(r.URL.Query(), s.query)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if s.searcher == nil {
		writeError(w, http.StatusServiceUnavailable, "search service not configured")
		return
	}

	rows, err := s.searcher.Search(ctx, q.SearchRequest())
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Debug().Err(err).Msg("search canceled by client")
		} else {
			logger.Error().Err(err).Strs("subjects", q.Subjects).Msg("book search failed")
		}
		writeDomainError(w, err)
		return
	}
	if len(rows) == 0 {
		writeJSON(w, http.StatusNotFound, messageResponse{Message: noResultsMessage})
		return
	}

	format := export.Format(q.Format)
	if format != export.FormatCSV {
		writeJSON(w, http.StatusOK, rows)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteCSV(&buf, rows); err != nil {
		logger.Error().Err(err).Msg("rendering csv")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", export.ContentDisposition(export.CSVFilename(q.Subjects)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// writeDomainError maps domain errors to HTTP status codes and writes a JSON
// error response. Internal error details are not leaked to clients.
func writeDomainError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Field+": "+ve.Message)
		} else {
			writeError(w, http.StatusBadRequest, "invalid input")
		}
	case errors.Is(err, domain.ErrUpstream):
		writeError(w, http.StatusBadGateway, upstreamMessage(err))
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// upstreamMessage describes an upstream failure without its transport cause.
func upstreamMessage(err error) string {
	var rl *domain.RateLimitError
	if errors.As(err, &rl) {
		return rl.Error()
	}
	var ue *domain.UpstreamError
	if errors.As(err, &ue) {
		return ue.Error()
	}
	return "upstream request failed"
}
