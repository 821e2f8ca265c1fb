// Package httpserver provides the HTTP REST API server for the book search service.
package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/helixir/book-search-service/internal/domain"
	"github.com/helixir/book-search-service/internal/observability"
)

// Searcher runs multi-subject book searches.
type Searcher interface {
	Search(ctx context.Context, req domain.SearchRequest) ([]domain.BookRow, error)
}

// Server is the HTTP REST API server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	searcher   Searcher
	query      QueryDefaults
	cors       CORSConfig
	logger     zerolog.Logger
	metrics    *observability.Metrics
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// CORS configures cross-origin access to the API.
	CORS CORSConfig

	// Query holds defaults and limits of the /books query parameters.
	Query QueryDefaults
}

// CORSConfig holds cross-origin settings.
type CORSConfig struct {
	AllowedOrigins   []string
	AllowCredentials bool
}

// QueryDefaults holds the values used for omitted /books parameters and the
// upper bound of max_results.
type QueryDefaults struct {
	StartYear       int
	EndYear         int
	MaxResults      int
	MaxResultsLimit int
}

// NewServer creates a new HTTP server.
func NewServer(cfg Config, searcher Searcher, logger zerolog.Logger, metrics *observability.Metrics) *Server {
	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = []string{"*"}
	}

	s := &Server{
		searcher: searcher,
		query:    cfg.Query,
		cors:     cfg.CORS,
		logger:   logger.With().Str("component", "http-server").Logger(),
		metrics:  metrics,
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(correlationIDMiddleware)
	r.Use(requestLoggerMiddleware(s.logger))
	r.Use(metricsMiddleware(s.metrics))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cors.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Disposition", "X-Correlation-ID"},
		AllowCredentials: s.cors.AllowCredentials,
		MaxAge:           300,
	}))

	r.Get("/", s.rootHandler)

	// Health endpoints
	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	r.Get("/books", s.getBooks)

	return r
}

// Handler returns the root handler, for use in tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// rootHandler describes the API.
func (s *Server) rootHandler(w http.ResponseWriter, _ *http.Request) {
	example := fmt.Sprintf("/books?subjects=Marketing&start_year=%d&end_year=%d&max_results=%d&format=json",
		s.query.StartYear, s.query.EndYear, s.query.MaxResults)
	writeJSON(w, http.StatusOK, rootResponse{
		Message: "Welcome to the OpenAlex Book Search API",
		Endpoints: map[string]string{
			"books":   example,
			"healthz": "/healthz",
			"readyz":  "/readyz",
		},
	})
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readinessHandler reports whether the server can take searches.
func (s *Server) readinessHandler(w http.ResponseWriter, _ *http.Request) {
	if s.searcher == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"error":  "search service not configured",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// writeJSON writes a JSON response with the given status code. A value that
// cannot be encoded becomes a 500 before any header is sent.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		buf.Reset()
		statusCode = http.StatusInternalServerError
		_ = json.NewEncoder(&buf).Encode(errorResponse{Error: "internal server error"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_, _ = w.Write(buf.Bytes())
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, errorResponse{Error: message})
}
