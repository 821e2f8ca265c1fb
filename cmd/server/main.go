// Package main provides the entry point for the book search HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/helixir/book-search-service/internal/books"
	"github.com/helixir/book-search-service/internal/config"
	"github.com/helixir/book-search-service/internal/observability"
	httpserver "github.com/helixir/book-search-service/internal/server/http"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// listener is a server the process starts and later drains.
type listener struct {
	name     string
	serve    func() error
	shutdown func(context.Context) error
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(cfg.Logging)
	logger.Info().
		Str("base_url", cfg.OpenAlex.BaseURL).
		Str("url_policy", cfg.Search.URLPolicy).
		Str("namespace_order", cfg.Search.NamespaceOrder).
		Msg("book-search-service starting")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics("booksearch", prometheus.DefaultRegisterer)
	}

	svc, err := books.NewServiceFromConfig(cfg, logger, metrics)
	if err != nil {
		return fmt.Errorf("create search service: %w", err)
	}

	api := httpserver.NewServer(apiConfig(cfg), svc, logger, metrics)
	listeners := []listener{{name: "http", serve: api.Start, shutdown: api.Shutdown}}
	if cfg.Metrics.Enabled {
		ms := metricsServer(cfg)
		listeners = append(listeners, listener{name: "metrics", serve: ms.ListenAndServe, shutdown: ms.Shutdown})
		logger.Info().Str("address", ms.Addr).Msg("metrics endpoint enabled")
	}

	errCh := make(chan error, len(listeners))
	for _, l := range listeners {
		go func() {
			if err := l.serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("%s server: %w", l.name, err)
			}
		}()
	}
	logger.Info().Str("http_address", cfg.Server.HTTPAddress()).Msg("book-search-service is ready")

	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server failed")
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	for _, l := range listeners {
		if err := l.shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Str("server", l.name).Msg("shutdown failed")
		}
	}

	logger.Info().Msg("book-search-service stopped")
	return nil
}

func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	logCfg := observability.DefaultLoggingConfig()
	logCfg.Level = cfg.Level
	logCfg.Format = cfg.Format
	logCfg.Output = cfg.Output
	logCfg.AddSource = cfg.AddSource
	logCfg.TimeFormat = cfg.TimeFormat
	return observability.NewLogger(logCfg).With().Str("component", "server").Logger()
}

func apiConfig(cfg *config.Config) httpserver.Config {
	return httpserver.Config{
		Address:         cfg.Server.HTTPAddress(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		CORS: httpserver.CORSConfig{
			AllowedOrigins:   cfg.CORS.AllowedOrigins,
			AllowCredentials: cfg.CORS.AllowCredentials,
		},
		Query: httpserver.QueryDefaults{
			StartYear:       cfg.Search.DefaultStartYear,
			EndYear:         cfg.Search.DefaultEndYear,
			MaxResults:      cfg.Search.DefaultMaxResults,
			MaxResultsLimit: cfg.Search.MaxResultsLimit,
		},
	}
}

// metricsServer exposes the default Prometheus registry on its own port.
func metricsServer(cfg *config.Config) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, promhttp.Handler())
	return &http.Server{
		Addr:         cfg.Server.MetricsAddress(),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
