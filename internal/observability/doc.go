// Package observability holds the zerolog logger setup, the request ID
// context helpers and the Prometheus collectors of the book search service.
//
// Loggers are built from LoggingConfig and enriched per request:
//
//	logger := observability.NewLogger(observability.DefaultLoggingConfig())
//	log := observability.WithSearchContext(observability.FromContext(ctx, logger), "Marketing", "OpenAlex")
//	log.Info().Msg("search started")
//
// Log lines share a small set of field names: request_id, correlation_id,
// subject, source, namespace and category_id.
//
// Metrics register against an explicit prometheus.Registerer so tests can
// pass a fresh registry. Every Record method accepts a nil *Metrics.
package observability
