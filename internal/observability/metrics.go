package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the book search service.
// Metrics are organized by subsystem: searches, subject resolution, upstream
// requests and inbound HTTP. A nil *Metrics is valid and records nothing.
type Metrics struct {
	// SearchesStarted counts multi-subject searches initiated.
	SearchesStarted prometheus.Counter

	// SearchesCompleted counts searches that finished without error.
	SearchesCompleted prometheus.Counter

	// SearchesFailed counts searches aborted by an error.
	SearchesFailed prometheus.Counter

	// SearchDuration observes end-to-end search duration in seconds.
	SearchDuration prometheus.Histogram

	// RowsPerSearch observes the number of rows returned per search.
	RowsPerSearch prometheus.Histogram

	// SubjectResolutions counts subject lookups, labeled by the namespace that
	// matched ("topic", "concept") or "none".
	SubjectResolutions *prometheus.CounterVec

	// OpenAccessFallbacks counts subjects re-fetched without the open access filter.
	OpenAccessFallbacks prometheus.Counter

	// PagesFetched counts works pages retrieved from upstream.
	PagesFetched prometheus.Counter

	// UpstreamRequestsTotal counts upstream API requests, labeled by endpoint.
	UpstreamRequestsTotal *prometheus.CounterVec

	// UpstreamRequestsFailed counts failed upstream requests, labeled by endpoint and error type.
	UpstreamRequestsFailed *prometheus.CounterVec

	// UpstreamRequestDuration observes upstream request duration in seconds, including backoff.
	UpstreamRequestDuration *prometheus.HistogramVec

	// UpstreamRateLimited counts 429 responses that triggered a backoff.
	UpstreamRateLimited prometheus.Counter

	// HTTPRequestsTotal counts inbound HTTP requests, labeled by method, route and status.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration observes inbound HTTP request duration in seconds, labeled by route.
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance registered with reg.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Searches
		SearchesStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_started_total",
			Help:      "Total number of book searches started",
		}),
		SearchesCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_completed_total",
			Help:      "Total number of book searches completed successfully",
		}),
		SearchesFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_failed_total",
			Help:      "Total number of book searches that failed",
		}),
		SearchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Duration of book searches in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}),
		RowsPerSearch: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rows_per_search",
			Help:      "Number of rows returned per book search",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}),

		// Subjects
		SubjectResolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subject_resolutions_total",
			Help:      "Total number of subject resolutions by matching namespace",
		}, []string{"namespace"}),
		OpenAccessFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "open_access_fallbacks_total",
			Help:      "Total number of subjects re-fetched without the open access filter",
		}),
		PagesFetched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_fetched_total",
			Help:      "Total number of works pages fetched from upstream",
		}),

		// Upstream
		UpstreamRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Total number of upstream API requests by endpoint",
		}, []string{"endpoint"}),
		UpstreamRequestsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_failed_total",
			Help:      "Total number of failed upstream API requests by endpoint and error type",
		}, []string{"endpoint", "error_type"}),
		UpstreamRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Duration of upstream API requests in seconds, including backoff",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"endpoint"}),
		UpstreamRateLimited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_rate_limited_total",
			Help:      "Total number of 429 responses that triggered a backoff",
		}),

		// HTTP
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// RecordSearchStarted records that a search has started.
func (m *Metrics) RecordSearchStarted() {
	if m == nil {
		return
	}
	m.SearchesStarted.Inc()
}

// RecordSearchCompleted records that a search has completed.
func (m *Metrics) RecordSearchCompleted(rowCount int, durationSeconds float64) {
	if m == nil {
		return
	}
	m.SearchesCompleted.Inc()
	m.SearchDuration.Observe(durationSeconds)
	m.RowsPerSearch.Observe(float64(rowCount))
}

// RecordSearchFailed records that a search has failed.
func (m *Metrics) RecordSearchFailed(durationSeconds float64) {
	if m == nil {
		return
	}
	m.SearchesFailed.Inc()
	m.SearchDuration.Observe(durationSeconds)
}

// RecordSubjectResolution records which namespace resolved a subject.
// An empty namespace means the subject could not be resolved.
func (m *Metrics) RecordSubjectResolution(namespace string) {
	if m == nil {
		return
	}
	if namespace == "" {
		namespace = "none"
	}
	m.SubjectResolutions.WithLabelValues(namespace).Inc()
}

// RecordOpenAccessFallback records an open access fallback re-fetch.
func (m *Metrics) RecordOpenAccessFallback() {
	if m == nil {
		return
	}
	m.OpenAccessFallbacks.Inc()
}

// RecordPageFetched records a works page retrieved from upstream.
func (m *Metrics) RecordPageFetched() {
	if m == nil {
		return
	}
	m.PagesFetched.Inc()
}

// RecordUpstreamRequest records a request to the upstream API.
func (m *Metrics) RecordUpstreamRequest(endpoint string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.UpstreamRequestsTotal.WithLabelValues(endpoint).Inc()
	m.UpstreamRequestDuration.WithLabelValues(endpoint).Observe(durationSeconds)
}

// RecordUpstreamRequestFailed records a failed request to the upstream API.
func (m *Metrics) RecordUpstreamRequestFailed(endpoint, errorType string) {
	if m == nil {
		return
	}
	m.UpstreamRequestsFailed.WithLabelValues(endpoint, errorType).Inc()
}

// RecordUpstreamRateLimited records a 429 response that will be retried.
func (m *Metrics) RecordUpstreamRateLimited() {
	if m == nil {
		return
	}
	m.UpstreamRateLimited.Inc()
}

// RecordHTTPRequest records an inbound HTTP request.
func (m *Metrics) RecordHTTPRequest(method, route, status string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(route).Observe(durationSeconds)
}
