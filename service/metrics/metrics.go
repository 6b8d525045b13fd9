package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the relay.
// Following the explicit dependency injection pattern, this struct
// is passed to all components that need to record metrics. All Record*
// methods are nil-safe so components can run without a collector.
type Metrics struct {
	// Solana RPC metrics
	solanaRPCCallsTotal    *prometheus.CounterVec
	solanaRPCCallDuration  *prometheus.HistogramVec
	solanaRPCRateLimitHits *prometheus.CounterVec
	endpointFailovers      *prometheus.CounterVec

	// Relay metrics
	relaySubmissionsTotal *prometheus.CounterVec
	submitAttempts        prometheus.Histogram
	confirmationPolls     prometheus.Histogram

	// Concentration cache metrics
	cacheHitsTotal   prometheus.Counter
	cacheMissesTotal prometheus.Counter

	// HTTP metrics
	httpRequestDuration *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec

	// NATS metrics
	natsMessagesPublished *prometheus.CounterVec
	natsPublishDuration   *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		solanaRPCCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_calls_total",
				Help: "Total number of Solana RPC calls by endpoint, method and status",
			},
			[]string{"endpoint", "method", "status"},
		),
		solanaRPCCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solana_rpc_call_duration_seconds",
				Help:    "Duration of Solana RPC calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"endpoint", "method"},
		),
		solanaRPCRateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rate_limit_hits_total",
				Help: "Total number of Solana RPC rate limit rejections (429 errors)",
			},
			[]string{"endpoint"},
		),
		endpointFailovers: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_endpoint_failovers_total",
				Help: "Total number of times a call moved past an endpoint to the next in the pool",
			},
			[]string{"endpoint", "operation"},
		),

		relaySubmissionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_submissions_total",
				Help: "Total number of transaction submissions by outcome",
			},
			[]string{"outcome"},
		),
		submitAttempts: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "relay_submit_attempts",
				Help:    "Number of send attempts per submission, including fallback sweeps",
				Buckets: []float64{1, 2, 3, 4, 5, 6, 8, 10},
			},
		),
		confirmationPolls: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "relay_confirmation_polls",
				Help:    "Number of status polls issued per confirmation attempt",
				Buckets: []float64{1, 2, 5, 10, 15, 20, 30},
			},
		),

		cacheHitsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "concentration_cache_hits_total",
				Help: "Total number of concentration cache hits",
			},
		),
		cacheMissesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "concentration_cache_misses_total",
				Help: "Total number of concentration cache misses",
			},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 10, 30, 60},
			},
			[]string{"handler", "method", "status"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"handler", "method", "status"},
		),

		natsMessagesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nats_messages_published_total",
				Help: "Total number of NATS messages published",
			},
			[]string{"subject", "status"},
		),
		natsPublishDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nats_publish_duration_seconds",
				Help:    "Duration of NATS publish operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"subject"},
		),
	}
}

// Solana RPC metric helpers

// RecordRPCCall records a Solana RPC call with duration.
func (m *Metrics) RecordRPCCall(endpoint, method, status string, duration float64) {
	if m == nil {
		return
	}
	m.solanaRPCCallsTotal.WithLabelValues(endpoint, method, status).Inc()
	m.solanaRPCCallDuration.WithLabelValues(endpoint, method).Observe(duration)
}

// RecordRateLimitHit records a rate limit rejection.
func (m *Metrics) RecordRateLimitHit(endpoint string) {
	if m == nil {
		return
	}
	m.solanaRPCRateLimitHits.WithLabelValues(endpoint).Inc()
}

// RecordEndpointFailover records a call moving past an endpoint.
func (m *Metrics) RecordEndpointFailover(endpoint, operation string) {
	if m == nil {
		return
	}
	m.endpointFailovers.WithLabelValues(endpoint, operation).Inc()
}

// Relay metric helpers

// RecordSubmission records a completed submission with its outcome
// ("confirmed", "unconfirmed" or "failed") and how many sends it took.
func (m *Metrics) RecordSubmission(outcome string, attempts int) {
	if m == nil {
		return
	}
	m.relaySubmissionsTotal.WithLabelValues(outcome).Inc()
	m.submitAttempts.Observe(float64(attempts))
}

// RecordConfirmationPolls records how many status polls a confirmation took.
func (m *Metrics) RecordConfirmationPolls(polls int) {
	if m == nil {
		return
	}
	m.confirmationPolls.Observe(float64(polls))
}

// Cache metric helpers

// RecordCacheHit records a concentration cache hit.
func (m *Metrics) RecordCacheHit() {
	if m == nil {
		return
	}
	m.cacheHitsTotal.Inc()
}

// RecordCacheMiss records a concentration cache miss.
func (m *Metrics) RecordCacheMiss() {
	if m == nil {
		return
	}
	m.cacheMissesTotal.Inc()
}

// HTTP metric helpers

// RecordHTTPRequest records an HTTP request with duration.
func (m *Metrics) RecordHTTPRequest(handler, method string, statusCode int, duration float64) {
	if m == nil {
		return
	}
	status := statusCodeToString(statusCode)
	m.httpRequestDuration.WithLabelValues(handler, method, status).Observe(duration)
	m.httpRequestsTotal.WithLabelValues(handler, method, status).Inc()
}

// NATS metric helpers

// RecordNATSPublish records a NATS publish operation.
func (m *Metrics) RecordNATSPublish(subject, status string, duration float64) {
	if m == nil {
		return
	}
	m.natsMessagesPublished.WithLabelValues(subject, status).Inc()
	m.natsPublishDuration.WithLabelValues(subject).Observe(duration)
}

func statusCodeToString(code int) string {
	// Group status codes by class
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "unknown"
	}
}
