package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is the process-wide metrics container for the recommendation
// pipeline: HTTP surface, message bus traffic, and per-stage latency.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	RateLimitHits    prometheus.Counter
	RateLimitPassed  prometheus.Counter

	MessagesConsumedTotal *prometheus.CounterVec
	MessagesProducedTotal *prometheus.CounterVec
	ConsumerLag           *prometheus.GaugeVec

	FeatureComputeDuration prometheus.Histogram
	ScoreComputeDuration   prometheus.Histogram
	RecommendationDuration prometheus.Histogram

	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	BreakerState      *prometheus.GaugeVec
	RankingSetSize    prometheus.Histogram

	ServiceInfo *prometheus.GaugeVec

	// Requests tracks in-flight HTTP requests per method, backing
	// HTTPRequestsInFlight.
	Requests *RequestTracker
}

var defaultMetrics *Metrics

// InitMetrics registers and returns the process-wide metrics container.
func InitMetrics(namespace, subsystem string) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"route", "method"},
		),

		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "http_requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),

		RateLimitHits: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "rate_limit_hits_total",
				Help:      "Total number of requests rejected by the rate limiter",
			},
		),

		RateLimitPassed: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "rate_limit_passed_total",
				Help:      "Total number of requests admitted by the rate limiter",
			},
		),

		MessagesConsumedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "messages_consumed_total",
				Help:      "Total number of messages consumed from the message bus",
			},
			[]string{"topic", "status"},
		),

		MessagesProducedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "messages_produced_total",
				Help:      "Total number of messages produced to the message bus",
			},
			[]string{"topic", "status"},
		),

		ConsumerLag: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "consumer_lag",
				Help:      "Estimated consumer lag in messages",
			},
			[]string{"topic"},
		),

		FeatureComputeDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "feature_compute_duration_seconds",
				Help:      "Duration of feature engineering per telemetry record",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
		),

		ScoreComputeDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "score_compute_duration_seconds",
				Help:      "Duration of scoring per feature snapshot",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
		),

		RecommendationDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "recommendation_duration_seconds",
				Help:      "End-to-end duration of a recommendation request",
				Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
		),

		CacheHitsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cache_hits_total",
				Help:      "Total number of shared state store cache hits",
			},
			[]string{"kind"},
		),

		CacheMissesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cache_misses_total",
				Help:      "Total number of shared state store cache misses",
			},
			[]string{"kind"},
		),

		BreakerState: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "breaker_state",
				Help:      "Circuit breaker state (0=closed, 1=half_open, 2=open)",
			},
			[]string{"dependency"},
		),

		RankingSetSize: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "ranking_set_size",
				Help:      "Number of candidates evaluated by the Optimizer per request",
				Buckets:   []float64{1, 2, 5, 10, 20, 50, 100},
			},
		),

		ServiceInfo: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "service_info",
				Help:      "Service information",
			},
			[]string{"version", "environment"},
		),
	}

	m.Requests = NewRequestTracker(m.HTTPRequestsInFlight)

	prometheus.MustRegister(NewRuntimeCollector(namespace, subsystem))

	defaultMetrics = m
	return m
}

// Get returns the process-wide metrics container, initializing it with
// defaults if InitMetrics has not yet been called.
func Get() *Metrics {
	if defaultMetrics == nil {
		return InitMetrics("evchargenet", "")
	}
	return defaultMetrics
}

// RecordHTTPRequest records an HTTP request's outcome and latency.
func (m *Metrics) RecordHTTPRequest(route, method, status string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(route, method, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordMessageConsumed records a message bus consume outcome.
func (m *Metrics) RecordMessageConsumed(topic, status string) {
	m.MessagesConsumedTotal.WithLabelValues(topic, status).Inc()
}

// RecordMessageProduced records a message bus publish outcome.
func (m *Metrics) RecordMessageProduced(topic, status string) {
	m.MessagesProducedTotal.WithLabelValues(topic, status).Inc()
}

// RecordCacheResult records a shared state store lookup outcome.
func (m *Metrics) RecordCacheResult(kind string, hit bool) {
	if hit {
		m.CacheHitsTotal.WithLabelValues(kind).Inc()
		return
	}
	m.CacheMissesTotal.WithLabelValues(kind).Inc()
}

// SetBreakerState records a dependency's current breaker state.
func (m *Metrics) SetBreakerState(dependency string, state int) {
	m.BreakerState.WithLabelValues(dependency).Set(float64(state))
}

// SetServiceInfo publishes the running service's version and environment.
func (m *Metrics) SetServiceInfo(version, environment string) {
	m.ServiceInfo.WithLabelValues(version, environment).Set(1)
}

// Handler returns the HTTP handler serving /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// StartMetricsServer starts a dedicated HTTP server exposing /metrics
// and /health, used by services that run the metrics endpoint apart
// from their primary listener.
func StartMetricsServer(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return server.ListenAndServe()
}
