// Package metrics provides Prometheus metrics for the tech radar voting service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the voting service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Voting business metrics
	votesSaved       prometheus.Counter
	votesDuplicate   prometheus.Counter
	blipsCalculated  prometheus.Counter
	flowTransitions  *prometheus.CounterVec
	casRetries       prometheus.Counter
	operationLatency *prometheus.HistogramVec
	operationErrors  *prometheus.CounterVec

	// Store metrics
	storeLatency *prometheus.HistogramVec
	storedEvents prometheus.Gauge
	storedVotes  prometheus.Gauge
	catalogSize  prometheus.Gauge
	breakerState *prometheus.GaugeVec

	// HTTP performance metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error metrics
	errorRateByType     *prometheus.CounterVec
	errorRateByEndpoint *prometheus.CounterVec
	errorLatency        *prometheus.HistogramVec

	// System performance metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "techradar",
		subsystem:        "voting",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric
	auto := promauto.With(m.registry)
	if !m.enabled {
		auto = promauto.With(nil)
	}
	labels := prometheus.Labels(m.customLabels)

	counter := func(name, help string) prometheus.Counter {
		return auto.NewCounter(prometheus.CounterOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: labels,
		})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return auto.NewGauge(prometheus.GaugeOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: labels,
		})
	}
	counterVec := func(name, help string, lv ...string) *prometheus.CounterVec {
		return auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: labels,
		}, lv)
	}
	histogramVec := func(name, help string, lv ...string) *prometheus.HistogramVec {
		return auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help,
			Buckets: m.histogramBuckets, ConstLabels: labels,
		}, lv)
	}

	m.votesSaved = counter("votes_saved_total", "Total number of votes stored")
	m.votesDuplicate = counter("votes_duplicate_total", "Total number of vote batches refused as duplicates")
	m.blipsCalculated = counter("blips_calculated_total", "Total number of blips resolved")
	m.flowTransitions = counterVec("flow_transitions_total", "Voting event transitions by kind and outcome", "transition", "outcome")
	m.casRetries = counter("event_cas_retries_total", "Event updates retried after a version conflict")
	m.operationLatency = histogramVec("operation_latency_milliseconds", "Service operation latency in milliseconds", "operation")
	m.operationErrors = counterVec("operation_errors_total", "Service operation failures by error code", "operation", "code")

	m.storeLatency = histogramVec("store_latency_milliseconds", "Store call latency in milliseconds", "store", "operation")
	m.storedEvents = gauge("stored_events", "Number of voting events held by the store")
	m.storedVotes = gauge("stored_votes", "Number of votes held by the store")
	m.catalogSize = gauge("catalog_technologies", "Number of technologies in the catalog, cancelled included")
	m.breakerState = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name("store_breaker_state"),
		Help: "Store circuit breaker state (0 closed, 1 half-open, 2 open)", ConstLabels: labels,
	}, []string{"breaker"})

	m.httpRequests = counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method",
		"endpoint", "method", "status_code")
	m.httpRequestDuration = histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds",
		"endpoint", "method", "status_code")

	m.errorRateByType = counterVec("errors_by_type_total", "Errors by type and severity", "error_type", "severity")
	m.errorRateByEndpoint = counterVec("errors_by_endpoint_total", "Errors by endpoint", "endpoint", "method", "error_type")
	m.errorLatency = histogramVec("error_latency_milliseconds", "Latency of failed requests", "component", "error_type")

	m.systemMemoryUsage = gauge("system_memory_bytes", "Allocated heap memory in bytes")
	m.systemGoroutineCount = gauge("system_goroutines", "Number of goroutines")
	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name("system_gc_pause_milliseconds"),
		Help: "Average GC pause in milliseconds", Buckets: m.histogramBuckets, ConstLabels: labels,
	})
}

// RecordVotesSaved counts stored votes.
func RecordVotesSaved(n int) {
	globalManager.votesSaved.Add(float64(n))
}

// RecordDuplicateVote counts a refused vote batch.
func RecordDuplicateVote() {
	globalManager.votesDuplicate.Inc()
}

// RecordBlipsCalculated counts resolved blips.
func RecordBlipsCalculated(n int) {
	globalManager.blipsCalculated.Add(float64(n))
}

// RecordFlowTransition counts a state machine transition attempt.
func RecordFlowTransition(transition, outcome string) {
	globalManager.flowTransitions.WithLabelValues(transition, outcome).Inc()
}

// RecordCASRetry counts a retried event update.
func RecordCASRetry() {
	globalManager.casRetries.Inc()
}

// RecordOperation records latency and, for failures, the error code.
func RecordOperation(operation, code string, latencyMs float64) {
	globalManager.operationLatency.WithLabelValues(operation).Observe(latencyMs)
	if code != "" {
		globalManager.operationErrors.WithLabelValues(operation, code).Inc()
	}
}

// RecordStoreLatency records the latency of a store call.
func RecordStoreLatency(store, operation string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(store, operation).Observe(latencyMs)
}

// UpdateStoredEvents sets the number of stored events.
func UpdateStoredEvents(n int) {
	globalManager.storedEvents.Set(float64(n))
}

// UpdateStoredVotes sets the number of stored votes.
func UpdateStoredVotes(n int) {
	globalManager.storedVotes.Set(float64(n))
}

// UpdateCatalogSize sets the number of catalog entries.
func UpdateCatalogSize(n int) {
	globalManager.catalogSize.Set(float64(n))
}

// UpdateBreakerState publishes a circuit breaker state.
func UpdateBreakerState(name string, state int) {
	globalManager.breakerState.WithLabelValues(name).Set(float64(state))
}

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration observes an HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByType counts an error by type and severity.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint counts an error by endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency observes the latency of a failed request.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// UpdateSystemMemoryUsage sets allocated heap bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime observes the average GC pause.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the registry all metrics are registered on.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
