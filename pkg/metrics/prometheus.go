// Package metrics provides Prometheus metrics for the rating service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the rating service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	changeBuckets    []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Coordinator
	outcomes          *prometheus.CounterVec
	processingLatency prometheus.Histogram
	ratingChange      prometheus.Histogram

	// Store transactions
	txAttempts  *prometheus.CounterVec
	txConflicts *prometheus.CounterVec
	txFailures  *prometheus.CounterVec

	// Delivery pipeline
	ingestDuplicates prometheus.Counter
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueEnqueued    prometheus.Counter
	queueDequeued    prometheus.Counter
	queueRejected    prometheus.Counter
	redeliveries     prometheus.Counter
	deliveriesFailed prometheus.Counter
	workerCount      prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "weaklink",
		subsystem:        "rating",
		histogramBuckets: prometheus.DefBuckets,
		changeBuckets:    []float64{-32, -24, -16, -8, -4, 0, 4, 8, 16, 24, 32},
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.outcomes = m.counterVec("match_outcomes_total",
		"Processed match notifications by outcome status and reason", "status", "reason")
	m.processingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name:    "processing_latency_seconds",
		Help:    "Latency of a full match update including the store transaction",
		Buckets: m.histogramBuckets,
	})
	m.ratingChange = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name:    "rating_change",
		Help:    "Distribution of committed per-team rating changes",
		Buckets: m.changeBuckets,
	})

	m.txAttempts = m.counterVec("store_tx_attempts_total", "Transaction attempts by store backend", "backend")
	m.txConflicts = m.counterVec("store_tx_conflicts_total", "Transaction conflicts that triggered a retry", "backend")
	m.txFailures = m.counterVec("store_tx_failures_total", "Transactions that gave up after the attempt limit", "backend")

	m.ingestDuplicates = m.counter("ingest_duplicates_total", "Notifications dropped because their delivery id was already seen")
	m.queueSize = m.gauge("queue_size", "Current number of queued notifications")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum queue capacity")
	m.queueEnqueued = m.counter("queue_enqueue_total", "Total notifications enqueued")
	m.queueDequeued = m.counter("queue_dequeue_total", "Total notifications dequeued")
	m.queueRejected = m.counter("queue_rejected_total", "Notifications rejected because the queue was full or closed")
	m.redeliveries = m.counter("redeliveries_total", "Notifications re-enqueued after a transport error")
	m.deliveriesFailed = m.counter("deliveries_failed_total", "Notifications abandoned after the redelivery limit")
	m.workerCount = m.gauge("worker_count", "Current number of running workers")

	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, ConstLabels: m.constLabels,
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
}

// RecordOutcome counts a coordinator outcome.
func RecordOutcome(status, reason string) {
	globalManager.outcomes.WithLabelValues(status, reason).Inc()
}

// RecordProcessingLatency records a full update latency in seconds.
func RecordProcessingLatency(seconds float64) {
	globalManager.processingLatency.Observe(seconds)
}

// RecordRatingChange records a committed team rating change.
func RecordRatingChange(change float64) {
	globalManager.ratingChange.Observe(change)
}

// RecordTxAttempt counts a transaction attempt for backend.
func RecordTxAttempt(backend string) {
	globalManager.txAttempts.WithLabelValues(backend).Inc()
}

// RecordTxConflict counts a retried conflict for backend.
func RecordTxConflict(backend string) {
	globalManager.txConflicts.WithLabelValues(backend).Inc()
}

// RecordTxFailure counts a transaction that exhausted its attempts.
func RecordTxFailure(backend string) {
	globalManager.txFailures.WithLabelValues(backend).Inc()
}

// RecordIngestDuplicate counts a duplicate delivery.
func RecordIngestDuplicate() {
	globalManager.ingestDuplicates.Inc()
}

// UpdateQueueSize sets the current queue length.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueRejected increments the rejected counter.
func RecordQueueRejected() {
	globalManager.queueRejected.Inc()
}

// RecordRedelivery counts a re-enqueued notification.
func RecordRedelivery() {
	globalManager.redeliveries.Inc()
}

// RecordDeliveryFailed counts an abandoned notification.
func RecordDeliveryFailed() {
	globalManager.deliveriesFailed.Inc()
}

// UpdateWorkerCount sets the number of running workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in seconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, seconds float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(seconds)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
