// Package metrics provides Prometheus metrics for the tatami scheduling service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Scheduling
	placementsCommitted *prometheus.CounterVec
	placementsRejected  *prometheus.CounterVec
	conflictWarnings    *prometheus.CounterVec
	autopackBatches     *prometheus.CounterVec
	autopackPlaced      *prometheus.CounterVec
	autopackOverflow    *prometheus.CounterVec
	autopackDuration    *prometheus.HistogramVec
	commandsDuplicate   prometheus.Counter
	tournamentsLoaded   prometheus.Gauge

	// Assignment store
	repositoryRecords       *prometheus.GaugeVec
	repositoryUpdateLatency prometheus.Histogram
	repositoryQueryLatency  prometheus.Histogram

	// Persistence
	persistenceSaves   *prometheus.CounterVec
	persistenceLoads   *prometheus.CounterVec
	persistenceErrors  *prometheus.CounterVec
	persistenceLatency *prometheus.HistogramVec

	// Write-behind queue
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueueRate       prometheus.Counter
	queueDequeueRate       prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerIdleCount         prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrorRate         prometheus.Counter
	workerStaleSkips        prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "tatami",
		subsystem:        "scheduler",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) gauge(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.HistogramOpts {
	if buckets == nil {
		buckets = m.histogramBuckets
	}
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets, ConstLabels: m.constLabels}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric
	auto := promauto.With(m.registry)

	m.placementsCommitted = auto.NewCounterVec(
		m.counter("placements_committed_total", "Placements accepted into the assignment store"),
		[]string{"tournament"},
	)
	m.placementsRejected = auto.NewCounterVec(
		m.counter("placements_rejected_total", "Placements refused because of a hard slot clash"),
		[]string{"tournament"},
	)
	m.conflictWarnings = auto.NewCounterVec(
		m.counter("conflict_warnings_total", "Conflict warnings produced by evaluation"),
		[]string{"type", "severity"},
	)
	m.autopackBatches = auto.NewCounterVec(
		m.counter("autopack_batches_total", "Auto-pack runs by mode"),
		[]string{"mode"},
	)
	m.autopackPlaced = auto.NewCounterVec(
		m.counter("autopack_placed_total", "Categories placed by auto-pack"),
		[]string{"mode"},
	)
	m.autopackOverflow = auto.NewCounterVec(
		m.counter("autopack_overflow_total", "Categories placed past grid capacity"),
		[]string{"mode"},
	)
	m.autopackDuration = auto.NewHistogramVec(
		m.histogram("autopack_duration_milliseconds", "Auto-pack run duration in milliseconds", nil),
		[]string{"mode"},
	)
	m.commandsDuplicate = auto.NewCounter(
		m.counter("commands_duplicate_total", "Mutating requests replayed with a known command id"),
	)
	m.tournamentsLoaded = auto.NewGauge(
		m.gauge("tournaments_loaded", "Tournaments with a live scheduler in memory"),
	)

	m.repositoryRecords = auto.NewGaugeVec(
		m.gauge("repository_records", "Assigned categories per tournament"),
		[]string{"tournament"},
	)
	m.repositoryUpdateLatency = auto.NewHistogram(
		m.histogram("repository_update_latency_milliseconds", "Assignment store write latency in milliseconds", nil),
	)
	m.repositoryQueryLatency = auto.NewHistogram(
		m.histogram("repository_query_latency_milliseconds", "Assignment store projection latency in milliseconds", nil),
	)

	m.persistenceSaves = auto.NewCounterVec(
		m.counter("persistence_saves_total", "Schedule records written by backend"),
		[]string{"backend"},
	)
	m.persistenceLoads = auto.NewCounterVec(
		m.counter("persistence_loads_total", "Schedule record loads by backend and result"),
		[]string{"backend", "result"},
	)
	m.persistenceErrors = auto.NewCounterVec(
		m.counter("persistence_errors_total", "Persistence failures by backend and operation"),
		[]string{"backend", "op"},
	)
	m.persistenceLatency = auto.NewHistogramVec(
		m.histogram("persistence_latency_milliseconds", "Persistence operation latency in milliseconds", nil),
		[]string{"backend", "op"},
	)

	m.queueSize = auto.NewGauge(m.gauge("queue_size", "Pending save jobs"))
	m.queueCapacity = auto.NewGauge(m.gauge("queue_capacity", "Maximum save queue capacity"))
	m.queueUtilization = auto.NewGauge(m.gauge("queue_utilization_ratio", "Queue utilization ratio (size / capacity)"))
	m.queueEnqueueRate = auto.NewCounter(m.counter("queue_enqueue_total", "Save jobs enqueued"))
	m.queueDequeueRate = auto.NewCounter(m.counter("queue_dequeue_total", "Save jobs dequeued"))
	m.queueEnqueueErrors = auto.NewCounter(m.counter("queue_enqueue_errors_total", "Save jobs that could not be enqueued"))
	m.queueProcessingLatency = auto.NewHistogram(
		m.histogram("queue_processing_latency_milliseconds", "Time a save job spent queued in milliseconds", nil),
	)

	m.workerCount = auto.NewGauge(m.gauge("worker_count", "Configured persistence workers"))
	m.workerActiveCount = auto.NewGauge(m.gauge("worker_active_count", "Persistence workers currently saving"))
	m.workerIdleCount = auto.NewGauge(m.gauge("worker_idle_count", "Persistence workers waiting for jobs"))
	m.workerProcessingLatency = auto.NewHistogram(
		m.histogram("worker_processing_latency_milliseconds", "Worker save latency in milliseconds", nil),
	)
	m.workerErrorRate = auto.NewCounter(m.counter("worker_errors_total", "Worker save failures"))
	m.workerStaleSkips = auto.NewCounter(m.counter("worker_stale_skips_total", "Save jobs skipped because a newer revision was already written"))

	m.httpRequests = auto.NewCounterVec(
		m.counter("http_requests_total", "HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogram("http_request_duration_milliseconds", "HTTP request duration in milliseconds", nil),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = auto.NewCounterVec(
		m.counter("errors_by_component_total", "Errors by component"),
		[]string{"component", "error_type"},
	)
	m.errorRateByType = auto.NewCounterVec(
		m.counter("errors_by_type_total", "Errors by type and severity"),
		[]string{"error_type", "severity"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counter("errors_by_endpoint_total", "Errors by endpoint"),
		[]string{"endpoint", "method", "error_type"},
	)
	m.errorLatency = auto.NewHistogramVec(
		m.histogram("error_latency_milliseconds", "Latency of operations that resulted in errors", nil),
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gauge("system_memory_usage_bytes", "Heap memory in use in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gauge("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(
		m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
			[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}),
	)
}

// RecordPlacementCommitted counts an accepted placement.
func RecordPlacementCommitted(tournament string) {
	globalManager.placementsCommitted.WithLabelValues(tournament).Inc()
}

// RecordPlacementRejected counts a placement refused for a hard clash.
func RecordPlacementRejected(tournament string) {
	globalManager.placementsRejected.WithLabelValues(tournament).Inc()
}

// RecordConflictWarning counts one warning by type and severity.
func RecordConflictWarning(conflictType, severity string) {
	globalManager.conflictWarnings.WithLabelValues(conflictType, severity).Inc()
}

// RecordAutoPack records one auto-pack run.
func RecordAutoPack(mode string, placed, overflow int, durationMs float64) {
	globalManager.autopackBatches.WithLabelValues(mode).Inc()
	globalManager.autopackPlaced.WithLabelValues(mode).Add(float64(placed))
	globalManager.autopackOverflow.WithLabelValues(mode).Add(float64(overflow))
	globalManager.autopackDuration.WithLabelValues(mode).Observe(durationMs)
}

// RecordCommandDuplicate counts a replayed command id.
func RecordCommandDuplicate() {
	globalManager.commandsDuplicate.Inc()
}

// UpdateTournamentsLoaded sets the number of live schedulers.
func UpdateTournamentsLoaded(count int) {
	globalManager.tournamentsLoaded.Set(float64(count))
}

// UpdateRepositoryRecords sets the number of assigned categories for a tournament.
func UpdateRepositoryRecords(tournament string, count int) {
	globalManager.repositoryRecords.WithLabelValues(tournament).Set(float64(count))
}

// RecordRepositoryUpdateLatency records assignment store write latency.
func RecordRepositoryUpdateLatency(latencyMs float64) {
	globalManager.repositoryUpdateLatency.Observe(latencyMs)
}

// RecordRepositoryQueryLatency records assignment store projection latency.
func RecordRepositoryQueryLatency(latencyMs float64) {
	globalManager.repositoryQueryLatency.Observe(latencyMs)
}

// RecordPersistenceSave counts a written schedule record.
func RecordPersistenceSave(backend string, latencyMs float64) {
	globalManager.persistenceSaves.WithLabelValues(backend).Inc()
	globalManager.persistenceLatency.WithLabelValues(backend, "save").Observe(latencyMs)
}

// RecordPersistenceLoad counts a load attempt; result is hit, miss or error.
func RecordPersistenceLoad(backend, result string, latencyMs float64) {
	globalManager.persistenceLoads.WithLabelValues(backend, result).Inc()
	globalManager.persistenceLatency.WithLabelValues(backend, "load").Observe(latencyMs)
}

// RecordPersistenceError counts a failed persistence operation.
func RecordPersistenceError(backend, op string) {
	globalManager.persistenceErrors.WithLabelValues(backend, op).Inc()
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordQueueProcessingLatency records how long a job waited in the queue.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of active workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// UpdateWorkerIdleCount sets the number of idle workers.
func UpdateWorkerIdleCount(count int) {
	globalManager.workerIdleCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker save latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrorRate.Inc()
}

// RecordWorkerStaleSkip counts a job dropped because its revision was already written.
func RecordWorkerStaleSkip() {
	globalManager.workerStaleSkips.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// UpdateSystemMemoryUsage sets the heap memory in use.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
