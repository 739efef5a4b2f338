// Package metrics provides Prometheus metrics for the elovote service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultRefreshInterval = 5 * time.Second
)

// Vote results used as label values.
const (
	VoteCommitted   = "committed"
	VoteConflict    = "conflict"
	VoteUnavailable = "unavailable"
	VoteRejected    = "rejected"
)

// Manager owns every collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshInterval  time.Duration
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Rating engine
	votes         *prometheus.CounterVec
	voteRetries   prometheus.Counter
	ratingDelta   prometheus.Histogram
	pairsServed   prometheus.Counter
	pairsEmpty    prometheus.Counter
	itemsTotal    prometheus.Gauge
	voteLatency   prometheus.Histogram
	sessionsLive  prometheus.Gauge
	sessionsTotal prometheus.Counter
	sessionsEvict prometheus.Counter

	// Store
	storeLatency *prometheus.HistogramVec
	storeErrors  *prometheus.CounterVec

	// Vote history pipeline
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueEnqueued    prometheus.Counter
	queueDequeued    prometheus.Counter
	queueDropped     *prometheus.CounterVec
	workerCount      prometheus.Gauge
	workerLatency    prometheus.Histogram
	workerErrors     prometheus.Counter
	historyRecorded  prometheus.Counter
	exportRuns       *prometheus.CounterVec
	exportLastUnix   prometheus.Gauge
	exportLastLength prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // private registry without default Go collectors

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "elovote",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		refreshInterval:  defaultRefreshInterval,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

// RefreshInterval is how often periodic gauges should be refreshed.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

// RefreshInterval returns the global manager's gauge refresh interval.
func RefreshInterval() time.Duration { return globalManager.RefreshInterval() }

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

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	m.votes = m.counterVec("votes_total", "Votes handled, by result", "result")
	m.voteRetries = m.counter("vote_retries_total", "Votes recomputed after a version conflict")
	m.ratingDelta = m.histogram("rating_delta_points", "Absolute rounded rating change of the winner per vote",
		[]float64{1, 2, 4, 8, 12, 15, 20, 25, 30})
	m.pairsServed = m.counter("pairs_served_total", "Comparisons handed to voters")
	m.pairsEmpty = m.counter("pairs_empty_total", "Pair requests that found fewer than two items")
	m.itemsTotal = m.gauge("items_total", "Items in the most recent snapshot read")
	m.voteLatency = m.histogram("vote_latency_milliseconds", "End-to-end vote latency including store round trips", m.histogramBuckets)
	m.sessionsLive = m.gauge("sessions_active", "Voting sessions currently registered")
	m.sessionsTotal = m.counter("sessions_started_total", "Voting sessions started")
	m.sessionsEvict = m.counter("sessions_evicted_total", "Idle voting sessions evicted")

	m.storeLatency = m.histogramVec("store_operation_latency_milliseconds", "Store operation latency", "backend", "operation")
	m.storeErrors = m.counterVec("store_errors_total", "Store errors by backend, operation and kind", "backend", "operation", "kind")

	m.queueSize = m.gauge("history_queue_size", "Vote records waiting to be recorded")
	m.queueCapacity = m.gauge("history_queue_capacity", "Vote record queue capacity")
	m.queueEnqueued = m.counter("history_queue_enqueued_total", "Vote records enqueued")
	m.queueDequeued = m.counter("history_queue_dequeued_total", "Vote records dequeued")
	m.queueDropped = m.counterVec("history_queue_dropped_total", "Vote records dropped, by reason", "reason")
	m.workerCount = m.gauge("history_worker_count", "History workers running")
	m.workerLatency = m.histogram("history_worker_latency_milliseconds", "Time to record one vote", m.histogramBuckets)
	m.workerErrors = m.counter("history_worker_errors_total", "Vote records that failed to be recorded")
	m.historyRecorded = m.counter("history_recorded_total", "Vote records stored in history")

	m.exportRuns = m.counterVec("export_runs_total", "Scheduled leaderboard exports, by result", "result")
	m.exportLastUnix = m.gauge("export_last_unix", "Unix time of the last successful export")
	m.exportLastLength = m.gauge("export_last_items", "Items written by the last successful export")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration", "endpoint", "method", "status_code")
	m.httpErrors = m.counterVec("http_errors_total", "HTTP error responses by endpoint and type", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "Average GC pause time",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordVote counts a vote by result.
func RecordVote(result string) { globalManager.votes.WithLabelValues(result).Inc() }

// RecordVoteRetry counts a vote recomputed after a conflict.
func RecordVoteRetry() { globalManager.voteRetries.Inc() }

// RecordRatingDelta observes the winner's absolute rating change.
func RecordRatingDelta(delta float64) {
	if delta < 0 {
		delta = -delta
	}
	globalManager.ratingDelta.Observe(delta)
}

// RecordVoteLatency observes end-to-end vote latency.
func RecordVoteLatency(d time.Duration) {
	globalManager.voteLatency.Observe(float64(d.Microseconds()) / 1000)
}

// RecordPairServed counts a comparison handed out.
func RecordPairServed() { globalManager.pairsServed.Inc() }

// RecordPairEmpty counts a pair request that found fewer than two items.
func RecordPairEmpty() { globalManager.pairsEmpty.Inc() }

// UpdateItemsTotal sets the item count seen by the latest read.
func UpdateItemsTotal(n int) { globalManager.itemsTotal.Set(float64(n)) }

// UpdateSessionsActive sets the registered session count.
func UpdateSessionsActive(n int) { globalManager.sessionsLive.Set(float64(n)) }

// RecordSessionStarted counts a new session.
func RecordSessionStarted() { globalManager.sessionsTotal.Inc() }

// RecordSessionEvicted counts n evicted idle sessions.
func RecordSessionEvicted(n int) { globalManager.sessionsEvict.Add(float64(n)) }

// RecordStoreLatency observes one store operation.
func RecordStoreLatency(backend, op string, d time.Duration) {
	globalManager.storeLatency.WithLabelValues(backend, op).Observe(float64(d.Microseconds()) / 1000)
}

// RecordStoreError counts a failed store operation.
func RecordStoreError(backend, op, kind string) {
	globalManager.storeErrors.WithLabelValues(backend, op, kind).Inc()
}

// UpdateQueueSize sets the current history queue length.
func UpdateQueueSize(n int) { globalManager.queueSize.Set(float64(n)) }

// UpdateQueueCapacity sets the history queue capacity.
func UpdateQueueCapacity(n int) { globalManager.queueCapacity.Set(float64(n)) }

// RecordQueueEnqueue counts an enqueued vote record.
func RecordQueueEnqueue() { globalManager.queueEnqueued.Inc() }

// RecordQueueDequeue counts a dequeued vote record.
func RecordQueueDequeue() { globalManager.queueDequeued.Inc() }

// RecordQueueDrop counts a dropped vote record.
func RecordQueueDrop(reason string) { globalManager.queueDropped.WithLabelValues(reason).Inc() }

// UpdateWorkerCount sets the number of history workers.
func UpdateWorkerCount(n int) { globalManager.workerCount.Set(float64(n)) }

// RecordWorkerLatency observes the time to record one vote.
func RecordWorkerLatency(d time.Duration) {
	globalManager.workerLatency.Observe(float64(d.Microseconds()) / 1000)
}

// RecordWorkerError counts a failed history write.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// RecordHistoryRecorded counts a stored vote record.
func RecordHistoryRecorded() { globalManager.historyRecorded.Inc() }

// RecordExport counts an export run and, on success, its size and time.
func RecordExport(result string, items int) {
	globalManager.exportRuns.WithLabelValues(result).Inc()
	if result == "ok" {
		globalManager.exportLastUnix.Set(float64(time.Now().Unix()))
		globalManager.exportLastLength.Set(float64(items))
	}
}

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration observes HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordHTTPError counts an HTTP error response.
func RecordHTTPError(endpoint, method, errorType string) {
	globalManager.httpErrors.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// RecordSystemGCPauseTime observes an average GC pause in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) { globalManager.systemGCPauseTime.Observe(pauseMs) }

// GetRegistry returns the private registry holding every collector.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
