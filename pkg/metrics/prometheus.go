package metrics

import (
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval    = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

// Manager manages all Prometheus metrics for the catalog service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Catalog Metrics
	recordsTotal     prometheus.Gauge
	columnsTotal     prometheus.Gauge
	appendsTotal     prometheus.Counter
	appendsDuplicate prometheus.Counter
	columnsAdded     prometheus.Counter

	// Query Metrics
	queryLatency *prometheus.HistogramVec
	rowsMatched  *prometheus.HistogramVec

	// Scoring Metrics
	scoringMinVotes   prometheus.Gauge
	scoringMeanRating prometheus.Gauge
	scoredRecords     prometheus.Gauge

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error Metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "cinescope",
		subsystem:        "catalog",
		histogramBuckets: prometheus.DefBuckets,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
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

func (m *Manager) name(n string) string { return m.metricPrefix + n }

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.recordsTotal = auto.NewGauge(m.gaugeOpts("records_total", "Number of movie records held in the store"))
	m.columnsTotal = auto.NewGauge(m.gaugeOpts("columns_total", "Number of columns in the store schema"))
	m.appendsTotal = auto.NewCounter(m.counterOpts("appends_total", "Total number of records appended after load"))
	m.appendsDuplicate = auto.NewCounter(m.counterOpts("appends_duplicate_total", "Total number of appends skipped by idempotency key"))
	m.columnsAdded = auto.NewCounter(m.counterOpts("columns_added_total", "Total number of columns introduced by appends"))

	m.queryLatency = auto.NewHistogramVec(
		m.histogramOpts("query_latency_milliseconds", "Catalog read latency in milliseconds by operation", m.histogramBuckets),
		[]string{"operation"},
	)
	m.rowsMatched = auto.NewHistogramVec(
		m.histogramOpts("rows_matched", "Rows matched by a filter or search before the limit is applied", prometheus.ExponentialBuckets(1, 4, 10)),
		[]string{"operation"},
	)

	m.scoringMinVotes = auto.NewGauge(m.gaugeOpts("scoring_min_votes", "Vote-count threshold m used by the last weighted rating computation"))
	m.scoringMeanRating = auto.NewGauge(m.gaugeOpts("scoring_mean_rating", "Mean rating C used by the last weighted rating computation"))
	m.scoredRecords = auto.NewGauge(m.gaugeOpts("scoring_scored_records", "Records that received a score in the last computation"))

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Total number of errors by component"),
		[]string{"component", "error_type"},
	)
	m.errorRateByType = auto.NewCounterVec(
		m.counterOpts("errors_by_type_total", "Total number of errors by type"),
		[]string{"error_type", "severity"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Total number of errors by endpoint"),
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts(
		"system_gc_pause_time_milliseconds",
		"GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	))
}

// Catalog Metrics Functions.

// UpdateRecordsTotal sets the number of stored records.
func UpdateRecordsTotal(count int) {
	globalManager.recordsTotal.Set(float64(count))
}

// UpdateColumnsTotal sets the number of schema columns.
func UpdateColumnsTotal(count int) {
	globalManager.columnsTotal.Set(float64(count))
}

// RecordAppend increments the appended records counter.
func RecordAppend() {
	globalManager.appendsTotal.Inc()
}

// RecordDuplicateAppend increments the duplicate append counter.
func RecordDuplicateAppend() {
	globalManager.appendsDuplicate.Inc()
}

// RecordColumnsAdded adds n to the columns introduced by appends.
func RecordColumnsAdded(n int) {
	globalManager.columnsAdded.Add(float64(n))
}

// Query Metrics Functions.

// RecordQueryLatency records the latency of a catalog read.
func RecordQueryLatency(operation string, latencyMs float64) {
	globalManager.queryLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordRowsMatched records how many rows a filter matched.
func RecordRowsMatched(operation string, n int) {
	globalManager.rowsMatched.WithLabelValues(operation).Observe(float64(n))
}

// ObserveSince records the latency of operation measured from start.
func ObserveSince(operation string, start time.Time) {
	RecordQueryLatency(operation, float64(time.Since(start).Nanoseconds())/nanosecondsPerMillisecond)
}

// Scoring Metrics Functions.

// UpdateScoringThresholds publishes the derived scoring constants.
func UpdateScoringThresholds(minVotes, meanRating float64, scored int) error {
	if math.IsNaN(minVotes) || math.IsInf(minVotes, 0) || math.IsNaN(meanRating) || math.IsInf(meanRating, 0) {
		return fmt.Errorf("%w: m=%v C=%v", ErrInvalidThreshold, minVotes, meanRating)
	}
	globalManager.scoringMinVotes.Set(minVotes)
	globalManager.scoringMeanRating.Set(meanRating)
	globalManager.scoredRecords.Set(float64(scored))
	return nil
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error Metrics Functions.

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

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
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

// CollectSystemMetrics samples the runtime and updates the system gauges.
func CollectSystemMetrics() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	UpdateSystemMemoryUsage(ms.Alloc)
	UpdateSystemGoroutineCount(runtime.NumGoroutine())
	if ms.NumGC > 0 {
		RecordSystemGCPauseTime(float64(ms.PauseTotalNs) / float64(ms.NumGC) / nanosecondsPerMillisecond)
	}
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// RefreshInterval returns the refresh interval of the global manager.
func RefreshInterval() time.Duration {
	return globalManager.RefreshInterval()
}
