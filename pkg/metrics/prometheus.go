// Package metrics provides Prometheus metrics for the MCF estimation service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the MCF service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Estimation metrics
	estimations        *prometheus.CounterVec
	estimationLatency  prometheus.Histogram
	estimationSubjects prometheus.Histogram
	estimationTimes    prometheus.Histogram
	excludedSnapshots  prometheus.Counter

	// Bootstrap metrics
	bootstrapReplicates prometheus.Counter
	bootstrapLatency    prometheus.Histogram
	bootstrapWorkers    prometheus.Gauge

	// Result store metrics
	storedResults  prometheus.Gauge
	storeEvictions prometheus.Counter

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error metrics
	errorsByKind        *prometheus.CounterVec
	errorRateByEndpoint *prometheus.CounterVec

	// System Performance Metrics
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
		namespace:        "mcf",
		subsystem:        "estimator",
		histogramBuckets: []float64{0.1, 0.5, 1, 5, 10, 50, 100, 500, 1000, 5000, 10000},
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	// Initialize metrics
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
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.estimations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("estimations_total"),
		Help:        "Total number of estimation calls by point method, variance method and outcome",
		ConstLabels: labels,
	}, []string{"point_method", "var_method", "outcome"})

	m.estimationLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("estimation_latency_milliseconds"),
		Help:        "Histogram of end-to-end estimation latency in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	})

	m.estimationSubjects = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("estimation_subjects"),
		Help:        "Number of subjects per estimation call",
		Buckets:     prometheus.ExponentialBuckets(1, 4, 10),
		ConstLabels: labels,
	})

	m.estimationTimes = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("estimation_time_points"),
		Help:        "Number of distinct event times per estimation call",
		Buckets:     prometheus.ExponentialBuckets(1, 4, 10),
		ConstLabels: labels,
	})

	m.excludedSnapshots = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("degenerate_snapshots_excluded_total"),
		Help:        "Total number of degenerate risk set snapshots dropped by the exclude policy",
		ConstLabels: labels,
	})

	m.bootstrapReplicates = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("bootstrap_replicates_total"),
		Help:        "Total number of bootstrap replicates computed",
		ConstLabels: labels,
	})

	m.bootstrapLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("bootstrap_latency_milliseconds"),
		Help:        "Histogram of bootstrap run latency in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	})

	m.bootstrapWorkers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("bootstrap_workers"),
		Help:        "Number of workers used by the last bootstrap run",
		ConstLabels: labels,
	})

	m.storedResults = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("stored_results"),
		Help:        "Number of results held by the result store",
		ConstLabels: labels,
	})

	m.storeEvictions = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("store_evictions_total"),
		Help:        "Total number of results evicted from the result store",
		ConstLabels: labels,
	})

	// HTTP Performance Metrics - User experience indicators
	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("http_requests_total"),
			Help:        "Total number of HTTP requests by endpoint and method",
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("http_request_duration_milliseconds"),
			Help:        "HTTP request duration in milliseconds",
			Buckets:     m.histogramBuckets,
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorsByKind = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("errors_total"),
			Help:        "Total number of failed estimations by component and error kind",
			ConstLabels: labels,
		},
		[]string{"component", "kind"},
	)

	m.errorRateByEndpoint = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name("errors_by_endpoint_total"),
			Help:        "Total number of errors by endpoint, method and error type",
			ConstLabels: labels,
		},
		[]string{"endpoint", "method", "error_type"},
	)

	// System Performance Metrics
	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_memory_usage_bytes"),
		Help:        "System memory usage in bytes",
		ConstLabels: labels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_goroutine_count"),
		Help:        "Number of goroutines",
		ConstLabels: labels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_gc_pause_time_milliseconds"),
		Help:        "GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: labels,
	})
}

// Estimation Metrics Functions.

// RecordEstimation counts one estimation call with its outcome ("ok" or an error code).
func RecordEstimation(pointMethod, varMethod, outcome string) {
	if !globalManager.enabled {
		return
	}
	globalManager.estimations.WithLabelValues(pointMethod, varMethod, outcome).Inc()
}

// RecordEstimationLatency records end-to-end estimation latency in milliseconds.
func RecordEstimationLatency(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.estimationLatency.Observe(latencyMs)
}

// RecordEstimationShape records the subject and time point counts of a result.
func RecordEstimationShape(subjects, timePoints int) {
	if !globalManager.enabled {
		return
	}
	globalManager.estimationSubjects.Observe(float64(subjects))
	globalManager.estimationTimes.Observe(float64(timePoints))
}

// RecordExcludedSnapshots adds dropped degenerate snapshots.
func RecordExcludedSnapshots(n int) {
	if !globalManager.enabled || n <= 0 {
		return
	}
	globalManager.excludedSnapshots.Add(float64(n))
}

// Bootstrap Metrics Functions.

// RecordBootstrapReplicates adds completed bootstrap replicates.
func RecordBootstrapReplicates(n int) {
	if !globalManager.enabled || n <= 0 {
		return
	}
	globalManager.bootstrapReplicates.Add(float64(n))
}

// RecordBootstrapLatency records a bootstrap run latency in milliseconds.
func RecordBootstrapLatency(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.bootstrapLatency.Observe(latencyMs)
}

// UpdateBootstrapWorkers sets the worker count of the last bootstrap run.
func UpdateBootstrapWorkers(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.bootstrapWorkers.Set(float64(count))
}

// Result Store Metrics Functions.

// UpdateStoredResults sets the number of stored results.
func UpdateStoredResults(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.storedResults.Set(float64(count))
}

// RecordStoreEviction increments the eviction counter.
func RecordStoreEviction() {
	if !globalManager.enabled {
		return
	}
	globalManager.storeEvictions.Inc()
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error Metrics Functions.

// RecordError records a failure of component with the given error kind.
func RecordError(component, kind string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorsByKind.WithLabelValues(component, kind).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !globalManager.enabled {
		return
	}
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

// SetEnabled toggles collection on the global manager.
func SetEnabled(enabled bool) {
	globalManager.enabled = enabled
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
