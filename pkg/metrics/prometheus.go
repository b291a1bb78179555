package metrics

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	subsystem             = "analysis"
	defaultSampleInterval = 10 * time.Second
)

// DefaultLatencyBuckets are the histogram bounds in milliseconds. Analyses
// take well under a millisecond; profile fetches take seconds.
var DefaultLatencyBuckets = []float64{0.1, 0.5, 1, 5, 10, 50, 100, 500, 1000, 2500, 5000, 10000} //nolint:gochecknoglobals // default

// Outcome labels.
const (
	OutcomeOK           = "ok"
	OutcomeInsufficient = "insufficient_data"
	OutcomeNotFound     = "not_found"
	OutcomeNoData       = "no_data"
	OutcomeError        = "error"
)

// Manager owns the Prometheus collectors of the service.
type Manager struct {
	namespace      string
	latencyBuckets []float64
	sampleInterval time.Duration
	constLabels    map[string]string
	registry       prometheus.Registerer

	// Observation intake
	observationsAdded    *prometheus.CounterVec
	observationsDup      prometheus.Counter
	observationsRejected *prometheus.CounterVec
	parseFailures        prometheus.Counter

	// Analyses
	analyses         *prometheus.CounterVec
	analysisLatency  *prometheus.HistogramVec
	lookupsNotFound  prometheus.Counter
	profileImports   *prometheus.CounterVec
	profileFetchTime prometheus.Histogram

	// State
	sessions             prometheus.Gauge
	scoreTableRows       prometheus.Gauge
	scoreTableSkipped    *prometheus.CounterVec
	scoreTableViolations prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByComponent   *prometheus.CounterVec

	// Runtime
	goroutines  prometheus.Gauge
	heapInUse   prometheus.Gauge
	gcPauseLast prometheus.Gauge
}

type global struct {
	manager  *Manager
	registry *prometheus.Registry
}

var current atomic.Pointer[global] //nolint:gochecknoglobals // process-wide metrics

func init() {
	if err := Init(); err != nil {
		panic(err)
	}
}

// Init replaces the process-wide manager with one built from opts on a
// fresh registry, which GetRegistry then returns. Call it once at startup,
// before serving.
func Init(opts ...Option) error {
	reg := prometheus.NewRegistry()
	m, err := newManagerSafe(append(opts, WithRegistry(reg))...)
	if err != nil {
		return err
	}
	current.Store(&global{manager: m, registry: reg})
	return nil
}

// newManagerSafe turns registration panics, such as unsorted buckets or
// invalid label names, into errors.
func newManagerSafe(opts ...Option) (m *Manager, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("metrics: %v", r)
		}
	}()
	return NewManager(opts...), nil
}

func manager() *Manager { return current.Load().manager }

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:      "paceline",
		latencyBuckets: DefaultLatencyBuckets,
		sampleInterval: defaultSampleInterval,
		constLabels:    map[string]string{},
		registry:       prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.latencyBuckets,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of collectors
	auto := promauto.With(m.registry)

	m.observationsAdded = auto.NewCounterVec(
		m.counterOpts("observations_added_total", "Observations stored in a session, by source"),
		[]string{"source"},
	)
	m.observationsDup = auto.NewCounter(
		m.counterOpts("observations_duplicate_total", "Observations dropped as duplicates"),
	)
	m.observationsRejected = auto.NewCounterVec(
		m.counterOpts("observations_rejected_total", "Observations rejected, by reason"),
		[]string{"reason"},
	)
	m.parseFailures = auto.NewCounter(
		m.counterOpts("time_parse_failures_total", "Time strings that did not parse"),
	)

	m.analyses = auto.NewCounterVec(
		m.counterOpts("analyses_total", "Model computations by kind and outcome"),
		[]string{"kind", "outcome"},
	)
	m.analysisLatency = auto.NewHistogramVec(
		m.histogramOpts("analysis_latency_milliseconds", "Model computation latency in milliseconds"),
		[]string{"kind"},
	)
	m.lookupsNotFound = auto.NewCounter(
		m.counterOpts("score_lookups_not_found_total", "Score lookups without reference rows"),
	)
	m.profileImports = auto.NewCounterVec(
		m.counterOpts("profile_imports_total", "Profile page imports by outcome"),
		[]string{"outcome"},
	)
	m.profileFetchTime = auto.NewHistogram(
		m.histogramOpts("profile_fetch_latency_milliseconds", "Profile page fetch latency in milliseconds"),
	)

	m.sessions = auto.NewGauge(m.gaugeOpts("sessions", "Open sessions"))
	m.scoreTableRows = auto.NewGauge(m.gaugeOpts("score_table_rows", "Rows in the loaded score table"))
	m.scoreTableSkipped = auto.NewCounterVec(
		m.counterOpts("score_table_skipped_rows_total", "Score table rows skipped at load, by reason"),
		[]string{"reason"},
	)
	m.scoreTableViolations = auto.NewGauge(
		m.gaugeOpts("score_table_violations", "Score table groups whose points rise with time"),
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "HTTP requests by endpoint, method and status"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.errorsByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Errors by component and type"),
		[]string{"component", "error_type"},
	)

	m.goroutines = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.heapInUse = auto.NewGauge(m.gaugeOpts("system_heap_inuse_bytes", "Heap bytes in use"))
	m.gcPauseLast = auto.NewGauge(m.gaugeOpts("system_gc_last_pause_milliseconds", "Most recent GC pause"))
}

// RecordObservationAdded counts a stored observation.
func (m *Manager) RecordObservationAdded(source string) {
	m.observationsAdded.WithLabelValues(source).Inc()
}

// RecordObservationDuplicate counts a duplicate observation.
func (m *Manager) RecordObservationDuplicate() { m.observationsDup.Inc() }

// RecordObservationRejected counts a rejected observation.
func (m *Manager) RecordObservationRejected(reason string) {
	m.observationsRejected.WithLabelValues(reason).Inc()
}

// RecordParseFailure counts a time string that was not a time.
func (m *Manager) RecordParseFailure() { m.parseFailures.Inc() }

// RecordAnalysis counts a computation and records its latency.
func (m *Manager) RecordAnalysis(kind, outcome string, latencyMs float64) {
	m.analyses.WithLabelValues(kind, outcome).Inc()
	m.analysisLatency.WithLabelValues(kind).Observe(latencyMs)
}

// RecordLookupNotFound counts a score lookup without reference rows.
func (m *Manager) RecordLookupNotFound() { m.lookupsNotFound.Inc() }

// RecordProfileImport counts a profile import and its fetch latency.
func (m *Manager) RecordProfileImport(outcome string, latencyMs float64) {
	m.profileImports.WithLabelValues(outcome).Inc()
	m.profileFetchTime.Observe(latencyMs)
}

// UpdateSessions sets the open session count.
func (m *Manager) UpdateSessions(n int) { m.sessions.Set(float64(n)) }

// UpdateScoreTable publishes the size and quality of the loaded table.
func (m *Manager) UpdateScoreTable(rows, violations int) {
	m.scoreTableRows.Set(float64(rows))
	m.scoreTableViolations.Set(float64(violations))
}

// RecordScoreTableSkipped counts skipped score table rows.
func (m *Manager) RecordScoreTableSkipped(reason string, n int) {
	m.scoreTableSkipped.WithLabelValues(reason).Add(float64(n))
}

// RecordHTTPRequest counts a request and records its duration.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByComponent counts an error.
func (m *Manager) RecordErrorByComponent(component, errorType string) {
	m.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// SampleRuntime updates the runtime gauges once.
func (m *Manager) SampleRuntime() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	m.goroutines.Set(float64(runtime.NumGoroutine()))
	m.heapInUse.Set(float64(ms.HeapInuse))
	if ms.NumGC > 0 {
		last := ms.PauseNs[(ms.NumGC+255)%256]
		m.gcPauseLast.Set(float64(last) / float64(time.Millisecond))
	}
}

// RunRuntimeSampler samples runtime gauges every sample interval until ctx
// is done.
func (m *Manager) RunRuntimeSampler(ctx context.Context) {
	t := time.NewTicker(m.sampleInterval)
	defer t.Stop()
	m.SampleRuntime()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.SampleRuntime()
		}
	}
}

// Global shortcuts over the default manager.

// RecordObservationAdded counts a stored observation.
func RecordObservationAdded(source string) { manager().RecordObservationAdded(source) }

// RecordObservationDuplicate counts a duplicate observation.
func RecordObservationDuplicate() { manager().RecordObservationDuplicate() }

// RecordObservationRejected counts a rejected observation.
func RecordObservationRejected(reason string) { manager().RecordObservationRejected(reason) }

// RecordParseFailure counts a time string that was not a time.
func RecordParseFailure() { manager().RecordParseFailure() }

// RecordAnalysis counts a computation and records its latency.
func RecordAnalysis(kind, outcome string, latencyMs float64) {
	manager().RecordAnalysis(kind, outcome, latencyMs)
}

// RecordLookupNotFound counts a score lookup without reference rows.
func RecordLookupNotFound() { manager().RecordLookupNotFound() }

// RecordProfileImport counts a profile import and its fetch latency.
func RecordProfileImport(outcome string, latencyMs float64) {
	manager().RecordProfileImport(outcome, latencyMs)
}

// UpdateSessions sets the open session count.
func UpdateSessions(n int) { manager().UpdateSessions(n) }

// UpdateScoreTable publishes the size and quality of the loaded table.
func UpdateScoreTable(rows, violations int) { manager().UpdateScoreTable(rows, violations) }

// RecordScoreTableSkipped counts skipped score table rows.
func RecordScoreTableSkipped(reason string, n int) { manager().RecordScoreTableSkipped(reason, n) }

// RecordHTTPRequest counts a request and records its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	manager().RecordHTTPRequest(endpoint, method, statusCode, durationMs)
}

// RecordErrorByComponent counts an error.
func RecordErrorByComponent(component, errorType string) {
	manager().RecordErrorByComponent(component, errorType)
}

// RunRuntimeSampler samples runtime gauges of the default manager.
func RunRuntimeSampler(ctx context.Context) { manager().RunRuntimeSampler(ctx) }

// GetRegistry returns the registry of the process-wide manager.
func GetRegistry() *prometheus.Registry {
	return current.Load().registry
}
