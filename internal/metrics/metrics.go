package metrics

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics
type Metrics struct {
	// Frame loop counters
	FramesRead      atomic.Uint64
	FramesProcessed atomic.Uint64
	FramesFailed    atomic.Uint64
	DegradedFrames  atomic.Uint64

	// Error counters
	ReadErrors   atomic.Uint64
	DetectErrors atomic.Uint64
	EngineFaults atomic.Uint64

	// Detection pipeline
	RawDetections     atomic.Uint64
	Candidates        atomic.Uint64
	ConflictsResolved atomic.Uint64

	// Latest compliance summary
	People     atomic.Int64
	Violations atomic.Int64

	ProcessLatencyMs atomic.Uint64

	// Viewers
	StreamClients atomic.Int64
	StatusClients atomic.Int64

	rejections *prometheus.CounterVec
	registry   *prometheus.Registry
}

// New creates a new Metrics instance with Prometheus collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ppe_filter_rejections_total",
			Help: "Detections rejected by the candidate filter, by rule",
		}, []string{"rule"}),
	}

	m.registry.MustRegister(m.rejections)
	m.registerPrometheusMetrics()

	return m
}

func (m *Metrics) gauge(name, help string, value func() float64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, value))
}

func uint64Value(v *atomic.Uint64) func() float64 {
	return func() float64 { return float64(v.Load()) }
}

func int64Value(v *atomic.Int64) func() float64 {
	return func() float64 { return float64(v.Load()) }
}

// registerPrometheusMetrics registers all metrics with Prometheus
func (m *Metrics) registerPrometheusMetrics() {
	m.gauge("ppe_frames_read_total", "Total frames read from the camera", uint64Value(&m.FramesRead))
	m.gauge("ppe_frames_processed_total", "Total frames run through the engine", uint64Value(&m.FramesProcessed))
	m.gauge("ppe_frames_failed_total", "Total frame loop iterations that failed", uint64Value(&m.FramesFailed))
	m.gauge("ppe_frames_degraded_total", "Total frames rendered without a detection model", uint64Value(&m.DegradedFrames))

	m.gauge("ppe_read_errors_total", "Total camera read errors", uint64Value(&m.ReadErrors))
	m.gauge("ppe_detect_errors_total", "Total detection model errors", uint64Value(&m.DetectErrors))
	m.gauge("ppe_engine_faults_total", "Total frames the engine degraded to no candidates", uint64Value(&m.EngineFaults))

	m.gauge("ppe_raw_detections_total", "Total detections reported by the model", uint64Value(&m.RawDetections))
	m.gauge("ppe_candidates_total", "Total candidates after conflict resolution", uint64Value(&m.Candidates))
	m.gauge("ppe_conflicts_resolved_total", "Total contradicting candidates dropped", uint64Value(&m.ConflictsResolved))

	m.gauge("ppe_people", "People in the latest frame", int64Value(&m.People))
	m.gauge("ppe_violations", "Violations in the latest frame", int64Value(&m.Violations))

	m.gauge("ppe_process_latency_ms", "Latest frame processing latency in milliseconds", uint64Value(&m.ProcessLatencyMs))

	m.gauge("ppe_stream_clients", "Connected MJPEG viewers", int64Value(&m.StreamClients))
	m.gauge("ppe_status_clients", "Connected status websocket viewers", int64Value(&m.StatusClients))
}

// Reject counts one filter rejection.
func (m *Metrics) Reject(rule string) {
	m.rejections.WithLabelValues(rule).Inc()
}

// UpdateProcessLatency records the latest processing latency
func (m *Metrics) UpdateProcessLatency(duration time.Duration) {
	m.ProcessLatencyMs.Store(uint64(duration.Milliseconds()))
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
