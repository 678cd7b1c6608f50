package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the sync core.
type Metrics struct {
	ConnectionUp      prometheus.Gauge
	ReconnectAttempts prometheus.Counter
	FramesDispatched  *prometheus.CounterVec
	FramesDropped     prometheus.Counter
	EventsReplayed    prometheus.Counter
	Assignments       *prometheus.CounterVec
	OracleLatency     prometheus.Histogram
	Window            *LatencyWindow
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		Window: NewLatencyWindow(256),
		ConnectionUp: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connection_up",
			Help:      "1 when the sync websocket is connected, 0 otherwise.",
		}),
		ReconnectAttempts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconnect_attempts_total",
			Help:      "Reconnect attempts made by the sync client.",
		}),
		FramesDispatched: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_dispatched_total",
			Help:      "Inbound frames dispatched by event type.",
		}, []string{"type"}),
		FramesDropped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_dropped_total",
			Help:      "Inbound frames dropped because they could not be parsed.",
		}),
		EventsReplayed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_replayed_total",
			Help:      "Events delivered through replay batches after reconnects.",
		}),
		Assignments: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assignments_total",
			Help:      "Automatic assignment cycles by outcome.",
		}, []string{"outcome"}),
		OracleLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "oracle_latency_ms",
			Help:      "Planning Oracle call latency in milliseconds.",
			Buckets:   []float64{100, 300, 700, 1500, 3000, 7000, 15000, 30000},
		}),
	}
}

func (m *Metrics) SetConnected(up bool) {
	if m == nil {
		return
	}
	if up {
		m.ConnectionUp.Set(1)
		return
	}
	m.ConnectionUp.Set(0)
}

func (m *Metrics) ObserveReconnectAttempt() {
	if m == nil {
		return
	}
	m.ReconnectAttempts.Inc()
}

func (m *Metrics) ObserveFrame(eventType string) {
	if m == nil {
		return
	}
	m.FramesDispatched.WithLabelValues(eventType).Inc()
}

func (m *Metrics) ObserveDroppedFrame() {
	if m == nil {
		return
	}
	m.FramesDropped.Inc()
}

func (m *Metrics) ObserveReplayedEvent() {
	if m == nil {
		return
	}
	m.EventsReplayed.Inc()
}

func (m *Metrics) ObserveAssignment(outcome string) {
	if m == nil {
		return
	}
	m.Assignments.WithLabelValues(outcome).Inc()
	m.Window.ObserveIndicator("assign_" + outcome)
}

func (m *Metrics) ObserveOracleLatency(d time.Duration) {
	if m == nil {
		return
	}
	m.OracleLatency.Observe(float64(d.Milliseconds()))
	m.Window.Observe(StageOraclePlan, float64(d.Milliseconds()))
}

func (m *Metrics) ObserveCommitLatency(d time.Duration) {
	if m == nil {
		return
	}
	m.Window.Observe(StageAssignCommit, float64(d.Milliseconds()))
}

func (m *Metrics) ObserveReconnectLatency(d time.Duration) {
	if m == nil {
		return
	}
	m.Window.Observe(StageReconnect, float64(d.Milliseconds()))
}

// LatencySnapshot backs the perf endpoint; safe on a nil receiver so the
// handler works when metrics are disabled in tests.
func (m *Metrics) LatencySnapshot() LatencySnapshot {
	if m == nil {
		return LatencySnapshot{GeneratedAt: time.Now().UTC()}
	}
	return m.Window.Snapshot()
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
