package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tcs"

// Outcome label values.
const (
	OutcomeSuccess  = "success"
	OutcomeWarning  = "warning"
	OutcomeError    = "error"
	OutcomeSent     = "sent"
	OutcomeTimeout  = "timeout"
	OutcomeIOError  = "io_error"
	OutcomeProtocol = "protocol_error"
)

// ClientMetrics records request traffic of a TCS client.
type ClientMetrics struct {
	requestsTotal   *prometheus.CounterVec   // By command and outcome
	requestDuration *prometheus.HistogramVec // By command
	timeoutsTotal   prometheus.Counter
	discardedTotal  prometheus.Counter
	connected       prometheus.Gauge
}

// NewClientMetrics creates client metrics and registers them with reg.
// A nil reg returns nil, which disables recording.
func NewClientMetrics(reg prometheus.Registerer) (*ClientMetrics, error) {
	if reg == nil {
		return nil, nil
	}

	m := &ClientMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "Total number of requests sent to the controller",
		}, []string{"command", "outcome"}),

		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "Time from writing a request to classifying its response",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}, []string{"command"}),

		timeoutsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "timeouts_total",
			Help:      "Total number of reads that hit the read timeout",
		}),

		discardedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "discarded_lines_total",
			Help:      "Total number of unclaimed response lines drained before a request",
		}),

		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "client",
			Name:      "connected",
			Help:      "Number of client connections currently open",
		}),
	}

	for _, c := range []prometheus.Collector{m.requestsTotal, m.requestDuration, m.timeoutsTotal, m.discardedTotal, m.connected} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// RecordRequest records one finished request.
// duration is ignored for fire-and-forget requests (outcome "sent").
func (m *ClientMetrics) RecordRequest(command, outcome string, duration time.Duration) {
	if m == nil {
		return
	}

	m.requestsTotal.WithLabelValues(command, outcome).Inc()
	if outcome == OutcomeTimeout {
		m.timeoutsTotal.Inc()
	}
	if outcome != OutcomeSent {
		m.requestDuration.WithLabelValues(command).Observe(duration.Seconds())
	}
}

// RecordDiscarded records n response lines drained without a waiting request.
func (m *ClientMetrics) RecordDiscarded(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.discardedTotal.Add(float64(n))
}

// RecordConnected records a connection being opened or closed.
func (m *ClientMetrics) RecordConnected(up bool) {
	if m == nil {
		return
	}
	if up {
		m.connected.Inc()
	} else {
		m.connected.Dec()
	}
}
