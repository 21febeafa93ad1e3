package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// ServerMetrics records traffic handled by the mock controller.
type ServerMetrics struct {
	commandsTotal *prometheus.CounterVec // By command and status code
	connections   prometheus.Gauge
}

// NewServerMetrics creates server metrics and registers them with reg.
// A nil reg returns nil, which disables recording.
func NewServerMetrics(reg prometheus.Registerer) (*ServerMetrics, error) {
	if reg == nil {
		return nil, nil
	}

	m := &ServerMetrics{
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mock",
			Name:      "commands_total",
			Help:      "Total number of commands handled, by reply status code",
		}, []string{"command", "code"}),

		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "mock",
			Name:      "connections",
			Help:      "Number of client connections currently open",
		}),
	}

	if err := reg.Register(m.commandsTotal); err != nil {
		return nil, err
	}
	if err := reg.Register(m.connections); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordCommand records a handled command and the status code replied.
// Commands that produce no reply are recorded with code "none".
func (m *ServerMetrics) RecordCommand(command string, code int, replied bool) {
	if m == nil {
		return
	}
	label := "none"
	if replied {
		label = strconv.Itoa(code)
	}
	m.commandsTotal.WithLabelValues(command, label).Inc()
}

// ConnectionOpened increments the open connection gauge.
func (m *ServerMetrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.connections.Inc()
}

// ConnectionClosed decrements the open connection gauge.
func (m *ServerMetrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.connections.Dec()
}
