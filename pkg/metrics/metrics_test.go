package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilRegistryDisablesMetrics(t *testing.T) {
	cm, err := NewClientMetrics(nil)
	require.NoError(t, err)
	assert.Nil(t, cm)

	sm, err := NewServerMetrics(nil)
	require.NoError(t, err)
	assert.Nil(t, sm)

	// Recording on nil collectors must not panic.
	cm.RecordRequest("nop", OutcomeSuccess, time.Millisecond)
	cm.RecordConnected(true)
	cm.RecordDiscarded(2)
	sm.RecordCommand("nop", 0, true)
	sm.ConnectionOpened()
	sm.ConnectionClosed()
}

func TestClientMetricsRecordRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewClientMetrics(reg)
	require.NoError(t, err)

	m.RecordRequest("hp", OutcomeSuccess, 2*time.Millisecond)
	m.RecordRequest("hp", OutcomeSuccess, 3*time.Millisecond)
	m.RecordRequest("home", OutcomeError, time.Millisecond)
	m.RecordRequest("nop", OutcomeTimeout, time.Second)
	m.RecordRequest("move", OutcomeSent, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("hp", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("home", OutcomeError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestsTotal.WithLabelValues("move", OutcomeSent)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.timeoutsTotal))

	// Fire-and-forget requests have no round trip to observe.
	assert.Equal(t, 3, testutil.CollectAndCount(m.requestDuration))
}

func TestClientMetricsConnectedGauge(t *testing.T) {
	m, err := NewClientMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.RecordConnected(true)
	m.RecordConnected(true)
	m.RecordConnected(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.connected))
}

func TestClientMetricsRecordDiscarded(t *testing.T) {
	m, err := NewClientMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.RecordDiscarded(2)
	m.RecordDiscarded(0)
	m.RecordDiscarded(1)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.discardedTotal))
}

func TestClientMetricsDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewClientMetrics(reg)
	require.NoError(t, err)

	_, err = NewClientMetrics(reg)
	assert.Error(t, err)
}

func TestServerMetrics(t *testing.T) {
	m, err := NewServerMetrics(prometheus.NewRegistry())
	require.NoError(t, err)

	m.RecordCommand("home", -1046, true)
	m.RecordCommand("home", 0, true)
	m.RecordCommand("home", 0, true)
	m.RecordCommand("move", 0, false)
	m.ConnectionOpened()
	m.ConnectionOpened()
	m.ConnectionClosed()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.commandsTotal.WithLabelValues("home", "-1046")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.commandsTotal.WithLabelValues("home", "0")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commandsTotal.WithLabelValues("move", "none")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.connections))
}
