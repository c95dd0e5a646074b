package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ultrasense/ultrasense-go/internal/conf"
	"github.com/ultrasense/ultrasense-go/internal/events"
)

func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	m, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	return m
}

func detectionEvent(label string, stats events.RunStats) *events.DetectionEvent {
	return events.NewDetectionEvent(events.DetectionEvent{
		DistanceCm:       150,
		Label:            label,
		Confidence:       0.9,
		InferenceLatency: 12 * time.Millisecond,
		Stats:            stats,
	})
}

func TestMetricsConsumerCountsDetections(t *testing.T) {
	t.Parallel()

	m := newTestMetrics(t)
	c := NewMetricsConsumer(m)

	require.NoError(t, c.ProcessEvent(detectionEvent("human", events.RunStats{
		FramesReceived: 1, FramesProcessedValid: 1,
	})))
	require.NoError(t, c.ProcessEvent(detectionEvent("human", events.RunStats{
		FramesReceived: 2, FramesProcessedValid: 2,
	})))
	require.NoError(t, c.ProcessEvent(detectionEvent("non_human", events.RunStats{
		FramesReceived: 4, FramesDiscardedBroken: 1, FramesProcessedValid: 3,
	})))

	assert.InDelta(t, 2.0, testutil.ToFloat64(m.Detections.WithLabelValues("human")), 0.001)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.Detections.WithLabelValues("non_human")), 0.001)
	assert.InDelta(t, 4.0, testutil.ToFloat64(m.FramesReceived), 0.001,
		"frame counter follows the cumulative snapshot")
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.FramesDiscarded), 0.001)
	assert.InDelta(t, 150.0, testutil.ToFloat64(m.DistanceCm), 0.001)
}

func TestMetricsConsumerActuatorGauge(t *testing.T) {
	t.Parallel()

	m := newTestMetrics(t)
	c := NewMetricsConsumer(m)

	e := detectionEvent("human", events.RunStats{FramesReceived: 1})
	e.ActuatorIsOn = true
	require.NoError(t, c.ProcessEvent(e))
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.ActuatorState), 0.001)

	e = detectionEvent("non_human", events.RunStats{FramesReceived: 2})
	require.NoError(t, c.ProcessEvent(e))
	assert.InDelta(t, 0.0, testutil.ToFloat64(m.ActuatorState), 0.001)
}

func TestMetricsConsumerStatusNotices(t *testing.T) {
	t.Parallel()

	m := newTestMetrics(t)
	c := NewMetricsConsumer(m)

	require.NoError(t, c.ProcessEvent(events.NewStatusEvent(events.StatusDegraded, "", 5)))
	require.NoError(t, c.ProcessEvent(events.NewStatusEvent(events.StatusRecovered, "", 0)))
	require.NoError(t, c.ProcessEvent(events.NewStatusEvent(events.StatusDegraded, "", 7)))

	assert.InDelta(t, 2.0, testutil.ToFloat64(m.StatusNotices.WithLabelValues("degraded")), 0.001)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.StatusNotices.WithLabelValues("recovered")), 0.001)
}

func TestNewEndpointRequiresTelemetryEnabled(t *testing.T) {
	t.Parallel()

	settings := &conf.Settings{}
	_, err := NewEndpoint(settings, newTestMetrics(t))
	assert.Error(t, err)

	settings.Realtime.Telemetry.Enabled = true
	settings.Realtime.Telemetry.Listen = "127.0.0.1:0"
	endpoint, err := NewEndpoint(settings, newTestMetrics(t))
	require.NoError(t, err)
	assert.NotNil(t, endpoint.GetMetrics())
}

func TestNewMetricsRejectsDoubleRegistration(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	_, err := NewMetrics(registry)
	require.NoError(t, err)

	_, err = NewMetrics(registry)
	assert.Error(t, err, "the same registry cannot hold the metrics twice")
}
