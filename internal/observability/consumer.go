package observability

import (
	"sync"

	"github.com/ultrasense/ultrasense-go/internal/events"
)

// MetricsConsumer feeds detection and status events into Prometheus metrics.
// It registers on the event bus like any other consumer.
type MetricsConsumer struct {
	metrics *Metrics

	// bus dispatch runs on multiple workers
	mu            sync.Mutex
	lastReceived  uint64
	lastDiscarded uint64
}

// NewMetricsConsumer creates a bus consumer updating the given metrics.
func NewMetricsConsumer(metrics *Metrics) *MetricsConsumer {
	return &MetricsConsumer{metrics: metrics}
}

// Name implements events.Consumer.
func (c *MetricsConsumer) Name() string { return "metrics" }

// ProcessEvent implements events.Consumer. Counter deltas are computed from
// the cumulative statistics carried on each detection event.
func (c *MetricsConsumer) ProcessEvent(event events.Event) error {
	switch e := event.(type) {
	case *events.DetectionEvent:
		c.observeDetection(e)
	case *events.StatusEvent:
		c.metrics.StatusNotices.WithLabelValues(string(e.Kind)).Inc()
	}
	return nil
}

func (c *MetricsConsumer) observeDetection(e *events.DetectionEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Events may arrive out of order across bus workers; only count forward
	// movement of the cumulative frame counters.
	if e.Stats.FramesReceived > c.lastReceived {
		c.metrics.FramesReceived.Add(float64(e.Stats.FramesReceived - c.lastReceived))
		c.lastReceived = e.Stats.FramesReceived
	}
	if e.Stats.FramesDiscardedBroken > c.lastDiscarded {
		c.metrics.FramesDiscarded.Add(float64(e.Stats.FramesDiscardedBroken - c.lastDiscarded))
		c.lastDiscarded = e.Stats.FramesDiscardedBroken
	}

	c.metrics.Detections.WithLabelValues(e.Label).Inc()
	if e.IsActive {
		c.metrics.ActivityTriggers.Inc()
	}

	if e.ActuatorIsOn {
		c.metrics.ActuatorState.Set(1)
	} else {
		c.metrics.ActuatorState.Set(0)
	}

	c.metrics.DistanceCm.Set(e.DistanceCm)
	c.metrics.ObservedRate.Set(e.Stats.ObservedRate)
	c.metrics.InferenceLatency.Observe(e.InferenceLatency.Seconds())
}
