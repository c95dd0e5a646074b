// Package observability provides Prometheus metrics for the detection
// pipeline and the HTTP endpoint that exposes them.
package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all Prometheus metrics of the detection pipeline.
type Metrics struct {
	FramesReceived   prometheus.Counter
	FramesDiscarded  prometheus.Counter
	Detections       *prometheus.CounterVec
	ActivityTriggers prometheus.Counter
	ActuatorState    prometheus.Gauge
	DistanceCm       prometheus.Gauge
	ObservedRate     prometheus.Gauge
	InferenceLatency prometheus.Histogram
	StatusNotices    *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates the pipeline metrics and registers them on the given
// registry. It returns an error if metric registration fails.
func NewMetrics(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{registry: registry}
	m.initMetrics()

	collectors := []prometheus.Collector{
		m.FramesReceived,
		m.FramesDiscarded,
		m.Detections,
		m.ActivityTriggers,
		m.ActuatorState,
		m.DistanceCm,
		m.ObservedRate,
		m.InferenceLatency,
		m.StatusNotices,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register pipeline metrics: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) initMetrics() {
	m.FramesReceived = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ultrasense_frames_received_total",
		Help: "Total number of frames received from the sensor, including broken ones",
	})

	m.FramesDiscarded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ultrasense_frames_discarded_total",
		Help: "Total number of frames discarded as malformed or under-length",
	})

	m.Detections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ultrasense_detections_total",
		Help: "Total number of classified cycles by label",
	}, []string{"label"})

	m.ActivityTriggers = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ultrasense_activity_triggers_total",
		Help: "Total number of distance changes that triggered the activity gate",
	})

	m.ActuatorState = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ultrasense_actuator_state",
		Help: "Current actuator state (1 for on, 0 for off)",
	})

	m.DistanceCm = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ultrasense_distance_cm",
		Help: "Most recent distance reading in centimeters",
	})

	m.ObservedRate = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ultrasense_observed_rate",
		Help: "Observed valid-cycle rate in cycles per second",
	})

	m.InferenceLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ultrasense_inference_latency_seconds",
		Help:    "Spectrogram plus model inference latency in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	m.StatusNotices = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ultrasense_status_notices_total",
		Help: "Total number of worker status notices by kind",
	}, []string{"kind"})
}

// Registry returns the registry the metrics are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
