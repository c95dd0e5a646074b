// Package events provides an asynchronous event bus that decouples the
// detection worker from whatever consumes its output (logger, MQTT,
// metrics), so a slow consumer can never stall frame intake.
package events

import (
	"time"
)

// Event is the common surface of everything published on the bus. Payloads
// are immutable snapshots; consumers must never mutate them.
type Event interface {
	// GetID returns the unique event id
	GetID() string

	// GetType returns the event type for consumer-side routing
	GetType() string

	// GetTimestamp returns when the event was created
	GetTimestamp() time.Time
}

// Event type constants.
const (
	TypeDetection = "detection"
	TypeStatus    = "status"
)

// Consumer represents a consumer that processes events from the bus.
type Consumer interface {
	// Name returns the consumer name for identification
	Name() string

	// ProcessEvent processes a single event
	ProcessEvent(event Event) error
}

// BusStats contains runtime statistics for monitoring the bus itself.
type BusStats struct {
	EventsReceived  uint64
	EventsProcessed uint64
	EventsDropped   uint64
	ConsumerErrors  uint64
}

// RunStats is the statistics snapshot attached to detection events. It is a
// copy of the worker-owned counters, safe to read from any goroutine.
type RunStats struct {
	FramesReceived        uint64        `json:"frames_received"`
	FramesDiscardedBroken uint64        `json:"frames_discarded_broken"`
	FramesProcessedValid  uint64        `json:"frames_processed_valid"`
	HumanCount            uint64        `json:"human_count"`
	NonHumanCount         uint64        `json:"non_human_count"`
	UncertainCount        uint64        `json:"uncertain_count"`
	ActivityTriggers      uint64        `json:"activity_triggers"`
	MeanInferenceLatency  time.Duration `json:"mean_inference_latency_ns"`
	ObservedRate          float64       `json:"observed_rate"`
}
