package events

import (
	"time"

	"github.com/google/uuid"
)

// ActuatorCommand describes an actuator edge carried on a detection event.
type ActuatorCommand string

const (
	// CommandNone means the cycle caused no actuator transition.
	CommandNone ActuatorCommand = ""
	// CommandOn is emitted exactly once on entry to the holding state.
	CommandOn ActuatorCommand = "on"
	// CommandOff is emitted exactly once on return to idle.
	CommandOff ActuatorCommand = "off"
)

// DetectionEvent is the read-only snapshot emitted once per processed cycle:
// distance, activity, classification, actuator state and running statistics.
type DetectionEvent struct {
	ID               string          `json:"id"`
	Timestamp        time.Time       `json:"timestamp"`
	DistanceCm       float64         `json:"distance_cm"`
	DistanceChangeCm float64         `json:"distance_change_cm"`
	IsActive         bool            `json:"is_active"`
	Label            string          `json:"label"`
	Confidence       float64         `json:"confidence"`
	ActuatorIsOn     bool            `json:"actuator_is_on"`
	ActuatorCommand  ActuatorCommand `json:"actuator_command,omitempty"`
	InferenceLatency time.Duration   `json:"inference_latency_ns"`
	Stats            RunStats        `json:"stats"`
}

// NewDetectionEvent stamps id and timestamp on the given snapshot.
func NewDetectionEvent(e DetectionEvent) *DetectionEvent {
	e.ID = uuid.New().String()
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	return &e
}

// GetID implements Event.
func (e *DetectionEvent) GetID() string { return e.ID }

// GetType implements Event.
func (e *DetectionEvent) GetType() string { return TypeDetection }

// GetTimestamp implements Event.
func (e *DetectionEvent) GetTimestamp() time.Time { return e.Timestamp }

// StatusKind enumerates worker status notices.
type StatusKind string

const (
	// StatusDegraded is published when the grace count of consecutive read
	// timeouts is exceeded; the worker keeps attempting reception.
	StatusDegraded StatusKind = "degraded"
	// StatusRecovered is published on the first successful receipt after a
	// degraded notice.
	StatusRecovered StatusKind = "recovered"
	// StatusStopped is published when the worker loop exits.
	StatusStopped StatusKind = "stopped"
)

// StatusEvent reports a connectivity or lifecycle change of the worker.
type StatusEvent struct {
	ID                  string     `json:"id"`
	Timestamp           time.Time  `json:"timestamp"`
	Kind                StatusKind `json:"kind"`
	Detail              string     `json:"detail,omitempty"`
	ConsecutiveTimeouts int        `json:"consecutive_timeouts,omitempty"`
}

// NewStatusEvent creates a status event with id and timestamp set.
func NewStatusEvent(kind StatusKind, detail string, consecutiveTimeouts int) *StatusEvent {
	return &StatusEvent{
		ID:                  uuid.New().String(),
		Timestamp:           time.Now(),
		Kind:                kind,
		Detail:              detail,
		ConsecutiveTimeouts: consecutiveTimeouts,
	}
}

// GetID implements Event.
func (e *StatusEvent) GetID() string { return e.ID }

// GetType implements Event.
func (e *StatusEvent) GetType() string { return TypeStatus }

// GetTimestamp implements Event.
func (e *StatusEvent) GetTimestamp() time.Time { return e.Timestamp }
