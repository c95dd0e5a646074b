package detection

import (
	"time"

	"github.com/ultrasense/ultrasense-go/internal/classifier"
)

// TimerState is the hold timer's current state.
type TimerState int

const (
	// StateIdle means the actuator is off and nothing is being held.
	StateIdle TimerState = iota
	// StateHolding means the actuator is on and the countdown is running.
	StateHolding
)

// String returns the log form of the state.
func (s TimerState) String() string {
	if s == StateHolding {
		return "holding"
	}
	return "idle"
}

// Command is an actuator transition produced by the timer. The worker issues
// exactly one actuator command per edge; repeated evaluations in the same
// state produce CommandNone.
type Command int

const (
	// CommandNone means no transition happened.
	CommandNone Command = iota
	// CommandOn is produced exactly once on entry to Holding.
	CommandOn
	// CommandOff is produced exactly once on return to Idle.
	CommandOff
)

// HoldTimer converts the activity + classification stream into a debounced
// actuator decision. A human classification resets the countdown; anything
// else lets it run. When the countdown reaches the hold duration with a
// human as the most recent label, it restarts in place instead of expiring —
// the actuator stays on for as long as the room scores occupied.
type HoldTimer struct {
	state    TimerState
	elapsed  time.Duration
	duration time.Duration
}

// NewHoldTimer creates an idle timer with the given hold duration.
func NewHoldTimer(duration time.Duration) *HoldTimer {
	return &HoldTimer{duration: duration}
}

// Trigger reacts to an activity gate hit. From Idle it enters Holding with a
// fresh countdown and commands the actuator on; while already Holding it
// changes nothing.
func (h *HoldTimer) Trigger() Command {
	if h.state == StateHolding {
		return CommandNone
	}
	h.state = StateHolding
	h.elapsed = 0
	return CommandOn
}

// Advance feeds one classification cycle into the timer. delta is the
// wall-clock time since the previous cycle. In Idle it does nothing.
func (h *HoldTimer) Advance(label classifier.Label, delta time.Duration) Command {
	if h.state != StateHolding {
		return CommandNone
	}

	h.elapsed += delta

	if label == classifier.LabelHuman {
		// Reset the countdown, also when the boundary was just reached:
		// the timer restarts in place rather than expiring.
		h.elapsed = 0
		return CommandNone
	}

	if h.elapsed >= h.duration {
		h.state = StateIdle
		h.elapsed = 0
		return CommandOff
	}
	return CommandNone
}

// ForceOff drops to Idle regardless of the countdown, as on worker stop.
// Returns CommandOff when the actuator was on.
func (h *HoldTimer) ForceOff() Command {
	if h.state != StateHolding {
		return CommandNone
	}
	h.state = StateIdle
	h.elapsed = 0
	return CommandOff
}

// IsOn reports whether the actuator should currently be on. True exactly
// when the timer is in Holding.
func (h *HoldTimer) IsOn() bool { return h.state == StateHolding }

// State returns the current state.
func (h *HoldTimer) State() TimerState { return h.state }

// Elapsed returns time accumulated since the last reset.
func (h *HoldTimer) Elapsed() time.Duration { return h.elapsed }

// Duration returns the configured hold duration.
func (h *HoldTimer) Duration() time.Duration { return h.duration }

// SetDuration applies a new hold duration for subsequent cycles.
func (h *HoldTimer) SetDuration(d time.Duration) { h.duration = d }
