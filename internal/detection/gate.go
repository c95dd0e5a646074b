// Package detection holds the two decision stages between classifier output
// and actuator command: the distance-change activity gate and the hold-timer
// state machine. Both are plain state machines owned by the detection worker
// and never shared across goroutines.
package detection

import "math"

// Gate raises an activity flag when the measured distance moves more than a
// threshold away from the reference baseline. On a trigger the baseline is
// re-anchored to the new reading so sustained drift keeps triggering, not
// just the first jump. The gate is purely reactive: no memory beyond the
// last reading and the baseline.
type Gate struct {
	threshold    float64 // centimeters
	reference    float64
	last         float64
	lastChange   float64
	seeded       bool
	active       bool
	triggerCount uint64
}

// NewGate creates a gate with the given distance threshold in centimeters.
func NewGate(thresholdCm float64) *Gate {
	return &Gate{threshold: thresholdCm}
}

// Observe feeds one distance reading and returns whether it triggered
// activity. The first reading only seeds the baseline.
func (g *Gate) Observe(distanceCm float64) bool {
	if !g.seeded {
		g.seeded = true
		g.reference = distanceCm
		g.last = distanceCm
		g.active = false
		return false
	}

	change := math.Abs(distanceCm - g.reference)
	g.last = distanceCm
	g.lastChange = change

	if change > g.threshold {
		g.active = true
		g.triggerCount++
		g.reference = distanceCm // re-baseline so the gate follows drift
	} else {
		g.active = false
	}
	return g.active
}

// IsActive reports the outcome of the most recent observation.
func (g *Gate) IsActive() bool { return g.active }

// LastChange returns the absolute change of the last reading against the
// baseline it was compared to.
func (g *Gate) LastChange() float64 { return g.lastChange }

// LastDistance returns the most recent reading.
func (g *Gate) LastDistance() float64 { return g.last }

// ReferenceDistance returns the current baseline.
func (g *Gate) ReferenceDistance() float64 { return g.reference }

// TriggerCount returns how many readings have triggered activity.
func (g *Gate) TriggerCount() uint64 { return g.triggerCount }

// SetThreshold applies a new threshold for subsequent observations.
func (g *Gate) SetThreshold(thresholdCm float64) { g.threshold = thresholdCm }

// Reset clears baseline and counters, as on worker (re)start.
func (g *Gate) Reset() {
	g.seeded = false
	g.active = false
	g.reference = 0
	g.last = 0
	g.lastChange = 0
	g.triggerCount = 0
}
