package detection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGateSequenceWithRebaseline(t *testing.T) {
	t.Parallel()

	g := NewGate(10)

	// Readings [100, 100, 115, 115]: the third jumps past the threshold and
	// re-anchors the baseline to 115, so the fourth shows no further change.
	want := []bool{false, false, true, false}
	for i, reading := range []float64{100, 100, 115, 115} {
		assert.Equal(t, want[i], g.Observe(reading), "reading %d", i)
	}
	assert.Equal(t, uint64(1), g.TriggerCount())
	assert.Equal(t, 115.0, g.ReferenceDistance())
}

func TestGateFollowsSustainedDrift(t *testing.T) {
	t.Parallel()

	g := NewGate(10)
	g.Observe(200)

	// Each step of 15 cm exceeds the threshold against the re-anchored
	// baseline, so drift keeps triggering.
	assert.True(t, g.Observe(185))
	assert.True(t, g.Observe(170))
	assert.True(t, g.Observe(155))
	assert.Equal(t, uint64(3), g.TriggerCount())
}

func TestGateExactThresholdDoesNotTrigger(t *testing.T) {
	t.Parallel()

	g := NewGate(10)
	g.Observe(100)
	assert.False(t, g.Observe(110), "change equal to the threshold is not activity")
	assert.True(t, g.Observe(110.5), "change just past the threshold is")
}

func TestGateFirstReadingSeedsBaseline(t *testing.T) {
	t.Parallel()

	g := NewGate(10)
	assert.False(t, g.Observe(500), "first reading only seeds the baseline")
	assert.Equal(t, 500.0, g.ReferenceDistance())
	assert.Zero(t, g.TriggerCount())
}

func TestGateThresholdUpdate(t *testing.T) {
	t.Parallel()

	g := NewGate(10)
	g.Observe(100)
	assert.False(t, g.Observe(105))

	g.SetThreshold(3)
	assert.True(t, g.Observe(105), "same reading triggers under the tighter threshold")
}

func TestGateReset(t *testing.T) {
	t.Parallel()

	g := NewGate(10)
	g.Observe(100)
	g.Observe(150)
	g.Reset()

	assert.Zero(t, g.TriggerCount())
	assert.False(t, g.Observe(999), "first reading after reset seeds again")
}
