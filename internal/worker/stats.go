package worker

import (
	"time"

	"github.com/ultrasense/ultrasense-go/internal/events"
)

// rateWindow is the span over which the observed valid-cycle rate is
// computed.
const rateWindow = 10 * time.Second

// runStatistics holds the worker-owned counters. Only the worker goroutine
// writes; snapshots for other goroutines go through Worker.Stats.
type runStatistics struct {
	framesReceived        uint64
	framesDiscardedBroken uint64
	framesProcessedValid  uint64
	humanCount            uint64
	nonHumanCount         uint64
	uncertainCount        uint64
	activityTriggers      uint64

	latencyTotal time.Duration // sum over all successful inferences

	// completion times of recent valid cycles, pruned to rateWindow
	cycleTimes []time.Time
}

// recordCycle notes a completed valid cycle for rate tracking.
func (s *runStatistics) recordCycle(now time.Time) {
	s.cycleTimes = append(s.cycleTimes, now)
	cutoff := now.Add(-rateWindow)
	trim := 0
	for trim < len(s.cycleTimes) && s.cycleTimes[trim].Before(cutoff) {
		trim++
	}
	if trim > 0 {
		s.cycleTimes = append(s.cycleTimes[:0], s.cycleTimes[trim:]...)
	}
}

// observedRate returns valid cycles per second over the recent window.
func (s *runStatistics) observedRate(now time.Time) float64 {
	if len(s.cycleTimes) < 2 {
		return 0
	}
	span := now.Sub(s.cycleTimes[0])
	if span <= 0 {
		return 0
	}
	return float64(len(s.cycleTimes)-1) / span.Seconds()
}

// snapshot copies the counters into the exported form.
func (s *runStatistics) snapshot(now time.Time) events.RunStats {
	var meanLatency time.Duration
	if s.framesProcessedValid > 0 {
		meanLatency = s.latencyTotal / time.Duration(s.framesProcessedValid)
	}
	return events.RunStats{
		FramesReceived:        s.framesReceived,
		FramesDiscardedBroken: s.framesDiscardedBroken,
		FramesProcessedValid:  s.framesProcessedValid,
		HumanCount:            s.humanCount,
		NonHumanCount:         s.nonHumanCount,
		UncertainCount:        s.uncertainCount,
		ActivityTriggers:      s.activityTriggers,
		MeanInferenceLatency:  meanLatency,
		ObservedRate:          s.observedRate(now),
	}
}
