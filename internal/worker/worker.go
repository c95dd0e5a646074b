// Package worker runs the realtime detection loop: receive a frame, condition
// it, gate on distance change, classify the spectrogram and drive the
// actuator hold timer, publishing one detection event per processed cycle.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ultrasense/ultrasense-go/internal/actuator"
	"github.com/ultrasense/ultrasense-go/internal/classifier"
	"github.com/ultrasense/ultrasense-go/internal/conf"
	"github.com/ultrasense/ultrasense-go/internal/detection"
	"github.com/ultrasense/ultrasense-go/internal/dsp"
	"github.com/ultrasense/ultrasense-go/internal/errors"
	"github.com/ultrasense/ultrasense-go/internal/events"
	"github.com/ultrasense/ultrasense-go/internal/logging"
	"github.com/ultrasense/ultrasense-go/internal/sensor"
)

// FrameSource abstracts the sensor client so the loop can be tested against
// a scripted source.
type FrameSource interface {
	Handshake(ctx context.Context) error
	Receive(timeout time.Duration) (*sensor.RawFrame, error)
	ConsecutiveTimeouts() int
	Close() error
}

// Worker owns the detection pipeline state. All pipeline stages run on the
// single loop goroutine; actuator commands are issued on a dedicated side
// goroutine so SSH latency never stalls frame intake. The only other
// cross-goroutine surfaces are Stats, UpdateConfig and Stop.
type Worker struct {
	settings *conf.Settings
	source   FrameSource
	clf      classifier.Classifier
	act      actuator.Controller
	bus      *events.Bus
	logger   *slog.Logger

	gate  *detection.Gate
	timer *detection.HoldTimer

	controlChan chan conf.PartialUpdate
	commandChan chan detection.Command
	quitChan    chan struct{}
	doneChan    chan struct{}
	actDoneChan chan struct{}
	stopOnce    sync.Once
	started     atomic.Bool

	// loop-owned, guarded by statsMu only for snapshotting
	statsMu sync.Mutex
	stats   runStatistics

	cycleBudget time.Duration
	degraded    bool
}

// New assembles a worker from its collaborators. Start performs the
// handshake and launches the loop.
func New(settings *conf.Settings, source FrameSource, clf classifier.Classifier, act actuator.Controller, bus *events.Bus) *Worker {
	return &Worker{
		settings:    settings,
		source:      source,
		clf:         clf,
		act:         act,
		bus:         bus,
		logger:      logging.ForService("worker"),
		gate:        detection.NewGate(settings.Detection.DistanceThresholdCm),
		timer:       detection.NewHoldTimer(settings.Detection.TimerDuration()),
		controlChan: make(chan conf.PartialUpdate, 8),
		commandChan: make(chan detection.Command, 1),
		quitChan:    make(chan struct{}),
		doneChan:    make(chan struct{}),
		actDoneChan: make(chan struct{}),
		cycleBudget: settings.Detection.CycleBudget(),
	}
}

// Start performs the sensor handshake and launches the detection loop. A
// handshake failure is fatal: no loop is started and the error is returned.
func (w *Worker) Start(ctx context.Context) error {
	if err := w.source.Handshake(ctx); err != nil {
		return err
	}

	w.logger.Info("detection worker started",
		"threshold_cm", w.settings.Detection.DistanceThresholdCm,
		"hold_duration", w.settings.Detection.TimerDuration(),
		"target_rate", w.settings.Detection.TargetSignalsPerSecond)

	w.started.Store(true)
	go w.run()
	go w.actuatorLoop()
	return nil
}

// Stop terminates the loop, forces the actuator off and publishes a stopped
// status. Safe to call more than once; blocks until the loop has exited.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		close(w.quitChan)
		if w.started.Load() {
			<-w.doneChan
			<-w.actDoneChan
		}

		w.statsMu.Lock()
		forced := w.timer.ForceOff()
		w.statsMu.Unlock()

		if forced == detection.CommandOff {
			ctx, cancel := context.WithTimeout(context.Background(), w.settings.Actuator.CommandTimeout)
			defer cancel()
			if err := w.act.Off(ctx); err != nil {
				w.logger.Error("failed to turn actuator off on stop", "error", err)
			}
		}

		w.bus.Publish(events.NewStatusEvent(events.StatusStopped, "worker stopped", 0))
		w.logger.Info("detection worker stopped")
	})
}

// UpdateConfig applies a runtime tuning change. Validation happens here,
// synchronously: an invalid update is rejected and the running configuration
// is untouched. Valid updates are queued for the loop to apply between
// cycles.
func (w *Worker) UpdateConfig(update conf.PartialUpdate) error {
	if err := update.Validate(); err != nil {
		return err
	}
	if update.Empty() {
		return nil
	}

	select {
	case w.controlChan <- update:
		return nil
	case <-w.quitChan:
		return errors.Newf("worker is stopping").
			Component("worker").
			Category(errors.CategoryState).
			Build()
	}
}

// Stats returns a copy of the running statistics.
func (w *Worker) Stats() events.RunStats {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	return w.stats.snapshot(time.Now())
}

// IsOn reports whether the hold timer currently keeps the actuator on.
func (w *Worker) IsOn() bool {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()
	return w.timer.IsOn()
}

func (w *Worker) run() {
	defer close(w.doneChan)

	lastAdvance := time.Now()
	var lastCycle time.Time

	for {
		select {
		case <-w.quitChan:
			return
		default:
		}

		w.drainControl()

		frame, err := w.source.Receive(w.settings.Sensor.ReadTimeout)
		if err != nil {
			if !w.handleReceiveError(err) {
				return
			}
			continue
		}
		w.noteRecovered()

		w.statsMu.Lock()
		w.stats.framesReceived++
		w.statsMu.Unlock()

		waveform, err := dsp.Condition(frame.Samples, &w.settings.Spectrogram)
		if err != nil {
			w.statsMu.Lock()
			w.stats.framesDiscardedBroken++
			w.statsMu.Unlock()
			w.logger.Debug("frame rejected by conditioner", "seq", frame.Sequence, "error", err)
			continue
		}

		// Pace valid cycles before spending any transform or inference
		// work; broken frames above never consume a rate slot.
		if !w.waitForBudget(lastCycle) {
			return
		}
		lastCycle = time.Now()

		command := detection.CommandNone
		triggered := false
		w.statsMu.Lock()
		if w.gate.Observe(frame.DistanceCm) {
			triggered = true
			w.stats.activityTriggers++
			command = w.timer.Trigger()
		}
		distanceChange := w.gate.LastChange()
		isActive := w.gate.IsActive()
		w.statsMu.Unlock()

		result, latency, err := w.classify(waveform)
		if err != nil {
			w.logger.Error("inference failed", "seq", frame.Sequence, "error", err)
			w.queueCommand(command)
			continue
		}

		now := time.Now()
		delta := now.Sub(lastAdvance)
		lastAdvance = now

		w.statsMu.Lock()
		// A cycle that just (re)started the hold never advances it: the
		// measured delta belongs to the time before the trigger, and counting
		// it could expire the hold in the same cycle that raised the on edge.
		if !triggered {
			if offCommand := w.timer.Advance(result.Label, delta); offCommand != detection.CommandNone {
				command = offCommand
			}
		}
		w.stats.framesProcessedValid++
		w.stats.latencyTotal += latency
		switch result.Label {
		case classifier.LabelHuman:
			w.stats.humanCount++
		case classifier.LabelNonHuman:
			w.stats.nonHumanCount++
		default:
			w.stats.uncertainCount++
		}
		w.stats.recordCycle(now)
		snapshot := w.stats.snapshot(now)
		actuatorOn := w.timer.IsOn()
		w.statsMu.Unlock()

		w.queueCommand(command)

		w.bus.Publish(events.NewDetectionEvent(events.DetectionEvent{
			DistanceCm:       frame.DistanceCm,
			DistanceChangeCm: distanceChange,
			IsActive:         isActive,
			Label:            result.Label.String(),
			Confidence:       result.Confidence,
			ActuatorIsOn:     actuatorOn,
			ActuatorCommand:  busCommand(command),
			InferenceLatency: latency,
			Stats:            snapshot,
		}))
	}
}

// drainControl applies all pending runtime updates.
func (w *Worker) drainControl() {
	for {
		select {
		case update := <-w.controlChan:
			w.applyUpdate(update)
		default:
			return
		}
	}
}

func (w *Worker) applyUpdate(update conf.PartialUpdate) {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()

	if update.DistanceThresholdCm != nil {
		w.gate.SetThreshold(*update.DistanceThresholdCm)
		w.settings.Detection.DistanceThresholdCm = *update.DistanceThresholdCm
		w.logger.Info("distance threshold updated", "threshold_cm", *update.DistanceThresholdCm)
	}
	if update.TimerDuration != nil {
		w.timer.SetDuration(*update.TimerDuration)
		w.settings.Detection.TimerDurationSeconds = update.TimerDuration.Seconds()
		w.logger.Info("hold duration updated", "duration", *update.TimerDuration)
	}
	if update.TargetSignalsPerSecond != nil {
		w.settings.Detection.TargetSignalsPerSecond = *update.TargetSignalsPerSecond
		w.cycleBudget = w.settings.Detection.CycleBudget()
		w.logger.Info("target rate updated", "signals_per_second", *update.TargetSignalsPerSecond)
	}
}

// handleReceiveError sorts a Receive failure into the transient taxonomy.
// Returns false only when the worker should exit.
func (w *Worker) handleReceiveError(err error) bool {
	switch {
	case errors.Is(err, errors.ErrReceiveTimeout):
		streak := w.source.ConsecutiveTimeouts()
		if streak >= w.settings.Sensor.TimeoutGraceCount && !w.degraded {
			w.degraded = true
			w.logger.Warn("sensor connectivity degraded",
				"consecutive_timeouts", streak)
			w.bus.Publish(events.NewStatusEvent(events.StatusDegraded,
				"consecutive receive timeouts exceeded grace count", streak))
		}
	case errors.Is(err, errors.ErrMalformedFrame):
		w.statsMu.Lock()
		w.stats.framesReceived++
		w.stats.framesDiscardedBroken++
		w.statsMu.Unlock()
		w.logger.Debug("malformed frame discarded", "error", err)
	default:
		w.logger.Error("frame receive failed", "error", err)
	}

	select {
	case <-w.quitChan:
		return false
	default:
		return true
	}
}

// noteRecovered publishes a recovery notice after a degraded stretch.
func (w *Worker) noteRecovered() {
	if !w.degraded {
		return
	}
	w.degraded = false
	w.logger.Info("sensor connectivity recovered")
	w.bus.Publish(events.NewStatusEvent(events.StatusRecovered, "frame reception resumed", 0))
}

// waitForBudget sleeps until a full cycle budget has passed since the
// previous valid cycle. Returns false when the worker is stopped while
// waiting.
func (w *Worker) waitForBudget(lastCycle time.Time) bool {
	if lastCycle.IsZero() {
		return true
	}
	remaining := w.cycleBudget - time.Since(lastCycle)
	if remaining <= 0 {
		return true
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-w.quitChan:
		return false
	}
}

func (w *Worker) classify(waveform []float64) (classifier.Result, time.Duration, error) {
	start := time.Now()

	tensor, err := dsp.Spectrogram(waveform, &w.settings.Spectrogram)
	if err != nil {
		return classifier.Result{}, time.Since(start), err
	}

	result, err := w.clf.Classify(tensor)
	latency := time.Since(start)
	if err != nil {
		return classifier.Result{}, latency, err
	}

	return classifier.ApplyMargin(result, w.settings.Detection.ConfidenceMargin), latency, nil
}

// queueCommand hands a hold-timer edge to the actuator goroutine without
// blocking the loop. At most one command is pending while another is in
// flight; a newer edge supersedes a pending one it has overtaken, so the
// board always converges on the latest commanded state.
func (w *Worker) queueCommand(command detection.Command) {
	if command == detection.CommandNone {
		return
	}
	for {
		select {
		case w.commandChan <- command:
			return
		default:
		}
		// Pending slot occupied by a stale edge; discard it and retry.
		select {
		case <-w.commandChan:
		default:
		}
	}
}

// actuatorLoop issues queued hold-timer edges one at a time, keeping slow SSH
// round trips off the detection loop.
func (w *Worker) actuatorLoop() {
	defer close(w.actDoneChan)
	for {
		select {
		case <-w.quitChan:
			// Wait out the loop's final cycle, then flush the last pending
			// edge so Stop's forced off always follows the on it releases.
			<-w.doneChan
			select {
			case command := <-w.commandChan:
				w.issueCommand(command)
			default:
			}
			return
		case command := <-w.commandChan:
			w.issueCommand(command)
		}
	}
}

// issueCommand runs one actuator command. Failures are logged; the detection
// loop never sees errors from the side channel.
func (w *Worker) issueCommand(command detection.Command) {
	ctx, cancel := context.WithTimeout(context.Background(), w.settings.Actuator.CommandTimeout)
	defer cancel()

	var err error
	if command == detection.CommandOn {
		err = w.act.On(ctx)
	} else {
		err = w.act.Off(ctx)
	}
	if err != nil {
		w.logger.Error("actuator command failed",
			"command", busCommand(command),
			"error", err)
	}
}

func busCommand(command detection.Command) events.ActuatorCommand {
	switch command {
	case detection.CommandOn:
		return events.CommandOn
	case detection.CommandOff:
		return events.CommandOff
	default:
		return events.CommandNone
	}
}
