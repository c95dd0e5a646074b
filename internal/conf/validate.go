// validate.go: configuration validation, both struct tags and the domain
// checks tags cannot express.
package conf

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ultrasense/ultrasense-go/internal/errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the whole settings tree for correctness. It returns a
// descriptive configuration error on the first violation found.
func (s *Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return errors.New(fmt.Errorf("invalid configuration: %w", err)).
			Component("conf").
			Category(errors.CategoryConfiguration).
			Build()
	}

	// Cross-field checks.
	if s.Spectrogram.Overlap >= s.Spectrogram.WindowLength {
		return configErrorf("spectrogram overlap (%d) must be smaller than window length (%d)",
			s.Spectrogram.Overlap, s.Spectrogram.WindowLength)
	}
	if s.Spectrogram.MinWaveform < s.Spectrogram.WindowLength {
		return configErrorf("minimum waveform length (%d) must cover at least one window (%d)",
			s.Spectrogram.MinWaveform, s.Spectrogram.WindowLength)
	}
	if s.Spectrogram.LeadTrim >= s.Sensor.FrameSizeSamples {
		return configErrorf("lead trim (%d) must leave samples in a %d-sample frame",
			s.Spectrogram.LeadTrim, s.Sensor.FrameSizeSamples)
	}
	if s.Actuator.Enabled && s.Actuator.OnCommand == "" {
		return configErrorf("actuator enabled but no on-command configured")
	}
	if s.Actuator.Enabled && s.Actuator.OffCommand == "" {
		return configErrorf("actuator enabled but no off-command configured")
	}
	if s.Realtime.MQTT.Enabled && s.Realtime.MQTT.Broker == "" {
		return configErrorf("mqtt enabled but no broker configured")
	}

	return nil
}

func configErrorf(format string, args ...any) error {
	return errors.Newf(format, args...).
		Component("conf").
		Category(errors.CategoryConfiguration).
		Build()
}

// PartialUpdate carries the runtime-tunable subset of detection settings.
// Nil fields are left unchanged. Applied by the worker between cycles only.
type PartialUpdate struct {
	DistanceThresholdCm    *float64
	TimerDuration          *time.Duration
	TargetSignalsPerSecond *float64
}

// Validate rejects out-of-range update values synchronously so a running
// worker never sees them.
func (u *PartialUpdate) Validate() error {
	if u.DistanceThresholdCm != nil && *u.DistanceThresholdCm <= 0 {
		return configErrorf("distance threshold must be positive, got %v", *u.DistanceThresholdCm)
	}
	if u.TimerDuration != nil && *u.TimerDuration <= 0 {
		return configErrorf("timer duration must be positive, got %v", *u.TimerDuration)
	}
	if u.TargetSignalsPerSecond != nil {
		if *u.TargetSignalsPerSecond <= 0 || *u.TargetSignalsPerSecond > 50 {
			return configErrorf("target rate must be in (0, 50] signals/second, got %v", *u.TargetSignalsPerSecond)
		}
	}
	return nil
}

// Empty reports whether the update changes nothing.
func (u *PartialUpdate) Empty() bool {
	return u.DistanceThresholdCm == nil && u.TimerDuration == nil && u.TargetSignalsPerSecond == nil
}
