// Package dsp holds the numeric stages of the pipeline: waveform
// conditioning and the short-time spectrogram transform. Both are pure
// functions of their inputs.
package dsp

import (
	"fmt"

	"github.com/ultrasense/ultrasense-go/internal/conf"
	"github.com/ultrasense/ultrasense-go/internal/errors"
)

// Condition trims the acquisition transient from the head of a raw frame and
// normalizes it into a fixed-length float64 waveform. The first
// cfg.LeadTrim samples carry the excitation ramp-up and are dropped; the
// result is always exactly cfg.MinWaveform samples or an ErrFrameRejected.
func Condition(samples []int16, cfg *conf.SpectrogramSettings) ([]float64, error) {
	if len(samples) <= cfg.LeadTrim {
		return nil, errors.New(fmt.Errorf("%w: frame of %d samples shorter than lead trim %d",
			errors.ErrFrameRejected, len(samples), cfg.LeadTrim)).
			Component("dsp").
			Category(errors.CategoryConditioning).
			Build()
	}

	trimmed := samples[cfg.LeadTrim:]
	if len(trimmed) < cfg.MinWaveform {
		return nil, errors.New(fmt.Errorf("%w: %d samples after trim, need %d",
			errors.ErrFrameRejected, len(trimmed), cfg.MinWaveform)).
			Component("dsp").
			Category(errors.CategoryConditioning).
			Build()
	}

	waveform := make([]float64, cfg.MinWaveform)
	for i := range waveform {
		waveform[i] = float64(trimmed[i])
	}
	return waveform, nil
}
