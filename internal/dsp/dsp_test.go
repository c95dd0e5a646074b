package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ultrasense/ultrasense-go/internal/conf"
	"github.com/ultrasense/ultrasense-go/internal/errors"
)

func testSpectrogramSettings() *conf.SpectrogramSettings {
	return &conf.SpectrogramSettings{
		SampleRate:   conf.DefaultSampleRate,
		WindowLength: conf.DefaultWindowLength,
		Overlap:      conf.DefaultOverlap,
		LeadTrim:     conf.DefaultLeadTrim,
		MinWaveform:  conf.DefaultMinWaveform,
	}
}

func makeFrame(n int) []int16 {
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16((i % 1024) - 512)
	}
	return samples
}

func TestConditionFixedLength(t *testing.T) {
	cfg := testSpectrogramSettings()

	waveform, err := Condition(makeFrame(25000), cfg)
	require.NoError(t, err)
	assert.Len(t, waveform, cfg.MinWaveform, "conditioned waveform must have the configured fixed length")

	// Longer frames still condition to exactly the fixed length.
	waveform, err = Condition(makeFrame(30000), cfg)
	require.NoError(t, err)
	assert.Len(t, waveform, cfg.MinWaveform)
}

func TestConditionRejectsShortFrames(t *testing.T) {
	cfg := testSpectrogramSettings()

	tests := []struct {
		name string
		n    int
	}{
		{"empty", 0},
		{"below trim", 4000},
		{"exactly trim", 5000},
		{"below minimum after trim", 20000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Condition(makeFrame(tt.n), cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrFrameRejected))
		})
	}
}

func TestConditionDropsLeadingTransient(t *testing.T) {
	cfg := testSpectrogramSettings()
	samples := make([]int16, 25000)
	for i := 0; i < cfg.LeadTrim; i++ {
		samples[i] = math.MaxInt16 // transient ramp
	}
	samples[cfg.LeadTrim] = 1234

	waveform, err := Condition(samples, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1234.0, waveform[0], "first sample after trim should open the waveform")
}

func TestSpectrogramShape(t *testing.T) {
	cfg := testSpectrogramSettings()
	waveform, err := Condition(makeFrame(25000), cfg)
	require.NoError(t, err)

	spec, err := Spectrogram(waveform, cfg)
	require.NoError(t, err)

	assert.Equal(t, cfg.WindowLength/2+1, spec.FreqBins, "freq bins = window/2+1")
	assert.Equal(t, 1025, spec.FreqBins)
	assert.Equal(t, 18, spec.TimeFrames, "default geometry yields 18 time frames")
	assert.Len(t, spec.Flatten(), spec.FreqBins*spec.TimeFrames)
}

func TestSpectrogramDeterministic(t *testing.T) {
	cfg := testSpectrogramSettings()
	waveform, err := Condition(makeFrame(25000), cfg)
	require.NoError(t, err)

	first, err := Spectrogram(waveform, cfg)
	require.NoError(t, err)
	second, err := Spectrogram(waveform, cfg)
	require.NoError(t, err)

	for f := 0; f < first.FreqBins; f++ {
		for tt := 0; tt < first.TimeFrames; tt++ {
			if first.At(f, tt) != second.At(f, tt) {
				t.Fatalf("tensor differs at bin %d frame %d: %v vs %v", f, tt, first.At(f, tt), second.At(f, tt))
			}
		}
	}
}

func TestSpectrogramLocatesTone(t *testing.T) {
	cfg := testSpectrogramSettings()

	// Pure tone at one quarter of Nyquist: energy should concentrate in the
	// bin at windowLength/8.
	waveform := make([]float64, cfg.MinWaveform)
	binFreq := float64(cfg.WindowLength / 8)
	for i := range waveform {
		waveform[i] = math.Sin(2 * math.Pi * binFreq * float64(i) / float64(cfg.WindowLength))
	}

	spec, err := Spectrogram(waveform, cfg)
	require.NoError(t, err)

	toneBin := cfg.WindowLength / 8
	for frame := 0; frame < spec.TimeFrames; frame++ {
		peak := 0
		for f := 0; f < spec.FreqBins; f++ {
			if spec.At(f, frame) > spec.At(peak, frame) {
				peak = f
			}
		}
		assert.Equal(t, toneBin, peak, "frame %d peak bin", frame)
	}
}

func TestSpectrogramRejectsTooShortWaveform(t *testing.T) {
	cfg := testSpectrogramSettings()
	_, err := Spectrogram(make([]float64, cfg.WindowLength-1), cfg)
	assert.Error(t, err)
}
