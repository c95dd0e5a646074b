package conf

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() *Settings {
	return &Settings{
		Main: MainSettings{Name: "UltraSense", LogLevel: "info"},
		Sensor: SensorSettings{
			Host:              "169.254.148.148",
			DataPort:          61231,
			FrameSizeSamples:  DefaultFrameSizeSamples,
			ReadTimeout:       2 * time.Second,
			TimeoutGraceCount: 5,
			HandshakeTimeout:  5 * time.Second,
		},
		Detection: DetectionSettings{
			DistanceThresholdCm:    10,
			TimerDurationSeconds:   15,
			TargetSignalsPerSecond: 2,
			ConfidenceMargin:       0.85,
			ModelPath:              "models/presence.tflite",
		},
		Spectrogram: SpectrogramSettings{
			SampleRate:   DefaultSampleRate,
			WindowLength: DefaultWindowLength,
			Overlap:      DefaultOverlap,
			LeadTrim:     DefaultLeadTrim,
			MinWaveform:  DefaultMinWaveform,
		},
		Actuator: ActuatorSettings{
			Enabled:        true,
			Port:           22,
			User:           "root",
			Password:       "root",
			OnCommand:      DefaultLEDOnCommand,
			OffCommand:     DefaultLEDOffCommand,
			CommandTimeout: 5 * time.Second,
		},
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	require.NoError(t, validSettings().Validate())
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"zero threshold", func(s *Settings) { s.Detection.DistanceThresholdCm = 0 }},
		{"negative timer", func(s *Settings) { s.Detection.TimerDurationSeconds = -1 }},
		{"rate too high", func(s *Settings) { s.Detection.TargetSignalsPerSecond = 100 }},
		{"margin above one", func(s *Settings) { s.Detection.ConfidenceMargin = 1.5 }},
		{"missing host", func(s *Settings) { s.Sensor.Host = "" }},
		{"bad port", func(s *Settings) { s.Sensor.DataPort = 70000 }},
		{"overlap >= window", func(s *Settings) { s.Spectrogram.Overlap = 2048 }},
		{"trim eats whole frame", func(s *Settings) { s.Spectrogram.LeadTrim = 25000 }},
		{"actuator without command", func(s *Settings) { s.Actuator.OnCommand = "" }},
		{"mqtt without broker", func(s *Settings) { s.Realtime.MQTT.Enabled = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSettings()
			tt.mutate(s)
			assert.Error(t, s.Validate())
		})
	}
}

func TestPartialUpdateValidate(t *testing.T) {
	threshold := 12.5
	badThreshold := -3.0
	rate := 4.0
	badRate := 80.0
	timer := 20 * time.Second

	ok := PartialUpdate{DistanceThresholdCm: &threshold, TargetSignalsPerSecond: &rate, TimerDuration: &timer}
	require.NoError(t, ok.Validate())
	assert.False(t, ok.Empty())

	assert.Error(t, (&PartialUpdate{DistanceThresholdCm: &badThreshold}).Validate())
	assert.Error(t, (&PartialUpdate{TargetSignalsPerSecond: &badRate}).Validate())
	assert.True(t, (&PartialUpdate{}).Empty())
}

func TestDerivedDurations(t *testing.T) {
	d := DetectionSettings{TimerDurationSeconds: 15, TargetSignalsPerSecond: 2}
	assert.Equal(t, 15*time.Second, d.TimerDuration())
	assert.Equal(t, 500*time.Millisecond, d.CycleBudget())
}

func TestSaveWritesYAML(t *testing.T) {
	path := t.TempDir() + "/nested/config.yaml"
	require.NoError(t, validSettings().Save(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "distancethresholdcm: 10")
	assert.Contains(t, string(data), "framesizesamples: 25000")
}
