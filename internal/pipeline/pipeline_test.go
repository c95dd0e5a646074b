package pipeline

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ultrasense/ultrasense-go/internal/conf"
	"github.com/ultrasense/ultrasense-go/internal/events"
	"github.com/ultrasense/ultrasense-go/internal/logging"
)

func TestLogConsumerHandlesBothEventTypes(t *testing.T) {
	var structured, human bytes.Buffer
	logging.SetOutput(&structured, &human)
	defer logging.Init()

	c := newLogConsumer(&conf.Settings{})
	defer c.Close()

	require.NoError(t, c.ProcessEvent(events.NewDetectionEvent(events.DetectionEvent{
		DistanceCm: 150,
		Label:      "human",
		Confidence: 0.95,
	})))
	require.NoError(t, c.ProcessEvent(
		events.NewStatusEvent(events.StatusDegraded, "timeouts", 5)))

	out := structured.String()
	assert.Contains(t, out, `"label":"human"`)
	assert.Contains(t, out, `"kind":"degraded"`)
}

func TestLogConsumerRotatingFile(t *testing.T) {
	var structured, human bytes.Buffer
	logging.SetOutput(&structured, &human)
	defer logging.Init()

	settings := &conf.Settings{}
	settings.Main.LogPath = t.TempDir() + "/detections.log"

	c := newLogConsumer(settings)
	require.NoError(t, c.ProcessEvent(
		events.NewStatusEvent(events.StatusStopped, "done", 0)))
	require.NoError(t, c.Close())
}

func TestApplyLogLevel(t *testing.T) {
	defer logging.Init()

	settings := &conf.Settings{}
	settings.Main.LogLevel = "error"
	applyLogLevel(settings)

	var structured, human bytes.Buffer
	logging.SetOutput(&structured, &human)
	logging.Error("boom")
	assert.Contains(t, structured.String(), "boom")
}

func TestBuildActuator(t *testing.T) {
	settings := &conf.Settings{}
	assert.NotNil(t, buildActuator(settings), "disabled actuator yields a noop controller")

	settings.Actuator.Enabled = true
	settings.Actuator.Host = "10.0.0.1"
	assert.NotNil(t, buildActuator(settings))
}

func TestBuildVersion(t *testing.T) {
	assert.NotEmpty(t, buildVersion())
}

func TestApplyLogLevelDebugFlagWins(t *testing.T) {
	defer logging.Init()

	settings := &conf.Settings{Debug: true}
	settings.Main.LogLevel = "error"
	applyLogLevel(settings)

	var structured, human bytes.Buffer
	logging.SetOutput(&structured, &human)
	logging.Debug("visible")
	assert.Contains(t, structured.String(), "visible", "debug flag overrides the configured level")
}
