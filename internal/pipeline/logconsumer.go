package pipeline

import (
	"context"
	"log/slog"

	"github.com/ultrasense/ultrasense-go/internal/conf"
	"github.com/ultrasense/ultrasense-go/internal/events"
	"github.com/ultrasense/ultrasense-go/internal/logging"
)

// logConsumer writes every bus event to the detection log. When a log path
// is configured the events additionally go to a rotating file, which is the
// durable record of a run.
type logConsumer struct {
	logger     *slog.Logger
	fileLogger *slog.Logger
	closeFile  func() error
}

func newLogConsumer(settings *conf.Settings) *logConsumer {
	c := &logConsumer{logger: logging.ForService("detections")}

	if settings.Main.LogPath != "" {
		fileLogger, closer, err := logging.NewFileLogger(settings.Main.LogPath, "detections", slog.LevelInfo)
		if err != nil {
			c.logger.Error("failed to open detection log file, continuing without it",
				"path", settings.Main.LogPath,
				"error", err)
		} else {
			c.fileLogger = fileLogger
			c.closeFile = closer
		}
	}
	return c
}

// Name implements events.Consumer.
func (c *logConsumer) Name() string { return "detection-log" }

// ProcessEvent implements events.Consumer.
func (c *logConsumer) ProcessEvent(event events.Event) error {
	switch e := event.(type) {
	case *events.DetectionEvent:
		c.log(slog.LevelDebug, "detection",
			"id", e.ID,
			"distance_cm", e.DistanceCm,
			"distance_change_cm", e.DistanceChangeCm,
			"active", e.IsActive,
			"label", e.Label,
			"confidence", e.Confidence,
			"actuator_on", e.ActuatorIsOn,
			"actuator_command", string(e.ActuatorCommand),
			"inference_latency_ms", e.InferenceLatency.Milliseconds())
	case *events.StatusEvent:
		c.log(slog.LevelInfo, "worker status",
			"id", e.ID,
			"kind", string(e.Kind),
			"detail", e.Detail,
			"consecutive_timeouts", e.ConsecutiveTimeouts)
	}
	return nil
}

func (c *logConsumer) log(level slog.Level, msg string, args ...any) {
	ctx := context.Background()
	c.logger.Log(ctx, level, msg, args...)
	if c.fileLogger != nil {
		c.fileLogger.Log(ctx, level, msg, args...)
	}
}

// Close releases the rotating log file if one was opened.
func (c *logConsumer) Close() error {
	if c.closeFile != nil {
		return c.closeFile()
	}
	return nil
}
