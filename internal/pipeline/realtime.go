// Package pipeline assembles and runs the realtime detection service: sensor
// client, classifier, actuator, worker, event bus and the optional MQTT and
// telemetry integrations.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ultrasense/ultrasense-go/internal/actuator"
	"github.com/ultrasense/ultrasense-go/internal/classifier"
	"github.com/ultrasense/ultrasense-go/internal/conf"
	"github.com/ultrasense/ultrasense-go/internal/diagnostics"
	"github.com/ultrasense/ultrasense-go/internal/events"
	"github.com/ultrasense/ultrasense-go/internal/logging"
	"github.com/ultrasense/ultrasense-go/internal/mqtt"
	"github.com/ultrasense/ultrasense-go/internal/observability"
	"github.com/ultrasense/ultrasense-go/internal/sensor"
	"github.com/ultrasense/ultrasense-go/internal/worker"
)

// RunRealtime wires the pipeline together and runs it until SIGINT or
// SIGTERM. It returns an error only for fatal startup failures; runtime
// trouble is handled inside the loop.
func RunRealtime(settings *conf.Settings) error {
	applyLogLevel(settings)
	diagnostics.LogStartup(buildVersion())

	logger := logging.ForService("pipeline")

	bus := events.NewBus(events.DefaultConfig())
	defer bus.Shutdown()

	logSink := newLogConsumer(settings)
	defer logSink.Close()
	bus.RegisterConsumer(logSink)

	var wg sync.WaitGroup
	quitChan := make(chan struct{})

	if settings.Realtime.Telemetry.Enabled {
		if err := startTelemetry(settings, bus, &wg, quitChan); err != nil {
			close(quitChan)
			return err
		}
	}

	if settings.Realtime.MQTT.Enabled {
		startMQTT(settings, bus, logger)
	}

	clf, err := classifier.NewTFLite(&settings.Detection)
	if err != nil {
		close(quitChan)
		return fmt.Errorf("initializing classifier: %w", err)
	}
	defer clf.Close()

	source, err := sensor.NewClient(settings.Sensor)
	if err != nil {
		close(quitChan)
		return fmt.Errorf("opening sensor channel: %w", err)
	}
	defer source.Close()

	act := buildActuator(settings)
	defer act.Close()

	w := worker.New(settings, source, clf, act, bus)

	ctx, cancel := context.WithTimeout(context.Background(), settings.Sensor.HandshakeTimeout)
	err = w.Start(ctx)
	cancel()
	if err != nil {
		close(quitChan)
		return fmt.Errorf("starting detection worker: %w", err)
	}

	// Run until interrupted.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("shutdown signal received", "signal", sig.String())

	w.Stop()
	close(quitChan)
	wg.Wait()

	stats := w.Stats()
	logger.Info("final run statistics",
		"frames_received", stats.FramesReceived,
		"frames_discarded", stats.FramesDiscardedBroken,
		"frames_processed", stats.FramesProcessedValid,
		"human", stats.HumanCount,
		"non_human", stats.NonHumanCount,
		"uncertain", stats.UncertainCount,
		"activity_triggers", stats.ActivityTriggers,
		"mean_inference_latency", stats.MeanInferenceLatency)
	return nil
}

func applyLogLevel(settings *conf.Settings) {
	if settings.Debug {
		logging.SetLevel(slog.LevelDebug)
		return
	}
	switch strings.ToLower(settings.Main.LogLevel) {
	case "trace":
		logging.SetLevel(logging.LevelTrace)
	case "debug":
		logging.SetLevel(slog.LevelDebug)
	case "warn":
		logging.SetLevel(slog.LevelWarn)
	case "error":
		logging.SetLevel(slog.LevelError)
	default:
		logging.SetLevel(slog.LevelInfo)
	}
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "unknown"
}

func startTelemetry(settings *conf.Settings, bus *events.Bus, wg *sync.WaitGroup, quitChan chan struct{}) error {
	registry := prometheus.NewRegistry()
	metrics, err := observability.NewMetrics(registry)
	if err != nil {
		return fmt.Errorf("initializing metrics: %w", err)
	}

	endpoint, err := observability.NewEndpoint(settings, metrics)
	if err != nil {
		return fmt.Errorf("initializing telemetry endpoint: %w", err)
	}
	endpoint.Start(wg, quitChan)

	bus.RegisterConsumer(observability.NewMetricsConsumer(metrics))
	return nil
}

// startMQTT connects best-effort: a broker that is down at startup only
// costs the events published while it stays down.
func startMQTT(settings *conf.Settings, bus *events.Bus, logger *slog.Logger) {
	client := mqtt.NewClient(settings)

	ctx, cancel := context.WithTimeout(context.Background(), settings.Sensor.HandshakeTimeout)
	defer cancel()
	if err := client.Connect(ctx); err != nil {
		logger.Warn("MQTT broker not reachable at startup, auto-reconnect stays active",
			"broker", settings.Realtime.MQTT.Broker,
			"error", err)
	}

	bus.RegisterConsumer(mqtt.NewConsumer(client, settings.Realtime.MQTT.Topic))
}

func buildActuator(settings *conf.Settings) actuator.Controller {
	if !settings.Actuator.Enabled {
		return actuator.NewNoop()
	}

	cfg := settings.Actuator
	if cfg.Host == "" {
		// The LED lives on the acquisition board itself.
		cfg.Host = settings.Sensor.Host
	}
	return actuator.NewSSH(cfg)
}
