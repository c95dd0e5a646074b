package observability

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ultrasense/ultrasense-go/internal/conf"
	"github.com/ultrasense/ultrasense-go/internal/logging"
)

// shutdownTimeout bounds the graceful stop of the metrics server.
const shutdownTimeout = 5 * time.Second

// Endpoint serves the Prometheus metrics over HTTP.
type Endpoint struct {
	server        *http.Server
	listenAddress string
	metrics       *Metrics
	logger        *slog.Logger
}

// NewEndpoint creates a telemetry endpoint for the given settings and
// metrics. Returns an error when telemetry is not enabled.
func NewEndpoint(settings *conf.Settings, metrics *Metrics) (*Endpoint, error) {
	if !settings.Realtime.Telemetry.Enabled {
		return nil, fmt.Errorf("telemetry not enabled in settings")
	}

	return &Endpoint{
		listenAddress: settings.Realtime.Telemetry.Listen,
		metrics:       metrics,
		logger:        logging.ForService("telemetry"),
	}, nil
}

// Start runs the HTTP server in its own goroutine and shuts it down when
// quitChan closes. wg tracks the server goroutine.
func (e *Endpoint) Start(wg *sync.WaitGroup, quitChan <-chan struct{}) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(e.metrics.Registry(), promhttp.HandlerOpts{}))

	e.server = &http.Server{
		Addr:              e.listenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		e.logger.Info("telemetry endpoint starting", "address", e.listenAddress)
		if err := e.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			e.logger.Error("telemetry server error", "error", err)
		}
	}()

	go e.gracefulShutdown(quitChan)
}

func (e *Endpoint) gracefulShutdown(quitChan <-chan struct{}) {
	<-quitChan
	e.logger.Info("stopping telemetry server")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.server.Shutdown(ctx); err != nil {
		e.logger.Error("telemetry server shutdown error", "error", err)
	}
}

// GetMetrics returns the Metrics instance served by this endpoint.
func (e *Endpoint) GetMetrics() *Metrics {
	return e.metrics
}
