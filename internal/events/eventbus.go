package events

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/ultrasense/ultrasense-go/internal/logging"
)

// Bus provides asynchronous event processing with non-blocking publish.
type Bus struct {
	eventChan chan Event

	bufferSize int
	workers    int

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running atomic.Bool

	mu        sync.RWMutex
	consumers []Consumer

	stats struct {
		received  atomic.Uint64
		processed atomic.Uint64
		dropped   atomic.Uint64
		errors    atomic.Uint64
	}

	logger *slog.Logger
}

// Config holds event bus configuration.
type Config struct {
	BufferSize int
	Workers    int
}

// DefaultConfig returns the default event bus configuration.
func DefaultConfig() *Config {
	return &Config{
		BufferSize: 256,
		Workers:    2,
	}
}

// NewBus creates and starts a new event bus.
func NewBus(config *Config) *Bus {
	if config == nil {
		config = DefaultConfig()
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &Bus{
		eventChan:  make(chan Event, config.BufferSize),
		bufferSize: config.BufferSize,
		workers:    config.Workers,
		ctx:        ctx,
		cancel:     cancel,
		logger:     logging.ForService("eventbus"),
	}

	b.running.Store(true)
	for i := 0; i < b.workers; i++ {
		b.wg.Add(1)
		go b.worker()
	}
	return b
}

// RegisterConsumer adds a consumer that will receive all future events.
func (b *Bus) RegisterConsumer(c Consumer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consumers = append(b.consumers, c)
	b.logger.Debug("consumer registered", "consumer", c.Name())
}

// Publish delivers an event to the bus without blocking. When the buffer is
// full the event is dropped and counted; the producer is never stalled.
func (b *Bus) Publish(event Event) bool {
	if !b.running.Load() {
		return false
	}
	b.stats.received.Add(1)

	select {
	case b.eventChan <- event:
		return true
	default:
		b.stats.dropped.Add(1)
		return false
	}
}

func (b *Bus) worker() {
	defer b.wg.Done()
	for {
		select {
		case <-b.ctx.Done():
			// Drain remaining buffered events before exit.
			for {
				select {
				case event := <-b.eventChan:
					b.dispatch(event)
				default:
					return
				}
			}
		case event := <-b.eventChan:
			b.dispatch(event)
		}
	}
}

func (b *Bus) dispatch(event Event) {
	b.mu.RLock()
	consumers := b.consumers
	b.mu.RUnlock()

	for _, c := range consumers {
		if err := c.ProcessEvent(event); err != nil {
			b.stats.errors.Add(1)
			b.logger.Warn("consumer failed to process event",
				"consumer", c.Name(),
				"event_type", event.GetType(),
				"error", err)
		}
	}
	b.stats.processed.Add(1)
}

// Shutdown stops the bus, draining buffered events. Safe to call twice.
func (b *Bus) Shutdown() {
	if !b.running.CompareAndSwap(true, false) {
		return
	}
	b.cancel()
	b.wg.Wait()
	b.logger.Debug("event bus stopped", "stats", b.Stats())
}

// Stats returns a snapshot of bus counters.
func (b *Bus) Stats() BusStats {
	return BusStats{
		EventsReceived:  b.stats.received.Load(),
		EventsProcessed: b.stats.processed.Load(),
		EventsDropped:   b.stats.dropped.Load(),
		ConsumerErrors:  b.stats.errors.Load(),
	}
}
