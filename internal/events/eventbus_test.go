package events

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockConsumer implements Consumer for testing.
type mockConsumer struct {
	name      string
	processed atomic.Int32
	failing   bool

	mu     sync.Mutex
	events []Event
}

func (m *mockConsumer) Name() string { return m.name }

func (m *mockConsumer) ProcessEvent(event Event) error {
	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()
	m.processed.Add(1)
	if m.failing {
		return assert.AnError
	}
	return nil
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestBusDeliversToAllConsumers(t *testing.T) {
	bus := NewBus(nil)
	defer bus.Shutdown()

	first := &mockConsumer{name: "first"}
	second := &mockConsumer{name: "second"}
	bus.RegisterConsumer(first)
	bus.RegisterConsumer(second)

	ev := NewDetectionEvent(DetectionEvent{DistanceCm: 205, Label: "non_human", Confidence: 0.97})
	require.True(t, bus.Publish(ev))

	waitFor(t, func() bool { return first.processed.Load() == 1 && second.processed.Load() == 1 })

	first.mu.Lock()
	defer first.mu.Unlock()
	got, ok := first.events[0].(*DetectionEvent)
	require.True(t, ok)
	assert.Equal(t, 205.0, got.DistanceCm)
	assert.NotEmpty(t, got.GetID())
	assert.Equal(t, TypeDetection, got.GetType())
}

func TestBusConsumerErrorDoesNotStopDispatch(t *testing.T) {
	bus := NewBus(&Config{BufferSize: 8, Workers: 1})
	defer bus.Shutdown()

	bad := &mockConsumer{name: "bad", failing: true}
	good := &mockConsumer{name: "good"}
	bus.RegisterConsumer(bad)
	bus.RegisterConsumer(good)

	bus.Publish(NewStatusEvent(StatusDegraded, "read timeouts", 6))

	waitFor(t, func() bool { return good.processed.Load() == 1 })
	assert.Equal(t, uint64(1), bus.Stats().ConsumerErrors)
}

func TestBusDropsWhenFull(t *testing.T) {
	bus := NewBus(&Config{BufferSize: 1, Workers: 1})
	// No consumers registered and a full buffer: publishes beyond capacity
	// must not block.
	bus.Shutdown() // stop workers so the channel stays full

	assert.False(t, bus.Publish(NewStatusEvent(StatusStopped, "", 0)), "publish after shutdown is refused")
}

func TestBusShutdownIdempotent(t *testing.T) {
	bus := NewBus(nil)
	bus.Shutdown()
	bus.Shutdown()

	stats := bus.Stats()
	assert.Zero(t, stats.EventsReceived)
}
