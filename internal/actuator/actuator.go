// Package actuator drives the presence indicator over the board's SSH side
// channel. The channel is best-effort: command failures are logged and
// reported, never allowed to stall the detection loop.
package actuator

import "context"

// Controller switches the physical indicator. Implementations must be safe
// for the single detection worker goroutine plus a Close from the shutdown
// path.
type Controller interface {
	// On asserts the indicator. Called exactly once per hold-timer edge.
	On(ctx context.Context) error
	// Off deasserts the indicator. Called exactly once per hold-timer edge.
	Off(ctx context.Context) error
	// IsOn reports the last state successfully commanded.
	IsOn() bool
	// Close releases the underlying channel.
	Close() error
}

// Noop is the controller used when the actuator is disabled in the
// configuration. State is tracked so events still carry the actuator flag.
type Noop struct {
	on bool
}

// NewNoop returns a controller that records state without side effects.
func NewNoop() *Noop { return &Noop{} }

func (n *Noop) On(context.Context) error  { n.on = true; return nil }
func (n *Noop) Off(context.Context) error { n.on = false; return nil }
func (n *Noop) IsOn() bool                { return n.on }
func (n *Noop) Close() error              { return nil }
