// Package errors provides centralized error handling with component and
// category metadata so failures can be grouped and routed to telemetry.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorCategory represents the type of error for better categorization
type ErrorCategory string

const (
	CategoryValidation     ErrorCategory = "validation"
	CategoryConfiguration  ErrorCategory = "configuration"
	CategoryNetwork        ErrorCategory = "network"
	CategoryHandshake      ErrorCategory = "handshake"
	CategoryFrameDecode    ErrorCategory = "frame-decode"
	CategoryConditioning   ErrorCategory = "signal-conditioning"
	CategorySpectrogram    ErrorCategory = "spectrogram"
	CategoryModelInit      ErrorCategory = "model-initialization"
	CategoryModelInference ErrorCategory = "model-inference"
	CategoryActuator       ErrorCategory = "actuator"
	CategoryTimeout        ErrorCategory = "timeout"
	CategoryState          ErrorCategory = "state"
	CategoryWorker         ErrorCategory = "worker"
	CategoryGeneric        ErrorCategory = "generic"
)

// Sentinel errors for the transient-expected taxonomy. These are counted and
// skipped by the detection worker, never surfaced as failures.
var (
	// ErrReceiveTimeout indicates no complete frame arrived before the read deadline.
	ErrReceiveTimeout = stderrors.New("frame receive timed out")

	// ErrMalformedFrame indicates a truncated, out-of-sequence or short receipt.
	ErrMalformedFrame = stderrors.New("malformed frame")

	// ErrFrameRejected indicates the conditioner refused an under-length waveform.
	ErrFrameRejected = stderrors.New("frame rejected by conditioner")
)

// EnhancedError wraps an error with additional context and metadata
type EnhancedError struct {
	Err       error          // Original error
	Component string         // Component where the error occurred
	Category  ErrorCategory  // Error category for grouping
	Context   map[string]any // Additional context data
	Timestamp time.Time      // When the error occurred
}

// Error implements the error interface
func (ee *EnhancedError) Error() string {
	return ee.Err.Error()
}

// Unwrap returns the original error for errors.Is/As compatibility
func (ee *EnhancedError) Unwrap() error {
	return ee.Err
}

// GetComponent returns the component, or "unknown" when unset.
func (ee *EnhancedError) GetComponent() string {
	if ee.Component == "" {
		return "unknown"
	}
	return ee.Component
}

// GetCategory returns the category as a string for event consumers.
func (ee *EnhancedError) GetCategory() string {
	if ee.Category == "" {
		return string(CategoryGeneric)
	}
	return string(ee.Category)
}

// GetContext returns the context map attached to the error, may be nil.
func (ee *EnhancedError) GetContext() map[string]any {
	return ee.Context
}

// ErrorBuilder provides a fluent interface for creating enhanced errors
type ErrorBuilder struct {
	err       error
	component string
	category  ErrorCategory
	context   map[string]any
}

// New creates a new error builder wrapping err.
func New(err error) *ErrorBuilder {
	return &ErrorBuilder{
		err: err,
		// context is lazily initialized when needed
	}
}

// Newf creates a new error builder from a format string.
func Newf(format string, args ...any) *ErrorBuilder {
	return New(fmt.Errorf(format, args...))
}

// Component sets the component name.
func (eb *ErrorBuilder) Component(component string) *ErrorBuilder {
	eb.component = component
	return eb
}

// Category sets the error category for better grouping.
func (eb *ErrorBuilder) Category(category ErrorCategory) *ErrorBuilder {
	eb.category = category
	return eb
}

// Context adds context data to the error.
func (eb *ErrorBuilder) Context(key string, value any) *ErrorBuilder {
	if eb.context == nil {
		eb.context = make(map[string]any)
	}
	eb.context[key] = value
	return eb
}

// Timing adds performance timing context.
func (eb *ErrorBuilder) Timing(operation string, duration time.Duration) *ErrorBuilder {
	if eb.context == nil {
		eb.context = make(map[string]any)
	}
	eb.context["operation"] = operation
	eb.context["duration_ms"] = duration.Milliseconds()
	return eb
}

// Build creates the EnhancedError.
func (eb *ErrorBuilder) Build() *EnhancedError {
	return &EnhancedError{
		Err:       eb.err,
		Component: eb.component,
		Category:  eb.category,
		Context:   eb.context,
		Timestamp: time.Now(),
	}
}

// --- Standard library passthroughs so callers only import this package ---

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Unwrap returns the result of calling the Unwrap method on err.
func Unwrap(err error) error {
	return stderrors.Unwrap(err)
}

// NewStd creates a plain standard error without enhancement. Use for
// sentinel errors and simple cases that need no metadata.
func NewStd(text string) error {
	return stderrors.New(text)
}
