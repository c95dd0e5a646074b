// Package classifier defines the scoring contract the detection pipeline
// consumes and its TensorFlow Lite implementation. The core treats the model
// as an opaque function from spectrogram tensor to label and confidence;
// the network architecture behind it can be swapped freely.
package classifier

import (
	"github.com/ultrasense/ultrasense-go/internal/dsp"
)

// Label is the classification outcome for one spectrogram.
type Label int

const (
	// LabelNonHuman means the echo pattern does not match a person.
	LabelNonHuman Label = iota
	// LabelHuman means the echo pattern matches a person.
	LabelHuman
	// LabelUncertain is assigned by the core when confidence falls below the
	// configured margin. The classifier itself never returns it.
	LabelUncertain
)

// String returns the wire/log form of the label.
func (l Label) String() string {
	switch l {
	case LabelHuman:
		return "human"
	case LabelNonHuman:
		return "non_human"
	case LabelUncertain:
		return "uncertain"
	default:
		return "unknown"
	}
}

// Result is one classification outcome with class probabilities.
type Result struct {
	Label         Label
	Confidence    float64    // probability of the winning class, in [0,1]
	Probabilities [2]float64 // [non-human, human]
}

// Classifier scores a spectrogram tensor. Implementations return only
// LabelHuman or LabelNonHuman; the Uncertain recast happens in the core via
// ApplyMargin. Implementations must be safe for use from a single worker
// goroutine; they need not be concurrency-safe beyond that.
type Classifier interface {
	// Classify scores one tensor.
	Classify(tensor *dsp.Tensor) (Result, error)

	// Close releases model resources.
	Close() error
}

// ApplyMargin recasts a result as Uncertain when its confidence falls below
// the decision margin. Applied by the detection worker before the result
// reaches the hold timer or statistics.
func ApplyMargin(r Result, margin float64) Result {
	if r.Confidence < margin {
		r.Label = LabelUncertain
	}
	return r
}
