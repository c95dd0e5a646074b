// tflite.go: TensorFlow Lite backed implementation of the Classifier
// contract.
package classifier

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	tflite "github.com/tphakala/go-tflite"
	"github.com/tphakala/go-tflite/delegates/xnnpack"

	"github.com/ultrasense/ultrasense-go/internal/conf"
	"github.com/ultrasense/ultrasense-go/internal/dsp"
	"github.com/ultrasense/ultrasense-go/internal/errors"
	"github.com/ultrasense/ultrasense-go/internal/logging"
)

// TFLite runs the presence model through the TensorFlow Lite C API.
type TFLite struct {
	interpreter *tflite.Interpreter
	model       *tflite.Model
	modelPath   string

	// The interpreter is not reentrant; serialize Invoke.
	mu sync.Mutex
}

// NewTFLite loads the model file and prepares an interpreter. Construction
// failures are fatal for a run: without a scoring function the pipeline
// cannot start.
func NewTFLite(settings *conf.DetectionSettings) (*TFLite, error) {
	start := time.Now()
	log := logging.ForService("classifier")

	modelData, err := os.ReadFile(settings.ModelPath)
	if err != nil {
		return nil, errors.New(fmt.Errorf("cannot read model file: %w", err)).
			Component("classifier").
			Category(errors.CategoryModelInit).
			Context("model_path", filepath.Base(settings.ModelPath)).
			Timing("model-load", time.Since(start)).
			Build()
	}

	model := tflite.NewModel(modelData)
	if model == nil {
		return nil, errors.Newf("cannot load TensorFlow Lite model").
			Component("classifier").
			Category(errors.CategoryModelInit).
			Context("model_size_kb", len(modelData)/1024).
			Build()
	}

	threads := runtime.NumCPU()
	options := tflite.NewInterpreterOptions()

	if settings.UseXNNPACK {
		delegate := xnnpack.New(xnnpack.DelegateOptions{NumThreads: int32(max(1, threads-1))}) //nolint:gosec // G115: bounded by CPU count
		if delegate == nil {
			if log != nil {
				log.Warn("failed to create XNNPACK delegate, falling back to default CPU")
			}
			options.SetNumThread(threads)
		} else {
			options.AddDelegate(delegate)
			options.SetNumThread(1)
		}
	} else {
		options.SetNumThread(threads)
	}

	interpreter := tflite.NewInterpreter(model, options)
	if interpreter == nil {
		return nil, errors.Newf("cannot create TensorFlow Lite interpreter").
			Component("classifier").
			Category(errors.CategoryModelInit).
			Build()
	}
	if status := interpreter.AllocateTensors(); status != tflite.OK {
		return nil, errors.Newf("tensor allocation failed").
			Component("classifier").
			Category(errors.CategoryModelInit).
			Build()
	}

	if log != nil {
		log.Info("presence model initialized",
			"model", filepath.Base(settings.ModelPath),
			"threads", threads,
			"xnnpack", settings.UseXNNPACK,
			"load_time_ms", time.Since(start).Milliseconds())
	}

	return &TFLite{
		interpreter: interpreter,
		model:       model,
		modelPath:   settings.ModelPath,
	}, nil
}

// Classify scores one spectrogram tensor and returns the winning class with
// its softmax probability.
func (c *TFLite) Classify(tensor *dsp.Tensor) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	input := c.interpreter.GetInputTensor(0)
	if input == nil {
		return Result{}, errors.Newf("cannot get input tensor").
			Component("classifier").
			Category(errors.CategoryModelInference).
			Build()
	}

	flat := tensor.Flatten()
	dst := input.Float32s()
	if len(dst) != len(flat) {
		return Result{}, errors.Newf("input tensor size mismatch: model wants %d values, spectrogram has %d",
			len(dst), len(flat)).
			Component("classifier").
			Category(errors.CategoryModelInference).
			Context("freq_bins", tensor.FreqBins).
			Context("time_frames", tensor.TimeFrames).
			Build()
	}
	copy(dst, flat)

	if status := c.interpreter.Invoke(); status != tflite.OK {
		return Result{}, errors.Newf("tensor invoke failed: %v", status).
			Component("classifier").
			Category(errors.CategoryModelInference).
			Build()
	}

	output := c.interpreter.GetOutputTensor(0)
	if output == nil {
		return Result{}, errors.Newf("cannot get output tensor").
			Component("classifier").
			Category(errors.CategoryModelInference).
			Build()
	}

	logits := output.Float32s()
	if len(logits) != 2 {
		return Result{}, errors.Newf("unexpected output tensor size %d, want 2 class logits", len(logits)).
			Component("classifier").
			Category(errors.CategoryModelInference).
			Build()
	}

	probs := softmax2(float64(logits[0]), float64(logits[1]))
	result := Result{Probabilities: probs}
	if probs[1] >= probs[0] {
		result.Label = LabelHuman
		result.Confidence = probs[1]
	} else {
		result.Label = LabelNonHuman
		result.Confidence = probs[0]
	}
	return result, nil
}

// Close releases the interpreter and model.
func (c *TFLite) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.interpreter != nil {
		c.interpreter.Delete()
		c.interpreter = nil
	}
	if c.model != nil {
		c.model.Delete()
		c.model = nil
	}
	return nil
}

// softmax2 converts two logits into probabilities, shifted for numerical
// stability.
func softmax2(a, b float64) [2]float64 {
	m := math.Max(a, b)
	ea := math.Exp(a - m)
	eb := math.Exp(b - m)
	sum := ea + eb
	return [2]float64{ea / sum, eb / sum}
}
