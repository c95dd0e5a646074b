package dsp

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/ultrasense/ultrasense-go/internal/conf"
	"github.com/ultrasense/ultrasense-go/internal/errors"
)

// Tensor is a 2-D time-frequency magnitude array: FreqBins rows of
// TimeFrames columns. It is consumed immediately by the classifier.
type Tensor struct {
	FreqBins   int
	TimeFrames int
	Data       [][]float64 // Data[freq][frame]
}

// At returns the magnitude at frequency bin f and time frame t.
func (s *Tensor) At(f, t int) float64 {
	return s.Data[f][t]
}

// Flatten returns the tensor in row-major order (frequency-major) as
// float32, the layout the classifier's input tensor expects.
func (s *Tensor) Flatten() []float32 {
	out := make([]float32, 0, s.FreqBins*s.TimeFrames)
	for f := 0; f < s.FreqBins; f++ {
		for t := 0; t < s.TimeFrames; t++ {
			out = append(out, float32(s.Data[f][t]))
		}
	}
	return out
}

// Spectrogram converts a conditioned waveform into a short-time magnitude
// spectrum. Window length, overlap and window function are fixed per
// configuration, so the output shape is fixed too: windowLength/2+1
// frequency bins by 1+(len-window)/(window-overlap) frames. The computation
// is deterministic: identical input produces a bit-identical tensor.
//
// Each segment has its mean removed before windowing and the magnitudes are
// normalized by the window gain, matching the analysis the classifier was
// trained against.
func Spectrogram(waveform []float64, cfg *conf.SpectrogramSettings) (*Tensor, error) {
	nperseg := cfg.WindowLength
	step := nperseg - cfg.Overlap

	if len(waveform) < nperseg {
		return nil, errors.Newf("waveform of %d samples shorter than window %d", len(waveform), nperseg).
			Component("dsp").
			Category(errors.CategorySpectrogram).
			Build()
	}

	win := hammingWindow(nperseg)
	winSum := 0.0
	for _, w := range win {
		winSum += w
	}

	freqBins := nperseg/2 + 1
	frames := 1 + (len(waveform)-nperseg)/step

	out := &Tensor{
		FreqBins:   freqBins,
		TimeFrames: frames,
		Data:       make([][]float64, freqBins),
	}
	for f := range out.Data {
		out.Data[f] = make([]float64, frames)
	}

	fft := fourier.NewFFT(nperseg)
	segment := make([]float64, nperseg)
	coeffs := make([]complex128, freqBins)

	for t := 0; t < frames; t++ {
		start := t * step
		copy(segment, waveform[start:start+nperseg])

		// Remove the per-segment mean so DC offset does not dominate bin 0.
		mean := 0.0
		for _, v := range segment {
			mean += v
		}
		mean /= float64(nperseg)
		for i := range segment {
			segment[i] = (segment[i] - mean) * win[i]
		}

		fft.Coefficients(coeffs, segment)
		for f := 0; f < freqBins; f++ {
			out.Data[f][t] = cmplxAbs(coeffs[f]) / winSum
		}
	}

	return out, nil
}

// hammingWindow returns the periodic Hamming window of length n used by
// short-time analysis.
func hammingWindow(n int) []float64 {
	win := make([]float64, n)
	for i := range win {
		win[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n))
	}
	return win
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}
