package spectral

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// FFT wraps mjibson/go-dsp for real-valued frames.
// It holds no state and may be shared between goroutines.
type FFT struct{}

// NewFFT creates a new FFT calculator
func NewFFT() *FFT {
	return &FFT{}
}

// Compute returns the full complex spectrum of x
func (f *FFT) Compute(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}

	// go-dsp handles non-power-of-two sizes through Bluestein
	return fft.FFTReal(x)
}

// Magnitudes writes |X[k]| for the non-negative frequency bins of frame
// into dst and returns it. dst is reallocated when it is too small.
func (f *FFT) Magnitudes(frame []float64, dst []float64) []float64 {
	bins := len(frame)/2 + 1
	if cap(dst) < bins {
		dst = make([]float64, bins)
	}
	dst = dst[:bins]

	if len(frame) == 0 {
		return dst[:0]
	}

	spectrum := f.Compute(frame)
	for k := range bins {
		dst[k] = cmplx.Abs(spectrum[k])
	}
	return dst
}

// PowerSpectrum writes |X[k]|² for the non-negative frequency bins of frame
// into dst and returns it, reallocating like Magnitudes
func (f *FFT) PowerSpectrum(frame []float64, dst []float64) []float64 {
	dst = f.Magnitudes(frame, dst)
	for k, m := range dst {
		dst[k] = m * m
	}
	return dst
}

// BinFrequencies returns the centre frequency in Hz of each of the
// nFFT/2+1 bins
func BinFrequencies(nFFT, sampleRate int) []float64 {
	bins := nFFT/2 + 1
	freqs := make([]float64, bins)
	for k := range freqs {
		freqs[k] = float64(k) * float64(sampleRate) / float64(nFFT)
	}
	return freqs
}
