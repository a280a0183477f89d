package spectral

import (
	"fmt"

	"github.com/RyanBlaney/sonido-vox/algorithms/common"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Autocorrelator computes the linear (non-circular) autocorrelation of
// fixed-length frames with a zero-padded real FFT.
//
// An Autocorrelator owns FFT work buffers and must not be shared between
// goroutines. Create one per analysis pass.
type Autocorrelator struct {
	frameSize int
	fftSize   int
	fft       *fourier.FFT
	padded    []float64
	coeffs    []complex128
	sequence  []float64
}

// NewAutocorrelator creates an autocorrelator for frames of frameSize samples
func NewAutocorrelator(frameSize int) (*Autocorrelator, error) {
	if frameSize <= 0 {
		return nil, fmt.Errorf("frame size must be positive: %d", frameSize)
	}

	// 2N padding keeps the circular wrap-around out of lags 0..N-1
	fftSize := common.NextPowerOfTwo(2 * frameSize)

	return &Autocorrelator{
		frameSize: frameSize,
		fftSize:   fftSize,
		fft:       fourier.NewFFT(fftSize),
		padded:    make([]float64, fftSize),
		coeffs:    make([]complex128, fftSize/2+1),
		sequence:  make([]float64, fftSize),
	}, nil
}

// FrameSize returns the frame length the autocorrelator was built for
func (a *Autocorrelator) FrameSize() int {
	return a.frameSize
}

// Compute writes r[τ] = Σ x[n]·x[n+τ] for τ in [0, frameSize) into dst and
// returns it. dst is reallocated when it is too small.
func (a *Autocorrelator) Compute(frame []float64, dst []float64) ([]float64, error) {
	if len(frame) != a.frameSize {
		return nil, fmt.Errorf("frame length (%d) doesn't match autocorrelator size (%d)", len(frame), a.frameSize)
	}

	if cap(dst) < a.frameSize {
		dst = make([]float64, a.frameSize)
	}
	dst = dst[:a.frameSize]

	copy(a.padded, frame)
	clear(a.padded[a.frameSize:])

	a.fft.Coefficients(a.coeffs, a.padded)
	for k, c := range a.coeffs {
		a.coeffs[k] = complex(real(c)*real(c)+imag(c)*imag(c), 0)
	}
	a.fft.Sequence(a.sequence, a.coeffs)

	scale := 1.0 / float64(a.fftSize)
	for i := range dst {
		dst[i] = a.sequence[i] * scale
	}
	return dst, nil
}
