package windowing

import (
	"fmt"
	"math"
	"strings"
)

// Type identifies a window shape
type Type string

const (
	Hann        Type = "hann"
	Hamming     Type = "hamming"
	Rectangular Type = "rectangular"
)

// ParseType converts a configuration string to a window Type
func ParseType(s string) (Type, error) {
	switch Type(strings.ToLower(strings.TrimSpace(s))) {
	case "", Hann:
		return Hann, nil
	case Hamming:
		return Hamming, nil
	case Rectangular, "rect", "boxcar":
		return Rectangular, nil
	default:
		return "", fmt.Errorf("unknown window type %q", s)
	}
}

// Window holds precomputed two-term cosine window coefficients.
// Coefficients are read-only after construction, so one Window can be
// applied from several goroutines at once.
type Window struct {
	kind         Type
	size         int
	symmetric    bool
	coefficients []float64
}

// New creates a window of the given type and size. Periodic windows
// (symmetric=false) are the usual choice for spectral analysis.
func New(kind Type, size int, symmetric bool) (*Window, error) {
	if size <= 0 {
		return nil, fmt.Errorf("window size must be positive: %d", size)
	}

	var a0 float64
	switch kind {
	case Hann:
		a0 = 0.5
	case Hamming:
		a0 = 0.54
	case Rectangular:
		a0 = 1.0
	default:
		return nil, fmt.Errorf("unknown window type %q", kind)
	}

	w := &Window{
		kind:      kind,
		size:      size,
		symmetric: symmetric,
	}
	w.generate(a0)
	return w, nil
}

// NewHann creates a Hann window
func NewHann(size int, symmetric bool) *Window {
	w, _ := New(Hann, max(size, 1), symmetric)
	return w
}

// generate fills w(n) = a0 - (1-a0)cos(2πn/N)
func (w *Window) generate(a0 float64) {
	w.coefficients = make([]float64, w.size)

	denominator := float64(w.size)
	if w.symmetric && w.size > 1 {
		denominator = float64(w.size - 1)
	}

	for i := range w.size {
		w.coefficients[i] = a0 - (1-a0)*math.Cos(2*math.Pi*float64(i)/denominator)
	}
}

// Apply applies the window to a signal (creates new array)
func (w *Window) Apply(signal []float64) []float64 {
	if len(signal) != w.size {
		return nil
	}

	windowed := make([]float64, w.size)
	for i, c := range w.coefficients {
		windowed[i] = signal[i] * c
	}
	return windowed
}

// ApplyInPlace applies the window to a signal in-place
func (w *Window) ApplyInPlace(signal []float64) error {
	if len(signal) != w.size {
		return fmt.Errorf("signal length (%d) doesn't match window size (%d)", len(signal), w.size)
	}

	for i, c := range w.coefficients {
		signal[i] *= c
	}
	return nil
}

// Coefficients returns a copy of the window coefficients
func (w *Window) Coefficients() []float64 {
	coeffs := make([]float64, len(w.coefficients))
	copy(coeffs, w.coefficients)
	return coeffs
}

// Size returns the window length
func (w *Window) Size() int {
	return w.size
}

// Kind returns the window type
func (w *Window) Kind() Type {
	return w.kind
}
