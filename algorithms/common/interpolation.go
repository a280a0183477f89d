package common

import (
	"math"
)

// InterpolationType defines interpolation method
type InterpolationType int

const (
	Linear InterpolationType = iota
	Cubic
)

// Interpolator provides fractional-index interpolation and the simple
// sample rate conversion built on it
type Interpolator struct {
	method InterpolationType
}

// NewInterpolator creates a new interpolator
func NewInterpolator(method InterpolationType) *Interpolator {
	return &Interpolator{
		method: method,
	}
}

// Interpolate performs interpolation at fractional index
func (interp *Interpolator) Interpolate(data []float64, index float64) float64 {
	switch interp.method {
	case Cubic:
		return interp.cubicInterpolate(data, index)
	default:
		return interp.linearInterpolate(data, index)
	}
}

func (interp *Interpolator) linearInterpolate(data []float64, index float64) float64 {
	if len(data) == 0 {
		return 0.0
	}

	if index <= 0 {
		return data[0]
	}
	if index >= float64(len(data)-1) {
		return data[len(data)-1]
	}

	i := int(index)
	frac := index - float64(i)

	return data[i] + frac*(data[i+1]-data[i])
}

// cubicInterpolate uses a Catmull-Rom spline through the four nearest samples
func (interp *Interpolator) cubicInterpolate(data []float64, index float64) float64 {
	if len(data) < 4 {
		return interp.linearInterpolate(data, index)
	}

	if index <= 0 {
		return data[0]
	}
	if index >= float64(len(data)-1) {
		return data[len(data)-1]
	}

	i := int(index)
	frac := index - float64(i)

	at := func(k int) float64 {
		if k < 0 {
			return data[0]
		}
		if k >= len(data) {
			return data[len(data)-1]
		}
		return data[k]
	}

	y0 := at(i - 1)
	y1 := at(i)
	y2 := at(i + 1)
	y3 := at(i + 2)

	a0 := -0.5*y0 + 1.5*y1 - 1.5*y2 + 0.5*y3
	a1 := y0 - 2.5*y1 + 2*y2 - 0.5*y3
	a2 := -0.5*y0 + 0.5*y2
	a3 := y1

	return a0*frac*frac*frac + a1*frac*frac + a2*frac + a3
}

// ResampleSignal converts a signal between sample rates by interpolation.
// The output length is round(len * targetRate / originalRate).
// When downsampling, a moving-average prefilter spanning one output period limits aliasing.
func (interp *Interpolator) ResampleSignal(signal []float64, originalRate, targetRate int) []float64 {
	if len(signal) == 0 || originalRate <= 0 || targetRate <= 0 || originalRate == targetRate {
		return signal
	}

	ratio := float64(originalRate) / float64(targetRate)
	newLength := int(math.Round(float64(len(signal)) / ratio))
	if newLength <= 0 {
		return []float64{}
	}

	source := signal
	if ratio > 1 {
		source = boxFilter(signal, int(math.Ceil(ratio)))
	}

	resampled := make([]float64, newLength)
	for i := range resampled {
		resampled[i] = interp.Interpolate(source, float64(i)*ratio)
	}

	return resampled
}

// boxFilter applies a centred moving average of the given width
func boxFilter(signal []float64, width int) []float64 {
	if width <= 1 {
		return signal
	}

	prefix := make([]float64, len(signal)+1)
	for i, v := range signal {
		prefix[i+1] = prefix[i] + v
	}

	half := width / 2
	out := make([]float64, len(signal))
	for i := range signal {
		lo := max(0, i-half)
		hi := min(len(signal), i-half+width)
		out[i] = (prefix[hi] - prefix[lo]) / float64(hi-lo)
	}
	return out
}
