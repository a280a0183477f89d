package spectral

import (
	"fmt"
	"math"
)

// MelScale converts between Hz and mel and builds triangular filter banks.
// The zero value uses the Slaney formula (linear below 1 kHz, logarithmic
// above) with area-normalized filters; set HTK for the 2595·log10 variant.
type MelScale struct {
	HTK bool
}

// NewMelScale creates a Slaney mel scale converter
func NewMelScale() *MelScale {
	return &MelScale{}
}

const (
	slaneyMinLogHz  = 1000.0
	slaneyStep      = 200.0 / 3
	slaneyMinLogMel = slaneyMinLogHz / slaneyStep
)

var slaneyLogStep = math.Log(6.4) / 27.0

// HzToMel converts frequency in Hz to mel scale
func (ms *MelScale) HzToMel(hz float64) float64 {
	if ms.HTK {
		return 2595.0 * math.Log10(1.0+hz/700.0)
	}
	if hz < slaneyMinLogHz {
		return hz / slaneyStep
	}
	return slaneyMinLogMel + math.Log(hz/slaneyMinLogHz)/slaneyLogStep
}

// MelToHz converts mel scale to frequency in Hz
func (ms *MelScale) MelToHz(mel float64) float64 {
	if ms.HTK {
		return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0)
	}
	if mel < slaneyMinLogMel {
		return mel * slaneyStep
	}
	return slaneyMinLogHz * math.Exp(slaneyLogStep*(mel-slaneyMinLogMel))
}

// FilterBank is a set of triangular filters over nFFT/2+1 frequency bins.
// It is read-only after construction.
type FilterBank struct {
	weights [][]float64
	// first and last non-zero bin of every filter, inclusive
	lo, hi []int
}

// CreateFilterBank builds numFilters triangular filters spanning
// [lowFreq, highFreq]. Filter edges are placed at exact mel-spaced
// frequencies and each weight is evaluated at the bin frequency, so narrow
// low filters are never lost to bin rounding. Unless HTK is set every filter
// is scaled to unit area (2 / bandwidth in Hz).
func (ms *MelScale) CreateFilterBank(numFilters, nFFT, sampleRate int, lowFreq, highFreq float64) (*FilterBank, error) {
	if numFilters <= 0 {
		return nil, fmt.Errorf("number of mel filters must be positive: %d", numFilters)
	}
	if nFFT <= 0 || sampleRate <= 0 {
		return nil, fmt.Errorf("invalid FFT size %d or sample rate %d", nFFT, sampleRate)
	}
	if highFreq <= 0 || highFreq > float64(sampleRate)/2 {
		highFreq = float64(sampleRate) / 2
	}
	if lowFreq < 0 || lowFreq >= highFreq {
		return nil, fmt.Errorf("invalid mel frequency range [%g, %g]", lowFreq, highFreq)
	}

	lowMel := ms.HzToMel(lowFreq)
	highMel := ms.HzToMel(highFreq)

	edges := make([]float64, numFilters+2)
	for i := range edges {
		edges[i] = ms.MelToHz(lowMel + float64(i)*(highMel-lowMel)/float64(numFilters+1))
	}

	binFreqs := BinFrequencies(nFFT, sampleRate)

	fb := &FilterBank{
		weights: make([][]float64, numFilters),
		lo:      make([]int, numFilters),
		hi:      make([]int, numFilters),
	}

	for m := range numFilters {
		left, center, right := edges[m], edges[m+1], edges[m+2]
		row := make([]float64, len(binFreqs))

		scale := 1.0
		if !ms.HTK {
			scale = 2.0 / (right - left)
		}

		fb.lo[m], fb.hi[m] = len(binFreqs), -1
		for k, f := range binFreqs {
			rising := (f - left) / (center - left)
			falling := (right - f) / (right - center)
			w := math.Max(0, math.Min(rising, falling))
			if w == 0 {
				continue
			}
			row[k] = w * scale
			fb.lo[m] = min(fb.lo[m], k)
			fb.hi[m] = max(fb.hi[m], k)
		}
		fb.weights[m] = row
	}

	return fb, nil
}

// NumFilters returns the number of filters in the bank
func (fb *FilterBank) NumFilters() int {
	return len(fb.weights)
}

// Apply projects a power spectrum onto the filter bank, writing one energy
// per filter into dst
func (fb *FilterBank) Apply(powerSpectrum []float64, dst []float64) []float64 {
	if cap(dst) < len(fb.weights) {
		dst = make([]float64, len(fb.weights))
	}
	dst = dst[:len(fb.weights)]

	for m, row := range fb.weights {
		sum := 0.0
		for k := fb.lo[m]; k <= fb.hi[m] && k < len(powerSpectrum); k++ {
			sum += powerSpectrum[k] * row[k]
		}
		dst[m] = sum
	}
	return dst
}

// Weights returns a copy of filter m
func (fb *FilterBank) Weights(m int) []float64 {
	out := make([]float64, len(fb.weights[m]))
	copy(out, fb.weights[m])
	return out
}
