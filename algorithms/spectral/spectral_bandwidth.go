package spectral

import (
	"math"
)

// SpectralBandwidth computes the second-order spread of a spectrum around its
// centroid
type SpectralBandwidth struct {
	freqBins []float64
}

// NewSpectralBandwidth creates a bandwidth calculator for nFFT-point spectra
func NewSpectralBandwidth(sampleRate, nFFT int) *SpectralBandwidth {
	return &SpectralBandwidth{
		freqBins: BinFrequencies(nFFT, sampleRate),
	}
}

// Compute calculates spectral bandwidth for a single magnitude spectrum given
// its centroid
func (sb *SpectralBandwidth) Compute(spectrum []float64, centroid float64) float64 {
	numerator := 0.0
	denominator := 0.0

	for i := range min(len(spectrum), len(sb.freqBins)) {
		diff := sb.freqBins[i] - centroid
		numerator += diff * diff * spectrum[i]
		denominator += spectrum[i]
	}

	if denominator == 0 {
		return 0
	}

	return math.Sqrt(numerator / denominator)
}

// ComputeFrames processes multiple frames with their corresponding centroids
func (sb *SpectralBandwidth) ComputeFrames(spectrogram [][]float64, centroids []float64) []float64 {
	if len(centroids) != len(spectrogram) {
		return nil
	}

	bandwidths := make([]float64, len(spectrogram))
	for t, spectrum := range spectrogram {
		bandwidths[t] = sb.Compute(spectrum, centroids[t])
	}
	return bandwidths
}
