package spectral

// SpectralCentroid computes the spectral centroid (center of mass) of a spectrum
type SpectralCentroid struct {
	freqBins []float64
}

// NewSpectralCentroid creates a centroid calculator for nFFT-point spectra
func NewSpectralCentroid(sampleRate, nFFT int) *SpectralCentroid {
	return &SpectralCentroid{
		freqBins: BinFrequencies(nFFT, sampleRate),
	}
}

// Compute calculates spectral centroid for a single magnitude spectrum.
// A silent frame has a centroid of 0.
func (sc *SpectralCentroid) Compute(spectrum []float64) float64 {
	numerator := 0.0
	denominator := 0.0

	for i := range min(len(spectrum), len(sc.freqBins)) {
		numerator += sc.freqBins[i] * spectrum[i]
		denominator += spectrum[i]
	}

	if denominator == 0 {
		return 0
	}

	return numerator / denominator
}

// ComputeFrames processes every frame of a magnitude spectrogram
func (sc *SpectralCentroid) ComputeFrames(spectrogram [][]float64) []float64 {
	centroids := make([]float64, len(spectrogram))
	for t, spectrum := range spectrogram {
		centroids[t] = sc.Compute(spectrum)
	}
	return centroids
}

// FrequencyBins returns a copy of the bin frequencies in Hz
func (sc *SpectralCentroid) FrequencyBins() []float64 {
	bins := make([]float64, len(sc.freqBins))
	copy(bins, sc.freqBins)
	return bins
}
