package spectral

// SpectralRolloff computes the frequency below which a fixed fraction of the
// spectral magnitude lies
type SpectralRolloff struct {
	freqBins []float64
	percent  float64
}

// NewSpectralRolloff creates a rolloff calculator for nFFT-point spectra.
// percent is the cumulative fraction, typically 0.85.
func NewSpectralRolloff(sampleRate, nFFT int, percent float64) *SpectralRolloff {
	if percent <= 0 || percent >= 1 {
		percent = 0.85
	}
	return &SpectralRolloff{
		freqBins: BinFrequencies(nFFT, sampleRate),
		percent:  percent,
	}
}

// Compute returns the lowest bin frequency at which the cumulative magnitude
// reaches percent of the total. A silent frame rolls off at 0 Hz.
func (sr *SpectralRolloff) Compute(spectrum []float64) float64 {
	n := min(len(spectrum), len(sr.freqBins))
	if n == 0 {
		return 0
	}

	total := 0.0
	for _, mag := range spectrum[:n] {
		total += mag
	}
	if total == 0 {
		return 0
	}

	target := sr.percent * total
	cumulative := 0.0
	for i := range n {
		cumulative += spectrum[i]
		if cumulative >= target {
			return sr.freqBins[i]
		}
	}

	return sr.freqBins[n-1]
}

// ComputeFrames processes every frame of a magnitude spectrogram
func (sr *SpectralRolloff) ComputeFrames(spectrogram [][]float64) []float64 {
	rolloffs := make([]float64, len(spectrogram))
	for t, spectrum := range spectrogram {
		rolloffs[t] = sr.Compute(spectrum)
	}
	return rolloffs
}
