package speech

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-vox/algorithms/common"
	"github.com/RyanBlaney/sonido-vox/algorithms/spectral"
	"github.com/RyanBlaney/sonido-vox/algorithms/tonal"
	"github.com/RyanBlaney/sonido-vox/algorithms/windowing"
)

// VoiceQualityParams controls the perturbation and harmonicity measures
type VoiceQualityParams struct {
	// Shimmer peak picking: minimum spacing in seconds and minimum height as
	// a fraction of the largest absolute sample
	PeakMinDistance float64 `json:"peak_min_distance"`
	PeakMinHeight   float64 `json:"peak_min_height"`

	// HNR framing, tail frames are dropped
	HNRFrameSize int `json:"hnr_frame_size"`
	HNRHopSize   int `json:"hnr_hop_size"`

	// Bins on each side of a harmonic centre counted as harmonic energy
	HarmonicWidth int `json:"harmonic_width"`

	// Energy floor for the per-frame ratio
	Epsilon float64 `json:"epsilon"`
}

// DefaultVoiceQualityParams returns the defaults
func DefaultVoiceQualityParams() VoiceQualityParams {
	return VoiceQualityParams{
		PeakMinDistance: 0.005,
		PeakMinHeight:   0.1,
		HNRFrameSize:    1024,
		HNRHopSize:      256,
		HarmonicWidth:   1,
		Epsilon:         1e-10,
	}
}

// Validate checks the parameters
func (p VoiceQualityParams) Validate() error {
	if p.PeakMinDistance < 0 {
		return fmt.Errorf("peak min distance must not be negative: %g", p.PeakMinDistance)
	}
	if p.PeakMinHeight < 0 || p.PeakMinHeight >= 1 {
		return fmt.Errorf("peak min height must be in [0, 1): %g", p.PeakMinHeight)
	}
	if p.HNRFrameSize < 8 || p.HNRHopSize <= 0 {
		return fmt.Errorf("invalid HNR frame geometry %d/%d", p.HNRFrameSize, p.HNRHopSize)
	}
	if p.HarmonicWidth < 0 {
		return fmt.Errorf("harmonic width must not be negative: %d", p.HarmonicWidth)
	}
	if p.Epsilon <= 0 {
		return fmt.Errorf("epsilon must be positive: %g", p.Epsilon)
	}
	return nil
}

// VoiceQualityResult contains voice quality measurements
type VoiceQualityResult struct {
	Jitter  float64 `json:"jitter"`  // Pitch period irregularity (%)
	Shimmer float64 `json:"shimmer"` // Amplitude irregularity (%)
	HNR     float64 `json:"hnr"`     // Harmonic-to-noise ratio (dB)

	VoicedFrames int `json:"voiced_frames"` // Voiced pitch frames used for jitter
	NumPeaks     int `json:"num_peaks"`     // Amplitude peaks used for shimmer
	HNRFrames    int `json:"hnr_frames"`    // Non-silent frames averaged into HNR
}

// VoiceQualityAnalyzer computes jitter, shimmer and HNR. It holds only
// read-only configuration and a window table.
type VoiceQualityAnalyzer struct {
	params VoiceQualityParams

	// Hann coefficients, len == HNRFrameSize
	window []float64
	fft    *spectral.FFT
}

// NewVoiceQualityAnalyzer creates a new voice quality analyzer
func NewVoiceQualityAnalyzer(params VoiceQualityParams) (*VoiceQualityAnalyzer, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid voice quality params: %w", err)
	}
	return &VoiceQualityAnalyzer{
		params: params,
		window: windowing.NewHann(params.HNRFrameSize, false).Coefficients(),
		fft:    spectral.NewFFT(),
	}, nil
}

func mustAnalyzer(params VoiceQualityParams) *VoiceQualityAnalyzer {
	vqa, err := NewVoiceQualityAnalyzer(params)
	if err != nil {
		panic(err)
	}
	return vqa
}

var defaultAnalyzer = mustAnalyzer(DefaultVoiceQualityParams())

// Jitter computes jitter with the default parameters
func Jitter(f0 *tonal.F0Sequence) float64 {
	return defaultAnalyzer.Jitter(f0)
}

// Shimmer computes shimmer with the default parameters
func Shimmer(signal []float64, sampleRate int) float64 {
	return defaultAnalyzer.Shimmer(signal, sampleRate)
}

// HNR computes the harmonics-to-noise ratio with the default parameters
func HNR(signal []float64, sampleRate int, f0 *tonal.F0Sequence) float64 {
	return defaultAnalyzer.HNR(signal, sampleRate, f0)
}

// Analyze computes all three measures from a shared pitch track
func (vqa *VoiceQualityAnalyzer) Analyze(signal []float64, sampleRate int, f0 *tonal.F0Sequence) *VoiceQualityResult {
	hnr, frames := vqa.hnr(signal, sampleRate, f0)
	return &VoiceQualityResult{
		Jitter:       vqa.Jitter(f0),
		Shimmer:      vqa.Shimmer(signal, sampleRate),
		HNR:          hnr,
		VoicedFrames: f0.NumVoiced(),
		NumPeaks:     len(vqa.amplitudePeaks(signal, sampleRate)),
		HNRFrames:    frames,
	}
}

// Jitter returns mean |Δperiod| / mean period × 100 over consecutive voiced
// frames. Unvoiced frames are skipped, so periods on either side of a gap
// are treated as neighbours. Fewer than two voiced frames give 0.
func (vqa *VoiceQualityAnalyzer) Jitter(f0 *tonal.F0Sequence) float64 {
	freqs := f0.VoicedFrequencies()
	if len(freqs) < 2 {
		return 0
	}

	periods := make([]float64, 0, len(freqs))
	for _, f := range freqs {
		if f > 0 {
			periods = append(periods, 1/f)
		}
	}
	return relativePerturbation(periods)
}

// Shimmer returns mean |Δamplitude| / mean amplitude × 100 over consecutive
// peaks of |x|. Fewer than two peaks give 0.
func (vqa *VoiceQualityAnalyzer) Shimmer(signal []float64, sampleRate int) float64 {
	peaks := vqa.amplitudePeaks(signal, sampleRate)
	if len(peaks) < 2 {
		return 0
	}

	amps := make([]float64, len(peaks))
	for i, p := range peaks {
		amps[i] = math.Abs(signal[p])
	}
	return relativePerturbation(amps)
}

func (vqa *VoiceQualityAnalyzer) amplitudePeaks(signal []float64, sampleRate int) []int {
	peak := common.MaxAbs(signal)
	if peak == 0 || sampleRate <= 0 {
		return nil
	}

	rectified := make([]float64, len(signal))
	for i, v := range signal {
		rectified[i] = math.Abs(v)
	}

	minDistance := int(vqa.params.PeakMinDistance * float64(sampleRate))
	return common.FindPeaks(rectified, vqa.params.PeakMinHeight*peak, minDistance)
}

// relativePerturbation is mean |x[i+1]-x[i]| / mean x × 100
func relativePerturbation(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	diffSum := 0.0
	for i := 1; i < len(values); i++ {
		diffSum += math.Abs(values[i] - values[i-1])
	}

	mean := common.Mean(values)
	if mean <= 0 {
		return 0
	}
	return diffSum / float64(len(values)-1) / mean * 100
}

// HNR returns the average per-frame harmonics-to-noise ratio in dB. Each
// frame takes its fundamental from the nearest voiced pitch frame and falls
// back to the strongest bin in the lower half of the spectrum. Silent frames
// are skipped; no usable frame gives 0.
func (vqa *VoiceQualityAnalyzer) HNR(signal []float64, sampleRate int, f0 *tonal.F0Sequence) float64 {
	hnr, _ := vqa.hnr(signal, sampleRate, f0)
	return hnr
}

func (vqa *VoiceQualityAnalyzer) hnr(signal []float64, sampleRate int, f0 *tonal.F0Sequence) (float64, int) {
	if sampleRate <= 0 {
		return 0, 0
	}

	framer := common.NewFramer(vqa.params.HNRFrameSize, vqa.params.HNRHopSize)
	numFrames := framer.NumFrames(len(signal))
	if numFrames == 0 {
		return 0, 0
	}

	n := vqa.params.HNRFrameSize
	bins := n/2 + 1
	eps := vqa.params.Epsilon

	frame := make([]float64, n)
	power := make([]float64, bins)
	harmonic := make([]bool, bins)

	sum := 0.0
	used := 0

	for i := range numFrames {
		framer.Frame(signal, i, frame)
		for k, c := range vqa.window {
			frame[k] *= c
		}
		power = vqa.fft.PowerSpectrum(frame, power)

		total := 0.0
		for _, p := range power {
			total += p
		}
		if total < eps {
			continue
		}

		fundamental := 0.0
		if est, ok := f0.At(framer.FrameCenter(i)); ok && est.Voiced && est.Frequency > 0 {
			fundamental = est.Frequency * float64(n) / float64(sampleRate)
		} else {
			fundamental = float64(strongestBin(power[:bins/2]))
		}
		if fundamental < 2 {
			continue
		}

		// Bands around neighbouring harmonics must not overlap
		width := min(vqa.params.HarmonicWidth, int((fundamental-1)/2))

		clear(harmonic)
		for h := 1; ; h++ {
			center := int(math.Round(float64(h) * fundamental))
			if center-width >= bins {
				break
			}
			for k := max(1, center-width); k <= min(bins-1, center+width); k++ {
				harmonic[k] = true
			}
		}

		harmonicEnergy := 0.0
		for k, isHarmonic := range harmonic {
			if isHarmonic {
				harmonicEnergy += power[k]
			}
		}
		noiseEnergy := total - harmonicEnergy

		sum += 10 * math.Log10(math.Max(harmonicEnergy, eps)/math.Max(noiseEnergy, eps))
		used++
	}

	if used == 0 {
		return 0, 0
	}
	return sum / float64(used), used
}

// strongestBin returns the index of the largest value, ignoring DC
func strongestBin(power []float64) int {
	best := 0
	for k := 1; k < len(power); k++ {
		if best == 0 || power[k] > power[best] {
			best = k
		}
	}
	return best
}
