package spectral

import (
	"fmt"

	"github.com/RyanBlaney/sonido-vox/algorithms/common"
	"github.com/RyanBlaney/sonido-vox/algorithms/windowing"
	"github.com/RyanBlaney/sonido-vox/logging"
)

// BankConfig holds the frame geometry and descriptor parameters of the
// spectral/cepstral bank
type BankConfig struct {
	FrameSize      int            `json:"frame_size"`
	HopSize        int            `json:"hop_size"`
	Window         windowing.Type `json:"window"`
	NumMFCC        int            `json:"num_mfcc"`
	NumMelFilters  int            `json:"num_mel_filters"`
	TopDB          float64        `json:"top_db"`
	Lifter         float64        `json:"lifter"`
	RolloffPercent float64        `json:"rolloff_percent"`
	Workers        int            `json:"workers"`
}

// DefaultBankConfig returns the configuration the classifier was trained with
func DefaultBankConfig() BankConfig {
	return BankConfig{
		FrameSize:      2048,
		HopSize:        512,
		Window:         windowing.Hann,
		NumMFCC:        13,
		NumMelFilters:  128,
		TopDB:          80,
		RolloffPercent: 0.85,
		Workers:        1,
	}
}

// Validate checks the bank configuration
func (c BankConfig) Validate() error {
	if c.FrameSize <= 0 || c.HopSize <= 0 {
		return fmt.Errorf("frame size and hop size must be positive: %d/%d", c.FrameSize, c.HopSize)
	}
	if c.NumMFCC <= 0 || c.NumMFCC > c.NumMelFilters {
		return fmt.Errorf("need 0 < num_mfcc (%d) <= num_mel_filters (%d)", c.NumMFCC, c.NumMelFilters)
	}
	if c.RolloffPercent <= 0 || c.RolloffPercent >= 1 {
		return fmt.Errorf("rolloff percent must be in (0, 1): %g", c.RolloffPercent)
	}
	if c.TopDB < 0 {
		return fmt.Errorf("top_db must not be negative: %g", c.TopDB)
	}
	return nil
}

// BankResult summarizes per-frame descriptors by mean and population
// standard deviation
type BankResult struct {
	Frames int `json:"frames"`

	MFCCMean []float64 `json:"mfcc_mean"`
	MFCCStd  []float64 `json:"mfcc_std"`

	CentroidMean  float64 `json:"spectral_centroid_mean"`
	CentroidStd   float64 `json:"spectral_centroid_std"`
	RolloffMean   float64 `json:"spectral_rolloff_mean"`
	RolloffStd    float64 `json:"spectral_rolloff_std"`
	BandwidthMean float64 `json:"spectral_bandwidth_mean"`
	BandwidthStd  float64 `json:"spectral_bandwidth_std"`
	ZCRMean       float64 `json:"zero_crossing_rate_mean"`
	ZCRStd        float64 `json:"zero_crossing_rate_std"`
}

// Bank computes MFCC and spectral shape statistics. A Bank keeps no
// per-call state and may be shared by concurrent requests.
type Bank struct {
	config BankConfig
	window *windowing.Window
	logger logging.Logger
}

// NewBank creates a spectral bank
func NewBank(config BankConfig) (*Bank, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid spectral bank config: %w", err)
	}

	window, err := windowing.New(config.Window, config.FrameSize, false)
	if err != nil {
		return nil, err
	}

	return &Bank{
		config: config,
		window: window,
		logger: logging.WithFields(logging.Fields{
			"component": "spectral_bank",
		}),
	}, nil
}

// Compute runs the STFT once and derives every descriptor from it
func (b *Bank) Compute(signal []float64, sampleRate int) (*BankResult, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}

	stft, err := NewSTFT(b.config.FrameSize, b.config.HopSize, true, b.window)
	if err != nil {
		return nil, err
	}
	stft.Workers = b.config.Workers

	spec, err := stft.Compute(signal, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("stft failed: %w", err)
	}

	mfcc, err := NewMFCC(sampleRate, b.config.FrameSize, MFCCParams{
		NumCoefficients: b.config.NumMFCC,
		NumMelFilters:   b.config.NumMelFilters,
		TopDB:           b.config.TopDB,
		Lifter:          b.config.Lifter,
	})
	if err != nil {
		return nil, err
	}

	coeffs, err := mfcc.ComputeFrames(spec.Power())
	if err != nil {
		return nil, fmt.Errorf("mfcc failed: %w", err)
	}

	result := &BankResult{
		Frames:   spec.TimeFrames,
		MFCCMean: make([]float64, b.config.NumMFCC),
		MFCCStd:  make([]float64, b.config.NumMFCC),
	}

	column := make([]float64, len(coeffs))
	for k := range b.config.NumMFCC {
		for t, frame := range coeffs {
			column[t] = frame[k]
		}
		result.MFCCMean[k], result.MFCCStd[k] = common.MeanStd(column)
	}

	centroids := NewSpectralCentroid(sampleRate, b.config.FrameSize).ComputeFrames(spec.Magnitude)
	rolloffs := NewSpectralRolloff(sampleRate, b.config.FrameSize, b.config.RolloffPercent).ComputeFrames(spec.Magnitude)
	bandwidths := NewSpectralBandwidth(sampleRate, b.config.FrameSize).ComputeFrames(spec.Magnitude, centroids)
	zcr := NewZeroCrossingRate(b.config.FrameSize, b.config.HopSize).ComputeFrames(signal)

	result.CentroidMean, result.CentroidStd = common.MeanStd(centroids)
	result.RolloffMean, result.RolloffStd = common.MeanStd(rolloffs)
	result.BandwidthMean, result.BandwidthStd = common.MeanStd(bandwidths)
	result.ZCRMean, result.ZCRStd = common.MeanStd(zcr)

	b.logger.Debug("Spectral bank computed", logging.Fields{
		"frames":        result.Frames,
		"sample_rate":   sampleRate,
		"centroid_mean": result.CentroidMean,
	})

	return result, nil
}

// Config returns the bank configuration
func (b *Bank) Config() BankConfig {
	return b.config
}
