package features

import (
	"fmt"
	"time"

	"github.com/RyanBlaney/sonido-vox/algorithms/speech"
	"github.com/RyanBlaney/sonido-vox/algorithms/spectral"
	"github.com/RyanBlaney/sonido-vox/algorithms/tonal"
	"github.com/RyanBlaney/sonido-vox/transcode"
)

// PitchConfig holds the pitch tracker settings. The sample rate is taken
// from each waveform.
type PitchConfig struct {
	FrameSize        int     `json:"frame_size"`
	HopSize          int     `json:"hop_size"`
	MinFreq          float64 `json:"min_freq"`
	MaxFreq          float64 `json:"max_freq"`
	VoicingThreshold float64 `json:"voicing_threshold"`
	OctaveTolerance  float64 `json:"octave_tolerance"`
}

// Params returns the tracker parameters for sampleRate
func (c PitchConfig) Params(sampleRate int) tonal.PitchTrackerParams {
	return tonal.PitchTrackerParams{
		SampleRate:       sampleRate,
		FrameSize:        c.FrameSize,
		HopSize:          c.HopSize,
		MinFreq:          c.MinFreq,
		MaxFreq:          c.MaxFreq,
		VoicingThreshold: c.VoicingThreshold,
		OctaveTolerance:  c.OctaveTolerance,
	}
}

// ExtractorConfig holds configuration for feature extraction
type ExtractorConfig struct {
	Schema       *Schema                   `json:"-"`
	Pitch        PitchConfig               `json:"pitch"`
	VoiceQuality speech.VoiceQualityParams `json:"voice_quality"`
	Spectral     spectral.BankConfig       `json:"spectral"`

	// Run voice quality, spectral bank and waveform statistics concurrently
	Parallel bool `json:"parallel"`

	MinDuration time.Duration `json:"min_duration"`

	// Waveforms whose peak stays below this are rejected as silent
	SilenceThreshold float64 `json:"silence_threshold"`
}

// DefaultExtractorConfig returns the configuration SchemaV1 models are
// trained against
func DefaultExtractorConfig() *ExtractorConfig {
	pitch := tonal.DefaultPitchTrackerParams(22050)
	return &ExtractorConfig{
		Schema: SchemaV1,
		Pitch: PitchConfig{
			FrameSize:        pitch.FrameSize,
			HopSize:          pitch.HopSize,
			MinFreq:          pitch.MinFreq,
			MaxFreq:          pitch.MaxFreq,
			VoicingThreshold: pitch.VoicingThreshold,
			OctaveTolerance:  pitch.OctaveTolerance,
		},
		VoiceQuality:     speech.DefaultVoiceQualityParams(),
		Spectral:         spectral.DefaultBankConfig(),
		Parallel:         true,
		MinDuration:      300 * time.Millisecond,
		SilenceThreshold: 1e-4,
	}
}

// Validate checks the extractor configuration
func (c *ExtractorConfig) Validate() error {
	if c.Schema == nil {
		return fmt.Errorf("schema is required")
	}
	if err := c.Pitch.Params(22050).Validate(); err != nil {
		return fmt.Errorf("pitch: %w", err)
	}
	if err := c.VoiceQuality.Validate(); err != nil {
		return fmt.Errorf("voice quality: %w", err)
	}
	if err := c.Spectral.Validate(); err != nil {
		return fmt.Errorf("spectral: %w", err)
	}
	if c.MinDuration < 0 {
		return fmt.Errorf("min duration must not be negative: %v", c.MinDuration)
	}
	if c.SilenceThreshold < 0 || c.SilenceThreshold >= 1 {
		return fmt.Errorf("silence threshold must be in [0, 1): %g", c.SilenceThreshold)
	}
	return nil
}

// PreprocessConfig controls the waveform clean-up applied between loading
// and extraction
type PreprocessConfig struct {
	// Resample to this rate; 0 keeps the loaded rate
	TargetSampleRate int    `json:"target_sample_rate"`
	ResampleQuality  string `json:"resample_quality"`

	RemoveDC bool    `json:"remove_dc"`
	DCCutoff float64 `json:"dc_cutoff"`

	// Peak normalization to [-1, 1]
	Normalize bool `json:"normalize"`

	// Leading and trailing frames more than TopDB below the loudest frame
	// are cut
	Trim      bool    `json:"trim"`
	TopDB     float64 `json:"top_db"`
	FrameSize int     `json:"frame_size"`
	HopSize   int     `json:"hop_size"`

	MinDuration time.Duration `json:"min_duration"`

	// Peak below which the resampled waveform is rejected as silent
	SilenceThreshold float64 `json:"silence_threshold"`
}

// DefaultPreprocessConfig returns default preprocessing configuration
func DefaultPreprocessConfig() *PreprocessConfig {
	return &PreprocessConfig{
		TargetSampleRate: 22050,
		ResampleQuality:  transcode.ResampleHigh,
		RemoveDC:         false,
		DCCutoff:         20,
		Normalize:        true,
		Trim:             true,
		TopDB:            20,
		FrameSize:        2048,
		HopSize:          512,
		MinDuration:      300 * time.Millisecond,
		SilenceThreshold: 1e-4,
	}
}

// Validate checks the preprocessing configuration
func (c *PreprocessConfig) Validate() error {
	if c.TargetSampleRate < 0 {
		return fmt.Errorf("target sample rate must not be negative: %d", c.TargetSampleRate)
	}
	if c.RemoveDC && c.DCCutoff <= 0 {
		return fmt.Errorf("dc cutoff must be positive: %g", c.DCCutoff)
	}
	if c.Trim {
		if c.TopDB <= 0 {
			return fmt.Errorf("top_db must be positive: %g", c.TopDB)
		}
		if c.FrameSize <= 0 || c.HopSize <= 0 {
			return fmt.Errorf("trim frame size and hop size must be positive: %d/%d", c.FrameSize, c.HopSize)
		}
	}
	if c.MinDuration < 0 {
		return fmt.Errorf("min duration must not be negative: %v", c.MinDuration)
	}
	if c.SilenceThreshold < 0 || c.SilenceThreshold >= 1 {
		return fmt.Errorf("silence threshold must be in [0, 1): %g", c.SilenceThreshold)
	}
	return nil
}
