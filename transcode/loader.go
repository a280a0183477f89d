package transcode

import (
	"context"
	"fmt"
	"time"

	"github.com/RyanBlaney/sonido-vox/algorithms/common"
	"github.com/RyanBlaney/sonido-vox/logging"
)

// Tier names, in default priority order
const (
	TierFFmpeg    = "ffmpeg"
	TierSoundfile = "soundfile"
	TierWavArray  = "wavarray"
	TierRIFF      = "riff"
)

// DefaultTiers is the decoder order used when none is configured
var DefaultTiers = []string{TierFFmpeg, TierSoundfile, TierWavArray, TierRIFF}

// Tier is one decoding strategy. A tier returns the samples as found in the
// container; the Loader downmixes, resamples and validates afterwards.
type Tier interface {
	Name() string
	Decode(ctx context.Context, data []byte, hint string) (*AudioData, error)
}

// LoaderConfig holds the Loader configuration
type LoaderConfig struct {
	// Resample to this rate; 0 keeps the native rate
	TargetSampleRate int    `json:"target_sample_rate"`
	ResampleQuality  string `json:"resample_quality"`

	// Audio past MaxDuration is dropped, 0 means no limit
	MaxDuration time.Duration `json:"max_duration"`
	MinDuration time.Duration `json:"min_duration"`

	// Peak amplitude below which the input counts as silent
	SilenceThreshold float64 `json:"silence_threshold"`

	Tiers   []string       `json:"tiers"`
	Decoder *DecoderConfig `json:"decoder"`
}

// DefaultLoaderConfig returns default loader configuration
func DefaultLoaderConfig() *LoaderConfig {
	return &LoaderConfig{
		TargetSampleRate: 22050,
		ResampleQuality:  ResampleHigh,
		MaxDuration:      10 * time.Second,
		MinDuration:      300 * time.Millisecond,
		SilenceThreshold: 1e-4,
		Tiers:            append([]string(nil), DefaultTiers...),
		Decoder:          DefaultDecoderConfig(),
	}
}

// Validate validates the loader configuration
func (c *LoaderConfig) Validate() error {
	if c.TargetSampleRate < 0 {
		return fmt.Errorf("target sample rate must not be negative: %d", c.TargetSampleRate)
	}
	if c.MaxDuration < 0 || c.MinDuration < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	if c.MaxDuration > 0 && c.MinDuration > c.MaxDuration {
		return fmt.Errorf("min duration %v exceeds max duration %v", c.MinDuration, c.MaxDuration)
	}
	if c.SilenceThreshold < 0 || c.SilenceThreshold >= 1 {
		return fmt.Errorf("silence threshold must be in [0, 1): %g", c.SilenceThreshold)
	}
	if len(c.Tiers) == 0 {
		return fmt.Errorf("at least one decoder tier is required")
	}
	for _, name := range c.Tiers {
		switch name {
		case TierFFmpeg, TierSoundfile, TierWavArray, TierRIFF:
		default:
			return fmt.Errorf("unknown decoder tier %q", name)
		}
	}
	if c.Decoder != nil {
		if err := c.Decoder.Validate(); err != nil {
			return fmt.Errorf("invalid decoder config: %w", err)
		}
	}
	return nil
}

// Loader turns uploaded bytes into a mono waveform by trying each tier in
// order until one succeeds. It holds no per-request state.
type Loader struct {
	config    *LoaderConfig
	tiers     []Tier
	resampler *Resampler
	logger    logging.Logger
}

// NewLoader builds the configured tiers
func NewLoader(config *LoaderConfig) (*Loader, error) {
	if config == nil {
		config = DefaultLoaderConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid loader config: %w", err)
	}

	decoderConfig := DefaultDecoderConfig()
	if config.Decoder != nil {
		copied := *config.Decoder
		decoderConfig = &copied
	}
	if decoderConfig.MaxDuration == 0 {
		decoderConfig.MaxDuration = config.MaxDuration
	}

	tiers := make([]Tier, 0, len(config.Tiers))
	for _, name := range config.Tiers {
		switch name {
		case TierFFmpeg:
			tiers = append(tiers, NewFFmpegDecoder(decoderConfig))
		case TierSoundfile:
			tiers = append(tiers, NewSoundfileDecoder())
		case TierWavArray:
			tiers = append(tiers, NewWavArrayDecoder())
		case TierRIFF:
			tiers = append(tiers, NewRIFFDecoder())
		}
	}

	return NewLoaderWithTiers(config, tiers...)
}

// NewLoaderWithTiers uses the given tiers instead of the configured names
func NewLoaderWithTiers(config *LoaderConfig, tiers ...Tier) (*Loader, error) {
	if config == nil {
		config = DefaultLoaderConfig()
	}
	if len(tiers) == 0 {
		return nil, fmt.Errorf("at least one decoder tier is required")
	}

	resampler, err := NewResampler(config.ResampleQuality)
	if err != nil {
		return nil, err
	}

	return &Loader{
		config:    config,
		tiers:     tiers,
		resampler: resampler,
		logger: logging.WithFields(logging.Fields{
			"component": "audio_loader",
		}),
	}, nil
}

// Config returns the loader configuration
func (l *Loader) Config() *LoaderConfig {
	return l.config
}

// Tiers returns the tier names in the order they are tried
func (l *Loader) Tiers() []string {
	names := make([]string, len(l.tiers))
	for i, t := range l.tiers {
		names[i] = t.Name()
	}
	return names
}

// Load decodes data into a mono waveform at the target rate. Failures of
// every tier produce a *DecodeError; a decoded waveform that is too short or
// silent produces *TooShortError or *SilentInputError.
func (l *Loader) Load(ctx context.Context, data []byte, hint string) (*AudioData, error) {
	logger := l.logger.WithContext(ctx).WithFields(logging.Fields{
		"function":  "Load",
		"data_size": len(data),
		"hint":      hint,
	})

	if len(data) == 0 {
		return nil, &DecodeError{Attempts: []TierFailure{{Tier: "input", Err: errEmptyInput}}}
	}

	failures := make([]TierFailure, 0, len(l.tiers))
	for _, tier := range l.tiers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		audio, err := tier.Decode(ctx, data, hint)
		if err == nil {
			err = checkDecoded(audio)
		}
		if err != nil {
			logger.Debug("Decoder tier failed", logging.Fields{
				"tier":  tier.Name(),
				"error": err.Error(),
			})
			failures = append(failures, TierFailure{Tier: tier.Name(), Err: err})
			continue
		}

		audio.Tier = tier.Name()
		if err := l.normalize(audio); err != nil {
			return nil, err
		}

		logger.Debug("Audio loaded", logging.Fields{
			"tier":        audio.Tier,
			"sample_rate": audio.SampleRate,
			"duration":    audio.Duration.Seconds(),
			"failed":      len(failures),
		})
		return audio, nil
	}

	return nil, &DecodeError{Attempts: failures}
}

func checkDecoded(audio *AudioData) error {
	if audio == nil || audio.NumFrames() == 0 {
		return fmt.Errorf("no audio samples decoded")
	}
	for _, v := range audio.PCM {
		if !common.IsFinite(v) {
			return fmt.Errorf("decoded samples contain non-finite values")
		}
	}
	return nil
}

// normalize brings a tier's output into the shared shape: mono, target
// rate, at most MaxDuration, at least MinDuration and not silent
func (l *Loader) normalize(audio *AudioData) error {
	audio.Downmix()

	// Truncating first keeps resampling cost bounded by MaxDuration
	audio.Truncate(l.config.MaxDuration)

	if target := l.config.TargetSampleRate; target > 0 && target != audio.SampleRate {
		resampled, err := l.resampler.Resample(audio.PCM, audio.SampleRate, target)
		if err != nil {
			return fmt.Errorf("resample %d -> %d Hz: %w", audio.SampleRate, target, err)
		}
		audio.PCM = resampled
		audio.SampleRate = target
	}
	audio.Duration = samplesToDuration(len(audio.PCM), audio.SampleRate)

	if audio.Duration < l.config.MinDuration {
		return &TooShortError{Duration: audio.Duration, Minimum: l.config.MinDuration}
	}

	if peak := common.MaxAbs(audio.PCM); peak < l.config.SilenceThreshold {
		return &SilentInputError{Peak: peak, Threshold: l.config.SilenceThreshold}
	}
	return nil
}
