package features

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/RyanBlaney/sonido-vox/algorithms/common"
	"github.com/RyanBlaney/sonido-vox/algorithms/filters"
	"github.com/RyanBlaney/sonido-vox/algorithms/temporal"
	"github.com/RyanBlaney/sonido-vox/logging"
	"github.com/RyanBlaney/sonido-vox/transcode"
)

// Preprocessor conditions a loaded waveform the way the training data was
// conditioned: resample, optional DC removal, peak normalization and
// silence trimming. It never pads a short recording.
type Preprocessor struct {
	config     *PreprocessConfig
	resampler  *transcode.Resampler
	normalizer *common.Normalizer
	silence    *temporal.SilenceDetection
	logger     logging.Logger
}

// NewPreprocessor creates a preprocessor
func NewPreprocessor(config *PreprocessConfig) (*Preprocessor, error) {
	if config == nil {
		config = DefaultPreprocessConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid preprocess config: %w", err)
	}

	resampler, err := transcode.NewResampler(config.ResampleQuality)
	if err != nil {
		return nil, err
	}

	method := common.None
	if config.Normalize {
		method = common.Peak
	}

	return &Preprocessor{
		config:     config,
		resampler:  resampler,
		normalizer: common.NewNormalizer(method),
		silence:    temporal.NewSilenceDetection(config.FrameSize, config.HopSize),
		logger: logging.WithFields(logging.Fields{
			"component": "preprocessor",
		}),
	}, nil
}

// Config returns the preprocessing configuration
func (p *Preprocessor) Config() *PreprocessConfig {
	return p.config
}

// Process returns conditioned mono audio. The input is left untouched but
// may share its sample buffer with the result.
func (p *Preprocessor) Process(ctx context.Context, audio *transcode.AudioData) (*transcode.AudioData, error) {
	if audio == nil {
		return nil, fmt.Errorf("audio data cannot be nil")
	}
	if audio.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", audio.SampleRate)
	}

	logger := p.logger.WithContext(ctx).WithFields(logging.Fields{
		"function":    "Process",
		"sample_rate": audio.SampleRate,
		"samples":     len(audio.PCM),
	})

	signal := audio.PCM
	if audio.Channels > 1 {
		signal = transcode.Downmix(signal, audio.Channels)
	}
	sampleRate := audio.SampleRate

	if target := p.config.TargetSampleRate; target > 0 && target != sampleRate {
		resampled, err := p.resampler.Resample(signal, sampleRate, target)
		if err != nil {
			return nil, fmt.Errorf("resample %d -> %d Hz: %w", sampleRate, target, err)
		}
		signal = resampled
		sampleRate = target
	}

	if p.config.RemoveDC {
		dc, err := filters.NewDCRemovalWithCutoff(sampleRate, p.config.DCCutoff)
		if err != nil {
			return nil, err
		}
		signal = dc.ProcessBuffer(signal)
	}

	peak, silent := temporal.IsSilent(signal, p.config.SilenceThreshold)
	if silent {
		return nil, &transcode.SilentInputError{Peak: peak, Threshold: p.config.SilenceThreshold}
	}

	signal = p.normalizer.Normalize(signal)

	if p.config.Trim {
		start, end := p.silence.TrimBounds(signal, p.config.TopDB)
		if end <= start {
			return nil, &transcode.SilentInputError{Peak: peak, Threshold: p.config.SilenceThreshold}
		}
		if start > 0 || end < len(signal) {
			logger.Debug("Trimmed silence", logging.Fields{
				"start": start,
				"end":   end,
			})
		}
		signal = signal[start:end]
	}

	duration := durationOf(len(signal), sampleRate)
	if duration < p.config.MinDuration {
		return nil, &transcode.TooShortError{Duration: duration, Minimum: p.config.MinDuration}
	}

	out := &transcode.AudioData{
		PCM:        slices.Clip(signal),
		SampleRate: sampleRate,
		Channels:   1,
		Duration:   duration,
		Timestamp:  audio.Timestamp,
		Tier:       audio.Tier,
		Metadata:   audio.Metadata,
	}
	if out.Timestamp.IsZero() {
		out.Timestamp = time.Now()
	}
	return out, nil
}

func durationOf(samples, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}
