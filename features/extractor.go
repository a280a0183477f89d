package features

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/RyanBlaney/sonido-vox/algorithms/spectral"
	"github.com/RyanBlaney/sonido-vox/algorithms/speech"
	"github.com/RyanBlaney/sonido-vox/algorithms/stats"
	"github.com/RyanBlaney/sonido-vox/algorithms/temporal"
	"github.com/RyanBlaney/sonido-vox/algorithms/tonal"
	"github.com/RyanBlaney/sonido-vox/logging"
	"github.com/RyanBlaney/sonido-vox/transcode"
)

// Analysis is the full output of one extraction: the assembled vector and
// the intermediate results it was built from
type Analysis struct {
	Vector       *Vector                    `json:"features"`
	F0           *tonal.F0Sequence          `json:"-"`
	VoiceQuality *speech.VoiceQualityResult `json:"voice_quality"`
	Spectral     *spectral.BankResult       `json:"spectral"`
	Moments      *stats.MomentResult        `json:"moments"`

	SampleRate int           `json:"sample_rate"`
	Duration   time.Duration `json:"duration"`
	Elapsed    time.Duration `json:"elapsed"`
}

// Extractor computes the feature vector of a mono waveform. The analyzers
// it holds are read-only, so one Extractor serves concurrent requests.
type Extractor struct {
	config       *ExtractorConfig
	voiceQuality *speech.VoiceQualityAnalyzer
	bank         *spectral.Bank
	moments      *stats.Moments
	logger       logging.Logger
}

// NewExtractor creates a feature extractor
func NewExtractor(config *ExtractorConfig) (*Extractor, error) {
	if config == nil {
		config = DefaultExtractorConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid extractor config: %w", err)
	}

	vqa, err := speech.NewVoiceQualityAnalyzer(config.VoiceQuality)
	if err != nil {
		return nil, err
	}
	bank, err := spectral.NewBank(config.Spectral)
	if err != nil {
		return nil, err
	}

	return &Extractor{
		config:       config,
		voiceQuality: vqa,
		bank:         bank,
		moments:      stats.NewMoments(),
		logger: logging.WithFields(logging.Fields{
			"component": "feature_extractor",
		}),
	}, nil
}

// Config returns the extractor configuration
func (e *Extractor) Config() *ExtractorConfig {
	return e.config
}

// Schema returns the schema vectors are assembled against
func (e *Extractor) Schema() *Schema {
	return e.config.Schema
}

// Extract returns the feature vector of audio
func (e *Extractor) Extract(ctx context.Context, audio *transcode.AudioData) (*Vector, error) {
	analysis, err := e.Analyze(ctx, audio)
	if err != nil {
		return nil, err
	}
	return analysis.Vector, nil
}

// ExtractSamples is Extract for a bare mono waveform
func (e *Extractor) ExtractSamples(ctx context.Context, signal []float64, sampleRate int) (*Vector, error) {
	audio, err := transcode.NewAudioData(signal, sampleRate, 1)
	if err != nil {
		return nil, err
	}
	return e.Extract(ctx, audio)
}

// Analyze tracks pitch once, then runs voice quality, the spectral bank
// and waveform statistics against the shared track and assembles the
// vector
func (e *Extractor) Analyze(ctx context.Context, audio *transcode.AudioData) (*Analysis, error) {
	if audio == nil {
		return nil, fmt.Errorf("audio data cannot be nil")
	}
	if audio.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", audio.SampleRate)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	signal := audio.PCM
	if audio.Channels > 1 {
		signal = transcode.Downmix(signal, audio.Channels)
	}
	sampleRate := audio.SampleRate

	logger := e.logger.WithContext(ctx).WithFields(logging.Fields{
		"function":    "Analyze",
		"sample_rate": sampleRate,
		"samples":     len(signal),
	})

	duration := durationOf(len(signal), sampleRate)
	if len(signal) == 0 || duration < e.config.MinDuration {
		return nil, &transcode.TooShortError{Duration: duration, Minimum: e.config.MinDuration}
	}
	if peak, silent := temporal.IsSilent(signal, e.config.SilenceThreshold); silent {
		return nil, &transcode.SilentInputError{Peak: peak, Threshold: e.config.SilenceThreshold}
	}

	tracker, err := tonal.NewPitchTracker(e.config.Pitch.Params(sampleRate))
	if err != nil {
		return nil, err
	}
	f0, err := tracker.Track(signal)
	if err != nil {
		return nil, fmt.Errorf("pitch tracking failed: %w", err)
	}

	var (
		vq      *speech.VoiceQualityResult
		bank    *spectral.BankResult
		moments *stats.MomentResult
	)

	tasks := []func() error{
		func() error {
			vq = e.voiceQuality.Analyze(signal, sampleRate, f0)
			return nil
		},
		func() error {
			var err error
			bank, err = e.bank.Compute(signal, sampleRate)
			if err != nil {
				return fmt.Errorf("spectral bank failed: %w", err)
			}
			return nil
		},
		func() error {
			var err error
			moments, err = e.moments.Analyze(signal)
			if err != nil {
				return fmt.Errorf("waveform statistics failed: %w", err)
			}
			return nil
		},
	}

	if e.config.Parallel {
		g, gctx := errgroup.WithContext(ctx)
		for _, task := range tasks {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				return task()
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for _, task := range tasks {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := task(); err != nil {
				return nil, err
			}
		}
	}

	values := map[string]float64{
		Pitch:   f0.MeanVoiced(),
		Jitter:  vq.Jitter,
		Shimmer: vq.Shimmer,
		HNR:     vq.HNR,

		SpectralCentroidMean:  bank.CentroidMean,
		SpectralCentroidStd:   bank.CentroidStd,
		SpectralRolloffMean:   bank.RolloffMean,
		SpectralRolloffStd:    bank.RolloffStd,
		SpectralBandwidthMean: bank.BandwidthMean,
		SpectralBandwidthStd:  bank.BandwidthStd,
		ZeroCrossingRateMean:  bank.ZCRMean,
		ZeroCrossingRateStd:   bank.ZCRStd,

		StatMean:     moments.Mean,
		StatStd:      moments.StdDev,
		StatVar:      moments.Variance,
		StatMedian:   moments.Median,
		StatMin:      moments.Min,
		StatMax:      moments.Max,
		StatRange:    moments.Range,
		StatSkewness: moments.Skewness,
		StatKurtosis: moments.Kurtosis,
	}
	for i, v := range bank.MFCCMean {
		values[MFCCName(i+1)] = v
	}

	vector, err := Assemble(e.config.Schema, values)
	if err != nil {
		logger.Warn("Feature vector rejected", logging.Fields{
			"error": err.Error(),
		})
		return nil, err
	}

	analysis := &Analysis{
		Vector:       vector,
		F0:           f0,
		VoiceQuality: vq,
		Spectral:     bank,
		Moments:      moments,
		SampleRate:   sampleRate,
		Duration:     duration,
		Elapsed:      time.Since(start),
	}

	logger.Debug("Features extracted", logging.Fields{
		"voiced_frames": vq.VoicedFrames,
		"pitch":         values[Pitch],
		"hnr":           vq.HNR,
		"elapsed_ms":    analysis.Elapsed.Milliseconds(),
	})

	return analysis, nil
}
