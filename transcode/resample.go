package transcode

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-vox/algorithms/common"
	"github.com/RyanBlaney/sonido-vox/logging"
	resampling "github.com/tphakala/go-audio-resampling"
)

// Resample quality settings
const (
	ResampleHigh   = "high"   // Polyphase resampler from go-audio-resampling
	ResampleCubic  = "cubic"  // Cubic interpolation
	ResampleLinear = "linear" // Linear interpolation
)

// Resampler converts mono signals between sample rates. It holds no
// per-signal state and is safe for concurrent use.
type Resampler struct {
	quality  string
	fallback *common.Interpolator
	logger   logging.Logger
}

// NewResampler creates a resampler for the given quality setting
func NewResampler(quality string) (*Resampler, error) {
	var method common.InterpolationType
	switch quality {
	case ResampleHigh, ResampleCubic, "":
		method = common.Cubic
	case ResampleLinear:
		method = common.Linear
	default:
		return nil, fmt.Errorf("unknown resample quality %q", quality)
	}
	if quality == "" {
		quality = ResampleHigh
	}

	return &Resampler{
		quality:  quality,
		fallback: common.NewInterpolator(method),
		logger: logging.WithFields(logging.Fields{
			"component": "resampler",
			"quality":   quality,
		}),
	}, nil
}

// Quality returns the configured quality setting
func (r *Resampler) Quality() string {
	return r.quality
}

// Resample returns signal at targetRate. The output holds
// round(len * targetRate / sourceRate) samples.
func (r *Resampler) Resample(signal []float64, sourceRate, targetRate int) ([]float64, error) {
	if sourceRate <= 0 || targetRate <= 0 {
		return nil, fmt.Errorf("invalid sample rates %d -> %d", sourceRate, targetRate)
	}
	if sourceRate == targetRate || len(signal) == 0 {
		return signal, nil
	}

	if r.quality != ResampleHigh {
		return r.fallback.ResampleSignal(signal, sourceRate, targetRate), nil
	}

	expected := int(math.Round(float64(len(signal)) * float64(targetRate) / float64(sourceRate)))

	out, err := r.highQuality(signal, sourceRate, targetRate)
	if err != nil {
		r.logger.Warn("High quality resampling failed, using interpolation", logging.Fields{
			"error": err.Error(),
		})
		return r.fallback.ResampleSignal(signal, sourceRate, targetRate), nil
	}

	// The filter delay keeps the last few samples inside the resampler. A
	// small shortfall is fine; anything larger means the output is unusable.
	if len(out) < expected-expected/20 {
		r.logger.Debug("Resampler output too short, using interpolation", logging.Fields{
			"expected": expected,
			"got":      len(out),
		})
		return r.fallback.ResampleSignal(signal, sourceRate, targetRate), nil
	}
	if len(out) > expected {
		out = out[:expected]
	}
	return out, nil
}

func (r *Resampler) highQuality(signal []float64, sourceRate, targetRate int) ([]float64, error) {
	rs, err := resampling.New(&resampling.Config{
		InputRate:  float64(sourceRate),
		OutputRate: float64(targetRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}

	out, err := rs.Process(signal)
	if err != nil {
		return nil, fmt.Errorf("resample error: %w", err)
	}
	return out, nil
}
