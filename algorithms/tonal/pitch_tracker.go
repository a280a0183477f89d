package tonal

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-vox/algorithms/common"
	"github.com/RyanBlaney/sonido-vox/algorithms/spectral"
	"github.com/RyanBlaney/sonido-vox/logging"
)

// PitchTrackerParams contains parameters for frame-wise F0 tracking
type PitchTrackerParams struct {
	SampleRate int `json:"sample_rate"`
	FrameSize  int `json:"frame_size"`
	HopSize    int `json:"hop_size"`

	// Search range for the fundamental (Hz)
	MinFreq float64 `json:"min_freq"`
	MaxFreq float64 `json:"max_freq"`

	// Minimum normalized autocorrelation for a frame to count as voiced
	VoicingThreshold float64 `json:"voicing_threshold"`

	// A later lag peak only replaces an earlier one when the earlier one
	// is below this fraction of it. Guards against octave-down errors.
	OctaveTolerance float64 `json:"octave_tolerance"`
}

// DefaultPitchTrackerParams returns voice-range defaults for sampleRate
func DefaultPitchTrackerParams(sampleRate int) PitchTrackerParams {
	return PitchTrackerParams{
		SampleRate:       sampleRate,
		FrameSize:        2048,
		HopSize:          512,
		MinFreq:          50,
		MaxFreq:          400,
		VoicingThreshold: 0.3,
		OctaveTolerance:  0.9,
	}
}

// Validate checks the tracker parameters
func (p PitchTrackerParams) Validate() error {
	if p.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate: %d", p.SampleRate)
	}
	if p.FrameSize <= 0 || p.HopSize <= 0 {
		return fmt.Errorf("frame size and hop size must be positive: %d/%d", p.FrameSize, p.HopSize)
	}
	if p.MinFreq <= 0 || p.MaxFreq <= p.MinFreq {
		return fmt.Errorf("invalid F0 range [%g, %g]", p.MinFreq, p.MaxFreq)
	}
	if p.MaxFreq > float64(p.SampleRate)/2 {
		return fmt.Errorf("max F0 %g Hz is above Nyquist for %d Hz", p.MaxFreq, p.SampleRate)
	}
	if maxLag := int(math.Ceil(float64(p.SampleRate) / p.MinFreq)); maxLag >= p.FrameSize-1 {
		return fmt.Errorf("frame size %d too short for a %g Hz fundamental at %d Hz", p.FrameSize, p.MinFreq, p.SampleRate)
	}
	if p.VoicingThreshold < 0 || p.VoicingThreshold > 1 {
		return fmt.Errorf("voicing threshold must be in [0, 1]: %g", p.VoicingThreshold)
	}
	if p.OctaveTolerance <= 0 || p.OctaveTolerance > 1 {
		return fmt.Errorf("octave tolerance must be in (0, 1]: %g", p.OctaveTolerance)
	}
	return nil
}

// F0Frame is the pitch estimate for one analysis frame
type F0Frame struct {
	Time      float64 `json:"time"`      // Frame centre in seconds
	Frequency float64 `json:"frequency"` // Best lag in Hz, zero when no lag peak was found
	Strength  float64 `json:"strength"`  // Normalized autocorrelation at the chosen lag
	Voiced    bool    `json:"voiced"`
}

// F0Sequence is the per-frame pitch track of one recording. It is built once
// per request and only read afterwards.
type F0Sequence struct {
	SampleRate int       `json:"sample_rate"`
	FrameSize  int       `json:"frame_size"`
	HopSize    int       `json:"hop_size"`
	Frames     []F0Frame `json:"frames"`
}

// VoicedFrequencies returns the frequencies of voiced frames in order
func (s *F0Sequence) VoicedFrequencies() []float64 {
	if s == nil {
		return nil
	}
	out := make([]float64, 0, len(s.Frames))
	for _, f := range s.Frames {
		if f.Voiced {
			out = append(out, f.Frequency)
		}
	}
	return out
}

// NumVoiced returns the number of voiced frames
func (s *F0Sequence) NumVoiced() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, f := range s.Frames {
		if f.Voiced {
			n++
		}
	}
	return n
}

// MeanVoiced returns the mean F0 of voiced frames, or 0 with no voiced frames
func (s *F0Sequence) MeanVoiced() float64 {
	return common.Mean(s.VoicedFrequencies())
}

// At returns the frame whose centre is nearest to sample index pos
func (s *F0Sequence) At(pos int) (F0Frame, bool) {
	if s == nil || len(s.Frames) == 0 {
		return F0Frame{}, false
	}
	idx := int(math.Round(float64(pos-s.FrameSize/2) / float64(s.HopSize)))
	idx = max(0, min(idx, len(s.Frames)-1))
	return s.Frames[idx], true
}

// PitchTracker estimates F0 per frame from the normalized autocorrelation.
// It holds only parameters; every Track call allocates its own buffers.
type PitchTracker struct {
	params PitchTrackerParams
	minLag int
	maxLag int
	logger logging.Logger
}

// NewPitchTracker creates a tracker
func NewPitchTracker(params PitchTrackerParams) (*PitchTracker, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pitch tracker params: %w", err)
	}

	return &PitchTracker{
		params: params,
		minLag: max(1, int(math.Floor(float64(params.SampleRate)/params.MaxFreq))),
		maxLag: int(math.Ceil(float64(params.SampleRate) / params.MinFreq)),
		logger: logging.WithFields(logging.Fields{
			"component": "pitch_tracker",
		}),
	}, nil
}

// Params returns the tracker parameters
func (pt *PitchTracker) Params() PitchTrackerParams {
	return pt.params
}

// Track splits signal into frames (incomplete tail frames are dropped) and
// estimates one F0Frame per frame. A signal shorter than one frame yields an
// empty sequence.
func (pt *PitchTracker) Track(signal []float64) (*F0Sequence, error) {
	framer := common.NewFramer(pt.params.FrameSize, pt.params.HopSize)
	numFrames := framer.NumFrames(len(signal))

	seq := &F0Sequence{
		SampleRate: pt.params.SampleRate,
		FrameSize:  pt.params.FrameSize,
		HopSize:    pt.params.HopSize,
		Frames:     make([]F0Frame, numFrames),
	}
	if numFrames == 0 {
		return seq, nil
	}

	ac, err := spectral.NewAutocorrelator(pt.params.FrameSize)
	if err != nil {
		return nil, err
	}

	frame := make([]float64, pt.params.FrameSize)
	energy := make([]float64, pt.params.FrameSize+1)
	nccf := make([]float64, pt.maxLag+2)
	var r []float64

	for i := range numFrames {
		framer.Frame(signal, i, frame)

		mean := common.Mean(frame)
		for j := range frame {
			frame[j] -= mean
		}

		r, err = ac.Compute(frame, r)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}

		est := pt.estimate(frame, r, energy, nccf)
		est.Time = float64(framer.FrameCenter(i)) / float64(pt.params.SampleRate)
		seq.Frames[i] = est
	}

	pt.logger.Debug("Pitch tracked", logging.Fields{
		"frames": numFrames,
		"voiced": seq.NumVoiced(),
		"mean":   seq.MeanVoiced(),
	})

	return seq, nil
}

// estimate picks the best lag of one frame. energy and nccf are scratch.
func (pt *PitchTracker) estimate(frame, r, energy, nccf []float64) F0Frame {
	n := len(frame)

	// energy[k] = sum of x² over frame[:k]
	energy[0] = 0
	for k, v := range frame {
		energy[k+1] = energy[k] + v*v
	}
	if energy[n] < 1e-12 {
		return F0Frame{}
	}

	lo, hi := pt.minLag, min(pt.maxLag, n-2)
	for tau := lo - 1; tau <= hi+1; tau++ {
		head := energy[n-tau]
		tail := energy[n] - energy[tau]
		denom := math.Sqrt(head * tail)
		if denom < 1e-12 {
			nccf[tau] = 0
			continue
		}
		nccf[tau] = r[tau] / denom
	}

	globalMax := math.Inf(-1)
	for tau := lo; tau <= hi; tau++ {
		globalMax = math.Max(globalMax, nccf[tau])
	}
	if globalMax <= 0 {
		return F0Frame{}
	}

	// First local maximum close to the global one: the shortest period that
	// explains the frame about as well as any longer multiple of it
	best := -1
	for tau := lo; tau <= hi; tau++ {
		if nccf[tau] < pt.params.OctaveTolerance*globalMax {
			continue
		}
		if nccf[tau] >= nccf[tau-1] && nccf[tau] >= nccf[tau+1] {
			best = tau
			break
		}
	}
	if best < 0 {
		return F0Frame{}
	}

	lag := float64(best) + common.ParabolicOffset(nccf, best)
	strength := nccf[best]

	return F0Frame{
		Frequency: float64(pt.params.SampleRate) / lag,
		Strength:  strength,
		Voiced:    strength >= pt.params.VoicingThreshold,
	}
}
