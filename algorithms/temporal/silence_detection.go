package temporal

import (
	"github.com/RyanBlaney/sonido-vox/algorithms/common"
)

// SilenceDetection finds the silent edges of a recording
type SilenceDetection struct {
	envelopeExtractor *Envelope
	frameSize         int
	hopSize           int
}

// NewSilenceDetection creates a silence detector analysing centered frames
// of frameSize samples every hopSize samples
func NewSilenceDetection(frameSize, hopSize int) *SilenceDetection {
	return &SilenceDetection{
		envelopeExtractor: NewEnvelope(),
		frameSize:         frameSize,
		hopSize:           hopSize,
	}
}

// TrimBounds returns the half-open sample range [start, end) between the
// first and last frame whose energy is within topDB of the loudest frame.
// A signal with no such frame gives (0, 0).
func (sd *SilenceDetection) TrimBounds(signal []float64, topDB float64) (start, end int) {
	framer := &common.Framer{FrameSize: sd.frameSize, HopSize: sd.hopSize, Center: true}
	rms := sd.envelopeExtractor.ComputeRMS(signal, framer)
	if len(rms) == 0 {
		return 0, 0
	}

	ref := 0.0
	for _, r := range rms {
		ref = max(ref, r*r)
	}
	if ref == 0 {
		return 0, 0
	}

	first, last := -1, -1
	for i, r := range rms {
		if common.PowerToDB(r*r, ref, 1e-10) > -topDB {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return 0, 0
	}

	start = first * sd.hopSize
	end = min(len(signal), (last+1)*sd.hopSize)
	return start, end
}

// IsSilent reports whether no sample of signal reaches threshold in
// absolute value. It also returns the peak so callers can report it.
func IsSilent(signal []float64, threshold float64) (peak float64, silent bool) {
	peak = common.MaxAbs(signal)
	return peak, peak < threshold || peak == 0
}
