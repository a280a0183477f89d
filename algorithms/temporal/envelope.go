package temporal

import (
	"math"

	"github.com/RyanBlaney/sonido-vox/algorithms/common"
)

// Envelope provides amplitude envelope extraction
type Envelope struct{}

// NewEnvelope creates a new envelope extractor
func NewEnvelope() *Envelope {
	return &Envelope{}
}

// ComputeRMS computes the RMS of every frame the framer produces
func (e *Envelope) ComputeRMS(signal []float64, framer *common.Framer) []float64 {
	if framer == nil || framer.Validate() != nil {
		return []float64{}
	}

	numFrames := framer.NumFrames(len(signal))
	envelope := make([]float64, numFrames)
	frame := make([]float64, framer.FrameSize)

	for i := range numFrames {
		framer.Frame(signal, i, frame)

		sumSquares := 0.0
		for _, v := range frame {
			sumSquares += v * v
		}
		envelope[i] = math.Sqrt(sumSquares / float64(framer.FrameSize))
	}

	return envelope
}

// ComputePeak computes peak envelope (maximum absolute value per frame)
func (e *Envelope) ComputePeak(signal []float64, framer *common.Framer) []float64 {
	if framer == nil || framer.Validate() != nil {
		return []float64{}
	}

	numFrames := framer.NumFrames(len(signal))
	envelope := make([]float64, numFrames)
	frame := make([]float64, framer.FrameSize)

	for i := range numFrames {
		framer.Frame(signal, i, frame)
		envelope[i] = common.MaxAbs(frame)
	}

	return envelope
}
