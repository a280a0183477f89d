package spectral

import (
	"math"

	"github.com/RyanBlaney/sonido-vox/algorithms/common"
)

// ZeroCrossingRate calculates the fraction of sign changes per frame.
// High ZCR indicates fricatives/unvoiced speech, low ZCR indicates voiced speech.
type ZeroCrossingRate struct {
	framer common.Framer
}

// NewZeroCrossingRate creates a calculator framing the signal like the STFT
// (centered, frameSize/2 zero padding on both sides)
func NewZeroCrossingRate(frameSize, hopSize int) *ZeroCrossingRate {
	return &ZeroCrossingRate{
		framer: common.Framer{FrameSize: frameSize, HopSize: hopSize, Center: true},
	}
}

// Compute returns crossings / len(frame) for a single frame. Zero counts as
// positive, so padding next to a positive sample is not a crossing.
func (zcr *ZeroCrossingRate) Compute(frame []float64) float64 {
	if len(frame) < 2 {
		return 0.0
	}

	crossings := 0
	for i := 1; i < len(frame); i++ {
		if math.Signbit(frame[i-1]) != math.Signbit(frame[i]) {
			crossings++
		}
	}

	return float64(crossings) / float64(len(frame))
}

// ComputeFrames calculates ZCR for every frame of signal
func (zcr *ZeroCrossingRate) ComputeFrames(signal []float64) []float64 {
	n := zcr.framer.NumFrames(len(signal))
	rates := make([]float64, n)

	frame := make([]float64, zcr.framer.FrameSize)
	for i := range n {
		zcr.framer.Frame(signal, i, frame)
		rates[i] = zcr.Compute(frame)
	}

	return rates
}
