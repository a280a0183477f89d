package common

import (
	"math"
)

// NormalizationType defines normalization method
type NormalizationType int

const (
	Peak NormalizationType = iota
	RMSNorm
	None
)

// Normalizer applies amplitude normalization to a waveform
type Normalizer struct {
	method    NormalizationType
	targetRMS float64
}

// NewNormalizer creates a new normalizer
func NewNormalizer(method NormalizationType) *Normalizer {
	return &Normalizer{
		method:    method,
		targetRMS: 0.1,
	}
}

// Normalize returns a normalized copy of signal. Silent input is returned unchanged.
func (n *Normalizer) Normalize(signal []float64) []float64 {
	switch n.method {
	case Peak:
		return n.peakNormalize(signal)
	case RMSNorm:
		return n.rmsNormalize(signal)
	default:
		return signal
	}
}

// peakNormalize scales the signal so the largest absolute sample is 1
func (n *Normalizer) peakNormalize(signal []float64) []float64 {
	if len(signal) == 0 {
		return signal
	}

	peak := MaxAbs(signal)
	if peak < 1e-10 {
		return signal
	}

	normalized := make([]float64, len(signal))
	for i, val := range signal {
		normalized[i] = val / peak
	}

	return normalized
}

// rmsNormalize scales the signal to the target RMS, clipping to [-1, 1]
func (n *Normalizer) rmsNormalize(signal []float64) []float64 {
	if len(signal) == 0 {
		return signal
	}

	rms := RMS(signal)
	if rms < 1e-10 {
		return signal
	}

	gain := n.targetRMS / rms
	normalized := make([]float64, len(signal))
	for i, val := range signal {
		normalized[i] = Clamp(val*gain, -1, 1)
	}

	return normalized
}

// PowerToDB converts a power value to decibels relative to ref, floored at amin
func PowerToDB(power, ref, amin float64) float64 {
	return 10*math.Log10(math.Max(power, amin)) - 10*math.Log10(math.Max(ref, amin))
}

// AmplitudeToDB converts an amplitude value to decibels relative to ref, floored at amin
func AmplitudeToDB(amplitude, ref, amin float64) float64 {
	return 20*math.Log10(math.Max(amplitude, amin)) - 20*math.Log10(math.Max(ref, amin))
}
