package windowing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHannCoefficients(t *testing.T) {
	periodic := NewHann(4, false)
	assert.InDeltaSlice(t, []float64{0, 0.5, 1, 0.5}, periodic.Coefficients(), 1e-12)

	symmetric := NewHann(5, true)
	assert.InDeltaSlice(t, []float64{0, 0.5, 1, 0.5, 0}, symmetric.Coefficients(), 1e-12)
}

func TestApplyInPlaceSizeMismatch(t *testing.T) {
	w := NewHann(8, false)
	err := w.ApplyInPlace(make([]float64, 4))
	assert.Error(t, err)
}

func TestParseType(t *testing.T) {
	tests := map[string]Type{
		"":        Hann,
		"HANN":    Hann,
		"hamming": Hamming,
		"boxcar":  Rectangular,
	}
	for in, want := range tests {
		got, err := ParseType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseType("kaiser")
	assert.Error(t, err)
}

func TestRectangularIsIdentity(t *testing.T) {
	w, err := New(Rectangular, 3, false)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, w.Apply([]float64{1, 2, 3}))
}
