package common

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindPeaks(t *testing.T) {
	tests := []struct {
		name        string
		data        []float64
		minHeight   float64
		minDistance int
		want        []int
	}{
		{
			name:      "simple maxima",
			data:      []float64{0, 1, 0, 2, 0, 3, 0},
			minHeight: 0,
			want:      []int{1, 3, 5},
		},
		{
			name:      "height threshold",
			data:      []float64{0, 1, 0, 2, 0, 3, 0},
			minHeight: 1.5,
			want:      []int{3, 5},
		},
		{
			name:        "distance keeps the taller peak",
			data:        []float64{0, 1, 0, 3, 0, 1, 0},
			minDistance: 3,
			want:        []int{3},
		},
		{
			name:      "plateau reported at its middle",
			data:      []float64{0, 2, 2, 2, 0},
			minHeight: 0,
			want:      []int{2},
		},
		{
			name: "edges are never peaks",
			data: []float64{5, 1, 5},
			want: []int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindPeaks(tt.data, tt.minHeight, tt.minDistance)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParabolicOffset(t *testing.T) {
	// Samples of -(x-0.25)^2 around x=0
	f := func(x float64) float64 { return -(x - 0.25) * (x - 0.25) }
	data := []float64{f(-1), f(0), f(1)}
	assert.InDelta(t, 0.25, ParabolicOffset(data, 1), 1e-12)
	assert.Equal(t, 0.0, ParabolicOffset(data, 0))
}

func TestMedianAndMoments(t *testing.T) {
	assert.Equal(t, 2.5, Median([]float64{4, 1, 3, 2}))
	assert.Equal(t, 3.0, Median([]float64{5, 3, 1}))

	mean, std := MeanStd([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, 5.0, mean, 1e-12)
	assert.InDelta(t, 2.0, std, 1e-12)
	assert.InDelta(t, 4.0, PopulationVariance([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 1e-12)
}

func TestFramer(t *testing.T) {
	signal := make([]float64, 10)
	for i := range signal {
		signal[i] = float64(i + 1)
	}

	t.Run("drop", func(t *testing.T) {
		f := NewFramer(4, 3)
		assert.Equal(t, 3, f.NumFrames(len(signal)))
		frames := f.Frames(signal)
		assert.Equal(t, []float64{7, 8, 9, 10}, frames[2])
	})

	t.Run("pad", func(t *testing.T) {
		f := &Framer{FrameSize: 4, HopSize: 4, Tail: TailPad}
		frames := f.Frames(signal)
		assert.Len(t, frames, 3)
		assert.Equal(t, []float64{9, 10, 0, 0}, frames[2])
	})

	t.Run("center", func(t *testing.T) {
		f := &Framer{FrameSize: 4, HopSize: 2, Center: true}
		assert.Equal(t, 6, f.NumFrames(len(signal)))
		frames := f.Frames(signal)
		assert.Equal(t, []float64{0, 0, 1, 2}, frames[0])
		assert.Equal(t, 4, f.FrameCenter(2))
	})

	t.Run("too short", func(t *testing.T) {
		f := NewFramer(16, 4)
		assert.Equal(t, 0, f.NumFrames(len(signal)))
	})
}

func TestResampleSignalLength(t *testing.T) {
	interp := NewInterpolator(Linear)
	signal := make([]float64, 44100)
	for i := range signal {
		signal[i] = math.Sin(2 * math.Pi * 220 * float64(i) / 44100)
	}

	out := interp.ResampleSignal(signal, 44100, 22050)
	assert.Len(t, out, 22050)

	// A slow sine survives downsampling with its amplitude nearly intact
	assert.InDelta(t, 1.0, MaxAbs(out), 0.05)

	up := interp.ResampleSignal(signal[:1000], 16000, 22050)
	assert.Len(t, up, 1378)
}

func TestNormalizerPeak(t *testing.T) {
	n := NewNormalizer(Peak)
	out := n.Normalize([]float64{0.1, -0.25, 0.2})
	assert.InDeltaSlice(t, []float64{0.4, -1, 0.8}, out, 1e-12)

	silent := []float64{0, 0}
	assert.Equal(t, silent, n.Normalize(silent))
}

func TestPowerToDB(t *testing.T) {
	assert.InDelta(t, -20.0, PowerToDB(0.01, 1, 1e-10), 1e-9)
	assert.InDelta(t, -100.0, PowerToDB(0, 1, 1e-10), 1e-9)
	assert.InDelta(t, -6.0206, AmplitudeToDB(0.5, 1, 1e-10), 1e-3)
}
