package tonal

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateSine(freq float64, sampleRate int, seconds float64) []float64 {
	n := int(seconds * float64(sampleRate))
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.8 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

func TestTrackSineWithinTwoPercent(t *testing.T) {
	for _, sr := range []int{16000, 22050} {
		tracker, err := NewPitchTracker(DefaultPitchTrackerParams(sr))
		require.NoError(t, err)

		for _, freq := range []float64{80, 110, 147, 220, 300} {
			seq, err := tracker.Track(generateSine(freq, sr, 1.0))
			require.NoError(t, err)
			require.NotEmpty(t, seq.Frames)

			assert.Equal(t, len(seq.Frames), seq.NumVoiced(), "%g Hz at %d: every frame should be voiced", freq, sr)
			assert.InEpsilon(t, freq, seq.MeanVoiced(), 0.02, "%g Hz at %d", freq, sr)
		}
	}
}

func TestTrackSilenceIsUnvoiced(t *testing.T) {
	tracker, err := NewPitchTracker(DefaultPitchTrackerParams(22050))
	require.NoError(t, err)

	seq, err := tracker.Track(make([]float64, 22050))
	require.NoError(t, err)
	require.NotEmpty(t, seq.Frames)

	assert.Zero(t, seq.NumVoiced())
	assert.Zero(t, seq.MeanVoiced())
	for _, f := range seq.Frames {
		assert.False(t, f.Voiced)
	}
}

func TestTrackNoiseIsMostlyUnvoiced(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	noise := make([]float64, 22050)
	for i := range noise {
		noise[i] = rng.NormFloat64() * 0.3
	}

	tracker, err := NewPitchTracker(DefaultPitchTrackerParams(22050))
	require.NoError(t, err)

	seq, err := tracker.Track(noise)
	require.NoError(t, err)
	assert.Less(t, float64(seq.NumVoiced()), 0.1*float64(len(seq.Frames)))
}

func TestTrackFrameLayout(t *testing.T) {
	tracker, err := NewPitchTracker(DefaultPitchTrackerParams(22050))
	require.NoError(t, err)

	// 2048 + 3*512 + 100: the 100-sample tail is dropped
	seq, err := tracker.Track(generateSine(200, 22050, float64(2048+3*512+100)/22050))
	require.NoError(t, err)
	require.Len(t, seq.Frames, 4)
	assert.InDelta(t, 1024.0/22050, seq.Frames[0].Time, 1e-12)

	short, err := tracker.Track(make([]float64, 1000))
	require.NoError(t, err)
	assert.Empty(t, short.Frames)
	assert.Zero(t, short.MeanVoiced())
}

func TestF0SequenceAt(t *testing.T) {
	seq := &F0Sequence{
		SampleRate: 22050,
		FrameSize:  2048,
		HopSize:    512,
		Frames: []F0Frame{
			{Frequency: 100, Voiced: true},
			{Frequency: 110, Voiced: false},
			{Frequency: 120, Voiced: true},
		},
	}

	f, ok := seq.At(0)
	require.True(t, ok)
	assert.Equal(t, 100.0, f.Frequency)

	f, _ = seq.At(1024 + 512)
	assert.Equal(t, 110.0, f.Frequency)

	f, _ = seq.At(1 << 20)
	assert.Equal(t, 120.0, f.Frequency)

	assert.Equal(t, []float64{100, 120}, seq.VoicedFrequencies())

	var empty *F0Sequence
	_, ok = empty.At(10)
	assert.False(t, ok)
}

func TestPitchTrackerParamsValidate(t *testing.T) {
	p := DefaultPitchTrackerParams(22050)
	p.MinFreq = 10 // 2205-sample period does not fit a 2048 frame
	_, err := NewPitchTracker(p)
	assert.Error(t, err)

	p = DefaultPitchTrackerParams(22050)
	p.MaxFreq = 40
	_, err = NewPitchTracker(p)
	assert.Error(t, err)
}
