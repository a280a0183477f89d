// Package testaudio builds synthetic recordings for tests
package testaudio

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/require"
)

// Sine returns seconds of a sine at freq Hz with peak amp
func Sine(freq float64, sampleRate int, seconds, amp float64) []float64 {
	out := make([]float64, int(seconds*float64(sampleRate)))
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

// AddNoise adds uniform noise in [-amp, amp] from a fixed seed
func AddNoise(signal []float64, amp float64, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, len(signal))
	for i, v := range signal {
		out[i] = v + amp*(2*rng.Float64()-1)
	}
	return out
}

// Voice is a 5 second 200 Hz sine plus light noise at 22050 Hz
func Voice() []float64 {
	return AddNoise(Sine(200, 22050, 5, 0.5), 0.02, 1)
}

// WAV encodes 16-bit PCM with go-audio/wav. channels holds one slice per
// channel, all the same length.
func WAV(tb testing.TB, sampleRate int, channels ...[]float64) []byte {
	tb.Helper()
	require.NotEmpty(tb, channels)

	frames := len(channels[0])
	data := make([]int, 0, frames*len(channels))
	for i := range frames {
		for _, ch := range channels {
			v := max(-1, min(1, ch[i]))
			data = append(data, int(math.Round(v*32767)))
		}
	}

	path := filepath.Join(tb.TempDir(), "fixture.wav")
	f, err := os.Create(path)
	require.NoError(tb, err)

	enc := wav.NewEncoder(f, sampleRate, 16, len(channels), 1)
	require.NoError(tb, enc.Write(&audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{NumChannels: len(channels), SampleRate: sampleRate},
		SourceBitDepth: 16,
	}))
	require.NoError(tb, enc.Close())
	require.NoError(tb, f.Close())

	b, err := os.ReadFile(path)
	require.NoError(tb, err)
	return b
}
