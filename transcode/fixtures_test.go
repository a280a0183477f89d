package transcode

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/require"
)

func sine(freq float64, sampleRate int, seconds float64, amp float64) []float64 {
	out := make([]float64, int(seconds*float64(sampleRate)))
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

// encodeWAV writes 16-bit PCM through the go-audio encoder. channels holds
// one slice per channel, all the same length.
func encodeWAV(t *testing.T, sampleRate int, channels ...[]float64) []byte {
	t.Helper()

	frames := len(channels[0])
	data := make([]int, 0, frames*len(channels))
	for i := range frames {
		for _, ch := range channels {
			data = append(data, int(math.Round(ch[i]*32767)))
		}
	}

	path := filepath.Join(t.TempDir(), "fixture.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	enc := wav.NewEncoder(f, sampleRate, 16, len(channels), wavFormatPCM)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Data:           data,
		Format:         &audio.Format{NumChannels: len(channels), SampleRate: sampleRate},
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return b
}

// buildWAV assembles a canonical 44-byte header by hand. declaredData
// overrides the data chunk size field when non-negative.
func buildWAV(format uint16, channels, sampleRate, bits int, payload []byte, declaredData int) []byte {
	if declaredData < 0 {
		declaredData = len(payload)
	}
	blockAlign := channels * bits / 8

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+declaredData))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, format)
	_ = binary.Write(&buf, binary.LittleEndian, uint16(channels))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*blockAlign))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(bits))
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(declaredData))
	buf.Write(payload)
	return buf.Bytes()
}

// testLoaderConfig disables the ffmpeg tier deterministically by pointing it
// at a binary that cannot exist
func testLoaderConfig() *LoaderConfig {
	cfg := DefaultLoaderConfig()
	cfg.Decoder.FFmpegPath = "/nonexistent/ffmpeg"
	cfg.Decoder.FFprobePath = "/nonexistent/ffprobe"
	cfg.MaxDuration = 0
	return cfg
}

func newTestLoader(t *testing.T, mutate func(*LoaderConfig)) *Loader {
	t.Helper()
	cfg := testLoaderConfig()
	if mutate != nil {
		mutate(cfg)
	}
	loader, err := NewLoader(cfg)
	require.NoError(t, err)
	return loader
}
