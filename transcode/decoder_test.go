package transcode

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSniffFormat(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"wav", []byte("RIFF\x00\x00\x00\x00WAVEfmt "), "wav"},
		{"avi is not wav", []byte("RIFF\x00\x00\x00\x00AVI LIST"), ""},
		{"flac", []byte("fLaC\x00\x00\x00\x22"), "flac"},
		{"ogg", []byte("OggS\x00\x02"), "ogg"},
		{"webm", []byte{0x1A, 0x45, 0xDF, 0xA3, 0x01}, "webm"},
		{"mp3 id3", []byte("ID3\x04\x00"), "mp3"},
		{"mp3 frame sync", []byte{0xFF, 0xFB, 0x90, 0x64}, "mp3"},
		{"short", []byte{0xFF}, ""},
		{"text", []byte("hello world"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SniffFormat(tt.data))
		})
	}
}

func TestNormalizeHint(t *testing.T) {
	assert.Equal(t, "wav", normalizeHint("Recording.WAV"))
	assert.Equal(t, "wav", normalizeHint("audio/x-wav"))
	assert.Equal(t, "mp3", normalizeHint("audio/mpeg"))
	assert.Equal(t, "webm", normalizeHint("blob.webm"))
	assert.Equal(t, "ogg", normalizeHint("opus"))
	assert.Equal(t, "", normalizeHint(""))
}

func TestSoundfileRejectsUnsupported(t *testing.T) {
	dec := NewSoundfileDecoder()

	_, err := dec.Decode(context.Background(), []byte("OggS\x00\x02garbage"), "")
	assert.ErrorContains(t, err, "ogg")

	floatWAV := buildWAV(wavFormatIEEEFloat, 1, 16000, 32, make([]byte, 64), -1)
	_, err = dec.Decode(context.Background(), floatWAV, "")
	assert.ErrorContains(t, err, "format 3")

	_, err = dec.Decode(context.Background(), []byte("not audio"), "")
	assert.Error(t, err)
}

func float32Payload(values []float64) []byte {
	var buf bytes.Buffer
	for _, v := range values {
		_ = binary.Write(&buf, binary.LittleEndian, float32(v))
	}
	return buf.Bytes()
}

func TestWavArrayAndRIFFDecodeSampleFormats(t *testing.T) {
	values := []float64{0, 0.5, -0.5, 0.25, -1}

	pcm8 := []byte{128, 192, 64, 160, 0}

	pcm24 := make([]byte, 0, 15)
	for _, v := range values {
		s := int32(v * 8388608)
		if s > 8388607 {
			s = 8388607
		}
		pcm24 = append(pcm24, byte(s), byte(s>>8), byte(s>>16))
	}

	tests := []struct {
		name   string
		format uint16
		bits   int
		data   []byte
	}{
		{"uint8", wavFormatPCM, 8, pcm8},
		{"int24", wavFormatPCM, 24, pcm24},
		{"float32", wavFormatIEEEFloat, 32, float32Payload(values)},
	}

	for _, tt := range tests {
		for _, tier := range []Tier{NewWavArrayDecoder(), NewRIFFDecoder()} {
			t.Run(tt.name+"/"+tier.Name(), func(t *testing.T) {
				got, err := tier.Decode(context.Background(), buildWAV(tt.format, 1, 8000, tt.bits, tt.data, -1), "")
				require.NoError(t, err)
				assert.Equal(t, 8000, got.SampleRate)
				assert.InDeltaSlice(t, values, got.PCM, 1e-6)
			})
		}
	}
}

func TestChunkWalkSkipsOddSizedChunks(t *testing.T) {
	payload := float32Payload([]float64{0.1, 0.2, 0.3, 0.4})
	base := buildWAV(wavFormatIEEEFloat, 2, 8000, 32, payload, -1)

	// JUNK chunk with a 3-byte body and its pad byte, between fmt and data
	junk := []byte{'J', 'U', 'N', 'K', 3, 0, 0, 0, 'a', 'b', 'c', 0}
	data := append(append(append([]byte{}, base[:36]...), junk...), base[36:]...)

	for _, tier := range []Tier{NewWavArrayDecoder(), NewRIFFDecoder()} {
		got, err := tier.Decode(context.Background(), data, "")
		require.NoError(t, err, tier.Name())
		assert.Equal(t, 2, got.Channels)
		assert.InDeltaSlice(t, []float64{0.1, 0.2, 0.3, 0.4}, got.PCM, 1e-6)
	}
}

func TestRIFFDecoderRejectsDamage(t *testing.T) {
	dec := NewRIFFDecoder()
	good := buildWAV(wavFormatPCM, 1, 8000, 16, make([]byte, 100), -1)

	tests := []struct {
		name string
		data []byte
	}{
		{"too small", good[:8]},
		{"bad riff magic", append([]byte("RIFX"), good[4:]...)},
		{"bad wave magic", append(append(append([]byte{}, good[:8]...), "AVI "...), good[12:]...)},
		{"no data chunk", good[:36]},
		{"partial frame only", buildWAV(wavFormatPCM, 2, 8000, 16, []byte{1, 2, 3}, -1)},
		{"a-law", buildWAV(6, 1, 8000, 8, make([]byte, 10), -1)},
		{"12 bit", buildWAV(wavFormatPCM, 1, 8000, 12, make([]byte, 10), -1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := dec.Decode(context.Background(), tt.data, "")
			assert.Error(t, err)
		})
	}
}

func TestRIFFDecoderToleratesOverstatedSizes(t *testing.T) {
	payload := make([]byte, 0, 200)
	for i := range 100 {
		payload = binary.LittleEndian.AppendUint16(payload, uint16(int16(i*100)))
	}

	// Streaming writers leave 0xFFFFFFFF in the size fields
	data := buildWAV(wavFormatPCM, 1, 16000, 16, payload, math.MaxUint32)

	got, err := NewRIFFDecoder().Decode(context.Background(), data, "")
	require.NoError(t, err)
	require.Len(t, got.PCM, 100)
	assert.InDelta(t, 9900.0/32768, got.PCM[99], 1e-12)

	_, err = NewWavArrayDecoder().Decode(context.Background(), data, "")
	assert.Error(t, err)
}

func TestParseFmtChunkExtensible(t *testing.T) {
	b := make([]byte, 40)
	binary.LittleEndian.PutUint16(b[0:], wavFormatExtensible)
	binary.LittleEndian.PutUint16(b[2:], 2)
	binary.LittleEndian.PutUint32(b[4:], 48000)
	binary.LittleEndian.PutUint16(b[12:], 8)
	binary.LittleEndian.PutUint16(b[14:], 32)
	binary.LittleEndian.PutUint16(b[24:], wavFormatIEEEFloat)

	h, err := parseFmtChunk(b)
	require.NoError(t, err)
	assert.Equal(t, uint16(wavFormatIEEEFloat), h.AudioFormat)
	assert.Equal(t, uint16(2), h.Channels)

	_, err = parseFmtChunk(b[:20])
	assert.Error(t, err)
}

func TestParseFFprobeOutput(t *testing.T) {
	meta, err := parseFFprobeOutput([]byte(`{"streams":[{"codec_type":"audio","codec_name":"opus",
		"sample_rate":"48000","channels":1,"codec_long_name":"Opus (Opus Interactive Audio Codec)"}]}`))
	require.NoError(t, err)
	assert.Equal(t, 48000, meta.SampleRate)
	assert.Equal(t, 1, meta.Channels)
	assert.Equal(t, "opus", meta.Codec)
	assert.Zero(t, meta.Duration)

	bad := []string{
		`{"streams":[]}`,
		`{"streams":[{"codec_type":"video","sample_rate":"48000","channels":1}]}`,
		`{"streams":[{"codec_type":"audio","sample_rate":"n/a","channels":1}]}`,
		`{"streams":[{"codec_type":"audio","sample_rate":"44100","channels":0}]}`,
		`not json`,
	}
	for _, in := range bad {
		_, err := parseFFprobeOutput([]byte(in))
		assert.Error(t, err, in)
	}
}

func TestFFmpegDecoder(t *testing.T) {
	cfg := DefaultDecoderConfig()
	cfg.FFmpegPath = "/nonexistent/ffmpeg"
	cfg.MaxDuration = 2 * time.Second
	dec := NewFFmpegDecoder(cfg)

	_, err := dec.Decode(context.Background(), []byte("RIFF"), "")
	assert.ErrorIs(t, err, ErrTierUnavailable)

	args := dec.buildFFmpegArgs(&AudioMetadata{SampleRate: 48000, Channels: 2})
	assert.Equal(t, []string{"-f", "f64le", "-ac", "2", "-ar", "48000", "-t", "2.00", "-v", "error"}, args)
}

func TestBytesToFloat64(t *testing.T) {
	raw := binary.LittleEndian.AppendUint64(nil, math.Float64bits(0.25))
	raw = binary.LittleEndian.AppendUint64(raw, math.Float64bits(-1))
	raw = append(raw, 0xAA) // partial sample

	assert.Equal(t, []float64{0.25, -1}, bytesToFloat64(raw))
	assert.Nil(t, bytesToFloat64([]byte{1, 2, 3}))
}

func TestAudioDataHelpers(t *testing.T) {
	a, err := NewAudioData([]float64{1, 3, -1, -3, 0.5, 0.5, 9}, 4, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, a.NumFrames())
	assert.Equal(t, 750*time.Millisecond, a.Duration)

	a.Downmix()
	assert.Equal(t, 1, a.Channels)
	assert.Equal(t, []float64{2, -2, 0.5}, a.PCM)

	a.Truncate(500 * time.Millisecond)
	assert.Equal(t, []float64{2, -2}, a.PCM)

	_, err = NewAudioData(nil, 0, 1)
	assert.Error(t, err)
}

func TestResampler(t *testing.T) {
	signal := sine(440, 48000, 0.5, 0.5)

	t.Run("linear length", func(t *testing.T) {
		r, err := NewResampler(ResampleLinear)
		require.NoError(t, err)
		out, err := r.Resample(signal, 48000, 16000)
		require.NoError(t, err)
		assert.Len(t, out, 8000)
	})

	t.Run("high stays within bounds", func(t *testing.T) {
		r, err := NewResampler(ResampleHigh)
		require.NoError(t, err)
		out, err := r.Resample(signal, 48000, 22050)
		require.NoError(t, err)

		expected := 11025
		assert.LessOrEqual(t, len(out), expected)
		assert.GreaterOrEqual(t, len(out), expected-expected/20)
		for _, v := range out {
			require.False(t, math.IsNaN(v) || math.IsInf(v, 0))
		}
	})

	t.Run("same rate", func(t *testing.T) {
		r, err := NewResampler("")
		require.NoError(t, err)
		assert.Equal(t, ResampleHigh, r.Quality())
		out, err := r.Resample(signal, 48000, 48000)
		require.NoError(t, err)
		assert.Len(t, out, len(signal))
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := NewResampler("sinc-best")
		assert.Error(t, err)

		r, err := NewResampler(ResampleCubic)
		require.NoError(t, err)
		_, err = r.Resample(signal, 0, 16000)
		assert.Error(t, err)
	})
}
