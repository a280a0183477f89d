package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/tphakala/flac"
)

// SoundfileDecoder is the in-process library tier. The container is sniffed
// from its magic bytes, the hint is only used when sniffing fails.
type SoundfileDecoder struct{}

// NewSoundfileDecoder creates the library tier
func NewSoundfileDecoder() *SoundfileDecoder {
	return &SoundfileDecoder{}
}

// Name implements Tier
func (s *SoundfileDecoder) Name() string {
	return TierSoundfile
}

// Decode implements Tier
func (s *SoundfileDecoder) Decode(ctx context.Context, data []byte, hint string) (*AudioData, error) {
	if len(data) == 0 {
		return nil, errEmptyInput
	}

	format := SniffFormat(data)
	if format == "" {
		format = normalizeHint(hint)
	}

	switch format {
	case "wav":
		return decodeWAV(data)
	case "flac":
		return decodeFLAC(ctx, data)
	case "mp3":
		return decodeMP3(data)
	case "":
		return nil, fmt.Errorf("unrecognized container")
	default:
		return nil, fmt.Errorf("%s container is not supported by this decoder", format)
	}
}

// SniffFormat identifies the container from its leading bytes. It returns
// an empty string when nothing matches.
func SniffFormat(data []byte) string {
	switch {
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return "wav"
	case len(data) >= 4 && string(data[0:4]) == "fLaC":
		return "flac"
	case len(data) >= 4 && string(data[0:4]) == "OggS":
		return "ogg"
	case len(data) >= 4 && bytes.Equal(data[0:4], []byte{0x1A, 0x45, 0xDF, 0xA3}):
		return "webm"
	case len(data) >= 3 && string(data[0:3]) == "ID3":
		return "mp3"
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return "mp3"
	default:
		return ""
	}
}

// normalizeHint turns a file name, extension or MIME type into a format name
func normalizeHint(hint string) string {
	hint = strings.ToLower(strings.TrimSpace(hint))
	if i := strings.LastIndexAny(hint, "./"); i >= 0 {
		hint = hint[i+1:]
	}
	switch hint {
	case "wav", "wave", "x-wav", "vnd.wave":
		return "wav"
	case "flac", "x-flac":
		return "flac"
	case "mp3", "mpeg":
		return "mp3"
	case "ogg", "oga", "opus":
		return "ogg"
	case "webm":
		return "webm"
	default:
		return ""
	}
}

// decodeWAV reads integer PCM WAV through go-audio/wav. A data chunk shorter
// than its declared size is rejected.
func decodeWAV(data []byte) (*AudioData, error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		if err := d.Err(); err != nil {
			return nil, fmt.Errorf("invalid WAV file: %w", err)
		}
		return nil, fmt.Errorf("invalid WAV file")
	}
	if d.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("unsupported WAV audio format %d", d.WavAudioFormat)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to read PCM data: %w", err)
	}

	bytesPerSample := int64(d.BitDepth) / 8
	if bytesPerSample == 0 {
		return nil, fmt.Errorf("invalid bit depth %d", d.BitDepth)
	}
	declared := d.PCMLen() / bytesPerSample
	if int64(len(buf.Data)) < declared {
		return nil, fmt.Errorf("data chunk truncated: %d of %d samples present", len(buf.Data), declared)
	}

	samples, err := scaleInts(buf.Data, int(d.BitDepth))
	if err != nil {
		return nil, err
	}

	audio, err := NewAudioData(samples, int(d.SampleRate), int(d.NumChans))
	if err != nil {
		return nil, err
	}
	audio.Metadata = &StreamMetadata{
		Format:           "wav",
		Codec:            fmt.Sprintf("pcm_s%dle", d.BitDepth),
		ContentType:      "audio/wav",
		SourceSampleRate: int(d.SampleRate),
		SourceChannels:   int(d.NumChans),
		BitsPerSample:    int(d.BitDepth),
		Timestamp:        time.Now(),
	}
	return audio, nil
}

// decodeFLAC reads interleaved little-endian frames from tphakala/flac
func decodeFLAC(ctx context.Context, data []byte) (*AudioData, error) {
	decoder, err := flac.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("invalid FLAC stream: %w", err)
	}
	if decoder.BitsPerSample == 8 {
		return nil, fmt.Errorf("unsupported FLAC bit depth: 8")
	}

	var raw []byte
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		frame, err := decoder.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("FLAC frame decode failed: %w", err)
		}
		raw = append(raw, frame...)
	}

	samples, err := decodePCM(raw, decoder.BitsPerSample, false)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("no audio samples decoded")
	}

	audio, err := NewAudioData(samples, decoder.SampleRate, decoder.NChannels)
	if err != nil {
		return nil, err
	}
	audio.Metadata = &StreamMetadata{
		Format:           "flac",
		Codec:            "flac",
		ContentType:      "audio/flac",
		SourceSampleRate: decoder.SampleRate,
		SourceChannels:   decoder.NChannels,
		BitsPerSample:    decoder.BitsPerSample,
		Timestamp:        time.Now(),
	}
	return audio, nil
}

// decodeMP3 uses go-mp3, which always yields 16-bit stereo
func decodeMP3(data []byte) (*AudioData, error) {
	decoder, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("invalid MP3 stream: %w", err)
	}

	raw, err := io.ReadAll(decoder)
	if err != nil {
		return nil, fmt.Errorf("MP3 decode failed: %w", err)
	}

	samples, err := decodePCM(raw, 16, false)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("no audio samples decoded")
	}

	audio, err := NewAudioData(samples, decoder.SampleRate(), 2)
	if err != nil {
		return nil, err
	}
	audio.Metadata = &StreamMetadata{
		Format:           "mp3",
		Codec:            "mp3",
		ContentType:      "audio/mpeg",
		SourceSampleRate: decoder.SampleRate(),
		SourceChannels:   2,
		BitsPerSample:    16,
		Timestamp:        time.Now(),
	}
	return audio, nil
}
