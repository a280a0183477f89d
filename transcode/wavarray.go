package transcode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-audio/riff"
)

// WavArrayDecoder is the minimal WAV tier. It walks the chunk list with
// go-audio/riff and decodes the data chunk as one array, covering 8/16/24/32
// bit integer PCM and 32-bit IEEE float. The data chunk must be complete.
type WavArrayDecoder struct{}

// NewWavArrayDecoder creates the minimal WAV tier
func NewWavArrayDecoder() *WavArrayDecoder {
	return &WavArrayDecoder{}
}

// Name implements Tier
func (w *WavArrayDecoder) Name() string {
	return TierWavArray
}

// Decode implements Tier
func (w *WavArrayDecoder) Decode(ctx context.Context, data []byte, hint string) (*AudioData, error) {
	if len(data) == 0 {
		return nil, errEmptyInput
	}

	p := riff.New(bytes.NewReader(data))
	if err := p.ParseHeaders(); err != nil {
		return nil, fmt.Errorf("invalid RIFF header: %w", err)
	}
	if p.Format != riff.WavFormatID {
		return nil, fmt.Errorf("RIFF form %q is not WAVE", p.Format[:])
	}

	var (
		pcm     []byte
		haveFmt bool
		havePCM bool
	)
	for !(haveFmt && havePCM) {
		chunk, err := p.NextChunk()
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("chunk walk failed: %w", err)
		}

		switch chunk.ID {
		case riff.FmtID:
			if err := chunk.DecodeWavHeader(p); err != nil {
				return nil, fmt.Errorf("invalid fmt chunk: %w", err)
			}
			haveFmt = true

		case riff.DataFormatID:
			if chunk.Size > len(data) {
				return nil, fmt.Errorf("data chunk size %d exceeds file size %d", chunk.Size, len(data))
			}
			pcm = make([]byte, chunk.Size)
			n, err := io.ReadFull(chunk, pcm)
			// Size includes the pad byte of odd chunks, which writers may omit
			// at the end of the file
			if err != nil && chunk.Size-n > 1 {
				return nil, fmt.Errorf("data chunk truncated: %d of %d bytes present", n, chunk.Size)
			}
			pcm = pcm[:n]
			havePCM = true

		default:
			chunk.Drain()
		}
	}

	if !haveFmt {
		return nil, fmt.Errorf("fmt chunk not found")
	}
	if !havePCM {
		return nil, fmt.Errorf("data chunk not found")
	}

	var float bool
	switch p.WavAudioFormat {
	case wavFormatPCM, wavFormatExtensible:
	case wavFormatIEEEFloat:
		float = true
	default:
		return nil, fmt.Errorf("unsupported WAV audio format %d", p.WavAudioFormat)
	}

	samples, err := decodePCM(pcm, int(p.BitsPerSample), float)
	if err != nil {
		return nil, err
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("data chunk is empty")
	}

	audio, err := NewAudioData(samples, int(p.SampleRate), int(p.NumChannels))
	if err != nil {
		return nil, err
	}
	audio.Metadata = &StreamMetadata{
		Format:           "wav",
		ContentType:      "audio/wav",
		SourceSampleRate: int(p.SampleRate),
		SourceChannels:   int(p.NumChannels),
		BitsPerSample:    int(p.BitsPerSample),
		Timestamp:        time.Now(),
	}
	return audio, nil
}
