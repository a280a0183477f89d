package transcode

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/RyanBlaney/sonido-vox/logging"
)

// riffHeader is the subset of the fmt chunk the manual parser needs
type riffHeader struct {
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// RIFFDecoder is the last resort tier. It reads the container by hand and
// accepts damage the other tiers refuse: a data chunk whose size field
// overstates the payload, a bogus RIFF size, or a missing pad byte. Whatever
// whole sample frames are present get decoded.
type RIFFDecoder struct {
	logger logging.Logger
}

// NewRIFFDecoder creates the manual parser tier
func NewRIFFDecoder() *RIFFDecoder {
	return &RIFFDecoder{
		logger: logging.WithFields(logging.Fields{
			"component": "riff_decoder",
		}),
	}
}

// Name implements Tier
func (r *RIFFDecoder) Name() string {
	return TierRIFF
}

// Decode implements Tier
func (r *RIFFDecoder) Decode(ctx context.Context, data []byte, hint string) (*AudioData, error) {
	header, pcm, err := r.parse(data)
	if err != nil {
		return nil, err
	}

	var float bool
	switch header.AudioFormat {
	case wavFormatPCM:
	case wavFormatIEEEFloat:
		float = true
	default:
		return nil, fmt.Errorf("unsupported WAV audio format %d", header.AudioFormat)
	}

	channels := int(header.Channels)
	frameBytes := channels * int(header.BitsPerSample) / 8
	if frameBytes <= 0 {
		return nil, fmt.Errorf("invalid frame layout: %d channels at %d bits", channels, header.BitsPerSample)
	}

	whole := len(pcm) / frameBytes * frameBytes
	if whole == 0 {
		return nil, fmt.Errorf("no complete sample frames in data chunk")
	}

	samples, err := decodePCM(pcm[:whole], int(header.BitsPerSample), float)
	if err != nil {
		return nil, err
	}

	audio, err := NewAudioData(samples, int(header.SampleRate), channels)
	if err != nil {
		return nil, err
	}
	audio.Metadata = &StreamMetadata{
		Format:           "wav",
		ContentType:      "audio/wav",
		SourceSampleRate: int(header.SampleRate),
		SourceChannels:   channels,
		BitsPerSample:    int(header.BitsPerSample),
		Timestamp:        time.Now(),
	}
	return audio, nil
}

// parse validates the magic bytes and locates the fmt and data chunks by tag
func (r *RIFFDecoder) parse(data []byte) (*riffHeader, []byte, error) {
	if len(data) < 12 {
		return nil, nil, fmt.Errorf("file too small for a RIFF header: %d bytes", len(data))
	}
	if string(data[0:4]) != "RIFF" {
		return nil, nil, fmt.Errorf("missing RIFF magic")
	}
	if string(data[8:12]) != "WAVE" {
		return nil, nil, fmt.Errorf("missing WAVE magic")
	}

	var (
		header *riffHeader
		pcm    []byte
	)

	pos := 12
	for pos+8 <= len(data) && (header == nil || pcm == nil) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		end := body + size
		if size < 0 || end > len(data) || end < body {
			end = len(data)
		}

		switch id {
		case "fmt ":
			h, err := parseFmtChunk(data[body:end])
			if err != nil {
				return nil, nil, err
			}
			header = h

		case "data":
			if declared := body + size; declared > len(data) || declared < body {
				r.logger.Debug("Data chunk size exceeds payload, decoding what is present", logging.Fields{
					"declared_bytes": size,
					"present_bytes":  end - body,
				})
			}
			pcm = data[body:end]
		}

		next := end + (end-body)&1
		if next <= pos {
			break
		}
		pos = next
	}

	if header == nil {
		return nil, nil, fmt.Errorf("fmt chunk not found")
	}
	if pcm == nil {
		return nil, nil, fmt.Errorf("data chunk not found")
	}
	return header, pcm, nil
}

func parseFmtChunk(b []byte) (*riffHeader, error) {
	if len(b) < 16 {
		return nil, fmt.Errorf("fmt chunk too short: %d bytes", len(b))
	}

	h := &riffHeader{
		AudioFormat:   binary.LittleEndian.Uint16(b[0:2]),
		Channels:      binary.LittleEndian.Uint16(b[2:4]),
		SampleRate:    binary.LittleEndian.Uint32(b[4:8]),
		BlockAlign:    binary.LittleEndian.Uint16(b[12:14]),
		BitsPerSample: binary.LittleEndian.Uint16(b[14:16]),
	}

	// WAVE_FORMAT_EXTENSIBLE carries the real format in the first two bytes
	// of the sub-format GUID
	if h.AudioFormat == wavFormatExtensible {
		if len(b) < 26 {
			return nil, fmt.Errorf("extensible fmt chunk too short: %d bytes", len(b))
		}
		h.AudioFormat = binary.LittleEndian.Uint16(b[24:26])
	}

	if h.Channels == 0 || h.Channels > 8 {
		return nil, fmt.Errorf("invalid channel count: %d", h.Channels)
	}
	if h.SampleRate == 0 {
		return nil, fmt.Errorf("invalid sample rate: 0")
	}
	switch h.BitsPerSample {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("unsupported bit depth: %d", h.BitsPerSample)
	}
	return h, nil
}
