package transcode

import (
	"fmt"
	"time"
)

// AudioData represents decoded audio data
type AudioData struct {
	PCM        []float64       `json:"-"` // Samples, interleaved when Channels > 1
	SampleRate int             `json:"sample_rate"`
	Channels   int             `json:"channels"`
	Duration   time.Duration   `json:"duration"`
	Timestamp  time.Time       `json:"timestamp"`
	Tier       string          `json:"tier"` // Name of the decoder tier that produced the samples
	Metadata   *StreamMetadata `json:"metadata,omitempty"`
}

// StreamMetadata describes the source container as seen by the decoding tier
type StreamMetadata struct {
	Format           string    `json:"format"`
	Codec            string    `json:"codec,omitempty"`
	ContentType      string    `json:"content_type,omitempty"`
	SourceSampleRate int       `json:"source_sample_rate,omitempty"`
	SourceChannels   int       `json:"source_channels,omitempty"`
	BitsPerSample    int       `json:"bits_per_sample,omitempty"`
	Bitrate          int       `json:"bitrate,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// NewAudioData wraps interleaved samples and derives the duration
func NewAudioData(pcm []float64, sampleRate, channels int) (*AudioData, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("invalid channel count: %d", channels)
	}

	// Drop a trailing partial frame
	pcm = pcm[:len(pcm)/channels*channels]

	return &AudioData{
		PCM:        pcm,
		SampleRate: sampleRate,
		Channels:   channels,
		Duration:   samplesToDuration(len(pcm)/channels, sampleRate),
		Timestamp:  time.Now(),
	}, nil
}

// NumFrames returns the number of sample frames (samples per channel)
func (a *AudioData) NumFrames() int {
	if a == nil || a.Channels <= 0 {
		return 0
	}
	return len(a.PCM) / a.Channels
}

// Downmix averages the channels into a mono signal in place
func (a *AudioData) Downmix() {
	if a.Channels <= 1 {
		a.Channels = 1
		return
	}
	a.PCM = Downmix(a.PCM, a.Channels)
	a.Channels = 1
}

// Truncate limits the audio to at most maxDuration. Zero means no limit.
func (a *AudioData) Truncate(maxDuration time.Duration) {
	if maxDuration <= 0 || a.Channels <= 0 {
		return
	}
	maxFrames := int(maxDuration.Seconds() * float64(a.SampleRate))
	if a.NumFrames() <= maxFrames {
		return
	}
	a.PCM = a.PCM[:maxFrames*a.Channels]
	a.Duration = samplesToDuration(maxFrames, a.SampleRate)
}

// Downmix averages interleaved channels into one channel
func Downmix(interleaved []float64, channels int) []float64 {
	if channels <= 1 {
		return interleaved
	}

	frames := len(interleaved) / channels
	mono := make([]float64, frames)
	scale := 1 / float64(channels)
	for i := range mono {
		sum := 0.0
		for _, v := range interleaved[i*channels : (i+1)*channels] {
			sum += v
		}
		mono[i] = sum * scale
	}
	return mono
}

func samplesToDuration(samples, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}

// contentTypeFromCodec maps codec to content type
func contentTypeFromCodec(codec string) string {
	switch codec {
	case "pcm_s16le", "pcm_s24le", "pcm_s32le", "pcm_u8", "pcm_f32le", "wav":
		return "audio/wav"
	case "mp3":
		return "audio/mpeg"
	case "flac":
		return "audio/flac"
	case "vorbis", "ogg":
		return "audio/ogg"
	case "opus":
		return "audio/opus"
	case "aac":
		return "audio/aac"
	default:
		return "audio/unknown"
	}
}
