package transcode

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/RyanBlaney/sonido-vox/logging"
)

// DecoderConfig holds the ffmpeg tier configuration
type DecoderConfig struct {
	FFmpegPath  string        `json:"ffmpeg_path"`  // Path to ffmpeg binary
	FFprobePath string        `json:"ffprobe_path"` // Path to ffprobe binary
	Timeout     time.Duration `json:"timeout"`      // Timeout for each ffmpeg/ffprobe run

	// Passed to ffmpeg as -t so long uploads are not decoded in full
	MaxDuration time.Duration `json:"max_duration"`
}

// DefaultDecoderConfig returns default decoder configuration
func DefaultDecoderConfig() *DecoderConfig {
	return &DecoderConfig{
		FFmpegPath:  "ffmpeg",  // Assume in PATH
		FFprobePath: "ffprobe", // Assume in PATH
		Timeout:     30 * time.Second,
		MaxDuration: 0,
	}
}

// Validate validates the decoder configuration. It does not require ffmpeg
// to be installed; a missing binary only disables the tier.
func (c *DecoderConfig) Validate() error {
	if c.FFmpegPath == "" || c.FFprobePath == "" {
		return fmt.Errorf("ffmpeg and ffprobe paths must be set")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive: %v", c.Timeout)
	}
	if c.MaxDuration < 0 {
		return fmt.Errorf("max duration must not be negative: %v", c.MaxDuration)
	}
	return nil
}

// AudioMetadata holds detected audio properties from FFprobe
type AudioMetadata struct {
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
	Codec      string  `json:"codec"`
	Duration   float64 `json:"duration"`
	Bitrate    int     `json:"bitrate"`
	Format     string  `json:"format"`
}

// FFmpegDecoder is the general purpose tier: anything ffmpeg can demux
// (WebM, Ogg, MP3, M4A, WAV, ...) is decoded to float64 PCM at the source
// sample rate and channel count
type FFmpegDecoder struct {
	config *DecoderConfig
}

// NewFFmpegDecoder creates the ffmpeg tier
func NewFFmpegDecoder(config *DecoderConfig) *FFmpegDecoder {
	if config == nil {
		config = DefaultDecoderConfig()
	}
	return &FFmpegDecoder{config: config}
}

// Name implements Tier
func (d *FFmpegDecoder) Name() string {
	return TierFFmpeg
}

// Decode implements Tier
func (d *FFmpegDecoder) Decode(ctx context.Context, data []byte, hint string) (*AudioData, error) {
	logger := logging.WithFields(logging.Fields{
		"component": "audio_decoder",
		"function":  "Decode",
		"data_size": len(data),
		"hint":      hint,
	})

	if len(data) == 0 {
		return nil, errEmptyInput
	}

	if err := d.checkFFmpegAvailability(); err != nil {
		return nil, err
	}

	metadata, err := d.probeAudioMetadata(ctx, data)
	if err != nil {
		return nil, err
	}

	logger.Debug("Audio metadata detected", logging.Fields{
		"input_sample_rate": metadata.SampleRate,
		"input_channels":    metadata.Channels,
		"input_codec":       metadata.Codec,
		"input_duration":    metadata.Duration,
		"input_bitrate":     metadata.Bitrate,
	})

	return d.decodeWithFFmpeg(ctx, data, metadata, logger)
}

// probeAudioMetadata uses ffprobe to get input audio information from bytes
func (d *FFmpegDecoder) probeAudioMetadata(ctx context.Context, data []byte) (*AudioMetadata, error) {
	args := []string{
		"-v", "quiet", // Suppress verbose output
		"-print_format", "json", // JSON output
		"-show_streams",          // Show stream info
		"-select_streams", "a:0", // First audio stream only
		"pipe:0", // Input from stdin
	}

	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	cmd := exec.CommandContext(ctx, d.config.FFprobePath, args...)
	cmd.Stdin = bytes.NewReader(data)

	output, err := cmd.Output()
	if err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			return nil, fmt.Errorf("ffprobe failed: %w, stderr: %s", err, strings.TrimSpace(string(exitError.Stderr)))
		}
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	return parseFFprobeOutput(output)
}

// parseFFprobeOutput parses ffprobe JSON to extract audio metadata
func parseFFprobeOutput(jsonData []byte) (*AudioMetadata, error) {
	var probe struct {
		Streams []struct {
			CodecType     string `json:"codec_type"`
			CodecName     string `json:"codec_name"`
			SampleRate    string `json:"sample_rate"`
			Channels      int    `json:"channels"`
			Duration      string `json:"duration"`
			BitRate       string `json:"bit_rate"`
			CodecLongName string `json:"codec_long_name"`
		} `json:"streams"`
	}

	if err := json.Unmarshal(jsonData, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	if len(probe.Streams) == 0 {
		return nil, fmt.Errorf("no audio streams found")
	}

	stream := probe.Streams[0]
	if stream.CodecType != "audio" {
		return nil, fmt.Errorf("stream is not audio type: %s", stream.CodecType)
	}

	sampleRate, err := strconv.Atoi(stream.SampleRate)
	if err != nil || sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %q", stream.SampleRate)
	}

	// Duration and bitrate are informational, containers piped over stdin
	// often leave them out
	duration, _ := strconv.ParseFloat(stream.Duration, 64)
	bitrate, _ := strconv.Atoi(stream.BitRate)

	if stream.Channels <= 0 || stream.Channels > 8 {
		return nil, fmt.Errorf("invalid channel count: %d", stream.Channels)
	}

	return &AudioMetadata{
		SampleRate: sampleRate,
		Channels:   stream.Channels,
		Codec:      stream.CodecName,
		Duration:   duration,
		Bitrate:    bitrate,
		Format:     stream.CodecLongName,
	}, nil
}

// decodeWithFFmpeg performs the actual audio decoding from bytes
func (d *FFmpegDecoder) decodeWithFFmpeg(ctx context.Context, data []byte, metadata *AudioMetadata, logger logging.Logger) (*AudioData, error) {
	args := d.buildFFmpegArgs(metadata)
	args = append([]string{"-i", "pipe:0"}, args...) // Input from stdin
	args = append(args, "pipe:1")                    // Output to stdout

	ctx, cancel := d.withTimeout(ctx)
	defer cancel()

	cmd := exec.CommandContext(ctx, d.config.FFmpegPath, args...)
	cmd.Stdin = bytes.NewReader(data)

	logger.Debug("Running ffmpeg command", logging.Fields{
		"args": strings.Join(args, " "),
	})

	output, err := cmd.Output()
	if err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			logger.Debug("Ffmpeg decode failed", logging.Fields{
				"stderr": string(exitError.Stderr),
			})
		}
		return nil, fmt.Errorf("ffmpeg decode failed: %w", err)
	}

	samples := bytesToFloat64(output)
	if len(samples) == 0 {
		return nil, fmt.Errorf("no audio samples decoded")
	}

	audio, err := NewAudioData(samples, metadata.SampleRate, metadata.Channels)
	if err != nil {
		return nil, err
	}
	audio.Metadata = &StreamMetadata{
		Format:           metadata.Format,
		Codec:            metadata.Codec,
		ContentType:      contentTypeFromCodec(metadata.Codec),
		SourceSampleRate: metadata.SampleRate,
		SourceChannels:   metadata.Channels,
		Bitrate:          metadata.Bitrate,
		Timestamp:        time.Now(),
	}

	logger.Debug("FFmpeg decode completed successfully", logging.Fields{
		"output_samples":  len(samples),
		"output_duration": audio.Duration.Seconds(),
	})

	return audio, nil
}

// buildFFmpegArgs keeps the source rate and channel layout; the loader owns
// downmixing and resampling so every tier is normalized the same way
func (d *FFmpegDecoder) buildFFmpegArgs(metadata *AudioMetadata) []string {
	args := []string{
		"-f", "f64le", // Output raw float64 little-endian
		"-ac", strconv.Itoa(metadata.Channels),
		"-ar", strconv.Itoa(metadata.SampleRate),
	}

	if d.config.MaxDuration > 0 {
		args = append(args, "-t", fmt.Sprintf("%.2f", d.config.MaxDuration.Seconds()))
	}

	// Suppress ffmpeg output
	args = append(args, "-v", "error")

	return args
}

func (d *FFmpegDecoder) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.config.Timeout > 0 {
		return context.WithTimeout(ctx, d.config.Timeout)
	}
	return context.WithCancel(ctx)
}

// bytesToFloat64 converts raw float64 bytes to []float64
func bytesToFloat64(data []byte) []float64 {
	// Trim to multiple of 8 bytes
	data = data[:len(data)-(len(data)%8)]
	if len(data) == 0 {
		return nil
	}

	samples := make([]float64, len(data)/8)
	for i := range samples {
		bits := binary.LittleEndian.Uint64(data[i*8 : i*8+8])
		samples[i] = math.Float64frombits(bits)
	}

	return samples
}

// checkFFmpegAvailability resolves both binaries without running them
func (d *FFmpegDecoder) checkFFmpegAvailability() error {
	if _, err := exec.LookPath(d.config.FFmpegPath); err != nil {
		return fmt.Errorf("%w: ffmpeg not found at %s: %v", ErrTierUnavailable, d.config.FFmpegPath, err)
	}
	if _, err := exec.LookPath(d.config.FFprobePath); err != nil {
		return fmt.Errorf("%w: ffprobe not found at %s: %v", ErrTierUnavailable, d.config.FFprobePath, err)
	}
	return nil
}
