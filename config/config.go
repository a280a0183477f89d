// Package config loads sonido-vox settings from defaults, an optional YAML
// file and SONIDO_VOX_* environment variables, and turns them into the
// component configurations
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/RyanBlaney/sonido-vox/algorithms/spectral"
	"github.com/RyanBlaney/sonido-vox/algorithms/speech"
	"github.com/RyanBlaney/sonido-vox/classifier"
	"github.com/RyanBlaney/sonido-vox/features"
	"github.com/RyanBlaney/sonido-vox/logging"
	"github.com/RyanBlaney/sonido-vox/server"
	"github.com/RyanBlaney/sonido-vox/transcode"
)

// EnvPrefix prefixes every environment override, e.g.
// SONIDO_VOX_SERVER_LISTEN for server.listen
const EnvPrefix = "SONIDO_VOX"

// AudioSettings configures decoding
type AudioSettings struct {
	TargetSampleRate int           `mapstructure:"target_sample_rate"`
	ResampleQuality  string        `mapstructure:"resample_quality"`
	MaxDuration      time.Duration `mapstructure:"max_duration"`
	MinDuration      time.Duration `mapstructure:"min_duration"`
	SilenceThreshold float64       `mapstructure:"silence_threshold"`
	Tiers            []string      `mapstructure:"tiers"`
	FFmpegPath       string        `mapstructure:"ffmpeg_path"`
	FFprobePath      string        `mapstructure:"ffprobe_path"`
	DecodeTimeout    time.Duration `mapstructure:"decode_timeout"`
}

// PreprocessSettings configures waveform conditioning
type PreprocessSettings struct {
	TargetSampleRate int           `mapstructure:"target_sample_rate"`
	Normalize        bool          `mapstructure:"normalize"`
	RemoveDC         bool          `mapstructure:"remove_dc"`
	DCCutoff         float64       `mapstructure:"dc_cutoff"`
	Trim             bool          `mapstructure:"trim"`
	TopDB            float64       `mapstructure:"top_db"`
	MinDuration      time.Duration `mapstructure:"min_duration"`
}

// PitchSettings configures the pitch tracker
type PitchSettings struct {
	FrameSize        int     `mapstructure:"frame_size"`
	HopSize          int     `mapstructure:"hop_size"`
	MinFreq          float64 `mapstructure:"min_freq"`
	MaxFreq          float64 `mapstructure:"max_freq"`
	VoicingThreshold float64 `mapstructure:"voicing_threshold"`
	OctaveTolerance  float64 `mapstructure:"octave_tolerance"`
}

// VoiceSettings configures shimmer peak picking and HNR framing
type VoiceSettings struct {
	PeakMinDistance float64 `mapstructure:"peak_min_distance"`
	PeakMinHeight   float64 `mapstructure:"peak_min_height"`
	HNRFrameSize    int     `mapstructure:"hnr_frame_size"`
	HNRHopSize      int     `mapstructure:"hnr_hop_size"`
}

// SpectralSettings configures the MFCC and spectral bank
type SpectralSettings struct {
	FrameSize      int     `mapstructure:"frame_size"`
	HopSize        int     `mapstructure:"hop_size"`
	NumMFCC        int     `mapstructure:"num_mfcc"`
	NumMelFilters  int     `mapstructure:"num_mel_filters"`
	RolloffPercent float64 `mapstructure:"rolloff_percent"`
	Workers        int     `mapstructure:"workers"`
}

// FeatureSettings configures extraction
type FeatureSettings struct {
	Parallel bool             `mapstructure:"parallel"`
	Pitch    PitchSettings    `mapstructure:"pitch"`
	Voice    VoiceSettings    `mapstructure:"voice"`
	Spectral SpectralSettings `mapstructure:"spectral"`
}

// ModelSettings locates the model artifacts
type ModelSettings struct {
	Dir            string `mapstructure:"dir"`
	ScalerFile     string `mapstructure:"scaler_file"`
	ClassifierFile string `mapstructure:"classifier_file"`
}

// ServerSettings configures the HTTP API
type ServerSettings struct {
	Listen         string        `mapstructure:"listen"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
}

// LogSettings configures the global logger
type LogSettings struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Settings is the complete configuration
type Settings struct {
	Audio      AudioSettings      `mapstructure:"audio"`
	Preprocess PreprocessSettings `mapstructure:"preprocess"`
	Features   FeatureSettings    `mapstructure:"features"`
	Model      ModelSettings      `mapstructure:"model"`
	Server     ServerSettings     `mapstructure:"server"`
	Log        LogSettings        `mapstructure:"log"`

	// File the settings were read from, empty when only defaults and
	// environment were used
	ConfigFile string `mapstructure:"-"`
}

// configPaths returns the directories searched for config.yaml
func configPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, home+"/.sonido-vox")
	}
	return append(paths, "/etc/sonido-vox")
}

// Load reads the settings. An explicit configFile must exist; otherwise
// config.yaml is looked up in the search paths and is optional.
func Load(configFile string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		for _, path := range configPaths() {
			v.AddConfigPath(path)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	settings.ConfigFile = v.ConfigFileUsed()

	// AutomaticEnv does not split list values
	if env := os.Getenv(EnvPrefix + "_AUDIO_TIERS"); env != "" {
		settings.Audio.Tiers = strings.FieldsFunc(env, func(r rune) bool { return r == ',' || r == ' ' })
	}

	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return settings, nil
}

// Validate checks the settings by building every component configuration
func (s *Settings) Validate() error {
	if err := s.LoaderConfig().Validate(); err != nil {
		return fmt.Errorf("audio: %w", err)
	}
	if err := s.PreprocessConfig().Validate(); err != nil {
		return fmt.Errorf("preprocess: %w", err)
	}
	if err := s.ExtractorConfig().Validate(); err != nil {
		return fmt.Errorf("features: %w", err)
	}
	if err := s.ServerConfig().Validate(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if _, err := logging.ParseLevel(s.Log.Level); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	switch logging.Format(s.Log.Format) {
	case logging.FormatText, logging.FormatJSON:
	default:
		return fmt.Errorf("log: unknown format %q", s.Log.Format)
	}
	return nil
}

// LoaderConfig returns the audio loader configuration
func (s *Settings) LoaderConfig() *transcode.LoaderConfig {
	cfg := transcode.DefaultLoaderConfig()
	cfg.TargetSampleRate = s.Audio.TargetSampleRate
	cfg.ResampleQuality = s.Audio.ResampleQuality
	cfg.MaxDuration = s.Audio.MaxDuration
	cfg.MinDuration = s.Audio.MinDuration
	cfg.SilenceThreshold = s.Audio.SilenceThreshold
	cfg.Tiers = append([]string(nil), s.Audio.Tiers...)
	cfg.Decoder.FFmpegPath = s.Audio.FFmpegPath
	cfg.Decoder.FFprobePath = s.Audio.FFprobePath
	cfg.Decoder.Timeout = s.Audio.DecodeTimeout
	return cfg
}

// PreprocessConfig returns the preprocessing configuration
func (s *Settings) PreprocessConfig() *features.PreprocessConfig {
	cfg := features.DefaultPreprocessConfig()
	cfg.TargetSampleRate = s.Preprocess.TargetSampleRate
	cfg.ResampleQuality = s.Audio.ResampleQuality
	cfg.Normalize = s.Preprocess.Normalize
	cfg.RemoveDC = s.Preprocess.RemoveDC
	cfg.DCCutoff = s.Preprocess.DCCutoff
	cfg.Trim = s.Preprocess.Trim
	cfg.TopDB = s.Preprocess.TopDB
	cfg.MinDuration = s.Preprocess.MinDuration
	cfg.SilenceThreshold = s.Audio.SilenceThreshold
	return cfg
}

// ExtractorConfig returns the feature extractor configuration
func (s *Settings) ExtractorConfig() *features.ExtractorConfig {
	cfg := features.DefaultExtractorConfig()
	cfg.Parallel = s.Features.Parallel
	cfg.MinDuration = s.Preprocess.MinDuration
	cfg.SilenceThreshold = s.Audio.SilenceThreshold

	p := s.Features.Pitch
	cfg.Pitch = features.PitchConfig{
		FrameSize:        p.FrameSize,
		HopSize:          p.HopSize,
		MinFreq:          p.MinFreq,
		MaxFreq:          p.MaxFreq,
		VoicingThreshold: p.VoicingThreshold,
		OctaveTolerance:  p.OctaveTolerance,
	}

	vq := speech.DefaultVoiceQualityParams()
	vq.PeakMinDistance = s.Features.Voice.PeakMinDistance
	vq.PeakMinHeight = s.Features.Voice.PeakMinHeight
	vq.HNRFrameSize = s.Features.Voice.HNRFrameSize
	vq.HNRHopSize = s.Features.Voice.HNRHopSize
	cfg.VoiceQuality = vq

	bank := spectral.DefaultBankConfig()
	bank.FrameSize = s.Features.Spectral.FrameSize
	bank.HopSize = s.Features.Spectral.HopSize
	bank.NumMFCC = s.Features.Spectral.NumMFCC
	bank.NumMelFilters = s.Features.Spectral.NumMelFilters
	bank.RolloffPercent = s.Features.Spectral.RolloffPercent
	bank.Workers = s.Features.Spectral.Workers
	cfg.Spectral = bank

	return cfg
}

// ModelConfig returns the model artifact locations
func (s *Settings) ModelConfig() *classifier.ModelConfig {
	return &classifier.ModelConfig{
		Dir:            s.Model.Dir,
		ScalerFile:     s.Model.ScalerFile,
		ClassifierFile: s.Model.ClassifierFile,
	}
}

// ServerConfig returns the HTTP server configuration
func (s *Settings) ServerConfig() *server.Config {
	cfg := server.DefaultConfig()
	cfg.Listen = s.Server.Listen
	cfg.RequestTimeout = s.Server.RequestTimeout
	cfg.MaxUploadBytes = s.Server.MaxUploadBytes
	return cfg
}

// Logger builds the logger described by the log section
func (s *Settings) Logger() (logging.Logger, error) {
	level, err := logging.ParseLevel(s.Log.Level)
	if err != nil {
		return nil, err
	}
	logger := logging.NewDefaultLoggerWithWriters(os.Stdout, os.Stderr, logging.Format(s.Log.Format))
	logger.SetLevel(level)
	return logger, nil
}
