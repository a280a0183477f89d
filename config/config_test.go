package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RyanBlaney/sonido-vox/algorithms/windowing"
	"github.com/RyanBlaney/sonido-vox/features"
	"github.com/RyanBlaney/sonido-vox/transcode"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// chdirTemp keeps a config.yaml in the working directory from leaking in
func chdirTemp(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	s, err := Load("")
	require.NoError(t, err)

	assert.Empty(t, s.ConfigFile)
	assert.Equal(t, ":5000", s.Server.Listen)
	assert.Equal(t, int64(16<<20), s.Server.MaxUploadBytes)
	assert.Equal(t, "info", s.Log.Level)

	loader := s.LoaderConfig()
	assert.Equal(t, 22050, loader.TargetSampleRate)
	assert.Equal(t, 10*time.Second, loader.MaxDuration)
	assert.Equal(t, transcode.DefaultTiers, loader.Tiers)
	assert.Equal(t, "ffmpeg", loader.Decoder.FFmpegPath)

	ext := s.ExtractorConfig()
	def := features.DefaultExtractorConfig()
	assert.Equal(t, def.Pitch, ext.Pitch)
	assert.Equal(t, def.VoiceQuality, ext.VoiceQuality)
	assert.Equal(t, 13, ext.Spectral.NumMFCC)
	assert.Equal(t, windowing.Hann, ext.Spectral.Window)
	assert.Same(t, features.SchemaV1, ext.Schema)
	assert.Equal(t, 1e-4, ext.SilenceThreshold)

	pre := s.PreprocessConfig()
	assert.True(t, pre.Normalize)
	assert.True(t, pre.Trim)
	assert.Equal(t, 20.0, pre.TopDB)
	assert.Equal(t, loader.SilenceThreshold, pre.SilenceThreshold)

	model := s.ModelConfig()
	assert.Equal(t, "models", model.Dir)
	assert.Equal(t, "scaler.json", model.ScalerFile)
}

func TestLoadFile(t *testing.T) {
	chdirTemp(t)

	path := writeConfig(t, `
server:
  listen: "127.0.0.1:8080"
  request_timeout: 5s
model:
  dir: /srv/models
features:
  parallel: false
  pitch:
    min_freq: 75
    max_freq: 300
preprocess:
  remove_dc: true
audio:
  silence_threshold: 0.001
log:
  level: debug
  format: json
`)

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, path, s.ConfigFile)
	assert.Equal(t, "127.0.0.1:8080", s.Server.Listen)
	assert.Equal(t, 5*time.Second, s.Server.RequestTimeout)
	assert.Equal(t, "/srv/models", s.ModelConfig().Dir)
	assert.False(t, s.ExtractorConfig().Parallel)
	assert.Equal(t, 75.0, s.ExtractorConfig().Pitch.MinFreq)
	assert.Equal(t, 300.0, s.ExtractorConfig().Pitch.MaxFreq)
	assert.True(t, s.PreprocessConfig().RemoveDC)
	assert.Equal(t, 0.001, s.LoaderConfig().SilenceThreshold)
	assert.Equal(t, 0.001, s.PreprocessConfig().SilenceThreshold)
	assert.Equal(t, 0.001, s.ExtractorConfig().SilenceThreshold)

	// untouched keys keep their defaults
	assert.Equal(t, 2048, s.ExtractorConfig().Pitch.FrameSize)
	assert.Equal(t, int64(16<<20), s.Server.MaxUploadBytes)

	logger, err := s.Logger()
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestLoadSearchPath(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", t.TempDir())
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server:\n  listen: \":9000\"\n"), 0o644))

	s, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":9000", s.Server.Listen)
	assert.NotEmpty(t, s.ConfigFile)
}

func TestLoadEnvironment(t *testing.T) {
	chdirTemp(t)

	path := writeConfig(t, "server:\n  listen: \":8080\"\n")
	t.Setenv("SONIDO_VOX_SERVER_LISTEN", ":7000")
	t.Setenv("SONIDO_VOX_MODEL_DIR", "/opt/models")
	t.Setenv("SONIDO_VOX_FEATURES_PITCH_MAX_FREQ", "350")
	t.Setenv("SONIDO_VOX_AUDIO_TIERS", "soundfile,riff")

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7000", s.Server.Listen)
	assert.Equal(t, "/opt/models", s.Model.Dir)
	assert.Equal(t, 350.0, s.Features.Pitch.MaxFreq)
	assert.Equal(t, []string{"soundfile", "riff"}, s.LoaderConfig().Tiers)
}

func TestLoadErrors(t *testing.T) {
	chdirTemp(t)

	tests := []struct {
		name string
		body string
	}{
		{"pitch range", "features:\n  pitch:\n    min_freq: 500\n    max_freq: 100\n"},
		{"log level", "log:\n  level: loud\n"},
		{"log format", "log:\n  format: xml\n"},
		{"upload limit", "server:\n  max_upload_bytes: 0\n"},
		{"hop size", "features:\n  spectral:\n    hop_size: 0\n"},
		{"unknown tier", "audio:\n  tiers: [gstreamer]\n"},
		{"negative top db", "preprocess:\n  top_db: -5\n"},
		{"silence threshold", "audio:\n  silence_threshold: 1.5\n"},
		{"malformed yaml", "server: [listen\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}

	t.Run("missing explicit file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})
}
