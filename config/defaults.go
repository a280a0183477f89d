package config

import (
	"time"

	"github.com/spf13/viper"

	"github.com/RyanBlaney/sonido-vox/transcode"
)

// setDefaults registers a default for every key so environment variables
// can override keys that no config file mentions
func setDefaults(v *viper.Viper) {
	v.SetDefault("audio.target_sample_rate", 22050)
	v.SetDefault("audio.resample_quality", transcode.ResampleHigh)
	v.SetDefault("audio.max_duration", 10*time.Second)
	v.SetDefault("audio.min_duration", 300*time.Millisecond)
	v.SetDefault("audio.silence_threshold", 1e-4)
	v.SetDefault("audio.tiers", transcode.DefaultTiers)
	v.SetDefault("audio.ffmpeg_path", "ffmpeg")
	v.SetDefault("audio.ffprobe_path", "ffprobe")
	v.SetDefault("audio.decode_timeout", 30*time.Second)

	v.SetDefault("preprocess.target_sample_rate", 22050)
	v.SetDefault("preprocess.normalize", true)
	v.SetDefault("preprocess.remove_dc", false)
	v.SetDefault("preprocess.dc_cutoff", 20.0)
	v.SetDefault("preprocess.trim", true)
	v.SetDefault("preprocess.top_db", 20.0)
	v.SetDefault("preprocess.min_duration", 300*time.Millisecond)

	v.SetDefault("features.parallel", true)
	v.SetDefault("features.pitch.frame_size", 2048)
	v.SetDefault("features.pitch.hop_size", 512)
	v.SetDefault("features.pitch.min_freq", 50.0)
	v.SetDefault("features.pitch.max_freq", 400.0)
	v.SetDefault("features.pitch.voicing_threshold", 0.3)
	v.SetDefault("features.pitch.octave_tolerance", 0.9)
	v.SetDefault("features.voice.peak_min_distance", 0.005)
	v.SetDefault("features.voice.peak_min_height", 0.1)
	v.SetDefault("features.voice.hnr_frame_size", 1024)
	v.SetDefault("features.voice.hnr_hop_size", 256)
	v.SetDefault("features.spectral.frame_size", 2048)
	v.SetDefault("features.spectral.hop_size", 512)
	v.SetDefault("features.spectral.num_mfcc", 13)
	v.SetDefault("features.spectral.num_mel_filters", 128)
	v.SetDefault("features.spectral.rolloff_percent", 0.85)
	v.SetDefault("features.spectral.workers", 1)

	v.SetDefault("model.dir", "models")
	v.SetDefault("model.scaler_file", "scaler.json")
	v.SetDefault("model.classifier_file", "classifier.json")

	v.SetDefault("server.listen", ":5000")
	v.SetDefault("server.request_timeout", 60*time.Second)
	v.SetDefault("server.max_upload_bytes", 16<<20)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}
