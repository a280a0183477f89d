package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", DebugLevel, false},
		{"INFO", InfoLevel, false},
		{"", InfoLevel, false},
		{"warning", WarnLevel, false},
		{"error", ErrorLevel, false},
		{"verbose", InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultLoggerTextRoutesByLevel(t *testing.T) {
	var out, errOut bytes.Buffer
	logger := NewDefaultLoggerWithWriters(&out, &errOut, FormatText)
	logger.SetLevel(DebugLevel)

	logger.Debug("frame analysed", Fields{"frame": 3})
	logger.Error(errors.New("boom"), "decode failed", Fields{"tier": "riff"})

	assert.Contains(t, out.String(), "[DEBUG] frame analysed frame=3")
	assert.Contains(t, errOut.String(), "[ERROR] decode failed: boom tier=riff")
	assert.NotContains(t, out.String(), "decode failed")
}

func TestDefaultLoggerLevelFilter(t *testing.T) {
	var out, errOut bytes.Buffer
	logger := NewDefaultLoggerWithWriters(&out, &errOut, FormatText)

	logger.Debug("hidden")
	logger.Info("shown")

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "shown")
}

func TestDefaultLoggerJSON(t *testing.T) {
	var out, errOut bytes.Buffer
	logger := NewDefaultLoggerWithWriters(&out, &errOut, FormatJSON)

	child := logger.WithFields(Fields{"component": "loader"})
	child.Info("loaded", Fields{"samples": 22050})

	line := strings.TrimSpace(out.String())
	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &record))

	assert.Equal(t, "info", record["level"])
	assert.Equal(t, "loaded", record["msg"])
	assert.Equal(t, "loader", record["component"])
	assert.EqualValues(t, 22050, record["samples"])
}

func TestWithContextPicksUpFields(t *testing.T) {
	var out, errOut bytes.Buffer
	logger := NewDefaultLoggerWithWriters(&out, &errOut, FormatText)

	ctx := ContextWithFields(context.Background(), Fields{"request_id": "abc"})
	ctx = ContextWithFields(ctx, Fields{"tier": "wav"})
	logger.WithContext(ctx).Info("ok")

	assert.Contains(t, out.String(), "request_id=abc")
	assert.Contains(t, out.String(), "tier=wav")
}

func TestSetGlobalLoggerNil(t *testing.T) {
	prev := GetGlobalLogger()
	t.Cleanup(func() { SetGlobalLogger(prev) })

	SetGlobalLogger(nil)
	_, ok := GetGlobalLogger().(*NoOpLogger)
	assert.True(t, ok)
}
