package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/RyanBlaney/sonido-vox/classifier"
	"github.com/RyanBlaney/sonido-vox/features"
	"github.com/RyanBlaney/sonido-vox/logging"
	"github.com/RyanBlaney/sonido-vox/transcode"
)

// Messages returned for request problems the pipeline never sees
const (
	msgModelNotLoaded = "Model not loaded. Please train the model first."
	msgNoAudio        = "No audio file provided"
	msgTooLarge       = "Audio file is too large"
)

// defaultHint is assumed for uploads without an extension, browser
// recorders send webm
const defaultHint = "webm"

// PredictResponse is the /predict response body
type PredictResponse struct {
	Success               bool               `json:"success"`
	Prediction            int                `json:"prediction"`
	RiskScore             float64            `json:"risk_score"`
	ProbabilityHealthy    float64            `json:"probability_healthy"`
	ProbabilityParkinsons float64            `json:"probability_parkinsons"`
	Message               string             `json:"message"`
	DecoderTier           string             `json:"decoder_tier,omitempty"`
	Features              map[string]float64 `json:"features,omitempty"`
}

// ExtractResponse is the /extract response body
type ExtractResponse struct {
	Success         bool             `json:"success"`
	Features        *features.Vector `json:"features"`
	SchemaVersion   string           `json:"schema_version"`
	SampleRate      int              `json:"sample_rate"`
	DurationSeconds float64          `json:"duration_seconds"`
	VoicedFrames    int              `json:"voiced_frames"`
	DecoderTier     string           `json:"decoder_tier,omitempty"`
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
}

// HealthResponse is the /health response body
type HealthResponse struct {
	Status      string                `json:"status"`
	ModelLoaded bool                  `json:"model_loaded"`
	Model       *classifier.ModelInfo `json:"model,omitempty"`
	Error       string                `json:"error,omitempty"`
}

// classify maps a pipeline error to an HTTP status and an outcome label
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, classifier.ErrModelUnavailable):
		return http.StatusInternalServerError, "model_unavailable"
	case errors.Is(err, transcode.ErrDecode):
		return http.StatusUnprocessableEntity, "decode_error"
	case errors.Is(err, transcode.ErrTooShort):
		return http.StatusUnprocessableEntity, "too_short"
	case errors.Is(err, transcode.ErrSilentInput):
		return http.StatusUnprocessableEntity, "silent_input"
	case errors.Is(err, features.ErrFeatureCorrupt):
		return http.StatusUnprocessableEntity, "feature_corrupt"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "timeout"
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "canceled"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func errorJSON(c echo.Context, status int, kind string, msg string) error {
	return c.JSON(status, ErrorResponse{Success: false, Error: msg, Kind: kind})
}

// readUpload reads the "audio" multipart field. It returns the bytes and
// the extension of the uploaded file name, used as a decoding hint.
func (s *Server) readUpload(c echo.Context) ([]byte, string, error) {
	req := c.Request()
	if req.ContentLength > s.config.MaxUploadBytes {
		return nil, "", echo.NewHTTPError(http.StatusRequestEntityTooLarge, msgTooLarge)
	}
	req.Body = http.MaxBytesReader(c.Response(), req.Body, s.config.MaxUploadBytes)

	header, err := c.FormFile("audio")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", echo.NewHTTPError(http.StatusRequestEntityTooLarge, msgTooLarge)
		}
		return nil, "", echo.NewHTTPError(http.StatusBadRequest, msgNoAudio)
	}

	file, err := header.Open()
	if err != nil {
		return nil, "", fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}

	hint := strings.ToLower(strings.TrimPrefix(filepath.Ext(header.Filename), "."))
	if hint == "" {
		hint = defaultHint
	}
	return data, hint, nil
}

// requestContext applies the configured request deadline
func (s *Server) requestContext(c echo.Context) (context.Context, context.CancelFunc) {
	ctx := c.Request().Context()
	if s.config.RequestTimeout > 0 {
		return context.WithTimeout(ctx, s.config.RequestTimeout)
	}
	return context.WithCancel(ctx)
}

// uploadError turns a readUpload failure into a response
func uploadError(c echo.Context, err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return errorJSON(c, he.Code, "bad_request", fmt.Sprint(he.Message))
	}
	return errorJSON(c, http.StatusBadRequest, "bad_request", err.Error())
}

func (s *Server) handlePredict(c echo.Context) error {
	start := time.Now()
	logger := s.logger.WithContext(c.Request().Context()).WithFields(logging.Fields{
		"function": "handlePredict",
	})

	// Checked before reading the upload, a missing model is reported
	// identically on every request
	if !s.service.Health().ModelLoaded {
		s.metrics.RecordPrediction("model_unavailable", "", time.Since(start).Seconds())
		return errorJSON(c, http.StatusInternalServerError, "model_unavailable", msgModelNotLoaded)
	}

	data, hint, err := s.readUpload(c)
	if err != nil {
		s.metrics.RecordPrediction("bad_request", "", time.Since(start).Seconds())
		return uploadError(c, err)
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	result, err := s.service.Predict(ctx, data, hint)
	if err != nil {
		status, kind := classify(err)
		s.metrics.RecordPrediction(kind, "", time.Since(start).Seconds())
		logger.Warn("Prediction request failed", logging.Fields{
			"kind":   kind,
			"error":  err.Error(),
			"status": status,
		})
		return errorJSON(c, status, kind, err.Error())
	}

	pred := result.Prediction
	outcome := "low_risk"
	if pred.Label == 1 {
		outcome = "high_risk"
	}
	s.metrics.RecordPrediction(outcome, result.Tier, time.Since(start).Seconds())

	resp := PredictResponse{
		Success:               true,
		Prediction:            pred.Label,
		RiskScore:             pred.RiskScore,
		ProbabilityHealthy:    classifier.Round(pred.ProbabilityHealthy*100, 2),
		ProbabilityParkinsons: classifier.Round(pred.ProbabilityAtRisk*100, 2),
		Message:               pred.Message,
		DecoderTier:           result.Tier,
	}
	if c.QueryParam("features") == "true" {
		resp.Features = result.Analysis.Vector.Map()
	}

	logger.Info("Prediction served", logging.Fields{
		"label":       pred.Label,
		"risk_score":  pred.RiskScore,
		"tier":        result.Tier,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleExtract(c echo.Context) error {
	data, hint, err := s.readUpload(c)
	if err != nil {
		return uploadError(c, err)
	}

	ctx, cancel := s.requestContext(c)
	defer cancel()

	analysis, tier, err := s.service.Extract(ctx, data, hint)
	if err != nil {
		status, kind := classify(err)
		return errorJSON(c, status, kind, err.Error())
	}

	resp := ExtractResponse{
		Success:         true,
		Features:        analysis.Vector,
		SchemaVersion:   analysis.Vector.Schema().Version(),
		SampleRate:      analysis.SampleRate,
		DurationSeconds: analysis.Duration.Seconds(),
		DecoderTier:     tier,
	}
	if analysis.F0 != nil {
		resp.VoicedFrames = analysis.F0.NumVoiced()
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleHealth(c echo.Context) error {
	h := s.service.Health()
	return c.JSON(http.StatusOK, HealthResponse{
		Status:      "healthy",
		ModelLoaded: h.ModelLoaded,
		Model:       h.Model,
		Error:       h.Error,
	})
}
