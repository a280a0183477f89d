package classifier

import (
	"context"
	"fmt"

	"github.com/RyanBlaney/sonido-vox/features"
	"github.com/RyanBlaney/sonido-vox/logging"
)

// Result is the outcome of one recording, from decode to prediction
type Result struct {
	Prediction *Prediction        `json:"prediction"`
	Analysis   *features.Analysis `json:"analysis"`
	Tier       string             `json:"decoder_tier"`
}

// Service runs the feature pipeline and the predictor for uploaded
// recordings. Each call is handled on the calling goroutine.
type Service struct {
	pipeline  *features.Pipeline
	predictor *Predictor
	logger    logging.Logger
}

// NewService creates the prediction service
func NewService(pipeline *features.Pipeline, predictor *Predictor) (*Service, error) {
	if pipeline == nil || predictor == nil {
		return nil, fmt.Errorf("pipeline and predictor are required")
	}
	if m := predictor.Model(); m != nil && m.Schema() != pipeline.Extractor().Schema() {
		if err := m.Schema().Check(pipeline.Extractor().Schema().Names()); err != nil {
			return nil, fmt.Errorf("extractor and model disagree on features: %w", err)
		}
	}

	return &Service{
		pipeline:  pipeline,
		predictor: predictor,
		logger: logging.WithFields(logging.Fields{
			"component": "prediction_service",
		}),
	}, nil
}

// Health reports the predictor state
func (s *Service) Health() Health {
	return s.predictor.Health()
}

// Extract decodes data and computes its features without classifying
func (s *Service) Extract(ctx context.Context, data []byte, hint string) (*features.Analysis, string, error) {
	analysis, audio, err := s.pipeline.Run(ctx, data, hint)
	tier := ""
	if audio != nil {
		tier = audio.Tier
	}
	return analysis, tier, err
}

// Predict decodes data, extracts features and classifies them. Without a
// model it fails before decoding.
func (s *Service) Predict(ctx context.Context, data []byte, hint string) (*Result, error) {
	if !s.predictor.Loaded() {
		return nil, s.predictor.unavailable()
	}

	analysis, tier, err := s.Extract(ctx, data, hint)
	if err != nil {
		s.logger.WithContext(ctx).Warn("Feature extraction failed", logging.Fields{
			"error": err.Error(),
			"tier":  tier,
		})
		return nil, err
	}

	pred, err := s.predictor.Predict(ctx, analysis.Vector)
	if err != nil {
		return nil, err
	}

	return &Result{Prediction: pred, Analysis: analysis, Tier: tier}, nil
}
