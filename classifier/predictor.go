package classifier

import (
	"context"

	"github.com/RyanBlaney/sonido-vox/features"
	"github.com/RyanBlaney/sonido-vox/logging"
)

// Health reports whether predictions can be served
type Health struct {
	ModelLoaded bool       `json:"model_loaded"`
	Model       *ModelInfo `json:"model,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// Predictor serves predictions from a model fixed at construction. When
// the model failed to load it stays usable and answers every call with a
// *ModelUnavailableError.
type Predictor struct {
	model   *Model
	loadErr error
	logger  logging.Logger
}

// NewPredictor wraps a loaded model. A nil model gives an unavailable
// predictor.
func NewPredictor(model *Model) *Predictor {
	return &Predictor{
		model: model,
		logger: logging.WithFields(logging.Fields{
			"component": "predictor",
		}),
	}
}

// UnavailablePredictor returns a predictor whose model failed to load
func UnavailablePredictor(cause error) *Predictor {
	p := NewPredictor(nil)
	p.loadErr = cause
	return p
}

// OpenPredictor loads the model artifacts. A load failure is logged and
// kept, not returned: the predictor reports it through Health and
// Predict.
func OpenPredictor(config *ModelConfig, schema *features.Schema) *Predictor {
	model, err := LoadModel(config, schema)
	if err != nil {
		p := UnavailablePredictor(err)
		p.logger.Error(err, "Model artifacts could not be loaded")
		return p
	}

	p := NewPredictor(model)
	info := model.Info()
	p.logger.Info("Model loaded", logging.Fields{
		"kind":            info.Kind,
		"schema_version":  info.SchemaVersion,
		"n_features":      info.NumFeatures,
		"scaler_path":     info.ScalerPath,
		"classifier_path": info.ClassifierPath,
	})
	return p
}

// Loaded reports whether a model is available
func (p *Predictor) Loaded() bool {
	return p.model != nil
}

// Model returns the loaded model, or nil
func (p *Predictor) Model() *Model {
	return p.model
}

// Health reports the model state without running a prediction
func (p *Predictor) Health() Health {
	if p.model == nil {
		h := Health{ModelLoaded: false}
		if p.loadErr != nil {
			h.Error = p.loadErr.Error()
		}
		return h
	}
	info := p.model.Info()
	return Health{ModelLoaded: true, Model: &info}
}

func (p *Predictor) unavailable() error {
	return &ModelUnavailableError{Cause: p.loadErr}
}

// Predict classifies one feature vector
func (p *Predictor) Predict(ctx context.Context, v *features.Vector) (*Prediction, error) {
	if p.model == nil {
		return nil, p.unavailable()
	}

	pred, err := p.model.Predict(v)
	if err != nil {
		p.logger.WithContext(ctx).Error(err, "Prediction failed")
		return nil, err
	}

	p.logger.WithContext(ctx).Debug("Prediction made", logging.Fields{
		"label":      pred.Label,
		"risk_score": pred.RiskScore,
	})
	return pred, nil
}
