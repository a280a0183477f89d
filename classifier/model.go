package classifier

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/RyanBlaney/sonido-vox/features"
)

// Classifier kinds accepted in classifier artifacts
const (
	KindRandomForest       = "random_forest"
	KindLogisticRegression = "logistic_regression"
)

// Classifier maps one scaled row to per-class probabilities. Implementations
// are immutable after construction.
type Classifier interface {
	Kind() string
	NumFeatures() int
	PredictProba(x []float64) []float64
}

// classifierArtifact is the on-disk layout of classifier.json
type classifierArtifact struct {
	Type          string    `yaml:"type"`
	SchemaVersion string    `yaml:"schema_version"`
	NumFeatures   int       `yaml:"n_features"`
	Classes       []int     `yaml:"classes"`
	Trees         []Tree    `yaml:"trees"`
	Coef          []float64 `yaml:"coef"`
	Intercept     float64   `yaml:"intercept"`
}

// decodeStrict decodes a JSON or YAML document, rejecting unknown keys
func decodeStrict(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return err
	}
	return nil
}

// ParseScaler decodes a scaler artifact
func ParseScaler(data []byte) (*StandardScaler, error) {
	var s StandardScaler
	if err := decodeStrict(data, &s); err != nil {
		return nil, fmt.Errorf("decode scaler: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// ParseClassifier decodes a classifier artifact and returns the model with
// the schema version it declares
func ParseClassifier(data []byte) (Classifier, string, error) {
	var a classifierArtifact
	if err := decodeStrict(data, &a); err != nil {
		return nil, "", fmt.Errorf("decode classifier: %w", err)
	}

	if len(a.Classes) > 0 && (len(a.Classes) != 2 || a.Classes[0] != 0 || a.Classes[1] != 1) {
		return nil, "", fmt.Errorf("classifier classes must be [0 1], got %v", a.Classes)
	}

	switch a.Type {
	case KindRandomForest:
		forest, err := NewRandomForest(a.Trees, a.NumFeatures, 2)
		if err != nil {
			return nil, "", err
		}
		return forest, a.SchemaVersion, nil

	case KindLogisticRegression:
		lr, err := NewLogisticRegression(a.Coef, a.Intercept)
		if err != nil {
			return nil, "", err
		}
		if a.NumFeatures != 0 && a.NumFeatures != len(a.Coef) {
			return nil, "", fmt.Errorf("n_features %d does not match %d coefficients", a.NumFeatures, len(a.Coef))
		}
		return lr, a.SchemaVersion, nil

	default:
		return nil, "", fmt.Errorf("unknown classifier type %q", a.Type)
	}
}

// ModelInfo describes a loaded model
type ModelInfo struct {
	Kind           string    `json:"kind"`
	SchemaVersion  string    `json:"schema_version"`
	NumFeatures    int       `json:"n_features"`
	ScalerPath     string    `json:"scaler_path,omitempty"`
	ClassifierPath string    `json:"classifier_path,omitempty"`
	LoadedAt       time.Time `json:"loaded_at"`
}

// Model is the scaler and classifier pair bound to a feature schema. It is
// built once and never modified, so it is shared freely between requests.
type Model struct {
	schema     *features.Schema
	scaler     *StandardScaler
	classifier Classifier
	info       ModelInfo
}

// NewModel checks that scaler, classifier and schema agree on the columns
func NewModel(schema *features.Schema, scaler *StandardScaler, clf Classifier) (*Model, error) {
	if schema == nil || scaler == nil || clf == nil {
		return nil, fmt.Errorf("schema, scaler and classifier are required")
	}
	if err := scaler.Validate(); err != nil {
		return nil, err
	}

	if scaler.NumFeatures() != schema.Len() || clf.NumFeatures() != schema.Len() {
		return nil, &features.FeatureCorruptError{
			Schema: schema.Version(),
			Reason: fmt.Sprintf("model expects %d features (classifier %d), schema has %d",
				scaler.NumFeatures(), clf.NumFeatures(), schema.Len()),
		}
	}
	if len(scaler.FeatureNames) > 0 {
		if err := schema.Check(scaler.FeatureNames); err != nil {
			return nil, err
		}
	}
	if scaler.SchemaVersion != "" && scaler.SchemaVersion != schema.Version() {
		return nil, &features.FeatureCorruptError{
			Schema: schema.Version(),
			Reason: fmt.Sprintf("scaler was fitted on schema %s", scaler.SchemaVersion),
		}
	}

	return &Model{
		schema:     schema,
		scaler:     scaler,
		classifier: clf,
		info: ModelInfo{
			Kind:          clf.Kind(),
			SchemaVersion: schema.Version(),
			NumFeatures:   schema.Len(),
			LoadedAt:      time.Now(),
		},
	}, nil
}

// Info returns a description of the model
func (m *Model) Info() ModelInfo {
	return m.info
}

// Schema returns the schema the model was trained on
func (m *Model) Schema() *features.Schema {
	return m.schema
}

// Predict scales v and classifies it
func (m *Model) Predict(v *features.Vector) (*Prediction, error) {
	if v == nil {
		return nil, fmt.Errorf("feature vector cannot be nil")
	}
	if s := v.Schema(); s != m.schema && (s.Version() != m.schema.Version() || s.Len() != m.schema.Len()) {
		return nil, &features.FeatureCorruptError{
			Schema: s.Version(),
			Reason: fmt.Sprintf("model expects schema %s with %d features, got %d", m.schema.Version(), m.schema.Len(), v.Len()),
		}
	}

	scaled, err := m.scaler.Transform(v.Values())
	if err != nil {
		return nil, err
	}

	proba := m.classifier.PredictProba(scaled)
	for _, p := range proba {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return nil, fmt.Errorf("classifier produced non-finite probabilities %v", proba)
		}
	}
	return newPrediction(proba), nil
}

// Prediction is the classifier output for one recording
type Prediction struct {
	Label              int     `json:"label"`
	ProbabilityHealthy float64 `json:"probability_healthy"`
	ProbabilityAtRisk  float64 `json:"probability_at_risk"`
	RiskScore          float64 `json:"risk_score"`
	Message            string  `json:"message"`
}

// Messages attached to a prediction
const (
	MessageHighRisk = "High risk detected"
	MessageLowRisk  = "Low risk detected"
)

func newPrediction(proba []float64) *Prediction {
	// First index wins ties
	label := 0
	for k := 1; k < len(proba); k++ {
		if proba[k] > proba[label] {
			label = k
		}
	}

	p := &Prediction{
		Label:              label,
		ProbabilityHealthy: proba[0],
		ProbabilityAtRisk:  proba[1],
		RiskScore:          Round(proba[1]*100, 2),
		Message:            MessageLowRisk,
	}
	if label == 1 {
		p.Message = MessageHighRisk
	}
	return p
}

// Round rounds x to the given number of decimals
func Round(x float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(x*pow) / pow
}

// ModelConfig locates the model artifacts
type ModelConfig struct {
	Dir            string `json:"dir"`
	ScalerFile     string `json:"scaler_file"`
	ClassifierFile string `json:"classifier_file"`
}

// DefaultModelConfig returns the default artifact locations
func DefaultModelConfig() *ModelConfig {
	return &ModelConfig{
		Dir:            "models",
		ScalerFile:     "scaler.json",
		ClassifierFile: "classifier.json",
	}
}

// Paths returns the resolved scaler and classifier paths. Environment
// variables and a leading ~/ are expanded.
func (c *ModelConfig) Paths() (scaler, classifier string, err error) {
	resolve := func(name string) (string, error) {
		p := os.ExpandEnv(name)
		if !filepath.IsAbs(p) && !strings.HasPrefix(p, "~/") {
			p = filepath.Join(os.ExpandEnv(c.Dir), p)
		}
		if strings.HasPrefix(p, "~/") {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("expand %s: %w", p, err)
			}
			p = filepath.Join(home, p[2:])
		}
		return p, nil
	}

	if scaler, err = resolve(c.ScalerFile); err != nil {
		return "", "", err
	}
	if classifier, err = resolve(c.ClassifierFile); err != nil {
		return "", "", err
	}
	return scaler, classifier, nil
}

// LoadModel reads and validates both artifacts
func LoadModel(config *ModelConfig, schema *features.Schema) (*Model, error) {
	if config == nil {
		config = DefaultModelConfig()
	}
	if schema == nil {
		schema = features.SchemaV1
	}
	scalerPath, classifierPath, err := config.Paths()
	if err != nil {
		return nil, err
	}

	scalerData, err := os.ReadFile(scalerPath)
	if err != nil {
		return nil, fmt.Errorf("read scaler: %w", err)
	}
	scaler, err := ParseScaler(scalerData)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", scalerPath, err)
	}

	classifierData, err := os.ReadFile(classifierPath)
	if err != nil {
		return nil, fmt.Errorf("read classifier: %w", err)
	}
	clf, version, err := ParseClassifier(classifierData)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", classifierPath, err)
	}
	if version != "" && version != schema.Version() {
		return nil, &features.FeatureCorruptError{
			Schema: schema.Version(),
			Reason: fmt.Sprintf("classifier was trained on schema %s", version),
		}
	}

	model, err := NewModel(schema, scaler, clf)
	if err != nil {
		return nil, err
	}
	model.info.ScalerPath = scalerPath
	model.info.ClassifierPath = classifierPath
	return model, nil
}
