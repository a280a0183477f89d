package classifier

import (
	"fmt"
	"math"
	"slices"
)

// StandardScaler centres each column on its training mean and divides by
// its training standard deviation
type StandardScaler struct {
	Mean  []float64 `yaml:"mean"`
	Scale []float64 `yaml:"scale"`

	// Column names the scaler was fitted on, in order. Optional, but when
	// present they must equal the extraction schema.
	FeatureNames  []string `yaml:"feature_names"`
	SchemaVersion string   `yaml:"schema_version"`
}

// NumFeatures returns the fitted column count
func (s *StandardScaler) NumFeatures() int {
	return len(s.Mean)
}

// Validate checks the fitted parameters
func (s *StandardScaler) Validate() error {
	if len(s.Mean) == 0 {
		return fmt.Errorf("scaler has no columns")
	}
	if len(s.Scale) != len(s.Mean) {
		return fmt.Errorf("scaler has %d means but %d scales", len(s.Mean), len(s.Scale))
	}
	if len(s.FeatureNames) > 0 && len(s.FeatureNames) != len(s.Mean) {
		return fmt.Errorf("scaler has %d columns but %d feature names", len(s.Mean), len(s.FeatureNames))
	}
	for i := range s.Mean {
		if math.IsNaN(s.Mean[i]) || math.IsInf(s.Mean[i], 0) ||
			math.IsNaN(s.Scale[i]) || math.IsInf(s.Scale[i], 0) || s.Scale[i] < 0 {
			return fmt.Errorf("scaler column %d has invalid parameters (mean %g, scale %g)", i, s.Mean[i], s.Scale[i])
		}
	}
	return nil
}

// Transform returns the scaled copy of row. A zero scale (a constant
// training column) divides by one.
func (s *StandardScaler) Transform(row []float64) ([]float64, error) {
	if len(row) != len(s.Mean) {
		return nil, fmt.Errorf("scaler expects %d features, got %d", len(s.Mean), len(row))
	}
	out := slices.Clone(row)
	for i := range out {
		scale := s.Scale[i]
		if scale == 0 {
			scale = 1
		}
		out[i] = (out[i] - s.Mean[i]) / scale
	}
	return out, nil
}
