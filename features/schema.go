package features

import (
	"fmt"
	"slices"
)

// Feature names shared by every schema version
const (
	Pitch   = "pitch"
	Jitter  = "jitter"
	Shimmer = "shimmer"
	HNR     = "hnr"

	SpectralCentroidMean  = "spectral_centroid_mean"
	SpectralCentroidStd   = "spectral_centroid_std"
	SpectralRolloffMean   = "spectral_rolloff_mean"
	SpectralRolloffStd    = "spectral_rolloff_std"
	SpectralBandwidthMean = "spectral_bandwidth_mean"
	SpectralBandwidthStd  = "spectral_bandwidth_std"
	ZeroCrossingRateMean  = "zero_crossing_rate_mean"
	ZeroCrossingRateStd   = "zero_crossing_rate_std"

	StatMean     = "mean"
	StatStd      = "std"
	StatVar      = "var"
	StatMedian   = "median"
	StatMin      = "min"
	StatMax      = "max"
	StatRange    = "range"
	StatSkewness = "skewness"
	StatKurtosis = "kurtosis"
)

// MFCCName returns the column name of the i-th MFCC mean, counting from 1
func MFCCName(i int) string {
	return fmt.Sprintf("mfcc_%d", i)
}

// Schema is an ordered, versioned list of feature names. The order is the
// column order the scaler and classifier were trained on. A Schema is
// immutable once built.
type Schema struct {
	version string
	names   []string
	index   map[string]int
}

// NewSchema builds a schema; names must be non-empty and unique
func NewSchema(version string, names ...string) (*Schema, error) {
	if version == "" {
		return nil, fmt.Errorf("schema version must not be empty")
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("schema %s has no features", version)
	}

	index := make(map[string]int, len(names))
	for i, name := range names {
		if name == "" {
			return nil, fmt.Errorf("schema %s: empty feature name at position %d", version, i)
		}
		if _, dup := index[name]; dup {
			return nil, fmt.Errorf("schema %s: duplicate feature %q", version, name)
		}
		index[name] = i
	}

	return &Schema{
		version: version,
		names:   slices.Clone(names),
		index:   index,
	}, nil
}

func mustSchema(version string, names ...string) *Schema {
	s, err := NewSchema(version, names...)
	if err != nil {
		panic(err)
	}
	return s
}

// SchemaV1 is the 34-column layout: four voice measures, 13 MFCC means,
// eight spectral summaries and nine waveform statistics
var SchemaV1 = mustSchema("v1",
	Pitch, Jitter, Shimmer, HNR,
	"mfcc_1", "mfcc_2", "mfcc_3", "mfcc_4", "mfcc_5", "mfcc_6", "mfcc_7",
	"mfcc_8", "mfcc_9", "mfcc_10", "mfcc_11", "mfcc_12", "mfcc_13",
	SpectralCentroidMean, SpectralCentroidStd,
	SpectralRolloffMean, SpectralRolloffStd,
	SpectralBandwidthMean, SpectralBandwidthStd,
	ZeroCrossingRateMean, ZeroCrossingRateStd,
	StatMean, StatStd, StatVar, StatMedian, StatMin, StatMax, StatRange, StatSkewness, StatKurtosis,
)

// Version returns the schema version tag
func (s *Schema) Version() string {
	return s.version
}

// Names returns a copy of the ordered feature names
func (s *Schema) Names() []string {
	return slices.Clone(s.names)
}

// Len returns the number of features
func (s *Schema) Len() int {
	return len(s.names)
}

// Index returns the column of name
func (s *Schema) Index(name string) (int, bool) {
	i, ok := s.index[name]
	return i, ok
}

// Check compares an externally supplied column list (e.g. the names stored
// with a trained scaler) against the schema. Any difference in membership
// or order is a *FeatureCorruptError.
func (s *Schema) Check(names []string) error {
	if slices.Equal(s.names, names) {
		return nil
	}

	err := &FeatureCorruptError{Schema: s.version}
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		seen[name] = true
		if _, ok := s.index[name]; !ok {
			err.Unexpected = append(err.Unexpected, name)
		}
	}
	for _, name := range s.names {
		if !seen[name] {
			err.Missing = append(err.Missing, name)
		}
	}
	if len(err.Missing) == 0 && len(err.Unexpected) == 0 {
		err.Reason = fmt.Sprintf("column order differs from schema %s", s.version)
		if len(names) != len(s.names) {
			err.Reason = fmt.Sprintf("expected %d columns, got %d", len(s.names), len(names))
		}
	}
	return err
}
