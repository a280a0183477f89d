package stats

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/sonido-vox/algorithms/common"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// MomentResult holds the distribution summary of a sample series
type MomentResult struct {
	Mean     float64 `json:"mean"`     // First raw moment (μ₁)
	StdDev   float64 `json:"std"`      // Population standard deviation (σ)
	Variance float64 `json:"var"`      // Population variance (σ²)
	Median   float64 `json:"median"`   // Middle value
	Min      float64 `json:"min"`      // Smallest sample
	Max      float64 `json:"max"`      // Largest sample
	Range    float64 `json:"range"`    // Max - Min
	Skewness float64 `json:"skewness"` // Biased third standardized moment
	Kurtosis float64 `json:"kurtosis"` // Biased fourth standardized moment minus 3 (excess)

	NumSamples int `json:"num_samples"`
}

// Moments computes population-form descriptive statistics.
//
// Skewness and kurtosis use the plain moment ratios m3/m2^1.5 and
// m4/m2² - 3 without small-sample correction. gonum's stat.Skew and
// stat.ExKurtosis apply that correction, so they are not used here.
type Moments struct{}

// NewMoments creates a moment calculator
func NewMoments() *Moments {
	return &Moments{}
}

// Analyze computes every statistic in MomentResult. A constant series has
// zero skewness and kurtosis.
func (m *Moments) Analyze(data []float64) (*MomentResult, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty data")
	}

	mean := stat.Mean(data, nil)
	m2, m3, m4 := m.centralMoments(data, mean)

	result := &MomentResult{
		Mean:       mean,
		Variance:   m2,
		StdDev:     math.Sqrt(m2),
		Median:     common.Median(data),
		Min:        floats.Min(data),
		Max:        floats.Max(data),
		NumSamples: len(data),
	}
	result.Range = result.Max - result.Min

	if result.Range > 0 && m2 > 0 {
		result.Skewness = m3 / math.Pow(m2, 1.5)
		result.Kurtosis = m4/(m2*m2) - 3
	}

	return result, nil
}

// centralMoments returns the second, third and fourth central moments with an
// n denominator
func (m *Moments) centralMoments(data []float64, mean float64) (m2, m3, m4 float64) {
	for _, x := range data {
		d := x - mean
		d2 := d * d
		m2 += d2
		m3 += d2 * d
		m4 += d2 * d2
	}
	n := float64(len(data))
	return m2 / n, m3 / n, m4 / n
}
