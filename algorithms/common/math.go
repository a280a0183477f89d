package common

import (
	"math"
	"slices"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Basic statistical functions shared by the feature algorithms, backed by gonum

// Mean calculates the arithmetic mean of a slice using gonum
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.Mean(data, nil)
}

// Variance calculates the sample variance (n-1 denominator)
func Variance(data []float64) float64 {
	if len(data) < 2 {
		return 0.0
	}
	return stat.Variance(data, nil)
}

// PopulationVariance calculates the variance with an n denominator
func PopulationVariance(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.PopVariance(data, nil)
}

// StandardDeviation calculates the sample standard deviation
func StandardDeviation(data []float64) float64 {
	if len(data) < 2 {
		return 0.0
	}
	return math.Sqrt(Variance(data))
}

// PopulationStdDev calculates the standard deviation with an n denominator.
// Per-frame feature summaries use this form.
func PopulationStdDev(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.PopStdDev(data, nil)
}

// MeanStd returns the mean and population standard deviation of a series
func MeanStd(data []float64) (mean, std float64) {
	if len(data) == 0 {
		return 0, 0
	}
	return stat.PopMeanStdDev(data, nil)
}

// Median returns the middle value, averaging the two central values for even lengths
func Median(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}

	sorted := slices.Clone(data)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2.0
	}
	return sorted[mid]
}

// RMS calculates root mean square
func RMS(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}

	return math.Sqrt(floats.Dot(data, data) / float64(len(data)))
}

// MaxAbs returns the largest absolute sample value
func MaxAbs(data []float64) float64 {
	peak := 0.0
	for _, v := range data {
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	return peak
}

// FindPeaks finds local maxima that are at least minHeight tall and at least
// minDistance samples apart. Flat-topped peaks are reported at their middle sample.
// When two peaks are closer than minDistance the taller one is kept.
// The returned indices are in ascending order.
func FindPeaks(data []float64, minHeight float64, minDistance int) []int {
	if len(data) < 3 {
		return []int{}
	}

	// Candidate local maxima, plateau aware
	candidates := make([]int, 0, len(data)/8)
	for i := 1; i < len(data)-1; {
		if data[i-1] < data[i] {
			ahead := i + 1
			for ahead < len(data)-1 && data[ahead] == data[i] {
				ahead++
			}
			if data[ahead] < data[i] {
				peak := (i + ahead - 1) / 2
				if data[peak] >= minHeight {
					candidates = append(candidates, peak)
				}
				i = ahead
				continue
			}
		}
		i++
	}

	if minDistance <= 1 || len(candidates) < 2 {
		return candidates
	}

	// Visit candidates from tallest to shortest and suppress close neighbours
	order := make([]int, len(candidates))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return data[candidates[order[a]]] > data[candidates[order[b]]]
	})

	keep := make([]bool, len(candidates))
	for i := range keep {
		keep[i] = true
	}

	for _, idx := range order {
		if !keep[idx] {
			continue
		}
		pos := candidates[idx]
		for j := idx - 1; j >= 0 && pos-candidates[j] < minDistance; j-- {
			keep[j] = false
		}
		for j := idx + 1; j < len(candidates) && candidates[j]-pos < minDistance; j++ {
			keep[j] = false
		}
	}

	peaks := make([]int, 0, len(candidates))
	for i, c := range candidates {
		if keep[i] {
			peaks = append(peaks, c)
		}
	}
	return peaks
}

// ParabolicOffset returns the fractional offset (in samples, within [-0.5, 0.5])
// of the vertex of the parabola through data[idx-1], data[idx], data[idx+1]
func ParabolicOffset(data []float64, idx int) float64 {
	if idx <= 0 || idx >= len(data)-1 {
		return 0
	}

	y1 := data[idx-1]
	y2 := data[idx]
	y3 := data[idx+1]

	a := (y1 - 2*y2 + y3) / 2
	b := (y3 - y1) / 2
	if a == 0 {
		return 0
	}

	return Clamp(-b/(2*a), -0.5, 0.5)
}

// Clamp constrains a value to a range
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// IsFinite reports whether v is neither NaN nor infinite
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// IsPowerOfTwo checks if n is a power of 2
func IsPowerOfTwo(n int) bool {
	return n > 0 && (n&(n-1)) == 0
}

// NextPowerOfTwo finds the next power of 2 >= n
func NextPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}

	power := 1
	for power < n {
		power <<= 1
	}
	return power
}
