package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Missing values travel through the engine as NaN so that arithmetic on
// them propagates naturally; Round2 converts them to nil pointers at the
// JSON boundary.

func nan() float64 {
	return math.NaN()
}

func valid(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Round2 rounds to two decimal places and maps NaN/Inf to nil so the value
// is safe to serialise.
func Round2(v float64) *float64 {
	if !valid(v) {
		return nil
	}

	r := math.Round(v*100) / 100

	return &r
}

// Round3 is Round2 at millisecond precision, used for raw lap and sector
// times where two decimals would discard timing resolution.
func Round3(v float64) *float64 {
	if !valid(v) {
		return nil
	}

	r := math.Round(v*1000) / 1000

	return &r
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}

	if v > max {
		return max
	}

	return v
}

// nanMin returns the minimum of the valid entries, or NaN when none are.
func nanMin(values []float64) float64 {
	min := nan()

	for _, v := range values {
		if !valid(v) {
			continue
		}

		if !valid(min) || v < min {
			min = v
		}
	}

	return min
}

// nanMax returns the maximum of the valid entries, or NaN when none are.
func nanMax(values []float64) float64 {
	max := nan()

	for _, v := range values {
		if !valid(v) {
			continue
		}

		if !valid(max) || v > max {
			max = v
		}
	}

	return max
}

func dropInvalid(values []float64) []float64 {
	out := make([]float64, 0, len(values))

	for _, v := range values {
		if valid(v) {
			out = append(out, v)
		}
	}

	return out
}

// meanStdDev wraps gonum's unweighted sample mean and standard deviation
// over the valid entries only.
func meanStdDev(values []float64) (mean, stddev float64, n int) {
	clean := dropInvalid(values)

	if len(clean) == 0 {
		return nan(), nan(), 0
	}

	if len(clean) == 1 {
		return clean[0], nan(), 1
	}

	mean, stddev = stat.MeanStdDev(clean, nil)

	return mean, stddev, len(clean)
}
