package analyzer

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// quartiles returns Q1 and Q3 of values using linear interpolation
func quartiles(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	if len(sorted) == 1 {
		return sorted[0], sorted[0]
	}
	return stat.Quantile(0.25, stat.LinInterp, sorted, nil), stat.Quantile(0.75, stat.LinInterp, sorted, nil)
}

// outlierWeight down-weights a value beyond the IQR fences in proportion to
// its distance from the nearest quartile. fence is multiplier*IQR; a zero
// fence disables weighting.
func outlierWeight(x, q1, q3, fence float64) float64 {
	if fence <= 0 {
		return 1
	}
	switch {
	case x < q1-fence:
		return fence / (q1 - x)
	case x > q3+fence:
		return fence / (x - q3)
	default:
		return 1
	}
}

// meanStdDev returns the mean and unbiased standard deviation. Fewer than
// two values give a zero standard deviation.
func meanStdDev(values []float64) (float64, float64) {
	switch len(values) {
	case 0:
		return 0, 0
	case 1:
		return values[0], 0
	}
	mean, variance := stat.MeanVariance(values, nil)
	if math.IsNaN(variance) || variance < 0 {
		return mean, 0
	}
	return mean, math.Sqrt(variance)
}
