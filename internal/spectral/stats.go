package spectral

import (
	"math"
	"sort"
)

// madToSigma scales a median absolute deviation to a Gaussian sigma.
const madToSigma = 1.4826

// Median returns the median of the finite values in xs, or NaN if none.
func Median(xs []float64) float64 {
	s := finiteSorted(xs)
	if len(s) == 0 {
		return math.NaN()
	}
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return 0.5 * (s[mid-1] + s[mid])
}

// RobustSigma estimates the noise level of xs from its median absolute
// deviation.
func RobustSigma(xs []float64) float64 {
	med := Median(xs)
	dev := make([]float64, 0, len(xs))
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			continue
		}
		dev = append(dev, math.Abs(x-med))
	}
	return madToSigma * Median(dev)
}

func finiteSorted(xs []float64) []float64 {
	s := make([]float64, 0, len(xs))
	for _, x := range xs {
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			s = append(s, x)
		}
	}
	sort.Float64s(s)
	return s
}
