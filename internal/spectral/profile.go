// Package spectral holds one-dimensional spectrum utilities shared by the
// scene generator and the reference calibrators: line profiles, collapsing
// images along the spatial axis, matched filtering and peak finding.
package spectral

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// SigmaToFWHM converts a Gaussian standard deviation to its full width at
// half maximum.
var SigmaToFWHM = 2 * math.Sqrt(2*math.Ln2)

// Gaussian returns amplitude * exp(-(x-mu)^2 / (2 sigma^2)).
func Gaussian(x, amplitude, mu, sigma float64) float64 {
	d := (x - mu) / sigma
	return amplitude * math.Exp(-0.5*d*d)
}

// Collapse averages image columns along the spatial (row) axis. Pixels with
// mask[row*cols+col] set are skipped; mask may be nil. Columns with every
// pixel masked collapse to NaN.
func Collapse(img mat.Matrix, mask []bool) []float64 {
	rows, cols := img.Dims()
	out := make([]float64, cols)
	buf := make([]float64, 0, rows)
	for c := 0; c < cols; c++ {
		buf = buf[:0]
		for r := 0; r < rows; r++ {
			if mask != nil && mask[r*cols+c] {
				continue
			}
			v := img.At(r, c)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			buf = append(buf, v)
		}
		if len(buf) == 0 {
			out[c] = math.NaN()
			continue
		}
		out[c] = stat.Mean(buf, nil)
	}
	return out
}
