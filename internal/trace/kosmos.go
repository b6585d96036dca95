package trace

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/mat"

	"github.com/nvandessel/wavecal/internal/constants"
	"github.com/nvandessel/wavecal/internal/spectral"
)

// KosmosOptions tune Kosmos.
type KosmosOptions struct {
	// Bins is the number of dispersion bins; at least 4 and fewer than the
	// image width. Zero means constants.DefaultTraceBins.
	Bins int
	// Guess, when set, overrides the brightest-row starting position.
	Guess *float64
	// Window restricts the fits to rows [guess-Window, guess+Window).
	// Zero fits every row.
	Window int
}

// Kosmos traces a spectrum by splitting the image into dispersion bins,
// fitting a Gaussian plus constant to the spatial profile of each bin, and
// running a not-a-knot cubic spline through the bin centres. A bin whose fit
// leaves the fitting window falls back to the previous good fit.
func Kosmos(ctx context.Context, img mat.Matrix, opts KosmosOptions) (*Trace, error) {
	rows, cols := img.Dims()
	bins := opts.Bins
	if bins == 0 {
		bins = constants.DefaultTraceBins
	}
	if bins < constants.MinTraceBins {
		return nil, fmt.Errorf("%w: bins must be >= %d, got %d", ErrInvalidBins, constants.MinTraceBins, bins)
	}
	if bins >= cols {
		return nil, fmt.Errorf("%w: bins must be < %d, the image width", ErrInvalidBins, cols)
	}
	if opts.Window != 0 && (opts.Window < 1 || opts.Window > cols) {
		return nil, fmt.Errorf("%w: window must be in [1, %d], got %d", ErrInvalidWindow, cols, opts.Window)
	}

	// Mean spatial profile over all columns, ignoring non-finite pixels.
	ztot := make([]float64, rows)
	anyFinite := false
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			v := img.At(r, c)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			ztot[r] += v
			anyFinite = true
		}
		ztot[r] /= float64(cols)
	}
	if !anyFinite {
		return nil, ErrFullyMasked
	}

	peakY := float64(argmax(ztot))
	if opts.Guess != nil {
		peakY = *opts.Guess
	}
	width := math.Min(math.Max(halfMaxWidth(ztot)/spectral.SigmaToFWHM, 2), 25)

	yy := make([]float64, rows)
	for i := range yy {
		yy[i] = float64(i)
	}
	total := fitGaussConst(yy, ztot, gaussConst{
		amplitude: maxOf(ztot), mean: peakY, stddev: width, offset: spectral.Median(ztot),
	})

	lo, hi := 0, rows
	if opts.Window > 0 {
		lo = max(0, int(peakY)-opts.Window)
		hi = min(rows, int(peakY)+opts.Window)
	}
	if lo >= hi || allMasked(img, lo, hi) {
		return nil, fmt.Errorf("%w: rows [%d, %d)", ErrWindowMasked, lo, hi)
	}
	window := yy[lo:hi]

	edges := make([]int, bins+1)
	for i := range edges {
		edges[i] = int(float64(i) * float64(cols) / float64(bins))
	}

	var xb, yb []float64
	for b := 0; b < bins; b++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		z := make([]float64, hi-lo)
		seen := false
		for r := lo; r < hi; r++ {
			for c := edges[b]; c < edges[b+1]; c++ {
				v := img.At(r, c)
				if math.IsNaN(v) || math.IsInf(v, 0) {
					continue
				}
				z[r-lo] += v
				seen = true
			}
		}

		peak := peakY
		if seen {
			peak = window[argmax(z)]
		}
		w := halfMaxWidth(z) / spectral.SigmaToFWHM
		if w <= 0 {
			w = 1
		}
		fit := fitGaussConst(window, z, gaussConst{
			amplitude: maxOf(z), mean: peak, stddev: w, offset: spectral.Median(z),
		})

		var y float64
		if fit.mean >= window[0] && fit.mean <= window[len(window)-1] {
			y = fit.mean
			total = fit
		} else {
			y = total.mean
		}
		if math.IsNaN(y) {
			continue
		}
		xb = append(xb, float64(edges[b]+edges[b+1]-1)/2)
		yb = append(yb, y)
	}

	positions := make([]float64, cols)
	if err := upsample(xb, yb, positions); err != nil {
		return nil, err
	}
	t, err := NewArray(img, positions)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// upsample interpolates bin positions onto every column with a not-a-knot
// cubic spline, extending it linearly beyond the outer bin centres.
func upsample(xb, yb []float64, out []float64) error {
	switch len(xb) {
	case 0:
		for i := range out {
			out[i] = math.NaN()
		}
		return nil
	case 1:
		for i := range out {
			out[i] = yb[0]
		}
		return nil
	case 2, 3:
		var pl interp.PiecewiseLinear
		if err := pl.Fit(xb, yb); err != nil {
			return err
		}
		n := len(xb)
		fill(out, xb, pl.Predict,
			(yb[1]-yb[0])/(xb[1]-xb[0]),
			(yb[n-1]-yb[n-2])/(xb[n-1]-xb[n-2]))
		return nil
	}
	var spl interp.NotAKnotCubic
	if err := spl.Fit(xb, yb); err != nil {
		return fmt.Errorf("fitting trace spline: %w", err)
	}
	fill(out, xb, spl.Predict, spl.PredictDerivative(xb[0]), spl.PredictDerivative(xb[len(xb)-1]))
	return nil
}

// fill evaluates f inside [xb[0], xb[n-1]] and extends it linearly with the
// given end slopes outside.
func fill(out, xb []float64, f func(float64) float64, slopeLo, slopeHi float64) {
	x0, x1 := xb[0], xb[len(xb)-1]
	for i := range out {
		x := float64(i)
		switch {
		case x < x0:
			out[i] = f(x0) + slopeLo*(x-x0)
		case x > x1:
			out[i] = f(x1) + slopeHi*(x-x1)
		default:
			out[i] = f(x)
		}
	}
}

func argmax(xs []float64) int {
	best := 0
	for i, x := range xs {
		if x > xs[best] {
			best = i
		}
	}
	return best
}

func maxOf(xs []float64) float64 { return xs[argmax(xs)] }

// halfMaxWidth counts samples above half the maximum.
func halfMaxWidth(xs []float64) float64 {
	half := maxOf(xs) / 2
	n := 0
	for _, x := range xs {
		if x > half {
			n++
		}
	}
	return float64(n)
}

func allMasked(img mat.Matrix, lo, hi int) bool {
	_, cols := img.Dims()
	for r := lo; r < hi; r++ {
		for c := 0; c < cols; c++ {
			v := img.At(r, c)
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}
