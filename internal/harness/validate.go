package harness

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/nvandessel/wavecal/internal/constants"
	"github.com/nvandessel/wavecal/internal/wcs"
)

// Tolerance is an allclose rule: |got - want| <= Abs + Rel*|want|.
type Tolerance struct {
	Rel float64 `json:"rtol" yaml:"rtol"`
	Abs float64 `json:"atol" yaml:"atol"`
}

// DefaultTolerance returns the default full-grid tolerance.
func DefaultTolerance() Tolerance {
	return Tolerance{Rel: constants.DefaultRelTolerance, Abs: constants.DefaultAbsTolerance}
}

func (t Tolerance) close(got, want float64) bool {
	return math.Abs(got-want) <= t.Abs+t.Rel*math.Abs(want)
}

// Report summarizes a full-grid comparison.
type Report struct {
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Points    int       `json:"points"`
	Failures  int       `json:"failures"`
	MaxAbsDev float64   `json:"max_abs_dev"`
	MaxRelDev float64   `json:"max_rel_dev"`
	Worst     WorstCase `json:"worst"`
	Tolerance Tolerance `json:"tolerance"`
}

// WorstCase locates the largest absolute deviation.
type WorstCase struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Axis string  `json:"axis"`
	Got  float64 `json:"got"`
	Want float64 `json:"want"`
}

// Passed reports whether every pixel was within tolerance.
func (r *Report) Passed() bool { return r != nil && r.Failures == 0 }

// String renders a one-line summary.
func (r *Report) String() string {
	return fmt.Sprintf("%d/%d pixels within rtol=%g atol=%g; max |Δ|=%.6g (rel %.3g) at pixel (%g, %g) on the %s axis",
		r.Points-r.Failures, r.Points, r.Tolerance.Rel, r.Tolerance.Abs,
		r.MaxAbsDev, r.MaxRelDev, r.Worst.X, r.Worst.Y, r.Worst.Axis)
}

// CompareTransforms evaluates got and want over every pixel of a
// width x height image and checks both world axes elementwise. Checking the
// whole grid catches solutions that agree at the line positions but diverge
// between them. Transform errors propagate unchanged; a tolerance violation
// returns the report together with an error wrapping ErrToleranceExceeded.
func CompareTransforms(got, want wcs.Transform, width, height int, tol Tolerance) (*Report, error) {
	if got == nil || want == nil {
		return nil, fmt.Errorf("%w: missing transform", ErrUnexpectedOutput)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: grid %dx%d", ErrUnexpectedOutput, width, height)
	}

	xs, ys := wcs.Grid(width, height)
	gotSpec, gotSpat, err := got.PixelToWorld(xs, ys)
	if err != nil {
		return nil, err
	}
	wantSpec, wantSpat, err := want.PixelToWorld(xs, ys)
	if err != nil {
		return nil, err
	}

	rep := &Report{Width: width, Height: height, Points: len(xs), Tolerance: tol, MaxAbsDev: -1}
	failed := make([]bool, len(xs))
	compareAxis(rep, failed, "spectral", xs, ys, gotSpec, wantSpec, tol)
	compareAxis(rep, failed, "spatial", xs, ys, gotSpat, wantSpat, tol)
	for _, f := range failed {
		if f {
			rep.Failures++
		}
	}

	if rep.Failures > 0 {
		return rep, fmt.Errorf("%w: %s", ErrToleranceExceeded, rep)
	}
	return rep, nil
}

// compareAxis marks failed[i] when pixel i is out of tolerance on this axis.
func compareAxis(rep *Report, failed []bool, axis string, xs, ys, got, want []float64, tol Tolerance) {
	diff := make([]float64, len(got))
	floats.SubTo(diff, got, want)

	for i, d := range diff {
		ad := math.Abs(d)
		if math.IsNaN(d) || math.IsInf(d, 0) {
			ad = math.MaxFloat64
		}
		if !tol.close(got[i], want[i]) {
			failed[i] = true
		}
		if ad > rep.MaxAbsDev {
			rep.MaxAbsDev = ad
			rep.Worst = WorstCase{X: xs[i], Y: ys[i], Axis: axis, Got: got[i], Want: want[i]}
		}
		rel := ad
		if want[i] != 0 {
			rel = math.Min(ad/math.Abs(want[i]), math.MaxFloat64)
		}
		if rel > rep.MaxRelDev {
			rep.MaxRelDev = rel
		}
	}
}
