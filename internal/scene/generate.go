package scene

import (
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/interp"
	"gonum.org/v1/gonum/mat"

	"github.com/nvandessel/wavecal/internal/constants"
	"github.com/nvandessel/wavecal/internal/linelist"
	"github.com/nvandessel/wavecal/internal/spectral"
	"github.com/nvandessel/wavecal/internal/wcs"
)

// Request describes a scene to synthesize.
type Request struct {
	Width, Height int

	// Truth is the exact dispersion model the lines are placed with.
	Truth wcs.Transform
	// Approx defines the nominal transform attached to the scene.
	Approx wcs.Params
	// Unit is Truth's spectral unit. Empty takes it from Truth when Truth can
	// describe itself, and Angstrom otherwise.
	Unit string

	LineFWHM  float64  // pixels
	LineLists []string // catalog names, e.g. "ArII"

	Noise bool
	// Seed drives the noise generator; zero draws a fresh seed.
	Seed uint64

	Background float64 // counts
	PeakFlux   float64 // counts, strongest line
	ReadNoise  float64 // counts, Gaussian sigma
	Saturation float64 // counts; zero disables clipping
}

// NewRequest returns a Request with default flux levels.
func NewRequest(width, height int, truth wcs.Transform, approx wcs.Params, fwhm float64, noise bool, lists ...string) Request {
	return Request{
		Width:      width,
		Height:     height,
		Truth:      truth,
		Approx:     approx,
		LineFWHM:   fwhm,
		LineLists:  lists,
		Noise:      noise,
		Background: constants.DefaultBackground,
		PeakFlux:   constants.DefaultPeakFlux,
		ReadNoise:  constants.DefaultReadNoise,
	}
}

func (r Request) validate() error {
	switch {
	case r.Width < 2 || r.Height < 1:
		return fmt.Errorf("%w: image must be at least 2x1, got %dx%d", ErrInvalidRequest, r.Width, r.Height)
	case r.Truth == nil:
		return fmt.Errorf("%w: ground-truth transform is required", ErrInvalidRequest)
	case !(r.LineFWHM > 0) || math.IsInf(r.LineFWHM, 0):
		return fmt.Errorf("%w: line FWHM must be positive, got %g", ErrInvalidRequest, r.LineFWHM)
	case len(r.LineLists) == 0:
		return fmt.Errorf("%w: at least one line list is required", ErrInvalidRequest)
	case r.Background < 0 || r.PeakFlux <= 0 || r.ReadNoise < 0 || r.Saturation < 0:
		return fmt.Errorf("%w: flux levels must be non-negative and peak flux positive", ErrInvalidRequest)
	}
	return nil
}

// Generate renders a scene. Every row is evaluated through the ground-truth
// transform, each catalog line is drawn as a point-sampled Gaussian centred
// on the column whose true wavelength equals the line's, and the approximate
// transform is attached as the scene's nominal coordinate system.
func Generate(req Request) (*Scene, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	approx, err := wcs.New(req.Approx)
	if err != nil {
		return nil, fmt.Errorf("approximate transform: %w", err)
	}
	catalog, err := linelist.Load(req.LineLists...)
	if err != nil {
		return nil, err
	}

	unit := req.Unit
	if unit == "" {
		unit = wcs.UnitOf(req.Truth)
	}
	restAngstrom := make([]float64, len(catalog))
	for i, l := range catalog {
		restAngstrom[i] = l.Wavelength
	}
	rest, err := wcs.FromAngstrom(restAngstrom, unit)
	if err != nil {
		return nil, err
	}

	w, h := req.Width, req.Height
	xs, ys := wcs.Grid(w, h)
	lambda, _, err := req.Truth.PixelToWorld(xs, ys)
	if err != nil {
		return nil, fmt.Errorf("evaluating ground truth: %w", err)
	}

	sigma := req.LineFWHM / spectral.SigmaToFWHM
	halfWidth := constants.RenderHalfWidthSigmas * sigma

	// Choose the rendered set on the middle row.
	mid := h / 2
	inv, err := newRowInverse(lambda[mid*w : (mid+1)*w])
	if err != nil {
		return nil, err
	}
	var rendered []linelist.Line
	var renderedRest, midCols []float64
	for i, l := range catalog {
		c, ok := inv.locate(req.Truth, float64(mid), rest[i])
		if !ok || c < -halfWidth || c > float64(w-1)+halfWidth {
			continue
		}
		rendered = append(rendered, l)
		renderedRest = append(renderedRest, rest[i])
		midCols = append(midCols, c)
	}
	maxIntensity := 0.0
	for _, l := range rendered {
		maxIntensity = math.Max(maxIntensity, l.Intensity)
	}
	amps := make([]float64, len(rendered))
	for i, l := range rendered {
		amps[i] = req.PeakFlux
		if maxIntensity > 0 {
			amps[i] = req.PeakFlux * l.Intensity / maxIntensity
		}
	}

	flux := mat.NewDense(h, w, nil)
	centres := make([]float64, len(rendered))
	var prev []float64
	for r := 0; r < h; r++ {
		rowLambda := lambda[r*w : (r+1)*w]
		if prev == nil || !slices.Equal(rowLambda, prev) {
			if r == mid {
				copy(centres, midCols)
			} else {
				rinv, err := newRowInverse(rowLambda)
				if err != nil {
					return nil, err
				}
				for i, wl := range renderedRest {
					c, ok := rinv.locate(req.Truth, float64(r), wl)
					if !ok {
						c = math.NaN()
					}
					centres[i] = c
				}
			}
			prev = rowLambda
		}
		renderRow(flux.RawRowView(r), req.Background, centres, amps, sigma, halfWidth)
	}

	s := &Scene{
		width:           w,
		height:          h,
		flux:            flux,
		uncertainty:     mat.NewDense(h, w, nil),
		mask:            make([]bool, w*h),
		approx:          req.Approx,
		approxTransform: approx,
		lineFWHM:        req.LineFWHM,
		noisy:           req.Noise,
	}
	if req.Noise {
		s.seed = addNoise(flux, s.uncertainty, req.ReadNoise, req.Seed)
	}
	s.applyMask(req.Saturation)

	for i, l := range rendered {
		if midCols[i] < 0 || midCols[i] > float64(w-1) {
			continue
		}
		s.lines = append(s.lines, InjectedLine{Line: l, Column: midCols[i], Amplitude: amps[i]})
	}
	if len(s.lines) == 0 {
		return nil, ErrNoLines
	}
	return s, nil
}

func renderRow(row []float64, background float64, centres, amps []float64, sigma, halfWidth float64) {
	for c := range row {
		row[c] = background
	}
	last := float64(len(row) - 1)
	for i, mu := range centres {
		if math.IsNaN(mu) {
			continue
		}
		lo := int(math.Ceil(math.Max(0, mu-halfWidth)))
		hi := int(math.Floor(math.Min(last, mu+halfWidth)))
		for c := lo; c <= hi; c++ {
			row[c] += spectral.Gaussian(float64(c), amps[i], mu, sigma)
		}
	}
}

func (s *Scene) applyMask(saturation float64) {
	raw := s.flux.RawMatrix()
	for r := 0; r < raw.Rows; r++ {
		for c := 0; c < raw.Cols; c++ {
			k := r*raw.Stride + c
			v := raw.Data[k]
			switch {
			case math.IsNaN(v) || math.IsInf(v, 0):
				s.mask[r*s.width+c] = true
			case saturation > 0 && v >= saturation:
				raw.Data[k] = saturation
				s.mask[r*s.width+c] = true
			}
		}
	}
}

// rowInverse maps wavelength back to column along one row.
type rowInverse struct {
	pl      interp.PiecewiseLinear
	lo, hi  float64 // wavelength range
	loCol   float64
	hiCol   float64
	slopeLo float64 // columns per unit wavelength at each end
	slopeHi float64
}

func newRowInverse(rowLambda []float64) (*rowInverse, error) {
	n := len(rowLambda)
	increasing := rowLambda[n-1] > rowLambda[0]
	lams := make([]float64, n)
	cols := make([]float64, n)
	for i := range rowLambda {
		j := i
		if !increasing {
			j = n - 1 - i
		}
		lams[i] = rowLambda[j]
		cols[i] = float64(j)
	}
	for i := 1; i < n; i++ {
		if !(lams[i] > lams[i-1]) {
			return nil, fmt.Errorf("%w: columns %v and %v", ErrNonMonotonic, cols[i-1], cols[i])
		}
	}
	inv := &rowInverse{
		lo:      lams[0],
		hi:      lams[n-1],
		loCol:   cols[0],
		hiCol:   cols[n-1],
		slopeLo: (cols[1] - cols[0]) / (lams[1] - lams[0]),
		slopeHi: (cols[n-1] - cols[n-2]) / (lams[n-1] - lams[n-2]),
	}
	if err := inv.pl.Fit(lams, cols); err != nil {
		return nil, err
	}
	return inv, nil
}

// locate returns the column on row y whose true wavelength is target. The
// piecewise-linear guess is polished with secant steps on the transform.
func (inv *rowInverse) locate(t wcs.Transform, y, target float64) (float64, bool) {
	var x0 float64
	switch {
	case target < inv.lo:
		x0 = inv.loCol + (target-inv.lo)*inv.slopeLo
	case target > inv.hi:
		x0 = inv.hiCol + (target-inv.hi)*inv.slopeHi
	default:
		x0 = inv.pl.Predict(target)
	}

	f := func(x float64) (float64, bool) {
		lam, _, err := t.PixelToWorld([]float64{x}, []float64{y})
		if err != nil || math.IsNaN(lam[0]) {
			return 0, false
		}
		return lam[0] - target, true
	}

	f0, ok := f(x0)
	if !ok {
		return 0, false
	}
	if f0 == 0 {
		return x0, true
	}
	x1 := x0 + 0.25
	f1, ok := f(x1)
	if !ok {
		return 0, false
	}
	for range 50 {
		if f1 == 0 || f1 == f0 {
			break
		}
		x2 := x1 - f1*(x1-x0)/(f1-f0)
		x0, f0 = x1, f1
		x1 = x2
		if f1, ok = f(x1); !ok {
			return 0, false
		}
		if math.Abs(x1-x0) < 1e-12*math.Max(1, math.Abs(x1)) {
			break
		}
	}
	return x1, true
}
