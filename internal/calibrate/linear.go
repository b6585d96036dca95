package calibrate

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/nvandessel/wavecal/internal/constants"
	"github.com/nvandessel/wavecal/internal/harness"
	"github.com/nvandessel/wavecal/internal/scene"
	"github.com/nvandessel/wavecal/internal/spectral"
	"github.com/nvandessel/wavecal/internal/wcs"
)

const maxDegree = 7

// Linear identifies lines with a linear dispersion hypothesis seeded by the
// scene's approximate CDELT1, then fits a wavelength polynomial of
// extras["degree"] (default constants.DefaultPolynomialDegree), raising the
// degree one step at a time and re-matching after each fit.
type Linear struct {
	// Slack overrides constants.DispersionSlack when positive.
	Slack float64
}

// Calibrate implements harness.Calibrator.
func (l *Linear) Calibrate(ctx context.Context, s *scene.Scene, extras harness.Extras) (*harness.Product, error) {
	degree, ok, err := extras.Int(harness.KeyDegree)
	if err != nil {
		return nil, err
	}
	if !ok {
		degree = constants.DefaultPolynomialDegree
	}
	if degree < 1 || degree > maxDegree {
		return harness.Failed(fmt.Sprintf("polynomial degree %d outside [1, %d]", degree, maxDegree)), nil
	}

	approx := s.Approx()
	step := approx.Spectral.Step
	fwhm := s.LineFWHM()
	slack := l.Slack
	if slack <= 0 {
		slack = constants.DispersionSlack
	}

	positions, seeds := detect(spectral.Collapse(s.Flux(), s.Mask()), fwhm)
	if len(positions) < degree+2 {
		return harness.Failed(fmt.Sprintf("only %d lines detected", len(positions))), nil
	}
	wavelengths, err := wcs.FromAngstrom(s.ReferenceWavelengths(), approx.Spectral.Unit)
	if err != nil {
		return nil, err
	}
	minSep := constants.IsolationFWHMs * fwhm * math.Abs(step) * (1 + slack)
	var refs []refLine
	for _, w := range isolated(wavelengths, minSep) {
		refs = append(refs, refLine{wavelength: w, feature: w})
	}
	if len(refs) < degree+2 {
		return harness.Failed(fmt.Sprintf("only %d isolated reference lines", len(refs))), nil
	}

	// pixel = a + lambda / CDELT1
	bLo, bHi := 1/(step*(1+slack)), 1/(step*(1-slack))
	if bLo > bHi {
		bLo, bHi = bHi, bLo
	}
	radius := constants.MatchRadiusFWHMs * fwhm
	fit, err := identify(ctx, positions, seeds, refs, bLo, bHi, radius)
	if err != nil {
		return nil, err
	}
	fit = refineLinear(positions, refs, fit, radius)
	pairs := fit.pairs

	center := float64(s.Width()-1) / 2
	scale := math.Max(center, 1)
	lamRadius := radius * math.Abs(step)
	var coeffs []float64
	for d := 1; d <= degree; d++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for range 10 {
			if len(pairs) < d+2 {
				return harness.Failed(fmt.Sprintf("only %d lines identified for degree %d", len(pairs), d)), nil
			}
			xs, ys := pairXY(positions, refs, pairs)
			if coeffs, err = polyfit(xs, ys, d, center, scale); err != nil {
				return harness.Failed(err.Error()), nil
			}
			next := matchPoly(positions, refs, coeffs, center, scale, lamRadius)
			same := samePairs(next, pairs)
			pairs = next
			if same {
				break
			}
		}
	}
	if len(pairs) < degree+2 {
		return harness.Failed(fmt.Sprintf("only %d lines identified", len(pairs))), nil
	}
	xs, ys := pairXY(positions, refs, pairs)
	if coeffs, err = polyfit(xs, ys, degree, center, scale); err != nil {
		return harness.Failed(err.Error()), nil
	}

	out, err := wcs.NewPolynomial(center, scale, coeffs, approx.Spatial)
	if err != nil {
		return nil, fmt.Errorf("building solution: %w", err)
	}
	matches := make([]harness.Match, len(pairs))
	resid := make([]float64, len(pairs))
	for i := range pairs {
		resid[i] = out.Wavelength(xs[i]) - ys[i]
		matches[i] = harness.Match{Pixel: xs[i], Wavelength: ys[i], Residual: resid[i]}
	}
	return &harness.Product{
		Success: true,
		WCS:     out,
		Width:   s.Width(),
		Height:  s.Height(),
		Flux:    s.Flux(),
		Matches: matches,
		RMS:     rms(resid),
		Message: fmt.Sprintf("degree %d polynomial from %d lines", degree, len(pairs)),
	}, nil
}

func pairXY(positions []float64, refs []refLine, pairs []pairing) (xs, ys []float64) {
	xs = make([]float64, len(pairs))
	ys = make([]float64, len(pairs))
	for i, p := range pairs {
		xs[i] = positions[p.peak]
		ys[i] = refs[p.line].wavelength
	}
	return xs, ys
}

// matchPoly pairs each detected peak with the nearest reference wavelength
// to its predicted wavelength, within radius. A line is claimed by at most
// one peak.
func matchPoly(positions []float64, refs []refLine, coeffs []float64, center, scale, radius float64) []pairing {
	poly := wcs.Polynomial{Center: center, Scale: scale, Coeffs: coeffs}
	lams := make([]float64, len(refs))
	for i, r := range refs {
		lams[i] = r.wavelength
	}
	sorted := append([]float64(nil), lams...)
	sort.Float64s(sorted)

	type claim struct {
		peak int
		dist float64
	}
	claims := make(map[int]claim)
	for pi, x := range positions {
		pred := poly.Wavelength(x)
		si := nearest(sorted, pred)
		if si < 0 {
			continue
		}
		d := math.Abs(sorted[si] - pred)
		if d > radius {
			continue
		}
		li := indexOf(lams, sorted[si])
		if c, ok := claims[li]; !ok || d < c.dist {
			claims[li] = claim{peak: pi, dist: d}
		}
	}
	pairs := make([]pairing, 0, len(claims))
	for li, c := range claims {
		pairs = append(pairs, pairing{peak: c.peak, line: li})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].peak < pairs[j].peak })
	return pairs
}

func indexOf(xs []float64, v float64) int {
	for i, x := range xs {
		if x == v {
			return i
		}
	}
	return -1
}
