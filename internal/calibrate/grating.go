package calibrate

import (
	"context"
	"fmt"
	"math"

	"github.com/nvandessel/wavecal/internal/constants"
	"github.com/nvandessel/wavecal/internal/harness"
	"github.com/nvandessel/wavecal/internal/scene"
	"github.com/nvandessel/wavecal/internal/spectral"
	"github.com/nvandessel/wavecal/internal/wcs"
)

// Grating solves for CRPIX1 and CDELT1 of a grating transform whose
// instrument constants and reference wavelength arrive in
// extras["grating"]. With those fixed the pixel of a line is linear in its
// grating offset, so identification and fitting are both linear.
type Grating struct {
	// Slack overrides constants.DispersionSlack when positive.
	Slack float64
}

// Calibrate implements harness.Calibrator.
func (g *Grating) Calibrate(ctx context.Context, s *scene.Scene, extras harness.Extras) (*harness.Product, error) {
	inst, ok, err := extras.Params(harness.KeyGrating)
	if err != nil {
		return nil, err
	}
	if !ok {
		return harness.Failed(`grating calibrator needs extras["grating"]`), nil
	}
	if !inst.IsGrating() {
		return harness.Failed(fmt.Sprintf("extras[\"grating\"] is a %s axis, not a grating", inst.Spectral.Type)), nil
	}

	approx := s.Approx()
	step := approx.Spectral.Step
	inst.Spectral.Step = step
	inst.Spectral.RefPixel = approx.Spectral.RefPixel
	model, err := wcs.NewGrating(inst)
	if err != nil {
		return nil, err
	}

	fwhm := s.LineFWHM()
	slack := g.Slack
	if slack <= 0 {
		slack = constants.DispersionSlack
	}
	positions, seeds := detect(spectral.Collapse(s.Flux(), s.Mask()), fwhm)
	if len(positions) < 2 {
		return harness.Failed(fmt.Sprintf("only %d lines detected", len(positions))), nil
	}

	wavelengths, err := wcs.FromAngstrom(s.ReferenceWavelengths(), inst.Spectral.Unit)
	if err != nil {
		return nil, err
	}
	minSep := constants.IsolationFWHMs * fwhm * math.Abs(step) * (1 + slack)
	var refs []refLine
	for _, w := range isolated(wavelengths, minSep) {
		u, err := model.Offset(w)
		if err != nil {
			continue
		}
		refs = append(refs, refLine{wavelength: w, feature: u})
	}
	if len(refs) < 2 {
		return harness.Failed("fewer than two isolated reference lines"), nil
	}

	// pixel = (CRPIX1 - 1) + u / CDELT1
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
	if len(fit.pairs) < 3 {
		return harness.Failed(fmt.Sprintf("only %d lines identified", len(fit.pairs))), nil
	}

	solved := inst
	solved.Spectral.RefPixel = fit.a + 1
	solved.Spectral.Step = 1 / fit.b
	solved.Spatial = approx.Spatial
	out, err := wcs.NewGrating(solved)
	if err != nil {
		return nil, fmt.Errorf("building solution: %w", err)
	}

	matches := make([]harness.Match, len(fit.pairs))
	resid := make([]float64, len(fit.pairs))
	for i, p := range fit.pairs {
		px := positions[p.peak]
		lam := out.Wavelength(px)
		resid[i] = lam - refs[p.line].wavelength
		matches[i] = harness.Match{Pixel: px, Wavelength: refs[p.line].wavelength, Residual: resid[i]}
	}

	return &harness.Product{
		Success: true,
		WCS:     out,
		Width:   s.Width(),
		Height:  s.Height(),
		Flux:    s.Flux(),
		Matches: matches,
		RMS:     rms(resid),
		Message: fmt.Sprintf("grating solution from %d lines: CRPIX1=%.6f CDELT1=%.6f", len(matches), solved.Spectral.RefPixel, solved.Spectral.Step),
	}, nil
}
