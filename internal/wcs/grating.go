package wcs

import (
	"fmt"
	"math"
)

// Grating implements the -GRA dispersion algorithm of FITS WCS Paper III.
//
// With n(λ) = n_r + n'_r(λ - λ_r) the generalised grating equation reads
//
//	G m λ / cos ε = n(λ) sin α + sin β
//
// and the diffraction angle β follows the focal-plane offset w through
// s = tan(β - θ) = s_r + w/(dλ/ds)_r. The scale (dλ/ds)_r is chosen so that
// dλ/dw = 1 at the reference pixel, which makes CDELT1 the local dispersion
// there.
type Grating struct {
	params Params

	scale    float64 // spectral unit -> metres
	denom    float64 // G m / cos ε - n'_r sin α, per metre
	theta    float64 // camera angle, radians
	sr       float64 // tan(β_r - θ)
	sinBetaR float64 // sin β_r, recomputed from sr so w=0 round-trips exactly
	dlds     float64 // (dλ/ds)_r in spectral units
}

var (
	_ Transform = (*Grating)(nil)
	_ Inverter  = (*Grating)(nil)
	_ Describer = (*Grating)(nil)
)

// NewGrating builds a grating transform. It fails with ErrInvalidParameters
// when the reference wavelength cannot be diffracted by the given grating.
func NewGrating(p Params) (*Grating, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if !p.IsGrating() {
		return nil, fmt.Errorf("%w: %s is not a grating axis", ErrUnsupportedType, p.Spectral.Type)
	}
	scale, err := UnitScale(p.Spectral.Unit)
	if err != nil {
		return nil, err
	}

	g := p.Grating
	alpha := g.IncidenceAngle * math.Pi / 180
	eps := g.OutOfPlaneAngle * math.Pi / 180
	theta := g.CameraAngle * math.Pi / 180
	lambdaR := p.Spectral.RefValue * scale

	gm := g.Density * float64(g.Order) / math.Cos(eps)
	denom := gm - g.RefractionDerivative*math.Sin(alpha)
	if denom == 0 {
		return nil, fmt.Errorf("%w: refraction term cancels the grating term", ErrInvalidParameters)
	}
	base := (g.RefractiveIndex - g.RefractionDerivative*lambdaR) * math.Sin(alpha)

	sinBetaR := lambdaR*denom - base
	if math.Abs(sinBetaR) > 1 {
		return nil, fmt.Errorf("%w: reference wavelength %g is not diffracted (sin β = %g)",
			ErrInvalidParameters, p.Spectral.RefValue, sinBetaR)
	}
	betaR := math.Asin(sinBetaR)
	if math.Abs(betaR-theta) >= math.Pi/2 {
		return nil, fmt.Errorf("%w: diffracted beam misses the camera", ErrInvalidParameters)
	}

	sr := math.Tan(betaR - theta)
	betaR = math.Atan(sr) + theta
	dlds := math.Cos(betaR) / denom / (1 + sr*sr) / scale
	if dlds == 0 || math.IsNaN(dlds) {
		return nil, fmt.Errorf("%w: degenerate dispersion at the reference pixel", ErrInvalidParameters)
	}

	return &Grating{
		params:   p,
		scale:    scale,
		denom:    denom,
		theta:    theta,
		sr:       sr,
		sinBetaR: math.Sin(betaR),
		dlds:     dlds,
	}, nil
}

// Params returns the defining parameters.
func (t *Grating) Params() Params { return t.params }

// Wavelength evaluates the spectral axis at 0-based pixel p.
func (t *Grating) Wavelength(p float64) float64 {
	w := t.params.Spectral.Offset(p)
	beta := math.Atan(t.sr+w/t.dlds) + t.theta
	return t.params.Spectral.RefValue + (math.Sin(beta)-t.sinBetaR)/t.denom/t.scale
}

// Offset returns the intermediate coordinate w for a wavelength. It depends
// only on the grating constants and CRVAL1, never on CRPIX1 or CDELT1.
func (t *Grating) Offset(lambda float64) (float64, error) {
	sinBeta := t.sinBetaR + (lambda-t.params.Spectral.RefValue)*t.scale*t.denom
	if math.Abs(sinBeta) > 1 {
		return math.NaN(), fmt.Errorf("%w: wavelength %g", ErrOutOfDomain, lambda)
	}
	phi := math.Asin(sinBeta) - t.theta
	if math.Abs(phi) >= math.Pi/2 {
		return math.NaN(), fmt.Errorf("%w: wavelength %g misses the camera", ErrOutOfDomain, lambda)
	}
	return (math.Tan(phi) - t.sr) * t.dlds, nil
}

// PixelToWorld evaluates both axes.
func (t *Grating) PixelToWorld(x, y []float64) ([]float64, []float64, error) {
	if err := checkLengths(x, y); err != nil {
		return nil, nil, err
	}
	spectral := make([]float64, len(x))
	spatial := make([]float64, len(y))
	for i := range x {
		spectral[i] = t.Wavelength(x[i])
		spatial[i] = t.params.Spatial.At(y[i])
	}
	return spectral, spatial, nil
}

// WorldToPixel inverts both axes. Wavelengths outside the diffracted range
// produce NaN pixels and an ErrOutOfDomain error naming the first offender.
func (t *Grating) WorldToPixel(spectral, spatial []float64) ([]float64, []float64, error) {
	if err := checkLengths(spectral, spatial); err != nil {
		return nil, nil, err
	}
	x := make([]float64, len(spectral))
	y := make([]float64, len(spatial))
	var firstErr error
	for i := range spectral {
		w, err := t.Offset(spectral[i])
		if err != nil && firstErr == nil {
			firstErr = err
		}
		x[i] = w/t.params.Spectral.Step + t.params.Spectral.RefPixel - 1
		y[i] = t.params.Spatial.Pixel(spatial[i])
	}
	return x, y, firstErr
}
