package wcs

import "fmt"

// Polynomial is a spectral polynomial in the normalised pixel coordinate
// u = (x - Center)/Scale over a linear spatial axis. It is the solution form
// produced by polynomial wavelength fits.
type Polynomial struct {
	Center  float64
	Scale   float64
	Coeffs  []float64 // Coeffs[k] multiplies u^k
	Spatial Axis
}

var _ Transform = (*Polynomial)(nil)

// NewPolynomial copies coeffs and validates the normalisation.
func NewPolynomial(center, scale float64, coeffs []float64, spatial Axis) (*Polynomial, error) {
	if scale == 0 {
		return nil, fmt.Errorf("%w: polynomial scale must be non-zero", ErrInvalidParameters)
	}
	if len(coeffs) == 0 {
		return nil, fmt.Errorf("%w: polynomial needs at least one coefficient", ErrInvalidParameters)
	}
	if spatial.Step == 0 {
		return nil, fmt.Errorf("%w: CDELT2 must be non-zero", ErrInvalidParameters)
	}
	c := make([]float64, len(coeffs))
	copy(c, coeffs)
	return &Polynomial{Center: center, Scale: scale, Coeffs: c, Spatial: spatial}, nil
}

// Degree returns the polynomial degree.
func (p *Polynomial) Degree() int { return len(p.Coeffs) - 1 }

// Wavelength evaluates the spectral polynomial at 0-based pixel x (Horner).
func (p *Polynomial) Wavelength(x float64) float64 {
	u := (x - p.Center) / p.Scale
	v := 0.0
	for k := len(p.Coeffs) - 1; k >= 0; k-- {
		v = v*u + p.Coeffs[k]
	}
	return v
}

// PixelToWorld evaluates both axes.
func (p *Polynomial) PixelToWorld(x, y []float64) ([]float64, []float64, error) {
	if err := checkLengths(x, y); err != nil {
		return nil, nil, err
	}
	spectral := make([]float64, len(x))
	spatial := make([]float64, len(y))
	for i := range x {
		spectral[i] = p.Wavelength(x[i])
		spatial[i] = p.Spatial.At(y[i])
	}
	return spectral, spatial, nil
}
