package wcs

import "fmt"

// Linear is a transform with linear spectral and spatial axes
// (CTYPE1 = WAVE or AWAV).
type Linear struct {
	params Params
}

var (
	_ Transform = (*Linear)(nil)
	_ Inverter  = (*Linear)(nil)
	_ Describer = (*Linear)(nil)
)

// NewLinear builds a linear transform. It ignores any grating constants.
func NewLinear(p Params) (*Linear, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.IsGrating() {
		return nil, fmt.Errorf("%w: %s is not a linear axis", ErrUnsupportedType, p.Spectral.Type)
	}
	p.Grating = GratingConstants{}
	return &Linear{params: p}, nil
}

// Params returns the defining parameters.
func (l *Linear) Params() Params { return l.params }

// PixelToWorld evaluates both axes.
func (l *Linear) PixelToWorld(x, y []float64) ([]float64, []float64, error) {
	if err := checkLengths(x, y); err != nil {
		return nil, nil, err
	}
	spectral := make([]float64, len(x))
	spatial := make([]float64, len(y))
	for i := range x {
		spectral[i] = l.params.Spectral.At(x[i])
		spatial[i] = l.params.Spatial.At(y[i])
	}
	return spectral, spatial, nil
}

// WorldToPixel inverts both axes.
func (l *Linear) WorldToPixel(spectral, spatial []float64) ([]float64, []float64, error) {
	if err := checkLengths(spectral, spatial); err != nil {
		return nil, nil, err
	}
	x := make([]float64, len(spectral))
	y := make([]float64, len(spatial))
	for i := range spectral {
		x[i] = l.params.Spectral.Pixel(spectral[i])
		y[i] = l.params.Spatial.Pixel(spatial[i])
	}
	return x, y, nil
}
