// Package wcs models pixel-to-world coordinate transforms for two-axis
// spectral images: a dispersion (spectral) axis along image columns and a
// linear spatial axis along image rows.
//
// Transforms are built from FITS-style keyword headers:
//
//	p, err := wcs.ParseHeader(wcs.Header{
//	    "CTYPE1": "AWAV-GRA", "CUNIT1": "Angstrom",
//	    "CRPIX1": 719.8, "CRVAL1": 5500.0, "CDELT1": 3.418,
//	    "PV1_0": 5.0e5, "PV1_1": 1, "PV1_2": 30.0,
//	})
//	t, err := wcs.New(p)
//	lambda, y, err := t.PixelToWorld(xs, ys)
//
// Pixel coordinates are 0-based array indices throughout.
package wcs

import "fmt"

// Transform converts pixel coordinates to world coordinates. Inputs are flat
// slices of equal length holding any grid shape; outputs have the same length
// and ordering.
type Transform interface {
	PixelToWorld(x, y []float64) (spectral, spatial []float64, err error)
}

// Inverter is implemented by transforms with a closed-form spectral inverse.
type Inverter interface {
	WorldToPixel(spectral, spatial []float64) (x, y []float64, err error)
}

// Describer is implemented by transforms that can be expressed as Params.
type Describer interface {
	Params() Params
}

// New builds the transform selected by p's CTYPE1.
func New(p Params) (Transform, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.IsGrating() {
		return NewGrating(p)
	}
	return NewLinear(p)
}

// FromHeader parses h and builds its transform.
func FromHeader(h Header) (Transform, error) {
	p, err := ParseHeader(h)
	if err != nil {
		return nil, err
	}
	return New(p)
}

// Grid returns an xy-indexed meshgrid spanning every pixel of a width x height
// image. Element k = row*width + col holds (col, row).
func Grid(width, height int) (x, y []float64) {
	n := width * height
	x = make([]float64, n)
	y = make([]float64, n)
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			k := row*width + col
			x[k] = float64(col)
			y[k] = float64(row)
		}
	}
	return x, y
}

func checkLengths(a, b []float64) error {
	if len(a) != len(b) {
		return fmt.Errorf("%w: %d vs %d", ErrShapeMismatch, len(a), len(b))
	}
	return nil
}
