package harness

import (
	"context"

	"gonum.org/v1/gonum/mat"

	"github.com/nvandessel/wavecal/internal/scene"
	"github.com/nvandessel/wavecal/internal/wcs"
)

// Calibrator recovers a pixel-to-wavelength transform from a scene. extras
// is always a non-nil mapping when called through a test case.
type Calibrator interface {
	Calibrate(ctx context.Context, s *scene.Scene, extras Extras) (*Product, error)
}

// CalibratorFunc adapts a function to Calibrator.
type CalibratorFunc func(ctx context.Context, s *scene.Scene, extras Extras) (*Product, error)

// Calibrate calls f.
func (f CalibratorFunc) Calibrate(ctx context.Context, s *scene.Scene, extras Extras) (*Product, error) {
	return f(ctx, s, extras)
}

// Match pairs a detected line with its identified catalog wavelength.
type Match struct {
	Pixel      float64 `json:"pixel"`
	Wavelength float64 `json:"wavelength"`
	Residual   float64 `json:"residual"` // fitted minus catalog wavelength
}

// Product is a calibrated spectral product. It is owned by the calibrator;
// the harness only reads it.
type Product struct {
	Success bool
	// WCS is the recovered transform; it must be usable over the full grid.
	WCS           wcs.Transform
	Width, Height int
	Flux          mat.Matrix
	Matches       []Match
	RMS           float64 // wavelength residual RMS of Matches
	Message       string
}

// Failed returns an unsuccessful product carrying msg.
func Failed(msg string) *Product {
	return &Product{Message: msg}
}
