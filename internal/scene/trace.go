package scene

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/nvandessel/wavecal/internal/spectral"
)

// TraceRequest describes a synthetic single-source spectrum whose spatial
// centre follows a polynomial in the dispersion column.
type TraceRequest struct {
	Width, Height int
	// Coeffs give the centre row as sum Coeffs[k] * u^k with
	// u = col/(Width-1), so curvature is independent of image size.
	Coeffs     []float64
	Sigma      float64 // spatial profile sigma, pixels
	Amplitude  float64 // counts at the profile peak
	Background float64
	Noise      bool
	Seed       uint64
	ReadNoise  float64
}

// TraceImage is a synthetic spectrum image with its known trace.
type TraceImage struct {
	flux  *mat.Dense
	truth []float64
	seed  uint64
}

// Flux returns a read-only view of the image.
func (t *TraceImage) Flux() mat.Matrix { return readOnly{t.flux} }

// Truth returns a copy of the true centre row per column.
func (t *TraceImage) Truth() []float64 {
	out := make([]float64, len(t.truth))
	copy(out, t.truth)
	return out
}

// Seed returns the noise seed, zero for noiseless images.
func (t *TraceImage) Seed() uint64 { return t.seed }

// GenerateTrace renders a Gaussian spatial profile along the requested trace.
func GenerateTrace(req TraceRequest) (*TraceImage, error) {
	switch {
	case req.Width < 2 || req.Height < 3:
		return nil, fmt.Errorf("%w: trace image must be at least 2x3, got %dx%d", ErrInvalidRequest, req.Width, req.Height)
	case len(req.Coeffs) == 0:
		return nil, fmt.Errorf("%w: trace polynomial needs at least one coefficient", ErrInvalidRequest)
	case !(req.Sigma > 0) || !(req.Amplitude > 0) || req.Background < 0 || req.ReadNoise < 0:
		return nil, fmt.Errorf("%w: sigma and amplitude must be positive", ErrInvalidRequest)
	}

	truth := make([]float64, req.Width)
	for c := range truth {
		u := float64(c) / float64(req.Width-1)
		v := 0.0
		for k := len(req.Coeffs) - 1; k >= 0; k-- {
			v = v*u + req.Coeffs[k]
		}
		truth[c] = v
	}

	flux := mat.NewDense(req.Height, req.Width, nil)
	for r := 0; r < req.Height; r++ {
		row := flux.RawRowView(r)
		for c := range row {
			row[c] = req.Background + spectral.Gaussian(float64(r), req.Amplitude, truth[c], req.Sigma)
		}
	}

	img := &TraceImage{flux: flux, truth: truth}
	if req.Noise {
		unc := mat.NewDense(req.Height, req.Width, nil)
		img.seed = addNoise(flux, unc, req.ReadNoise, req.Seed)
	}
	for c, v := range truth {
		if v < 0 || v > float64(req.Height-1) || math.IsNaN(v) {
			img.truth[c] = math.NaN()
		}
	}
	return img, nil
}
