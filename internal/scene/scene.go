// Package scene synthesizes two-dimensional arc-lamp detector images whose
// emission-line positions follow a known ground-truth dispersion model, and
// stamps them with a deliberately approximate coordinate system for a
// calibrator to start from.
package scene

import (
	"gonum.org/v1/gonum/mat"

	"github.com/nvandessel/wavecal/internal/linelist"
	"github.com/nvandessel/wavecal/internal/wcs"
)

// InjectedLine is a catalog line rendered into a scene.
type InjectedLine struct {
	linelist.Line
	// Column is the 0-based ground-truth centre on the middle detector row.
	Column float64 `json:"column"`
	// Amplitude is the rendered peak height above background, in counts.
	Amplitude float64 `json:"amplitude"`
}

// Scene is an immutable synthetic detector image. Rows run along the spatial
// axis and columns along the dispersion axis.
type Scene struct {
	width, height int
	flux          *mat.Dense
	uncertainty   *mat.Dense
	mask          []bool

	approx          wcs.Params
	approxTransform wcs.Transform

	lineFWHM float64
	lines    []InjectedLine
	noisy    bool
	seed     uint64
}

// Width returns the number of detector columns.
func (s *Scene) Width() int { return s.width }

// Height returns the number of detector rows.
func (s *Scene) Height() int { return s.height }

// Flux returns a read-only view of the image.
func (s *Scene) Flux() mat.Matrix { return readOnly{s.flux} }

// Uncertainty returns a read-only view of the per-pixel 1-sigma errors.
// Noiseless scenes carry zero uncertainty.
func (s *Scene) Uncertainty() mat.Matrix { return readOnly{s.uncertainty} }

// Row returns a copy of one image row.
func (s *Scene) Row(r int) []float64 {
	out := make([]float64, s.width)
	mat.Row(out, r, s.flux)
	return out
}

// Mask returns a copy of the bad-pixel mask, indexed row*Width()+col.
func (s *Scene) Mask() []bool {
	out := make([]bool, len(s.mask))
	copy(out, s.mask)
	return out
}

// Approx returns the parameters of the attached approximate transform.
func (s *Scene) Approx() wcs.Params { return s.approx }

// WCS returns the attached approximate transform.
func (s *Scene) WCS() wcs.Transform { return s.approxTransform }

// LineFWHM returns the rendered line-spread FWHM in pixels.
func (s *Scene) LineFWHM() float64 { return s.lineFWHM }

// Lines returns the injected lines whose centre falls on the detector,
// sorted by wavelength.
func (s *Scene) Lines() []InjectedLine {
	out := make([]InjectedLine, len(s.lines))
	copy(out, s.lines)
	return out
}

// ReferenceWavelengths returns the wavelengths of the injected lines.
func (s *Scene) ReferenceWavelengths() []float64 {
	out := make([]float64, len(s.lines))
	for i, l := range s.lines {
		out[i] = l.Wavelength
	}
	return out
}

// Noisy reports whether noise was added.
func (s *Scene) Noisy() bool { return s.noisy }

// Seed returns the seed the noise was drawn with; zero for noiseless scenes.
func (s *Scene) Seed() uint64 { return s.seed }

// readOnly hides the mutating methods of a Dense.
type readOnly struct {
	m *mat.Dense
}

func (r readOnly) Dims() (int, int)    { return r.m.Dims() }
func (r readOnly) At(i, j int) float64 { return r.m.At(i, j) }
func (r readOnly) T() mat.Matrix       { return mat.Transpose{Matrix: r} }
