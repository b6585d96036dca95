package wcs

import (
	"fmt"
	"math"
	"strings"
)

// Axis is a linear FITS axis description. Pixel coordinates are 0-based array
// indices; the FITS pixel number is p+1.
type Axis struct {
	Type     string
	Unit     string
	RefPixel float64 // CRPIXn, 1-based
	RefValue float64 // CRVALn
	Step     float64 // CDELTn
}

// Offset returns the intermediate world coordinate for 0-based pixel p.
func (a Axis) Offset(p float64) float64 {
	return a.Step * ((p + 1) - a.RefPixel)
}

// At returns the linear world value at 0-based pixel p.
func (a Axis) At(p float64) float64 {
	return a.RefValue + a.Offset(p)
}

// Pixel inverts At.
func (a Axis) Pixel(v float64) float64 {
	return (v-a.RefValue)/a.Step + a.RefPixel - 1
}

// GratingConstants are the PV1_m parameters of the -GRA algorithm.
type GratingConstants struct {
	Density              float64 // PV1_0, rulings per metre
	Order                int     // PV1_1
	IncidenceAngle       float64 // PV1_2, degrees
	RefractiveIndex      float64 // PV1_3
	RefractionDerivative float64 // PV1_4, per metre
	OutOfPlaneAngle      float64 // PV1_5, degrees
	CameraAngle          float64 // PV1_6, degrees
}

// Params fully determine a pixel<->world transform.
type Params struct {
	Spectral Axis
	Grating  GratingConstants
	Spatial  Axis
}

// Algorithm splits CTYPE1 into its base type ("WAVE", "AWAV") and algorithm
// code ("" for linear, "GRA" for grating).
func (p Params) Algorithm() (base, code string, err error) {
	ctype := strings.ToUpper(strings.TrimSpace(p.Spectral.Type))
	base, code, _ = strings.Cut(ctype, "-")
	code = strings.Trim(code, "-")
	switch base {
	case "WAVE", "AWAV":
	default:
		return "", "", fmt.Errorf("%w: CTYPE1=%q", ErrUnsupportedType, p.Spectral.Type)
	}
	switch code {
	case "", "GRA":
	default:
		return "", "", fmt.Errorf("%w: CTYPE1=%q", ErrUnsupportedType, p.Spectral.Type)
	}
	return base, code, nil
}

// IsGrating reports whether CTYPE1 selects the grating dispersion algorithm.
func (p Params) IsGrating() bool {
	_, code, err := p.Algorithm()
	return err == nil && code == "GRA"
}

// Validate checks that the parameters describe a realisable transform.
func (p Params) Validate() error {
	if _, _, err := p.Algorithm(); err != nil {
		return err
	}
	if _, err := UnitScale(p.Spectral.Unit); err != nil {
		return err
	}
	for name, v := range map[string]float64{
		"CRPIX1": p.Spectral.RefPixel, "CRVAL1": p.Spectral.RefValue, "CDELT1": p.Spectral.Step,
		"CRPIX2": p.Spatial.RefPixel, "CRVAL2": p.Spatial.RefValue, "CDELT2": p.Spatial.Step,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrInvalidParameters, name)
		}
	}
	if p.Spectral.Step == 0 {
		return fmt.Errorf("%w: CDELT1 must be non-zero", ErrInvalidParameters)
	}
	if p.Spatial.Step == 0 {
		return fmt.Errorf("%w: CDELT2 must be non-zero", ErrInvalidParameters)
	}
	if !p.IsGrating() {
		return nil
	}

	g := p.Grating
	if !(g.Density > 0) || math.IsInf(g.Density, 0) {
		return fmt.Errorf("%w: grating density must be positive, got %g", ErrInvalidParameters, g.Density)
	}
	if g.Order == 0 {
		return fmt.Errorf("%w: diffraction order must be non-zero", ErrInvalidParameters)
	}
	for name, v := range map[string]float64{
		"PV1_2": g.IncidenceAngle, "PV1_3": g.RefractiveIndex, "PV1_4": g.RefractionDerivative,
		"PV1_5": g.OutOfPlaneAngle, "PV1_6": g.CameraAngle,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrInvalidParameters, name)
		}
	}
	if math.Abs(g.OutOfPlaneAngle) >= 90 {
		return fmt.Errorf("%w: out-of-plane angle must be within (-90, 90) degrees", ErrInvalidParameters)
	}
	return nil
}
