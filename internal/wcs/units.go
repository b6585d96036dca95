package wcs

import (
	"fmt"
	"strings"
)

// unitScale maps spectral unit tags to metres.
var unitScale = map[string]float64{
	"angstrom": 1e-10,
	"nm":       1e-9,
	"um":       1e-6,
	"m":        1.0,
}

// UnitScale returns the factor converting a spectral value in unit to metres.
// Matching is case-insensitive; an empty unit means Angstrom.
func UnitScale(unit string) (float64, error) {
	u := strings.ToLower(strings.TrimSpace(unit))
	if u == "" {
		u = "angstrom"
	}
	if u == "a" || u == "aa" {
		u = "angstrom"
	}
	s, ok := unitScale[u]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedUnit, unit)
	}
	return s, nil
}

// FromAngstrom converts wavelengths in Angstrom, the line catalogs' unit, to
// unit.
func FromAngstrom(angstroms []float64, unit string) ([]float64, error) {
	scale, err := UnitScale(unit)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(angstroms))
	for i, w := range angstroms {
		out[i] = w
		if scale != unitScale["angstrom"] {
			out[i] = w * unitScale["angstrom"] / scale
		}
	}
	return out, nil
}

// UnitOf returns the spectral unit of t when it can describe itself, or
// Angstrom otherwise.
func UnitOf(t Transform) string {
	if d, ok := t.(Describer); ok && d.Params().Spectral.Unit != "" {
		return d.Params().Spectral.Unit
	}
	return "Angstrom"
}
