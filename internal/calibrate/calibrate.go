// Package calibrate provides reference wavelength calibrators that satisfy
// harness.Calibrator. They exercise the harness end to end: an oracle that
// echoes a ground-truth hint, the nominal solution as a known-bad baseline,
// and two blind line-identification solvers.
package calibrate

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/nvandessel/wavecal/internal/harness"
)

// ErrUnknownCalibrator is returned by Lookup for unregistered names.
var ErrUnknownCalibrator = errors.New("calibrate: unknown calibrator")

var registry = map[string]func() harness.Calibrator{
	"oracle":  func() harness.Calibrator { return Oracle{} },
	"nominal": func() harness.Calibrator { return Nominal{} },
	"linear":  func() harness.Calibrator { return &Linear{} },
	"grating": func() harness.Calibrator { return &Grating{} },
}

// Names returns the registered calibrator names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Lookup returns a fresh calibrator by name.
func Lookup(name string) (harness.Calibrator, error) {
	ctor, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownCalibrator, name, strings.Join(Names(), ", "))
	}
	return ctor(), nil
}
