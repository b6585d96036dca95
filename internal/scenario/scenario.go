// Package scenario defines reproducible wavelength-calibration runs in YAML:
// the detector geometry, ground-truth and approximate dispersion headers,
// which calibrator to run, which extras it is handed and how closely its
// solution must match. A set of scenarios ships embedded in the binary.
package scenario

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nvandessel/wavecal/internal/constants"
	"github.com/nvandessel/wavecal/internal/harness"
	"github.com/nvandessel/wavecal/internal/scene"
	"github.com/nvandessel/wavecal/internal/wcs"
)

//go:embed builtin/*.yaml
var builtinFS embed.FS

// Sentinel errors for the scenario package.
var (
	ErrUnknownScenario = errors.New("scenario: unknown scenario")
	ErrInvalid         = errors.New("scenario: invalid scenario")
)

// Expectation is the outcome a scenario is designed to produce.
type Expectation string

const (
	ExpectPass Expectation = "pass"
	ExpectFail Expectation = "fail"
)

// Flux overrides the default scene flux levels.
type Flux struct {
	Background *float64 `yaml:"background,omitempty" json:"background,omitempty"`
	PeakFlux   *float64 `yaml:"peak_flux,omitempty" json:"peak_flux,omitempty"`
	ReadNoise  *float64 `yaml:"read_noise,omitempty" json:"read_noise,omitempty"`
	Saturation float64  `yaml:"saturation,omitempty" json:"saturation,omitempty"`
}

// Scenario is one calibration run definition.
type Scenario struct {
	Name        string            `yaml:"name" json:"name"`
	Description string            `yaml:"description" json:"description"`
	Width       int               `yaml:"width" json:"width"`
	Height      int               `yaml:"height" json:"height"`
	LineFWHM    float64           `yaml:"line_fwhm" json:"line_fwhm"`
	LineLists   []string          `yaml:"linelists" json:"linelists"`
	Noise       bool              `yaml:"noise" json:"noise"`
	Seed        uint64            `yaml:"seed,omitempty" json:"seed,omitempty"`
	Flux        Flux              `yaml:"flux,omitempty" json:"flux,omitempty"`
	Truth       wcs.Header        `yaml:"truth" json:"truth"`
	Approx      wcs.Header        `yaml:"approx" json:"approx"`
	Hints       []constants.Hint  `yaml:"hints,omitempty" json:"hints,omitempty"`
	Degree      int               `yaml:"degree,omitempty" json:"degree,omitempty"`
	Calibrator  string            `yaml:"calibrator" json:"calibrator"`
	Expect      Expectation       `yaml:"expect,omitempty" json:"expect,omitempty"`
	Tolerance   harness.Tolerance `yaml:"tolerance" json:"tolerance"`
}

// Parse decodes and validates a YAML scenario. Unknown fields are rejected.
func Parse(data []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	s := &Scenario{Tolerance: harness.DefaultTolerance()}
	if err := dec.Decode(s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Load reads a scenario file.
func Load(file string) (*Scenario, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return s, nil
}

// Names returns the built-in scenario names, sorted.
func Names() []string {
	entries, err := builtinFS.ReadDir("builtin")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), path.Ext(e.Name())))
	}
	sort.Strings(names)
	return names
}

// Builtin returns a built-in scenario by name.
func Builtin(name string) (*Scenario, error) {
	data, err := builtinFS.ReadFile("builtin/" + name + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownScenario, name, strings.Join(Names(), ", "))
	}
	return Parse(data)
}

// Resolve returns the built-in scenario called nameOrPath, or loads it from
// disk when it names a YAML file.
func Resolve(nameOrPath string) (*Scenario, error) {
	if strings.HasSuffix(nameOrPath, ".yaml") || strings.HasSuffix(nameOrPath, ".yml") {
		return Load(nameOrPath)
	}
	return Builtin(nameOrPath)
}

// Validate checks the scenario without building any transform.
func (s *Scenario) Validate() error {
	var problems []string
	if s.Name == "" {
		problems = append(problems, "name is required")
	}
	if s.Width < 2 || s.Height < 1 {
		problems = append(problems, fmt.Sprintf("image must be at least 2x1, got %dx%d", s.Width, s.Height))
	}
	if s.LineFWHM <= 0 {
		problems = append(problems, "line_fwhm must be positive")
	}
	if len(s.LineLists) == 0 {
		problems = append(problems, "at least one linelist is required")
	}
	if len(s.Truth) == 0 || len(s.Approx) == 0 {
		problems = append(problems, "truth and approx headers are required")
	}
	if s.Calibrator == "" {
		problems = append(problems, "calibrator is required")
	}
	for _, h := range s.Hints {
		if !h.Valid() {
			problems = append(problems, fmt.Sprintf("unknown hint %q", h))
		}
		if h == constants.HintDegree && s.Degree < 1 {
			problems = append(problems, "degree hint needs degree >= 1")
		}
	}
	switch s.Expect {
	case "", ExpectPass, ExpectFail:
	default:
		problems = append(problems, fmt.Sprintf("expect must be pass or fail, got %q", s.Expect))
	}
	if s.Tolerance.Rel < 0 || s.Tolerance.Abs < 0 {
		problems = append(problems, "tolerances must be non-negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// Expected returns the designed outcome, defaulting to ExpectPass.
func (s *Scenario) Expected() Expectation {
	if s.Expect == "" {
		return ExpectPass
	}
	return s.Expect
}

// TruthTransform builds the ground-truth transform.
func (s *Scenario) TruthTransform() (wcs.Transform, error) {
	t, err := wcs.FromHeader(s.Truth)
	if err != nil {
		return nil, fmt.Errorf("truth: %w", err)
	}
	return t, nil
}

// Request builds the scene generation request. seed overrides the
// scenario's seed when non-zero.
func (s *Scenario) Request(truth wcs.Transform, seed uint64) (scene.Request, error) {
	approx, err := wcs.ParseHeader(s.Approx)
	if err != nil {
		return scene.Request{}, fmt.Errorf("approx: %w", err)
	}
	req := scene.NewRequest(s.Width, s.Height, truth, approx, s.LineFWHM, s.Noise, s.LineLists...)
	req.Seed = s.Seed
	if seed != 0 {
		req.Seed = seed
	}
	if s.Flux.Background != nil {
		req.Background = *s.Flux.Background
	}
	if s.Flux.PeakFlux != nil {
		req.PeakFlux = *s.Flux.PeakFlux
	}
	if s.Flux.ReadNoise != nil {
		req.ReadNoise = *s.Flux.ReadNoise
	}
	req.Saturation = s.Flux.Saturation
	return req, nil
}

// Extras materializes the scenario's hints. The grating hint carries the
// truth's instrument constants and reference wavelength, with the reference
// pixel and dispersion replaced by the approximate solution's.
func (s *Scenario) Extras(truth wcs.Transform) (harness.Extras, error) {
	extras := harness.Extras{}
	for _, h := range s.Hints {
		switch h {
		case constants.HintTruth:
			extras[harness.KeyTruth] = truth
		case constants.HintGrating:
			p, err := wcs.ParseHeader(s.Truth)
			if err != nil {
				return nil, fmt.Errorf("truth: %w", err)
			}
			if !p.IsGrating() {
				return nil, fmt.Errorf("%w: grating hint on a %s truth", ErrInvalid, p.Spectral.Type)
			}
			approx, err := wcs.ParseHeader(s.Approx)
			if err != nil {
				return nil, fmt.Errorf("approx: %w", err)
			}
			p.Spectral.RefPixel = approx.Spectral.RefPixel
			p.Spectral.Step = approx.Spectral.Step
			extras[harness.KeyGrating] = p
		case constants.HintDegree:
			extras[harness.KeyDegree] = s.Degree
		}
	}
	return extras, nil
}
