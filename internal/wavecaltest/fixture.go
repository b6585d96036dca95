package wavecaltest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nvandessel/wavecal/internal/harness"
	"github.com/nvandessel/wavecal/internal/logging"
	"github.com/nvandessel/wavecal/internal/runner"
	"github.com/nvandessel/wavecal/internal/scenario"
	"github.com/nvandessel/wavecal/internal/scene"
	"github.com/nvandessel/wavecal/internal/store"
	"github.com/nvandessel/wavecal/internal/wcs"
)

// Option adjusts a scenario before its scene is generated.
type Option func(*scenario.Scenario)

// WithHeight sets the number of detector rows.
func WithHeight(h int) Option { return func(s *scenario.Scenario) { s.Height = h } }

// WithNoise switches photon and read noise on or off.
func WithNoise(on bool) Option { return func(s *scenario.Scenario) { s.Noise = on } }

// WithSeed fixes the noise seed.
func WithSeed(seed uint64) Option { return func(s *scenario.Scenario) { s.Seed = seed } }

// WithTolerance replaces the comparison tolerance.
func WithTolerance(tol harness.Tolerance) Option {
	return func(s *scenario.Scenario) { s.Tolerance = tol }
}

// Built is a generated scene with everything needed to judge a calibrator.
type Built struct {
	Scenario *scenario.Scenario
	Scene    *scene.Scene
	Truth    wcs.Transform
	Extras   harness.Extras
}

// Fixture builds scenes, cases and runs for one test.
type Fixture struct {
	t     *testing.T
	Root  string
	Store *store.SQLiteRunStore
}

// New creates a fixture with an isolated run store and sandboxed HOME.
func New(t *testing.T) *Fixture {
	t.Helper()
	root := t.TempDir()
	t.Setenv("HOME", root)

	st, err := store.NewSQLiteRunStore(root)
	require.NoError(t, err, "opening run store")
	t.Cleanup(func() { st.Close() })

	return &Fixture{t: t, Root: root, Store: st}
}

// Scenario loads a built-in scenario and applies opts.
func (f *Fixture) Scenario(name string, opts ...Option) *scenario.Scenario {
	f.t.Helper()
	sc, err := scenario.Builtin(name)
	require.NoError(f.t, err)
	for _, opt := range opts {
		opt(sc)
	}
	require.NoError(f.t, sc.Validate())
	return sc
}

// Build generates a fresh scene for the named scenario.
func (f *Fixture) Build(name string, opts ...Option) *Built {
	f.t.Helper()
	sc := f.Scenario(name, opts...)

	truth, err := sc.TruthTransform()
	require.NoError(f.t, err)
	req, err := sc.Request(truth, 0)
	require.NoError(f.t, err)
	s, err := scene.Generate(req)
	require.NoError(f.t, err, "generating %s", name)
	extras, err := sc.Extras(truth)
	require.NoError(f.t, err)

	return &Built{Scenario: sc, Scene: s, Truth: truth, Extras: extras}
}

// Case returns a new WaveCal case for the named scenario and the extras its
// hints call for.
func (f *Fixture) Case(name string, opts ...Option) (*harness.WaveCalCase, harness.Extras) {
	f.t.Helper()
	b := f.Build(name, opts...)
	return harness.NewWaveCalCase(b.Scene, b.Truth, b.Scenario.Tolerance), b.Extras
}

// Runner returns a runner recording into the fixture's store.
func (f *Fixture) Runner() *runner.Runner {
	return runner.New(f.Store, logging.Discard(), nil)
}

// Run runs a scenario end to end and returns its result. Setup errors fail
// the test immediately.
func (f *Fixture) Run(sc *scenario.Scenario, calibrator string) *runner.Result {
	f.t.Helper()
	res, err := f.Runner().Run(f.t.Context(), sc, calibrator)
	require.NoError(f.t, err)
	return res
}
