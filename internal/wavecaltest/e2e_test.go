package wavecaltest_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/nvandessel/wavecal/internal/calibrate"
	"github.com/nvandessel/wavecal/internal/harness"
	"github.com/nvandessel/wavecal/internal/scene"
	"github.com/nvandessel/wavecal/internal/store"
	"github.com/nvandessel/wavecal/internal/trace"
	"github.com/nvandessel/wavecal/internal/wavecaltest"
)

func lookup(t *testing.T, name string) harness.Calibrator {
	t.Helper()
	cal, err := calibrate.Lookup(name)
	require.NoError(t, err)
	return cal
}

// TestE2EArgonGrating is the reference end-to-end check: a 1024x512 Ar II
// scene dispersed by a 500 lines/mm grating, with noise, an approximate
// linear solution attached, and the ground truth handed over as a hint.
func TestE2EArgonGrating(t *testing.T) {
	f := wavecaltest.New(t)
	b := f.Build("argon-grating")

	require.Equal(t, 1024, b.Scene.Width())
	require.Equal(t, 512, b.Scene.Height())
	require.True(t, b.Scene.Noisy())
	require.Contains(t, b.Extras, harness.KeyTruth)

	c := harness.NewWaveCalCase(b.Scene, b.Truth, b.Scenario.Tolerance)
	err := harness.Invoke(context.Background(), harness.Case[harness.Calibrator](c), lookup(t, "oracle"), b.Extras)
	wavecaltest.RequirePassed(t, c, err)

	rep := c.Report()
	assert.Equal(t, 1024*512, rep.Points)
	assert.Equal(t, 1e-6, rep.Tolerance.Rel)
}

// TestE2EArgonGratingBlind recovers the solution without the truth: only
// the instrument constants and reference wavelength are supplied.
func TestE2EArgonGratingBlind(t *testing.T) {
	tests := []struct {
		name string
		opts []wavecaltest.Option
	}{
		{"noiseless", nil},
		{"noisy full detector", []wavecaltest.Option{
			wavecaltest.WithHeight(512),
			wavecaltest.WithNoise(true),
			wavecaltest.WithSeed(20240501),
			// Photon noise limits centroids to a few hundredths of a pixel.
			wavecaltest.WithTolerance(harness.Tolerance{Abs: 0.25}),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := wavecaltest.New(t)
			c, extras := f.Case("argon-grating-blind", tt.opts...)
			require.NotContains(t, extras, harness.KeyTruth)

			err := c.TestModel(context.Background(), lookup(t, "grating"), extras)
			wavecaltest.RequirePassed(t, c, err)
			assert.GreaterOrEqual(t, len(c.OutputData.Matches), 3)
		})
	}
}

func TestE2ENeonLinear(t *testing.T) {
	f := wavecaltest.New(t)
	c, extras := f.Case("neon-linear")
	assert.Equal(t, 3, extras[harness.KeyDegree])

	err := c.TestModel(context.Background(), lookup(t, "linear"), extras)
	wavecaltest.RequirePassed(t, c, err)
}

func TestE2ENominalRejected(t *testing.T) {
	f := wavecaltest.New(t)
	c, extras := f.Case("argon-nominal", wavecaltest.WithHeight(16))

	err := c.TestModel(context.Background(), lookup(t, "nominal"), extras)
	wavecaltest.RequireRejected(t, c, err, harness.ErrToleranceExceeded)

	rep := c.Report()
	require.NotNil(t, rep)
	assert.Greater(t, rep.MaxAbsDev, 100.0, "nominal solution should be off by many Angstrom")
	assert.Contains(t, err.Error(), "max |Δ|=")
}

func TestE2EFailedCalibrationSkipsComparison(t *testing.T) {
	f := wavecaltest.New(t)
	c, _ := f.Case("argon-grating-blind", wavecaltest.WithHeight(4))

	// The oracle has nothing to return without a truth hint.
	err := c.TestModel(context.Background(), lookup(t, "oracle"), nil)
	wavecaltest.RequireRejected(t, c, err, harness.ErrCalibrationFailed)
	assert.Nil(t, c.Report(), "comparison ran after a failed calibration")
}

func TestE2ENilExtrasReachModelAsEmpty(t *testing.T) {
	f := wavecaltest.New(t)
	c, _ := f.Case("argon-grating", wavecaltest.WithHeight(4), wavecaltest.WithNoise(false))

	var seen harness.Extras
	spy := harness.CalibratorFunc(func(ctx context.Context, s *scene.Scene, extras harness.Extras) (*harness.Product, error) {
		seen = extras
		return harness.Failed("spy"), nil
	})
	_ = c.TestModel(context.Background(), spy, nil)

	require.NotNil(t, seen)
	assert.Empty(t, seen)
}

func TestE2EFixturesAreIndependent(t *testing.T) {
	f := wavecaltest.New(t)
	a, _ := f.Case("argon-grating-blind", wavecaltest.WithHeight(4))
	b, _ := f.Case("argon-grating-blind", wavecaltest.WithHeight(4))
	require.NotSame(t, a, b)
	require.NotSame(t, a.InputData.Scene, b.InputData.Scene)

	// Noiseless regeneration is bit-identical.
	assert.True(t, mat.Equal(a.InputData.Scene.Flux(), b.InputData.Scene.Flux()))

	cal := lookup(t, "grating")
	extras := harness.Extras{}
	_ = a.TestModel(context.Background(), cal, extras)
	assert.ErrorIs(t, a.TestModel(context.Background(), cal, extras), harness.ErrSceneConsumed)
	assert.Nil(t, b.TestResult, "second fixture saw the first one's run")
}

func TestE2ELinesRecovered(t *testing.T) {
	f := wavecaltest.New(t)
	b := f.Build("argon-grating-blind", wavecaltest.WithHeight(8))
	wavecaltest.AssertLinesRecovered(t, b.Scene, b.Truth)
}

func TestE2ERunsRecorded(t *testing.T) {
	f := wavecaltest.New(t)

	for _, name := range []string{"argon-grating-blind", "argon-nominal", "neon-linear"} {
		res := f.Run(f.Scenario(name, wavecaltest.WithHeight(8)), "")
		wavecaltest.RequireRunAsExpected(t, res)
	}

	runs, err := f.Store.List(context.Background(), store.Filter{})
	require.NoError(t, err)
	require.Len(t, runs, 3)
	for _, r := range runs {
		assert.True(t, r.AsExpected(), "recorded run %s (%s) not as expected", r.ID, r.Scenario)
	}
}

func TestE2ETraceCase(t *testing.T) {
	img, err := scene.GenerateTrace(scene.TraceRequest{
		Width: 400, Height: 60,
		Coeffs:    []float64{22, 18, -6},
		Sigma:     2.5,
		Amplitude: 1000,
	})
	require.NoError(t, err)

	c := harness.NewTraceCase(img.Flux(), img.Truth(), 0.05)
	err = c.TestModel(context.Background(), trace.KosmosTracer{}, nil)
	require.NoError(t, err)
	assert.True(t, c.TestResult.Passed)
	assert.LessOrEqual(t, c.Report().MaxAbsDev, 0.05)
}
