package wavecaltest

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvandessel/wavecal/internal/harness"
	"github.com/nvandessel/wavecal/internal/runner"
	"github.com/nvandessel/wavecal/internal/scene"
	"github.com/nvandessel/wavecal/internal/spectral"
	"github.com/nvandessel/wavecal/internal/wcs"
)

// RequirePassed asserts that a case ran cleanly: no error, a stored output
// and a passing result.
func RequirePassed(t *testing.T, c *harness.WaveCalCase, err error) {
	t.Helper()
	require.NoError(t, err, "case failed: %s", reportString(c))
	require.NotNil(t, c.OutputData, "no output stored")
	require.True(t, c.OutputData.Success, "calibrator reported failure: %s", c.OutputData.Message)
	require.NotNil(t, c.TestResult, "no test result stored")
	assert.True(t, c.TestResult.Passed)
	require.NotNil(t, c.Report(), "no comparison report")
	assert.Zero(t, c.Report().Failures)
}

// RequireRejected asserts that a case failed with target and that the stored
// result carries the failure.
func RequireRejected(t *testing.T, c *harness.WaveCalCase, err, target error) {
	t.Helper()
	require.ErrorIs(t, err, target)
	require.NotNil(t, c.TestResult)
	assert.False(t, c.TestResult.Passed)
	assert.ErrorIs(t, c.TestResult.Err, target)
}

// RequireRunAsExpected asserts that a runner result matches its scenario's
// designed outcome.
func RequireRunAsExpected(t *testing.T, res *runner.Result) {
	t.Helper()
	require.NotNil(t, res)
	require.True(t, res.AsExpected(), "run %s: passed=%v expected=%s err=%v", res.RunID, res.Passed, res.Expected, res.Err)
}

// AssertTransformsClose compares got with want over every pixel of a
// width x height grid.
func AssertTransformsClose(t *testing.T, got, want wcs.Transform, width, height int, tol harness.Tolerance) *harness.Report {
	t.Helper()
	rep, err := harness.CompareTransforms(got, want, width, height, tol)
	assert.NoError(t, err)
	return rep
}

// AssertLinesRecovered checks that a noiseless scene's detected peaks map
// through truth onto the injected wavelengths of its isolated lines, within
// one FWHM converted to wavelength.
func AssertLinesRecovered(t *testing.T, s *scene.Scene, truth wcs.Transform) {
	t.Helper()
	require.False(t, s.Noisy(), "line recovery needs a noiseless scene")

	fwhm := s.LineFWHM()
	profile := spectral.Collapse(s.Flux(), s.Mask())
	peaks := spectral.FindPeaks(profile, spectral.DefaultPeakOptions(fwhm))
	require.NotEmpty(t, peaks, "no peaks detected")

	positions := make([]float64, len(peaks))
	zeros := make([]float64, len(peaks))
	for i, p := range peaks {
		positions[i] = p.Position
	}
	lambdas, _, err := truth.PixelToWorld(positions, zeros)
	require.NoError(t, err)

	lines := s.Lines()
	checked := 0
	for i, l := range lines {
		if !isolatedColumn(lines, i, 3*fwhm) {
			continue
		}
		checked++
		step := localStep(truth, l.Column)
		best := math.Inf(1)
		for _, w := range lambdas {
			best = math.Min(best, math.Abs(w-l.Wavelength))
		}
		assert.LessOrEqual(t, best, fwhm*step, "line %.3f not recovered", l.Wavelength)
	}
	require.NotZero(t, checked, "no isolated lines to check")
}

func isolatedColumn(lines []scene.InjectedLine, i int, sep float64) bool {
	for j, o := range lines {
		if j != i && math.Abs(o.Column-lines[i].Column) < sep {
			return false
		}
	}
	return true
}

func localStep(t wcs.Transform, col float64) float64 {
	w, _, err := t.PixelToWorld([]float64{col - 0.5, col + 0.5}, []float64{0, 0})
	if err != nil {
		return math.NaN()
	}
	return math.Abs(w[1] - w[0])
}

func reportString(c *harness.WaveCalCase) string {
	if c == nil || c.Report() == nil {
		return "no report"
	}
	return c.Report().String()
}
