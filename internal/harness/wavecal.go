package harness

import (
	"context"
	"fmt"
	"time"

	"github.com/nvandessel/wavecal/internal/scene"
	"github.com/nvandessel/wavecal/internal/wcs"
)

// WaveCalInput is what a calibrator is given: the scene and the rest
// wavelengths of the lines injected into it.
type WaveCalInput struct {
	Scene                *scene.Scene
	ReferenceWavelengths []float64
}

// WaveCalCase checks a calibrator against a scene's ground truth.
type WaveCalCase struct {
	Base[Calibrator, WaveCalInput, *Product, wcs.Transform]

	Tolerance Tolerance

	consumed bool
	report   *Report
}

var _ Case[Calibrator] = (*WaveCalCase)(nil)

// NewWaveCalCase builds a fresh case for one calibrator run.
func NewWaveCalCase(s *scene.Scene, truth wcs.Transform, tol Tolerance) *WaveCalCase {
	c := &WaveCalCase{Tolerance: tol}
	c.InputData = WaveCalInput{Scene: s, ReferenceWavelengths: s.ReferenceWavelengths()}
	c.ExpectedOutput = truth
	return c
}

// Report returns the last full-grid comparison, or nil if none ran.
func (c *WaveCalCase) Report() *Report { return c.report }

// TestModel runs cal on the scene. A product with Success = false fails the
// case with ErrCalibrationFailed before any comparison; otherwise the product
// is checked with ValidateOutput. The outcome is stored in TestResult.
func (c *WaveCalCase) TestModel(ctx context.Context, cal Calibrator, extras Extras) error {
	if c.consumed {
		return ErrSceneConsumed
	}
	c.consumed = true
	extras = NormalizeExtras(extras)
	start := time.Now()

	err := c.run(ctx, cal, extras)
	c.TestResult = finish(start, err)
	return err
}

func (c *WaveCalCase) run(ctx context.Context, cal Calibrator, extras Extras) error {
	if cal == nil {
		return ErrNilModel
	}
	out, err := cal.Calibrate(ctx, c.InputData.Scene, extras)
	c.OutputData = out
	if err != nil {
		return fmt.Errorf("calibrator: %w", err)
	}
	if out == nil || !out.Success {
		msg := "no product"
		if out != nil {
			msg = out.Message
		}
		return fmt.Errorf("%w: %s", ErrCalibrationFailed, msg)
	}
	return c.ValidateOutput(out)
}

// ValidateOutput compares the product's transform with the ground truth over
// every pixel of the scene.
func (c *WaveCalCase) ValidateOutput(output any) error {
	p, ok := output.(*Product)
	if !ok || p == nil {
		return fmt.Errorf("%w: want *Product, got %T", ErrUnexpectedOutput, output)
	}
	if !p.Success {
		return fmt.Errorf("%w: %s", ErrCalibrationFailed, p.Message)
	}
	s := c.InputData.Scene
	w, h := s.Width(), s.Height()
	if (p.Width != 0 && p.Width != w) || (p.Height != 0 && p.Height != h) {
		return fmt.Errorf("%w: product is %dx%d, scene is %dx%d", ErrUnexpectedOutput, p.Width, p.Height, w, h)
	}
	if p.WCS == nil {
		return fmt.Errorf("%w: product carries no transform", ErrUnexpectedOutput)
	}
	rep, err := CompareTransforms(p.WCS, c.ExpectedOutput, w, h, c.Tolerance)
	c.report = rep
	return err
}
