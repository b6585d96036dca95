package calibrate

import (
	"context"

	"github.com/nvandessel/wavecal/internal/harness"
	"github.com/nvandessel/wavecal/internal/scene"
)

// Oracle returns the transform passed as extras["truth"]. It checks that
// the harness delivers hints and validates a perfect answer; it reports
// failure when no hint is present.
type Oracle struct{}

// Calibrate implements harness.Calibrator.
func (Oracle) Calibrate(ctx context.Context, s *scene.Scene, extras harness.Extras) (*harness.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	truth, ok, err := extras.Transform(harness.KeyTruth)
	if err != nil {
		return nil, err
	}
	if !ok {
		return harness.Failed(`oracle needs extras["truth"]`), nil
	}
	return &harness.Product{
		Success: true,
		WCS:     truth,
		Width:   s.Width(),
		Height:  s.Height(),
		Flux:    s.Flux(),
		Message: "ground truth echoed from extras",
	}, nil
}

// Nominal returns the scene's own approximate transform unchanged.
type Nominal struct{}

// Calibrate implements harness.Calibrator.
func (Nominal) Calibrate(ctx context.Context, s *scene.Scene, _ harness.Extras) (*harness.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &harness.Product{
		Success: true,
		WCS:     s.WCS(),
		Width:   s.Width(),
		Height:  s.Height(),
		Flux:    s.Flux(),
		Message: "nominal solution",
	}, nil
}
