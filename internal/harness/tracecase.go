package harness

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
)

// Tracer locates a spectrum's spatial centre at every dispersion column.
// Columns it cannot trace are NaN.
type Tracer interface {
	Trace(ctx context.Context, img mat.Matrix, extras Extras) ([]float64, error)
}

// TracerFunc adapts a function to Tracer.
type TracerFunc func(ctx context.Context, img mat.Matrix, extras Extras) ([]float64, error)

// Trace calls f.
func (f TracerFunc) Trace(ctx context.Context, img mat.Matrix, extras Extras) ([]float64, error) {
	return f(ctx, img, extras)
}

// TraceReport summarizes a per-column trace comparison.
type TraceReport struct {
	Columns     int     `json:"columns"`
	Compared    int     `json:"compared"`
	Failures    int     `json:"failures"`
	MaxAbsDev   float64 `json:"max_abs_dev"`
	WorstColumn int     `json:"worst_column"`
	Tolerance   float64 `json:"tolerance"`
}

// TraceCase checks a tracer against a known trace.
type TraceCase struct {
	Base[Tracer, mat.Matrix, []float64, []float64]

	// Tolerance is the absolute per-column tolerance in pixels.
	Tolerance float64

	consumed bool
	report   *TraceReport
}

var _ Case[Tracer] = (*TraceCase)(nil)

// NewTraceCase builds a fresh case. NaN entries of truth are not compared.
func NewTraceCase(img mat.Matrix, truth []float64, tol float64) *TraceCase {
	c := &TraceCase{Tolerance: tol}
	c.InputData = img
	c.ExpectedOutput = append([]float64(nil), truth...)
	return c
}

// Report returns the last comparison, or nil if none ran.
func (c *TraceCase) Report() *TraceReport { return c.report }

// TestModel runs tr on the image and validates its trace.
func (c *TraceCase) TestModel(ctx context.Context, tr Tracer, extras Extras) error {
	if c.consumed {
		return ErrSceneConsumed
	}
	c.consumed = true
	extras = NormalizeExtras(extras)
	start := time.Now()

	var err error
	if tr == nil {
		err = ErrNilModel
	} else {
		c.OutputData, err = tr.Trace(ctx, c.InputData, extras)
		if err != nil {
			err = fmt.Errorf("tracer: %w", err)
		} else {
			err = c.ValidateOutput(c.OutputData)
		}
	}
	c.TestResult = finish(start, err)
	return err
}

// ValidateOutput compares every column with a finite expected position.
func (c *TraceCase) ValidateOutput(output any) error {
	got, ok := output.([]float64)
	if !ok {
		return fmt.Errorf("%w: want []float64, got %T", ErrUnexpectedOutput, output)
	}
	want := c.ExpectedOutput
	if len(got) != len(want) {
		return fmt.Errorf("%w: trace has %d columns, want %d", ErrUnexpectedOutput, len(got), len(want))
	}

	rep := &TraceReport{Columns: len(want), Tolerance: c.Tolerance}
	for i := range want {
		if math.IsNaN(want[i]) {
			continue
		}
		rep.Compared++
		d := math.Abs(got[i] - want[i])
		if math.IsNaN(d) {
			d = math.MaxFloat64
		}
		if d > c.Tolerance {
			rep.Failures++
		}
		if d > rep.MaxAbsDev {
			rep.MaxAbsDev = d
			rep.WorstColumn = i
		}
	}
	c.report = rep
	if rep.Failures > 0 {
		return fmt.Errorf("%w: %d of %d columns off by more than %g px (max %.4g at column %d)",
			ErrToleranceExceeded, rep.Failures, rep.Compared, c.Tolerance, rep.MaxAbsDev, rep.WorstColumn)
	}
	return nil
}
