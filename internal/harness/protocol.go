// Package harness defines the test-case protocol shared by every category of
// reduction algorithm under test, plus the wavelength-calibration and
// trace-fitting cases built on it.
//
// A case owns four slots: InputData, OutputData, TestResult and
// ExpectedOutput. Running a model and judging its output are separate
// operations, so each algorithm category supplies its own validation rule:
//
//	c := harness.NewWaveCalCase(scn, truth, harness.DefaultTolerance())
//	err := harness.Invoke(ctx, c, calibrator, nil)
//
// Cases are single-use. Build a fresh one per run.
package harness

import (
	"context"
	"time"
)

// Case is the capability set every concrete test case implements. M is the
// model type the case knows how to call.
type Case[M any] interface {
	// TestModel calls model with the case's input data and extras and
	// stores the outcome in the case before returning. A nil extras is
	// delivered to the model as an empty mapping.
	TestModel(ctx context.Context, model M, extras Extras) error
	// ValidateOutput judges output against the case's expected output.
	ValidateOutput(output any) error
}

// Result records one TestModel run.
type Result struct {
	Passed  bool          `json:"passed"`
	Err     error         `json:"-"`
	Elapsed time.Duration `json:"elapsed"`
}

// Error returns the failure message, or "" when the run passed.
func (r *Result) Error() string {
	if r == nil || r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Base holds the named slots of a test case. Its entry points have no
// default behavior: embed it and override both.
type Base[M, In, Out, Exp any] struct {
	InputData      In
	OutputData     Out
	TestResult     *Result
	ExpectedOutput Exp
}

// TestModel reports ErrNotImplemented.
func (b *Base[M, In, Out, Exp]) TestModel(context.Context, M, Extras) error {
	return ErrNotImplemented
}

// ValidateOutput reports ErrNotImplemented.
func (b *Base[M, In, Out, Exp]) ValidateOutput(any) error {
	return ErrNotImplemented
}

// Invoke runs a case against a model. It is exactly c.TestModel and exists so
// callers can treat any case as a callable.
func Invoke[M any](ctx context.Context, c Case[M], model M, extras Extras) error {
	return c.TestModel(ctx, model, extras)
}

// finish stamps the result slot.
func finish(start time.Time, err error) *Result {
	return &Result{Passed: err == nil, Err: err, Elapsed: time.Since(start)}
}
