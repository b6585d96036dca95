package harness

import "errors"

// Sentinel errors for the harness package.
// Use errors.Is to check: errors.Is(err, harness.ErrCalibrationFailed)
var (
	// ErrNotImplemented is returned by Base when a concrete case has not
	// specialized an entry point. It signals a harness construction bug.
	ErrNotImplemented = errors.New("harness: test case entry point not implemented")

	// ErrCalibrationFailed means the calibrator reported success = false.
	// No transform comparison is attempted.
	ErrCalibrationFailed = errors.New("harness: calibration failed")

	// ErrToleranceExceeded means the full-grid comparison found coordinates
	// outside tolerance.
	ErrToleranceExceeded = errors.New("harness: recovered transform outside tolerance")

	// ErrMalformedExtras means an extras value (or the extras container
	// itself) is not of the expected kind.
	ErrMalformedExtras = errors.New("harness: malformed extras")

	// ErrSceneConsumed is returned when a case is run a second time; input
	// data is consumed by exactly one model invocation.
	ErrSceneConsumed = errors.New("harness: test case input already consumed")

	// ErrUnexpectedOutput means ValidateOutput received a value of the wrong
	// type or shape.
	ErrUnexpectedOutput = errors.New("harness: unexpected model output")

	// ErrNilModel is returned when TestModel is called without a model.
	ErrNilModel = errors.New("harness: nil model")
)
