// Package runner orchestrates one scenario run: generate the scene, run the
// calibrator through a fresh WaveCal case, validate over the full grid and
// record the outcome.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/nvandessel/wavecal/internal/calibrate"
	"github.com/nvandessel/wavecal/internal/harness"
	"github.com/nvandessel/wavecal/internal/logging"
	"github.com/nvandessel/wavecal/internal/scenario"
	"github.com/nvandessel/wavecal/internal/scene"
	"github.com/nvandessel/wavecal/internal/store"
)

// Result is the outcome of one run. Err holds the case's failure, if any;
// Run itself only errors when the run could not be set up or recorded.
type Result struct {
	RunID      string               `json:"run_id"`
	Scenario   string               `json:"scenario"`
	Calibrator string               `json:"calibrator"`
	Seed       uint64               `json:"seed"`
	Tolerance  harness.Tolerance    `json:"tolerance"`
	Report     *harness.Report      `json:"report,omitempty"`
	Success    bool                 `json:"success"`
	Passed     bool                 `json:"passed"`
	Expected   scenario.Expectation `json:"expected"`
	Matches    int                  `json:"matches"`
	RMS        float64              `json:"rms"`
	Message    string               `json:"message,omitempty"`
	Elapsed    time.Duration        `json:"elapsed_ns"`
	Err        error                `json:"-"`
	Error      string               `json:"error,omitempty"`
}

// AsExpected reports whether the verdict matches the scenario's designed
// outcome.
func (r *Result) AsExpected() bool {
	if r.Expected == scenario.ExpectFail {
		return !r.Passed
	}
	return r.Passed
}

// Runner runs scenarios. The zero value runs without recording or logging.
type Runner struct {
	Store  store.RunStore
	Logger *slog.Logger
	Events *logging.EventLogger

	// Seed replaces the scenario's seed when non-zero.
	Seed uint64
	// Tolerance replaces the scenario's tolerance when set.
	Tolerance *harness.Tolerance
	// Timeout bounds each run when positive.
	Timeout time.Duration

	now func() time.Time
}

// New returns a Runner recording to st.
func New(st store.RunStore, logger *slog.Logger, events *logging.EventLogger) *Runner {
	return &Runner{Store: st, Logger: logger, Events: events}
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return logging.Discard()
	}
	return r.Logger
}

func (r *Runner) clock() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now()
}

// Run executes sc with the named calibrator, or the scenario's own when
// calibrator is empty.
func (r *Runner) Run(ctx context.Context, sc *scenario.Scenario, calibrator string) (*Result, error) {
	if sc == nil {
		return nil, fmt.Errorf("%w: nil scenario", scenario.ErrInvalid)
	}
	if calibrator == "" {
		calibrator = sc.Calibrator
	}
	cal, err := calibrate.Lookup(calibrator)
	if err != nil {
		return nil, err
	}
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	log := r.logger().With("scenario", sc.Name, "calibrator", calibrator)
	started := r.clock()

	truth, err := sc.TruthTransform()
	if err != nil {
		return nil, err
	}
	req, err := sc.Request(truth, r.Seed)
	if err != nil {
		return nil, err
	}
	s, err := scene.Generate(req)
	if err != nil {
		return nil, fmt.Errorf("generating scene: %w", err)
	}
	log.Debug("scene generated",
		"width", s.Width(), "height", s.Height(),
		"lines", len(s.Lines()), "noisy", s.Noisy(), "seed", s.Seed())

	extras, err := sc.Extras(truth)
	if err != nil {
		return nil, err
	}
	tol := sc.Tolerance
	if r.Tolerance != nil {
		tol = *r.Tolerance
	}

	c := harness.NewWaveCalCase(s, truth, tol)
	caseErr := harness.Invoke[harness.Calibrator](ctx, c, cal, extras)
	if ctxErr := ctx.Err(); ctxErr != nil && caseErr != nil && errors.Is(caseErr, ctxErr) {
		return nil, caseErr
	}

	res := &Result{
		RunID:      uuid.NewString(),
		Scenario:   sc.Name,
		Calibrator: calibrator,
		Seed:       s.Seed(),
		Tolerance:  tol,
		Report:     c.Report(),
		Expected:   sc.Expected(),
		Elapsed:    r.clock().Sub(started),
		Err:        caseErr,
	}
	if c.TestResult != nil {
		res.Passed = c.TestResult.Passed
	}
	if p := c.OutputData; p != nil {
		res.Success = p.Success
		res.Matches = len(p.Matches)
		res.RMS = p.RMS
		res.Message = p.Message
	}
	if caseErr != nil {
		res.Error = caseErr.Error()
	}

	attrs := []any{"run_id", res.RunID, "passed", res.Passed, "expected", res.Expected, "elapsed", res.Elapsed}
	if res.Report != nil {
		attrs = append(attrs, "max_abs_dev", res.Report.MaxAbsDev, "failures", res.Report.Failures)
	}
	switch {
	case res.AsExpected():
		log.Info("run finished", attrs...)
	default:
		log.Warn("run finished with unexpected verdict", append(attrs, "error", res.Error)...)
	}
	r.Events.Log(event(res))

	if r.Store != nil {
		if err := r.Store.Record(ctx, record(res, started)); err != nil {
			return res, fmt.Errorf("recording run: %w", err)
		}
	}
	return res, nil
}

func event(res *Result) map[string]any {
	e := map[string]any{
		"event":      "run_finished",
		"run_id":     res.RunID,
		"scenario":   res.Scenario,
		"calibrator": res.Calibrator,
		"seed":       res.Seed,
		"success":    res.Success,
		"passed":     res.Passed,
		"expected":   string(res.Expected),
		"matches":    res.Matches,
		"elapsed_ms": res.Elapsed.Milliseconds(),
	}
	if res.Report != nil {
		e["points"] = res.Report.Points
		e["failures"] = res.Report.Failures
		e["max_abs_dev"] = res.Report.MaxAbsDev
		e["worst"] = res.Report.Worst
	}
	if res.Error != "" {
		e["error"] = res.Error
	}
	return e
}

func record(res *Result, started time.Time) store.Run {
	run := store.Run{
		ID:         res.RunID,
		Scenario:   res.Scenario,
		Calibrator: res.Calibrator,
		Seed:       res.Seed,
		StartedAt:  started,
		Elapsed:    res.Elapsed,
		Success:    res.Success,
		Passed:     res.Passed,
		Expected:   string(res.Expected),
		Matches:    res.Matches,
		RMS:        res.RMS,
		Message:    res.Message,
		Error:      res.Error,
		Rtol:       res.Tolerance.Rel,
		Atol:       res.Tolerance.Abs,
	}
	if rep := res.Report; rep != nil {
		run.Points = rep.Points
		run.Failures = rep.Failures
		run.MaxAbsDev = rep.MaxAbsDev
		run.MaxRelDev = rep.MaxRelDev
	}
	return run
}

// RunAll runs each scenario in order with the same calibrator override.
// Setup failures are joined and do not stop later scenarios.
func (r *Runner) RunAll(ctx context.Context, scs []*scenario.Scenario, calibrator string) ([]*Result, error) {
	var (
		results []*Result
		errs    []error
	)
	for _, sc := range scs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		res, err := r.Run(ctx, sc, calibrator)
		if res != nil {
			results = append(results, res)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sc.Name, err))
		}
	}
	return results, errors.Join(errs...)
}
