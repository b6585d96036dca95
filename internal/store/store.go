// Package store defines the RunStore interface for recording calibration
// runs and querying their history.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when no run has the requested ID.
var ErrNotFound = errors.New("store: run not found")

// Run is one recorded calibration run.
type Run struct {
	ID         string        `json:"id"`
	Scenario   string        `json:"scenario"`
	Calibrator string        `json:"calibrator"`
	Seed       uint64        `json:"seed"`
	StartedAt  time.Time     `json:"started_at"`
	Elapsed    time.Duration `json:"elapsed_ns"`

	// Success is the calibrator's own verdict; Passed is the validator's.
	Success  bool   `json:"success"`
	Passed   bool   `json:"passed"`
	Expected string `json:"expected"` // "pass" or "fail"

	Points    int     `json:"points"`
	Failures  int     `json:"failures"`
	MaxAbsDev float64 `json:"max_abs_dev"`
	MaxRelDev float64 `json:"max_rel_dev"`
	Rtol      float64 `json:"rtol"`
	Atol      float64 `json:"atol"`

	Matches int     `json:"matches"`
	RMS     float64 `json:"rms"`
	Message string  `json:"message,omitempty"`
	Error   string  `json:"error,omitempty"`
}

// AsExpected reports whether the validator's verdict matches the scenario's
// designed outcome.
func (r Run) AsExpected() bool {
	if r.Expected == "fail" {
		return !r.Passed
	}
	return r.Passed
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Scenario   string
	Calibrator string
	Limit      int
}

func (f Filter) matches(r Run) bool {
	if f.Scenario != "" && r.Scenario != f.Scenario {
		return false
	}
	if f.Calibrator != "" && r.Calibrator != f.Calibrator {
		return false
	}
	return true
}

// RunStore persists runs.
type RunStore interface {
	// Record inserts or replaces a run. The ID is required.
	Record(ctx context.Context, run Run) error

	// Get returns a run by ID, or ErrNotFound.
	Get(ctx context.Context, id string) (*Run, error)

	// List returns runs matching f, newest first.
	List(ctx context.Context, f Filter) ([]Run, error)

	Close() error
}
