package mcp

import (
	"github.com/nvandessel/wavecal/internal/constants"
)

// RunInput defines the input for the wavecal_run tool.
type RunInput struct {
	Scenario   string `json:"scenario" jsonschema:"Built-in scenario name (see wavecal_scenarios) or a .yaml scenario file under the project root"`
	Calibrator string `json:"calibrator,omitempty" jsonschema:"Calibrator to run instead of the scenario's own: oracle, nominal, linear or grating"`
	Seed       uint64 `json:"seed,omitempty" jsonschema:"Noise seed overriding the scenario's"`
}

// RunOutput defines the output for the wavecal_run tool.
type RunOutput struct {
	RunID      string  `json:"run_id" jsonschema:"ID of the recorded run"`
	Scenario   string  `json:"scenario"`
	Calibrator string  `json:"calibrator"`
	Seed       uint64  `json:"seed"`
	Success    bool    `json:"success" jsonschema:"Whether the calibrator reported success"`
	Passed     bool    `json:"passed" jsonschema:"Whether the full-grid comparison passed"`
	Expected   string  `json:"expected" jsonschema:"Designed outcome of the scenario: pass or fail"`
	AsExpected bool    `json:"as_expected" jsonschema:"Whether the verdict matches the designed outcome"`
	Points     int     `json:"points"`
	Failures   int     `json:"failures"`
	MaxAbsDev  float64 `json:"max_abs_dev" jsonschema:"Largest absolute deviation over the grid, in world units"`
	MaxRelDev  float64 `json:"max_rel_dev"`
	Matches    int     `json:"matches" jsonschema:"Lines the calibrator identified"`
	RMS        float64 `json:"rms"`
	ElapsedMs  int64   `json:"elapsed_ms"`
	Message    string  `json:"message,omitempty"`
	Error      string  `json:"error,omitempty"`
}

// ScenariosInput defines the input for the wavecal_scenarios tool.
type ScenariosInput struct{}

// ScenarioSummary describes one built-in scenario.
type ScenarioSummary struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Calibrator  string           `json:"calibrator"`
	Width       int              `json:"width"`
	Height      int              `json:"height"`
	Noise       bool             `json:"noise"`
	Hints       []constants.Hint `json:"hints,omitempty"`
	Expect      string           `json:"expect"`
}

// ScenariosOutput defines the output for the wavecal_scenarios tool.
type ScenariosOutput struct {
	Scenarios   []ScenarioSummary `json:"scenarios"`
	Calibrators []string          `json:"calibrators" jsonschema:"Registered calibrator names"`
	Count       int               `json:"count"`
}

// HistoryInput defines the input for the wavecal_history tool.
type HistoryInput struct {
	Scenario   string `json:"scenario,omitempty" jsonschema:"Only runs of this scenario"`
	Calibrator string `json:"calibrator,omitempty" jsonschema:"Only runs of this calibrator"`
	Limit      int    `json:"limit,omitempty" jsonschema:"Maximum runs to return"`
}

// RunListItem provides a list view of a recorded run.
type RunListItem struct {
	ID         string  `json:"id"`
	StartedAt  string  `json:"started_at" jsonschema:"RFC 3339 start time"`
	Scenario   string  `json:"scenario"`
	Calibrator string  `json:"calibrator"`
	Seed       uint64  `json:"seed"`
	Passed     bool    `json:"passed"`
	AsExpected bool    `json:"as_expected"`
	MaxAbsDev  float64 `json:"max_abs_dev"`
	Error      string  `json:"error,omitempty"`
}

// HistoryOutput defines the output for the wavecal_history tool.
type HistoryOutput struct {
	Runs  []RunListItem `json:"runs"`
	Count int           `json:"count"`
}
