package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nvandessel/wavecal/internal/calibrate"
	"github.com/nvandessel/wavecal/internal/harness"
	"github.com/nvandessel/wavecal/internal/logging"
	"github.com/nvandessel/wavecal/internal/scenario"
	"github.com/nvandessel/wavecal/internal/store"
)

func builtin(t *testing.T, name string) *scenario.Scenario {
	t.Helper()
	sc, err := scenario.Builtin(name)
	if err != nil {
		t.Fatalf("Builtin(%q) error = %v", name, err)
	}
	return sc
}

// small shrinks a scenario's spatial extent so tests stay quick.
func small(t *testing.T, name string) *scenario.Scenario {
	sc := builtin(t, name)
	sc.Height = 8
	return sc
}

func TestRun_Verdicts(t *testing.T) {
	tests := []struct {
		name       string
		scenario   string
		calibrator string
		wantPassed bool
		wantErr    error
	}{
		{"oracle with truth hint", "argon-grating", "", true, nil},
		{"blind grating", "argon-grating-blind", "", true, nil},
		{"nominal is rejected", "argon-nominal", "", false, harness.ErrToleranceExceeded},
		{"oracle without truth hint", "argon-grating-blind", "oracle", false, harness.ErrCalibrationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := store.NewInMemoryRunStore()
			r := New(st, logging.Discard(), nil)

			res, err := r.Run(context.Background(), small(t, tt.scenario), tt.calibrator)
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if res.Passed != tt.wantPassed {
				t.Errorf("Passed = %v, want %v (err %v)", res.Passed, tt.wantPassed, res.Err)
			}
			if tt.wantErr == nil && res.Err != nil {
				t.Errorf("Err = %v, want nil", res.Err)
			}
			if tt.wantErr != nil && !errors.Is(res.Err, tt.wantErr) {
				t.Errorf("Err = %v, want %v", res.Err, tt.wantErr)
			}
			if res.RunID == "" {
				t.Error("RunID is empty")
			}

			got, err := st.Get(context.Background(), res.RunID)
			if err != nil {
				t.Fatalf("run not recorded: %v", err)
			}
			if got.Passed != res.Passed || got.Scenario != tt.scenario {
				t.Errorf("recorded %+v, result %+v", got, res)
			}
			if got.Rtol != res.Tolerance.Rel {
				t.Errorf("recorded rtol = %g, want %g", got.Rtol, res.Tolerance.Rel)
			}
		})
	}
}

func TestRun_NominalFailsAsExpected(t *testing.T) {
	res, err := (&Runner{}).Run(context.Background(), small(t, "argon-nominal"), "")
	if err != nil {
		t.Fatal(err)
	}
	if !res.AsExpected() {
		t.Errorf("AsExpected() = false for %+v", res)
	}
	if res.Report == nil || res.Report.Failures == 0 {
		t.Errorf("Report = %+v, want failures", res.Report)
	}
	if !res.Success {
		t.Error("nominal calibrator should report success; only validation rejects it")
	}
}

func TestRun_Overrides(t *testing.T) {
	loose := harness.Tolerance{Rel: 0.1}
	r := &Runner{Seed: 11, Tolerance: &loose}

	res, err := r.Run(context.Background(), small(t, "argon-nominal"), "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Seed != 0 {
		t.Errorf("Seed = %d, want 0 for a noiseless scene", res.Seed)
	}
	if !res.Passed {
		t.Errorf("nominal within 10%% rtol should pass, got %v", res.Err)
	}
	if res.AsExpected() {
		t.Error("a pass on an expected-fail scenario is not as expected")
	}
}

func TestRun_SeedOverride(t *testing.T) {
	res, err := (&Runner{Seed: 11}).Run(context.Background(), small(t, "argon-grating"), "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Seed != 11 {
		t.Errorf("Seed = %d, want 11", res.Seed)
	}
	if !res.Passed {
		t.Errorf("oracle run failed: %v", res.Err)
	}
}

func TestRun_SetupErrors(t *testing.T) {
	r := &Runner{}
	ctx := context.Background()

	if _, err := r.Run(ctx, small(t, "argon-grating"), "magic"); !errors.Is(err, calibrate.ErrUnknownCalibrator) {
		t.Errorf("unknown calibrator error = %v", err)
	}
	if _, err := r.Run(ctx, nil, ""); !errors.Is(err, scenario.ErrInvalid) {
		t.Errorf("nil scenario error = %v", err)
	}
	sc := small(t, "argon-grating")
	sc.LineLists = []string{"Unobtainium"}
	if _, err := r.Run(ctx, sc, ""); err == nil {
		t.Error("unknown line list accepted")
	}
}

func TestRunAll(t *testing.T) {
	st := store.NewInMemoryRunStore()
	r := New(st, nil, nil)
	r.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	bad := small(t, "argon-grating")
	bad.Name = "broken"
	bad.LineLists = []string{"Unobtainium"}

	results, err := r.RunAll(context.Background(), []*scenario.Scenario{
		small(t, "argon-grating"), bad, small(t, "argon-nominal"),
	}, "")
	if err == nil {
		t.Error("RunAll() error = nil, want the broken scenario reported")
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	runs, err := st.List(context.Background(), store.Filter{})
	if err != nil || len(runs) != 2 {
		t.Errorf("List() = %d runs, %v", len(runs), err)
	}
}
