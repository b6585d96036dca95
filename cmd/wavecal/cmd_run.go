package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nvandessel/wavecal/internal/runner"
	"github.com/nvandessel/wavecal/internal/scenario"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [scenario|file.yaml]...",
		Short: "Run calibration scenarios and validate the recovered WCS",
		Long: `Generate each scenario's synthetic scene, run the calibrator on it, and
compare the returned coordinate transform against the ground truth at
every pixel.

Scenarios are built-in names (see 'wavecal scenarios') or YAML files.
The command fails when any verdict differs from the scenario's expected
outcome.

Examples:
  wavecal run argon-grating
  wavecal run argon-grating --calibrator nominal
  wavecal run --all --json
  wavecal run ./my-scenario.yaml --seed 7`,
		RunE: runRun,
	}

	cmd.Flags().Bool("all", false, "Run every built-in scenario")
	cmd.Flags().String("calibrator", "", "Calibrator to use instead of each scenario's own")
	cmd.Flags().Uint64("seed", 0, "Noise seed override (0 keeps the scenario seed)")
	cmd.Flags().Float64("rtol", 0, "Relative tolerance override")
	cmd.Flags().Float64("atol", 0, "Absolute tolerance override")
	cmd.Flags().Duration("timeout", 0, "Per-run timeout (0 disables)")

	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	all, _ := cmd.Flags().GetBool("all")
	jsonOut, _ := cmd.Flags().GetBool("json")

	if all && len(args) > 0 {
		return fmt.Errorf("cannot combine --all with scenario arguments")
	}
	if !all && len(args) == 0 {
		return fmt.Errorf("specify a scenario or --all (see 'wavecal scenarios')")
	}

	names := args
	if all {
		names = scenario.Names()
	}
	scs := make([]*scenario.Scenario, 0, len(names))
	for _, name := range names {
		sc, err := scenario.Resolve(name)
		if err != nil {
			return err
		}
		scs = append(scs, sc)
	}

	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	r := e.runner()
	if cmd.Flags().Changed("seed") {
		r.Seed, _ = cmd.Flags().GetUint64("seed")
	}
	if cmd.Flags().Changed("timeout") {
		r.Timeout, _ = cmd.Flags().GetDuration("timeout")
	}
	if cmd.Flags().Changed("rtol") || cmd.Flags().Changed("atol") {
		v := e.cfg.Validation
		if cmd.Flags().Changed("rtol") {
			rtol, _ := cmd.Flags().GetFloat64("rtol")
			v.Rtol = &rtol
		}
		if cmd.Flags().Changed("atol") {
			atol, _ := cmd.Flags().GetFloat64("atol")
			v.Atol = &atol
		}
		if (v.Rtol != nil && *v.Rtol < 0) || (v.Atol != nil && *v.Atol < 0) {
			return fmt.Errorf("tolerances must be non-negative")
		}
		r.Tolerance = toleranceOverride(v)
	}

	calibrator, _ := cmd.Flags().GetString("calibrator")
	if calibrator == "" {
		calibrator = e.cfg.Run.Calibrator
	}

	results, runErr := r.RunAll(cmd.Context(), scs, calibrator)

	if jsonOut {
		if err := writeJSON(cmd, map[string]any{
			"results": results,
			"count":   len(results),
		}); err != nil {
			return err
		}
	} else {
		for _, res := range results {
			printResult(cmd.OutOrStdout(), res)
		}
	}

	if runErr != nil {
		return runErr
	}
	for _, res := range results {
		if !res.AsExpected() {
			return errUnexpectedVerdict
		}
	}
	return nil
}

// printResult renders one run as a short human-readable block.
func printResult(w io.Writer, res *runner.Result) {
	verdict := "FAIL"
	if res.Passed {
		verdict = "PASS"
	}
	note := ""
	if res.Expected == scenario.ExpectFail {
		note = " (expected fail)"
	}
	if !res.AsExpected() {
		note += " UNEXPECTED"
	}

	fmt.Fprintf(w, "%s %s [%s]%s\n", verdict, res.Scenario, res.Calibrator, note)
	fmt.Fprintf(w, "  run:     %s\n", res.RunID)
	if res.Seed != 0 {
		fmt.Fprintf(w, "  seed:    %d\n", res.Seed)
	}
	fmt.Fprintf(w, "  matches: %d (rms %.4g)\n", res.Matches, res.RMS)
	if res.Report != nil {
		fmt.Fprintf(w, "  grid:    %s\n", res.Report)
	}
	if res.Error != "" {
		fmt.Fprintf(w, "  error:   %s\n", res.Error)
	}
	fmt.Fprintf(w, "  elapsed: %v\n", res.Elapsed)
}
