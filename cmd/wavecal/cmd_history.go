package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nvandessel/wavecal/internal/store"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs, newest first",
		Long: `List runs recorded in the project's run ledger.

Examples:
  wavecal history
  wavecal history --scenario argon-grating --limit 5
  wavecal history show <run-id>
  wavecal history export runs.jsonl
  wavecal history import runs.jsonl`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			scenarioName, _ := cmd.Flags().GetString("scenario")
			calibrator, _ := cmd.Flags().GetString("calibrator")
			limit, _ := cmd.Flags().GetInt("limit")

			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			if !cmd.Flags().Changed("limit") {
				limit = e.cfg.Store.HistoryLimit
			}
			runs, err := e.store.List(cmd.Context(), store.Filter{
				Scenario:   scenarioName,
				Calibrator: calibrator,
				Limit:      limit,
			})
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}

			if jsonOut {
				return writeJSON(cmd, map[string]any{"runs": runs, "count": len(runs)})
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded. Run 'wavecal run <scenario>' first.")
				return nil
			}
			out := cmd.OutOrStdout()
			for _, r := range runs {
				fmt.Fprintf(out, "%s  %s  %-4s  %-22s %-8s max|Δ| %.4g\n",
					r.StartedAt.Local().Format(time.DateTime), shortID(r.ID), verdict(r),
					r.Scenario, r.Calibrator, r.MaxAbsDev)
			}
			return nil
		},
	}

	cmd.Flags().String("scenario", "", "Only runs of this scenario")
	cmd.Flags().String("calibrator", "", "Only runs of this calibrator")
	cmd.Flags().Int("limit", 0, "Maximum runs to list (default from config)")

	cmd.AddCommand(
		newHistoryShowCmd(),
		newHistoryExportCmd(),
		newHistoryImportCmd(),
	)
	return cmd
}

func newHistoryShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one recorded run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			r, err := e.store.Get(cmd.Context(), args[0])
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("run not found: %s", args[0])
			}
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd, r)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %s\n", r.ID)
			fmt.Fprintf(out, "  scenario:   %s\n", r.Scenario)
			fmt.Fprintf(out, "  calibrator: %s\n", r.Calibrator)
			fmt.Fprintf(out, "  started:    %s (%v)\n", r.StartedAt.Local().Format(time.RFC3339), r.Elapsed)
			fmt.Fprintf(out, "  verdict:    %s (expected %s)\n", verdict(*r), r.Expected)
			fmt.Fprintf(out, "  success:    %v, %d matches, rms %.4g\n", r.Success, r.Matches, r.RMS)
			fmt.Fprintf(out, "  grid:       %d/%d within rtol=%g atol=%g\n", r.Points-r.Failures, r.Points, r.Rtol, r.Atol)
			fmt.Fprintf(out, "  max |Δ|:    %.6g (rel %.3g)\n", r.MaxAbsDev, r.MaxRelDev)
			if r.Seed != 0 {
				fmt.Fprintf(out, "  seed:       %d\n", r.Seed)
			}
			if r.Message != "" {
				fmt.Fprintf(out, "  message:    %s\n", r.Message)
			}
			if r.Error != "" {
				fmt.Fprintf(out, "  error:      %s\n", r.Error)
			}
			return nil
		},
	}
}

func newHistoryExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [file.jsonl]",
		Short: "Export recorded runs as JSON lines (stdout by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			var w io.Writer = cmd.OutOrStdout()
			if len(args) == 1 {
				f, err := os.Create(args[0])
				if err != nil {
					return fmt.Errorf("failed to create export file: %w", err)
				}
				defer f.Close()
				w = f
			}

			n, err := store.ExportJSONL(cmd.Context(), e.store, w)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d runs to %s\n", n, args[0])
			}
			return nil
		},
	}
}

func newHistoryImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.jsonl>",
		Short: "Import runs exported by 'history export'",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open import file: %w", err)
			}
			defer f.Close()

			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			n, err := store.ImportJSONL(cmd.Context(), e.store, f)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, map[string]any{"imported": n, "path": args[0]})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d runs from %s\n", n, args[0])
			return nil
		},
	}
}

func verdict(r store.Run) string {
	if r.Passed {
		return "PASS"
	}
	return "FAIL"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
