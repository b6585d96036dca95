package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nvandessel/wavecal/internal/calibrate"
	"github.com/nvandessel/wavecal/internal/linelist"
	"github.com/nvandessel/wavecal/internal/scenario"
)

func newScenariosCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenarios",
		Short: "List built-in scenarios and calibrators",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			var scs []*scenario.Scenario
			for _, name := range scenario.Names() {
				sc, err := scenario.Builtin(name)
				if err != nil {
					return err
				}
				scs = append(scs, sc)
			}

			if jsonOut {
				return writeJSON(cmd, map[string]any{
					"scenarios":   scs,
					"calibrators": calibrate.Names(),
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Scenarios (%d):\n", len(scs))
			for _, sc := range scs {
				fmt.Fprintf(out, "  %-22s %dx%d  %-8s expect %-4s  %s\n",
					sc.Name, sc.Width, sc.Height, sc.Calibrator, sc.Expected(), sc.Description)
			}
			fmt.Fprintln(out)
			fmt.Fprintf(out, "Calibrators: %s\n", strings.Join(calibrate.Names(), ", "))
			return nil
		},
	}

	cmd.AddCommand(newScenarioShowCmd())
	return cmd
}

func newScenarioShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <scenario|file.yaml>",
		Short: "Print a scenario definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			sc, err := scenario.Resolve(args[0])
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, sc)
			}
			data, err := yaml.Marshal(sc)
			if err != nil {
				return fmt.Errorf("failed to marshal scenario: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newLinesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lines [catalog]...",
		Short: "List embedded emission-line catalogs",
		Long: `Without arguments, list the embedded arc-lamp catalogs. With catalog
names, print their merged lines sorted by wavelength.

Examples:
  wavecal lines
  wavecal lines ArI ArII --min 5000 --max 6000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				var catalogs []map[string]any
				for _, name := range linelist.Names() {
					c, err := linelist.Get(name)
					if err != nil {
						return err
					}
					catalogs = append(catalogs, map[string]any{
						"name":        c.Name,
						"description": c.Description,
						"unit":        c.Unit,
						"lines":       len(c.Lines),
					})
				}
				if jsonOut {
					return writeJSON(cmd, map[string]any{"catalogs": catalogs})
				}
				fmt.Fprintf(out, "Line catalogs (%d):\n", len(catalogs))
				for _, c := range catalogs {
					fmt.Fprintf(out, "  %-5s %3d lines  %s\n", c["name"], c["lines"], c["description"])
				}
				return nil
			}

			lines, err := linelist.Load(args...)
			if err != nil {
				return err
			}
			lo, _ := cmd.Flags().GetFloat64("min")
			hi, _ := cmd.Flags().GetFloat64("max")
			if cmd.Flags().Changed("min") || cmd.Flags().Changed("max") {
				if !cmd.Flags().Changed("max") && len(lines) > 0 {
					hi = lines[len(lines)-1].Wavelength
				}
				lines = linelist.Between(lines, lo, hi)
			}

			if jsonOut {
				return writeJSON(cmd, map[string]any{"lines": lines, "count": len(lines)})
			}
			for _, l := range lines {
				fmt.Fprintf(out, "%-5s %10.3f  %8.1f\n", l.Ion, l.Wavelength, l.Intensity)
			}
			fmt.Fprintf(out, "%d lines\n", len(lines))
			return nil
		},
	}

	cmd.Flags().Float64("min", 0, "Shortest wavelength to list (Angstrom)")
	cmd.Flags().Float64("max", 0, "Longest wavelength to list (Angstrom)")
	return cmd
}
