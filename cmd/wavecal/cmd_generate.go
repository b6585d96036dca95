package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nvandessel/wavecal/internal/scenario"
	"github.com/nvandessel/wavecal/internal/scene"
)

// sceneSummary is the JSON shape printed by generate and inspect.
type sceneSummary struct {
	Path     string               `json:"path,omitempty"`
	Scenario string               `json:"scenario,omitempty"`
	Width    int                  `json:"width"`
	Height   int                  `json:"height"`
	LineFWHM float64              `json:"line_fwhm"`
	Noisy    bool                 `json:"noisy"`
	Seed     uint64               `json:"seed"`
	Masked   int                  `json:"masked"`
	Approx   map[string]string    `json:"approx"`
	Lines    []scene.InjectedLine `json:"lines"`
}

func summarize(s *scene.Scene) sceneSummary {
	masked := 0
	for _, m := range s.Mask() {
		if m {
			masked++
		}
	}
	return sceneSummary{
		Width:    s.Width(),
		Height:   s.Height(),
		LineFWHM: s.LineFWHM(),
		Noisy:    s.Noisy(),
		Seed:     s.Seed(),
		Masked:   masked,
		Approx:   s.Approx().Header().Strings(),
		Lines:    s.Lines(),
	}
}

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate <scenario|file.yaml>",
		Short: "Render a scenario's synthetic scene to an Arrow IPC file",
		Long: `Render the synthetic arc-lamp scene a scenario describes and write it as
an Arrow IPC stream: one record with a row per pixel (row, col, flux,
uncertainty, mask). Geometry, injected lines and the approximate WCS
keywords travel in the schema metadata.

Examples:
  wavecal generate argon-grating -o argon.arrow
  wavecal generate neon-linear -o - > neon.arrow`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			output, _ := cmd.Flags().GetString("output")
			seed, _ := cmd.Flags().GetUint64("seed")

			sc, err := scenario.Resolve(args[0])
			if err != nil {
				return err
			}
			truth, err := sc.TruthTransform()
			if err != nil {
				return err
			}
			req, err := sc.Request(truth, seed)
			if err != nil {
				return err
			}
			s, err := scene.Generate(req)
			if err != nil {
				return fmt.Errorf("generating scene: %w", err)
			}

			if output == "" {
				output = sc.Name + ".arrow"
			}
			if output == "-" {
				return s.WriteArrow(cmd.OutOrStdout())
			}
			if err := writeSceneFile(output, s); err != nil {
				return err
			}

			summary := summarize(s)
			summary.Path = output
			summary.Scenario = sc.Name
			if jsonOut {
				return writeJSON(cmd, summary)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Scene written to %s\n", output)
			printSceneSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}

	cmd.Flags().StringP("output", "o", "", "Output file (default <scenario>.arrow, - for stdout)")
	cmd.Flags().Uint64("seed", 0, "Noise seed override (0 keeps the scenario seed)")

	return cmd
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file.arrow>",
		Short: "Read back a scene written by generate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open scene: %w", err)
			}
			defer f.Close()

			s, err := scene.ReadArrow(f)
			if err != nil {
				return err
			}
			summary := summarize(s)
			summary.Path = args[0]
			if jsonOut {
				return writeJSON(cmd, summary)
			}
			printSceneSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}
}

func writeSceneFile(path string, s *scene.Scene) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := s.WriteArrow(f); err != nil {
		f.Close()
		return fmt.Errorf("writing scene: %w", err)
	}
	return f.Close()
}

func printSceneSummary(w io.Writer, s sceneSummary) {
	fmt.Fprintf(w, "  size:   %d x %d\n", s.Width, s.Height)
	fmt.Fprintf(w, "  fwhm:   %g px\n", s.LineFWHM)
	if s.Noisy {
		fmt.Fprintf(w, "  noise:  seed %d\n", s.Seed)
	} else {
		fmt.Fprintln(w, "  noise:  none")
	}
	if s.Masked > 0 {
		fmt.Fprintf(w, "  masked: %d pixels\n", s.Masked)
	}
	fmt.Fprintf(w, "  lines:  %d injected\n", len(s.Lines))
	for _, l := range s.Lines {
		fmt.Fprintf(w, "    %-5s %10.3f  col %8.3f  amp %8.1f\n", l.Ion, l.Wavelength, l.Column, l.Amplitude)
	}
}
