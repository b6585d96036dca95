package mcp

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/wavecal/internal/calibrate"
	"github.com/nvandessel/wavecal/internal/pathutil"
	"github.com/nvandessel/wavecal/internal/ratelimit"
	"github.com/nvandessel/wavecal/internal/sanitize"
	"github.com/nvandessel/wavecal/internal/scenario"
	"github.com/nvandessel/wavecal/internal/store"
)

func (s *Server) registerTools() {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "wavecal_run",
		Description: "Generate a scenario's synthetic arc scene, run a calibrator on it and validate the recovered wavelength solution against the ground truth over every pixel",
	}, s.handleRun)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "wavecal_scenarios",
		Description: "List the built-in calibration scenarios and registered calibrators",
	}, s.handleScenarios)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "wavecal_history",
		Description: "List recorded calibration runs, newest first",
	}, s.handleHistory)
}

func (s *Server) handleRun(ctx context.Context, req *sdk.CallToolRequest, args RunInput) (_ *sdk.CallToolResult, _ RunOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("wavecal_run", start, retErr, sanitizeToolParams(map[string]any{
			"scenario": args.Scenario, "calibrator": args.Calibrator, "seed": args.Seed,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "wavecal_run"); err != nil {
		return nil, RunOutput{}, err
	}
	if args.Scenario == "" {
		return nil, RunOutput{}, fmt.Errorf("'scenario' parameter is required")
	}

	sc, err := s.loadScenario(args.Scenario)
	if err != nil {
		return nil, RunOutput{}, err
	}

	r := *s.runner
	if args.Seed != 0 {
		r.Seed = args.Seed
	}
	res, err := r.Run(ctx, sc, args.Calibrator)
	if err != nil && res == nil {
		return nil, RunOutput{}, fmt.Errorf("run failed: %w", err)
	}
	if err != nil {
		s.logger.Warn("run not recorded", "run_id", res.RunID, "error", err)
	}

	out := RunOutput{
		RunID:      res.RunID,
		Scenario:   sanitize.Name(res.Scenario),
		Calibrator: res.Calibrator,
		Seed:       res.Seed,
		Success:    res.Success,
		Passed:     res.Passed,
		Expected:   string(res.Expected),
		AsExpected: res.AsExpected(),
		Matches:    res.Matches,
		RMS:        res.RMS,
		ElapsedMs:  res.Elapsed.Milliseconds(),
		Message:    sanitize.Text(res.Message),
		Error:      sanitize.Text(res.Error),
	}
	if rep := res.Report; rep != nil {
		out.Points = rep.Points
		out.Failures = rep.Failures
		out.MaxAbsDev = rep.MaxAbsDev
		out.MaxRelDev = rep.MaxRelDev
	}
	return nil, out, nil
}

// loadScenario resolves a built-in name, or a YAML file confined to the
// project root and ~/.wavecal/scenarios.
func (s *Server) loadScenario(nameOrPath string) (*scenario.Scenario, error) {
	ext := strings.ToLower(filepath.Ext(nameOrPath))
	if ext != ".yaml" && ext != ".yml" {
		return scenario.Builtin(nameOrPath)
	}
	path, err := pathutil.Confine(nameOrPath, s.root, pathutil.ScenarioDirs(s.root))
	if err != nil {
		return nil, fmt.Errorf("scenario file rejected: %w", err)
	}
	return scenario.Load(path)
}

func (s *Server) handleScenarios(ctx context.Context, req *sdk.CallToolRequest, args ScenariosInput) (_ *sdk.CallToolResult, _ ScenariosOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("wavecal_scenarios", start, retErr, nil)
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "wavecal_scenarios"); err != nil {
		return nil, ScenariosOutput{}, err
	}

	names := scenario.Names()
	summaries := make([]ScenarioSummary, 0, len(names))
	for _, name := range names {
		sc, err := scenario.Builtin(name)
		if err != nil {
			return nil, ScenariosOutput{}, err
		}
		summaries = append(summaries, ScenarioSummary{
			Name:        sc.Name,
			Description: sc.Description,
			Calibrator:  sc.Calibrator,
			Width:       sc.Width,
			Height:      sc.Height,
			Noise:       sc.Noise,
			Hints:       sc.Hints,
			Expect:      string(sc.Expected()),
		})
	}
	return nil, ScenariosOutput{
		Scenarios:   summaries,
		Calibrators: calibrate.Names(),
		Count:       len(summaries),
	}, nil
}

func (s *Server) handleHistory(ctx context.Context, req *sdk.CallToolRequest, args HistoryInput) (_ *sdk.CallToolResult, _ HistoryOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("wavecal_history", start, retErr, sanitizeToolParams(map[string]any{
			"scenario": args.Scenario, "calibrator": args.Calibrator, "limit": args.Limit,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, "wavecal_history"); err != nil {
		return nil, HistoryOutput{}, err
	}

	limit := args.Limit
	if limit <= 0 || limit > s.historyLimit {
		limit = s.historyLimit
	}
	runs, err := s.store.List(ctx, store.Filter{
		Scenario:   args.Scenario,
		Calibrator: args.Calibrator,
		Limit:      limit,
	})
	if err != nil {
		return nil, HistoryOutput{}, fmt.Errorf("failed to list runs: %w", err)
	}

	items := make([]RunListItem, 0, len(runs))
	for _, r := range runs {
		items = append(items, RunListItem{
			ID:         r.ID,
			StartedAt:  r.StartedAt.UTC().Format(time.RFC3339),
			Scenario:   sanitize.Name(r.Scenario),
			Calibrator: sanitize.Name(r.Calibrator),
			Seed:       r.Seed,
			Passed:     r.Passed,
			AsExpected: r.AsExpected(),
			MaxAbsDev:  r.MaxAbsDev,
			Error:      sanitize.Text(r.Error),
		})
	}
	return nil, HistoryOutput{Runs: items, Count: len(items)}, nil
}
