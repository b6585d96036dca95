package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/nvandessel/wavecal/internal/config"
	"github.com/nvandessel/wavecal/internal/harness"
	"github.com/nvandessel/wavecal/internal/logging"
	"github.com/nvandessel/wavecal/internal/runner"
	"github.com/nvandessel/wavecal/internal/store"
)

// env bundles the configuration, loggers and run store shared by commands
// that run scenarios or read history.
type env struct {
	cfg    *config.WavecalConfig
	root   string
	logger *slog.Logger
	events *logging.EventLogger
	store  store.RunStore
}

// loadConfig loads and validates the configuration.
func loadConfig() (*config.WavecalConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// projectRoot resolves the project root: an explicit --root wins over
// store.root from the config.
func projectRoot(cmd *cobra.Command, cfg *config.WavecalConfig) string {
	root, _ := cmd.Flags().GetString("root")
	if !cmd.Flags().Changed("root") && cfg.Store.Root != "" {
		return cfg.Store.Root
	}
	return root
}

// openEnv loads config, builds loggers and opens the configured run store.
// Callers must Close the env.
func openEnv(cmd *cobra.Command) (*env, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	root := projectRoot(cmd, cfg)

	jsonOut, _ := cmd.Flags().GetBool("json")
	logger := logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())
	if jsonOut {
		logger = logging.NewJSONLogger(cfg.Logging.Level, cmd.ErrOrStderr())
	}

	var runStore store.RunStore
	switch cfg.Store.Backend {
	case "memory":
		runStore = store.NewInMemoryRunStore()
	default:
		st, err := store.NewSQLiteRunStore(root)
		if err != nil {
			return nil, fmt.Errorf("failed to open run store: %w", err)
		}
		runStore = st
	}

	return &env{
		cfg:    cfg,
		root:   root,
		logger: logger,
		events: logging.NewEventLogger(store.LocalDataPath(root), cfg.Logging.Level),
		store:  runStore,
	}, nil
}

// runner returns a Runner carrying the configured overrides.
func (e *env) runner() *runner.Runner {
	r := runner.New(e.store, e.logger, e.events)
	r.Seed = e.cfg.Run.Seed
	r.Timeout = e.cfg.Run.Timeout
	r.Tolerance = toleranceOverride(e.cfg.Validation)
	return r
}

// Close releases the event log and the run store.
func (e *env) Close() error {
	e.events.Close()
	return e.store.Close()
}

// toleranceOverride turns configured rtol/atol into a run-wide tolerance.
// Nil means every scenario keeps its own; a half-set override fills the
// other half from the defaults.
func toleranceOverride(v config.ValidationConfig) *harness.Tolerance {
	if v.Rtol == nil && v.Atol == nil {
		return nil
	}
	tol := harness.DefaultTolerance()
	if v.Rtol != nil {
		tol.Rel = *v.Rtol
	}
	if v.Atol != nil {
		tol.Abs = *v.Atol
	}
	return &tol
}

// errUnexpectedVerdict marks a run command whose verdicts did not all match
// their scenarios' expectations.
var errUnexpectedVerdict = errors.New("one or more runs did not produce the expected verdict")
