// Package config provides unified configuration loading for wavecal.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/nvandessel/wavecal/internal/constants"
	"gopkg.in/yaml.v3"
)

// WavecalConfig contains all wavecal configuration settings.
type WavecalConfig struct {
	// Run contains defaults applied to every scenario run.
	Run RunConfig `json:"run" yaml:"run"`

	// Validation overrides the tolerances a scenario declares.
	Validation ValidationConfig `json:"validation" yaml:"validation"`

	// Trace configures the trace-fitting case.
	Trace TraceConfig `json:"trace" yaml:"trace"`

	// Store configures the run ledger.
	Store StoreConfig `json:"store" yaml:"store"`

	// Logging contains settings for operational and event logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// RunConfig configures scenario runs.
type RunConfig struct {
	// Calibrator replaces the scenario's calibrator when non-empty.
	Calibrator string `json:"calibrator,omitempty" yaml:"calibrator,omitempty"`

	// Seed replaces the scenario's noise seed when non-zero.
	Seed uint64 `json:"seed,omitempty" yaml:"seed,omitempty"`

	// Timeout bounds a single run, generation included. Zero means no limit.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`
}

// ValidationConfig overrides scenario tolerances. Nil fields keep the
// scenario's value.
type ValidationConfig struct {
	Rtol *float64 `json:"rtol,omitempty" yaml:"rtol,omitempty"`
	Atol *float64 `json:"atol,omitempty" yaml:"atol,omitempty"`
}

// TraceConfig configures the Kosmos trace case.
type TraceConfig struct {
	Bins      int     `json:"bins" yaml:"bins"`
	Tolerance float64 `json:"tolerance" yaml:"tolerance"`
}

// StoreConfig configures where runs are recorded.
type StoreConfig struct {
	// Backend is "sqlite" (default) or "memory".
	Backend string `json:"backend" yaml:"backend"`

	// Root is the directory holding .wavecal/. Supports ${VAR} syntax.
	// Empty means the working directory.
	Root string `json:"root,omitempty" yaml:"root,omitempty"`

	// HistoryLimit caps history listings.
	HistoryLimit int `json:"history_limit" yaml:"history_limit"`
}

// LoggingConfig configures wavecal's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables event logging to .wavecal/events.jsonl.
	// "trace" additionally logs per-line identification detail.
	Level string `json:"level" yaml:"level"`
}

// Default returns a WavecalConfig with sensible defaults.
func Default() *WavecalConfig {
	return &WavecalConfig{
		Trace: TraceConfig{
			Bins:      constants.DefaultTraceBins,
			Tolerance: constants.DefaultTraceTolerance,
		},
		Store: StoreConfig{
			Backend:      "sqlite",
			HistoryLimit: constants.DefaultHistoryLimit,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Path returns the default config file location, ~/.wavecal/config.yaml.
func Path() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, constants.DataDirName, "config.yaml"), nil
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.wavecal/config.yaml -> environment variables
func Load() (*WavecalConfig, error) {
	config := Default()

	if configPath, err := Path(); err == nil {
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*WavecalConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	config.Store.Root = expandEnvVars(config.Store.Root)
	return config, nil
}

// Validate checks that the configuration is valid.
func (c *WavecalConfig) Validate() error {
	if c.Run.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative, got %v", c.Run.Timeout)
	}
	if c.Validation.Rtol != nil && *c.Validation.Rtol < 0 {
		return fmt.Errorf("rtol must be non-negative, got %g", *c.Validation.Rtol)
	}
	if c.Validation.Atol != nil && *c.Validation.Atol < 0 {
		return fmt.Errorf("atol must be non-negative, got %g", *c.Validation.Atol)
	}
	if c.Trace.Bins < constants.MinTraceBins {
		return fmt.Errorf("trace bins must be at least %d, got %d", constants.MinTraceBins, c.Trace.Bins)
	}
	if c.Trace.Tolerance <= 0 {
		return fmt.Errorf("trace tolerance must be positive, got %g", c.Trace.Tolerance)
	}

	validBackends := map[string]bool{"sqlite": true, "memory": true}
	if !validBackends[c.Store.Backend] {
		return fmt.Errorf("invalid store backend: %s (valid: sqlite, memory)", c.Store.Backend)
	}
	if c.Store.HistoryLimit < 1 {
		return fmt.Errorf("history_limit must be positive, got %d", c.Store.HistoryLimit)
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}
	return nil
}

// applyEnvOverrides applies WAVECAL_* environment overrides. Malformed
// numeric values are reported rather than ignored.
func applyEnvOverrides(config *WavecalConfig) error {
	if v := os.Getenv("WAVECAL_CALIBRATOR"); v != "" {
		config.Run.Calibrator = v
	}
	if v := os.Getenv("WAVECAL_SEED"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("WAVECAL_SEED: %w", err)
		}
		config.Run.Seed = n
	}
	if v := os.Getenv("WAVECAL_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("WAVECAL_TIMEOUT: %w", err)
		}
		config.Run.Timeout = d
	}

	for name, dst := range map[string]**float64{
		"WAVECAL_RTOL": &config.Validation.Rtol,
		"WAVECAL_ATOL": &config.Validation.Atol,
	} {
		if v := os.Getenv(name); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			*dst = &f
		}
	}

	if v := os.Getenv("WAVECAL_TRACE_BINS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("WAVECAL_TRACE_BINS: %w", err)
		}
		config.Trace.Bins = n
	}

	if v := os.Getenv("WAVECAL_STORE"); v != "" {
		config.Store.Backend = v
	}
	if v := os.Getenv("WAVECAL_ROOT"); v != "" {
		config.Store.Root = v
	}
	if v := os.Getenv("WAVECAL_HISTORY_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("WAVECAL_HISTORY_LIMIT: %w", err)
		}
		config.Store.HistoryLimit = n
	}

	if v := os.Getenv("WAVECAL_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	return nil
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
