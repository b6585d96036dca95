package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nvandessel/wavecal/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage wavecal configuration",
		Long: `View and modify wavecal configuration settings.

Configuration is stored in ~/.wavecal/config.yaml. WAVECAL_* environment
variables override the file.

Examples:
  wavecal config list                         # Show all settings
  wavecal config get run.calibrator           # Get a specific setting
  wavecal config set validation.rtol 1e-5     # Set a setting
  wavecal config set store.backend memory`,
	}

	cmd.AddCommand(
		newConfigListCmd(),
		newConfigGetCmd(),
		newConfigSetCmd(),
	)

	return cmd
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if jsonOut {
				return writeJSON(cmd, cfg)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Configuration (~/.wavecal/config.yaml):")
			for _, key := range configKeys {
				value, _ := getConfigValue(cfg, key)
				fmt.Fprintf(out, "  %-22s %v\n", key+":", value)
			}
			return nil
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key := args[0]

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			value, found := getConfigValue(cfg, key)
			if !found {
				return fmt.Errorf("unknown configuration key: %s", key)
			}

			if jsonOut {
				return writeJSON(cmd, map[string]any{"key": key, "value": value})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", key, value)
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key, value := args[0], args[1]

			path, err := config.Path()
			if err != nil {
				return fmt.Errorf("failed to locate config: %w", err)
			}
			// Edit the file contents only, so environment overrides are not
			// persisted.
			cfg := config.Default()
			if _, statErr := os.Stat(path); statErr == nil {
				if cfg, err = config.LoadFromFile(path); err != nil {
					return err
				}
			}

			if err := setConfigValue(cfg, key, value); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid value for %s: %w", key, err)
			}
			if err := saveConfig(path, cfg); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			if jsonOut {
				return writeJSON(cmd, map[string]any{"status": "updated", "key": key, "value": value})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
			return nil
		},
	}
}

// configKeys lists the dot-notation keys in display order.
var configKeys = []string{
	"run.calibrator",
	"run.seed",
	"run.timeout",
	"validation.rtol",
	"validation.atol",
	"trace.bins",
	"trace.tolerance",
	"store.backend",
	"store.root",
	"store.history_limit",
	"logging.level",
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.WavecalConfig, key string) (any, bool) {
	switch key {
	case "run.calibrator":
		return valueOrDefault(cfg.Run.Calibrator, "(scenario)"), true
	case "run.seed":
		return cfg.Run.Seed, true
	case "run.timeout":
		return cfg.Run.Timeout.String(), true
	case "validation.rtol":
		return floatOrDefault(cfg.Validation.Rtol), true
	case "validation.atol":
		return floatOrDefault(cfg.Validation.Atol), true
	case "trace.bins":
		return cfg.Trace.Bins, true
	case "trace.tolerance":
		return cfg.Trace.Tolerance, true
	case "store.backend":
		return cfg.Store.Backend, true
	case "store.root":
		return valueOrDefault(cfg.Store.Root, "(working directory)"), true
	case "store.history_limit":
		return cfg.Store.HistoryLimit, true
	case "logging.level":
		return valueOrDefault(cfg.Logging.Level, "info"), true
	default:
		return nil, false
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.WavecalConfig, key, value string) error {
	switch key {
	case "run.calibrator":
		cfg.Run.Calibrator = value
	case "run.seed":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid seed: %s", value)
		}
		cfg.Run.Seed = n
	case "run.timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %s", value)
		}
		cfg.Run.Timeout = d
	case "validation.rtol", "validation.atol":
		dst := &cfg.Validation.Rtol
		if key == "validation.atol" {
			dst = &cfg.Validation.Atol
		}
		if value == "" {
			*dst = nil
			return nil
		}
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid tolerance: %s", value)
		}
		*dst = &f
	case "trace.bins", "store.history_limit":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid integer: %s", value)
		}
		if key == "trace.bins" {
			cfg.Trace.Bins = n
		} else {
			cfg.Store.HistoryLimit = n
		}
	case "trace.tolerance":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid tolerance: %s", value)
		}
		cfg.Trace.Tolerance = f
	case "store.backend":
		cfg.Store.Backend = value
	case "store.root":
		cfg.Store.Root = value
	case "logging.level":
		cfg.Logging.Level = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

// saveConfig writes the configuration to path.
func saveConfig(path string, cfg *config.WavecalConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// valueOrDefault returns the value if non-empty, otherwise the default.
func valueOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}

func floatOrDefault(v *float64) any {
	if v == nil {
		return "(scenario)"
	}
	return *v
}
