package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nvandessel/wavecal/internal/mcp"
	"github.com/nvandessel/wavecal/internal/store"
)

func newMCPServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp-server",
		Short: "Serve wavecal tools over MCP (stdio)",
		Long: `Start a Model Context Protocol server on stdin/stdout exposing:

  wavecal_run        run a scenario and validate the recovered WCS
  wavecal_scenarios  list built-in scenarios and calibrators
  wavecal_history    list recorded runs

Logs go to stderr; stdout carries the protocol.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			defer e.events.Close()

			server, err := mcp.NewServer(&mcp.Config{
				Name:         "wavecal",
				Version:      version,
				Root:         e.root,
				Store:        e.store,
				Logger:       e.logger,
				Events:       e.events,
				Seed:         e.cfg.Run.Seed,
				Tolerance:    toleranceOverride(e.cfg.Validation),
				HistoryLimit: e.cfg.Store.HistoryLimit,
			})
			if err != nil {
				e.store.Close()
				return fmt.Errorf("failed to create MCP server: %w", err)
			}
			defer server.Close()

			if _, err := store.EnsureDataDir(e.root); err != nil {
				return err
			}
			e.logger.Info("mcp server starting", "root", e.root, "backend", e.cfg.Store.Backend)
			return server.Run(cmd.Context())
		},
	}
}
