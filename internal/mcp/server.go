// Package mcp provides an MCP (Model Context Protocol) server for wavecal.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvandessel/wavecal/internal/constants"
	"github.com/nvandessel/wavecal/internal/harness"
	"github.com/nvandessel/wavecal/internal/logging"
	"github.com/nvandessel/wavecal/internal/ratelimit"
	"github.com/nvandessel/wavecal/internal/runner"
	"github.com/nvandessel/wavecal/internal/store"
)

// Server wraps the MCP SDK server and exposes wavecal runs as tools.
type Server struct {
	server       *sdk.Server
	store        store.RunStore
	runner       *runner.Runner
	root         string
	historyLimit int
	logger       *slog.Logger
	auditLogger  *AuditLogger
	toolLimiters ratelimit.ToolLimiters

	closeOnce sync.Once
	closeErr  error
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "wavecal")
	Version string // Server version
	Root    string // Directory holding .wavecal/

	// Store overrides the SQLite ledger under Root when set. The server
	// takes ownership and closes it.
	Store store.RunStore

	Logger *slog.Logger
	Events *logging.EventLogger

	Seed         uint64
	Tolerance    *harness.Tolerance
	HistoryLimit int
}

// NewServer creates a new MCP server with wavecal tools.
func NewServer(cfg *Config) (*Server, error) {
	runStore := cfg.Store
	if runStore == nil {
		st, err := store.NewSQLiteRunStore(cfg.Root)
		if err != nil {
			return nil, fmt.Errorf("failed to open run store: %w", err)
		}
		runStore = st
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	limit := cfg.HistoryLimit
	if limit <= 0 {
		limit = constants.DefaultHistoryLimit
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			logger.Debug("mcp client initialized")
		},
	})

	r := runner.New(runStore, logger, cfg.Events)
	r.Seed = cfg.Seed
	r.Tolerance = cfg.Tolerance

	s := &Server{
		server:       mcpServer,
		store:        runStore,
		runner:       r,
		root:         cfg.Root,
		historyLimit: limit,
		logger:       logger,
		auditLogger:  NewAuditLogger(cfg.Root),
		toolLimiters: ratelimit.NewToolLimiters(),
	}
	s.registerTools()
	return s, nil
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	err := s.server.Run(ctx, &sdk.StdioTransport{})
	if cerr := s.Close(); err == nil {
		err = cerr
	}
	return err
}

// Close releases the store and the audit log. It is safe to call more than
// once.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		s.auditLogger.Close()
		s.closeErr = s.store.Close()
	})
	return s.closeErr
}
