package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lakeops/bridge/internal/catalog"
	"github.com/lakeops/bridge/internal/config"
	"github.com/lakeops/bridge/internal/job"
	"github.com/lakeops/bridge/internal/logger"
	"github.com/lakeops/bridge/internal/server"
	"github.com/lakeops/bridge/internal/validate"
	"github.com/lakeops/bridge/internal/workspace"
)

type serveFlags struct {
	port int
}

// newServeCommand creates the serve subcommand
func newServeCommand() *cobra.Command {
	flags := &serveFlags{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the migration portal HTTP server",
		Long:  `Start the HTTP server that serves the migration portal UI and its JSON API: uploads, analyze and transpile runs, validation and result downloads.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), flags)
		},
	}

	cmd.Flags().IntVarP(&flags.port, "port", "p", 0, "Port to run the HTTP server on (overrides BRIDGE_HTTP_PORT)")

	return cmd
}

// runServe builds the portal from configuration and serves until interrupted
func runServe(ctx context.Context, flags *serveFlags) error {
	cfg, err := config.New()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if flags.port != 0 {
		cfg.Server.Port = flags.port
	}

	srv, err := buildServer(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logger.Infof("Starting bridge portal on port %d (%s executor)", cfg.Server.Port, cfg.Executor)
		serverErr <- srv.Start(ctx)
	}()

	select {
	case <-sigChan:
		logger.Info("Received shutdown signal")
		cancel()
		err = <-serverErr
	case err = <-serverErr:
	}

	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}

// buildServer assembles the portal's collaborators from configuration
func buildServer(cfg *config.Config) (*server.Server, error) {
	manager, err := workspace.NewManager(cfg.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace manager: %w", err)
	}

	cat, err := catalog.Load(cfg.CatalogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load source catalog: %w", err)
	}

	opts := server.Options{
		Port:     cfg.Server.Port,
		Manager:  manager,
		Reporter: validate.NewReporter(cfg.Validation),
		Catalog:  cat,
	}

	if cfg.IsRemote() {
		remote := job.NewRemoteExecutor(cfg.Backend)
		opts.Orchestrator = job.NewOrchestrator(remote, cat)
		opts.BackendHealth = remote
		opts.Downloads = remote
	} else {
		local := job.NewLocalExecutor(cfg.Tool, cfg.WorkDir)
		opts.Orchestrator = job.NewOrchestrator(local, cat)
	}

	return server.NewServer(opts), nil
}
