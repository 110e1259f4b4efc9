package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/dockerscanner/scanner-bridge/pkg/bridge"
	"github.com/dockerscanner/scanner-bridge/pkg/logging"
	"github.com/dockerscanner/scanner-bridge/pkg/scanner"
	"github.com/dockerscanner/scanner-bridge/pkg/shutdown"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var workspace, address string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve scans over a local HTTP endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			workspaceDir, err := workspaceRoot(workspace)
			if err != nil {
				return err
			}

			cfg, logger, err := root.load(workspaceDir, false, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if address != "" {
				cfg.Server.Address = address
			}

			logging.LogStartup(logger, version, cfg.Server.Address)

			orchestrator := scanner.NewOrchestrator(cfg, logger)
			if err := orchestrator.ValidateConfig(workspaceDir); err != nil {
				logger.WithError(err).Warn("Scanner is not available yet, /ready will report not ready")
			}

			server := bridge.NewServer(cfg, orchestrator, workspaceDir, logger)

			shutdownTimeout, _ := cfg.ParseDuration(cfg.Server.ShutdownTimeout)
			manager := shutdown.NewManager(shutdownTimeout, logger)
			manager.RegisterHandler("http-server", server.Shutdown)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(server.Start)
			g.Go(func() error {
				<-gctx.Done()
				logger.Info("Initiating graceful shutdown")
				return manager.Shutdown(context.Background())
			})

			return g.Wait()
		},
	}

	cmd.Flags().StringVarP(&workspace, "workspace", "w", "", "default project root for requests that do not name one")
	cmd.Flags().StringVar(&address, "address", "", "listen address (overrides server.address)")

	return cmd
}
