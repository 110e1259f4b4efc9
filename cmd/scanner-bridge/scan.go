package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/dockerscanner/scanner-bridge/internal/models"
	"github.com/dockerscanner/scanner-bridge/pkg/host"
	"github.com/dockerscanner/scanner-bridge/pkg/scanner"
	"github.com/spf13/cobra"
)

// exit status used when the scan was interrupted, as a shell would report SIGINT
const exitInterrupted = 130

type scanOptions struct {
	image          string
	dockerfile     string
	workspace      string
	fromDockerfile string
}

func newScanCmd(root *rootOptions) *cobra.Command {
	opts := &scanOptions{}

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan a container image, optionally with its Dockerfile",
		Long: `Scan a container image. Missing values are prompted for; an empty image
answer aborts. Scanner output is streamed to stdout and the exit status
mirrors the scanner's.`,
		Example: `  scanner-bridge scan
  scanner-bridge scan --image nginx:1.25 --dockerfile docker/Dockerfile
  scanner-bridge scan --from-dockerfile services/api/Dockerfile`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.image, "image", "i", "", "image reference to scan, e.g. alpine:latest")
	cmd.Flags().StringVarP(&opts.dockerfile, "dockerfile", "f", "", "Dockerfile to scan for misconfigurations")
	cmd.Flags().StringVarP(&opts.workspace, "workspace", "w", "", "project root; the scanner runs here (default: current directory)")
	cmd.Flags().StringVar(&opts.fromDockerfile, "from-dockerfile", "", "scan starting from an open Dockerfile, prompting only for the image")
	cmd.MarkFlagsMutuallyExclusive("dockerfile", "from-dockerfile")

	return cmd
}

func runScan(cmd *cobra.Command, root *rootOptions, opts *scanOptions) error {
	workspace, err := workspaceRoot(opts.workspace)
	if err != nil {
		return err
	}

	cfg, logger, err := root.load(workspace, true, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	orchestrator := scanner.NewOrchestrator(cfg, logger)
	ui := host.NewTerminalUI(cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
	session := host.NewSession(orchestrator, ui, workspace, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	outcome, err := scanWith(ctx, session, workspace, opts)
	if err != nil {
		return err
	}
	if outcome == nil {
		// the user dismissed a prompt
		return nil
	}
	return exitStatus(*outcome)
}

func scanWith(ctx context.Context, session *host.Session, workspace string, opts *scanOptions) (*models.Outcome, error) {
	if opts.fromDockerfile != "" {
		dockerfile := opts.fromDockerfile
		if !filepath.IsAbs(dockerfile) {
			dockerfile = filepath.Join(workspace, dockerfile)
		}
		if opts.image == "" {
			return session.ScanDockerfile(ctx, dockerfile)
		}
		return session.Run(ctx, opts.image, scanner.RelativeDockerfile(workspace, dockerfile))
	}

	if opts.image != "" {
		return session.Run(ctx, opts.image, opts.dockerfile)
	}
	return session.ScanImage(ctx)
}

// exitStatus maps an outcome to the process exit status
func exitStatus(outcome models.Outcome) error {
	switch {
	case outcome.Success:
		return nil
	case outcome.Failure == models.FailureCancelled:
		return &exitError{code: exitInterrupted}
	case outcome.ExitCode > 0:
		return &exitError{code: outcome.ExitCode}
	default:
		return &exitError{code: 1}
	}
}
