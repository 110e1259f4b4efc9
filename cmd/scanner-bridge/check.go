package main

import (
	"fmt"
	"path/filepath"

	"github.com/dockerscanner/scanner-bridge/pkg/scanner"
	"github.com/spf13/cobra"
)

func newCheckCmd(root *rootOptions) *cobra.Command {
	var workspace string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check that the scanner executable can be found",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			workspaceDir, err := workspaceRoot(workspace)
			if err != nil {
				return err
			}

			cfg, logger, err := root.load(workspaceDir, true, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			orchestrator := scanner.NewOrchestrator(cfg, logger)
			resolved, err := orchestrator.ResolveExecutable(workspaceDir)
			if err != nil {
				return err
			}
			reports := cfg.Scanner.ReportsDir
			if !filepath.IsAbs(reports) {
				reports = filepath.Join(workspaceDir, reports)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "scanner:     %s\n", resolved)
			fmt.Fprintf(out, "reports dir: %s\n", reports)
			fmt.Fprintf(out, "max output:  %s per stream\n", cfg.Scanner.MaxOutputSize)
			return nil
		},
	}

	cmd.Flags().StringVarP(&workspace, "workspace", "w", "", "project root (default: current directory)")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "scanner-bridge %s\n", version)
		},
	}
}
