package main

import (
	"io"
	"path/filepath"

	"github.com/dockerscanner/scanner-bridge/pkg/config"
	"github.com/dockerscanner/scanner-bridge/pkg/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "scanner-bridge",
		Short: "Run the container image scanner from editors and terminals",
		Long: `scanner-bridge launches the external image scanner, streams its output
and reports where the generated reports were written.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a config file (default: $SCANNER_BRIDGE_CONFIG or <workspace>/"+config.WorkspaceConfigName+")")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(
		newScanCmd(opts),
		newServeCmd(opts),
		newCheckCmd(opts),
		newVersionCmd(),
	)

	return cmd
}

// load discovers and loads the configuration for workspaceRoot and builds a logger.
// quiet raises the default level to warn so logs do not interleave with scanner output.
func (o *rootOptions) load(workspaceRoot string, quiet bool, logOut io.Writer) (*config.Config, *logrus.Logger, error) {
	path := config.Discover(o.configPath, workspaceRoot)
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, nil, err
	}

	level := logging.LogLevel(cfg.LogLevel)
	format := logging.LogFormat(cfg.LogFormat)
	switch {
	case o.verbose:
		level = logging.LogLevelDebug
	case quiet:
		level = logging.LogLevelWarn
		format = logging.LogFormatText
	}

	logger := logging.NewLogger(level, format, logOut)
	logging.LogConfigurationLoaded(logger, path, cfg.Scanner.CLIPath)
	return cfg, logger, nil
}

func workspaceRoot(dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	return filepath.Abs(dir)
}
