// Package cli implements the listen-history command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"listen-history/config"
	"listen-history/utils"
)

// Version is set at build time with -ldflags "-X listen-history/cli.Version=...".
var Version = "dev"

type rootOptions struct {
	logLevel string
}

// Execute runs the command line and prints a readable message on failure.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "Error:", describeError(err))
		return err
	}
	return nil
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "listen-history",
		Short:         "Music listening history insights",
		Long:          `Fetches a listening history from Google Sheets, keeps a cached canonical copy and reports on it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides LOG_LEVEL")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "listen-history version %s\n", Version)
		},
	})

	root.AddCommand(newRefreshCmd(opts))
	root.AddCommand(newReportCmd(opts))
	root.AddCommand(newExportCmd(opts))
	root.AddCommand(newServeCmd(opts))

	return root
}

// setup loads configuration and wires the application for one command.
func (o *rootOptions) setup(cmd *cobra.Command) (*app, error) {
	cfg := config.Load()
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	logger := utils.NewLoggerWithLevel(cfg.LogLevel)
	return newApp(cmd.Context(), cfg, logger)
}
