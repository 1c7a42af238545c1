package cli

import (
	"github.com/spf13/cobra"

	"listen-history/api"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var (
		addr  string
		debug bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve summaries over HTTP",
		Long: `Serve exposes the summaries as JSON under /api, a health check at /healthz
and Prometheus metrics at /metrics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := root.setup(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if addr == "" {
				addr = a.cfg.ServerAddr
			}

			handler := api.NewHandler(a.summaries, a.cache, a.cfg.TopN, a.cfg.CacheTTL, a.logger)
			server := api.NewServer(handler, api.ServerOptions{
				Addr:     addr,
				Debug:    debug,
				Metrics:  a.metrics.Handler(),
				Observer: a.metrics,
			}, a.logger)

			return server.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default SERVER_ADDR)")
	cmd.Flags().BoolVar(&debug, "debug", false, "run gin in debug mode")
	return cmd
}
