package main

import (
	"github.com/odl-optics/remains-relay/internal/server"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the relay HTTP server",
		Long: `Start the relay HTTP server.

Routes:
  GET  /             - banner
  GET  /health       - liveness check
  GET  /metrics      - Prometheus metrics
  GET  /departments  - department table (X-ODL-TOKEN required)
  GET  /inventory    - ?category=&department=&format= (X-ODL-TOKEN required)
  POST /inventory    - {"product","department","filter","format","annotate"}

The server stops gracefully on Ctrl+C or SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			srv, err := server.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return srv.Start(cmd.Context())
		},
	}

	cmd.Flags().IntVar(&port, "port", 8080, "port to listen on (overrides config)")
	return cmd
}
