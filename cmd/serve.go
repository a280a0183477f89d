package cmd

import (
	"github.com/spf13/cobra"

	"github.com/RyanBlaney/sonido-vox/server"
)

func serveCommand(ctx *Context) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP prediction server",
		Long:  `Serve POST /predict, POST /extract, GET /health and GET /metrics.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(ctx.Settings)
			if err != nil {
				return err
			}

			cfg := ctx.Settings.ServerConfig()
			if listen != "" {
				cfg.Listen = listen
			}
			srv, err := server.New(cfg, svc)
			if err != nil {
				return err
			}
			return srv.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "Listen address, overrides server.listen")
	return cmd
}
