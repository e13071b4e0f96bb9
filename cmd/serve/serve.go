// Package serve provides the HTTP server command
package serve

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/tphakala/surveygen/internal/app"
	"github.com/tphakala/surveygen/internal/conf"
	"github.com/tphakala/surveygen/internal/httpcontroller"
	"github.com/tphakala/surveygen/internal/logger"
)

// Command creates the serve command
func Command(settings *conf.Settings) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve survey pages, accept results and expose metrics over HTTP",
		Long: `Serves GET /surveys/<id> as stand-alone HTML pages, accepts answers on
POST /api/v1/results, and exposes /metrics and /healthz. The server stops on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("listen") {
				settings.Server.Listen = listen
			}
			return app.Run(settings, func(ctx context.Context, rt *app.Runtime) error {
				store, err := rt.Store()
				if err != nil {
					return err
				}
				server := httpcontroller.New(settings, store, rt.Metrics, rt.Notifier)
				addr, err := server.Listen()
				if err != nil {
					return err
				}
				rt.Logger.Info("serving surveys", logger.String("address", addr.String()))
				return server.Serve(ctx)
			})
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "Listen address, e.g. :8080")
	return cmd
}
