package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/dsablic/devpulse/internal/observability"
	"github.com/dsablic/devpulse/internal/server"
)

const metricsShutdownTimeout = 5 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the statistics over a JSON HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			srvCfg := a.cfg.Server
			if cmd.Flags().Changed("host") {
				srvCfg.Host = host
			}
			if cmd.Flags().Changed("port") {
				srvCfg.Port = port
			}

			metrics := observability.Noop()
			var prom *observability.Provider
			if srvCfg.Metrics {
				var err error
				if prom, err = observability.NewPrometheus(); err != nil {
					return err
				}
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
					defer cancel()
					prom.Shutdown(shutdownCtx)
				}()
				if metrics, err = observability.NewMetrics(prom.Meter); err != nil {
					return err
				}
			}

			e, err := a.engineWith(ctx, metrics)
			if err != nil {
				return err
			}

			opts := []server.Option{server.WithLogger(a.logger)}
			if prom != nil {
				if err := observability.RegisterCacheMetrics(prom.Meter, e.CacheStats); err != nil {
					return err
				}
				opts = append(opts, server.WithMetricsHandler(prom.Handler))
			}
			return server.New(e, opts...).ListenAndServe(ctx, srvCfg)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "listen host (default server.host)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default server.port)")
	return cmd
}
