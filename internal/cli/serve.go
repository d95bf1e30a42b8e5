package cli

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/matzehuels/sysmap/internal/server"
	"github.com/matzehuels/sysmap/pkg/observability/prom"
	"github.com/matzehuels/sysmap/pkg/store"
)

// serveCommand creates the serve command running the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noStore bool
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API.

Layout requests start from the [layout] and [render] config sections. Saved
layouts use the configured store; Prometheus metrics are served on /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)
			if cmd.Flags().Changed("addr") {
				c.cfg.Server.Addr = addr
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			prom.New(reg).Install()

			runner, err := c.newRunner(ctx, noCache)
			if err != nil {
				return fmt.Errorf("initialize runner: %w", err)
			}
			defer runner.Close()

			var st store.Store
			if !noStore {
				st, err = c.newStore(ctx)
				if err != nil {
					return fmt.Errorf("open store: %w", err)
				}
				defer st.Close()
			}

			defaults := c.cfg.PipelineOptions()
			srv := server.New(runner, st, logger, server.Options{
				Addr:            c.cfg.Server.Addr,
				Defaults:        defaults,
				Metrics:         promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
				ShutdownTimeout: c.cfg.Server.ShutdownTimeout.Duration,
			})

			logger.Info("starting server",
				"addr", c.cfg.Server.Addr,
				"cache", c.cfg.Cache.Backend,
				"store", storeName(c.cfg.Store.Backend, noStore))
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "disable the saved-layout routes")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func storeName(backend string, disabled bool) string {
	if disabled {
		return "none"
	}
	return backend
}
