// Package serve implements the serve command.
package serve

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/agentstation/harvester/internal/appcontext"
	"github.com/agentstation/harvester/internal/server"
	"github.com/agentstation/harvester/pkg/constants"
)

// Flags holds the serve command flags.
type Flags struct {
	Host        string
	Port        int
	NoCORS      bool
	CORSOrigins []string
	RateLimit   int
	CacheTTL    time.Duration
	NoMetrics   bool
	AutoHarvest bool
}

// NewCommand creates the serve command.
func NewCommand(app appcontext.Interface) *cobra.Command {
	flags := &Flags{}
	defaults := server.DefaultConfig()

	cmd := &cobra.Command{
		Use:     "serve",
		GroupID: "core",
		Short:   "Serve the catalog over HTTP",
		Long: `Serve publishes the local catalog at /data.json, Prometheus metrics at
/metrics, and health checks at /health and /ready.

When an API key is configured (HARVESTER_SERVER_API_KEY), POST /harvest
triggers a run. With --auto-harvest every source is harvested on the
configured interval.`,
		Example: `  harvester serve
  harvester serve --port 9000 --auto-harvest
  harvester serve --cors-origins https://data.gov`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Execute(cmd.Context(), app, flags)
		},
	}

	cmd.Flags().StringVar(&flags.Host, "host", defaults.Host, "bind address")
	cmd.Flags().IntVarP(&flags.Port, "port", "p", defaults.Port, "server port")
	cmd.Flags().BoolVar(&flags.NoCORS, "no-cors", false, "disable CORS on /data.json")
	cmd.Flags().StringSliceVar(&flags.CORSOrigins, "cors-origins", nil, "allowed CORS origins (default any)")
	cmd.Flags().IntVar(&flags.RateLimit, "rate-limit", defaults.RateLimit, "requests per minute per IP (0 to disable)")
	cmd.Flags().DurationVar(&flags.CacheTTL, "cache-ttl", defaults.CacheTTL, "how long a rendered catalog is served")
	cmd.Flags().BoolVar(&flags.NoMetrics, "no-metrics", false, "disable /metrics")
	cmd.Flags().BoolVar(&flags.AutoHarvest, "auto-harvest", false, "harvest every source on an interval")

	return cmd
}

// Execute starts the server and blocks until ctx is done.
func Execute(ctx context.Context, app appcontext.Interface, flags *Flags) error {
	logger := app.Logger()

	client, err := app.Harvester(ctx)
	if err != nil {
		return err
	}

	cfg := server.DefaultConfig()
	cfg.Host = flags.Host
	cfg.Port = flags.Port
	cfg.CORSEnabled = !flags.NoCORS
	cfg.CORSOrigins = flags.CORSOrigins
	cfg.RateLimit = flags.RateLimit
	cfg.CacheTTL = flags.CacheTTL
	cfg.MetricsEnabled = !flags.NoMetrics
	cfg.APIKey = app.APIKey()

	srv := server.New(client, app.Metrics(), cfg, logger)
	defer func() { _ = srv.Shutdown(context.Background()) }()

	if flags.AutoHarvest {
		if err := client.AutoHarvestOn(); err != nil {
			return err
		}
		defer func() { _ = client.AutoHarvestOff() }()
	}

	logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Bool("cors", cfg.CORSEnabled).
		Bool("admin", cfg.APIKey != "").
		Int("rate_limit", cfg.RateLimit).
		Bool("auto_harvest", flags.AutoHarvest).
		Msg("Starting server")

	return runUntilDone(ctx, srv.HTTPServer(), logger)
}

// runUntilDone serves until ctx is cancelled, then drains connections.
func runUntilDone(ctx context.Context, httpServer *http.Server, logger *zerolog.Logger) error {
	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", httpServer.Addr).Msg("Server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- fmt.Errorf("server failed: %w", err)
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		logger.Info().Msg("Shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		logger.Info().Msg("Server stopped gracefully")
		return nil
	}
}
