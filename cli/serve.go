package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	otelapi "go.opentelemetry.io/otel"

	"github.com/variant-group/icarus/auth"
	"github.com/variant-group/icarus/colors"
	"github.com/variant-group/icarus/config"
	icarusotel "github.com/variant-group/icarus/otel"
	"github.com/variant-group/icarus/report"
	"github.com/variant-group/icarus/server"
	"github.com/variant-group/icarus/warehouse"
)

// NewServeCmd creates the "serve" subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the dashboard HTTP server",
		RunE:  runServe,
	}

	cmd.Flags().String("config", "", "Path to icarus.yaml (default: ./icarus.yaml, then ~/.icarus/config.yaml)")
	cmd.Flags().String("host", "", "Listen host (overrides config)")
	cmd.Flags().IntP("port", "p", 0, "Listen port (overrides config)")
	cmd.Flags().String("warehouse", "", "Path to the metric mart SQLite database (overrides config)")
	cmd.Flags().String("otlp-endpoint", "", "OTLP trace endpoint (host:port); empty disables export")
	cmd.Flags().Duration("read-timeout", 30*time.Second, "HTTP read timeout")
	cmd.Flags().Duration("write-timeout", 60*time.Second, "HTTP write timeout")
	cmd.Flags().Int64("max-body", 1<<20, "Max request body size in bytes")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	explicitConfig, _ := cmd.Flags().GetString("config")
	hostFlag, _ := cmd.Flags().GetString("host")
	portFlag, _ := cmd.Flags().GetInt("port")
	warehouseFlag, _ := cmd.Flags().GetString("warehouse")
	otlpEndpoint, _ := cmd.Flags().GetString("otlp-endpoint")
	readTimeout, _ := cmd.Flags().GetDuration("read-timeout")
	writeTimeout, _ := cmd.Flags().GetDuration("write-timeout")
	maxBody, _ := cmd.Flags().GetInt64("max-body")

	configPath, found, err := config.Discover(explicitConfig)
	if err != nil {
		return exitError(exitConfig, "discovering config: %v", err)
	}
	if !found {
		return exitError(exitConfig, "no config file found (looked for ./icarus.yaml and ~/.icarus/config.yaml)")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return exitError(exitConfig, "%v", err)
	}

	host := cfg.Server.Host
	if hostFlag != "" {
		host = hostFlag
	}
	if host == "" {
		host = "0.0.0.0"
	}
	port := cfg.Server.Port
	if portFlag != 0 {
		port = portFlag
	}
	if port == 0 {
		port = 8080
	}

	warehousePath := cfg.Warehouse.Path
	if warehouseFlag != "" {
		warehousePath = warehouseFlag
	}
	if warehousePath == "" {
		return exitError(exitConfig, "no warehouse path configured (set warehouse.path or --warehouse)")
	}

	store, err := warehouse.Open(warehousePath)
	if err != nil {
		return exitError(exitStore, "opening warehouse: %v", err)
	}
	defer func() {
		_ = store.Close()
	}()

	shutdownTelemetry, err := setupTelemetry(cmd.Context(), otlpEndpoint)
	if err != nil {
		return exitError(exitRuntime, "initializing telemetry: %v", err)
	}
	defer func() {
		_ = shutdownTelemetry(context.Background())
	}()

	metrics, err := icarusotel.NewMetrics(otelapi.GetMeterProvider().Meter("icarus"))
	if err != nil {
		return exitError(exitRuntime, "initializing metrics: %v", err)
	}
	tracing := icarusotel.NewTracing(otelapi.GetTracerProvider().Tracer("icarus"))

	logger := slog.Default()
	gate := auth.NewGate(cfg.Directory(), auth.NewMemoryStore())

	srv := server.NewServer(server.ServerConfig{
		Gate:         gate,
		Source:       store,
		Formatter:    report.NewFormatter(cfg.MetricConfigs()),
		Colors:       colors.Map{},
		Metrics:      cfg.MetricKeys(),
		ChartMetrics: cfg.ChartMetrics,
		Dashboards:   cfg.Dashboards,
		Filters:      cfg.Filters,
		CORSOrigin:   cfg.Server.CORSOrigin,
		MaxBody:      maxBody,
		Logger:       logger,
		Telemetry:    metrics,
		Tracing:      tracing,
	})

	if cfg.Refresh.Schedule != "" {
		scheduler, err := server.NewRefreshScheduler(server.RefreshSchedulerConfig{
			Recorder: store,
			Schedule: cfg.Refresh.Schedule,
			Source:   cfg.Refresh.Source,
			Logger:   logger,
		})
		if err != nil {
			return exitError(exitConfig, "creating refresh scheduler: %v", err)
		}
		if err := scheduler.Start(cmd.Context()); err != nil {
			return exitError(exitRuntime, "starting refresh scheduler: %v", err)
		}
		defer func() {
			_ = scheduler.Stop(context.Background())
		}()
	}

	addr := net.JoinHostPort(host, fmt.Sprintf("%d", port))
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      srv.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	// Signal handling
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(cmd.OutOrStdout(), "ICARUS dashboard listening on %s\n", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(cmd.OutOrStdout(), "Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return exitError(exitRuntime, "shutdown error: %v", err)
		}
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return exitError(exitRuntime, "server error: %v", err)
		}
		return nil
	}
}
