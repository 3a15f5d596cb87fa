// Command kvmir-server runs the kvmir connection server: a single
// positional bind-address argument overriding the configured default, per
// spec §6, wired up with cobra the way DanDo385-eth-rpc-monitor's monitor
// command structures its CLI surface.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kvmir/kvmir/internal/server"
	"github.com/kvmir/kvmir/pkg/config"
	"github.com/kvmir/kvmir/pkg/engine"
	"github.com/kvmir/kvmir/pkg/metrics"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		metricAddr string
	)

	cmd := &cobra.Command{
		Use:   "kvmir-server [bind-address]",
		Short: "Run the kvmir in-memory key-value server",
		Long: `kvmir-server listens for RESP and minimal HTTP/1.1 clients on one
TCP address and serves a bounded, TTL-aware in-memory key-value store.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var bindOverride string
			if len(args) == 1 {
				bindOverride = args[0]
			}
			return run(cmd.Context(), configPath, bindOverride, metricAddr)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to a TOML configuration file")
	cmd.Flags().StringVar(&metricAddr, "metrics-addr", "127.0.0.1:9090", "address for the Prometheus /metrics endpoint")

	return cmd
}

func run(ctx context.Context, configPath, bindOverride, metricAddr string) error {
	cfg, err := config.Load(configPath, bindOverride)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}
	logger := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()

	reg := metrics.New()
	engineCfg := engine.Config{
		Capacity:    cfg.MaxItems,
		Persistence: cfg.Persistence,
		Logger:      logger,
		OnEvict:     reg.Evictions.Inc,
		OnExpire:    reg.Expirations.Inc,
		OnSnapshot: func(ok bool) {
			if ok {
				reg.SnapshotOK.Inc()
			} else {
				reg.SnapshotFail.Inc()
			}
		},
	}
	store := engine.Open(engineCfg)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricsSrv := metrics.NewServer(metricAddr, reg, logger)
	srv := server.New(cfg.BindAddr, logger, reg)

	errCh := make(chan error, 2)
	go func() { errCh <- metricsSrv.Serve(ctx) }()
	go func() { errCh <- srv.Run(ctx, store) }()

	for i := 0; i < 2; i++ {
		if err := <-errCh; err != nil {
			stop()
			return err
		}
	}
	return nil
}
