package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/lzuwei/ecsrt/ecs"
	"github.com/lzuwei/ecsrt/internal/config"
	"github.com/lzuwei/ecsrt/internal/metrics"
)

var runTicks int

func init() {
	runCmd.Flags().IntVar(&runTicks, "ticks", 0, "number of ticks to run (0 = run until interrupted)")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an empty registry's scheduler, honoring configured parallel and metrics settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("ecsrtctl: %w", err)
		}

		reg := ecs.NewRegistry()
		if cfg.Metrics.Enabled {
			recorder := metrics.New(prometheus.DefaultRegisterer)
			reg.WithMetrics(recorder)
			go serveMetrics(ctx, cfg)
		}

		opts := ecs.ExecutionOptions{Parallel: cfg.Scheduler.Parallel}
		period := time.Second / time.Duration(cfg.Scheduler.TickHz)

		log.Info(ctx, "ecsrtctl: starting scheduler", "tick_hz", cfg.Scheduler.TickHz, "parallel", cfg.Scheduler.Parallel)

		ticker := time.NewTicker(period)
		defer ticker.Stop()

		ticked := 0
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := reg.ExecuteSystems(opts); err != nil {
					return fmt.Errorf("ecsrtctl: tick %d: %w", ticked, err)
				}
				ticked++
				if runTicks > 0 && ticked >= runTicks {
					log.Info(ctx, "ecsrtctl: reached requested tick count", "ticks", ticked)
					return nil
				}
			}
		}
	},
}

func serveMetrics(ctx context.Context, cfg *config.Config) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error(ctx, err, "ecsrtctl: metrics server stopped")
	}
}
