package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/aevon-lab/telemetry-rollup/internal/aggregation"
	v1 "github.com/aevon-lab/telemetry-rollup/internal/api/v1"
	"github.com/aevon-lab/telemetry-rollup/internal/core/config"
	"github.com/aevon-lab/telemetry-rollup/internal/core/partition"
	"github.com/aevon-lab/telemetry-rollup/internal/ingestion"
	"github.com/aevon-lab/telemetry-rollup/internal/projection"
	"github.com/aevon-lab/telemetry-rollup/internal/server"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "Path to configuration file")
	serve := flag.Bool("serve", false, "Run the HTTP API and the cron scheduler instead of a single rollup")
	date := flag.String("date", "", "Day to roll up (yyyy-mm-dd, default yesterday UTC)")
	family := flag.String("family", "all", "Family to roll up: api, vitals or all")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	slog.Info("Loaded config", "backend", cfg.Store.Backend, "families", cfg.Aggregation.Families)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	if err := run(ctx, cfg, *serve, *date, *family); err != nil {
		slog.Error("Exited with error", "error", err)
		os.Exit(1)
	}
	slog.Info("Shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, serve bool, date, family string) error {
	st, err := openStores(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.close()

	locker, closeLocker, err := openLocker(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to initialize run lock: %w", err)
	}
	defer closeLocker()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := []aggregation.PipelineOption{aggregation.WithMetrics(aggregation.NewMetrics(registry))}
	if locker != nil {
		opts = append(opts, aggregation.WithLocker(locker, cfg.Redis.LockTTL))
	}
	pipeline, err := aggregation.NewPipeline(st.events, st.aggregates, jobParameter(cfg.Aggregation), opts...)
	if err != nil {
		return err
	}

	if !serve {
		return runOnce(ctx, pipeline, date, family)
	}

	var schedOpts []aggregation.SchedulerOption
	if st.purger != nil {
		schedOpts = append(schedOpts, aggregation.WithPurger(st.purger))
	}
	if cfg.Aggregation.RunOnStart {
		schedOpts = append(schedOpts, aggregation.WithRunOnStart())
	}
	scheduler := aggregation.NewScheduler(pipeline, cfg.Aggregation.Schedule, cfg.Aggregation.FamilyList(), schedOpts...)

	srv := server.New(fmtAddr(cfg.Server.Host, cfg.Server.Port), cfg.Server.Mode, cfg.Store.Backend, st.health, registry)
	ingestion.NewService(st.events, cfg.Aggregation.ShardCount, cfg.Server.MaxBodySizeMB, cfg.Server.MaxBatchEvents).RegisterRoutes(srv.Engine)
	projection.NewService(st.aggregates, pipeline).RegisterRoutes(srv.Engine)
	aggregation.NewRunService(pipeline).RegisterRoutes(srv.Engine)

	// The server and the scheduler stop together: a bind failure cancels the
	// scheduler, and a signal stops both.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return scheduler.Start(gctx) })
	g.Go(func() error {
		if err := srv.Run(gctx); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// runOnce rolls up one day for the selected families and returns.
func runOnce(ctx context.Context, pipeline *aggregation.Pipeline, date, family string) error {
	day := partition.Yesterday(time.Now())
	if date != "" {
		var err error
		if day, err = partition.ParseDate(date); err != nil {
			return err
		}
	}

	families := v1.Families
	if family != "all" {
		f, err := v1.ParseFamily(family)
		if err != nil {
			return err
		}
		families = []v1.Family{f}
	}

	// Schedule is unused here; RunDay only walks the families.
	return aggregation.NewScheduler(pipeline, "", families).RunDay(ctx, day)
}

func jobParameter(c config.AggregationConfig) aggregation.JobParameter {
	return aggregation.JobParameter{
		ShardCount:       c.ShardCount,
		FetchConcurrency: c.FetchConcurrency,
		PageSize:         c.PageSize,
		WriteBatchSize:   c.WriteBatchSize,
		WriteConcurrency: c.WriteConcurrency,
		MaxRetries:       c.MaxRetries,
		RetryBaseDelay:   c.RetryBaseDelay,
		RetentionDays:    c.RetentionDays,
		ApdexThresholdMs: c.ApdexThresholdMs,
	}
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
