// Command carbonshiftd runs the carbon-aware deferred scheduler: an HTTP
// ingress for incoming requests, a tick-driven dispatcher that drains slot
// queues, and a one-shot scheduling cycle that partitions the pending pool
// and solves it against the carbon-intensity forecast. Modeled on
// cmd/node/main.go's cobra rootCmd-plus-subcommand layout.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/federicogiustii/carbonshift/internal/benchmark"
	"github.com/federicogiustii/carbonshift/internal/bus"
	"github.com/federicogiustii/carbonshift/internal/catalog"
	"github.com/federicogiustii/carbonshift/internal/config"
	"github.com/federicogiustii/carbonshift/internal/dispatcher"
	"github.com/federicogiustii/carbonshift/internal/executor"
	"github.com/federicogiustii/carbonshift/internal/logging"
	"github.com/federicogiustii/carbonshift/internal/partitioner"
	"github.com/federicogiustii/carbonshift/internal/recorder"
	"github.com/federicogiustii/carbonshift/internal/requestpool"
	"github.com/federicogiustii/carbonshift/internal/slotqueue"
	"github.com/federicogiustii/carbonshift/internal/solver"
	"github.com/federicogiustii/carbonshift/pkg/api"
)

var (
	cfgFile string
	version = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "carbonshiftd",
		Short:   "Carbon-aware deferred compute scheduler",
		Version: version,
	}
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./carbonshift.yaml)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(scheduleOnceCmd())
	rootCmd.AddCommand(benchmarkCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadApp reads configuration and the catalog/intensity files it points
// at, the shared setup every subcommand needs before doing its own thing.
func loadApp() (*config.Config, *catalog.Catalog, catalog.Intensity, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, catalog.Intensity{}, fmt.Errorf("loading config: %w", err)
	}

	stratFile, err := os.Open(cfg.Catalog.StrategiesFile)
	if err != nil {
		return nil, nil, catalog.Intensity{}, fmt.Errorf("opening strategies file: %w", err)
	}
	defer stratFile.Close()
	cat, err := catalog.LoadCatalog(stratFile)
	if err != nil {
		return nil, nil, catalog.Intensity{}, fmt.Errorf("loading catalog: %w", err)
	}

	intensityFile, err := os.Open(cfg.Catalog.IntensityFile)
	if err != nil {
		return nil, nil, catalog.Intensity{}, fmt.Errorf("opening intensity file: %w", err)
	}
	defer intensityFile.Close()
	intensity, err := catalog.LoadIntensity(intensityFile, cfg.Horizon)
	if err != nil {
		return nil, nil, catalog.Intensity{}, fmt.Errorf("loading intensity: %w", err)
	}

	return cfg, cat, intensity, nil
}

func buildRecorder(ctx context.Context, cfg *config.Config) (recorder.Recorder, func() error, error) {
	switch cfg.Recorder.Driver {
	case "postgres":
		pg, err := recorder.NewPostgresRecorder(ctx, recorder.PostgresConfig{
			Host:     cfg.Recorder.Postgres.Host,
			Port:     cfg.Recorder.Postgres.Port,
			Database: cfg.Recorder.Postgres.Database,
			Username: cfg.Recorder.Postgres.Username,
			Password: cfg.Recorder.Postgres.Password,
			SSLMode:  cfg.Recorder.Postgres.SSLMode,
		})
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	default:
		f, err := os.OpenFile(cfg.Recorder.CSVPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening csv recorder sink: %w", err)
		}
		return recorder.NewCSVRecorder(f), f.Close, nil
	}
}

func buildBuses(cfg *config.Config) (bus.TickBus, bus.SlotBus, func() error, error) {
	if cfg.Bus.Driver == "redis" {
		opts, err := redis.ParseURL(cfg.Bus.RedisURL)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("parsing redis url: %w", err)
		}
		client := redis.NewClient(opts)
		return bus.NewTickBusRedis(client), bus.NewSlotBusRedis(client), client.Close, nil
	}
	tickBus := bus.NewTickBusMemory()
	slotBus := bus.NewSlotBusMemory()
	return tickBus, slotBus, func() error { return nil }, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP ingress, tick source, and tick dispatcher (scheduling runs on POST /v1/admin/schedule, not on a timer)",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, cat, intensity, err := loadApp()
	if err != nil {
		return err
	}

	log := logging.New(logging.Config{
		Level:          cfg.Logging.Level,
		Format:         cfg.Logging.Format,
		ServiceName:    "carbonshiftd",
		ServiceVersion: version,
	})

	rec, closeRec, err := buildRecorder(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRec()

	tickBus, slotBus, closeBus, err := buildBuses(cfg)
	if err != nil {
		return err
	}
	defer closeBus()

	pool := requestpool.New(cfg.Horizon)
	queues := slotqueue.New(cfg.Horizon)
	registry := executor.NewRegistry(executor.NewHTTPDelivery(5 * time.Second))
	dispatch := dispatcher.New(queues, tickBus, slotBus, registry, log)

	srv := api.New(pool, cat, intensity, queues, dispatch, rec, api.Config{
		JWTSecret:      []byte(cfg.API.JWTSecret),
		RateLimitRPS:   cfg.API.RateLimitRPS,
		RateLimitBurst: cfg.API.RateLimitBurst,
		Beta:           cfg.Solver.Beta,
		Epsilon:        cfg.Solver.Epsilon,
		WallClockLimit: cfg.Solver.WallClockLimit,
	}, log)

	httpSrv := &http.Server{Addr: cfg.API.Listen, Handler: srv.Handler()}

	errCh := make(chan error, 3)
	go func() {
		if err := dispatch.Run(ctx); err != nil {
			errCh <- fmt.Errorf("dispatcher stopped: %w", err)
		}
	}()
	go tickLoop(ctx, tickBus, cfg)
	go func() {
		log.Info().Str("addr", cfg.API.Listen).Msg("http server listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		log.Error().Err(err).Msg("component failed")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.API.ShutdownGrace)
	defer shutdownCancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// tickLoop advances the slot clock on cfg.Solver.CycleInterval, publishing
// ticks for the dispatcher (and any other tick subscribers) to consume.
func tickLoop(ctx context.Context, tickBus bus.TickBus, cfg *config.Config) {
	interval := cfg.Solver.CycleInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	tick := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = tickBus.Publish(ctx, bus.Tick{Tick: tick})
			tick = (tick + 1) % cfg.Horizon
		}
	}
}

func scheduleOnceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule-once",
		Short: "Run a single partition-and-solve cycle against the current pending pool and exit",
		RunE:  runScheduleOnce,
	}
}

func runScheduleOnce(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, cat, intensity, err := loadApp()
	if err != nil {
		return err
	}

	rec, closeRec, err := buildRecorder(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRec()

	// schedule-once starts from a fresh pool and runs no ingress, so the
	// pool it drains is empty and the cycle records a run with no rows.
	pool := requestpool.New(cfg.Horizon)
	requests := pool.Drain()

	blocks := partitioner.Partition(requests, cfg.Solver.Beta)
	model, err := solver.Build(blocks, cat.Strategies(), intensity, cfg.Solver.Epsilon)
	if err != nil {
		return err
	}

	budget := cfg.Solver.WallClockLimit
	if budget <= 0 {
		budget = solver.DefaultWallClockBudget
	}
	result, err := model.Solve(ctx, budget)
	if err != nil {
		return err
	}

	assignment := result.Assignment()
	rows := recorder.BuildRows(assignment, cat, intensity)
	summary := recorder.BuildSummary(rows, intensity.Len(), string(result.Status), result.SolveTime.Seconds())
	return rec.Record(rows, summary)
}

func benchmarkCmd() *cobra.Command {
	var mode string
	var currentTick int
	var seed int64

	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Run the non-optimizing baseline assigner instead of the constraint solver",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBenchmark(cmd.Context(), benchmark.Mode(mode), currentTick, seed)
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "naive", "assignment mode: low, medium, high, or naive")
	cmd.Flags().IntVar(&currentTick, "current-tick", 0, "dispatcher tick the benchmark assumes as \"now\"")
	cmd.Flags().Int64Var(&seed, "seed", 1, "random seed for naive mode's draws")
	return cmd
}

func runBenchmark(ctx context.Context, mode benchmark.Mode, currentTick int, seed int64) error {
	cfg, cat, intensity, err := loadApp()
	if err != nil {
		return err
	}

	pool := requestpool.New(cfg.Horizon)
	requests := pool.Drain()

	assignment, err := benchmark.Assign(requests, mode, cfg.Horizon, cat, currentTick, rand.New(rand.NewSource(seed)))
	if err != nil {
		return err
	}

	rec, closeRec, err := buildRecorder(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRec()

	rows := recorder.BuildRows(assignment, cat, intensity)
	summary := recorder.BuildSummary(rows, intensity.Len(), "benchmark", 0)
	return rec.Record(rows, summary)
}
