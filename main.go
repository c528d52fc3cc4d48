package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pthm-cable/biome/config"
	"github.com/pthm-cable/biome/runner"
	"github.com/pthm-cable/biome/server"
	"github.com/pthm-cable/biome/store"
	"github.com/pthm-cable/biome/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	biomePath := flag.String("biome", "", "Biome JSON or YAML file (empty = config biome)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = config seed, else time-based)")
	headless := flag.Bool("headless", false, "Run without the HTTP server")
	maxSteps := flag.Int64("max-steps", 0, "Stop after N steps (0 = unlimited)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	logStats := flag.Bool("log-stats", false, "Output window stats via slog")
	addr := flag.String("addr", "", "HTTP listen address (empty = config)")
	storePath := flag.String("store", "", "SQLite file for save slots (empty = config)")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	biome := cfg.Biome
	if *biomePath != "" {
		data, err := os.ReadFile(*biomePath)
		if err != nil {
			slog.Error("failed to read biome", "path", *biomePath, "error", err)
			os.Exit(1)
		}
		if biome, err = config.ParseBiome(data); err != nil {
			slog.Error("failed to load biome", "path", *biomePath, "error", err)
			os.Exit(1)
		}
	}

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = cfg.Simulation.Seed
	}
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	output, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		slog.Error("failed to create output directory", "error", err)
		os.Exit(1)
	}
	defer output.Close()
	if err := output.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config snapshot", "error", err)
	}

	opts := runner.OptionsFromConfig(cfg)
	opts.Seed = rngSeed
	opts.LogStats = *logStats
	opts.Output = output

	r, err := runner.New(biome, opts)
	if err != nil {
		slog.Error("failed to create simulation", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *headless {
		runHeadless(ctx, r, rngSeed, *maxSteps)
		return
	}

	if err := serve(ctx, r, cfg, *addr, *storePath, *maxSteps); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// runHeadless steps as fast as possible until maxSteps or a signal.
func runHeadless(ctx context.Context, r *runner.Runner, seed, maxSteps int64) {
	slog.Info("starting headless simulation",
		"seed", seed,
		"biome", r.Config().Name,
		"max_steps", maxSteps,
	)

	r.Play()
	for ctx.Err() == nil {
		if _, err := r.Advance(); err != nil {
			slog.Error("step failed", "error", err)
			return
		}
		if steps := r.Steps(); maxSteps > 0 && steps >= maxSteps {
			slog.Info("max steps reached", "steps", steps)
			return
		}
	}
	slog.Info("interrupted")
}

// serve runs the realtime loop and the HTTP server until a signal arrives.
func serve(ctx context.Context, r *runner.Runner, cfg *config.Config, addr, storePath string, maxSteps int64) error {
	if addr == "" {
		addr = cfg.Server.Addr
	}
	if storePath == "" {
		storePath = cfg.Store.Path
	}

	var st *store.Store
	if storePath != "" {
		var err error
		if st, err = store.Open(storePath); err != nil {
			return err
		}
		defer st.Close()
	}

	if maxSteps > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(ctx)
		defer cancel()
		r.Subscribe(func(s runner.Snapshot) {
			if s.Steps >= maxSteps {
				cancel()
			}
		})
	}

	gin.SetMode(gin.ReleaseMode)
	srv := server.New(r, st, time.Duration(cfg.Server.BroadcastInterval*float64(time.Second)))

	go func() {
		if err := r.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("runner stopped", "error", err)
		}
	}()

	slog.Info("starting simulation server", "seed", r.Seed(), "biome", r.Config().Name, "addr", addr)
	return srv.ListenAndServe(ctx, addr)
}
