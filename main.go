package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pthm-cable/swarmmind/config"
	"github.com/pthm-cable/swarmmind/game"
	"github.com/pthm-cable/swarmmind/inspector"
	"github.com/pthm-cable/swarmmind/telemetry"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = config seed, then time-based)")
	maxTicks := flag.Int64("max-ticks", 0, "Stop after N ticks (0 = until interrupted)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	debug := flag.Bool("debug", false, "Enable debug logging (strategy transitions, sweeps)")
	statsWindow := flag.Int("stats-window", 0, "Stats window size in ticks (0 = use config)")
	snapshotDir := flag.String("snapshot-dir", "", "Directory for bookmark snapshot files")
	inspectAddr := flag.String("inspect-addr", "", "Serve the inspector on this address (empty = disabled)")
	inspectEvery := flag.Int64("inspect-every", 5, "Publish an inspector frame every N ticks")
	heatmapPNG := flag.String("heatmap-png", "", "Write the final heat map to this PNG file")
	realtime := flag.Bool("realtime", false, "Pace ticks to simulation.tick_ms")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()
	if *statsWindow > 0 {
		cfg.Telemetry.StatsWindowTicks = *statsWindow
	}

	output, err := telemetry.NewOutputManager(*outputDir)
	if err != nil {
		slog.Error("failed to create output manager", "error", err)
		os.Exit(1)
	}
	defer output.Close()
	if err := output.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config", "error", err)
		os.Exit(1)
	}

	metrics := telemetry.NewMetrics()
	session := game.NewSession(cfg, game.Options{
		Seed:        *seed,
		Logger:      logger,
		Metrics:     metrics,
		Perf:        telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		Output:      output,
		LogStats:    *logStats,
		SnapshotDir: *snapshotDir,
	})
	ctrl := session.Controller()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var ins *inspector.Inspector
	if *inspectAddr != "" {
		ins = inspector.NewInspector(logger)
		srv := &http.Server{Addr: *inspectAddr, Handler: inspector.NewRouter(ins, metrics)}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("inspector server failed", "error", err)
				stop()
			}
		}()
		defer func() {
			ins.Close()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
		slog.Info("inspector listening", "addr", *inspectAddr)
	}

	slog.Info("starting headless session",
		"session", ctrl.SessionID().String(),
		"seed", ctrl.Seed(),
		"max_ticks", *maxTicks,
		"stats_window", cfg.Telemetry.StatsWindowTicks,
	)

	var pace *time.Ticker
	if *realtime {
		pace = time.NewTicker(time.Duration(cfg.Simulation.TickMs) * time.Millisecond)
		defer pace.Stop()
	}

loop:
	for *maxTicks <= 0 || ctrl.TickCount() < *maxTicks {
		select {
		case <-ctx.Done():
			slog.Info("interrupted", "tick", ctrl.TickCount())
			break loop
		default:
		}

		session.Step()

		if ins != nil && ctrl.TickCount()%max(*inspectEvery, 1) == 0 {
			if err := ins.Publish(inspector.FrameFrom(ctrl), ctrl.HeatmapImage()); err != nil {
				slog.Error("failed to publish inspector frame", "error", err)
			}
		}
		if pace != nil {
			select {
			case <-pace.C:
			case <-ctx.Done():
			}
		}
	}

	img := ctrl.HeatmapImage()
	if err := output.WriteHeatmap(img); err != nil {
		slog.Error("failed to write heatmap", "error", err)
	}
	if path, err := output.WriteSnapshot(ctrl.Snapshot()); err != nil {
		slog.Error("failed to write snapshot", "error", err)
	} else if path != "" {
		slog.Info("final snapshot saved", "path", path)
	}
	if *heatmapPNG != "" {
		if err := writeHeatmapPNG(*heatmapPNG, img); err != nil {
			slog.Error("failed to write heatmap png", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("session finished", "stats", session.Stats())
}
