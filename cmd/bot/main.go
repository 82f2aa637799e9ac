package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/scottholdren/idle-clicker-game/internal/bot"
	"github.com/scottholdren/idle-clicker-game/internal/catalog"
	"github.com/scottholdren/idle-clicker-game/internal/config"
	"github.com/scottholdren/idle-clicker-game/internal/game"
	"github.com/scottholdren/idle-clicker-game/internal/num"
	"github.com/scottholdren/idle-clicker-game/internal/telemetry"
)

func main() {
	mode := flag.String("mode", "active", "play mode: active or passive")
	speed := flag.String("speed", "simulated", "speed: realtime or simulated")
	accel := flag.Float64("accel", 1000, "acceleration factor for simulated speed")
	maxCycles := flag.Int("max-cycles", 0, "stop after N prestige cycles (0 = unset)")
	maxDurationMs := flag.Int64("max-duration-ms", 0, "stop after N simulated milliseconds (0 = unset)")
	targetSP := flag.String("target-sp", "", "stop once strategy points reach this amount")
	difficulty := flag.String("difficulty", "", "balance preset: casual or hard, default from env")
	tickMs := flag.Int("tick-ms", 10, "wall-clock tick interval in milliseconds")
	reportJSON := flag.String("report-json", "", "also write the JSON session log to this path")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	var bal config.Balance
	switch *difficulty {
	case "casual":
		bal = config.Casual()
	case "hard":
		bal = config.Hard()
	case "":
		bal = config.FromEnv()
	default:
		logger.Error("unknown difficulty", "difficulty", *difficulty)
		os.Exit(2)
	}

	cfg := bot.Config{
		Mode:            bot.Mode(*mode),
		Speed:           bot.Speed(*speed),
		SimulationSpeed: *accel,
		MaxCycles:       *maxCycles,
		MaxDurationMs:   *maxDurationMs,
	}
	if *targetSP != "" {
		cfg.TargetPrestige = num.FromString(*targetSP)
		if !cfg.TargetPrestige.IsPositive() {
			logger.Error("target-sp must be a positive decimal", "target", *targetSP)
			os.Exit(2)
		}
	}
	if cfg.MaxCycles == 0 && cfg.MaxDurationMs == 0 && !cfg.TargetPrestige.IsPositive() {
		logger.Warn("no stop condition set, running until interrupted")
	}

	// Simulated runs use a fake engine clock stepped by the runner so that
	// temporary boost durations elapse in simulated time.
	var clock game.Clock = game.RealClock{}
	if cfg.Speed == bot.SpeedSimulated {
		clock = game.NewFakeClock(time.Now())
	}

	engine := game.NewEngine(catalog.Default(), bal, clock)
	runner := bot.NewRunner(engine, bot.NewStrategy(bal), telemetry.NewMemoryRepository(), logger)
	if err := runner.Start(cfg); err != nil {
		logger.Error("start run", "err", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runner.Run(ctx, time.Duration(*tickMs)*time.Millisecond)

	rep := runner.Report()
	fmt.Print(rep.Text(runner.EntityNamer()))

	if *reportJSON != "" {
		data, err := rep.JSON()
		if err != nil {
			logger.Error("encode report", "err", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*reportJSON, data, 0o644); err != nil {
			logger.Error("write report", "err", err)
			os.Exit(1)
		}
		logger.Info("session log written", "path", *reportJSON)
	}
}
