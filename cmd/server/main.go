package main

import (
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"

	"github.com/scottholdren/idle-clicker-game/internal/catalog"
	"github.com/scottholdren/idle-clicker-game/internal/config"
	"github.com/scottholdren/idle-clicker-game/internal/format"
	"github.com/scottholdren/idle-clicker-game/internal/game"
	"github.com/scottholdren/idle-clicker-game/internal/num"
	"github.com/scottholdren/idle-clicker-game/internal/save"
	"github.com/scottholdren/idle-clicker-game/internal/server"
	"github.com/scottholdren/idle-clicker-game/internal/telemetry"
)

func main() {
	configPath := flag.String("config", "idle_clicker.yml", "path to YAML config")
	addr := flag.String("addr", "", "listen address, overrides config")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("load config", "err", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	bal := cfg.EffectiveBalance()
	cat := catalog.Default()
	clock := game.RealClock{}

	repo, err := save.NewFileRepo(cfg.DataDir)
	if err != nil {
		logger.Error("open save repo", "err", err)
		os.Exit(1)
	}

	events := telemetry.NewMemoryRepository()
	engine := game.NewEngine(cat, bal, clock)
	state, err := repo.Load(cat, bal, clock.Now())
	switch {
	case err == nil:
		engine.State = state
		_ = events.RecordEvent(telemetry.EventSaveLoaded, nil)
		logger.Info("save restored", "data_dir", cfg.DataDir)
	case errors.Is(err, save.ErrNoSave):
		logger.Info("no save found, starting fresh")
	default:
		// A damaged save never blocks startup; play continues from zero.
		logger.Warn("save rejected, starting fresh", "err", err)
	}

	formatter := format.Formatter{}
	if cfg.Formatter.Scientific && cfg.Formatter.ScientificThresholdExponent > 0 {
		formatter = format.Formatter{
			Scientific:          true,
			ScientificThreshold: num.FromInt(10).PowInt(cfg.Formatter.ScientificThresholdExponent),
		}
	}

	handler, err := server.NewHandler(server.Options{
		Engine:    engine,
		Repo:      repo,
		Events:    events,
		Formatter: formatter,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("build server", "err", err)
		os.Exit(1)
	}

	logger.Info("listening", "addr", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, handler); err != nil {
		logger.Error("serve", "err", err)
		os.Exit(1)
	}
}
