// Package server exposes the game engine and the bot runner over a JSON
// HTTP API. Rendering is left to clients; this is the pull-based state and
// status surface.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/scottholdren/idle-clicker-game/internal/bot"
	"github.com/scottholdren/idle-clicker-game/internal/format"
	"github.com/scottholdren/idle-clicker-game/internal/game"
	"github.com/scottholdren/idle-clicker-game/internal/httpmw"
	"github.com/scottholdren/idle-clicker-game/internal/num"
	"github.com/scottholdren/idle-clicker-game/internal/save"
	"github.com/scottholdren/idle-clicker-game/internal/telemetry"
)

// Options wires the server's collaborators. Engine is required; Repo may be
// nil to run without persistence.
type Options struct {
	Engine    *game.Engine
	Repo      *save.FileRepo
	Events    telemetry.Repository
	Formatter format.Formatter
	Logger    *slog.Logger

	// BotTickInterval overrides the background tick period, mainly for
	// tests. Zero means the runner default.
	BotTickInterval time.Duration
}

type Server struct {
	runner    *bot.Runner
	repo      *save.FileRepo
	events    telemetry.Repository
	formatter format.Formatter
	logger    *slog.Logger

	botTickInterval time.Duration
	botCtx          context.Context
}

// NewHandler builds the API handler. All engine access is serialized
// through the bot runner's lock so interactive calls never interleave with
// a running simulation tick.
func NewHandler(opts Options) (http.Handler, error) {
	if opts.Engine == nil {
		return nil, errors.New("engine is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Events == nil {
		opts.Events = telemetry.NewMemoryRepository()
	}

	s := &Server{
		runner:          bot.NewRunner(opts.Engine, bot.NewStrategy(opts.Engine.Balance), opts.Events, opts.Logger),
		repo:            opts.Repo,
		events:          opts.Events,
		formatter:       opts.Formatter,
		logger:          opts.Logger,
		botTickInterval: opts.BotTickInterval,
		botCtx:          context.Background(),
	}

	mux := http.NewServeMux()
	rr := &routeRegistry{}

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":      true,
			"service": "idle-clicker",
			"time":    time.Now().UTC().Format(time.RFC3339),
		})
	})

	rr.handle(mux, "GET /api/state", "full game state snapshot", s.handleState)
	rr.handle(mux, "POST /api/click", "perform manual clicks", s.handleClick)
	rr.handle(mux, "POST /api/purchase/generator", "buy generator units", s.handlePurchaseGenerator)
	rr.handle(mux, "POST /api/purchase/upgrade", "buy an upgrade", s.handlePurchaseUpgrade)
	rr.handle(mux, "POST /api/purchase/engagement", "spend strategy points on an engagement level", s.handlePurchaseEngagement)
	rr.handle(mux, "POST /api/prestige", "reset for strategy points", s.handlePrestige)
	rr.handle(mux, "POST /api/offline-claim", "claim capped offline earnings", s.handleOfflineClaim)
	rr.handle(mux, "GET /api/save", "export the current save", s.handleSaveExport)
	rr.handle(mux, "POST /api/save", "persist the current save to disk", s.handleSavePersist)
	rr.handle(mux, "GET /api/stats", "telemetry aggregates", s.handleStats)
	rr.handle(mux, "POST /api/bot/start", "start a bot run", s.handleBotStart)
	rr.handle(mux, "POST /api/bot/pause", "pause the bot run", s.handleBotPause)
	rr.handle(mux, "POST /api/bot/resume", "resume a paused run", s.handleBotResume)
	rr.handle(mux, "POST /api/bot/stop", "stop the bot run", s.handleBotStop)
	rr.handle(mux, "GET /api/bot/status", "bot run status", s.handleBotStatus)
	rr.handle(mux, "GET /api/bot/report", "bot run report, text or json", s.handleBotReport)

	mux.HandleFunc("GET /api/routes", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, rr.list())
	})

	return httpmw.Chain(mux,
		httpmw.WithRequestID,
		httpmw.WithRecover(opts.Logger),
		httpmw.WithAccessLog(opts.Logger),
	), nil
}

type generatorView struct {
	ID                string       `json:"id"`
	Name              string       `json:"name"`
	Owned             int          `json:"owned"`
	Unlocked          bool         `json:"unlocked"`
	NextCost          num.Quantity `json:"next_cost"`
	NextCostDisplay   string       `json:"next_cost_display"`
	ProductionPerUnit num.Quantity `json:"production_per_unit"`
}

type upgradeView struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Purchases       int          `json:"purchases"`
	MaxPurchases    int          `json:"max_purchases"`
	Unlocked        bool         `json:"unlocked"`
	Maxed           bool         `json:"maxed"`
	NextCost        num.Quantity `json:"next_cost"`
	NextCostDisplay string       `json:"next_cost_display"`
}

type effectView struct {
	UpgradeID   string       `json:"upgrade_id"`
	Multiplier  num.Quantity `json:"multiplier"`
	RemainingMs int64        `json:"remaining_ms"`
}

type stateView struct {
	Currency        num.Quantity `json:"currency"`
	CurrencyDisplay string       `json:"currency_display"`
	Views           num.Quantity `json:"views"`
	TotalEarned     num.Quantity `json:"total_earned"`
	StrategyPoints  num.Quantity `json:"strategy_points"`
	EngagementLevel int          `json:"engagement_level"`
	EngagementCost  num.Quantity `json:"engagement_cost"`
	PrestigeCount   int          `json:"prestige_count"`
	TotalClicks     int64        `json:"total_clicks"`

	ClickValue        num.Quantity `json:"click_value"`
	ProductionPerSec  num.Quantity `json:"production_per_second"`
	ProductionDisplay string       `json:"production_display"`

	CanPrestige  bool         `json:"can_prestige"`
	PrestigeGain num.Quantity `json:"prestige_gain"`

	Generators []generatorView `json:"generators"`
	Upgrades   []upgradeView   `json:"upgrades"`
	Effects    []effectView    `json:"effects"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	var view stateView
	_ = s.runner.WithEngine(func(e *game.Engine) error {
		now := e.Clock.Now()
		view = stateView{
			Currency:          e.State.Currency,
			CurrencyDisplay:   s.formatter.Format(e.State.Currency.Floor()),
			Views:             e.State.Views,
			TotalEarned:       e.State.TotalEarned,
			StrategyPoints:    e.State.StrategyPoints,
			EngagementLevel:   e.State.EngagementLevel,
			EngagementCost:    e.EngagementCost(),
			PrestigeCount:     e.State.TotalPrestigeCount,
			TotalClicks:       e.State.TotalClicks,
			ClickValue:        e.EffectiveClickValue(),
			ProductionPerSec:  e.TotalIdleProduction(),
			ProductionDisplay: s.formatter.FormatRate(e.TotalIdleProduction()),
			CanPrestige:       e.CanPrestige(),
			PrestigeGain:      e.PrestigeGain(),
		}
		for _, g := range e.State.Generators {
			cost := e.GeneratorCost(g, 1)
			view.Generators = append(view.Generators, generatorView{
				ID:                g.ID,
				Name:              g.Def.Name,
				Owned:             g.Owned,
				Unlocked:          g.Unlocked,
				NextCost:          cost,
				NextCostDisplay:   s.formatter.Format(cost),
				ProductionPerUnit: g.Def.BaseProduction,
			})
		}
		for _, u := range e.State.Upgrades {
			cost := e.UpgradeCost(u)
			view.Upgrades = append(view.Upgrades, upgradeView{
				ID:              u.ID,
				Name:            u.Def.Name,
				Purchases:       u.Purchases,
				MaxPurchases:    u.Def.MaxPurchases,
				Unlocked:        u.Unlocked,
				Maxed:           u.Maxed(),
				NextCost:        cost,
				NextCostDisplay: s.formatter.Format(cost),
			})
		}
		for _, eff := range e.State.Effects {
			view.Effects = append(view.Effects, effectView{
				UpgradeID:   eff.UpgradeID,
				Multiplier:  eff.Multiplier,
				RemainingMs: eff.Remaining(now).Milliseconds(),
			})
		}
		return nil
	})
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleClick(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Count int `json:"count"`
	}
	// A missing or empty body means a single click.
	_ = decodeJSON(r, &req)
	if req.Count <= 0 {
		req.Count = 1
	}
	const maxClicksPerRequest = 1000
	if req.Count > maxClicksPerRequest {
		req.Count = maxClicksPerRequest
	}

	earned := num.Zero()
	_ = s.runner.WithEngine(func(e *game.Engine) error {
		for i := 0; i < req.Count; i++ {
			earned = earned.Add(e.Click())
		}
		e.RefreshUnlocks()
		return nil
	})
	s.record(telemetry.EventClick, telemetry.EventMetadata{"count": req.Count})
	writeJSON(w, http.StatusOK, map[string]any{
		"clicks": req.Count,
		"earned": earned,
	})
}

func (s *Server) handlePurchaseGenerator(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID     string `json:"id"`
		Amount int    `json:"amount"`
		Max    bool   `json:"max"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.ID == "" {
		writeErr(w, http.StatusBadRequest, "id is required")
		return
	}
	if req.Amount <= 0 {
		req.Amount = 1
	}

	var (
		bought int
		cost   num.Quantity
	)
	err := s.runner.WithEngine(func(e *game.Engine) error {
		var err error
		if req.Max {
			bought, cost, err = e.PurchaseMaxAffordable(req.ID)
			return err
		}
		cost, err = e.PurchaseGenerator(req.ID, req.Amount)
		bought = req.Amount
		return err
	})
	if err != nil {
		writeEngineErr(w, err)
		return
	}
	s.record(telemetry.EventGeneratorPurchased, telemetry.EventMetadata{"id": req.ID, "amount": bought})
	writeJSON(w, http.StatusOK, map[string]any{
		"id":     req.ID,
		"bought": bought,
		"cost":   cost,
	})
}

func (s *Server) handlePurchaseUpgrade(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := decodeJSON(r, &req); err != nil || req.ID == "" {
		writeErr(w, http.StatusBadRequest, "id is required")
		return
	}

	var cost num.Quantity
	err := s.runner.WithEngine(func(e *game.Engine) error {
		var err error
		cost, err = e.PurchaseUpgrade(req.ID)
		return err
	})
	if err != nil {
		writeEngineErr(w, err)
		return
	}
	s.record(telemetry.EventUpgradePurchased, telemetry.EventMetadata{"id": req.ID})
	writeJSON(w, http.StatusOK, map[string]any{"id": req.ID, "cost": cost})
}

func (s *Server) handlePurchaseEngagement(w http.ResponseWriter, r *http.Request) {
	var (
		cost  num.Quantity
		level int
	)
	err := s.runner.WithEngine(func(e *game.Engine) error {
		var err error
		cost, err = e.PurchaseEngagementLevel()
		level = e.State.EngagementLevel
		return err
	})
	if err != nil {
		writeEngineErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"level": level, "cost": cost})
}

func (s *Server) handlePrestige(w http.ResponseWriter, r *http.Request) {
	var gain num.Quantity
	err := s.runner.WithEngine(func(e *game.Engine) error {
		var err error
		gain, err = e.PerformPrestige()
		return err
	})
	if err != nil {
		writeEngineErr(w, err)
		return
	}
	s.record(telemetry.EventPrestige, telemetry.EventMetadata{"gain": gain.String()})
	writeJSON(w, http.StatusOK, map[string]any{"strategy_points_gained": gain})
}

func (s *Server) handleOfflineClaim(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OfflineSeconds float64 `json:"offline_seconds"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.OfflineSeconds < 0 {
		writeErr(w, http.StatusBadRequest, "offline_seconds must not be negative")
		return
	}

	var res game.OfflineResult
	_ = s.runner.WithEngine(func(e *game.Engine) error {
		res = e.OfflineProgress(req.OfflineSeconds)
		e.ApplyOfflineProgress(res)
		e.RefreshUnlocks()
		return nil
	})
	s.record(telemetry.EventOfflineClaimed, telemetry.EventMetadata{
		"offline_seconds": req.OfflineSeconds,
		"earned":          res.IdleEarnings.String(),
	})
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSaveExport(w http.ResponseWriter, r *http.Request) {
	var data []byte
	err := s.runner.WithEngine(func(e *game.Engine) error {
		var err error
		data, err = save.Encode(e.State, e.Clock.Now())
		return err
	})
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleSavePersist(w http.ResponseWriter, r *http.Request) {
	if s.repo == nil {
		writeErr(w, http.StatusConflict, "persistence is not configured")
		return
	}
	err := s.runner.WithEngine(func(e *game.Engine) error {
		return s.repo.Save(e.State, e.Clock.Now())
	})
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"saved": true})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	since := time.Time{}
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeErr(w, http.StatusBadRequest, "since must be RFC3339")
			return
		}
		since = parsed
	}
	events, err := s.events.GetEvents(since, nil)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	stats, err := telemetry.CalculateStats(events, since)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleBotStart(w http.ResponseWriter, r *http.Request) {
	var cfg bot.Config
	if err := decodeJSON(r, &cfg); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid body")
		return
	}

	switch s.runner.State() {
	case bot.StateRunning, bot.StatePaused:
		writeJSON(w, http.StatusOK, s.runner.Status())
		return
	}
	if err := s.runner.Start(cfg); err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return
	}
	go s.runner.Run(s.botCtx, s.botTickInterval)
	writeJSON(w, http.StatusOK, s.runner.Status())
}

func (s *Server) handleBotPause(w http.ResponseWriter, r *http.Request) {
	s.runner.Pause()
	writeJSON(w, http.StatusOK, s.runner.Status())
}

func (s *Server) handleBotResume(w http.ResponseWriter, r *http.Request) {
	s.runner.Resume()
	writeJSON(w, http.StatusOK, s.runner.Status())
}

func (s *Server) handleBotStop(w http.ResponseWriter, r *http.Request) {
	s.runner.Stop()
	writeJSON(w, http.StatusOK, s.runner.Status())
}

func (s *Server) handleBotStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.runner.Status())
}

func (s *Server) handleBotReport(w http.ResponseWriter, r *http.Request) {
	rep := s.runner.Report()
	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(rep.Text(s.runner.EntityNamer())))
		return
	}
	data, err := rep.JSON()
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) record(t telemetry.EventType, md telemetry.EventMetadata) {
	if err := s.events.RecordEvent(t, md); err != nil {
		s.logger.Warn("telemetry record failed", "type", t, "err", err)
	}
}
