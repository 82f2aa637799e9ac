package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/scottholdren/idle-clicker-game/internal/game"
	"github.com/scottholdren/idle-clicker-game/internal/num"
	"github.com/scottholdren/idle-clicker-game/internal/telemetry"
)

// Mode selects how the bot generates clicks.
type Mode string

// Speed selects whether ticks advance wall time or accelerated time.
type Speed string

const (
	ModeActive  Mode = "active"
	ModePassive Mode = "passive"

	SpeedRealtime  Speed = "realtime"
	SpeedSimulated Speed = "simulated"
)

// RunnerState is the loop's lifecycle state.
type RunnerState string

const (
	StateIdle      RunnerState = "idle"
	StateRunning   RunnerState = "running"
	StatePaused    RunnerState = "paused"
	StateCompleted RunnerState = "completed"
)

// Config is the per-run configuration surface. At least one stop condition
// should be set or the run continues until Stop is called.
type Config struct {
	Mode            Mode         `json:"mode"`
	Speed           Speed        `json:"speed"`
	SimulationSpeed float64      `json:"simulation_speed,omitempty"`
	MaxCycles       int          `json:"max_cycles,omitempty"`
	MaxDurationMs   int64        `json:"max_duration_ms,omitempty"`
	TargetPrestige  num.Quantity `json:"target_prestige_currency,omitempty"`
}

// Validate rejects malformed configuration before the run starts rather
// than mid-run.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeActive, ModePassive:
	default:
		return fmt.Errorf("invalid mode %q", c.Mode)
	}
	switch c.Speed {
	case SpeedRealtime:
	case SpeedSimulated:
		if c.SimulationSpeed <= 0 {
			return errors.New("simulated speed requires a positive simulation_speed")
		}
	default:
		return fmt.Errorf("invalid speed %q", c.Speed)
	}
	if c.MaxCycles < 0 {
		return errors.New("max_cycles must not be negative")
	}
	if c.MaxDurationMs < 0 {
		return errors.New("max_duration_ms must not be negative")
	}
	if c.TargetPrestige.IsNegative() {
		return errors.New("target_prestige_currency must not be negative")
	}
	return nil
}

// Acceleration is 1 for realtime runs and the configured factor otherwise.
func (c Config) Acceleration() float64 {
	if c.Speed == SpeedSimulated {
		return c.SimulationSpeed
	}
	return 1
}

// CycleStats captures one prestige cycle for the report.
type CycleStats struct {
	Index                int            `json:"index"`
	DurationSeconds      float64        `json:"duration_seconds"`
	Clicks               int64          `json:"clicks"`
	CurrencyEarned       num.Quantity   `json:"currency_earned"`
	StrategyPointsGained num.Quantity   `json:"strategy_points_gained"`
	FinalClickMultiplier num.Quantity   `json:"final_click_multiplier"`
	FinalIdleMultiplier  num.Quantity   `json:"final_idle_multiplier"`
	Purchases            map[string]int `json:"purchases"`
}

// Status is the pull-based view of a run exposed over HTTP.
type Status struct {
	State             RunnerState  `json:"state"`
	Mode              Mode         `json:"mode,omitempty"`
	Speed             Speed        `json:"speed,omitempty"`
	SimElapsedSeconds float64      `json:"sim_elapsed_seconds"`
	CyclesCompleted   int          `json:"cycles_completed"`
	Currency          num.Quantity `json:"currency"`
	StrategyPoints    num.Quantity `json:"strategy_points"`
}

const (
	// Each tick advances at most one simulated second so the work per tick
	// stays bounded at any acceleration factor.
	maxTickSeconds = 1.0

	// Base purchase cap per tick. Scaled up with acceleration so throughput
	// survives the per-tick time clamp.
	basePurchaseCap = 4
	maxPurchaseCap  = 256
)

// Runner drives the engine through ticks. All engine mutation is serialized
// through the runner's mutex; external readers use WithEngine. Tick pacing
// reads the wall clock; the engine's own clock is advanced by the clamped
// simulated delta when it is fake, so effect expiry tracks simulated time.
type Runner struct {
	mu       sync.Mutex
	engine   *game.Engine
	strategy *Strategy
	events   telemetry.Repository
	logger   *slog.Logger
	wall     game.Clock

	state RunnerState
	cfg   Config
	seq   int

	startedAt     time.Time
	lastTick      time.Time
	simElapsed    float64
	simAtPrestige float64
	clickBank     float64
	clickCarry    float64

	cycles       []CycleStats
	cycleClicks  int64
	cycleBuys    map[string]int
	cycleSimMark float64
}

func NewRunner(e *game.Engine, s *Strategy, events telemetry.Repository, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		engine:   e,
		strategy: s,
		events:   events,
		logger:   logger,
		wall:     game.RealClock{},
		state:    StateIdle,
	}
}

// WithEngine runs fn with exclusive access to the engine. HTTP handlers use
// this so that reads never interleave with a tick.
func (r *Runner) WithEngine(fn func(*game.Engine) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(r.engine)
}

// Start transitions idle or completed to running. Starting an
// already-running runner is a no-op. Restarting after completion begins a
// fresh run against the engine's current state; the previous run's report
// is discarded.
func (r *Runner) Start(cfg Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case StateRunning, StatePaused:
		return nil
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("start bot: %w", err)
	}

	r.cfg = cfg
	r.seq++
	r.state = StateRunning
	now := r.wall.Now()
	r.startedAt = now
	r.lastTick = now
	r.simElapsed = 0
	r.simAtPrestige = 0
	r.clickBank = 0
	r.clickCarry = 0
	r.cycles = nil
	r.resetCycleLocked()

	r.logger.Info("bot run started",
		"mode", cfg.Mode,
		"speed", cfg.Speed,
		"acceleration", cfg.Acceleration())
	return nil
}

func (r *Runner) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateRunning {
		r.state = StatePaused
	}
}

func (r *Runner) Resume() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StatePaused {
		r.state = StateRunning
		r.lastTick = r.wall.Now()
	}
}

func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateRunning || r.state == StatePaused {
		r.completeLocked("stopped")
	}
}

func (r *Runner) State() RunnerState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := Status{
		State:             r.state,
		SimElapsedSeconds: r.simElapsed,
		CyclesCompleted:   len(r.cycles),
		Currency:          r.engine.State.Currency,
		StrategyPoints:    r.engine.State.StrategyPoints,
	}
	if r.state != StateIdle {
		st.Mode = r.cfg.Mode
		st.Speed = r.cfg.Speed
	}
	return st
}

// Run drives ticks from a timer until the run completes or ctx is
// cancelled. Start must have been called first. The loop also exits if a
// restart supersedes its run, so a stale loop never double-ticks the next
// one.
func (r *Runner) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	r.mu.Lock()
	seq := r.seq
	r.mu.Unlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.Stop()
			return
		case <-ticker.C:
			r.Tick()
			if r.loopDone(seq) {
				return
			}
		}
	}
}

func (r *Runner) loopDone(seq int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seq != seq || r.state == StateCompleted
}

// Tick performs one bounded simulation step. Safe to call in any state;
// only a running runner does work.
func (r *Runner) Tick() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateRunning {
		return
	}

	now := r.wall.Now()
	wallDt := now.Sub(r.lastTick).Seconds()
	r.lastTick = now
	if wallDt <= 0 {
		return
	}

	dt := wallDt * r.cfg.Acceleration()
	if dt > maxTickSeconds {
		dt = maxTickSeconds
	}
	r.simElapsed += dt

	if fc, ok := r.engine.Clock.(*game.FakeClock); ok {
		fc.Advance(time.Duration(dt * float64(time.Second)))
	}
	if expired := r.engine.ExpireEffects(r.engine.Clock.Now()); expired > 0 {
		r.record(telemetry.EventEffectExpired, telemetry.EventMetadata{"count": expired})
	}

	clicks := r.clicksForTick(dt)
	for i := 0; i < clicks; i++ {
		r.engine.Click()
	}
	r.cycleClicks += int64(clicks)
	if clicks > 0 {
		r.record(telemetry.EventClick, telemetry.EventMetadata{"count": clicks})
	}

	r.engine.UpdateIdleProgress(dt)
	r.engine.RefreshUnlocks()
	r.strategy.ObserveClicks(float64(clicks), dt)

	r.purchaseLoop()

	minInterval := r.strategy.balance.MinPrestigeIntervalSec
	if minInterval < 0 {
		minInterval = 0
	}
	if r.simElapsed-r.simAtPrestige >= minInterval && r.strategy.ShouldPrestige(r.engine) {
		r.prestigeCycleLocked()
	}

	r.checkStopLocked()
}

func (r *Runner) clicksForTick(dt float64) int {
	switch r.cfg.Mode {
	case ModeActive:
		r.clickCarry += dt * r.strategy.balance.BotClicksPerSecond
		n := int(r.clickCarry)
		r.clickCarry -= float64(n)
		return n
	case ModePassive:
		r.clickBank += dt * r.strategy.balance.PassiveClicksPerHour / 3600
		n := r.strategy.PassiveClicks(r.engine, int(r.clickBank))
		r.clickBank -= float64(n)
		return n
	}
	return 0
}

func (r *Runner) purchaseLoop() {
	limit := basePurchaseCap
	if accel := r.cfg.Acceleration(); accel > 1 {
		limit = int(float64(basePurchaseCap) * accel)
		if limit > maxPurchaseCap {
			limit = maxPurchaseCap
		}
	}

	for i := 0; i < limit; i++ {
		d := r.strategy.DecideNextPurchase(r.engine)
		switch d.Action {
		case ActionBuyGenerator:
			if _, err := r.engine.PurchaseGenerator(d.EntityID, 1); err != nil {
				r.logger.Warn("generator purchase skipped", "id", d.EntityID, "err", err)
				return
			}
			r.cycleBuys[d.EntityID]++
			r.record(telemetry.EventGeneratorPurchased, telemetry.EventMetadata{"id": d.EntityID})
		case ActionBuyUpgrade:
			if _, err := r.engine.PurchaseUpgrade(d.EntityID); err != nil {
				r.logger.Warn("upgrade purchase skipped", "id", d.EntityID, "err", err)
				return
			}
			r.cycleBuys[d.EntityID]++
			r.record(telemetry.EventUpgradePurchased, telemetry.EventMetadata{"id": d.EntityID})
		default:
			return
		}
	}
}

func (r *Runner) prestigeCycleLocked() {
	stats := CycleStats{
		Index:                len(r.cycles) + 1,
		DurationSeconds:      r.simElapsed - r.cycleSimMark,
		Clicks:               r.cycleClicks,
		CurrencyEarned:       r.engine.State.TotalEarned,
		FinalClickMultiplier: r.engine.State.ClickMultiplier,
		FinalIdleMultiplier:  r.engine.State.IdleMultiplier,
		Purchases:            r.cycleBuys,
	}

	gain, err := r.engine.PerformPrestige()
	if err != nil {
		r.logger.Warn("prestige skipped", "err", err)
		return
	}
	stats.StrategyPointsGained = gain
	r.cycles = append(r.cycles, stats)
	r.simAtPrestige = r.simElapsed
	r.resetCycleLocked()

	r.logger.Info("prestige cycle completed",
		"cycle", stats.Index,
		"duration_s", stats.DurationSeconds,
		"sp_gained", gain.String(),
		"clicks", stats.Clicks)
	r.record(telemetry.EventPrestige, telemetry.EventMetadata{"gain": gain.String()})
	r.record(telemetry.EventCycleCompleted, telemetry.EventMetadata{"cycle": stats.Index})
}

func (r *Runner) resetCycleLocked() {
	r.cycleClicks = 0
	r.cycleBuys = make(map[string]int)
	r.cycleSimMark = r.simElapsed
}

func (r *Runner) checkStopLocked() {
	if r.cfg.MaxCycles > 0 && len(r.cycles) >= r.cfg.MaxCycles {
		r.completeLocked("max cycles reached")
		return
	}
	if r.cfg.MaxDurationMs > 0 && r.simElapsed*1000 >= float64(r.cfg.MaxDurationMs) {
		r.completeLocked("max duration reached")
		return
	}
	if r.cfg.TargetPrestige.IsPositive() &&
		r.engine.State.StrategyPoints.GreaterThanOrEqual(r.cfg.TargetPrestige) {
		r.completeLocked("target prestige currency reached")
	}
}

func (r *Runner) completeLocked(reason string) {
	r.state = StateCompleted
	r.logger.Info("bot run completed",
		"reason", reason,
		"cycles", len(r.cycles),
		"sim_elapsed_s", r.simElapsed,
		"strategy_points", r.engine.State.StrategyPoints.String())
}

func (r *Runner) record(t telemetry.EventType, md telemetry.EventMetadata) {
	if r.events == nil {
		return
	}
	if err := r.events.RecordEvent(t, md); err != nil {
		r.logger.Warn("telemetry record failed", "type", t, "err", err)
	}
}
