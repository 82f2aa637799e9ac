package game

import (
	"errors"
	"fmt"
	"time"

	"github.com/scottholdren/idle-clicker-game/internal/catalog"
	"github.com/scottholdren/idle-clicker-game/internal/config"
	"github.com/scottholdren/idle-clicker-game/internal/num"
)

// Invalid-transaction errors. All of them leave the state untouched.
var (
	ErrUnknownEntity     = errors.New("unknown entity id")
	ErrLocked            = errors.New("entity is locked")
	ErrMaxed             = errors.New("upgrade is maxed")
	ErrInsufficientFunds = errors.New("insufficient currency")
	ErrCannotPrestige    = errors.New("prestige threshold not reached")
)

// Engine is the only mutator of GameState. It is single-threaded
// cooperative: callers serialize their own ticks.
type Engine struct {
	Catalog *catalog.Catalog
	Balance config.Balance
	Clock   Clock
	State   *GameState
}

// NewEngine builds an engine around a fresh state.
func NewEngine(cat *catalog.Catalog, bal config.Balance, clk Clock) *Engine {
	return &Engine{
		Catalog: cat,
		Balance: bal,
		Clock:   clk,
		State:   NewState(cat, bal),
	}
}

func (e *Engine) now() time.Time {
	if e.Clock == nil {
		return time.Now()
	}
	return e.Clock.Now()
}

// StrategyPointMultiplier is the permanent production bonus from banked
// strategy points: 1 + bonus*points.
func (e *Engine) StrategyPointMultiplier() num.Quantity {
	return num.One().Add(num.FromFloat(e.Balance.StrategyPointBonus).Mul(e.State.StrategyPoints))
}

// EngagementMultiplier is the permanent bonus from purchased engagement
// levels: 1 + bonus*level.
func (e *Engine) EngagementMultiplier() num.Quantity {
	return num.One().Add(num.FromFloat(e.Balance.EngagementBonusPerLevel).Mul(num.FromInt(int64(e.State.EngagementLevel))))
}

// EffectiveClickValue composes every live multiplier onto the base click.
func (e *Engine) EffectiveClickValue() num.Quantity {
	return e.State.BaseClickValue.
		Mul(e.State.ClickMultiplier).
		Mul(e.State.BoostMultiplier()).
		Mul(e.StrategyPointMultiplier()).
		Mul(e.EngagementMultiplier())
}

// Click performs one manual click and returns the amount earned.
func (e *Engine) Click() num.Quantity {
	earned := e.EffectiveClickValue()
	e.State.Currency = e.State.Currency.Add(earned)
	e.State.TotalEarned = e.State.TotalEarned.Add(earned)
	e.State.TotalClicks++
	return earned
}

// RefreshUnlocks runs one unlock-evaluation pass. Purchases and prestige
// refresh implicitly; tick loops call this so that threshold unlocks
// (total earned) fire as soon as they are met.
func (e *Engine) RefreshUnlocks() {
	e.State.RefreshUnlocks()
}

// GeneratorCost quotes the cost of buying amount more units starting from
// the current owned count: sum of baseCost*mult^i over [owned, owned+amount),
// rounded up once at the end. Strictly increasing in owned since mult > 1.
func (e *Engine) GeneratorCost(g *GeneratorState, amount int) num.Quantity {
	if amount <= 0 {
		return num.Zero()
	}
	total := num.Zero()
	step := g.Def.BaseCost.Mul(g.Def.CostMultiplier.PowInt(g.Owned))
	for i := 0; i < amount; i++ {
		total = total.Add(step)
		step = step.Mul(g.Def.CostMultiplier)
	}
	return total.Ceil()
}

// UpgradeCost quotes the next-purchase cost for an upgrade.
func (e *Engine) UpgradeCost(u *UpgradeState) num.Quantity {
	return u.Def.BaseCost.Mul(u.Def.CostMultiplier.PowInt(u.Purchases)).Ceil()
}

// CanAffordGenerator reports whether amount units are purchasable right now.
func (e *Engine) CanAffordGenerator(g *GeneratorState, amount int) bool {
	return g.Unlocked && e.State.Currency.GreaterThanOrEqual(e.GeneratorCost(g, amount))
}

// CanAffordUpgrade reports whether the next purchase is possible right now.
func (e *Engine) CanAffordUpgrade(u *UpgradeState) bool {
	return u.Unlocked && !u.Maxed() && e.State.Currency.GreaterThanOrEqual(e.UpgradeCost(u))
}

// PurchaseGenerator buys amount units atomically: the quoted cost is
// deducted, the owned count incremented, and unlocks refreshed. Any failure
// leaves the state unchanged.
func (e *Engine) PurchaseGenerator(id string, amount int) (num.Quantity, error) {
	g, ok := e.State.Generator(id)
	if !ok {
		return num.Zero(), fmt.Errorf("purchase generator %q: %w", id, ErrUnknownEntity)
	}
	if !g.Unlocked {
		return num.Zero(), fmt.Errorf("purchase generator %q: %w", id, ErrLocked)
	}
	if amount <= 0 {
		return num.Zero(), fmt.Errorf("purchase generator %q: amount must be positive", id)
	}
	cost := e.GeneratorCost(g, amount)
	if e.State.Currency.LessThan(cost) {
		return num.Zero(), fmt.Errorf("purchase generator %q: %w", id, ErrInsufficientFunds)
	}

	e.State.Currency = e.State.Currency.Sub(cost)
	g.Owned += amount
	e.State.RefreshUnlocks()
	return cost, nil
}

// PurchaseUpgrade buys the next tier of an upgrade and applies its effect
// exactly once. Any failure leaves the state unchanged.
func (e *Engine) PurchaseUpgrade(id string) (num.Quantity, error) {
	u, ok := e.State.Upgrade(id)
	if !ok {
		return num.Zero(), fmt.Errorf("purchase upgrade %q: %w", id, ErrUnknownEntity)
	}
	if !u.Unlocked {
		return num.Zero(), fmt.Errorf("purchase upgrade %q: %w", id, ErrLocked)
	}
	if u.Maxed() {
		return num.Zero(), fmt.Errorf("purchase upgrade %q: %w", id, ErrMaxed)
	}
	cost := e.UpgradeCost(u)
	if e.State.Currency.LessThan(cost) {
		return num.Zero(), fmt.Errorf("purchase upgrade %q: %w", id, ErrInsufficientFunds)
	}

	e.State.Currency = e.State.Currency.Sub(cost)
	u.Purchases++
	e.applyEffect(u)
	e.State.RefreshUnlocks()
	return cost, nil
}

// PurchaseMaxAffordable buys as many units of a generator as the current
// currency covers, committing once. The final state matches buying the same
// units one call at a time.
func (e *Engine) PurchaseMaxAffordable(id string) (int, num.Quantity, error) {
	g, ok := e.State.Generator(id)
	if !ok {
		return 0, num.Zero(), fmt.Errorf("purchase max %q: %w", id, ErrUnknownEntity)
	}
	if !g.Unlocked {
		return 0, num.Zero(), fmt.Errorf("purchase max %q: %w", id, ErrLocked)
	}

	// Simulate unit purchases without committing. Each unit is ceiled
	// individually, exactly as single-unit purchases would charge it.
	count := 0
	total := num.Zero()
	next := g.Def.BaseCost.Mul(g.Def.CostMultiplier.PowInt(g.Owned))
	for {
		unit := next.Ceil()
		if total.Add(unit).GreaterThan(e.State.Currency) {
			break
		}
		total = total.Add(unit)
		count++
		next = next.Mul(g.Def.CostMultiplier)
	}
	if count == 0 {
		return 0, num.Zero(), fmt.Errorf("purchase max %q: %w", id, ErrInsufficientFunds)
	}

	e.State.Currency = e.State.Currency.Sub(total)
	g.Owned += count
	e.State.RefreshUnlocks()
	return count, total, nil
}

func (e *Engine) applyEffect(u *UpgradeState) {
	switch u.Def.Effect.Kind {
	case catalog.EffectClickMultiplier:
		e.State.ClickMultiplier = e.State.ClickMultiplier.Mul(u.Def.Effect.Magnitude)
	case catalog.EffectIdleMultiplier:
		e.State.IdleMultiplier = e.State.IdleMultiplier.Mul(u.Def.Effect.Magnitude)
	case catalog.EffectBaseClickAdd:
		e.State.BaseClickValue = e.State.BaseClickValue.Add(u.Def.Effect.Magnitude)
	case catalog.EffectTemporaryBoost:
		eff := &ActiveEffect{
			UpgradeID:  u.ID,
			Multiplier: u.Def.Effect.Magnitude,
			AppliedAt:  e.now(),
			Duration:   u.Def.Effect.Duration,
		}
		e.State.Effects = append(e.State.Effects, eff)
		e.State.RebuildBoost()
	}
}

// ExpireEffects removes effects whose window has passed and rebuilds the
// boost cache. Returns how many expired.
func (e *Engine) ExpireEffects(now time.Time) int {
	live := e.State.Effects[:0]
	expired := 0
	for _, eff := range e.State.Effects {
		if now.Before(eff.ExpiresAt()) {
			live = append(live, eff)
		} else {
			expired++
		}
	}
	if expired > 0 {
		e.State.Effects = live
		e.State.RebuildBoost()
	}
	return expired
}

// BaseIdleProduction is the raw generator output per second: sum of
// baseProduction*owned, times the idle multiplier and live boosts. The
// prestige and engagement bonuses are composed on top by callers that need
// the full figure.
func (e *Engine) BaseIdleProduction() num.Quantity {
	total := num.Zero()
	for _, g := range e.State.Generators {
		if g.Owned > 0 {
			total = total.Add(g.Def.BaseProduction.Mul(num.FromInt(int64(g.Owned))))
		}
	}
	return total.Mul(e.State.IdleMultiplier).Mul(e.State.BoostMultiplier())
}

// TotalIdleProduction is the effective views-per-second rate with every
// permanent multiplier applied. Pure: no mutation.
func (e *Engine) TotalIdleProduction() num.Quantity {
	return e.BaseIdleProduction().
		Mul(e.StrategyPointMultiplier()).
		Mul(e.EngagementMultiplier())
}

// UpdateIdleProgress accrues deltaSeconds worth of passive production.
// Views convert 1:1 into currency. Strictly linear in deltaSeconds; any
// elapsed-time clamping is the caller's concern.
func (e *Engine) UpdateIdleProgress(deltaSeconds float64) num.Quantity {
	if deltaSeconds <= 0 {
		return num.Zero()
	}
	earned := e.TotalIdleProduction().Mul(num.FromFloat(deltaSeconds))
	if earned.IsZero() {
		return earned
	}
	e.State.Views = e.State.Views.Add(earned)
	e.State.Currency = e.State.Currency.Add(earned)
	e.State.TotalEarned = e.State.TotalEarned.Add(earned)
	return earned
}

// OfflineResult describes what an absence of offlineSeconds would earn.
type OfflineResult struct {
	IdleEarnings       num.Quantity `json:"idle_earnings"`
	EffectiveHours     float64      `json:"effective_hours"`
	CappedByTime       bool         `json:"capped_by_time"`
	CappedByEfficiency bool         `json:"capped_by_efficiency"`
}

// OfflineProgress computes earnings for time spent away: hours are capped at
// MaxOfflineHours, scaled by OfflineProgressRate, and multiplied into the
// full idle rate. Pure function of state plus elapsed time; the caller
// applies the result.
func (e *Engine) OfflineProgress(offlineSeconds float64) OfflineResult {
	if offlineSeconds < 0 {
		offlineSeconds = 0
	}
	hours := offlineSeconds / 3600

	res := OfflineResult{}
	if hours > e.Balance.MaxOfflineHours {
		hours = e.Balance.MaxOfflineHours
		res.CappedByTime = true
	}
	rate := e.Balance.OfflineProgressRate
	if rate < 0 {
		rate = 0
	}
	if rate > 1 {
		rate = 1
	}
	if rate < 1 {
		res.CappedByEfficiency = true
	}
	res.EffectiveHours = hours * rate
	res.IdleEarnings = e.TotalIdleProduction().Mul(num.FromFloat(res.EffectiveHours * 3600))
	return res
}

// ApplyOfflineProgress credits a previously computed offline result.
func (e *Engine) ApplyOfflineProgress(res OfflineResult) {
	if !res.IdleEarnings.IsPositive() {
		return
	}
	e.State.Views = e.State.Views.Add(res.IdleEarnings)
	e.State.Currency = e.State.Currency.Add(res.IdleEarnings)
	e.State.TotalEarned = e.State.TotalEarned.Add(res.IdleEarnings)
}

// CanPrestige reports whether lifetime earnings have reached the prestige
// threshold.
func (e *Engine) CanPrestige() bool {
	return e.State.TotalEarned.GreaterThanOrEqual(num.FromFloat(e.Balance.PrestigeThreshold))
}

// PrestigeGain returns floor((totalEarned/threshold)^exponent), the strategy
// points a prestige right now would award. At least 1 whenever the threshold
// is met.
func (e *Engine) PrestigeGain() num.Quantity {
	threshold := num.FromFloat(e.Balance.PrestigeThreshold)
	if e.State.TotalEarned.LessThan(threshold) {
		return num.Zero()
	}
	raw := e.State.TotalEarned.Div(threshold).Pow(num.FromFloat(e.Balance.PrestigeExponent))
	// The fractional power is computed to finite precision; round well past
	// any balance-relevant digit before flooring so exact boundaries like
	// 32^0.6 = 8 never floor to 7.
	gain := raw.Round(12).Floor()
	return num.Max(gain, num.One())
}

// PerformPrestige banks the prestige gain and resets the base tier:
// currency, views, lifetime earnings, multipliers, generator counts, upgrade
// purchases and live effects. Strategy points, prestige count and engagement
// level persist. Unlocks are re-evaluated against the permanent state.
func (e *Engine) PerformPrestige() (num.Quantity, error) {
	if !e.CanPrestige() {
		return num.Zero(), ErrCannotPrestige
	}
	gain := e.PrestigeGain()

	e.State.StrategyPoints = e.State.StrategyPoints.Add(gain)
	e.State.TotalPrestigeCount++

	e.State.Currency = num.Zero()
	e.State.Views = num.Zero()
	e.State.TotalEarned = num.Zero()
	e.State.BaseClickValue = num.FromFloat(e.Balance.BaseClickValue)
	e.State.ClickMultiplier = num.One()
	e.State.IdleMultiplier = num.One()
	e.State.TotalClicks = 0
	for _, g := range e.State.Generators {
		g.Owned = 0
		g.Unlocked = false
	}
	for _, u := range e.State.Upgrades {
		u.Purchases = 0
		u.Unlocked = false
	}
	e.State.Effects = nil
	e.State.RebuildBoost()
	e.State.RefreshUnlocks()
	return gain, nil
}

// EngagementCost quotes the strategy-point price of the next engagement
// level.
func (e *Engine) EngagementCost() num.Quantity {
	base := num.FromFloat(e.Balance.EngagementBaseCost)
	mult := num.FromFloat(e.Balance.EngagementCostMultiplier)
	return base.Mul(mult.PowInt(e.State.EngagementLevel)).Ceil()
}

// PurchaseEngagementLevel spends strategy points on a permanent engagement
// level. Engagement survives prestige.
func (e *Engine) PurchaseEngagementLevel() (num.Quantity, error) {
	cost := e.EngagementCost()
	if e.State.StrategyPoints.LessThan(cost) {
		return num.Zero(), fmt.Errorf("purchase engagement level: %w", ErrInsufficientFunds)
	}
	e.State.StrategyPoints = e.State.StrategyPoints.Sub(cost)
	e.State.EngagementLevel++
	e.State.RefreshUnlocks()
	return cost, nil
}
