// Package bot plays the game headlessly for balance testing. The strategy
// scores every purchase by payback efficiency and the runner drives the
// engine through accelerated time until a stop condition is met.
package bot

import (
	"math"

	"github.com/scottholdren/idle-clicker-game/internal/catalog"
	"github.com/scottholdren/idle-clicker-game/internal/config"
	"github.com/scottholdren/idle-clicker-game/internal/game"
	"github.com/scottholdren/idle-clicker-game/internal/num"
)

// Action is the outcome kind of a purchase decision.
type Action string

const (
	// ActionBuyGenerator and ActionBuyUpgrade name a concrete purchase.
	ActionBuyGenerator Action = "buy_generator"
	ActionBuyUpgrade   Action = "buy_upgrade"
	// ActionSave means the best option is unaffordable and every affordable
	// one is too inefficient to be worth the currency.
	ActionSave Action = "save"
	// ActionNone means nothing purchasable exists at all.
	ActionNone Action = "none"
)

// Decision is the strategy's answer to "what should be bought next".
// EntityID is the purchase target for buy actions and the save-up target for
// ActionSave.
type Decision struct {
	Action     Action
	EntityID   string
	Cost       num.Quantity
	Efficiency float64
}

// candidate pairs a purchasable entity with its score and quoted cost.
type candidate struct {
	action     Action
	id         string
	cost       num.Quantity
	efficiency float64
	affordable bool
}

// Strategy is pure with respect to game state. The only thing it carries
// between calls is a rolling estimate of the realized click rate, used to
// value click-side upgrades.
type Strategy struct {
	balance config.Balance

	observedClicks  float64
	observedSeconds float64
}

func NewStrategy(bal config.Balance) *Strategy {
	return &Strategy{balance: bal}
}

// ObserveClicks feeds the rolling click-rate estimate with what actually
// happened over the last dtSeconds of play.
func (s *Strategy) ObserveClicks(clicks, dtSeconds float64) {
	if dtSeconds <= 0 {
		return
	}
	s.observedClicks += clicks
	s.observedSeconds += dtSeconds
}

// ObservedClicksPerSecond returns the realized click rate, falling back to
// the configured bot rate before any observation has accumulated.
func (s *Strategy) ObservedClicksPerSecond() float64 {
	if s.observedSeconds <= 0 {
		return s.balance.BotClicksPerSecond
	}
	return s.observedClicks / s.observedSeconds
}

// EvaluateGenerator scores one more unit of g as 1/paybackSeconds, where
// payback is the unit cost divided by its marginal production per second.
func (s *Strategy) EvaluateGenerator(e *game.Engine, g *game.GeneratorState) float64 {
	cost := e.GeneratorCost(g, 1).Float64()
	gain := g.Def.BaseProduction.Mul(e.State.IdleMultiplier).Float64()
	if cost <= 0 || gain <= 0 {
		return 0
	}
	return gain / cost
}

// EvaluateUpgrade scores an upgrade as estimated value per second divided by
// cost. The estimate depends on the effect kind.
func (s *Strategy) EvaluateUpgrade(e *game.Engine, u *game.UpgradeState) float64 {
	cost := e.UpgradeCost(u).Float64()
	if cost <= 0 {
		return 0
	}

	clickValue := e.EffectiveClickValue().Float64()
	idleRate := e.TotalIdleProduction().Float64()
	cps := s.ObservedClicksPerSecond()

	var valuePerSecond float64
	switch u.Def.Effect.Kind {
	case catalog.EffectClickMultiplier:
		gain := u.Def.Effect.Magnitude.Float64() - 1
		valuePerSecond = clickValue * gain * cps
	case catalog.EffectIdleMultiplier:
		valuePerSecond = idleRate * u.Def.Effect.Magnitude.Float64()
	case catalog.EffectBaseClickAdd:
		valuePerSecond = u.Def.Effect.Magnitude.Float64() * cps
	case catalog.EffectTemporaryBoost:
		// Amortize the boost's extra output over an assumed usage window.
		window := s.balance.BoostUsageWindowSec
		if window <= 0 {
			window = 1
		}
		gain := u.Def.Effect.Magnitude.Float64() - 1
		active := u.Def.Effect.Duration.Seconds()
		valuePerSecond = (idleRate + clickValue*cps) * gain * active / window
	default:
		return 0
	}

	if valuePerSecond <= 0 || math.IsInf(valuePerSecond, 0) || math.IsNaN(valuePerSecond) {
		return 0
	}
	return valuePerSecond / cost
}

// DecideNextPurchase picks the best next purchase. Unaffordable options
// still compete: if the top-scoring option cannot be bought yet, an
// affordable one is chosen only when its efficiency reaches the configured
// share of the top score. Below that the answer is to save up.
func (s *Strategy) DecideNextPurchase(e *game.Engine) Decision {
	var candidates []candidate

	for _, g := range e.State.Generators {
		if !g.Unlocked {
			continue
		}
		eff := s.EvaluateGenerator(e, g)
		if eff <= 0 {
			continue
		}
		cost := e.GeneratorCost(g, 1)
		candidates = append(candidates, candidate{
			action:     ActionBuyGenerator,
			id:         g.ID,
			cost:       cost,
			efficiency: eff,
			affordable: e.State.Currency.GreaterThanOrEqual(cost),
		})
	}
	for _, u := range e.State.Upgrades {
		if !u.Unlocked || u.Maxed() {
			continue
		}
		eff := s.EvaluateUpgrade(e, u)
		if eff <= 0 {
			continue
		}
		cost := e.UpgradeCost(u)
		candidates = append(candidates, candidate{
			action:     ActionBuyUpgrade,
			id:         u.ID,
			cost:       cost,
			efficiency: eff,
			affordable: e.State.Currency.GreaterThanOrEqual(cost),
		})
	}

	if len(candidates) == 0 {
		return Decision{Action: ActionNone}
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.efficiency > best.efficiency {
			best = c
		}
	}
	if best.affordable {
		return Decision{Action: best.action, EntityID: best.id, Cost: best.cost, Efficiency: best.efficiency}
	}

	var bestAffordable *candidate
	for i := range candidates {
		c := &candidates[i]
		if !c.affordable {
			continue
		}
		if bestAffordable == nil || c.efficiency > bestAffordable.efficiency {
			bestAffordable = c
		}
	}
	if bestAffordable != nil && bestAffordable.efficiency >= best.efficiency*s.balance.GoodEnoughRatio {
		return Decision{
			Action:     bestAffordable.action,
			EntityID:   bestAffordable.id,
			Cost:       bestAffordable.cost,
			Efficiency: bestAffordable.efficiency,
		}
	}
	return Decision{Action: ActionSave, EntityID: best.id, Cost: best.cost, Efficiency: best.efficiency}
}

// ShouldPrestige reports whether resetting now is worth it: the run must
// yield at least one strategy point and grow the balance by the configured
// ratio. The minimum-interval gate lives in the runner, not here.
func (s *Strategy) ShouldPrestige(e *game.Engine) bool {
	gain := e.PrestigeGain()
	if gain.LessThan(num.One()) {
		return false
	}
	required := e.State.StrategyPoints.Mul(num.FromFloat(s.balance.PrestigeGainRatio))
	return gain.GreaterThanOrEqual(required)
}

// PassiveClicks decides how many banked clicks to spend right now. During
// bootstrap, before any generator is owned, every available click is spent.
// Afterwards only the minimum needed to reach the next decided purchase is
// spent; the rest stays banked.
func (s *Strategy) PassiveClicks(e *game.Engine, available int) int {
	if available <= 0 {
		return 0
	}
	owned := 0
	for _, g := range e.State.Generators {
		owned += g.Owned
	}
	if owned == 0 {
		return available
	}

	d := s.DecideNextPurchase(e)
	if d.Action == ActionNone {
		return 0
	}
	deficit := d.Cost.Sub(e.State.Currency)
	if !deficit.IsPositive() {
		return 0
	}
	clickValue := e.EffectiveClickValue()
	if !clickValue.IsPositive() {
		return 0
	}
	needed := deficit.Div(clickValue).Ceil().IntPart()
	if needed > int64(available) {
		return available
	}
	if needed < 0 {
		return 0
	}
	return int(needed)
}
