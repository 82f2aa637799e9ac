package game

import (
	"time"

	"github.com/scottholdren/idle-clicker-game/internal/catalog"
	"github.com/scottholdren/idle-clicker-game/internal/config"
	"github.com/scottholdren/idle-clicker-game/internal/num"
)

// GeneratorState is the per-save mutable side of a generator definition.
type GeneratorState struct {
	ID       string `json:"id"`
	Owned    int    `json:"owned"`
	Unlocked bool   `json:"unlocked"`

	Def catalog.GeneratorDef `json:"-"`
}

// UpgradeState is the per-save mutable side of an upgrade definition.
type UpgradeState struct {
	ID        string `json:"id"`
	Purchases int    `json:"purchases"`
	Unlocked  bool   `json:"unlocked"`

	Def catalog.UpgradeDef `json:"-"`
}

// Maxed reports whether the upgrade can no longer be purchased.
func (u *UpgradeState) Maxed() bool { return u.Purchases >= u.Def.MaxPurchases }

// ActiveEffect is a live time-boxed multiplicative boost. Expired effects
// are swept by Engine.ExpireEffects and never re-applied across a reload.
type ActiveEffect struct {
	UpgradeID  string        `json:"upgrade_id"`
	Multiplier num.Quantity  `json:"multiplier"`
	AppliedAt  time.Time     `json:"applied_at"`
	Duration   time.Duration `json:"duration"`
}

// ExpiresAt returns the instant the effect stops applying.
func (a ActiveEffect) ExpiresAt() time.Time { return a.AppliedAt.Add(a.Duration) }

// Remaining returns the effect's remaining duration at now, never negative.
func (a ActiveEffect) Remaining(now time.Time) time.Duration {
	r := a.ExpiresAt().Sub(now)
	if r < 0 {
		return 0
	}
	return r
}

// GameState is the single mutable aggregate owned by the Engine. All
// mutation goes through Engine operations; nothing here is safe for
// concurrent writers.
type GameState struct {
	Currency    num.Quantity // spendable, never negative after a valid transaction
	Views       num.Quantity // lifetime passive production, converts 1:1 into currency
	TotalEarned num.Quantity // monotone lifetime earnings, the unlock/prestige metric

	BaseClickValue  num.Quantity
	ClickMultiplier num.Quantity
	IdleMultiplier  num.Quantity

	EngagementLevel    int          // permanent across prestige
	StrategyPoints     num.Quantity // prestige currency, never reset by ordinary prestige
	TotalPrestigeCount int

	TotalClicks int64

	Generators []*GeneratorState
	Upgrades   []*UpgradeState
	Effects    []*ActiveEffect

	// boostMultiplier caches the product of all live temporary effects so
	// click/production reads stay O(1). Rebuilt on load and on expiry.
	boostMultiplier num.Quantity
}

// NewState instantiates a fresh state from the catalog, with every entity at
// zero and unlock predicates evaluated once.
func NewState(cat *catalog.Catalog, bal config.Balance) *GameState {
	s := &GameState{
		BaseClickValue:  num.FromFloat(bal.BaseClickValue),
		ClickMultiplier: num.One(),
		IdleMultiplier:  num.One(),
		boostMultiplier: num.One(),
	}
	for _, def := range cat.Generators {
		s.Generators = append(s.Generators, &GeneratorState{ID: def.ID, Def: def})
	}
	for _, def := range cat.Upgrades {
		s.Upgrades = append(s.Upgrades, &UpgradeState{ID: def.ID, Def: def})
	}
	s.RefreshUnlocks()
	return s
}

// Generator finds a generator instance by id.
func (s *GameState) Generator(id string) (*GeneratorState, bool) {
	for _, g := range s.Generators {
		if g.ID == id {
			return g, true
		}
	}
	return nil, false
}

// Upgrade finds an upgrade instance by id.
func (s *GameState) Upgrade(id string) (*UpgradeState, bool) {
	for _, u := range s.Upgrades {
		if u.ID == id {
			return u, true
		}
	}
	return nil, false
}

// BoostMultiplier returns the cached product of live temporary effects.
func (s *GameState) BoostMultiplier() num.Quantity {
	if s.boostMultiplier.IsZero() {
		return num.One()
	}
	return s.boostMultiplier
}

// RebuildBoost recomputes the cached boost product from the effects list.
// Recomputing instead of dividing the expired effect back out avoids
// accumulating decimal division error.
func (s *GameState) RebuildBoost() {
	m := num.One()
	for _, e := range s.Effects {
		m = m.Mul(e.Multiplier)
	}
	s.boostMultiplier = m
}

// RefreshUnlocks runs one unlock-evaluation pass. Unlocks are one-way: a
// condition that held once keeps the entity unlocked forever.
func (s *GameState) RefreshUnlocks() {
	for _, g := range s.Generators {
		if !g.Unlocked && s.unlockSatisfied(g.Def.Unlock) {
			g.Unlocked = true
		}
	}
	for _, u := range s.Upgrades {
		if !u.Unlocked && s.unlockSatisfied(u.Def.Unlock) {
			u.Unlocked = true
		}
	}
}

func (s *GameState) unlockSatisfied(u catalog.Unlock) bool {
	switch u.Kind {
	case catalog.UnlockAlways:
		return true
	case catalog.UnlockTotalEarned:
		return s.TotalEarned.GreaterThanOrEqual(u.Amount)
	case catalog.UnlockGeneratorOwned:
		g, ok := s.Generator(u.GeneratorID)
		return ok && g.Owned >= u.Count
	case catalog.UnlockPrestigeCount:
		return s.TotalPrestigeCount >= u.Count
	default:
		// Unknown kinds come from newer saves; treat as satisfied so the
		// entity is never stranded.
		return true
	}
}
