// Package catalog holds the static definitions of everything purchasable:
// generator cost/production curves, upgrade effects and unlock rules.
// Definitions are pure data. Unlock conditions and effects are tagged
// variants resolved by id, never stored function values, so saves stay
// serializable and forward-compatible.
package catalog

import (
	"time"

	"github.com/scottholdren/idle-clicker-game/internal/num"
)

// UnlockKind tags how an entity's unlock condition is evaluated.
type UnlockKind string

const (
	UnlockAlways         UnlockKind = "always"
	UnlockTotalEarned    UnlockKind = "total_earned"
	UnlockGeneratorOwned UnlockKind = "generator_owned"
	UnlockPrestigeCount  UnlockKind = "prestige_count"
)

// Unlock is a serializable unlock condition. Fields beyond Kind are only
// meaningful for the matching kind.
type Unlock struct {
	Kind        UnlockKind   `json:"kind"`
	Amount      num.Quantity `json:"amount,omitempty"`       // total_earned threshold
	GeneratorID string       `json:"generator_id,omitempty"` // generator_owned target
	Count       int          `json:"count,omitempty"`        // generator_owned / prestige_count
}

// EffectKind tags what an upgrade does when purchased.
type EffectKind string

const (
	EffectClickMultiplier EffectKind = "click_multiplier"
	EffectIdleMultiplier  EffectKind = "idle_multiplier"
	EffectBaseClickAdd    EffectKind = "base_click_add"
	EffectTemporaryBoost  EffectKind = "temporary_boost"
)

// Effect is a serializable upgrade effect: a kind plus its magnitude, and a
// duration for temporary boosts.
type Effect struct {
	Kind      EffectKind    `json:"kind"`
	Magnitude num.Quantity  `json:"magnitude"`
	Duration  time.Duration `json:"duration,omitempty"`
}

// GeneratorDef defines one passive producer.
type GeneratorDef struct {
	ID             string
	Name           string
	BaseCost       num.Quantity
	CostMultiplier num.Quantity // >1, enforced by construction
	BaseProduction num.Quantity // views per second per unit
	Unlock         Unlock
}

// UpgradeDef defines one purchasable upgrade.
type UpgradeDef struct {
	ID             string
	Name           string
	BaseCost       num.Quantity
	CostMultiplier num.Quantity
	MaxPurchases   int // >=1
	Unlock         Unlock
	Effect         Effect
}

// Catalog is the full set of definitions, ordered for stable display and
// iteration. Construction is side-effect free; call Default() as often as
// needed.
type Catalog struct {
	Generators []GeneratorDef
	Upgrades   []UpgradeDef

	genByID map[string]int
	upByID  map[string]int
}

// Default returns the standard game catalog.
func Default() *Catalog {
	c := &Catalog{
		Generators: []GeneratorDef{
			{
				ID: "auto_clicker", Name: "Auto Clicker",
				BaseCost: num.FromInt(15), CostMultiplier: num.FromFloat(1.15),
				BaseProduction: num.FromFloat(0.1),
				Unlock:         Unlock{Kind: UnlockAlways},
			},
			{
				ID: "script_bot", Name: "Script Bot",
				BaseCost: num.FromInt(100), CostMultiplier: num.FromFloat(1.15),
				BaseProduction: num.One(),
				Unlock:         Unlock{Kind: UnlockAlways},
			},
			{
				ID: "click_farm", Name: "Click Farm",
				BaseCost: num.FromInt(1100), CostMultiplier: num.FromFloat(1.15),
				BaseProduction: num.FromInt(8),
				Unlock:         Unlock{Kind: UnlockTotalEarned, Amount: num.FromInt(500)},
			},
			{
				ID: "server_rack", Name: "Server Rack",
				BaseCost: num.FromInt(12000), CostMultiplier: num.FromFloat(1.15),
				BaseProduction: num.FromInt(47),
				Unlock:         Unlock{Kind: UnlockTotalEarned, Amount: num.FromInt(5000)},
			},
			{
				ID: "data_center", Name: "Data Center",
				BaseCost: num.FromInt(130000), CostMultiplier: num.FromFloat(1.15),
				BaseProduction: num.FromInt(260),
				Unlock:         Unlock{Kind: UnlockTotalEarned, Amount: num.FromInt(50000)},
			},
			{
				ID: "quantum_rig", Name: "Quantum Rig",
				BaseCost: num.FromInt(1400000), CostMultiplier: num.FromFloat(1.15),
				BaseProduction: num.FromInt(1400),
				Unlock:         Unlock{Kind: UnlockPrestigeCount, Count: 1},
			},
		},
		Upgrades: []UpgradeDef{
			{
				ID: "ergonomic_desk", Name: "Ergonomic Desk",
				BaseCost: num.FromInt(250), CostMultiplier: num.FromInt(4),
				MaxPurchases: 10,
				Unlock:       Unlock{Kind: UnlockAlways},
				Effect:       Effect{Kind: EffectBaseClickAdd, Magnitude: num.One()},
			},
			{
				ID: "reinforced_mouse", Name: "Reinforced Mouse",
				BaseCost: num.FromInt(100), CostMultiplier: num.FromInt(10),
				MaxPurchases: 5,
				Unlock:       Unlock{Kind: UnlockTotalEarned, Amount: num.FromInt(50)},
				Effect:       Effect{Kind: EffectClickMultiplier, Magnitude: num.FromInt(2)},
			},
			{
				ID: "double_click", Name: "Double Click",
				BaseCost: num.FromInt(500), CostMultiplier: num.FromInt(8),
				MaxPurchases: 3,
				Unlock:       Unlock{Kind: UnlockGeneratorOwned, GeneratorID: "auto_clicker", Count: 5},
				Effect:       Effect{Kind: EffectClickMultiplier, Magnitude: num.FromInt(2)},
			},
			{
				ID: "idle_tuning", Name: "Idle Tuning",
				BaseCost: num.FromInt(1000), CostMultiplier: num.FromInt(10),
				MaxPurchases: 5,
				Unlock:       Unlock{Kind: UnlockGeneratorOwned, GeneratorID: "script_bot", Count: 1},
				Effect:       Effect{Kind: EffectIdleMultiplier, Magnitude: num.FromFloat(1.5)},
			},
			{
				ID: "overclock", Name: "Overclock",
				BaseCost: num.FromInt(25000), CostMultiplier: num.FromInt(12),
				MaxPurchases: 3,
				Unlock:       Unlock{Kind: UnlockTotalEarned, Amount: num.FromInt(10000)},
				Effect:       Effect{Kind: EffectIdleMultiplier, Magnitude: num.FromInt(2)},
			},
			{
				ID: "caffeine_rush", Name: "Caffeine Rush",
				BaseCost: num.FromInt(3000), CostMultiplier: num.FromInt(5),
				MaxPurchases: 10,
				Unlock:       Unlock{Kind: UnlockTotalEarned, Amount: num.FromInt(2000)},
				Effect:       Effect{Kind: EffectTemporaryBoost, Magnitude: num.FromInt(7), Duration: 30 * time.Second},
			},
			{
				ID: "viral_post", Name: "Viral Post",
				BaseCost: num.FromInt(50000), CostMultiplier: num.FromInt(6),
				MaxPurchases: 5,
				Unlock:       Unlock{Kind: UnlockPrestigeCount, Count: 1},
				Effect:       Effect{Kind: EffectTemporaryBoost, Magnitude: num.FromInt(3), Duration: 2 * time.Minute},
			},
		},
	}

	c.index()
	return c
}

// New builds a catalog from explicit definitions. Used for alternate balance
// sets and for exercising the engine against small fixed catalogs.
func New(generators []GeneratorDef, upgrades []UpgradeDef) *Catalog {
	c := &Catalog{Generators: generators, Upgrades: upgrades}
	c.index()
	return c
}

func (c *Catalog) index() {
	c.genByID = make(map[string]int, len(c.Generators))
	for i, g := range c.Generators {
		c.genByID[g.ID] = i
	}
	c.upByID = make(map[string]int, len(c.Upgrades))
	for i, u := range c.Upgrades {
		c.upByID[u.ID] = i
	}
}

// Generator looks up a generator definition by id.
func (c *Catalog) Generator(id string) (GeneratorDef, bool) {
	i, ok := c.genByID[id]
	if !ok {
		return GeneratorDef{}, false
	}
	return c.Generators[i], true
}

// Upgrade looks up an upgrade definition by id.
func (c *Catalog) Upgrade(id string) (UpgradeDef, bool) {
	i, ok := c.upByID[id]
	if !ok {
		return UpgradeDef{}, false
	}
	return c.Upgrades[i], true
}
