// Package save implements the serialization contract for game state.
// Every Quantity travels as a decimal string, entity records carry only
// persisted numeric/boolean fields, and catalog definitions are re-bound by
// id on load. Loading never throws: malformed numbers become zero, unknown
// ids degrade to inert no-op entities, and only a structurally invalid save
// (missing required top-level keys) is rejected wholesale.
package save

import (
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/scottholdren/idle-clicker-game/internal/catalog"
	"github.com/scottholdren/idle-clicker-game/internal/config"
	"github.com/scottholdren/idle-clicker-game/internal/game"
	"github.com/scottholdren/idle-clicker-game/internal/num"
)

// ErrInvalidSave means the payload is structurally unusable; the caller
// should fall back to a fresh state rather than a partially-populated one.
var ErrInvalidSave = errors.New("structurally invalid save")

const version = 1

// Snapshot is the on-disk form of a GameState.
type Snapshot struct {
	Version int       `json:"version"`
	SavedAt time.Time `json:"saved_at"`

	Currency        num.Quantity `json:"currency"`
	Views           num.Quantity `json:"views"`
	TotalEarned     num.Quantity `json:"total_earned"`
	BaseClickValue  num.Quantity `json:"base_click_value"`
	ClickMultiplier num.Quantity `json:"click_multiplier"`
	IdleMultiplier  num.Quantity `json:"idle_multiplier"`

	EngagementLevel    int          `json:"engagement_level"`
	StrategyPoints     num.Quantity `json:"strategy_points"`
	TotalPrestigeCount int          `json:"total_prestige_count"`
	TotalClicks        int64        `json:"total_clicks"`

	Generators []GeneratorRecord `json:"generators"`
	Upgrades   []UpgradeRecord   `json:"upgrades"`
	Effects    []EffectRecord    `json:"effects,omitempty"`
}

type GeneratorRecord struct {
	ID       string `json:"id"`
	Owned    int    `json:"owned"`
	Unlocked bool   `json:"unlocked"`
}

type UpgradeRecord struct {
	ID        string `json:"id"`
	Purchases int    `json:"purchases"`
	Unlocked  bool   `json:"unlocked"`
}

// EffectRecord persists a temporary effect as {appliedAt, duration} so a
// reload can tell expired from live without re-applying anything.
type EffectRecord struct {
	UpgradeID  string       `json:"upgrade_id"`
	Multiplier num.Quantity `json:"multiplier"`
	AppliedAt  time.Time    `json:"applied_at"`
	DurationMs int64        `json:"duration_ms"`
}

// Encode serializes state into a Snapshot payload.
func Encode(s *game.GameState, now time.Time) ([]byte, error) {
	snap := Snapshot{
		Version:            version,
		SavedAt:            now,
		Currency:           s.Currency,
		Views:              s.Views,
		TotalEarned:        s.TotalEarned,
		BaseClickValue:     s.BaseClickValue,
		ClickMultiplier:    s.ClickMultiplier,
		IdleMultiplier:     s.IdleMultiplier,
		EngagementLevel:    s.EngagementLevel,
		StrategyPoints:     s.StrategyPoints,
		TotalPrestigeCount: s.TotalPrestigeCount,
		TotalClicks:        s.TotalClicks,
	}
	for _, g := range s.Generators {
		snap.Generators = append(snap.Generators, GeneratorRecord{ID: g.ID, Owned: g.Owned, Unlocked: g.Unlocked})
	}
	for _, u := range s.Upgrades {
		snap.Upgrades = append(snap.Upgrades, UpgradeRecord{ID: u.ID, Purchases: u.Purchases, Unlocked: u.Unlocked})
	}
	for _, e := range s.Effects {
		snap.Effects = append(snap.Effects, EffectRecord{
			UpgradeID:  e.UpgradeID,
			Multiplier: e.Multiplier,
			AppliedAt:  e.AppliedAt,
			DurationMs: e.Duration.Milliseconds(),
		})
	}
	return json.MarshalIndent(snap, "", "  ")
}

// requiredKeys are the top-level fields without which a save is rejected.
var requiredKeys = []string{"currency", "total_earned", "generators", "upgrades"}

// Decode rebuilds a GameState from a snapshot payload, re-binding catalog
// definitions by id. Effects whose window ended before now are dropped and
// never re-applied; live ones resume with their remaining duration.
func Decode(data []byte, cat *catalog.Catalog, bal config.Balance, now time.Time) (*game.GameState, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, ErrInvalidSave
	}
	for _, key := range requiredKeys {
		if _, ok := raw[key]; !ok {
			return nil, ErrInvalidSave
		}
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, ErrInvalidSave
	}

	s := game.NewState(cat, bal)
	s.Currency = snap.Currency
	s.Views = snap.Views
	s.TotalEarned = snap.TotalEarned
	s.BaseClickValue = orDefault(snap.BaseClickValue, num.FromFloat(bal.BaseClickValue))
	s.ClickMultiplier = orDefault(snap.ClickMultiplier, num.One())
	s.IdleMultiplier = orDefault(snap.IdleMultiplier, num.One())
	s.EngagementLevel = snap.EngagementLevel
	s.StrategyPoints = snap.StrategyPoints
	s.TotalPrestigeCount = snap.TotalPrestigeCount
	s.TotalClicks = snap.TotalClicks

	for _, rec := range snap.Generators {
		g, ok := s.Generator(rec.ID)
		if !ok {
			// Content removed from the catalog: keep the record alive as an
			// inert entity so the save round-trips, but it produces nothing.
			slog.Warn("save references unknown generator, rebinding as inert", "id", rec.ID)
			g = &game.GeneratorState{ID: rec.ID, Def: inertGenerator(rec.ID)}
			s.Generators = append(s.Generators, g)
		}
		g.Owned = rec.Owned
		g.Unlocked = g.Unlocked || rec.Unlocked
	}
	for _, rec := range snap.Upgrades {
		u, ok := s.Upgrade(rec.ID)
		if !ok {
			slog.Warn("save references unknown upgrade, rebinding as no-op", "id", rec.ID)
			u = &game.UpgradeState{ID: rec.ID, Def: inertUpgrade(rec.ID)}
			s.Upgrades = append(s.Upgrades, u)
		}
		u.Purchases = rec.Purchases
		u.Unlocked = u.Unlocked || rec.Unlocked
	}

	for _, rec := range snap.Effects {
		expiresAt := rec.AppliedAt.Add(time.Duration(rec.DurationMs) * time.Millisecond)
		if !now.Before(expiresAt) {
			continue // expired while the game was closed; never re-apply
		}
		s.Effects = append(s.Effects, &game.ActiveEffect{
			UpgradeID:  rec.UpgradeID,
			Multiplier: rec.Multiplier,
			AppliedAt:  rec.AppliedAt,
			Duration:   time.Duration(rec.DurationMs) * time.Millisecond,
		})
	}
	s.RebuildBoost()
	// Thresholds may be newly satisfied relative to the persisted flags,
	// for example after a balance change lowered an unlock amount. Unlocks
	// re-evaluate on load so such entities do not stay locked until the
	// next purchase.
	s.RefreshUnlocks()
	return s, nil
}

func orDefault(q, fallback num.Quantity) num.Quantity {
	if q.IsZero() {
		return fallback
	}
	return q
}

func inertGenerator(id string) catalog.GeneratorDef {
	return catalog.GeneratorDef{
		ID:             id,
		Name:           id,
		BaseCost:       num.Zero(),
		CostMultiplier: num.One(),
		BaseProduction: num.Zero(),
		Unlock:         catalog.Unlock{Kind: catalog.UnlockAlways},
	}
}

func inertUpgrade(id string) catalog.UpgradeDef {
	return catalog.UpgradeDef{
		ID:             id,
		Name:           id,
		BaseCost:       num.Zero(),
		CostMultiplier: num.One(),
		MaxPurchases:   1,
		Unlock:         catalog.Unlock{Kind: catalog.UnlockAlways},
		// Effect kind left empty: applying it is a no-op.
	}
}
