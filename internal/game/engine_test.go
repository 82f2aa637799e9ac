package game

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scottholdren/idle-clicker-game/internal/catalog"
	"github.com/scottholdren/idle-clicker-game/internal/config"
	"github.com/scottholdren/idle-clicker-game/internal/num"
)

func newEngineForTest() (*Engine, *FakeClock) {
	fake := NewFakeClock(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC))
	return NewEngine(catalog.Default(), config.Default(), fake), fake
}

func TestClick_Scenario(t *testing.T) {
	e, _ := newEngineForTest()

	for i := 0; i < 10; i++ {
		earned := e.Click()
		assert.True(t, earned.Equals(num.One()))
	}
	assert.True(t, e.State.Currency.Equals(num.FromInt(10)))
	assert.True(t, e.State.TotalEarned.Equals(num.FromInt(10)))
	assert.Equal(t, int64(10), e.State.TotalClicks)
}

func TestGeneratorCost_ExponentialFormula(t *testing.T) {
	e, _ := newEngineForTest()
	g, ok := e.State.Generator("script_bot")
	require.True(t, ok)

	// baseCost=100, costMultiplier=1.15: first unit costs exactly 100.
	assert.True(t, e.GeneratorCost(g, 1).Equals(num.FromInt(100)))

	e.State.Currency = num.FromInt(100)
	_, err := e.PurchaseGenerator("script_bot", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, g.Owned)
	assert.True(t, e.State.Currency.IsZero())

	// Next unit: ceil(100*1.15) = 115.
	assert.True(t, e.GeneratorCost(g, 1).Equals(num.FromInt(115)))
}

func TestGeneratorCost_Monotonic(t *testing.T) {
	e, _ := newEngineForTest()
	g, ok := e.State.Generator("auto_clicker")
	require.True(t, ok)

	prev := num.Zero()
	for n := 0; n < 50; n++ {
		g.Owned = n
		cost := e.GeneratorCost(g, 1)
		assert.True(t, cost.GreaterThan(prev), "cost at owned=%d must exceed cost at owned=%d", n, n-1)
		prev = cost
	}
}

func TestGeneratorCost_BulkIsSumOfUnits(t *testing.T) {
	e, _ := newEngineForTest()
	g, ok := e.State.Generator("script_bot")
	require.True(t, ok)
	g.Owned = 3

	// Bulk cost is the raw geometric sum ceiled once.
	unitSum := num.Zero()
	step := g.Def.BaseCost.Mul(g.Def.CostMultiplier.PowInt(3))
	for i := 0; i < 5; i++ {
		unitSum = unitSum.Add(step)
		step = step.Mul(g.Def.CostMultiplier)
	}
	assert.True(t, e.GeneratorCost(g, 5).Equals(unitSum.Ceil()))
}

func TestPurchase_FailuresLeaveStateUntouched(t *testing.T) {
	e, _ := newEngineForTest()
	e.State.Currency = num.FromInt(50)

	snapshotCurrency := e.State.Currency

	_, err := e.PurchaseGenerator("no_such_generator", 1)
	assert.ErrorIs(t, err, ErrUnknownEntity)

	// click_farm needs 500 total earned before it unlocks.
	_, err = e.PurchaseGenerator("click_farm", 1)
	assert.ErrorIs(t, err, ErrLocked)

	// script_bot is unlocked but costs 100.
	_, err = e.PurchaseGenerator("script_bot", 1)
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	assert.True(t, e.State.Currency.Equals(snapshotCurrency))
	for _, g := range e.State.Generators {
		assert.Equal(t, 0, g.Owned)
	}
}

func TestPurchaseUpgrade_AppliesEffectExactlyOnce(t *testing.T) {
	e, _ := newEngineForTest()
	e.State.Currency = num.FromInt(200)
	e.State.TotalEarned = num.FromInt(200)
	e.RefreshUnlocks()

	// reinforced_mouse: cost 100, click x2.
	cost, err := e.PurchaseUpgrade("reinforced_mouse")
	require.NoError(t, err)
	assert.True(t, cost.Equals(num.FromInt(100)))
	assert.True(t, e.State.Currency.Equals(num.FromInt(100)))
	assert.True(t, e.State.ClickMultiplier.Equals(num.FromInt(2)))

	u, _ := e.State.Upgrade("reinforced_mouse")
	assert.Equal(t, 1, u.Purchases)

	// Next tier costs 100*10 = 1000; unaffordable, and nothing changes.
	_, err = e.PurchaseUpgrade("reinforced_mouse")
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.True(t, e.State.ClickMultiplier.Equals(num.FromInt(2)))
	assert.Equal(t, 1, u.Purchases)
}

func TestPurchaseUpgrade_MaxedRejected(t *testing.T) {
	e, _ := newEngineForTest()
	u, _ := e.State.Upgrade("double_click")
	u.Unlocked = true
	u.Purchases = u.Def.MaxPurchases
	e.State.Currency = num.FromInt(10_000_000)

	before := e.State.Currency
	_, err := e.PurchaseUpgrade("double_click")
	assert.ErrorIs(t, err, ErrMaxed)
	assert.True(t, e.State.Currency.Equals(before))
}

func TestPurchaseMaxAffordable_MatchesSingleUnitPurchases(t *testing.T) {
	budget := num.FromInt(12345)

	bulk, _ := newEngineForTest()
	bulk.State.Currency = budget
	count, total, err := bulk.PurchaseMaxAffordable("auto_clicker")
	require.NoError(t, err)
	require.Greater(t, count, 1)

	unit, _ := newEngineForTest()
	unit.State.Currency = budget
	singles := 0
	paid := num.Zero()
	for {
		cost, err := unit.PurchaseGenerator("auto_clicker", 1)
		if err != nil {
			require.ErrorIs(t, err, ErrInsufficientFunds)
			break
		}
		paid = paid.Add(cost)
		singles++
	}

	assert.Equal(t, singles, count)
	assert.True(t, total.Equals(paid), "bulk charged %s, singles charged %s", total, paid)

	bg, _ := bulk.State.Generator("auto_clicker")
	ug, _ := unit.State.Generator("auto_clicker")
	assert.Equal(t, ug.Owned, bg.Owned)
	assert.True(t, bulk.State.Currency.Equals(unit.State.Currency))
}

func TestIdleProduction(t *testing.T) {
	e, _ := newEngineForTest()
	g, _ := e.State.Generator("script_bot")
	g.Owned = 3 // 3 views/s

	assert.True(t, e.TotalIdleProduction().Equals(num.FromInt(3)))

	earned := e.UpdateIdleProgress(10)
	assert.True(t, earned.Equals(num.FromInt(30)))
	assert.True(t, e.State.Currency.Equals(num.FromInt(30)))
	assert.True(t, e.State.Views.Equals(num.FromInt(30)))
	assert.True(t, e.State.TotalEarned.Equals(num.FromInt(30)))

	// Linear in delta time: no internal clamping.
	big := e.UpdateIdleProgress(100000)
	assert.True(t, big.Equals(num.FromInt(300000)))
}

func TestOfflineProgress_Capping(t *testing.T) {
	e, _ := newEngineForTest()
	g, _ := e.State.Generator("script_bot")
	g.Owned = 1 // 1 view/s

	// Default balance: 8h cap, 0.5 efficiency.
	res := e.OfflineProgress(10 * 3600)
	assert.True(t, res.CappedByTime)
	assert.True(t, res.CappedByEfficiency)
	assert.InDelta(t, 4.0, res.EffectiveHours, 1e-9)
	assert.True(t, res.IdleEarnings.Equals(num.FromInt(4*3600)))

	// Under the cap, earnings scale linearly with hours.
	two := e.OfflineProgress(2 * 3600)
	four := e.OfflineProgress(4 * 3600)
	assert.False(t, two.CappedByTime)
	assert.True(t, four.IdleEarnings.Equals(two.IdleEarnings.Mul(num.FromInt(2))))

	before := e.State.Currency
	e.ApplyOfflineProgress(res)
	assert.True(t, e.State.Currency.Equals(before.Add(res.IdleEarnings)))
}

func TestPrestige_GainCurve(t *testing.T) {
	e, _ := newEngineForTest()

	assert.False(t, e.CanPrestige())
	assert.True(t, e.PrestigeGain().IsZero())

	e.State.TotalEarned = num.FromInt(50000)
	assert.True(t, e.CanPrestige())
	assert.True(t, e.PrestigeGain().Equals(num.One()))

	// 32x the threshold: 32^0.6 = 8.
	e.State.TotalEarned = num.FromInt(50000 * 32)
	assert.True(t, e.PrestigeGain().Equals(num.FromInt(8)))
}

func TestPerformPrestige_ResetSelectivity(t *testing.T) {
	e, _ := newEngineForTest()

	// Build up a run worth resetting.
	e.State.Currency = num.FromInt(123456)
	e.State.TotalEarned = num.FromInt(50000 * 32)
	e.State.Views = num.FromInt(999)
	e.State.ClickMultiplier = num.FromInt(4)
	e.State.IdleMultiplier = num.FromInt(2)
	e.State.EngagementLevel = 2
	e.State.StrategyPoints = num.FromInt(3)
	for _, g := range e.State.Generators {
		g.Owned = 5
	}
	for _, u := range e.State.Upgrades {
		u.Purchases = 1
	}

	gain, err := e.PerformPrestige()
	require.NoError(t, err)
	assert.True(t, gain.Equals(num.FromInt(8)))

	assert.True(t, e.State.Currency.IsZero())
	assert.True(t, e.State.TotalEarned.IsZero())
	assert.True(t, e.State.Views.IsZero())
	assert.True(t, e.State.ClickMultiplier.Equals(num.One()))
	assert.True(t, e.State.IdleMultiplier.Equals(num.One()))
	for _, g := range e.State.Generators {
		assert.Equal(t, 0, g.Owned, "generator %s", g.ID)
	}
	for _, u := range e.State.Upgrades {
		assert.Equal(t, 0, u.Purchases, "upgrade %s", u.ID)
	}

	// Preserved tiers.
	assert.Equal(t, 2, e.State.EngagementLevel)
	assert.Equal(t, 1, e.State.TotalPrestigeCount)
	assert.True(t, e.State.StrategyPoints.Equals(num.FromInt(11))) // 3 banked + 8 gained

	// Prestige-gated content starts unlocked after the first reset.
	q, _ := e.State.Generator("quantum_rig")
	assert.True(t, q.Unlocked)

	_, err = e.PerformPrestige()
	assert.ErrorIs(t, err, ErrCannotPrestige)
}

func TestStrategyPointMultiplier_Linear(t *testing.T) {
	e, _ := newEngineForTest()
	e.State.StrategyPoints = num.FromInt(10)

	// 1 + 0.1*10 = 2.
	assert.True(t, e.StrategyPointMultiplier().Equals(num.FromInt(2)))
	assert.True(t, e.EffectiveClickValue().Equals(num.FromInt(2)))

	g, _ := e.State.Generator("script_bot")
	g.Owned = 1
	assert.True(t, e.TotalIdleProduction().Equals(num.FromInt(2)))
}

func TestTemporaryBoost_AppliesOnceAndExpiresOnce(t *testing.T) {
	e, clk := newEngineForTest()
	e.State.Currency = num.FromInt(5000)
	e.State.TotalEarned = num.FromInt(5000)
	e.RefreshUnlocks()

	// caffeine_rush: x7 for 30 seconds.
	_, err := e.PurchaseUpgrade("caffeine_rush")
	require.NoError(t, err)
	require.Len(t, e.State.Effects, 1)
	assert.True(t, e.EffectiveClickValue().Equals(num.FromInt(7)))

	// Still live one second before expiry.
	clk.Advance(29 * time.Second)
	assert.Equal(t, 0, e.ExpireEffects(clk.Now()))
	assert.True(t, e.EffectiveClickValue().Equals(num.FromInt(7)))

	clk.Advance(1 * time.Second)
	assert.Equal(t, 1, e.ExpireEffects(clk.Now()))
	assert.Len(t, e.State.Effects, 0)
	assert.True(t, e.EffectiveClickValue().Equals(num.One()))

	// A second sweep must not reverse anything again.
	assert.Equal(t, 0, e.ExpireEffects(clk.Now()))
	assert.True(t, e.EffectiveClickValue().Equals(num.One()))
}

func TestTemporaryBoost_StacksMultiplicatively(t *testing.T) {
	e, clk := newEngineForTest()
	e.State.Currency = num.FromInt(100000)
	e.State.TotalEarned = num.FromInt(100000)
	e.RefreshUnlocks()

	_, err := e.PurchaseUpgrade("caffeine_rush")
	require.NoError(t, err)
	clk.Advance(10 * time.Second)
	_, err = e.PurchaseUpgrade("caffeine_rush")
	require.NoError(t, err)

	assert.True(t, e.State.BoostMultiplier().Equals(num.FromInt(49)))

	// First boost expires at t+30s, second at t+40s.
	clk.Advance(25 * time.Second)
	assert.Equal(t, 1, e.ExpireEffects(clk.Now()))
	assert.True(t, e.State.BoostMultiplier().Equals(num.FromInt(7)))
}

func TestEngagementLevel_Purchase(t *testing.T) {
	e, _ := newEngineForTest()
	e.State.StrategyPoints = num.FromInt(12)

	// Level costs: 5, then 10.
	cost, err := e.PurchaseEngagementLevel()
	require.NoError(t, err)
	assert.True(t, cost.Equals(num.FromInt(5)))
	assert.Equal(t, 1, e.State.EngagementLevel)
	assert.True(t, e.State.StrategyPoints.Equals(num.FromInt(7)))
	assert.True(t, e.EngagementMultiplier().Equals(num.FromFloat(1.25)))

	_, err = e.PurchaseEngagementLevel()
	assert.True(t, errors.Is(err, ErrInsufficientFunds))
	assert.Equal(t, 1, e.State.EngagementLevel)
}
