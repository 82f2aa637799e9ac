package config

// Balance holds every tunable economy number in one place.
type Balance struct {
	// Click economy
	BaseClickValue float64 `json:"base_click_value" yaml:"base_click_value"`

	// Prestige
	PrestigeThreshold float64 `json:"prestige_threshold" yaml:"prestige_threshold"`
	PrestigeExponent  float64 `json:"prestige_exponent" yaml:"prestige_exponent"`
	// StrategyPointBonus is the linear production bonus per strategy point
	// (multiplier = 1 + bonus*points).
	StrategyPointBonus float64 `json:"strategy_point_bonus" yaml:"strategy_point_bonus"`

	// Engagement levels, bought with strategy points.
	EngagementBaseCost       float64 `json:"engagement_base_cost" yaml:"engagement_base_cost"`
	EngagementCostMultiplier float64 `json:"engagement_cost_multiplier" yaml:"engagement_cost_multiplier"`
	EngagementBonusPerLevel  float64 `json:"engagement_bonus_per_level" yaml:"engagement_bonus_per_level"`

	// Offline progress
	MaxOfflineHours     float64 `json:"max_offline_hours" yaml:"max_offline_hours"`
	OfflineProgressRate float64 `json:"offline_progress_rate" yaml:"offline_progress_rate"`

	// Bot tuning
	BotClicksPerSecond     float64 `json:"bot_clicks_per_second" yaml:"bot_clicks_per_second"`
	PassiveClicksPerHour   float64 `json:"passive_clicks_per_hour" yaml:"passive_clicks_per_hour"`
	GoodEnoughRatio        float64 `json:"good_enough_ratio" yaml:"good_enough_ratio"`
	PrestigeGainRatio      float64 `json:"prestige_gain_ratio" yaml:"prestige_gain_ratio"`
	MinPrestigeIntervalSec float64 `json:"min_prestige_interval_sec" yaml:"min_prestige_interval_sec"`
	BoostUsageWindowSec    float64 `json:"boost_usage_window_sec" yaml:"boost_usage_window_sec"`
}

// Default returns the production balance configuration.
func Default() Balance {
	return Balance{
		BaseClickValue:           1,
		PrestigeThreshold:        50000,
		PrestigeExponent:         0.6,
		StrategyPointBonus:       0.1,
		EngagementBaseCost:       5,
		EngagementCostMultiplier: 2,
		EngagementBonusPerLevel:  0.25,
		MaxOfflineHours:          8,
		OfflineProgressRate:      0.5,
		BotClicksPerSecond:       5,
		PassiveClicksPerHour:     100,
		GoodEnoughRatio:          0.5,
		PrestigeGainRatio:        0.25,
		MinPrestigeIntervalSec:   30,
		BoostUsageWindowSec:      600,
	}
}

// Casual returns a gentler curve for casual play.
func Casual() Balance {
	cfg := Default()
	cfg.PrestigeThreshold = 25000
	cfg.MaxOfflineHours = 12
	cfg.OfflineProgressRate = 0.75
	return cfg
}

// Hard returns a steeper curve for experienced players.
func Hard() Balance {
	cfg := Default()
	cfg.PrestigeThreshold = 100000
	cfg.MaxOfflineHours = 4
	cfg.OfflineProgressRate = 0.25
	return cfg
}
