package config

import (
	"os"
	"strconv"
)

// FromEnv loads balance configuration from environment variables.
// Falls back to defaults if variables are not set.
func FromEnv() Balance {
	// Support preset modes first so individual overrides still apply on top.
	cfg := Default()
	switch os.Getenv("DIFFICULTY") {
	case "casual":
		cfg = Casual()
	case "hard":
		cfg = Hard()
	}

	if val, ok := getEnvFloat("PRESTIGE_THRESHOLD"); ok && val > 0 {
		cfg.PrestigeThreshold = val
	}
	if val, ok := getEnvFloat("PRESTIGE_EXPONENT"); ok && val > 0 && val < 1 {
		cfg.PrestigeExponent = val
	}
	if val, ok := getEnvFloat("STRATEGY_POINT_BONUS"); ok && val > 0 {
		cfg.StrategyPointBonus = val
	}
	if val, ok := getEnvFloat("MAX_OFFLINE_HOURS"); ok && val > 0 {
		cfg.MaxOfflineHours = val
	}
	if val, ok := getEnvFloat("OFFLINE_PROGRESS_RATE"); ok && val >= 0 && val <= 1 {
		cfg.OfflineProgressRate = val
	}
	if val, ok := getEnvFloat("BOT_CLICKS_PER_SECOND"); ok && val > 0 {
		cfg.BotClicksPerSecond = val
	}
	if val, ok := getEnvFloat("PASSIVE_CLICKS_PER_HOUR"); ok && val > 0 {
		cfg.PassiveClicksPerHour = val
	}

	return cfg
}

func getEnvFloat(key string) (float64, bool) {
	val := os.Getenv(key)
	if val == "" {
		return 0, false
	}
	num, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, false
	}
	return num, true
}
