package telemetry

import "time"

type EventType string

const (
	EventClick              EventType = "click"
	EventGeneratorPurchased EventType = "generator_purchased"
	EventUpgradePurchased   EventType = "upgrade_purchased"
	EventEffectExpired      EventType = "effect_expired"
	EventOfflineClaimed     EventType = "offline_claimed"
	EventPrestige           EventType = "prestige"
	EventCycleCompleted     EventType = "cycle_completed"
	EventSaveLoaded         EventType = "save_loaded"
)

type Event struct {
	ID        int       `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Metadata  string    `json:"metadata"`
}

type EventMetadata map[string]interface{}
