package telemetry

import (
	"encoding/json"
	"time"
)

// Stats aggregates balance-relevant numbers from a run's event stream.
type Stats struct {
	Period            string            `json:"period"`
	EventCounts       map[EventType]int `json:"event_counts"`
	Clicks            int               `json:"clicks"`
	Purchases         int               `json:"purchases"`
	PurchasesByEntity map[string]int    `json:"purchases_by_entity"`
	Prestiges         int               `json:"prestiges"`
	CyclesCompleted   int               `json:"cycles_completed"`
	ClicksPerCycle    float64           `json:"clicks_per_cycle"`
	PurchasesPerCycle float64           `json:"purchases_per_cycle"`
}

// CalculateStats computes balance stats from events recorded at or after
// since.
func CalculateStats(events []Event, since time.Time) (Stats, error) {
	stats := Stats{
		Period:            since.Format("2006-01-02"),
		EventCounts:       make(map[EventType]int),
		PurchasesByEntity: make(map[string]int),
	}

	for _, event := range events {
		stats.EventCounts[event.Type]++

		var metadata EventMetadata
		if err := json.Unmarshal([]byte(event.Metadata), &metadata); err != nil {
			continue
		}

		switch event.Type {
		case EventClick:
			stats.Clicks++
		case EventGeneratorPurchased, EventUpgradePurchased:
			stats.Purchases++
			if id, ok := metadata["id"].(string); ok {
				stats.PurchasesByEntity[id]++
			}
		case EventPrestige:
			stats.Prestiges++
		case EventCycleCompleted:
			stats.CyclesCompleted++
		}
	}

	if stats.CyclesCompleted > 0 {
		stats.ClicksPerCycle = float64(stats.Clicks) / float64(stats.CyclesCompleted)
		stats.PurchasesPerCycle = float64(stats.Purchases) / float64(stats.CyclesCompleted)
	}
	return stats, nil
}
