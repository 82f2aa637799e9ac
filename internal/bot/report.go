package bot

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/scottholdren/idle-clicker-game/internal/format"
	"github.com/scottholdren/idle-clicker-game/internal/num"
)

// Report is the full session log of one bot run. Quantity fields marshal as
// decimal strings.
type Report struct {
	RunID             string       `json:"run_id"`
	GeneratedAt       time.Time    `json:"generated_at"`
	Mode              Mode         `json:"mode"`
	Speed             Speed        `json:"speed"`
	SimulationSpeed   float64      `json:"simulation_speed"`
	State             RunnerState  `json:"state"`
	SimElapsedSeconds float64      `json:"sim_elapsed_seconds"`
	CyclesCompleted   int          `json:"cycles_completed"`
	AvgCycleSeconds   float64      `json:"avg_cycle_seconds"`
	TotalClicks       int64        `json:"total_clicks"`
	TotalPointsGained num.Quantity `json:"total_strategy_points_gained"`
	FinalCurrency     num.Quantity `json:"final_currency"`
	FinalPoints       num.Quantity `json:"final_strategy_points"`
	Cycles            []CycleStats `json:"cycles"`
}

// Report snapshots the run so far. Valid in any state; a mid-run report
// simply omits the unfinished cycle.
func (r *Runner) Report() *Report {
	r.mu.Lock()
	defer r.mu.Unlock()

	rep := &Report{
		RunID:             uuid.NewString(),
		GeneratedAt:       r.wall.Now(),
		Mode:              r.cfg.Mode,
		Speed:             r.cfg.Speed,
		SimulationSpeed:   r.cfg.Acceleration(),
		State:             r.state,
		SimElapsedSeconds: r.simElapsed,
		CyclesCompleted:   len(r.cycles),
		TotalPointsGained: num.Zero(),
		FinalCurrency:     r.engine.State.Currency,
		FinalPoints:       r.engine.State.StrategyPoints,
		Cycles:            append([]CycleStats(nil), r.cycles...),
	}
	for _, c := range r.cycles {
		rep.TotalClicks += c.Clicks
		rep.TotalPointsGained = rep.TotalPointsGained.Add(c.StrategyPointsGained)
		rep.AvgCycleSeconds += c.DurationSeconds
	}
	if len(r.cycles) > 0 {
		rep.AvgCycleSeconds /= float64(len(r.cycles))
	}
	return rep
}

// JSON marshals the full session log, Quantities as decimal strings.
func (rep *Report) JSON() ([]byte, error) {
	return json.MarshalIndent(rep, "", "  ")
}

// Text renders the human-readable run report: header, session metadata,
// summary, then one section per prestige cycle with a purchase breakdown.
// entityName resolves ids to display names; pass nil to print raw ids.
func (rep *Report) Text(entityName func(id string) string) string {
	if entityName == nil {
		entityName = func(id string) string { return id }
	}
	f := format.Formatter{}

	var b strings.Builder
	fmt.Fprintf(&b, "=== Bot Run Report %s ===\n", rep.RunID)
	fmt.Fprintf(&b, "generated: %s\n", rep.GeneratedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "mode: %s  speed: %s  acceleration: %gx\n\n", rep.Mode, rep.Speed, rep.SimulationSpeed)

	fmt.Fprintf(&b, "Summary\n")
	fmt.Fprintf(&b, "  state:            %s\n", rep.State)
	fmt.Fprintf(&b, "  simulated time:   %s\n", format.FormatTime(int64(rep.SimElapsedSeconds)))
	fmt.Fprintf(&b, "  cycles:           %d\n", rep.CyclesCompleted)
	if rep.CyclesCompleted > 0 {
		fmt.Fprintf(&b, "  avg cycle:        %s\n", format.FormatTime(int64(rep.AvgCycleSeconds)))
	}
	fmt.Fprintf(&b, "  total clicks:     %d\n", rep.TotalClicks)
	fmt.Fprintf(&b, "  SP gained:        %s\n", f.Format(rep.TotalPointsGained))
	fmt.Fprintf(&b, "  final currency:   %s\n", f.Format(rep.FinalCurrency))
	fmt.Fprintf(&b, "  final SP balance: %s\n", f.Format(rep.FinalPoints))

	for _, c := range rep.Cycles {
		fmt.Fprintf(&b, "\nCycle %d\n", c.Index)
		fmt.Fprintf(&b, "  duration:       %s\n", format.FormatTime(int64(c.DurationSeconds)))
		fmt.Fprintf(&b, "  earned:         %s\n", f.Format(c.CurrencyEarned))
		fmt.Fprintf(&b, "  SP gained:      %s\n", f.Format(c.StrategyPointsGained))
		if c.DurationSeconds > 0 {
			fmt.Fprintf(&b, "  clicks:         %d (%.2f/s)\n", c.Clicks, float64(c.Clicks)/c.DurationSeconds)
		} else {
			fmt.Fprintf(&b, "  clicks:         %d\n", c.Clicks)
		}
		fmt.Fprintf(&b, "  final mult:     click x%s, idle x%s\n",
			c.FinalClickMultiplier.String(), c.FinalIdleMultiplier.String())

		if len(c.Purchases) > 0 {
			fmt.Fprintf(&b, "  purchases:\n")
			ids := make([]string, 0, len(c.Purchases))
			for id := range c.Purchases {
				ids = append(ids, id)
			}
			sort.Slice(ids, func(i, j int) bool {
				if c.Purchases[ids[i]] != c.Purchases[ids[j]] {
					return c.Purchases[ids[i]] > c.Purchases[ids[j]]
				}
				return ids[i] < ids[j]
			})
			for _, id := range ids {
				fmt.Fprintf(&b, "    %-24s x%d\n", entityName(id), c.Purchases[id])
			}
		}
	}
	return b.String()
}

// EntityNamer builds an id-to-display-name resolver from the runner's
// catalog for use with Report.Text.
func (r *Runner) EntityNamer() func(id string) string {
	cat := r.engine.Catalog
	return func(id string) string {
		if g, ok := cat.Generator(id); ok {
			return g.Name
		}
		if u, ok := cat.Upgrade(id); ok {
			return u.Name
		}
		return id
	}
}
