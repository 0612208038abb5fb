package engine

import (
	"fmt"

	"github.com/talgya/demesne/internal/rng"
)

// ContentEvent is one entry in the cooldown-gated event deck.
type ContentEvent struct {
	ID       string
	Title    string
	Weight   int
	Cooldown int // turns before the event can fire again
	Why      string
	// Deltas applied to manor numbers when the event fires.
	Bushels int
	Coin    int
	Unrest  int
	// YieldBonus feeds the transient production modifier, consumed by the
	// next turn's harvest.
	YieldBonus float64
}

// eventDeck is the fixed content deck. Weights are relative; cooldowns keep
// the same card from repeating back to back.
var eventDeck = []ContentEvent{
	{ID: "harvest_blight", Title: "Blight in the far fields", Weight: 3, Cooldown: 3,
		Why: "rust took a strip of the winter wheat", Bushels: -60, Unrest: 4},
	{ID: "wandering_preacher", Title: "A wandering preacher", Weight: 4, Cooldown: 2,
		Why: "his sermons settled quarrels in the village", Unrest: -6},
	{ID: "market_day", Title: "A thriving market day", Weight: 4, Cooldown: 2,
		Why: "traders paid well for stall rights", Coin: 18},
	{ID: "poacher_dispute", Title: "Poachers in the wood", Weight: 3, Cooldown: 2,
		Why: "the verderers demanded wages to patrol", Coin: -10, Unrest: 3},
	{ID: "royal_messenger", Title: "A royal messenger", Weight: 2, Cooldown: 4,
		Why: "hosting the king's rider cost provisions but flattered the hall", Bushels: -25, Unrest: -3},
	{ID: "good_omens", Title: "Good omens at sowing", Weight: 3, Cooldown: 3,
		Why:     "fair signs put heart into the plough teams for the season ahead",
		Bushels: 40, YieldBonus: 0.08},
}

// EventResult records one fired event with its before/after numbers, the
// explanation contract the UI renders verbatim.
type EventResult struct {
	ID     string         `json:"id"`
	Title  string         `json:"title"`
	Why    string         `json:"why"`
	Deltas map[string]int `json:"deltas"`
	Before map[string]int `json:"before"`
	After  map[string]int `json:"after"`
}

// runEvents draws 0–2 independent events from the deck, skipping cards on
// cooldown, applying their deltas, and recording before/after/why.
func (s *RunState) runEvents(r *rng.Rng) []EventResult {
	if s.Flags.EventCooldowns == nil {
		s.Flags.EventCooldowns = map[string]int{}
	}

	count := r.Fork("count").Int(0, 2)
	var results []EventResult
	for i := 0; i < count; i++ {
		var eligible []ContentEvent
		total := 0
		for _, ev := range eventDeck {
			if s.Flags.EventCooldowns[ev.ID] > 0 {
				continue
			}
			fired := false
			for _, res := range results {
				if res.ID == ev.ID {
					fired = true
				}
			}
			if fired {
				continue
			}
			eligible = append(eligible, ev)
			total += ev.Weight
		}
		if len(eligible) == 0 || total == 0 {
			break
		}

		// Weighted pick.
		roll := r.Fork(fmt.Sprintf("pick.%d", i)).Int(1, total)
		var chosen ContentEvent
		for _, ev := range eligible {
			roll -= ev.Weight
			if roll <= 0 {
				chosen = ev
				break
			}
		}

		before := map[string]int{
			"bushels_stored": s.Manor.Bushels,
			"coin":           s.Manor.Coin,
			"unrest":         s.Manor.Unrest,
		}
		s.Manor.Bushels += chosen.Bushels
		s.Manor.Coin += chosen.Coin
		s.Manor.Unrest += chosen.Unrest
		s.Flags.Modifiers.YieldBonus += chosen.YieldBonus
		if s.Manor.Bushels < 0 {
			s.Manor.Bushels = 0
		}
		if s.Manor.Coin < 0 {
			s.Manor.Coin = 0
		}
		s.Manor.Unrest = clampInt(s.Manor.Unrest, 0, 100)

		results = append(results, EventResult{
			ID:    chosen.ID,
			Title: chosen.Title,
			Why:   chosen.Why,
			Deltas: map[string]int{
				"bushels_stored": chosen.Bushels,
				"coin":           chosen.Coin,
				"unrest":         chosen.Unrest,
			},
			Before: before,
			After: map[string]int{
				"bushels_stored": s.Manor.Bushels,
				"coin":           s.Manor.Coin,
				"unrest":         s.Manor.Unrest,
			},
		})
		s.Flags.EventCooldowns[chosen.ID] = chosen.Cooldown
	}
	return results
}

// tickEventCooldowns decrements every cooldown counter at turn start.
func (s *RunState) tickEventCooldowns() {
	for id, n := range s.Flags.EventCooldowns {
		if n > 0 {
			s.Flags.EventCooldowns[id] = n - 1
		}
	}
}
