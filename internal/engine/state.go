// Package engine is the turn-resolution core: it computes a side-effect-free
// preview of the next turn (ProposeTurn) and commits player decisions against
// it (ApplyDecisions), producing a new state value plus a structured report.
// The engine is single-threaded and free of I/O; callers own sequencing.
package engine

import (
	"github.com/talgya/demesne/internal/people"
	"github.com/talgya/demesne/internal/tuning"
)

// Game-over reasons. Game over is a terminal state communicated through the
// state value, not an error.
const (
	GameOverDispossessed = "Dispossessed"
	GameOverDeathNoHeir  = "DeathNoHeir"
)

// RNG stream names. Distinct subsystems draw from distinct streams so one
// subsystem's call count never perturbs another's sequence.
const (
	StreamWeather    = "weather"
	StreamMarket     = "market"
	StreamHousehold  = "household"
	StreamDemography = "demography"
	StreamEvents     = "events"
	StreamWorldgen   = "worldgen"
	StreamMarriage   = "marriage"
)

// RunState is the aggregate root for one run. Turns replace it with a new
// value; nothing mutates a committed state through the public API.
type RunState struct {
	Seed string `json:"seed"`
	Turn int    `json:"turn"`

	people.Registry

	Manor     Manor         `json:"manor"`
	Household Household     `json:"household"`
	Locals    Locals        `json:"locals"`
	Relations []RelEdge     `json:"relationships"`
	Tuning    tuning.Config `json:"tuning"`
	Flags     Flags         `json:"flags"`

	GameOver *GameOver  `json:"game_over,omitempty"`
	Log      []LogEntry `json:"log,omitempty"`
}

// Manor is the estate's economic state.
type Manor struct {
	Population int `json:"population"`
	Farmers    int `json:"farmers"`
	Builders   int `json:"builders"`
	Bushels    int `json:"bushels_stored"`
	Coin       int `json:"coin"`
	Unrest     int `json:"unrest"`

	Improvements []string      `json:"improvements,omitempty"`
	Construction *Construction `json:"construction,omitempty"`
	Obligations  Obligations   `json:"obligations"`

	// Shortage marks that stores ran out this turn; consulted at close and
	// then cleared with the other transient flags.
	Shortage bool `json:"shortage,omitempty"`
}

// Construction is the active building project, if any.
type Construction struct {
	ImprovementID string `json:"improvement_id"`
	Progress      int    `json:"progress"`
	Required      int    `json:"required"`
}

// Obligations tracks dues to liege and church, with arrears carried forward.
type Obligations struct {
	TaxCoinDue      int      `json:"tax_coin_due"`
	TitheBushelsDue int      `json:"tithe_bushels_due"`
	ArrearsCoin     int      `json:"arrears_coin"`
	ArrearsBushels  int      `json:"arrears_bushels"`
	WarLevy         *WarLevy `json:"war_levy,omitempty"`
}

// WarLevy is an active call to arms: send men, or buy it off.
type WarLevy struct {
	MenRequired int `json:"men_required"`
	CoinOption  int `json:"coin_option"`
}

// Household carries the player house's per-turn action budget. Membership
// itself lives in the registry's player house.
type Household struct {
	Energy    int `json:"energy"`
	MaxEnergy int `json:"max_energy"`
}

// Locals are the directly-known neighborhood persons, by registry id.
type Locals struct {
	LiegeID  string   `json:"liege_id,omitempty"`
	ClergyID string   `json:"clergy_id,omitempty"`
	NobleIDs []string `json:"noble_ids,omitempty"`
}

// RelEdge is a directed relationship with bounded [0,100] components,
// created lazily and drifting toward baseline when untouched.
type RelEdge struct {
	FromID     string `json:"from_id"`
	ToID       string `json:"to_id"`
	Allegiance int    `json:"allegiance"`
	Respect    int    `json:"respect"`
	Threat     int    `json:"threat"`
}

// Relationship baselines.
const (
	BaselineAllegiance = 50
	BaselineRespect    = 50
	BaselineThreat     = 20
)

// Flags groups the typed per-run bookkeeping that older saves kept in a
// free-form bag: reservations, id allocation, transient modifiers, event
// cooldowns.
type Flags struct {
	// Reservations maps person id → expiry turn for unresolved marriage
	// prospects. A reserved person is offered nowhere else until the
	// reservation lapses or resolves.
	Reservations   map[string]int `json:"marriage_reservations,omitempty"`
	IDAlloc        people.IDAlloc `json:"id_alloc"`
	Modifiers      Transient      `json:"modifiers"`
	EventCooldowns map[string]int `json:"event_cooldowns,omitempty"`
}

// Transient modifiers are set by decisions or events and consumed by the
// next pipeline that reads them: the harvest spends YieldBonus, the
// household birth roll spends BirthBonus, and the next marriage window
// spends OfferQualityBonus.
type Transient struct {
	YieldBonus        float64 `json:"yield_bonus,omitempty"`
	BirthBonus        float64 `json:"birth_bonus,omitempty"`
	OfferQualityBonus float64 `json:"offer_quality_bonus,omitempty"`
}

// GameOver is the terminal marker.
type GameOver struct {
	Reason string `json:"reason"`
	Turn   int    `json:"turn"`
}

// Active reports whether the run can still advance.
func (s *RunState) Active() bool { return s.GameOver == nil }

// Year is the calendar year at the current turn.
func (s *RunState) Year() int {
	return s.Tuning.StartYear + s.Turn*s.Tuning.TurnYears
}

// Head returns the current head of the player house, or nil.
func (s *RunState) Head() *people.Person {
	if h := s.PlayerHouse(); h != nil {
		return s.People[h.HeadID]
	}
	return nil
}

// Spouse returns the player house spouse record, or nil.
func (s *RunState) Spouse() *people.Person {
	if h := s.PlayerHouse(); h != nil && h.SpouseID != "" {
		return s.People[h.SpouseID]
	}
	return nil
}

// HasImprovement reports whether the named improvement is completed.
func (s *RunState) HasImprovement(id string) bool {
	for _, x := range s.Manor.Improvements {
		if x == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the state, including the log.
func (s *RunState) Clone() *RunState {
	cp := *s
	cp.Registry = s.Registry.Clone()
	cp.Manor.Improvements = append([]string(nil), s.Manor.Improvements...)
	if s.Manor.Construction != nil {
		c := *s.Manor.Construction
		cp.Manor.Construction = &c
	}
	if s.Manor.Obligations.WarLevy != nil {
		w := *s.Manor.Obligations.WarLevy
		cp.Manor.Obligations.WarLevy = &w
	}
	cp.Locals.NobleIDs = append([]string(nil), s.Locals.NobleIDs...)
	cp.Relations = append([]RelEdge(nil), s.Relations...)
	cp.Flags.Reservations = cloneIntMap(s.Flags.Reservations)
	cp.Flags.EventCooldowns = cloneIntMap(s.Flags.EventCooldowns)
	if s.GameOver != nil {
		g := *s.GameOver
		cp.GameOver = &g
	}
	cp.Log = append([]LogEntry(nil), s.Log...)
	return &cp
}

// snapshot is a bounded copy for the turn log: a full clone with the log
// stripped. Snapshots therefore can never nest a log at any depth.
func (s *RunState) snapshot() *RunState {
	cp := s.Clone()
	cp.Log = nil
	return cp
}

func cloneIntMap(m map[string]int) map[string]int {
	if m == nil {
		return nil
	}
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// relEdge returns the directed edge from→to, creating it at baseline on
// first touch.
func (s *RunState) relEdge(from, to string) *RelEdge {
	for i := range s.Relations {
		if s.Relations[i].FromID == from && s.Relations[i].ToID == to {
			return &s.Relations[i]
		}
	}
	s.Relations = append(s.Relations, RelEdge{
		FromID: from, ToID: to,
		Allegiance: BaselineAllegiance,
		Respect:    BaselineRespect,
		Threat:     BaselineThreat,
	})
	return &s.Relations[len(s.Relations)-1]
}

// adjustRelation nudges the edge from→to and clamps.
func (s *RunState) adjustRelation(from, to string, dAllegiance, dRespect, dThreat int) {
	e := s.relEdge(from, to)
	e.Allegiance = clampInt(e.Allegiance+dAllegiance, 0, 100)
	e.Respect = clampInt(e.Respect+dRespect, 0, 100)
	e.Threat = clampInt(e.Threat+dThreat, 0, 100)
}

// driftRelations moves every component of every edge one point toward its
// baseline. Runs once per turn before decisions touch the edges.
func (s *RunState) driftRelations() {
	for i := range s.Relations {
		e := &s.Relations[i]
		e.Allegiance = driftToward(e.Allegiance, BaselineAllegiance)
		e.Respect = driftToward(e.Respect, BaselineRespect)
		e.Threat = driftToward(e.Threat, BaselineThreat)
	}
}

func driftToward(v, baseline int) int {
	switch {
	case v > baseline:
		return v - 1
	case v < baseline:
		return v + 1
	}
	return v
}

// normalize clamps every bounded numeric field. Called at the end of the
// pipeline so no intermediate arithmetic can leak an out-of-range value.
func (s *RunState) normalize() {
	m := &s.Manor
	m.Unrest = clampInt(m.Unrest, 0, 100)
	if m.Bushels < 0 {
		m.Bushels = 0
	}
	if m.Coin < 0 {
		m.Coin = 0
	}
	if m.Population < 0 {
		m.Population = 0
	}
	if m.Farmers < 0 {
		m.Farmers = 0
	}
	if m.Builders < 0 {
		m.Builders = 0
	}
	// Labor conservation: farmers + builders never exceed population.
	if m.Farmers+m.Builders > m.Population {
		over := m.Farmers + m.Builders - m.Population
		cut := min(over, m.Builders)
		m.Builders -= cut
		over -= cut
		m.Farmers -= over
	}
	if m.Obligations.ArrearsCoin < 0 {
		m.Obligations.ArrearsCoin = 0
	}
	if m.Obligations.ArrearsBushels < 0 {
		m.Obligations.ArrearsBushels = 0
	}
	if s.Household.Energy < 0 {
		s.Household.Energy = 0
	}
	for i := range s.Relations {
		e := &s.Relations[i]
		e.Allegiance = clampInt(e.Allegiance, 0, 100)
		e.Respect = clampInt(e.Respect, 0, 100)
		e.Threat = clampInt(e.Threat, 0, 100)
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
