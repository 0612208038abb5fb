package engine

import (
	"fmt"
	"math"
	"sort"

	"github.com/talgya/demesne/internal/court"
	"github.com/talgya/demesne/internal/demography"
	"github.com/talgya/demesne/internal/people"
	"github.com/talgya/demesne/internal/rng"
	"github.com/talgya/demesne/internal/tier"
)

// TurnContext is the read-only preview of committing the current turn. The
// preview state shares nothing with the caller's state.
type TurnContext struct {
	Preview        *RunState       `json:"preview"`
	Report         *TurnReport     `json:"report"`
	MarriageWindow *MarriageWindow `json:"marriage_window,omitempty"`
	MaxLaborShift  int             `json:"max_labor_shift"`
}

// ProposeTurn computes what committing this turn would produce, consuming no
// decision input and leaving the caller's state untouched.
func ProposeTurn(s *RunState) *TurnContext {
	pv := s.Clone()
	rep := &TurnReport{TurnIndex: s.Turn, Year: s.Year()}

	if !s.Active() {
		rep.note("run is over (%s); no further turns", s.GameOver.Reason)
		return &TurnContext{Preview: pv, Report: rep, MaxLaborShift: 0}
	}

	pv.runTurnPipeline(rep)

	// Preview drivers measure the automatic phases alone; ApplyDecisions
	// recomputes them against the committed state.
	rep.Drivers = computeDrivers(s, pv, rep)

	return &TurnContext{
		Preview:        pv,
		Report:         rep,
		MarriageWindow: pv.buildMarriageWindow(),
		MaxLaborShift:  maxLaborShift(pv.Manor.Population),
	}
}

// maxLaborShift caps the combined farmer+builder reallocation per turn.
func maxLaborShift(population int) int {
	return max(3, population/10)
}

// runTurnPipeline advances the automatic phases of a turn, in their fixed
// order, writing the numeric breakdown into rep.
func (s *RunState) runTurnPipeline(rep *TurnReport) {
	m := &s.Manor

	// Energy restores at dawn of the turn.
	s.Household.Energy = s.Household.MaxEnergy

	// Heir standing at turn start.
	if h := s.PlayerHouse(); h != nil {
		h.HeirID = s.computeHeir()
		rep.HeirID = h.HeirID
	}

	s.tickEventCooldowns()

	// Spoilage hits stores before the harvest lands.
	spoilage := int(float64(m.Bushels) * s.spoilageRate())
	m.Bushels -= spoilage
	rep.SpoilageBushels = spoilage

	// Macro environment.
	rep.WeatherMult = s.rollWeather()
	rep.MarketMult = s.rollMarket()
	rep.SellPrice = baseGrainPrice * rep.MarketMult
	rep.SellCap = s.Tuning.MarketSellCap

	// Production from the current farmer count. The yield modifier is spent
	// by this harvest.
	production := s.productionBushels(rep.WeatherMult)
	m.Bushels += production
	rep.ProductionBushels = production
	s.Flags.Modifiers.YieldBonus = 0

	// Construction progress.
	s.advanceConstruction(rep)

	// Consumption and the shortage branch.
	s.consumeStores(rep)

	// Obligations due this turn; arrears from before sting.
	s.assessObligations(rep)

	// Relationship drift toward baseline.
	s.driftRelations()

	// Household phase: aging, household mortality, household birth. The
	// birth modifier is spent by this phase's roll.
	s.runHouseholdPhase(rep)
	s.Flags.Modifiers.BirthBonus = 0

	// World demography over the tiered population.
	s.runWorldDemography(rep)

	// Content events.
	rep.Events = s.runEvents(rng.New(s.Seed, StreamEvents, s.Turn, ""))

	s.normalize()
}

// productionBushels computes the harvest for this turn.
func (s *RunState) productionBushels(weather float64) int {
	m := &s.Manor
	stewMult := 1.0
	if head := s.Head(); head != nil {
		stewMult = 1.0 + float64(head.Traits.Stewardship-3)*0.05
	}
	raw := float64(m.Farmers) * s.Tuning.YieldPerFarmer * float64(s.Tuning.TurnYears) *
		stewMult * s.improvementYieldMult() * weather * (1.0 + s.Flags.Modifiers.YieldBonus)
	if raw < 0 {
		return 0
	}
	return int(raw)
}

// advanceConstruction applies builder labor to the active project and
// completes it when the requirement is met.
func (s *RunState) advanceConstruction(rep *TurnReport) {
	c := s.Manor.Construction
	if c == nil {
		return
	}
	c.Progress += s.Manor.Builders * s.Tuning.BuildPointsPerWorker
	if c.Progress >= c.Required {
		s.Manor.Improvements = append(s.Manor.Improvements, c.ImprovementID)
		sort.Strings(s.Manor.Improvements)
		rep.ConstructionCompleted = c.ImprovementID
		s.Manor.Construction = nil
		return
	}
	rep.ConstructionProgress = c.Progress
	rep.ConstructionRequired = c.Required
}

// consumeStores feeds the manor and the court, branching into shortage when
// stores run dry: unrest rises and a random 3–11% of the population is shed,
// cutting builders before farmers if labor then exceeds population.
func (s *RunState) consumeStores(rep *TurnReport) {
	m := &s.Manor
	years := float64(s.Tuning.TurnYears)
	rate := s.Tuning.BushelsPerPersonYear

	courtNeed := court.ConsumptionBushels(&s.Registry, rate, s.Tuning.TurnYears, nil)
	peasants := float64(m.Population-m.Builders)*rate*years +
		float64(m.Builders)*rate*years*s.Tuning.BuilderFoodPremium
	total := courtNeed + int(peasants)
	rep.CourtBushels = courtNeed
	rep.ConsumptionBushels = total

	if m.Bushels >= total {
		m.Bushels -= total
		return
	}

	m.Bushels = 0
	m.Shortage = true
	rep.Shortage = true
	m.Unrest += 12

	pct := rng.New(s.Seed, StreamHousehold, s.Turn, "shortage").Int(3, 11)
	lost := max(1, m.Population*pct/100)
	m.Population -= lost
	rep.PopulationLost = lost
	if m.Farmers+m.Builders > m.Population {
		over := m.Farmers + m.Builders - m.Population
		cut := min(over, m.Builders)
		m.Builders -= cut
		m.Farmers -= over - cut
	}
}

// Tax base per house tier.
var taxByTier = map[people.HouseTier]int{
	people.TierKnight: 20,
	people.TierBaron:  30,
	people.TierCount:  45,
}

// assessObligations recomputes this turn's dues and applies the arrears
// unrest penalty. A war levy arrives occasionally while none is pending.
func (s *RunState) assessObligations(rep *TurnReport) {
	o := &s.Manor.Obligations

	tax := 25
	if h := s.PlayerHouse(); h != nil {
		if t, ok := taxByTier[h.Tier]; ok {
			tax = t
		}
	}
	o.TaxCoinDue = tax
	o.TitheBushelsDue = rep.ProductionBushels / 10

	if o.ArrearsCoin > 0 || o.ArrearsBushels > 0 {
		s.Manor.Unrest += 4
	}

	if o.WarLevy == nil {
		r := rng.New(s.Seed, StreamEvents, s.Turn, "warlevy")
		if r.Bool(0.12) {
			men := max(3, s.Manor.Population/20)
			o.WarLevy = &WarLevy{MenRequired: men, CoinOption: men * 8}
		}
	}

	rep.TaxCoinDue = o.TaxCoinDue
	rep.TitheBushelsDue = o.TitheBushelsDue
	rep.ArrearsCoin = o.ArrearsCoin
	rep.ArrearsBushels = o.ArrearsBushels
}

// Household mortality per turn by age band; the resident physician scales
// every band down.
func householdMortality(age int) float64 {
	switch {
	case age <= 5:
		return 0.06
	case age <= 15:
		return 0.02
	case age <= 45:
		return 0.03
	case age <= 60:
		return 0.08
	case age <= 75:
		return 0.20
	default:
		return 0.45
	}
}

// runHouseholdPhase ages the whole registry one turn and rolls the player
// household's mortality and birth.
func (s *RunState) runHouseholdPhase(rep *TurnReport) {
	for _, pid := range s.SortedPersonIDs() {
		if p := s.People[pid]; p.Alive {
			p.Age += s.Tuning.TurnYears
		}
	}

	h := s.PlayerHouse()
	if h == nil {
		return
	}
	r := rng.New(s.Seed, StreamHousehold, s.Turn, "")

	mortMult := 1.0
	if s.HasImprovement(ImpPhysician) {
		mortMult = 0.6
	}
	for _, pid := range court.DeriveMemberIDs(&s.Registry) {
		p := s.People[pid]
		if p == nil || !p.Alive {
			continue
		}
		pDeath := householdMortality(p.Age) * mortMult
		if !r.Fork("mortality." + pid).Bool(pDeath) {
			continue
		}
		p.Alive = false
		rep.HouseholdDeaths = append(rep.HouseholdDeaths, fmt.Sprintf("%s died aged %d", p.Name, p.Age))
		rep.HouseLog = append(rep.HouseLog, court.LogEvent{Kind: "died", PersonID: pid})
		switch pid {
		case h.HeadID:
			if sp := s.People[h.SpouseID]; sp != nil && sp.Alive {
				rep.HouseLog = append(rep.HouseLog, court.LogEvent{Kind: "widowed", PersonID: h.SpouseID})
				h.SpouseStatus = people.SpouseStatusWidow
			}
		case h.SpouseID:
			h.SpouseStatus = people.SpouseStatusWidow
			if head := s.People[h.HeadID]; head != nil && head.Alive {
				rep.HouseLog = append(rep.HouseLog, court.LogEvent{Kind: "widowed", PersonID: h.HeadID})
			}
		}
	}

	// One birth roll when a live spouse is present.
	head := s.Head()
	spouse := s.Spouse()
	if head == nil || !head.Alive || spouse == nil || !spouse.Alive {
		return
	}
	mother, father := spouse, head
	if mother.Sex != people.Female {
		mother, father = head, spouse
	}
	if mother.Age < 16 || mother.Age > 48 || father.Age < 16 || father.Age > 70 {
		return
	}
	trait := clampInt(mother.Traits.Fertility, 1, 5)
	p := householdBirthRate(trait, mother.Age) * (1.0 + s.Flags.Modifiers.BirthBonus)
	if !r.Fork("birth").Bool(math.Min(p, 0.65)) {
		return
	}
	child := s.registerHouseholdChild(r, mother, father)
	rep.HouseholdBirths = append(rep.HouseholdBirths, fmt.Sprintf("%s was born", child.Name))
	rep.HouseLog = append(rep.HouseLog, court.LogEvent{Kind: "born", PersonID: child.ID})
}

// householdBirthRate mirrors the demography fertility curve for the player
// couple.
func householdBirthRate(trait, motherAge int) float64 {
	base := [6]float64{0, 0.12, 0.18, 0.24, 0.30, 0.36}[trait]
	switch {
	case motherAge <= 30:
		return base
	case motherAge <= 35:
		return base * (1.0 - float64(motherAge-30)/5*0.75)
	case motherAge <= 45:
		return base * (0.25 - float64(motherAge-35)/10*0.18)
	default:
		return base * 0.04
	}
}

func (s *RunState) registerHouseholdChild(r *rng.Rng, mother, father *people.Person) *people.Person {
	id := s.Flags.IDAlloc.Alloc(&s.Registry)
	sex := people.Male
	if r.Fork("birth.sex." + id).Bool(0.5) {
		sex = people.Female
	}
	child := &people.Person{
		ID:      id,
		Name:    people.NameFor(id, sex),
		Sex:     sex,
		Alive:   true,
		HouseID: s.PlayerHouseID,
		Traits: people.Traits{
			Stewardship: clampInt((mother.Traits.Stewardship+father.Traits.Stewardship)/2, 1, 5),
			Martial:     clampInt((mother.Traits.Martial+father.Traits.Martial)/2, 1, 5),
			Diplomacy:   clampInt((mother.Traits.Diplomacy+father.Traits.Diplomacy)/2, 1, 5),
			Discipline:  clampInt((mother.Traits.Discipline+father.Traits.Discipline)/2, 1, 5),
			Fertility:   clampInt((mother.Traits.Fertility+father.Traits.Fertility)/2, 1, 5),
		},
	}
	s.UpsertPerson(child)
	s.AddParent(mother.ID, id)
	s.AddParent(father.ID, id)
	if h := s.PlayerHouse(); h != nil {
		h.ChildIDs = append(h.ChildIDs, id)
	}
	return s.People[id]
}

// runWorldDemography runs fertility/marriage/mortality for the tiered world
// outside the player's court.
func (s *RunState) runWorldDemography(rep *TurnReport) {
	courtIDs := court.DeriveMemberIDs(&s.Registry)
	exclude := make(map[string]bool, len(courtIDs))
	for _, id := range courtIDs {
		exclude[id] = true
	}

	sets := s.computeTierSets(courtIDs)
	ctx := &demography.Context{
		Reg:          &s.Registry,
		Sets:         sets,
		Turn:         s.Turn,
		Year:         s.Year(),
		Cfg:          s.Tuning,
		Alloc:        &s.Flags.IDAlloc,
		Reservations: s.Flags.Reservations,
		Exclude:      exclude,
	}
	r := rng.New(s.Seed, StreamDemography, s.Turn, "")

	births := demography.Fertility(ctx, r)
	marriages := demography.Marriage(ctx, r)
	deaths := demography.Mortality(ctx, r)

	rep.WorldBirths = len(births)
	rep.WorldMarriages = len(marriages)
	rep.WorldDeaths = len(deaths)
	rep.World = append(rep.World, births...)
	rep.World = append(rep.World, marriages...)
	rep.World = append(rep.World, deaths...)
}

// computeTierSets classifies the world for this turn.
func (s *RunState) computeTierSets(courtIDs []string) tier.Sets {
	in := tier.Inputs{
		Reg:            &s.Registry,
		CourtMemberIDs: courtIDs,
		LocalNobleIDs:  s.Locals.NobleIDs,
		HouseCap:       s.Tuning.Tier1HouseCap,
		InstitutionCap: s.Tuning.Tier1InstitutionCap,
	}
	if s.Locals.LiegeID != "" {
		in.LiegeIDs = []string{s.Locals.LiegeID}
	}
	if s.Locals.ClergyID != "" {
		in.ClergyIDs = []string{s.Locals.ClergyID}
	}
	return tier.Compute(in)
}

// computeHeir applies male-preference primogeniture over the head's living
// children: eldest son first, eldest daughter only when no son lives.
func (s *RunState) computeHeir() string {
	head := s.Head()
	if head == nil {
		return ""
	}
	children := s.Children(head.ID)
	var sons, daughters []*people.Person
	for _, c := range children {
		if !c.Alive {
			continue
		}
		if c.Sex == people.Female {
			daughters = append(daughters, c)
		} else {
			sons = append(sons, c)
		}
	}
	eldest := func(ps []*people.Person) string {
		if len(ps) == 0 {
			return ""
		}
		sort.Slice(ps, func(i, j int) bool {
			if ps[i].Age != ps[j].Age {
				return ps[i].Age > ps[j].Age
			}
			return ps[i].ID < ps[j].ID
		})
		return ps[0].ID
	}
	if id := eldest(sons); id != "" {
		return id
	}
	return eldest(daughters)
}
