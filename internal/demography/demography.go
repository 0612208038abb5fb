// Package demography runs per-turn fertility, marriage formation, and
// mortality for the broader noble population. It operates only over tier0/1
// actors, so its cost is bounded by the tier caps rather than world size.
// Every draw is keyed by year and the person ids involved, so changing one
// family's outcome never perturbs another's.
package demography

import (
	"fmt"
	"math"
	"sort"

	"github.com/talgya/demesne/internal/people"
	"github.com/talgya/demesne/internal/rng"
	"github.com/talgya/demesne/internal/tier"
	"github.com/talgya/demesne/internal/tuning"
)

// Context carries the shared inputs for one demography pass.
type Context struct {
	Reg   *people.Registry
	Sets  tier.Sets
	Turn  int
	Year  int
	Cfg   tuning.Config
	Alloc *people.IDAlloc
	// Reservations maps person id → expiry turn. A person with an active
	// reservation is locked out of marriage formation until it lapses.
	Reservations map[string]int
	// Exclude removes ids from the eligible population. The turn engine uses
	// it to keep the player's court out of world demography, since the
	// household phase rolls those persons itself.
	Exclude map[string]bool
}

// Event is one demographic outcome, reported up to the turn log.
type Event struct {
	Kind     string `json:"kind"` // "birth", "marriage", "death"
	PersonID string `json:"person_id"`
	OtherID  string `json:"other_id,omitempty"`
	Year     int    `json:"year"`
	Note     string `json:"note,omitempty"`
}

func (c *Context) reserved(pid string) bool {
	exp, ok := c.Reservations[pid]
	return ok && exp > c.Turn
}

// eligibleSet is the tier0/1 population: tiered persons plus every member of
// a tier0/1 house.
func (c *Context) eligibleSet() map[string]bool {
	set := map[string]bool{}
	for _, pid := range c.Sets.SimulatedPersonIDs(c.Reg) {
		if !c.Exclude[pid] {
			set[pid] = true
		}
	}
	return set
}

// Per-turn birth base rate indexed by the mother's fertility trait (1–5).
var birthBaseRate = [6]float64{0, 0.12, 0.18, 0.24, 0.30, 0.36}

// fertilityAgeFactor decays birth probability with the mother's age: flat to
// 30, down to ~0.25 by 35, ~0.07 by 45, trailing to ~0.01 at 48.
func fertilityAgeFactor(age int) float64 {
	a := float64(age)
	switch {
	case age < 16 || age > 48:
		return 0
	case age <= 30:
		return 1.0
	case age <= 35:
		return 1.0 - (a-30)/5*0.75
	case age <= 45:
		return 0.25 - (a-35)/10*0.18
	default:
		return 0.07 - (a-45)/3*0.06
	}
}

// Fertility rolls one birth chance per eligible couple and registers any
// children. Returns the birth events in couple order.
func Fertility(c *Context, r *rng.Rng) []Event {
	eligible := c.eligibleSet()

	type couple struct{ a, b string }
	var couples []couple
	seen := map[string]bool{}
	for _, e := range c.Reg.Edges {
		if e.Kind != people.SpouseOf {
			continue
		}
		pa, pb := c.Reg.People[e.A], c.Reg.People[e.B]
		if pa == nil || pb == nil || !pa.Alive || !pb.Alive {
			continue
		}
		if !eligible[e.A] || !eligible[e.B] {
			continue
		}
		k := e.A + "|" + e.B
		if seen[k] {
			continue
		}
		seen[k] = true
		couples = append(couples, couple{e.A, e.B})
	}
	sort.Slice(couples, func(i, j int) bool {
		if couples[i].a != couples[j].a {
			return couples[i].a < couples[j].a
		}
		return couples[i].b < couples[j].b
	})

	var events []Event
	for _, cp := range couples {
		mother, father := identifyMother(c.Reg.People[cp.a], c.Reg.People[cp.b])
		if mother.Age < 16 || mother.Age > 48 || father.Age < 16 || father.Age > 70 {
			continue
		}
		trait := mother.Traits.Fertility
		if trait < 1 {
			trait = 1
		}
		if trait > 5 {
			trait = 5
		}
		p := birthBaseRate[trait] * fertilityAgeFactor(mother.Age) * c.Cfg.FertilityMultiplier
		p = clamp01(p, 0.65)
		draw := r.Fork(fmt.Sprintf("birth.%d.%s.%s", c.Year, mother.ID, father.ID))
		if draw.Next() >= p {
			continue
		}
		child := c.registerChild(r, mother, father)
		events = append(events, Event{
			Kind:     "birth",
			PersonID: child.ID,
			OtherID:  mother.ID,
			Year:     c.Year,
			Note:     fmt.Sprintf("%s born to %s and %s", child.Name, mother.Name, father.Name),
		})
	}
	return events
}

// identifyMother picks mother/father by recorded sex; when sex is unknown the
// lexicographically smaller id stands in as the mother.
func identifyMother(a, b *people.Person) (mother, father *people.Person) {
	switch {
	case a.Sex == people.Female && b.Sex != people.Female:
		return a, b
	case b.Sex == people.Female && a.Sex != people.Female:
		return b, a
	case a.ID < b.ID:
		return a, b
	default:
		return b, a
	}
}

func (c *Context) registerChild(r *rng.Rng, mother, father *people.Person) *people.Person {
	id := c.Alloc.Alloc(c.Reg)
	sex := people.Male
	if r.Fork("birth.sex." + id).Bool(0.5) {
		sex = people.Female
	}
	traitRng := r.Fork("birth.traits." + id)
	child := &people.Person{
		ID:    id,
		Name:  people.NameFor(id, sex),
		Sex:   sex,
		Age:   0,
		Alive: true,
		Traits: people.Traits{
			Stewardship: inheritTrait(traitRng, mother.Traits.Stewardship, father.Traits.Stewardship),
			Martial:     inheritTrait(traitRng, mother.Traits.Martial, father.Traits.Martial),
			Diplomacy:   inheritTrait(traitRng, mother.Traits.Diplomacy, father.Traits.Diplomacy),
			Discipline:  inheritTrait(traitRng, mother.Traits.Discipline, father.Traits.Discipline),
			Fertility:   inheritTrait(traitRng, mother.Traits.Fertility, father.Traits.Fertility),
		},
	}

	// House: the father's house when known, else the mother's.
	houseID := father.HouseID
	if houseID == "" {
		houseID = mother.HouseID
	}
	child.HouseID = houseID
	c.Reg.UpsertPerson(child)

	// Mother's edge before father's; order is part of the serialized shape.
	c.Reg.AddParent(mother.ID, id)
	c.Reg.AddParent(father.ID, id)

	if h := c.Reg.Houses[houseID]; h != nil {
		h.ChildIDs = append(h.ChildIDs, id)
	}
	return c.Reg.People[id]
}

func inheritTrait(r *rng.Rng, m, f int) int {
	v := (m+f)/2 + r.Int(-1, 1)
	if v < 1 {
		v = 1
	}
	if v > 5 {
		v = 5
	}
	return v
}

// Marriage forms new couples with a greedy, single-pass, order-deterministic
// matching: oldest unmatched men first, each drawing once from a bounded
// candidate pool. Not globally optimal, fully reproducible.
func Marriage(c *Context, r *rng.Rng) []Event {
	eligible := c.eligibleSet()

	var males, females []*people.Person
	for _, pid := range sortedIDs(eligible) {
		p := c.Reg.People[pid]
		if p == nil || !p.Alive || p.Sex == "" {
			continue
		}
		if p.Age < 16 || p.Age > 75 {
			continue
		}
		if c.Reg.SpouseID(pid) != "" || c.reserved(pid) {
			continue
		}
		if p.Sex == people.Male {
			males = append(males, p)
		} else {
			females = append(females, p)
		}
	}
	olderFirst(males)
	olderFirst(females)

	houseCount := c.Sets.SimulatedHouseCount()
	capPairs := max(50, houseCount/2)
	floorPairs := max(1, houseCount*5/100)
	maxPairs := min(len(males), len(females))
	target := int(float64(maxPairs) * c.Cfg.MarriageRate)
	if target < floorPairs {
		target = floorPairs
	}
	if target > capPairs {
		target = capPairs
	}
	if target > maxPairs {
		target = maxPairs
	}

	matched := map[string]bool{}
	var events []Event
	for _, m := range males {
		if len(events) >= target {
			break
		}
		pool := candidatePool(c, m, females, matched, true)
		if len(pool) == 0 {
			pool = candidatePool(c, m, females, matched, false)
		}
		if len(pool) == 0 {
			continue
		}
		draw := r.Fork(fmt.Sprintf("marriage.pick.%d.%s", c.Year, m.ID))
		f := pool[draw.Int(0, len(pool)-1)]

		c.Reg.AddSpouses(m.ID, f.ID)
		m.Married, f.Married = true, true
		matched[m.ID], matched[f.ID] = true, true
		events = append(events, Event{
			Kind:     "marriage",
			PersonID: m.ID,
			OtherID:  f.ID,
			Year:     c.Year,
			Note:     fmt.Sprintf("%s wed %s", m.Name, f.Name),
		})
	}
	return events
}

// candidatePool builds the bounded (≤24) ordered pool of compatible brides
// for m. Same-house candidates are skipped when avoidable.
func candidatePool(c *Context, m *people.Person, females []*people.Person, matched map[string]bool, avoidSameHouse bool) []*people.Person {
	const poolCap = 24
	var pool []*people.Person
	for _, f := range females {
		if len(pool) >= poolCap {
			break
		}
		if matched[f.ID] {
			continue
		}
		if f.Age < 15 || f.Age > 50 || m.Age < 15 || m.Age > 80 {
			continue
		}
		// Husband no more than 5 years younger nor 25 years older.
		if m.Age < f.Age-5 || m.Age > f.Age+25 {
			continue
		}
		if avoidSameHouse && m.HouseID != "" && m.HouseID == f.HouseID {
			continue
		}
		if c.Reg.CloseKin(m.ID, f.ID) {
			continue
		}
		pool = append(pool, f)
	}
	return pool
}

// Mortality rolls a Gompertz-like hazard for every eligible living person.
// The dead stay registered; only the alive flag flips.
func Mortality(c *Context, r *rng.Rng) []Event {
	eligible := c.eligibleSet()

	var events []Event
	for _, pid := range sortedIDs(eligible) {
		p := c.Reg.People[pid]
		if p == nil || !p.Alive {
			continue
		}
		pDeath := TurnHazard(p.Age, c.Cfg.TurnYears) * c.Cfg.MortalityMultiplier
		pDeath = clamp01(pDeath, 0.95)
		if pDeath <= 0 {
			continue
		}
		draw := r.Fork(fmt.Sprintf("mortality.roll.%d.%s", c.Year, pid))
		if draw.Next() >= pDeath {
			continue
		}
		p.Alive = false
		events = append(events, Event{
			Kind:     "death",
			PersonID: pid,
			Year:     c.Year,
			Note:     fmt.Sprintf("%s died aged %d", p.Name, p.Age),
		})
	}
	return events
}

// TurnHazard converts the annual Gompertz hazard at age into a per-turn
// probability over turnYears. Zero below 16; annual hazard
// 0.001·e^((age−30)/12), capped at 0.95/year.
func TurnHazard(age, turnYears int) float64 {
	if age < 16 {
		return 0
	}
	annual := 0.001 * math.Exp(float64(age-30)/12.0)
	if annual > 0.95 {
		annual = 0.95
	}
	return 1 - math.Pow(1-annual, float64(turnYears))
}

func clamp01(v, hi float64) float64 {
	if v < 0 {
		return 0
	}
	if v > hi {
		return hi
	}
	return v
}

func olderFirst(ps []*people.Person) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].Age != ps[j].Age {
			return ps[i].Age > ps[j].Age
		}
		return ps[i].ID < ps[j].ID
	})
}

func sortedIDs(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
