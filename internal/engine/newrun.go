package engine

import (
	"fmt"

	"github.com/talgya/demesne/internal/people"
	"github.com/talgya/demesne/internal/rng"
	"github.com/talgya/demesne/internal/tuning"
	"github.com/talgya/demesne/internal/worldgen"
)

// NewRun builds the deterministic initial state for a seed. Identical seeds
// produce byte-identical serialized states.
func NewRun(seed string) *RunState {
	return NewRunWithTuning(seed, tuning.Defaults())
}

// NewRunWithTuning is NewRun with explicit tuning knobs.
func NewRunWithTuning(seed string, cfg tuning.Config) *RunState {
	cfg.Clamp()
	s := &RunState{
		Seed:   seed,
		Tuning: cfg,
		Manor: Manor{
			Population: 120,
			Farmers:    62,
			Builders:   8,
			Bushels:    5200,
			Coin:       60,
			Unrest:     10,
		},
		Household: Household{Energy: 3, MaxEnergy: 3},
	}

	r := rng.New(seed, StreamWorldgen, 0, "player")

	head := &people.Person{
		ID: "p_head", Sex: people.Male, Alive: true, Married: true,
		Age:    r.Fork("head.age").Int(28, 40),
		Traits: rollPlayerTraits(r.Fork("head.traits")),
	}
	head.Name = people.NameFor(head.ID, head.Sex)
	spouse := &people.Person{
		ID: "p_spouse", Sex: people.Female, Alive: true, Married: true,
		Age:    r.Fork("spouse.age").Int(24, head.Age),
		Traits: rollPlayerTraits(r.Fork("spouse.traits")),
	}
	spouse.Name = people.NameFor(spouse.ID, spouse.Sex)

	var children []*people.Person
	nKids := r.Fork("children").Int(1, 3)
	age := spouse.Age - 18
	for k := 0; k < nKids; k++ {
		if age < 0 {
			age = 0
		}
		cid := fmt.Sprintf("p_c%d", k+1)
		sex := people.Male
		if r.Fork(fmt.Sprintf("child.%d.sex", k)).Bool(0.5) {
			sex = people.Female
		}
		children = append(children, &people.Person{
			ID: cid, Name: people.NameFor(cid, sex), Sex: sex, Age: age, Alive: true,
			Traits: rollPlayerTraits(r.Fork(fmt.Sprintf("child.%d.traits", k))),
		})
		age -= r.Fork(fmt.Sprintf("child.%d.gap", k)).Int(2, 4)
	}

	locals := []*people.Person{
		{ID: "p_liege", Name: "Count " + people.NameFor("p_liege", people.Male), Sex: people.Male,
			Age: r.Fork("liege.age").Int(35, 60), Alive: true},
		{ID: "p_clergy", Name: "Father " + people.NameFor("p_clergy", people.Male), Sex: people.Male,
			Age: r.Fork("clergy.age").Int(30, 65), Alive: true},
	}
	s.Locals.LiegeID = "p_liege"
	s.Locals.ClergyID = "p_clergy"
	for i := 1; i <= 3; i++ {
		pid := fmt.Sprintf("p_noble%d", i)
		locals = append(locals, &people.Person{
			ID: pid, Name: "Sir " + people.NameFor(pid, people.Male), Sex: people.Male,
			Age: r.Fork(fmt.Sprintf("noble.%d.age", i)).Int(25, 55), Alive: true,
		})
		s.Locals.NobleIDs = append(s.Locals.NobleIDs, pid)
	}

	s.EnsurePeopleFirst(people.LegacyHousehold{
		Head: head, Spouse: spouse, SpouseStatus: people.SpouseStatusSpouse,
		Children: children, Locals: locals,
	})
	if h := s.PlayerHouse(); h != nil {
		h.Name = people.HouseNameFor(seed)
		h.Tier = people.TierKnight
	}

	worldgen.Seed(&s.Registry, seed, worldgen.DefaultHouseCount)
	s.Flags.IDAlloc = people.InferIDAlloc(&s.Registry)
	return s
}

func rollPlayerTraits(r *rng.Rng) people.Traits {
	return people.Traits{
		Stewardship: r.Int(2, 5),
		Martial:     r.Int(1, 5),
		Diplomacy:   r.Int(1, 5),
		Discipline:  r.Int(1, 5),
		Fertility:   r.Int(2, 5),
	}
}
