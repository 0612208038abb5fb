package demography

import (
	"fmt"
	"testing"

	"github.com/talgya/demesne/internal/people"
	"github.com/talgya/demesne/internal/rng"
	"github.com/talgya/demesne/internal/tier"
	"github.com/talgya/demesne/internal/tuning"
)

func demographyFixture(nCouples, nSingles int) *Context {
	var r people.Registry
	r.PlayerHouseID = "h_player"
	r.UpsertHouse(&people.House{ID: "h_player", HeadID: "p_1"})

	id := 1
	next := func() string { s := fmt.Sprintf("p_%d", id); id++; return s }

	for i := 0; i < nCouples; i++ {
		hid := fmt.Sprintf("h_c%03d", i)
		m := &people.Person{ID: next(), Sex: people.Male, Age: 28, Alive: true, Married: true, HouseID: hid,
			Traits: people.Traits{Stewardship: 3, Martial: 3, Diplomacy: 3, Discipline: 3, Fertility: 4}}
		f := &people.Person{ID: next(), Sex: people.Female, Age: 25, Alive: true, Married: true, HouseID: hid,
			Traits: people.Traits{Stewardship: 3, Martial: 3, Diplomacy: 3, Discipline: 3, Fertility: 4}}
		r.UpsertPerson(m)
		r.UpsertPerson(f)
		r.UpsertHouse(&people.House{ID: hid, HeadID: m.ID, SpouseID: f.ID})
		r.AddSpouses(m.ID, f.ID)
	}
	for i := 0; i < nSingles; i++ {
		hid := fmt.Sprintf("h_s%03d", i)
		sex := people.Male
		if i%2 == 1 {
			sex = people.Female
		}
		p := &people.Person{ID: next(), Sex: sex, Age: 20 + i%20, Alive: true, HouseID: hid,
			Traits: people.Traits{Stewardship: 3, Martial: 3, Diplomacy: 3, Discipline: 3, Fertility: 3}}
		r.UpsertPerson(p)
		r.UpsertHouse(&people.House{ID: hid, HeadID: p.ID})
	}

	sets := tier.Compute(tier.Inputs{Reg: &r, CourtMemberIDs: []string{"p_1"}})
	alloc := people.InferIDAlloc(&r)
	return &Context{
		Reg:          &r,
		Sets:         sets,
		Turn:         2,
		Year:         1156,
		Cfg:          tuning.Defaults(),
		Alloc:        &alloc,
		Reservations: map[string]int{},
	}
}

func TestFertilityDeterministic(t *testing.T) {
	run := func() []Event {
		c := demographyFixture(20, 0)
		return Fertility(c, rng.New("seed_f", "demography", c.Turn, ""))
	}
	a, b := run(), run()
	if len(a) != len(b) {
		t.Fatalf("birth counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("event %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestFertilityRegistersLineage(t *testing.T) {
	c := demographyFixture(40, 0)
	events := Fertility(c, rng.New("seed_f2", "demography", c.Turn, ""))
	if len(events) == 0 {
		t.Fatal("expected at least one birth across 40 fertile couples")
	}
	for _, ev := range events {
		child := c.Reg.People[ev.PersonID]
		if child == nil || !child.Alive || child.Age != 0 {
			t.Fatalf("child record bad: %+v", child)
		}
		if child.Name == "" || child.Sex == "" {
			t.Fatalf("child missing name/sex: %+v", child)
		}
		parents := c.Reg.Parents(child.ID)
		if len(parents) != 2 {
			t.Fatalf("child %s has %d parents", child.ID, len(parents))
		}
		h := c.Reg.Houses[child.HouseID]
		if h == nil {
			t.Fatalf("child %s not house-addressable", child.ID)
		}
		found := false
		for _, cid := range h.ChildIDs {
			if cid == child.ID {
				found = true
			}
		}
		if !found {
			t.Fatalf("child %s not appended to house %s", child.ID, h.ID)
		}
	}
}

func TestFertilityAgeBands(t *testing.T) {
	c := demographyFixture(1, 0)
	// Push the mother out of the fertile band.
	for _, p := range c.Reg.People {
		if p.Sex == people.Female {
			p.Age = 52
		}
	}
	if events := Fertility(c, rng.New("s", "demography", c.Turn, "")); len(events) != 0 {
		t.Fatalf("birth from 52-year-old mother: %+v", events)
	}
}

func TestMarriageGreedyAndExclusive(t *testing.T) {
	c := demographyFixture(0, 40)
	events := Marriage(c, rng.New("seed_m", "demography", c.Turn, ""))
	if len(events) == 0 {
		t.Fatal("expected marriages among 40 eligible singles")
	}
	seen := map[string]bool{}
	for _, ev := range events {
		for _, pid := range []string{ev.PersonID, ev.OtherID} {
			if seen[pid] {
				t.Fatalf("%s married twice in one pass", pid)
			}
			seen[pid] = true
			if !c.Reg.People[pid].Married {
				t.Fatalf("%s not flagged married", pid)
			}
		}
		if c.Reg.SpouseID(ev.PersonID) != ev.OtherID {
			t.Fatal("spouse edge missing after marriage")
		}
	}
}

func TestMarriageRespectsReservations(t *testing.T) {
	c := demographyFixture(0, 10)
	// Reserve every eligible woman beyond the current turn.
	for _, p := range c.Reg.People {
		if p.Sex == people.Female {
			c.Reservations[p.ID] = c.Turn + 2
		}
	}
	if events := Marriage(c, rng.New("seed_m2", "demography", c.Turn, "")); len(events) != 0 {
		t.Fatalf("reserved persons were matched: %+v", events)
	}

	// Lapsed reservations no longer lock.
	for pid := range c.Reservations {
		c.Reservations[pid] = c.Turn
	}
	if events := Marriage(c, rng.New("seed_m2", "demography", c.Turn, "")); len(events) == 0 {
		t.Fatal("lapsed reservations still locking candidates")
	}
}

func TestMarriageVetoesCloseKin(t *testing.T) {
	var r people.Registry
	r.PlayerHouseID = "h_player"
	r.UpsertHouse(&people.House{ID: "h_player", HeadID: "p_dad"})
	r.UpsertPerson(&people.Person{ID: "p_dad", Sex: people.Male, Age: 55, Alive: true, HouseID: "h_player"})
	r.UpsertPerson(&people.Person{ID: "p_son", Sex: people.Male, Age: 24, Alive: true, HouseID: "h_a"})
	r.UpsertPerson(&people.Person{ID: "p_sis", Sex: people.Female, Age: 22, Alive: true, HouseID: "h_b"})
	r.UpsertHouse(&people.House{ID: "h_a", HeadID: "p_son"})
	r.UpsertHouse(&people.House{ID: "h_b", HeadID: "p_sis"})
	r.AddParent("p_dad", "p_son")
	r.AddParent("p_dad", "p_sis")

	sets := tier.Compute(tier.Inputs{Reg: &r, CourtMemberIDs: []string{"p_dad"}})
	alloc := people.InferIDAlloc(&r)
	c := &Context{Reg: &r, Sets: sets, Turn: 0, Year: 1150, Cfg: tuning.Defaults(), Alloc: &alloc, Reservations: map[string]int{}}

	for _, ev := range Marriage(c, rng.New("kin", "demography", 0, "")) {
		pair := map[string]bool{ev.PersonID: true, ev.OtherID: true}
		if pair["p_son"] && pair["p_sis"] {
			t.Fatal("siblings were matched")
		}
	}
}

func TestMortalityCurve(t *testing.T) {
	if TurnHazard(10, 3) != 0 {
		t.Fatal("children have no Gompertz hazard")
	}
	if y, o := TurnHazard(30, 3), TurnHazard(80, 3); y >= o {
		t.Fatalf("hazard not increasing with age: %v vs %v", y, o)
	}
	if h := TurnHazard(200, 3); h > 1 {
		t.Fatalf("hazard above 1: %v", h)
	}
}

func TestMortalityRetainsRecords(t *testing.T) {
	c := demographyFixture(0, 30)
	for _, p := range c.Reg.People {
		if p.ID != "p_1" {
			p.Age = 90
		}
	}
	before := len(c.Reg.People)
	events := Mortality(c, rng.New("seed_d", "demography", c.Turn, ""))
	if len(events) == 0 {
		t.Fatal("expected deaths among the very old")
	}
	if len(c.Reg.People) != before {
		t.Fatal("death deleted a person record")
	}
	for _, ev := range events {
		if c.Reg.People[ev.PersonID].Alive {
			t.Fatalf("%s reported dead but still alive", ev.PersonID)
		}
	}
}
