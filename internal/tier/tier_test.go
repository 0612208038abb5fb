package tier

import (
	"fmt"
	"testing"

	"github.com/talgya/demesne/internal/people"
)

func worldFixture(extraHouses int) *people.Registry {
	var r people.Registry
	r.PlayerHouseID = "h_player"
	r.UpsertHouse(&people.House{ID: "h_player", HeadID: "p_head", SpouseID: "p_spouse", ChildIDs: []string{"p_c1"}})
	r.UpsertPerson(&people.Person{ID: "p_head", Sex: people.Male, Age: 34, Alive: true, HouseID: "h_player"})
	r.UpsertPerson(&people.Person{ID: "p_spouse", Sex: people.Female, Age: 30, Alive: true, HouseID: "h_player"})
	r.UpsertPerson(&people.Person{ID: "p_c1", Sex: people.Male, Age: 10, Alive: true, HouseID: "h_player"})
	r.UpsertPerson(&people.Person{ID: "p_liege", Sex: people.Male, Age: 50, Alive: true})

	r.UpsertInstitution(&people.Institution{ID: "i_parish1", Type: people.InstitutionParish, PatronHouseID: "h_player"})
	r.UpsertInstitution(&people.Institution{ID: "i_parish0", Type: people.InstitutionParish, PatronHouseID: "h_other"})
	for i := 0; i < 30; i++ {
		r.UpsertInstitution(&people.Institution{ID: fmt.Sprintf("i_abbey%02d", i), Type: people.InstitutionAbbey})
	}

	for i := 0; i < extraHouses; i++ {
		hid := fmt.Sprintf("h_x%03d", i)
		pid := fmt.Sprintf("p_x%03d", i)
		r.UpsertPerson(&people.Person{ID: pid, Sex: people.Male, Age: 40, Alive: true, HouseID: hid})
		r.UpsertHouse(&people.House{ID: hid, HeadID: pid})
	}
	return &r
}

func TestTier0Membership(t *testing.T) {
	reg := worldFixture(5)
	sets := Compute(Inputs{
		Reg:            reg,
		CourtMemberIDs: []string{"p_head", "p_spouse", "p_c1"},
		LiegeIDs:       []string{"p_liege"},
	})

	want := map[string]bool{"p_head": true, "p_spouse": true, "p_c1": true, "p_liege": true}
	if len(sets.Tier0.PersonIDs) != len(want) {
		t.Fatalf("tier0 people = %v", sets.Tier0.PersonIDs)
	}
	for _, id := range sets.Tier0.PersonIDs {
		if !want[id] {
			t.Fatalf("unexpected tier0 person %s", id)
		}
	}
	if len(sets.Tier0.HouseIDs) != 1 || sets.Tier0.HouseIDs[0] != "h_player" {
		t.Fatalf("tier0 houses = %v", sets.Tier0.HouseIDs)
	}
	// Player-patron parish, not the lexicographically smaller foreign parish.
	if len(sets.Tier0.InstitutionIDs) != 1 || sets.Tier0.InstitutionIDs[0] != "i_parish1" {
		t.Fatalf("tier0 institutions = %v", sets.Tier0.InstitutionIDs)
	}
}

func TestTier1Caps(t *testing.T) {
	reg := worldFixture(200)
	sets := Compute(Inputs{Reg: reg, CourtMemberIDs: []string{"p_head"}})

	if got := len(sets.Tier1.HouseIDs); got != 160 {
		t.Fatalf("tier1 house count = %d, want 160", got)
	}
	if got := len(sets.Tier1.InstitutionIDs); got != 18 {
		t.Fatalf("tier1 institution count = %d, want 18", got)
	}

	// Override above the hard max clamps to 24.
	sets = Compute(Inputs{Reg: reg, CourtMemberIDs: []string{"p_head"}, InstitutionCap: 99})
	if got := len(sets.Tier1.InstitutionIDs); got != 24 {
		t.Fatalf("tier1 institution count = %d, want hard max 24", got)
	}
}

func TestTiersAreDisjointAndComplete(t *testing.T) {
	reg := worldFixture(200)
	sets := Compute(Inputs{Reg: reg, CourtMemberIDs: []string{"p_head", "p_spouse"}})

	seen := map[string]int{}
	for _, id := range sets.Tier0.HouseIDs {
		seen[id]++
	}
	for _, id := range sets.Tier1.HouseIDs {
		seen[id]++
	}
	for _, id := range sets.Tier2.HouseIDs {
		seen[id]++
	}
	if len(seen) != len(reg.Houses) {
		t.Fatalf("classified %d houses, registry has %d", len(seen), len(reg.Houses))
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("house %s classified %d times", id, n)
		}
	}
}

func TestComputeIsStable(t *testing.T) {
	reg := worldFixture(50)
	in := Inputs{Reg: reg, CourtMemberIDs: []string{"p_head", "p_spouse", "p_c1"}, LiegeIDs: []string{"p_liege"}}
	a := Compute(in)
	b := Compute(in)
	if fmt.Sprintf("%+v", a) != fmt.Sprintf("%+v", b) {
		t.Fatal("tier computation not stable across calls")
	}
}
