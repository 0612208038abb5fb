package court

import (
	"testing"

	"github.com/talgya/demesne/internal/people"
)

// threeGenFixture builds a household three generations deep: old head Walter
// with wife Maud, children Simon and Edith, and Simon's son Hugh listed in
// the court.
func threeGenFixture() *people.Registry {
	var r people.Registry
	r.PlayerHouseID = "h_player"
	r.UpsertPerson(&people.Person{ID: "p_walter", Name: "Walter", Sex: people.Male, Age: 61, Alive: true})
	r.UpsertPerson(&people.Person{ID: "p_maud", Name: "Maud", Sex: people.Female, Age: 57, Alive: true})
	r.UpsertPerson(&people.Person{ID: "p_simon", Name: "Simon", Sex: people.Male, Age: 33, Alive: true})
	r.UpsertPerson(&people.Person{ID: "p_edith", Name: "Edith", Sex: people.Female, Age: 29, Alive: true})
	r.UpsertPerson(&people.Person{ID: "p_hugh", Name: "Hugh", Sex: people.Male, Age: 8, Alive: true})
	r.UpsertPerson(&people.Person{ID: "p_steward", Name: "Odo", Sex: people.Male, Age: 45, Alive: true})
	r.AddSpouses("p_walter", "p_maud")
	r.AddParent("p_walter", "p_simon")
	r.AddParent("p_maud", "p_simon")
	r.AddParent("p_walter", "p_edith")
	r.AddParent("p_maud", "p_edith")
	r.AddParent("p_simon", "p_hugh")
	r.UpsertHouse(&people.House{
		ID:       "h_player",
		HeadID:   "p_walter",
		SpouseID: "p_maud",
		ChildIDs: []string{"p_simon", "p_edith", "p_hugh"},
		Officers: map[string]string{"steward": "p_steward"},
	})
	return &r
}

func TestDeriveMemberOrder(t *testing.T) {
	reg := threeGenFixture()
	got := DeriveMemberIDs(reg)
	want := []string{"p_walter", "p_maud", "p_simon", "p_edith", "p_hugh", "p_steward"}
	if len(got) != len(want) {
		t.Fatalf("members = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("member[%d] = %s, want %s (full: %v)", i, got[i], want[i], got)
		}
	}
}

func TestExclusionsNeverApplyToHeadOrSpouse(t *testing.T) {
	reg := threeGenFixture()
	h := reg.PlayerHouse()
	h.CourtExclude = []string{"p_walter", "p_maud", "p_edith"}
	got := DeriveMemberIDs(reg)
	if got[0] != "p_walter" || got[1] != "p_maud" {
		t.Fatalf("head/spouse excluded: %v", got)
	}
	for _, id := range got {
		if id == "p_edith" {
			t.Fatal("excluded child still in court")
		}
	}
}

func TestRolesRebaseAfterSuccession(t *testing.T) {
	reg := threeGenFixture()

	// Walter dies; Simon inherits. Edith stays listed as a household child.
	reg.People["p_walter"].Alive = false
	h := reg.PlayerHouse()
	h.HeadID = "p_simon"
	h.SpouseID = ""
	h.ChildIDs = []string{"p_edith", "p_hugh"}

	roster := BuildRoster(reg, nil)
	rel := map[string]string{}
	role := map[string]string{}
	for _, row := range roster.Rows {
		rel[row.PersonID] = row.Relation
		role[row.PersonID] = row.Role
	}

	// The canonical role vocabulary is unchanged...
	if role["p_edith"] != "child" || role["p_hugh"] != "child" {
		t.Fatalf("roster roles = %v", role)
	}
	// ...while the kinship relation is rebased against the new head.
	if rel["p_edith"] != "sibling" {
		t.Fatalf("p_edith relation = %q, want sibling", rel["p_edith"])
	}
	if rel["p_hugh"] != "child" {
		t.Fatalf("p_hugh relation = %q, want child", rel["p_hugh"])
	}
	if rel["p_simon"] != "head" {
		t.Fatalf("p_simon relation = %q", rel["p_simon"])
	}
}

func TestWidowDetection(t *testing.T) {
	reg := threeGenFixture()
	reg.People["p_walter"].Alive = false

	// Same-turn log event takes precedence.
	roster := BuildRoster(reg, []LogEvent{{Kind: "widowed", PersonID: "p_maud"}})
	var maud Row
	for _, row := range roster.Rows {
		if row.PersonID == "p_maud" {
			maud = row
		}
	}
	if !hasBadge(maud, "widow") {
		t.Fatalf("maud badges = %v", maud.Badges)
	}

	// Fallback path: no log, alive-flag comparison.
	roster = BuildRoster(reg, nil)
	for _, row := range roster.Rows {
		if row.PersonID == "p_maud" && !hasBadge(row, "widow") {
			t.Fatalf("fallback widow detection failed: %v", row.Badges)
		}
		if row.PersonID == "p_walter" && !hasBadge(row, "deceased") {
			t.Fatalf("deceased badge missing: %v", row.Badges)
		}
	}
}

func TestConsumption(t *testing.T) {
	reg := threeGenFixture()
	// 6 members, all alive: 6 × 12 × 3 = 216.
	if got := ConsumptionBushels(reg, 12, 3, nil); got != 216 {
		t.Fatalf("consumption = %d, want 216", got)
	}
	reg.People["p_steward"].Alive = false
	if got := ConsumptionBushels(reg, 12, 3, nil); got != 180 {
		t.Fatalf("consumption after death = %d, want 180", got)
	}
}

func hasBadge(r Row, b string) bool {
	for _, x := range r.Badges {
		if x == b {
			return true
		}
	}
	return false
}
