// Package court derives the player's court roster and consumption figures
// from the house record and the kinship graph. Relationship labels are
// rebased against the current head on every call; the house's child list is
// a court view, not strict parentage, and after a succession it can hold the
// new head's siblings.
package court

import (
	"sort"

	"github.com/talgya/demesne/internal/people"
)

// RosterVersion tags the roster shape for downstream consumers.
const RosterVersion = "court_roster_v1"

// LogEvent is a same-turn house event consulted during roster building.
// A "widowed" event takes precedence over alive-flag comparison so the
// roster is correct within the turn the death occurs.
type LogEvent struct {
	Kind     string `json:"kind"` // "widowed", "died", "born", "succession"
	PersonID string `json:"person_id"`
}

// Row is one court member in the derived roster.
type Row struct {
	PersonID    string   `json:"person_id"`
	Name        string   `json:"name"`
	Age         int      `json:"age"`
	Role        string   `json:"role"` // head, spouse, child, officer, married_in_spouse
	OfficerRole string   `json:"officer_role,omitempty"`
	Relation    string   `json:"relation"` // rebased relative to the current head
	Badges      []string `json:"badges,omitempty"`
}

// Roster is the versioned court view.
type Roster struct {
	Version   string `json:"version"`
	Rows      []Row  `json:"rows"`
	Headcount int    `json:"headcount"` // living members only
}

// DeriveMemberIDs returns the court membership in its fixed order: head,
// spouse, children (age-desc then id), officers (steward, clerk, marshal),
// extras (id-asc). Exclusions apply to everyone except the current head and
// spouse, which are never excludable.
func DeriveMemberIDs(reg *people.Registry) []string {
	h := reg.PlayerHouse()
	if h == nil {
		return nil
	}
	var out []string
	seen := map[string]bool{}
	add := func(id string, excludable bool) {
		if id == "" || seen[id] {
			return
		}
		if excludable && h.Excluded(id) {
			return
		}
		if reg.People[id] == nil {
			return
		}
		seen[id] = true
		out = append(out, id)
	}

	add(h.HeadID, false)
	add(h.SpouseID, false)

	children := append([]string(nil), h.ChildIDs...)
	sort.Slice(children, func(i, j int) bool {
		pi, pj := reg.People[children[i]], reg.People[children[j]]
		ai, aj := -1, -1
		if pi != nil {
			ai = pi.Age
		}
		if pj != nil {
			aj = pj.Age
		}
		if ai != aj {
			return ai > aj
		}
		return children[i] < children[j]
	})
	for _, id := range children {
		add(id, true)
	}
	for _, role := range people.OfficerRoles {
		add(h.Officers[role], true)
	}
	extras := append([]string(nil), h.CourtExtras...)
	sort.Strings(extras)
	for _, id := range extras {
		add(id, true)
	}
	return out
}

// BuildRoster produces the versioned roster with status badges and rebased
// relation labels. Labels are computed fresh from the kinship graph, never
// cached.
func BuildRoster(reg *people.Registry, houseLog []LogEvent) Roster {
	h := reg.PlayerHouse()
	roster := Roster{Version: RosterVersion}
	if h == nil {
		return roster
	}

	widowed := map[string]bool{}
	for _, ev := range houseLog {
		if ev.Kind == "widowed" {
			widowed[ev.PersonID] = true
		}
	}

	childSet := map[string]bool{}
	for _, id := range h.ChildIDs {
		childSet[id] = true
	}
	officerOf := map[string]string{}
	for _, role := range people.OfficerRoles {
		if id := h.Officers[role]; id != "" {
			officerOf[id] = role
		}
	}

	for _, id := range DeriveMemberIDs(reg) {
		p := reg.People[id]
		row := Row{
			PersonID: id,
			Name:     p.Name,
			Age:      p.Age,
			Relation: RelationToHead(reg, h.HeadID, id),
		}
		switch {
		case id == h.HeadID:
			row.Role = "head"
		case id == h.SpouseID:
			row.Role = "spouse"
		case childSet[id]:
			row.Role = "child"
		case officerOf[id] != "":
			row.Role = "officer"
			row.OfficerRole = officerOf[id]
		default:
			row.Role = "married_in_spouse"
		}

		if !p.Alive {
			row.Badges = append(row.Badges, "deceased")
		}
		if isWidowed(reg, h, id, widowed) {
			if p.Sex == people.Female {
				row.Badges = append(row.Badges, "widow")
			} else {
				row.Badges = append(row.Badges, "widower")
			}
		}
		if id == h.HeirID {
			row.Badges = append(row.Badges, "heir")
		}

		roster.Rows = append(roster.Rows, row)
		if p.Alive {
			roster.Headcount++
		}
	}
	return roster
}

// isWidowed prefers the same-turn house log, falling back to comparing the
// head/spouse alive flags.
func isWidowed(reg *people.Registry, h *people.House, id string, logged map[string]bool) bool {
	if logged[id] {
		return true
	}
	if id == h.SpouseID && h.SpouseStatus == people.SpouseStatusWidow {
		return true
	}
	// Flag comparison: surviving half of the head/spouse pair.
	if id == h.SpouseID && h.HeadID != "" {
		if head := reg.People[h.HeadID]; head != nil && !head.Alive {
			if sp := reg.People[id]; sp != nil && sp.Alive {
				return true
			}
		}
	}
	if id == h.HeadID && h.SpouseID != "" {
		if sp := reg.People[h.SpouseID]; sp != nil && !sp.Alive {
			if head := reg.People[id]; head != nil && head.Alive {
				return true
			}
		}
	}
	return false
}

// RelationToHead labels id relative to headID using the kinship graph.
func RelationToHead(reg *people.Registry, headID, id string) string {
	if id == headID {
		return "head"
	}
	if sid := reg.SpouseID(headID); sid == id {
		return "spouse"
	}
	for _, p := range reg.Parents(headID) {
		if p.ID == id {
			return "parent"
		}
	}
	for _, c := range reg.Children(headID) {
		if c.ID == id {
			return "child"
		}
		for _, gc := range reg.Children(c.ID) {
			if gc.ID == id {
				return "grandchild"
			}
		}
	}
	for _, s := range reg.Siblings(headID) {
		if s.ID == id {
			return "sibling"
		}
	}
	return "kin"
}

// ConsumptionBushels is the court's grain draw for one turn:
// floor(living headcount × bushels/person/year × turn years), floored at 0.
func ConsumptionBushels(reg *people.Registry, bushelsPerPersonYear float64, turnYears int, houseLog []LogEvent) int {
	roster := BuildRoster(reg, houseLog)
	n := int(float64(roster.Headcount) * bushelsPerPersonYear * float64(turnYears))
	if n < 0 {
		n = 0
	}
	return n
}
