// Package tier classifies world actors into relevance tiers so per-turn
// simulation cost stays bounded regardless of world size. Tier0 is fully
// simulated, tier1 is a capped snapshot pool, tier2 exists only as ids.
// The sets are a per-turn derived view, recomputed from the registries each
// turn and never persisted as authoritative state.
package tier

import (
	"sort"

	"github.com/talgya/demesne/internal/people"
)

// ActorSet holds one tier's membership, id-sorted for stable iteration.
type ActorSet struct {
	PersonIDs      []string `json:"person_ids"`
	HouseIDs       []string `json:"house_ids"`
	InstitutionIDs []string `json:"institution_ids"`
}

// Sets are the three disjoint-by-tier actor sets.
type Sets struct {
	Tier0 ActorSet `json:"tier0"`
	Tier1 ActorSet `json:"tier1"`
	Tier2 ActorSet `json:"tier2"`
}

// Inputs feed one classification pass.
type Inputs struct {
	Reg            *people.Registry
	CourtMemberIDs []string // player court, from the court view derivation
	LiegeIDs       []string // liege-chain persons, wherever known
	ClergyIDs      []string // diocese/clergy persons, wherever known
	LocalNobleIDs  []string // locally-known nobles, prioritized into tier1

	HouseCap       int // tier1 house cap; <=0 means default 160
	InstitutionCap int // tier1 institution cap; <=0 means default 18, hard max 24
}

// Compute classifies every registered actor. Tier0 construction is
// rule-based and order-independent; tier1 fills capped pools in a stable
// priority order; tier2 is the pure complement.
func Compute(in Inputs) Sets {
	reg := in.Reg
	houseCap := in.HouseCap
	if houseCap <= 0 {
		houseCap = 160
	}
	instCap := in.InstitutionCap
	if instCap <= 0 {
		instCap = 18
	}
	if instCap > 24 {
		instCap = 24
	}

	t0People := map[string]bool{}
	t0Houses := map[string]bool{}
	t0Inst := map[string]bool{}

	if reg.PlayerHouseID != "" {
		t0Houses[reg.PlayerHouseID] = true
	}
	for _, id := range in.CourtMemberIDs {
		addPerson(reg, t0People, id)
	}
	for _, id := range in.LiegeIDs {
		addPerson(reg, t0People, id)
	}
	for _, id := range in.ClergyIDs {
		addPerson(reg, t0People, id)
	}

	// Player-local parish: the lexicographically first parish institution
	// whose patron is the player house.
	for _, iid := range reg.SortedInstitutionIDs() {
		inst := reg.Institutions[iid]
		if inst.Type == people.InstitutionParish && inst.PatronHouseID == reg.PlayerHouseID {
			t0Inst[iid] = true
			break
		}
	}

	// Every tier0 person pulls in their house.
	idx := reg.PersonHouseIndex()
	for pid := range t0People {
		if hid, ok := idx[pid]; ok {
			t0Houses[hid] = true
		} else if p := reg.People[pid]; p != nil && p.HouseID != "" {
			if reg.Houses[p.HouseID] != nil {
				t0Houses[p.HouseID] = true
			}
		}
	}

	// Tier1 houses: connected-to-tier0-or-local-noble houses first, then fill
	// by id order up to the cap.
	t1Houses := map[string]bool{}
	priority := map[string]bool{}
	for _, pid := range in.LocalNobleIDs {
		if hid, ok := idx[pid]; ok {
			priority[hid] = true
		}
	}
	for pid := range t0People {
		if hid, ok := idx[pid]; ok {
			priority[hid] = true
		}
	}
	allHouses := reg.SortedHouseIDs()
	for _, hid := range sortedKeys(priority) {
		if len(t1Houses) >= houseCap {
			break
		}
		if !t0Houses[hid] {
			t1Houses[hid] = true
		}
	}
	for _, hid := range allHouses {
		if len(t1Houses) >= houseCap {
			break
		}
		if !t0Houses[hid] && !t1Houses[hid] {
			t1Houses[hid] = true
		}
	}

	// Tier1 institutions: bishoprics and abbeys by id order.
	t1Inst := map[string]bool{}
	for _, iid := range reg.SortedInstitutionIDs() {
		if len(t1Inst) >= instCap {
			break
		}
		if t0Inst[iid] {
			continue
		}
		switch reg.Institutions[iid].Type {
		case people.InstitutionBishopric, people.InstitutionAbbey:
			t1Inst[iid] = true
		}
	}

	// Tier1 persons: members of tier1 houses not already in tier0.
	t1People := map[string]bool{}
	for hid := range t1Houses {
		for _, pid := range houseMemberIDs(reg.Houses[hid]) {
			if reg.People[pid] != nil && !t0People[pid] {
				t1People[pid] = true
			}
		}
	}

	// Tier2: everything else.
	t2People := map[string]bool{}
	for pid := range reg.People {
		if !t0People[pid] && !t1People[pid] {
			t2People[pid] = true
		}
	}
	t2Houses := map[string]bool{}
	for hid := range reg.Houses {
		if !t0Houses[hid] && !t1Houses[hid] {
			t2Houses[hid] = true
		}
	}
	t2Inst := map[string]bool{}
	for iid := range reg.Institutions {
		if !t0Inst[iid] && !t1Inst[iid] {
			t2Inst[iid] = true
		}
	}

	return Sets{
		Tier0: ActorSet{sortedKeys(t0People), sortedKeys(t0Houses), sortedKeys(t0Inst)},
		Tier1: ActorSet{sortedKeys(t1People), sortedKeys(t1Houses), sortedKeys(t1Inst)},
		Tier2: ActorSet{sortedKeys(t2People), sortedKeys(t2Houses), sortedKeys(t2Inst)},
	}
}

// SimulatedPersonIDs returns the union of tier0/tier1 persons plus every
// member of a tier0/tier1 house, id-sorted. This is the eligible population
// for demography.
func (s Sets) SimulatedPersonIDs(reg *people.Registry) []string {
	set := map[string]bool{}
	for _, pid := range s.Tier0.PersonIDs {
		set[pid] = true
	}
	for _, pid := range s.Tier1.PersonIDs {
		set[pid] = true
	}
	for _, hid := range append(append([]string(nil), s.Tier0.HouseIDs...), s.Tier1.HouseIDs...) {
		for _, pid := range houseMemberIDs(reg.Houses[hid]) {
			if reg.People[pid] != nil {
				set[pid] = true
			}
		}
	}
	return sortedKeys(set)
}

// SimulatedHouseCount is the number of tier0+tier1 houses; marriage targets
// scale with it.
func (s Sets) SimulatedHouseCount() int {
	return len(s.Tier0.HouseIDs) + len(s.Tier1.HouseIDs)
}

func addPerson(reg *people.Registry, set map[string]bool, id string) {
	if id != "" && reg.People[id] != nil {
		set[id] = true
	}
}

func houseMemberIDs(h *people.House) []string {
	if h == nil {
		return nil
	}
	out := []string{}
	if h.HeadID != "" {
		out = append(out, h.HeadID)
	}
	if h.SpouseID != "" {
		out = append(out, h.SpouseID)
	}
	out = append(out, h.ChildIDs...)
	for _, role := range people.OfficerRoles {
		if id := h.Officers[role]; id != "" {
			out = append(out, id)
		}
	}
	out = append(out, h.CourtExtras...)
	return out
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
