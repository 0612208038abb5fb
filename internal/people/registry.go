package people

import (
	"fmt"
	"regexp"
	"sort"
)

// PlayerHouseDefaultID is the house id synthesized for the player household
// when migrating a legacy state.
const PlayerHouseDefaultID = "h_player"

// Registry is the People-First world state: all persons, houses, and
// institutions by id, plus the kinship edge list. Upsert-only; nothing is
// ever deleted.
type Registry struct {
	People        map[string]*Person      `json:"people"`
	Houses        map[string]*House       `json:"houses"`
	Institutions  map[string]*Institution `json:"institutions,omitempty"`
	PlayerHouseID string                  `json:"player_house_id"`
	Edges         []KinshipEdge           `json:"kinship_edges"`

	edgeKeys map[string]bool
}

// Empty reports whether the registry has never been populated.
func (r *Registry) Empty() bool {
	return len(r.People) == 0 && len(r.Houses) == 0 && r.PlayerHouseID == ""
}

func (r *Registry) init() {
	if r.People == nil {
		r.People = map[string]*Person{}
	}
	if r.Houses == nil {
		r.Houses = map[string]*House{}
	}
	if r.Institutions == nil {
		r.Institutions = map[string]*Institution{}
	}
	if r.edgeKeys == nil {
		r.rebuildEdgeIndex()
	}
}

func (r *Registry) rebuildEdgeIndex() {
	r.edgeKeys = make(map[string]bool, len(r.Edges))
	for _, e := range r.Edges {
		r.edgeKeys[e.key()] = true
	}
}

// UpsertPerson merges p into the registry. An existing record keeps its
// identity; incoming non-zero fields overwrite.
func (r *Registry) UpsertPerson(p *Person) *Person {
	if p == nil || p.ID == "" {
		return nil
	}
	r.init()
	cur, ok := r.People[p.ID]
	if !ok {
		cp := p.Clone()
		cp.Traits = cp.Traits.clamp()
		r.People[p.ID] = cp
		return cp
	}
	if p.Name != "" {
		cur.Name = p.Name
	}
	if p.Sex != "" {
		cur.Sex = p.Sex
	}
	if p.Age > 0 || cur.Age == 0 {
		cur.Age = p.Age
	}
	cur.Alive = p.Alive
	cur.Married = cur.Married || p.Married
	if p.HouseID != "" {
		cur.HouseID = p.HouseID
	}
	if (p.Traits != Traits{}) {
		cur.Traits = p.Traits.clamp()
	}
	return cur
}

// UpsertHouse merges h into the registry, preserving any fields the incoming
// record leaves unset.
func (r *Registry) UpsertHouse(h *House) *House {
	if h == nil || h.ID == "" {
		return nil
	}
	r.init()
	cur, ok := r.Houses[h.ID]
	if !ok {
		r.Houses[h.ID] = h.Clone()
		return r.Houses[h.ID]
	}
	if h.Name != "" {
		cur.Name = h.Name
	}
	if h.HeadID != "" {
		cur.HeadID = h.HeadID
	}
	cur.SpouseID = h.SpouseID
	if h.SpouseStatus != "" {
		cur.SpouseStatus = h.SpouseStatus
	}
	if h.ChildIDs != nil {
		cur.ChildIDs = append([]string(nil), h.ChildIDs...)
	}
	if h.HeirID != "" {
		cur.HeirID = h.HeirID
	}
	if h.Tier != "" {
		cur.Tier = h.Tier
	}
	if h.Officers != nil {
		if cur.Officers == nil {
			cur.Officers = map[string]string{}
		}
		for k, v := range h.Officers {
			cur.Officers[k] = v
		}
	}
	if h.CourtExtras != nil {
		cur.CourtExtras = append([]string(nil), h.CourtExtras...)
	}
	if h.CourtExclude != nil {
		cur.CourtExclude = append([]string(nil), h.CourtExclude...)
	}
	if h.LandQuality != 0 {
		cur.LandQuality = h.LandQuality
	}
	return cur
}

// UpsertInstitution merges n into the registry.
func (r *Registry) UpsertInstitution(n *Institution) *Institution {
	if n == nil || n.ID == "" {
		return nil
	}
	r.init()
	cur, ok := r.Institutions[n.ID]
	if !ok {
		r.Institutions[n.ID] = n.Clone()
		return r.Institutions[n.ID]
	}
	if n.Name != "" {
		cur.Name = n.Name
	}
	if n.Type != "" {
		cur.Type = n.Type
	}
	if n.PatronHouseID != "" {
		cur.PatronHouseID = n.PatronHouseID
	}
	if n.HeadPersonID != "" {
		cur.HeadPersonID = n.HeadPersonID
	}
	return cur
}

// PlayerHouse returns the player's house record, or nil.
func (r *Registry) PlayerHouse() *House {
	if r.PlayerHouseID == "" {
		return nil
	}
	return r.Houses[r.PlayerHouseID]
}

// HouseOf resolves personID to its house by scanning all houses once,
// preferring the lexicographically smallest house id when a person appears in
// more than one.
func (r *Registry) HouseOf(personID string) *House {
	if p := r.People[personID]; p != nil && p.HouseID != "" {
		if h := r.Houses[p.HouseID]; h != nil {
			return h
		}
	}
	idx := r.PersonHouseIndex()
	if hid, ok := idx[personID]; ok {
		return r.Houses[hid]
	}
	return nil
}

// PersonHouseIndex builds a person id → house id index from every house's
// membership fields, preferring the smallest house id on collisions.
func (r *Registry) PersonHouseIndex() map[string]string {
	idx := map[string]string{}
	assign := func(pid, hid string) {
		if pid == "" {
			return
		}
		if cur, ok := idx[pid]; !ok || hid < cur {
			idx[pid] = hid
		}
	}
	for _, hid := range r.SortedHouseIDs() {
		h := r.Houses[hid]
		assign(h.HeadID, hid)
		assign(h.SpouseID, hid)
		for _, c := range h.ChildIDs {
			assign(c, hid)
		}
		for _, role := range OfficerRoles {
			assign(h.Officers[role], hid)
		}
		for _, x := range h.CourtExtras {
			assign(x, hid)
		}
	}
	return idx
}

// SortedPersonIDs returns all person ids ascending.
func (r *Registry) SortedPersonIDs() []string {
	ids := make([]string, 0, len(r.People))
	for id := range r.People {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SortedHouseIDs returns all house ids ascending.
func (r *Registry) SortedHouseIDs() []string {
	ids := make([]string, 0, len(r.Houses))
	for id := range r.Houses {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SortedInstitutionIDs returns all institution ids ascending.
func (r *Registry) SortedInstitutionIDs() []string {
	ids := make([]string, 0, len(r.Institutions))
	for id := range r.Institutions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clone returns a deep copy sharing nothing with the receiver.
func (r *Registry) Clone() Registry {
	out := Registry{PlayerHouseID: r.PlayerHouseID}
	out.People = make(map[string]*Person, len(r.People))
	for id, p := range r.People {
		out.People[id] = p.Clone()
	}
	out.Houses = make(map[string]*House, len(r.Houses))
	for id, h := range r.Houses {
		out.Houses[id] = h.Clone()
	}
	out.Institutions = make(map[string]*Institution, len(r.Institutions))
	for id, n := range r.Institutions {
		out.Institutions[id] = n.Clone()
	}
	out.Edges = append([]KinshipEdge(nil), r.Edges...)
	return out
}

// LegacyHousehold is the embedded-household shape carried by old saves: the
// player household's persons inline, plus the flat locals list.
type LegacyHousehold struct {
	Head         *Person
	Spouse       *Person
	SpouseStatus string
	Children     []*Person
	Locals       []*Person
}

// localNoblePattern matches legacy local-noble person ids such as
// "p_noble3"; the numeric suffix seeds the synthesized house id.
var localNoblePattern = regexp.MustCompile(`^p_?noble_?(\d+)$`)

// IsLocalNobleID reports whether a person id follows the legacy local-noble
// naming scheme.
func IsLocalNobleID(id string) bool {
	return localNoblePattern.MatchString(id)
}

// EnsurePeopleFirst normalizes the registry against a legacy household. If
// the registry has never been populated it is synthesized once from the
// legacy shape; then, unconditionally, legacy fields are upserted in without
// deleting any existing non-player record.
//
// The head↔spouse marriage edge is always refreshed to the current state.
// parent_of edges are added only for children with no recorded parent, so a
// head-of-household change never silently re-parents existing lineage.
func (r *Registry) EnsurePeopleFirst(legacy LegacyHousehold) {
	r.init()

	if r.Empty() {
		r.PlayerHouseID = PlayerHouseDefaultID
	}
	if r.PlayerHouseID == "" {
		r.PlayerHouseID = PlayerHouseDefaultID
	}

	ph := &House{ID: r.PlayerHouseID, SpouseStatus: legacy.SpouseStatus}
	if legacy.Head != nil {
		ph.HeadID = legacy.Head.ID
	}
	if legacy.Spouse != nil {
		ph.SpouseID = legacy.Spouse.ID
	}
	for _, c := range legacy.Children {
		if c != nil {
			ph.ChildIDs = append(ph.ChildIDs, c.ID)
		}
	}
	r.UpsertHouse(ph)

	if legacy.Head != nil {
		legacy.Head.HouseID = r.PlayerHouseID
		r.UpsertPerson(legacy.Head)
	}
	if legacy.Spouse != nil {
		legacy.Spouse.HouseID = r.PlayerHouseID
		r.UpsertPerson(legacy.Spouse)
	}
	for _, c := range legacy.Children {
		if c == nil {
			continue
		}
		c.HouseID = r.PlayerHouseID
		r.UpsertPerson(c)
	}
	for _, l := range legacy.Locals {
		if l != nil {
			r.UpsertPerson(l)
		}
	}

	// Marriage edge between head and spouse always reflects current state.
	if legacy.Head != nil && legacy.Spouse != nil {
		r.AddSpouses(legacy.Head.ID, legacy.Spouse.ID)
	}

	// Parentage only for children nobody has claimed yet.
	for _, c := range legacy.Children {
		if c == nil || r.HasParent(c.ID) {
			continue
		}
		if legacy.Head != nil {
			r.AddParent(legacy.Head.ID, c.ID)
		}
		if legacy.Spouse != nil {
			r.AddParent(legacy.Spouse.ID, c.ID)
		}
	}

	r.assignLocalNobleHouses()
}

// assignLocalNobleHouses gives every house-less local noble a synthesized
// single-person house keyed by the numeric suffix of their person id, so
// every actor is house-addressable.
func (r *Registry) assignLocalNobleHouses() {
	idx := r.PersonHouseIndex()
	for _, pid := range r.SortedPersonIDs() {
		p := r.People[pid]
		if p.HouseID != "" {
			continue
		}
		if _, ok := idx[pid]; ok {
			continue
		}
		m := localNoblePattern.FindStringSubmatch(pid)
		if m == nil {
			continue
		}
		hid := fmt.Sprintf("h_noble%s", m[1])
		p.HouseID = hid
		r.UpsertHouse(&House{ID: hid, HeadID: pid, Tier: TierKnight})
	}
}
