package people

import "sort"

// EdgeKind tags a kinship edge.
type EdgeKind string

const (
	ParentOf EdgeKind = "parent_of" // directed A (parent) → B (child)
	SpouseOf EdgeKind = "spouse_of" // undirected; A/B stored in sorted order
)

// KinshipEdge is one relationship fact between two person ids. The edge set
// is append-only with upsert semantics and deduplicated by canonical key.
type KinshipEdge struct {
	Kind EdgeKind `json:"kind"`
	A    string   `json:"a"`
	B    string   `json:"b"`
}

// canonical returns the dedupe key. spouse_of edges canonicalize by sorting
// the two ids so insertion order never matters.
func (e KinshipEdge) canonical() KinshipEdge {
	if e.Kind == SpouseOf && e.B < e.A {
		e.A, e.B = e.B, e.A
	}
	return e
}

func (e KinshipEdge) key() string {
	c := e.canonical()
	return string(c.Kind) + "|" + c.A + "|" + c.B
}

// AddEdge inserts an edge, ignoring exact duplicates by canonical key.
func (r *Registry) AddEdge(e KinshipEdge) {
	if e.A == "" || e.B == "" || e.A == e.B {
		return
	}
	c := e.canonical()
	k := c.key()
	if r.edgeKeys == nil {
		r.rebuildEdgeIndex()
	}
	if r.edgeKeys[k] {
		return
	}
	r.edgeKeys[k] = true
	r.Edges = append(r.Edges, c)
}

// AddParent records parent→child.
func (r *Registry) AddParent(parentID, childID string) {
	r.AddEdge(KinshipEdge{Kind: ParentOf, A: parentID, B: childID})
}

// AddSpouses records a marriage between a and b.
func (r *Registry) AddSpouses(a, b string) {
	r.AddEdge(KinshipEdge{Kind: SpouseOf, A: a, B: b})
}

// HasParent reports whether childID has any recorded parent. Used by the
// migration sync to avoid re-parenting existing lineage members.
func (r *Registry) HasParent(childID string) bool {
	for _, e := range r.Edges {
		if e.Kind == ParentOf && e.B == childID {
			return true
		}
	}
	return false
}

// Parents returns the recorded parents of personID, sorted by id. Absent
// persons resolve to an empty slice.
func (r *Registry) Parents(personID string) []*Person {
	var out []*Person
	seen := map[string]bool{}
	for _, e := range r.Edges {
		if e.Kind == ParentOf && e.B == personID && !seen[e.A] {
			seen[e.A] = true
			if p := r.People[e.A]; p != nil {
				out = append(out, p)
			}
		}
	}
	sortPersons(out)
	return out
}

// Children returns the recorded children of personID, sorted by id.
func (r *Registry) Children(personID string) []*Person {
	var out []*Person
	seen := map[string]bool{}
	for _, e := range r.Edges {
		if e.Kind == ParentOf && e.A == personID && !seen[e.B] {
			seen[e.B] = true
			if p := r.People[e.B]; p != nil {
				out = append(out, p)
			}
		}
	}
	sortPersons(out)
	return out
}

// Siblings returns persons sharing at least one parent with personID,
// excluding personID itself, sorted by id.
func (r *Registry) Siblings(personID string) []*Person {
	parentIDs := map[string]bool{}
	for _, e := range r.Edges {
		if e.Kind == ParentOf && e.B == personID {
			parentIDs[e.A] = true
		}
	}
	if len(parentIDs) == 0 {
		return nil
	}
	seen := map[string]bool{personID: true}
	var out []*Person
	for _, e := range r.Edges {
		if e.Kind == ParentOf && parentIDs[e.A] && !seen[e.B] {
			seen[e.B] = true
			if p := r.People[e.B]; p != nil {
				out = append(out, p)
			}
		}
	}
	sortPersons(out)
	return out
}

// LivingSpouse returns personID's spouse via a spouse_of edge, provided the
// spouse is registered and alive; nil otherwise.
func (r *Registry) LivingSpouse(personID string) *Person {
	for _, e := range r.Edges {
		if e.Kind != SpouseOf {
			continue
		}
		var other string
		switch personID {
		case e.A:
			other = e.B
		case e.B:
			other = e.A
		default:
			continue
		}
		if p := r.People[other]; p != nil && p.Alive {
			return p
		}
	}
	return nil
}

// SpouseID returns personID's spouse id regardless of alive status, or "".
func (r *Registry) SpouseID(personID string) string {
	for _, e := range r.Edges {
		if e.Kind != SpouseOf {
			continue
		}
		if e.A == personID {
			return e.B
		}
		if e.B == personID {
			return e.A
		}
	}
	return ""
}

// CloseKin reports whether a and b share a parent or stand in a parent/child
// relation. Used to veto marriage candidates.
func (r *Registry) CloseKin(a, b string) bool {
	aParents := map[string]bool{}
	for _, e := range r.Edges {
		if e.Kind != ParentOf {
			continue
		}
		if e.B == a {
			aParents[e.A] = true
		}
		if (e.A == a && e.B == b) || (e.A == b && e.B == a) {
			return true
		}
	}
	for _, e := range r.Edges {
		if e.Kind == ParentOf && e.B == b && aParents[e.A] {
			return true
		}
	}
	return false
}

func sortPersons(ps []*Person) {
	sort.Slice(ps, func(i, j int) bool { return ps[i].ID < ps[j].ID })
}
