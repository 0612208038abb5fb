package people

import (
	"fmt"
	"regexp"
	"strconv"
)

// IDAlloc hands out new person ids in whatever style the existing registry
// already uses (prefix + optional joiner + incrementing number). It is part
// of the run state so successive turns continue the same sequence.
type IDAlloc struct {
	Prefix string `json:"prefix"`
	Joiner string `json:"joiner,omitempty"`
	Next   int    `json:"next"`
}

var idStylePattern = regexp.MustCompile(`^([A-Za-z]+)([_-]?)(\d+)$`)

// InferIDAlloc scans existing person ids and derives the dominant id style
// with Next set past the highest sequence number seen. Falls back to
// "p_<n>" on an empty or unparseable registry.
func InferIDAlloc(r *Registry) IDAlloc {
	type style struct{ prefix, joiner string }
	counts := map[style]int{}
	maxSeq := map[style]int{}
	for _, id := range r.SortedPersonIDs() {
		m := idStylePattern.FindStringSubmatch(id)
		if m == nil {
			continue
		}
		st := style{m[1], m[2]}
		counts[st]++
		if n, err := strconv.Atoi(m[3]); err == nil && n > maxSeq[st] {
			maxSeq[st] = n
		}
	}
	best := style{"p", "_"}
	bestCount := 0
	for st, c := range counts {
		// Deterministic tie-break: higher count wins, then lexicographic.
		if c > bestCount || (c == bestCount && st.prefix+st.joiner < best.prefix+best.joiner) {
			best, bestCount = st, c
		}
	}
	next := maxSeq[best] + 1
	if next < 1 {
		next = 1
	}
	return IDAlloc{Prefix: best.prefix, Joiner: best.joiner, Next: next}
}

// Alloc returns the next unused id, skipping any already registered.
func (a *IDAlloc) Alloc(r *Registry) string {
	if a.Prefix == "" {
		a.Prefix, a.Joiner = "p", "_"
	}
	if a.Next < 1 {
		a.Next = 1
	}
	for {
		id := fmt.Sprintf("%s%s%d", a.Prefix, a.Joiner, a.Next)
		a.Next++
		if r == nil || r.People[id] == nil {
			return id
		}
	}
}
