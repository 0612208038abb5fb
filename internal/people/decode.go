package people

import (
	"encoding/json"
	"strings"
)

// Tolerant readers for historical save shapes. Older saves used several
// field spellings for the same facts; everything is normalized here, once,
// at the decode boundary, so the rest of the engine only ever sees the
// canonical structs. A record with no recognized fields decodes to an empty
// value and is skipped by callers rather than erroring.

// UnmarshalJSON accepts the canonical shape plus known historical aliases:
// kind/type/t, a/parent_id/from/a_id, b/child_id/to/b_id.
func (e *KinshipEdge) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.Kind = EdgeKind(firstString(raw, "kind", "type", "t"))
	e.A = firstString(raw, "a", "parent_id", "from", "a_id", "from_id")
	e.B = firstString(raw, "b", "child_id", "to", "b_id", "to_id")
	switch strings.ToLower(string(e.Kind)) {
	case "parent_of", "parent", "parentof":
		e.Kind = ParentOf
	case "spouse_of", "spouse", "spouseof", "marriage":
		e.Kind = SpouseOf
	}
	*e = e.canonical()
	return nil
}

// UnmarshalJSON accepts the canonical person shape plus historical aliases:
// id/person_id/pid, sex/gender, age/years, house_id/house. A record without
// an explicit alive flag decodes as alive.
func (p *Person) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.ID = firstString(raw, "id", "person_id", "pid")
	p.Name = firstString(raw, "name")
	p.Sex = normalizeSex(firstString(raw, "sex", "gender"))
	p.Age = firstInt(raw, -1, "age", "years")
	if p.Age < 0 {
		p.Age = 0
	}
	p.HouseID = firstString(raw, "house_id", "house")

	p.Alive = true
	if v, ok := raw["alive"]; ok {
		_ = json.Unmarshal(v, &p.Alive)
	}
	if v, ok := raw["married"]; ok {
		_ = json.Unmarshal(v, &p.Married)
	}
	if v, ok := raw["traits"]; ok {
		var t Traits
		if err := json.Unmarshal(v, &t); err == nil {
			p.Traits = t
		}
	}
	return nil
}

func normalizeSex(s string) Sex {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "M", "MALE":
		return Male
	case "F", "FEMALE":
		return Female
	}
	return ""
}

func firstString(raw map[string]json.RawMessage, keys ...string) string {
	for _, k := range keys {
		if v, ok := raw[k]; ok {
			var s string
			if err := json.Unmarshal(v, &s); err == nil && s != "" {
				return s
			}
		}
	}
	return ""
}

func firstInt(raw map[string]json.RawMessage, missing int, keys ...string) int {
	for _, k := range keys {
		if v, ok := raw[k]; ok {
			var n int
			if err := json.Unmarshal(v, &n); err == nil {
				return n
			}
			// Some historical exports stored ages as floats.
			var f float64
			if err := json.Unmarshal(v, &f); err == nil {
				return int(f)
			}
		}
	}
	return missing
}
