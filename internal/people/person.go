// Package people holds the person/house/institution registries and the
// kinship graph the simulation runs over. Records are never deleted: the dead
// stay registered so lineage and history keep resolving.
package people

// Sex is recorded as "M" or "F".
type Sex string

const (
	Male   Sex = "M"
	Female Sex = "F"
)

// Traits are the five fixed aptitudes, each in [1,5].
type Traits struct {
	Stewardship int `json:"stewardship"`
	Martial     int `json:"martial"`
	Diplomacy   int `json:"diplomacy"`
	Discipline  int `json:"discipline"`
	Fertility   int `json:"fertility"`
}

// Person is one registered actor. Mutated by aging, death, and marriage;
// never removed from the registry.
type Person struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Sex     Sex    `json:"sex"`
	Age     int    `json:"age"`
	Alive   bool   `json:"alive"`
	Traits  Traits `json:"traits"`
	Married bool   `json:"married"`
	HouseID string `json:"house_id,omitempty"`
}

// Clone returns an independent copy.
func (p *Person) Clone() *Person {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}

func (t Traits) clamp() Traits {
	c := func(v int) int {
		if v < 1 {
			return 1
		}
		if v > 5 {
			return 5
		}
		return v
	}
	return Traits{
		Stewardship: c(t.Stewardship),
		Martial:     c(t.Martial),
		Diplomacy:   c(t.Diplomacy),
		Discipline:  c(t.Discipline),
		Fertility:   c(t.Fertility),
	}
}
