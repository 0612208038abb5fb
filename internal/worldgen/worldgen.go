// Package worldgen seeds the registries with the external noble world: a
// liege-county's worth of houses, their families and kinship edges, and the
// local church institutions. Seeding is idempotent: ids are derived from the
// run seed and house index, never from call order, so a second call finds
// every record already present and changes nothing.
package worldgen

import (
	"fmt"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/demesne/internal/people"
	"github.com/talgya/demesne/internal/rng"
)

// DefaultHouseCount is the number of external houses seeded for a new run.
const DefaultHouseCount = 28

// Seed populates reg with count external noble houses plus institutions.
// Existing records are left untouched; only missing ids are created.
func Seed(reg *people.Registry, runSeed string, count int) {
	if count <= 0 {
		count = DefaultHouseCount
	}

	// Land quality comes from seeded simplex noise over the house index,
	// giving a smooth spread of estate richness across the county.
	noise := opensimplex.NewNormalized(int64(seedHash(runSeed)))

	for i := 0; i < count; i++ {
		seedHouse(reg, runSeed, i, noise.Eval2(float64(i)*0.35, 0.5))
	}
	seedInstitutions(reg, count)
}

func seedHouse(reg *people.Registry, runSeed string, i int, landQuality float64) {
	hid := fmt.Sprintf("h_w%03d", i)
	if reg.Houses[hid] != nil {
		return
	}
	r := rng.New(runSeed, "worldgen", 0, fmt.Sprintf("house.%d", i))

	tier := people.TierKnight
	switch {
	case landQuality > 0.8:
		tier = people.TierCount
	case landQuality > 0.55:
		tier = people.TierBaron
	}

	headID := fmt.Sprintf("p_w%03d_a", i)
	head := &people.Person{
		ID:      headID,
		Sex:     people.Male,
		Age:     r.Fork("head.age").Int(25, 60),
		Alive:   true,
		Married: true,
		HouseID: hid,
		Traits:  rollTraits(r.Fork("head.traits")),
	}
	head.Name = people.NameFor(headID, head.Sex)

	spouseID := fmt.Sprintf("p_w%03d_b", i)
	spouse := &people.Person{
		ID:      spouseID,
		Sex:     people.Female,
		Age:     r.Fork("spouse.age").Int(22, head.Age),
		Alive:   true,
		Married: true,
		HouseID: hid,
		Traits:  rollTraits(r.Fork("spouse.traits")),
	}
	spouse.Name = people.NameFor(spouseID, spouse.Sex)

	h := &people.House{
		ID:          hid,
		Name:        people.HouseNameFor(hid),
		HeadID:      headID,
		SpouseID:    spouseID,
		Tier:        tier,
		LandQuality: landQuality,
	}

	nKids := r.Fork("children").Int(0, 4)
	childAges := smoothChildAges(r, spouse.Age, nKids)
	for k := 0; k < nKids; k++ {
		cid := fmt.Sprintf("p_w%03d_c%d", i, k)
		sex := people.Male
		if r.Fork(fmt.Sprintf("child.%d.sex", k)).Bool(0.5) {
			sex = people.Female
		}
		child := &people.Person{
			ID:      cid,
			Name:    people.NameFor(cid, sex),
			Sex:     sex,
			Age:     childAges[k],
			Alive:   true,
			HouseID: hid,
			Traits:  rollTraits(r.Fork(fmt.Sprintf("child.%d.traits", k))),
		}
		h.ChildIDs = append(h.ChildIDs, cid)
		reg.UpsertPerson(child)
	}

	reg.UpsertPerson(head)
	reg.UpsertPerson(spouse)
	reg.UpsertHouse(h)
	reg.AddSpouses(headID, spouseID)
	for _, cid := range h.ChildIDs {
		reg.AddParent(headID, cid)
		reg.AddParent(spouseID, cid)
	}
}

// smoothChildAges spaces generated children at plausible intervals below the
// mother's age, oldest first, so generated lineages do not bunch up at
// implausible gaps.
func smoothChildAges(r *rng.Rng, motherAge, n int) []int {
	if n == 0 {
		return nil
	}
	eldestCap := motherAge - 17
	if eldestCap < 1 {
		eldestCap = 1
	}
	ages := make([]int, n)
	age := r.Fork("ages.eldest").Int(min(3, eldestCap), eldestCap)
	for k := 0; k < n; k++ {
		if age < 0 {
			age = 0
		}
		ages[k] = age
		age -= r.Fork(fmt.Sprintf("ages.gap.%d", k)).Int(2, 4)
	}
	return ages
}

func seedInstitutions(reg *people.Registry, houseCount int) {
	if reg.PlayerHouseID != "" {
		parishID := "i_parish_" + reg.PlayerHouseID
		if reg.Institutions[parishID] == nil {
			reg.UpsertInstitution(&people.Institution{
				ID:            parishID,
				Name:          "Manor Parish",
				Type:          people.InstitutionParish,
				PatronHouseID: reg.PlayerHouseID,
			})
		}
	}
	for i := 0; i < 2; i++ {
		id := fmt.Sprintf("i_bishopric_%02d", i)
		if reg.Institutions[id] == nil {
			reg.UpsertInstitution(&people.Institution{ID: id, Type: people.InstitutionBishopric})
		}
	}
	nAbbeys := max(2, houseCount/8)
	for i := 0; i < nAbbeys; i++ {
		id := fmt.Sprintf("i_abbey_%02d", i)
		if reg.Institutions[id] == nil {
			reg.UpsertInstitution(&people.Institution{ID: id, Type: people.InstitutionAbbey})
		}
	}
}

func rollTraits(r *rng.Rng) people.Traits {
	return people.Traits{
		Stewardship: r.Int(1, 5),
		Martial:     r.Int(1, 5),
		Diplomacy:   r.Int(1, 5),
		Discipline:  r.Int(1, 5),
		Fertility:   r.Int(1, 5),
	}
}

func seedHash(s string) uint32 {
	h := uint32(2166136261)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}
