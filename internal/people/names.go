package people

// Fixed name pools. A child's name is drawn by hashing the child id into the
// pool for their sex, so naming never consumes an RNG draw and is stable
// across replays.

var maleNames = []string{
	"Aldous", "Bertram", "Cedric", "Drogo", "Edmund", "Fulk", "Geoffrey",
	"Hamon", "Ivo", "Jocelin", "Lambert", "Miles", "Odo", "Piers", "Ranulf",
	"Simon", "Thurstan", "Walter", "Wymond", "Roger",
}

var femaleNames = []string{
	"Adela", "Beatrice", "Cecily", "Dionisia", "Edith", "Felicia", "Godiva",
	"Hawise", "Isolda", "Joan", "Lettice", "Mabel", "Nesta", "Orabel",
	"Petronilla", "Rohesia", "Sybil", "Theophania", "Wimarc", "Maud",
}

var houseNames = []string{
	"Ashcombe", "Blackmere", "Caldwell", "Dunholt", "Eastfen", "Farleigh",
	"Grimsworth", "Harrowgate", "Ildercote", "Kirkstead", "Langmoor",
	"Merebrook", "Northclyffe", "Ottersby", "Pembermoor", "Quernden",
	"Ravensholt", "Stanfield", "Thornbury", "Wexcombe",
}

// NameFor returns the deterministic given name for a person id and sex.
func NameFor(id string, sex Sex) string {
	pool := maleNames
	if sex == Female {
		pool = femaleNames
	}
	return pool[nameHash(id)%uint32(len(pool))]
}

// HouseNameFor returns the deterministic family name for a house id.
func HouseNameFor(id string) string {
	return houseNames[nameHash(id)%uint32(len(houseNames))]
}

// nameHash is FNV-1a; stable across platforms.
func nameHash(s string) uint32 {
	h := uint32(2166136261)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}
