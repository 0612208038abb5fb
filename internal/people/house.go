package people

// HouseTier ranks a noble house.
type HouseTier string

const (
	TierKnight HouseTier = "Knight"
	TierBaron  HouseTier = "Baron"
	TierCount  HouseTier = "Count"
)

// SpouseStatus values for House.SpouseStatus.
const (
	SpouseStatusSpouse = "spouse"
	SpouseStatusWidow  = "widow"
)

// Officer roles, in their fixed court ordering.
var OfficerRoles = []string{"steward", "clerk", "marshal"}

// House is a noble household: a head, optional spouse, ordered children, and
// the court bookkeeping around them. ChildIDs is a court/lineage view rather
// than strict biological parentage; after a succession it can contain the new
// head's siblings.
type House struct {
	ID           string            `json:"id"`
	Name         string            `json:"name,omitempty"`
	HeadID       string            `json:"head_id"`
	SpouseID     string            `json:"spouse_id,omitempty"`
	SpouseStatus string            `json:"spouse_status,omitempty"`
	ChildIDs     []string          `json:"child_ids"`
	HeirID       string            `json:"heir_id,omitempty"`
	Tier         HouseTier         `json:"tier,omitempty"`
	Officers     map[string]string `json:"officers,omitempty"`
	CourtExtras  []string          `json:"court_extra_ids,omitempty"`
	CourtExclude []string          `json:"court_exclude_ids,omitempty"`

	// LandQuality scales the house's notional estate; assigned by worldgen.
	LandQuality float64 `json:"land_quality,omitempty"`
}

// Clone returns an independent copy.
func (h *House) Clone() *House {
	if h == nil {
		return nil
	}
	cp := *h
	cp.ChildIDs = append([]string(nil), h.ChildIDs...)
	cp.CourtExtras = append([]string(nil), h.CourtExtras...)
	cp.CourtExclude = append([]string(nil), h.CourtExclude...)
	if h.Officers != nil {
		cp.Officers = make(map[string]string, len(h.Officers))
		for k, v := range h.Officers {
			cp.Officers[k] = v
		}
	}
	return &cp
}

// Excluded reports whether id is on the court exclusion list.
func (h *House) Excluded(id string) bool {
	for _, ex := range h.CourtExclude {
		if ex == id {
			return true
		}
	}
	return false
}

// InstitutionType classifies an institution record.
type InstitutionType string

const (
	InstitutionParish    InstitutionType = "parish"
	InstitutionBishopric InstitutionType = "bishopric"
	InstitutionAbbey     InstitutionType = "abbey"
)

// Institution is a church or similar body with an optional patron house.
type Institution struct {
	ID            string          `json:"id"`
	Name          string          `json:"name,omitempty"`
	Type          InstitutionType `json:"type"`
	PatronHouseID string          `json:"patron_house_id,omitempty"`
	HeadPersonID  string          `json:"head_person_id,omitempty"`
}

// Clone returns an independent copy.
func (n *Institution) Clone() *Institution {
	if n == nil {
		return nil
	}
	cp := *n
	return &cp
}
