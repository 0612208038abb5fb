package engine

// Improvement is one buildable estate upgrade with a one-time effect.
type Improvement struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	CostCoin    int    `json:"cost_coin"`
	BuildPoints int    `json:"build_points"`
	Blurb       string `json:"blurb"`
}

// Improvement ids.
const (
	ImpGranary       = "granary"
	ImpFieldRotation = "field_rotation"
	ImpDrainage      = "drainage"
	ImpPhysician     = "physician"
	ImpChapel        = "chapel"
)

// Improvements is the fixed catalog, in display order.
var Improvements = []Improvement{
	{ImpGranary, "Stone Granary", 40, 60, "cuts grain spoilage"},
	{ImpFieldRotation, "Field Rotation", 30, 48, "raises field yield"},
	{ImpDrainage, "Drainage Ditches", 35, 54, "raises yield and softens bad seasons"},
	{ImpPhysician, "Resident Physician", 50, 40, "reduces household mortality"},
	{ImpChapel, "Manor Chapel", 45, 66, "calms unrest over time"},
}

// ImprovementByID looks up the catalog, nil when unknown.
func ImprovementByID(id string) *Improvement {
	for i := range Improvements {
		if Improvements[i].ID == id {
			return &Improvements[i]
		}
	}
	return nil
}

// Yield multipliers contributed by completed improvements.
func (s *RunState) improvementYieldMult() float64 {
	mult := 1.0
	if s.HasImprovement(ImpFieldRotation) {
		mult *= 1.15
	}
	if s.HasImprovement(ImpDrainage) {
		mult *= 1.05
	}
	return mult
}

// spoilageRate picks the granary-adjusted spoilage rate.
func (s *RunState) spoilageRate() float64 {
	if s.HasImprovement(ImpGranary) {
		return s.Tuning.SpoilageRateGranary
	}
	return s.Tuning.SpoilageRate
}
