package engine

import (
	"fmt"
	"sort"

	"github.com/talgya/demesne/internal/court"
	"github.com/talgya/demesne/internal/demography"
)

// TurnReport is the numeric explanation of a turn: what changed and why.
// The UI renders these fields verbatim.
type TurnReport struct {
	TurnIndex int `json:"turn_index"`
	Year      int `json:"year"`

	WeatherMult float64 `json:"weather_mult"`
	MarketMult  float64 `json:"market_mult"`
	SellPrice   float64 `json:"sell_price"`
	SellCap     int     `json:"sell_cap"`

	ProductionBushels  int  `json:"production_bushels"`
	SpoilageBushels    int  `json:"spoilage_bushels"`
	ConsumptionBushels int  `json:"consumption_bushels"`
	CourtBushels       int  `json:"court_bushels"`
	Shortage           bool `json:"shortage"`
	PopulationLost     int  `json:"population_lost,omitempty"`

	TaxCoinDue      int `json:"tax_coin_due"`
	TitheBushelsDue int `json:"tithe_bushels_due"`
	ArrearsCoin     int `json:"arrears_coin"`
	ArrearsBushels  int `json:"arrears_bushels"`

	ConstructionProgress  int    `json:"construction_progress,omitempty"`
	ConstructionRequired  int    `json:"construction_required,omitempty"`
	ConstructionCompleted string `json:"construction_completed,omitempty"`

	HeirID string `json:"heir_id,omitempty"`

	HouseholdBirths []string         `json:"household_births,omitempty"`
	HouseholdDeaths []string         `json:"household_deaths,omitempty"`
	HouseLog        []court.LogEvent `json:"house_log,omitempty"`

	WorldBirths    int `json:"world_births"`
	WorldMarriages int `json:"world_marriages"`
	WorldDeaths    int `json:"world_deaths"`

	Events  []EventResult      `json:"events,omitempty"`
	World   []demography.Event `json:"world_events,omitempty"`
	Notes   []string           `json:"notes,omitempty"`
	Drivers []string           `json:"drivers,omitempty"`
}

// note appends a plain-language rejection or info line.
func (r *TurnReport) note(format string, args ...any) {
	r.Notes = append(r.Notes, fmt.Sprintf(format, args...))
}

// computeDrivers ranks the food/unrest/obligations/coin movements by
// absolute magnitude and keeps the top three, as player-facing strings.
func computeDrivers(before, after *RunState, rep *TurnReport) []string {
	type driver struct {
		mag  int
		text string
	}
	food := after.Manor.Bushels - before.Manor.Bushels
	unrest := after.Manor.Unrest - before.Manor.Unrest
	coin := after.Manor.Coin - before.Manor.Coin
	oblig := (after.Manor.Obligations.ArrearsCoin + after.Manor.Obligations.ArrearsBushels) -
		(before.Manor.Obligations.ArrearsCoin + before.Manor.Obligations.ArrearsBushels)

	ds := []driver{
		{abs(food), fmt.Sprintf("food %+d (produced %d, consumed %d, spoiled %d)",
			food, rep.ProductionBushels, rep.ConsumptionBushels, rep.SpoilageBushels)},
		{abs(unrest), fmt.Sprintf("unrest %+d", unrest)},
		{abs(oblig), fmt.Sprintf("obligations %+d in arrears", oblig)},
		{abs(coin), fmt.Sprintf("coin %+d", coin)},
	}
	sort.SliceStable(ds, func(i, j int) bool { return ds[i].mag > ds[j].mag })
	out := make([]string, 0, 3)
	for i := 0; i < 3 && i < len(ds); i++ {
		out = append(out, ds[i].text)
	}
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
