// Package policy holds the built-in autoplay strategies: pure functions from
// a turn preview to a decision record. Policies never mutate state and never
// draw randomness of their own, so an autoplayed run is as replayable as a
// hand-played one.
package policy

import (
	"fmt"
	"sort"
	"strings"

	"github.com/talgya/demesne/internal/engine"
)

// Built-in policy ids.
const (
	PrudentBuilder    = "prudent-builder"
	MarketOpportunist = "market-opportunist"
	SteadySteward     = "steady-steward"

	// DefaultAlias resolves to the prudent builder; the alias itself is
	// locked so saves and URLs that say "default" keep meaning one thing.
	DefaultAlias = "default"
)

// ErrUnknownPolicy is wrapped into the error returned for an unrecognized id.
var ErrUnknownPolicy = fmt.Errorf("unknown policy")

type decideFunc func(s *engine.RunState, ctx *engine.TurnContext) engine.Decisions

var policies = map[string]decideFunc{
	PrudentBuilder:    decidePrudent,
	MarketOpportunist: decideOpportunist,
	SteadySteward:     decideSteady,
}

// IDs lists the canonical policy ids, sorted.
func IDs() []string {
	out := make([]string, 0, len(policies))
	for id := range policies {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Resolve maps an id or alias to its canonical policy id.
func Resolve(id string) (string, error) {
	if id == DefaultAlias || id == "" {
		return PrudentBuilder, nil
	}
	if _, ok := policies[id]; ok {
		return id, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, id)
}

// Sanitize makes a policy id safe for use as a path or file-name segment.
func Sanitize(id string) string {
	return strings.ReplaceAll(id, "/", "__")
}

// Decide computes the decisions the named policy would take against the
// given preview. The state and context are read, never written.
func Decide(id string, s *engine.RunState, ctx *engine.TurnContext) (engine.Decisions, error) {
	canonical, err := Resolve(id)
	if err != nil {
		return engine.Decisions{}, err
	}
	return policies[canonical](s, ctx), nil
}

// decidePrudent stocks reserves first, builds the food infrastructure in a
// fixed order, and settles every due before spending on anything else.
func decidePrudent(s *engine.RunState, ctx *engine.TurnContext) engine.Decisions {
	pv := ctx.Preview
	rep := ctx.Report
	var d engine.Decisions

	// Keep a cushion of one-and-a-half turns of food; sell only above it.
	reserve := rep.ConsumptionBushels * 3 / 2
	if surplus := pv.Manor.Bushels - reserve; surplus > 0 {
		d.Sell = &engine.SellDecision{Bushels: min(surplus, rep.SellCap)}
	}

	if pv.Manor.Construction == nil {
		for _, id := range []string{engine.ImpGranary, engine.ImpFieldRotation, engine.ImpDrainage} {
			imp := engine.ImprovementByID(id)
			if !pv.HasImprovement(id) && pv.Manor.Coin >= imp.CostCoin+30 {
				d.Construction = &engine.ConstructionDecision{Action: "start", ImprovementID: id}
				break
			}
		}
	}

	// Builders while a project runs, farmers otherwise.
	wantBuilders := 6
	if pv.Manor.Construction != nil || d.Construction != nil {
		wantBuilders = 12
	}
	d.Labor = laborToward(pv, ctx.MaxLaborShift, wantBuilders)

	d.Obligations = payEverything(pv)
	d.Marriage = safestOffer(ctx.MarriageWindow, pv.Manor.Coin, 0)
	return d
}

// decideOpportunist chases the market: heavy selling into high prices, a thin
// granary-only build queue, and the richest dowry on the table.
func decideOpportunist(s *engine.RunState, ctx *engine.TurnContext) engine.Decisions {
	pv := ctx.Preview
	rep := ctx.Report
	var d engine.Decisions

	reserve := rep.ConsumptionBushels
	if rep.MarketMult >= 1.1 {
		reserve = rep.ConsumptionBushels / 2
	}
	if surplus := pv.Manor.Bushels - reserve; surplus > 0 {
		d.Sell = &engine.SellDecision{Bushels: min(surplus, rep.SellCap)}
	}

	if pv.Manor.Construction == nil && !pv.HasImprovement(engine.ImpGranary) {
		if imp := engine.ImprovementByID(engine.ImpGranary); pv.Manor.Coin >= imp.CostCoin {
			d.Construction = &engine.ConstructionDecision{Action: "start", ImprovementID: engine.ImpGranary}
		}
	}

	d.Labor = laborToward(pv, ctx.MaxLaborShift, 4)
	d.Obligations = payEverything(pv)
	d.Marriage = richestOffer(ctx.MarriageWindow, pv.Manor.Coin)
	return d
}

// decideSteady changes as little as possible: dues paid, labor held, offers
// taken only when they carry neither cost nor rumored trouble.
func decideSteady(s *engine.RunState, ctx *engine.TurnContext) engine.Decisions {
	pv := ctx.Preview
	rep := ctx.Report
	var d engine.Decisions

	reserve := rep.ConsumptionBushels * 2
	if surplus := pv.Manor.Bushels - reserve; surplus > 0 {
		d.Sell = &engine.SellDecision{Bushels: min(surplus, rep.SellCap)}
	}
	d.Obligations = payEverything(pv)
	d.Marriage = safestOffer(ctx.MarriageWindow, pv.Manor.Coin, 1)
	return d
}

// laborToward nudges the builder count toward want within the shift cap,
// funding the move from the farmer pool.
func laborToward(pv *engine.RunState, maxShift, want int) *engine.LaborDecision {
	delta := want - pv.Manor.Builders
	if delta == 0 {
		return nil
	}
	limit := maxShift / 2
	delta = clamp(delta, -limit, limit)
	if delta == 0 {
		return nil
	}
	if delta > 0 && pv.Manor.Farmers < delta {
		return nil
	}
	return &engine.LaborDecision{FarmerDelta: -delta, BuilderDelta: delta}
}

// payEverything offers full settlement of arrears, dues, and any levy; the
// engine trims to what the treasury and stores actually hold.
func payEverything(pv *engine.RunState) *engine.ObligationsDecision {
	o := pv.Manor.Obligations
	d := &engine.ObligationsDecision{
		PayCoin:    o.ArrearsCoin + o.TaxCoinDue,
		PayBushels: o.ArrearsBushels + o.TitheBushelsDue,
	}
	if o.WarLevy != nil {
		d.WarLevyCoin = o.WarLevy.CoinOption
	}
	if d.PayCoin == 0 && d.PayBushels == 0 && d.WarLevyCoin == 0 {
		return nil
	}
	return d
}

// safestOffer accepts the best-paying offer that costs nothing and, at
// caution level 1+, carries no rumored trouble. Anything else is declined.
func safestOffer(w *engine.MarriageWindow, coin, caution int) *engine.MarriageDecision {
	if w == nil {
		return nil
	}
	best := pickOffer(w, coin, func(o engine.MarriageOffer) bool {
		if o.Dowry < 0 {
			return false
		}
		return caution < 1 || o.Risk == "no notable entanglements"
	})
	if best == "" {
		return &engine.MarriageDecision{Action: "reject_all"}
	}
	return &engine.MarriageDecision{Action: "accept", OfferID: best}
}

// richestOffer takes the largest dowry the treasury can stand, trouble or no.
func richestOffer(w *engine.MarriageWindow, coin int) *engine.MarriageDecision {
	if w == nil {
		return nil
	}
	best := pickOffer(w, coin, func(engine.MarriageOffer) bool { return true })
	if best == "" {
		return &engine.MarriageDecision{Action: "reject_all"}
	}
	return &engine.MarriageDecision{Action: "accept", OfferID: best}
}

func pickOffer(w *engine.MarriageWindow, coin int, ok func(engine.MarriageOffer) bool) string {
	bestID, bestDowry := "", 0
	for _, o := range w.Offers {
		if !ok(o) {
			continue
		}
		if o.Dowry < 0 && coin < -o.Dowry {
			continue
		}
		if bestID == "" || o.Dowry > bestDowry {
			bestID, bestDowry = o.ID, o.Dowry
		}
	}
	return bestID
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
