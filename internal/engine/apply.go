package engine

import (
	"github.com/talgya/demesne/internal/court"
	"github.com/talgya/demesne/internal/people"
)

// Decisions is the fixed-shape decision record. Every sub-decision is
// independently optional; a nil field means "no action" for that category.
type Decisions struct {
	Labor        *LaborDecision        `json:"labor,omitempty"`
	Sell         *SellDecision         `json:"sell,omitempty"`
	Construction *ConstructionDecision `json:"construction,omitempty"`
	Marriage     *MarriageDecision     `json:"marriage,omitempty"`
	Obligations  *ObligationsDecision  `json:"obligations,omitempty"`
	Prospects    []ProspectAction      `json:"prospects,omitempty"`
}

// LaborDecision reallocates workers between roles.
type LaborDecision struct {
	FarmerDelta  int `json:"farmer_delta"`
	BuilderDelta int `json:"builder_delta"`
}

// SellDecision sells stored grain at this turn's price.
type SellDecision struct {
	Bushels int `json:"bushels"`
}

// ConstructionDecision starts or abandons a project.
type ConstructionDecision struct {
	Action         string `json:"action"` // "start", "abandon", "none"
	ImprovementID  string `json:"improvement_id,omitempty"`
	ConfirmAbandon bool   `json:"confirm_abandon,omitempty"`
}

// MarriageDecision answers the marriage window.
type MarriageDecision struct {
	Action  string `json:"action"` // "accept", "scout", "reject_all"
	OfferID string `json:"offer_id,omitempty"`
}

// ObligationsDecision allocates payments. Arrears are paid before current
// dues, coin before bushels within each category. WarLevyCoin drives the
// men-or-coin fallback ladder.
type ObligationsDecision struct {
	PayCoin     int `json:"pay_coin"`
	PayBushels  int `json:"pay_bushels"`
	WarLevyCoin int `json:"war_levy_coin"`
}

// ProspectAction accepts or declines one generated prospect by id.
type ProspectAction struct {
	ProspectID string `json:"prospect_id"`
	Accept     bool   `json:"accept"`
}

// LogEntry is one committed turn in the bounded log. Snapshots never carry a
// log themselves.
type LogEntry struct {
	Turn      int            `json:"turn"`
	Decisions Decisions      `json:"decisions"`
	Report    *TurnReport    `json:"report"`
	Before    *RunState      `json:"snapshot_before"`
	After     *RunState      `json:"snapshot_after"`
	Deltas    map[string]int `json:"deltas"`
}

// ApplyDecisions commits the turn: it re-derives the preview internally
// (a stale caller-held preview is never trusted), applies the decisions in
// fixed order, closes the turn, and returns the new state. Invalid or
// under-resourced decisions are rejected with a report note; the rest of the
// turn proceeds.
func ApplyDecisions(s *RunState, d Decisions) *RunState {
	if !s.Active() {
		return s
	}

	ctx := ProposeTurn(s)
	pv := ctx.Preview
	rep := ctx.Report
	before := s.snapshot()

	pv.applyLabor(d.Labor, ctx.MaxLaborShift, rep)
	pv.applySell(d.Sell, rep)
	pv.applyConstruction(d.Construction, rep)
	resolved := pv.applyMarriage(d.Marriage, d.Prospects, ctx.MarriageWindow, rep)
	if !resolved {
		pv.reserveWindowCandidates(ctx.MarriageWindow)
	}
	pv.applyObligations(d.Obligations, rep)
	pv.closeTurn(rep)

	after := pv.snapshot()
	pv.Log = append(pv.Log, LogEntry{
		Turn:      rep.TurnIndex,
		Decisions: d,
		Report:    rep,
		Before:    before,
		After:     after,
		Deltas: map[string]int{
			"bushels_stored": after.Manor.Bushels - before.Manor.Bushels,
			"coin":           after.Manor.Coin - before.Manor.Coin,
			"population":     after.Manor.Population - before.Manor.Population,
			"unrest":         after.Manor.Unrest - before.Manor.Unrest,
		},
	})
	rep.Drivers = computeDrivers(before, after, rep)
	return pv
}

func (s *RunState) applyLabor(d *LaborDecision, maxShift int, rep *TurnReport) {
	if d == nil || (d.FarmerDelta == 0 && d.BuilderDelta == 0) {
		return
	}
	m := &s.Manor
	if abs(d.FarmerDelta)+abs(d.BuilderDelta) > maxShift {
		rep.note("labor order rejected: shifting %d workers exceeds the cap of %d",
			abs(d.FarmerDelta)+abs(d.BuilderDelta), maxShift)
		return
	}
	nf, nb := m.Farmers+d.FarmerDelta, m.Builders+d.BuilderDelta
	if nf < 0 || nb < 0 || nf+nb > m.Population {
		rep.note("labor order rejected: %d farmers and %d builders cannot be staffed from %d people",
			nf, nb, m.Population)
		return
	}
	if s.Household.Energy < 1 {
		rep.note("labor order rejected: no energy left")
		return
	}
	m.Farmers, m.Builders = nf, nb
	s.Household.Energy--
}

func (s *RunState) applySell(d *SellDecision, rep *TurnReport) {
	if d == nil || d.Bushels <= 0 {
		return
	}
	amount := min(d.Bushels, rep.SellCap, s.Manor.Bushels)
	if amount <= 0 {
		rep.note("sale rejected: no grain to sell")
		return
	}
	if s.Household.Energy < 1 {
		rep.note("sale rejected: no energy left")
		return
	}
	if amount < d.Bushels {
		rep.note("sale trimmed to %d bushels (market cap and stores)", amount)
	}
	s.Manor.Bushels -= amount
	s.Manor.Coin += int(float64(amount) * rep.SellPrice)
	s.Household.Energy--
}

func (s *RunState) applyConstruction(d *ConstructionDecision, rep *TurnReport) {
	if d == nil || d.Action == "" || d.Action == "none" {
		return
	}
	m := &s.Manor
	switch d.Action {
	case "start":
		imp := ImprovementByID(d.ImprovementID)
		switch {
		case imp == nil:
			rep.note("construction rejected: unknown improvement %q", d.ImprovementID)
		case m.Construction != nil:
			rep.note("construction rejected: %s is already underway", m.Construction.ImprovementID)
		case s.HasImprovement(imp.ID):
			rep.note("construction rejected: %s is already built", imp.Name)
		case m.Coin < imp.CostCoin:
			rep.note("construction rejected: %s costs %d coin, treasury holds %d", imp.Name, imp.CostCoin, m.Coin)
		case s.Household.Energy < 1:
			rep.note("construction rejected: no energy left")
		default:
			m.Coin -= imp.CostCoin
			m.Construction = &Construction{ImprovementID: imp.ID, Required: imp.BuildPoints}
			s.Household.Energy--
		}
	case "abandon":
		switch {
		case m.Construction == nil:
			rep.note("nothing under construction to abandon")
		case !d.ConfirmAbandon:
			rep.note("abandoning %s requires confirmation; progress and coin are lost", m.Construction.ImprovementID)
		default:
			rep.note("%s abandoned; progress discarded", m.Construction.ImprovementID)
			m.Construction = nil
		}
	default:
		rep.note("construction rejected: unknown action %q", d.Action)
	}
}

// applyMarriage handles the marriage window. Returns true when the window
// was resolved (accepted or rejected), so the caller knows whether to record
// reservations for the unresolved candidates.
func (s *RunState) applyMarriage(d *MarriageDecision, prospects []ProspectAction, w *MarriageWindow, rep *TurnReport) bool {
	// Prospect-list actions are an alternate spelling of the same answers.
	if d == nil {
		for _, pa := range prospects {
			if !pa.Accept {
				continue
			}
			if w == nil || findOffer(w, pa.ProspectID) == nil {
				rep.note("prospect %q is unknown or expired", pa.ProspectID)
				continue
			}
			d = &MarriageDecision{Action: "accept", OfferID: pa.ProspectID}
			break
		}
	}
	if d == nil || d.Action == "" {
		return false
	}
	if w == nil {
		rep.note("no marriage window is open")
		return false
	}

	switch d.Action {
	case "accept":
		offer := findOffer(w, d.OfferID)
		if offer == nil {
			rep.note("marriage rejected: offer %q is unknown or expired", d.OfferID)
			return false
		}
		if offer.Dowry < 0 && s.Manor.Coin < -offer.Dowry {
			rep.note("marriage rejected: the dowry of %d coin exceeds the treasury", -offer.Dowry)
			return false
		}
		s.acceptMarriageOffer(w.ChildID, offer, rep)
		s.clearWindowReservations(w)
		return true
	case "scout":
		if s.Household.Energy < 1 || s.Manor.Coin < 5 {
			rep.note("scouting rejected: needs 1 energy and 5 coin")
			return false
		}
		s.Household.Energy--
		s.Manor.Coin -= 5
		s.Flags.Modifiers.OfferQualityBonus += 0.5
		rep.note("agents sent to sound out better matches")
		return false
	case "reject_all":
		s.Manor.Unrest += 2
		s.clearWindowReservations(w)
		rep.note("all marriage offers declined; tongues wag in the district")
		return true
	default:
		rep.note("marriage rejected: unknown action %q", d.Action)
		return false
	}
}

func findOffer(w *MarriageWindow, id string) *MarriageOffer {
	for i := range w.Offers {
		if w.Offers[i].ID == id {
			return &w.Offers[i]
		}
	}
	return nil
}

func (s *RunState) acceptMarriageOffer(childID string, offer *MarriageOffer, rep *TurnReport) {
	s.Manor.Coin += offer.Dowry
	if s.Manor.Coin < 0 {
		s.Manor.Coin = 0
	}

	child := s.People[childID]
	if child != nil {
		child.Married = true
	}
	if offer.CandidateID != "" {
		if cand := s.People[offer.CandidateID]; cand != nil {
			cand.Married = true
			s.AddSpouses(childID, offer.CandidateID)
			if h := s.PlayerHouse(); h != nil {
				h.CourtExtras = append(h.CourtExtras, offer.CandidateID)
			}
			cand.HouseID = s.PlayerHouseID
		}
	}

	// Tie of alliance with the offering house.
	if head := s.Head(); head != nil && offer.HouseID != "" {
		if oh := s.Houses[offer.HouseID]; oh != nil && oh.HeadID != "" {
			s.adjustRelation(head.ID, oh.HeadID, offer.RelDelta, offer.RelDelta/2, -1)
		}
	}
	s.Flags.Modifiers.BirthBonus += 0.1
	rep.note("a marriage is sealed with house %s (dowry %+d coin)", offer.HouseName, offer.Dowry)
}

// applyObligations pays arrears before current dues, coin before bushels
// within each category, then walks the war-levy ladder.
func (s *RunState) applyObligations(d *ObligationsDecision, rep *TurnReport) {
	if d == nil {
		return
	}
	m := &s.Manor
	o := &m.Obligations

	if d.PayCoin > 0 {
		pay := min(d.PayCoin, m.Coin)
		if pay < d.PayCoin {
			rep.note("coin payment trimmed to %d (treasury)", pay)
		}
		toArrears := min(pay, o.ArrearsCoin)
		o.ArrearsCoin -= toArrears
		pay -= toArrears
		toDues := min(pay, o.TaxCoinDue)
		o.TaxCoinDue -= toDues
		pay -= toDues
		m.Coin -= toArrears + toDues
	}
	if d.PayBushels > 0 {
		pay := min(d.PayBushels, m.Bushels)
		if pay < d.PayBushels {
			rep.note("tithe payment trimmed to %d bushels (stores)", pay)
		}
		toArrears := min(pay, o.ArrearsBushels)
		o.ArrearsBushels -= toArrears
		pay -= toArrears
		toDues := min(pay, o.TitheBushelsDue)
		o.TitheBushelsDue -= toDues
		m.Bushels -= toArrears + toDues
	}

	if o.WarLevy != nil {
		s.resolveWarLevy(d.WarLevyCoin, rep)
	}
}

// resolveWarLevy: full coin satisfies the levy; partial coin triggers a
// proportional men-fallback when enough farmers remain; anything less is an
// explicit refusal with the heavier relationship penalty.
func (s *RunState) resolveWarLevy(coinOffered int, rep *TurnReport) {
	m := &s.Manor
	levy := m.Obligations.WarLevy
	liege := s.Locals.LiegeID
	headID := ""
	if head := s.Head(); head != nil {
		headID = head.ID
	}

	paid := min(coinOffered, m.Coin)
	switch {
	case paid >= levy.CoinOption:
		m.Coin -= levy.CoinOption
		rep.note("the war levy is bought off for %d coin", levy.CoinOption)
		if liege != "" && headID != "" {
			s.adjustRelation(headID, liege, 2, 2, -2)
		}
	default:
		// Men cover whatever the coin did not.
		frac := 1.0
		if levy.CoinOption > 0 {
			frac = 1.0 - float64(paid)/float64(levy.CoinOption)
		}
		men := int(float64(levy.MenRequired)*frac + 0.999)
		if men <= m.Farmers {
			m.Coin -= paid
			m.Farmers -= men
			m.Population -= men
			rep.note("%d men march to the liege's banner (and %d coin besides)", men, paid)
			if liege != "" && headID != "" {
				s.adjustRelation(headID, liege, 1, 2, -1)
			}
		} else {
			rep.note("the war levy is refused: neither coin nor men could be raised")
			if liege != "" && headID != "" {
				s.adjustRelation(headID, liege, -8, -5, 5)
			}
		}
	}
	m.Obligations.WarLevy = nil
}

// closeTurn finishes the commit: arrears roll, relationship reactions,
// unrest decay, succession, the final dispossession gate, and the turn
// increment.
func (s *RunState) closeTurn(rep *TurnReport) {
	m := &s.Manor
	o := &m.Obligations

	// Unpaid current dues become arrears.
	o.ArrearsCoin += o.TaxCoinDue
	o.ArrearsBushels += o.TitheBushelsDue
	o.TaxCoinDue, o.TitheBushelsDue = 0, 0

	cleared := o.ArrearsCoin == 0 && o.ArrearsBushels == 0
	headID := ""
	if head := s.Head(); head != nil {
		headID = head.ID
	}
	if headID != "" {
		if s.Locals.LiegeID != "" {
			if cleared {
				s.adjustRelation(headID, s.Locals.LiegeID, 1, 1, 0)
			} else {
				s.adjustRelation(headID, s.Locals.LiegeID, -2, -2, 1)
			}
		}
		if s.Locals.ClergyID != "" {
			if o.ArrearsBushels == 0 {
				s.adjustRelation(headID, s.Locals.ClergyID, 1, 1, 0)
			} else {
				s.adjustRelation(headID, s.Locals.ClergyID, -2, -1, 0)
			}
		}
	}

	// Unrest settles only in a quiet, solvent turn.
	if !m.Shortage && cleared {
		decay := s.Tuning.UnrestDecay
		if s.HasImprovement(ImpChapel) {
			decay += 2
		}
		m.Unrest -= decay
	}

	// Shortage is per-turn; transient modifiers survive the close so the
	// next turn's pipeline can consume them. Each is cleared where it is
	// read, never earlier.
	m.Shortage = false

	s.resolveSuccession(rep)

	if s.Active() && m.Unrest >= 100 {
		s.GameOver = &GameOver{Reason: GameOverDispossessed, Turn: s.Turn}
		rep.note("unrest has boiled over; the family is dispossessed")
	}

	s.normalize()
	if s.Active() {
		s.Turn++
		s.expireReservations()
	}
}

// resolveSuccession promotes the heir when the head died this turn, or ends
// the run when no heir can be computed.
func (s *RunState) resolveSuccession(rep *TurnReport) {
	h := s.PlayerHouse()
	if h == nil {
		return
	}
	head := s.People[h.HeadID]
	if head == nil || head.Alive {
		return
	}

	heirID := s.computeHeir()
	if heirID == "" {
		s.GameOver = &GameOver{Reason: GameOverDeathNoHeir, Turn: s.Turn}
		rep.note("%s died with no heir; the line is ended", head.Name)
		return
	}
	heir := s.People[heirID]

	// The prior spouse stays at court as a widow.
	priorSpouse := h.SpouseID
	h.HeadID = heirID
	h.HeirID = ""
	h.ChildIDs = removeID(h.ChildIDs, heirID)

	if sid := s.Registry.SpouseID(heirID); sid != "" {
		h.SpouseID = sid
		h.SpouseStatus = people.SpouseStatusSpouse
		if priorSpouse != "" && priorSpouse != sid {
			h.CourtExtras = append(h.CourtExtras, priorSpouse)
		}
	} else if priorSpouse != "" {
		if sp := s.People[priorSpouse]; sp != nil && sp.Alive {
			h.SpouseID = priorSpouse
			h.SpouseStatus = people.SpouseStatusWidow
		} else {
			h.SpouseID = ""
			h.SpouseStatus = ""
		}
	} else {
		h.SpouseID = ""
		h.SpouseStatus = ""
	}

	rep.HouseLog = append(rep.HouseLog, court.LogEvent{Kind: "succession", PersonID: heirID})
	rep.note("%s succeeds %s as head of the house", heir.Name, head.Name)
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, x := range ids {
		if x != id {
			out = append(out, x)
		}
	}
	return out
}
