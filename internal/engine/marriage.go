package engine

import (
	"fmt"
	"sort"

	"github.com/talgya/demesne/internal/people"
	"github.com/talgya/demesne/internal/rng"
)

// MarriageOffer is one suitor proposal in the marriage window.
type MarriageOffer struct {
	ID          string `json:"id"`
	HouseID     string `json:"house_id,omitempty"`
	HouseName   string `json:"house_name"`
	CandidateID string `json:"candidate_id,omitempty"`
	Dowry       int    `json:"dowry"` // negative means the player pays
	RelDelta    int    `json:"relationship_delta"`
	Risk        string `json:"risk"`
}

// MarriageWindow opens when an unmarried household child has come of age.
// Offers expire; unresolved candidates stay reserved until the stated turn.
type MarriageWindow struct {
	ChildID     string          `json:"child_id"`
	Offers      []MarriageOffer `json:"offers"`
	ExpiresTurn int             `json:"expires_turn"`
}

// reservationTTL is how many turns an unresolved prospect locks its
// candidate.
const reservationTTL = 2

var riskNotes = []string{
	"an old feud with their neighbors",
	"debts rumored against the estate",
	"a contested claim in their line",
	"no notable entanglements",
}

// marriageEligibleChild returns the eldest unmarried living household child
// aged 15+, or nil.
func (s *RunState) marriageEligibleChild() *people.Person {
	h := s.PlayerHouse()
	if h == nil {
		return nil
	}
	var best *people.Person
	for _, cid := range h.ChildIDs {
		p := s.People[cid]
		if p == nil || !p.Alive || p.Married || p.Age < 15 {
			continue
		}
		if best == nil || p.Age > best.Age || (p.Age == best.Age && p.ID < best.ID) {
			best = p
		}
	}
	return best
}

// buildMarriageWindow generates 2–3 offers for the eligible child, or nil
// when no child qualifies. Candidates under an active reservation are never
// offered.
func (s *RunState) buildMarriageWindow() *MarriageWindow {
	child := s.marriageEligibleChild()
	if child == nil {
		return nil
	}
	r := rng.New(s.Seed, StreamMarriage, s.Turn, "window."+child.ID)
	n := r.Fork("count").Int(2, 3)

	candidates := s.offerCandidates(child)
	w := &MarriageWindow{ChildID: child.ID, ExpiresTurn: s.Turn + reservationTTL}
	used := map[string]bool{}

	// The scouting modifier is spent by this window; it waits untouched
	// while no child is eligible.
	quality := s.Flags.Modifiers.OfferQualityBonus
	s.Flags.Modifiers.OfferQualityBonus = 0
	for i := 0; i < n; i++ {
		or := r.Fork(fmt.Sprintf("offer.%d", i))
		offer := MarriageOffer{ID: fmt.Sprintf("offer_%d_%d", s.Turn, i)}

		// Prefer a real registered candidate; fall back to a synthesized
		// house when the registries are too thin (bare legacy states).
		var pick *people.Person
		for _, c := range candidates {
			if !used[c.ID] {
				pick = c
				break
			}
		}
		if pick != nil {
			used[pick.ID] = true
			offer.CandidateID = pick.ID
			offer.HouseID = pick.HouseID
			if h := s.Houses[pick.HouseID]; h != nil && h.Name != "" {
				offer.HouseName = h.Name
			} else {
				offer.HouseName = people.HouseNameFor(pick.HouseID)
			}
		} else {
			hid := fmt.Sprintf("h_offer_%d_%d", s.Turn, i)
			offer.HouseID = hid
			offer.HouseName = people.HouseNameFor(hid)
		}

		offer.Dowry = or.Fork("dowry").Int(-30, 60) + int(quality*20)
		offer.RelDelta = or.Fork("rel").Int(2, 8)
		offer.Risk = rng.MustPick(or.Fork("risk"), riskNotes)
		w.Offers = append(w.Offers, offer)
	}
	return w
}

// offerCandidates collects registered, unreserved, compatible candidates for
// the child, in a stable order.
func (s *RunState) offerCandidates(child *people.Person) []*people.Person {
	playerHouse := s.PlayerHouseID
	var out []*people.Person
	for _, pid := range s.SortedPersonIDs() {
		p := s.People[pid]
		if p == nil || !p.Alive || p.Married || p.Sex == "" || p.Sex == child.Sex {
			continue
		}
		if p.HouseID == "" || p.HouseID == playerHouse {
			continue
		}
		if exp, ok := s.Flags.Reservations[pid]; ok && exp > s.Turn {
			continue
		}
		if p.Age < 15 || p.Age > child.Age+10 || p.Age < child.Age-10 {
			continue
		}
		if s.Registry.CloseKin(child.ID, pid) {
			continue
		}
		if s.Registry.SpouseID(pid) != "" {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// reserveWindowCandidates records reservations for every offered candidate.
// Called on commit when the window goes unresolved; resolution (accept or
// reject_all) clears them instead.
func (s *RunState) reserveWindowCandidates(w *MarriageWindow) {
	if w == nil {
		return
	}
	if s.Flags.Reservations == nil {
		s.Flags.Reservations = map[string]int{}
	}
	for _, o := range w.Offers {
		if o.CandidateID != "" {
			s.Flags.Reservations[o.CandidateID] = w.ExpiresTurn
		}
	}
}

// clearWindowReservations resolves every offer in the window.
func (s *RunState) clearWindowReservations(w *MarriageWindow) {
	if w == nil || s.Flags.Reservations == nil {
		return
	}
	for _, o := range w.Offers {
		if o.CandidateID != "" {
			delete(s.Flags.Reservations, o.CandidateID)
		}
	}
}

// expireReservations drops reservations whose expiry has passed.
func (s *RunState) expireReservations() {
	for pid, exp := range s.Flags.Reservations {
		if exp <= s.Turn {
			delete(s.Flags.Reservations, pid)
		}
	}
}
