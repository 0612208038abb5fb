package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/talgya/demesne/internal/people"
	"github.com/talgya/demesne/internal/tuning"
)

// legacyHousehold is the pre-registry save shape, where the player family
// lived inside the household object instead of the people registry.
type legacyHousehold struct {
	Head         *people.Person   `json:"head"`
	Spouse       *people.Person   `json:"spouse"`
	SpouseStatus string           `json:"spouse_status"`
	Children     []*people.Person `json:"children"`
	Energy       int              `json:"energy"`
	MaxEnergy    int              `json:"max_energy"`
}

// DecodeState parses a serialized run. Both the current People-First shape
// and the legacy embedded-household shape are accepted; legacy saves are
// migrated in place, and migrating an already-migrated save is a no-op.
func DecodeState(data []byte) (*RunState, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}

	s := &RunState{}
	if err := json.Unmarshal(data, s); err != nil {
		// Legacy saves hold persons where newer shapes hold scalars; type
		// mismatches are tolerated, anything else is a real decode failure.
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			return nil, fmt.Errorf("decode state: %w", err)
		}
	}

	legacy := probeLegacyHousehold(raw)
	if legacy != nil {
		s.EnsurePeopleFirst(people.LegacyHousehold{
			Head:         legacy.Head,
			Spouse:       legacy.Spouse,
			SpouseStatus: legacy.SpouseStatus,
			Children:     legacy.Children,
			Locals:       probeLegacyLocals(raw, s),
		})
		if legacy.Energy > 0 || legacy.MaxEnergy > 0 {
			s.Household.Energy = legacy.Energy
			s.Household.MaxEnergy = legacy.MaxEnergy
		}
	}

	if s.Household.MaxEnergy <= 0 {
		s.Household.MaxEnergy = 3
		if s.Household.Energy <= 0 {
			s.Household.Energy = 3
		}
	}
	if s.Tuning.TurnYears == 0 {
		s.Tuning = tuning.Defaults()
	}
	s.Tuning.Clamp()
	if s.Flags.IDAlloc.Prefix == "" {
		s.Flags.IDAlloc = people.InferIDAlloc(&s.Registry)
	}
	s.normalize()
	return s, nil
}

// EncodeState serializes a run for storage.
func EncodeState(s *RunState) ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return b, nil
}

// probeLegacyHousehold reports the legacy household payload, or nil when the
// household object carries no family members (the current shape).
func probeLegacyHousehold(raw map[string]json.RawMessage) *legacyHousehold {
	hh, ok := raw["household"]
	if !ok {
		return nil
	}
	var legacy legacyHousehold
	if err := json.Unmarshal(hh, &legacy); err != nil {
		return nil
	}
	if legacy.Head == nil && legacy.Spouse == nil && len(legacy.Children) == 0 {
		return nil
	}
	return &legacy
}

// probeLegacyLocals handles the old locals shape, a bare person array. The
// parsed persons feed migration, and the recognizable ids (local nobles,
// liege, clergy) rebuild the typed locals field, which a mismatched decode
// above will have left empty.
func probeLegacyLocals(raw map[string]json.RawMessage, s *RunState) []*people.Person {
	lr, ok := raw["locals"]
	if !ok {
		return nil
	}
	var persons []*people.Person
	if err := json.Unmarshal(lr, &persons); err != nil || len(persons) == 0 {
		return nil
	}
	if s.Locals.LiegeID != "" || s.Locals.ClergyID != "" || len(s.Locals.NobleIDs) > 0 {
		return persons
	}
	for _, p := range persons {
		if p == nil {
			continue
		}
		switch {
		case people.IsLocalNobleID(p.ID):
			s.Locals.NobleIDs = append(s.Locals.NobleIDs, p.ID)
		case strings.HasSuffix(p.ID, "liege") && s.Locals.LiegeID == "":
			s.Locals.LiegeID = p.ID
		case (strings.HasSuffix(p.ID, "clergy") || strings.HasSuffix(p.ID, "priest")) &&
			s.Locals.ClergyID == "":
			s.Locals.ClergyID = p.ID
		}
	}
	return persons
}
