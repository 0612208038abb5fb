package policy

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/talgya/demesne/internal/engine"
)

func TestResolve(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"default", PrudentBuilder},
		{"", PrudentBuilder},
		{PrudentBuilder, PrudentBuilder},
		{MarketOpportunist, MarketOpportunist},
		{SteadySteward, SteadySteward},
	}
	for _, c := range cases {
		got, err := Resolve(c.in)
		if err != nil || got != c.want {
			t.Fatalf("Resolve(%q) = %q, %v; want %q", c.in, got, err, c.want)
		}
	}
	if _, err := Resolve("berserker"); !errors.Is(err, ErrUnknownPolicy) {
		t.Fatalf("Resolve(berserker) err = %v, want ErrUnknownPolicy", err)
	}
}

func TestSanitize(t *testing.T) {
	if got := Sanitize("a/b/c"); got != "a__b__c" {
		t.Fatalf("Sanitize = %q", got)
	}
	if got := Sanitize(PrudentBuilder); got != PrudentBuilder {
		t.Fatalf("Sanitize left canonical id alone: %q", got)
	}
}

func TestDecideIsPureAndDeterministic(t *testing.T) {
	s := engine.NewRun("pol_1")
	ctx := engine.ProposeTurn(s)
	before, _ := json.Marshal(s)

	d1, err := Decide(PrudentBuilder, s, ctx)
	if err != nil {
		t.Fatal(err)
	}
	d2, _ := Decide(PrudentBuilder, s, ctx)

	a, _ := json.Marshal(d1)
	b, _ := json.Marshal(d2)
	if !bytes.Equal(a, b) {
		t.Fatal("same preview produced different decisions")
	}
	after, _ := json.Marshal(s)
	if !bytes.Equal(before, after) {
		t.Fatal("Decide mutated the state")
	}
}

func TestPoliciesSettleObligations(t *testing.T) {
	s := engine.NewRun("pol_2")
	ctx := engine.ProposeTurn(s)
	for _, id := range IDs() {
		d, err := Decide(id, s, ctx)
		if err != nil {
			t.Fatal(err)
		}
		if d.Obligations == nil {
			t.Fatalf("%s left dues unpaid", id)
		}
		due := ctx.Preview.Manor.Obligations
		if d.Obligations.PayCoin < due.TaxCoinDue {
			t.Fatalf("%s pays %d coin of %d due", id, d.Obligations.PayCoin, due.TaxCoinDue)
		}
		if d.Obligations.PayBushels < due.TitheBushelsDue {
			t.Fatalf("%s pays %d bushels of %d due", id, d.Obligations.PayBushels, due.TitheBushelsDue)
		}
	}
}

func TestAutoplaySurvivesTurns(t *testing.T) {
	s := engine.NewRun("pol_3")
	for i := 0; i < 5 && s.Active(); i++ {
		ctx := engine.ProposeTurn(s)
		d, err := Decide(DefaultAlias, s, ctx)
		if err != nil {
			t.Fatal(err)
		}
		s = engine.ApplyDecisions(s, d)
	}
	if s.Turn == 0 && s.Active() {
		t.Fatal("autoplay never advanced the turn")
	}
	if s.Active() && len(s.Log) != s.Turn {
		t.Fatalf("log length %d != turn %d", len(s.Log), s.Turn)
	}
}
