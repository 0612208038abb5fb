package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAppliesOverridesOnDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	yaml := "yield_per_farmer: 60\nmarriage_rate: 0.4\ntier1_institution_cap: 99\n"
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.YieldPerFarmer != 60 {
		t.Fatalf("YieldPerFarmer = %v", c.YieldPerFarmer)
	}
	if c.MarriageRate != 0.4 {
		t.Fatalf("MarriageRate = %v", c.MarriageRate)
	}
	// Untouched knobs keep their defaults.
	if c.TurnYears != 3 || c.BushelsPerPersonYear != 12 {
		t.Fatalf("defaults lost: %+v", c)
	}
	// Overrides past the hard bound are clamped.
	if c.Tier1InstitutionCap != Tier1InstitutionHardMax {
		t.Fatalf("Tier1InstitutionCap = %d", c.Tier1InstitutionCap)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestClampRepairsNonsense(t *testing.T) {
	c := Config{TurnYears: -1, Tier1HouseCap: 0, Tier1InstitutionCap: -5}
	c.Clamp()
	if c.TurnYears != 3 || c.Tier1HouseCap != 160 || c.Tier1InstitutionCap != 18 {
		t.Fatalf("clamp produced %+v", c)
	}
}
