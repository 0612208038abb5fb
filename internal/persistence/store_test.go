package persistence

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/talgya/demesne/internal/engine"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestRunRoundTrip(t *testing.T) {
	st := openTestStore(t)
	s := engine.NewRun("store_1")

	id, err := st.CreateRun(s, "default")
	if err != nil {
		t.Fatal(err)
	}

	got, err := st.LoadRun(id)
	if err != nil {
		t.Fatal(err)
	}
	a, _ := engine.EncodeState(s)
	b, _ := engine.EncodeState(got)
	if string(a) != string(b) {
		t.Fatal("loaded state differs from stored state")
	}
}

func TestSaveRunAdvances(t *testing.T) {
	st := openTestStore(t)
	s := engine.NewRun("store_2")
	id, err := st.CreateRun(s, "")
	if err != nil {
		t.Fatal(err)
	}

	s = engine.ApplyDecisions(s, engine.Decisions{})
	if err := st.SaveRun(id, s); err != nil {
		t.Fatal(err)
	}

	got, err := st.LoadRun(id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Turn != 1 || len(got.Log) != 1 {
		t.Fatalf("turn = %d, log = %d; want 1, 1", got.Turn, len(got.Log))
	}

	runs, err := st.ListRuns()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].ID != id || runs[0].Turn != 1 {
		t.Fatalf("list = %+v", runs)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	st := openTestStore(t)
	s := engine.NewRun("store_3")
	id, err := st.CreateRun(s, "")
	if err != nil {
		t.Fatal(err)
	}

	s = engine.ApplyDecisions(s, engine.Decisions{})
	if err := st.SaveSnapshot(id, s.Log[0]); err != nil {
		t.Fatal(err)
	}

	snap, err := st.LoadSnapshot(id, 0)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Turn != s.Turn {
		t.Fatalf("snapshot turn = %d, want %d", snap.Turn, s.Turn)
	}
	if snap.Log != nil {
		t.Fatal("snapshot carries a log")
	}
}

func TestMissingRun(t *testing.T) {
	st := openTestStore(t)
	if _, err := st.LoadRun("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := st.SaveRun("nope", engine.NewRun("x")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("save err = %v, want ErrNotFound", err)
	}
}
