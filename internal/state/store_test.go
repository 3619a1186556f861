package state

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/five82/galley/internal/grid"
)

func sampleRows() []grid.Row {
	return []grid.Row{
		{"id": 1, "qty": "10", "note": "a"},
		{"id": 2, "qty": "20", "note": "b"},
	}
}

func TestStore_LoadCopiesIndependently(t *testing.T) {
	var s Store
	rows := sampleRows()

	before := time.Now()
	s.Load(rows, grid.Filter{"account": "A1"})

	// Mutating the input must not leak in.
	rows[0]["qty"] = "999"

	orig, work := s.Pair()
	if orig[0]["qty"] != "10" || work[0]["qty"] != "10" {
		t.Fatalf("Load kept a reference to the input: orig=%v work=%v", orig[0], work[0])
	}

	if err := s.SetCell(0, "qty", "11"); err != nil {
		t.Fatalf("SetCell returned error: %v", err)
	}
	if got := s.Original()[0]["qty"]; got != "10" {
		t.Fatalf("editing working changed original: qty = %v, want 10", got)
	}
	if got := s.Working()[0]["qty"]; got != "11" {
		t.Fatalf("working qty = %v, want 11", got)
	}

	snap := s.Snapshot()
	if snap.LastUpdated.Before(before) {
		t.Fatalf("LastUpdated = %v, want >= %v", snap.LastUpdated, before)
	}
	if snap.Filter["account"] != "A1" {
		t.Fatalf("Filter = %v, want account=A1", snap.Filter)
	}
}

func TestStore_LoadEmpty(t *testing.T) {
	var s Store
	s.Load(nil, nil)
	snap := s.Snapshot()
	if len(snap.Original) != 0 || len(snap.Working) != 0 {
		t.Fatalf("expected empty sets, got %v / %v", snap.Original, snap.Working)
	}
	if !snap.Loaded() {
		t.Fatalf("Loaded() = false after Load")
	}
}

func TestStore_SetCellOutOfRange(t *testing.T) {
	var s Store
	s.Load(sampleRows(), nil)
	if err := s.SetCell(5, "qty", "1"); err == nil {
		t.Fatalf("SetCell(5) returned nil error")
	}
	if err := s.SetCell(-1, "qty", "1"); err == nil {
		t.Fatalf("SetCell(-1) returned nil error")
	}
}

func TestStore_SetCellTouchesOneRow(t *testing.T) {
	var s Store
	s.Load(sampleRows(), nil)
	before := s.Working()

	if err := s.SetCell(1, "note", "z"); err != nil {
		t.Fatalf("SetCell: %v", err)
	}
	after := s.Working()
	if !reflect.DeepEqual(before[0], after[0]) {
		t.Fatalf("row 0 changed: %v -> %v", before[0], after[0])
	}
	if after[1]["note"] != "z" {
		t.Fatalf("row 1 note = %v, want z", after[1]["note"])
	}
}

func TestStore_PromoteAndPromoteFrom(t *testing.T) {
	var s Store
	s.Load(sampleRows(), nil)
	_ = s.SetCell(1, "qty", "25")

	captured := s.Working()
	_ = s.SetCell(1, "qty", "30")

	s.PromoteFrom(captured)
	if got := s.Original()[1]["qty"]; got != "25" {
		t.Fatalf("PromoteFrom original qty = %v, want 25", got)
	}
	if got := s.Working()[1]["qty"]; got != "30" {
		t.Fatalf("PromoteFrom touched working: qty = %v, want 30", got)
	}

	s.Promote()
	orig, work := s.Pair()
	if !reflect.DeepEqual(orig, work) {
		t.Fatalf("after Promote original %v != working %v", orig, work)
	}
	_ = s.SetCell(0, "note", "changed")
	if s.Original()[0]["note"] != "a" {
		t.Fatalf("Promote shares references between original and working")
	}
}

func TestStore_AppendRow(t *testing.T) {
	var s Store
	s.Load(sampleRows(), nil)
	idx := s.AppendRow(grid.Row{"id": 3})
	if idx != 2 {
		t.Fatalf("AppendRow index = %d, want 2", idx)
	}
	if len(s.Original()) != 2 {
		t.Fatalf("AppendRow changed original")
	}
}

func TestStore_ClearRecordsError(t *testing.T) {
	var s Store
	s.Load(sampleRows(), nil)

	origErr := errors.New("boom")
	s.Clear(grid.Filter{"account": "B"}, origErr)

	snap := s.Snapshot()
	if len(snap.Original) != 0 || len(snap.Working) != 0 {
		t.Fatalf("Clear kept rows: %v / %v", snap.Original, snap.Working)
	}
	if snap.LastError == nil || snap.LastError.Error() != "boom" {
		t.Fatalf("LastError = %v, want boom", snap.LastError)
	}
	if reflect.ValueOf(snap.LastError).Pointer() == reflect.ValueOf(origErr).Pointer() {
		t.Fatalf("Snapshot should clone error instance")
	}
	if snap.ConsecutiveFailures != 1 {
		t.Fatalf("ConsecutiveFailures = %d, want 1", snap.ConsecutiveFailures)
	}
}

func TestStore_RecordErrorKeepsRows(t *testing.T) {
	var s Store
	s.Load(sampleRows(), nil)
	_ = s.SetCell(0, "qty", "99")

	s.RecordError(errors.New("save failed"))
	s.RecordError(errors.New("save failed again"))

	snap := s.Snapshot()
	if snap.Working[0]["qty"] != "99" || snap.Original[0]["qty"] != "10" {
		t.Fatalf("RecordError changed rows: %v / %v", snap.Original[0], snap.Working[0])
	}
	if snap.ConsecutiveFailures != 2 {
		t.Fatalf("ConsecutiveFailures = %d, want 2", snap.ConsecutiveFailures)
	}

	s.Load(sampleRows(), nil)
	if got := s.Snapshot().ConsecutiveFailures; got != 0 {
		t.Fatalf("ConsecutiveFailures after Load = %d, want 0", got)
	}
}

func TestStore_NoticeClearsError(t *testing.T) {
	var s Store
	s.RecordError(errors.New("x"))
	s.SetNotice("nothing to save")
	snap := s.Snapshot()
	if snap.LastError != nil || snap.Notice != "nothing to save" {
		t.Fatalf("snapshot = %+v, want notice and no error", snap)
	}
}

func TestPhaseString(t *testing.T) {
	if PhaseIdle.String() != "idle" || PhaseLoading.String() != "loading" || PhaseSaving.String() != "saving" {
		t.Fatalf("unexpected phase labels")
	}
}
