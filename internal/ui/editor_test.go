package ui

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/five82/galley/internal/controller"
	"github.com/five82/galley/internal/grid"
	"github.com/five82/galley/internal/schema"
)

func TestFormatNumber(t *testing.T) {
	tests := map[float64]string{
		0:          "0",
		999:        "999",
		1000:       "1,000",
		-1234567:   "-1,234,567",
		1234.5:     "1,234.5",
		1000000.25: "1,000,000.25",
	}
	for in, want := range tests {
		if got := formatNumber(in); got != want {
			t.Errorf("formatNumber(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestDisplayText(t *testing.T) {
	if got := displayText(nil, grid.KindNumeric); got != "" {
		t.Fatalf("blank numeric = %q, want empty", got)
	}
	if got := displayText(json.Number("12500"), grid.KindNumeric); got != "12,500" {
		t.Fatalf("numeric = %q, want 12,500", got)
	}
	if got := displayText("  two   words ", grid.KindText); got != "two words" {
		t.Fatalf("text = %q", got)
	}
}

func TestParseInput(t *testing.T) {
	v, err := parseInput(" 1,250.5 ", grid.KindNumeric)
	if err != nil || v != 1250.5 {
		t.Fatalf("parseInput numeric = %v, %v", v, err)
	}
	v, err = parseInput("  ", grid.KindNumeric)
	if err != nil || v != "" {
		t.Fatalf("blank numeric = %#v, %v; want empty string", v, err)
	}
	if _, err := parseInput("12abc", grid.KindNumeric); err == nil {
		t.Fatalf("expected error for non-numeric input")
	}
	v, err = parseInput(" Carol ", grid.KindText)
	if err != nil || v != "Carol" {
		t.Fatalf("text = %#v, %v", v, err)
	}
}

func TestEditTextRoundTrips(t *testing.T) {
	if got := editText(json.Number("1500"), grid.KindNumeric); got != "1500" {
		t.Fatalf("editText = %q, want plain digits", got)
	}
	if got := editText(nil, grid.KindNumeric); got != "" {
		t.Fatalf("editText(nil) = %q", got)
	}
}

func TestFilterSummarySkipsBlanks(t *testing.T) {
	got := filterSummary(grid.Filter{"year": "2024", "account": "A100", "month": " "})
	if got != "account=A100 year=2024" {
		t.Fatalf("filterSummary = %q", got)
	}
}

func TestFormatTimestamp(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	if got := formatTimestamp(time.Time{}, now); got != "" {
		t.Fatalf("zero time = %q", got)
	}
	if got := formatTimestamp(now.Add(-10*time.Second), now); got != "11:59:50 (now)" {
		t.Fatalf("recent = %q", got)
	}
	if got := formatTimestamp(now.Add(-5*time.Minute), now); got != "11:55:00 (5m ago)" {
		t.Fatalf("minutes = %q", got)
	}
}

func TestScrollIntoViewFollowsCursor(t *testing.T) {
	set, err := schema.Default()
	if err != nil {
		t.Fatalf("schema.Default: %v", err)
	}
	def, _ := set.Lookup("meals")
	rows := make([]grid.Row, 30)
	for i := range rows {
		rows[i] = grid.Row{"day": i + 1}
	}
	ed := &editorState{def: def, view: controller.View{New: make([]bool, 30)}}
	ed.view.Working = rows

	ed.row = 25
	ed.scrollIntoView(10, 200)
	if ed.rowOffset != 16 {
		t.Fatalf("rowOffset = %d, want 16", ed.rowOffset)
	}
	ed.row = 3
	ed.scrollIntoView(10, 200)
	if ed.rowOffset != 3 {
		t.Fatalf("rowOffset = %d, want 3", ed.rowOffset)
	}

	// Narrow terminal: only a few columns fit, so moving right scrolls.
	ed.col = len(def.Fields) - 1
	ed.scrollIntoView(10, 40)
	cols := ed.visibleColumns(40 - 2 - gutterWidth)
	if cols[len(cols)-1] != ed.col {
		t.Fatalf("visible columns %v do not include cursor %d", cols, ed.col)
	}
	if ed.colOffset == 0 {
		t.Fatalf("expected horizontal scroll")
	}
}

func TestEditableIdentityOnlyOnNewRows(t *testing.T) {
	id := grid.Field{Name: "day", Kind: grid.KindIdentity, ReadOnly: true}
	ed := &editorState{view: controller.View{New: []bool{false, true}}}
	if ed.editable(id) {
		t.Fatalf("identity of a fetched row should be read-only")
	}
	ed.row = 1
	if !ed.editable(id) {
		t.Fatalf("identity of a new row should be editable")
	}
	if !ed.editable(grid.Field{Name: "note"}) {
		t.Fatalf("plain field should be editable")
	}
}
