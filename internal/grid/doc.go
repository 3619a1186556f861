// Package grid implements dirty tracking and partial-save reconciliation for
// editable grids.
//
// # Overview
//
// Every ledger screen in galley is a grid of rows fetched from the backend,
// edited in place and saved back. The package keeps the comparison logic in
// one place so each screen only has to declare its fields:
//
//   - row.go: Row, Field, Kind, Schema, Filter and identity keys
//   - normalize.go: per-kind canonicalization of cell values
//   - reconcile.go: cell-level dirty checks and identity matching
//   - changeset.go: minimal change records for a save request
//
// # Field Kinds
//
// A Schema classifies each field:
//
//   - identity: locates the row; never compared
//   - numeric: "1,000", 1000 and json.Number("1000") are equal; blanks are 0
//   - text: trimmed with internal whitespace collapsed; nil is ""
//
// Classification is configuration. Nothing is inferred from the values.
//
// # Matching
//
// Working rows are matched to original rows by identity, not by position, so
// a server-side reorder cannot produce wrong dirty flags. A working row whose
// identity matches nothing is new; it is saved only if it holds a non-blank
// comparable value.
//
// # Usage Example
//
//	schema := grid.Schema{Name: "meals", Fields: []grid.Field{
//		{Name: "id", Kind: grid.KindIdentity},
//		{Name: "qty", Kind: grid.KindNumeric},
//		{Name: "note", Kind: grid.KindText},
//	}}
//	records := grid.BuildChangeSet(original, working, schema)
//	if len(records) == 0 {
//		// nothing to save
//	}
//
// Every function here is pure. State lives in the state package and request
// sequencing in the controller package.
package grid
