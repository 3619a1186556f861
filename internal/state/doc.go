// Package state holds the original and working rows of one editable grid.
//
// # Overview
//
// A Store is the snapshot pair behind a single grid screen. The controller
// writes to it after fetches and saves; the UI reads copies through
// Snapshot on every render.
//
//	Controller:                    UI:
//	┌──────────────────┐          ┌──────────────────┐
//	│ FetchRows()      │          │                  │
//	│ store.Load()     │─────────→│ store.Snapshot() │
//	│ SaveChanges()    │  (mutex) │ render grid      │
//	│ store.Promote()  │          │ store.SetCell()  │
//	└──────────────────┘          └──────────────────┘
//
// # Invariants
//
//   - Immediately after Load, Original and Working are equal and share no
//     references.
//   - Original is never changed by edits; only Load, Promote, PromoteFrom and
//     Clear replace it.
//   - Every read returns a copy, so callers may mutate what they get.
//
// # Error Semantics
//
// Clear empties both sets and records the error (fetch failure). RecordError
// keeps the rows (save failure, so the user keeps their edits).
// ConsecutiveFailures resets on the next successful Load.
//
// The zero value is ready to use. Each grid owns its own Store; nothing is
// shared between grids.
package state
