// Package controller sequences fetches and saves for one editable grid.
//
// A Controller owns a state.Store and a DataSource. It moves through three
// phases:
//
//	Idle ──SetFilter/Refetch──▶ Loading ──response──▶ Idle
//	Idle ──Save──▶ Saving ──response──▶ Idle (or Loading under SaveRefetch)
//
// Only one request is outstanding per grid. A new filter supersedes a fetch
// in flight: the old request's context is cancelled and a generation token
// makes sure its response, should one still arrive, never reaches the store.
// A save requested while a fetch or save is outstanding, or a fetch requested
// while a save is outstanding, returns ErrBusy.
//
// Failures never escape as panics. Fetch failures clear the grid and record
// the error; save failures keep both row sets untouched so no edit is lost.
// An empty change set is reported as OutcomeNoChanges without a request.
//
// Close is called when a grid leaves the screen. Requests in flight are
// abandoned and their responses dropped.
package controller
