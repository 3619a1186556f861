// Package ui is the Bubble Tea front end for editing grids.
//
// The root Model has three screens: a picker listing the configured grids,
// the editor for one open grid, and the application log. Modals (the filter
// form) and the help overlay sit on top of whichever screen is active.
//
// The editor never mutates rows itself. Each edit goes through the grid's
// controller.Controller, and what is drawn comes from controller.View, so
// dirty and new-row highlighting is always the reconciler's verdict. Fetches
// and saves run as tea.Cmds; their results arrive as fetchDoneMsg and
// saveDoneMsg and carry the grid name so that a reply for a grid that has
// since been closed is ignored.
//
// A tick re-reads the view once a second so phase changes made by a
// background request show up without a keypress.
package ui
