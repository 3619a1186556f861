// Package logging builds the application's zap logger. The terminal belongs
// to the TUI, so logs go to a JSON file under the data directory where the
// in-app log view reads them back.
package logging
