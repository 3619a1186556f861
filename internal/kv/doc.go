// Package kv persists small pieces of session state: the API token and the
// last filter used on each grid. Memory serves tests; SQLite keeps the data
// in the data directory between runs.
package kv
