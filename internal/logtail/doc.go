// Package logtail reads the end of the application log and parses its zap
// JSON lines for the in-app log view.
//
// Read keeps a ring buffer of the last maxLines lines, so memory stays
// bounded by the tail size rather than the file size. A missing file is not
// an error; it just has no lines yet.
//
// Parse never fails. Lines that are not JSON objects, such as a panic trace
// written to the same file, come back with Raw set and the rest empty.
package logtail
