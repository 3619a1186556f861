package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which compact mode is used.
	LayoutCompactWidth = 100
)

// Grid layout.
const (
	// gutterWidth holds the row number and the new/dirty marker.
	gutterWidth = 6

	// defaultColumnWidth applies when a field declares no width.
	defaultColumnWidth = 12

	// minColumnWidth is the narrowest a column is ever drawn.
	minColumnWidth = 4

	// chromeHeight covers header, command bar and status line.
	chromeHeight = 3
)

// Log display limits.
const (
	// LogBufferLimit is the maximum number of log lines to keep in memory.
	LogBufferLimit = 2000
)

// Timing constants.
const (
	// DefaultUIInterval is the default UI refresh interval.
	DefaultUIInterval = time.Second
)

// contentHeight is the height left for the active screen's box.
func (m Model) contentHeight() int {
	return maxInt(m.height-chromeHeight, 3)
}

// tableHeight is the number of data rows visible in the editor box, after
// borders and the column header row.
func (m Model) tableHeight() int {
	return maxInt(m.contentHeight()-3, 1)
}
