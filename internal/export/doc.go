// Package export writes grids to an xlsx workbook, one worksheet per grid,
// with unsaved cells highlighted.
package export
