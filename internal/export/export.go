package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/five82/galley/internal/grid"
)

const (
	dirtyFill  = "FFF2CC"
	newFill    = "E2EFDA"
	headerFill = "D9E1F2"
	maxSheet   = 31
)

// Sheet is one grid's rows as they stand in the editor.
type Sheet struct {
	Name     string
	Schema   grid.Schema
	Original []grid.Row
	Working  []grid.Row
}

// Pending counts the working rows a save would send.
func (s Sheet) Pending() int {
	return len(grid.BuildChangeSet(s.Original, s.Working, s.Schema))
}

// Write saves sheets to an xlsx workbook at path. Dirty cells are filled
// yellow, cells of rows the server has never seen green.
func Write(path string, sheets ...Sheet) error {
	if len(sheets) == 0 {
		return fmt.Errorf("export: no sheets")
	}
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	styles, err := newStyles(f)
	if err != nil {
		return err
	}

	used := make(map[string]int)
	for i, sh := range sheets {
		name := sheetName(sh.Name, used)
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
				return fmt.Errorf("export: rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("export: new sheet %s: %w", name, err)
		}
		if err := writeSheet(f, name, sh, styles); err != nil {
			return fmt.Errorf("export: sheet %s: %w", name, err)
		}
	}
	f.SetActiveSheet(0)

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("export: mkdir: %w", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("export: save %s: %w", path, err)
	}
	return nil
}

type styleSet struct {
	header, dirty, fresh int
}

func newStyles(f *excelize.File) (styleSet, error) {
	var s styleSet
	var err error
	if s.header, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{headerFill}},
	}); err != nil {
		return s, fmt.Errorf("export: header style: %w", err)
	}
	if s.dirty, err = f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{dirtyFill}},
	}); err != nil {
		return s, fmt.Errorf("export: dirty style: %w", err)
	}
	if s.fresh, err = f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{newFill}},
	}); err != nil {
		return s, fmt.Errorf("export: new-row style: %w", err)
	}
	return s, nil
}

func writeSheet(f *excelize.File, name string, sh Sheet, styles styleSet) error {
	fields := sh.Schema.Fields
	header := make([]any, len(fields))
	for i, field := range fields {
		header[i] = field.DisplayLabel()
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		width := float64(field.Width) + 2
		if width < 8 {
			width = 8
		}
		if err := f.SetColWidth(name, col, col, width); err != nil {
			return err
		}
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return err
	}
	if len(fields) > 0 {
		last, err := excelize.CoordinatesToCellName(len(fields), 1)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(name, "A1", last, styles.header); err != nil {
			return err
		}
	}

	index := grid.Index(sh.Original, sh.Schema)
	pending := 0
	for r, row := range sh.Working {
		excelRow := r + 2
		values := make([]any, len(fields))
		for c, field := range fields {
			values[c] = cellValue(row[field.Name], field.Kind)
		}
		start, err := excelize.CoordinatesToCellName(1, excelRow)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(name, start, &values); err != nil {
			return err
		}

		orig := grid.Match(sh.Original, index, row, sh.Schema)
		dirty := grid.DirtyFields(orig, row, sh.Schema)
		if len(dirty) > 0 {
			pending++
		}
		for c, field := range fields {
			style := 0
			switch {
			case orig == nil && len(dirty) > 0:
				style = styles.fresh
			case contains(dirty, field.Name):
				style = styles.dirty
			}
			if style == 0 {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, excelRow)
			if err != nil {
				return err
			}
			if err := f.SetCellStyle(name, cell, cell, style); err != nil {
				return err
			}
		}
	}

	summary, err := excelize.CoordinatesToCellName(1, len(sh.Working)+3)
	if err != nil {
		return err
	}
	return f.SetCellValue(name, summary, fmt.Sprintf("%d row(s) with unsaved changes", pending))
}

func cellValue(v any, kind grid.Kind) any {
	if kind == grid.KindNumeric {
		if grid.IsBlank(v, grid.KindText) {
			return nil
		}
		return grid.NormalizeNumeric(v)
	}
	return grid.NormalizeText(v)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// sheetName makes name a valid, unique worksheet name.
func sheetName(name string, used map[string]int) string {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	if clean == "" {
		clean = "Sheet"
	}
	if r := []rune(clean); len(r) > maxSheet {
		clean = string(r[:maxSheet])
	}
	key := strings.ToLower(clean)
	used[key]++
	if n := used[key]; n > 1 {
		suffix := fmt.Sprintf(" (%d)", n)
		r := []rune(clean)
		if len(r)+len(suffix) > maxSheet {
			r = r[:maxSheet-len(suffix)]
		}
		clean = string(r) + suffix
	}
	return clean
}
