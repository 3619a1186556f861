package ui

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/galley/internal/controller"
	"github.com/five82/galley/internal/grid"
	"github.com/five82/galley/internal/schema"
	"github.com/five82/galley/internal/state"
)

// pendingAction is a destructive action waiting for a second key press.
type pendingAction int

const (
	confirmNone pendingAction = iota
	confirmLeave
	confirmReload
)

// editorState is the open grid: its controller, the last view taken from it
// and the cursor.
type editorState struct {
	def  schema.Definition
	ctl  *controller.Controller
	view controller.View

	row, col             int
	rowOffset, colOffset int

	editing bool
	input   textinput.Model
	confirm pendingAction
}

func (e *editorState) fields() []grid.Field {
	return e.def.Schema().Fields
}

// refresh takes a new view from the controller and keeps the cursor inside it.
func (e *editorState) refresh() {
	e.view = e.ctl.View()
	e.row = clamp(e.row, 0, len(e.view.Working)-1)
	e.col = clamp(e.col, 0, len(e.fields())-1)
}

func (e *editorState) currentField() (grid.Field, bool) {
	fields := e.fields()
	if e.col < 0 || e.col >= len(fields) {
		return grid.Field{}, false
	}
	return fields[e.col], true
}

// editable reports whether the cursor cell accepts input. Identity columns
// are read-only on fetched rows and open on rows the server has not seen.
func (e *editorState) editable(f grid.Field) bool {
	if !f.ReadOnly {
		return true
	}
	return f.Kind == grid.KindIdentity && e.row < len(e.view.New) && e.view.New[e.row]
}

func columnWidth(f grid.Field) int {
	w := f.Width
	if w <= 0 {
		w = defaultColumnWidth
	}
	return maxInt(w, minColumnWidth)
}

// visibleColumns returns the field indexes from colOffset that fit in width.
// At least one column is always returned.
func (e *editorState) visibleColumns(width int) []int {
	fields := e.fields()
	var out []int
	used := 0
	for i := e.colOffset; i < len(fields); i++ {
		w := columnWidth(fields[i]) + 1
		if len(out) > 0 && used+w > width {
			break
		}
		out = append(out, i)
		used += w
	}
	return out
}

// scrollIntoView moves the offsets so the cursor cell is on screen.
func (e *editorState) scrollIntoView(visibleRows, totalWidth int) {
	if e.row < e.rowOffset {
		e.rowOffset = e.row
	}
	if visibleRows > 0 && e.row >= e.rowOffset+visibleRows {
		e.rowOffset = e.row - visibleRows + 1
	}
	e.rowOffset = clamp(e.rowOffset, 0, maxInt(len(e.view.Working)-visibleRows, 0))

	if e.col < e.colOffset {
		e.colOffset = e.col
	}
	width := totalWidth - 2 - gutterWidth
	for e.colOffset < e.col {
		cols := e.visibleColumns(width)
		if len(cols) > 0 && cols[len(cols)-1] >= e.col {
			break
		}
		e.colOffset++
	}
}

func (e *editorState) move(dRow, dCol int) {
	e.row = clamp(e.row+dRow, 0, len(e.view.Working)-1)
	e.col = clamp(e.col+dCol, 0, len(e.fields())-1)
}

func (m Model) handleEditorKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ed := m.editor
	if ed == nil {
		m.screen = screenPicker
		return m, nil
	}

	pending := ed.confirm
	ed.confirm = confirmNone

	switch {
	case key.Matches(msg, m.keys.Back):
		if pending != confirmLeave && ed.view.Pending > 0 {
			ed.confirm = confirmLeave
			return m, nil
		}
		m.closeEditor()
		m.screen = screenPicker
		m.setStatus("")
		return m, nil

	case key.Matches(msg, m.keys.Refetch):
		if pending != confirmReload && ed.view.Pending > 0 {
			ed.confirm = confirmReload
			return m, nil
		}
		m.setStatus("reloading...")
		return m, refetchCmd(m.ctx, ed.def.Name, ed.ctl)

	case key.Matches(msg, m.keys.Save):
		m.setStatus("saving...")
		return m, saveCmd(m.ctx, ed.def.Name, ed.ctl)

	case key.Matches(msg, m.keys.Edit):
		m.startEdit()
		return m, nil

	case key.Matches(msg, m.keys.AddRow):
		m.addRow()
		return m, nil

	case key.Matches(msg, m.keys.Filters):
		m.modal = newFilterModal(ed.def, ed.view.Filter)
		return m, nil

	case key.Matches(msg, m.keys.Export):
		m.setStatus("exporting...")
		return m, exportCmd(m.exportDir, ed.def, ed.view, time.Now())

	case key.Matches(msg, m.keys.Down):
		ed.move(1, 0)
	case key.Matches(msg, m.keys.Up):
		ed.move(-1, 0)
	case key.Matches(msg, m.keys.Right):
		ed.move(0, 1)
	case key.Matches(msg, m.keys.Left):
		ed.move(0, -1)
	case key.Matches(msg, m.keys.Top):
		ed.row = 0
	case key.Matches(msg, m.keys.Bottom):
		ed.move(len(ed.view.Working), 0)
	case key.Matches(msg, m.keys.PageDown):
		ed.move(m.tableHeight(), 0)
	case key.Matches(msg, m.keys.PageUp):
		ed.move(-m.tableHeight(), 0)
	}
	ed.scrollIntoView(m.tableHeight(), m.width)
	return m, nil
}

func (m *Model) startEdit() {
	ed := m.editor
	if len(ed.view.Working) == 0 {
		return
	}
	f, ok := ed.currentField()
	if !ok {
		return
	}
	if !ed.editable(f) {
		m.setError(f.DisplayLabel() + " is read-only")
		return
	}
	ed.input.Width = maxInt(columnWidth(f)-1, 1)
	ed.input.SetValue(editText(ed.view.Working[ed.row][f.Name], f.Kind))
	ed.input.CursorEnd()
	ed.input.Focus()
	ed.editing = true
	m.setStatus("")
}

func (m Model) handleCellEditKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ed := m.editor
	switch msg.String() {
	case "esc":
		ed.editing = false
		ed.input.Blur()
		return m, nil
	case "enter":
		m.commitEdit()
		return m, nil
	case "tab":
		if m.commitEdit() {
			ed.move(0, 1)
			ed.scrollIntoView(m.tableHeight(), m.width)
		}
		return m, nil
	}
	var cmd tea.Cmd
	ed.input, cmd = ed.input.Update(msg)
	return m, cmd
}

// commitEdit writes the input into the cursor cell. It reports false and keeps
// the input open when the value is rejected.
func (m *Model) commitEdit() bool {
	ed := m.editor
	f, ok := ed.currentField()
	if !ok {
		ed.editing = false
		return false
	}
	value, err := parseInput(ed.input.Value(), f.Kind)
	if err != nil {
		m.setError(f.DisplayLabel() + ": " + err.Error())
		return false
	}
	if err := ed.ctl.EditCell(ed.row, f.Name, value); err != nil {
		m.setError(describeError(err))
		return false
	}
	ed.editing = false
	ed.input.Blur()
	ed.refresh()
	m.setStatus("")
	return true
}

// addRow appends a blank row. Fields that are also filter keys start with the
// filter's value so the new row lands in the scope being viewed.
func (m *Model) addRow() {
	ed := m.editor
	row := make(grid.Row)
	for _, f := range ed.fields() {
		if v := strings.TrimSpace(ed.view.Filter[f.Name]); v != "" {
			row[f.Name] = v
		}
	}
	idx, err := ed.ctl.AddRow(row)
	if err != nil {
		m.setError(describeError(err))
		return
	}
	ed.refresh()
	ed.row = idx
	ed.col = 0
	for i, f := range ed.fields() {
		if _, prefilled := row[f.Name]; !prefilled && ed.editable(f) {
			ed.col = i
			break
		}
	}
	ed.scrollIntoView(m.tableHeight(), m.width)
	m.setStatus("row added; fill in the key columns before saving")
}

func (m Model) renderEditor() string {
	ed := m.editor
	styles := m.theme.Styles().WithBackground(m.theme.FocusBg)
	base := m.theme.Styles()
	innerWidth := maxInt(m.width-2, 0)
	fields := ed.fields()
	cols := ed.visibleColumns(innerWidth - gutterWidth)

	var lines []string

	var header strings.Builder
	header.WriteString(styles.FaintText.Render(padRight("#", gutterWidth)))
	for _, i := range cols {
		f := fields[i]
		label := truncate(f.DisplayLabel(), columnWidth(f))
		if f.Kind == grid.KindNumeric {
			label = padLeft(label, columnWidth(f))
		} else {
			label = padRight(label, columnWidth(f))
		}
		header.WriteString(styles.ColumnHeader.Render(label))
		header.WriteString(styles.Text.Render(" "))
	}
	lines = append(lines, header.String())

	v := ed.view
	switch {
	case len(v.Working) == 0 && v.Phase == state.PhaseLoading:
		lines = append(lines, styles.MutedText.Render("Loading..."))
	case len(v.Working) == 0 && v.LastError != nil:
		lines = append(lines, styles.DangerText.Render("No data: "+describeError(v.LastError)))
	case len(v.Working) == 0:
		lines = append(lines, styles.MutedText.Render("No rows for this filter. Press a to add one."))
	}

	end := minInt(ed.rowOffset+m.tableHeight(), len(v.Working))
	for r := ed.rowOffset; r < end; r++ {
		var line strings.Builder
		marker := " "
		switch {
		case v.New[r]:
			marker = "+"
		case len(v.Dirty[r]) > 0:
			marker = "*"
		}
		gutter := padRight(fmt.Sprintf("%4d%s", r+1, marker), gutterWidth)
		if marker == " " {
			line.WriteString(styles.FaintText.Render(gutter))
		} else {
			line.WriteString(styles.WarningText.Render(gutter))
		}

		for _, c := range cols {
			f := fields[c]
			width := columnWidth(f)
			cursor := r == ed.row && c == ed.col

			if cursor && ed.editing {
				line.WriteString(base.Selected.Render(padRight(ed.input.View(), width)))
				line.WriteString(styles.Text.Render(" "))
				continue
			}

			text := truncate(displayText(v.Working[r][f.Name], f.Kind), width)
			if f.Kind == grid.KindNumeric {
				text = padLeft(text, width)
			} else {
				text = padRight(text, width)
			}
			switch {
			case cursor:
				line.WriteString(base.Selected.Render(text))
			case v.IsDirty(r, f.Name):
				line.WriteString(base.DirtyCell.Render(text))
			case v.New[r]:
				line.WriteString(base.NewCell.Render(text))
			case f.ReadOnly:
				line.WriteString(styles.MutedText.Render(text))
			default:
				line.WriteString(styles.Text.Render(text))
			}
			line.WriteString(styles.Text.Render(" "))
		}
		lines = append(lines, line.String())
	}

	title := ed.def.DisplayTitle()
	if n := len(v.Working); n > 0 {
		title = fmt.Sprintf("%s  %d/%d", title, ed.row+1, n)
	}
	if len(cols) > 0 && (cols[0] > 0 || cols[len(cols)-1] < len(fields)-1) {
		title += fmt.Sprintf("  cols %d-%d/%d", cols[0]+1, cols[len(cols)-1]+1, len(fields))
	}
	return m.renderTitledBox(title, strings.Join(lines, "\n"), m.width, m.contentHeight(), true)
}

// displayText formats a cell for the grid. Numbers get thousands separators;
// a blank numeric cell stays blank rather than showing 0.
func displayText(v any, kind grid.Kind) string {
	if kind != grid.KindNumeric {
		return grid.NormalizeText(v)
	}
	if grid.NormalizeText(v) == "" {
		return ""
	}
	return formatNumber(grid.NormalizeNumeric(v))
}

// editText is the starting text of the cell editor.
func editText(v any, kind grid.Kind) string {
	if kind != grid.KindNumeric {
		return grid.NormalizeText(v)
	}
	if grid.NormalizeText(v) == "" {
		return ""
	}
	return strconv.FormatFloat(grid.NormalizeNumeric(v), 'f', -1, 64)
}

// parseInput converts editor text into a cell value. Numeric cells accept
// thousands separators and reject anything else that does not parse.
func parseInput(s string, kind grid.Kind) (any, error) {
	s = strings.TrimSpace(s)
	if kind != grid.KindNumeric {
		return s, nil
	}
	if s == "" {
		return "", nil
	}
	clean := strings.NewReplacer(",", "", " ", "").Replace(s)
	f, err := strconv.ParseFloat(clean, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%q is not a number", s)
	}
	return f, nil
}

func formatNumber(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	intPart, frac, hasFrac := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String()
	if hasFrac {
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}
