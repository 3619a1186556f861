package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/five82/galley/internal/grid"
	"github.com/five82/galley/internal/kv"
	"github.com/five82/galley/internal/schema"
)

type pickerState struct {
	selected int
}

func (m Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	n := len(m.grids.Grids)
	switch {
	case key.Matches(msg, m.keys.Down):
		m.picker.selected = clamp(m.picker.selected+1, 0, n-1)
	case key.Matches(msg, m.keys.Up):
		m.picker.selected = clamp(m.picker.selected-1, 0, n-1)
	case key.Matches(msg, m.keys.Top):
		m.picker.selected = 0
	case key.Matches(msg, m.keys.Bottom):
		m.picker.selected = maxInt(n-1, 0)
	case key.Matches(msg, m.keys.Open):
		if n == 0 {
			return m, nil
		}
		return m.openGrid(m.grids.Grids[m.picker.selected])
	}
	return m, nil
}

// openGrid builds a controller for def and starts the first fetch with the
// remembered filter for that grid.
func (m Model) openGrid(def schema.Definition) (tea.Model, tea.Cmd) {
	if m.open == nil {
		m.setError("no data source configured")
		return m, nil
	}
	ctl, err := m.open(def)
	if err != nil {
		m.setError("open " + def.Name + ": " + err.Error())
		return m, nil
	}
	m.closeEditor()

	input := textinput.New()
	input.Prompt = ""
	input.CharLimit = 200

	m.editor = &editorState{def: def, ctl: ctl, input: input}
	m.editor.refresh()
	m.screen = screenEditor
	m.setStatus("")
	m.savePrefs()

	filter := m.loadFilter(def)
	return m, fetchCmd(m.ctx, def.Name, ctl, filter)
}

// loadFilter returns the filter def opens with: its defaults, overridden by
// whatever was last applied.
func (m Model) loadFilter(def schema.Definition) grid.Filter {
	if m.session == nil {
		return def.DefaultFilter()
	}
	filter, err := kv.LoadFilter(m.ctx, m.session, def.Name, def.DefaultFilter())
	if err != nil {
		m.logger.Warn("load saved filter failed", zap.String("grid", def.Name), zap.Error(err))
	}
	return filter
}

func (m Model) storeFilter(def schema.Definition, filter grid.Filter) {
	if m.session == nil {
		return
	}
	if err := m.session.Set(m.ctx, kv.FilterKey(def.Name), kv.EncodeFilter(filter)); err != nil {
		m.logger.Warn("save filter failed", zap.String("grid", def.Name), zap.Error(err))
	}
}

func (m Model) renderPicker() string {
	styles := m.theme.Styles().WithBackground(m.theme.FocusBg)
	innerWidth := maxInt(m.width-2, 0)

	var b strings.Builder
	if len(m.grids.Grids) == 0 {
		b.WriteString(styles.MutedText.Render("No grids defined"))
	}
	for i, def := range m.grids.Grids {
		filters := strings.Join(def.FilterKeys(), ", ")
		if filters == "" {
			filters = "none"
		}
		line := fmt.Sprintf(" %-14s %-28s %2d fields  filters: %s",
			def.Name, truncate(def.DisplayTitle(), 28), len(def.Fields), filters)
		line = padRight(truncate(line, innerWidth), innerWidth)
		if i == m.picker.selected {
			b.WriteString(m.theme.Styles().Selected.Render(line))
		} else {
			b.WriteString(styles.Text.Render(line))
		}
		if i < len(m.grids.Grids)-1 {
			b.WriteString("\n")
		}
	}
	return m.renderTitledBox("Grids", b.String(), m.width, m.contentHeight(), true)
}
