package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/galley/internal/grid"
	"github.com/five82/galley/internal/schema"
)

// filterModal edits the fetch parameters of one grid.
type filterModal struct {
	grid   string
	keys   []string
	inputs []textinput.Model
	focus  int
}

func newFilterModal(def schema.Definition, current grid.Filter) *filterModal {
	fm := &filterModal{grid: def.Name, keys: def.FilterKeys()}
	for i, k := range fm.keys {
		in := textinput.New()
		in.Prompt = ""
		in.CharLimit = 100
		in.Width = 30
		in.SetValue(current[k])
		if i == 0 {
			in.Focus()
		}
		fm.inputs = append(fm.inputs, in)
	}
	return fm
}

// filter collects the trimmed input values.
func (fm *filterModal) filter() grid.Filter {
	out := make(grid.Filter, len(fm.keys))
	for i, k := range fm.keys {
		out[k] = strings.TrimSpace(fm.inputs[i].Value())
	}
	return out
}

func (fm *filterModal) setFocus(idx int) {
	if len(fm.inputs) == 0 {
		return
	}
	fm.inputs[fm.focus].Blur()
	fm.focus = (idx + len(fm.inputs)) % len(fm.inputs)
	fm.inputs[fm.focus].Focus()
}

// Update implements Modal.
func (fm *filterModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return fm, nil, false
	}
	switch {
	case key.Matches(km, keys.Cancel):
		return fm, nil, true

	case km.String() == "enter":
		name, filter := fm.grid, fm.filter()
		return fm, func() tea.Msg { return filterAppliedMsg{grid: name, filter: filter} }, true

	case key.Matches(km, keys.NextField):
		fm.setFocus(fm.focus + 1)
		return fm, nil, false

	case key.Matches(km, keys.PrevField):
		fm.setFocus(fm.focus - 1)
		return fm, nil, false
	}

	if len(fm.inputs) == 0 {
		return fm, nil, false
	}
	var cmd tea.Cmd
	fm.inputs[fm.focus], cmd = fm.inputs[fm.focus].Update(km)
	return fm, cmd, false
}

// View implements Modal.
func (fm *filterModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Filters: " + fm.grid))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(strings.Repeat("─", 40)))
	b.WriteString("\n\n")

	if len(fm.keys) == 0 {
		b.WriteString(styles.MutedText.Render("This grid takes no filters."))
		b.WriteString("\n\n")
	}

	labelWidth := 0
	for _, k := range fm.keys {
		labelWidth = maxInt(labelWidth, len(k)+2)
	}
	for i, k := range fm.keys {
		label := padRight(k+":", labelWidth)
		if i == fm.focus {
			label = styles.AccentText.Render(label)
		} else {
			label = styles.MutedText.Render(label)
		}
		b.WriteString(label)
		b.WriteString(fm.inputs[i].View())
		b.WriteString("\n\n")
	}

	b.WriteString(styles.FaintText.Render("Enter: Apply  •  Esc: Cancel  •  Tab: Next"))

	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(theme.Accent)).
		Padding(1, 2).
		Width(50)

	return lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		modal.Render(b.String()),
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(theme.Background)),
	)
}
