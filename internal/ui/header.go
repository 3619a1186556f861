package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/galley/internal/grid"
	"github.com/five82/galley/internal/state"
)

// renderHeader renders the status bar for the active screen.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	compact := m.width < LayoutCompactWidth

	parts := []string{bg.Render("galley", styles.AccentText.Bold(true))}
	if conn := m.renderConnection(styles, bg); conn != "" {
		parts = append(parts, conn)
	}

	if m.editor == nil {
		parts = append(parts,
			bg.Render("Grids:", styles.MutedText)+bg.Spaces(1)+
				bg.Render(fmt.Sprintf("%d", len(m.grids.Grids)), styles.Text))
		return styles.Header.Width(m.width).Render(strings.Join(parts, bg.Spaces(2)))
	}

	ed := m.editor
	v := ed.view
	parts = append(parts, bg.Render(ed.def.DisplayTitle(), styles.Text.Bold(true)))
	parts = append(parts, m.renderPhase(v.Phase, styles, bg))

	if summary := filterSummary(v.Filter); summary != "" {
		limit := 60
		if compact {
			limit = 28
		}
		parts = append(parts, bg.Render(truncate(summary, limit), styles.InfoText))
	}

	parts = append(parts,
		bg.Render("Rows:", styles.MutedText)+bg.Spaces(1)+
			bg.Render(fmt.Sprintf("%d", len(v.Working)), styles.Text))

	pendingStyle := styles.MutedText
	if v.Pending > 0 {
		pendingStyle = styles.WarningText.Bold(true)
	}
	label := "Unsaved:"
	if compact {
		label = "U:"
	}
	parts = append(parts,
		bg.Render(label, styles.MutedText)+bg.Spaces(1)+
			bg.Render(fmt.Sprintf("%d", v.Pending), pendingStyle))

	if ts := formatTimestamp(v.LastUpdated, time.Now()); ts != "" && !compact {
		parts = append(parts, bg.Render(ts, styles.MutedText))
	}

	return styles.Header.Width(m.width).Render(strings.Join(parts, bg.Spaces(2)))
}

// renderConnection shows the last health check, or nothing before the first.
func (m Model) renderConnection(styles Styles, bg BgStyle) string {
	if m.health == nil {
		return ""
	}
	online, checked, err := m.health.Status()
	switch {
	case checked.IsZero():
		return ""
	case online:
		return bg.Render("● ONLINE", styles.SuccessText)
	default:
		label := "● OFFLINE"
		if err != nil && m.width >= LayoutCompactWidth {
			label += " " + truncate(describeError(err), 40)
		}
		return bg.Render(label, styles.DangerText)
	}
}

func (m Model) renderPhase(p state.Phase, styles Styles, bg BgStyle) string {
	switch p {
	case state.PhaseLoading:
		return bg.Render("● Loading", styles.InfoText)
	case state.PhaseSaving:
		return bg.Render("● Saving", styles.WarningText)
	default:
		return bg.Render("● Idle", styles.SuccessText)
	}
}

// filterSummary renders a filter as sorted key=value pairs, skipping blanks.
func filterSummary(f grid.Filter) string {
	keys := make([]string, 0, len(f))
	for k, v := range f {
		if strings.TrimSpace(v) != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + f[k]
	}
	return strings.Join(parts, " ")
}

// formatTimestamp formats the last update time with a relative indicator.
func formatTimestamp(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	since := now.Sub(t)
	s := t.Format("15:04:05")
	switch {
	case since < time.Minute:
		s += " (now)"
	case since < time.Hour:
		s += fmt.Sprintf(" (%dm ago)", int(since.Minutes()))
	case since < 24*time.Hour:
		s += fmt.Sprintf(" (%dh ago)", int(since.Hours()))
	}
	return s
}

// renderCommandBar renders the key hints for the active screen.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	type cmd struct{ key, desc string }
	var commands []cmd

	switch {
	case m.editor != nil && m.editor.editing:
		commands = []cmd{
			{"enter", "Commit"},
			{"tab", "Commit+Next"},
			{"esc", "Cancel"},
		}
	case m.screen == screenEditor:
		commands = []cmd{
			{"enter", "Edit"},
			{"s", "Save"},
			{"r", "Reload"},
			{"a", "Add"},
			{"F", "Filters"},
			{"x", "Export"},
			{"l", "Log"},
			{"q", "Grids"},
			{"?", "More"},
		}
	case m.screen == screenLogs:
		commands = []cmd{
			{"j/k", "Scroll"},
			{"g/G", "Top/Bottom"},
			{"r", "Reload"},
			{"q", "Back"},
			{"?", "More"},
		}
	default:
		commands = []cmd{
			{"j/k", "Navigate"},
			{"enter", "Open"},
			{"l", "Log"},
			{"ctrl+c", "Quit"},
			{"?", "More"},
		}
	}

	colon := bg.Sep(":")
	segments := make([]string, 0, len(commands)+1)
	for _, c := range commands {
		segments = append(segments,
			bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}
	segments = append(segments,
		bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).Render(strings.Join(segments, bg.Spaces(2)))
}

// renderStatusLine shows the latest notice or error. When the UI has nothing
// of its own to say, the store's notice or last error shows through.
func (m Model) renderStatusLine() string {
	styles := m.theme.Styles()
	msg, isErr := m.status, m.statusErr
	if msg == "" && m.editor != nil {
		v := m.editor.view
		switch {
		case v.LastError != nil:
			msg, isErr = describeError(v.LastError), true
		case v.Notice != "":
			msg = v.Notice
		}
	}
	if m.editor != nil {
		switch m.editor.confirm {
		case confirmLeave:
			msg, isErr = fmt.Sprintf("%d unsaved row(s). Press q again to discard them.", m.editor.view.Pending), true
		case confirmReload:
			msg, isErr = fmt.Sprintf("%d unsaved row(s). Press r again to reload and discard them.", m.editor.view.Pending), true
		}
	}
	if msg == "" {
		return ""
	}
	msg = truncate(msg, maxInt(m.width-2, 1))
	if isErr {
		return styles.DangerText.Render(msg)
	}
	return styles.MutedText.Render(msg)
}

// renderTitledBox renders content in a box with the title embedded in the top
// border: ┌─── Title ───┐. Focused boxes use BorderFocus and FocusBg.
func (m Model) renderTitledBox(title, content string, width, height int, focused bool) string {
	var borderColorStr, bgColorStr string
	if focused {
		borderColorStr = m.theme.BorderFocus
		bgColorStr = m.theme.FocusBg
	} else {
		borderColorStr = m.theme.Border
		bgColorStr = m.theme.SurfaceAlt
	}
	bg := NewBgStyle(bgColorStr)
	borderStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(borderColorStr))
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.theme.Text))

	innerWidth := maxInt(width-2, 0)
	title = truncate(title, maxInt(innerWidth-4, 0))
	titleLen := lipgloss.Width(title)
	leftPad := maxInt((innerWidth-titleLen-2)/2, 0)
	rightPad := maxInt(innerWidth-titleLen-2-leftPad, 0)

	topBorder := bg.Render("┌", borderStyle) +
		bg.Render(strings.Repeat("─", leftPad), borderStyle) +
		bg.Sep(" ") + bg.Render(title, titleStyle) + bg.Sep(" ") +
		bg.Render(strings.Repeat("─", rightPad), borderStyle) +
		bg.Render("┐", borderStyle)

	bottomBorder := bg.Render("└", borderStyle) +
		bg.Render(strings.Repeat("─", innerWidth), borderStyle) +
		bg.Render("┘", borderStyle)

	contentStyle := lipgloss.NewStyle().Width(innerWidth).MaxWidth(innerWidth).
		Background(lipgloss.Color(bgColorStr))

	contentLines := strings.Split(content, "\n")
	boxHeight := maxInt(height-2, 0)

	lines := make([]string, 0, boxHeight)
	for i := 0; i < boxHeight; i++ {
		var line string
		if i < len(contentLines) {
			line = contentLines[i]
		}
		lines = append(lines,
			bg.Render("│", borderStyle)+contentStyle.Render(line)+bg.Render("│", borderStyle))
	}

	return topBorder + "\n" + strings.Join(lines, "\n") + "\n" + bottomBorder
}
