package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/galley/internal/logtail"
)

// logViewState holds the application log screen.
type logViewState struct {
	entries  []logtail.Entry
	err      error
	viewport viewport.Model
	ready    bool
}

func (m *Model) resizeLogViewport() {
	w, h := maxInt(m.width-4, 1), maxInt(m.contentHeight()-2, 1)
	if !m.logs.ready {
		m.logs.viewport = viewport.New(w, h)
		m.logs.ready = true
	}
	m.logs.viewport.Width = w
	m.logs.viewport.Height = h
	m.logs.viewport.Style = lipgloss.NewStyle().Background(lipgloss.Color(m.theme.FocusBg))
}

func (m *Model) handleLogs(msg logsMsg) {
	m.logs.entries = msg.entries
	m.logs.err = msg.err
	m.resizeLogViewport()
	m.logs.viewport.SetContent(m.renderLogContent())
	m.logs.viewport.GotoBottom()
}

func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back), key.Matches(msg, m.keys.Cancel):
		m.screen = m.previous
		return m, nil
	case key.Matches(msg, m.keys.Refetch):
		return m, loadLogsCmd(m.logPath)
	case key.Matches(msg, m.keys.Top):
		m.logs.viewport.GotoTop()
	case key.Matches(msg, m.keys.Bottom):
		m.logs.viewport.GotoBottom()
	case key.Matches(msg, m.keys.Down):
		m.logs.viewport.ScrollDown(1)
	case key.Matches(msg, m.keys.Up):
		m.logs.viewport.ScrollUp(1)
	case key.Matches(msg, m.keys.PageDown):
		m.logs.viewport.PageDown()
	case key.Matches(msg, m.keys.PageUp):
		m.logs.viewport.PageUp()
	}
	return m, nil
}

func (m Model) renderLogs() string {
	title := "Application Log"
	if m.logPath != "" {
		title = fmt.Sprintf("Application Log  %d lines", len(m.logs.entries))
	}
	return m.renderTitledBox(title, m.logs.viewport.View(), m.width, m.contentHeight(), true)
}

// renderLogContent formats entries one per line: time, level, message, then
// structured fields.
func (m Model) renderLogContent() string {
	styles := m.theme.Styles().WithBackground(m.theme.FocusBg)
	switch {
	case m.logPath == "":
		return styles.MutedText.Render("Logging to a file is disabled.")
	case m.logs.err != nil:
		return styles.DangerText.Render("Cannot read " + m.logPath + ": " + m.logs.err.Error())
	case len(m.logs.entries) == 0:
		return styles.MutedText.Render("No log entries yet.")
	}

	lines := make([]string, 0, len(m.logs.entries))
	for _, e := range m.logs.entries {
		if e.Raw != "" {
			lines = append(lines, styles.MutedText.Render(e.Raw))
			continue
		}
		var b strings.Builder
		if !e.Time.IsZero() {
			b.WriteString(styles.FaintText.Render(e.Time.Local().Format("15:04:05")))
			b.WriteString(styles.Text.Render(" "))
		}
		b.WriteString(m.levelStyle(e.Level, styles).Render(padRight(e.Level, 5)))
		b.WriteString(styles.Text.Render(" " + e.Message))
		for _, f := range e.Fields {
			b.WriteString(styles.FaintText.Render(" " + f.Key + "="))
			b.WriteString(styles.MutedText.Render(f.Value))
		}
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n")
}

func (m Model) levelStyle(level string, styles Styles) lipgloss.Style {
	switch level {
	case "ERROR", "DPANIC", "PANIC", "FATAL":
		return styles.DangerText
	case "WARN":
		return styles.WarningText
	case "DEBUG":
		return styles.FaintText
	default:
		return styles.InfoText
	}
}
