package ui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/five82/galley/internal/controller"
	"github.com/five82/galley/internal/kv"
	"github.com/five82/galley/internal/ledger"
	"github.com/five82/galley/internal/prefs"
	"github.com/five82/galley/internal/schema"
)

// screen is the active top-level view.
type screen int

const (
	screenPicker screen = iota
	screenEditor
	screenLogs
)

// Opener builds the controller for a grid.
type Opener func(def schema.Definition) (*controller.Controller, error)

// Health reports server reachability for the header.
type Health interface {
	Status() (online bool, checked time.Time, err error)
}

// Options configures the UI.
type Options struct {
	Context   context.Context
	Grids     schema.Set
	Open      Opener
	Session   kv.Store // remembers filters per grid; optional
	Health    Health   // optional
	Logger    *zap.Logger
	ThemeName string
	PrefsPath string
	LastGrid  string
	LogPath   string
	ExportDir string
	Tick      time.Duration
}

// Model is the root application state for Bubble Tea.
type Model struct {
	ctx       context.Context
	grids     schema.Set
	open      Opener
	session   kv.Store
	health    Health
	logger    *zap.Logger
	prefsPath string
	logPath   string
	exportDir string
	tick      time.Duration

	keys     keyMap
	theme    Theme
	screen   screen
	previous screen
	width    int
	height   int
	ready    bool
	showHelp bool

	picker pickerState
	editor *editorState
	logs   logViewState
	modal  Modal

	status    string
	statusErr bool
}

// New creates the root model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tick := opts.Tick
	if tick <= 0 {
		tick = DefaultUIInterval
	}
	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	m := Model{
		ctx:       ctx,
		grids:     opts.Grids,
		open:      opts.Open,
		session:   opts.Session,
		health:    opts.Health,
		logger:    logger,
		prefsPath: prefsPath,
		logPath:   opts.LogPath,
		exportDir: opts.ExportDir,
		tick:      tick,
		keys:      DefaultKeyMap(),
		theme:     GetTheme(opts.ThemeName),
		screen:    screenPicker,
	}
	for i, name := range m.grids.Names() {
		if name == opts.LastGrid {
			m.picker.selected = i
		}
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tickCmd(m.tick)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resizeLogViewport()
		if m.editor != nil {
			m.editor.scrollIntoView(m.tableHeight(), m.width)
		}
		return m, nil

	case tickMsg:
		m.refreshView()
		return m, tickCmd(m.tick)

	case fetchDoneMsg:
		m.handleFetchDone(msg)
		return m, nil

	case saveDoneMsg:
		m.handleSaveDone(msg)
		return m, nil

	case exportDoneMsg:
		if msg.err != nil {
			m.setError("export failed: " + msg.err.Error())
		} else {
			m.setStatus("exported to " + msg.path)
		}
		return m, nil

	case logsMsg:
		m.handleLogs(msg)
		return m, nil

	case filterAppliedMsg:
		if m.editor == nil || m.editor.def.Name != msg.grid {
			return m, nil
		}
		m.storeFilter(m.editor.def, msg.filter)
		m.setStatus("loading...")
		return m, fetchCmd(m.ctx, msg.grid, m.editor.ctl, msg.filter)
	}

	if m.editor != nil && m.editor.editing {
		var cmd tea.Cmd
		m.editor.input, cmd = m.editor.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	if m.modal != nil {
		return m.modal.View(m.theme, m.width, m.height)
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	switch m.screen {
	case screenEditor:
		b.WriteString(m.renderEditor())
	case screenLogs:
		b.WriteString(m.renderLogs())
	default:
		b.WriteString(m.renderPicker())
	}
	b.WriteString("\n")
	b.WriteString(m.renderStatusLine())
	return b.String()
}

// handleKey routes keyboard input. Overlays get the first look, then global
// bindings, then the active screen.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.closeEditor()
		return m, tea.Quit
	}
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	if m.modal != nil {
		modal, cmd, done := m.modal.Update(msg, m.keys)
		m.modal = modal
		if done {
			m.modal = nil
		}
		return m, cmd
	}
	if m.editor != nil && m.editor.editing {
		return m.handleCellEditKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil
	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs()
		return m, nil
	case key.Matches(msg, m.keys.Logs) && m.screen != screenLogs:
		m.previous = m.screen
		m.screen = screenLogs
		return m, loadLogsCmd(m.logPath)
	}

	switch m.screen {
	case screenEditor:
		return m.handleEditorKey(msg)
	case screenLogs:
		return m.handleLogsKey(msg)
	default:
		return m.handlePickerKey(msg)
	}
}

func (m *Model) refreshView() {
	if m.editor != nil {
		m.editor.refresh()
		m.editor.scrollIntoView(m.tableHeight(), m.width)
	}
}

func (m *Model) handleFetchDone(msg fetchDoneMsg) {
	if m.editor == nil || m.editor.def.Name != msg.grid {
		return
	}
	m.refreshView()
	if msg.result.Stale {
		return
	}
	switch {
	case msg.err == nil:
		m.setStatus(pluralRows(msg.result.Rows) + " loaded")
	case errors.Is(msg.err, controller.ErrClosed):
	case errors.Is(msg.err, controller.ErrBusy):
		m.setError("save in progress; try again when it finishes")
	default:
		m.setError(describeError(msg.err))
	}
}

func (m *Model) handleSaveDone(msg saveDoneMsg) {
	if m.editor == nil || m.editor.def.Name != msg.grid {
		return
	}
	m.refreshView()
	switch {
	case errors.Is(msg.err, controller.ErrClosed):
	case errors.Is(msg.err, controller.ErrBusy):
		m.setError("a request is already in flight")
	case msg.result.Outcome == controller.OutcomeNoChanges:
		m.setStatus(msg.result.Message)
	case msg.err != nil && msg.result.Outcome == controller.OutcomeSaved:
		// Saved, but the reload afterwards failed.
		m.setError(msg.result.Message + "; reload failed: " + describeError(msg.err))
	case msg.err != nil:
		m.setError(describeError(msg.err))
	default:
		m.setStatus(msg.result.Message)
	}
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.statusErr = false
}

func (m *Model) setError(s string) {
	m.status = s
	m.statusErr = true
}

func (m *Model) savePrefs() {
	p := prefs.Prefs{Theme: m.theme.Name}
	if m.editor != nil {
		p.LastGrid = m.editor.def.Name
	} else if names := m.grids.Names(); m.picker.selected < len(names) {
		p.LastGrid = names[m.picker.selected]
	}
	if err := prefs.Save(m.prefsPath, p); err != nil {
		m.logger.Warn("save prefs failed", zap.Error(err))
	}
}

func (m *Model) closeEditor() {
	if m.editor == nil {
		return
	}
	m.editor.ctl.Close()
	m.editor = nil
}

func describeError(err error) string {
	var apiErr *ledger.APIError
	var rejected *controller.RejectedError
	switch {
	case errors.Is(err, ledger.ErrUnauthorized):
		return "not signed in; run galley login --token <token>"
	case errors.As(err, &rejected):
		return rejected.Error()
	case errors.As(err, &apiErr):
		return apiErr.Error()
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "server offline: " + msg
	case strings.Contains(msg, "deadline exceeded"), strings.Contains(msg, "Timeout"):
		return "request timed out"
	default:
		return msg
	}
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(m.ctx))
	final, err := p.Run()
	if fm, ok := final.(Model); ok {
		fm.closeEditor()
	}
	if errors.Is(err, tea.ErrProgramKilled) && m.ctx.Err() != nil {
		return nil
	}
	return err
}
