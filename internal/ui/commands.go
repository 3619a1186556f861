package ui

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/galley/internal/controller"
	"github.com/five82/galley/internal/export"
	"github.com/five82/galley/internal/grid"
	"github.com/five82/galley/internal/logtail"
	"github.com/five82/galley/internal/schema"
)

// Messages

type tickMsg time.Time

type fetchDoneMsg struct {
	grid   string
	result controller.FetchResult
	err    error
}

type saveDoneMsg struct {
	grid   string
	result controller.SaveResult
	err    error
}

type exportDoneMsg struct {
	path string
	err  error
}

type filterAppliedMsg struct {
	grid   string
	filter grid.Filter
}

type logsMsg struct {
	entries []logtail.Entry
	err     error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchCmd(ctx context.Context, name string, ctl *controller.Controller, filter grid.Filter) tea.Cmd {
	return func() tea.Msg {
		result, err := ctl.SetFilter(ctx, filter)
		return fetchDoneMsg{grid: name, result: result, err: err}
	}
}

func refetchCmd(ctx context.Context, name string, ctl *controller.Controller) tea.Cmd {
	return func() tea.Msg {
		result, err := ctl.Refetch(ctx)
		return fetchDoneMsg{grid: name, result: result, err: err}
	}
}

func saveCmd(ctx context.Context, name string, ctl *controller.Controller) tea.Cmd {
	return func() tea.Msg {
		result, err := ctl.Save(ctx)
		return saveDoneMsg{grid: name, result: result, err: err}
	}
}

// exportCmd writes the rows as they are on screen, unsaved edits included.
func exportCmd(dir string, def schema.Definition, view controller.View, now time.Time) tea.Cmd {
	return func() tea.Msg {
		path := filepath.Join(dir, fmt.Sprintf("%s-%s.xlsx", def.Name, now.Format("20060102-150405")))
		err := export.Write(path, export.Sheet{
			Name:     def.DisplayTitle(),
			Schema:   def.Schema(),
			Original: view.Original,
			Working:  view.Working,
		})
		return exportDoneMsg{path: path, err: err}
	}
}

func loadLogsCmd(path string) tea.Cmd {
	return func() tea.Msg {
		if path == "" {
			return logsMsg{}
		}
		entries, err := logtail.Tail(path, LogBufferLimit)
		return logsMsg{entries: entries, err: err}
	}
}
