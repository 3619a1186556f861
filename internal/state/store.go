package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/five82/galley/internal/grid"
)

// Phase is the request state of a grid.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseSaving
)

// String returns a short label for the status bar.
func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseSaving:
		return "saving"
	default:
		return "idle"
	}
}

// Snapshot represents the latest grid data available to the UI.
type Snapshot struct {
	Original            []grid.Row
	Working             []grid.Row
	Filter              grid.Filter
	Phase               Phase
	Notice              string // informational message, e.g. "nothing to save"
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int
}

// Loaded reports whether a fetch has populated the store at least once.
func (s Snapshot) Loaded() bool {
	return !s.LastUpdated.IsZero()
}

// Store owns the original and working rows of one grid. The zero value is
// ready to use. Original only changes through Load, Promote, PromoteFrom and
// Clear; edits touch Working alone.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// Load replaces both row sets with independent copies of rows.
func (s *Store) Load(rows []grid.Row, filter grid.Filter) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.Original = grid.CloneRows(rows)
	s.snapshot.Working = grid.CloneRows(rows)
	s.snapshot.Filter = filter.Clone()
	s.snapshot.LastError = nil
	s.snapshot.LastUpdated = time.Now()
	s.snapshot.ConsecutiveFailures = 0
}

// Clear empties both row sets and records err. Used when a fetch fails.
func (s *Store) Clear(filter grid.Filter, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.Original = nil
	s.snapshot.Working = nil
	s.snapshot.Filter = filter.Clone()
	s.snapshot.LastUpdated = time.Now()
	s.recordErrorLocked(err)
}

// RecordError keeps the rows and records err for display.
func (s *Store) RecordError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordErrorLocked(err)
}

func (s *Store) recordErrorLocked(err error) {
	if err == nil {
		return
	}
	s.snapshot.LastError = err
	s.snapshot.Notice = ""
	s.snapshot.ConsecutiveFailures++
}

// SetPhase updates the request phase.
func (s *Store) SetPhase(p Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Phase = p
}

// SetNotice records an informational message and clears the last error.
func (s *Store) SetNotice(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Notice = msg
	s.snapshot.LastError = nil
}

// Working returns a copy of the working rows.
func (s *Store) Working() []grid.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return grid.CloneRows(s.snapshot.Working)
}

// Original returns a copy of the original rows.
func (s *Store) Original() []grid.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return grid.CloneRows(s.snapshot.Original)
}

// Pair returns copies of both row sets taken under one lock.
func (s *Store) Pair() (original, working []grid.Row) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return grid.CloneRows(s.snapshot.Original), grid.CloneRows(s.snapshot.Working)
}

// SetWorking replaces the working rows with a copy of rows.
func (s *Store) SetWorking(rows []grid.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Working = grid.CloneRows(rows)
}

// SetCell writes one cell of one working row, leaving other rows untouched.
func (s *Store) SetCell(index int, field string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.snapshot.Working) {
		return fmt.Errorf("row %d out of range (0..%d)", index, len(s.snapshot.Working)-1)
	}
	row := s.snapshot.Working[index].Clone()
	if row == nil {
		row = make(grid.Row)
	}
	row[field] = value
	s.snapshot.Working[index] = row
	return nil
}

// AppendRow adds a row to the working set and returns its index.
func (s *Store) AppendRow(row grid.Row) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Working = append(s.snapshot.Working, row.Clone())
	return len(s.snapshot.Working) - 1
}

// Promote makes the current working rows the new original.
func (s *Store) Promote() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Original = grid.CloneRows(s.snapshot.Working)
}

// PromoteFrom makes a copy of rows the new original. The controller passes
// the working rows captured when a save started, so edits made while the
// request was in flight stay dirty.
func (s *Store) PromoteFrom(rows []grid.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Original = grid.CloneRows(rows)
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Original = grid.CloneRows(s.snapshot.Original)
	snap.Working = grid.CloneRows(s.snapshot.Working)
	snap.Filter = s.snapshot.Filter.Clone()
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}
