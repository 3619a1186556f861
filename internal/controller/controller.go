package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/five82/galley/internal/grid"
	"github.com/five82/galley/internal/state"
)

var (
	// ErrBusy is returned when a save is requested while a fetch or save is
	// outstanding, or a fetch is requested while a save is outstanding.
	ErrBusy = errors.New("grid is busy")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("grid is closed")
)

// NoChangesNotice is recorded when a save finds nothing to send.
const NoChangesNotice = "nothing to save"

// SaveResponse is what the data source reports for a save request.
type SaveResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// RejectedError reports a save the server answered with success=false.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	if strings.TrimSpace(e.Message) == "" {
		return "save rejected"
	}
	return "save rejected: " + e.Message
}

// DataSource fetches and saves the rows of one grid.
type DataSource interface {
	FetchRows(ctx context.Context, filter grid.Filter) ([]grid.Row, error)
	SaveChanges(ctx context.Context, records []grid.ChangeRecord) (SaveResponse, error)
}

// SavePolicy selects what happens after a successful save.
type SavePolicy int

const (
	// SavePromote makes the rows that were sent the new original.
	SavePromote SavePolicy = iota
	// SaveRefetch reloads the grid to pick up server-canonical values.
	SaveRefetch
)

// ParseSavePolicy maps "promote" or "refetch" to a SavePolicy.
func ParseSavePolicy(value string) (SavePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "promote":
		return SavePromote, nil
	case "refetch":
		return SaveRefetch, nil
	default:
		return SavePromote, fmt.Errorf("unknown save policy %q", value)
	}
}

// Outcome classifies a save attempt.
type Outcome int

const (
	OutcomeSaved Outcome = iota
	OutcomeNoChanges
	OutcomeFailed
)

// FetchResult describes a completed fetch.
type FetchResult struct {
	Rows  int
	Stale bool // a newer fetch superseded this one; its response was dropped
}

// SaveResult describes a completed save.
type SaveResult struct {
	Outcome   Outcome
	Records   int
	Message   string
	Refetched bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger. Default: no-op.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSavePolicy sets the post-save behaviour. Default: SavePromote.
func WithSavePolicy(p SavePolicy) Option {
	return func(c *Controller) { c.policy = p }
}

// WithStore supplies the snapshot store. Default: a fresh Store.
func WithStore(store *state.Store) Option {
	return func(c *Controller) {
		if store != nil {
			c.store = store
		}
	}
}

// Controller sequences fetches and saves for one grid instance.
type Controller struct {
	schema grid.Schema
	source DataSource
	store  *state.Store
	logger *zap.Logger
	policy SavePolicy

	mu          sync.Mutex
	phase       state.Phase
	gen         uint64
	filter      grid.Filter
	cancelFetch context.CancelFunc
	cancelSave  context.CancelFunc
	closed      bool
}

// New builds a Controller for schema backed by source.
func New(schema grid.Schema, source DataSource, opts ...Option) (*Controller, error) {
	if source == nil {
		return nil, fmt.Errorf("controller requires a data source")
	}
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	c := &Controller{
		schema: schema,
		source: source,
		store:  &state.Store{},
		logger: zap.NewNop(),
		filter: grid.Filter{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("grid", schema.Name))
	return c, nil
}

// Schema returns the grid schema.
func (c *Controller) Schema() grid.Schema {
	return c.schema
}

// Filter returns a copy of the current filter.
func (c *Controller) Filter() grid.Filter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter.Clone()
}

// Phase returns the current request phase.
func (c *Controller) Phase() state.Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// SetFilter replaces the filter and fetches. A fetch already in flight is
// superseded: its context is cancelled and its response, if any, dropped.
func (c *Controller) SetFilter(ctx context.Context, filter grid.Filter) (FetchResult, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return FetchResult{}, ErrClosed
	}
	if c.phase == state.PhaseSaving {
		c.mu.Unlock()
		return FetchResult{}, ErrBusy
	}
	fctx, cancel, gen, filter := c.beginFetchLocked(ctx, filter)
	c.mu.Unlock()

	return c.fetch(fctx, cancel, gen, filter)
}

// beginFetchLocked supersedes any fetch in flight and enters Loading for
// a copy of filter, which it returns. c.mu must be held.
func (c *Controller) beginFetchLocked(ctx context.Context, filter grid.Filter) (context.Context, context.CancelFunc, uint64, grid.Filter) {
	if c.cancelFetch != nil {
		c.cancelFetch()
	}
	c.gen++
	filter = filter.Clone()
	c.filter = filter
	fctx, cancel := context.WithCancel(ctx)
	c.cancelFetch = cancel
	c.setPhaseLocked(state.PhaseLoading)
	return fctx, cancel, c.gen, filter
}

// Refetch reloads the grid with the current filter.
func (c *Controller) Refetch(ctx context.Context) (FetchResult, error) {
	return c.SetFilter(ctx, c.Filter())
}

func (c *Controller) fetch(ctx context.Context, cancel context.CancelFunc, gen uint64, filter grid.Filter) (FetchResult, error) {
	defer cancel()
	start := time.Now()
	rows, err := c.source.FetchRows(ctx, filter)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || gen != c.gen {
		c.logger.Debug("dropping superseded fetch response",
			zap.String("filter", filter.Key()),
			zap.Bool("closed", c.closed))
		return FetchResult{Stale: true}, nil
	}
	c.cancelFetch = nil
	c.setPhaseLocked(state.PhaseIdle)

	if err != nil {
		c.store.Clear(filter, err)
		c.logger.Warn("fetch failed", zap.String("filter", filter.Key()), zap.Error(err))
		return FetchResult{}, fmt.Errorf("fetch %s: %w", c.schema.Name, err)
	}
	c.store.Load(rows, filter)
	c.logger.Info("fetched rows",
		zap.String("filter", filter.Key()),
		zap.Int("rows", len(rows)),
		zap.Duration("elapsed", time.Since(start)))
	return FetchResult{Rows: len(rows)}, nil
}

// Save sends the minimal change set. The change set and the working rows it
// came from are captured before the request is issued; edits made while it is
// in flight are not sent and, under SavePromote, remain dirty afterwards.
// On failure both row sets are left as they were. Under SavePromote only rows
// the server now holds become original; a new row that was not sent stays new.
func (c *Controller) Save(ctx context.Context) (SaveResult, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return SaveResult{Outcome: OutcomeFailed}, ErrClosed
	}
	if c.phase != state.PhaseIdle {
		c.mu.Unlock()
		return SaveResult{Outcome: OutcomeFailed}, ErrBusy
	}

	original, working := c.store.Pair()
	records := grid.BuildChangeSet(original, working, c.schema)
	baseline := grid.Baseline(original, working, c.schema)
	if len(records) == 0 {
		c.store.SetNotice(NoChangesNotice)
		c.mu.Unlock()
		c.logger.Debug("save skipped, no changes")
		return SaveResult{Outcome: OutcomeNoChanges, Message: NoChangesNotice}, nil
	}
	for _, i := range grid.SuspectIdentityEdits(original, working, c.schema) {
		c.logger.Warn("row identity no longer matches any fetched row; saving it as new",
			zap.Int("row", i),
			zap.String("identity", grid.Identity(working[i], c.schema)))
	}

	sctx, cancel := context.WithCancel(ctx)
	c.cancelSave = cancel
	c.setPhaseLocked(state.PhaseSaving)
	c.mu.Unlock()

	start := time.Now()
	resp, err := c.source.SaveChanges(sctx, records)
	cancel()

	c.mu.Lock()
	c.cancelSave = nil
	if c.closed {
		c.mu.Unlock()
		return SaveResult{Outcome: OutcomeFailed}, ErrClosed
	}
	if err == nil && !resp.Success {
		err = &RejectedError{Message: resp.Message}
	}
	if err != nil {
		c.setPhaseLocked(state.PhaseIdle)
		c.store.RecordError(err)
		c.mu.Unlock()
		c.logger.Warn("save failed", zap.Int("records", len(records)), zap.Error(err))
		return SaveResult{Outcome: OutcomeFailed, Records: len(records), Message: err.Error()},
			fmt.Errorf("save %s: %w", c.schema.Name, err)
	}

	result := SaveResult{Outcome: OutcomeSaved, Records: len(records), Message: resp.Message}
	if result.Message == "" {
		result.Message = fmt.Sprintf("saved %d row(s)", len(records))
	}
	c.logger.Info("saved changes",
		zap.Int("records", len(records)),
		zap.Duration("elapsed", time.Since(start)))

	if c.policy == SavePromote {
		c.setPhaseLocked(state.PhaseIdle)
		c.store.PromoteFrom(baseline)
		c.store.SetNotice(result.Message)
		c.mu.Unlock()
		return result, nil
	}

	// Saving hands over to Loading without passing through Idle.
	fctx, fcancel, gen, filter := c.beginFetchLocked(ctx, c.filter)
	c.mu.Unlock()

	result.Refetched = true
	fetched, err := c.fetch(fctx, fcancel, gen, filter)
	if err != nil {
		return result, fmt.Errorf("refetch after save: %w", err)
	}
	if !fetched.Stale {
		c.store.SetNotice(result.Message)
	}
	return result, nil
}

// EditCell writes value into one working cell.
func (c *Controller) EditCell(row int, field string, value any) error {
	if _, ok := c.schema.Field(field); !ok {
		return fmt.Errorf("grid %s has no field %q", c.schema.Name, field)
	}
	if c.isClosed() {
		return ErrClosed
	}
	return c.store.SetCell(row, field, value)
}

// AddRow appends a new working row and returns its index.
func (c *Controller) AddRow(row grid.Row) (int, error) {
	if c.isClosed() {
		return 0, ErrClosed
	}
	if row == nil {
		row = make(grid.Row)
	}
	return c.store.AppendRow(row), nil
}

// WorkingRows returns a copy of the working rows.
func (c *Controller) WorkingRows() []grid.Row {
	return c.store.Working()
}

// ChangeSet returns what Save would send right now.
func (c *Controller) ChangeSet() []grid.ChangeRecord {
	original, working := c.store.Pair()
	return grid.BuildChangeSet(original, working, c.schema)
}

// IsCellDirty reports whether a working cell differs from its original.
func (c *Controller) IsCellDirty(row int, field string) bool {
	f, ok := c.schema.Field(field)
	if !ok {
		return false
	}
	original, working := c.store.Pair()
	if row < 0 || row >= len(working) {
		return false
	}
	match := grid.Match(original, grid.Index(original, c.schema), working[row], c.schema)
	return grid.IsDirty(match, working[row], field, f.Kind)
}

// View is a render-ready snapshot of the grid.
type View struct {
	state.Snapshot
	Dirty   []map[string]bool // per working row, dirty comparable fields
	New     []bool            // per working row, no original matched
	Pending int               // rows that Save would send
}

// IsDirty reports whether the cell was dirty when the view was taken.
func (v View) IsDirty(row int, field string) bool {
	if row < 0 || row >= len(v.Dirty) {
		return false
	}
	return v.Dirty[row][field]
}

// View computes dirty flags for every working cell.
func (c *Controller) View() View {
	snap := c.store.Snapshot()
	index := grid.Index(snap.Original, c.schema)
	v := View{
		Snapshot: snap,
		Dirty:    make([]map[string]bool, len(snap.Working)),
		New:      make([]bool, len(snap.Working)),
	}
	for i, w := range snap.Working {
		match := grid.Match(snap.Original, index, w, c.schema)
		v.New[i] = match == nil
		dirty := grid.DirtyFields(match, w, c.schema)
		if len(dirty) == 0 {
			continue
		}
		v.Pending++
		v.Dirty[i] = make(map[string]bool, len(dirty))
		for _, name := range dirty {
			v.Dirty[i][name] = true
		}
	}
	return v
}

// Snapshot returns the store snapshot.
func (c *Controller) Snapshot() state.Snapshot {
	return c.store.Snapshot()
}

// Close abandons in-flight requests. Their responses are dropped without
// touching the store, and further calls return ErrClosed.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.gen++
	if c.cancelFetch != nil {
		c.cancelFetch()
		c.cancelFetch = nil
	}
	if c.cancelSave != nil {
		c.cancelSave()
		c.cancelSave = nil
	}
	c.logger.Debug("grid closed")
}

func (c *Controller) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Controller) setPhaseLocked(p state.Phase) {
	c.phase = p
	c.store.SetPhase(p)
}
