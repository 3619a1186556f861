package controller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/five82/galley/internal/grid"
	"github.com/five82/galley/internal/state"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeSource struct {
	mu      sync.Mutex
	fetches []grid.Filter
	saves   [][]grid.ChangeRecord
	fetchFn func(ctx context.Context, filter grid.Filter) ([]grid.Row, error)
	saveFn  func(ctx context.Context, records []grid.ChangeRecord) (SaveResponse, error)
}

func (f *fakeSource) FetchRows(ctx context.Context, filter grid.Filter) ([]grid.Row, error) {
	f.mu.Lock()
	f.fetches = append(f.fetches, filter.Clone())
	fn := f.fetchFn
	f.mu.Unlock()
	if fn == nil {
		return sampleRows(), nil
	}
	return fn(ctx, filter)
}

func (f *fakeSource) SaveChanges(ctx context.Context, records []grid.ChangeRecord) (SaveResponse, error) {
	f.mu.Lock()
	f.saves = append(f.saves, records)
	fn := f.saveFn
	f.mu.Unlock()
	if fn == nil {
		return SaveResponse{Success: true}, nil
	}
	return fn(ctx, records)
}

func (f *fakeSource) saveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saves)
}

func mealSchema() grid.Schema {
	return grid.Schema{
		Name: "meals",
		Fields: []grid.Field{
			{Name: "id", Kind: grid.KindIdentity},
			{Name: "qty", Kind: grid.KindNumeric},
			{Name: "note", Kind: grid.KindText},
		},
	}
}

func sampleRows() []grid.Row {
	return []grid.Row{
		{"id": 1, "qty": "10", "note": "a"},
		{"id": 2, "qty": "20", "note": "b"},
	}
}

func newController(t *testing.T, src *fakeSource, opts ...Option) *Controller {
	t.Helper()
	c, err := New(mealSchema(), src, opts...)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestNew_Validates(t *testing.T) {
	_, err := New(mealSchema(), nil)
	require.Error(t, err)

	_, err = New(grid.Schema{Name: "x", Fields: []grid.Field{{Name: "a"}}}, &fakeSource{})
	require.Error(t, err)
}

func TestSetFilter_LoadsBothSnapshots(t *testing.T) {
	src := &fakeSource{}
	c := newController(t, src)

	res, err := c.SetFilter(context.Background(), grid.Filter{"account": "A1"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Rows)
	assert.False(t, res.Stale)

	snap := c.Snapshot()
	assert.Equal(t, snap.Original, snap.Working)
	assert.Equal(t, state.PhaseIdle, snap.Phase)
	assert.Equal(t, "A1", snap.Filter["account"])
	assert.Equal(t, grid.Filter{"account": "A1"}, src.fetches[0])
}

func TestSetFilter_FailureClearsRows(t *testing.T) {
	src := &fakeSource{}
	c := newController(t, src)
	_, err := c.SetFilter(context.Background(), nil)
	require.NoError(t, err)

	src.fetchFn = func(context.Context, grid.Filter) ([]grid.Row, error) {
		return nil, errors.New("server down")
	}
	_, err = c.Refetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server down")

	snap := c.Snapshot()
	assert.Empty(t, snap.Original)
	assert.Empty(t, snap.Working)
	assert.Equal(t, state.PhaseIdle, snap.Phase)
	require.Error(t, snap.LastError)
}

func TestSetFilter_StaleResponseDropped(t *testing.T) {
	releaseA := make(chan struct{})
	startedA := make(chan struct{})
	src := &fakeSource{}
	src.fetchFn = func(ctx context.Context, filter grid.Filter) ([]grid.Row, error) {
		if filter["account"] == "X" {
			close(startedA)
			<-releaseA
			// Respond late even though the context was cancelled.
			return []grid.Row{{"id": 100, "qty": "1", "note": "stale"}}, nil
		}
		return []grid.Row{{"id": 200, "qty": "2", "note": "fresh"}}, nil
	}
	c := newController(t, src)

	type outcome struct {
		res FetchResult
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := c.SetFilter(context.Background(), grid.Filter{"account": "X"})
		done <- outcome{res, err}
	}()
	<-startedA

	res, err := c.SetFilter(context.Background(), grid.Filter{"account": "Y"})
	require.NoError(t, err)
	assert.False(t, res.Stale)

	close(releaseA)
	a := <-done
	require.NoError(t, a.err)
	assert.True(t, a.res.Stale)

	snap := c.Snapshot()
	require.Len(t, snap.Working, 1)
	assert.Equal(t, "fresh", snap.Working[0]["note"])
	assert.Equal(t, "Y", snap.Filter["account"])
}

func TestSetFilter_CancelsSupersededContext(t *testing.T) {
	cancelled := make(chan struct{})
	started := make(chan struct{})
	src := &fakeSource{}
	src.fetchFn = func(ctx context.Context, filter grid.Filter) ([]grid.Row, error) {
		if filter["account"] == "X" {
			close(started)
			<-ctx.Done()
			close(cancelled)
			return nil, ctx.Err()
		}
		return sampleRows(), nil
	}
	c := newController(t, src)

	done := make(chan FetchResult, 1)
	go func() {
		res, _ := c.SetFilter(context.Background(), grid.Filter{"account": "X"})
		done <- res
	}()
	<-started
	_, err := c.SetFilter(context.Background(), grid.Filter{"account": "Y"})
	require.NoError(t, err)

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatal("superseded fetch context was not cancelled")
	}
	assert.True(t, (<-done).Stale)
	assert.Len(t, c.Snapshot().Working, 2)
	assert.NoError(t, c.Snapshot().LastError)
}

func TestSave_NoChangesSkipsNetwork(t *testing.T) {
	src := &fakeSource{}
	c := newController(t, src)
	_, err := c.SetFilter(context.Background(), nil)
	require.NoError(t, err)

	require.NoError(t, c.EditCell(0, "qty", "1,0"))
	require.NoError(t, c.EditCell(0, "qty", "10.0"))

	res, err := c.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeNoChanges, res.Outcome)
	assert.Equal(t, 0, src.saveCount())
	assert.Equal(t, NoChangesNotice, c.Snapshot().Notice)
}

func TestSave_PromoteScenario(t *testing.T) {
	src := &fakeSource{}
	c := newController(t, src)
	_, err := c.SetFilter(context.Background(), nil)
	require.NoError(t, err)

	require.NoError(t, c.EditCell(1, "qty", "25"))
	assert.True(t, c.IsCellDirty(1, "qty"))
	assert.False(t, c.IsCellDirty(0, "qty"))

	res, err := c.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeSaved, res.Outcome)
	assert.Equal(t, 1, res.Records)

	require.Len(t, src.saves, 1)
	require.Len(t, src.saves[0], 1)
	assert.Equal(t, grid.Row{"id": 2, "qty": "25"}, src.saves[0][0].Payload())

	view := c.View()
	assert.Equal(t, 0, view.Pending)
	for i, row := range view.Working {
		for field := range row {
			assert.False(t, view.IsDirty(i, field), "row %d field %s dirty after promote", i, field)
		}
	}

	require.NoError(t, c.EditCell(1, "qty", "20"))
	assert.True(t, c.IsCellDirty(1, "qty"))
}

func TestSave_PromoteLeavesUnsentNewRowsPending(t *testing.T) {
	src := &fakeSource{}
	c := newController(t, src)
	_, err := c.SetFilter(context.Background(), nil)
	require.NoError(t, err)

	zero, err := c.AddRow(grid.Row{"id": 3, "qty": "0"})
	require.NoError(t, err)
	blank, err := c.AddRow(grid.Row{"id": 4})
	require.NoError(t, err)
	require.NoError(t, c.EditCell(0, "note", "changed"))

	_, err = c.Save(context.Background())
	require.NoError(t, err)

	require.Len(t, src.saves, 1)
	require.Len(t, src.saves[0], 2)
	assert.Equal(t, grid.Row{"id": 1, "note": "changed"}, src.saves[0][0].Payload())
	assert.Equal(t, grid.Row{"id": 3, "qty": "0"}, src.saves[0][1].Payload())
	assert.True(t, src.saves[0][1].New)

	view := c.View()
	assert.Equal(t, 0, view.Pending)
	assert.False(t, view.New[zero], "sent row should be promoted")
	assert.True(t, view.New[blank], "unsent row must stay new")
	assert.Len(t, view.Original, 3)

	require.NoError(t, c.EditCell(blank, "note", "second pass"))
	records := c.ChangeSet()
	require.Len(t, records, 1)
	assert.True(t, records[0].New)
	assert.Equal(t, 4, records[0].Identity["id"])
}

func TestSave_InFlightEditsNotSentAndStayDirty(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	src := &fakeSource{}
	src.saveFn = func(context.Context, []grid.ChangeRecord) (SaveResponse, error) {
		close(started)
		<-release
		return SaveResponse{Success: true}, nil
	}
	c := newController(t, src)
	_, err := c.SetFilter(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, c.EditCell(0, "note", "first"))

	done := make(chan error, 1)
	go func() {
		_, err := c.Save(context.Background())
		done <- err
	}()
	<-started

	assert.Equal(t, state.PhaseSaving, c.Phase())
	require.NoError(t, c.EditCell(1, "note", "during"))
	_, err = c.Save(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
	_, err = c.Refetch(context.Background())
	assert.ErrorIs(t, err, ErrBusy)

	close(release)
	require.NoError(t, <-done)

	require.Len(t, src.saves[0], 1)
	assert.Equal(t, "first", src.saves[0][0].Changes["note"])

	assert.False(t, c.IsCellDirty(0, "note"))
	assert.True(t, c.IsCellDirty(1, "note"))
}

func TestSave_FailureKeepsSnapshots(t *testing.T) {
	for name, fn := range map[string]func(context.Context, []grid.ChangeRecord) (SaveResponse, error){
		"transport": func(context.Context, []grid.ChangeRecord) (SaveResponse, error) {
			return SaveResponse{}, errors.New("connection reset")
		},
		"rejected": func(context.Context, []grid.ChangeRecord) (SaveResponse, error) {
			return SaveResponse{Success: false, Message: "month is closed"}, nil
		},
	} {
		t.Run(name, func(t *testing.T) {
			src := &fakeSource{saveFn: fn}
			c := newController(t, src)
			_, err := c.SetFilter(context.Background(), nil)
			require.NoError(t, err)
			require.NoError(t, c.EditCell(0, "qty", "99"))
			before := c.Snapshot()

			res, err := c.Save(context.Background())
			require.Error(t, err)
			assert.Equal(t, OutcomeFailed, res.Outcome)

			after := c.Snapshot()
			assert.Equal(t, before.Original, after.Original)
			assert.Equal(t, before.Working, after.Working)
			assert.Equal(t, state.PhaseIdle, after.Phase)
			require.Error(t, after.LastError)
			assert.True(t, c.IsCellDirty(0, "qty"))
		})
	}
}

func TestSave_RejectedErrorType(t *testing.T) {
	src := &fakeSource{saveFn: func(context.Context, []grid.ChangeRecord) (SaveResponse, error) {
		return SaveResponse{Message: "locked"}, nil
	}}
	c := newController(t, src)
	_, err := c.SetFilter(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, c.EditCell(0, "qty", "1"))

	_, err = c.Save(context.Background())
	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "locked", rejected.Message)
}

func TestSave_RefetchPolicy(t *testing.T) {
	src := &fakeSource{}
	c := newController(t, src, WithSavePolicy(SaveRefetch))
	_, err := c.SetFilter(context.Background(), grid.Filter{"month": "4"})
	require.NoError(t, err)
	require.NoError(t, c.EditCell(0, "qty", "11"))

	res, err := c.Save(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Refetched)
	require.Len(t, src.fetches, 2)
	assert.Equal(t, grid.Filter{"month": "4"}, src.fetches[1])
	// The fake backend ignores saves, so the refetch restores the old value.
	assert.Equal(t, "10", c.WorkingRows()[0]["qty"])
}

func TestSave_RefetchPolicyBlocksSecondSave(t *testing.T) {
	release := make(chan struct{})
	refetching := make(chan struct{})
	var calls int
	src := &fakeSource{}
	src.fetchFn = func(context.Context, grid.Filter) ([]grid.Row, error) {
		src.mu.Lock()
		calls++
		n := calls
		src.mu.Unlock()
		if n == 2 {
			close(refetching)
			<-release
		}
		return sampleRows(), nil
	}
	c := newController(t, src, WithSavePolicy(SaveRefetch))
	_, err := c.SetFilter(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, c.EditCell(0, "qty", "11"))

	done := make(chan error, 1)
	go func() {
		_, err := c.Save(context.Background())
		done <- err
	}()
	<-refetching

	assert.Equal(t, state.PhaseLoading, c.Phase())
	_, err = c.Save(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
	assert.Equal(t, 1, src.saveCount())

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, src.saveCount())
}

func TestSave_BusyWhileLoading(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	src := &fakeSource{fetchFn: func(context.Context, grid.Filter) ([]grid.Row, error) {
		close(started)
		<-release
		return sampleRows(), nil
	}}
	c := newController(t, src)

	done := make(chan struct{})
	go func() {
		_, _ = c.SetFilter(context.Background(), nil)
		close(done)
	}()
	<-started
	_, err := c.Save(context.Background())
	assert.ErrorIs(t, err, ErrBusy)
	close(release)
	<-done
}

func TestClose_DropsInFlightFetch(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	src := &fakeSource{fetchFn: func(context.Context, grid.Filter) ([]grid.Row, error) {
		close(started)
		<-release
		return sampleRows(), nil
	}}
	c := newController(t, src)

	done := make(chan FetchResult, 1)
	go func() {
		res, _ := c.SetFilter(context.Background(), nil)
		done <- res
	}()
	<-started
	c.Close()
	close(release)

	assert.True(t, (<-done).Stale)
	assert.Empty(t, c.Snapshot().Working)
	assert.False(t, c.Snapshot().Loaded())

	_, err := c.Refetch(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, c.EditCell(0, "qty", "1"), ErrClosed)
}

func TestEditCell_UnknownField(t *testing.T) {
	c := newController(t, &fakeSource{})
	_, err := c.SetFilter(context.Background(), nil)
	require.NoError(t, err)
	require.Error(t, c.EditCell(0, "nope", "x"))
}

func TestAddRow_NewRowsSavedOnlyWithContent(t *testing.T) {
	src := &fakeSource{}
	c := newController(t, src)
	_, err := c.SetFilter(context.Background(), nil)
	require.NoError(t, err)

	idx, err := c.AddRow(grid.Row{"id": 3})
	require.NoError(t, err)
	assert.Empty(t, c.ChangeSet())

	require.NoError(t, c.EditCell(idx, "note", "extra lunch"))
	records := c.ChangeSet()
	require.Len(t, records, 1)
	assert.True(t, records[0].New)
	assert.True(t, c.View().New[idx])
}

func TestParseSavePolicy(t *testing.T) {
	p, err := ParseSavePolicy("refetch")
	require.NoError(t, err)
	assert.Equal(t, SaveRefetch, p)
	p, err = ParseSavePolicy("")
	require.NoError(t, err)
	assert.Equal(t, SavePromote, p)
	_, err = ParseSavePolicy("later")
	assert.Error(t, err)
}
