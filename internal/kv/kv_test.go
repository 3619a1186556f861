package kv

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/galley/internal/grid"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "session.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	mem, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = mem.Close() })
	return map[string]Store{
		"memory":        NewMemory(),
		"sqlite":        db,
		"sqlite-memory": mem,
	}
}

func TestStore_GetSetRemove(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := s.Get(ctx, KeyToken)
			require.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Set(ctx, KeyToken, "abc"))
			require.NoError(t, s.Set(ctx, KeyToken, "def"))
			got, err := s.Get(ctx, KeyToken)
			require.NoError(t, err)
			assert.Equal(t, "def", got)

			require.NoError(t, s.Remove(ctx, KeyToken))
			_, err = s.Get(ctx, KeyToken)
			require.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, s.Remove(ctx, "never-set"), "removing a missing key is not an error")
		})
	}
}

func TestSQLite_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")
	ctx := context.Background()

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	s.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	require.NoError(t, s.Set(ctx, FilterKey("meals"), "account=A100"))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	got, err := s.Get(ctx, FilterKey("meals"))
	require.NoError(t, err)
	assert.Equal(t, "account=A100", got)

	at, err := s.UpdatedAt(ctx, FilterKey("meals"))
	require.NoError(t, err)
	assert.Equal(t, int64(1_700_000_000), at.Unix())
}

func TestFilterRoundTrip(t *testing.T) {
	f := grid.Filter{"year": "2024", "account": "A100", "month": "5"}
	enc := EncodeFilter(f)
	assert.Equal(t, "account=A100&month=5&year=2024", enc)
	assert.Equal(t, f, DecodeFilter(enc))
	assert.Equal(t, grid.Filter{"a": "1"}, DecodeFilter("a=1&=x&b=%zz"))
	assert.Equal(t, grid.Filter{"memo": "a&b=c"}, DecodeFilter(EncodeFilter(grid.Filter{"memo": "a&b=c"})))
	assert.Equal(t, "filter.meals", FilterKey("meals"))
}

func TestMemory_Keys(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Set(ctx, "b", "2"))
	require.NoError(t, m.Set(ctx, "a", "1"))
	assert.Equal(t, []string{"a", "b"}, m.Keys())
}

func TestLoadFilterOverlaysSavedValues(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	defaults := grid.Filter{"account": "A100", "year": "2024"}

	got, err := LoadFilter(ctx, store, "meals", defaults)
	require.NoError(t, err)
	assert.Equal(t, defaults, got)

	require.NoError(t, store.Set(ctx, FilterKey("meals"), EncodeFilter(grid.Filter{"account": "A200", "stale": "x"})))
	got, err = LoadFilter(ctx, store, "meals", defaults)
	require.NoError(t, err)
	assert.Equal(t, grid.Filter{"account": "A200", "year": "2024"}, got)
	assert.Equal(t, "A100", defaults["account"], "defaults must not be modified")
}
