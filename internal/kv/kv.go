package kv

import (
	"context"
	"errors"
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/five82/galley/internal/grid"
)

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("key not found")

// Well-known keys.
const (
	KeyToken     = "session.token"
	filterPrefix = "filter."
)

// Store is a small string key-value store for session state.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// FilterKey returns the key under which a grid's last filter is kept.
func FilterKey(gridName string) string {
	return filterPrefix + gridName
}

// EncodeFilter serializes a filter as a sorted query string.
func EncodeFilter(f grid.Filter) string {
	values := url.Values{}
	for k, v := range f {
		values.Set(k, v)
	}
	return values.Encode()
}

// DecodeFilter parses the output of EncodeFilter. Pairs with an empty key or
// a bad escape are skipped.
func DecodeFilter(s string) grid.Filter {
	values, _ := url.ParseQuery(s)
	out := grid.Filter{}
	for k, v := range values {
		if strings.TrimSpace(k) == "" || len(v) == 0 {
			continue
		}
		out[k] = v[0]
	}
	return out
}

// LoadFilter overlays the filter saved for gridName onto defaults. Saved
// keys that defaults does not declare are dropped.
func LoadFilter(ctx context.Context, s Store, gridName string, defaults grid.Filter) (grid.Filter, error) {
	out := defaults.Clone()
	raw, err := s.Get(ctx, FilterKey(gridName))
	if errors.Is(err, ErrNotFound) {
		return out, nil
	}
	if err != nil {
		return out, err
	}
	saved := DecodeFilter(raw)
	for k := range out {
		if v, ok := saved[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

// Memory is an in-process Store.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *Memory) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Keys lists stored keys in sorted order.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.data))
	for k := range m.data {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
