package app

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestCalculateBackoff(t *testing.T) {
	baseInterval := 15 * time.Second

	tests := []struct {
		name     string
		failures int
		want     time.Duration
	}{
		{"zero failures", 0, 15 * time.Second},
		{"negative failures", -1, 15 * time.Second},
		{"one failure", 1, 30 * time.Second},
		{"two failures", 2, 60 * time.Second},
		{"three failures capped", 3, 2 * time.Minute},
		{"many failures capped", 10, 2 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateBackoff(tt.failures, baseInterval)
			if got != tt.want {
				t.Errorf("calculateBackoff(%d, %v) = %v, want %v", tt.failures, baseInterval, got, tt.want)
			}
		})
	}
}

func TestCalculateBackoff_MaxCap(t *testing.T) {
	baseInterval := 2 * time.Second
	for failures := 0; failures <= 64; failures++ {
		got := calculateBackoff(failures, baseInterval)
		if got > maxBackoff {
			t.Errorf("calculateBackoff(%d, %v) = %v, exceeds maxBackoff %v", failures, baseInterval, got, maxBackoff)
		}
	}
}

type flakyPinger struct {
	calls atomic.Int32
	fail  atomic.Bool
}

func (p *flakyPinger) Ping(context.Context) error {
	p.calls.Add(1)
	if p.fail.Load() {
		return errors.New("connection refused")
	}
	return nil
}

func TestHealthRecordsFailures(t *testing.T) {
	var h Health
	if online, checked, _ := h.Status(); online || !checked.IsZero() {
		t.Fatalf("fresh health should be unknown")
	}
	now := time.Now()
	if n := h.record(errors.New("down"), now); n != 1 {
		t.Fatalf("failures = %d, want 1", n)
	}
	if n := h.record(errors.New("down"), now); n != 2 {
		t.Fatalf("failures = %d, want 2", n)
	}
	if n := h.record(nil, now); n != 0 {
		t.Fatalf("failures after success = %d, want 0", n)
	}
	online, checked, err := h.Status()
	if !online || !checked.Equal(now) || err != nil {
		t.Fatalf("Status = %v %v %v", online, checked, err)
	}
}

func TestStartPollerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := &flakyPinger{}
	p.fail.Store(true)
	var h Health

	done := StartPoller(ctx, &h, p, time.Hour, nil)

	deadline := time.After(2 * time.Second)
	for {
		if _, checked, _ := h.Status(); !checked.IsZero() {
			break
		}
		select {
		case <-deadline:
			t.Fatal("poller never pinged")
		case <-time.After(5 * time.Millisecond):
		}
	}
	online, _, err := h.Status()
	if online || err == nil {
		t.Fatalf("expected offline with error, got %v %v", online, err)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop")
	}
	if got := p.calls.Load(); got != 1 {
		t.Fatalf("pings = %d, want 1 with an hour interval", got)
	}
}
