package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultPollInterval = 15 * time.Second
	maxBackoff          = 2 * time.Minute
	pingTimeout         = 5 * time.Second
)

// Pinger checks that the server is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health records the outcome of the most recent ping.
type Health struct {
	mu       sync.Mutex
	online   bool
	checked  time.Time
	lastErr  error
	failures int
}

// Status reports whether the last ping succeeded, when it ran, and its error.
// A zero checked time means no ping has completed yet.
func (h *Health) Status() (online bool, checked time.Time, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.online, h.checked, h.lastErr
}

// record stores a ping result and returns the consecutive failure count.
func (h *Health) record(err error, now time.Time) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checked = now
	h.lastErr = err
	h.online = err == nil
	if err != nil {
		h.failures++
	} else {
		h.failures = 0
	}
	return h.failures
}

// StartPoller pings the server in the background until ctx is cancelled,
// backing off while it is unreachable. The returned channel closes when the
// goroutine exits.
func StartPoller(ctx context.Context, health *Health, pinger Pinger, interval time.Duration, logger *zap.Logger) <-chan struct{} {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			failures := ping(ctx, health, pinger, logger)
			timer := time.NewTimer(calculateBackoff(failures, interval))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}()
	return done
}

func ping(ctx context.Context, health *Health, pinger Pinger, logger *zap.Logger) int {
	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	err := pinger.Ping(pctx)
	if ctx.Err() != nil {
		return 0
	}
	wasOnline, checked, _ := health.Status()
	failures := health.record(err, time.Now())
	switch {
	case err != nil && (wasOnline || checked.IsZero()):
		logger.Warn("server unreachable", zap.Error(err))
	case err == nil && !wasOnline && !checked.IsZero():
		logger.Info("server reachable again")
	}
	return failures
}

// calculateBackoff doubles the interval per consecutive failure, capped at
// maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	d := base
	for i := 0; i < failures; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}
