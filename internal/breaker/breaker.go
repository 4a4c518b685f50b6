// Package breaker implements a per-key circuit breaker protecting the
// Prediction Gateway's calls to external model services: a sliding
// window of recent failures trips the breaker open for a cool-down
// period, during which calls fail fast without reaching the
// dependency.
package breaker

import (
	"context"
	"sync"
	"time"

	"evchargenet/pkg/apperror"
	"evchargenet/pkg/config"
)

// State is the externally observable state of a single key's breaker.
type State string

const (
	StateClosed State = "CLOSED"
	StateOpen   State = "OPEN"
)

type entry struct {
	failures []time.Time
	openedAt time.Time
	state    State
}

// Breaker tracks failure counts per key (typically a model id) and
// decides whether a call for that key should proceed.
type Breaker struct {
	mu        sync.Mutex
	entries   map[string]*entry
	threshold int
	window    time.Duration
	coolDown  time.Duration
	stopCh    chan struct{}
	closeOnce sync.Once
}

// New creates a breaker from configuration.
func New(cfg config.BreakerConfig) *Breaker {
	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = 5
	}
	window := cfg.Window()
	if window <= 0 {
		window = 30 * time.Second
	}
	coolDown := cfg.CoolDown()
	if coolDown <= 0 {
		coolDown = 30 * time.Second
	}

	b := &Breaker{
		entries:   make(map[string]*entry),
		threshold: threshold,
		window:    window,
		coolDown:  coolDown,
		stopCh:    make(chan struct{}),
	}

	go b.cleanup()

	return b
}

// Allow reports whether a call for key may proceed. It returns
// apperror.ErrBreakerOpen when the key's breaker is currently open.
// A context already cancelled is never blamed on the breaker; the
// caller should check ctx.Err() before calling Allow.
func (b *Breaker) Allow(ctx context.Context, key string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[key]
	if !ok {
		return nil
	}

	if e.state == StateOpen {
		if time.Since(e.openedAt) >= b.coolDown {
			e.state = StateClosed
			e.failures = nil
			return nil
		}
		return apperror.ErrBreakerOpen
	}

	return nil
}

// RecordSuccess clears the failure window for key. Successful calls
// reset the breaker back toward a fully healthy state.
func (b *Breaker) RecordSuccess(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[key]
	if !ok {
		return
	}
	e.failures = nil
}

// RecordFailure counts one failure for key. If the failure count
// within the configured window exceeds the threshold, the breaker
// opens and State reports StateOpen until the cool-down elapses.
// Cancelled calls must not be recorded here; callers should check
// ctx.Err() first, per spec: "honours an incoming cancellation signal
// ... without recording it as a breaker failure."
func (b *Breaker) RecordFailure(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[key]
	if !ok {
		e = &entry{state: StateClosed}
		b.entries[key] = e
	}

	now := time.Now()
	windowStart := now.Add(-b.window)

	fresh := e.failures[:0]
	for _, t := range e.failures {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}
	fresh = append(fresh, now)
	e.failures = fresh

	if e.state != StateOpen && len(e.failures) > b.threshold {
		e.state = StateOpen
		e.openedAt = now
	}
}

// State reports the current breaker state for key.
func (b *Breaker) State(key string) State {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[key]
	if !ok {
		return StateClosed
	}
	if e.state == StateOpen && time.Since(e.openedAt) >= b.coolDown {
		return StateClosed
	}
	return e.state
}

// Close stops the background cleanup goroutine.
func (b *Breaker) Close() {
	b.closeOnce.Do(func() {
		close(b.stopCh)
	})
}

func (b *Breaker) cleanup() {
	ticker := time.NewTicker(b.window)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopCh:
			return
		case <-ticker.C:
			b.mu.Lock()
			windowStart := time.Now().Add(-b.window)
			for key, e := range b.entries {
				if e.state == StateOpen {
					continue
				}
				fresh := e.failures[:0]
				for _, t := range e.failures {
					if t.After(windowStart) {
						fresh = append(fresh, t)
					}
				}
				e.failures = fresh
				if len(e.failures) == 0 {
					delete(b.entries, key)
				}
			}
			b.mu.Unlock()
		}
	}
}
