// Package ratelimit provides sliding-window admission control for the
// external judgment service.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	window = time.Minute
	// margin pads the computed wait so a woken caller lands strictly
	// outside the window even with coarse timers.
	margin = 500 * time.Millisecond
)

// Limiter admits at most perMinute calls in any trailing 60-second window.
// Safe for concurrent use; waiting callers are ordered by arrival at the
// internal lock, with no priority classes.
type Limiter struct {
	mu         sync.Mutex
	perMinute  int
	admissions []time.Time

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

// New creates a Limiter admitting perMinute calls per minute.
func New(perMinute int) *Limiter {
	if perMinute < 1 {
		perMinute = 1
	}
	return &Limiter{
		perMinute: perMinute,
		now:       time.Now,
		sleep:     sleepCtx,
	}
}

// Admit blocks until issuing one more call stays within the window, then
// records the admission. Returns early with the context error on cancel.
func (l *Limiter) Admit(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		l.mu.Lock()
		now := l.now()
		l.prune(now)

		if len(l.admissions) < l.perMinute {
			l.admissions = append(l.admissions, now)
			l.mu.Unlock()
			return nil
		}

		wait := l.admissions[0].Add(window).Sub(now) + margin
		l.mu.Unlock()

		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// Pending returns the number of admissions still inside the window.
func (l *Limiter) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune(l.now())
	return len(l.admissions)
}

// prune drops admissions older than the window. Caller holds mu.
func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-window)
	i := 0
	for i < len(l.admissions) && !l.admissions[i].After(cutoff) {
		i++
	}
	if i > 0 {
		l.admissions = append(l.admissions[:0], l.admissions[i:]...)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
