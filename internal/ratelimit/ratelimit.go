package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrRateLimitExceeded is returned when a caller cannot be admitted
// within the configured maximum wait. Throttling below that cap is
// backpressure, not failure, and never surfaces an error.
var ErrRateLimitExceeded = errors.New("rate limit exceeded maximum wait")

// Limiter throttles outbound marketplace calls with fixed-window
// counters per minute and per hour, plus a small inter-call delay to
// avoid bursts even under budget. Acquire blocks the calling goroutine
// until the call is admitted. Safe for concurrent use.
type Limiter struct {
	mu          sync.Mutex
	perMinute   int
	perHour     int
	callDelay   time.Duration
	maxWait     time.Duration
	minuteStart time.Time
	minuteCount int
	hourStart   time.Time
	hourCount   int
	lastCall    time.Time

	// Overridable for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func New(perMinute, perHour int, callDelay, maxWait time.Duration) *Limiter {
	return &Limiter{
		perMinute: perMinute,
		perHour:   perHour,
		callDelay: callDelay,
		maxWait:   maxWait,
		now:       time.Now,
		sleep:     sleepContext,
	}
}

// Acquire blocks until one call is admitted, then records it. It
// returns ErrRateLimitExceeded when the required wait would exceed the
// configured cap, and the context error when the caller is cancelled
// mid-wait.
func (l *Limiter) Acquire(ctx context.Context) error {
	start := l.now()

	for {
		l.mu.Lock()
		now := l.now()
		l.roll(now)

		wait := l.nextWait(now)
		if wait <= 0 {
			l.minuteCount++
			l.hourCount++
			l.lastCall = now
			l.mu.Unlock()
			return nil
		}
		l.mu.Unlock()

		if l.maxWait > 0 && now.Sub(start)+wait > l.maxWait {
			return ErrRateLimitExceeded
		}
		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// roll resets a window counter once its window has elapsed.
func (l *Limiter) roll(now time.Time) {
	if now.Sub(l.minuteStart) >= time.Minute {
		l.minuteStart = now
		l.minuteCount = 0
	}
	if now.Sub(l.hourStart) >= time.Hour {
		l.hourStart = now
		l.hourCount = 0
	}
}

// nextWait returns how long the caller must wait before admission, or
// zero when the call can proceed immediately.
func (l *Limiter) nextWait(now time.Time) time.Duration {
	var wait time.Duration
	if l.perMinute > 0 && l.minuteCount >= l.perMinute {
		wait = l.minuteStart.Add(time.Minute).Sub(now)
	}
	if l.perHour > 0 && l.hourCount >= l.perHour {
		if hourWait := l.hourStart.Add(time.Hour).Sub(now); hourWait > wait {
			wait = hourWait
		}
	}
	if wait <= 0 && l.callDelay > 0 && !l.lastCall.IsZero() {
		if d := l.callDelay - now.Sub(l.lastCall); d > 0 {
			wait = d
		}
	}
	return wait
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
