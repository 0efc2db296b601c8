// Package sequence reserves contiguous, non-overlapping integer ranges from
// named counters. Counters start at zero, only ever grow, and are shared by
// every process talking to the same store.
package sequence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ipkwealth_backend/platform/apperr"
	"ipkwealth_backend/platform/logger"
	"ipkwealth_backend/platform/metrics"
)

var (
	// ErrWriteConflict is returned by a Store when the increment lost a
	// concurrent write race and may be retried as-is.
	ErrWriteConflict = errors.New("counter write conflict")
	// ErrContentionExhausted is wrapped by ReserveRange once every attempt
	// hit a write conflict.
	ErrContentionExhausted = errors.New("counter contention exhausted")
)

const (
	DefaultMaxAttempts = 10
	DefaultBaseDelay   = 25 * time.Millisecond
	DefaultMaxDelay    = 300 * time.Millisecond
)

// Store performs the atomic read-modify-write on a counter.
type Store interface {
	// Increment adds by to key, creating the counter at zero first if it does
	// not exist, and returns the value after the increment. Both steps must
	// be individually atomic; no lock may be held across calls.
	Increment(ctx context.Context, key string, by int64) (int64, error)
}

// Range is an inclusive block of reserved values.
type Range struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

func (r Range) Size() int64 { return r.End - r.Start + 1 }

// Values expands the range. Intended for small ranges.
func (r Range) Values() []int64 {
	out := make([]int64, 0, r.Size())
	for v := r.Start; v <= r.End; v++ {
		out = append(out, v)
	}
	return out
}

// Allocator hands out ranges and retries write conflicts with quadratic backoff.
type Allocator struct {
	store       Store
	log         *logger.Logger
	metrics     *metrics.Metrics
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
	now         func() time.Time
}

type Option func(*Allocator)

func WithBackoff(maxAttempts int, base, max time.Duration) Option {
	return func(a *Allocator) {
		if maxAttempts > 0 {
			a.maxAttempts = maxAttempts
		}
		if base > 0 {
			a.baseDelay = base
		}
		if max > 0 {
			a.maxDelay = max
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Allocator) { a.metrics = m }
}

// WithSleep replaces the wait between attempts.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(a *Allocator) { a.sleep = fn }
}

func New(store Store, log *logger.Logger, opts ...Option) *Allocator {
	a := &Allocator{
		store:       store,
		log:         log,
		maxAttempts: DefaultMaxAttempts,
		baseDelay:   DefaultBaseDelay,
		maxDelay:    DefaultMaxDelay,
		sleep:       sleepCtx,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Next reserves a single value.
func (a *Allocator) Next(ctx context.Context, key string) (int64, error) {
	r, err := a.ReserveRange(ctx, key, 1)
	if err != nil {
		return 0, err
	}
	return r.Start, nil
}

// ReserveRange reserves size consecutive values on key. Concurrent callers
// always receive disjoint ranges.
func (a *Allocator) ReserveRange(ctx context.Context, key string, size int64) (Range, error) {
	if strings.TrimSpace(key) == "" {
		return Range{}, apperr.Validation("counter key is required")
	}
	if size < 1 {
		return Range{}, apperr.Validation(fmt.Sprintf("range size must be at least 1, got %d", size))
	}

	started := a.now()
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		value, err := a.store.Increment(ctx, key, size)
		if err == nil {
			a.metrics.ObserveReservation("ok", a.now().Sub(started).Seconds())
			return Range{Start: value - size + 1, End: value}, nil
		}
		if !errors.Is(err, ErrWriteConflict) {
			a.metrics.ObserveReservation("error", a.now().Sub(started).Seconds())
			return Range{}, fmt.Errorf("increment counter %s: %w", key, err)
		}

		a.log.CounterContention(key, attempt, err)
		if attempt == a.maxAttempts {
			break
		}
		if err := a.sleep(ctx, a.backoff(attempt)); err != nil {
			return Range{}, err
		}
	}

	a.metrics.ObserveReservation("exhausted", a.now().Sub(started).Seconds())
	a.log.Error("counter contention exhausted", "key", key, "attempts", a.maxAttempts)
	return Range{}, apperr.Wrap(apperr.KindUnavailable,
		fmt.Sprintf("counter contention for key %s: exhausted retries", key),
		ErrContentionExhausted)
}

// backoff is min(base * attempt^2, max) for a 1-based attempt.
func (a *Allocator) backoff(attempt int) time.Duration {
	d := a.baseDelay * time.Duration(attempt*attempt)
	if d > a.maxDelay {
		return a.maxDelay
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
