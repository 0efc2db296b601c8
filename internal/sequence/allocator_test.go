package sequence

import (
	"context"
	"errors"
	"slices"
	"sort"
	"sync"
	"testing"
	"time"

	"ipkwealth_backend/platform/apperr"
	"ipkwealth_backend/platform/logger"
)

type flakyStore struct {
	inner     Store
	conflicts int
	failWith  error
	calls     int
	mu        sync.Mutex
}

func (s *flakyStore) Increment(ctx context.Context, key string, by int64) (int64, error) {
	s.mu.Lock()
	s.calls++
	call := s.calls
	s.mu.Unlock()
	if s.failWith != nil {
		return 0, s.failWith
	}
	if call <= s.conflicts {
		return 0, ErrWriteConflict
	}
	return s.inner.Increment(ctx, key, by)
}

type recordedSleeps struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordedSleeps) sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return nil
}

func TestConcurrentSingleReservationsAreDistinct(t *testing.T) {
	alloc := New(NewMemoryStore(), logger.Discard())
	const n = 64

	starts := make([]int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := alloc.ReserveRange(context.Background(), "K", 1)
			if err != nil {
				t.Errorf("reserve: %v", err)
				return
			}
			if r.Start != r.End {
				t.Errorf("single reservation spans %d..%d", r.Start, r.End)
			}
			starts[i] = r.Start
		}(i)
	}
	wg.Wait()

	sort.Slice(starts, func(i, j int) bool { return starts[i] < starts[j] })
	for i, v := range starts {
		if v != int64(i+1) {
			t.Fatalf("starts[%d] = %d, want %d", i, v, i+1)
		}
	}
}

func TestRangesAreContiguousAndDisjoint(t *testing.T) {
	alloc := New(NewMemoryStore(), logger.Discard())
	ctx := context.Background()

	first, err := alloc.ReserveRange(ctx, "bulk", 5)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := alloc.ReserveRange(ctx, "bulk", 3)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	other, err := alloc.ReserveRange(ctx, "other", 2)
	if err != nil {
		t.Fatalf("other: %v", err)
	}

	if first != (Range{Start: 1, End: 5}) {
		t.Fatalf("first = %+v", first)
	}
	if second != (Range{Start: 6, End: 8}) {
		t.Fatalf("second = %+v", second)
	}
	if other != (Range{Start: 1, End: 2}) {
		t.Fatalf("other = %+v", other)
	}
	if second.Size() != 3 {
		t.Fatalf("size = %d, want 3", second.Size())
	}
	if got := second.Values(); !slices.Equal(got, []int64{6, 7, 8}) {
		t.Fatalf("values = %v", got)
	}
}

func TestWriteConflictsAreRetriedWithBackoff(t *testing.T) {
	sleeps := &recordedSleeps{}
	store := &flakyStore{inner: NewMemoryStore(), conflicts: 3}
	alloc := New(store, logger.Discard(), WithSleep(sleeps.sleep))

	r, err := alloc.ReserveRange(context.Background(), "K", 1)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if r.Start != 1 {
		t.Fatalf("start = %d, want 1", r.Start)
	}
	if store.calls != 4 {
		t.Fatalf("calls = %d, want 4", store.calls)
	}
	want := []time.Duration{25 * time.Millisecond, 100 * time.Millisecond, 225 * time.Millisecond}
	if !slices.Equal(sleeps.delays, want) {
		t.Fatalf("delays = %v, want %v", sleeps.delays, want)
	}
}

func TestContentionExhausted(t *testing.T) {
	sleeps := &recordedSleeps{}
	store := &flakyStore{inner: NewMemoryStore(), conflicts: 1000}
	alloc := New(store, logger.Discard(), WithSleep(sleeps.sleep))

	_, err := alloc.ReserveRange(context.Background(), "hot", 1)
	if !errors.Is(err, ErrContentionExhausted) {
		t.Fatalf("err = %v, want ErrContentionExhausted", err)
	}
	if !apperr.Is(err, apperr.KindUnavailable) {
		t.Fatalf("err kind = %v, want unavailable", err)
	}
	if store.calls != DefaultMaxAttempts {
		t.Fatalf("calls = %d, want %d", store.calls, DefaultMaxAttempts)
	}

	for _, d := range sleeps.delays {
		if d > DefaultMaxDelay {
			t.Fatalf("delay %s exceeds cap %s", d, DefaultMaxDelay)
		}
	}
	if last := sleeps.delays[len(sleeps.delays)-1]; last != DefaultMaxDelay {
		t.Fatalf("last delay = %s, want %s", last, DefaultMaxDelay)
	}
}

func TestOtherErrorsAreNotRetried(t *testing.T) {
	boom := errors.New("connection refused")
	store := &flakyStore{failWith: boom}
	alloc := New(store, logger.Discard(), WithSleep((&recordedSleeps{}).sleep))

	_, err := alloc.ReserveRange(context.Background(), "K", 1)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if store.calls != 1 {
		t.Fatalf("calls = %d, want 1", store.calls)
	}
}

func TestInvalidInput(t *testing.T) {
	alloc := New(NewMemoryStore(), logger.Discard())
	if _, err := alloc.ReserveRange(context.Background(), "K", 0); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("zero count: err = %v, want validation", err)
	}
	if _, err := alloc.ReserveRange(context.Background(), " ", 1); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("blank key: err = %v, want validation", err)
	}
}

func TestCancelledContextStopsRetrying(t *testing.T) {
	store := &flakyStore{inner: NewMemoryStore(), conflicts: 1000}
	alloc := New(store, logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := alloc.ReserveRange(ctx, "K", 1)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if store.calls != 1 {
		t.Fatalf("calls = %d, want 1", store.calls)
	}
}
