package journal

import (
	"context"
	"errors"
	"testing"
	"time"

	"ipkwealth_backend/internal/leads/domain"
	"ipkwealth_backend/platform/apperr"
	"ipkwealth_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeStore struct {
	failures  int
	failWith  error
	calls     int
	saved     []domain.LeadEvent
	lastLimit int
}

func (f *fakeStore) AppendEvent(_ context.Context, e domain.LeadEvent) (domain.LeadEvent, error) {
	f.calls++
	if f.failWith != nil {
		return domain.LeadEvent{}, f.failWith
	}
	if f.calls <= f.failures {
		return domain.LeadEvent{}, errors.Join(ErrAppendConflict, errors.New("connection reset"))
	}
	e.Seq = int64(len(f.saved) + 1)
	f.saved = append(f.saved, e)
	return e, nil
}

func (f *fakeStore) ListEvents(_ context.Context, _ uuid.UUID, limit int) ([]domain.LeadEvent, error) {
	f.lastLimit = limit
	return f.saved, nil
}

var fixed = time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

func newJournal(store Store) *Journal {
	return New(store, nil, func() time.Time { return fixed }, nil, logger.Discard())
}

func TestRecordStampsEntry(t *testing.T) {
	store := &fakeStore{}
	j := newJournal(store)
	leadID := uuid.New()

	ev, err := j.Record(context.Background(), Entry{
		LeadID: leadID,
		Type:   domain.EventStatusChange,
		Text:   "Status: OPEN -> CLOSED",
		Prev:   domain.StatusSnapshot{Status: domain.LeadStatusOpen},
		Next:   domain.StatusSnapshot{Status: domain.LeadStatusClosed},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ev.ID == uuid.Nil || ev.Seq != 1 || !ev.OccurredAt.Equal(fixed) {
		t.Fatalf("entry not stamped: %+v", ev)
	}
	if ev.AuthorID != nil {
		t.Fatal("missing author should mean the system")
	}
	if ev.Tags == nil {
		t.Fatal("tags should default to an empty list")
	}
}

func TestRecordRetriesTransientFailures(t *testing.T) {
	store := &fakeStore{failures: 2}
	j := newJournal(store)

	if _, err := j.Record(context.Background(), Entry{LeadID: uuid.New(), Type: domain.EventNote, Text: "hi"}); err != nil {
		t.Fatalf("expected success on third attempt, got %v", err)
	}
	if store.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", store.calls)
	}
}

func TestRecordGivesUp(t *testing.T) {
	store := &fakeStore{failures: 10}
	j := newJournal(store)

	_, err := j.Record(context.Background(), Entry{LeadID: uuid.New(), Type: domain.EventNote, Text: "hi"})
	if !apperr.Is(err, apperr.KindInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
	if store.calls != appendAttempts {
		t.Fatalf("expected %d attempts, got %d", appendAttempts, store.calls)
	}
}

func TestListClampsLimit(t *testing.T) {
	store := &fakeStore{}
	j := newJournal(store)

	cases := []struct{ in, want int }{{0, DefaultListLimit}, {-5, DefaultListLimit}, {20, 20}, {10000, MaxListLimit}}
	for _, tc := range cases {
		if _, err := j.List(context.Background(), uuid.New(), tc.in); err != nil {
			t.Fatalf("list: %v", err)
		}
		if store.lastLimit != tc.want {
			t.Errorf("limit %d: expected %d, got %d", tc.in, tc.want, store.lastLimit)
		}
	}
}

func TestRecordDoesNotRetryPermanentFailures(t *testing.T) {
	store := &fakeStore{failWith: domain.ErrLeadNotFound}
	j := newJournal(store)

	_, err := j.Record(context.Background(), Entry{LeadID: uuid.New(), Type: domain.EventNote, Text: "hi"})
	if !errors.Is(err, domain.ErrLeadNotFound) {
		t.Fatalf("expected lead not found to pass through, got %v", err)
	}
	if apperr.Is(err, apperr.KindInternal) {
		t.Fatalf("permanent failure must not be reported as internal: %v", err)
	}
	if store.calls != 1 {
		t.Fatalf("expected a single attempt, got %d", store.calls)
	}
}
