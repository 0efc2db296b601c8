// Package journal appends audit entries for every lead mutation.
package journal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ipkwealth_backend/internal/leads/domain"
	"ipkwealth_backend/platform/apperr"
	"ipkwealth_backend/platform/logger"
	"ipkwealth_backend/platform/metrics"

	"github.com/google/uuid"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 500

	appendAttempts  = 3
	appendBaseDelay = 20 * time.Millisecond
)

// ErrAppendConflict marks a store failure that is safe to retry, such as a
// serialization failure or a dropped connection. Stores wrap it with
// errors.Join so the cause stays visible.
var ErrAppendConflict = errors.New("journal append conflict")

// Store persists journal entries. Entries are never updated or deleted.
type Store interface {
	AppendEvent(ctx context.Context, event domain.LeadEvent) (domain.LeadEvent, error)
	// ListEvents returns the newest entries first, ties broken by insertion order.
	ListEvents(ctx context.Context, leadID uuid.UUID, limit int) ([]domain.LeadEvent, error)
}

// Entry is what a caller records.
type Entry struct {
	LeadID   uuid.UUID
	AuthorID *uuid.UUID
	Type     domain.EventType
	Text     string
	Tags     []string
	Prev     domain.Snapshot
	Next     domain.Snapshot
	Meta     map[string]any
}

type Journal struct {
	store   Store
	newID   func() uuid.UUID
	clock   func() time.Time
	metrics *metrics.Metrics
	log     *logger.Logger
}

func New(store Store, newID func() uuid.UUID, clock func() time.Time, m *metrics.Metrics, log *logger.Logger) *Journal {
	if newID == nil {
		newID = uuid.New
	}
	if clock == nil {
		clock = time.Now
	}
	return &Journal{store: store, newID: newID, clock: clock, metrics: m, log: log}
}

// Record appends one entry. Only ErrAppendConflict failures are retried, a
// few times; any other store error is returned unchanged on the first
// attempt. A final failure is logged with the full entry so the trail can be
// repaired by hand.
func (j *Journal) Record(ctx context.Context, e Entry) (domain.LeadEvent, error) {
	tags := e.Tags
	if tags == nil {
		tags = []string{}
	}
	event := domain.LeadEvent{
		ID:         j.newID(),
		LeadID:     e.LeadID,
		AuthorID:   e.AuthorID,
		Type:       e.Type,
		OccurredAt: j.clock(),
		Text:       e.Text,
		Tags:       tags,
		Prev:       e.Prev,
		Next:       e.Next,
		Meta:       e.Meta,
	}

	var lastErr error
	for attempt := 1; attempt <= appendAttempts; attempt++ {
		saved, err := j.store.AppendEvent(ctx, event)
		if err == nil {
			j.metrics.IncJournal(string(event.Type))
			return saved, nil
		}
		lastErr = err
		if !errors.Is(err, ErrAppendConflict) {
			j.logFailure(event, err)
			return domain.LeadEvent{}, err
		}
		if ctx.Err() != nil || attempt == appendAttempts {
			break
		}
		delay := time.Duration(attempt*attempt) * appendBaseDelay
		select {
		case <-ctx.Done():
		case <-time.After(delay):
		}
	}

	j.logFailure(event, lastErr)
	return domain.LeadEvent{}, apperr.Wrap(apperr.KindInternal, "lead changed but journal entry could not be recorded",
		fmt.Errorf("append %s event for lead %s: %w", event.Type, event.LeadID, lastErr))
}

func (j *Journal) logFailure(event domain.LeadEvent, err error) {
	j.log.Error("journal append failed",
		"leadId", event.LeadID,
		"eventId", event.ID,
		"type", event.Type,
		"text", event.Text,
		"error", err,
	)
}

// List returns up to limit entries for a lead, newest first.
func (j *Journal) List(ctx context.Context, leadID uuid.UUID, limit int) ([]domain.LeadEvent, error) {
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	return j.store.ListEvents(ctx, leadID, limit)
}
