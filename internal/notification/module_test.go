package notification

import (
	"context"
	"sync"
	"testing"
	"time"

	"ipkwealth_backend/internal/email"
	"ipkwealth_backend/internal/events"
	"ipkwealth_backend/internal/leads/domain"
	"ipkwealth_backend/internal/leads/memstore"
	"ipkwealth_backend/platform/logger"

	"github.com/google/uuid"
)

type testSender struct {
	mu    sync.Mutex
	sent  []email.LeadAssigned
	rcpts []string
}

func (s *testSender) SendLeadAssignedEmail(_ context.Context, to string, data email.LeadAssigned) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, data)
	s.rcpts = append(s.rcpts, to)
	return nil
}

func setup(t *testing.T) (*memstore.Store, *testSender, *events.InMemoryBus) {
	t.Helper()
	log := logger.Discard()
	store := memstore.New()
	sender := &testSender{}
	bus := events.NewInMemoryBus(log)
	New(sender, store, store, log).RegisterHandlers(bus)
	return store, sender, bus
}

func TestAssignmentEmailGoesToRM(t *testing.T) {
	store, sender, bus := setup(t)
	ctx := context.Background()

	mail := "meera@example.com"
	rm := domain.User{ID: uuid.New(), Name: "Meera", Email: &mail, Role: domain.RoleRM, Status: domain.UserStatusActive}
	store.PutUser(rm)
	lead, err := store.CreateLead(ctx, domain.Lead{ID: uuid.New(), Phone: "+919876543210", LeadSource: "website", Status: domain.LeadStatusAssigned, CreatedAt: time.Now()})
	if err != nil {
		t.Fatalf("create lead: %v", err)
	}

	bus.Publish(ctx, events.LeadAssigned{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		LeadCode:  "IPK25030001",
		LeadName:  "Asha",
		RmID:      rm.ID,
		RmName:    rm.Name,
	})
	bus.Wait()

	if len(sender.sent) != 1 || sender.rcpts[0] != mail {
		t.Fatalf("expected one email to %s, got %v", mail, sender.rcpts)
	}
	got := sender.sent[0]
	if got.LeadCode != "IPK25030001" || got.LeadSource != "website" || got.Reassigned {
		t.Fatalf("unexpected notice %+v", got)
	}
}

func TestAssignmentEmailSkippedWithoutAddress(t *testing.T) {
	store, sender, bus := setup(t)
	rm := domain.User{ID: uuid.New(), Name: "NoMail", Role: domain.RoleRM, Status: domain.UserStatusActive}
	store.PutUser(rm)

	bus.Publish(context.Background(), events.LeadAssigned{BaseEvent: events.NewBaseEvent(), LeadID: uuid.New(), RmID: rm.ID})
	bus.Wait()

	if len(sender.sent) != 0 {
		t.Fatalf("expected no email, got %d", len(sender.sent))
	}
}
