// Package notification sends notifications in response to domain events.
// Domain modules publish events and never need to know about mail delivery.
package notification

import (
	"context"
	"fmt"

	"ipkwealth_backend/internal/email"
	"ipkwealth_backend/internal/events"
	"ipkwealth_backend/internal/leads/domain"
	"ipkwealth_backend/platform/logger"
	"ipkwealth_backend/platform/phone"

	"github.com/google/uuid"
)

// UserReader resolves the RM's email address.
type UserReader interface {
	GetUser(ctx context.Context, id uuid.UUID) (domain.User, error)
}

// LeadReader loads the lead being announced.
type LeadReader interface {
	GetLead(ctx context.Context, id uuid.UUID) (domain.Lead, error)
}

type Module struct {
	sender email.Sender
	users  UserReader
	leads  LeadReader
	log    *logger.Logger
}

func New(sender email.Sender, users UserReader, leads LeadReader, log *logger.Logger) *Module {
	if sender == nil {
		sender = email.NoopSender{}
	}
	return &Module{sender: sender, users: users, leads: leads, log: log}
}

// RegisterHandlers subscribes the module to the events it reacts to.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadAssigned{}.EventName(), events.HandlerFunc(m.handleLeadAssigned))
	bus.Subscribe(events.LeadsImported{}.EventName(), events.HandlerFunc(m.handleLeadsImported))
}

func (m *Module) handleLeadAssigned(ctx context.Context, event events.Event) error {
	e, ok := event.(events.LeadAssigned)
	if !ok {
		return nil
	}

	rm, err := m.users.GetUser(ctx, e.RmID)
	if err != nil {
		return fmt.Errorf("load rm %s: %w", e.RmID, err)
	}
	if rm.Email == nil || *rm.Email == "" {
		m.log.Debug("rm has no email, skipping assignment notice", "rmId", e.RmID, "leadId", e.LeadID)
		return nil
	}

	lead, err := m.leads.GetLead(ctx, e.LeadID)
	if err != nil {
		return fmt.Errorf("load lead %s: %w", e.LeadID, err)
	}

	notice := email.LeadAssigned{
		RMName:     rm.Name,
		LeadName:   e.LeadName,
		LeadCode:   e.LeadCode,
		LeadSource: lead.LeadSource,
		Phone:      phone.Display(lead.Phone),
		Reassigned: e.PreviousRmID != nil,
	}
	if err := m.sender.SendLeadAssignedEmail(ctx, *rm.Email, notice); err != nil {
		m.log.Error("failed to send assignment email", "leadId", e.LeadID, "rmId", e.RmID, "error", err)
		return err
	}
	m.log.Info("assignment email sent", "leadId", e.LeadID, "rmId", e.RmID)
	return nil
}

func (m *Module) handleLeadsImported(_ context.Context, event events.Event) error {
	e, ok := event.(events.LeadsImported)
	if !ok {
		return nil
	}
	m.log.Info("bulk import finished", "created", e.Created, "merged", e.Merged, "failed", e.Failed)
	return nil
}
