// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"ipkwealth_backend/platform/events"

	"github.com/google/uuid"
)

type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadCreated is published when an intake creates a brand new lead.
type LeadCreated struct {
	BaseEvent
	LeadID     uuid.UUID `json:"leadId"`
	LeadSource string    `json:"leadSource"`
	Phone      string    `json:"phone"`
	Name       string    `json:"name,omitempty"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// LeadReentered is published when an intake merged into an existing lead.
type LeadReentered struct {
	BaseEvent
	LeadID       uuid.UUID `json:"leadId"`
	ReenterCount int       `json:"reenterCount"`
	FilledFields []string  `json:"filledFields"`
}

func (e LeadReentered) EventName() string { return "leads.lead.reentered" }

// LeadAssigned is published when a lead gains an RM, either by rotation or
// by manual reassignment.
type LeadAssigned struct {
	BaseEvent
	LeadID       uuid.UUID  `json:"leadId"`
	LeadCode     string     `json:"leadCode"`
	LeadName     string     `json:"leadName,omitempty"`
	PreviousRmID *uuid.UUID `json:"previousRmId,omitempty"`
	RmID         uuid.UUID  `json:"rmId"`
	RmName       string     `json:"rmName"`
	AssignedByID *uuid.UUID `json:"assignedById,omitempty"`
	Manual       bool       `json:"manual"`
}

func (e LeadAssigned) EventName() string { return "leads.lead.assigned" }

// LeadStatusChanged is published after a status transition.
type LeadStatusChanged struct {
	BaseEvent
	LeadID    uuid.UUID  `json:"leadId"`
	OldStatus string     `json:"oldStatus"`
	NewStatus string     `json:"newStatus"`
	ActorID   *uuid.UUID `json:"actorId,omitempty"`
}

func (e LeadStatusChanged) EventName() string { return "leads.lead.status_changed" }

// LeadsImported is published once per bulk import.
type LeadsImported struct {
	BaseEvent
	Created int `json:"created"`
	Merged  int `json:"merged"`
	Failed  int `json:"failed"`
}

func (e LeadsImported) EventName() string { return "leads.bulk.imported" }
