package domain

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventNote               EventType = "NOTE"
	EventInteraction        EventType = "INTERACTION"
	EventStatusChange       EventType = "STATUS_CHANGE"
	EventAssignment         EventType = "ASSIGNMENT"
	EventPhoneAdded         EventType = "PHONE_ADDED"
	EventPhoneRemoved       EventType = "PHONE_REMOVED"
	EventPhoneMarkedPrimary EventType = "PHONE_MARKED_PRIMARY"
	EventRemarkUpdated      EventType = "REMARK_UPDATED"
	EventBioUpdated         EventType = "BIO_UPDATED"
	EventHistorySnapshot    EventType = "HISTORY_SNAPSHOT"
)

// Tags attached by lifecycle operations.
const (
	TagStatus              = "STATUS"
	TagAssignment          = "ASSIGNMENT"
	TagClientQA            = "CLIENT_QA"
	TagStage               = "STAGE"
	TagWhatsApp            = "WHATSAPP"
	TagProductExplained    = "PRODUCT_EXPLAINED"
	TagProductNotExplained = "PRODUCT_NOT_EXPLAINED"
	TagIntake              = "INTAKE"
	TagReentry             = "REENTRY"
	TagArchive             = "ARCHIVE"
)

// LeadEvent is one append-only journal entry. AuthorID nil means the system.
type LeadEvent struct {
	ID         uuid.UUID
	Seq        int64
	LeadID     uuid.UUID
	AuthorID   *uuid.UUID
	Type       EventType
	OccurredAt time.Time
	Text       string
	Tags       []string
	Prev       Snapshot
	Next       Snapshot
	Meta       map[string]any
}
