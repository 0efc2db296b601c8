package domain

import (
	"time"

	"github.com/google/uuid"
)

// MaxPhonesPerLead caps the phone book of a single lead.
const MaxPhonesPerLead = 4

type PhoneLabel string

const (
	PhoneLabelMobile PhoneLabel = "MOBILE"
	PhoneLabelHome   PhoneLabel = "HOME"
	PhoneLabelWork   PhoneLabel = "WORK"
	PhoneLabelOther  PhoneLabel = "OTHER"
)

func (p PhoneLabel) Valid() bool {
	switch p {
	case PhoneLabelMobile, PhoneLabelHome, PhoneLabelWork, PhoneLabelOther:
		return true
	}
	return false
}

// LeadPhone is an additional number on a lead. While a lead has any phones,
// exactly one of them is primary.
type LeadPhone struct {
	ID         uuid.UUID
	LeadID     uuid.UUID
	Label      PhoneLabel
	Number     string
	Normalized string
	IsPrimary  bool
	IsWhatsapp bool
	CreatedAt  time.Time
}

// NewPhone is the input for adding a phone.
type NewPhone struct {
	Label      PhoneLabel
	Number     string
	IsPrimary  bool
	IsWhatsapp bool
}
