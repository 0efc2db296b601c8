// Package transport holds the JSON request and response shapes of the
// leads API.
package transport

import (
	"time"

	"github.com/google/uuid"
)

type QAItem struct {
	Question string `json:"question" validate:"max=1000"`
	Answer   string `json:"answer" validate:"max=4000"`
}

// CreateLeadRequest is one intake record. Blank optional fields are ignored.
type CreateLeadRequest struct {
	FirstName       *string    `json:"firstName" validate:"omitempty,max=100"`
	LastName        *string    `json:"lastName" validate:"omitempty,max=100"`
	Name            *string    `json:"name" validate:"omitempty,max=200"`
	Email           *string    `json:"email" validate:"omitempty,max=254"`
	Phone           string     `json:"phone" validate:"required,max=40"`
	LeadSource      string     `json:"leadSource" validate:"required,max=100"`
	ReferralCode    *string    `json:"referralCode" validate:"omitempty,max=50"`
	Gender          *string    `json:"gender" validate:"omitempty,max=20"`
	Age             *int       `json:"age" validate:"omitempty,min=0,max=150"`
	Location        *string    `json:"location" validate:"omitempty,max=200"`
	Profession      *string    `json:"profession" validate:"omitempty,max=100"`
	CompanyName     *string    `json:"companyName" validate:"omitempty,max=200"`
	Designation     *string    `json:"designation" validate:"omitempty,max=100"`
	Product         *string    `json:"product" validate:"omitempty,max=100"`
	InvestmentRange *string    `json:"investmentRange" validate:"omitempty,max=100"`
	SipAmount       *int       `json:"sipAmount" validate:"omitempty,min=0"`
	ClientTypes     *string    `json:"clientTypes" validate:"omitempty,max=200"`
	Remark          *string    `json:"remark" validate:"omitempty,max=4000"`
	ApproachAt      *time.Time `json:"approachAt"`
	ClientQA        []QAItem   `json:"clientQa" validate:"omitempty,max=50,dive"`
}

// BulkCreateRequest carries raw rows; each row is validated by the service
// so one bad row does not reject the batch.
type BulkCreateRequest struct {
	Rows []CreateLeadRequest `json:"rows" validate:"required,min=1,max=2000"`
}

type ListLeadsRequest struct {
	Archived    bool   `form:"archived"`
	Status      string `form:"status" validate:"omitempty,oneof=OPEN PENDING ASSIGNED ON_HOLD CLOSED"`
	Search      string `form:"search" validate:"max=100"`
	DormantOnly bool   `form:"dormantOnly"`
	DormantDays int    `form:"dormantDays" validate:"min=0,max=3650"`
	Page        int    `form:"page" validate:"min=0"`
	PageSize    int    `form:"pageSize" validate:"min=0,max=100"`
}

type AssignManyRequest struct {
	LeadIDs []uuid.UUID `json:"leadIds" validate:"required,min=1,max=1000"`
	// Concurrency caps parallel assignments for this batch; 0 uses the default.
	Concurrency int `json:"concurrency" validate:"omitempty,min=1,max=50"`
	// Async queues the batch on the background worker instead of assigning inline.
	Async bool `json:"async"`
}

type ReassignRequest struct {
	RmID uuid.UUID `json:"rmId" validate:"required"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=OPEN PENDING ASSIGNED ON_HOLD CLOSED"`
}

type UpdateRemarkRequest struct {
	Remark *string `json:"remark" validate:"omitempty,max=4000"`
}

type UpdateBioRequest struct {
	BioText *string `json:"bioText" validate:"omitempty,max=8000"`
}

type UpdateClientQARequest struct {
	Items []QAItem `json:"items" validate:"max=50,dive"`
}

type ChangeStageRequest struct {
	Stage            string     `json:"stage" validate:"required,oneof=NEW CONTACTED INTERESTED FOLLOW_UP NEGOTIATION CONVERTED NOT_INTERESTED"`
	ProductExplained *bool      `json:"productExplained"`
	Channel          *string    `json:"channel" validate:"omitempty,oneof=CALL WHATSAPP EMAIL MEETING SMS"`
	NextFollowUpAt   *time.Time `json:"nextFollowUpAt"`
	Note             *string    `json:"note" validate:"omitempty,max=4000"`
}

type ArchiveRequest struct {
	Archived bool `json:"archived"`
}

type AddPhoneRequest struct {
	Label      string `json:"label" validate:"omitempty,oneof=MOBILE HOME WORK OTHER"`
	Number     string `json:"number" validate:"required,max=40"`
	IsPrimary  bool   `json:"isPrimary"`
	IsWhatsapp bool   `json:"isWhatsapp"`
}

type SetWhatsappRequest struct {
	Enabled bool `json:"enabled"`
}

type TextEventRequest struct {
	Text string   `json:"text" validate:"required,max=8000"`
	Tags []string `json:"tags" validate:"max=20,dive,max=50"`
}

type ListEventsRequest struct {
	Limit int `form:"limit" validate:"min=0,max=500"`
}

type LeadResponse struct {
	ID              uuid.UUID  `json:"id"`
	FirstName       *string    `json:"firstName,omitempty"`
	LastName        *string    `json:"lastName,omitempty"`
	Name            *string    `json:"name,omitempty"`
	Email           *string    `json:"email,omitempty"`
	Phone           string     `json:"phone"`
	PhoneNormalized *string    `json:"phoneNormalized,omitempty"`
	LeadSource      string     `json:"leadSource"`
	LeadCode        *string    `json:"leadCode"`
	ReferralCode    *string    `json:"referralCode,omitempty"`
	Gender          *string    `json:"gender,omitempty"`
	Age             *int       `json:"age,omitempty"`
	Location        *string    `json:"location,omitempty"`
	Profession      *string    `json:"profession,omitempty"`
	CompanyName     *string    `json:"companyName,omitempty"`
	Designation     *string    `json:"designation,omitempty"`
	Product         *string    `json:"product,omitempty"`
	InvestmentRange *string    `json:"investmentRange,omitempty"`
	SipAmount       *int       `json:"sipAmount,omitempty"`
	ClientTypes     *string    `json:"clientTypes,omitempty"`
	Remark          *string    `json:"remark,omitempty"`
	BioText         *string    `json:"bioText,omitempty"`
	Status          string     `json:"status"`
	ClientStage     *string    `json:"clientStage,omitempty"`
	AssignedRmID    *uuid.UUID `json:"assignedRmId"`
	AssignedRM      *string    `json:"assignedRM"`
	ReenterCount    int        `json:"reenterCount"`
	FirstSeenAt     *time.Time `json:"firstSeenAt,omitempty"`
	LastSeenAt      *time.Time `json:"lastSeenAt,omitempty"`
	ApproachAt      *time.Time `json:"approachAt,omitempty"`
	ClientQA        []QAItem   `json:"clientQa"`
	Archived        bool       `json:"archived"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

type IntakeResponse struct {
	Lead   LeadResponse `json:"lead"`
	Merged bool         `json:"merged"`
}

type LeadListResponse struct {
	Items      []LeadResponse `json:"items"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalPages int            `json:"totalPages"`
}

type PhoneResponse struct {
	ID         uuid.UUID `json:"id"`
	LeadID     uuid.UUID `json:"leadId"`
	Label      string    `json:"label"`
	Number     string    `json:"number"`
	Normalized string    `json:"normalized"`
	IsPrimary  bool      `json:"isPrimary"`
	IsWhatsapp bool      `json:"isWhatsapp"`
	CreatedAt  time.Time `json:"createdAt"`
}

type SnapshotResponse struct {
	Kind string `json:"kind"`
	Data any    `json:"data"`
}

type EventResponse struct {
	ID         uuid.UUID         `json:"id"`
	LeadID     uuid.UUID         `json:"leadId"`
	AuthorID   *uuid.UUID        `json:"authorId"`
	Type       string            `json:"type"`
	OccurredAt time.Time         `json:"occurredAt"`
	Text       string            `json:"text"`
	Tags       []string          `json:"tags"`
	Prev       *SnapshotResponse `json:"prev"`
	Next       *SnapshotResponse `json:"next"`
	Meta       map[string]any    `json:"meta,omitempty"`
}

type AssignmentBatchResponse struct {
	Items []LeadResponse `json:"items"`
	// Requested minus len(Items) leads were skipped; see the server log.
	Requested int `json:"requested"`
}

type QueuedResponse struct {
	TaskID string `json:"taskId"`
	Queued int    `json:"queued"`
}
