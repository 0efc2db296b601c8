// Package domain holds the lead lifecycle entities and the pure rules that
// operate on them. Persistence adapters apply these rules atomically.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type LeadStatus string

const (
	LeadStatusOpen     LeadStatus = "OPEN"
	LeadStatusPending  LeadStatus = "PENDING"
	LeadStatusAssigned LeadStatus = "ASSIGNED"
	LeadStatusOnHold   LeadStatus = "ON_HOLD"
	LeadStatusClosed   LeadStatus = "CLOSED"
)

var leadStatuses = []LeadStatus{LeadStatusOpen, LeadStatusPending, LeadStatusAssigned, LeadStatusOnHold, LeadStatusClosed}

func (s LeadStatus) Valid() bool {
	for _, v := range leadStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// ClientStage tracks the sales conversation and is independent of LeadStatus.
type ClientStage string

const (
	ClientStageNew           ClientStage = "NEW"
	ClientStageContacted     ClientStage = "CONTACTED"
	ClientStageInterested    ClientStage = "INTERESTED"
	ClientStageFollowUp      ClientStage = "FOLLOW_UP"
	ClientStageNegotiation   ClientStage = "NEGOTIATION"
	ClientStageConverted     ClientStage = "CONVERTED"
	ClientStageNotInterested ClientStage = "NOT_INTERESTED"
)

func (s ClientStage) Valid() bool {
	switch s {
	case ClientStageNew, ClientStageContacted, ClientStageInterested, ClientStageFollowUp,
		ClientStageNegotiation, ClientStageConverted, ClientStageNotInterested:
		return true
	}
	return false
}

type InteractionChannel string

const (
	ChannelCall     InteractionChannel = "CALL"
	ChannelWhatsApp InteractionChannel = "WHATSAPP"
	ChannelEmail    InteractionChannel = "EMAIL"
	ChannelMeeting  InteractionChannel = "MEETING"
	ChannelSMS      InteractionChannel = "SMS"
)

func (c InteractionChannel) Valid() bool {
	switch c {
	case ChannelCall, ChannelWhatsApp, ChannelEmail, ChannelMeeting, ChannelSMS:
		return true
	}
	return false
}

// QAItem is one client question and its answer.
type QAItem struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Lead is a prospective client. LeadCode is nil until the first successful
// assignment and never changes afterwards.
type Lead struct {
	ID              uuid.UUID
	FirstName       *string
	LastName        *string
	Name            *string
	Email           *string
	Phone           string
	PhoneNormalized *string
	LeadSource      string
	LeadCode        *string
	ReferralCode    *string
	Gender          *string
	Age             *int
	Location        *string
	Profession      *string
	CompanyName     *string
	Designation     *string
	Product         *string
	InvestmentRange *string
	SipAmount       *int
	ClientTypes     *string
	Remark          *string
	BioText         *string
	Status          LeadStatus
	ClientStage     *ClientStage
	AssignedRmID    *uuid.UUID
	AssignedRmName  *string
	ReenterCount    int
	FirstSeenAt     *time.Time
	LastSeenAt      *time.Time
	ApproachAt      *time.Time
	ClientQA        []QAItem
	Archived        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsAssignedAndCoded reports whether assign() has nothing left to do.
func (l Lead) IsAssignedAndCoded() bool {
	return l.AssignedRmID != nil && l.LeadCode != nil
}

// IsDormant reports whether the lead matches the dormant filter at now.
// days <= 0 disables the inactivity arm, leaving only re-entries.
func (l Lead) IsDormant(now time.Time, days int) bool {
	if l.ReenterCount > 0 {
		return true
	}
	if days <= 0 {
		return false
	}
	cutoff := DormantCutoff(now, days)
	if l.LastSeenAt != nil {
		return !l.LastSeenAt.After(cutoff)
	}
	return !l.UpdatedAt.After(cutoff)
}

func DormantCutoff(now time.Time, days int) time.Time {
	return now.Add(-time.Duration(days) * 24 * time.Hour)
}

// LeadInput is an intake record. Nil or blank optional fields mean "not provided".
type LeadInput struct {
	FirstName       *string
	LastName        *string
	Name            *string
	Email           *string
	Phone           string
	LeadSource      string
	ReferralCode    *string
	Gender          *string
	Age             *int
	Location        *string
	Profession      *string
	CompanyName     *string
	Designation     *string
	Product         *string
	InvestmentRange *string
	SipAmount       *int
	ClientTypes     *string
	Remark          *string
	ApproachAt      *time.Time
	ClientQA        []QAItem
}

// BuildName joins first and last name, falling back to fallback.
func BuildName(first, last, fallback *string) *string {
	parts := make([]string, 0, 2)
	for _, p := range []*string{first, last} {
		if v := present(p); v != nil {
			parts = append(parts, *v)
		}
	}
	if len(parts) > 0 {
		joined := strings.Join(parts, " ")
		return &joined
	}
	return present(fallback)
}

// NewLead builds a fresh OPEN lead from an intake record.
func NewLead(id uuid.UUID, in LeadInput, normalized *string, now time.Time) Lead {
	name := present(in.Name)
	if name == nil {
		name = BuildName(in.FirstName, in.LastName, nil)
	}
	seen := now
	return Lead{
		ID:              id,
		FirstName:       present(in.FirstName),
		LastName:        present(in.LastName),
		Name:            name,
		Email:           present(in.Email),
		Phone:           in.Phone,
		PhoneNormalized: normalized,
		LeadSource:      in.LeadSource,
		ReferralCode:    present(in.ReferralCode),
		Gender:          present(in.Gender),
		Age:             in.Age,
		Location:        present(in.Location),
		Profession:      present(in.Profession),
		CompanyName:     present(in.CompanyName),
		Designation:     present(in.Designation),
		Product:         present(in.Product),
		InvestmentRange: present(in.InvestmentRange),
		SipAmount:       in.SipAmount,
		ClientTypes:     present(in.ClientTypes),
		Remark:          present(in.Remark),
		Status:          LeadStatusOpen,
		ReenterCount:    0,
		FirstSeenAt:     &seen,
		LastSeenAt:      &seen,
		ApproachAt:      in.ApproachAt,
		ClientQA:        in.ClientQA,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// ApplyReentry merges a re-entering intake into l in place. Each field
// provided by in wins; every other field keeps its stored value. The lead is
// un-archived, CLOSED reopens to OPEN, reenterCount grows by exactly one and
// lastSeenAt moves to now. leadSource, leadCode and the RM are untouched.
func ApplyReentry(l *Lead, in LeadInput, normalized *string, now time.Time) {
	fill := func(dst **string, src *string) {
		if v := present(src); v != nil {
			*dst = v
		}
	}
	fillInt := func(dst **int, src *int) {
		if src != nil {
			v := *src
			*dst = &v
		}
	}

	mergedName := present(in.Name)
	if mergedName == nil {
		mergedName = BuildName(in.FirstName, in.LastName, l.Name)
	}

	fill(&l.FirstName, in.FirstName)
	fill(&l.LastName, in.LastName)
	fill(&l.Name, mergedName)
	fill(&l.Email, in.Email)
	fill(&l.Location, in.Location)
	fill(&l.ReferralCode, in.ReferralCode)
	fill(&l.Gender, in.Gender)
	fillInt(&l.Age, in.Age)
	fill(&l.Profession, in.Profession)
	fill(&l.CompanyName, in.CompanyName)
	fill(&l.Designation, in.Designation)
	fill(&l.Product, in.Product)
	fill(&l.InvestmentRange, in.InvestmentRange)
	fillInt(&l.SipAmount, in.SipAmount)
	fill(&l.ClientTypes, in.ClientTypes)
	fill(&l.Remark, in.Remark)
	if normalized != nil && *normalized != "" {
		l.PhoneNormalized = normalized
	}
	if in.ApproachAt != nil {
		at := *in.ApproachAt
		l.ApproachAt = &at
	}
	if len(in.ClientQA) > 0 {
		l.ClientQA = append([]QAItem(nil), in.ClientQA...)
	}

	l.Archived = false
	if l.Status == LeadStatusClosed {
		l.Status = LeadStatusOpen
	}
	l.ReenterCount++
	seen := now
	l.LastSeenAt = &seen
	l.UpdatedAt = now
}

// ProfileChanges lists the intake fields that differ between before and after.
func ProfileChanges(before, after Lead) []string {
	var changed []string
	str := func(field string, a, b *string) {
		if !equalPtr(a, b) {
			changed = append(changed, field)
		}
	}
	num := func(field string, a, b *int) {
		if !equalPtr(a, b) {
			changed = append(changed, field)
		}
	}
	str("firstName", before.FirstName, after.FirstName)
	str("lastName", before.LastName, after.LastName)
	str("name", before.Name, after.Name)
	str("email", before.Email, after.Email)
	str("location", before.Location, after.Location)
	str("referralCode", before.ReferralCode, after.ReferralCode)
	str("gender", before.Gender, after.Gender)
	num("age", before.Age, after.Age)
	str("profession", before.Profession, after.Profession)
	str("companyName", before.CompanyName, after.CompanyName)
	str("designation", before.Designation, after.Designation)
	str("product", before.Product, after.Product)
	str("investmentRange", before.InvestmentRange, after.InvestmentRange)
	num("sipAmount", before.SipAmount, after.SipAmount)
	str("clientTypes", before.ClientTypes, after.ClientTypes)
	str("remark", before.Remark, after.Remark)
	if !equalTime(before.ApproachAt, after.ApproachAt) {
		changed = append(changed, "approachAt")
	}
	if !equalQA(before.ClientQA, after.ClientQA) {
		changed = append(changed, "clientQa")
	}
	return changed
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func equalQA(a, b []QAItem) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// present treats blank strings as absent.
func present(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// Present is the exported form of the blank-as-absent rule.
func Present(s *string) *string { return present(s) }
