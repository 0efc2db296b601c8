package domain

import (
	"time"

	"github.com/google/uuid"
)

// LeadPatch is a set of field writes applied to one lead in a single atomic
// step. Unset fields are left alone.
type LeadPatch struct {
	Status      *LeadStatus
	ClientStage *ClientStage
	ApproachAt  *time.Time
	LastSeenAt  *time.Time

	SetRemark bool
	Remark    *string
	SetBio    bool
	BioText   *string

	SetClientQA bool
	ClientQA    []QAItem

	AssignedRmID   *uuid.UUID
	AssignedRmName *string
	// LeadCode is only written when the lead has none yet.
	LeadCode *string

	Archived *bool

	// OnlyIfIncomplete skips the write unless the lead lacks an RM or a code.
	OnlyIfIncomplete bool
}

func (p LeadPatch) Empty() bool {
	return p.Status == nil && p.ClientStage == nil && p.ApproachAt == nil && p.LastSeenAt == nil &&
		!p.SetRemark && !p.SetBio && !p.SetClientQA &&
		p.AssignedRmID == nil && p.LeadCode == nil && p.Archived == nil
}

// Apply writes the patch onto l. It reports false when OnlyIfIncomplete
// blocked the write.
func (p LeadPatch) Apply(l *Lead, now time.Time) bool {
	if p.OnlyIfIncomplete && l.IsAssignedAndCoded() {
		return false
	}
	if p.Status != nil {
		l.Status = *p.Status
	}
	if p.ClientStage != nil {
		stage := *p.ClientStage
		l.ClientStage = &stage
	}
	if p.ApproachAt != nil {
		at := *p.ApproachAt
		l.ApproachAt = &at
	}
	if p.LastSeenAt != nil {
		at := *p.LastSeenAt
		l.LastSeenAt = &at
	}
	if p.SetRemark {
		l.Remark = p.Remark
	}
	if p.SetBio {
		l.BioText = p.BioText
	}
	if p.SetClientQA {
		l.ClientQA = append([]QAItem(nil), p.ClientQA...)
	}
	if p.AssignedRmID != nil {
		id := *p.AssignedRmID
		l.AssignedRmID = &id
		l.AssignedRmName = p.AssignedRmName
	}
	if p.LeadCode != nil && l.LeadCode == nil {
		code := *p.LeadCode
		l.LeadCode = &code
	}
	if p.Archived != nil {
		l.Archived = *p.Archived
	}
	l.UpdatedAt = now
	return true
}
