package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ipkwealth_backend/internal/events"
	"ipkwealth_backend/internal/leads/domain"
	"ipkwealth_backend/internal/leads/journal"
	"ipkwealth_backend/platform/apperr"

	"github.com/google/uuid"
)

// patchAndRecord applies one patch and journals it. entry builds the journal
// entry from the rows before and after the write.
func (s *Service) patchAndRecord(ctx context.Context, leadID uuid.UUID, patch domain.LeadPatch, entry func(before, after domain.Lead) journal.Entry) (domain.Lead, domain.Lead, error) {
	before, after, err := s.repo.PatchLead(ctx, leadID, patch, s.clock())
	if err != nil {
		return domain.Lead{}, domain.Lead{}, s.mapLeadErr(err)
	}
	e := entry(before, after)
	e.LeadID = after.ID
	if _, err := s.record(ctx, e); err != nil {
		return domain.Lead{}, domain.Lead{}, err
	}
	return before, after, nil
}

// UpdateStatus is an operator override and accepts any transition. Setting
// the status the lead already has writes nothing and journals nothing.
func (s *Service) UpdateStatus(ctx context.Context, leadID uuid.UUID, status domain.LeadStatus, actorID *uuid.UUID) (domain.Lead, error) {
	if !status.Valid() {
		return domain.Lead{}, apperr.Validation(fmt.Sprintf("invalid status %q", status))
	}
	current, err := s.GetLead(ctx, leadID)
	if err != nil {
		return domain.Lead{}, err
	}
	if current.Status == status {
		return current, nil
	}

	before, after, err := s.patchAndRecord(ctx, leadID, domain.LeadPatch{Status: &status}, func(before, after domain.Lead) journal.Entry {
		return journal.Entry{
			AuthorID: actorID,
			Type:     domain.EventStatusChange,
			Text:     fmt.Sprintf("Status: %s -> %s", before.Status, after.Status),
			Tags:     []string{domain.TagStatus},
			Prev:     domain.StatusOf(before),
			Next:     domain.StatusOf(after),
		}
	})
	if err != nil {
		return domain.Lead{}, err
	}

	s.publish(ctx, events.LeadStatusChanged{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    after.ID,
		OldStatus: string(before.Status),
		NewStatus: string(after.Status),
		ActorID:   actorID,
	})
	return after, nil
}

func (s *Service) UpdateRemark(ctx context.Context, leadID uuid.UUID, remark *string, actorID *uuid.UUID) (domain.Lead, error) {
	patch := domain.LeadPatch{SetRemark: true, Remark: domain.Present(remark)}
	_, after, err := s.patchAndRecord(ctx, leadID, patch, func(before, after domain.Lead) journal.Entry {
		return journal.Entry{
			AuthorID: actorID,
			Type:     domain.EventRemarkUpdated,
			Text:     "Remark updated",
			Prev:     domain.RemarkOf(before),
			Next:     domain.RemarkOf(after),
		}
	})
	return after, err
}

func (s *Service) UpdateBio(ctx context.Context, leadID uuid.UUID, bio *string, actorID *uuid.UUID) (domain.Lead, error) {
	patch := domain.LeadPatch{SetBio: true, BioText: domain.Present(bio)}
	_, after, err := s.patchAndRecord(ctx, leadID, patch, func(before, after domain.Lead) journal.Entry {
		return journal.Entry{
			AuthorID: actorID,
			Type:     domain.EventBioUpdated,
			Text:     "Bio updated",
			Prev:     domain.BioOf(before),
			Next:     domain.BioOf(after),
		}
	})
	return after, err
}

// UpdateClientQA replaces the question list. Items with neither a question
// nor an answer are dropped.
func (s *Service) UpdateClientQA(ctx context.Context, leadID uuid.UUID, items []domain.QAItem, actorID *uuid.UUID) (domain.Lead, error) {
	cleaned := make([]domain.QAItem, 0, len(items))
	for _, item := range items {
		q, a := strings.TrimSpace(item.Question), strings.TrimSpace(item.Answer)
		if q == "" && a == "" {
			continue
		}
		cleaned = append(cleaned, domain.QAItem{Question: q, Answer: a})
	}

	patch := domain.LeadPatch{SetClientQA: true, ClientQA: cleaned}
	_, after, err := s.patchAndRecord(ctx, leadID, patch, func(before, after domain.Lead) journal.Entry {
		return journal.Entry{
			AuthorID: actorID,
			Type:     domain.EventHistorySnapshot,
			Text:     "Client Q&A updated",
			Tags:     []string{domain.TagClientQA},
			Prev:     domain.ClientQAOf(before),
			Next:     domain.ClientQAOf(after),
		}
	})
	return after, err
}

// ChangeStageInput is an RM's stage update after talking to the client.
type ChangeStageInput struct {
	LeadID           uuid.UUID
	Stage            domain.ClientStage
	ProductExplained *bool
	Channel          *domain.InteractionChannel
	NextFollowUpAt   *time.Time
	Note             *string
}

// ChangeStage moves the client stage, stamps lastSeenAt and, when given, the
// next follow-up. A note is journaled as a separate interaction.
func (s *Service) ChangeStage(ctx context.Context, in ChangeStageInput, actorID *uuid.UUID) (domain.Lead, error) {
	if !in.Stage.Valid() {
		return domain.Lead{}, apperr.Validation(fmt.Sprintf("invalid client stage %q", in.Stage))
	}
	if in.Channel != nil && !in.Channel.Valid() {
		return domain.Lead{}, apperr.Validation(fmt.Sprintf("invalid channel %q", *in.Channel))
	}
	note := domain.Present(in.Note)

	now := s.clock()
	patch := domain.LeadPatch{ClientStage: &in.Stage, ApproachAt: in.NextFollowUpAt, LastSeenAt: &now}
	_, after, err := s.patchAndRecord(ctx, in.LeadID, patch, func(before, after domain.Lead) journal.Entry {
		tags := []string{domain.TagStage}
		meta := map[string]any{"productExplained": nil, "channel": nil}
		if in.Channel != nil {
			tags = append(tags, string(*in.Channel))
			meta["channel"] = string(*in.Channel)
		}
		if in.ProductExplained != nil {
			meta["productExplained"] = *in.ProductExplained
			if *in.ProductExplained {
				tags = append(tags, domain.TagProductExplained)
			} else {
				tags = append(tags, domain.TagProductNotExplained)
			}
		}
		return journal.Entry{
			AuthorID: actorID,
			Type:     domain.EventHistorySnapshot,
			Text:     stageSummary(in, note),
			Tags:     tags,
			Prev:     domain.StageOf(before),
			Next:     domain.StageOf(after),
			Meta:     meta,
		}
	})
	if err != nil {
		return domain.Lead{}, err
	}

	if note != nil {
		tags := []string{}
		if in.Channel != nil {
			tags = append(tags, string(*in.Channel))
		}
		if _, err := s.record(ctx, journal.Entry{
			LeadID:   after.ID,
			AuthorID: actorID,
			Type:     domain.EventInteraction,
			Text:     *note,
			Tags:     tags,
		}); err != nil {
			return domain.Lead{}, err
		}
	}
	return after, nil
}

func stageSummary(in ChangeStageInput, note *string) string {
	parts := []string{fmt.Sprintf("Stage → %s", in.Stage)}
	if in.ProductExplained != nil {
		answer := "No"
		if *in.ProductExplained {
			answer = "Yes"
		}
		parts = append(parts, "Product explained: "+answer)
	}
	if in.Channel != nil {
		parts = append(parts, fmt.Sprintf("Channel: %s", *in.Channel))
	}
	if in.NextFollowUpAt != nil {
		parts = append(parts, "Next follow-up: "+in.NextFollowUpAt.UTC().Format(time.RFC3339))
	}
	if note != nil {
		parts = append(parts, "Note: "+*note)
	}
	return strings.Join(parts, " | ")
}

// Archive soft-deletes or restores a lead.
func (s *Service) Archive(ctx context.Context, leadID uuid.UUID, archived bool, actorID *uuid.UUID) (domain.Lead, error) {
	_, after, err := s.patchAndRecord(ctx, leadID, domain.LeadPatch{Archived: &archived}, func(before, after domain.Lead) journal.Entry {
		text := "Lead archived"
		if !after.Archived {
			text = "Lead restored"
		}
		return journal.Entry{
			AuthorID: actorID,
			Type:     domain.EventHistorySnapshot,
			Text:     text,
			Tags:     []string{domain.TagArchive},
			Prev:     domain.ArchiveSnapshot{Archived: before.Archived},
			Next:     domain.ArchiveSnapshot{Archived: after.Archived},
		}
	})
	return after, err
}

// AddNote journals free text without touching the lead.
func (s *Service) AddNote(ctx context.Context, leadID uuid.UUID, text string, tags []string, actorID *uuid.UUID) (domain.LeadEvent, error) {
	return s.addTextEvent(ctx, leadID, domain.EventNote, text, tags, actorID)
}

// AddInteraction journals a client touchpoint such as a call.
func (s *Service) AddInteraction(ctx context.Context, leadID uuid.UUID, text string, tags []string, actorID *uuid.UUID) (domain.LeadEvent, error) {
	return s.addTextEvent(ctx, leadID, domain.EventInteraction, text, tags, actorID)
}

func (s *Service) addTextEvent(ctx context.Context, leadID uuid.UUID, typ domain.EventType, text string, tags []string, actorID *uuid.UUID) (domain.LeadEvent, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.LeadEvent{}, apperr.Validation("text is required")
	}
	if _, err := s.GetLead(ctx, leadID); err != nil {
		return domain.LeadEvent{}, err
	}
	return s.record(ctx, journal.Entry{
		LeadID:   leadID,
		AuthorID: actorID,
		Type:     typ,
		Text:     text,
		Tags:     tags,
	})
}
