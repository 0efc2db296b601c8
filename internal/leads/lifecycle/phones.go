package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ipkwealth_backend/internal/leads/domain"
	"ipkwealth_backend/internal/leads/journal"
	"ipkwealth_backend/platform/apperr"
	"ipkwealth_backend/platform/phone"

	"github.com/google/uuid"
)

// AddPhone adds a number to the lead's phone book. The first phone, or one
// added with IsPrimary, becomes the primary.
func (s *Service) AddPhone(ctx context.Context, leadID uuid.UUID, in domain.NewPhone, actorID *uuid.UUID) (domain.LeadPhone, error) {
	number := strings.TrimSpace(in.Number)
	normalized := phone.Normalize(&number)
	if normalized == nil || *normalized == "" {
		return domain.LeadPhone{}, apperr.Validation("Invalid phone number")
	}
	label := in.Label
	if label == "" {
		label = domain.PhoneLabelMobile
	}
	if !label.Valid() {
		return domain.LeadPhone{}, apperr.Validation(fmt.Sprintf("invalid phone label %q", in.Label))
	}
	if _, err := s.GetLead(ctx, leadID); err != nil {
		return domain.LeadPhone{}, err
	}

	saved, err := s.repo.AddPhone(ctx, domain.LeadPhone{
		ID:         s.newID(),
		LeadID:     leadID,
		Label:      label,
		Number:     number,
		Normalized: *normalized,
		IsPrimary:  in.IsPrimary,
		IsWhatsapp: in.IsWhatsapp,
		CreatedAt:  s.clock(),
	})
	if err != nil {
		return domain.LeadPhone{}, s.mapLeadErr(err)
	}

	if _, err := s.record(ctx, journal.Entry{
		LeadID:   leadID,
		AuthorID: actorID,
		Type:     domain.EventPhoneAdded,
		Text:     "Added phone " + phone.Display(saved.Number),
		Tags:     []string{string(saved.Label)},
		Next:     domain.PhoneOf(saved),
		Meta:     map[string]any{"phoneId": saved.ID.String(), "normalized": saved.Normalized},
	}); err != nil {
		return domain.LeadPhone{}, err
	}
	return saved, nil
}

// RemovePhone deletes a phone and returns the lead's remaining phones.
func (s *Service) RemovePhone(ctx context.Context, phoneID uuid.UUID, actorID *uuid.UUID) ([]domain.LeadPhone, error) {
	removed, promoted, err := s.repo.RemovePhone(ctx, phoneID)
	if err != nil {
		return nil, s.mapLeadErr(err)
	}

	meta := map[string]any{"phoneId": removed.ID.String()}
	if promoted != nil {
		meta["promotedPhoneId"] = promoted.ID.String()
	}
	if _, err := s.record(ctx, journal.Entry{
		LeadID:   removed.LeadID,
		AuthorID: actorID,
		Type:     domain.EventPhoneRemoved,
		Text:     "Removed phone " + phone.Display(removed.Number),
		Tags:     []string{string(removed.Label)},
		Prev:     domain.PhoneOf(removed),
		Meta:     meta,
	}); err != nil {
		return nil, err
	}
	return s.repo.ListPhones(ctx, removed.LeadID)
}

// MarkPrimaryPhone makes phoneID the only primary phone of its lead.
func (s *Service) MarkPrimaryPhone(ctx context.Context, phoneID uuid.UUID, actorID *uuid.UUID) ([]domain.LeadPhone, error) {
	before, err := s.getPhone(ctx, phoneID)
	if err != nil {
		return nil, err
	}
	after, err := s.repo.MarkPrimaryPhone(ctx, phoneID)
	if err != nil {
		return nil, s.mapLeadErr(err)
	}

	if _, err := s.record(ctx, journal.Entry{
		LeadID:   after.LeadID,
		AuthorID: actorID,
		Type:     domain.EventPhoneMarkedPrimary,
		Text:     "Marked primary " + phone.Display(after.Number),
		Tags:     []string{string(after.Label)},
		Prev:     domain.PhoneOf(before),
		Next:     domain.PhoneOf(after),
		Meta:     map[string]any{"phoneId": after.ID.String()},
	}); err != nil {
		return nil, err
	}
	return s.repo.ListPhones(ctx, after.LeadID)
}

func (s *Service) SetWhatsapp(ctx context.Context, phoneID uuid.UUID, enabled bool, actorID *uuid.UUID) (domain.LeadPhone, error) {
	before, err := s.getPhone(ctx, phoneID)
	if err != nil {
		return domain.LeadPhone{}, err
	}
	after, err := s.repo.SetPhoneWhatsapp(ctx, phoneID, enabled)
	if err != nil {
		return domain.LeadPhone{}, s.mapLeadErr(err)
	}

	verb := "Disabled"
	if enabled {
		verb = "Enabled"
	}
	if _, err := s.record(ctx, journal.Entry{
		LeadID:   after.LeadID,
		AuthorID: actorID,
		Type:     domain.EventNote,
		Text:     fmt.Sprintf("%s WhatsApp on %s", verb, phone.Display(after.Number)),
		Tags:     []string{domain.TagWhatsApp},
		Prev:     domain.PhoneOf(before),
		Next:     domain.PhoneOf(after),
		Meta:     map[string]any{"phoneId": after.ID.String()},
	}); err != nil {
		return domain.LeadPhone{}, err
	}
	return after, nil
}

func (s *Service) getPhone(ctx context.Context, phoneID uuid.UUID) (domain.LeadPhone, error) {
	p, err := s.repo.GetPhone(ctx, phoneID)
	if errors.Is(err, domain.ErrPhoneNotFound) {
		return domain.LeadPhone{}, apperr.NotFound("Phone not found")
	}
	return p, err
}
