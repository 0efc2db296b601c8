package lifecycle

import (
	"context"

	"ipkwealth_backend/internal/leads/domain"

	"github.com/google/uuid"
)

func (s *Service) GetLead(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	lead, err := s.repo.GetLead(ctx, id)
	if err != nil {
		return domain.Lead{}, s.mapLeadErr(err)
	}
	return lead, nil
}

// ListLeads returns one page of leads, newest first.
func (s *Service) ListLeads(ctx context.Context, filter domain.LeadFilter) (domain.LeadPage, error) {
	f := filter.Normalize()
	if f.Now.IsZero() {
		f.Now = s.clock()
	}
	items, total, err := s.repo.ListLeads(ctx, f)
	if err != nil {
		return domain.LeadPage{}, err
	}
	if items == nil {
		items = []domain.Lead{}
	}
	return domain.LeadPage{Items: items, Page: f.Page, PageSize: f.PageSize, Total: total}, nil
}

// LeadsOpen returns the newest OPEN, non-archived leads.
func (s *Service) LeadsOpen(ctx context.Context) ([]domain.Lead, error) {
	return s.repo.ListOpenLeads(ctx, OpenLeadsLimit)
}

// GetPhones lists a lead's phones, primary first then oldest first.
func (s *Service) GetPhones(ctx context.Context, leadID uuid.UUID) ([]domain.LeadPhone, error) {
	if _, err := s.GetLead(ctx, leadID); err != nil {
		return nil, err
	}
	return s.repo.ListPhones(ctx, leadID)
}

// GetEvents lists journal entries newest first. limit <= 0 means the default.
func (s *Service) GetEvents(ctx context.Context, leadID uuid.UUID, limit int) ([]domain.LeadEvent, error) {
	if _, err := s.GetLead(ctx, leadID); err != nil {
		return nil, err
	}
	return s.journal.List(ctx, leadID, limit)
}
