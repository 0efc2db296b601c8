// Package memstore keeps leads, phones, journal entries and users in
// process memory. It backs STORE_DRIVER=memory and the service tests, and
// applies the same domain rules as the Postgres repository under one mutex.
package memstore

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"ipkwealth_backend/internal/leads/domain"

	"github.com/google/uuid"
)

type Store struct {
	mu     sync.Mutex
	leads  map[uuid.UUID]*domain.Lead
	order  []uuid.UUID
	phones map[uuid.UUID]*domain.LeadPhone
	events []domain.LeadEvent
	seq    int64
	users  map[uuid.UUID]*domain.User
}

func New() *Store {
	return &Store{
		leads:  make(map[uuid.UUID]*domain.Lead),
		phones: make(map[uuid.UUID]*domain.LeadPhone),
		users:  make(map[uuid.UUID]*domain.User),
	}
}

// ---- leads ----

func (s *Store) CreateLead(_ context.Context, lead domain.Lead) (domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := cloneLead(lead)
	s.leads[lead.ID] = &stored
	s.order = append(s.order, lead.ID)
	return cloneLead(stored), nil
}

func (s *Store) GetLead(_ context.Context, id uuid.UUID) (domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leads[id]
	if !ok {
		return domain.Lead{}, domain.ErrLeadNotFound
	}
	return cloneLead(*l), nil
}

// FindLatestByPhone scans newest first so the most recent duplicate wins.
func (s *Store) FindLatestByPhone(_ context.Context, normalized *string, raw string) (*domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var best *domain.Lead
	for i := len(s.order) - 1; i >= 0; i-- {
		l := s.leads[s.order[i]]
		byNormalized := normalized != nil && l.PhoneNormalized != nil && *l.PhoneNormalized == *normalized
		if !byNormalized && l.Phone != raw {
			continue
		}
		if best == nil || l.CreatedAt.After(best.CreatedAt) {
			best = l
		}
	}
	if best == nil {
		return nil, nil
	}
	found := cloneLead(*best)
	return &found, nil
}

func (s *Store) MergeReentry(_ context.Context, id uuid.UUID, in domain.LeadInput, normalized *string, now time.Time) (domain.Lead, domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leads[id]
	if !ok {
		return domain.Lead{}, domain.Lead{}, domain.ErrLeadNotFound
	}
	before := cloneLead(*l)
	domain.ApplyReentry(l, in, normalized, now)
	return before, cloneLead(*l), nil
}

func (s *Store) PatchLead(_ context.Context, id uuid.UUID, patch domain.LeadPatch, now time.Time) (domain.Lead, domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.leads[id]
	if !ok {
		return domain.Lead{}, domain.Lead{}, domain.ErrLeadNotFound
	}
	before := cloneLead(*l)
	if !patch.Apply(l, now) {
		return domain.Lead{}, domain.Lead{}, domain.ErrPatchSkipped
	}
	return before, cloneLead(*l), nil
}

func (s *Store) ListLeads(_ context.Context, filter domain.LeadFilter) ([]domain.Lead, int, error) {
	s.mu.Lock()
	matched := make([]domain.Lead, 0)
	for i := len(s.order) - 1; i >= 0; i-- {
		if l := s.leads[s.order[i]]; filter.Matches(*l) {
			matched = append(matched, cloneLead(*l))
		}
	}
	s.mu.Unlock()

	sortNewestFirst(matched)
	total := len(matched)
	start := min(filter.Offset(), total)
	end := min(start+filter.PageSize, total)
	return matched[start:end], total, nil
}

func (s *Store) ListOpenLeads(_ context.Context, limit int) ([]domain.Lead, error) {
	s.mu.Lock()
	open := make([]domain.Lead, 0)
	for i := len(s.order) - 1; i >= 0; i-- {
		if l := s.leads[s.order[i]]; l.Status == domain.LeadStatusOpen && !l.Archived {
			open = append(open, cloneLead(*l))
		}
	}
	s.mu.Unlock()

	sortNewestFirst(open)
	if limit > 0 && len(open) > limit {
		open = open[:limit]
	}
	return open, nil
}

// ListLeadsByRM returns an RM's leads, most recently updated first.
func (s *Store) ListLeadsByRM(_ context.Context, rmID uuid.UUID, includeArchived bool) ([]domain.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Lead, 0)
	for _, id := range s.order {
		l := s.leads[id]
		if l.AssignedRmID == nil || *l.AssignedRmID != rmID {
			continue
		}
		if l.Archived && !includeArchived {
			continue
		}
		out = append(out, cloneLead(*l))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

// CountLeadsByRM counts an RM's non-archived leads.
func (s *Store) CountLeadsByRM(_ context.Context, rmID uuid.UUID) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var open, total int
	for _, l := range s.leads {
		if l.Archived || l.AssignedRmID == nil || *l.AssignedRmID != rmID {
			continue
		}
		total++
		if l.Status != domain.LeadStatusClosed {
			open++
		}
	}
	return open, total, nil
}

// ---- phones ----

func (s *Store) ListPhones(_ context.Context, leadID uuid.UUID) ([]domain.LeadPhone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phonesOf(leadID), nil
}

func (s *Store) GetPhone(_ context.Context, phoneID uuid.UUID) (domain.LeadPhone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.phones[phoneID]
	if !ok {
		return domain.LeadPhone{}, domain.ErrPhoneNotFound
	}
	return *p, nil
}

func (s *Store) AddPhone(_ context.Context, p domain.LeadPhone) (domain.LeadPhone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.leads[p.LeadID]; !ok {
		return domain.LeadPhone{}, domain.ErrLeadNotFound
	}
	existing := s.phonesOf(p.LeadID)
	if len(existing) >= domain.MaxPhonesPerLead {
		return domain.LeadPhone{}, domain.ErrPhoneLimit
	}
	if p.IsPrimary {
		for _, other := range existing {
			s.phones[other.ID].IsPrimary = false
		}
	} else if !slices.ContainsFunc(existing, func(o domain.LeadPhone) bool { return o.IsPrimary }) {
		p.IsPrimary = true
	}
	stored := p
	s.phones[p.ID] = &stored
	return stored, nil
}

func (s *Store) RemovePhone(_ context.Context, phoneID uuid.UUID) (domain.LeadPhone, *domain.LeadPhone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.phones[phoneID]
	if !ok {
		return domain.LeadPhone{}, nil, domain.ErrPhoneNotFound
	}
	removed := *p
	delete(s.phones, phoneID)
	if !removed.IsPrimary {
		return removed, nil, nil
	}

	remaining := s.phonesOf(removed.LeadID)
	if len(remaining) == 0 {
		return removed, nil, nil
	}
	oldest := remaining[0]
	for _, r := range remaining[1:] {
		if r.CreatedAt.Before(oldest.CreatedAt) {
			oldest = r
		}
	}
	s.phones[oldest.ID].IsPrimary = true
	promoted := *s.phones[oldest.ID]
	return removed, &promoted, nil
}

func (s *Store) MarkPrimaryPhone(_ context.Context, phoneID uuid.UUID) (domain.LeadPhone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.phones[phoneID]
	if !ok {
		return domain.LeadPhone{}, domain.ErrPhoneNotFound
	}
	for _, other := range s.phones {
		if other.LeadID == p.LeadID {
			other.IsPrimary = other.ID == phoneID
		}
	}
	return *p, nil
}

func (s *Store) SetPhoneWhatsapp(_ context.Context, phoneID uuid.UUID, enabled bool) (domain.LeadPhone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.phones[phoneID]
	if !ok {
		return domain.LeadPhone{}, domain.ErrPhoneNotFound
	}
	p.IsWhatsapp = enabled
	return *p, nil
}

// phonesOf must be called with mu held.
func (s *Store) phonesOf(leadID uuid.UUID) []domain.LeadPhone {
	out := make([]domain.LeadPhone, 0, domain.MaxPhonesPerLead)
	for _, p := range s.phones {
		if p.LeadID == leadID {
			out = append(out, *p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsPrimary != out[j].IsPrimary {
			return out[i].IsPrimary
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// ---- journal ----

func (s *Store) AppendEvent(_ context.Context, e domain.LeadEvent) (domain.LeadEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.leads[e.LeadID]; !ok {
		return domain.LeadEvent{}, domain.ErrLeadNotFound
	}
	s.seq++
	e.Seq = s.seq
	e.Tags = slices.Clone(e.Tags)
	s.events = append(s.events, e)
	return e, nil
}

func (s *Store) ListEvents(_ context.Context, leadID uuid.UUID, limit int) ([]domain.LeadEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.LeadEvent, 0)
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].LeadID == leadID {
			out = append(out, s.events[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].OccurredAt.After(out[j].OccurredAt)
		}
		return out[i].Seq > out[j].Seq
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ---- users ----

// PutUser inserts or replaces a user.
func (s *Store) PutUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := u
	s.users[u.ID] = &stored
}

func (s *Store) GetUser(_ context.Context, id uuid.UUID) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return *u, nil
}

// ListEligibleRMs returns active, non-archived RMs in creation order.
func (s *Store) ListEligibleRMs(_ context.Context) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.User, 0)
	for _, u := range s.users {
		if u.EligibleForAssignment() {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (s *Store) TouchLastAssigned(_ context.Context, ids []uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			stamp := at
			u.LastAssignedAt = &stamp
		}
	}
	return nil
}

func (s *Store) SetUserStatus(_ context.Context, id uuid.UUID, status domain.UserStatus) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok || u.Role != domain.RoleRM || u.Archived {
		return domain.User{}, domain.ErrUserNotFound
	}
	u.Status = status
	return *u, nil
}

func sortNewestFirst(leads []domain.Lead) {
	sort.SliceStable(leads, func(i, j int) bool { return leads[i].CreatedAt.After(leads[j].CreatedAt) })
}

// cloneLead copies the slice field so callers never share backing arrays
// with the store.
func cloneLead(l domain.Lead) domain.Lead {
	l.ClientQA = slices.Clone(l.ClientQA)
	return l
}
