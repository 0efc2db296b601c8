// Package lifecycle implements lead intake, assignment and every tracked
// mutation of a lead. Each mutation is one atomic persistence step followed
// by exactly one journal entry.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ipkwealth_backend/internal/events"
	"ipkwealth_backend/internal/leads/domain"
	"ipkwealth_backend/internal/leads/identity"
	"ipkwealth_backend/internal/leads/journal"
	"ipkwealth_backend/platform/apperr"
	"ipkwealth_backend/platform/logger"
	"ipkwealth_backend/platform/metrics"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultAssignConcurrency = 10
	OpenLeadsLimit           = 200
)

// Deps are the collaborators of the lifecycle service. Clock, NewID and
// CodeLocation default to time.Now, uuid.New and UTC.
type Deps struct {
	Repo              Repository
	Assigner          Assigner
	Counter           CodeCounter
	Journal           Recorder
	Bus               events.Bus
	Metrics           *metrics.Metrics
	Log               *logger.Logger
	Clock             func() time.Time
	NewID             func() uuid.UUID
	CodeLocation      *time.Location
	AssignConcurrency int
}

type Service struct {
	repo              Repository
	identity          *identity.Resolver
	assigner          Assigner
	counter           CodeCounter
	journal           Recorder
	bus               events.Bus
	metrics           *metrics.Metrics
	log               *logger.Logger
	clock             func() time.Time
	newID             func() uuid.UUID
	codeLocation      *time.Location
	assignConcurrency int
}

func New(d Deps) *Service {
	s := &Service{
		repo:              d.Repo,
		identity:          identity.NewResolver(d.Repo),
		assigner:          d.Assigner,
		counter:           d.Counter,
		journal:           d.Journal,
		bus:               d.Bus,
		metrics:           d.Metrics,
		log:               d.Log,
		clock:             d.Clock,
		newID:             d.NewID,
		codeLocation:      d.CodeLocation,
		assignConcurrency: d.AssignConcurrency,
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.New
	}
	if s.codeLocation == nil {
		s.codeLocation = time.UTC
	}
	if s.assignConcurrency < 1 {
		s.assignConcurrency = DefaultAssignConcurrency
	}
	if s.log == nil {
		s.log = logger.Discard()
	}
	return s
}

// IntakeResult reports what createPendingLead did.
type IntakeResult struct {
	Lead   domain.Lead
	Merged bool
}

// CreatePendingLead creates a lead or, when the phone matches an existing
// lead, merges the intake into it as a re-entry.
func (s *Service) CreatePendingLead(ctx context.Context, in domain.LeadInput, actorID *uuid.UUID) (IntakeResult, error) {
	match, err := s.identity.ResolveExisting(ctx, in.Phone)
	if err != nil {
		return IntakeResult{}, err
	}
	if match.Normalized == nil {
		return IntakeResult{}, apperr.Validation("Invalid phone number")
	}

	now := s.clock()
	if match.Existing != nil {
		return s.mergeReentry(ctx, *match.Existing, in, match.Normalized, now, actorID)
	}

	lead := domain.NewLead(s.newID(), in, match.Normalized, now)
	created, err := s.repo.CreateLead(ctx, lead)
	if err != nil {
		return IntakeResult{}, err
	}

	if _, err := s.record(ctx, journal.Entry{
		LeadID:   created.ID,
		AuthorID: actorID,
		Type:     domain.EventHistorySnapshot,
		Text:     fmt.Sprintf("Lead created from %s", created.LeadSource),
		Tags:     []string{domain.TagIntake},
		Next:     domain.IntakeOf(created),
		Meta:     map[string]any{"leadSource": created.LeadSource},
	}); err != nil {
		return IntakeResult{}, err
	}

	s.metrics.IncLeadIngested("created")
	s.publish(ctx, events.LeadCreated{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     created.ID,
		LeadSource: created.LeadSource,
		Phone:      created.Phone,
		Name:       deref(created.Name),
	})
	return IntakeResult{Lead: created}, nil
}

func (s *Service) mergeReentry(ctx context.Context, existing domain.Lead, in domain.LeadInput, normalized *string, now time.Time, actorID *uuid.UUID) (IntakeResult, error) {
	before, after, err := s.repo.MergeReentry(ctx, existing.ID, in, normalized, now)
	if err != nil {
		return IntakeResult{}, s.mapLeadErr(err)
	}

	filled := domain.ProfileChanges(before, after)
	if filled == nil {
		filled = []string{}
	}
	source := in.LeadSource
	if source == "" {
		source = after.LeadSource
	}
	if _, err := s.record(ctx, journal.Entry{
		LeadID:   after.ID,
		AuthorID: actorID,
		Type:     domain.EventHistorySnapshot,
		Text:     fmt.Sprintf("Lead re-entered from %s", source),
		Tags:     []string{domain.TagReentry},
		Prev:     domain.IntakeOf(before),
		Next:     domain.IntakeOf(after),
		Meta:     map[string]any{"filledFields": filled, "reenterCount": after.ReenterCount},
	}); err != nil {
		return IntakeResult{}, err
	}

	s.metrics.IncLeadIngested("merged")
	s.publish(ctx, events.LeadReentered{
		BaseEvent:    events.NewBaseEvent(),
		LeadID:       after.ID,
		ReenterCount: after.ReenterCount,
		FilledFields: filled,
	})
	return IntakeResult{Lead: after, Merged: true}, nil
}

// Assign gives a lead an RM and a lead code. A lead that already has both is
// returned untouched. Closed leads are only reopened by re-entry.
func (s *Service) Assign(ctx context.Context, leadID uuid.UUID, actorID *uuid.UUID) (domain.Lead, error) {
	lead, err := s.GetLead(ctx, leadID)
	if err != nil {
		return domain.Lead{}, err
	}
	if lead.IsAssignedAndCoded() {
		s.metrics.IncAssignment("noop")
		return lead, nil
	}
	if lead.Status == domain.LeadStatusClosed {
		return domain.Lead{}, apperr.Conflict("closed lead cannot be assigned")
	}

	assigned := domain.LeadStatusAssigned
	patch := domain.LeadPatch{Status: &assigned, OnlyIfIncomplete: true}
	if lead.AssignedRmID == nil {
		rm, err := s.assigner.PickOne(ctx)
		if err != nil {
			s.metrics.IncAssignment("failed")
			return domain.Lead{}, err
		}
		patch.AssignedRmID = &rm.ID
		patch.AssignedRmName = &rm.Name
	}
	if lead.LeadCode == nil {
		code, err := s.nextLeadCode(ctx)
		if err != nil {
			s.metrics.IncAssignment("failed")
			return domain.Lead{}, err
		}
		patch.LeadCode = &code
	}

	before, after, err := s.repo.PatchLead(ctx, leadID, patch, s.clock())
	if errors.Is(err, domain.ErrPatchSkipped) {
		// A concurrent assign finished first; its result stands.
		s.metrics.IncAssignment("noop")
		return s.GetLead(ctx, leadID)
	}
	if err != nil {
		return domain.Lead{}, s.mapLeadErr(err)
	}

	if err := s.recordAssignment(ctx, before, after, actorID, false); err != nil {
		return domain.Lead{}, err
	}
	s.metrics.IncAssignment("assigned")
	return after, nil
}

// AssignMany assigns leads with at most min(concurrency, len(leadIDs))
// running at once; concurrency below 1 means the configured default.
// Failures are logged and skipped; the successfully assigned leads are
// returned in input order.
func (s *Service) AssignMany(ctx context.Context, leadIDs []uuid.UUID, concurrency int, actorID *uuid.UUID) ([]domain.Lead, error) {
	if len(leadIDs) == 0 {
		return []domain.Lead{}, nil
	}

	results := make([]*domain.Lead, len(leadIDs))
	g, gctx := errgroup.WithContext(ctx)
	if concurrency < 1 {
		concurrency = s.assignConcurrency
	}
	g.SetLimit(min(concurrency, len(leadIDs)))

	for i, id := range leadIDs {
		g.Go(func() error {
			lead, err := s.Assign(gctx, id, actorID)
			if err != nil {
				s.log.WithContext(ctx).Warn("lead assignment failed", "leadId", id, "error", err)
				return nil
			}
			results[i] = &lead
			return nil
		})
	}
	_ = g.Wait()

	assigned := make([]domain.Lead, 0, len(leadIDs))
	for _, lead := range results {
		if lead != nil {
			assigned = append(assigned, *lead)
		}
	}
	return assigned, ctx.Err()
}

// AssignOpenLeads runs AssignMany over the current open-lead backlog.
func (s *Service) AssignOpenLeads(ctx context.Context, actorID *uuid.UUID) ([]domain.Lead, error) {
	open, err := s.LeadsOpen(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(open))
	for _, lead := range open {
		ids = append(ids, lead.ID)
	}
	return s.AssignMany(ctx, ids, 0, actorID)
}

// Reassign hands the lead to a specific RM, generating a lead code if the
// lead has none.
func (s *Service) Reassign(ctx context.Context, leadID, rmID uuid.UUID, actorID *uuid.UUID) (domain.Lead, error) {
	rm, err := s.repo.GetUser(ctx, rmID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return domain.Lead{}, apperr.NotFound("RM user not found")
	}
	if err != nil {
		return domain.Lead{}, err
	}
	if !rm.EligibleForAssignment() {
		return domain.Lead{}, apperr.Validation("user is not an active relationship manager")
	}

	lead, err := s.GetLead(ctx, leadID)
	if err != nil {
		return domain.Lead{}, err
	}
	if lead.Status == domain.LeadStatusClosed {
		return domain.Lead{}, apperr.Conflict("closed lead cannot be reassigned")
	}
	if lead.AssignedRmID != nil && *lead.AssignedRmID == rm.ID && lead.LeadCode != nil && lead.Status == domain.LeadStatusAssigned {
		return lead, nil
	}

	assigned := domain.LeadStatusAssigned
	patch := domain.LeadPatch{Status: &assigned, AssignedRmID: &rm.ID, AssignedRmName: &rm.Name}
	if lead.LeadCode == nil {
		code, err := s.nextLeadCode(ctx)
		if err != nil {
			return domain.Lead{}, err
		}
		patch.LeadCode = &code
	}

	before, after, err := s.repo.PatchLead(ctx, leadID, patch, s.clock())
	if err != nil {
		return domain.Lead{}, s.mapLeadErr(err)
	}
	if err := s.recordAssignment(ctx, before, after, actorID, true); err != nil {
		return domain.Lead{}, err
	}
	s.metrics.IncAssignment("reassigned")
	return after, nil
}

func (s *Service) recordAssignment(ctx context.Context, before, after domain.Lead, actorID *uuid.UUID, manual bool) error {
	name := deref(after.AssignedRmName)
	meta := map[string]any{"manual": manual}
	if after.LeadCode != nil {
		meta["leadCode"] = *after.LeadCode
	}
	if _, err := s.record(ctx, journal.Entry{
		LeadID:   after.ID,
		AuthorID: actorID,
		Type:     domain.EventAssignment,
		Text:     fmt.Sprintf("Assigned to %s", name),
		Tags:     []string{domain.TagAssignment},
		Prev:     domain.AssignmentOf(before),
		Next:     domain.AssignmentOf(after),
		Meta:     meta,
	}); err != nil {
		return err
	}

	if after.AssignedRmID != nil {
		s.publish(ctx, events.LeadAssigned{
			BaseEvent:    events.NewBaseEvent(),
			LeadID:       after.ID,
			LeadCode:     deref(after.LeadCode),
			LeadName:     deref(after.Name),
			PreviousRmID: before.AssignedRmID,
			RmID:         *after.AssignedRmID,
			RmName:       name,
			AssignedByID: actorID,
			Manual:       manual,
		})
	}
	return nil
}

// nextLeadCode reserves one slot on the current month's counter.
func (s *Service) nextLeadCode(ctx context.Context) (string, error) {
	at := s.clock().In(s.codeLocation)
	seq, err := s.counter.Next(ctx, domain.LeadCodeCounterKey(at))
	if err != nil {
		return "", err
	}
	return domain.FormatLeadCode(at, seq), nil
}

// record appends a journal entry, mapping persistence sentinels the same way
// lead reads do.
func (s *Service) record(ctx context.Context, e journal.Entry) (domain.LeadEvent, error) {
	event, err := s.journal.Record(ctx, e)
	if err != nil {
		return domain.LeadEvent{}, s.mapLeadErr(err)
	}
	return event, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, event)
}

// mapLeadErr converts persistence sentinels into typed errors.
func (s *Service) mapLeadErr(err error) error {
	switch {
	case errors.Is(err, domain.ErrLeadNotFound):
		return apperr.NotFound("Lead not found")
	case errors.Is(err, domain.ErrPhoneNotFound):
		return apperr.NotFound("Phone not found")
	case errors.Is(err, domain.ErrPhoneLimit):
		return apperr.Validation("Maximum 4 phone numbers allowed per lead")
	}
	return err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
