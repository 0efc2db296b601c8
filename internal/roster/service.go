// Package roster exposes the relationship managers that round-robin
// assignment draws from, together with their lead workload.
package roster

import (
	"context"
	"errors"
	"sort"

	"ipkwealth_backend/internal/leads/domain"
	"ipkwealth_backend/platform/apperr"
	"ipkwealth_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const countConcurrency = 8

// Store is the persistence the roster reads from.
type Store interface {
	ListEligibleRMs(ctx context.Context) ([]domain.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (domain.User, error)
	CountLeadsByRM(ctx context.Context, rmID uuid.UUID) (open, total int, err error)
	ListLeadsByRM(ctx context.Context, rmID uuid.UUID, includeArchived bool) ([]domain.Lead, error)
	SetUserStatus(ctx context.Context, id uuid.UUID, status domain.UserStatus) (domain.User, error)
}

type Service struct {
	store Store
	log   *logger.Logger
}

func New(store Store, log *logger.Logger) *Service {
	return &Service{store: store, log: log}
}

// ActiveRMs lists the RMs eligible for assignment, in name order, with
// their lead counts.
func (s *Service) ActiveRMs(ctx context.Context) ([]domain.RMWorkload, error) {
	users, err := s.store.ListEligibleRMs(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(users, func(i, j int) bool { return users[i].Name < users[j].Name })

	out := make([]domain.RMWorkload, len(users))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(countConcurrency)
	for i, u := range users {
		g.Go(func() error {
			open, total, err := s.store.CountLeadsByRM(gctx, u.ID)
			if err != nil {
				return err
			}
			out[i] = domain.RMWorkload{User: u, OpenLeads: open, TotalLeads: total}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.log.Error("failed to count rm leads", "error", err)
		return nil, err
	}
	return out, nil
}

// GetRM returns one RM with counts. Archived users and non-RMs are not found.
func (s *Service) GetRM(ctx context.Context, id uuid.UUID) (domain.RMWorkload, error) {
	var (
		user        domain.User
		open, total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		user, err = s.store.GetUser(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		open, total, err = s.store.CountLeadsByRM(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.RMWorkload{}, mapUserErr(err)
	}
	if user.Role != domain.RoleRM || user.Archived {
		return domain.RMWorkload{}, errRMNotFound()
	}
	return domain.RMWorkload{User: user, OpenLeads: open, TotalLeads: total}, nil
}

// RMLeads lists the leads currently assigned to an RM, most recently
// updated first.
func (s *Service) RMLeads(ctx context.Context, id uuid.UUID, includeArchived bool) ([]domain.Lead, error) {
	if _, err := s.GetRM(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListLeadsByRM(ctx, id, includeArchived)
}

// SetRMStatus activates or deactivates an RM. Inactive RMs drop out of the
// rotation on the next pick.
func (s *Service) SetRMStatus(ctx context.Context, id uuid.UUID, status domain.UserStatus) (domain.User, error) {
	if !status.Valid() {
		return domain.User{}, apperr.Validation("status must be ACTIVE or INACTIVE")
	}
	user, err := s.store.SetUserStatus(ctx, id, status)
	if err != nil {
		return domain.User{}, mapUserErr(err)
	}
	s.log.WithContext(ctx).Info("rm status changed", "rmId", id, "status", status)
	return user, nil
}

func errRMNotFound() error {
	return apperr.NotFound("Relationship manager not found")
}

func mapUserErr(err error) error {
	if errors.Is(err, domain.ErrUserNotFound) {
		return errRMNotFound()
	}
	return err
}
