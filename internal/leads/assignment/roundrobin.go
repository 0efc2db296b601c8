// Package assignment rotates leads across eligible relationship managers.
package assignment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"ipkwealth_backend/internal/leads/domain"
	"ipkwealth_backend/internal/sequence"
	"ipkwealth_backend/platform/apperr"
	"ipkwealth_backend/platform/logger"

	"github.com/google/uuid"
)

// RotationKey is the counter holding the round-robin cursor.
const RotationKey = "RR_RM_ACTIVE"

var ErrNoEligibleCandidates = errors.New("no active relationship managers")

// Roster supplies candidates and records when they were last picked.
type Roster interface {
	ListEligibleRMs(ctx context.Context) ([]domain.User, error)
	TouchLastAssigned(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

// Counter reserves positions on the rotation cursor.
type Counter interface {
	ReserveRange(ctx context.Context, key string, size int64) (sequence.Range, error)
}

// RoundRobin maps reserved cursor positions onto the candidate list ordered
// by creation time. The list is re-read on every call, so positions shift
// when RMs join or leave; that drift is accepted.
type RoundRobin struct {
	roster  Roster
	counter Counter
	clock   func() time.Time
	log     *logger.Logger
}

func NewRoundRobin(roster Roster, counter Counter, clock func() time.Time, log *logger.Logger) *RoundRobin {
	if clock == nil {
		clock = time.Now
	}
	return &RoundRobin{roster: roster, counter: counter, clock: clock, log: log}
}

// PickNext returns count RMs in rotation order. The same RM may appear more
// than once when count exceeds the number of candidates.
func (r *RoundRobin) PickNext(ctx context.Context, count int) ([]domain.User, error) {
	if count < 1 {
		return nil, apperr.Validation("count must be at least 1")
	}

	candidates, err := r.candidates(ctx)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, apperr.Wrap(apperr.KindPrecondition, "No active Relationship Managers found", ErrNoEligibleCandidates)
	}

	reserved, err := r.counter.ReserveRange(ctx, RotationKey, int64(count))
	if err != nil {
		return nil, err
	}

	n := int64(len(candidates))
	picked := make([]domain.User, 0, count)
	ids := make([]uuid.UUID, 0, count)
	for pos := reserved.Start; pos <= reserved.End; pos++ {
		u := candidates[(pos-1)%n]
		picked = append(picked, u)
		ids = append(ids, u.ID)
	}

	if err := r.roster.TouchLastAssigned(ctx, ids, r.clock()); err != nil {
		r.log.Warn("failed to stamp lastAssignedAt", "error", err, "count", len(ids))
	}
	return picked, nil
}

func (r *RoundRobin) PickOne(ctx context.Context) (domain.User, error) {
	picked, err := r.PickNext(ctx, 1)
	if err != nil {
		return domain.User{}, err
	}
	return picked[0], nil
}

func (r *RoundRobin) candidates(ctx context.Context) ([]domain.User, error) {
	users, err := r.roster.ListEligibleRMs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list eligible rms: %w", err)
	}
	eligible := users[:0:0]
	for _, u := range users {
		if u.EligibleForAssignment() {
			eligible = append(eligible, u)
		}
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		if !eligible[i].CreatedAt.Equal(eligible[j].CreatedAt) {
			return eligible[i].CreatedAt.Before(eligible[j].CreatedAt)
		}
		return eligible[i].ID.String() < eligible[j].ID.String()
	})
	return eligible, nil
}
