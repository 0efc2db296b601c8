// Package identity decides whether an incoming phone number belongs to a
// lead that already exists.
package identity

import (
	"context"

	"ipkwealth_backend/internal/leads/domain"
	"ipkwealth_backend/platform/phone"
)

// Finder looks up the newest lead, archived or not, whose normalized phone
// equals normalized or whose raw phone equals raw exactly. It returns nil
// when nothing matches.
type Finder interface {
	FindLatestByPhone(ctx context.Context, normalized *string, raw string) (*domain.Lead, error)
}

type Resolver struct {
	finder Finder
}

func NewResolver(finder Finder) *Resolver {
	return &Resolver{finder: finder}
}

// NormalizePhone strips non-digits and keeps the last 12 digits.
func NormalizePhone(raw *string) *string {
	return phone.Normalize(raw)
}

// Match is the outcome of resolving a phone number.
type Match struct {
	Normalized *string
	Existing   *domain.Lead
}

// ResolveExisting normalizes raw and looks for a lead to merge into. An
// empty normalization only matches on the raw value.
func (r *Resolver) ResolveExisting(ctx context.Context, raw string) (Match, error) {
	normalized := NormalizePhone(&raw)
	if normalized != nil && *normalized == "" {
		normalized = nil
	}
	existing, err := r.finder.FindLatestByPhone(ctx, normalized, raw)
	if err != nil {
		return Match{}, err
	}
	return Match{Normalized: normalized, Existing: existing}, nil
}
