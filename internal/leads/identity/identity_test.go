package identity

import (
	"context"
	"testing"

	"ipkwealth_backend/internal/leads/domain"

	"github.com/google/uuid"
)

type finderFunc func(ctx context.Context, normalized *string, raw string) (*domain.Lead, error)

func (f finderFunc) FindLatestByPhone(ctx context.Context, normalized *string, raw string) (*domain.Lead, error) {
	return f(ctx, normalized, raw)
}

func TestNormalizePhone(t *testing.T) {
	raw := "+91 98765-43210"
	got := NormalizePhone(&raw)
	if got == nil || *got != "919876543210" {
		t.Fatalf("unexpected normalization %v", got)
	}
	if NormalizePhone(nil) != nil {
		t.Fatal("expected nil for nil input")
	}
}

func TestResolveExistingPassesNormalizedAndRaw(t *testing.T) {
	want := &domain.Lead{ID: uuid.New()}
	var gotNormalized *string
	var gotRaw string
	r := NewResolver(finderFunc(func(_ context.Context, normalized *string, raw string) (*domain.Lead, error) {
		gotNormalized, gotRaw = normalized, raw
		return want, nil
	}))

	match, err := r.ResolveExisting(context.Background(), "098765 43210")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if match.Existing != want {
		t.Fatal("expected existing lead to be returned")
	}
	if gotNormalized == nil || *gotNormalized != "09876543210" || gotRaw != "098765 43210" {
		t.Fatalf("unexpected lookup keys %v %q", gotNormalized, gotRaw)
	}
}

func TestResolveExistingWithoutDigitsUsesRawOnly(t *testing.T) {
	r := NewResolver(finderFunc(func(_ context.Context, normalized *string, raw string) (*domain.Lead, error) {
		if normalized != nil {
			t.Fatalf("expected no normalized key, got %q", *normalized)
		}
		return nil, nil
	}))
	match, err := r.ResolveExisting(context.Background(), "n/a")
	if err != nil || match.Existing != nil {
		t.Fatalf("unexpected result %+v %v", match, err)
	}
}
