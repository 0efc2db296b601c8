package lifecycle

import (
	"context"
	"time"

	"ipkwealth_backend/internal/leads/domain"
	"ipkwealth_backend/internal/leads/identity"
	"ipkwealth_backend/internal/leads/journal"

	"github.com/google/uuid"
)

// LeadStore is the lead half of the persistence port. Mutating methods apply
// their change atomically on one row and return the row before and after.
type LeadStore interface {
	identity.Finder
	CreateLead(ctx context.Context, lead domain.Lead) (domain.Lead, error)
	GetLead(ctx context.Context, id uuid.UUID) (domain.Lead, error)
	// MergeReentry applies domain.ApplyReentry to the stored row.
	MergeReentry(ctx context.Context, id uuid.UUID, in domain.LeadInput, normalized *string, now time.Time) (before, after domain.Lead, err error)
	// PatchLead applies patch to the stored row. It returns
	// domain.ErrPatchSkipped when patch.OnlyIfIncomplete blocked the write.
	PatchLead(ctx context.Context, id uuid.UUID, patch domain.LeadPatch, now time.Time) (before, after domain.Lead, err error)
	ListLeads(ctx context.Context, filter domain.LeadFilter) ([]domain.Lead, int, error)
	ListOpenLeads(ctx context.Context, limit int) ([]domain.Lead, error)
}

// PhoneStore keeps a lead's phone book. Every method preserves the single
// primary rule in the same atomic step as its write.
type PhoneStore interface {
	ListPhones(ctx context.Context, leadID uuid.UUID) ([]domain.LeadPhone, error)
	GetPhone(ctx context.Context, phoneID uuid.UUID) (domain.LeadPhone, error)
	// AddPhone returns domain.ErrPhoneLimit when the lead already has the
	// maximum number of phones.
	AddPhone(ctx context.Context, phone domain.LeadPhone) (domain.LeadPhone, error)
	// RemovePhone deletes a phone. When it was primary the oldest remaining
	// phone is promoted and returned.
	RemovePhone(ctx context.Context, phoneID uuid.UUID) (removed domain.LeadPhone, promoted *domain.LeadPhone, err error)
	MarkPrimaryPhone(ctx context.Context, phoneID uuid.UUID) (domain.LeadPhone, error)
	SetPhoneWhatsapp(ctx context.Context, phoneID uuid.UUID, enabled bool) (domain.LeadPhone, error)
}

type UserDirectory interface {
	GetUser(ctx context.Context, id uuid.UUID) (domain.User, error)
}

// Repository is everything the lifecycle service persists through.
type Repository interface {
	LeadStore
	PhoneStore
	UserDirectory
}

// Assigner picks the next relationship manager.
type Assigner interface {
	PickOne(ctx context.Context) (domain.User, error)
}

// CodeCounter hands out lead-code sequence numbers.
type CodeCounter interface {
	Next(ctx context.Context, key string) (int64, error)
}

// Recorder is the event journal.
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) (domain.LeadEvent, error)
	List(ctx context.Context, leadID uuid.UUID, limit int) ([]domain.LeadEvent, error)
}
