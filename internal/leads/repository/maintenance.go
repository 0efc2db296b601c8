package repository

import (
	"context"

	"ipkwealth_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// PhoneRow is the minimal projection used by the phone backfill.
type PhoneRow struct {
	ID    uuid.UUID
	Phone string
}

// ListMissingNormalized pages through leads with no phone_normalized in id
// order, starting after the given id.
func (r *Repository) ListMissingNormalized(ctx context.Context, after uuid.UUID, limit int) ([]PhoneRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, phone
		FROM leads
		WHERE phone_normalized IS NULL AND id > $1
		ORDER BY id ASC
		LIMIT $2
	`, after, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]PhoneRow, 0, limit)
	for rows.Next() {
		var item PhoneRow
		if err := rows.Scan(&item.ID, &item.Phone); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}

// SetPhoneNormalized fills phone_normalized only where it is still empty.
func (r *Repository) SetPhoneNormalized(ctx context.Context, id uuid.UUID, normalized string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET phone_normalized = $2
		WHERE id = $1 AND phone_normalized IS NULL
	`, id, normalized)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ListAssignedWithoutCode returns leads that have an RM but never got a code,
// oldest first.
func (r *Repository) ListAssignedWithoutCode(ctx context.Context, limit int) ([]domain.Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE assigned_rm_id IS NOT NULL AND lead_code IS NULL
		ORDER BY created_at ASC, id ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	return collectLeads(rows)
}
