package repository

import (
	"context"
	"errors"

	"ipkwealth_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const phoneColumns = `id, lead_id, label, number, normalized, is_primary, is_whatsapp, created_at`

func scanPhone(row rowScanner) (domain.LeadPhone, error) {
	var p domain.LeadPhone
	var label string
	err := row.Scan(&p.ID, &p.LeadID, &label, &p.Number, &p.Normalized, &p.IsPrimary, &p.IsWhatsapp, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.LeadPhone{}, domain.ErrPhoneNotFound
	}
	p.Label = domain.PhoneLabel(label)
	return p, err
}

func (r *Repository) ListPhones(ctx context.Context, leadID uuid.UUID) ([]domain.LeadPhone, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+phoneColumns+`
		FROM lead_phones
		WHERE lead_id = $1
		ORDER BY is_primary DESC, created_at ASC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	phones := make([]domain.LeadPhone, 0)
	for rows.Next() {
		p, err := scanPhone(rows)
		if err != nil {
			return nil, err
		}
		phones = append(phones, p)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return phones, nil
}

func (r *Repository) GetPhone(ctx context.Context, phoneID uuid.UUID) (domain.LeadPhone, error) {
	return scanPhone(r.pool.QueryRow(ctx, `SELECT `+phoneColumns+` FROM lead_phones WHERE id = $1`, phoneID))
}

// AddPhone locks the owning lead so the count check and the primary flag
// cannot race with another phone write on the same lead.
func (r *Repository) AddPhone(ctx context.Context, p domain.LeadPhone) (domain.LeadPhone, error) {
	var saved domain.LeadPhone
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		var locked uuid.UUID
		err := tx.QueryRow(ctx, `SELECT id FROM leads WHERE id = $1 FOR UPDATE`, p.LeadID).Scan(&locked)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrLeadNotFound
		}
		if err != nil {
			return err
		}

		var count int
		var hasPrimary bool
		if err := tx.QueryRow(ctx, `
			SELECT COUNT(*), COALESCE(BOOL_OR(is_primary), false)
			FROM lead_phones WHERE lead_id = $1
		`, p.LeadID).Scan(&count, &hasPrimary); err != nil {
			return err
		}
		if count >= domain.MaxPhonesPerLead {
			return domain.ErrPhoneLimit
		}

		if p.IsPrimary {
			if _, err := tx.Exec(ctx, `UPDATE lead_phones SET is_primary = false WHERE lead_id = $1`, p.LeadID); err != nil {
				return err
			}
		} else if !hasPrimary {
			p.IsPrimary = true
		}

		saved, err = scanPhone(tx.QueryRow(ctx, `
			INSERT INTO lead_phones (id, lead_id, label, number, normalized, is_primary, is_whatsapp, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING `+phoneColumns,
			p.ID, p.LeadID, string(p.Label), p.Number, p.Normalized, p.IsPrimary, p.IsWhatsapp, p.CreatedAt,
		))
		return err
	})
	if err != nil {
		return domain.LeadPhone{}, err
	}
	return saved, nil
}

func (r *Repository) RemovePhone(ctx context.Context, phoneID uuid.UUID) (domain.LeadPhone, *domain.LeadPhone, error) {
	var removed domain.LeadPhone
	var promoted *domain.LeadPhone
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		var leadID uuid.UUID
		err := tx.QueryRow(ctx, `
			SELECT l.id FROM leads l
			JOIN lead_phones p ON p.lead_id = l.id
			WHERE p.id = $1
			FOR UPDATE OF l
		`, phoneID).Scan(&leadID)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrPhoneNotFound
		}
		if err != nil {
			return err
		}

		removed, err = scanPhone(tx.QueryRow(ctx, `DELETE FROM lead_phones WHERE id = $1 RETURNING `+phoneColumns, phoneID))
		if err != nil || !removed.IsPrimary {
			return err
		}

		next, err := scanPhone(tx.QueryRow(ctx, `
			UPDATE lead_phones SET is_primary = true
			WHERE id = (
				SELECT id FROM lead_phones WHERE lead_id = $1
				ORDER BY created_at ASC, id ASC
				LIMIT 1
			)
			RETURNING `+phoneColumns, leadID))
		if errors.Is(err, domain.ErrPhoneNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		promoted = &next
		return nil
	})
	if err != nil {
		return domain.LeadPhone{}, nil, err
	}
	return removed, promoted, nil
}

// MarkPrimaryPhone flips every phone of the lead in one statement.
func (r *Repository) MarkPrimaryPhone(ctx context.Context, phoneID uuid.UUID) (domain.LeadPhone, error) {
	rows, err := r.pool.Query(ctx, `
		UPDATE lead_phones SET is_primary = (id = $1)
		WHERE lead_id = (SELECT lead_id FROM lead_phones WHERE id = $1)
		RETURNING `+phoneColumns, phoneID)
	if err != nil {
		return domain.LeadPhone{}, err
	}
	defer rows.Close()

	var target *domain.LeadPhone
	for rows.Next() {
		p, err := scanPhone(rows)
		if err != nil {
			return domain.LeadPhone{}, err
		}
		if p.ID == phoneID {
			target = &p
		}
	}
	if rows.Err() != nil {
		return domain.LeadPhone{}, rows.Err()
	}
	if target == nil {
		return domain.LeadPhone{}, domain.ErrPhoneNotFound
	}
	return *target, nil
}

func (r *Repository) SetPhoneWhatsapp(ctx context.Context, phoneID uuid.UUID, enabled bool) (domain.LeadPhone, error) {
	return scanPhone(r.pool.QueryRow(ctx, `
		UPDATE lead_phones SET is_whatsapp = $2 WHERE id = $1
		RETURNING `+phoneColumns, phoneID, enabled))
}
