// Package repository is the Postgres implementation of the lead lifecycle
// persistence port. Every mutating method touches one lead inside one short
// transaction and returns the row as it was before and after the write.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ipkwealth_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const leadColumns = `id, first_name, last_name, name, email, phone, phone_normalized, lead_source, lead_code,
	referral_code, gender, age, location, profession, company_name, designation, product, investment_range,
	sip_amount, client_types, remark, bio_text, status, client_stage, assigned_rm_id, assigned_rm_name,
	reenter_count, first_seen_at, last_seen_at, approach_at, client_qa, archived, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (domain.Lead, error) {
	var (
		l      domain.Lead
		status string
		stage  *string
		qa     []byte
	)
	err := row.Scan(
		&l.ID, &l.FirstName, &l.LastName, &l.Name, &l.Email, &l.Phone, &l.PhoneNormalized, &l.LeadSource, &l.LeadCode,
		&l.ReferralCode, &l.Gender, &l.Age, &l.Location, &l.Profession, &l.CompanyName, &l.Designation, &l.Product, &l.InvestmentRange,
		&l.SipAmount, &l.ClientTypes, &l.Remark, &l.BioText, &status, &stage, &l.AssignedRmID, &l.AssignedRmName,
		&l.ReenterCount, &l.FirstSeenAt, &l.LastSeenAt, &l.ApproachAt, &qa, &l.Archived, &l.CreatedAt, &l.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Lead{}, domain.ErrLeadNotFound
	}
	if err != nil {
		return domain.Lead{}, err
	}

	l.Status = domain.LeadStatus(status)
	if stage != nil {
		s := domain.ClientStage(*stage)
		l.ClientStage = &s
	}
	if len(qa) > 0 {
		if err := json.Unmarshal(qa, &l.ClientQA); err != nil {
			return domain.Lead{}, fmt.Errorf("decode client_qa for lead %s: %w", l.ID, err)
		}
	}
	return l, nil
}

func collectLeads(rows pgx.Rows) ([]domain.Lead, error) {
	defer rows.Close()
	leads := make([]domain.Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return leads, nil
}

func encodeQA(items []domain.QAItem) ([]byte, error) {
	if items == nil {
		items = []domain.QAItem{}
	}
	return json.Marshal(items)
}

func stageArg(s *domain.ClientStage) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}

// withTx runs fn in a transaction and commits when fn succeeds.
func (r *Repository) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func lockLead(ctx context.Context, tx pgx.Tx, id uuid.UUID) (domain.Lead, error) {
	return scanLead(tx.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1 FOR UPDATE`, id))
}
