package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"ipkwealth_backend/internal/leads/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func (r *Repository) CreateLead(ctx context.Context, lead domain.Lead) (domain.Lead, error) {
	qa, err := encodeQA(lead.ClientQA)
	if err != nil {
		return domain.Lead{}, err
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO leads (
			id, first_name, last_name, name, email, phone, phone_normalized, lead_source,
			referral_code, gender, age, location, profession, company_name, designation, product, investment_range,
			sip_amount, client_types, remark, status, reenter_count, first_seen_at, last_seen_at, approach_at,
			client_qa, archived, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25, $26, $27, $28, $29)
		RETURNING `+leadColumns,
		lead.ID, lead.FirstName, lead.LastName, lead.Name, lead.Email, lead.Phone, lead.PhoneNormalized, lead.LeadSource,
		lead.ReferralCode, lead.Gender, lead.Age, lead.Location, lead.Profession, lead.CompanyName, lead.Designation, lead.Product, lead.InvestmentRange,
		lead.SipAmount, lead.ClientTypes, lead.Remark, string(lead.Status), lead.ReenterCount, lead.FirstSeenAt, lead.LastSeenAt, lead.ApproachAt,
		qa, lead.Archived, lead.CreatedAt, lead.UpdatedAt,
	)
	return scanLead(row)
}

func (r *Repository) GetLead(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	return scanLead(r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id))
}

// FindLatestByPhone matches archived leads too; the newest duplicate wins.
func (r *Repository) FindLatestByPhone(ctx context.Context, normalized *string, raw string) (*domain.Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE ($1::text IS NOT NULL AND phone_normalized = $1) OR phone = $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, normalized, raw))
	if errors.Is(err, domain.ErrLeadNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

func (r *Repository) MergeReentry(ctx context.Context, id uuid.UUID, in domain.LeadInput, normalized *string, now time.Time) (domain.Lead, domain.Lead, error) {
	var before, after domain.Lead
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		current, err := lockLead(ctx, tx, id)
		if err != nil {
			return err
		}
		before = current
		merged := current
		domain.ApplyReentry(&merged, in, normalized, now)

		qa, err := encodeQA(merged.ClientQA)
		if err != nil {
			return err
		}
		after, err = scanLead(tx.QueryRow(ctx, `
			UPDATE leads SET
				first_name = $2, last_name = $3, name = $4, email = $5, phone_normalized = $6,
				referral_code = $7, gender = $8, age = $9, location = $10, profession = $11,
				company_name = $12, designation = $13, product = $14, investment_range = $15,
				sip_amount = $16, client_types = $17, remark = $18, approach_at = $19, client_qa = $20,
				archived = $21, status = $22, reenter_count = $23, last_seen_at = $24, updated_at = $25
			WHERE id = $1
			RETURNING `+leadColumns,
			id, merged.FirstName, merged.LastName, merged.Name, merged.Email, merged.PhoneNormalized,
			merged.ReferralCode, merged.Gender, merged.Age, merged.Location, merged.Profession,
			merged.CompanyName, merged.Designation, merged.Product, merged.InvestmentRange,
			merged.SipAmount, merged.ClientTypes, merged.Remark, merged.ApproachAt, qa,
			merged.Archived, string(merged.Status), merged.ReenterCount, merged.LastSeenAt, merged.UpdatedAt,
		))
		return err
	})
	if err != nil {
		return domain.Lead{}, domain.Lead{}, err
	}
	return before, after, nil
}

func (r *Repository) PatchLead(ctx context.Context, id uuid.UUID, patch domain.LeadPatch, now time.Time) (domain.Lead, domain.Lead, error) {
	var before, after domain.Lead
	err := r.withTx(ctx, func(tx pgx.Tx) error {
		current, err := lockLead(ctx, tx, id)
		if err != nil {
			return err
		}
		if patch.OnlyIfIncomplete && current.IsAssignedAndCoded() {
			return domain.ErrPatchSkipped
		}
		before = current

		query, args, err := buildPatch(id, patch, now)
		if err != nil {
			return err
		}
		after, err = scanLead(tx.QueryRow(ctx, query, args...))
		return err
	})
	if err != nil {
		return domain.Lead{}, domain.Lead{}, err
	}
	return before, after, nil
}

func buildPatch(id uuid.UUID, patch domain.LeadPatch, now time.Time) (string, []any, error) {
	setClauses := []string{}
	args := []any{}
	argIdx := 1

	var statusArg any
	if patch.Status != nil {
		statusArg = string(*patch.Status)
	}
	var qaArg any
	if patch.SetClientQA {
		encoded, err := encodeQA(patch.ClientQA)
		if err != nil {
			return "", nil, err
		}
		qaArg = encoded
	}

	fields := []struct {
		enabled bool
		clause  string
		value   any
	}{
		{patch.Status != nil, "status = $%d", statusArg},
		{patch.ClientStage != nil, "client_stage = $%d", stageArg(patch.ClientStage)},
		{patch.ApproachAt != nil, "approach_at = $%d", patch.ApproachAt},
		{patch.LastSeenAt != nil, "last_seen_at = $%d", patch.LastSeenAt},
		{patch.SetRemark, "remark = $%d", patch.Remark},
		{patch.SetBio, "bio_text = $%d", patch.BioText},
		{patch.SetClientQA, "client_qa = $%d", qaArg},
		{patch.AssignedRmID != nil, "assigned_rm_id = $%d", patch.AssignedRmID},
		{patch.AssignedRmID != nil, "assigned_rm_name = $%d", patch.AssignedRmName},
		{patch.LeadCode != nil, "lead_code = COALESCE(lead_code, $%d)", patch.LeadCode},
		{patch.Archived != nil, "archived = $%d", patch.Archived},
	}

	for _, field := range fields {
		if !field.enabled {
			continue
		}
		setClauses = append(setClauses, fmt.Sprintf(field.clause, argIdx))
		args = append(args, field.value)
		argIdx++
	}

	setClauses = append(setClauses, fmt.Sprintf("updated_at = $%d", argIdx))
	args = append(args, now, id)

	query := fmt.Sprintf(`
		UPDATE leads SET %s
		WHERE id = $%d
		RETURNING %s
	`, strings.Join(setClauses, ", "), argIdx+1, leadColumns)
	return query, args, nil
}
