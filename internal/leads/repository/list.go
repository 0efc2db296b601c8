package repository

import (
	"context"
	"fmt"
	"strings"

	"ipkwealth_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// ListLeads expects a normalized filter.
func (r *Repository) ListLeads(ctx context.Context, filter domain.LeadFilter) ([]domain.Lead, int, error) {
	whereClause, args, argIdx := buildLeadListWhere(filter)

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM leads WHERE %s", whereClause)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.PageSize, filter.Offset())
	query := fmt.Sprintf(`
		SELECT %s
		FROM leads
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, leadColumns, whereClause, argIdx, argIdx+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	leads, err := collectLeads(rows)
	if err != nil {
		return nil, 0, err
	}
	return leads, total, nil
}

func buildLeadListWhere(filter domain.LeadFilter) (string, []any, int) {
	whereClauses := []string{"archived = $1"}
	args := []any{filter.Archived}
	argIdx := 2

	if filter.Status != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, string(*filter.Status))
		argIdx++
	}
	if filter.Search != "" {
		ors := make([]string, 0, len(domain.SearchFields))
		for _, column := range domain.SearchFields {
			ors = append(ors, fmt.Sprintf("%s ILIKE $%d", column, argIdx))
		}
		whereClauses = append(whereClauses, "("+strings.Join(ors, " OR ")+")")
		args = append(args, "%"+escapeLike(filter.Search)+"%")
		argIdx++
	}
	if filter.DormantOnly {
		if filter.DormantDays > 0 {
			whereClauses = append(whereClauses, fmt.Sprintf(
				"(reenter_count > 0 OR last_seen_at <= $%d OR (last_seen_at IS NULL AND updated_at <= $%d))",
				argIdx, argIdx,
			))
			args = append(args, domain.DormantCutoff(filter.Now, filter.DormantDays))
			argIdx++
		} else {
			whereClauses = append(whereClauses, "reenter_count > 0")
		}
	}

	return strings.Join(whereClauses, " AND "), args, argIdx
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *Repository) ListOpenLeads(ctx context.Context, limit int) ([]domain.Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE status = 'OPEN' AND archived = false
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	return collectLeads(rows)
}

func (r *Repository) ListLeadsByRM(ctx context.Context, rmID uuid.UUID, includeArchived bool) ([]domain.Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE assigned_rm_id = $1 AND ($2 OR archived = false)
		ORDER BY updated_at DESC
	`, rmID, includeArchived)
	if err != nil {
		return nil, err
	}
	return collectLeads(rows)
}

// CountLeadsByRM counts an RM's non-archived leads, open ones excluding CLOSED.
func (r *Repository) CountLeadsByRM(ctx context.Context, rmID uuid.UUID) (int, int, error) {
	var open, total int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE status <> 'CLOSED'), COUNT(*)
		FROM leads
		WHERE assigned_rm_id = $1 AND archived = false
	`, rmID).Scan(&open, &total)
	return open, total, err
}
