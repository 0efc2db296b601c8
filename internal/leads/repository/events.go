package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"ipkwealth_backend/internal/leads/domain"
	"ipkwealth_backend/internal/leads/journal"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateForeignKeyViolation  = "23503"
)

func (r *Repository) AppendEvent(ctx context.Context, e domain.LeadEvent) (domain.LeadEvent, error) {
	prev, err := domain.EncodeSnapshot(e.Prev)
	if err != nil {
		return domain.LeadEvent{}, fmt.Errorf("encode prev snapshot: %w", err)
	}
	next, err := domain.EncodeSnapshot(e.Next)
	if err != nil {
		return domain.LeadEvent{}, fmt.Errorf("encode next snapshot: %w", err)
	}
	var meta []byte
	if e.Meta != nil {
		meta, err = json.Marshal(e.Meta)
		if err != nil {
			return domain.LeadEvent{}, fmt.Errorf("encode meta: %w", err)
		}
	}

	err = r.pool.QueryRow(ctx, `
		INSERT INTO lead_events (id, lead_id, author_id, type, occurred_at, text, tags, prev, next, meta)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING seq
	`, e.ID, e.LeadID, e.AuthorID, string(e.Type), e.OccurredAt, e.Text, e.Tags, prev, next, meta).Scan(&e.Seq)
	if err != nil {
		return domain.LeadEvent{}, classifyAppendErr(err)
	}
	return e, nil
}

// classifyAppendErr marks retryable failures for the journal and turns a
// missing parent lead into the domain sentinel.
func classifyAppendErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateSerializationFailure, sqlStateDeadlockDetected:
			return errors.Join(journal.ErrAppendConflict, err)
		case sqlStateForeignKeyViolation:
			return domain.ErrLeadNotFound
		}
		return err
	}
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return errors.Join(journal.ErrAppendConflict, err)
	}
	return err
}

func (r *Repository) ListEvents(ctx context.Context, leadID uuid.UUID, limit int) ([]domain.LeadEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, seq, lead_id, author_id, type, occurred_at, text, tags, prev, next, meta
		FROM lead_events
		WHERE lead_id = $1
		ORDER BY occurred_at DESC, seq DESC
		LIMIT $2
	`, leadID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.LeadEvent, 0)
	for rows.Next() {
		var (
			e                domain.LeadEvent
			typ              string
			prev, next, meta []byte
		)
		if err := rows.Scan(&e.ID, &e.Seq, &e.LeadID, &e.AuthorID, &typ, &e.OccurredAt, &e.Text, &e.Tags, &prev, &next, &meta); err != nil {
			return nil, err
		}
		e.Type = domain.EventType(typ)
		if e.Prev, err = domain.DecodeSnapshot(prev); err != nil {
			return nil, fmt.Errorf("decode prev of event %s: %w", e.ID, err)
		}
		if e.Next, err = domain.DecodeSnapshot(next); err != nil {
			return nil, fmt.Errorf("decode next of event %s: %w", e.ID, err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Meta); err != nil {
				return nil, fmt.Errorf("decode meta of event %s: %w", e.ID, err)
			}
		}
		items = append(items, e)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}
