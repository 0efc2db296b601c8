package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ipkwealth_backend/internal/events"
	"ipkwealth_backend/internal/leads/domain"
	"ipkwealth_backend/platform/apperr"

	"github.com/google/uuid"
)

// BulkResult summarizes an import. Errors are "Row N: reason" with N
// counted from 1.
type BulkResult struct {
	Created int      `json:"created"`
	Merged  int      `json:"merged"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors"`
}

// CreateLeadsBulk imports rows one at a time through CreatePendingLead. A
// bad row is reported and skipped; rows already imported stay imported when
// the context is cancelled.
func (s *Service) CreateLeadsBulk(ctx context.Context, rows []domain.LeadInput, actorID *uuid.UUID) (BulkResult, error) {
	result := BulkResult{Errors: []string{}}

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			s.publishImport(ctx, result)
			return result, err
		}

		rowNum := i + 1
		if msg := validateRow(row); msg != "" {
			result.fail(rowNum, msg)
			s.metrics.IncBulkRow("failed")
			continue
		}

		row.Phone = strings.TrimSpace(row.Phone)
		row.LeadSource = strings.TrimSpace(row.LeadSource)
		intake, err := s.CreatePendingLead(ctx, row, actorID)
		if err != nil {
			if ctx.Err() != nil {
				s.publishImport(ctx, result)
				return result, ctx.Err()
			}
			result.fail(rowNum, rowMessage(err))
			s.metrics.IncBulkRow("failed")
			s.log.WithContext(ctx).Warn("bulk import row failed", "row", rowNum, "error", err)
			continue
		}

		if intake.Lead.ReenterCount > 0 {
			result.Merged++
			s.metrics.IncBulkRow("merged")
		} else {
			result.Created++
			s.metrics.IncBulkRow("created")
		}
	}

	s.publishImport(ctx, result)
	return result, nil
}

func (r *BulkResult) fail(row int, msg string) {
	r.Failed++
	r.Errors = append(r.Errors, fmt.Sprintf("Row %d: %s", row, msg))
}

func validateRow(row domain.LeadInput) string {
	if strings.TrimSpace(row.Phone) == "" {
		return "Phone missing"
	}
	if strings.TrimSpace(row.LeadSource) == "" {
		return "Lead Source missing"
	}
	if domain.Present(row.Name) == nil && domain.Present(row.FirstName) == nil && domain.Present(row.LastName) == nil {
		return "Name missing"
	}
	return ""
}

func rowMessage(err error) string {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

func (s *Service) publishImport(ctx context.Context, r BulkResult) {
	s.publish(ctx, events.LeadsImported{
		BaseEvent: events.NewBaseEvent(),
		Created:   r.Created,
		Merged:    r.Merged,
		Failed:    r.Failed,
	})
}
