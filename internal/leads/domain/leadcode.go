package domain

import (
	"fmt"
	"time"
)

const leadCodePrefix = "IPK"

// LeadCodeCounterKey names the per-month counter feeding lead codes.
func LeadCodeCounterKey(at time.Time) string {
	return fmt.Sprintf("lead_seq_%s", yearMonth(at))
}

// FormatLeadCode renders IPK{YY}{MM}{seq padded to 4 digits}. Sequences past
// 9999 keep all their digits.
func FormatLeadCode(at time.Time, seq int64) string {
	return fmt.Sprintf("%s%s%04d", leadCodePrefix, yearMonth(at), seq)
}

func yearMonth(at time.Time) string {
	return fmt.Sprintf("%02d%02d", at.Year()%100, int(at.Month()))
}
