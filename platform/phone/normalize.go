// Package phone provides phone number normalization and formatting.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const (
	defaultRegion = "IN"
	// MaxDigits is how many trailing digits are kept by Normalize.
	MaxDigits = 12
)

// Normalize strips every non-digit and keeps at most the last MaxDigits
// digits. It returns nil for nil input; a string with no digits yields a
// pointer to "".
func Normalize(raw *string) *string {
	if raw == nil {
		return nil
	}
	out := Digits(*raw)
	return &out
}

// Digits is Normalize for non-nullable input.
func Digits(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) > MaxDigits {
		digits = digits[len(digits)-MaxDigits:]
	}
	return digits
}

// Display formats a number for humans in international notation. Numbers
// that do not parse are returned trimmed.
func Display(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return trimmed
	}
	number, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err != nil || !phonenumbers.IsValidNumber(number) {
		return trimmed
	}
	return phonenumbers.Format(number, phonenumbers.INTERNATIONAL)
}
