// Package sanitize cleans free text typed by RMs before it is stored.
package sanitize

import (
	"regexp"
	"strings"
)

var (
	htmlTag     = regexp.MustCompile(`<[^>]*>`)
	blankRun    = regexp.MustCompile(`[ \t]+`)
	entityCodes = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&amp;", "&", "&quot;", `"`, "&#39;", "'", "&nbsp;", " ")
)

// Text strips markup, decodes the common entities and squeezes runs of
// spaces. Line breaks are kept so notes stay readable.
func Text(s string) string {
	out := htmlTag.ReplaceAllString(s, "")
	out = entityCodes.Replace(out)
	// Entities may have hidden a tag.
	out = htmlTag.ReplaceAllString(out, "")

	lines := strings.Split(out, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(blankRun.ReplaceAllString(line, " "))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// TextPtr applies Text to an optional field. A value that cleans down to
// nothing becomes nil.
func TextPtr(s *string) *string {
	if s == nil {
		return nil
	}
	out := Text(*s)
	if out == "" {
		return nil
	}
	return &out
}
