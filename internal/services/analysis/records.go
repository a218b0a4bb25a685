package analysis

import (
	"strings"
	"time"
)

// The oracle sometimes emits the literal string "null" where an absent field
// was meant. These helpers coerce that sentinel to a real absence once, at
// the decode boundary; nothing deeper in the pipeline re-checks for it.

// cleanString trims whitespace and maps the "null" sentinel to empty.
func cleanString(s string) string {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "null") {
		return ""
	}
	return s
}

// optionalString returns nil for an empty-after-cleaning string.
func optionalString(s string) *string {
	s = cleanString(s)
	if s == "" {
		return nil
	}
	return &s
}

// parseDate parses a date the oracle emitted. Both plain dates and full
// RFC3339 timestamps are accepted; anything else, including the "null"
// sentinel, yields nil.
func parseDate(s string) *time.Time {
	s = cleanString(s)
	if s == "" {
		return nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return &t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &t
	}
	return nil
}

// cleanTags drops empty and sentinel entries from a tag list.
func cleanTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if cleaned := cleanString(tag); cleaned != "" {
			out = append(out, cleaned)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
