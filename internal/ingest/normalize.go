// Package ingest normalizes loosely-typed rows from uncontrolled CSV/JSON
// sources into the strict domain record types.
package ingest

import (
	"strings"
	"time"

	"caseboard/pkg/domain"
)

// SplitOwner splits an "ORG - Name" owner string on the literal " - "
// separator. Without the separator the whole string is the display name and
// the organization is empty.
func SplitOwner(raw string) (org, name string) {
	s := strings.TrimSpace(raw)
	if before, after, ok := strings.Cut(s, " - "); ok {
		return strings.TrimSpace(before), strings.TrimSpace(after)
	}
	return "", s
}

// statusAliases maps lower-cased free-text statuses onto the canonical
// action-status vocabulary.
var statusAliases = map[string]string{
	"open":          "Open",
	"todo":          "Open",
	"new":           "Open",
	"in progress":   "In Progress",
	"wip":           "In Progress",
	"ongoing":       "In Progress",
	"not started":   "Not Started",
	"pending reply": "Pending Reply",
	"done":          "Done",
	"closed":        "Done",
	"complete":      "Done",
	"completed":     "Done",
	"skipped":       "Skipped",
	"blocked":       "Blocked",
	"on hold":       "Blocked",
}

// NormalizeStatus canonicalizes a free-text status. Unrecognized values pass
// through trimmed rather than being rejected.
func NormalizeStatus(raw string) string {
	s := strings.TrimSpace(raw)
	if canon, ok := statusAliases[strings.ToLower(s)]; ok {
		return canon
	}
	return s
}

// NormalizePriority canonicalizes a priority to HIGH/MEDIUM/LOW, passing
// unknown values through upper-cased.
func NormalizePriority(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	switch s {
	case "H", "HIGH", "P1":
		return string(domain.PriorityHigh)
	case "M", "MED", "MEDIUM", "P2":
		return string(domain.PriorityMedium)
	case "L", "LOW", "P3":
		return string(domain.PriorityLow)
	}
	return s
}

// NormalizeATA canonicalizes an ATA chapter reference: bare chapter numbers
// gain the "ATA" prefix, and existing prefixes are upper-cased.
func NormalizeATA(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	up := strings.ToUpper(strings.ReplaceAll(s, " ", ""))
	if strings.HasPrefix(up, "ATA") {
		return up
	}
	if isDigits(up) || isDigitsDashDigits(up) {
		return "ATA" + up
	}
	return s
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isDigitsDashDigits(s string) bool {
	before, after, ok := strings.Cut(s, "-")
	return ok && isDigits(before) && isDigits(after)
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"02.01.2006",
	"Jan 2, 2006",
	time.RFC3339,
}

// NormalizeDate canonicalizes a date string to ISO "2006-01-02". Values that
// match no known layout pass through trimmed.
func NormalizeDate(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return s
}
