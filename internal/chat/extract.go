package chat

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/vitrineapp/vitrine-ai-platform/internal/knowledge"
)

// accentFolder maps the accented characters customers actually type to
// their bare equivalents. Input is lowercased before folding, so only
// lowercase forms are listed. Curly apostrophes become straight ones so
// "d'accord" matches however the keyboard produced it.
var accentFolder = strings.NewReplacer(
	"à", "a", "â", "a", "ä", "a",
	"é", "e", "è", "e", "ê", "e", "ë", "e",
	"î", "i", "ï", "i",
	"ô", "o", "ö", "o",
	"ù", "u", "û", "u", "ü", "u",
	"ç", "c",
	"œ", "oe", "æ", "ae",
	"’", "'",
)

func normalizeText(text string) string {
	return accentFolder.Replace(strings.ToLower(strings.TrimSpace(text)))
}

// confirmationTokens are the affirmative words the booking flow accepts.
// Matching is by equality or substring containment on normalized text, so
// "OK !" and "Oui, c'est bon" both confirm.
var confirmationTokens = []string{
	"oui",
	"ok",
	"confirme",
	"d'accord",
	"c'est bon",
	"go",
}

// IsConfirmation reports whether the message is an affirmative answer.
func IsConfirmation(text string) bool {
	normalized := normalizeText(text)
	if normalized == "" {
		return false
	}
	for _, token := range confirmationTokens {
		if normalized == token || strings.Contains(normalized, token) {
			return true
		}
	}
	return false
}

var frenchMonths = map[string]int{
	"janvier":   1,
	"fevrier":   2,
	"mars":      3,
	"avril":     4,
	"mai":       5,
	"juin":      6,
	"juillet":   7,
	"aout":      8,
	"septembre": 9,
	"octobre":   10,
	"novembre":  11,
	"decembre":  12,
}

var (
	isoDateRE    = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)
	frenchDateRE = regexp.MustCompile(`\b(\d{1,2})(?:er)?\s+(janvier|fevrier|mars|avril|mai|juin|juillet|aout|septembre|octobre|novembre|decembre)\b`)
)

// ExtractDate finds a calendar date in the message and returns it as
// YYYY-MM-DD, or "" when none is found.
//
// A literal YYYY-MM-DD is returned verbatim. Otherwise "<day> <month>"
// with a French month name (accented or not) is interpreted in the current
// year, rolling to the next year when that day has already passed.
// Day/month validity is not checked; the output is advisory.
func ExtractDate(text string, now time.Time) string {
	normalized := normalizeText(text)

	if m := isoDateRE.FindString(normalized); m != "" {
		return m
	}

	m := frenchDateRE.FindStringSubmatch(normalized)
	if m == nil {
		return ""
	}
	day, err := strconv.Atoi(m[1])
	if err != nil {
		return ""
	}
	month := frenchMonths[m[2]]

	year := now.Year()
	if month < int(now.Month()) || (month == int(now.Month()) && day < now.Day()) {
		year++
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}

var (
	hourSuffixRE = regexp.MustCompile(`\b(\d{1,2})h(\d{2})?\b`)
	hourColonRE  = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
)

// ExtractTime finds a clock time in the message and returns it as HH:MM,
// or "" when none is found. "14h" means 14:00; "14h30" and "9:05" are
// returned zero-padded. Hour and minute ranges are not validated.
func ExtractTime(text string) string {
	normalized := normalizeText(text)

	if m := hourSuffixRE.FindStringSubmatch(normalized); m != nil {
		minutes := m[2]
		if minutes == "" {
			minutes = "00"
		}
		return formatClock(m[1], minutes)
	}
	if m := hourColonRE.FindStringSubmatch(normalized); m != nil {
		return formatClock(m[1], m[2])
	}
	return ""
}

func formatClock(hour, minutes string) string {
	h, err := strconv.Atoi(hour)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%02d:%s", h, minutes)
}

// MatchService returns the first catalog service whose name appears in the
// message, comparing case-insensitively. Ties resolve to catalog order.
func MatchService(text string, services []knowledge.Service) (knowledge.Service, bool) {
	lowered := strings.ToLower(text)
	for _, svc := range services {
		name := strings.ToLower(strings.TrimSpace(svc.Name))
		if name == "" {
			continue
		}
		if strings.Contains(lowered, name) {
			return svc, true
		}
	}
	return knowledge.Service{}, false
}
