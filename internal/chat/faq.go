package chat

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/vitrineapp/vitrine-ai-platform/internal/knowledge"
)

// faqStopwords are French function words ignored when scoring keyword
// overlap between a message and a stored FAQ question.
var faqStopwords = map[string]bool{
	"le": true, "la": true, "les": true, "de": true, "des": true, "du": true,
	"un": true, "une": true, "et": true, "ou": true, "au": true, "aux": true,
	"est": true, "sont": true, "vos": true, "votre": true, "nos": true,
	"notre": true, "quel": true, "quelle": true, "quels": true,
	"quelles": true, "que": true, "qui": true, "quoi": true, "pour": true,
	"par": true, "sur": true, "dans": true, "en": true, "je": true,
	"vous": true, "nous": true, "il": true, "elle": true, "on": true,
	"ce": true, "cet": true, "cette": true, "ces": true, "ne": true,
	"pas": true, "plus": true, "avec": true, "sans": true, "si": true,
	"se": true, "qu": true, "me": true, "bonjour": true, "merci": true,
	"svp": true,
}

var (
	hoursKeywords   = []string{"horaire", "ouvert", "ferme", "ouverture", "fermeture"}
	serviceKeywords = []string{"prix", "tarif", "combien", "prestation", "service", "proposez", "faites"}
)

// contentTokens splits normalized text into lowercase tokens with stopwords
// and single letters removed.
func contentTokens(text string) []string {
	fields := strings.FieldsFunc(normalizeText(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) <= 1 || faqStopwords[f] {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// AnswerFAQ tries to answer a practical question from the knowledge base
// without any model call. It checks, in order: stored FAQ entries by keyword
// overlap, opening hours, then the service list with prices. The boolean is
// false when nothing in the KB covers the question.
func AnswerFAQ(message string, kb *knowledge.KnowledgeBase) (string, bool) {
	if kb == nil {
		return "", false
	}

	if answer, ok := matchFAQEntry(message, kb.FAQ); ok {
		return answer, true
	}

	normalized := normalizeText(message)
	if kb.HoursText != "" && containsAny(normalized, hoursKeywords) {
		return fmt.Sprintf("Voici nos horaires : %s", kb.HoursText), true
	}
	if len(kb.Services) > 0 && containsAny(normalized, serviceKeywords) {
		return enumerateServices(kb.Services), true
	}
	return "", false
}

// matchFAQEntry scores each stored question by how many content tokens it
// shares with the message. Best score wins, ties resolve to entry order, a
// score of zero answers nothing.
func matchFAQEntry(message string, entries []knowledge.FAQEntry) (string, bool) {
	msgTokens := contentTokens(message)
	if len(msgTokens) == 0 || len(entries) == 0 {
		return "", false
	}
	present := make(map[string]bool, len(msgTokens))
	for _, tok := range msgTokens {
		present[tok] = true
	}

	bestScore := 0
	bestAnswer := ""
	for _, entry := range entries {
		score := 0
		for _, tok := range contentTokens(entry.Question) {
			if present[tok] {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			bestAnswer = entry.Answer
		}
	}
	if bestScore == 0 {
		return "", false
	}
	return bestAnswer, true
}

func containsAny(normalized string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(normalized, kw) {
			return true
		}
	}
	return false
}

// enumerateServices renders the catalog as one line per service with the
// price and duration when known.
func enumerateServices(services []knowledge.Service) string {
	var b strings.Builder
	b.WriteString("Voici nos prestations :")
	for _, svc := range services {
		b.WriteString("\n- ")
		b.WriteString(svc.Name)
		details := make([]string, 0, 2)
		if svc.PriceMinor > 0 {
			details = append(details, formatPriceMinor(svc.PriceMinor))
		}
		if svc.DurationMinutes > 0 {
			details = append(details, fmt.Sprintf("%d min", svc.DurationMinutes))
		}
		if len(details) > 0 {
			b.WriteString(" (")
			b.WriteString(strings.Join(details, ", "))
			b.WriteString(")")
		}
	}
	return b.String()
}

// formatPriceMinor renders cents as a French euro amount: 2200 becomes
// "22 €", 3550 becomes "35,50 €".
func formatPriceMinor(cents int) string {
	if cents%100 == 0 {
		return fmt.Sprintf("%d €", cents/100)
	}
	return fmt.Sprintf("%d,%02d €", cents/100, cents%100)
}
