package knowledge

import "strings"

// Service is a bookable catalog entry. Catalog order is significant:
// matching resolves ties by position, and prompts enumerate in order.
type Service struct {
	Name            string `json:"name"`
	PriceMinor      int    `json:"price_minor,omitempty"`
	DurationMinutes int    `json:"duration_minutes,omitempty"`
}

// FAQEntry is a single question/answer pair.
type FAQEntry struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// KnowledgeBase is the read-only per-business snapshot consulted by the
// dialogue engine. It is never mutated after resolution.
type KnowledgeBase struct {
	BusinessName string     `json:"business_name"`
	BusinessType string     `json:"business_type,omitempty"`
	Timezone     string     `json:"timezone,omitempty"`
	HoursText    string     `json:"hours_text,omitempty"`
	Services     []Service  `json:"services,omitempty"`
	FAQ          []FAQEntry `json:"faq,omitempty"`
	ContactEmail string     `json:"contact_email,omitempty"`
}

// DisplayName returns the business name, or a generic French fallback so
// replies never render an empty subject.
func (kb *KnowledgeBase) DisplayName() string {
	if kb == nil || strings.TrimSpace(kb.BusinessName) == "" {
		return "cet établissement"
	}
	return kb.BusinessName
}

// ServiceNames returns catalog names in catalog order.
func (kb *KnowledgeBase) ServiceNames() []string {
	if kb == nil || len(kb.Services) == 0 {
		return nil
	}
	names := make([]string, 0, len(kb.Services))
	for _, s := range kb.Services {
		names = append(names, s.Name)
	}
	return names
}

// HasContactEmail reports whether booking notifications can be dispatched.
func (kb *KnowledgeBase) HasContactEmail() bool {
	return kb != nil && strings.TrimSpace(kb.ContactEmail) != ""
}
