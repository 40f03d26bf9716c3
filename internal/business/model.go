package business

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/vitrineapp/vitrine-ai-platform/internal/knowledge"
)

// Hours is the structured opening-hours document stored on a record.
// Text is the display string shown to customers; Days optionally maps a
// French day name to an "HH:MM-HH:MM" range for finer-grained data.
type Hours struct {
	Text string            `json:"text,omitempty"`
	Days map[string]string `json:"days,omitempty"`
}

// Rules is the structured house-rules document (deposit policy,
// cancellation policy, free-form notes). It is admin-only data.
type Rules struct {
	Booking      string   `json:"booking,omitempty"`
	Cancellation string   `json:"cancellation,omitempty"`
	Notes        []string `json:"notes,omitempty"`
}

// Business is a record keyed by slug.
type Business struct {
	Slug         string               `json:"slug"`
	Name         string               `json:"name"`
	Description  string               `json:"description,omitempty"`
	Address      string               `json:"address,omitempty"`
	MapURL       string               `json:"map_url,omitempty"`
	BusinessType string               `json:"business_type,omitempty"`
	ContactEmail string               `json:"contact_email,omitempty"`
	Timezone     string               `json:"timezone,omitempty"`
	Services     []knowledge.Service  `json:"services,omitempty"`
	FAQ          []knowledge.FAQEntry `json:"faq,omitempty"`
	Hours        Hours                `json:"hours,omitempty"`
	Rules        Rules                `json:"rules,omitempty"`
	CreatedAt    time.Time            `json:"created_at,omitempty"`
	UpdatedAt    time.Time            `json:"updated_at,omitempty"`
}

// UpsertRequest is the admin request body for creating or replacing a
// record. The slug comes from the URL, never from the body.
type UpsertRequest struct {
	Name         string               `json:"name"`
	Description  string               `json:"description,omitempty"`
	Address      string               `json:"address,omitempty"`
	MapURL       string               `json:"map_url,omitempty"`
	BusinessType string               `json:"business_type,omitempty"`
	ContactEmail string               `json:"contact_email,omitempty"`
	Timezone     string               `json:"timezone,omitempty"`
	Services     []knowledge.Service  `json:"services,omitempty"`
	FAQ          []knowledge.FAQEntry `json:"faq,omitempty"`
	Hours        Hours                `json:"hours,omitempty"`
	Rules        Rules                `json:"rules,omitempty"`
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,62}[a-z0-9])?$`)

// ValidateSlug checks the slug shape used in URLs and as the primary key.
func ValidateSlug(slug string) error {
	if !slugPattern.MatchString(slug) {
		return ErrInvalidSlug
	}
	return nil
}

// Validate checks the request before any state mutation.
func (r *UpsertRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrMissingName
	}
	if email := strings.TrimSpace(r.ContactEmail); email != "" && !strings.Contains(email, "@") {
		return ErrInvalidEmail
	}
	if tz := strings.TrimSpace(r.Timezone); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			return ErrInvalidTimezone
		}
	}
	return nil
}

// Record builds the Business for the given slug. Timestamps are left to
// the repository.
func (r *UpsertRequest) Record(slug string) *Business {
	return &Business{
		Slug:         slug,
		Name:         strings.TrimSpace(r.Name),
		Description:  r.Description,
		Address:      r.Address,
		MapURL:       r.MapURL,
		BusinessType: r.BusinessType,
		ContactEmail: strings.TrimSpace(r.ContactEmail),
		Timezone:     r.Timezone,
		Services:     r.Services,
		FAQ:          r.FAQ,
		Hours:        r.Hours,
		Rules:        r.Rules,
	}
}

// PublicView is the projection served on the unauthenticated read:
// no contact email, no rules.
type PublicView struct {
	Slug         string               `json:"slug"`
	Name         string               `json:"name"`
	Description  string               `json:"description,omitempty"`
	Address      string               `json:"address,omitempty"`
	MapURL       string               `json:"map_url,omitempty"`
	BusinessType string               `json:"business_type,omitempty"`
	Timezone     string               `json:"timezone,omitempty"`
	Services     []knowledge.Service  `json:"services,omitempty"`
	FAQ          []knowledge.FAQEntry `json:"faq,omitempty"`
	Hours        Hours                `json:"hours,omitempty"`
}

// Public projects the record for the unauthenticated read, synthesizing a
// map URL from the address when none is stored.
func (b *Business) Public() *PublicView {
	mapURL := b.MapURL
	if mapURL == "" && strings.TrimSpace(b.Address) != "" {
		mapURL = "https://www.google.com/maps/search/?api=1&query=" + url.QueryEscape(b.Address)
	}
	return &PublicView{
		Slug:         b.Slug,
		Name:         b.Name,
		Description:  b.Description,
		Address:      b.Address,
		MapURL:       mapURL,
		BusinessType: b.BusinessType,
		Timezone:     b.Timezone,
		Services:     b.Services,
		FAQ:          b.FAQ,
		Hours:        b.Hours,
	}
}

// KnowledgeBase projects the record into the snapshot the dialogue engine
// consumes.
func (b *Business) KnowledgeBase() *knowledge.KnowledgeBase {
	return &knowledge.KnowledgeBase{
		BusinessName: b.Name,
		BusinessType: b.BusinessType,
		Timezone:     b.Timezone,
		HoursText:    b.Hours.Text,
		Services:     b.Services,
		FAQ:          b.FAQ,
		ContactEmail: b.ContactEmail,
	}
}
