// Package notify turns a confirmed booking into an email to the business.
// It never retries: the dialogue engine keeps the session alive on failure
// so the customer can confirm again.
package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"time"

	"github.com/vitrineapp/vitrine-ai-platform/internal/chat"
	"github.com/vitrineapp/vitrine-ai-platform/pkg/logging"
)

const defaultDispatchTimeout = 15 * time.Second

// Service formats booking notifications and submits them to the configured
// email sender within a bounded time.
type Service struct {
	sender  EmailSender
	timeout time.Duration
	logger  *logging.Logger
}

// NewService wires a dispatch service around sender. timeout bounds every
// send (default 15s).
func NewService(sender EmailSender, timeout time.Duration, logger *logging.Logger) *Service {
	if sender == nil {
		panic("notify: email sender cannot be nil")
	}
	if timeout <= 0 {
		timeout = defaultDispatchTimeout
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		sender:  sender,
		timeout: timeout,
		logger:  logger,
	}
}

var _ chat.Dispatcher = (*Service)(nil)

// DispatchBooking emails the booking summary to the business contact
// address. A returned error means the business was not notified.
func (s *Service) DispatchBooking(ctx context.Context, booking chat.Booking) error {
	if booking.ContactEmail == "" {
		return &DispatchError{Err: errors.New("booking has no contact email")}
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	msg := EmailMessage{
		To:      booking.ContactEmail,
		ToName:  booking.BusinessName,
		Subject: bookingSubject(booking),
		Body:    bookingBody(booking),
		HTML:    bookingHTML(booking),
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: booking dispatch failed: %w", err)
	}

	s.logger.Info("booking notification dispatched",
		"business_slug", booking.BusinessSlug,
		"to", booking.ContactEmail,
		"service", booking.Service,
		"date", booking.Date,
		"time", booking.Time,
	)
	return nil
}

func bookingSubject(b chat.Booking) string {
	return fmt.Sprintf("Nouvelle demande de rendez-vous : %s le %s à %s", b.Service, b.Date, b.Time)
}

func bookingBody(b chat.Booking) string {
	return fmt.Sprintf(`Bonjour %s,

Un client souhaite prendre rendez-vous via votre site :

  Prestation : %s
  Date : %s
  Heure : %s

Référence de conversation : %s

Merci de confirmer le rendez-vous directement auprès du client.

L'équipe Vitrine`, b.BusinessName, b.Service, b.Date, b.Time, b.SessionID)
}

func bookingHTML(b chat.Booking) string {
	row := func(label, value string) string {
		return fmt.Sprintf(`<tr><td style="padding:8px;border-bottom:1px solid #e5e7eb;"><strong>%s</strong></td><td style="padding:8px;border-bottom:1px solid #e5e7eb;">%s</td></tr>`, label, html.EscapeString(value))
	}
	return fmt.Sprintf(`<div style="font-family:sans-serif;max-width:600px;">
<h2 style="color:#4f46e5;">Nouvelle demande de rendez-vous</h2>
<p>Bonjour %s, un client souhaite prendre rendez-vous via votre site :</p>
<table style="border-collapse:collapse;margin:20px 0;">
%s%s%s
</table>
<p style="color:#6b7280;font-size:12px;">Référence de conversation : %s</p>
<p style="color:#6b7280;font-size:12px;">Merci de confirmer le rendez-vous directement auprès du client.</p>
<p style="color:#6b7280;font-size:12px;">L'équipe Vitrine</p>
</div>`,
		html.EscapeString(b.BusinessName),
		row("Prestation", b.Service),
		row("Date", b.Date),
		row("Heure", b.Time),
		html.EscapeString(b.SessionID),
	)
}
