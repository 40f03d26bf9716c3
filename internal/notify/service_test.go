package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitrineapp/vitrine-ai-platform/internal/chat"
)

type captureSender struct {
	sent []EmailMessage
	err  error
}

func (c *captureSender) Send(ctx context.Context, msg EmailMessage) error {
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, msg)
	return nil
}

func sampleBooking() chat.Booking {
	return chat.Booking{
		BusinessSlug: "salon-demo",
		BusinessName: "Salon Lumière",
		ContactEmail: "patron@salon-lumiere.fr",
		Service:      "Coupe homme",
		Date:         "2026-03-20",
		Time:         "14:00",
		SessionID:    "abc123",
	}
}

func TestDispatchBookingFormatsFrenchSummary(t *testing.T) {
	sender := &captureSender{}
	svc := NewService(sender, 0, nil)

	require.NoError(t, svc.DispatchBooking(context.Background(), sampleBooking()))
	require.Len(t, sender.sent, 1)

	msg := sender.sent[0]
	assert.Equal(t, "patron@salon-lumiere.fr", msg.To)
	assert.Equal(t, "Salon Lumière", msg.ToName)
	assert.Equal(t, "Nouvelle demande de rendez-vous : Coupe homme le 2026-03-20 à 14:00", msg.Subject)

	assert.Contains(t, msg.Body, "Bonjour Salon Lumière")
	assert.Contains(t, msg.Body, "Prestation : Coupe homme")
	assert.Contains(t, msg.Body, "Date : 2026-03-20")
	assert.Contains(t, msg.Body, "Heure : 14:00")
	assert.Contains(t, msg.Body, "abc123")

	assert.Contains(t, msg.HTML, "<strong>Prestation</strong>")
	assert.Contains(t, msg.HTML, "Coupe homme")
}

func TestDispatchBookingHTMLEscapes(t *testing.T) {
	sender := &captureSender{}
	svc := NewService(sender, 0, nil)

	b := sampleBooking()
	b.BusinessName = `Salon "A&B" <test>`
	require.NoError(t, svc.DispatchBooking(context.Background(), b))

	require.Len(t, sender.sent, 1)
	assert.NotContains(t, sender.sent[0].HTML, "<test>")
	assert.Contains(t, sender.sent[0].HTML, "&amp;")
}

func TestDispatchBookingPropagatesSenderError(t *testing.T) {
	sender := &captureSender{err: &DispatchError{StatusCode: 503, Body: "service unavailable"}}
	svc := NewService(sender, 0, nil)

	err := svc.DispatchBooking(context.Background(), sampleBooking())
	require.Error(t, err)

	var dispatchErr *DispatchError
	require.ErrorAs(t, err, &dispatchErr)
	assert.Equal(t, 503, dispatchErr.StatusCode)
	assert.Equal(t, "service unavailable", dispatchErr.Body)
}

func TestDispatchBookingRejectsMissingContact(t *testing.T) {
	sender := &captureSender{}
	svc := NewService(sender, 0, nil)

	b := sampleBooking()
	b.ContactEmail = ""
	err := svc.DispatchBooking(context.Background(), b)
	require.Error(t, err)
	assert.Empty(t, sender.sent)
}

func TestDispatchBookingBoundedBySenderTimeout(t *testing.T) {
	done := make(chan struct{})
	sender := senderFunc(func(ctx context.Context, msg EmailMessage) error {
		defer close(done)
		deadline, ok := ctx.Deadline()
		assert.True(t, ok, "dispatch context must carry a deadline")
		assert.WithinDuration(t, time.Now().Add(50*time.Millisecond), deadline, 40*time.Millisecond)
		return nil
	})
	svc := NewService(sender, 50*time.Millisecond, nil)

	require.NoError(t, svc.DispatchBooking(context.Background(), sampleBooking()))
	<-done
}

type senderFunc func(ctx context.Context, msg EmailMessage) error

func (f senderFunc) Send(ctx context.Context, msg EmailMessage) error {
	return f(ctx, msg)
}
