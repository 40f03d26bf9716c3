// Package chat implements the widget conversation flow: intent
// classification, deterministic text extraction, and the slot-filling
// booking dialogue that ends in an email to the business.
package chat

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/vitrineapp/vitrine-ai-platform/internal/knowledge"
	"github.com/vitrineapp/vitrine-ai-platform/internal/observability/metrics"
	"github.com/vitrineapp/vitrine-ai-platform/pkg/logging"
)

var engineTracer = otel.Tracer("vitrine.internal.chat.engine")

var (
	// ErrMissingField rejects a message without the required fields before
	// any state is touched.
	ErrMissingField = errors.New("chat: business_slug and message are required")
	// ErrDispatchFailed wraps a notification send failure. The session is
	// preserved so the customer can confirm again.
	ErrDispatchFailed = errors.New("chat: booking dispatch failed")
)

// MessageRequest is one inbound widget message.
type MessageRequest struct {
	BusinessSlug string                   `json:"business_slug"`
	SessionID    string                   `json:"session_id,omitempty"`
	Message      string                   `json:"message"`
	KB           *knowledge.KnowledgeBase `json:"kb,omitempty"`
}

// Reply is the text shown in the widget.
type Reply struct {
	Text string `json:"text"`
}

// MessageResponse carries the reply and the session id the widget must echo
// back on the next message.
type MessageResponse struct {
	SessionID string `json:"session_id"`
	Reply     Reply  `json:"reply"`
}

// Booking is a confirmed appointment request, handed to the dispatcher and
// the recorder once the customer says yes.
type Booking struct {
	BusinessSlug string `json:"business_slug"`
	BusinessName string `json:"business_name"`
	ContactEmail string `json:"contact_email"`
	Service      string `json:"service"`
	Date         string `json:"date"`
	Time         string `json:"time"`
	SessionID    string `json:"session_id"`
}

// Dispatcher sends the booking notification to the business. A returned
// error means the business was NOT notified.
type Dispatcher interface {
	DispatchBooking(ctx context.Context, booking Booking) error
}

// Recorder keeps a trace of dispatched bookings (log table, archive).
// Recorder failures never reach the customer: the email already went out.
type Recorder interface {
	RecordBooking(ctx context.Context, booking Booking) error
}

// KnowledgeResolver produces the effective knowledge base for a request.
type KnowledgeResolver interface {
	Resolve(ctx context.Context, slug string, payload *knowledge.KnowledgeBase) *knowledge.KnowledgeBase
}

// slotRule drives the question order: the first unfilled slot asks its
// question. Service, then date, then time.
type slotRule struct {
	name   string
	filled func(*State) bool
	prompt func(*knowledge.KnowledgeBase) string
}

var slotRules = []slotRule{
	{
		name:   "service",
		filled: func(s *State) bool { return s.Service != "" },
		prompt: servicePrompt,
	},
	{
		name:   "date",
		filled: func(s *State) bool { return s.Date != "" },
		prompt: func(*knowledge.KnowledgeBase) string {
			return "Pour quelle date souhaitez-vous venir ? Par exemple « le 15 mars » ou « 2026-03-15 »."
		},
	},
	{
		name:   "time",
		filled: func(s *State) bool { return s.Time != "" },
		prompt: func(*knowledge.KnowledgeBase) string {
			return "À quelle heure souhaitez-vous venir ? Par exemple « 14h30 »."
		},
	},
}

func servicePrompt(kb *knowledge.KnowledgeBase) string {
	names := kb.ServiceNames()
	if len(names) == 0 {
		return "Quelle prestation souhaitez-vous réserver ?"
	}
	return fmt.Sprintf("Quelle prestation souhaitez-vous réserver ? Nous proposons : %s.", strings.Join(names, ", "))
}

func helpText(kb *knowledge.KnowledgeBase) string {
	return fmt.Sprintf("Bonjour ! Je suis l'assistant de %s. Je peux répondre à vos questions (horaires, prestations, tarifs) ou prendre un rendez-vous : dites-moi simplement « je veux réserver ».", kb.DisplayName())
}

func recapText(s *State) string {
	return fmt.Sprintf("Récapitulatif : %s le %s à %s. Confirmez-vous ? (oui / non)", s.Service, s.Date, s.Time)
}

func thanksText(s *State, kb *knowledge.KnowledgeBase) string {
	return fmt.Sprintf("Merci ! Votre demande de rendez-vous (%s le %s à %s) a été transmise à %s. Vous recevrez une confirmation rapidement.", s.Service, s.Date, s.Time, kb.DisplayName())
}

func degradedText(s *State, kb *knowledge.KnowledgeBase) string {
	return fmt.Sprintf("Votre demande est bien notée : %s le %s à %s. %s n'a pas d'adresse de contact configurée ici, merci de les joindre directement pour finaliser le rendez-vous.", s.Service, s.Date, s.Time, kb.DisplayName())
}

// sessionLocks serializes concurrent messages on the same session id so the
// slot merge is a locked read-modify-write. Entries are refcounted and
// removed when the last holder releases, keeping the map bounded by
// in-flight requests rather than by session count.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: make(map[string]*sessionLock)}
}

func (k *sessionLocks) acquire(id string) *sessionLock {
	k.mu.Lock()
	l, ok := k.locks[id]
	if !ok {
		l = &sessionLock{}
		k.locks[id] = l
	}
	l.refs++
	k.mu.Unlock()
	l.mu.Lock()
	return l
}

func (k *sessionLocks) release(id string, l *sessionLock) {
	l.mu.Unlock()
	k.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(k.locks, id)
	}
	k.mu.Unlock()
}

// Engine is the booking dialogue state machine. It owns all writes to the
// session store.
type Engine struct {
	sessions   Store
	classifier Classifier
	resolver   KnowledgeResolver
	dispatcher Dispatcher
	recorder   Recorder
	logger     *logging.Logger
	metrics    *metrics.ChatMetrics
	locks      *sessionLocks
	now        func() time.Time
}

// EngineOption configures optional engine collaborators.
type EngineOption func(*Engine)

// WithRecorder attaches a booking recorder (log table + archive).
func WithRecorder(r Recorder) EngineOption {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithClock overrides the engine clock.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine wires the dialogue engine. sessions, classifier, resolver and
// dispatcher are required.
func NewEngine(sessions Store, classifier Classifier, resolver KnowledgeResolver, dispatcher Dispatcher, logger *logging.Logger, m *metrics.ChatMetrics, opts ...EngineOption) *Engine {
	if sessions == nil {
		panic("chat: session store cannot be nil")
	}
	if classifier == nil {
		panic("chat: classifier cannot be nil")
	}
	if resolver == nil {
		panic("chat: knowledge resolver cannot be nil")
	}
	if dispatcher == nil {
		panic("chat: dispatcher cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	e := &Engine{
		sessions:   sessions,
		classifier: classifier,
		resolver:   resolver,
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    m,
		locks:      newSessionLocks(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// HandleMessage runs one dialogue transition and returns the reply. The
// only error cases are missing required fields and a failed dispatch; every
// other problem degrades into a reply.
func (e *Engine) HandleMessage(ctx context.Context, req MessageRequest) (*MessageResponse, error) {
	if strings.TrimSpace(req.BusinessSlug) == "" || strings.TrimSpace(req.Message) == "" {
		return nil, ErrMissingField
	}

	ctx, span := engineTracer.Start(ctx, "chat.handle_message")
	defer span.End()

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		sessionID = generateSessionID()
	}
	span.SetAttributes(
		attribute.String("vitrine.business_slug", req.BusinessSlug),
		attribute.String("vitrine.session_id", sessionID),
	)

	lock := e.locks.acquire(sessionID)
	defer e.locks.release(sessionID, lock)

	kb := e.resolver.Resolve(ctx, req.BusinessSlug, req.KB)

	state, err := e.sessions.Get(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, ErrSessionNotFound) {
			e.logger.Warn("session load failed, starting fresh", "session_id", sessionID, "error", err)
		}
		state = &State{SessionID: sessionID, CreatedAt: e.now()}
	}

	var (
		text   string
		intent Intent
	)
	if state.InBooking {
		// Booking mode is sticky; the classifier is not consulted again.
		intent = IntentBooking
		text, err = e.advanceBooking(ctx, state, req, Classification{}, kb)
	} else {
		verdict := e.classifier.Classify(ctx, req.Message, kb)
		intent = verdict.Intent
		switch verdict.Intent {
		case IntentBooking:
			state.InBooking = true
			text, err = e.advanceBooking(ctx, state, req, verdict, kb)
		case IntentFAQ:
			if answer, ok := AnswerFAQ(req.Message, kb); ok {
				text = answer
			} else {
				text = helpText(kb)
			}
		default:
			text = helpText(kb)
		}
	}
	if err != nil {
		return nil, err
	}

	e.metrics.ObserveMessage(string(intent), string(state.Stage()))
	return &MessageResponse{SessionID: sessionID, Reply: Reply{Text: text}}, nil
}

// advanceBooking merges extractions into the slot-state and picks the next
// prompt or terminal action. The caller holds the session lock.
func (e *Engine) advanceBooking(ctx context.Context, state *State, req MessageRequest, hints Classification, kb *knowledge.KnowledgeBase) (string, error) {
	e.mergeExtractions(state, req.Message, hints, kb)
	state.UpdatedAt = e.now()

	if !state.Complete() {
		for _, rule := range slotRules {
			if rule.filled(state) {
				continue
			}
			e.putSession(ctx, state)
			return rule.prompt(kb), nil
		}
	}

	if !IsConfirmation(req.Message) {
		e.putSession(ctx, state)
		return recapText(state), nil
	}

	// Confirmed. Without a contact address there is nothing to dispatch:
	// apologize and close the session.
	if !kb.HasContactEmail() {
		e.logger.Info("booking completed without dispatch, no contact email",
			"business_slug", req.BusinessSlug, "session_id", state.SessionID)
		e.metrics.ObserveDispatch("no_contact")
		e.deleteSession(ctx, state.SessionID)
		return degradedText(state, kb), nil
	}

	booking := Booking{
		BusinessSlug: req.BusinessSlug,
		BusinessName: kb.DisplayName(),
		ContactEmail: kb.ContactEmail,
		Service:      state.Service,
		Date:         state.Date,
		Time:         state.Time,
		SessionID:    state.SessionID,
	}
	if err := e.dispatcher.DispatchBooking(ctx, booking); err != nil {
		e.logger.Error("booking dispatch failed", "business_slug", req.BusinessSlug,
			"session_id", state.SessionID, "error", err)
		e.metrics.ObserveDispatch("failure")
		// Keep the session so a retried confirmation can succeed without
		// re-collecting the slots.
		e.putSession(ctx, state)
		return "", fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}
	e.metrics.ObserveDispatch("success")

	if e.recorder != nil {
		if err := e.recorder.RecordBooking(ctx, booking); err != nil {
			e.logger.Warn("booking record failed", "business_slug", req.BusinessSlug,
				"session_id", state.SessionID, "error", err)
		}
	}
	e.deleteSession(ctx, state.SessionID)
	e.logger.Info("booking dispatched", "business_slug", req.BusinessSlug,
		"session_id", state.SessionID, "service", state.Service,
		"date", state.Date, "time", state.Time)
	return thanksText(state, kb), nil
}

// mergeExtractions fills empty slots from the message, then from classifier
// hints. Hints pass through the same deterministic rules before they are
// trusted, and nothing ever clears a filled slot.
func (e *Engine) mergeExtractions(state *State, message string, hints Classification, kb *knowledge.KnowledgeBase) {
	if state.Service == "" && kb != nil {
		if svc, ok := MatchService(message, kb.Services); ok {
			state.Service = svc.Name
		}
	}
	if state.Date == "" {
		if d := ExtractDate(message, e.now()); d != "" {
			state.Date = d
		}
	}
	if state.Time == "" {
		if tm := ExtractTime(message); tm != "" {
			state.Time = tm
		}
	}

	if state.Service == "" && hints.ServiceHint != "" && kb != nil {
		if svc, ok := MatchService(hints.ServiceHint, kb.Services); ok {
			state.Service = svc.Name
		}
	}
	if state.Date == "" && hints.DateHint != "" {
		if d := ExtractDate(hints.DateHint, e.now()); d != "" {
			state.Date = d
		}
	}
	if state.Time == "" && hints.TimeHint != "" {
		if tm := ExtractTime(hints.TimeHint); tm != "" {
			state.Time = tm
		}
	}
}

// putSession persists the state, degrading to a warning on failure: the
// reply still goes out, the customer just may have to repeat themselves.
func (e *Engine) putSession(ctx context.Context, state *State) {
	if err := e.sessions.Put(ctx, state); err != nil {
		e.logger.Warn("session save failed", "session_id", state.SessionID, "error", err)
	}
}

func (e *Engine) deleteSession(ctx context.Context, sessionID string) {
	if err := e.sessions.Delete(ctx, sessionID); err != nil {
		e.logger.Warn("session delete failed", "session_id", sessionID, "error", err)
	}
}

func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return uuid.New().String()
	}
	return hex.EncodeToString(b)
}
