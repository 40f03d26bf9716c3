package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitrineapp/vitrine-ai-platform/internal/knowledge"
)

type staticResolver struct {
	kb *knowledge.KnowledgeBase
}

func (r staticResolver) Resolve(ctx context.Context, slug string, payload *knowledge.KnowledgeBase) *knowledge.KnowledgeBase {
	if payload != nil {
		return payload
	}
	return r.kb
}

// fakeClassifier returns scripted verdicts in order, then IntentOther.
type fakeClassifier struct {
	verdicts []Classification
	calls    int
}

func (f *fakeClassifier) Classify(ctx context.Context, message string, kb *knowledge.KnowledgeBase) Classification {
	i := f.calls
	f.calls++
	if i < len(f.verdicts) {
		return f.verdicts[i]
	}
	return Classification{Intent: IntentOther}
}

type fakeDispatcher struct {
	mu       sync.Mutex
	bookings []Booking
	err      error
}

func (f *fakeDispatcher) DispatchBooking(ctx context.Context, b Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.bookings = append(f.bookings, b)
	return nil
}

func (f *fakeDispatcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.bookings)
}

type fakeRecorder struct {
	bookings []Booking
	err      error
}

func (f *fakeRecorder) RecordBooking(ctx context.Context, b Booking) error {
	if f.err != nil {
		return f.err
	}
	f.bookings = append(f.bookings, b)
	return nil
}

func engineKB() *knowledge.KnowledgeBase {
	return &knowledge.KnowledgeBase{
		BusinessName: "Salon Lumière",
		HoursText:    "du mardi au samedi, 9h-19h",
		ContactEmail: "contact@salon-lumiere.fr",
		Services: []knowledge.Service{
			{Name: "Coupe homme", PriceMinor: 2200, DurationMinutes: 30},
			{Name: "Coupe femme", PriceMinor: 3500},
			{Name: "Coloration", PriceMinor: 5500},
		},
	}
}

func newTestEngine(t *testing.T, kb *knowledge.KnowledgeBase, classifier Classifier, dispatcher Dispatcher, opts ...EngineOption) (*Engine, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	if classifier == nil {
		classifier = &fakeClassifier{}
	}
	if dispatcher == nil {
		dispatcher = &fakeDispatcher{}
	}
	opts = append(opts, WithClock(func() time.Time {
		return time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	}))
	e := NewEngine(store, classifier, staticResolver{kb: kb}, dispatcher, nil, nil, opts...)
	return e, store
}

func send(t *testing.T, e *Engine, sessionID, message string) *MessageResponse {
	t.Helper()
	resp, err := e.HandleMessage(context.Background(), MessageRequest{
		BusinessSlug: "salon-demo",
		SessionID:    sessionID,
		Message:      message,
	})
	require.NoError(t, err)
	require.NotNil(t, resp)
	return resp
}

func TestHandleMessageValidation(t *testing.T) {
	e, _ := newTestEngine(t, engineKB(), nil, nil)

	_, err := e.HandleMessage(context.Background(), MessageRequest{BusinessSlug: "salon-demo"})
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = e.HandleMessage(context.Background(), MessageRequest{Message: "bonjour"})
	assert.ErrorIs(t, err, ErrMissingField)

	_, err = e.HandleMessage(context.Background(), MessageRequest{BusinessSlug: "  ", Message: "bonjour"})
	assert.ErrorIs(t, err, ErrMissingField)
}

func TestHandleMessageGeneratesSessionID(t *testing.T) {
	e, _ := newTestEngine(t, engineKB(), nil, nil)

	resp := send(t, e, "", "bonjour")
	assert.NotEmpty(t, resp.SessionID)

	again := send(t, e, "", "bonjour")
	assert.NotEqual(t, resp.SessionID, again.SessionID)
}

func TestIdleBranchNeverTouchesState(t *testing.T) {
	classifier := &fakeClassifier{verdicts: []Classification{
		{Intent: IntentOther},
		{Intent: IntentFAQ},
	}}
	e, store := newTestEngine(t, engineKB(), classifier, nil)

	resp := send(t, e, "s1", "bonjour")
	assert.Contains(t, resp.Reply.Text, "assistant de Salon Lumière")

	resp = send(t, e, "s1", "quels sont vos horaires ?")
	assert.Contains(t, resp.Reply.Text, "9h-19h")

	_, err := store.Get(context.Background(), "s1")
	assert.ErrorIs(t, err, ErrSessionNotFound, "idle messages must not create sessions")
}

func TestFAQFallsBackToHelpText(t *testing.T) {
	classifier := &fakeClassifier{verdicts: []Classification{{Intent: IntentFAQ}}}
	e, _ := newTestEngine(t, engineKB(), classifier, nil)

	resp := send(t, e, "s1", "peut-on venir avec un chien ?")
	assert.Contains(t, resp.Reply.Text, "je veux réserver")
}

func TestFiveMessageHappyPath(t *testing.T) {
	classifier := &fakeClassifier{verdicts: []Classification{{Intent: IntentBooking}}}
	dispatcher := &fakeDispatcher{}
	recorder := &fakeRecorder{}
	e, store := newTestEngine(t, engineKB(), classifier, dispatcher, WithRecorder(recorder))

	resp := send(t, e, "s1", "je veux réserver")
	assert.Contains(t, resp.Reply.Text, "Quelle prestation")
	assert.Contains(t, resp.Reply.Text, "Coupe homme, Coupe femme, Coloration")

	resp = send(t, e, "s1", "Coupe homme")
	assert.Contains(t, resp.Reply.Text, "quelle date")

	resp = send(t, e, "s1", "le 20 mars")
	assert.Contains(t, resp.Reply.Text, "quelle heure")

	resp = send(t, e, "s1", "14h")
	assert.Contains(t, resp.Reply.Text, "Récapitulatif : Coupe homme le 2026-03-20 à 14:00")
	assert.Contains(t, resp.Reply.Text, "Confirmez-vous")

	resp = send(t, e, "s1", "oui")
	assert.Contains(t, resp.Reply.Text, "Merci")

	require.Len(t, dispatcher.bookings, 1)
	b := dispatcher.bookings[0]
	assert.Equal(t, "salon-demo", b.BusinessSlug)
	assert.Equal(t, "contact@salon-lumiere.fr", b.ContactEmail)
	assert.Equal(t, "Coupe homme", b.Service)
	assert.Equal(t, "2026-03-20", b.Date)
	assert.Equal(t, "14:00", b.Time)

	require.Len(t, recorder.bookings, 1)

	// One classifier call for the opening message, none once in booking.
	assert.Equal(t, 1, classifier.calls)

	_, err := store.Get(context.Background(), "s1")
	assert.ErrorIs(t, err, ErrSessionNotFound, "session must be deleted after dispatch")
}

func TestSingleMessageFillsSeveralSlots(t *testing.T) {
	classifier := &fakeClassifier{verdicts: []Classification{{Intent: IntentBooking}}}
	e, store := newTestEngine(t, engineKB(), classifier, nil)

	resp := send(t, e, "s1", "je veux réserver une Coloration le 20 mars à 14h30")
	assert.Contains(t, resp.Reply.Text, "Récapitulatif : Coloration le 2026-03-20 à 14:30")

	state, err := store.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, state.InBooking)
	assert.Equal(t, "Coloration", state.Service)
}

func TestFillNeverClear(t *testing.T) {
	classifier := &fakeClassifier{verdicts: []Classification{{Intent: IntentBooking}}}
	e, store := newTestEngine(t, engineKB(), classifier, nil)

	send(t, e, "s1", "réserver une coupe homme")
	send(t, e, "s1", "!!!")
	send(t, e, "s1", "euh je sais pas trop")
	send(t, e, "s1", "le 20 mars")
	send(t, e, "s1", "n'importe quoi ###")

	state, err := store.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "Coupe homme", state.Service)
	assert.Equal(t, "2026-03-20", state.Date)
	assert.True(t, state.InBooking)
}

func TestInBookingSticky(t *testing.T) {
	classifier := &fakeClassifier{verdicts: []Classification{{Intent: IntentBooking}}}
	e, store := newTestEngine(t, engineKB(), classifier, nil)

	send(t, e, "s1", "je veux réserver")
	// Messages that would classify as faq or other must not leave booking
	// mode; the classifier is not even consulted.
	send(t, e, "s1", "quels sont vos horaires ?")
	send(t, e, "s1", "bonjour")

	state, err := store.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, state.InBooking)
	assert.Equal(t, 1, classifier.calls)
}

func TestClassifierHintsRevalidated(t *testing.T) {
	classifier := &fakeClassifier{verdicts: []Classification{{
		Intent:      IntentBooking,
		ServiceHint: "une coupe homme je crois",
		DateHint:    "le 20 mars",
		TimeHint:    "plutôt l'après-midi",
	}}}
	e, store := newTestEngine(t, engineKB(), classifier, nil)

	send(t, e, "s1", "je voudrais venir bientôt")

	state, err := store.Get(context.Background(), "s1")
	require.NoError(t, err)
	// Hints that re-parse under the deterministic rules fill the slot.
	assert.Equal(t, "Coupe homme", state.Service)
	assert.Equal(t, "2026-03-20", state.Date)
	// "plutôt l'après-midi" does not parse as a clock time, so the slot
	// stays empty rather than holding model-invented data.
	assert.Empty(t, state.Time)
}

func TestExtractorsWinOverHints(t *testing.T) {
	classifier := &fakeClassifier{verdicts: []Classification{{
		Intent:      IntentBooking,
		ServiceHint: "Coloration",
	}}}
	e, store := newTestEngine(t, engineKB(), classifier, nil)

	send(t, e, "s1", "réserver une coupe femme")

	state, err := store.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "Coupe femme", state.Service)
}

func TestRecapRepeatsUntilConfirmation(t *testing.T) {
	classifier := &fakeClassifier{verdicts: []Classification{{Intent: IntentBooking}}}
	dispatcher := &fakeDispatcher{}
	e, _ := newTestEngine(t, engineKB(), classifier, dispatcher)

	send(t, e, "s1", "réserver coupe homme le 20 mars à 14h")
	resp := send(t, e, "s1", "non attendez")
	assert.Contains(t, resp.Reply.Text, "Récapitulatif")
	resp = send(t, e, "s1", "hmm")
	assert.Contains(t, resp.Reply.Text, "Récapitulatif")
	assert.Zero(t, dispatcher.count())

	resp = send(t, e, "s1", "oui")
	assert.Contains(t, resp.Reply.Text, "Merci")
	assert.Equal(t, 1, dispatcher.count())
}

func TestNoContactEmailDegrades(t *testing.T) {
	kb := engineKB()
	kb.ContactEmail = ""
	classifier := &fakeClassifier{verdicts: []Classification{{Intent: IntentBooking}}}
	dispatcher := &fakeDispatcher{}
	e, store := newTestEngine(t, kb, classifier, dispatcher)

	send(t, e, "s1", "réserver coupe homme le 20 mars à 14h")
	resp := send(t, e, "s1", "oui")

	assert.Contains(t, resp.Reply.Text, "contact")
	assert.Zero(t, dispatcher.count(), "nothing to dispatch without an address")

	_, err := store.Get(context.Background(), "s1")
	assert.ErrorIs(t, err, ErrSessionNotFound, "degraded completion still deletes the session")
}

func TestDispatchFailureKeepsSession(t *testing.T) {
	classifier := &fakeClassifier{verdicts: []Classification{{Intent: IntentBooking}}}
	dispatcher := &fakeDispatcher{err: errors.New("sendgrid: 503")}
	e, store := newTestEngine(t, engineKB(), classifier, dispatcher)

	send(t, e, "s1", "réserver coupe homme le 20 mars à 14h")

	_, err := e.HandleMessage(context.Background(), MessageRequest{
		BusinessSlug: "salon-demo",
		SessionID:    "s1",
		Message:      "oui",
	})
	require.ErrorIs(t, err, ErrDispatchFailed)

	state, err := store.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "Coupe homme", state.Service)
	assert.Equal(t, "2026-03-20", state.Date)
	assert.Equal(t, "14:00", state.Time)

	// The sender recovers; re-confirming succeeds without re-collection.
	dispatcher.mu.Lock()
	dispatcher.err = nil
	dispatcher.mu.Unlock()

	resp := send(t, e, "s1", "oui")
	assert.Contains(t, resp.Reply.Text, "Merci")
	assert.Equal(t, 1, dispatcher.count())
	_, err = store.Get(context.Background(), "s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRecorderFailureDoesNotReachCustomer(t *testing.T) {
	classifier := &fakeClassifier{verdicts: []Classification{{Intent: IntentBooking}}}
	dispatcher := &fakeDispatcher{}
	recorder := &fakeRecorder{err: errors.New("pq: connection refused")}
	e, store := newTestEngine(t, engineKB(), classifier, dispatcher, WithRecorder(recorder))

	send(t, e, "s1", "réserver coupe homme le 20 mars à 14h")
	resp := send(t, e, "s1", "oui")

	assert.Contains(t, resp.Reply.Text, "Merci")
	assert.Equal(t, 1, dispatcher.count())
	_, err := store.Get(context.Background(), "s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestAbsentKnowledgeBaseDegrades(t *testing.T) {
	classifier := &fakeClassifier{verdicts: []Classification{{Intent: IntentOther}}}
	e, _ := newTestEngine(t, nil, classifier, nil)

	resp := send(t, e, "s1", "bonjour")
	assert.Contains(t, resp.Reply.Text, "cet établissement")
}

func TestCallerPayloadKBWins(t *testing.T) {
	classifier := &fakeClassifier{verdicts: []Classification{{Intent: IntentBooking}}}
	e, _ := newTestEngine(t, engineKB(), classifier, nil)

	resp, err := e.HandleMessage(context.Background(), MessageRequest{
		BusinessSlug: "salon-demo",
		SessionID:    "s1",
		Message:      "je veux réserver",
		KB: &knowledge.KnowledgeBase{
			BusinessName: "Barbier du Coin",
			Services:     []knowledge.Service{{Name: "Taille de barbe"}},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, resp.Reply.Text, "Taille de barbe")
}

// failingStore wraps MemoryStore and fails Get once.
type failingStore struct {
	*MemoryStore
	failGets int
}

func (f *failingStore) Get(ctx context.Context, id string) (*State, error) {
	if f.failGets > 0 {
		f.failGets--
		return nil, errors.New("redis: connection refused")
	}
	return f.MemoryStore.Get(ctx, id)
}

func TestSessionLoadFailureStartsFresh(t *testing.T) {
	store := &failingStore{MemoryStore: NewMemoryStore(), failGets: 1}
	classifier := &fakeClassifier{verdicts: []Classification{{Intent: IntentBooking}}}
	e := NewEngine(store, classifier, staticResolver{kb: engineKB()}, &fakeDispatcher{}, nil, nil)

	resp, err := e.HandleMessage(context.Background(), MessageRequest{
		BusinessSlug: "salon-demo",
		SessionID:    "s1",
		Message:      "je veux réserver",
	})
	require.NoError(t, err)
	assert.Contains(t, resp.Reply.Text, "Quelle prestation")
}

func TestConcurrentMessagesSameSessionSerialized(t *testing.T) {
	classifier := &fakeClassifier{verdicts: []Classification{{Intent: IntentBooking}}}
	e, store := newTestEngine(t, engineKB(), classifier, nil)

	send(t, e, "s1", "je veux réserver")

	var wg sync.WaitGroup
	messages := []string{"coupe homme", "le 20 mars", "14h"}
	for _, msg := range messages {
		wg.Add(1)
		go func(m string) {
			defer wg.Done()
			_, err := e.HandleMessage(context.Background(), MessageRequest{
				BusinessSlug: "salon-demo",
				SessionID:    "s1",
				Message:      m,
			})
			assert.NoError(t, err)
		}(msg)
	}
	wg.Wait()

	state, err := store.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "Coupe homme", state.Service)
	assert.Equal(t, "2026-03-20", state.Date)
	assert.Equal(t, "14:00", state.Time)
}
