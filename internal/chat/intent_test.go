package chat

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vitrineapp/vitrine-ai-platform/internal/knowledge"
)

// scriptedLLMClient returns canned responses (or errors) in order.
type scriptedLLMClient struct {
	responses []LLMResponse
	errs      []error
	calls     int
}

func (s *scriptedLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	i := s.calls
	s.calls++
	var resp LLMResponse
	if i < len(s.responses) {
		resp = s.responses[i]
	}
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	return resp, err
}

func testKB() *knowledge.KnowledgeBase {
	return &knowledge.KnowledgeBase{
		BusinessName: "Salon Lumière",
		Services: []knowledge.Service{
			{Name: "Coupe homme", PriceMinor: 2200},
			{Name: "Coloration", PriceMinor: 5500},
		},
	}
}

func TestLLMClassifierParsesStrictJSON(t *testing.T) {
	llm := &scriptedLLMClient{responses: []LLMResponse{
		{Text: `{"intent": "booking", "service": "coupe homme", "date": "demain", "time": "unknown"}`},
	}}
	c := NewLLMClassifier(llm, "test-model", 0, nil, nil)

	got := c.Classify(context.Background(), "je veux une coupe homme demain", testKB())
	assert.Equal(t, IntentBooking, got.Intent)
	assert.Equal(t, "coupe homme", got.ServiceHint)
	assert.Equal(t, "demain", got.DateHint)
	assert.Empty(t, got.TimeHint)
}

func TestLLMClassifierStripsDecoration(t *testing.T) {
	llm := &scriptedLLMClient{responses: []LLMResponse{
		{Text: "Voici la classification :\n```json\n{\"intent\": \"faq\", \"service\": \"unknown\", \"date\": \"unknown\", \"time\": \"unknown\"}\n```"},
	}}
	c := NewLLMClassifier(llm, "test-model", 0, nil, nil)

	got := c.Classify(context.Background(), "quels sont vos horaires ?", testKB())
	assert.Equal(t, IntentFAQ, got.Intent)
}

func TestLLMClassifierTransportFailureDegrades(t *testing.T) {
	llm := &scriptedLLMClient{errs: []error{errors.New("connection reset")}}
	c := NewLLMClassifier(llm, "test-model", 0, nil, nil)

	got := c.Classify(context.Background(), "n'importe quoi", testKB())
	assert.Equal(t, IntentOther, got.Intent)
}

func TestLLMClassifierMalformedOutputDegrades(t *testing.T) {
	tests := []struct {
		name   string
		output string
	}{
		{"prose", "Je ne peux pas classifier ce message."},
		{"truncated json", `{"intent": "book`},
		{"empty", ""},
		{"unknown intent label", `{"intent": "greeting"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &scriptedLLMClient{responses: []LLMResponse{{Text: tt.output}}}
			c := NewLLMClassifier(llm, "test-model", 0, nil, nil)

			got := c.Classify(context.Background(), "bonjour", testKB())
			assert.Equal(t, IntentOther, got.Intent)
		})
	}
}

func TestRuleClassifier(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    Intent
	}{
		{"reserver", "je veux réserver", IntentBooking},
		{"rdv", "un RDV pour demain", IntentBooking},
		{"rendez-vous", "prendre rendez-vous svp", IntentBooking},
		{"creneau", "un créneau jeudi", IntentBooking},
		{"service name alone", "une coloration", IntentBooking},
		{"horaires", "quels sont vos horaires ?", IntentFAQ},
		{"prix", "quel est le prix ?", IntentFAQ},
		{"tarif", "vos tarifs ?", IntentFAQ},
		{"ouvert", "vous êtes ouverts dimanche ?", IntentFAQ},
		{"greeting", "bonjour !", IntentOther},
		{"empty", "", IntentOther},
	}
	c := NewRuleClassifier()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(context.Background(), tt.message, testKB())
			assert.Equal(t, tt.want, got.Intent)
		})
	}
}

func TestRuleClassifierNilKB(t *testing.T) {
	c := NewRuleClassifier()
	got := c.Classify(context.Background(), "réserver une table", nil)
	assert.Equal(t, IntentBooking, got.Intent)
}

func TestHybridClassifierRulesFirst(t *testing.T) {
	llm := &scriptedLLMClient{responses: []LLMResponse{
		{Text: `{"intent": "other"}`},
	}}
	c := NewHybridClassifier(NewRuleClassifier(), NewLLMClassifier(llm, "test-model", 0, nil, nil))

	got := c.Classify(context.Background(), "je veux réserver", testKB())
	assert.Equal(t, IntentBooking, got.Intent)
	assert.Zero(t, llm.calls, "rules verdict must short-circuit the LLM")
}

func TestHybridClassifierFallsThroughToLLM(t *testing.T) {
	llm := &scriptedLLMClient{responses: []LLMResponse{
		{Text: `{"intent": "booking", "service": "unknown", "date": "unknown", "time": "unknown"}`},
	}}
	c := NewHybridClassifier(NewRuleClassifier(), NewLLMClassifier(llm, "test-model", 0, nil, nil))

	got := c.Classify(context.Background(), "on peut se voir bientôt ?", testKB())
	assert.Equal(t, IntentBooking, got.Intent)
	assert.Equal(t, 1, llm.calls)
}

func TestHybridClassifierWithoutLLM(t *testing.T) {
	c := NewHybridClassifier(NewRuleClassifier(), nil)
	got := c.Classify(context.Background(), "on peut se voir bientôt ?", testKB())
	assert.Equal(t, IntentOther, got.Intent)
}
