package chat

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/vitrineapp/vitrine-ai-platform/internal/knowledge"
	"github.com/vitrineapp/vitrine-ai-platform/internal/observability/metrics"
	"github.com/vitrineapp/vitrine-ai-platform/pkg/logging"
)

// Intent is the coarse classification of a customer message.
type Intent string

const (
	IntentBooking Intent = "booking"
	IntentFAQ     Intent = "faq"
	IntentOther   Intent = "other"
)

// Classification is the classifier verdict. Hint fields carry raw text the
// model extracted; they are advisory and must be revalidated through the
// deterministic extractors before touching slot-state.
type Classification struct {
	Intent      Intent
	ServiceHint string
	DateHint    string
	TimeHint    string
}

// Classifier labels a message. Implementations never fail: on any internal
// error they return the safe default IntentOther so the dialogue always has
// a verdict to act on.
type Classifier interface {
	Classify(ctx context.Context, message string, kb *knowledge.KnowledgeBase) Classification
}

const intentPrompt = `Tu classifies le message d'un client pour l'assistant de réservation d'un commerce de proximité.

Réponds avec UN SEUL objet JSON, sans aucun texte autour, de la forme :
{"intent": "...", "service": "...", "date": "...", "time": "..."}

- "intent" : "booking" si le client veut prendre, modifier ou confirmer un rendez-vous ; "faq" s'il pose une question pratique (horaires, prix, prestations, adresse) ; "other" pour tout le reste.
- "service", "date", "time" : recopie le fragment du message qui les mentionne, ou "unknown". N'invente JAMAIS une valeur absente du message : mets "unknown".`

// llmIntentResult mirrors the JSON object the model is instructed to emit.
type llmIntentResult struct {
	Intent  string `json:"intent"`
	Service string `json:"service"`
	Date    string `json:"date"`
	Time    string `json:"time"`
}

// LLMClassifier asks a language model for the intent label. Any failure
// (transport, timeout, malformed output) degrades to IntentOther; the error
// never crosses this boundary.
type LLMClassifier struct {
	llm     LLMClient
	model   string
	timeout time.Duration
	logger  *logging.Logger
	metrics *metrics.ChatMetrics
}

// NewLLMClassifier builds a classifier over the given LLM client. model is
// the id passed to the provider and used as a metric label; timeout bounds
// every call (default 10s).
func NewLLMClassifier(llm LLMClient, model string, timeout time.Duration, m *metrics.ChatMetrics, logger *logging.Logger) *LLMClassifier {
	if llm == nil {
		panic("chat: llm client cannot be nil")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &LLMClassifier{
		llm:     llm,
		model:   model,
		timeout: timeout,
		logger:  logger,
		metrics: m,
	}
}

func (c *LLMClassifier) Classify(ctx context.Context, message string, kb *knowledge.KnowledgeBase) Classification {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	prompt := intentPrompt
	if names := kb.ServiceNames(); len(names) > 0 {
		prompt += "\n\nPrestations connues : " + strings.Join(names, ", ")
	}

	start := time.Now()
	resp, err := c.llm.Complete(ctx, LLMRequest{
		Model:       c.model,
		System:      []string{prompt},
		Messages:    []ChatMessage{{Role: ChatRoleUser, Content: message}},
		MaxTokens:   100,
		Temperature: 0,
	})
	elapsed := time.Since(start)

	if err != nil {
		c.logger.Warn("intent classification degraded", "error", err, "model", c.model)
		c.metrics.ObserveClassifier(c.model, "degraded", elapsed.Seconds())
		return Classification{Intent: IntentOther}
	}

	result, ok := parseIntentJSON(resp.Text)
	if !ok {
		c.logger.Warn("intent classification returned unparseable output", "model", c.model, "output", resp.Text)
		c.metrics.ObserveClassifier(c.model, "unparseable", elapsed.Seconds())
		return Classification{Intent: IntentOther}
	}

	c.metrics.ObserveClassifier(c.model, "ok", elapsed.Seconds())
	return result
}

// parseIntentJSON extracts the outermost JSON object from the model output.
// Models decorate answers with prose or code fences often enough that a bare
// json.Unmarshal is not good enough.
func parseIntentJSON(text string) (Classification, bool) {
	content := strings.TrimSpace(text)
	startIdx := strings.Index(content, "{")
	endIdx := strings.LastIndex(content, "}")
	if startIdx < 0 || endIdx <= startIdx {
		return Classification{}, false
	}
	content = content[startIdx : endIdx+1]

	var result llmIntentResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return Classification{}, false
	}

	out := Classification{
		ServiceHint: dropUnknown(result.Service),
		DateHint:    dropUnknown(result.Date),
		TimeHint:    dropUnknown(result.Time),
	}
	switch Intent(strings.ToLower(strings.TrimSpace(result.Intent))) {
	case IntentBooking:
		out.Intent = IntentBooking
	case IntentFAQ:
		out.Intent = IntentFAQ
	default:
		out.Intent = IntentOther
	}
	return out, true
}

func dropUnknown(v string) string {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, "unknown") {
		return ""
	}
	return v
}

// bookingKeywords flag a booking intent; faqKeywords a practical question.
// Both lists are matched on normalized (lowercased, accent-folded) text.
var (
	bookingKeywords = []string{
		"reserver",
		"reservation",
		"rendez-vous",
		"rendez vous",
		"rdv",
		"creneau",
		"disponibilite",
		"dispo",
		"prendre date",
	}
	faqKeywords = []string{
		"horaire",
		"ouvert",
		"ferme",
		"ouverture",
		"fermeture",
		"prix",
		"tarif",
		"combien",
		"prestation",
		"quels services",
		"vos services",
		"adresse",
		"ou etes-vous",
	}
)

// RuleClassifier labels messages with fixed French keyword lists. It needs
// no configuration and no network, so it is both the zero-config default and
// the first stage of the hybrid classifier.
type RuleClassifier struct{}

func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{}
}

func (c *RuleClassifier) Classify(ctx context.Context, message string, kb *knowledge.KnowledgeBase) Classification {
	normalized := normalizeText(message)

	for _, kw := range bookingKeywords {
		if strings.Contains(normalized, kw) {
			return Classification{Intent: IntentBooking}
		}
	}
	// A message naming a known service is a booking request even without a
	// booking keyword: "une coupe homme svp".
	if kb != nil {
		if _, ok := MatchService(message, kb.Services); ok {
			return Classification{Intent: IntentBooking}
		}
	}
	for _, kw := range faqKeywords {
		if strings.Contains(normalized, kw) {
			return Classification{Intent: IntentFAQ}
		}
	}
	return Classification{Intent: IntentOther}
}

// HybridClassifier consults the rules first and only pays for an LLM call
// when the rules are inconclusive. With no LLM configured it degrades to
// rules alone.
type HybridClassifier struct {
	rules *RuleClassifier
	llm   Classifier
}

func NewHybridClassifier(rules *RuleClassifier, llm Classifier) *HybridClassifier {
	if rules == nil {
		rules = NewRuleClassifier()
	}
	return &HybridClassifier{rules: rules, llm: llm}
}

func (c *HybridClassifier) Classify(ctx context.Context, message string, kb *knowledge.KnowledgeBase) Classification {
	verdict := c.rules.Classify(ctx, message, kb)
	if verdict.Intent != IntentOther || c.llm == nil {
		return verdict
	}
	return c.llm.Classify(ctx, message, kb)
}
