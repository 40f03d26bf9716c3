package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/vitrineapp/vitrine-ai-platform/internal/chat"
	appconfig "github.com/vitrineapp/vitrine-ai-platform/internal/config"
	"github.com/vitrineapp/vitrine-ai-platform/internal/observability/metrics"
	"github.com/vitrineapp/vitrine-ai-platform/pkg/logging"
)

// BuildClassifier assembles the intent classifier tier: keyword rules first,
// an optional LLM consulted only when the rules are inconclusive. With both
// Gemini and Bedrock configured, Gemini is primary and Bedrock the fallback.
// The returned func releases provider clients.
func BuildClassifier(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config, m *metrics.ChatMetrics, logger *logging.Logger) (chat.Classifier, func(), error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	rules := chat.NewRuleClassifier()
	cleanup := func() {}

	var gemini *chat.GeminiLLMClient
	if strings.TrimSpace(cfg.GeminiAPIKey) != "" {
		client, err := chat.NewGeminiLLMClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: gemini client: %w", err)
		}
		gemini = client
		cleanup = func() { _ = client.Close() }
	}

	var bedrock *chat.BedrockLLMClient
	if strings.TrimSpace(cfg.BedrockModelID) != "" {
		bedrock = chat.NewBedrockLLMClient(bedrockruntime.NewFromConfig(awsCfg))
	}

	var llm chat.LLMClient
	var model string
	switch {
	case gemini != nil && bedrock != nil:
		// Bedrock reads the model id from the request while Gemini carries
		// its own, so the chain has to advertise the Bedrock id.
		llm = chat.NewFallbackLLMClient(gemini, bedrock, logger)
		model = cfg.BedrockModelID
		logger.Info("intent classifier using gemini with bedrock fallback",
			"gemini_model", gemini.Model(),
			"bedrock_model", cfg.BedrockModelID,
		)
	case gemini != nil:
		llm = gemini
		model = gemini.Model()
		logger.Info("intent classifier using gemini", "model", model)
	case bedrock != nil:
		llm = bedrock
		model = cfg.BedrockModelID
		logger.Info("intent classifier using bedrock", "model", model)
	default:
		logger.Info("no llm configured; intent classification uses keyword rules only")
		return chat.NewHybridClassifier(rules, nil), cleanup, nil
	}

	llmClassifier := chat.NewLLMClassifier(llm, model, cfg.ClassifierTimeout, m, logger)
	return chat.NewHybridClassifier(rules, llmClassifier), cleanup, nil
}
