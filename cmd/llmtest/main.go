package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/vitrineapp/vitrine-ai-platform/internal/chat"
	appconfig "github.com/vitrineapp/vitrine-ai-platform/internal/config"
	"github.com/vitrineapp/vitrine-ai-platform/internal/knowledge"
	"github.com/vitrineapp/vitrine-ai-platform/pkg/logging"
)

// Manual smoke test for the LLM intent classifier. Run with a real
// GEMINI_API_KEY; it sends a handful of French customer messages through the
// live model and prints the verdicts.
func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	cfg := appconfig.Load()
	logger := logging.New("info", "text")

	line := strings.Repeat("=", 60)
	fmt.Println(line)
	fmt.Println("Intent Classifier Test")
	fmt.Println(line)

	geminiKey := os.Getenv("GEMINI_API_KEY")
	if geminiKey == "" {
		fmt.Println("\nGEMINI_API_KEY not set; nothing to test.")
		fmt.Println("The service itself runs fine without it: the keyword rules")
		fmt.Println("handle classification and the LLM tier stays disabled.")
		return
	}

	client, err := chat.NewGeminiLLMClient(ctx, geminiKey, cfg.GeminiModel)
	if err != nil {
		log.Fatalf("create gemini client: %v", err)
	}
	defer func() { _ = client.Close() }()

	classifier := chat.NewLLMClassifier(client, client.Model(), cfg.ClassifierTimeout, nil, logger)
	kb := knowledge.DefaultCatalog()["salon-demo"]

	messages := []string{
		"je veux réserver une coupe homme demain à 14h",
		"vous êtes ouverts le dimanche ?",
		"est-ce que je peux venir avec mon chien ?",
	}

	for i, msg := range messages {
		fmt.Printf("\n[%d] %q\n", i+1, msg)
		start := time.Now()
		verdict := classifier.Classify(ctx, msg, kb)
		elapsed := time.Since(start).Round(time.Millisecond)

		fmt.Printf("    ✅ intent=%s (%v)\n", verdict.Intent, elapsed)
		if verdict.ServiceHint != "" {
			fmt.Printf("       service hint: %q\n", verdict.ServiceHint)
		}
		if verdict.DateHint != "" {
			fmt.Printf("       date hint:    %q\n", verdict.DateHint)
		}
		if verdict.TimeHint != "" {
			fmt.Printf("       time hint:    %q\n", verdict.TimeHint)
		}
	}

	fmt.Println("\n" + line)
	fmt.Println("A degraded call prints intent=other with a warn log above.")
	fmt.Println("Set BEDROCK_MODEL_ID to exercise the fallback chain in the")
	fmt.Println("running service; this tool only talks to the primary.")
}
