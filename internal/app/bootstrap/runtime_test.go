package bootstrap

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/vitrineapp/vitrine-ai-platform/internal/business"
	"github.com/vitrineapp/vitrine-ai-platform/internal/chat"
	appconfig "github.com/vitrineapp/vitrine-ai-platform/internal/config"
	"github.com/vitrineapp/vitrine-ai-platform/pkg/logging"
)

func TestBuildSessionStoreDefaultsToMemory(t *testing.T) {
	cfg := &appconfig.Config{SessionBackend: "memory"}

	store := BuildSessionStore(context.Background(), cfg, aws.Config{}, logging.New("error", "text"))
	if _, ok := store.(*chat.MemoryStore); !ok {
		t.Fatalf("expected MemoryStore, got %T", store)
	}
}

func TestBuildSessionStoreUnknownBackendFallsBack(t *testing.T) {
	cfg := &appconfig.Config{SessionBackend: "etcd"}

	store := BuildSessionStore(context.Background(), cfg, aws.Config{}, logging.New("error", "text"))
	if _, ok := store.(*chat.MemoryStore); !ok {
		t.Fatalf("expected MemoryStore for unknown backend, got %T", store)
	}
}

func TestBuildSessionStoreRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &appconfig.Config{SessionBackend: "redis", RedisAddr: mr.Addr()}

	store := BuildSessionStore(context.Background(), cfg, aws.Config{}, logging.New("error", "text"))
	if _, ok := store.(*chat.RedisStore); !ok {
		t.Fatalf("expected RedisStore, got %T", store)
	}
}

func TestBuildSessionStoreRedisUnreachableFallsBack(t *testing.T) {
	cfg := &appconfig.Config{SessionBackend: "redis", RedisAddr: "127.0.0.1:1"}

	store := BuildSessionStore(context.Background(), cfg, aws.Config{}, logging.New("error", "text"))
	if _, ok := store.(*chat.MemoryStore); !ok {
		t.Fatalf("expected fallback to MemoryStore, got %T", store)
	}
}

func TestBuildSessionStoreDynamo(t *testing.T) {
	cfg := &appconfig.Config{SessionBackend: "dynamodb", SessionTableName: "chat_sessions"}

	store := BuildSessionStore(context.Background(), cfg, aws.Config{Region: "eu-west-3"}, logging.New("error", "text"))
	if _, ok := store.(*chat.DynamoStore); !ok {
		t.Fatalf("expected DynamoStore, got %T", store)
	}
}

func TestBuildSessionStoreDynamoWithoutTableFallsBack(t *testing.T) {
	cfg := &appconfig.Config{SessionBackend: "dynamodb"}

	store := BuildSessionStore(context.Background(), cfg, aws.Config{}, logging.New("error", "text"))
	if _, ok := store.(*chat.MemoryStore); !ok {
		t.Fatalf("expected MemoryStore without a table name, got %T", store)
	}
}

func TestBuildBusinessRepositoryWithoutDatabase(t *testing.T) {
	cfg := &appconfig.Config{}

	repo, cleanup, err := BuildBusinessRepository(context.Background(), cfg, logging.New("error", "text"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cleanup()
	if _, ok := repo.(*business.InMemoryRepository); !ok {
		t.Fatalf("expected InMemoryRepository, got %T", repo)
	}
}

func TestBuildBookingLogWithoutDatabase(t *testing.T) {
	cfg := &appconfig.Config{}

	store, cleanup, err := BuildBookingLog(context.Background(), cfg, logging.New("error", "text"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer cleanup()
	if store != nil {
		t.Fatalf("expected nil booking log without a database, got %T", store)
	}
}

func TestBuildKnowledgeResolverAliasesDefaultSlug(t *testing.T) {
	cfg := &appconfig.Config{DefaultBusiness: "mon-salon"}

	resolver := BuildKnowledgeResolver(cfg, business.NewInMemoryRepository(), logging.New("error", "text"))
	kb := resolver.Resolve(context.Background(), "mon-salon", nil)
	if kb == nil {
		t.Fatalf("expected the default salon under the configured slug")
	}
	if kb.BusinessName != "Salon Lumière" {
		t.Fatalf("expected demo salon, got %q", kb.BusinessName)
	}
}

func TestBuildKnowledgeResolverKeepsBuiltinSlugs(t *testing.T) {
	resolver := BuildKnowledgeResolver(&appconfig.Config{DefaultBusiness: "salon-demo"}, nil, logging.New("error", "text"))

	if kb := resolver.Resolve(context.Background(), "bistro-demo", nil); kb == nil {
		t.Fatalf("expected the bistro demo entry to survive aliasing")
	}
}
