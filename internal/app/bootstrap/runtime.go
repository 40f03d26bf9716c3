// Package bootstrap assembles the configurable collaborators of the chat
// service: session store, business records, booking log, intent classifier
// and email sender. Every builder degrades to a local stand-in when its
// backend is not configured, so a bare binary still serves the demo catalog.
package bootstrap

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/vitrineapp/vitrine-ai-platform/internal/bookings"
	"github.com/vitrineapp/vitrine-ai-platform/internal/business"
	"github.com/vitrineapp/vitrine-ai-platform/internal/chat"
	appconfig "github.com/vitrineapp/vitrine-ai-platform/internal/config"
	"github.com/vitrineapp/vitrine-ai-platform/internal/knowledge"
	"github.com/vitrineapp/vitrine-ai-platform/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "error", err)
		return nil
	}
	return client
}

// BuildSessionStore selects the session backend named by config. An
// unreachable or half-configured backend falls back to the in-process store
// with a warning rather than refusing to boot.
func BuildSessionStore(ctx context.Context, cfg *appconfig.Config, awsCfg aws.Config, logger *logging.Logger) chat.Store {
	if logger == nil {
		logger = logging.Default()
	}

	backend := "memory"
	if cfg != nil && cfg.SessionBackend != "" {
		backend = cfg.SessionBackend
	}

	switch backend {
	case "redis":
		client := BuildRedisClient(ctx, cfg, logger, true)
		if client == nil {
			logger.Warn("redis session backend unavailable; sessions are in-memory")
			return chat.NewMemoryStore()
		}
		logger.Info("session store ready", "backend", "redis", "addr", cfg.RedisAddr)
		return chat.NewRedisStore(client, nil)
	case "dynamodb":
		table := strings.TrimSpace(cfg.SessionTableName)
		if table == "" {
			logger.Warn("dynamodb session backend has no table name; sessions are in-memory")
			return chat.NewMemoryStore()
		}
		logger.Info("session store ready", "backend", "dynamodb", "table", table)
		return chat.NewDynamoStore(dynamodb.NewFromConfig(awsCfg), table)
	case "memory":
	default:
		logger.Warn("unknown session backend; sessions are in-memory", "backend", backend)
	}
	return chat.NewMemoryStore()
}

// BuildBusinessRepository returns the business record store: Postgres when a
// database is configured, in-memory otherwise. The returned func closes the
// pool and is always safe to call.
func BuildBusinessRepository(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (business.Repository, func(), error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil || strings.TrimSpace(cfg.DatabaseURL) == "" {
		logger.Info("no database configured; business records are in-memory")
		return business.NewInMemoryRepository(), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("bootstrap: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
	}
	logger.Info("business records stored in postgres")
	return business.NewPostgresRepository(pool), pool.Close, nil
}

// BuildBookingLog opens the booking log over database/sql. A nil store (no
// database configured) disables the recorder and the admin stats routes.
func BuildBookingLog(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*bookings.Store, func(), error) {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg == nil || strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("bootstrap: open booking log: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("bootstrap: ping booking log: %w", err)
	}
	logger.Info("booking log stored in postgres")
	return bookings.NewStore(db), func() { _ = db.Close() }, nil
}

// BuildKnowledgeResolver layers stored business records over the built-in
// demo catalog. The configured default slug is aliased onto the demo salon
// so a fresh install can try the widget under its own name.
func BuildKnowledgeResolver(cfg *appconfig.Config, repo business.Repository, logger *logging.Logger) *knowledge.Resolver {
	defaults := knowledge.DefaultCatalog()
	if cfg != nil {
		if slug := strings.TrimSpace(cfg.DefaultBusiness); slug != "" {
			if _, ok := defaults[slug]; !ok {
				defaults[slug] = defaults["salon-demo"]
			}
		}
	}

	var source knowledge.Source
	if repo != nil {
		source = business.NewKnowledgeSource(repo)
	}
	return knowledge.NewResolver(source, defaults, logger)
}
