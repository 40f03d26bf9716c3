package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vitrineapp/vitrine-ai-platform/cmd/mainconfig"
	"github.com/vitrineapp/vitrine-ai-platform/internal/api/router"
	appbootstrap "github.com/vitrineapp/vitrine-ai-platform/internal/app/bootstrap"
	"github.com/vitrineapp/vitrine-ai-platform/internal/archive"
	"github.com/vitrineapp/vitrine-ai-platform/internal/auth"
	"github.com/vitrineapp/vitrine-ai-platform/internal/bookings"
	"github.com/vitrineapp/vitrine-ai-platform/internal/business"
	"github.com/vitrineapp/vitrine-ai-platform/internal/chat"
	appconfig "github.com/vitrineapp/vitrine-ai-platform/internal/config"
	"github.com/vitrineapp/vitrine-ai-platform/internal/notify"
	"github.com/vitrineapp/vitrine-ai-platform/internal/observability/metrics"
	"github.com/vitrineapp/vitrine-ai-platform/pkg/logging"
)

func main() {
	// Load .env when present; real environment variables win.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting vitrine chat service",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	m := metrics.NewChatMetrics(nil)

	// Stores
	sessions := appbootstrap.BuildSessionStore(ctx, cfg, awsCfg, logger)
	businessRepo, closeBusinessRepo, err := appbootstrap.BuildBusinessRepository(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open business records", "error", err)
		os.Exit(1)
	}
	defer closeBusinessRepo()

	bookingLog, closeBookingLog, err := appbootstrap.BuildBookingLog(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open booking log", "error", err)
		os.Exit(1)
	}
	defer closeBookingLog()

	// Intent classifier
	classifier, closeClassifier, err := appbootstrap.BuildClassifier(ctx, cfg, awsCfg, m, logger)
	if err != nil {
		logger.Error("failed to build intent classifier", "error", err)
		os.Exit(1)
	}
	defer closeClassifier()

	// Booking dispatch
	sender, provider, reason := appbootstrap.BuildEmailSender(cfg, awsCfg, logger)
	if reason != "" {
		logger.Warn("email dispatch degraded", "provider", provider, "reason", reason)
	} else {
		logger.Info("email dispatch ready", "provider", provider)
	}
	dispatcher := notify.NewService(sender, cfg.DispatchTimeout, logger)

	resolver := appbootstrap.BuildKnowledgeResolver(cfg, businessRepo, logger)

	// Booking trace: log table plus optional S3 archive.
	var archiveStore *archive.Store
	if cfg.ArchiveBucket != "" {
		archiveStore = archive.NewStore(s3.NewFromConfig(awsCfg), cfg.ArchiveBucket, cfg.ArchivePrefix, logger)
		logger.Info("booking archive enabled", "bucket", cfg.ArchiveBucket)
	}

	var engineOpts []chat.EngineOption
	if bookingLog != nil || archiveStore.Enabled() {
		engineOpts = append(engineOpts, chat.WithRecorder(bookings.NewRecorder(bookingLog, archiveStore, logger)))
	}

	engine := chat.NewEngine(sessions, classifier, resolver, dispatcher, logger, m, engineOpts...)

	// Handlers
	chatHandler := chat.NewHandler(engine, logger)
	businessHandler := business.NewHandler(businessRepo, logger)
	authHandler := auth.NewHandler(
		auth.NewMagicLink(cfg.MagicLinkSecret, cfg.MagicLinkTTL),
		businessRepo,
		cfg.PublicBaseURL,
		cfg.DashboardURL,
		logger,
	)

	var statsHandler *bookings.StatsHandler
	if bookingLog != nil {
		statsHandler = bookings.NewStatsHandler(bookingLog, logger)
	}

	// Setup router
	r := router.New(&router.Config{
		Logger:             logger,
		ChatHandler:        chatHandler,
		BusinessHandler:    businessHandler,
		AuthHandler:        authHandler,
		StatsHandler:       statsHandler,
		MetricsHandler:     promhttp.Handler(),
		AdminToken:         cfg.AdminToken,
		CORSAllowedOrigins: cfg.AllowedOrigins,
		ChatRateLimit:      cfg.ChatRateLimit,
		ChatRateBurst:      cfg.ChatRateBurst,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}
