// WhatsApp support router server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/epieletronica-png/wa-ia/internal/agent"
	"github.com/epieletronica-png/wa-ia/internal/api"
	"github.com/epieletronica-png/wa-ia/internal/config"
	"github.com/epieletronica-png/wa-ia/internal/identity"
	"github.com/epieletronica-png/wa-ia/internal/router"
	"github.com/epieletronica-png/wa-ia/internal/store"
	"github.com/epieletronica-png/wa-ia/internal/whatsapp"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("Starting server",
		"port", cfg.Port,
		"store", cfg.Store.Backend,
		"ai_provider", cfg.AI.Provider,
		"preview_mode", cfg.PreviewMode,
		"dry_run", cfg.WhatsApp.DryRun())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Session store. A missing or broken durable backend is not fatal: the
	// store serves from memory.
	primary, sweeper := openBackend(ctx, cfg.Store)
	sessions := store.NewSessionStore(primary, store.Options{
		SessionTTL: cfg.Store.SessionTTL,
		PreviewTTL: cfg.Store.PreviewTTL,
		Logger:     logger,
	})
	defer func() {
		if closeErr := sessions.Close(); closeErr != nil {
			slog.Error("Failed to close session store", "error", closeErr)
		}
	}()

	var sweeperDone <-chan struct{}
	if sweeper != nil {
		sweeperDone = store.StartSweeper(ctx, sweeper, cfg.Store.SweepInterval, logger)
	}

	// AI collaborators.
	completer, err := agent.NewCompleter(ctx, agent.Config{
		Provider: agent.Provider(cfg.AI.Provider),
		Model:    cfg.AI.Model,
		APIKey:   cfg.AI.APIKey,
		BaseURL:  cfg.AI.BaseURL,
		Timeout:  cfg.AI.Timeout,
	})
	if errors.Is(err, agent.ErrNotConfigured) {
		slog.Warn("AI provider not configured, falling back to mock replies", "provider", cfg.AI.Provider)
		completer = agent.NewMockClient()
	} else if err != nil {
		slog.Error("Failed to initialize AI client", "error", err)
		os.Exit(1)
	}
	aiService := agent.NewService(completer, logger)
	slog.Info("AI client ready", "client", aiService.Name())

	// Outbound transport.
	var sender router.Sender
	if cfg.WhatsApp.DryRun() {
		slog.Warn("WhatsApp credentials not set, outbound messages will only be logged")
		sender = whatsapp.NewLogSender(logger)
	} else {
		sender = whatsapp.NewClient(cfg.WhatsApp.APIURL, cfg.WhatsApp.PhoneNumberID, cfg.WhatsApp.Token, 15*time.Second)
	}

	operators := identity.NewOperators(cfg.OwnerNumber, cfg.TechnicianNumber)
	if len(operators.Recipients()) == 0 {
		slog.Warn("No operator numbers configured, handover notifications will not be delivered")
	}

	rt := router.New(sessions, sender, aiService, aiService, router.Config{
		Operators:       operators,
		PreviewMode:     cfg.PreviewMode,
		PolishReplies:   cfg.PolishReplies,
		HandoverMessage: cfg.HandoverMessage,
		SystemPrompt:    cfg.SystemPrompt,
	}, logger)

	// Initialize handlers.
	baseHandler := api.NewHandler(rt, sessions, logger)
	webhookHandler := api.NewWebhookHandler(baseHandler, cfg.WhatsApp.VerifyToken, cfg.WhatsApp.AppSecret, cfg.WhatsApp.AllowUnsigned)
	healthHandler := api.NewHealthHandler(baseHandler)
	if cfg.WhatsApp.AppSecret == "" {
		if cfg.WhatsApp.AllowUnsigned {
			slog.Warn("WHATSAPP_APP_SECRET not set and WEBHOOK_ALLOW_UNSIGNED on, webhook signatures will not be verified")
		} else {
			slog.Warn("WHATSAPP_APP_SECRET not set, webhook notifications will be refused")
		}
	}

	// Setup router.
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	healthHandler.RegisterHealth(r)
	webhookHandler.RegisterRoutes(r)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	drained := make(chan struct{})
	go func() {
		webhookHandler.Wait()
		close(drained)
	}()
	select {
	case <-drained:
		slog.Info("In-flight messages drained")
	case <-shutdownCtx.Done():
		slog.Warn("Timed out waiting for in-flight messages")
	}

	if sweeperDone != nil {
		<-sweeperDone
	}

	slog.Info("Server stopped successfully")
}

// openBackend builds the configured durable backend. It returns a nil
// backend when none is configured or it cannot be reached at startup.
func openBackend(ctx context.Context, cfg config.StoreConfig) (store.Backend, store.Sweeper) {
	switch cfg.Backend {
	case config.StoreRedis:
		if cfg.RedisURL == "" {
			slog.Warn("REDIS_URL not set, sessions are kept in memory only")
			return nil, nil
		}
		rb, err := store.NewRedisBackendFromURL(cfg.RedisURL)
		if err != nil {
			slog.Warn("Invalid REDIS_URL, sessions are kept in memory only", "error", err)
			return nil, nil
		}
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := rb.Ping(pingCtx); err != nil {
			// Keep the backend; the store falls back per operation until redis is back.
			slog.Warn("Redis unreachable at startup, serving from memory until it recovers", "error", err)
		} else {
			slog.Info("Redis connected")
		}
		return rb, nil

	case config.StoreSQLite:
		sb, err := store.NewSQLite(cfg.SQLitePath)
		if err != nil {
			slog.Warn("Failed to open SQLite session store, sessions are kept in memory only", "error", err, "path", cfg.SQLitePath)
			return nil, nil
		}
		slog.Info("SQLite session store ready", "path", cfg.SQLitePath)
		return sb, sb

	default:
		slog.Info("Sessions are kept in memory only")
		return nil, nil
	}
}
