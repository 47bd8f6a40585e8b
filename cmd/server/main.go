package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/xaenox/assistant-backend/internal/assistant"
	"github.com/xaenox/assistant-backend/internal/auth"
	"github.com/xaenox/assistant-backend/internal/dispatcher"
	"github.com/xaenox/assistant-backend/internal/server"
	"github.com/xaenox/assistant-backend/internal/storage"
	"github.com/xaenox/assistant-backend/pkg/config"
	"github.com/xaenox/assistant-backend/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	// A missing .env is fine, the environment may already be set
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	zapLogger, err := logger.New(cfg.Server.Environment)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zapLogger.Sync()

	if cfg.Server.Environment != logger.DevelopmentMode {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize storage
	var store storage.Storage
	if cfg.Database.UseInMemory {
		zapLogger.Info("Using in-memory storage")
		memStore := storage.NewMemoryStorage()
		if cfg.Database.SeedFile != "" {
			n, err := memStore.LoadSeedFile(context.Background(), cfg.Database.SeedFile)
			if err != nil {
				zapLogger.Fatal("Failed to seed in-memory storage", zap.Error(err), zap.String("path", cfg.Database.SeedFile))
			}
			zapLogger.Info("Seeded in-memory storage", zap.Int("users", n))
		}
		store = memStore
	} else {
		zapLogger.Info("Using PostgreSQL storage", zap.String("host", cfg.Database.Host))
		dbConfig := storage.DatabaseConfig{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			DBName:   cfg.Database.DBName,
			SSLMode:  cfg.Database.SSLMode,
			Migrate:  cfg.Database.Migrate,
		}
		store, err = storage.NewPostgresStorage(dbConfig, zapLogger)
		if err != nil {
			zapLogger.Fatal("Failed to initialize storage", zap.Error(err))
		}
	}
	defer store.Close()

	// Initialize identity resolution
	var resolver auth.Resolver
	if cfg.Auth.JWTSecret != "" {
		zapLogger.Info("Verifying access tokens with the JWT secret")
		resolver = auth.NewJWTResolver(cfg.Auth.JWTSecret)
	} else {
		zapLogger.Info("Resolving access tokens through Supabase Auth", zap.String("url", cfg.Auth.SupabaseURL))
		resolver = auth.NewSupabaseResolver(cfg.Auth.SupabaseURL, cfg.Auth.AnonKey)
	}

	svc := assistant.NewOpenAIService(assistant.Config{
		APIKey:       cfg.OpenAI.APIKey,
		BaseURL:      cfg.OpenAI.BaseURL,
		PollInterval: cfg.OpenAI.PollInterval,
		RunTimeout:   cfg.OpenAI.RunTimeout,
	}, zapLogger)

	d := dispatcher.New(store, svc, resolver, dispatcher.Config{
		ChatAssistantID:        cfg.OpenAI.ChatAssistantID,
		DescriptionAssistantID: cfg.OpenAI.DescriptionAssistantID,
	}, zapLogger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           server.New(d, zapLogger).Router(cfg.Server.Path),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		zapLogger.Info("Starting server", zap.String("addr", srv.Addr), zap.String("path", cfg.Server.Path))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLogger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Graceful shutdown failed", zap.Error(err))
	}
}
