package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Aditya-GrowAI/civicvoice3/auth"
	"github.com/Aditya-GrowAI/civicvoice3/classifier"
	"github.com/Aditya-GrowAI/civicvoice3/config"
	"github.com/Aditya-GrowAI/civicvoice3/database"
	"github.com/Aditya-GrowAI/civicvoice3/email"
	"github.com/Aditya-GrowAI/civicvoice3/gemini"
	"github.com/Aditya-GrowAI/civicvoice3/handlers"
	"github.com/Aditya-GrowAI/civicvoice3/llm"
	"github.com/Aditya-GrowAI/civicvoice3/metrics"
	"github.com/Aditya-GrowAI/civicvoice3/middleware"
	"github.com/Aditya-GrowAI/civicvoice3/rabbitmq"
	"github.com/Aditya-GrowAI/civicvoice3/server"
	"github.com/Aditya-GrowAI/civicvoice3/storage"
	"github.com/Aditya-GrowAI/civicvoice3/stubllm"

	"github.com/apex/log"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log.SetLevel(log.MustParseLevel(cfg.LogLevel))

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	log.Info("Starting the civic issue service...")
	metrics.Register()

	ctx := context.Background()

	model, err := newModelClient(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create model client: %v", err)
	}
	log.Infof("Classifying photos with %s", model.SourceName())

	cls := classifier.NewClassifier(model,
		classifier.WithRetryPolicy(classifier.RetryPolicy{
			MaxAttempts: cfg.ClassifierMaxAttempts,
			BaseDelay:   cfg.ClassifierBaseDelay,
		}),
		classifier.WithAttemptTimeout(cfg.ClassifierAttemptTimeout),
	)

	verifier, err := auth.NewVerifier(cfg)
	if err != nil {
		log.Fatalf("Failed to create session verifier: %v", err)
	}

	uploads, err := storage.NewUploads(cfg.UploadDir)
	if err != nil {
		log.Fatalf("Failed to prepare upload directory: %v", err)
	}

	store := database.NewIssueStore(ctx, cfg)
	notifier := email.NewNotifier(cfg)
	publisher := rabbitmq.NewEventPublisher(cfg.RabbitMQ)

	h := handlers.NewHandlers(store, cls, uploads, notifier, publisher, cfg.MaxUploadBytes)
	router := server.NewRouter(h, server.Options{
		Verifier:       verifier,
		UploadLimiter:  middleware.NewRateLimiter(cfg.UploadRateLimitPerMinute),
		UploadDir:      uploads.Dir(),
		MaxUploadBytes: cfg.MaxUploadBytes,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start HTTP server in a goroutine
	go func() {
		log.Infof("Starting HTTP server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}

	if err := publisher.Close(); err != nil {
		log.Warnf("Failed to close RabbitMQ publisher: %v", err)
	}

	if err := store.Close(shutdownCtx); err != nil {
		log.Warnf("Failed to close issue store: %v", err)
	}

	log.Info("Server exited")
}

func newModelClient(ctx context.Context, cfg *config.Config) (llm.Client, error) {
	if cfg.LLMProvider == "stub" {
		log.Warn("LLM_PROVIDER=stub: photos are labelled without calling Gemini")
		return stubllm.NewClient(), nil
	}
	client, err := gemini.NewClient(ctx, cfg.GoogleAPIKey, cfg.GeminiModel)
	if err != nil {
		return nil, err
	}
	return client, nil
}
