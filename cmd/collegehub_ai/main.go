package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"collegehub_ai/pkg/ai"
	"collegehub_ai/pkg/ai/providers"
	"collegehub_ai/pkg/chat"
	"collegehub_ai/pkg/config"
	"collegehub_ai/pkg/contextsvc"
	"collegehub_ai/pkg/identity"
	"collegehub_ai/pkg/logging"
	"collegehub_ai/pkg/server"

	"github.com/joho/godotenv"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// A local .env is optional; real deployments set the environment.
	_ = godotenv.Load()

	cfg := config.FromEnv()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	if _, err := logging.Init(cfg); err != nil {
		slog.Warn("log file unavailable, logging to stdout", "error", err)
	}

	llm := buildProvider(cfg)

	fetcher := contextsvc.NewClient(cfg.ContextServiceURL, time.Duration(cfg.ContextTimeoutSeconds)*time.Second)
	resolver := identity.NewResolver(cfg.JWTSecret)
	svc := chat.NewService(llm, fetcher, resolver, cfg.GeminiModel)
	srv := server.New(cfg, svc)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("server listening",
			"addr", httpServer.Addr,
			"context_service", cfg.ContextServiceURL,
			"model", cfg.GeminiModel,
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// buildProvider returns the Gemini provider, or the explicit disabled
// variant when no usable API key is present. The service still starts; /chat
// then reports not-initialized.
func buildProvider(cfg config.Config) ai.Provider {
	if cfg.GeminiAPIKey == "" {
		slog.Error("GEMINI_API_KEY not set, chat requests will be rejected")
		return ai.Disabled("GEMINI_API_KEY not set")
	}

	provider, err := providers.NewGoogleProvider(cfg)
	if err != nil {
		slog.Error("failed to initialize Gemini client", "error", err)
		return ai.Disabled(err.Error())
	}

	slog.Info("Gemini client initialized", "model", cfg.GeminiModel)
	return provider
}
