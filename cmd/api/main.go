package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/textmate/backend/internal/config"
	"github.com/zhouzirui/textmate/backend/internal/handler"
	"github.com/zhouzirui/textmate/backend/internal/model/persona"
	"github.com/zhouzirui/textmate/backend/internal/service/ai"
	"github.com/zhouzirui/textmate/backend/internal/service/chat"
	"github.com/zhouzirui/textmate/backend/internal/service/typing"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	personaStore := persona.NewMemoryStore(persona.Seed())
	chatService := chat.NewService()

	textModel, err := newTextModel(ctx, cfg.AI)
	if err != nil {
		log.Printf("warning: failed to initialize %s model: %v", cfg.AI.Provider, err)
		log.Println("continuing without a model - every reply will be the fallback text")
	}

	ledger := ai.NewUsageLedger()
	aiService := ai.NewService(textModel, ai.MultiSink{ai.NewLogUsageSink(nil), ledger}, serviceConfig(cfg))
	log.Printf("AI service ready model=%s", aiService.ModelName())

	pacer := typing.Pacer{PerChar: cfg.Chat.TypingPerChar, Min: cfg.Chat.TypingMin, Max: cfg.Chat.TypingMax}

	router := handler.NewRouter(personaStore, chatService, aiService, ledger, pacer)

	startServer(ctx, cfg.Server, router)
}

// newTextModel returns a nil model, not an error, when no credentials are set.
func newTextModel(ctx context.Context, cfg config.AIConfig) (ai.TextModel, error) {
	if !cfg.Enabled() {
		log.Printf("%s credentials not configured, skipping model initialization", cfg.Provider)
		return nil, nil
	}

	switch cfg.Provider {
	case config.ProviderArk:
		chatModel, err := cfg.NewChatModel(ctx)
		if err != nil {
			return nil, err
		}
		arkModel, err := ai.NewArkModel(ctx, chatModel, cfg.Model, cfg.Temperature)
		if err != nil {
			return nil, err
		}
		return arkModel, nil
	default:
		geminiModel, err := ai.NewGeminiModel(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.Temperature)
		if err != nil {
			return nil, err
		}
		return geminiModel, nil
	}
}

func serviceConfig(cfg *config.Config) ai.ServiceConfig {
	return ai.ServiceConfig{
		Prompts: ai.PromptBuilder{
			Window:             cfg.Chat.HistoryWindow,
			DefaultName:        cfg.Chat.DefaultPersonaName,
			DefaultDescription: cfg.Chat.DefaultPersonaDescription,
		},
		FallbackReply: cfg.Chat.FallbackReply,
		Timeout:       cfg.AI.RequestTimeout,
	}
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("textmate backend listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
