// Command server runs the chat gateway HTTP API.
//
// @title                       Chat Gateway API
// @version                     1.0
// @description                 Authenticated conversations and role-gated direct queries against a hosted language model.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Type "Bearer" followed by a space and the session token.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/llmgate/chat-gateway/internal/api"
	"github.com/llmgate/chat-gateway/internal/core/ports"
	"github.com/llmgate/chat-gateway/internal/core/service"
	"github.com/llmgate/chat-gateway/internal/infrastructure/config"
	redisdb "github.com/llmgate/chat-gateway/internal/infrastructure/db/redis"
	"github.com/llmgate/chat-gateway/internal/infrastructure/llm"
	"github.com/llmgate/chat-gateway/internal/infrastructure/memory"
	"github.com/llmgate/chat-gateway/internal/infrastructure/password"
	"github.com/llmgate/chat-gateway/pkg/logger"
)

func main() {
	// A missing .env is normal outside local development.
	envErr := godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		boot := logger.Init(logger.Options{Pretty: true})
		boot.Fatal().Err(err).Msg("invalid configuration")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "chat-gateway",
	})
	if envErr != nil && !errors.Is(envErr, os.ErrNotExist) {
		log.Warn().Err(envErr).Msg("could not read .env")
	}

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	hasher := password.Bcrypt{Cost: cfg.BcryptCost}
	users, err := memory.NewSeededCredentialStore(hasher, memory.DefaultSeeds(
		cfg.Seed.AdminPassword,
		cfg.Seed.ManagerPassword,
		cfg.Seed.UserPassword,
	))
	if err != nil {
		return err
	}

	if cfg.LLM.APIKey == "" {
		log.Warn().Msg("LLM_API_KEY is empty; every completion will fail")
	}
	completer := llm.NewAnthropicClient(llm.Config{
		APIKey:     cfg.LLM.APIKey,
		BaseURL:    cfg.LLM.BaseURL,
		Model:      cfg.LLM.Model,
		MaxTokens:  int(cfg.LLM.MaxTokens),
		APIVersion: cfg.LLM.APIVersion,
		Timeout:    cfg.LLM.Timeout,
	}, log)

	readiness := map[string]ports.Pinger{}
	var idem ports.IdempotencyStore
	if cfg.Redis.Addr != "" {
		rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			return err
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Warn().Err(err).Msg("close redis")
			}
		}()
		idem = redisdb.NewIdempotencyStore(rdb)
		readiness["redis"] = redisdb.NewPinger(rdb)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("idempotent replay enabled")
	}

	authSvc := service.NewAuthService(users, hasher, cfg.JWTSecret, service.DefaultTokenTTL, log)
	convSvc := service.NewConversationService(memory.NewConversationStore(), completer, idem, cfg.Redis.IdempotencyTTL, log)

	e := api.NewRouter(api.Deps{
		Auth:          authSvc,
		Conversations: convSvc,
		Users:         users,
		Readiness:     readiness,
		Log:           log,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Address()).Str("env", cfg.Env).Msg("server listening")
		if err := e.Start(cfg.Address()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Dur("timeout", cfg.ShutdownTimeout).Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}
