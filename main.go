package main

import (
	"context"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/FinMentor-core-poc-v1/server/internal/advisor/completion"
	"github.com/FinMentor-core-poc-v1/server/internal/advisor/flow"
	"github.com/FinMentor-core-poc-v1/server/internal/advisor/model"
	"github.com/FinMentor-core-poc-v1/server/internal/advisor/repo"
	"github.com/FinMentor-core-poc-v1/server/internal/api"
	"github.com/FinMentor-core-poc-v1/server/internal/core"
	logx "github.com/FinMentor-core-poc-v1/server/pkg/logger"
	pkgredis "github.com/FinMentor-core-poc-v1/server/pkg/redis"
)

// AppConfig defines all configurable parameters for the advisor service,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	ListenAddr  string `envconfig:"LISTEN_ADDR" default:":5000"`

	// Infrastructure. Redis is optional: without a URL the service keeps
	// conversation state in memory for the life of the process.
	Redis pkgredis.Config

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Advisor configs
	Model        model.AdvisorModelConfig
	Prompt       model.PromptConfig
	Conversation model.ConversationConfig
}

func main() {
	ctx := context.Background()

	if err := godotenv.Load(".env"); err != nil {
		logx.Warn().Err(err).Msg("Could not load .env file")
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		logx.Fatal().Err(err).Msg("Failed to process environment config")
	}

	logx.Init(logx.LoggerOpts{Environment: core.ParseEnvironment(cfg.Environment)})

	ttl, err := time.ParseDuration(cfg.Conversation.TTL)
	if err != nil {
		logx.Fatal().Err(err).Str("ttl", cfg.Conversation.TTL).Msg("Invalid CONVERSATION_TTL")
	}

	var store model.ConversationStore
	if cfg.Redis.Enabled() {
		rdb, err := cfg.Redis.New()
		if err != nil {
			logx.Fatal().Err(err).Msg("Failed to initialise Redis client")
		}
		defer rdb.Close()
		store = repo.NewRedisConversationStore(rdb, ttl)
		logx.Info().Msg("Using Redis conversation store")
	} else {
		store = repo.NewMemoryConversationStore()
		logx.Info().Msg("REDIS_URL not set, using in-memory conversation store")
	}

	completer, err := completion.NewClient(ctx, completion.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
	})
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to initialise completion client")
	}

	machine := flow.NewMachine(completer, cfg.Prompt, cfg.Conversation)
	server := api.NewServer(store, machine)

	logx.Info().Str("addr", cfg.ListenAddr).Str("model", cfg.Model.Model).Msg("FinMentor advisor listening")
	if err := http.ListenAndServe(cfg.ListenAddr, server.Handler()); err != nil {
		logx.Fatal().Err(err).Msg("HTTP server stopped")
	}
}
