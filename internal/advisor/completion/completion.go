// Package completion wraps the Gemini chat model behind a text-completion
// contract that never fails: any model error is absorbed into a fixed
// generic-guidance fallback so the conversation can always continue.
package completion

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/FinMentor-core-poc-v1/server/internal/advisor/model"
	logx "github.com/FinMentor-core-poc-v1/server/pkg/logger"
)

// FallbackAdvice is returned whenever the model call fails or produces no
// content. It deliberately trades fidelity for availability; the flow machine
// relies on Complete always returning a non-empty string.
const FallbackAdvice = "I apologize, but I'm having trouble generating personalized advice right now. " +
	"Here's some general financial guidance: Consider creating a budget, building an emergency fund " +
	"with 3-6 months of expenses, and investing in your retirement. Please try again later for personalized advice."

// Completer is the single external capability the flow machine consumes.
// Implementations must always return some text and never an error.
type Completer interface {
	Complete(ctx context.Context, prompt string) string
}

// Config holds the configuration for building the Gemini-backed client.
type Config struct {
	APIKey  string
	BaseURL string
	Model   model.AdvisorModelConfig
}

// Client implements Completer on top of an Eino chat model.
type Client struct {
	cm        einomodel.BaseChatModel
	modelName string
}

// NewClient creates the Gemini chat model and wraps it in a Client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = cfg.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	cm, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       cfg.Model.Model,
		Temperature: &cfg.Model.Temperature,
		MaxTokens:   &cfg.Model.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating advisor chat model")
		return nil, fmt.Errorf("error creating advisor chat model: %w", err)
	}

	return &Client{cm: cm, modelName: cfg.Model.Model}, nil
}

// NewFromChatModel wraps an existing chat model. Used by tests and by callers
// that construct the model themselves.
func NewFromChatModel(cm einomodel.BaseChatModel, modelName string) *Client {
	return &Client{cm: cm, modelName: modelName}
}

// Complete sends the prompt to the model and returns the trimmed response
// text. Failures of any kind (transport, auth, empty response) yield the
// fixed fallback string instead of an error.
func (c *Client) Complete(ctx context.Context, prompt string) string {
	out, err := c.cm.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		logx.Warn().Err(err).Str("model", c.modelName).Msg("Completion failed, returning fallback advice")
		return FallbackAdvice
	}
	if out == nil {
		logx.Warn().Str("model", c.modelName).Msg("Completion returned nil message, returning fallback advice")
		return FallbackAdvice
	}

	content := strings.TrimSpace(out.Content)
	if content == "" {
		logx.Warn().Str("model", c.modelName).Msg("Completion returned empty content, returning fallback advice")
		return FallbackAdvice
	}

	logx.Debug().Str("model", c.modelName).Int("prompt_len", len(prompt)).Int("response_len", len(content)).
		Msg("Completion succeeded")
	return content
}

var _ Completer = (*Client)(nil)
