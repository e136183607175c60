// Package llm wraps the chat-completion API used for routing and answering.
// Mistral exposes an OpenAI-compatible endpoint, so go-openai is pointed at
// its base URL.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/oscillatelabsllc/recall/internal/models"
	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
)

// ErrNoChoices is returned when the API answers without any completion
var ErrNoChoices = errors.New("language model returned no choices")

// Client issues chat completions against one model
type Client struct {
	api    *openai.Client
	model  string
	logger zerolog.Logger
}

// NewClient creates a client for model at baseURL
func NewClient(apiKey, baseURL, model string, timeout time.Duration, logger zerolog.Logger) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		api:    openai.NewClientWithConfig(cfg),
		model:  model,
		logger: logger.With().Str("component", "llm").Str("model", model).Logger(),
	}
}

// complete sends messages and returns the first choice's content
func (c *Client) complete(ctx context.Context, messages []openai.ChatCompletionMessage, format *openai.ChatCompletionResponseFormat) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:          c.model,
		Messages:       messages,
		ResponseFormat: format,
	}

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}

	c.logger.Debug().
		Dur("latency", time.Since(start)).
		Str("finish_reason", string(resp.Choices[0].FinishReason)).
		Int("total_tokens", resp.Usage.TotalTokens).
		Msg("chat completion")

	return resp.Choices[0].Message.Content, nil
}

// Planner decides whether a turn needs a web search
type Planner struct {
	client *Client
}

// NewPlanner creates a planner backed by client
func NewPlanner(client *Client) *Planner {
	return &Planner{client: client}
}

// Plan asks the model for a JSON routing decision. Output that does not
// parse into a Decision is an error; there is no repair or retry.
func (p *Planner) Plan(ctx context.Context, message string) (models.Decision, error) {
	content, err := p.client.complete(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: PlanningPrompt(message)},
	}, &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject})
	if err != nil {
		return models.Decision{}, fmt.Errorf("planner: %w", err)
	}

	decision, err := models.ParseDecision([]byte(content))
	if err != nil {
		return models.Decision{}, fmt.Errorf("planner: %w", err)
	}

	return decision, nil
}

// ResponseInput is what the responder needs to answer a turn
type ResponseInput struct {
	ContextBlock string
	Message      string
}

// Responder produces the final answer for a turn
type Responder struct {
	client *Client
}

// NewResponder creates a responder backed by client
func NewResponder(client *Client) *Responder {
	return &Responder{client: client}
}

// Respond generates the reply text
func (r *Responder) Respond(ctx context.Context, in ResponseInput) (string, error) {
	content, err := r.client.complete(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: ResponderInstruction},
		{Role: openai.ChatMessageRoleUser, Content: ResponsePrompt(in.ContextBlock, in.Message)},
	}, nil)
	if err != nil {
		return "", fmt.Errorf("responder: %w", err)
	}

	return content, nil
}
