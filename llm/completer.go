// Package llm builds conversation contexts and turns model replies into
// summaries, replies and todo items.
package llm

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// Completer sends a single-turn prompt to a chat model.
type Completer interface {
	Complete(ctx context.Context, model, prompt string, maxTokens int) (string, error)
}

// OpenAICompleter talks to any OpenAI-compatible endpoint.
type OpenAICompleter struct {
	client *openai.Client
}

func NewOpenAICompleter(apiKey, baseURL string) *OpenAICompleter {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAICompleter{client: openai.NewClientWithConfig(cfg)}
}

func (c *OpenAICompleter) Complete(ctx context.Context, model, prompt string, maxTokens int) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     model,
		MaxTokens: maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
