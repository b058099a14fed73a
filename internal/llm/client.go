// Package llm drafts warehouse documents from prose descriptions of a
// business domain.
package llm

import (
	"context"
	"fmt"
	"os"

	"github.com/sashabaranov/go-openai"

	"github.com/starforge/starforge/internal/logger"
)

// Generator produces a completion for a system/user prompt pair.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// OpenAI is a Generator backed by the OpenAI chat completion API.
type OpenAI struct {
	client *openai.Client
	model  string
}

// NewOpenAI builds a client from the OPENAI_API_KEY environment variable.
func NewOpenAI(model string) (*OpenAI, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}
	return &OpenAI{client: openai.NewClient(apiKey), model: model}, nil
}

func (o *OpenAI) Generate(ctx context.Context, system, prompt string) (string, error) {
	log := logger.Get()
	log.Debug("Requesting chat completion", "model", o.model)

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: 0.2,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}
	log.Debug("Received chat completion", "finish_reason", resp.Choices[0].FinishReason)
	return resp.Choices[0].Message.Content, nil
}
