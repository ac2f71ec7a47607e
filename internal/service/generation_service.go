package service

import (
	"context"
	"errors"
	"fmt"
	"solveit_backend/internal/config"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const systemPromptTemplate = `You are a helpful assistant for %s.
Only use the relevant company document context below to answer the user's question.
Do not add unrelated information.
Do not guess.

Respond in JSON format only:
{
    "answer": "..."
}

If the answer is not found, say: 'I'm sorry, I couldn't find the answer to that question.'`

// OpenAIGenerator 通过 chat completions 生成答案
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

func NewOpenAIGenerator(cfg config.AIConfig) *OpenAIGenerator {
	return &OpenAIGenerator{
		client: newOpenAIClient(cfg.BaseURL, cfg.APIKey, cfg.Timeout),
		model:  cfg.Model,
	}
}

func buildMessages(req GenerationRequest) []openai.ChatCompletionMessage {
	category := strings.ReplaceAll(strings.TrimSpace(req.Category), "_", " ")
	return []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: fmt.Sprintf(systemPromptTemplate, category),
		},
		{
			Role:    openai.ChatMessageRoleUser,
			Content: fmt.Sprintf("User Question: %s\n\nCompany Documents:\n%s", req.Query, req.Context),
		},
	}
}

// Generate 返回所有 choice 的内容
func (g *OpenAIGenerator) Generate(ctx context.Context, req GenerationRequest) ([]string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    g.model,
		Messages: buildMessages(req),
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("chat completion returned no choices")
	}

	segments := make([]string, 0, len(resp.Choices))
	for _, choice := range resp.Choices {
		segments = append(segments, choice.Message.Content)
	}
	return segments, nil
}
