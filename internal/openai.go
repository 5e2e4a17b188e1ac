package internal

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

// OpenAIClient talks to any OpenAI-compatible chat completions endpoint,
// Gemini's included.
type OpenAIClient struct {
	client *openai.Client
	params GenerationParams
}

// NewOpenAIClient creates a new OpenAI-compatible client
func NewOpenAIClient(apiKey, baseURL string, params GenerationParams) *OpenAIClient {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(opts...)
	return &OpenAIClient{client: &client, params: params}
}

// Generate implements LLMClient
func (c *OpenAIClient) Generate(ctx context.Context, systemInstruction, userMessage string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.params.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemInstruction),
			openai.UserMessage(userMessage),
		},
		Temperature:         openai.Float(c.params.Temperature),
		MaxCompletionTokens: openai.Int(int64(c.params.MaxOutputTokens)),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices from model")
	}
	return resp.Choices[0].Message.Content, nil
}
