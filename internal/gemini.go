package internal

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// Provider names accepted by the llm_provider setting
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// GeminiOpenAIBaseURL is Gemini's OpenAI-compatible endpoint
const GeminiOpenAIBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

// LLMClient sends one system instruction plus one user message and returns the reply text
type LLMClient interface {
	Generate(ctx context.Context, systemInstruction, userMessage string) (string, error)
}

// GenerationParams are the sampling settings shared by every backend
type GenerationParams struct {
	Model           string
	Temperature     float64
	MaxOutputTokens int
}

// GeminiClient calls Gemini through the Google Gen AI SDK
type GeminiClient struct {
	client *genai.Client
	params GenerationParams
}

// NewGeminiClient creates a Gemini API client
func NewGeminiClient(ctx context.Context, apiKey string, params GenerationParams) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &GeminiClient{client: client, params: params}, nil
}

// Generate implements LLMClient
func (c *GeminiClient) Generate(ctx context.Context, systemInstruction, userMessage string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
		Temperature:       genai.Ptr(float32(c.params.Temperature)),
		MaxOutputTokens:   int32(c.params.MaxOutputTokens),
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.params.Model, genai.Text(userMessage), cfg)
	if err != nil {
		return "", err
	}

	text := resp.Text()
	if text == "" {
		return "", errors.New("empty response from gemini")
	}
	return text, nil
}
