package internal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Generator produces the Viral DNA analysis and scripts built on it
type Generator struct {
	provider string
	apiKey   string
	baseURL  string
	params   GenerationParams
	timeout  time.Duration
	prompts  *PromptManager
	metrics  *Metrics
	logger   *slog.Logger

	client     LLMClient
	clientOnce sync.Once
	clientErr  error
}

// NewGenerator creates a generator with lazy client initialization
func NewGenerator(config *Config, prompts *PromptManager, metrics *Metrics, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = &Metrics{}
	}
	return &Generator{
		provider: config.LLMProvider,
		apiKey:   config.GeminiAPIKey,
		baseURL:  config.LLMBaseURL,
		params: GenerationParams{
			Model:           config.GeminiModel,
			Temperature:     config.Temperature,
			MaxOutputTokens: config.MaxOutputTokens,
		},
		timeout: config.GenerationTimeout,
		prompts: prompts,
		metrics: metrics,
		logger:  logger,
	}
}

// SetClient replaces the LLM backend
func (g *Generator) SetClient(client LLMClient) {
	g.client = client
}

// Configured reports whether an LLM credential is present
func (g *Generator) Configured() bool {
	return g.apiKey != ""
}

// ensureClient initializes the LLM client if needed
func (g *Generator) ensureClient(ctx context.Context) error {
	if g.apiKey == "" {
		return ErrMissingAPIKey
	}

	g.clientOnce.Do(func() {
		if g.client != nil {
			return
		}
		switch g.provider {
		case ProviderOpenAI:
			g.client = NewOpenAIClient(g.apiKey, g.baseURL, g.params)
		case ProviderGemini, "":
			// context.WithoutCancel: the client outlives the request that created it
			g.client, g.clientErr = NewGeminiClient(context.WithoutCancel(ctx), g.apiKey, g.params)
		default:
			g.clientErr = fmt.Errorf("unsupported llm provider: %s (supported: %s, %s)", g.provider, ProviderGemini, ProviderOpenAI)
		}
	})

	return g.clientErr
}

// AnalyzeStyle reverse-engineers the structural style of a transcript corpus
func (g *Generator) AnalyzeStyle(ctx context.Context, corpus string) (string, error) {
	if err := g.ensureClient(ctx); err != nil {
		return "", err
	}
	if strings.TrimSpace(corpus) == "" {
		return "", &ValidationError{Field: "subtitles", Message: "No subtitles provided"}
	}

	instruction, err := g.prompts.AnalysisInstruction()
	if err != nil {
		return "", fmt.Errorf("loading analysis prompt: %w", err)
	}

	text, err := g.generate(ctx, "Viral DNA", instruction, corpus)
	if err != nil {
		return "", err
	}
	return text, nil
}

// GenerateScript writes a script on topic following the given analysis
func (g *Generator) GenerateScript(ctx context.Context, viralDNA, topic string) (string, error) {
	if err := g.ensureClient(ctx); err != nil {
		return "", err
	}
	if strings.TrimSpace(viralDNA) == "" {
		return "", &ValidationError{Field: "viral_dna", Message: "Viral DNA is required"}
	}
	if strings.TrimSpace(topic) == "" {
		return "", &ValidationError{Field: "topic", Message: "Video topic is required"}
	}

	instruction, err := g.prompts.ScriptInstruction(viralDNA)
	if err != nil {
		return "", fmt.Errorf("building script prompt: %w", err)
	}

	return g.generate(ctx, "script", instruction, "TOPIC: "+topic)
}

func (g *Generator) generate(ctx context.Context, op, instruction, message string) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	g.metrics.LLMCalls.Add(1)
	start := time.Now()
	text, err := g.client.Generate(ctx, instruction, message)
	if err != nil {
		g.metrics.LLMErrors.Add(1)
		g.logger.Error("generation failed", slog.String("op", op), slog.Any("error", err))
		return "", &GenerationError{Op: op, Err: err}
	}

	g.logger.Info("generation completed",
		slog.String("op", op),
		slog.String("model", g.params.Model),
		slog.Int("input_chars", len(message)),
		slog.Int("output_chars", len(text)),
		slog.Duration("elapsed", time.Since(start)))
	return text, nil
}
