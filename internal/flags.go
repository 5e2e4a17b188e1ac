package internal

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// AddLLMFlags adds flags that select the generation backend
func AddLLMFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("model", "m", "", "Model to use for generation (default from config)")
	cmd.Flags().String("provider", "", "LLM provider: gemini or openai (OpenAI-compatible endpoint)")
}

// AddExtractionFlags adds flags related to channel extraction
func AddExtractionFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("limit", "n", 0, "Number of popular videos to process (default from config)")
}

// HandleVerboseFlag processes the --verbose flag to update config
func HandleVerboseFlag(cmd *cobra.Command, config *Config) error {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		return fmt.Errorf("failed to get verbose flag: %w", err)
	}
	if verbose {
		config.Verbose = true
	}
	return nil
}

// HandleQuietFlag processes the --quiet flag to update config
func HandleQuietFlag(cmd *cobra.Command, config *Config) error {
	quiet, err := cmd.Flags().GetBool("quiet")
	if err != nil {
		return fmt.Errorf("failed to get quiet flag: %w", err)
	}
	if quiet {
		config.Quiet = true
	}
	return nil
}

// ApplyLLMFlags copies --model and --provider into config and validates the result
func ApplyLLMFlags(cmd *cobra.Command, config *Config) error {
	if model, _ := cmd.Flags().GetString("model"); model != "" {
		config.GeminiModel = model
	}
	if provider, _ := cmd.Flags().GetString("provider"); provider != "" {
		config.LLMProvider = provider
	}
	return ValidateProvider(config.LLMProvider)
}

// ValidateProvider checks if the provider is supported
func ValidateProvider(provider string) error {
	supported := []string{ProviderGemini, ProviderOpenAI}
	if slices.Contains(supported, provider) {
		return nil
	}
	return fmt.Errorf("unsupported llm provider: %s (supported: %s, %s)", provider, ProviderGemini, ProviderOpenAI)
}

// ValidateGeminiAPIKey checks if an LLM credential is set
func ValidateGeminiAPIKey(apiKey string) error {
	if apiKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

// ValidateApifyAPIKey checks if the Apify token is set
func ValidateApifyAPIKey(apiKey string) error {
	if apiKey == "" {
		return fmt.Errorf("apify API key is required - set it in config.toml or APIFY_API_KEY environment variable")
	}
	return nil
}
