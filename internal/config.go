package internal

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// AppName is used for XDG directories and the env prefix
const AppName = "viraldna"

// Config holds application settings
type Config struct {
	// Server
	Port           int
	AllowedOrigins []string
	EventLogSize   int

	// Extraction
	OutputFile   string
	DefaultLimit int
	DelayMin     time.Duration
	DelayMax     time.Duration

	// Transcript actor
	ApifyAPIKey  string
	ApifyActorID string
	ApifyBaseURL string
	ApifyTimeout time.Duration

	// Generation
	LLMProvider       string
	GeminiAPIKey      string
	GeminiModel       string
	LLMBaseURL        string
	Temperature       float64
	MaxOutputTokens   int
	GenerationTimeout time.Duration

	Verbose       bool
	Quiet         bool
	MCPLogEnabled bool

	// Fixed XDG paths (not configurable)
	ConfigDir string
	DataDir   string
	CacheDir  string
}

//go:embed config.toml prompts/viral_dna_prompt.txt prompts/viral_script_prompt.tmpl
var defaultFS embed.FS

// ensureDefaultFile checks if a file exists in the specified directory
// and creates it from the embedded default if it doesn't exist
func ensureDefaultFile(configDir, embedPath, description string) error {
	filePath := filepath.Join(configDir, filepath.Base(embedPath))

	if FileExists(filePath) {
		return nil
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	defaultContent, err := defaultFS.ReadFile(embedPath)
	if err != nil {
		return fmt.Errorf("reading embedded default %s: %w", description, err)
	}

	if err := os.WriteFile(filePath, defaultContent, 0644); err != nil {
		return fmt.Errorf("writing default %s: %w", description, err)
	}

	fmt.Fprintf(os.Stderr, "Created default %s at %s\n", description, filePath)
	return nil
}

// EnsureDefaultConfig checks if a config file exists in the XDG config directory
// and creates it from the embedded default if it doesn't exist
func EnsureDefaultConfig(configDir string) error {
	return ensureDefaultFile(configDir, "config.toml", "configuration")
}

// EnsureDefaultPrompts writes both prompt templates to the config directory when missing
func EnsureDefaultPrompts(configDir string) error {
	if err := ensureDefaultFile(configDir, analysisPromptPath, "analysis prompt"); err != nil {
		return err
	}
	return ensureDefaultFile(configDir, scriptPromptPath, "script prompt")
}

// newViper builds the viper instance with every default the app knows about
func newViper(configDir string) *viper.Viper {
	v := viper.New()

	v.SetDefault("port", 5002)
	v.SetDefault("allowed_origins", []string{"*"})
	v.SetDefault("event_log_size", 500)

	v.SetDefault("output_file", "viral_dna.txt")
	v.SetDefault("default_limit", 20)
	v.SetDefault("delay_min", time.Second)
	v.SetDefault("delay_max", 2*time.Second)

	v.SetDefault("apify_actor_id", "faVsWy9VTSNVIhWpR")
	v.SetDefault("apify_base_url", "https://api.apify.com/v2")
	v.SetDefault("apify_timeout", 5*time.Minute)

	v.SetDefault("llm_provider", ProviderGemini)
	v.SetDefault("gemini_model", "gemini-2.5-flash")
	v.SetDefault("llm_base_url", GeminiOpenAIBaseURL)
	v.SetDefault("temperature", 1.0)
	v.SetDefault("max_output_tokens", 8192)
	v.SetDefault("generation_timeout", 5*time.Minute)

	v.SetDefault("verbose", false)
	v.SetDefault("quiet", false)
	v.SetDefault("mcp_log_enabled", true)

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	v.SetEnvPrefix(strings.ToUpper(AppName))
	v.AutomaticEnv()

	// API keys are read under their conventional names as well
	_ = v.BindEnv("gemini_api_key", "GEMINI_API_KEY", "VIRALDNA_GEMINI_API_KEY")
	_ = v.BindEnv("apify_api_key", "APIFY_API_KEY", "VIRALDNA_APIFY_API_KEY")

	return v
}

// InitConfig initializes Viper and loads configuration
func InitConfig() *Config {
	// .env in the working directory is optional
	_ = godotenv.Load()

	configDir := filepath.Join(xdg.ConfigHome, AppName)
	dataDir := filepath.Join(xdg.DataHome, AppName)
	cacheDir := filepath.Join(xdg.CacheHome, AppName)

	v := newViper(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Warning: Error reading config file: %v\n", err)
		}
	}

	config := configFromViper(v)
	config.ConfigDir = configDir
	config.DataDir = dataDir
	config.CacheDir = cacheDir

	return config
}

func configFromViper(v *viper.Viper) *Config {
	return &Config{
		Port:           v.GetInt("port"),
		AllowedOrigins: v.GetStringSlice("allowed_origins"),
		EventLogSize:   v.GetInt("event_log_size"),

		OutputFile:   v.GetString("output_file"),
		DefaultLimit: v.GetInt("default_limit"),
		DelayMin:     v.GetDuration("delay_min"),
		DelayMax:     v.GetDuration("delay_max"),

		ApifyAPIKey:  v.GetString("apify_api_key"),
		ApifyActorID: v.GetString("apify_actor_id"),
		ApifyBaseURL: v.GetString("apify_base_url"),
		ApifyTimeout: v.GetDuration("apify_timeout"),

		LLMProvider:       v.GetString("llm_provider"),
		GeminiAPIKey:      v.GetString("gemini_api_key"),
		GeminiModel:       v.GetString("gemini_model"),
		LLMBaseURL:        v.GetString("llm_base_url"),
		Temperature:       v.GetFloat64("temperature"),
		MaxOutputTokens:   v.GetInt("max_output_tokens"),
		GenerationTimeout: v.GetDuration("generation_timeout"),

		Verbose:       v.GetBool("verbose"),
		Quiet:         v.GetBool("quiet"),
		MCPLogEnabled: v.GetBool("mcp_log_enabled"),
	}
}
