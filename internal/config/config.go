// Package config loads process configuration from the environment
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Memory store backends
const (
	BackendSupabase = "supabase"
	BackendPostgres = "postgres"
	BackendDuckDB   = "duckdb"
	BackendMemory   = "memory"
)

// Config holds all application configuration
type Config struct {
	TelegramToken string `mapstructure:"telegram_token"`

	MistralAPIKey string        `mapstructure:"mistral_api_key"`
	LLMBaseURL    string        `mapstructure:"llm_base_url"`
	LLMModel      string        `mapstructure:"llm_model"`
	LLMTimeout    time.Duration `mapstructure:"llm_timeout"`

	MemoryBackend string `mapstructure:"memory_backend"`
	SupabaseURL   string `mapstructure:"supabase_url"`
	SupabaseKey   string `mapstructure:"supabase_key"`
	DatabaseURL   string `mapstructure:"database_url"`
	DuckDBPath    string `mapstructure:"duckdb_path"`

	SerpAPIKey    string `mapstructure:"serpapi_api_key"`
	SerpAPIEngine string `mapstructure:"serpapi_engine"`
	SerpAPIURL    string `mapstructure:"serpapi_url"`

	OllamaURL           string `mapstructure:"ollama_url"`
	EmbeddingModel      string `mapstructure:"embedding_model"`
	EmbeddingDimensions int    `mapstructure:"embedding_dimensions"`
	EmbeddingCacheSize  int64  `mapstructure:"embedding_cache_size"` // entries, 0 disables

	HTTPPort string `mapstructure:"http_port"`
	MCPSSE   bool   `mapstructure:"mcp_sse"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

var defaults = map[string]interface{}{
	"telegram_token":       "",
	"mistral_api_key":      "",
	"llm_base_url":         "https://api.mistral.ai/v1",
	"llm_model":            "mistral-small-latest",
	"llm_timeout":          60 * time.Second,
	"memory_backend":       BackendSupabase,
	"supabase_url":         "",
	"supabase_key":         "",
	"database_url":         "",
	"duckdb_path":          "recall.duckdb",
	"serpapi_api_key":      "",
	"serpapi_engine":       "google",
	"serpapi_url":          "https://serpapi.com",
	"ollama_url":           "http://localhost:11434",
	"embedding_model":      "nomic-embed-text",
	"embedding_dimensions": 768,
	"embedding_cache_size": 10000,
	"http_port":            "8000",
	"mcp_sse":              true,
	"log_level":            "info",
	"log_format":           "console",
}

// Load reads a .env file if present, then the process environment.
// Environment variables win over .env values.
func Load(envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.MemoryBackend = strings.ToLower(strings.TrimSpace(cfg.MemoryBackend))

	return cfg, nil
}

// Validate reports every missing setting for the selected components
func (c *Config) Validate() error {
	var errs []error

	if c.MistralAPIKey == "" {
		errs = append(errs, errors.New("MISTRAL_API_KEY is required"))
	}
	if c.EmbeddingDimensions <= 0 {
		errs = append(errs, errors.New("EMBEDDING_DIMENSIONS must be positive"))
	}

	switch c.MemoryBackend {
	case BackendSupabase:
		if c.SupabaseURL == "" || c.SupabaseKey == "" {
			errs = append(errs, errors.New("SUPABASE_URL and SUPABASE_KEY are required for the supabase backend"))
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres backend"))
		}
	case BackendDuckDB:
		if c.DuckDBPath == "" {
			errs = append(errs, errors.New("DUCKDB_PATH is required for the duckdb backend"))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown MEMORY_BACKEND %q", c.MemoryBackend))
	}

	return errors.Join(errs...)
}

// TelegramEnabled reports whether the bot front end should run
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != ""
}
