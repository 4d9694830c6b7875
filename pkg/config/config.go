// Package config loads runtime settings from the environment, with .env
// support for local development.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config is the full runtime configuration. Every field maps to one
// environment variable.
type Config struct {
	// DocsRoot is the folder holding the MM-YYYY period directories.
	DocsRoot string
	// OutputDir receives comparison report text files.
	OutputDir string

	LLMProvider    string // "gemini" or "deepseek"
	GeminiAPIKey   string
	DeepSeekAPIKey string
	Model          string
	EmbeddingModel string

	DatabaseURL string

	ListingsURL string
	Exchange    string
	PricesURL   string

	Workers  int
	LogLevel string
	LogJSON  bool
}

// Load reads the environment, first merging a .env file when one is present.
func Load() (*Config, error) {
	// Missing .env is fine; real deployments set variables directly.
	_ = godotenv.Load()

	cfg := &Config{
		DocsRoot:       getEnv("DOCS_ROOT", "documents"),
		OutputDir:      getEnv("OUTPUT_DIR", "comparison_results"),
		LLMProvider:    getEnv("LLM_PROVIDER", "gemini"),
		GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
		DeepSeekAPIKey: os.Getenv("DEEPSEEK_API_KEY"),
		Model:          os.Getenv("LLM_MODEL"),
		EmbeddingModel: os.Getenv("EMBEDDING_MODEL"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		ListingsURL:    os.Getenv("LISTINGS_URL"),
		Exchange:       getEnv("EXCHANGE", ""),
		PricesURL:      os.Getenv("PRICES_URL"),
		Workers:        getEnvInt("WORKERS", 1),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogJSON:        getEnvBool("LOG_JSON", false),
	}

	switch cfg.LLMProvider {
	case "gemini":
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY not set")
		}
	case "deepseek":
		if cfg.DeepSeekAPIKey == "" {
			return nil, fmt.Errorf("DEEPSEEK_API_KEY not set")
		}
	default:
		return nil, fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
