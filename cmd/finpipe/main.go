// finpipe analyzes quarterly disclosure PDFs with retrieval-augmented LLM
// calls and maintains the market data behind the derived ratios.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"disclosure_pipeline/pkg/config"
	"disclosure_pipeline/pkg/core/llm"
	"disclosure_pipeline/pkg/core/store"
	"disclosure_pipeline/pkg/logger"
)

var (
	version = "dev"
	commit  = "unknown"
)

var (
	cfg *config.Config
	log zerolog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "finpipe",
	Short: "Quarterly disclosure analysis pipeline",
	Long: `finpipe walks a folder tree of quarterly disclosure PDFs, extracts
structured analyses with retrieval-augmented LLM calls, compares risk
sections year over year, and keeps prices, dividends and derived
financial ratios up to date.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.LogLevel = lvl
		}
		log = logger.New(logger.Config{Level: cfg.LogLevel, Pretty: !cfg.LogJSON})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(pricesCmd)
	rootCmd.AddCommand(ratiosCmd)
	rootCmd.AddCommand(listingsCmd)
	rootCmd.AddCommand(dividendsCmd)
	rootCmd.AddCommand(fundamentalsCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(scheduleCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("finpipe %s (%s)\n", version, commit)
	},
}

// buildProviders returns the completion provider and the embedder. DeepSeek
// has no embedding endpoint, so Gemini always handles embeddings.
func buildProviders() (llm.Provider, llm.Embedder, error) {
	embedder := &llm.GeminiProvider{
		APIKey:         cfg.GeminiAPIKey,
		EmbeddingModel: cfg.EmbeddingModel,
	}

	switch cfg.LLMProvider {
	case "gemini":
		return &llm.GeminiProvider{
			APIKey:         cfg.GeminiAPIKey,
			Model:          cfg.Model,
			EmbeddingModel: cfg.EmbeddingModel,
		}, embedder, nil
	case "deepseek":
		if cfg.GeminiAPIKey == "" {
			return nil, nil, fmt.Errorf("deepseek provider still needs GEMINI_API_KEY for embeddings")
		}
		return &llm.DeepSeekProvider{APIKey: cfg.DeepSeekAPIKey, Model: cfg.Model}, embedder, nil
	default:
		return nil, nil, fmt.Errorf("unknown LLM provider %q", cfg.LLMProvider)
	}
}

func connectDB(ctx context.Context) (*pgxpool.Pool, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL not set")
	}
	return store.Connect(ctx, cfg.DatabaseURL)
}
