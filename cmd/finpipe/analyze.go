package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"disclosure_pipeline/pkg/core/analyzer"
	"disclosure_pipeline/pkg/core/compare"
	"disclosure_pipeline/pkg/core/period"
	"disclosure_pipeline/pkg/core/store"
	"disclosure_pipeline/pkg/core/update"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [ticker period]",
	Short: "Analyze disclosure filings",
	Long: `Analyze a single filing (finpipe analyze ABC 03-2024) or, with --all,
every filing under the document root that has no saved result yet.`,
	Args: cobra.RangeArgs(0, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		provider, embedder, err := buildProviders()
		if err != nil {
			return err
		}
		a := analyzer.New(provider, embedder, analyzer.Config{}, log)

		locator, err := period.NewLocator(cfg.DocsRoot)
		if err != nil {
			return err
		}

		all, _ := cmd.Flags().GetBool("all")
		if !all {
			if len(args) != 2 {
				return fmt.Errorf("expected TICKER and PERIOD, or --all")
			}
			return analyzeOne(cmd, locator, a, args[0], args[1])
		}

		dryRun, _ := cmd.Flags().GetBool("dry-run")
		workers, _ := cmd.Flags().GetInt("workers")
		if workers == 0 {
			workers = cfg.Workers
		}

		var sink update.ResultSink = &update.FileSink{Root: cfg.DocsRoot}
		if saveDB, _ := cmd.Flags().GetBool("save-db"); saveDB {
			pool, err := connectDB(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()
			sink = &dbResultSink{
				securities: store.NewSecurityRepo(pool),
				reports:    store.NewReportRepo(pool),
			}
		}

		retrier := update.NewRetrier(update.DefaultRetryPolicy(), log)
		batch := update.NewAnalysisBatch(locator, a, sink, retrier, log)
		batch.Workers = workers
		batch.DryRun = dryRun
		batch.StartYear, _ = cmd.Flags().GetInt("start-year")
		batch.EndYear, _ = cmd.Flags().GetInt("end-year")

		stats, err := batch.Run(ctx)
		if stats != nil {
			fmt.Printf("run %s: %d processed, %d skipped, %d failed in %s\n",
				stats.RunID, stats.Processed, stats.Skipped, stats.Failed, stats.Duration.Round(time.Second))
		}
		return err
	},
}

func analyzeOne(cmd *cobra.Command, locator *period.Locator, a *analyzer.Analyzer, ticker, periodName string) error {
	p, err := period.ParsePeriod(periodName)
	if err != nil {
		return err
	}
	path, found, err := locator.FindFiling(p, ticker)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("no filing for %s in %s", ticker, periodName)
	}

	var result *analyzer.FinancialAnalysis
	if reuse, _ := cmd.Flags().GetString("reuse-json"); reuse != "" {
		cached, cachedFound, err := analyzer.LoadJSON(reuse, ticker, periodName)
		if err != nil {
			return err
		}
		if cachedFound {
			result = cached
		}
	}
	if result == nil {
		result, err = a.Analyze(cmd.Context(), path)
		if err != nil {
			return err
		}
	}

	saved, err := analyzer.SaveJSON(cfg.DocsRoot, ticker, periodName, result)
	if err != nil {
		return err
	}
	fmt.Printf("analysis written to %s\n", saved)
	return nil
}

func init() {
	analyzeCmd.Flags().Bool("all", false, "analyze every filing without a saved result")
	analyzeCmd.Flags().Bool("dry-run", false, "list the work without calling the model")
	analyzeCmd.Flags().Int("workers", 0, "concurrent tickers (1-4, default from WORKERS)")
	analyzeCmd.Flags().String("reuse-json", "", "reuse a saved analysis JSON file or directory instead of calling the model")
	analyzeCmd.Flags().Int("start-year", 0, "only analyze periods from this year on")
	analyzeCmd.Flags().Int("end-year", 0, "only analyze periods up to this year")
}

var compareCmd = &cobra.Command{
	Use:   "compare [ticker earlier later]",
	Short: "Compare risk disclosures across periods",
	Long: `Compare one ticker's risk sections between two periods
(finpipe compare ABC 03-2023 06-2023) or, with --all, every consecutive
period pair for every ticker.`,
	Args: cobra.RangeArgs(0, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		provider, embedder, err := buildProviders()
		if err != nil {
			return err
		}
		c := compare.New(provider, embedder, compare.Config{}, log)

		locator, err := period.NewLocator(cfg.DocsRoot)
		if err != nil {
			return err
		}

		all, _ := cmd.Flags().GetBool("all")
		if !all {
			if len(args) != 3 {
				return fmt.Errorf("expected TICKER EARLIER LATER, or --all")
			}
			return compareOne(cmd, locator, c, args[0], args[1], args[2])
		}

		retrier := update.NewRetrier(update.DefaultRetryPolicy(), log)
		batch := update.NewComparisonBatch(locator, c, retrier, cfg.OutputDir, log)
		if saveDB, _ := cmd.Flags().GetBool("save-db"); saveDB {
			pool, err := connectDB(cmd.Context())
			if err != nil {
				return err
			}
			defer pool.Close()
			batch.WithSink(&dbComparisonSink{
				securities: store.NewSecurityRepo(pool),
				risks:      store.NewRiskRepo(pool),
			})
		}

		stats, err := batch.Run(cmd.Context())
		if stats != nil {
			fmt.Printf("run %s: %d compared, %d skipped, %d failed in %s\n",
				stats.RunID, stats.Processed, stats.Skipped, stats.Failed, stats.Duration.Round(time.Second))
		}
		return err
	},
}

func compareOne(cmd *cobra.Command, locator *period.Locator, c *compare.Comparator, ticker, earlierName, laterName string) error {
	earlier, err := period.ParsePeriod(earlierName)
	if err != nil {
		return err
	}
	later, err := period.ParsePeriod(laterName)
	if err != nil {
		return err
	}

	pathEarlier, found, err := locator.FindFiling(earlier, ticker)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("no filing for %s in %s", ticker, earlierName)
	}
	pathLater, found, err := locator.FindFiling(later, ticker)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("no filing for %s in %s", ticker, laterName)
	}

	result, err := c.Compare(cmd.Context(), pathEarlier, pathLater)
	if err != nil {
		return err
	}

	path, err := compare.WriteResultsFile(cfg.OutputDir, ticker, earlierName, laterName, result)
	if err != nil {
		return err
	}
	fmt.Printf("comparison written to %s\n", path)
	return nil
}

func init() {
	analyzeCmd.Flags().Bool("save-db", false, "store batch results in Postgres instead of result files")
	compareCmd.Flags().Bool("all", false, "compare every consecutive period pair")
	compareCmd.Flags().Bool("save-db", false, "also store comparisons in Postgres")
}
