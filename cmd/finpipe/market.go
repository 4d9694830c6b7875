package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"disclosure_pipeline/pkg/core/dividends"
	"disclosure_pipeline/pkg/core/fundamentals"
	"disclosure_pipeline/pkg/core/listings"
	"disclosure_pipeline/pkg/core/prices"
	"disclosure_pipeline/pkg/core/ratios"
	"disclosure_pipeline/pkg/core/store"
	"disclosure_pipeline/pkg/core/update"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		pool, err := connectDB(cmd.Context())
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := store.EnsureSchema(cmd.Context(), pool); err != nil {
			return err
		}
		fmt.Println("schema ready")
		return nil
	},
}

var pricesCmd = &cobra.Command{
	Use:   "prices",
	Short: "Refresh price history for every tracked security",
	RunE: func(cmd *cobra.Command, args []string) error {
		pool, err := connectDB(cmd.Context())
		if err != nil {
			return err
		}
		defer pool.Close()

		exchange, _ := cmd.Flags().GetString("exchange")
		if exchange == "" {
			exchange = cfg.Exchange
		}

		client := prices.NewClient(cfg.PricesURL, log)
		retrier := update.NewRetrier(update.DefaultRetryPolicy(), log)
		lister := &exchangeLister{repo: store.NewSecurityRepo(pool), exchange: exchange}
		manager := update.NewPriceUpdateManager(lister, client, store.NewPriceRepo(pool), retrier, log)

		stats, err := manager.Run(cmd.Context())
		if stats != nil {
			fmt.Printf("run %s: %d/%d updated (%.0f%%) in %s\n",
				stats.RunID, stats.Processed, stats.TotalRecords,
				stats.SuccessRate()*100, stats.Duration.Round(time.Second))
			if len(stats.FailedItems) > 0 {
				fmt.Printf("failed: %v\n", stats.FailedItems)
			}
		}
		return err
	},
}

func init() {
	pricesCmd.Flags().String("exchange", "", "limit the refresh to one exchange (default EXCHANGE)")
}

var ratiosCmd = &cobra.Command{
	Use:   "ratios [ticker]",
	Short: "Recalculate financial ratios",
	Long:  "Recalculate ratios for one ticker, or for every tracked security when no ticker is given.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		pool, err := connectDB(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		securities := store.NewSecurityRepo(pool)
		calc := ratios.NewCalculator(
			store.NewPriceRepo(pool),
			store.NewFundamentalsRepo(pool),
			store.NewDividendRepo(pool),
			store.NewRatioRepo(pool),
			log)

		if len(args) == 1 {
			sec, err := securities.ByTicker(ctx, args[0])
			if err != nil {
				return err
			}
			if sec == nil {
				return fmt.Errorf("unknown ticker %s", args[0])
			}
			snap, err := calc.CalculateAndStore(ctx, sec.ID)
			if err != nil {
				return fmt.Errorf("ratios for %s: %w", sec.Ticker, err)
			}
			if snap == nil {
				fmt.Printf("%s skipped for missing data\n", sec.Ticker)
				return nil
			}
			fmt.Printf("%s updated for %s\n", sec.Ticker, snap.Date.Format("2006-01-02"))
			return nil
		}

		batch := update.NewRatioBatch(securities, calc, log)
		stats, err := batch.Run(ctx)
		if stats != nil {
			fmt.Printf("%d securities updated, %d skipped for missing data, %d failed\n",
				stats.Processed, stats.Skipped, stats.Failed)
			if len(stats.FailedItems) > 0 {
				fmt.Printf("failed: %v\n", stats.FailedItems)
			}
		}
		return err
	},
}

var listingsCmd = &cobra.Command{
	Use:   "listings",
	Short: "Sync the securities table from the exchange listings page",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.ListingsURL == "" {
			return fmt.Errorf("LISTINGS_URL not set")
		}
		pool, err := connectDB(cmd.Context())
		if err != nil {
			return err
		}
		defer pool.Close()

		scraper := listings.NewScraper(cfg.ListingsURL, cfg.Exchange, log)
		n, err := scraper.Refresh(cmd.Context(), store.NewSecurityRepo(pool))
		if err != nil {
			return err
		}
		fmt.Printf("%d listings synced\n", n)
		return nil
	},
}

var dividendsCmd = &cobra.Command{
	Use:   "dividends [file.csv]",
	Short: "Import dividend events from a CSV export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pool, err := connectDB(cmd.Context())
		if err != nil {
			return err
		}
		defer pool.Close()

		importer := dividends.NewImporter(
			store.NewSecurityRepo(pool), store.NewDividendRepo(pool), log)
		stats, err := importer.ImportFile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%d events imported, %d rows skipped\n", stats.Imported, stats.Skipped)
		return nil
	},
}

var fundamentalsCmd = &cobra.Command{
	Use:   "fundamentals [file.csv]",
	Short: "Import quarterly fundamentals from a CSV export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pool, err := connectDB(cmd.Context())
		if err != nil {
			return err
		}
		defer pool.Close()

		importer := fundamentals.NewImporter(
			store.NewSecurityRepo(pool), store.NewFundamentalsRepo(pool), log)
		stats, err := importer.ImportFile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%d quarters imported, %d rows skipped\n", stats.Imported, stats.Skipped)
		return nil
	},
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the price and ratio jobs on a cron schedule",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		pool, err := connectDB(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		client := prices.NewClient(cfg.PricesURL, log)
		retrier := update.NewRetrier(update.DefaultRetryPolicy(), log)
		securities := store.NewSecurityRepo(pool)
		manager := update.NewPriceUpdateManager(securities, client, store.NewPriceRepo(pool), retrier, log)
		calc := ratios.NewCalculator(
			store.NewPriceRepo(pool),
			store.NewFundamentalsRepo(pool),
			store.NewDividendRepo(pool),
			store.NewRatioRepo(pool),
			log)

		pricesSpec, _ := cmd.Flags().GetString("prices-cron")
		ratiosSpec, _ := cmd.Flags().GetString("ratios-cron")

		sched := update.NewScheduler(log)
		sched.MaxFailures, _ = cmd.Flags().GetInt("max-failures")
		if err := sched.AddGatedJob(pricesSpec, "prices", tradingDay, func(ctx context.Context) error {
			_, err := manager.Run(ctx)
			return err
		}); err != nil {
			return err
		}
		ratioBatch := update.NewRatioBatch(securities, calc, log)
		if err := sched.AddJob(ratiosSpec, "ratios", func(ctx context.Context) error {
			_, err := ratioBatch.Run(ctx)
			return err
		}); err != nil {
			return err
		}

		sched.Start()
		defer sched.Stop()

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sig:
		case <-ctx.Done():
		}
		fmt.Println("shutting down")
		return nil
	},
}

// tradingDay gates the price job so a loose cron spec never fires the
// venue's API on a weekend.
func tradingDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

func init() {
	scheduleCmd.Flags().String("prices-cron", "0 18 * * 1-5", "cron spec for the price refresh job")
	scheduleCmd.Flags().String("ratios-cron", "30 18 * * 1-5", "cron spec for the ratio recalculation job")
	scheduleCmd.Flags().Int("max-failures", 5, "pause a job after this many consecutive failures (0 = never)")
}
