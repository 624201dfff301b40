package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// backfillCmd represents the backfill command
var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Backfill price history",
	Long: `Fetch and store daily price history from the configured providers.

Without --symbols, every symbol referenced by the ledger is backfilled.

Example:
  go run ./cmd/folio backfill --from 2024-01-01
  go run ./cmd/folio backfill --symbols AAPL.US,SPY.US --from 2024-01-01 --to 2024-12-31`,
	RunE: runBackfill,
}

var (
	backfillSymbols string
	backfillFrom    string
	backfillTo      string
)

func init() {
	rootCmd.AddCommand(backfillCmd)

	// Flags
	backfillCmd.Flags().StringVar(&backfillSymbols, "symbols", "", "comma-separated symbols (default: all ledger symbols)")
	backfillCmd.Flags().StringVar(&backfillFrom, "from", "", "range start (YYYY-MM-DD, required)")
	backfillCmd.Flags().StringVar(&backfillTo, "to", "", "range end (YYYY-MM-DD, default today)")
	backfillCmd.MarkFlagRequired("from")
}

func runBackfill(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Folio Price Backfill ===")

	from, err := time.Parse("2006-01-02", backfillFrom)
	if err != nil {
		return fmt.Errorf("invalid --from: %w", err)
	}

	to := time.Now().UTC()
	if backfillTo != "" {
		if to, err = time.Parse("2006-01-02", backfillTo); err != nil {
			return fmt.Errorf("invalid --to: %w", err)
		}
	}

	application, cleanup, err := buildApp()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := context.Background()

	var symbols []string
	if backfillSymbols != "" {
		for _, s := range strings.Split(backfillSymbols, ",") {
			if s = strings.TrimSpace(s); s != "" {
				symbols = append(symbols, s)
			}
		}
	} else {
		ids, err := application.ledger.ListPortfolioIDs(ctx)
		if err != nil {
			return fmt.Errorf("list portfolios: %w", err)
		}
		seen := make(map[string]bool)
		for _, id := range ids {
			list, err := application.ledger.ListSymbols(ctx, id)
			if err != nil {
				return fmt.Errorf("list symbols: %w", err)
			}
			for _, s := range list {
				if !seen[s] {
					seen[s] = true
					symbols = append(symbols, s)
				}
			}
		}
	}

	if len(symbols) == 0 {
		fmt.Println("Nothing to backfill")
		return nil
	}

	fmt.Printf("Backfilling %d symbols from %s to %s\n",
		len(symbols), from.Format("2006-01-02"), to.Format("2006-01-02"))

	total, failures := application.prices.Backfill(ctx, symbols, from, to)

	fmt.Printf("\nFetched %d points\n", total)
	for symbol, err := range failures {
		fmt.Printf("  failed %-12s %v\n", symbol, err)
	}

	if len(failures) == len(symbols) {
		return fmt.Errorf("backfill failed for all symbols")
	}
	return nil
}
