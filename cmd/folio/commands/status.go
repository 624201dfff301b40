package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check infrastructure health",
	Long: `Check connectivity to Postgres and Redis and summarize what the
ledger and price store contain.

Example:
  go run ./cmd/folio status`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Folio Status ===")

	application, cleanup, err := buildApp()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Database
	fmt.Println("\nDatabase")
	fmt.Println("----------------------------------------------------------------")
	health, err := application.db.HealthCheck(ctx)
	if err != nil {
		fmt.Printf("%-15s unreachable (%v)\n", "Postgres:", err)
	} else {
		fmt.Printf("%-15s ok (%v)\n", "Postgres:", health.ResponseTime)
		stats := application.db.Stats()
		fmt.Printf("%-15s %d/%d in use\n", "Pool:", stats.AcquiredConns, stats.TotalConns)
	}

	// Redis
	fmt.Println("\nCache")
	fmt.Println("----------------------------------------------------------------")
	if application.redis.Enabled() {
		if err := application.redis.Redis().Ping(ctx).Err(); err != nil {
			fmt.Printf("%-15s unreachable (%v)\n", "Redis:", err)
		} else {
			fmt.Printf("%-15s ok\n", "Redis:")
		}
	} else {
		fmt.Printf("%-15s disabled\n", "Redis:")
	}

	// Ledger
	fmt.Println("\nLedger")
	fmt.Println("----------------------------------------------------------------")
	ids, err := application.ledger.ListPortfolioIDs(ctx)
	if err != nil {
		fmt.Printf("%-15s query failed (%v)\n", "Portfolios:", err)
		return nil
	}
	fmt.Printf("%-15s %d\n", "Portfolios:", len(ids))
	for _, id := range ids {
		symbols, err := application.ledger.ListSymbols(ctx, id)
		if err != nil {
			continue
		}
		fmt.Printf("  %-13s %d symbols\n", id, len(symbols))
	}

	return nil
}
