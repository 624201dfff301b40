package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "folio",
	Short: "Folio - portfolio valuation and risk analytics engine",
	Long: `Folio Unified CLI

Ledger-driven portfolio analytics: positions, valuation history,
performance and risk metrics, benchmark comparison and Monte Carlo
goal projections.

Usage:
  go run ./cmd/folio [command]

Examples:
  go run ./cmd/folio api
  go run ./cmd/folio analyze --portfolio p1
  go run ./cmd/folio project --portfolio p1 --target 100000
  go run ./cmd/folio backfill --symbols AAPL.US,SPY.US --from 2024-01-01
  go run ./cmd/folio status`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
