package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/folio/backend/internal/engine"
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a portfolio",
	Long: `Replay the portfolio ledger and print positions, performance and
risk metrics, optionally against a benchmark.

Example:
  go run ./cmd/folio analyze --portfolio p1
  go run ./cmd/folio analyze --portfolio p1 --benchmark SPY.US --start 2024-01-01`,
	RunE: runAnalyze,
}

var (
	analyzePortfolio string
	analyzeBenchmark string
	analyzeStart     string
	analyzeEnd       string
)

func init() {
	rootCmd.AddCommand(analyzeCmd)

	// Flags
	analyzeCmd.Flags().StringVar(&analyzePortfolio, "portfolio", "", "portfolio ID (required)")
	analyzeCmd.Flags().StringVar(&analyzeBenchmark, "benchmark", "", "benchmark symbol for beta and comparison")
	analyzeCmd.Flags().StringVar(&analyzeStart, "start", "", "period start (YYYY-MM-DD)")
	analyzeCmd.Flags().StringVar(&analyzeEnd, "end", "", "period end (YYYY-MM-DD)")
	analyzeCmd.MarkFlagRequired("portfolio")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Folio Portfolio Analysis ===")

	application, cleanup, err := buildApp()
	if err != nil {
		return err
	}
	defer cleanup()

	period, err := flagPeriod(analyzeStart, analyzeEnd)
	if err != nil {
		return err
	}

	ctx := context.Background()

	// Positions
	positions, err := application.engine.Positions(ctx, analyzePortfolio)
	if err != nil {
		return fmt.Errorf("positions: %w", err)
	}

	fmt.Printf("\nPositions (%d)\n", len(positions))
	fmt.Println("----------------------------------------------------------------")
	fmt.Printf("%-10s %12s %12s %14s %14s\n", "SYMBOL", "QTY", "AVG COST", "VALUE", "UNREAL P&L")
	for _, p := range positions {
		fmt.Printf("%-10s %12.4f %12.2f %14.2f %14.2f\n",
			p.Symbol, p.Quantity, p.AverageCost, p.MarketValue, p.UnrealizedPnL)
	}

	// Performance
	perf, err := application.engine.Performance(ctx, analyzePortfolio, period)
	if err != nil {
		return fmt.Errorf("performance: %w", err)
	}

	fmt.Println("\nPerformance")
	fmt.Println("----------------------------------------------------------------")
	fmt.Printf("%-22s %s .. %s\n", "Period:", perf.StartDate.Format("2006-01-02"), perf.EndDate.Format("2006-01-02"))
	fmt.Printf("%-22s %.2f (%.2f%%)\n", "Total return:", perf.TotalReturn, perf.TotalReturnPct)
	fmt.Printf("%-22s %.2f%%\n", "Annualized:", perf.AnnualizedReturn*100)
	fmt.Printf("%-22s %.2f%% on %s\n", "Best day:", perf.BestDayPct, perf.BestDayDate.Format("2006-01-02"))
	fmt.Printf("%-22s %.2f%% on %s\n", "Worst day:", perf.WorstDayPct, perf.WorstDayDate.Format("2006-01-02"))
	fmt.Printf("%-22s %.1f%%\n", "Win rate:", perf.WinRate)

	// Risk
	risk, err := application.engine.RiskReport(ctx, analyzePortfolio, analyzeBenchmark, period)
	if err != nil {
		return fmt.Errorf("risk: %w", err)
	}

	fmt.Println("\nRisk")
	fmt.Println("----------------------------------------------------------------")
	fmt.Printf("%-22s %.2f%%\n", "Volatility (ann.):", risk.Volatility*100)
	fmt.Printf("%-22s %.2f\n", "Sharpe:", risk.Sharpe)
	fmt.Printf("%-22s %.2f%% on %s\n", "Max drawdown:", risk.MaxDrawdown, risk.MaxDrawdownDate.Format("2006-01-02"))
	fmt.Printf("%-22s %.2f%%\n", "VaR 95 (daily):", risk.ValueAtRisk95)
	if risk.Beta != nil {
		fmt.Printf("%-22s %.2f vs %s\n", "Beta:", *risk.Beta, risk.BetaBenchmark)
	} else {
		fmt.Printf("%-22s n/a\n", "Beta:")
	}

	// Benchmark comparison
	if analyzeBenchmark != "" {
		cmp, err := application.engine.CompareBenchmark(ctx, analyzePortfolio, analyzeBenchmark, period)
		if err != nil {
			return fmt.Errorf("benchmark comparison: %w", err)
		}

		fmt.Println("\nBenchmark")
		fmt.Println("----------------------------------------------------------------")
		fmt.Printf("%-22s %s since %s\n", "Symbol:", cmp.BenchmarkSymbol, cmp.StartDate.Format("2006-01-02"))
		fmt.Printf("%-22s %.2f%%\n", "Alpha:", cmp.Alpha)
		if cmp.Correlation != nil {
			fmt.Printf("%-22s %.3f\n", "Correlation:", *cmp.Correlation)
		}
	}

	return nil
}

// flagPeriod parses optional --start/--end flags into an engine period
func flagPeriod(start, end string) (engine.Period, error) {
	var period engine.Period

	if start != "" {
		t, err := time.Parse("2006-01-02", start)
		if err != nil {
			return period, fmt.Errorf("invalid --start: %w", err)
		}
		period.Start = t
	}
	if end != "" {
		t, err := time.Parse("2006-01-02", end)
		if err != nil {
			return period, fmt.Errorf("invalid --end: %w", err)
		}
		period.End = t
	}
	return period, nil
}
