package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/folio/backend/internal/engine"
)

// projectCmd represents the project command
var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Run a Monte Carlo goal projection",
	Long: `Simulate whether the portfolio can reach a target amount, using
drift and volatility estimated from its own history.

Example:
  go run ./cmd/folio project --portfolio p1 --target 100000
  go run ./cmd/folio project --portfolio p1 --target 100000 --monthly 500 --by 2035-01-01`,
	RunE: runProject,
}

var (
	projectPortfolio string
	projectTarget    float64
	projectMonthly   float64
	projectBy        string
)

func init() {
	rootCmd.AddCommand(projectCmd)

	// Flags
	projectCmd.Flags().StringVar(&projectPortfolio, "portfolio", "", "portfolio ID (required)")
	projectCmd.Flags().Float64Var(&projectTarget, "target", 0, "target amount in base currency (required)")
	projectCmd.Flags().Float64Var(&projectMonthly, "monthly", 0, "monthly contribution")
	projectCmd.Flags().StringVar(&projectBy, "by", "", "target date (YYYY-MM-DD, default ten years out)")
	projectCmd.MarkFlagRequired("portfolio")
	projectCmd.MarkFlagRequired("target")
}

func runProject(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Folio Goal Projection ===")

	if projectTarget <= 0 {
		return fmt.Errorf("--target must be positive")
	}

	application, cleanup, err := buildApp()
	if err != nil {
		return err
	}
	defer cleanup()

	req := engine.GoalRequest{
		TargetAmount:        projectTarget,
		MonthlyContribution: projectMonthly,
	}
	if projectBy != "" {
		date, err := time.Parse("2006-01-02", projectBy)
		if err != nil {
			return fmt.Errorf("invalid --by: %w", err)
		}
		req.TargetDate = &date
	}

	result, err := application.engine.ProjectGoal(context.Background(), projectPortfolio, req)
	if err != nil {
		return fmt.Errorf("projection: %w", err)
	}

	fmt.Println("\nProjection")
	fmt.Println("----------------------------------------------------------------")
	fmt.Printf("%-22s %s\n", "Run:", result.RunID)
	fmt.Printf("%-22s %.2f\n", "Current value:", result.CurrentValue)
	fmt.Printf("%-22s %.2f by %s (%d months)\n", "Target:", result.TargetAmount,
		result.TargetDate.Format("2006-01-02"), result.HorizonMonths)
	fmt.Printf("%-22s %.1f%%\n", "Probability:", result.Probability*100)
	fmt.Printf("%-22s %.1f%% return, %.1f%% volatility", "Parameters:",
		result.ExpectedReturn*100, result.Volatility*100)
	if result.UsedFallbackParams {
		fmt.Print(" (defaults, history too thin)")
	}
	fmt.Println()

	if result.PastTargetDate {
		fmt.Println("\nWarning: target date is in the past")
	}

	if len(result.Scenarios) > 0 {
		fmt.Println("\nScenarios")
		fmt.Println("----------------------------------------------------------------")
		for _, s := range result.Scenarios {
			fmt.Printf("%-14s %14.2f  (%.1f%%/yr implied)\n", s.Label+":", s.FinalValue, s.ImpliedAnnualRate*100)
		}
	}

	fmt.Println("\nMilestones")
	fmt.Println("----------------------------------------------------------------")
	for _, m := range result.Milestones {
		mark := " "
		if m.Achieved {
			mark = "x"
		}
		fmt.Printf("[%s] %3d%%  %14.2f\n", mark, m.Pct, m.Amount)
	}

	return nil
}
