package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/folio/backend/internal/api"
	"github.com/wonny/folio/backend/internal/api/handlers"
	"github.com/wonny/folio/backend/internal/scheduler"
	"github.com/wonny/folio/backend/internal/scheduler/jobs"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long: `Start the REST API server with background jobs.

Endpoints:
  GET  /health                               - Health check
  GET  /api/portfolios/{id}/positions        - Current holdings
  GET  /api/portfolios/{id}/history          - Value time series
  GET  /api/portfolios/{id}/performance      - Return metrics
  GET  /api/portfolios/{id}/risk             - Risk metrics
  GET  /api/portfolios/{id}/benchmark        - Benchmark comparison
  GET  /api/portfolios/{id}/realized         - Realized gains
  POST /api/portfolios/{id}/projection       - Goal projection
  GET  /api/admin/jobs                       - Scheduler stats
  POST /api/admin/backfill                   - Manual price backfill

Example:
  go run ./cmd/folio api
  go run ./cmd/folio api --port 8090 --no-jobs`,
	RunE: runAPIServer,
}

var (
	apiPort string
	noJobs  bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (overrides PORT)")
	apiCmd.Flags().BoolVar(&noJobs, "no-jobs", false, "run without background jobs")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Folio API Server ===")

	application, cleanup, err := buildApp()
	if err != nil {
		return err
	}
	defer cleanup()

	cfg, log := application.cfg, application.log
	if apiPort != "" {
		cfg.Port = apiPort
	}

	log.WithFields(map[string]interface{}{
		"port": cfg.Port,
		"env":  cfg.Env,
	}).Info("Initializing API server")

	// Background jobs
	var sched *scheduler.Scheduler
	if !noJobs {
		sched = scheduler.New(log)
		for _, job := range []scheduler.Job{
			jobs.NewPriceBackfillJob(application.ledger, application.prices, log),
			jobs.NewFXRefreshJob(application.currency, nil, log),
			jobs.NewCacheWarmupJob(application.ledger, application.engine, log),
		} {
			if err := sched.AddJob(job); err != nil {
				return fmt.Errorf("schedule %s: %w", job.Name(), err)
			}
		}
		sched.Start()
		defer sched.Stop()
	}

	// Handlers and router
	portfolioHandler := handlers.NewPortfolioHandler(application.engine, log)
	adminHandler := handlers.NewAdminHandler(sched, application.prices, log)
	router := api.NewRouter(portfolioHandler, adminHandler, log)

	server := api.New(cfg, log, router)

	// Start server with graceful shutdown
	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("Failed to start server")
		}
	}()

	log.Info("API server started successfully")
	fmt.Printf("\nServer running on http://localhost:%s\n", cfg.Port)
	fmt.Println("Press Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
