package commands

import (
	"fmt"

	"github.com/joho/godotenv"

	"github.com/wonny/folio/backend/internal/engine"
	"github.com/wonny/folio/backend/internal/fx"
	"github.com/wonny/folio/backend/internal/ledger"
	"github.com/wonny/folio/backend/internal/marketdata"
	"github.com/wonny/folio/backend/pkg/config"
	"github.com/wonny/folio/backend/pkg/database"
	"github.com/wonny/folio/backend/pkg/httputil"
	"github.com/wonny/folio/backend/pkg/logger"
	"github.com/wonny/folio/backend/pkg/redis"
)

// app holds the wired application graph shared by the CLI commands
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	db       *database.DB
	redis    *redis.Client
	ledger   *ledger.Repository
	prices   *marketdata.Service
	currency *marketdata.CurrencyService
	engine   *engine.Service
}

// buildApp wires config, storage, providers and the analytics engine.
// Callers must invoke close() when done.
func buildApp() (*app, func(), error) {
	// 1. Load config; an explicit --config file takes precedence over the
	// default .env lookup
	if configFile != "" {
		if err := godotenv.Load(configFile); err != nil {
			return nil, nil, fmt.Errorf("load config file %s: %w", configFile, err)
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Connect to database
	db, err := database.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	// 4. Connect to Redis (no-op client when disabled)
	redisClient, err := redis.New(cfg)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("connect to redis: %w", err)
	}
	cache := redis.NewCache(redisClient, "folio")

	// 5. Create HTTP client with the provider request budget
	httpClient := httputil.NewWithTimeout(log, cfg.MarketData.RequestTimeout).
		WithRateLimit(cfg.MarketData.RatePerSecond, cfg.MarketData.RateBurst)

	// 6. Create providers
	stooq := marketdata.NewStooqProvider(httpClient, cfg.MarketData.StooqBaseURL, log)
	scraper := marketdata.NewScrapeProvider(httpClient, cfg.MarketData.ScrapeBaseURL, log)

	// 7. Create repositories and services
	ledgerRepo := ledger.NewRepository(db.Pool, log)
	priceRepo := marketdata.NewPriceRepository(db.Pool)
	fxRepo := marketdata.NewFXRepository(db.Pool)

	prices := marketdata.NewService(
		priceRepo,
		[]marketdata.HistoryProvider{stooq, scraper},
		scraper,
		cache,
		log,
	)
	currency := marketdata.NewCurrencyService(fxRepo, stooq, log)
	normalizer := fx.NewNormalizer(currency, cache, redis.TTLLong, log)

	// 8. Create the analytics engine
	eng := engine.NewService(ledgerRepo, prices, normalizer, cache, cfg.Analytics, log)

	cleanup := func() {
		redisClient.Close()
		db.Close()
	}

	return &app{
		cfg:      cfg,
		log:      log,
		db:       db,
		redis:    redisClient,
		ledger:   ledgerRepo,
		prices:   prices,
		currency: currency,
		engine:   eng,
	}, cleanup, nil
}
