package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/valutatrade/valutahub/internal/adapters/ratesource"
	"github.com/valutatrade/valutahub/internal/core/domain"
	"github.com/valutatrade/valutahub/internal/core/ports"
	"github.com/valutatrade/valutahub/internal/core/services"
	"github.com/valutatrade/valutahub/internal/handlers"
	"github.com/valutatrade/valutahub/internal/middleware"
	"github.com/valutatrade/valutahub/internal/platform/config"
	"github.com/valutatrade/valutahub/internal/platform/metrics"
	"github.com/valutatrade/valutahub/internal/repositories/database/pgsql"
	"github.com/valutatrade/valutahub/pkg/database"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	dbPool, err := database.NewPgxPool(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.ClosePgxPool(dbPool)

	if err := runMigrations(cfg, logger); err != nil {
		logger.Error("Failed to run migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	container, refresher, err := buildServices(cfg, dbPool, logger)
	if err != nil {
		logger.Error("Failed to build services", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := refresher.Start(); err != nil {
		logger.Error("Failed to start refresh scheduler", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer refresher.Stop()

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Accept", "Authorization", "Content-Type"},
		ExposeHeaders: []string{"X-Request-ID"},
	}))
	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	rate, err := limiter.NewRateFromFormatted(cfg.RateLimit)
	if err != nil {
		logger.Error("Invalid rate limit format", slog.String("error", err.Error()))
		os.Exit(1)
	}
	limiterInstance := limiter.New(memory.NewStore(), rate)

	handlers.RegisterCustomValidators()
	handlers.RegisterRoutes(r, cfg, container, limiterInstance)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}

	go func() {
		logger.Info("Server starting", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed to run", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", slog.String("error", err.Error()))
	}
}

// buildServices wires repositories, the currency registry, rate sources and
// the core services into the handler-facing container.
func buildServices(cfg *config.Config, dbPool *pgxpool.Pool, logger *slog.Logger) (*ports.ServiceContainer, *services.RefreshService, error) {
	rateRepo := pgsql.NewPgxRateRepository(dbPool)
	portfolioRepo := pgsql.NewPgxPortfolioRepository(dbPool)
	userRepo := pgsql.NewPgxUserRepository(dbPool)

	registry, err := services.NewCurrencyRegistry(domain.DefaultCurrencies())
	if err != nil {
		return nil, nil, err
	}

	rateCache := services.NewRateCacheService(rateRepo, cfg.RatesTTL, logger)
	if err := rateCache.Warm(context.Background()); err != nil {
		return nil, nil, err
	}

	sources := []ports.RateSource{
		ratesource.NewCoinGeckoSource(cfg.CoinGeckoURL, cfg.BaseCurrency, cfg.CryptoCoinIDs),
		ratesource.NewExchangeRateAPISource(cfg.ExchangeRateAPIURL, cfg.ExchangeRateAPIKey, cfg.BaseCurrency, cfg.FiatCurrencies),
	}
	refresher := services.NewRefreshService(
		sources,
		services.NewRateReconciler(logger),
		rateCache,
		cfg.SourceTimeout,
		cfg.RefreshInterval,
		metrics.NewRefreshMetrics(prometheus.DefaultRegisterer),
		logger,
	)

	container := &ports.ServiceContainer{
		Currency:  registry,
		RateCache: rateCache,
		Ledger:    services.NewLedgerService(portfolioRepo, registry, rateCache, logger),
		Refresh:   refresher,
		User:      services.NewUserService(userRepo, portfolioRepo, cfg.JWTSecret, cfg.JWTExpiryDuration, cfg.JWTIssuer, logger),
	}
	return container, refresher, nil
}

func runMigrations(cfg *config.Config, logger *slog.Logger) error {
	logger.Info("Running database migrations...")

	migrationDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := migrationDB.Close(); cerr != nil {
			logger.Error("Error closing migration DB connection", slog.String("error", cerr.Error()))
		}
	}()
	if err := migrationDB.Ping(); err != nil {
		return err
	}

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		return err
	}

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return err
	}
	sourceErr, dbErr := m.Close()
	if sourceErr != nil {
		return sourceErr
	}
	if dbErr != nil {
		return dbErr
	}

	if err == migrate.ErrNoChange {
		logger.Info("No new migrations to apply.")
	} else {
		logger.Info("Database migrations applied successfully.")
	}
	return nil
}
