package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/propstack/buyer-intake/internal/api/router"
	"github.com/propstack/buyer-intake/internal/auth"
	"github.com/propstack/buyer-intake/internal/buyers"
	appconfig "github.com/propstack/buyer-intake/internal/config"
	"github.com/propstack/buyer-intake/internal/history"
	"github.com/propstack/buyer-intake/internal/observability/metrics"
	"github.com/propstack/buyer-intake/internal/ratelimit"
	"github.com/propstack/buyer-intake/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting buyer-intake API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	if cfg.SessionSecret == "" {
		if cfg.Env != "development" {
			logger.Error("SESSION_SECRET is required outside development")
			os.Exit(1)
		}
		cfg.SessionSecret = "dev-only-secret"
		logger.Warn("SESSION_SECRET not set, using development default")
	}

	// Storage: Postgres when configured, in-memory otherwise.
	var (
		repo buyers.Repository
		hist buyers.HistoryLister
	)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open history db handle", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		repo = buyers.NewPostgresRepository(pool)
		hist = history.NewService(db)
		logger.Info("using postgres lead store")
	} else {
		mem := buyers.NewMemoryRepository()
		repo = mem
		hist = mem
		logger.Warn("DATABASE_URL not set, using in-memory lead store")
	}

	var counter ratelimit.Counter
	if cfg.RateLimitBackend == "redis" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		client := redis.NewClient(opts)
		defer client.Close()
		counter = ratelimit.NewRedisCounter(client)
		logger.Info("using redis rate limit counter", "addr", cfg.RedisAddr)
	} else {
		counter = ratelimit.NewMemoryCounter()
	}

	buyerMetrics := metrics.NewBuyerMetrics(nil)
	limiter := ratelimit.New(counter, cfg.RateLimitMax, cfg.RateLimitWindow, logger)
	limiter.OnLimited = buyerMetrics.ObserveRateLimited

	sessions := auth.NewSessions(cfg.SessionSecret, cfg.SessionTTL)
	importer := buyers.NewImporter(repo, cfg.ImportMaxRows)

	r := router.New(&router.Config{
		Logger:             logger,
		BuyersHandler:      buyers.NewHandler(repo, importer, hist, buyerMetrics, logger),
		AuthHandler:        auth.NewHandler(sessions, logger),
		Sessions:           sessions,
		RateLimiter:        limiter,
		MetricsHandler:     promhttp.Handler(),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}
