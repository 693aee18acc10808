package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	database "github.com/FACorreiaa/go-blog-api/app/db"
	appLogger "github.com/FACorreiaa/go-blog-api/app/logger"
	appMiddleware "github.com/FACorreiaa/go-blog-api/app/middleware"
	"github.com/FACorreiaa/go-blog-api/app/observability/metrics"
	"github.com/FACorreiaa/go-blog-api/app/tracer"
	"github.com/FACorreiaa/go-blog-api/config"
	"github.com/FACorreiaa/go-blog-api/internal/container"
)

const shutdownTimeout = 10 * time.Second

// @title           Blog API
// @version         1.0
// @description     Accounts, posts and comments behind a signed cookie session.
// @host            localhost:3000
// @BasePath        /api
// @securityDefinitions.apikey CookieAuth
// @in              cookie
// @name            access_token
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found or error loading:", err)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("FATAL: Error initializing config: %v", err)
	}

	logger := appLogger.New(cfg.Mode, os.Stdout)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("Application stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Application shut down complete.")
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	providers, err := tracer.InitTracingAndMetrics()
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		defer done()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Error("Telemetry shutdown failed", slog.Any("error", err))
		}
	}()
	metrics.InitAppMetrics()
	appMetrics := metrics.Get()

	dbConfig, err := database.NewDatabaseConfig(&cfg, logger)
	if err != nil {
		return fmt.Errorf("database config: %w", err)
	}
	// Run migrations before initializing the main pool
	if err := database.RunMigrations(dbConfig.ConnectionURL, logger); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	pool, err := database.Init(dbConfig.ConnectionURL, logger)
	if err != nil {
		return fmt.Errorf("database pool: %w", err)
	}

	c, err := container.NewContainer(&cfg, logger, pool, pool, appMetrics)
	if err != nil {
		pool.Close()
		return err
	}
	defer c.Close()

	if !c.WaitForDB(ctx) {
		return errors.New("database not ready after waiting")
	}

	apiServer := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.HTTPPort),
		Handler:      newHandler(c, cfg.Server.Timeout),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.Server.Timeout + 5*time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", providers.MetricsHandler)
	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Handlers.Prometheus.Port),
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("server", "api"), slog.String("address", apiServer.Addr),
			slog.Bool("tls", cfg.Server.EnableTLS))
		var err error
		if cfg.Server.EnableTLS {
			err = apiServer.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile)
		} else {
			err = apiServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("server", "metrics"), slog.String("address", metricsServer.Addr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received, starting graceful shutdown...")
		shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
		defer done()
		return errors.Join(apiServer.Shutdown(shutdownCtx), metricsServer.Shutdown(shutdownCtx))
	})
	return g.Wait()
}

// newHandler applies the server wide middleware around the API routes.
func newHandler(c *container.Container, timeout time.Duration) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(appLogger.StructuredLogger(c.Logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.StripSlashes)
	router.Use(middleware.Timeout(timeout))
	router.Use(appMiddleware.Metrics(c.Metrics))
	router.Mount("/", c.Router())
	return router
}
