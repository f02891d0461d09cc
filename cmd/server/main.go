// Command server is the work-queue service: it hosts the core pool
// behind a NATS submission bridge and an admin HTTP API.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"workqueue"
	"workqueue/internal/api"
	"workqueue/internal/auth"
	natsbridge "workqueue/internal/bridge/nats"
	"workqueue/internal/config"
	"workqueue/internal/db"
	"workqueue/internal/deadletter"
	"workqueue/internal/observability"
	"workqueue/internal/persistence"
	"workqueue/internal/ratelimit"
	"workqueue/process"
)

func main() {
	// A process-backend worker re-execs this same binary; it must never
	// fall through to the server bootstrap below.
	if process.MaybeRunWorker() {
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	jobLogger = logger
	logger.Info("starting workqueue service", zap.String("backend", cfg.WorkqueueBackend))

	shutdownOtel, err := observability.SetupOpenTelemetry("workqueue", logger)
	if err != nil {
		logger.Fatal("failed to set up opentelemetry", zap.Error(err))
	}
	defer shutdownOtel()

	metrics := observability.NewMetrics()

	ctx := context.Background()

	database, err := db.NewPostgres(ctx, cfg.PostgresURL)
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer database.Close()

	if err := database.RunMigrations("migrations"); err != nil {
		logger.Warn("failed to run migrations", zap.Error(err))
	}

	redisClient, err := persistence.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()

	deadLetters := deadletter.NewStore(database)
	installPanicReporter(deadLetters, metrics)

	wq, err := workqueue.New(cfg.WorkqueueBackend,
		workqueue.WithMaxWorkers(cfg.WorkqueueMaxWorkers),
		workqueue.WithTimeout(cfg.WorkqueueTimeoutSeconds),
	)
	if err != nil {
		logger.Fatal("failed to create work queue", zap.Error(err))
	}
	defer wq.Destroy()

	workqueue.Trace(observability.ZapTraceFunc(logger), nil)

	metricsStop := make(chan struct{})
	go sampleMetrics(wq, metrics, metricsStop)
	defer close(metricsStop)

	limiter := ratelimit.NewLimiter(redisClient, logger, cfg.RateLimitRPS, cfg.RateLimitBurst)

	bridge, err := natsbridge.Connect(cfg.NATSURL, wq, limiter, logger)
	if err != nil {
		logger.Fatal("failed to connect nats bridge", zap.Error(err))
	}
	defer bridge.Close()

	if err := bridge.Start(); err != nil {
		logger.Fatal("failed to start nats bridge", zap.Error(err))
	}

	authService := auth.NewService(cfg.AdminAPIKeyHash)
	handlers := api.NewHandlers(logger, wq, deadLetters, metrics)

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			logger.Error("fiber error", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
		},
	})

	api.SetupRoutes(app, logger, metrics, handlers, authService)

	go func() {
		if err := app.Listen(fmt.Sprintf(":%s", cfg.Port)); err != nil {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	logger.Info("workqueue service started", zap.String("port", cfg.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("failed to shut down gracefully", zap.Error(err))
	}

	logger.Info("workqueue service stopped")
}

// sampleMetrics periodically copies the pool's live Stat into the
// Prometheus gauges, matching Stat's own locking contract, until stop
// is closed.
func sampleMetrics(wq *workqueue.WorkQueue, metrics *observability.Metrics, stop <-chan struct{}) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			wq.Lock()
			metrics.Observe(wq.Stat())
			wq.Unlock()
		}
	}
}
