package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"workqueue/internal/auth"
	"workqueue/internal/observability"
)

func SetupRoutes(
	app *fiber.App,
	logger *zap.Logger,
	metrics *observability.Metrics,
	handlers *Handlers,
	authService *auth.Service,
) {
	SetupMiddleware(app, logger, metrics)

	app.Get("/healthz", handlers.HealthCheck)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	admin := app.Group("", authService.RequireAPIKey())
	admin.Get("/stats", handlers.Stats)
	admin.Post("/submit", handlers.Submit)
	admin.Get("/dead-letters", handlers.DeadLetters)
}
