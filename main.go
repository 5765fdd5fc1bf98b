package main

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"shopfloor/config"
	"shopfloor/middleware"
	"shopfloor/routes"
	"shopfloor/utils"
	"shopfloor/worker"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Error reporting is optional; without a DSN sentry calls are no-ops
	if config.AppConfig.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:         config.AppConfig.SentryDSN,
			Environment: config.AppConfig.Environment,
		}); err != nil {
			logger.Fatalf("Failed to initialize sentry: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	// Initialize database connection
	if err := config.ConnectDB(); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cross-instance cache invalidation bus, only when Redis is configured
	var bus *utils.InvalidationBus
	if config.AppConfig.Redis.Enabled {
		bus = utils.NewInvalidationBus(config.AppConfig.Redis)
		go bus.Listen(ctx)
		defer bus.Close()
	}

	services := routes.NewServices(config.DB, bus)

	// Create Fiber app
	app := fiber.New()
	app.Use(recover.New())
	app.Use(middleware.CORS())
	app.Use(middleware.Metrics())

	// Optional background sweep for trials nobody logs in to
	if config.AppConfig.TrialSweepInterval != "" {
		interval, _ := time.ParseDuration(config.AppConfig.TrialSweepInterval)
		sweeper := worker.NewTrialSweeper(services.Lifecycle, interval, logger)
		go sweeper.Start(ctx)
	}

	// Setup routes
	routes.SetupRoutes(app, config.DB, services, logger)

	// Health check endpoint
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "running",
			"version": "1.0.0",
		})
	})

	// Start server
	logger.Infof("🚀 Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		logger.Fatalf("Failed to start server: %v", err)
	}
}
