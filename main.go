package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/tmaslen/serverless-fb-messenger/config"
	"github.com/tmaslen/serverless-fb-messenger/handlers"
	"github.com/tmaslen/serverless-fb-messenger/logger"
	"github.com/tmaslen/serverless-fb-messenger/middleware"
	"github.com/tmaslen/serverless-fb-messenger/services"
	"github.com/tmaslen/serverless-fb-messenger/webhooks"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found")
	}

	ctx := context.Background()

	cfg, err := config.LoadConfig(ctx)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		slog.Error("Failed to create logger", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(log)

	graph := services.NewGraphClient(cfg.PageAccessToken,
		services.WithBaseURL(cfg.GraphAPIURL),
		services.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}),
	)
	messenger := services.NewMessenger(graph)

	monitor := services.NewMonitor()
	defer monitor.Close()

	dispatcher := webhooks.NewDispatcher()
	dispatcher.OnAll(handlers.BroadcastEvents(monitor))

	var archive *services.EventArchive
	if cfg.ArchiveEnabled() {
		initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		client, err := services.InitMongoDB(initCtx, cfg.MongoURI)
		if err != nil {
			cancel()
			slog.Error("Failed to connect to MongoDB", "error", err)
			os.Exit(1)
		}
		defer client.Disconnect(context.Background())

		archive, err = services.NewEventArchive(initCtx, client.Database(cfg.DatabaseName))
		cancel()
		if err != nil {
			slog.Error("Failed to prepare event archive", "error", err)
			os.Exit(1)
		}
		dispatcher.OnAll(handlers.ArchiveEvents(archive))
		slog.Info("Event archive enabled", "database", cfg.DatabaseName)
	}

	if cfg.EchoReplies {
		dispatcher.OnMessage(handlers.EchoReply(messenger))
		slog.Info("Echo replies enabled")
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			slog.Error("Request error", "error", err, "status", code)
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${method} ${path}\n",
	}))

	webhooks.RegisterRoutes(app, cfg.VerifyToken, dispatcher)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "serverless-fb-messenger",
		})
	})

	if cfg.AdminEnabled() {
		admin := app.Group("/admin",
			cors.New(cors.Config{
				AllowOrigins:     cfg.CORSOrigins,
				AllowMethods:     "GET,POST,DELETE,OPTIONS",
				AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
				AllowCredentials: cfg.CORSAllowCredentials(),
				MaxAge:           86400,
			}),
			middleware.RequireAdmin(cfg.AdminUser, cfg.AdminPasswordHash),
		)

		var lister handlers.EventLister
		if archive != nil {
			lister = archive
		}
		handlers.NewAdminHandler(messenger, lister).Register(admin)

		monitorHandler := handlers.NewMonitorHandler(monitor, messenger)
		admin.Get("/ws", handlers.WebSocketUpgrade, websocket.New(monitorHandler.Handle))
		slog.Info("Admin routes enabled", "user", cfg.AdminUser)
	}

	slog.Info("Server starting", "port", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		slog.Error("Server failed to start", "error", err)
		os.Exit(1)
	}
}
