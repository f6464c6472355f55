package server

import (
	"context"
	"time"

	"github.com/fathima-sithara/chat-backend/internal/config"
	"github.com/fathima-sithara/chat-backend/internal/events"
	"github.com/fathima-sithara/chat-backend/internal/handlers"
	"github.com/fathima-sithara/chat-backend/internal/metrics"
	"github.com/fathima-sithara/chat-backend/internal/middleware"
	"github.com/fathima-sithara/chat-backend/internal/repository"
	"github.com/fathima-sithara/chat-backend/internal/routes"
	"github.com/fathima-sithara/chat-backend/internal/services"
	"github.com/fathima-sithara/chat-backend/internal/storage"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Deps are the infrastructure pieces the HTTP app is assembled from.
type Deps struct {
	Store     *repository.Store
	Files     storage.FileStore
	Tokens    TokenManager
	Publisher events.Publisher
	Limiter   middleware.Limiter
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
	// Health reports whether the backing store is reachable; nil means always healthy.
	Health func(ctx context.Context) error
}

type TokenManager interface {
	middleware.TokenParser
	services.TokenIssuer
}

// New initializes the Fiber application with config, middlewares and routes.
func New(cfg *config.Config, d Deps) *fiber.App {
	if d.Publisher == nil {
		d.Publisher = events.Noop{}
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  cfg.App.ReadTimeout,
		WriteTimeout: cfg.App.WriteTimeout,
		IdleTimeout:  cfg.App.IdleTimeout,
		BodyLimit:    cfg.App.BodyLimitMB << 20,
		ErrorHandler: handlers.ErrorHandler(d.Logger),
	})

	app.Use(middleware.Recovery(d.Logger))
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(cors.New())
	app.Use(middleware.RequestLogger(d.Logger))
	app.Use(d.Metrics.Middleware())

	app.Get("/healthz", healthz(d.Health))
	app.Get("/metrics", d.Metrics.Handler())
	if cfg.Uploads.Driver == "" || cfg.Uploads.Driver == "local" {
		app.Static(cfg.Uploads.URLPrefix, cfg.Uploads.Dir)
	}

	if d.Limiter != nil {
		app.Use("/api", middleware.RateLimit(d.Limiter, d.Logger))
	}

	authSvc := services.NewAuthService(d.Store.Users, d.Tokens, d.Publisher, d.Logger)
	userSvc := services.NewUserService(d.Store.Users, d.Files, cfg.Uploads, d.Logger)
	friendSvc := services.NewFriendService(d.Store.Users, d.Publisher, d.Logger)
	chatSvc := services.NewChatService(services.ChatDeps{
		Store:     d.Store,
		Files:     d.Files,
		Uploads:   cfg.Uploads,
		Publisher: d.Publisher,
		Counter:   d.Metrics,
		Logger:    d.Logger,
	})

	routes.Setup(app, routes.Handlers{
		Auth:  handlers.NewAuthHandler(authSvc),
		Users: handlers.NewUserHandler(userSvc, friendSvc, cfg.Uploads),
		Chats: handlers.NewChatHandler(chatSvc, cfg.Uploads),
	}, middleware.JWTMiddleware(d.Tokens, d.Store.Users, d.Logger))

	return app
}

func healthz(check func(ctx context.Context) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if check != nil {
			ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
			}
		}
		return c.JSON(fiber.Map{"status": "ok"})
	}
}
