package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/pointbank/pointbank/internal/allocation"
	"github.com/pointbank/pointbank/internal/config"
	"github.com/pointbank/pointbank/internal/member"
	"github.com/pointbank/pointbank/internal/middleware"
	"github.com/pointbank/pointbank/internal/notification"
	"github.com/pointbank/pointbank/internal/orderref"
	"github.com/pointbank/pointbank/internal/points"
	"github.com/pointbank/pointbank/internal/policy"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// In-memory fallbacks exist for development only.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))

	// Health
	RegisterHealthRoutes(app, d)

	// Stores
	var store points.Store
	var memberRepo member.Repository
	if d.DB != nil {
		store = points.NewPostgresStore(d.DB)
		memberRepo = member.NewPostgresRepository(d.DB)
	} else {
		// The memory store serves both roles so member reads and balance
		// mutations share one source of truth.
		mem := points.NewMemoryStore()
		store = mem
		memberRepo = mem
	}

	var policies policy.Provider
	if d.DB != nil {
		policies = policy.NewPostgresProvider(d.DB)
	} else {
		policies = policy.NewStatic(policy.Defaults())
	}
	if d.Cache != nil {
		policies = policy.NewCached(policies, d.Cache, d.Cfg.PolicyCacheTTL, d.Logger)
	}

	// Services and handlers
	notifier := notification.NewLoggerNotifier(d.Logger)
	engine := allocation.NewEngine(d.Logger)
	pointSvc := points.NewService(store, policies, orderref.NewULID(), engine, notifier, d.Logger)
	memberSvc := member.NewService(memberRepo)

	pointHandler := points.NewHandler(pointSvc)
	memberHandler := member.NewHandler(memberSvc)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterMemberRoutes(api, memberHandler, pointHandler)
	RegisterPointRoutes(api, pointHandler, d)

	return nil
}
