// Package server assembles the Fiber application: middlewares, route table and health check.
package server

import (
	"context"
	"time"

	"storefront/internal/handlers"
	"storefront/internal/middleware"
	"storefront/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog"
)

// Check reports the health of one dependency.
type Check func(ctx context.Context) error

// Deps are the services the routes are served by.
type Deps struct {
	Auth      *services.AuthService
	Users     *services.UserService
	Products  *services.ProductService
	Reviews   *services.ReviewService
	Carts     *services.CartService
	Wishlists *services.WishlistService
	Orders    *services.OrderService

	Logger        zerolog.Logger
	AuthRateLimit int // requests per minute per IP on /auth, 0 disables the limit
	Checks        map[string]Check
}

// New builds the application.
func New(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "storefront",
		ErrorHandler: handlers.ErrorHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	})

	app.Use(requestid.New())
	app.Use(middleware.RequestLogger(d.Logger))
	app.Use(recover.New())

	healthCheck := health(d.Checks)
	app.Get("/health", healthCheck)

	apiV1 := app.Group("/api/v1")
	apiV1.Get("/health", healthCheck)
	if d.AuthRateLimit > 0 {
		apiV1.Use("/auth", limiter.New(limiter.Config{
			Max:        d.AuthRateLimit,
			Expiration: time.Minute,
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"message": "Too many requests, try again later",
					"error":   "rate_limited",
				})
			},
		}))
	}

	verified := []fiber.Handler{middleware.AuthRequired(d.Auth), middleware.RequireVerified()}
	admin := middleware.RequireAdmin()

	handlers.NewAuthHandler(d.Auth, d.Users).RegisterRoutes(apiV1, verified...)
	handlers.NewUserHandler(d.Users).RegisterRoutes(apiV1, verified, admin)
	handlers.NewProductHandler(d.Products, d.Reviews).RegisterRoutes(apiV1, verified, admin)
	handlers.NewCartHandler(d.Carts).RegisterRoutes(apiV1, verified)
	handlers.NewWishlistHandler(d.Wishlists).RegisterRoutes(apiV1, verified)
	handlers.NewOrderHandler(d.Orders).RegisterRoutes(apiV1, verified, admin)

	return app
}

func health(checks map[string]Check) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		status := fiber.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = err.Error()
				status = fiber.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		state := "healthy"
		if status != fiber.StatusOK {
			state = "degraded"
		}
		return c.Status(status).JSON(fiber.Map{
			"status": state,
			"time":   time.Now().Format(time.RFC3339),
			"checks": results,
		})
	}
}
