package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/repositories"
	"storefront/internal/seed"
	"storefront/internal/server"
	"storefront/internal/services"
	"storefront/pkg/logger"
	"storefront/pkg/mailer"
	"storefront/pkg/rabbitmq"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	amqp "github.com/streadway/amqp"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("storefront stopped")
	}
}

func run() error {
	// --- Configuration ---
	loader := config.NewLoader()
	cfg, err := loader.Load()
	if err != nil {
		return err
	}
	appLogger := logger.Setup(os.Stdout, cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Database ---
	db, err := database.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}
	checks := map[string]server.Check{"database": pingDB(db)}

	// --- Guest stores ---
	var guestCarts repositories.CartStore = repositories.NewMemoryCartStore()
	var guestWishlists repositories.WishlistStore = repositories.NewMemoryWishlistStore()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		defer rdb.Close()
		guestCarts = repositories.NewRedisCartStore(rdb, cfg.GuestTTL)
		guestWishlists = repositories.NewRedisWishlistStore(rdb, cfg.GuestTTL)
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
		log.Info().Str("addr", cfg.RedisAddr).Msg("guest carts and wishlists stored in redis")
	} else {
		log.Warn().Msg("REDIS_ADDR is empty, guest carts and wishlists are kept in memory")
	}

	// --- RabbitMQ ---
	var publisher services.EventPublisher
	var mqClient *rabbitmq.Client
	if cfg.RabbitMQURL != "" {
		mqClient, err = rabbitmq.NewClient(rabbitmq.Config{
			URL:      cfg.RabbitMQURL,
			Exchange: cfg.RabbitMQExchange,
			Queue:    cfg.RabbitMQQueue,
		})
		if err != nil {
			return err
		}
		defer mqClient.Close()
		publisher = mqClient
	} else {
		log.Warn().Msg("RABBITMQ_URL is empty, order events are not published")
	}

	// --- Mailer ---
	var mail services.Mailer = mailer.LogSender{}
	if cfg.SMTPHost != "" {
		mail = mailer.NewSMTPSender(mailer.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		})
	} else {
		log.Warn().Msg("SMTP_HOST is empty, emails are written to the log")
	}

	// --- Repositories ---
	productRepo := repositories.NewGORMProductRepository(db)
	userRepo := repositories.NewGORMUserRepository(db)
	orderRepo := repositories.NewGORMOrderRepository(db)
	cartStore := repositories.NewGORMCartStore(db)
	wishlistStore := repositories.NewGORMWishlistStore(db)

	if cfg.SeedFile != "" {
		if _, err := seed.LoadFile(ctx, productRepo, cfg.SeedFile); err != nil {
			return err
		}
	}

	// --- Services ---
	authService := services.NewAuthService(userRepo, mail, services.AuthConfig{
		JWTSecret: cfg.JWTSecret,
		TokenTTL:  cfg.TokenTTL,
		OTPTTL:    cfg.OTPTTL,
	})
	orderService := services.NewOrderService(orderRepo, publisher,
		services.NewPricing(cfg.TaxRate, cfg.ShippingFee, cfg.FreeShippingThreshold), cfg.RequirePaidBeforeDelivery)

	loader.Watch(func(next *config.Config) {
		orderService.SetPricing(services.NewPricing(next.TaxRate, next.ShippingFee, next.FreeShippingThreshold))
	})

	// --- HTTP ---
	app := server.New(server.Deps{
		Auth:          authService,
		Users:         services.NewUserService(userRepo),
		Products:      services.NewProductService(productRepo),
		Reviews:       services.NewReviewService(productRepo),
		Carts:         services.NewCartService(productRepo, cartStore, guestCarts),
		Wishlists:     services.NewWishlistService(productRepo, wishlistStore, guestWishlists),
		Orders:        orderService,
		Logger:        appLogger,
		AuthRateLimit: cfg.AuthRateLimit,
		Checks:        checks,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.AppPort).Msg("starting server")
		return listen(app, cfg.AppPort)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down server")
		return app.Shutdown()
	})
	if mqClient != nil {
		g.Go(func() error {
			return mqClient.Consume(gctx, func(ctx context.Context, msg amqp.Delivery) error {
				return services.HandleOrderEvent(ctx, msg.RoutingKey, msg.Body)
			})
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("server gracefully stopped")
	return nil
}

// listen serves until Shutdown is called.
func listen(app *fiber.App, addr string) error {
	if err := app.Listen(addr); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

func pingDB(db *gorm.DB) server.Check {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}
