package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/pizzeria/pizza-service/internal/cart"
	"github.com/vasiliy-maslov/pizzeria/pizza-service/internal/catalog"
	"github.com/vasiliy-maslov/pizzeria/pizza-service/internal/config"
	"github.com/vasiliy-maslov/pizzeria/pizza-service/internal/db"
	"github.com/vasiliy-maslov/pizzeria/pizza-service/internal/events"
	"github.com/vasiliy-maslov/pizzeria/pizza-service/internal/handler"
	"github.com/vasiliy-maslov/pizzeria/pizza-service/internal/order"
	"github.com/vasiliy-maslov/pizzeria/pizza-service/internal/transport"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Logger = log.With().Str("service", "pizza-service").Logger()

	log.Info().Msg("Pizza service starting...")

	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pg, err := db.New(ctx, cfg.Postgres)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pg.Close()

	var cache catalog.Cache
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("Redis unreachable, catalog cache disabled")
		} else {
			cache = catalog.NewRedisCache(rdb, cfg.Redis.TTL)
			log.Info().Str("addr", cfg.Redis.Addr).Dur("ttl", cfg.Redis.TTL).Msg("Catalog cache enabled")
		}
	}

	var publisher order.Publisher
	rabbit, err := events.NewRabbit(cfg.Rabbit.URL, cfg.Rabbit.Exchange)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to RabbitMQ")
	}
	if rabbit != nil {
		defer rabbit.Close()
		publisher = rabbit
	}

	catalogSvc := catalog.NewService(catalog.NewRepository(pg.Pool), cache)
	orderSvc := order.NewService(order.NewRepository(pg.Pool), catalogSvc, publisher)
	cartSvc := cart.NewService(cart.NewRepository(pg.Pool), catalogSvc)

	limits := cfg.RateLimit
	router := transport.NewRouter(
		transport.RouterConfig{AllowedOrigins: cfg.App.AllowedOrigins, Health: pg},
		handler.NewCatalogHandler(catalogSvc),
		handler.NewOrderHandler(orderSvc).WithCheckoutLimit(handler.RateLimit(limits.Checkout, limits.Window)),
		handler.NewCartHandler(cartSvc).WithAddLimit(handler.RateLimit(limits.CartAdd, limits.Window)),
	)

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown failed")
		return
	}
	log.Info().Msg("Server stopped")
}
