package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/pizzeria/pizza-service/internal/catalog"
	"github.com/vasiliy-maslov/pizzeria/pizza-service/internal/config"
	"github.com/vasiliy-maslov/pizzeria/pizza-service/internal/seed"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Logger = log.With().Str("service", "pizza-seed").Logger()

	fixturesPath := flag.String("fixtures", "", "YAML fixtures file (defaults to the bundled menu)")
	flag.Parse()

	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	fixtures, err := loadFixtures(*fixturesPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load fixtures")
	}

	db, err := seed.Connect(cfg.Postgres.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := seed.Migrate(db, cfg.Postgres.MigrationsPath, cfg.Postgres.DBName); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := seed.Run(ctx, db, fixtures)
	if err != nil {
		log.Fatal().Err(err).Msg("Seeding failed")
	}

	if cfg.Redis.Addr == "" {
		return
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	if err := seed.Refresh(ctx, catalog.NewRedisCache(rdb, cfg.Redis.TTL), res); err != nil {
		log.Error().Err(err).Str("addr", cfg.Redis.Addr).Msg("Catalog cache may serve stale pages until it expires")
	}
}

func loadFixtures(path string) (seed.Fixtures, error) {
	if path == "" {
		return seed.Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return seed.Fixtures{}, err
	}
	return seed.Parse(data)
}
