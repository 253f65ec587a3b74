package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/pizzeria/storefront/internal/apiclient"
	"github.com/vasiliy-maslov/pizzeria/storefront/internal/config"
)

const usage = `usage: storefront <command> [flags]

commands:
  menu      list pizzas and extras
  order     compose and place an order
  history   browse past orders

Set STOREFRONT_CONFIG to a YAML file to configure the client.`

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Logger = log.With().Str("service", "storefront").Logger()

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load(os.Getenv("STOREFRONT_CONFIG"))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var opts []apiclient.Option
	if cfg.API.Breaker.Enabled {
		opts = append(opts, apiclient.WithBreaker(apiclient.BreakerSettings{
			MaxRequests:         cfg.API.Breaker.MaxRequests,
			Interval:            cfg.API.Breaker.Interval,
			OpenTimeout:         cfg.API.Breaker.OpenTimeout,
			ConsecutiveFailures: cfg.API.Breaker.ConsecutiveFailures,
		}))
	}

	client, err := apiclient.New(cfg.API.BaseURL, cfg.API.Timeout, opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create API client")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := newApp(client, cfg, os.Stdout)

	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "menu":
		err = app.menu(ctx, args)
	case "order":
		err = app.order(ctx, args)
	case "history":
		err = app.history(ctx, args)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		log.Error().Err(err).Msg("Command failed")
		stop()
		os.Exit(1)
	}
}
