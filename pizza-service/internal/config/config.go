package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type PostgresConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MigrationsPath  string
}

// DSN is the key/value connection string understood by pgx and lib/pq.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// URL is the same connection as a URL with the given scheme, as golang-migrate expects.
func (c PostgresConfig) URL(scheme string) string {
	u := url.URL{
		Scheme:   scheme,
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + c.SSLMode,
	}
	return u.String()
}

type Config struct {
	App struct {
		Port            string
		ShutdownTimeout time.Duration
		AllowedOrigins  []string
	}
	Log struct {
		Level string
	}
	Postgres PostgresConfig
	Redis    struct {
		Addr     string
		Password string
		DB       int
		TTL      time.Duration
	}
	Rabbit struct {
		URL      string
		Exchange string
	}
	// RateLimit caps writes per client IP within Window. Zero disables a limit.
	RateLimit struct {
		Checkout int
		CartAdd  int
		Window   time.Duration
	}
}

// Load reads an optional .env file at path and then the process environment.
// Database settings are required; Redis and RabbitMQ are enabled only when
// their address is set.
func Load(path string) (*Config, error) {
	if path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	cfg := &Config{}
	cfg.App.Port = getEnv("APP_PORT", "8080")
	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.App.AllowedOrigins = splitList(getEnv("CORS_ALLOWED_ORIGINS", "*"))

	var err error
	if cfg.App.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}

	pg := &cfg.Postgres
	for _, req := range []struct {
		key string
		dst *string
	}{
		{"DB_HOST", &pg.Host},
		{"DB_PORT", &pg.Port},
		{"DB_USER", &pg.User},
		{"DB_PASSWORD", &pg.Password},
		{"DB_NAME", &pg.DBName},
	} {
		*req.dst = os.Getenv(req.key)
		if *req.dst == "" {
			return nil, fmt.Errorf("%s is required", req.key)
		}
	}
	pg.SSLMode = getEnv("DB_SSLMODE", "disable")
	pg.MigrationsPath = getEnv("MIGRATIONS_PATH", "migrations")

	maxConns, err := getInt("DB_MAX_CONNS", 10)
	if err != nil {
		return nil, err
	}
	minConns, err := getInt("DB_MIN_CONNS", 2)
	if err != nil {
		return nil, err
	}
	pg.MaxConns, pg.MinConns = int32(maxConns), int32(minConns)
	if pg.MaxConnLifetime, err = getDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute); err != nil {
		return nil, err
	}

	cfg.Redis.Addr = os.Getenv("REDIS_ADDR")
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	if cfg.Redis.DB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.Redis.TTL, err = getDuration("CATALOG_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}

	cfg.Rabbit.URL = os.Getenv("RABBITMQ_URL")
	cfg.Rabbit.Exchange = getEnv("RABBITMQ_EXCHANGE", "pizzeria.events")

	if cfg.RateLimit.Checkout, err = getInt("RATE_LIMIT_CHECKOUT", 5); err != nil {
		return nil, err
	}
	if cfg.RateLimit.CartAdd, err = getInt("RATE_LIMIT_CART_ADD", 10); err != nil {
		return nil, err
	}
	if cfg.RateLimit.Window, err = getDuration("RATE_LIMIT_WINDOW", time.Minute); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
