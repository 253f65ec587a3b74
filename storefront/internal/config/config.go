package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type BreakerConfig struct {
	Enabled             bool          `yaml:"enabled"`
	MaxRequests         uint32        `yaml:"max_requests"`
	Interval            time.Duration `yaml:"interval"`
	OpenTimeout         time.Duration `yaml:"open_timeout"`
	ConsecutiveFailures uint32        `yaml:"consecutive_failures"`
}

type Config struct {
	API struct {
		BaseURL string        `yaml:"base_url"`
		Timeout time.Duration `yaml:"timeout"`
		Breaker BreakerConfig `yaml:"breaker"`
	} `yaml:"api"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	History struct {
		PageSize int `yaml:"page_size"`
	} `yaml:"history"`
}

func defaults() *Config {
	cfg := &Config{}
	cfg.API.BaseURL = "http://localhost:8080"
	cfg.API.Timeout = 10 * time.Second
	cfg.API.Breaker = BreakerConfig{
		MaxRequests:         1,
		Interval:            time.Minute,
		OpenTimeout:         30 * time.Second,
		ConsecutiveFailures: 5,
	}
	cfg.Log.Level = "info"
	cfg.History.PageSize = 10
	return cfg
}

// Load applies, in order: defaults, the YAML file at path (optional), a .env
// file in the working directory (optional) and STOREFRONT_* environment variables.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		file, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer file.Close()

		if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
			return nil, fmt.Errorf("invalid config file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if v := os.Getenv("STOREFRONT_API_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("STOREFRONT_API_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid STOREFRONT_API_TIMEOUT: %w", err)
		}
		cfg.API.Timeout = d
	}
	if v := os.Getenv("STOREFRONT_BREAKER_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid STOREFRONT_BREAKER_ENABLED: %w", err)
		}
		cfg.API.Breaker.Enabled = enabled
	}
	if v := os.Getenv("STOREFRONT_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("STOREFRONT_HISTORY_PAGE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid STOREFRONT_HISTORY_PAGE_SIZE %q", v)
		}
		cfg.History.PageSize = n
	}

	if cfg.API.BaseURL == "" {
		return nil, errors.New("api base url is required")
	}

	return cfg, nil
}
