package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Load reads a YAML configuration file, layers recognized environment
// variable overrides on top, validates the result, and returns it.
// A missing .env file is not an error; a missing config file is.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides layers the documented environment variables over
// whatever the YAML file set. Malformed numeric/duration overrides are
// ignored rather than failing the whole load, leaving the file's value
// in place; well-formed but out-of-range values are caught by Validate.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DISCORD_TOKEN"); v != "" {
		cfg.Discord.Token = v
	}
	if v := os.Getenv("DISCORD_INTENTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Discord.Intents = n
		}
	}
	if v := os.Getenv("HTTP_TIMEOUT"); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.HTTP.Timeout = secondsFromFloat(n)
		}
	}
	if v := os.Getenv("HTTP_RETRY_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.RetryAttempts = n
		}
	}
	if v := os.Getenv("HTTP_RETRY_DELAY"); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.HTTP.RetryDelay = secondsFromFloat(n)
		}
	}
	if v := os.Getenv("HTTP_MAX_CONCURRENT_FORWARDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.MaxConcurrentForwards = n
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("ROUTE_STORE_BACKEND"); v != "" {
		cfg.RouteStore.Backend = v
	}
	if v := os.Getenv("ROUTE_STORE_FILE_PATH"); v != "" {
		cfg.RouteStore.FilePath = v
	}
	if v := os.Getenv("ROUTE_STORE_DATABASE_URL"); v != "" {
		cfg.RouteStore.DatabaseURL = v
	}
}

func secondsFromFloat(seconds float64) Seconds {
	return Seconds(seconds * float64(time.Second))
}
