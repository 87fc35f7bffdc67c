// Package config provides configuration types and persistence for the
// Discord Gateway bridge.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Seconds is a duration expressed in the config schema as a plain
// number of seconds rather than a Go duration string ("30s").
type Seconds time.Duration

// UnmarshalYAML accepts a YAML number and interprets it as seconds.
func (s *Seconds) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var seconds float64
	if err := unmarshal(&seconds); err != nil {
		return fmt.Errorf("duration must be a number of seconds: %w", err)
	}
	*s = Seconds(seconds * float64(time.Second))
	return nil
}

// Duration returns the value as a time.Duration.
func (s Seconds) Duration() time.Duration { return time.Duration(s) }

// Route maps one Discord Gateway event name to the HTTP endpoints it
// should be forwarded to.
type Route struct {
	EventName string   `yaml:"event_name" json:"event_name"`
	Enabled   bool     `yaml:"enabled" json:"enabled"`
	Endpoints []string `yaml:"endpoints" json:"endpoints"`
}

// Discord holds the Gateway identity this bridge connects with.
type Discord struct {
	Token   string `yaml:"token" json:"token"`
	Intents int    `yaml:"intents" json:"intents"`
}

// HTTP tunes the forwarder's shared client and retry policy.
type HTTP struct {
	Timeout               Seconds `yaml:"timeout" json:"timeout"`
	RetryAttempts         int     `yaml:"retry_attempts" json:"retry_attempts"`
	RetryDelay            Seconds `yaml:"retry_delay" json:"retry_delay"`
	MaxConcurrentForwards int     `yaml:"max_concurrent_forwards" json:"max_concurrent_forwards"`
}

// Logging selects the process-wide logger's verbosity and encoding.
type Logging struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// Route store backend names accepted by RouteStoreConfig.Backend.
const (
	RouteStoreBackendNone     = ""
	RouteStoreBackendFile     = "file"
	RouteStoreBackendPostgres = "postgres"
)

// RouteStoreConfig selects where the route table is loaded from. When
// Backend is empty (the default), the route table is whatever the
// YAML file's top-level routes key set and nothing else is consulted.
type RouteStoreConfig struct {
	Backend     string `yaml:"backend" json:"backend"`
	FilePath    string `yaml:"file_path" json:"file_path"`
	DatabaseURL string `yaml:"database_url" json:"database_url"`
}

// Config is the immutable snapshot the core consumes read-only for the
// lifetime of a process.
type Config struct {
	Discord    Discord          `yaml:"discord" json:"discord"`
	HTTP       HTTP             `yaml:"http" json:"http"`
	Logging    Logging          `yaml:"logging" json:"logging"`
	Routes     []Route          `yaml:"routes" json:"routes"`
	RouteStore RouteStoreConfig `yaml:"route_store" json:"route_store"`
}

// DefaultIntents is the Discord intent bitmask used when none is set:
// guilds (1) and guild messages (512).
const DefaultIntents = 513

// DefaultMaxConcurrentForwards bounds how many HTTP forwards the
// Router runs at once when the config doesn't set one explicitly, per
// spec's suggested backpressure default.
const DefaultMaxConcurrentForwards = 100

// Default returns a configuration with every documented default applied.
func Default() *Config {
	return &Config{
		Discord: Discord{Intents: DefaultIntents},
		HTTP: HTTP{
			Timeout:               Seconds(30 * time.Second),
			RetryAttempts:         3,
			RetryDelay:            Seconds(1 * time.Second),
			MaxConcurrentForwards: DefaultMaxConcurrentForwards,
		},
		Logging: Logging{Level: "INFO", Format: "json"},
		Routes:  []Route{},
	}
}

var validLogLevels = map[string]bool{
	"DEBUG": true, "INFO": true, "WARNING": true, "ERROR": true,
}

var validLogFormats = map[string]bool{
	"json": true, "console": true,
}

// Validate checks the loaded configuration for the invariants the core
// assumes hold for the rest of process lifetime.
func (c *Config) Validate() error {
	if c.Discord.Token == "" {
		return ErrEmptyToken
	}
	if !strings.HasPrefix(c.Discord.Token, "Bot ") {
		return ErrMalformedToken
	}
	if c.Discord.Intents < 0 {
		return ErrInvalidIntents
	}
	if c.HTTP.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.HTTP.RetryAttempts < 0 {
		return ErrInvalidRetryAttempts
	}
	if c.HTTP.RetryDelay < 0 {
		return ErrInvalidRetryDelay
	}
	if c.HTTP.MaxConcurrentForwards <= 0 {
		return ErrInvalidMaxConcurrentForwards
	}
	if !validLogLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}
	if !validLogFormats[c.Logging.Format] {
		return ErrInvalidLogFormat
	}
	for i := range c.Routes {
		if err := c.Routes[i].Validate(); err != nil {
			return err
		}
	}
	switch c.RouteStore.Backend {
	case RouteStoreBackendNone:
	case RouteStoreBackendFile:
		if c.RouteStore.FilePath == "" {
			return ErrRouteStoreMissingFilePath
		}
	case RouteStoreBackendPostgres:
		if c.RouteStore.DatabaseURL == "" {
			return ErrRouteStoreMissingDatabaseURL
		}
	default:
		return ErrInvalidRouteStoreBackend
	}
	return nil
}

// Validate checks a single route entry's shape.
func (r *Route) Validate() error {
	if r.EventName == "" {
		return ErrEmptyEventName
	}
	for _, endpoint := range r.Endpoints {
		u, err := url.Parse(endpoint)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return ErrInvalidEndpoint
		}
	}
	return nil
}
