package config

import "errors"

var (
	ErrEmptyToken                   = errors.New("discord.token cannot be empty")
	ErrMalformedToken               = errors.New(`discord.token must be prefixed with "Bot "`)
	ErrInvalidIntents               = errors.New("discord.intents must be non-negative")
	ErrInvalidTimeout               = errors.New("http.timeout must be positive")
	ErrInvalidRetryAttempts         = errors.New("http.retry_attempts must be non-negative")
	ErrInvalidRetryDelay            = errors.New("http.retry_delay must be non-negative")
	ErrInvalidMaxConcurrentForwards = errors.New("http.max_concurrent_forwards must be positive")
	ErrInvalidLogLevel              = errors.New("logging.level must be one of DEBUG, INFO, WARNING, ERROR")
	ErrInvalidLogFormat             = errors.New("logging.format must be json or console")
	ErrEmptyEventName               = errors.New("route event_name cannot be empty")
	ErrInvalidEndpoint              = errors.New("route endpoint must be an absolute URL")
	ErrConfigNotFound               = errors.New("configuration file not found")
	ErrInvalidRouteStoreBackend     = errors.New("route_store.backend must be one of \"\", file, postgres")
	ErrRouteStoreMissingFilePath    = errors.New("route_store.file_path is required when backend is file")
	ErrRouteStoreMissingDatabaseURL = errors.New("route_store.database_url is required when backend is postgres")
)
