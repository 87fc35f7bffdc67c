// Command bridge is the entry point for the Discord Gateway bridge.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hollowbyte/discord-bridge/internal/config"
	"github.com/hollowbyte/discord-bridge/internal/config/store"
	"github.com/hollowbyte/discord-bridge/internal/supervisor"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the bridge configuration file")
	logLevel := flag.String("log-level", "", "override logging.level from the config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		return 1
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	logger := initLogger(cfg.Logging)
	slog.SetDefault(logger)

	if err := loadRouteStore(cfg, logger); err != nil {
		logger.Error("failed to load route store", "backend", cfg.RouteStore.Backend, "error", err)
		return 1
	}

	logger.Info("configuration loaded", "routes", len(cfg.Routes), "intents", cfg.Discord.Intents)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sup := supervisor.New(cfg, logger)
	if err := sup.Run(ctx); err != nil {
		logger.Error("gateway terminated fatally", "error", err)
		return 1
	}

	logger.Info("shutdown complete")
	return 0
}

// loadRouteStore replaces cfg.Routes with the table read from the
// configured route store backend, if any. With no backend configured,
// cfg.Routes keeps whatever the YAML file's top-level routes key set.
func loadRouteStore(cfg *config.Config, logger *slog.Logger) error {
	var rs config.RouteStore

	switch cfg.RouteStore.Backend {
	case config.RouteStoreBackendNone:
		return nil
	case config.RouteStoreBackendFile:
		rs = store.NewFile(cfg.RouteStore.FilePath)
	case config.RouteStoreBackendPostgres:
		pg, err := store.NewPostgres(cfg.RouteStore.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect route store: %w", err)
		}
		rs = pg
	default:
		return fmt.Errorf("unknown route_store.backend %q", cfg.RouteStore.Backend)
	}

	routes, err := rs.Load()
	if err != nil {
		return fmt.Errorf("load routes: %w", err)
	}
	for i := range routes {
		if err := routes[i].Validate(); err != nil {
			return fmt.Errorf("route store returned invalid route: %w", err)
		}
	}

	logger.Info("loaded route table from store", "backend", cfg.RouteStore.Backend, "routes", len(routes))
	cfg.Routes = routes
	return nil
}

func initLogger(cfg config.Logging) *slog.Logger {
	level := parseLogLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "console" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "DEBUG":
		return slog.LevelDebug
	case "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
