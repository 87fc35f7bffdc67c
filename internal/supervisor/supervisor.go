// Package supervisor wires Config, Router, and Gateway Client together
// and owns the top-level process lifecycle: start the Gateway loop,
// propagate shutdown on signal, bound the shutdown grace period.
package supervisor

import (
	"context"
	"log/slog"
	"time"

	"github.com/hollowbyte/discord-bridge/internal/config"
	"github.com/hollowbyte/discord-bridge/internal/forwarder"
	"github.com/hollowbyte/discord-bridge/internal/gateway"
	"github.com/hollowbyte/discord-bridge/internal/router"
)

// GracePeriod bounds how long shutdown waits for the Gateway loop to
// return after cancellation. In-flight forwards are not tracked or
// waited for.
const GracePeriod = 5 * time.Second

// Supervisor owns the bridge's component graph for one process
// lifetime.
type Supervisor struct {
	client        *gateway.Client
	router        *router.Router
	logger        *slog.Logger
	forwardCtx    context.Context
	cancelForward context.CancelFunc
}

// New constructs the Gateway Client, Forwarder, and Router from cfg.
// Forwarding tasks run under their own context, independent of the
// caller's shutdown signal, so cancelling the caller's context does not
// cancel them directly; Run cancels the forwarding context when it
// returns.
func New(cfg *config.Config, logger *slog.Logger) *Supervisor {
	if logger == nil {
		logger = slog.Default()
	}

	forwardCtx, cancelForward := context.WithCancel(context.Background())

	fwd := forwarder.New(cfg.HTTP, logger)
	r := router.New(forwardCtx, cfg.Routes, fwd, logger, cfg.HTTP.MaxConcurrentForwards)
	client := gateway.NewClient(cfg.Discord.Token, cfg.Discord.Intents, logger)

	return &Supervisor{
		client:        client,
		router:        r,
		logger:        logger.With("component", "supervisor"),
		forwardCtx:    forwardCtx,
		cancelForward: cancelForward,
	}
}

// Run blocks until ctx is cancelled or the Gateway Client fails fatally.
// On fatal Gateway error it returns that error; on a clean,
// cancellation-driven shutdown it waits up to GracePeriod for the
// Gateway loop to return and then returns nil. Forwards still in flight
// at that point are cancelled; Run does not wait for them to finish.
func (s *Supervisor) Run(ctx context.Context) error {
	defer s.cancelForward()

	done := make(chan error, 1)
	go func() { done <- s.client.Run(ctx, s.router) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down, waiting for gateway loop", "grace_period", GracePeriod)

	select {
	case <-done:
	case <-time.After(GracePeriod):
		s.logger.Warn("grace period elapsed before gateway loop returned")
	}

	return nil
}
