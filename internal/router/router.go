// Package router dispatches Discord Gateway events to configured HTTP
// endpoints, fanning each dispatched event out to its route's sinks as
// independent, best-effort forwarding tasks.
package router

import (
	"context"
	"log/slog"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/xid"
	"golang.org/x/sync/semaphore"

	"github.com/hollowbyte/discord-bridge/internal/config"
	"github.com/hollowbyte/discord-bridge/internal/forwarder"
)

// timeNow supplies envelope timestamps; it is a variable so tests can
// substitute a fixed clock.
var timeNow = time.Now

// Envelope is the JSON body delivered to every forwarding endpoint.
type Envelope struct {
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp"`
	Source    string          `json:"source"`
}

const envelopeSource = "discord-bridge"

// Forwarder performs one best-effort HTTP delivery of an envelope.
type Forwarder interface {
	Forward(ctx context.Context, job forwarder.Job)
}

// Router owns the route table and fans dispatched events out to the
// Forwarder. Dispatch never blocks the Gateway read loop: every
// forward runs in its own goroutine, bounded by a semaphore.
type Router struct {
	routes    map[string]config.Route
	forwarder Forwarder
	logger    *slog.Logger
	sem       *semaphore.Weighted

	// background is the context forwarding goroutines run under; it
	// outlives any single Dispatch call and is cancelled by the
	// supervisor at shutdown.
	background context.Context
}

// New builds a Router from an immutable route table. maxConcurrent
// bounds in-flight HTTP forwards so a burst of events or a stalled
// sink can't grow goroutines without limit; callers should pass
// Config.HTTP.MaxConcurrentForwards.
func New(background context.Context, routes []config.Route, fwd Forwarder, logger *slog.Logger, maxConcurrent int) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	if maxConcurrent <= 0 {
		maxConcurrent = config.DefaultMaxConcurrentForwards
	}

	table := make(map[string]config.Route, len(routes))
	for _, r := range routes {
		table[r.EventName] = r
	}

	return &Router{
		routes:     table,
		forwarder:  fwd,
		logger:     logger.With("component", "router"),
		sem:        semaphore.NewWeighted(int64(maxConcurrent)),
		background: background,
	}
}

// Dispatch looks up eventName in the route table and, if enabled,
// spawns one forwarding task per endpoint. It returns immediately;
// forwarding happens asynchronously and failures are absorbed by the
// Forwarder's own logging.
func (r *Router) Dispatch(eventName string, payload json.RawMessage) {
	route, ok := r.routes[eventName]
	if !ok || !route.Enabled || len(route.Endpoints) == 0 {
		return
	}

	envelope := Envelope{
		EventType: eventName,
		Data:      payload,
		Timestamp: nowRFC3339Milli(),
		Source:    envelopeSource,
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		r.logger.Error("failed to marshal envelope", "event", eventName, "error", err)
		return
	}

	for _, endpoint := range route.Endpoints {
		job := forwarder.Job{
			ID:        xid.New().String(),
			EventName: eventName,
			URL:       endpoint,
			Body:      body,
		}

		if !r.sem.TryAcquire(1) {
			r.logger.Warn("forward dropped: concurrency limit reached", "event", eventName, "url", endpoint)
			continue
		}

		go func(job forwarder.Job) {
			defer r.sem.Release(1)
			r.forwarder.Forward(r.background, job)
		}(job)
	}
}

func nowRFC3339Milli() string {
	return timeNow().UTC().Format("2006-01-02T15:04:05.000Z07:00")
}
