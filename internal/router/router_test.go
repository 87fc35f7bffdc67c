package router

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/hollowbyte/discord-bridge/internal/config"
	"github.com/hollowbyte/discord-bridge/internal/forwarder"
)

type recordingForwarder struct {
	mu   sync.Mutex
	jobs []forwarder.Job
	done chan struct{}
}

func newRecordingForwarder(expected int) *recordingForwarder {
	return &recordingForwarder{done: make(chan struct{}, expected)}
}

func (f *recordingForwarder) Forward(_ context.Context, job forwarder.Job) {
	f.mu.Lock()
	f.jobs = append(f.jobs, job)
	f.mu.Unlock()
	f.done <- struct{}{}
}

func (f *recordingForwarder) waitFor(t *testing.T, n int, timeout time.Duration) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-f.done:
		case <-time.After(timeout):
			t.Fatalf("timed out waiting for %d forwards, got %d", n, i)
		}
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestDispatchFansOutToEachEndpoint(t *testing.T) {
	fwd := newRecordingForwarder(2)
	routes := []config.Route{
		{EventName: "MESSAGE_CREATE", Enabled: true, Endpoints: []string{"https://sink/a", "https://sink/b"}},
	}
	r := New(context.Background(), routes, fwd, discardLogger(), 0)

	r.Dispatch("MESSAGE_CREATE", json.RawMessage(`{"id":"42"}`))
	fwd.waitFor(t, 2, time.Second)

	fwd.mu.Lock()
	defer fwd.mu.Unlock()
	if len(fwd.jobs) != 2 {
		t.Fatalf("expected 2 forwards, got %d", len(fwd.jobs))
	}
	urls := map[string]bool{fwd.jobs[0].URL: true, fwd.jobs[1].URL: true}
	if !urls["https://sink/a"] || !urls["https://sink/b"] {
		t.Errorf("unexpected endpoint set: %v", urls)
	}
}

func TestDispatchSkipsDisabledRoute(t *testing.T) {
	fwd := newRecordingForwarder(0)
	routes := []config.Route{
		{EventName: "MESSAGE_CREATE", Enabled: false, Endpoints: []string{"https://sink/a"}},
	}
	r := New(context.Background(), routes, fwd, discardLogger(), 0)

	r.Dispatch("MESSAGE_CREATE", json.RawMessage(`{}`))
	time.Sleep(50 * time.Millisecond)

	fwd.mu.Lock()
	defer fwd.mu.Unlock()
	if len(fwd.jobs) != 0 {
		t.Errorf("expected zero forwards for disabled route, got %d", len(fwd.jobs))
	}
}

func TestDispatchSkipsUnknownEvent(t *testing.T) {
	fwd := newRecordingForwarder(0)
	r := New(context.Background(), nil, fwd, discardLogger(), 0)

	r.Dispatch("UNKNOWN_EVENT", json.RawMessage(`{}`))
	time.Sleep(50 * time.Millisecond)

	fwd.mu.Lock()
	defer fwd.mu.Unlock()
	if len(fwd.jobs) != 0 {
		t.Errorf("expected zero forwards for unmapped event, got %d", len(fwd.jobs))
	}
}

func TestEnvelopeRoundTripsPayload(t *testing.T) {
	fwd := newRecordingForwarder(1)
	routes := []config.Route{
		{EventName: "MESSAGE_CREATE", Enabled: true, Endpoints: []string{"https://sink/a"}},
	}
	r := New(context.Background(), routes, fwd, discardLogger(), 0)

	payload := json.RawMessage(`{"id":"42","nested":{"a":1}}`)
	r.Dispatch("MESSAGE_CREATE", payload)
	fwd.waitFor(t, 1, time.Second)

	fwd.mu.Lock()
	job := fwd.jobs[0]
	fwd.mu.Unlock()

	var env Envelope
	if err := json.Unmarshal(job.Body, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if env.EventType != "MESSAGE_CREATE" {
		t.Errorf("event_type = %q, want MESSAGE_CREATE", env.EventType)
	}
	if env.Source != envelopeSource {
		t.Errorf("source = %q, want %q", env.Source, envelopeSource)
	}
	if string(env.Data) != string(payload) {
		t.Errorf("data = %s, want %s", env.Data, payload)
	}
	if _, err := time.Parse(time.RFC3339, env.Timestamp); err != nil {
		t.Errorf("timestamp %q is not RFC3339: %v", env.Timestamp, err)
	}
}
