package supervisor

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/hollowbyte/discord-bridge/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, nil))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Discord.Token = "Bot test-token"
	return cfg
}

func TestRunReturnsOnContextCancel(t *testing.T) {
	s := New(testConfig(), discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	// Give the gateway loop a moment to start dialing (and fail, since
	// there is no real network access in tests), then cancel.
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v, want nil on clean shutdown", err)
		}
	case <-time.After(GracePeriod + 2*time.Second):
		t.Fatal("Run() did not return after context cancellation")
	}
}
