// Package forwarder delivers envelope bodies to configured HTTP
// endpoints with bounded retries, best-effort and fire-and-forget from
// the caller's perspective.
package forwarder

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gojek/heimdall/v7/httpclient"

	"github.com/hollowbyte/discord-bridge/internal/config"
)

// maxRetryAfter caps how long a single Retry-After-driven wait may be,
// regardless of what the endpoint asked for.
const maxRetryAfter = 60 * time.Second

// Job is one forwarding attempt: a JSON body destined for one URL.
type Job struct {
	ID        string
	EventName string
	URL       string
	Body      []byte
}

// Forwarder sends one JSON POST per Job, retrying transient failures
// according to the configured policy. The underlying heimdall client is
// shared and safe for concurrent use across forwards.
type Forwarder struct {
	client        *httpclient.Client
	retryAttempts int
	retryDelay    time.Duration
	logger        *slog.Logger
}

// New builds a Forwarder from HTTP tuning parameters. The client is a
// heimdall keep-alive client used purely as a transport; the retry
// policy here is hand-rolled because it must inspect response status
// codes, which heimdall's own retrier cannot do.
func New(cfg config.HTTP, logger *slog.Logger) *Forwarder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Forwarder{
		client:        httpclient.NewClient(httpclient.WithHTTPTimeout(cfg.Timeout.Duration())),
		retryAttempts: cfg.RetryAttempts,
		retryDelay:    cfg.RetryDelay.Duration(),
		logger:        logger.With("component", "forwarder"),
	}
}

// Forward sends job, retrying retryable failures up to retryAttempts
// additional times. The outcome is only ever logged; Forward never
// returns an error to the caller because forwarding is best-effort.
func (f *Forwarder) Forward(ctx context.Context, job Job) {
	start := time.Now()

	var lastErr error
	var lastStatus int

	for attempt := 1; attempt <= f.retryAttempts+1; attempt++ {
		status, retryAfter, hasRetryAfter, err := f.attempt(ctx, job)
		lastErr = err
		lastStatus = status

		if err == nil && !isRetryableStatus(status) {
			f.logOutcome(job, attempt, status, nil, time.Since(start))
			return
		}
		if errors.Is(err, errPermanentStatus) {
			f.logOutcome(job, attempt, status, err, time.Since(start))
			return
		}

		if attempt > f.retryAttempts {
			break
		}
		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}

		delay := f.backoffFor(attempt)
		if status == http.StatusTooManyRequests && hasRetryAfter {
			delay = retryAfter
		}
		select {
		case <-ctx.Done():
			lastErr = ctx.Err()
			f.logOutcome(job, attempt, lastStatus, lastErr, time.Since(start))
			return
		case <-time.After(delay):
		}
	}

	f.logOutcome(job, f.retryAttempts+1, lastStatus, lastErr, time.Since(start))
}

// attempt performs a single POST and returns the response status (0 if
// the request itself failed), any Retry-After the endpoint sent, and
// any transport error.
func (f *Forwarder) attempt(ctx context.Context, job Job) (status int, retryAfter time.Duration, hasRetryAfter bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, job.URL, bytes.NewReader(job.Body))
	if err != nil {
		return 0, 0, false, err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, 0, false, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	retryAfter, hasRetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))

	if isRetryableStatus(resp.StatusCode) {
		return resp.StatusCode, retryAfter, hasRetryAfter, errRetryableStatus
	}
	if resp.StatusCode >= 400 {
		return resp.StatusCode, retryAfter, hasRetryAfter, errPermanentStatus
	}
	return resp.StatusCode, retryAfter, hasRetryAfter, nil
}

var (
	errRetryableStatus = errors.New("retryable HTTP status")
	errPermanentStatus = errors.New("permanent HTTP status")
)

func isRetryableStatus(status int) bool {
	if status == http.StatusRequestTimeout || status == http.StatusTooManyRequests {
		return true
	}
	return status >= 500
}

// backoffFor computes the linear backoff delay before the next attempt.
func (f *Forwarder) backoffFor(attempt int) time.Duration {
	delay := f.retryDelay * time.Duration(attempt)
	if delay > maxRetryAfter {
		delay = maxRetryAfter
	}
	return delay
}

func (f *Forwarder) logOutcome(job Job, attempt, status int, err error, elapsed time.Duration) {
	attrs := []any{
		"event", job.EventName,
		"url", job.URL,
		"attempt", attempt,
		"elapsed_ms", elapsed.Milliseconds(),
		"job_id", job.ID,
	}
	if err != nil {
		f.logger.Warn("forward failed", append(attrs, "error_kind", classifyError(err), "status", status)...)
		return
	}
	f.logger.Info("forward succeeded", append(attrs, "status", status)...)
}

func classifyError(err error) string {
	switch {
	case errors.Is(err, errPermanentStatus):
		return "permanent_status"
	case errors.Is(err, errRetryableStatus):
		return "retryable_status"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "network"
	}
}

// parseRetryAfter interprets a Retry-After header value, either as a
// delay in seconds or an HTTP date, clamped to maxRetryAfter.
func parseRetryAfter(header string) (time.Duration, bool) {
	if header == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(header); err == nil {
		d := time.Duration(seconds) * time.Second
		if d > maxRetryAfter {
			d = maxRetryAfter
		}
		if d < 0 {
			d = 0
		}
		return d, true
	}
	if when, err := http.ParseTime(header); err == nil {
		d := time.Until(when)
		if d < 0 {
			d = 0
		}
		if d > maxRetryAfter {
			d = maxRetryAfter
		}
		return d, true
	}
	return 0, false
}
