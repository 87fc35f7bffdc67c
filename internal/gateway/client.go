package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	json "github.com/goccy/go-json"
	"go.uber.org/atomic"
	"golang.org/x/time/rate"
)

// GatewayURL is the initial Discord Gateway endpoint. Resume attempts
// dial resume_gateway_url instead, per spec.
const GatewayURL = "wss://gateway.discord.gg/?v=10&encoding=json"

const (
	writeTimeout = 10 * time.Second
	readTimeout  = 60 * time.Second
	readLimit    = 1 << 20 // 1MiB, large enough for a big READY payload
)

// Dispatcher receives dispatched Gateway events in the order the
// Gateway Client read them. Dispatch must not block — the Gateway
// read loop waits on it for the next frame.
type Dispatcher interface {
	Dispatch(eventName string, payload json.RawMessage)
}

// Client is the Discord Gateway session state machine: connect,
// identify, heartbeat, resume, and reconnect. Run is the only
// operation callers need; it owns the WebSocket, the send lane, the
// heartbeat scheduler, and the reconnect/backoff loop internally.
type Client struct {
	token   string
	intents int
	logger  *slog.Logger

	identifyLimiter *rate.Limiter
	state           *sessionState
	backoffAttempt  atomic.Int32

	// testDialURL overrides GatewayURL for the initial (non-resume)
	// dial. Only ever set by tests.
	testDialURL string
}

// NewClient creates a Gateway client for the given bot token and
// intent bitmask.
func NewClient(token string, intents int, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		token:   token,
		intents: intents,
		logger:  logger.With("component", "gateway"),
		// Discord allows roughly one IDENTIFY per 5s per token.
		identifyLimiter: rate.NewLimiter(rate.Every(5*time.Second), 1),
		state:           newSessionState(),
	}
}

// Run maintains a Gateway session and hands dispatched events to d
// until ctx is cancelled or an unrecoverable error occurs. It returns
// nil on a cancellation-driven shutdown, and a non-nil error wrapping
// ErrFatalClose for a fatal Discord close code. All other failures
// (network errors, non-fatal close codes, zombied heartbeats,
// INVALID_SESSION) are retried internally with backoff and never
// escape Run.
func (c *Client) Run(ctx context.Context, d Dispatcher) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		err := c.runOnce(ctx, d)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrFatalClose) {
			c.logger.Error("fatal gateway close, giving up", "error", err)
			return err
		}

		attempt := c.backoffAttempt.Add(1) - 1
		delay := CalculateBackoff(int(attempt))
		c.logger.Warn("gateway session ended, reconnecting", "error", err, "delay", delay, "attempt", attempt)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
}

// runOnce performs one connect-identify/resume-read cycle. It returns
// nil only when ctx was cancelled (graceful shutdown); otherwise it
// returns a classified error that Run uses to decide whether to retry.
func (c *Client) runOnce(ctx context.Context, d Dispatcher) error {
	attemptCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sessionID, resumeURL, seq, canResume := c.state.resumable()
	dialURL := GatewayURL
	if c.testDialURL != "" {
		dialURL = c.testDialURL
	}
	if canResume {
		dialURL = resumeURL + "?v=10&encoding=json"
	}

	c.state.setPhase(PhaseConnecting)
	c.logger.Info("connecting to gateway", "url", dialURL, "resume", canResume)

	conn, _, err := websocket.Dial(attemptCtx, dialURL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		return fmt.Errorf("dial gateway: %w", err)
	}
	conn.SetReadLimit(readLimit)

	sendCh := make(chan []byte, 8)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.writerLoop(attemptCtx, conn, sendCh)
	}()

	// Propagate an outer cancellation (supervisor shutdown) as a clean
	// WebSocket close rather than an abrupt TCP drop.
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "client shutting down")
		case <-attemptCtx.Done():
		}
	}()

	defer func() {
		cancel()
		wg.Wait()
	}()

	for {
		readCtx, rcancel := context.WithTimeout(attemptCtx, readTimeout)
		_, data, err := conn.Read(readCtx)
		rcancel()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			code := websocket.CloseStatus(err)
			if code == -1 {
				return fmt.Errorf("gateway read: %w", err)
			}
			if IsFatalCloseCode(code) {
				return fmt.Errorf("%w: code %d", ErrFatalClose, code)
			}
			if !IsResumableCloseCode(code) {
				c.state.resetHard()
			}
			return fmt.Errorf("gateway closed: code %d", code)
		}

		var payload Payload
		if err := json.Unmarshal(data, &payload); err != nil {
			c.logger.Error("malformed gateway frame", "error", err)
			continue
		}

		if payload.Sequence != nil {
			c.state.updateSequence(*payload.Sequence)
		}

		switch payload.Op {
		case OpHello:
			var hello HelloData
			if err := json.Unmarshal(payload.Data, &hello); err != nil {
				return fmt.Errorf("unmarshal hello: %w", err)
			}
			interval := time.Duration(hello.HeartbeatIntervalMs) * time.Millisecond
			c.logger.Info("received hello", "heartbeat_interval_ms", hello.HeartbeatIntervalMs)
			c.state.setHeartbeatInterval(interval)
			c.state.setPhase(PhaseHello)

			wg.Add(1)
			go func() {
				defer wg.Done()
				c.heartbeatLoop(attemptCtx, conn, sendCh, c.state.getHeartbeatInterval())
			}()

			if canResume {
				c.state.setPhase(PhaseResuming)
				if err := c.sendResume(attemptCtx, sendCh, sessionID, seq); err != nil {
					return fmt.Errorf("send resume: %w", err)
				}
			} else {
				c.state.setPhase(PhaseIdentifying)
				if err := c.sendIdentify(attemptCtx, sendCh); err != nil {
					return fmt.Errorf("send identify: %w", err)
				}
			}

		case OpDispatch:
			c.handleDispatch(payload.Type, payload.Data)
			if d != nil {
				d.Dispatch(payload.Type, payload.Data)
			}

		case OpHeartbeat:
			c.logger.Debug("gateway requested immediate heartbeat")
			if err := c.sendHeartbeat(attemptCtx, sendCh); err != nil {
				c.logger.Error("failed to send requested heartbeat", "error", err)
			}

		case OpHeartbeatAck:
			c.state.heartbeatAck.Store(true)

		case OpReconnect:
			c.logger.Info("gateway requested reconnect")
			_ = conn.Close(websocket.StatusNormalClosure, "reconnect requested")

		case OpInvalidSession:
			var resumable bool
			_ = json.Unmarshal(payload.Data, &resumable)
			c.logger.Warn("invalid session", "resumable", resumable)
			c.handleInvalidSession(attemptCtx, sendCh, resumable)

		default:
			c.logger.Debug("unhandled opcode", "op", payload.Op)
		}
	}
}

// handleDispatch performs session bookkeeping for READY/RESUMED. Every
// DISPATCH event, including these two, is still forwarded to the
// Dispatcher by the caller.
func (c *Client) handleDispatch(eventType string, data json.RawMessage) {
	switch eventType {
	case "READY":
		var ready ReadyData
		if err := json.Unmarshal(data, &ready); err != nil {
			c.logger.Error("unmarshal ready", "error", err)
			return
		}
		c.state.setReady(ready.SessionID, ready.ResumeGatewayURL)
		c.state.setPhase(PhaseReady)
		c.backoffAttempt.Store(0)
		c.logger.Info("gateway session ready", "session_id", ready.SessionID)

	case "RESUMED":
		c.state.setPhase(PhaseReady)
		c.backoffAttempt.Store(0)
		c.logger.Info("gateway session resumed")
	}
}

// handleInvalidSession waits the jittered 1-5s window Discord requires
// before retrying, then RESUMEs (resumable session) or clears session
// state and IDENTIFYs (unresumable). It runs in its own goroutine so
// the blocking wait never stalls the read loop.
func (c *Client) handleInvalidSession(ctx context.Context, sendCh chan<- []byte, resumable bool) {
	go func() {
		delay := time.Second + randomDuration(4*time.Second)
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		if resumable {
			if sessionID, _, seq, ok := c.state.resumable(); ok {
				if err := c.sendResume(ctx, sendCh, sessionID, seq); err != nil {
					c.logger.Error("resume after invalid session failed", "error", err)
				}
				return
			}
		}

		c.state.resetHard()
		if err := c.sendIdentify(ctx, sendCh); err != nil {
			c.logger.Error("identify after invalid session failed", "error", err)
		}
	}()
}

// writerLoop is the single send lane: every outbound frame (IDENTIFY,
// RESUME, HEARTBEAT) is serialized through it so writes never
// interleave on the WebSocket.
func (c *Client) writerLoop(ctx context.Context, conn *websocket.Conn, sendCh <-chan []byte) {
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-sendCh:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(writeCtx, websocket.MessageText, frame)
			cancel()
			if err != nil {
				c.logger.Error("gateway write failed", "error", err)
				return
			}
		}
	}
}

// heartbeatLoop sends the first heartbeat after a random jitter delay,
// then one every interval. If the previous heartbeat's ACK is still
// missing when the next one comes due, the connection is zombied: it
// is closed with 4000 so the read loop unwinds and Run reconnects
// with RESUME.
func (c *Client) heartbeatLoop(ctx context.Context, conn *websocket.Conn, sendCh chan<- []byte, interval time.Duration) {
	if interval <= 0 {
		return
	}

	select {
	case <-ctx.Done():
		return
	case <-time.After(randomDuration(interval)):
	}

	if err := c.sendHeartbeat(ctx, sendCh); err != nil {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !c.state.heartbeatAck.Load() {
				c.logger.Warn("heartbeat ack missing, closing zombied connection")
				_ = conn.Close(websocket.StatusCode(CloseUnknownError), "zombied heartbeat")
				return
			}
			if err := c.sendHeartbeat(ctx, sendCh); err != nil {
				return
			}
		}
	}
}

// sendHeartbeat marks the previous ACK consumed and enqueues a new
// heartbeat frame carrying the last sequence number.
func (c *Client) sendHeartbeat(ctx context.Context, sendCh chan<- []byte) error {
	c.state.heartbeatAck.Store(false)

	var seq *int
	if s := c.state.sequence(); s > 0 {
		seq = &s
	}

	frame, err := json.Marshal(struct {
		Op   int  `json:"op"`
		Data *int `json:"d"`
	}{OpHeartbeat, seq})
	if err != nil {
		return fmt.Errorf("marshal heartbeat: %w", err)
	}
	return enqueue(ctx, sendCh, frame)
}

func (c *Client) sendIdentify(ctx context.Context, sendCh chan<- []byte) error {
	if err := c.identifyLimiter.Wait(ctx); err != nil {
		return err
	}

	frame, err := json.Marshal(struct {
		Op   int          `json:"op"`
		Data IdentifyData `json:"d"`
	}{OpIdentify, IdentifyData{
		Token:      c.token,
		Intents:    c.intents,
		Properties: defaultIdentifyProperties(),
	}})
	if err != nil {
		return fmt.Errorf("marshal identify: %w", err)
	}

	c.logger.Info("sending identify")
	return enqueue(ctx, sendCh, frame)
}

func (c *Client) sendResume(ctx context.Context, sendCh chan<- []byte, sessionID string, seq int) error {
	frame, err := json.Marshal(struct {
		Op   int        `json:"op"`
		Data ResumeData `json:"d"`
	}{OpResume, ResumeData{
		Token:     c.token,
		SessionID: sessionID,
		Sequence:  seq,
	}})
	if err != nil {
		return fmt.Errorf("marshal resume: %w", err)
	}

	c.logger.Info("sending resume", "session_id", sessionID, "sequence", seq)
	return enqueue(ctx, sendCh, frame)
}

func enqueue(ctx context.Context, sendCh chan<- []byte, frame []byte) error {
	select {
	case sendCh <- frame:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Phase returns the client's current lifecycle phase.
func (c *Client) Phase() Phase {
	return c.state.getPhase()
}

// Sequence returns the last sequence number observed this session.
func (c *Client) Sequence() int {
	return c.state.sequence()
}

// SessionID returns the current session ID, if any.
func (c *Client) SessionID() string {
	return c.state.sessionIDValue()
}
