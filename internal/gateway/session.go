package gateway

import (
	"sync"
	"time"

	"go.uber.org/atomic"
)

// Phase is one state of the Gateway session lifecycle.
type Phase int

const (
	PhaseDisconnected Phase = iota
	PhaseConnecting
	PhaseHello
	PhaseIdentifying
	PhaseResuming
	PhaseReady
	PhaseClosing
)

func (p Phase) String() string {
	switch p {
	case PhaseDisconnected:
		return "disconnected"
	case PhaseConnecting:
		return "connecting"
	case PhaseHello:
		return "hello"
	case PhaseIdentifying:
		return "identifying"
	case PhaseResuming:
		return "resuming"
	case PhaseReady:
		return "ready"
	case PhaseClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// sessionState is the data the Gateway Client owns exclusively, per the
// spec's SessionState model. lastSequence and heartbeatAck are
// atomics so the heartbeat goroutine can read them without contending
// with the reader goroutine's write path on every dispatch.
type sessionState struct {
	mu sync.RWMutex

	sessionID        string
	resumeGatewayURL string
	hasSequence      bool

	lastSequence      atomic.Int64
	heartbeatAck      atomic.Bool
	heartbeatInterval atomic.Duration

	phase atomic.Int32
}

func newSessionState() *sessionState {
	s := &sessionState{}
	s.phase.Store(int32(PhaseDisconnected))
	return s
}

func (s *sessionState) setPhase(p Phase) { s.phase.Store(int32(p)) }
func (s *sessionState) getPhase() Phase  { return Phase(s.phase.Load()) }

// setHeartbeatInterval records the interval HELLO carried, fixed for
// the rest of the session.
func (s *sessionState) setHeartbeatInterval(d time.Duration) { s.heartbeatInterval.Store(d) }

// getHeartbeatInterval returns the interval set by setHeartbeatInterval.
func (s *sessionState) getHeartbeatInterval() time.Duration { return s.heartbeatInterval.Load() }

// resumable returns the (sessionID, resumeGatewayURL, sequence) triple
// and whether all three are present, i.e. whether a RESUME is possible.
func (s *sessionState) resumable() (sessionID, resumeURL string, seq int, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.sessionID == "" || s.resumeGatewayURL == "" || !s.hasSequence {
		return "", "", 0, false
	}
	return s.sessionID, s.resumeGatewayURL, int(s.lastSequence.Load()), true
}

func (s *sessionState) setReady(sessionID, resumeURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionID = sessionID
	s.resumeGatewayURL = resumeURL
}

// resetHard clears session_id and last_sequence together, per the
// invariant that last_sequence may only reset when session_id does.
func (s *sessionState) resetHard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessionID = ""
	s.hasSequence = false
	s.lastSequence.Store(0)
}

func (s *sessionState) updateSequence(seq int) {
	s.mu.Lock()
	s.hasSequence = true
	s.mu.Unlock()
	s.lastSequence.Store(int64(seq))
}

func (s *sessionState) sequence() int {
	return int(s.lastSequence.Load())
}

func (s *sessionState) sessionIDValue() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}
