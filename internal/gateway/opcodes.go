// Package gateway implements the Discord Gateway session state machine:
// connect, identify, heartbeat, resume, and reconnect.
package gateway

import json "github.com/goccy/go-json"

// Gateway opcodes as defined by Discord.
// See: https://discord.com/developers/docs/topics/opcodes-and-status-codes#gateway-opcodes
const (
	OpDispatch       = 0  // Dispatch: an event was dispatched (S->C)
	OpHeartbeat      = 1  // Heartbeat: requested or scheduled keepalive (C<->S)
	OpIdentify       = 2  // Identify: starts a new session (C->S)
	OpPresenceUpdate = 3  // Presence Update (C->S)
	OpVoiceState     = 4  // Voice State Update (C->S)
	OpResume         = 6  // Resume: continue a previous session (C->S)
	OpReconnect      = 7  // Reconnect: server requests the client reconnect (S->C)
	OpRequestMembers = 8  // Request Guild Members (C->S)
	OpInvalidSession = 9  // Invalid Session (S->C)
	OpHello          = 10 // Hello: heartbeat interval, sent right after connecting (S->C)
	OpHeartbeatAck   = 11 // Heartbeat ACK (S->C)
)

// Gateway close codes.
// See: https://discord.com/developers/docs/topics/opcodes-and-status-codes#gateway-close-event-codes
const (
	CloseUnknownError         = 4000
	CloseUnknownOpcode        = 4001
	CloseDecodeError          = 4002
	CloseNotAuthenticated     = 4003
	CloseAuthenticationFailed = 4004 // fatal
	CloseAlreadyAuthenticated = 4005
	CloseInvalidSeq           = 4007
	CloseRateLimited          = 4008
	CloseSessionTimedOut      = 4009
	CloseInvalidShard         = 4010 // fatal
	CloseShardingRequired     = 4011 // fatal
	CloseInvalidAPIVersion    = 4012 // fatal
	CloseInvalidIntents       = 4013 // fatal
	CloseDisallowedIntents    = 4014 // fatal
)

// IsFatalCloseCode reports whether a close code is non-recoverable: the
// session must not be retried and the process should surface the error.
func IsFatalCloseCode(code int) bool {
	switch code {
	case CloseAuthenticationFailed,
		CloseInvalidShard,
		CloseShardingRequired,
		CloseInvalidAPIVersion,
		CloseInvalidIntents,
		CloseDisallowedIntents:
		return true
	default:
		return false
	}
}

// IsResumableCloseCode reports whether a non-fatal close code leaves the
// session eligible for RESUME, per the Gateway close-code policy table.
// Codes outside this set still reconnect, but with a fresh IDENTIFY.
func IsResumableCloseCode(code int) bool {
	switch code {
	case 1000, 1001,
		CloseUnknownError,
		CloseUnknownOpcode,
		CloseDecodeError,
		CloseNotAuthenticated,
		CloseAlreadyAuthenticated,
		CloseInvalidSeq,
		CloseRateLimited,
		CloseSessionTimedOut:
		return true
	default:
		return false
	}
}

// Payload is the generic Gateway frame envelope: {op, d, s, t}.
type Payload struct {
	Op       int             `json:"op"`
	Data     json.RawMessage `json:"d,omitempty"`
	Sequence *int            `json:"s,omitempty"`
	Type     string          `json:"t,omitempty"`
}

// HelloData is the payload carried by OP 10 (Hello).
type HelloData struct {
	HeartbeatIntervalMs int `json:"heartbeat_interval"`
}

// ReadyData is the payload of the READY dispatch event.
type ReadyData struct {
	Version          int    `json:"v"`
	SessionID        string `json:"session_id"`
	ResumeGatewayURL string `json:"resume_gateway_url"`
}

// IdentifyProperties identifies the connecting client to Discord.
type IdentifyProperties struct {
	OS      string `json:"os"`
	Browser string `json:"browser"`
	Device  string `json:"device"`
}

// IdentifyData is the payload of OP 2 (Identify).
type IdentifyData struct {
	Token      string             `json:"token"`
	Intents    int                `json:"intents"`
	Properties IdentifyProperties `json:"properties"`
}

// ResumeData is the payload of OP 6 (Resume).
type ResumeData struct {
	Token     string `json:"token"`
	SessionID string `json:"session_id"`
	Sequence  int    `json:"seq"`
}

// identifyProductName is the Discord-facing browser/device identity this
// bridge presents in IDENTIFY.
const identifyProductName = "discord-bridge"

func defaultIdentifyProperties() IdentifyProperties {
	return IdentifyProperties{
		OS:      "linux",
		Browser: identifyProductName,
		Device:  identifyProductName,
	}
}
