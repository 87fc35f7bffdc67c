package gateway

import "errors"

// Sentinel errors surfaced by Client.Run. ErrFatalClose is the only one
// that should ever stop the process; everything else is handled by the
// internal reconnect loop and never escapes Run.
var (
	ErrFatalClose     = errors.New("fatal close code received from gateway")
	ErrNotConnected   = errors.New("not connected to gateway")
	ErrInvalidSession = errors.New("session invalidated by gateway")
)
