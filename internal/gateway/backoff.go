package gateway

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

const (
	// BaseDelay is the backoff delay at attempt 0.
	BaseDelay = 1 * time.Second

	// MaxDelay is the backoff ceiling.
	MaxDelay = 60 * time.Second
)

// CalculateBackoff computes a full-jitter exponential reconnect delay:
// uniform(0, min(cap, base*2^attempt)). The attempt parameter is
// 0-indexed (the first reconnect is attempt 0).
func CalculateBackoff(attempt int) time.Duration {
	// 2^6 * 1s = 64s already exceeds MaxDelay, so higher attempts can't
	// push the ceiling any further; clamp to avoid an overflowing shift.
	if attempt > 6 {
		attempt = 6
	}
	if attempt < 0 {
		attempt = 0
	}

	ceiling := BaseDelay * time.Duration(1<<uint(attempt))
	if ceiling > MaxDelay {
		ceiling = MaxDelay
	}

	return randomDuration(ceiling)
}

// randomDuration returns a uniformly distributed duration in [0, max].
// Uses crypto/rand so concurrently reconnecting instances don't converge
// on the same delay (thundering herd).
func randomDuration(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand failing is effectively unrecoverable; fall back to
		// the ceiling rather than hammering the Gateway with no delay.
		return max
	}

	randUint := binary.BigEndian.Uint64(buf[:])
	randFloat := float64(randUint) / float64(^uint64(0))
	return time.Duration(randFloat * float64(max))
}

// ResetBackoff returns the attempt counter value to reset to after a
// successful READY or RESUMED.
func ResetBackoff() int {
	return 0
}
