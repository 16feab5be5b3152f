package auth

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"time"
)

// TimingDelay pads a response to a minimum duration plus random jitter, so a
// path that skips work (an unknown email, say) costs the same as one that
// does it.
type TimingDelay struct {
	floor  time.Duration
	jitter time.Duration
}

// NewTimingDelay creates a new TimingDelay instance
func NewTimingDelay(floor, jitter time.Duration) *TimingDelay {
	return &TimingDelay{floor: floor, jitter: jitter}
}

// cryptoRandDuration returns a secure random duration in [0, max)
func cryptoRandDuration(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}

	randomBytes := make([]byte, 8)
	if _, err := rand.Read(randomBytes); err != nil {
		return 0
	}

	return time.Duration(binary.BigEndian.Uint64(randomBytes) % uint64(max))
}

// WaitFrom blocks until at least floor+jitter has elapsed since start, or
// ctx is done.
func (td *TimingDelay) WaitFrom(ctx context.Context, start time.Time) {
	if td == nil {
		return
	}

	target := td.floor + cryptoRandDuration(td.jitter)
	remaining := target - time.Since(start)
	if remaining <= 0 {
		return
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
