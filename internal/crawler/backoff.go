package crawler

import (
	"crypto/rand"
	"math"
	"math/big"
	"time"
)

// IdleBackoff yields jittered, exponentially growing waits for a worker that
// found the frontier empty while peers were still busy.
type IdleBackoff struct {
	min     time.Duration
	max     time.Duration
	attempt int
}

// NewIdleBackoff builds a backoff bounded by [minDelay, maxDelay].
func NewIdleBackoff(minDelay, maxDelay time.Duration) *IdleBackoff {
	if minDelay <= 0 {
		minDelay = DefaultIdleBackoffMin
	}
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &IdleBackoff{min: minDelay, max: maxDelay}
}

// Next returns the wait before the next attempt and advances the sequence.
// Results fall within [min/2, max].
func (b *IdleBackoff) Next() time.Duration {
	delay := float64(b.min) * math.Pow(2, float64(b.attempt))
	if delay > float64(b.max) {
		delay = float64(b.max)
	} else {
		b.attempt++
	}
	return time.Duration(delay/2) + jitter(time.Duration(delay)/2)
}

// Reset restarts the sequence after the worker found work.
func (b *IdleBackoff) Reset() {
	b.attempt = 0
}

func jitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(limit)))
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}
