// Package limits gates inbound connections before a goroutine is ever
// spun up for them, adapting the admission-control idea in
// ws/internal/shared/limits/resource_guard.go and the token-bucket
// algorithm documented in ws/internal/single/limits/rate_limiter.go,
// backed here by the real golang.org/x/time/rate limiter rather than
// the teacher's hand-rolled bucket.
package limits

import (
	"golang.org/x/time/rate"
)

// AcceptLimiter admits or rejects new connections: a token-bucket rate
// cap (bursty accept storms get smoothed) plus a hard ceiling on
// concurrently open connections.
type AcceptLimiter struct {
	limiter *rate.Limiter
	slots   chan struct{}
}

// NewAcceptLimiter builds a limiter allowing ratePerSec sustained accepts
// with up to burst in a spike, and at most maxConnections held open at
// once.
func NewAcceptLimiter(ratePerSec float64, burst, maxConnections int) *AcceptLimiter {
	if maxConnections <= 0 {
		maxConnections = 1
	}
	return &AcceptLimiter{
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst),
		slots:   make(chan struct{}, maxConnections),
	}
}

// TryAcquire reports whether a new connection may proceed, reserving a
// capacity slot if so. Release must be called exactly once per successful
// TryAcquire, when the connection closes.
func (l *AcceptLimiter) TryAcquire() bool {
	if !l.limiter.Allow() {
		return false
	}
	select {
	case l.slots <- struct{}{}:
		return true
	default:
		return false
	}
}

func (l *AcceptLimiter) Release() {
	select {
	case <-l.slots:
	default:
	}
}

// Active returns the number of currently held capacity slots.
func (l *AcceptLimiter) Active() int {
	return len(l.slots)
}
