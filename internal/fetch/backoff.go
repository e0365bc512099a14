package fetch

import (
	"sync"
	"time"
)

// Breaker suppresses retries for a cooldown window after a failure.
// It is binary open/closed on a timer, with no half-open probing: a
// trip blocks all attempts until the cooldown elapses, then the next
// attempt is allowed through.
type Breaker struct {
	mu       sync.Mutex
	failed   bool
	failedAt time.Time
	cooldown time.Duration
	now      func() time.Time
}

// NewBreaker creates a breaker with the given cooldown window.
func NewBreaker(cooldown time.Duration) *Breaker {
	return &Breaker{cooldown: cooldown, now: time.Now}
}

// Allow reports whether an attempt may proceed. A tripped breaker whose
// cooldown has elapsed allows the attempt but stays tripped until Reset.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.failed {
		return true
	}
	return b.now().Sub(b.failedAt) >= b.cooldown
}

// Trip marks the breaker failed as of now, restarting the cooldown.
func (b *Breaker) Trip() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failed = true
	b.failedAt = b.now()
}

// Reset clears the failed flag after a successful fetch.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failed = false
	b.failedAt = time.Time{}
}

// Remaining returns how long until attempts are allowed again, zero if
// attempts are already allowed.
func (b *Breaker) Remaining() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.failed {
		return 0
	}
	left := b.cooldown - b.now().Sub(b.failedAt)
	if left < 0 {
		return 0
	}
	return left
}

// setClock overrides the time source for tests.
func (b *Breaker) setClock(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}
