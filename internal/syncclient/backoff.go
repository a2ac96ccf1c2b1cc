package syncclient

import (
	"sync"
	"time"
)

// Backoff yields reconnect delays base, 2*base, 4*base... capped at max, for
// at most maxAttempts attempts between successful opens.
type Backoff struct {
	mu          sync.Mutex
	base        time.Duration
	max         time.Duration
	maxAttempts int
	attempts    int
}

func NewBackoff(base, max time.Duration, maxAttempts int) *Backoff {
	if base <= 0 {
		base = time.Second
	}
	if max < base {
		max = base
	}
	return &Backoff{base: base, max: max, maxAttempts: maxAttempts}
}

// Next consumes one attempt. ok is false once the attempts are exhausted.
func (b *Backoff) Next() (d time.Duration, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.attempts >= b.maxAttempts {
		return 0, false
	}
	b.attempts++
	return backoffDuration(b.base, b.max, b.attempts), true
}

func (b *Backoff) Attempts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempts
}

// Reset is called after a successful open.
func (b *Backoff) Reset() {
	b.mu.Lock()
	b.attempts = 0
	b.mu.Unlock()
}

func backoffDuration(base, max time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}
