package script

import (
	"time"
)

// Breaker defaults.
const (
	DefaultBreakerThreshold = 5
	DefaultBreakerWindow    = 30 * time.Second
)

// Breaker counts errors in a sliding time window and trips when the count
// reaches the threshold. Tripping clears the history, so a breaker that
// keeps receiving errors trips again only after another full threshold.
type Breaker struct {
	threshold int
	window    time.Duration
	history   []time.Time
}

// NewBreaker creates a breaker. Non-positive arguments select the defaults.
func NewBreaker(threshold int, window time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = DefaultBreakerThreshold
	}
	if window <= 0 {
		window = DefaultBreakerWindow
	}
	return &Breaker{threshold: threshold, window: window}
}

// Record adds an error at now and reports whether the breaker tripped.
// Entries older than the window are pruned first.
func (b *Breaker) Record(now time.Time) bool {
	b.prune(now)
	b.history = append(b.history, now)
	if len(b.history) >= b.threshold {
		b.history = b.history[:0]
		return true
	}
	return false
}

// Count returns the number of errors inside the window ending at now.
func (b *Breaker) Count(now time.Time) int {
	b.prune(now)
	return len(b.history)
}

// Reset clears the error history.
func (b *Breaker) Reset() {
	b.history = b.history[:0]
}

// Threshold returns the trip count.
func (b *Breaker) Threshold() int {
	return b.threshold
}

// Window returns the sliding window length.
func (b *Breaker) Window() time.Duration {
	return b.window
}

func (b *Breaker) prune(now time.Time) {
	cutoff := now.Add(-b.window)
	i := 0
	for i < len(b.history) && b.history[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		b.history = append(b.history[:0], b.history[i:]...)
	}
}
