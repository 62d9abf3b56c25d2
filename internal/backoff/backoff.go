// Package backoff builds the delay schedule used between update attempts.
package backoff

import (
	"iter"
	"math"
	"time"

	"github.com/sethvargo/go-retry"
)

// Policy tunes the retry schedule.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// BaseDelay is the wait before the second attempt.
	BaseDelay time.Duration
	// MaxDelay caps each individual wait. Zero means no cap.
	MaxDelay time.Duration
}

// DefaultPolicy is used when nothing is configured:
// three attempts, waits of e^(n/2) seconds.
var DefaultPolicy = Policy{
	MaxAttempts: 3,
	BaseDelay:   time.Second,
	MaxDelay:    30 * time.Second,
}

// New returns a fresh backoff for one retry loop. The n-th delay is
// BaseDelay * e^(n/2) and at most MaxAttempts-1 delays are produced.
// A Backoff is single use.
func New(p Policy) retry.Backoff {
	var n int
	var b retry.Backoff = retry.BackoffFunc(func() (time.Duration, bool) {
		d := time.Duration(float64(p.BaseDelay) * math.Exp(float64(n)/2))
		n++
		return d, false
	})

	if p.MaxDelay > 0 {
		b = retry.WithCappedDuration(p.MaxDelay, b)
	}
	retries := p.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	return retry.WithMaxRetries(uint64(retries), b)
}

// Delays exposes b as a lazy sequence. It drains b.
func Delays(b retry.Backoff) iter.Seq[time.Duration] {
	return func(yield func(time.Duration) bool) {
		for {
			d, stop := b.Next()
			if stop || !yield(d) {
				return
			}
		}
	}
}
