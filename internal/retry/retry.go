// Package retry provides the exponential-backoff-with-jitter policy used by
// Controller between attempts: it backs off exponentially with jitter and
// resets after a successful topology refresh. It wraps
// github.com/cenkalti/backoff/v4 rather than hand-rolling a backoff
// generator, matching its presence as a dependency in both the teacher's
// and ZhenyuePan-NyxDB's go.mod.
package retry

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy configures Controller's retry budget: per-call timeout, total
// deadline, and the max number of attempts.
type Policy struct {
	MaxAttempts      int
	PerAttemptTimeout time.Duration
	TotalDeadline    time.Duration
	InitialInterval  time.Duration
	MaxInterval      time.Duration
}

// DefaultPolicy matches the spec's stated default of "retry until
// deadline": a generous attempt count bounded primarily by TotalDeadline.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:       32,
		PerAttemptTimeout: 2 * time.Second,
		TotalDeadline:     30 * time.Second,
		InitialInterval:   10 * time.Millisecond,
		MaxInterval:       1 * time.Second,
	}
}

// Backoff is a resettable exponential-backoff-with-jitter generator. It is
// not safe for concurrent use; each Controller.Call constructs its own.
type Backoff struct {
	eb  *backoff.ExponentialBackOff
}

// New constructs a Backoff from p, with a zero InitialInterval/MaxInterval
// falling back to sane defaults.
func New(p Policy) *Backoff {
	eb := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		eb.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		eb.MaxInterval = p.MaxInterval
	}
	if p.TotalDeadline > 0 {
		eb.MaxElapsedTime = p.TotalDeadline
	}
	eb.Reset()
	return &Backoff{eb: eb}
}

// Next returns the next backoff interval, or backoff.Stop (-1) once the
// policy's total deadline has elapsed.
func (b *Backoff) Next() time.Duration {
	return b.eb.NextBackOff()
}

// Reset restarts the backoff sequence, called after a successful topology
// refresh.
func (b *Backoff) Reset() {
	b.eb.Reset()
}

// Stop is the sentinel Next() returns when the caller should give up.
const Stop = backoff.Stop
