// Package retry runs an operation under a bounded backoff policy. It backs
// the OAuth token endpoint calls, where transient network and 5xx failures
// are worth another attempt but revoked-credential responses are not.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Decision tells Do how to treat a failed attempt.
type Decision int

const (
	Stop     Decision = iota // permanent failure, abort immediately
	Again                    // transient failure, retry after the normal delay
	Cooldown                 // rate limited, retry after the longer delay
)

// Policy bounds the retry loop.
type Policy struct {
	Attempts      int
	BaseDelay     time.Duration
	CooldownDelay time.Duration
	OnRetry       func(attempt int, err error, delay time.Duration)
}

// Classify maps an operation error to a Decision.
type Classify func(err error) Decision

// Operation is the retried unit of work.
type Operation[T any] func() (T, error)

// PermanentError wraps a failure that Classify marked as Stop.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Do runs op until it succeeds, the policy's attempt bound is spent, the
// error is classified Stop, or ctx is done. Delays double between attempts.
func Do[T any](ctx context.Context, p Policy, classify Classify, op Operation[T]) (T, error) {
	var zero T
	delay := p.BaseDelay

	for attempt := 1; ; attempt++ {
		val, err := op()
		if err == nil {
			return val, nil
		}

		d := classify(err)
		if d == Stop {
			return zero, &PermanentError{Err: err}
		}
		if attempt >= p.Attempts {
			return zero, fmt.Errorf("failed after %d attempts: %w", p.Attempts, err)
		}

		if d == Cooldown {
			delay = p.CooldownDelay
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, delay)
		}

		select {
		case <-time.After(delay):
			delay *= 2
		case <-ctx.Done():
			return zero, fmt.Errorf("retry aborted: %w", ctx.Err())
		}
	}
}
