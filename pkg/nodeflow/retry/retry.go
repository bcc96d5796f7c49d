// Package retry implements the bounded retry loop that wraps a node's exec phase.
//
// A Policy bounds the number of attempts and the delay between them. The delay
// is fixed by default; BackoffFactor, MaxWait and Jitter turn it into a capped
// exponential backoff. Errors wrapped with Permanent end the loop early.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/randalmurphal/nodeflow/pkg/nodeflow/config"
)

// Policy configures retry behavior for a single exec call.
type Policy struct {
	// MaxRetries is the total number of attempts, including the first. Minimum 1.
	MaxRetries int

	// Wait is the delay after the first failed attempt.
	Wait time.Duration

	// BackoffFactor multiplies the delay after each failed attempt.
	// Values <= 1 keep the delay fixed at Wait.
	BackoffFactor float64

	// MaxWait caps the delay. Zero means no cap.
	MaxWait time.Duration

	// Jitter randomizes each delay by +/- Jitter*delay. Range 0.0-1.0.
	Jitter float64
}

// Default is a single attempt with no delay.
var Default = Policy{MaxRetries: 1}

// Validation errors.
var (
	ErrMaxRetries = errors.New("max retries must be at least 1")
	ErrWait       = errors.New("wait cannot be negative")
	ErrJitter     = errors.New("jitter must be between 0 and 1")
)

// Validate reports whether the policy can be executed.
func (p Policy) Validate() error {
	if p.MaxRetries < 1 {
		return fmt.Errorf("%w: got %d", ErrMaxRetries, p.MaxRetries)
	}
	if p.Wait < 0 || p.MaxWait < 0 {
		return ErrWait
	}
	if p.Jitter < 0 || p.Jitter > 1 {
		return fmt.Errorf("%w: got %v", ErrJitter, p.Jitter)
	}
	return nil
}

// Delay returns the pause to take after failed attempt index attempt (0-based)
// and before the next one. Before jitter it is never below Wait. Without a
// MaxWait the backoff saturates at the largest representable duration.
func (p Policy) Delay(attempt int) time.Duration {
	if p.Wait <= 0 {
		return 0
	}
	limit := float64(maxDuration)
	if p.MaxWait > 0 {
		limit = min(limit, float64(max(p.MaxWait, p.Wait)))
	}
	f := float64(p.Wait)
	if p.BackoffFactor > 1 {
		for range attempt {
			f *= p.BackoffFactor
			if f >= limit {
				break
			}
		}
	}
	return applyJitter(toDuration(min(f, limit)), p.Jitter)
}

const maxDuration = time.Duration(math.MaxInt64)

// toDuration converts f to a Duration, saturating instead of overflowing.
func toDuration(f float64) time.Duration {
	if f >= float64(maxDuration) {
		return maxDuration
	}
	if f < 0 {
		return 0
	}
	return time.Duration(f)
}

// applyJitter returns d +/- (d * jitter * random).
func applyJitter(d time.Duration, jitter float64) time.Duration {
	if jitter <= 0 {
		return d
	}
	return toDuration(float64(d) + float64(d)*jitter*(rand.Float64()*2-1))
}

// FromConfig overlays the retry keys found in cfg onto base.
//
// Keys: max_retries, wait, backoff_factor, max_wait, jitter.
// wait and max_wait accept seconds or duration strings.
func FromConfig(cfg config.Config, base Policy) Policy {
	return Policy{
		MaxRetries:    cfg.Int("max_retries", base.MaxRetries),
		Wait:          cfg.Duration("wait", base.Wait),
		BackoffFactor: cfg.Float("backoff_factor", base.BackoffFactor),
		MaxWait:       cfg.Duration("max_wait", base.MaxWait),
		Jitter:        cfg.Float("jitter", base.Jitter),
	}
}

// Result is the outcome of Do.
type Result[T any] struct {
	// Value is the successful result.
	Value T

	// Err is the error of the last attempt, or the context error if the
	// loop was interrupted during a wait.
	Err error

	// Attempts is the number of attempts made.
	Attempts int

	// Interrupted is true when the context ended the loop during a wait.
	Interrupted bool

	// Duration is the total time spent, waits included.
	Duration time.Duration
}

// Hook observes a failed attempt that will be retried after delay.
type Hook func(attempt int, err error, delay time.Duration)

// Do runs fn until it succeeds, returns a Permanent error, or the policy's
// attempts are used up. fn receives the 0-based attempt index.
//
// Waits between attempts select on ctx, so cancelling ctx interrupts a wait
// but never an attempt already in progress.
func Do[T any](ctx context.Context, p Policy, fn func(attempt int) (T, error), onRetry Hook) Result[T] {
	start := time.Now()
	attempts := max(p.MaxRetries, 1)

	var last error
	for attempt := range attempts {
		value, err := fn(attempt)
		if err == nil {
			return Result[T]{Value: value, Attempts: attempt + 1, Duration: time.Since(start)}
		}
		last = err

		if IsPermanent(err) || attempt == attempts-1 {
			return Result[T]{Err: err, Attempts: attempt + 1, Duration: time.Since(start)}
		}

		delay := p.Delay(attempt)
		if onRetry != nil {
			onRetry(attempt, err, delay)
		}
		if err := Sleep(ctx, delay); err != nil {
			return Result[T]{Err: err, Attempts: attempt + 1, Interrupted: true, Duration: time.Since(start)}
		}
	}

	// unreachable while attempts >= 1
	return Result[T]{Err: last, Attempts: attempts, Duration: time.Since(start)}
}

// Sleep pauses for d or until ctx is done, whichever comes first.
// It returns ctx.Err() when interrupted.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
