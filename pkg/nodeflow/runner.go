package nodeflow

import (
	"fmt"
	"runtime/debug"
	"time"

	"github.com/randalmurphal/nodeflow/pkg/nodeflow/observability"
	"github.com/randalmurphal/nodeflow/pkg/nodeflow/retry"
	"go.opentelemetry.io/otel/attribute"
)

// execRunner runs one exec input with retries and fallback.
type execRunner[P, E any] struct {
	node     string
	policy   retry.Policy
	exec     func(Context, P) (E, error)
	fallback func(Context, P, error) (E, error)
}

// run attempts exec up to policy.MaxRetries times. After the last failure it
// calls the fallback if there is one; otherwise the exec error is returned
// as is.
func (r execRunner[P, E]) run(ctx *execContext, prep P) (E, error) {
	var panicked *PanicError

	res := retry.Do(ctx, r.policy, func(attempt int) (E, error) {
		v, err := protect(r.node, PhaseExec, func() (E, error) {
			return r.exec(ctx.withAttempt(attempt), prep)
		})
		if pe, ok := err.(*PanicError); ok {
			panicked = pe
			return v, retry.Permanent(pe)
		}
		return v, err
	}, func(attempt int, err error, delay time.Duration) {
		observability.LogRetry(ctx.Logger(), r.node, attempt, err, delay)
		ctx.svc.metrics.RecordRetry(ctx, r.node)
		ctx.svc.spans.AddSpanEvent(ctx, "retry",
			attribute.Int("attempt", attempt),
			attribute.String("error", err.Error()),
			attribute.Int64("delay_ms", delay.Milliseconds()),
		)
	})

	if res.Err == nil {
		return res.Value, nil
	}
	if res.Interrupted {
		var zero E
		return zero, fmt.Errorf("node %s: retry wait interrupted: %w", r.node, res.Err)
	}

	err := res.Err
	if panicked != nil {
		err = panicked
	}
	if r.fallback == nil {
		var zero E
		return zero, err
	}

	observability.LogFallback(ctx.Logger(), r.node, res.Attempts, err)
	ctx.svc.metrics.RecordFallback(ctx, r.node)
	ctx.svc.spans.AddSpanEvent(ctx, "fallback",
		attribute.Int("attempts", res.Attempts),
		attribute.String("error", err.Error()),
	)
	last := ctx.withAttempt(res.Attempts - 1)
	return protect(r.node, PhaseFallback, func() (E, error) {
		return r.fallback(last, prep, err)
	})
}

// protect calls fn, converting a panic into a *PanicError.
func protect[T any](node string, phase Phase, fn func() (T, error)) (v T, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			var zero T
			v = zero
			err = &PanicError{
				Node:  node,
				Phase: phase,
				Value: rec,
				Stack: string(debug.Stack()),
			}
		}
	}()
	return fn()
}
