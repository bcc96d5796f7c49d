package nodeflow

import (
	"fmt"
	"time"

	"github.com/randalmurphal/nodeflow/pkg/nodeflow/config"
	"github.com/randalmurphal/nodeflow/pkg/nodeflow/retry"
)

// Option configures a node or flow at construction.
// Options that do not apply to a vertex kind are ignored by it.
type Option func(*options)

type options struct {
	name        string
	policy      retry.Policy
	concurrency int
	maxSteps    int
}

func newOptions(opts []Option) options {
	o := options{policy: retry.Default}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithName sets the vertex name used in logs, spans, metrics and journal
// entries. Defaults to the lifecycle's type name.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithMaxRetries sets the number of exec attempts. Panics if n < 1.
func WithMaxRetries(n int) Option {
	if n < 1 {
		panic(fmt.Sprintf("nodeflow: max retries must be at least 1, got %d", n))
	}
	return func(o *options) {
		o.policy.MaxRetries = n
	}
}

// WithWait sets the pause between failed exec attempts. Panics if d < 0.
func WithWait(d time.Duration) Option {
	if d < 0 {
		panic(fmt.Sprintf("nodeflow: wait cannot be negative, got %v", d))
	}
	return func(o *options) {
		o.policy.Wait = d
	}
}

// WithBackoff multiplies the wait by factor after each failed attempt, up to
// maxWait (0 means no cap).
func WithBackoff(factor float64, maxWait time.Duration) Option {
	return func(o *options) {
		o.policy.BackoffFactor = factor
		o.policy.MaxWait = maxWait
	}
}

// WithJitter randomizes each wait by up to +/- j of its length.
func WithJitter(j float64) Option {
	return func(o *options) {
		o.policy.Jitter = j
	}
}

// WithRetryPolicy replaces the whole retry policy.
func WithRetryPolicy(p retry.Policy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithRetryConfig overlays retry settings from cfg on the current policy.
// A nested "retry" mapping is used when present, otherwise the keys are read
// from cfg itself. See retry.FromConfig for the keys.
func WithRetryConfig(cfg config.Config) Option {
	if sub, ok := cfg.Sub("retry"); ok {
		cfg = sub
	}
	return func(o *options) {
		o.policy = retry.FromConfig(cfg, o.policy)
	}
}

// WithConcurrency caps how many items a parallel batch runs at once.
// 0 (the default) means no cap.
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = n
	}
}

// WithMaxSteps bounds how many vertices one flow traversal may run.
// 0 (the default) means unbounded; cycles are legal.
func WithMaxSteps(n int) Option {
	return func(o *options) {
		o.maxSteps = n
	}
}

// mustPolicy validates p, panicking on invalid configuration.
func mustPolicy(name string, p retry.Policy) retry.Policy {
	if err := p.Validate(); err != nil {
		panic(fmt.Sprintf("nodeflow: node %s: %v", name, err))
	}
	return p
}
