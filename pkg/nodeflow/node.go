package nodeflow

import (
	"context"
	"time"

	"github.com/randalmurphal/nodeflow/pkg/nodeflow/retry"
)

// Node runs a Lifecycle with bounded exec retries and optional fallback.
//
// Prep and post errors are never retried and are returned unchanged.
// Exec errors are retried per the node's retry policy; once attempts run
// out the Fallback is called if impl implements it, otherwise the last exec
// error is returned unchanged. A panic in exec ends the attempts at once,
// regardless of the retry policy.
type Node[S, P, E any] struct {
	vertex[S]
	impl   Lifecycle[S, P, E]
	runner execRunner[P, E]
}

var _ Workflow[map[string]any] = (*Node[map[string]any, any, any])(nil)

// NewNode creates a Node. By default it makes one exec attempt with no wait.
// Panics if the resulting retry policy is invalid.
func NewNode[S, P, E any](impl Lifecycle[S, P, E], opts ...Option) *Node[S, P, E] {
	o := newOptions(opts)
	n := &Node[S, P, E]{impl: impl}
	n.name = o.name
	if n.name == "" {
		n.name = typeName(impl, "node")
	}
	n.runner = execRunner[P, E]{
		node:     n.name,
		policy:   mustPolicy(n.name, o.policy),
		exec:     impl.Exec,
		fallback: fallbackOf[P, E](impl),
	}
	return n
}

// RetryPolicy returns the node's retry policy.
func (n *Node[S, P, E]) RetryPolicy() retry.Policy {
	return n.runner.policy
}

// Run executes prep, exec with retries, and post once.
func (n *Node[S, P, E]) Run(ctx context.Context, shared S) (string, error) {
	return runStandalone[S](ctx, n, shared)
}

func (n *Node[S, P, E]) lifecycle(ctx *execContext, shared S) (action string, err error) {
	start := time.Now()
	defer func() {
		ctx.svc.metrics.RecordNodeRun(ctx, n.name, time.Since(start), err)
	}()

	prep, err := protect(n.name, PhasePrep, func() (P, error) {
		return n.impl.Prep(ctx, shared)
	})
	if err != nil {
		return "", err
	}

	result, err := n.runner.run(ctx, prep)
	if err != nil {
		return "", err
	}

	return protect(n.name, PhasePost, func() (string, error) {
		return n.impl.Post(ctx, shared, prep, result)
	})
}
