package nodeflow

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// BatchNode runs exec once per item returned by prep, in order.
// Each item gets the full retry and fallback policy. The first item that
// still fails stops the batch; its error is returned as *ItemError.
type BatchNode[S, I, E any] struct {
	vertex[S]
	impl   BatchLifecycle[S, I, E]
	runner execRunner[I, E]
}

// NewBatchNode creates a sequential BatchNode.
func NewBatchNode[S, I, E any](impl BatchLifecycle[S, I, E], opts ...Option) *BatchNode[S, I, E] {
	o := newOptions(opts)
	n := &BatchNode[S, I, E]{impl: impl}
	n.name = o.name
	if n.name == "" {
		n.name = typeName(impl, "batch")
	}
	n.runner = execRunner[I, E]{
		node:     n.name,
		policy:   mustPolicy(n.name, o.policy),
		exec:     impl.Exec,
		fallback: fallbackOf[I, E](impl),
	}
	return n
}

// Run executes prep, every item, and post once.
func (n *BatchNode[S, I, E]) Run(ctx context.Context, shared S) (string, error) {
	return runStandalone[S](ctx, n, shared)
}

func (n *BatchNode[S, I, E]) lifecycle(ctx *execContext, shared S) (string, error) {
	return runBatch(ctx, n.name, n.impl, shared, func(items []I) ([]E, error) {
		results := make([]E, len(items))
		for i, item := range items {
			r, err := n.runner.run(ctx, item)
			if err != nil {
				return nil, &ItemError{Node: n.name, Index: i, Err: err}
			}
			results[i] = r
		}
		return results, nil
	}, false)
}

// ParallelBatchNode runs exec for every item concurrently and waits for all
// of them. Results keep input order.
//
// When items fail, every item still runs to completion and the error of the
// first one to fail is returned as *ItemError.
type ParallelBatchNode[S, I, E any] struct {
	vertex[S]
	impl        BatchLifecycle[S, I, E]
	runner      execRunner[I, E]
	concurrency int
}

// NewParallelBatchNode creates a ParallelBatchNode. Items are not capped
// unless WithConcurrency is given.
func NewParallelBatchNode[S, I, E any](impl BatchLifecycle[S, I, E], opts ...Option) *ParallelBatchNode[S, I, E] {
	o := newOptions(opts)
	n := &ParallelBatchNode[S, I, E]{impl: impl, concurrency: o.concurrency}
	n.name = o.name
	if n.name == "" {
		n.name = typeName(impl, "parallel_batch")
	}
	n.runner = execRunner[I, E]{
		node:     n.name,
		policy:   mustPolicy(n.name, o.policy),
		exec:     impl.Exec,
		fallback: fallbackOf[I, E](impl),
	}
	return n
}

// Run executes prep, every item concurrently, and post once.
func (n *ParallelBatchNode[S, I, E]) Run(ctx context.Context, shared S) (string, error) {
	return runStandalone[S](ctx, n, shared)
}

func (n *ParallelBatchNode[S, I, E]) lifecycle(ctx *execContext, shared S) (string, error) {
	return runBatch(ctx, n.name, n.impl, shared, func(items []I) ([]E, error) {
		results := make([]E, len(items))
		var g errgroup.Group
		if n.concurrency > 0 {
			g.SetLimit(n.concurrency)
		}
		for i, item := range items {
			g.Go(func() error {
				r, err := n.runner.run(ctx, item)
				if err != nil {
					return &ItemError{Node: n.name, Index: i, Err: err}
				}
				results[i] = r
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return results, nil
	}, true)
}

// runBatch drives the batch lifecycle around execAll.
func runBatch[S, I, E any](
	ctx *execContext,
	name string,
	impl BatchLifecycle[S, I, E],
	shared S,
	execAll func([]I) ([]E, error),
	parallel bool,
) (action string, err error) {
	start := time.Now()
	defer func() {
		ctx.svc.metrics.RecordNodeRun(ctx, name, time.Since(start), err)
	}()

	items, err := protect(name, PhasePrep, func() ([]I, error) {
		return impl.Prep(ctx, shared)
	})
	if err != nil {
		return "", err
	}

	results := []E{}
	if len(items) > 0 {
		ctx.svc.metrics.RecordBatch(ctx, name, len(items), parallel)
		results, err = execAll(items)
		if err != nil {
			return "", err
		}
	} else {
		items = []I{}
	}

	return protect(name, PhasePost, func() (string, error) {
		return impl.Post(ctx, shared, items, results)
	})
}
