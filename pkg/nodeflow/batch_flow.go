package nodeflow

import (
	"context"

	"github.com/randalmurphal/nodeflow/pkg/nodeflow/config"
	"golang.org/x/sync/errgroup"
)

// BatchPrep returns one params map per traversal of a batch flow.
type BatchPrep[S any] func(ctx Context, shared S) ([]map[string]any, error)

// batchFlow is the state shared by BatchFlow and ParallelBatchFlow.
type batchFlow[S any] struct {
	vertex[S]
	start       Workflow[S]
	maxSteps    int
	concurrency int
	parallel    bool
	prep        BatchPrep[S]
	post        func(ctx Context, shared S, batches []map[string]any) (string, error)
}

func newBatchFlow[S any](start Workflow[S], prep BatchPrep[S], parallel bool, defaultName string, opts []Option) batchFlow[S] {
	o := newOptions(opts)
	b := batchFlow[S]{
		start:       start,
		maxSteps:    o.maxSteps,
		concurrency: o.concurrency,
		parallel:    parallel,
		prep:        prep,
	}
	b.name = o.name
	if b.name == "" {
		b.name = defaultName
	}
	return b
}

func (b *batchFlow[S]) lifecycle(ctx *execContext, shared S) (string, error) {
	var batches []map[string]any
	if b.prep != nil {
		var err error
		batches, err = protect(b.name, PhasePrep, func() ([]map[string]any, error) {
			return b.prep(ctx, shared)
		})
		if err != nil {
			return "", err
		}
	}

	base := config.New(ctx.params)
	runOne := func(i int) error {
		params := base.Merge(batches[i]).Raw()
		if _, err := traverse(ctx, b.name, b.start, b.maxSteps, shared, params); err != nil {
			return &ItemError{Node: b.name, Index: i, Err: err}
		}
		return nil
	}

	if len(batches) > 0 {
		ctx.svc.metrics.RecordBatch(ctx, b.name, len(batches), b.parallel)
	}

	if b.parallel {
		var g errgroup.Group
		if b.concurrency > 0 {
			g.SetLimit(b.concurrency)
		}
		for i := range batches {
			g.Go(func() error { return runOne(i) })
		}
		if err := g.Wait(); err != nil {
			return "", err
		}
	} else {
		for i := range batches {
			if err := runOne(i); err != nil {
				return "", err
			}
		}
	}

	if b.post == nil {
		return DefaultAction, nil
	}
	return protect(b.name, PhasePost, func() (string, error) {
		return b.post(ctx, shared, batches)
	})
}

// BatchFlow runs its whole graph once per params map returned by prep, in
// order. Each traversal gets the flow's params overlaid with that map.
// The first failing traversal stops the batch with *ItemError.
type BatchFlow[S any] struct {
	batchFlow[S]
}

// NewBatchFlow creates a sequential BatchFlow. A nil prep runs no traversals.
func NewBatchFlow[S any](start Workflow[S], prep BatchPrep[S], opts ...Option) *BatchFlow[S] {
	return &BatchFlow[S]{newBatchFlow(start, prep, false, "batch_flow", opts)}
}

// Start replaces the start vertex and returns it for chaining.
func (b *BatchFlow[S]) Start(start Workflow[S]) Workflow[S] {
	b.start = start
	return start
}

// OnPost sets a hook run after every traversal finished. The default
// returns DefaultAction.
func (b *BatchFlow[S]) OnPost(fn func(ctx Context, shared S, batches []map[string]any) (string, error)) *BatchFlow[S] {
	b.post = fn
	return b
}

// Run executes every traversal once.
func (b *BatchFlow[S]) Run(ctx context.Context, shared S) (string, error) {
	return runStandalone[S](ctx, b, shared)
}

// ParallelBatchFlow is a BatchFlow whose traversals run concurrently.
// All traversals settle before the error of the first one to fail is
// returned as *ItemError.
type ParallelBatchFlow[S any] struct {
	batchFlow[S]
}

// NewParallelBatchFlow creates a ParallelBatchFlow. Traversals are not
// capped unless WithConcurrency is given.
func NewParallelBatchFlow[S any](start Workflow[S], prep BatchPrep[S], opts ...Option) *ParallelBatchFlow[S] {
	return &ParallelBatchFlow[S]{newBatchFlow(start, prep, true, "parallel_batch_flow", opts)}
}

// Start replaces the start vertex and returns it for chaining.
func (b *ParallelBatchFlow[S]) Start(start Workflow[S]) Workflow[S] {
	b.start = start
	return start
}

// OnPost sets a hook run after every traversal settled.
func (b *ParallelBatchFlow[S]) OnPost(fn func(ctx Context, shared S, batches []map[string]any) (string, error)) *ParallelBatchFlow[S] {
	b.post = fn
	return b
}

// Run executes every traversal concurrently.
func (b *ParallelBatchFlow[S]) Run(ctx context.Context, shared S) (string, error) {
	return runStandalone[S](ctx, b, shared)
}
