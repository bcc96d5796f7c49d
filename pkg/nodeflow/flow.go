package nodeflow

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/randalmurphal/nodeflow/pkg/nodeflow/journal"
	"github.com/randalmurphal/nodeflow/pkg/nodeflow/observability"
)

// Flow runs a graph of vertices starting at its start vertex, following the
// edge selected by each action label until no edge matches.
//
// Every vertex in the traversal runs with the flow's effective params.
// A Flow returns the last action label unless a post hook is set, and can
// itself be a vertex of another Flow.
type Flow[S any] struct {
	vertex[S]
	start    Workflow[S]
	maxSteps int
	prep     func(ctx Context, shared S) error
	post     func(ctx Context, shared S, last string) (string, error)
}

// NewFlow creates a Flow starting at start. start may be nil and set later
// with Start.
func NewFlow[S any](start Workflow[S], opts ...Option) *Flow[S] {
	o := newOptions(opts)
	f := &Flow[S]{start: start, maxSteps: o.maxSteps}
	f.name = o.name
	if f.name == "" {
		f.name = "flow"
	}
	return f
}

// Start replaces the start vertex and returns it for chaining.
func (f *Flow[S]) Start(start Workflow[S]) Workflow[S] {
	f.start = start
	return start
}

// StartNode returns the start vertex.
func (f *Flow[S]) StartNode() Workflow[S] {
	return f.start
}

// OnPrep sets a hook run before the traversal.
func (f *Flow[S]) OnPrep(fn func(ctx Context, shared S) error) *Flow[S] {
	f.prep = fn
	return f
}

// OnPost sets a hook run after the traversal. It receives the last action
// label and returns the flow's own action.
func (f *Flow[S]) OnPost(fn func(ctx Context, shared S, last string) (string, error)) *Flow[S] {
	f.post = fn
	return f
}

// Run traverses the flow once.
func (f *Flow[S]) Run(ctx context.Context, shared S) (string, error) {
	return runStandalone[S](ctx, f, shared)
}

func (f *Flow[S]) lifecycle(ctx *execContext, shared S) (string, error) {
	if f.prep != nil {
		if _, err := protect(f.name, PhasePrep, func() (struct{}, error) {
			return struct{}{}, f.prep(ctx, shared)
		}); err != nil {
			return "", err
		}
	}

	last, err := traverse(ctx, f.name, f.start, f.maxSteps, shared, ctx.params)
	if err != nil {
		return "", err
	}

	if f.post == nil {
		return last, nil
	}
	return protect(f.name, PhasePost, func() (string, error) {
		return f.post(ctx, shared, last)
	})
}

// traverse walks the graph from start and returns the last action label.
func traverse[S any](
	ctx *execContext,
	flow string,
	start Workflow[S],
	maxSteps int,
	shared S,
	params map[string]any,
) (last string, err error) {
	if start == nil {
		return "", ErrNilStart
	}

	began := time.Now()
	steps := 0
	logger := ctx.Logger()

	spanCtx, span := ctx.svc.spans.StartFlowSpan(ctx, flow, ctx.RunID())
	defer func() {
		ctx.svc.spans.EndSpanWithError(span, err)
		ctx.svc.metrics.RecordFlowRun(ctx, flow, steps, time.Since(began), err)
	}()

	observability.LogFlowStart(logger, flow, start.Name())

	current := start
	for {
		if cerr := ctx.Err(); cerr != nil {
			err = fmt.Errorf("flow %s: stopped before %s: %w", flow, current.Name(), cerr)
			observability.LogFlowError(logger, flow, current.Name(), err)
			return "", err
		}
		if maxSteps > 0 && steps >= maxSteps {
			err = &MaxStepsError{Flow: flow, MaxSteps: maxSteps, LastNode: current.Name()}
			observability.LogFlowError(logger, flow, current.Name(), err)
			return "", err
		}

		steps++
		action, serr := runStep(ctx, spanCtx, flow, current, steps, shared, params)
		if serr != nil {
			observability.LogFlowError(logger, flow, current.Name(), serr)
			return "", serr
		}
		last = action

		next, ok := current.Successor(action)
		if !ok {
			if succ := current.Successors(); len(succ) > 0 {
				observability.LogMissingSuccessor(logger, current.Name(), action, slices.Sorted(maps.Keys(succ)))
			}
			break
		}
		current = next
	}

	observability.LogFlowComplete(logger, flow, last, steps, time.Since(began))
	return last, nil
}

// runStep runs one vertex lifecycle inside a node span and journals it.
func runStep[S any](
	ctx *execContext,
	parent context.Context,
	flow string,
	w Workflow[S],
	step int,
	shared S,
	params map[string]any,
) (string, error) {
	name := w.Name()
	started := time.Now()

	nodeCtx, span := ctx.svc.spans.StartNodeSpan(parent, name, step)
	child := ctx.forNode(nodeCtx, name, params)

	action, err := w.lifecycle(child, shared)
	duration := time.Since(started)
	ctx.svc.spans.EndSpanWithError(span, err)

	if err == nil {
		action = normalizeAction(action)
		observability.LogStep(child.Logger(), name, action, step, duration)
	} else {
		action = ""
	}

	if ctx.svc.journal != nil {
		entry := journal.Entry{
			RunID:     ctx.RunID(),
			Flow:      flow,
			Node:      name,
			Action:    action,
			StartedAt: started,
			Duration:  duration,
		}
		if err != nil {
			entry.Error = err.Error()
		}
		if _, jerr := ctx.svc.journal.Append(entry); jerr != nil {
			observability.LogJournalError(child.Logger(), name, jerr)
		}
	}

	return action, err
}
