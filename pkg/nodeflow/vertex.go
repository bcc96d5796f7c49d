package nodeflow

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"github.com/randalmurphal/nodeflow/pkg/nodeflow/observability"
)

// DefaultAction is the label used when post returns an empty action and
// when Next is called without a label.
const DefaultAction = "default"

// Workflow is a vertex of a flow graph: a Node, a batch node, or a flow.
// Flows nest because a Flow is itself a Workflow.
//
// Successor maps and params must not be changed while a run is in flight.
type Workflow[S any] interface {
	// Name returns the diagnostic name used in logs, spans, metrics and
	// journal entries.
	Name() string

	// SetParams replaces the vertex params.
	SetParams(params map[string]any)

	// Params returns a copy of the vertex params.
	Params() map[string]any

	// Next registers next under each given action label (DefaultAction if
	// none) and returns next for chaining. Replacing an existing edge logs a
	// warning.
	Next(next Workflow[S], action ...string) Workflow[S]

	// Successor returns the vertex registered under action.
	Successor(action string) (Workflow[S], bool)

	// Successors returns a copy of the edge map.
	Successors() map[string]Workflow[S]

	// Run executes this vertex once and returns its action label.
	// It never follows successor edges; only a Flow does that.
	Run(ctx context.Context, shared S) (string, error)

	// lifecycle runs prep, exec and post under a prepared Context.
	lifecycle(ctx *execContext, shared S) (string, error)
}

// vertex holds the edge map, params and name shared by every Workflow.
type vertex[S any] struct {
	name       string
	params     map[string]any
	successors map[string]Workflow[S]
}

func (v *vertex[S]) Name() string { return v.name }

func (v *vertex[S]) SetParams(params map[string]any) {
	v.params = maps.Clone(params)
}

func (v *vertex[S]) Params() map[string]any {
	if v.params == nil {
		return map[string]any{}
	}
	return maps.Clone(v.params)
}

func (v *vertex[S]) Next(next Workflow[S], action ...string) Workflow[S] {
	if next == nil {
		panic(fmt.Sprintf("nodeflow: nil successor for %s", v.name))
	}
	if v.successors == nil {
		v.successors = make(map[string]Workflow[S])
	}
	if len(action) == 0 {
		action = []string{DefaultAction}
	}
	for _, a := range action {
		if a == "" {
			a = DefaultAction
		}
		if prev, ok := v.successors[a]; ok {
			observability.LogSuccessorOverwrite(slog.Default(), v.name, a, prev.Name())
		}
		v.successors[a] = next
	}
	return next
}

func (v *vertex[S]) Successor(action string) (Workflow[S], bool) {
	next, ok := v.successors[action]
	return next, ok
}

func (v *vertex[S]) Successors() map[string]Workflow[S] {
	return maps.Clone(v.successors)
}

// runStandalone implements Run for every Workflow.
func runStandalone[S any](ctx context.Context, w Workflow[S], shared S) (string, error) {
	if ctx == nil {
		return "", ErrNilContext
	}
	ec := rootContext(ctx, w.Name(), w.Params())
	if n := len(w.Successors()); n > 0 {
		observability.LogOrchestrationSkipped(ec.Logger(), w.Name(), n)
	}
	action, err := w.lifecycle(ec, shared)
	if err != nil {
		return "", err
	}
	return normalizeAction(action), nil
}

func normalizeAction(action string) string {
	if action == "" {
		return DefaultAction
	}
	return action
}

// typeName returns the bare type name of v, or fallback when v has none
// worth showing.
func typeName(v any, fallback string) string {
	name := fmt.Sprintf("%T", v)
	name = strings.TrimLeft(name, "*")
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	switch name {
	case "", "Funcs", "BatchFuncs":
		return fallback
	}
	return name
}
