package nodeflow

// Lifecycle is the three-phase contract a Node runs.
//
// Prep reads shared storage and returns the exec input. Exec does the work
// and may be retried, so it should not touch shared storage. Post writes
// results back and returns the action label that selects the next vertex;
// an empty label means DefaultAction.
type Lifecycle[S, P, E any] interface {
	Prep(ctx Context, shared S) (P, error)
	Exec(ctx Context, prep P) (E, error)
	Post(ctx Context, shared S, prep P, exec E) (string, error)
}

// Fallback is implemented by lifecycles that recover from exhausted retries.
// The returned value flows into Post as if Exec had produced it.
// Without it the last exec error is returned unchanged.
type Fallback[P, E any] interface {
	ExecFallback(ctx Context, prep P, err error) (E, error)
}

// BatchLifecycle is the contract of BatchNode and ParallelBatchNode.
// Exec runs once per item returned by Prep, each with its own retries.
type BatchLifecycle[S, I, E any] interface {
	Prep(ctx Context, shared S) ([]I, error)
	Exec(ctx Context, item I) (E, error)
	Post(ctx Context, shared S, items []I, results []E) (string, error)
}

// Funcs builds a Lifecycle from functions. Nil fields use the defaults:
// prep and exec return zero values, post returns DefaultAction, and
// fallback returns the exec error.
type Funcs[S, P, E any] struct {
	PrepFn     func(ctx Context, shared S) (P, error)
	ExecFn     func(ctx Context, prep P) (E, error)
	PostFn     func(ctx Context, shared S, prep P, exec E) (string, error)
	FallbackFn func(ctx Context, prep P, err error) (E, error)
}

func (f Funcs[S, P, E]) Prep(ctx Context, shared S) (P, error) {
	if f.PrepFn == nil {
		var zero P
		return zero, nil
	}
	return f.PrepFn(ctx, shared)
}

func (f Funcs[S, P, E]) Exec(ctx Context, prep P) (E, error) {
	if f.ExecFn == nil {
		var zero E
		return zero, nil
	}
	return f.ExecFn(ctx, prep)
}

func (f Funcs[S, P, E]) Post(ctx Context, shared S, prep P, exec E) (string, error) {
	if f.PostFn == nil {
		return DefaultAction, nil
	}
	return f.PostFn(ctx, shared, prep, exec)
}

func (f Funcs[S, P, E]) ExecFallback(ctx Context, prep P, err error) (E, error) {
	if f.FallbackFn == nil {
		var zero E
		return zero, err
	}
	return f.FallbackFn(ctx, prep, err)
}

func (f Funcs[S, P, E]) hasFallback() bool { return f.FallbackFn != nil }

// BatchFuncs builds a BatchLifecycle from functions, with the same defaults
// as Funcs.
type BatchFuncs[S, I, E any] struct {
	PrepFn     func(ctx Context, shared S) ([]I, error)
	ExecFn     func(ctx Context, item I) (E, error)
	PostFn     func(ctx Context, shared S, items []I, results []E) (string, error)
	FallbackFn func(ctx Context, item I, err error) (E, error)
}

func (f BatchFuncs[S, I, E]) Prep(ctx Context, shared S) ([]I, error) {
	if f.PrepFn == nil {
		return nil, nil
	}
	return f.PrepFn(ctx, shared)
}

func (f BatchFuncs[S, I, E]) Exec(ctx Context, item I) (E, error) {
	if f.ExecFn == nil {
		var zero E
		return zero, nil
	}
	return f.ExecFn(ctx, item)
}

func (f BatchFuncs[S, I, E]) Post(ctx Context, shared S, items []I, results []E) (string, error) {
	if f.PostFn == nil {
		return DefaultAction, nil
	}
	return f.PostFn(ctx, shared, items, results)
}

func (f BatchFuncs[S, I, E]) ExecFallback(ctx Context, item I, err error) (E, error) {
	if f.FallbackFn == nil {
		var zero E
		return zero, err
	}
	return f.FallbackFn(ctx, item, err)
}

func (f BatchFuncs[S, I, E]) hasFallback() bool { return f.FallbackFn != nil }

// fallbackReporter lets adapters report whether a fallback was supplied.
type fallbackReporter interface {
	hasFallback() bool
}

// fallbackOf returns impl's fallback, or nil when it has none.
func fallbackOf[P, E any](impl any) func(Context, P, error) (E, error) {
	fb, ok := impl.(Fallback[P, E])
	if !ok {
		return nil
	}
	if r, ok := impl.(fallbackReporter); ok && !r.hasFallback() {
		return nil
	}
	return fb.ExecFallback
}
