/*
Package nodeflow runs workflows built from nodes joined by labeled edges.

# Overview

A node has three phases. Prep reads shared storage, Exec does the work
(with retries), and Post writes results back and returns an action label.
A Flow starts at one node, runs it, and follows the edge registered under
the returned label until no edge matches. Shared storage is any type S;
nodeflow passes it through untouched and never synchronizes access to it.

# Basic Usage

Implement Lifecycle (or fill in Funcs) and wire nodes with Next:

	type Shared struct {
	    Numbers []int
	    Total   int
	}

	sum := nodeflow.NewNode[*Shared, []int, int](nodeflow.Funcs[*Shared, []int, int]{
	    PrepFn: func(ctx nodeflow.Context, s *Shared) ([]int, error) { return s.Numbers, nil },
	    ExecFn: func(ctx nodeflow.Context, nums []int) (int, error) {
	        total := 0
	        for _, n := range nums {
	            total += n
	        }
	        return total, nil
	    },
	    PostFn: func(ctx nodeflow.Context, s *Shared, _ []int, total int) (string, error) {
	        s.Total = total
	        return "done", nil
	    },
	}, nodeflow.WithName("sum"), nodeflow.WithMaxRetries(3), nodeflow.WithWait(100*time.Millisecond))

	report := nodeflow.NewNode[*Shared, int, int](&reporter{})
	sum.Next(report, "done")

	flow := nodeflow.NewFlow[*Shared](sum)
	action, err := flow.Run(context.Background(), &Shared{Numbers: []int{1, 2, 3}})

# Retries and Fallback

Exec is attempted up to the node's max retries. Between failed attempts
the node waits, optionally with exponential backoff and jitter. When
attempts run out, a lifecycle implementing Fallback recovers with a
substitute result; otherwise the last exec error is returned unchanged.
Wrap an error with retry.Permanent to skip the remaining attempts.

Context.CurrentRetry reports the 0-based attempt inside Exec and
ExecFallback.

# Batches

BatchNode runs Exec once per item returned by Prep, in order.
ParallelBatchNode runs the items concurrently; results keep input order.
BatchFlow and ParallelBatchFlow run a whole flow once per params map.

# Params

Every vertex in a flow runs with the flow's params. Batch flows overlay each
batch's params on them. Read them with Context.Params or Context.Config.

# Observability

NewContext attaches a logger, run ID, OpenTelemetry metrics and tracing, and
a step journal. Pass it to Run:

	ctx := nodeflow.NewContext(context.Background(),
	    nodeflow.WithLogger(logger),
	    nodeflow.WithObservability(),
	    nodeflow.WithJournal(journal.NewMemoryStore()))
	action, err := flow.Run(ctx, shared)

# Concurrency

Per-run state lives in Context, so the same node may appear in concurrent
ParallelBatchFlow traversals. Do not change edges or params while a run is
in flight.
*/
package nodeflow
