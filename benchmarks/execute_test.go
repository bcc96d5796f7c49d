package benchmarks

import (
	"context"
	"testing"

	"github.com/randalmurphal/nodeflow/pkg/nodeflow"
)

// BenchmarkRun_Linear_5 runs a 5-node linear flow.
func BenchmarkRun_Linear_5(b *testing.B) {
	flow := buildLinearFlow(5)
	ctx := nodeflow.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = flow.Run(ctx, &State{})
	}
}

// BenchmarkRun_Linear_10 runs a 10-node linear flow.
func BenchmarkRun_Linear_10(b *testing.B) {
	flow := buildLinearFlow(10)
	ctx := nodeflow.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = flow.Run(ctx, &State{})
	}
}

// BenchmarkRun_Linear_100 runs a 100-node linear flow.
func BenchmarkRun_Linear_100(b *testing.B) {
	flow := buildLinearFlow(100)
	ctx := nodeflow.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = flow.Run(ctx, &State{})
	}
}

// BenchmarkRun_Branching runs a flow with labeled edges.
func BenchmarkRun_Branching(b *testing.B) {
	flow := buildBranchingFlow()
	ctx := nodeflow.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = flow.Run(ctx, &State{Value: i})
	}
}

// BenchmarkRun_Loop_10 runs a self-looping flow 10 times.
func BenchmarkRun_Loop_10(b *testing.B) {
	flow := buildLoopFlow(10)
	ctx := nodeflow.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = flow.Run(ctx, &State{})
	}
}

// BenchmarkRun_BatchNode_100 runs a batch node over 100 items.
func BenchmarkRun_BatchNode_100(b *testing.B) {
	node := nodeflow.NewBatchNode[*State, int, int](squareBatch(100))
	ctx := nodeflow.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = node.Run(ctx, &State{})
	}
}

// BenchmarkRun_ParallelBatchNode_100 runs a parallel batch node over 100 items.
func BenchmarkRun_ParallelBatchNode_100(b *testing.B) {
	node := nodeflow.NewParallelBatchNode[*State, int, int](squareBatch(100))
	ctx := nodeflow.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = node.Run(ctx, &State{})
	}
}

// BenchmarkRun_BatchFlow_10 runs a 5-node flow once per 10 param sets.
func BenchmarkRun_BatchFlow_10(b *testing.B) {
	inner := buildLinearFlow(5)
	flow := nodeflow.NewBatchFlow[*State](inner.StartNode(), func(ctx nodeflow.Context, s *State) ([]map[string]any, error) {
		out := make([]map[string]any, 10)
		for i := range out {
			out[i] = map[string]any{"index": i}
		}
		return out, nil
	})
	ctx := nodeflow.NewContext(context.Background())
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = flow.Run(ctx, &State{})
	}
}

// BenchmarkContextCreation measures context creation overhead.
func BenchmarkContextCreation(b *testing.B) {
	bg := context.Background()
	for i := 0; i < b.N; i++ {
		nodeflow.NewContext(bg)
	}
}

// Helper functions

func squareBatch(n int) nodeflow.BatchFuncs[*State, int, int] {
	return nodeflow.BatchFuncs[*State, int, int]{
		PrepFn: func(ctx nodeflow.Context, s *State) ([]int, error) {
			items := make([]int, n)
			for i := range items {
				items[i] = i
			}
			return items, nil
		},
		ExecFn: func(ctx nodeflow.Context, item int) (int, error) {
			return item * item, nil
		},
	}
}
