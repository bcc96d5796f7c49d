package benchmarks

import (
	"testing"

	"github.com/randalmurphal/nodeflow/pkg/nodeflow"
)

// State for benchmarks.
type State struct {
	Value int
}

// noopNode does minimal work to measure framework overhead.
func noopNode(name string) *nodeflow.Node[*State, int, int] {
	return nodeflow.NewNode[*State, int, int](nodeflow.Funcs[*State, int, int]{}, nodeflow.WithName(name))
}

// incrementNode bumps State.Value in post.
func incrementNode(name string) *nodeflow.Node[*State, int, int] {
	return nodeflow.NewNode[*State, int, int](nodeflow.Funcs[*State, int, int]{
		PostFn: func(ctx nodeflow.Context, s *State, _ int, _ int) (string, error) {
			s.Value++
			return "", nil
		},
	}, nodeflow.WithName(name))
}

// BenchmarkNewNode measures node creation overhead.
func BenchmarkNewNode(b *testing.B) {
	for i := 0; i < b.N; i++ {
		noopNode("node")
	}
}

// BenchmarkNext_10 measures wiring a 10-node chain.
func BenchmarkNext_10(b *testing.B) {
	for i := 0; i < b.N; i++ {
		buildLinearFlow(10)
	}
}

// BenchmarkNext_100 measures wiring a 100-node chain.
func BenchmarkNext_100(b *testing.B) {
	for i := 0; i < b.N; i++ {
		buildLinearFlow(100)
	}
}

// BenchmarkBuild_Branching measures wiring a graph with labeled edges.
func BenchmarkBuild_Branching(b *testing.B) {
	for i := 0; i < b.N; i++ {
		buildBranchingFlow()
	}
}

// Helper functions

func nodeID(n int) string {
	return string(rune('a'+n%26)) + string(rune('0'+n/26%10))
}

func buildLinearFlow(n int) *nodeflow.Flow[*State] {
	start := incrementNode(nodeID(0))
	var prev nodeflow.Workflow[*State] = start
	for i := 1; i < n; i++ {
		prev = prev.Next(incrementNode(nodeID(i)))
	}
	return nodeflow.NewFlow[*State](start)
}

func buildBranchingFlow() *nodeflow.Flow[*State] {
	start := nodeflow.NewNode[*State, int, int](nodeflow.Funcs[*State, int, int]{
		PostFn: func(ctx nodeflow.Context, s *State, _ int, _ int) (string, error) {
			if s.Value%2 == 0 {
				return "even", nil
			}
			return "odd", nil
		},
	}, nodeflow.WithName("start"))
	merge := noopNode("merge")
	start.Next(noopNode("even"), "even").Next(merge)
	start.Next(noopNode("odd"), "odd").Next(merge)
	return nodeflow.NewFlow[*State](start)
}

func buildLoopFlow(iterations int) *nodeflow.Flow[*State] {
	loop := nodeflow.NewNode[*State, int, int](nodeflow.Funcs[*State, int, int]{
		PostFn: func(ctx nodeflow.Context, s *State, _ int, _ int) (string, error) {
			s.Value++
			if s.Value >= iterations {
				return "done", nil
			}
			return "loop", nil
		},
	}, nodeflow.WithName("loop"))
	loop.Next(loop, "loop")
	loop.Next(noopNode("done"), "done")
	return nodeflow.NewFlow[*State](loop)
}
