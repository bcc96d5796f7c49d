package nodeflow

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// itemsFrom returns a batch prep that reads shared["items"].
func itemsFrom(ctx Context, s Shared) ([]int, error) {
	items, _ := s["items"].([]int)
	return items, nil
}

// storeResults is a batch post that writes results to shared["results"].
func storeResults(ctx Context, s Shared, items []int, results []int) (string, error) {
	s["results"] = results
	return "", nil
}

func TestBatchNode_OrderAndLength(t *testing.T) {
	var order []int
	node := NewBatchNode[Shared, int, int](BatchFuncs[Shared, int, int]{
		PrepFn: itemsFrom,
		ExecFn: func(ctx Context, item int) (int, error) {
			order = append(order, item)
			return item * 2, nil
		},
		PostFn: storeResults,
	})
	shared := Shared{"items": []int{5, 3, 8, 1, 4}}

	action, err := node.Run(testCtx(), shared)

	require.NoError(t, err)
	assert.Equal(t, DefaultAction, action)
	assert.Equal(t, []int{10, 6, 16, 2, 8}, shared["results"])
	assert.Equal(t, []int{5, 3, 8, 1, 4}, order, "items run in order")
}

func TestBatchNode_FirstFailureAborts(t *testing.T) {
	itemErr := errors.New("item 2 broke")
	var ran []int
	postCalled := false
	node := NewBatchNode[Shared, int, int](BatchFuncs[Shared, int, int]{
		PrepFn: itemsFrom,
		ExecFn: func(ctx Context, item int) (int, error) {
			ran = append(ran, item)
			if item == 2 {
				return 0, itemErr
			}
			return item, nil
		},
		PostFn: func(ctx Context, s Shared, _ []int, _ []int) (string, error) {
			postCalled = true
			return "", nil
		},
	}, WithName("batch"))

	_, err := node.Run(testCtx(), Shared{"items": []int{0, 1, 2, 3, 4}})

	require.Error(t, err)
	assert.ErrorIs(t, err, itemErr)
	var ie *ItemError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "batch", ie.Node)
	assert.Equal(t, 2, ie.Index)
	assert.Equal(t, []int{0, 1, 2}, ran)
	assert.False(t, postCalled)
}

func TestBatchNode_RetriesPerItem(t *testing.T) {
	failed := map[int]bool{}
	node := NewBatchNode[Shared, int, int](BatchFuncs[Shared, int, int]{
		PrepFn: itemsFrom,
		ExecFn: func(ctx Context, item int) (int, error) {
			if !failed[item] {
				failed[item] = true
				return 0, fmt.Errorf("first try of %d", item)
			}
			return item * 10, nil
		},
		PostFn: storeResults,
	}, WithMaxRetries(2))
	shared := Shared{"items": []int{1, 2, 3}}

	_, err := node.Run(testCtx(), shared)

	require.NoError(t, err)
	assert.Equal(t, []int{10, 20, 30}, shared["results"])
}

func TestBatchNode_FallbackPerItem(t *testing.T) {
	node := NewBatchNode[Shared, int, int](BatchFuncs[Shared, int, int]{
		PrepFn: itemsFrom,
		ExecFn: func(ctx Context, item int) (int, error) {
			if item%2 == 0 {
				return 0, errors.New("even")
			}
			return item, nil
		},
		FallbackFn: func(ctx Context, item int, err error) (int, error) {
			return -item, nil
		},
		PostFn: storeResults,
	}, WithMaxRetries(2))
	shared := Shared{"items": []int{1, 2, 3, 4}}

	_, err := node.Run(testCtx(), shared)

	require.NoError(t, err)
	assert.Equal(t, []int{1, -2, 3, -4}, shared["results"])
}

func TestBatchNode_EmptyPrepSkipsExec(t *testing.T) {
	for name, items := range map[string][]int{"nil": nil, "empty": {}} {
		t.Run(name, func(t *testing.T) {
			execCalls := 0
			var gotItems []int
			var gotResults []int
			node := NewBatchNode[Shared, int, int](BatchFuncs[Shared, int, int]{
				PrepFn: func(ctx Context, s Shared) ([]int, error) { return items, nil },
				ExecFn: func(ctx Context, item int) (int, error) {
					execCalls++
					return item, nil
				},
				PostFn: func(ctx Context, s Shared, items []int, results []int) (string, error) {
					gotItems, gotResults = items, results
					return "empty", nil
				},
			})

			action, err := node.Run(testCtx(), Shared{})

			require.NoError(t, err)
			assert.Equal(t, "empty", action)
			assert.Zero(t, execCalls)
			assert.NotNil(t, gotItems)
			assert.NotNil(t, gotResults)
			assert.Empty(t, gotItems)
			assert.Empty(t, gotResults)
		})
	}
}

func TestBatchNode_PrepError(t *testing.T) {
	prepErr := errors.New("no items")
	node := NewBatchNode[Shared, int, int](BatchFuncs[Shared, int, int]{
		PrepFn: func(ctx Context, s Shared) ([]int, error) { return nil, prepErr },
	})

	_, err := node.Run(testCtx(), Shared{})

	require.Error(t, err)
	assert.Same(t, prepErr, err)
}

func TestParallelBatchNode_PreservesOrderWithInverseDelays(t *testing.T) {
	var mu sync.Mutex
	var finished []int
	node := NewParallelBatchNode[Shared, int, int](BatchFuncs[Shared, int, int]{
		PrepFn: itemsFrom,
		ExecFn: func(ctx Context, item int) (int, error) {
			// item 5 finishes first, item 1 last
			time.Sleep(time.Duration(6-item) * 20 * time.Millisecond)
			mu.Lock()
			finished = append(finished, item)
			mu.Unlock()
			return item * 100, nil
		},
		PostFn: storeResults,
	})
	shared := Shared{"items": []int{1, 2, 3, 4, 5}}

	_, err := node.Run(testCtx(), shared)

	require.NoError(t, err)
	assert.Equal(t, []int{100, 200, 300, 400, 500}, shared["results"])
	require.Len(t, finished, 5)
	assert.Equal(t, 5, finished[0])
	assert.Equal(t, 1, finished[4])
}

func TestParallelBatchNode_RunsConcurrently(t *testing.T) {
	node := NewParallelBatchNode[Shared, int, int](BatchFuncs[Shared, int, int]{
		PrepFn: itemsFrom,
		ExecFn: func(ctx Context, item int) (int, error) {
			time.Sleep(100 * time.Millisecond)
			return item, nil
		},
		PostFn: storeResults,
	})
	shared := Shared{"items": []int{1, 2, 3, 4, 5, 6, 7, 8}}

	start := time.Now()
	_, err := node.Run(testCtx(), shared)

	require.NoError(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8}, shared["results"])
}

func TestParallelBatchNode_SettlesAllBeforeFailing(t *testing.T) {
	var ran atomic.Int32
	node := NewParallelBatchNode[Shared, int, int](BatchFuncs[Shared, int, int]{
		PrepFn: itemsFrom,
		ExecFn: func(ctx Context, item int) (int, error) {
			defer ran.Add(1)
			if item == 1 || item == 3 {
				return 0, fmt.Errorf("item %d failed", item)
			}
			time.Sleep(30 * time.Millisecond)
			return item, nil
		},
		PostFn: storeResults,
	}, WithName("fanout"))
	shared := Shared{"items": []int{0, 1, 2, 3, 4}}

	_, err := node.Run(testCtx(), shared)

	require.Error(t, err)
	assert.Equal(t, int32(5), ran.Load(), "every item settles")
	var ie *ItemError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "fanout", ie.Node)
	assert.Contains(t, []int{1, 3}, ie.Index)
	assert.EqualError(t, ie.Err, fmt.Sprintf("item %d failed", ie.Index))
	assert.NotContains(t, shared, "results")
}

func TestParallelBatchNode_ConcurrencyLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	node := NewParallelBatchNode[Shared, int, int](BatchFuncs[Shared, int, int]{
		PrepFn: itemsFrom,
		ExecFn: func(ctx Context, item int) (int, error) {
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			inFlight.Add(-1)
			return item, nil
		},
		PostFn: storeResults,
	}, WithConcurrency(2))
	shared := Shared{"items": []int{1, 2, 3, 4, 5, 6}}

	_, err := node.Run(testCtx(), shared)

	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, shared["results"])
}

func TestParallelBatchNode_RetriesPerItem(t *testing.T) {
	var mu sync.Mutex
	attempts := map[int]int{}
	node := NewParallelBatchNode[Shared, int, int](BatchFuncs[Shared, int, int]{
		PrepFn: itemsFrom,
		ExecFn: func(ctx Context, item int) (int, error) {
			mu.Lock()
			attempts[item]++
			n := attempts[item]
			mu.Unlock()
			if n < 3 {
				return 0, errors.New("not yet")
			}
			return ctx.CurrentRetry(), nil
		},
		PostFn: storeResults,
	}, WithMaxRetries(3), WithWait(5*time.Millisecond))
	shared := Shared{"items": []int{1, 2, 3}}

	_, err := node.Run(testCtx(), shared)

	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 2}, shared["results"], "each item succeeds on attempt index 2")
	assert.Equal(t, map[int]int{1: 3, 2: 3, 3: 3}, attempts)
}

func TestBatchNode_DefaultNames(t *testing.T) {
	assert.Equal(t, "batch", NewBatchNode[Shared, int, int](BatchFuncs[Shared, int, int]{}).Name())
	assert.Equal(t, "parallel_batch", NewParallelBatchNode[Shared, int, int](BatchFuncs[Shared, int, int]{}).Name())
}
