package nodeflow

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrNilContext indicates Run was called with a nil context.
	ErrNilContext = errors.New("context cannot be nil")

	// ErrNilStart indicates a flow was run without a start vertex.
	ErrNilStart = errors.New("flow has no start node")

	// ErrMaxSteps indicates a flow exceeded its configured step limit.
	ErrMaxSteps = errors.New("exceeded maximum steps")
)

// Phase names a lifecycle phase.
type Phase string

// Lifecycle phases.
const (
	PhasePrep     Phase = "prep"
	PhaseExec     Phase = "exec"
	PhaseFallback Phase = "fallback"
	PhasePost     Phase = "post"
)

// PanicError captures a panic raised inside a lifecycle phase.
// Panics in exec are not retried.
type PanicError struct {
	Node  string
	Phase Phase
	Value any
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("node %s panicked in %s: %v", e.Node, e.Phase, e.Value)
}

// ItemError reports which element of a batch failed.
type ItemError struct {
	// Node is the batch node or batch flow.
	Node string
	// Index is the position of the failing item in the prep result.
	Index int
	// Err is the item's error.
	Err error
}

// Error implements the error interface.
func (e *ItemError) Error() string {
	return fmt.Sprintf("node %s item %d: %v", e.Node, e.Index, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ItemError) Unwrap() error {
	return e.Err
}

// MaxStepsError is returned when a flow runs more steps than allowed.
type MaxStepsError struct {
	Flow     string
	MaxSteps int
	LastNode string
}

// Error implements the error interface.
func (e *MaxStepsError) Error() string {
	return fmt.Sprintf("flow %s exceeded %d steps (last node: %s)", e.Flow, e.MaxSteps, e.LastNode)
}

// Unwrap returns ErrMaxSteps.
func (e *MaxStepsError) Unwrap() error {
	return ErrMaxSteps
}
