// Package journal records the traversal history of flow runs.
//
// Each entry describes one node step: which node ran, which action it
// returned, how long it took, and the error if it failed. Shared storage is
// never written to the journal.
package journal

import (
	"errors"
	"time"
)

// Store persists journal entries.
// Implementations must be safe for concurrent use.
type Store interface {
	// Append records an entry and returns the sequence number assigned to it.
	// Sequences start at 1 and increase per run.
	Append(e Entry) (int, error)

	// List returns all entries for a run, ordered by sequence.
	// Returns an empty slice (not an error) for unknown runs.
	List(runID string) ([]Entry, error)

	// Runs returns the IDs of all runs with at least one entry.
	Runs() ([]string, error)

	// DeleteRun removes all entries for a run.
	DeleteRun(runID string) error

	// Close releases any resources.
	Close() error
}

// Entry is one recorded node step.
type Entry struct {
	RunID     string
	Sequence  int
	Flow      string
	Node      string
	Action    string
	Error     string
	StartedAt time.Time
	Duration  time.Duration
}

// Failed reports whether the step ended with an error.
func (e Entry) Failed() bool {
	return e.Error != ""
}

// Sentinel errors for journal operations.
var (
	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("journal store closed")

	// ErrRunIDRequired indicates an entry without a run ID.
	ErrRunIDRequired = errors.New("journal entry requires a run ID")
)
