// Package observability provides logging, metrics, and tracing for nodeflow.
//
// Features:
//   - Structured logging via slog
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// Metrics and tracing are opt-in and have no-op implementations when disabled.
// Every log helper accepts a nil logger and does nothing in that case.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds run and node context to a logger.
func EnrichLogger(logger *slog.Logger, runID, node string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("run_id", runID),
		slog.String("node", node),
	)
}

// LogFlowStart logs the start of a flow traversal.
func LogFlowStart(logger *slog.Logger, flow, start string) {
	if logger == nil {
		return
	}
	logger.Debug("flow starting",
		slog.String("flow", flow),
		slog.String("start", start),
	)
}

// LogFlowComplete logs a traversal that reached a terminal node.
func LogFlowComplete(logger *slog.Logger, flow, lastAction string, steps int, duration time.Duration) {
	if logger == nil {
		return
	}
	logger.Debug("flow completed",
		slog.String("flow", flow),
		slog.String("last_action", lastAction),
		slog.Int("steps", steps),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)
}

// LogFlowError logs a traversal that stopped on an error.
func LogFlowError(logger *slog.Logger, flow, lastNode string, err error) {
	if logger == nil {
		return
	}
	logger.Error("flow failed",
		slog.String("flow", flow),
		slog.String("last_node", lastNode),
		slog.String("error", err.Error()),
	)
}

// LogStep logs one completed traversal step.
func LogStep(logger *slog.Logger, node, action string, step int, duration time.Duration) {
	if logger == nil {
		return
	}
	logger.Debug("node completed",
		slog.String("node", node),
		slog.String("action", action),
		slog.Int("step", step),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)
}

// LogRetry logs a failed exec attempt that will be retried.
func LogRetry(logger *slog.Logger, node string, attempt int, err error, delay time.Duration) {
	if logger == nil {
		return
	}
	logger.Debug("exec attempt failed, retrying",
		slog.String("node", node),
		slog.Int("attempt", attempt),
		slog.String("error", err.Error()),
		slog.Duration("delay", delay),
	)
}

// LogFallback logs that retries ran out and the node's fallback was invoked.
func LogFallback(logger *slog.Logger, node string, attempts int, err error) {
	if logger == nil {
		return
	}
	logger.Warn("exec retries exhausted, using fallback",
		slog.String("node", node),
		slog.Int("attempts", attempts),
		slog.String("error", err.Error()),
	)
}

// LogSuccessorOverwrite warns that an action label was re-registered.
func LogSuccessorOverwrite(logger *slog.Logger, node, action, replaced string) {
	if logger == nil {
		return
	}
	logger.Warn("overwriting successor",
		slog.String("node", node),
		slog.String("action", action),
		slog.String("replaced", replaced),
	)
}

// LogOrchestrationSkipped warns that Run was called on a node with successors.
// Run executes one node only; edges are followed by a Flow.
func LogOrchestrationSkipped(logger *slog.Logger, node string, successors int) {
	if logger == nil {
		return
	}
	logger.Warn("node has successors but Run does not follow them; use a Flow",
		slog.String("node", node),
		slog.Int("successors", successors),
	)
}

// LogMissingSuccessor warns that a flow ends because no edge matched the action
// even though the node has other edges.
func LogMissingSuccessor(logger *slog.Logger, node, action string, available []string) {
	if logger == nil {
		return
	}
	logger.Warn("flow ends: action has no successor",
		slog.String("node", node),
		slog.String("action", action),
		slog.Any("available", available),
	)
}

// LogJournalError warns that a step could not be recorded. The run continues.
func LogJournalError(logger *slog.Logger, node string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("journal append failed",
		slog.String("node", node),
		slog.String("error", err.Error()),
	)
}
