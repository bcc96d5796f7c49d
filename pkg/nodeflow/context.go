package nodeflow

import (
	"context"
	"log/slog"
	"maps"

	"github.com/google/uuid"
	"github.com/randalmurphal/nodeflow/pkg/nodeflow/config"
	"github.com/randalmurphal/nodeflow/pkg/nodeflow/journal"
	"github.com/randalmurphal/nodeflow/pkg/nodeflow/observability"
)

// Context provides execution context to lifecycle methods.
// It extends context.Context with per-run state and services.
//
// Context is immutable. Flows derive a new Context for every step, and the
// exec runner derives one per attempt, so a node instance can be shared by
// concurrent runs.
type Context interface {
	context.Context

	// Logger returns the run logger enriched with run_id and node, plus
	// attempt inside exec and fallback. Never returns nil.
	Logger() *slog.Logger

	// RunID returns the identifier shared by every step of a top-level run.
	RunID() string

	// Node returns the name of the vertex being run.
	Node() string

	// CurrentRetry returns the 0-based exec attempt index.
	// Outside exec and fallback it is 0.
	CurrentRetry() int

	// Params returns a copy of the effective params for this run.
	Params() map[string]any

	// Config returns a typed view of Params.
	Config() config.Config
}

// services is shared by every Context derived from one root.
type services struct {
	logger  *slog.Logger
	runID   string
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
	journal journal.Store
}

type servicesKey struct{}

// execContext is the internal implementation of Context.
type execContext struct {
	context.Context

	svc     *services
	logger  *slog.Logger
	node    string
	params  map[string]any
	attempt int
}

func (c *execContext) Logger() *slog.Logger { return c.logger }

func (c *execContext) RunID() string { return c.svc.runID }

func (c *execContext) Node() string { return c.node }

func (c *execContext) CurrentRetry() int { return c.attempt }

func (c *execContext) Params() map[string]any {
	if c.params == nil {
		return map[string]any{}
	}
	return maps.Clone(c.params)
}

func (c *execContext) Config() config.Config {
	return config.New(c.params)
}

// Value exposes the shared services to contexts derived from c, so a root
// Context wrapped by context.WithTimeout or similar keeps its services.
func (c *execContext) Value(key any) any {
	if key == (servicesKey{}) {
		return c.svc
	}
	return c.Context.Value(key)
}

// forNode derives a Context for one vertex run under parent.
func (c *execContext) forNode(parent context.Context, node string, params map[string]any) *execContext {
	return &execContext{
		Context: parent,
		svc:     c.svc,
		logger:  observability.EnrichLogger(c.svc.logger, c.svc.runID, node),
		node:    node,
		params:  params,
	}
}

// withAttempt derives a Context for exec attempt i. Its logger carries the
// attempt index.
func (c *execContext) withAttempt(i int) *execContext {
	cp := *c
	cp.attempt = i
	cp.logger = c.logger.With(slog.Int("attempt", i))
	return &cp
}

// ContextOption configures a Context.
type ContextOption func(*services)

// WithLogger sets the logger. It is enriched with run_id and node per step.
func WithLogger(logger *slog.Logger) ContextOption {
	return func(s *services) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRunID sets the run identifier. If not set, a UUID is generated.
func WithRunID(id string) ContextOption {
	return func(s *services) {
		if id != "" {
			s.runID = id
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m observability.MetricsRecorder) ContextOption {
	return func(s *services) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithTracing sets the span manager.
func WithTracing(sm observability.SpanManager) ContextOption {
	return func(s *services) {
		if sm != nil {
			s.spans = sm
		}
	}
}

// WithObservability enables OpenTelemetry metrics and tracing using the
// global providers.
func WithObservability() ContextOption {
	return func(s *services) {
		s.metrics = observability.NewMetricsRecorder()
		s.spans = observability.NewSpanManager()
	}
}

// WithJournal records every flow step in store.
func WithJournal(store journal.Store) ContextOption {
	return func(s *services) {
		s.journal = store
	}
}

// NewContext creates a root Context. Pass it (or a context derived from it)
// to Run to share its services and run ID.
//
// Example:
//
//	ctx := nodeflow.NewContext(context.Background(),
//	    nodeflow.WithLogger(logger),
//	    nodeflow.WithJournal(store))
//	action, err := flow.Run(ctx, shared)
func NewContext(ctx context.Context, opts ...ContextOption) Context {
	svc := newServices()
	for _, opt := range opts {
		opt(svc)
	}
	return &execContext{
		Context: ctx,
		svc:     svc,
		logger:  svc.logger,
	}
}

func newServices() *services {
	return &services{
		logger:  slog.Default(),
		runID:   uuid.New().String(),
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
	}
}

// rootContext builds the Context for a top-level Run call, reusing the
// services of a NewContext root found in ctx.
func rootContext(ctx context.Context, node string, params map[string]any) *execContext {
	svc, _ := ctx.Value(servicesKey{}).(*services)
	if svc == nil {
		svc = newServices()
	}
	root := &execContext{Context: ctx, svc: svc}
	return root.forNode(ctx, node, params)
}
