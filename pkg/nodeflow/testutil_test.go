package nodeflow

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"
)

// testCtx returns a root Context that discards logs.
func testCtx() Context {
	return NewContext(context.Background(), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

// logRecord is one captured log line.
type logRecord struct {
	Level slog.Level
	Msg   string
	Attrs map[string]any
}

// captureHandler records log records. Safe for concurrent use.
type captureHandler struct {
	mu      *sync.Mutex
	records *[]logRecord
	attrs   []slog.Attr
}

func newCaptureHandler() *captureHandler {
	return &captureHandler{mu: &sync.Mutex{}, records: &[]logRecord{}}
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	rec := logRecord{Level: r.Level, Msg: r.Message, Attrs: map[string]any{}}
	for _, a := range h.attrs {
		rec.Attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		rec.Attrs[a.Key] = a.Value.Any()
		return true
	})
	h.mu.Lock()
	defer h.mu.Unlock()
	*h.records = append(*h.records, rec)
	return nil
}

func (h *captureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &captureHandler{mu: h.mu, records: h.records, attrs: append(slices.Clone(h.attrs), attrs...)}
}

func (h *captureHandler) WithGroup(string) slog.Handler { return h }

// find returns the records with the given message.
func (h *captureHandler) find(msg string) []logRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []logRecord
	for _, r := range *h.records {
		if r.Msg == msg {
			out = append(out, r)
		}
	}
	return out
}

// captureCtx returns a root Context logging to a fresh captureHandler.
func captureCtx(opts ...ContextOption) (Context, *captureHandler) {
	h := newCaptureHandler()
	opts = append([]ContextOption{WithLogger(slog.New(h))}, opts...)
	return NewContext(context.Background(), opts...), h
}

// captureDefault swaps slog.Default for the duration of a test.
func captureDefault(t *testing.T) *captureHandler {
	h := newCaptureHandler()
	prev := slog.Default()
	slog.SetDefault(slog.New(h))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return h
}

// Shared is the storage type used across tests.
type Shared = map[string]any

// recorder is a Funcs-based node that records into shared[key].
func recorder(name, key, action string) *Node[Shared, any, any] {
	return NewNode[Shared, any, any](Funcs[Shared, any, any]{
		PostFn: func(ctx Context, s Shared, _ any, _ any) (string, error) {
			trail, _ := s[key].([]string)
			s[key] = append(trail, name)
			return action, nil
		},
	}, WithName(name))
}
