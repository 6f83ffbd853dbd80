package logging

import (
	"context"
	"log/slog"
)

// MultiHandler forwards each record to every nested handler that
// accepts its level, so one logger can feed stdout, the journal, and
// the ring buffer at once.
type MultiHandler struct {
	nested []slog.Handler
}

// NewMultiHandler combines handlers into a single fan-out handler.
func NewMultiHandler(nested ...slog.Handler) *MultiHandler {
	return &MultiHandler{nested: nested}
}

// Enabled reports true if any nested handler would accept the level.
func (m *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.nested {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle delivers the record to every accepting handler. The first
// delivery error is returned, but delivery is attempted on all.
func (m *MultiHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for _, h := range m.nested {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// WithAttrs derives a fan-out handler with the attrs applied throughout.
func (m *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return m.derive(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

// WithGroup derives a fan-out handler with the group opened throughout.
func (m *MultiHandler) WithGroup(name string) slog.Handler {
	return m.derive(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (m *MultiHandler) derive(f func(slog.Handler) slog.Handler) *MultiHandler {
	next := make([]slog.Handler, len(m.nested))
	for i, h := range m.nested {
		next[i] = f(h)
	}
	return &MultiHandler{nested: next}
}
