package logging

import (
	"context"
	"log/slog"
	"time"
)

// RunHandler stamps every record with the run id and the time elapsed
// since the run started.
type RunHandler struct {
	inner slog.Handler
	run   string
	start time.Time
	now   func() time.Time
}

// NewRunHandler wraps inner for the run with the given id.
func NewRunHandler(inner slog.Handler, run string) *RunHandler {
	return &RunHandler{inner: inner, run: run, start: time.Now(), now: time.Now}
}

func (h *RunHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *RunHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(
		slog.String("run", h.run),
		slog.Duration("elapsed", h.now().Sub(h.start).Round(time.Millisecond)),
	)
	return h.inner.Handle(ctx, r)
}

func (h *RunHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.inner = h.inner.WithAttrs(attrs)
	return &c
}

func (h *RunHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.inner = h.inner.WithGroup(name)
	return &c
}
