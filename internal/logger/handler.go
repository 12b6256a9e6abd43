package logger

import (
	"context"
	"io"
	"log/slog"

	"docgenie/apps/indexer/internal/middleware"
)

// ContextHandler decorates every record with the correlation id carried in
// the context, so API requests and queue-driven pipeline runs can be traced
// end to end.
type ContextHandler struct {
	slog.Handler
}

func NewContextHandler(h slog.Handler) *ContextHandler {
	return &ContextHandler{Handler: h}
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id, ok := ctx.Value(middleware.CorrelationKey).(string); ok && id != "" {
		r.AddAttrs(slog.String("correlation_id", id))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{Handler: h.Handler.WithGroup(name)}
}

// Init installs a JSON context-aware logger as the process default and
// returns it.
func Init(w io.Writer) *slog.Logger {
	l := slog.New(NewContextHandler(slog.NewJSONHandler(w, nil)))
	slog.SetDefault(l)
	return l
}
