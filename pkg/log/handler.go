package log

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
)

// stacktraceHandler decorates records carrying an error attribute with the
// stacktrace recorded by cockroachdb/errors, so failed trials keep their
// origin in the JSON output.
type stacktraceHandler struct {
	next slog.Handler
}

func newStacktraceHandler(next slog.Handler) slog.Handler {
	return &stacktraceHandler{next: next}
}

func (h *stacktraceHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.next.Enabled(ctx, l)
}

func (h *stacktraceHandler) Handle(ctx context.Context, r slog.Record) error {
	var trace string
	r.Attrs(func(attr slog.Attr) bool {
		if attr.Key != ErrAttrKey {
			return true
		}
		if err, ok := attr.Value.Any().(error); ok {
			if details := errors.GetSafeDetails(err).SafeDetails; len(details) > 0 {
				trace = details[0]
			}
		}
		return false
	})
	if trace != "" {
		r.AddAttrs(slog.String(StacktraceAttrKey, trace))
	}
	return h.next.Handle(ctx, r)
}

func (h *stacktraceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &stacktraceHandler{next: h.next.WithAttrs(attrs)}
}

func (h *stacktraceHandler) WithGroup(g string) slog.Handler {
	return &stacktraceHandler{next: h.next.WithGroup(g)}
}
