package log

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
)

// stackHandler decorates another slog.Handler. When a record carries an
// error under ErrAttrKey, the stack captured by cockroachdb/errors is added
// as a StacktraceAttrKey attribute.
type stackHandler struct {
	next slog.Handler
}

// WrapByErrFmtHandler returns h decorated with error stack extraction.
func WrapByErrFmtHandler(h slog.Handler) slog.Handler {
	return stackHandler{next: h}
}

func (h stackHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h stackHandler) Handle(ctx context.Context, r slog.Record) error {
	if trace := recordStack(r); trace != "" {
		r = r.Clone()
		r.AddAttrs(slog.String(StacktraceAttrKey, trace))
	}
	return h.next.Handle(ctx, r)
}

func (h stackHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return stackHandler{next: h.next.WithAttrs(attrs)}
}

func (h stackHandler) WithGroup(name string) slog.Handler {
	return stackHandler{next: h.next.WithGroup(name)}
}

func recordStack(r slog.Record) string {
	var trace string
	r.Attrs(func(a slog.Attr) bool {
		if a.Key != ErrAttrKey {
			return true
		}
		if err, ok := a.Value.Any().(error); ok {
			trace = stackOf(err)
		}
		return false
	})
	return trace
}

// stackOf returns the first safe detail found walking err's causal chain.
// pkg/errors constructors wrap with WithStack, so this is usually the
// outermost layer.
func stackOf(err error) string {
	for ; err != nil; err = errors.UnwrapOnce(err) {
		if d := errors.GetSafeDetails(err).SafeDetails; len(d) > 0 {
			return d[0]
		}
	}
	return ""
}
